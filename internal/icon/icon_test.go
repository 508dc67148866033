package icon

import (
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func writeTestPNG(t *testing.T, path string, size int) {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, size, size))
	for y := 0; y < size; y++ {
		for x := 0; x < size; x++ {
			img.Set(x, y, color.RGBA{R: uint8(x), G: uint8(y), B: 128, A: 255})
		}
	}
	f, err := os.Create(path)
	require.NoError(t, err)
	defer f.Close()
	require.NoError(t, png.Encode(f, img))
}

func TestBuildVariants(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "source.png")
	writeTestPNG(t, src, 512)

	err := BuildVariants(dir, src, []Variant{
		{Path: "icon_16x16.png", Size: 16},
		{Path: "icon_32x32.png", Size: 32, Fill: true},
	})
	require.NoError(t, err)

	for _, name := range []string{"icon_16x16.png", "icon_32x32.png"} {
		info, err := os.Stat(filepath.Join(dir, name))
		require.NoError(t, err)
		require.Greater(t, info.Size(), int64(0))
	}
}

func TestEncodeICO(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "source.png")
	writeTestPNG(t, src, 256)
	dst := filepath.Join(dir, "app.ico")

	require.NoError(t, EncodeICO(src, dst))
	info, err := os.Stat(dst)
	require.NoError(t, err)
	require.Greater(t, info.Size(), int64(6+16*len(icoSizes)))
}

func TestSniffFormatDetectsPNG(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "source.png")
	writeTestPNG(t, src, 64)

	format, err := SniffFormat(src)
	require.NoError(t, err)
	require.Equal(t, "png", format)
}

func TestSniffFormatDetectsIconComposerDocument(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "AppIcon.icon")
	require.NoError(t, os.MkdirAll(src, 0o755))

	format, err := SniffFormat(src)
	require.NoError(t, err)
	require.Equal(t, "icon", format)
}
