// Package icon generates the platform icon variants the bundlers need:
// Apple iconset PNGs (scaled with golang.org/x/image/draw, grounded in
// gogio's buildIcons helper referenced throughout iosbuild.go/macosbuild.go
// and JackMordaunt-gopack's ico.FromPNG), an .icns file via
// github.com/jackmordaunt/icns/v2 (no iconutil shell-out needed), and a
// Windows .ico file using the same scan-line encoder JackMordaunt-gopack
// ships in its ico package.
package icon

import (
	"bufio"
	"bytes"
	"encoding/binary"
	"image"
	"image/draw"
	"image/png"
	"os"
	"path/filepath"

	"github.com/h2non/filetype"
	icnsenc "github.com/jackmordaunt/icns/v2"
	xdraw "golang.org/x/image/draw"
	"github.com/swiftbundler/bundler/internal/berr"
	"github.com/swiftbundler/bundler/internal/procrunner"
)

// Variant is one sized, optionally-filled output image within an iconset.
type Variant struct {
	Path string
	Size int
	Fill bool // App Store icons must not contain transparent pixels.
}

// SniffFormat reports the detected image container ("png", "icns", "icon",
// or "") for path's content, used ahead of dispatching to a format-specific
// compiler rather than trusting the file extension alone. ".icon" (an Apple
// Icon Composer document) is a directory-or-archive bundle rather than a
// sniffable image, so it is recognized by extension before anything tries
// to read it as a flat file.
func SniffFormat(path string) (string, error) {
	if filepath.Ext(path) == ".icon" {
		return "icon", nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return "", berr.Wrap(berr.Filesystem, err, "reading %s", path).With("path", path)
	}
	kind, err := filetype.Match(data)
	if err != nil {
		return "", berr.Wrap(berr.Filesystem, err, "sniffing %s", path).With("path", path)
	}
	switch kind.Extension {
	case "png":
		return "png", nil
	case "icns":
		return "icns", nil
	default:
		if filepath.Ext(path) == ".icns" {
			return "icns", nil
		}
		return "", nil
	}
}

// CompileIconComposerDocument invokes actool to compile a ".icon" Icon
// Composer document into dstDir, capturing the partial Info.plist actool
// emits alongside the compiled asset catalog so a non-macOS bundler can
// merge its keys into its own Info.plist (spec §4.2 step 5).
func CompileIconComposerDocument(runner *procrunner.Runner, src, dstDir, partialPlistPath, platform, minDeploymentTarget string) error {
	if err := os.MkdirAll(dstDir, 0o755); err != nil {
		return berr.Wrap(berr.Filesystem, err, "creating %s", dstDir).With("path", dstDir)
	}
	_, err := runner.Run("actool", src,
		"--compile", dstDir,
		"--output-partial-info-plist", partialPlistPath,
		"--platform", platform,
		"--minimum-deployment-target", minDeploymentTarget,
	)
	if err != nil {
		return berr.Wrap(berr.ToolFailed, err, "compiling icon composer document %s", src).With("path", src)
	}
	return nil
}

// BuildVariants loads src (a PNG) and writes every requested Variant into
// outDir, scaling with golang.org/x/image/draw.CatmullRom.
func BuildVariants(outDir, src string, variants []Variant) error {
	f, err := os.Open(src)
	if err != nil {
		return berr.Wrap(berr.Filesystem, err, "opening icon %s", src).With("path", src)
	}
	defer f.Close()
	img, err := png.Decode(f)
	if err != nil {
		return berr.Wrap(berr.BinaryFormat, err, "decoding icon %s", src).With("path", src)
	}
	for _, v := range variants {
		scaled := image.NewRGBA(image.Rect(0, 0, v.Size, v.Size))
		if v.Fill {
			draw.Draw(scaled, scaled.Bounds(), image.White, image.Point{}, draw.Src)
		}
		xdraw.CatmullRom.Scale(scaled, scaled.Bounds(), img, img.Bounds(), xdraw.Over, nil)
		dst := filepath.Join(outDir, v.Path)
		out, err := os.Create(dst)
		if err != nil {
			return berr.Wrap(berr.Filesystem, err, "creating %s", dst).With("path", dst)
		}
		err = png.Encode(out, scaled)
		out.Close()
		if err != nil {
			return berr.Wrap(berr.BinaryFormat, err, "encoding %s", dst).With("path", dst)
		}
	}
	return nil
}

// EncodeICNS reads a PNG at src and writes an Apple .icns file to dst using
// github.com/jackmordaunt/icns/v2, replacing the teacher's
// "iconutil -c icns" shell-out for the PNG source case.
func EncodeICNS(src, dst string) error {
	f, err := os.Open(src)
	if err != nil {
		return berr.Wrap(berr.Filesystem, err, "opening icon %s", src).With("path", src)
	}
	defer f.Close()
	img, err := png.Decode(f)
	if err != nil {
		return berr.Wrap(berr.BinaryFormat, err, "decoding icon %s", src).With("path", src)
	}
	out, err := os.Create(dst)
	if err != nil {
		return berr.Wrap(berr.Filesystem, err, "creating %s", dst).With("path", dst)
	}
	defer out.Close()
	if err := icnsenc.Encode(out, img); err != nil {
		return berr.Wrap(berr.BinaryFormat, err, "encoding icns %s", dst).With("path", dst)
	}
	return nil
}

// icoSizes matches JackMordaunt-gopack's ico.FromPNG size ladder.
var icoSizes = []int{256, 128, 64, 48, 32, 16}

type icoHeader struct {
	_          uint16
	imageType  uint16
	imageCount uint16
}

type icoDescriptor struct {
	width  uint8
	height uint8
	_      uint8
	_      uint8
	planes uint16
	bpp    uint16
	size   uint32
	offset uint32
}

// EncodeICO reads a PNG at src and writes a Windows .ico file to dst,
// adapted from JackMordaunt-gopack's ico/ico.go FromPNG.
func EncodeICO(src, dst string) error {
	f, err := os.Open(src)
	if err != nil {
		return berr.Wrap(berr.Filesystem, err, "opening icon %s", src).With("path", src)
	}
	defer f.Close()
	srcImg, err := png.Decode(f)
	if err != nil {
		return berr.Wrap(berr.BinaryFormat, err, "decoding icon %s", src).With("path", src)
	}

	type frame struct {
		header icoDescriptor
		data   []byte
	}
	var frames []frame
	for _, size := range icoSizes {
		rect := image.Rect(0, 0, size, size)
		scaled := image.NewRGBA(rect)
		xdraw.CatmullRom.Scale(scaled, rect, srcImg, srcImg.Bounds(), xdraw.Over, nil)

		buf := new(bytes.Buffer)
		w := bufio.NewWriter(buf)
		if err := png.Encode(w, scaled); err != nil {
			return berr.Wrap(berr.BinaryFormat, err, "encoding ico frame").With("size", size)
		}
		w.Flush()

		dim := size
		if dim >= 256 {
			dim = 0 // 0 means 256 in the ICO directory format.
		}
		frames = append(frames, frame{
			header: icoDescriptor{width: uint8(dim), height: uint8(dim), planes: 1, bpp: 32, size: uint32(buf.Len())},
			data:   buf.Bytes(),
		})
	}

	out, err := os.Create(dst)
	if err != nil {
		return berr.Wrap(berr.Filesystem, err, "creating %s", dst).With("path", dst)
	}
	defer out.Close()

	header := icoHeader{imageType: 1, imageCount: uint16(len(frames))}
	if err := binary.Write(out, binary.LittleEndian, header); err != nil {
		return berr.Wrap(berr.BinaryFormat, err, "writing ico header").With("path", dst)
	}
	offset := uint32(6 + 16*len(frames))
	for i := range frames {
		frames[i].header.offset = offset
		if err := binary.Write(out, binary.LittleEndian, frames[i].header); err != nil {
			return berr.Wrap(berr.BinaryFormat, err, "writing ico directory entry").With("path", dst)
		}
		offset += frames[i].header.size
	}
	for _, fr := range frames {
		if _, err := out.Write(fr.data); err != nil {
			return berr.Wrap(berr.BinaryFormat, err, "writing ico frame data").With("path", dst)
		}
	}
	return nil
}
