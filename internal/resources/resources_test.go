package resources

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestDiscoverFlagsMainBundle(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.Mkdir(filepath.Join(dir, "mypkg_MyApp.resources"), 0o755))
	require.NoError(t, os.Mkdir(filepath.Join(dir, "other_Lib.resources"), 0o755))

	bundles, err := Discover(dir, "mypkg", "MyApp")
	require.NoError(t, err)
	require.Len(t, bundles, 2)

	var mainCount int
	for _, b := range bundles {
		if b.IsMain {
			mainCount++
			require.Equal(t, "mypkg_MyApp.resources", b.Name)
		}
	}
	require.Equal(t, 1, mainCount)
}

func TestPlainCopyBundleRenamesExtension(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "other_Lib.resources")
	require.NoError(t, os.MkdirAll(src, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(src, "data.txt"), []byte("hi"), 0o644))

	dst := filepath.Join(dir, "out")
	require.NoError(t, os.MkdirAll(dst, 0o755))

	err := plainCopyBundle(Bundle{Name: "other_Lib.resources", SrcPath: src}, dst)
	require.NoError(t, err)

	_, err = os.Stat(filepath.Join(dst, "other_Lib.bundle", "data.txt"))
	require.NoError(t, err)
}

func TestPlainCopyBundleKeepsWhitelistedExtension(t *testing.T) {
	dir := t.TempDir()
	name := "swift-windowsappsdk_CWinAppSDK.resources"
	src := filepath.Join(dir, name)
	require.NoError(t, os.MkdirAll(src, 0o755))

	dst := filepath.Join(dir, "out")
	require.NoError(t, os.MkdirAll(dst, 0o755))

	require.NoError(t, plainCopyBundle(Bundle{Name: name, SrcPath: src}, dst))
	_, err := os.Stat(filepath.Join(dst, name))
	require.NoError(t, err)
}

func TestExpandStringCatalogWritesLprojFiles(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "Localizable.xcstrings")
	doc := `{
		"sourceLanguage": "en",
		"strings": {
			"hello": {
				"localizations": {
					"en": {"stringUnit": {"value": "Hello"}},
					"fr": {"stringUnit": {"value": "Bonjour"}}
				}
			}
		}
	}`
	require.NoError(t, os.WriteFile(src, []byte(doc), 0o644))

	require.NoError(t, expandStringCatalog(src, dir))

	data, err := os.ReadFile(filepath.Join(dir, "fr.lproj", "Localizable.strings"))
	require.NoError(t, err)
	require.Contains(t, string(data), "Bonjour")
}
