package projectbuild

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/swiftbundler/bundler/internal/config"
)

func TestCheckoutLocalSymlinksPath(t *testing.T) {
	pkgDir := t.TempDir()
	localSrc := filepath.Join(pkgDir, "vendor-project")
	require.NoError(t, os.MkdirAll(localSrc, 0o755))

	scratch := t.TempDir()
	dst := filepath.Join(scratch, "sources", "myproj")

	err := checkout(pkgDir, dst, config.ProjectSource{LocalPath: "vendor-project"})
	require.NoError(t, err)

	info, err := os.Lstat(dst)
	require.NoError(t, err)
	require.NotZero(t, info.Mode()&os.ModeSymlink)
}

func TestCheckoutLocalMissingPathFails(t *testing.T) {
	pkgDir := t.TempDir()
	scratch := t.TempDir()
	dst := filepath.Join(scratch, "sources", "myproj")

	err := checkout(pkgDir, dst, config.ProjectSource{LocalPath: "does-not-exist"})
	require.Error(t, err)
}

func TestCollectArtifactsSkipsMissingAuxiliary(t *testing.T) {
	sourceDir := t.TempDir()
	productsDir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(sourceDir, "bin"), []byte("exe"), 0o755))

	proj := config.ProjectConfiguration{
		Products: map[string]config.ProductConfiguration{
			"main": {
				Type:               config.ProductExecutable,
				ArtifactByPlatform: map[string]string{"linuxGeneric": "bin"},
				AuxiliaryArtifacts: []string{"missing.dat"},
			},
		},
	}

	err := collectArtifacts(sourceDir, productsDir, proj, "linuxGeneric")
	require.NoError(t, err)

	_, err = os.Stat(filepath.Join(productsDir, "bin"))
	require.NoError(t, err)
}

func TestCollectArtifactsSkipsOtherPlatforms(t *testing.T) {
	sourceDir := t.TempDir()
	productsDir := t.TempDir()

	proj := config.ProjectConfiguration{
		Products: map[string]config.ProductConfiguration{
			"main": {
				Type: config.ProductExecutable,
				ArtifactByPlatform: map[string]string{
					"linuxGeneric": "linux-bin",
					"macOS":        "mac-bin",
				},
			},
		},
	}

	// Only "macOS" is being built; "linux-bin" is never produced in this
	// source tree, so a naive all-platforms scan would fail here.
	err := collectArtifacts(sourceDir, productsDir, proj, "macOS")
	require.Error(t, err, "macOS artifact is declared but missing, so this should still fail")

	require.NoError(t, os.WriteFile(filepath.Join(sourceDir, "mac-bin"), []byte("exe"), 0o755))
	err = collectArtifacts(sourceDir, productsDir, proj, "macOS")
	require.NoError(t, err)
	_, err = os.Stat(filepath.Join(productsDir, "mac-bin"))
	require.NoError(t, err)
	_, err = os.Stat(filepath.Join(productsDir, "linux-bin"))
	require.True(t, os.IsNotExist(err), "linux-bin should never have been collected while building macOS")
}

func TestCollectArtifactsFailsOnMissingRequired(t *testing.T) {
	sourceDir := t.TempDir()
	productsDir := t.TempDir()

	proj := config.ProjectConfiguration{
		Products: map[string]config.ProductConfiguration{
			"main": {
				Type:               config.ProductExecutable,
				ArtifactByPlatform: map[string]string{"linuxGeneric": "missing-bin"},
			},
		},
	}

	err := collectArtifacts(sourceDir, productsDir, proj, "linuxGeneric")
	require.Error(t, err)
}
