package bundlers

import (
	"os"
	"path/filepath"

	"github.com/swiftbundler/bundler/internal/berr"
	"github.com/swiftbundler/bundler/internal/bundle"
	"github.com/swiftbundler/bundler/internal/fsops"
)

// AppImageBundler wraps GenericLinuxBundler: build the generic tree inside
// an AppDir skeleton, add the AppRun/.DirIcon/desktop symlinks, then hand
// off to appimagetool (spec §4.9).
type AppImageBundler struct {
	Generic *GenericLinuxBundler
}

func (a *AppImageBundler) layout(ctx *bundle.BundlerContext) bundle.AppImageLayout {
	return bundle.NewAppImageLayout(ctx.OutputDirectory, ctx.AppName)
}

func (a *AppImageBundler) IntendedOutput(ctx *bundle.BundlerContext) (bundle.OutputStructure, error) {
	appImagePath := filepath.Join(ctx.OutputDirectory, ctx.AppName+".AppImage")
	return bundle.OutputStructure{Bundle: appImagePath}, nil
}

func (a *AppImageBundler) Bundle(ctx *bundle.BundlerContext) (bundle.OutputStructure, error) {
	appDirLayout := a.layout(ctx)

	inner := &GenericLinuxBundler{Runner: a.Generic.runner()}
	innerOut, err := inner.bundleInto(ctx, appDirLayout.GenericLinuxLayout)
	if err != nil {
		return bundle.OutputStructure{}, err
	}

	execRel, err := filepath.Rel(appDirLayout.AppDir, *innerOut.Executable)
	if err != nil {
		return bundle.OutputStructure{}, berr.Wrap(berr.Filesystem, err, "computing AppRun relative path")
	}
	os.Remove(appDirLayout.AppRun)
	if err := os.Symlink(execRel, appDirLayout.AppRun); err != nil {
		return bundle.OutputStructure{}, berr.Wrap(berr.Filesystem, err, "symlinking %s", appDirLayout.AppRun).With("path", appDirLayout.AppRun)
	}

	if ctx.Configuration.IconPath != "" && fsops.Exists(ctx.Configuration.IconPath) {
		iconDst := filepath.Join(appDirLayout.AppDir, ctx.Configuration.Identifier+".png")
		if err := fsops.CopyFile(ctx.Configuration.IconPath, iconDst); err != nil {
			return bundle.OutputStructure{}, err
		}
		os.Remove(appDirLayout.DirIcon)
		if err := os.Symlink(filepath.Base(iconDst), appDirLayout.DirIcon); err != nil {
			return bundle.OutputStructure{}, berr.Wrap(berr.Filesystem, err, "symlinking %s", appDirLayout.DirIcon).With("path", appDirLayout.DirIcon)
		}
	}

	desktopSrc := filepath.Join(appDirLayout.ApplicationsDir, ctx.Configuration.Identifier+".desktop")
	os.Remove(appDirLayout.DesktopLink)
	if rel, err := filepath.Rel(appDirLayout.AppDir, desktopSrc); err == nil {
		os.Symlink(rel, appDirLayout.DesktopLink)
	}

	appImagePath := filepath.Join(ctx.OutputDirectory, ctx.AppName+".AppImage")
	if _, err := a.Generic.runner().Run("appimagetool", appDirLayout.AppDir, appImagePath); err != nil {
		return bundle.OutputStructure{}, berr.Wrap(berr.ToolFailed, err, "running appimagetool on %s", appDirLayout.AppDir).With("path", appDirLayout.AppDir)
	}

	desktopOut := filepath.Join(ctx.OutputDirectory, ctx.Configuration.Identifier+".desktop")
	if err := fsops.CopyFile(desktopSrc, desktopOut); err != nil {
		return bundle.OutputStructure{}, err
	}

	return bundle.OutputStructure{Bundle: appImagePath, AdditionalOutputs: []string{desktopOut}}, nil
}
