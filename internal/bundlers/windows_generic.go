package bundlers

import (
	"context"
	"path/filepath"

	"github.com/swiftbundler/bundler/internal/bundle"
	"github.com/swiftbundler/bundler/internal/fsops"
	"github.com/swiftbundler/bundler/internal/icon"
	"github.com/swiftbundler/bundler/internal/procrunner"
	"github.com/swiftbundler/bundler/internal/relocate"
	"github.com/swiftbundler/bundler/internal/resources"
)

// GenericWindowsBundler implements the flat Windows bundle tree (spec §3,
// "Generic Windows"; §4.3 "Windows (dumpbin)" for relocation).
type GenericWindowsBundler struct {
	Runner *procrunner.Runner
}

func (w *GenericWindowsBundler) runner() *procrunner.Runner {
	if w.Runner == nil {
		return &procrunner.Runner{}
	}
	return w.Runner
}

func (w *GenericWindowsBundler) layout(ctx *bundle.BundlerContext) bundle.GenericWindowsLayout {
	return bundle.NewGenericWindowsLayout(ctx.OutputDirectory, ctx.AppName)
}

func (w *GenericWindowsBundler) IntendedOutput(ctx *bundle.BundlerContext) (bundle.OutputStructure, error) {
	l := w.layout(ctx)
	exe := filepath.Join(l.Root, ctx.AppName+".exe")
	return bundle.OutputStructure{Bundle: l.Root}.WithExecutable(exe), nil
}

func (w *GenericWindowsBundler) Bundle(ctx *bundle.BundlerContext) (bundle.OutputStructure, error) {
	l := w.layout(ctx)
	for _, dir := range []string{l.Root, l.ModulesDir, l.ResourcesDir} {
		if err := fsops.EnsureDir(dir); err != nil {
			return bundle.OutputStructure{}, err
		}
	}

	executable := filepath.Join(l.Root, ctx.AppName+".exe")
	if err := fsops.CopyFile(ctx.Executable, executable); err != nil {
		return bundle.OutputStructure{}, err
	}

	// Per spec §9 open question, the executable-copy path must copy the
	// source's own .pdb sibling, not re-copy the executable itself.
	pdbSrc := trimExeSuffix(ctx.Executable) + ".pdb"
	if fsops.Exists(pdbSrc) {
		pdbDst := trimExeSuffix(executable) + ".pdb"
		if err := fsops.CopyFile(pdbSrc, pdbDst); err != nil {
			return bundle.OutputStructure{}, err
		}
	}

	if ctx.Configuration.IconPath != "" && fsops.Exists(ctx.Configuration.IconPath) {
		format, err := icon.SniffFormat(ctx.Configuration.IconPath)
		if err != nil {
			return bundle.OutputStructure{}, err
		}
		if format == "png" {
			if err := icon.EncodeICO(ctx.Configuration.IconPath, filepath.Join(l.Root, "app.ico")); err != nil {
				return bundle.OutputStructure{}, err
			}
		}
	}

	if err := embedMetadataObject(w.runner(), ctx, l.ModulesDir); err != nil {
		return bundle.OutputStructure{}, err
	}
	if err := copyDependencyProducts(ctx, l.ModulesDir); err != nil {
		return bundle.OutputStructure{}, err
	}

	bundles, err := resources.Discover(ctx.ProductsDirectory, ctx.PackageName, ctx.AppName)
	if err != nil {
		return bundle.OutputStructure{}, err
	}
	if err := resources.Copy(bundles, l.ResourcesDir, false, resources.CompileOptions{Runner: w.runner()}); err != nil {
		return bundle.OutputStructure{}, err
	}

	reloc := &relocate.Windows{Runner: w.runner(), ModulesDir: l.ModulesDir}
	if err := reloc.Relocate(context.Background(), executable, relocate.Policy{ProductsDir: ctx.ProductsDirectory}); err != nil {
		return bundle.OutputStructure{}, err
	}

	return bundle.OutputStructure{Bundle: l.Root}.WithExecutable(executable), nil
}

func trimExeSuffix(path string) string {
	ext := filepath.Ext(path)
	if ext == "" {
		return path
	}
	return path[:len(path)-len(ext)]
}
