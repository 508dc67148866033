package bundlers

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/swiftbundler/bundler/internal/berr"
	"github.com/swiftbundler/bundler/internal/bundle"
	"github.com/swiftbundler/bundler/internal/fsops"
	"github.com/swiftbundler/bundler/internal/procrunner"
	"github.com/swiftbundler/bundler/internal/relocate"
	"github.com/swiftbundler/bundler/internal/resources"
)

// GenericLinuxBundler implements the FHS-like bundling sequence (spec §3,
// "Generic Linux"; §4.3 "Linux (ldd/patchelf)" for relocation).
type GenericLinuxBundler struct {
	Runner               *procrunner.Runner
	InstallationRootHint string // e.g. "/opt/<escapedName>", set by RPMBundler.
}

func (g *GenericLinuxBundler) runner() *procrunner.Runner {
	if g.Runner == nil {
		return &procrunner.Runner{}
	}
	return g.Runner
}

func (g *GenericLinuxBundler) root(ctx *bundle.BundlerContext) string {
	return bundle.NewGenericLinuxLayout(filepath.Join(ctx.OutputDirectory, ctx.AppName+".generic")).Root
}

func (g *GenericLinuxBundler) IntendedOutput(ctx *bundle.BundlerContext) (bundle.OutputStructure, error) {
	layout := bundle.NewGenericLinuxLayout(g.root(ctx))
	exe := filepath.Join(layout.BinDir, ctx.AppName)
	return bundle.OutputStructure{Bundle: layout.Root}.WithExecutable(exe), nil
}

func (g *GenericLinuxBundler) Bundle(ctx *bundle.BundlerContext) (bundle.OutputStructure, error) {
	return g.bundleInto(ctx, bundle.NewGenericLinuxLayout(g.root(ctx)))
}

// bundleInto runs the bundling sequence against an arbitrary pre-built
// layout, letting AppImageBundler/RPMBundler supply their own root
// directory while reusing the rest of the generic sequence.
func (g *GenericLinuxBundler) bundleInto(ctx *bundle.BundlerContext, layout bundle.GenericLinuxLayout) (bundle.OutputStructure, error) {
	for _, dir := range []string{layout.BinDir, layout.LibDir, layout.ApplicationsDir, layout.IconsDir} {
		if err := fsops.EnsureDir(dir); err != nil {
			return bundle.OutputStructure{}, err
		}
	}
	if ctx.Configuration.DBusActivatable {
		if err := fsops.EnsureDir(layout.DBusServicesDir); err != nil {
			return bundle.OutputStructure{}, err
		}
	}

	executable := filepath.Join(layout.BinDir, ctx.AppName)
	if err := fsops.CopyFile(ctx.Executable, executable); err != nil {
		return bundle.OutputStructure{}, err
	}
	os.Chmod(executable, 0o755)

	if ctx.Configuration.IconPath != "" && fsops.Exists(ctx.Configuration.IconPath) {
		dst := filepath.Join(layout.IconsDir, ctx.Configuration.Identifier+".png")
		if err := fsops.CopyFile(ctx.Configuration.IconPath, dst); err != nil {
			return bundle.OutputStructure{}, err
		}
	}

	installRoot := g.InstallationRootHint
	if installRoot == "" {
		installRoot = "/opt/" + ctx.AppName
	}
	if err := g.writeDesktopFile(ctx, layout, installRoot); err != nil {
		return bundle.OutputStructure{}, err
	}
	if ctx.Configuration.DBusActivatable {
		if err := g.writeDBusService(ctx, layout); err != nil {
			return bundle.OutputStructure{}, err
		}
	}

	if err := embedMetadataLibrary(g.runner(), ctx, layout.LibDir); err != nil {
		return bundle.OutputStructure{}, err
	}
	if err := copyDependencyProducts(ctx, layout.LibDir); err != nil {
		return bundle.OutputStructure{}, err
	}

	bundles, err := resources.Discover(ctx.ProductsDirectory, ctx.PackageName, ctx.AppName)
	if err != nil {
		return bundle.OutputStructure{}, err
	}
	if err := resources.Copy(bundles, layout.Root, false, resources.CompileOptions{Runner: g.runner()}); err != nil {
		return bundle.OutputStructure{}, err
	}

	reloc := &relocate.Linux{Runner: g.runner(), LibDir: layout.LibDir}
	if err := reloc.Relocate(context.Background(), executable, relocate.Policy{ProductsDir: ctx.ProductsDirectory}); err != nil {
		return bundle.OutputStructure{}, err
	}

	return bundle.OutputStructure{Bundle: layout.Root}.WithExecutable(executable), nil
}

// writeDesktopFile writes the INI-format ".desktop" launcher (spec §6).
func (g *GenericLinuxBundler) writeDesktopFile(ctx *bundle.BundlerContext, layout bundle.GenericLinuxLayout, installRoot string) error {
	dst := filepath.Join(layout.ApplicationsDir, ctx.Configuration.Identifier+".desktop")
	content := fmt.Sprintf(`[Desktop Entry]
Type=Application
Name=%s
Exec=%s/usr/bin/%s %%U
Icon=%s
Categories=%s;
`, ctx.AppName, installRoot, ctx.AppName, ctx.Configuration.Identifier, ctx.Configuration.Category)
	if err := os.WriteFile(dst, []byte(content), 0o644); err != nil {
		return berr.Wrap(berr.Filesystem, err, "writing %s", dst).With("path", dst)
	}
	return nil
}

// writeDBusService writes the INI-format D-BUS ".service" activation file.
func (g *GenericLinuxBundler) writeDBusService(ctx *bundle.BundlerContext, layout bundle.GenericLinuxLayout) error {
	dst := filepath.Join(layout.DBusServicesDir, ctx.Configuration.Identifier+".service")
	content := fmt.Sprintf(`[D-BUS Service]
Name=%s
Exec=/usr/bin/%s
`, ctx.Configuration.Identifier, ctx.AppName)
	if err := os.WriteFile(dst, []byte(content), 0o644); err != nil {
		return berr.Wrap(berr.Filesystem, err, "writing %s", dst).With("path", dst)
	}
	return nil
}
