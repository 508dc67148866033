// Package resources implements ResourcePipeline (spec §4.7): discovering
// SwiftPM-style "*.resources" bundles in a products directory, merging the
// main app bundle's own resources into the bundle root, and either
// "fixing" each bundle into an Apple-conformant .bundle (compiling asset
// catalogs, Metal shaders, storyboards, string catalogs) or performing a
// plain recursive copy for platforms that don't need that treatment.
//
// Grounded on gogio's iosIcons/actool invocation (iosbuild.go) for the
// asset-catalog compile step and its plain os.WriteFile/copy calls for the
// non-Apple path.
package resources

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/swiftbundler/bundler/internal/berr"
	"github.com/swiftbundler/bundler/internal/fsops"
	"github.com/swiftbundler/bundler/internal/procrunner"
)

// resourcesWhitelist holds bundle names that must keep the ".resources"
// extension verbatim even on the plain-copy path, matching known packages
// whose runtime looks the directory up by that exact name.
var resourcesWhitelist = map[string]bool{
	"swift-windowsappsdk_CWinAppSDK.resources": true,
}

// Bundle is one discovered "*.resources" directory in the products dir.
type Bundle struct {
	Name     string // directory name, e.g. "mypackage_MyApp.resources"
	SrcPath  string
	IsMain   bool
}

// Discover enumerates every top-level "*.resources" directory under
// productsDir, flagging the one that matches "<packageName>_<productName>"
// as the main bundle (spec §4.7 step 2).
func Discover(productsDir, packageName, productName string) ([]Bundle, error) {
	matches, err := doublestar.Glob(os.DirFS(productsDir), "*.resources")
	if err != nil {
		return nil, berr.Wrap(berr.Filesystem, err, "enumerating resource bundles in %s", productsDir).With("path", productsDir)
	}
	mainName := fmt.Sprintf("%s_%s.resources", packageName, productName)
	bundles := make([]Bundle, 0, len(matches))
	for _, m := range matches {
		bundles = append(bundles, Bundle{
			Name:    m,
			SrcPath: filepath.Join(productsDir, m),
			IsMain:  m == mainName,
		})
	}
	return bundles, nil
}

// CompileOptions carries the tool invocations the "fix" path needs for
// Apple asset/shader/storyboard/string-catalog compilation.
type CompileOptions struct {
	Runner           *procrunner.Runner
	Platform         string // actool --platform value, e.g. "iphoneos"
	MinimumDeployment string
	MetalSDK         string
	KeepSources      bool
}

// Copy performs ResourcePipeline.copyResources (spec §4.7): iterates the
// discovered bundles, merging the main bundle's contents directly into dst
// and either fixing or plain-copying the rest.
func Copy(bundles []Bundle, dst string, fixBundles bool, opts CompileOptions) error {
	for _, b := range bundles {
		if b.IsMain {
			if err := fsops.CopyTree(b.SrcPath, dst); err != nil {
				return err
			}
			continue
		}
		if fixBundles {
			if err := fixBundle(b, dst, opts); err != nil {
				return err
			}
		} else {
			if err := plainCopyBundle(b, dst); err != nil {
				return err
			}
		}
	}
	return nil
}

// plainCopyBundle copies b into dst, renaming ".resources" to ".bundle"
// unless the bundle name is explicitly whitelisted to keep its extension.
func plainCopyBundle(b Bundle, dst string) error {
	name := b.Name
	if !resourcesWhitelist[name] {
		name = strings.TrimSuffix(name, ".resources") + ".bundle"
	}
	return fsops.CopyTree(b.SrcPath, filepath.Join(dst, name))
}

// fixBundle creates an Apple-conformant .bundle: a flat bundle directory
// (the same on every platform, with no Contents/Resources nesting), an
// Info.plist, a copy of the file tree, and then compiles any assets,
// shaders, storyboards, or string catalogs found inside.
func fixBundle(b Bundle, dst string, opts CompileOptions) error {
	name := strings.TrimSuffix(b.Name, ".resources") + ".bundle"
	bundleDir := filepath.Join(dst, name)
	if err := fsops.EnsureDir(bundleDir); err != nil {
		return err
	}
	if err := fsops.CopyTree(b.SrcPath, bundleDir); err != nil {
		return err
	}
	plistPath := filepath.Join(bundleDir, "Info.plist")
	if err := os.WriteFile(plistPath, bundleInfoPlist(name), 0o644); err != nil {
		return berr.Wrap(berr.Filesystem, err, "writing %s", plistPath).With("path", plistPath)
	}

	if err := compileAssetCatalogs(bundleDir, opts); err != nil {
		return err
	}
	if err := compileMetalShaders(bundleDir, opts); err != nil {
		return err
	}
	if err := compileStoryboards(bundleDir, opts); err != nil {
		return err
	}
	if err := compileStringCatalogs(bundleDir, opts); err != nil {
		return err
	}
	return nil
}

func bundleInfoPlist(name string) []byte {
	return []byte(fmt.Sprintf(`<?xml version="1.0" encoding="UTF-8"?>
<!DOCTYPE plist PUBLIC "-//Apple//DTD PLIST 1.0//EN" "http://www.apple.com/DTDs/PropertyList-1.0.dtd">
<plist version="1.0">
<dict>
	<key>CFBundleIdentifier</key>
	<string>%s</string>
	<key>CFBundlePackageType</key>
	<string>BNDL</string>
</dict>
</plist>`, name))
}

// compileAssetCatalogs runs actool over every ".xcassets" directory inside
// bundleDir, mirroring gogio's iosIcons actool invocation.
func compileAssetCatalogs(bundleDir string, opts CompileOptions) error {
	catalogs, err := doublestar.Glob(os.DirFS(bundleDir), "**/*.xcassets")
	if err != nil {
		return berr.Wrap(berr.Filesystem, err, "enumerating asset catalogs in %s", bundleDir)
	}
	for _, rel := range catalogs {
		catalog := filepath.Join(bundleDir, rel)
		partial := catalog + ".partial.plist"
		args := []string{
			"--compile", bundleDir,
			"--platform", opts.Platform,
			"--minimum-deployment-target", opts.MinimumDeployment,
			"--output-partial-info-plist", partial,
			catalog,
		}
		if _, err := opts.Runner.Run("actool", args...); err != nil {
			return berr.Wrap(berr.ToolFailed, err, "compiling asset catalog %s", catalog).With("path", catalog)
		}
		if !opts.KeepSources {
			os.RemoveAll(catalog)
		}
	}
	return nil
}

// compileMetalShaders runs the xcrun metal/metal-ar/metallib pipeline over
// every ".metal" source, producing a single default.metallib.
func compileMetalShaders(bundleDir string, opts CompileOptions) error {
	shaders, err := doublestar.Glob(os.DirFS(bundleDir), "**/*.metal")
	if err != nil {
		return berr.Wrap(berr.Filesystem, err, "enumerating metal shaders in %s", bundleDir)
	}
	if len(shaders) == 0 {
		return nil
	}
	var airFiles []string
	for _, rel := range shaders {
		src := filepath.Join(bundleDir, rel)
		air := strings.TrimSuffix(src, ".metal") + ".air"
		if _, err := opts.Runner.Run("xcrun", "metal", "-sdk", opts.MetalSDK, "-c", src, "-o", air); err != nil {
			return berr.Wrap(berr.ToolFailed, err, "compiling shader %s", src).With("path", src)
		}
		airFiles = append(airFiles, air)
		if !opts.KeepSources {
			os.Remove(src)
		}
	}
	archive := filepath.Join(bundleDir, "default.metal-ar")
	arArgs := append([]string{"metal-ar", "-sdk", opts.MetalSDK, "rcs", archive}, airFiles...)
	if _, err := opts.Runner.Run("xcrun", arArgs...); err != nil {
		return berr.Wrap(berr.ToolFailed, err, "archiving shaders into %s", archive).With("path", archive)
	}
	lib := filepath.Join(bundleDir, "default.metallib")
	if _, err := opts.Runner.Run("xcrun", "metallib", "-sdk", opts.MetalSDK, archive, "-o", lib); err != nil {
		return berr.Wrap(berr.ToolFailed, err, "linking metallib %s", lib).With("path", lib)
	}
	return nil
}

// compileStoryboards runs ibtool over every ".storyboard" file, producing a
// sibling ".storyboardc" compiled directory.
func compileStoryboards(bundleDir string, opts CompileOptions) error {
	boards, err := doublestar.Glob(os.DirFS(bundleDir), "**/*.storyboard")
	if err != nil {
		return berr.Wrap(berr.Filesystem, err, "enumerating storyboards in %s", bundleDir)
	}
	for _, rel := range boards {
		src := filepath.Join(bundleDir, rel)
		out := strings.TrimSuffix(src, ".storyboard") + ".storyboardc"
		if _, err := opts.Runner.Run("ibtool", "--compile", out, src); err != nil {
			return berr.Wrap(berr.ToolFailed, err, "compiling storyboard %s", src).With("path", src)
		}
		if !opts.KeepSources {
			os.Remove(src)
		}
	}
	return nil
}

// compileStringCatalogs expands each ".xcstrings" JSON document into
// localized ".lproj/Localizable.strings" plist-format files. Plural
// variations are not emitted; no ".stringsdict" file is written.
func compileStringCatalogs(bundleDir string, opts CompileOptions) error {
	catalogs, err := doublestar.Glob(os.DirFS(bundleDir), "**/*.xcstrings")
	if err != nil {
		return berr.Wrap(berr.Filesystem, err, "enumerating string catalogs in %s", bundleDir)
	}
	for _, rel := range catalogs {
		src := filepath.Join(bundleDir, rel)
		if err := expandStringCatalog(src, bundleDir); err != nil {
			return err
		}
		if !opts.KeepSources {
			os.Remove(src)
		}
	}
	return nil
}
