package bundlers

import (
	"context"
	"os"
	"path/filepath"

	"github.com/swiftbundler/bundler/internal/berr"
	"github.com/swiftbundler/bundler/internal/bundle"
	"github.com/swiftbundler/bundler/internal/fsops"
	"github.com/swiftbundler/bundler/internal/icon"
	"github.com/swiftbundler/bundler/internal/plist"
	"github.com/swiftbundler/bundler/internal/procrunner"
	"github.com/swiftbundler/bundler/internal/relocate"
	"github.com/swiftbundler/bundler/internal/resources"
)

// pkgInfoBytes is the fixed 8-byte PkgInfo contents every Apple app bundle
// carries (spec §4.2 step 4): 'APPL' followed by four '?' placeholder
// creator-code bytes.
var pkgInfoBytes = []byte{0x41, 0x50, 0x50, 0x4C, 0x3F, 0x3F, 0x3F, 0x3F}

// DarwinBundler implements the macOS/iOS/tvOS/visionOS (+ simulators)
// bundling sequence (spec §4.2), grounded on gogio's buildMac/buildProgram
// and the analogous iOS path in iosbuild.go.
type DarwinBundler struct {
	Runner *procrunner.Runner
}

func (d *DarwinBundler) runner() *procrunner.Runner {
	if d.Runner == nil {
		return &procrunner.Runner{}
	}
	return d.Runner
}

func (d *DarwinBundler) IntendedOutput(ctx *bundle.BundlerContext) (bundle.OutputStructure, error) {
	if ctx.Platform == bundle.PlatformMacOS || ctx.Platform == bundle.PlatformMacCatalyst {
		layout := bundle.NewDarwinAppLayout(ctx.OutputDirectory, ctx.AppName)
		exe := filepath.Join(layout.MacOS, ctx.AppName)
		return bundle.OutputStructure{Bundle: layout.AppDir}.WithExecutable(exe), nil
	}
	layout := bundle.NewDarwinEmbeddedLayout(ctx.OutputDirectory, ctx.AppName)
	exe := filepath.Join(layout.AppDir, ctx.AppName)
	return bundle.OutputStructure{Bundle: layout.AppDir}.WithExecutable(exe), nil
}

func (d *DarwinBundler) Bundle(ctx *bundle.BundlerContext) (bundle.OutputStructure, error) {
	isMac := ctx.Platform == bundle.PlatformMacOS || ctx.Platform == bundle.PlatformMacCatalyst

	var appDir, macOSDir, resourcesDir, libDir, frameworksDir string
	if isMac {
		layout := bundle.NewDarwinAppLayout(ctx.OutputDirectory, ctx.AppName)
		appDir, macOSDir, resourcesDir, libDir, frameworksDir = layout.AppDir, layout.MacOS, layout.Resources, layout.Libraries, layout.Frameworks
	} else {
		layout := bundle.NewDarwinEmbeddedLayout(ctx.OutputDirectory, ctx.AppName)
		appDir, macOSDir, resourcesDir, libDir, frameworksDir = layout.AppDir, layout.AppDir, layout.AppDir, layout.AppDir, layout.AppDir
	}

	for _, dir := range []string{macOSDir, resourcesDir, libDir, frameworksDir} {
		if err := fsops.EnsureDir(dir); err != nil {
			return bundle.OutputStructure{}, err
		}
	}

	executable := filepath.Join(macOSDir, ctx.AppName)
	if err := fsops.CopyFile(ctx.Executable, executable); err != nil {
		return bundle.OutputStructure{}, err
	}
	os.Chmod(executable, 0o755)

	pkgInfoPath := filepath.Join(appDir, "PkgInfo")
	if err := os.WriteFile(pkgInfoPath, pkgInfoBytes, 0o644); err != nil {
		return bundle.OutputStructure{}, berr.Wrap(berr.Filesystem, err, "writing %s", pkgInfoPath).With("path", pkgInfoPath)
	}

	partialPlist, err := d.compileIcon(ctx, resourcesDir)
	if err != nil {
		return bundle.OutputStructure{}, err
	}

	if err := d.writeInfoPlist(ctx, appDir, isMac, partialPlist); err != nil {
		return bundle.OutputStructure{}, err
	}

	archs := []string{"arm64"}
	if isMac {
		archs = []string{"amd64", "arm64"}
	}
	if err := embedMetadataUniversal(d.runner(), ctx, libDir, archs); err != nil {
		return bundle.OutputStructure{}, err
	}

	if err := copyDependencyProducts(ctx, libDir); err != nil {
		return bundle.OutputStructure{}, err
	}

	bundles, err := resources.Discover(ctx.ProductsDirectory, ctx.PackageName, ctx.AppName)
	if err != nil {
		return bundle.OutputStructure{}, err
	}
	if err := resources.Copy(bundles, resourcesDir, false, resources.CompileOptions{Runner: d.runner()}); err != nil {
		return bundle.OutputStructure{}, err
	}

	if universal, err := relocate.DetectUniversalRpath(d.runner(), executable); err != nil {
		return bundle.OutputStructure{}, err
	} else if universal {
		if err := relocate.FixExecutableRpath(d.runner(), executable); err != nil {
			return bundle.OutputStructure{}, err
		}
	}

	reloc := &relocate.Darwin{Runner: d.runner(), LibraryDir: libDir, FrameworkDir: frameworksDir}
	if err := reloc.Relocate(context.Background(), executable, relocate.Policy{ProductsDir: ctx.ProductsDirectory}); err != nil {
		return bundle.OutputStructure{}, err
	}

	forDevice := ctx.Platform.RequiresDevice()
	switch {
	case forDevice:
		if err := d.signForDevice(ctx, appDir); err != nil {
			return bundle.OutputStructure{}, err
		}
	case ctx.CodeSigning.HasIdentity():
		if _, err := d.runner().Run("codesign", "--force", "--sign", ctx.CodeSigning.Identity, "--deep", appDir); err != nil {
			return bundle.OutputStructure{}, berr.Wrap(berr.ToolFailed, err, "signing %s", appDir).With("path", appDir)
		}
	case !isMac:
		if _, err := d.runner().Run("codesign", "--force", "--sign", "-", appDir); err != nil {
			return bundle.OutputStructure{}, berr.Wrap(berr.ToolFailed, err, "ad-hoc signing %s", appDir).With("path", appDir)
		}
	}

	if isMac && ctx.CodeSigning.WantsNotarization() {
		if err := d.notarize(ctx, appDir); err != nil {
			return bundle.OutputStructure{}, err
		}
	}

	out := bundle.OutputStructure{Bundle: appDir}.WithExecutable(executable)
	if forDevice {
		ipaPath, err := zipIPA(ctx.OutputDirectory, ctx.AppName, appDir)
		if err != nil {
			return bundle.OutputStructure{}, err
		}
		out.AdditionalOutputs = append(out.AdditionalOutputs, ipaPath)
	}
	return out, nil
}

// signForDevice implements the "Provisioning-profile selection by
// expiration + app-id match" supplement: locate a matching, unexpired
// .mobileprovision, embed it, and sign with its leading certificate's
// identity plus its entitlements (spec §4.2 step 9, gogio's signIOS).
func (d *DarwinBundler) signForDevice(ctx *bundle.BundlerContext, appDir string) error {
	if ctx.CodeSigning.HasIdentity() && ctx.CodeSigning.ManualProfilePath != "" {
		embedded := filepath.Join(appDir, "embedded.mobileprovision")
		if err := fsops.CopyFile(ctx.CodeSigning.ManualProfilePath, embedded); err != nil {
			return err
		}
		if _, err := d.runner().Run("codesign", "--force", "--sign", ctx.CodeSigning.Identity, "--deep", appDir); err != nil {
			return berr.Wrap(berr.ToolFailed, err, "signing %s", appDir).With("path", appDir)
		}
		return nil
	}

	prof, err := findProvisioningProfile(d.runner(), ctx.Configuration.Identifier)
	if err != nil {
		return err
	}
	embedded := filepath.Join(appDir, "embedded.mobileprovision")
	if err := fsops.CopyFile(prof.Path, embedded); err != nil {
		return err
	}
	identity, err := prof.signingIdentity()
	if err != nil {
		return err
	}
	entData, err := plist.Entitlements(prof.Entitlements)
	if err != nil {
		return err
	}
	entFile := filepath.Join(ctx.OutputDirectory, "entitlements.plist")
	if err := os.WriteFile(entFile, entData, 0o644); err != nil {
		return berr.Wrap(berr.Filesystem, err, "writing %s", entFile).With("path", entFile)
	}
	if _, err := d.runner().Run("codesign", "--force", "--sign", identity, "--entitlements", entFile, appDir); err != nil {
		return berr.Wrap(berr.ToolFailed, err, "signing %s with profile %s", appDir, prof.Path).With("path", appDir)
	}
	return nil
}

// notarize implements the optional post-sign notarization supplement
// (teacher's macosbuild.go notarize function via "xcrun notarytool"),
// gated on NotarizeAppleID/TeamID/Password all being present.
func (d *DarwinBundler) notarize(ctx *bundle.BundlerContext, appDir string) error {
	zipPath := appDir + ".notarize.zip"
	if err := zipDirectory(zipPath, filepath.Dir(appDir), filepath.Base(appDir)); err != nil {
		return err
	}
	defer os.Remove(zipPath)

	sign := ctx.CodeSigning
	if _, err := d.runner().Run("xcrun", "notarytool", "submit", zipPath,
		"--apple-id", sign.NotarizeAppleID, "--team-id", sign.NotarizeTeamID,
		"--password", sign.NotarizePassword, "--wait"); err != nil {
		return berr.Wrap(berr.ToolFailed, err, "notarizing %s", appDir).With("path", appDir)
	}
	if _, err := d.runner().Run("xcrun", "stapler", "staple", appDir); err != nil {
		return berr.Wrap(berr.ToolFailed, err, "stapling notarization ticket to %s", appDir).With("path", appDir)
	}
	return nil
}

func (d *DarwinBundler) writeInfoPlist(ctx *bundle.BundlerContext, appDir string, isMac bool, partialPlistPath string) error {
	keys := plist.BaseKeys(ctx, ctx.AppName)
	if !isMac {
		keys = plist.WithEmbeddedKeys(keys, ctx.PlatformVersion, []string{supportedPlatformName(ctx.Platform)}, ctx.Configuration.CatalystIdiom)
	}
	if !isMac && partialPlistPath != "" {
		partial, err := plist.ReadPartial(partialPlistPath)
		if err != nil {
			return err
		}
		keys = plist.MergeExtras(keys, partial)
	}
	keys = plist.MergeExtras(keys, ctx.Configuration.PlistExtras)

	data, err := plist.Marshal(keys)
	if err != nil {
		return err
	}
	dst := filepath.Join(appDir, "Info.plist")
	if err := os.WriteFile(dst, data, 0o644); err != nil {
		return berr.Wrap(berr.Filesystem, err, "writing %s", dst).With("path", dst)
	}
	return nil
}

func supportedPlatformName(p bundle.Platform) string {
	switch p {
	case bundle.PlatformIOS, bundle.PlatformIOSSimulator:
		return "iPhoneOS"
	case bundle.PlatformTVOS, bundle.PlatformTVOSSimulator:
		return "AppleTVOS"
	case bundle.PlatformVisionOS, bundle.PlatformVisionSimulator:
		return "XROS"
	default:
		return "MacOSX"
	}
}

// compileIcon implements spec §4.2 step 5: copy-if-.icns, invoke the icon
// compiler for a ".icon" Icon Composer document, scale a source PNG into a
// full iconset and encode it, or silently skip when no icon is configured.
// It returns the path to a captured PartialInfo.plist when the ".icon"
// branch ran, empty otherwise.
func (d *DarwinBundler) compileIcon(ctx *bundle.BundlerContext, resourcesDir string) (string, error) {
	path := ctx.Configuration.IconPath
	if path == "" {
		return "", nil // icon path missing: the icon step is skipped silently (spec §8 boundary behaviour).
	}
	if !fsops.Exists(path) {
		return "", nil
	}

	format, err := icon.SniffFormat(path)
	if err != nil {
		return "", err
	}

	dst := filepath.Join(resourcesDir, "icon.icns")
	switch format {
	case "icns":
		return "", fsops.CopyFile(path, dst)
	case "png":
		return "", icon.EncodeICNS(path, dst)
	case "icon":
		partialPlist := filepath.Join(resourcesDir, "PartialInfo.plist")
		if err := icon.CompileIconComposerDocument(d.runner(), path, resourcesDir, partialPlist, actoolPlatformName(ctx.Platform), ctx.PlatformVersion); err != nil {
			return "", err
		}
		return partialPlist, nil
	default:
		return "", berr.New(berr.Config, "invalid app icon file %s", path).With("path", path)
	}
}

// actoolPlatformName maps a bundle.Platform to the --platform value actool
// expects when compiling an Icon Composer document.
func actoolPlatformName(p bundle.Platform) string {
	switch p {
	case bundle.PlatformIOS:
		return "iphoneos"
	case bundle.PlatformIOSSimulator:
		return "iphonesimulator"
	case bundle.PlatformTVOS:
		return "appletvos"
	case bundle.PlatformTVOSSimulator:
		return "appletvsimulator"
	case bundle.PlatformVisionOS:
		return "xros"
	case bundle.PlatformVisionSimulator:
		return "xrsimulator"
	default:
		return "macosx"
	}
}
