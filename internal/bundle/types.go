// Package bundle holds the data model shared by every PlatformBundler: the
// immutable BundlerContext input, the BundlerOutputStructure result, and the
// per-platform bundle layout helpers (spec §3).
package bundle

import "path/filepath"

// Platform enumerates every bundling target spec §1 lists.
type Platform string

const (
	PlatformMacOS          Platform = "macOS"
	PlatformMacCatalyst    Platform = "macCatalyst"
	PlatformIOS            Platform = "iOS"
	PlatformIOSSimulator   Platform = "iOSSimulator"
	PlatformTVOS           Platform = "tvOS"
	PlatformTVOSSimulator  Platform = "tvOSSimulator"
	PlatformVisionOS       Platform = "visionOS"
	PlatformVisionSimulator Platform = "visionOSSimulator"
	PlatformLinuxGeneric   Platform = "linuxGeneric"
	PlatformLinuxAppImage  Platform = "linuxAppImage"
	PlatformLinuxRPM       Platform = "linuxRPM"
	PlatformWindowsGeneric Platform = "windowsGeneric"
	PlatformWindowsMSI     Platform = "windowsMSI"
	PlatformAndroid        Platform = "android"
)

// IsApple reports whether p is one of the Darwin-family targets.
func (p Platform) IsApple() bool {
	switch p {
	case PlatformMacOS, PlatformMacCatalyst, PlatformIOS, PlatformIOSSimulator,
		PlatformTVOS, PlatformTVOSSimulator, PlatformVisionOS, PlatformVisionSimulator:
		return true
	}
	return false
}

// RequiresDevice reports whether p can only be built when a target Device is
// known (physical embedded-Apple targets, per Orchestrator's
// MissingTargetDevice contract).
func (p Platform) RequiresDevice() bool {
	switch p {
	case PlatformIOS, PlatformTVOS, PlatformVisionOS:
		return true
	}
	return false
}

// Device identifies the physical or simulated target device a build runs on.
type Device struct {
	Name string
	UDID string
}

// CodeSigningContext carries signing material for Apple and MSAuthenticode
// targets alike; a zero value means "no identity supplied".
type CodeSigningContext struct {
	Identity          string
	Entitlements      map[string]any
	ManualProfilePath string

	// NotarizeAppleID/NotarizeTeamID/NotarizePassword gate the optional
	// post-sign notarization step (SPEC_FULL.md "Notarization step"): all
	// three must be set for DarwinBundler to invoke notarytool/stapler.
	NotarizeAppleID   string
	NotarizeTeamID    string
	NotarizePassword  string
}

// HasIdentity reports whether an explicit signing identity was supplied.
func (c *CodeSigningContext) HasIdentity() bool {
	return c != nil && c.Identity != ""
}

// WantsNotarization reports whether enough Apple ID credentials were
// supplied to attempt notarization.
func (c *CodeSigningContext) WantsNotarization() bool {
	return c != nil && c.NotarizeAppleID != "" && c.NotarizeTeamID != "" && c.NotarizePassword != ""
}

// URLScheme is a single custom URL scheme the app registers to handle.
type URLScheme = string

// AppConfiguration is the flattened (overlay-merged, variable-evaluated) app
// configuration every PlatformBundler consumes. ConfigModel is responsible
// for producing this from the raw per-app/per-platform-overlay config.
type AppConfiguration struct {
	Identifier        string
	Version           string
	MarketingVersion  string
	Build             string
	IconPath          string
	URLSchemes        []URLScheme
	DBusActivatable   bool
	Category          string
	CatalystIdiom     string // "mac" or "iPad"
	PlistExtras       map[string]any
	Metadata          map[string]string
	RPMRequirements   []string
	Dependencies      []string // "project.product" strings, resolved via ProjectBuilder before bundling.
}

// BundlerContext is the immutable input to Orchestrator/PlatformBundler
// (spec §3). Everything needed to bundle one app for one platform lives
// here; nothing is read from ambient global state.
type BundlerContext struct {
	AppName           string
	PackageName       string
	Configuration     AppConfiguration
	PackageDirectory  string
	ProductsDirectory string
	OutputDirectory   string
	Platform          Platform
	Device            *Device
	CodeSigning       *CodeSigningContext
	DependencyProducts map[string]string // "project.product" -> built artifact path
	Executable        string            // path to the already-built main executable
	PlatformVersion   string            // resolved min-OS version, e.g. "12.0"
}

// BundleDir returns the path this context's bundle will be written to,
// before any platform-specific extension/suffix is applied.
func (c *BundlerContext) BundleDir(name string) string {
	return filepath.Join(c.OutputDirectory, name)
}

// OutputStructure is the result of computing (intendedOutput) or producing
// (bundle) a bundler's output: a bundle path, an optional executable path,
// and any additional standalone outputs produced alongside the bundle
// (spec §3).
type OutputStructure struct {
	Bundle            string
	Executable        *string // nil means "not directly runnable"
	AdditionalOutputs []string
}

// IsRunnable reports whether this output carries a directly-executable
// entry point (the "runnable" refinement, spec §3).
func (o OutputStructure) IsRunnable() bool {
	return o.Executable != nil && *o.Executable != ""
}

// WithExecutable returns a copy of o with Executable set to path.
func (o OutputStructure) WithExecutable(path string) OutputStructure {
	o.Executable = &path
	return o
}
