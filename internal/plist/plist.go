// Package plist builds the Info.plist (and entitlements.plist) documents
// every Darwin-family bundler writes, grounded on gogio's setInfo (the
// manifest struct marshaled into macosbuild.go/iosbuild.go's inline XML
// plist templates) but encoded with howett.net/plist (used throughout the
// retrieved pack's Apple-adjacent tools, e.g. vburojevic-xcbolt and
// k-kohey-axe-cli) instead of hand-built XML strings.
package plist

import (
	"bytes"
	"os"
	"sort"

	"github.com/swiftbundler/bundler/internal/berr"
	"github.com/swiftbundler/bundler/internal/bundle"
	"howett.net/plist"
)

// InfoPlist is the ordered set of keys common to every Darwin target, built
// up from a BundlerContext and then widened per-platform by the caller
// before Marshal.
type InfoPlist map[string]any

// BaseKeys returns the CFBundle* keys every Apple platform expects,
// mirroring the fields gogio's manifestSrc struct feeds into its plist
// template (Name, Bundle identifier, Version, Schemes) plus the additional
// keys a real app bundle carries (spec §4.8).
func BaseKeys(ctx *bundle.BundlerContext, executableName string) InfoPlist {
	p := InfoPlist{
		"CFBundleExecutable":         executableName,
		"CFBundleIdentifier":         ctx.Configuration.Identifier,
		"CFBundleInfoDictionaryVersion": "6.0",
		"CFBundleName":               ctx.AppName,
		"CFBundlePackageType":        "APPL",
		"CFBundleShortVersionString": ctx.Configuration.MarketingVersion,
		"CFBundleVersion":            ctx.Configuration.Version,
		"LSRequiresIPhoneOS":         false,
		"NSHighResolutionCapable":    true,
	}
	if ctx.Configuration.IconPath != "" {
		p["CFBundleIconFile"] = "icon"
	}
	if len(ctx.Configuration.URLSchemes) > 0 {
		p["CFBundleURLTypes"] = []any{
			map[string]any{"CFBundleURLSchemes": stringSliceToAny(ctx.Configuration.URLSchemes)},
		}
	}
	return p
}

func stringSliceToAny(ss []string) []any {
	out := make([]any, len(ss))
	for i, s := range ss {
		out[i] = s
	}
	return out
}

// WithEmbeddedKeys widens p with the keys iOS/tvOS/visionOS bundles need
// beyond the macOS base set, mirroring gogio's iosbuild.go buildInfoPlist.
func WithEmbeddedKeys(p InfoPlist, minOSVersion string, supportedPlatforms []string, catalystIdiom string) InfoPlist {
	p["MinimumOSVersion"] = minOSVersion
	p["CFBundleSupportedPlatforms"] = stringSliceToAny(supportedPlatforms)
	p["LSRequiresIPhoneOS"] = true
	if catalystIdiom != "" {
		p["UIDeviceFamily"] = catalystFamily(catalystIdiom)
	}
	return p
}

func catalystFamily(idiom string) []any {
	if idiom == "mac" {
		return []any{any(2)}
	}
	return []any{any(1), any(2)}
}

// MergeExtras layers the user-supplied PlistExtras (from Bundler.toml) on
// top of the generated keys, letting users override or add arbitrary keys
// without the bundler needing to know about every Apple entitlement.
func MergeExtras(p InfoPlist, extras map[string]any) InfoPlist {
	for k, v := range extras {
		p[k] = v
	}
	return p
}

// Marshal renders p as an XML property list, matching the textual format
// gogio writes before its "plutil -convert binary1" pass (spec §4.8 leaves
// the binary conversion as an optional platform polish step we skip;
// XML plists are valid Info.plist documents on every Apple OS version this
// bundler targets).
func Marshal(p InfoPlist) ([]byte, error) {
	var buf bytes.Buffer
	enc := plist.NewEncoder(&buf)
	enc.Indent("\t")
	if err := enc.Encode(map[string]any(p)); err != nil {
		return nil, berr.Wrap(berr.BinaryFormat, err, "encoding Info.plist")
	}
	return buf.Bytes(), nil
}

// Entitlements renders extra as an entitlements plist. No default keys are
// added: the output holds exactly the keys the caller passes.
func Entitlements(extra map[string]any) ([]byte, error) {
	keys := InfoPlist{}
	for k, v := range extra {
		keys[k] = v
	}
	return Marshal(keys)
}

// ReadPartial decodes a partial Info.plist (the kind actool emits via
// --output-partial-info-plist when compiling an Icon Composer document)
// into a plain map, for merging into a bundler's own Info.plist keys.
func ReadPartial(path string) (map[string]any, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, berr.Wrap(berr.Filesystem, err, "reading %s", path).With("path", path)
	}
	var out map[string]any
	if err := plist.Unmarshal(data, &out); err != nil {
		return nil, berr.Wrap(berr.BinaryFormat, err, "decoding %s", path).With("path", path)
	}
	return out, nil
}

// SortedKeys is a debugging helper returning p's keys in deterministic
// order, independent of map iteration order.
func SortedKeys(p InfoPlist) []string {
	keys := make([]string, 0, len(p))
	for k := range p {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
