package plist

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/swiftbundler/bundler/internal/bundle"
)

func TestBaseKeysAndMarshal(t *testing.T) {
	ctx := &bundle.BundlerContext{
		AppName: "Example",
		Configuration: bundle.AppConfiguration{
			Identifier:       "com.example.app",
			Version:          "1.2.3",
			MarketingVersion: "1.2",
			IconPath:         "icon.png",
			URLSchemes:       []string{"example"},
		},
	}
	p := BaseKeys(ctx, "Example")
	require.Equal(t, "com.example.app", p["CFBundleIdentifier"])
	require.Equal(t, "icon", p["CFBundleIconFile"])

	data, err := Marshal(p)
	require.NoError(t, err)
	require.Contains(t, string(data), "CFBundleIdentifier")
	require.True(t, strings.HasPrefix(string(data), "<?xml"))
}

func TestMergeExtrasOverridesGeneratedKeys(t *testing.T) {
	p := InfoPlist{"CFBundleName": "Original"}
	p = MergeExtras(p, map[string]any{"CFBundleName": "Overridden", "Extra": true})
	require.Equal(t, "Overridden", p["CFBundleName"])
	require.Equal(t, true, p["Extra"])
}

func TestWithEmbeddedKeysSetsMinimumOSVersion(t *testing.T) {
	p := InfoPlist{}
	p = WithEmbeddedKeys(p, "16.0", []string{"iPhoneOS"}, "")
	require.Equal(t, "16.0", p["MinimumOSVersion"])
	require.Equal(t, true, p["LSRequiresIPhoneOS"])
}
