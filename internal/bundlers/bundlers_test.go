package bundlers

import (
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/swiftbundler/bundler/internal/bundle"
)

func TestOrchestratorUnsupportedPlatform(t *testing.T) {
	o := &Orchestrator{Registry: Registry{}}
	_, err := o.Bundle(&bundle.BundlerContext{Platform: bundle.PlatformMacOS})
	require.Error(t, err)
}

func TestOrchestratorMissingTargetDevice(t *testing.T) {
	o := &Orchestrator{Registry: NewDefaultRegistry("")}
	_, err := o.Bundle(&bundle.BundlerContext{Platform: bundle.PlatformIOS})
	require.Error(t, err)
}

func TestOrchestratorIntendedOutputIsPure(t *testing.T) {
	o := &Orchestrator{Registry: NewDefaultRegistry("")}
	ctx := &bundle.BundlerContext{
		AppName:         "Hello",
		OutputDirectory: t.TempDir(),
		Platform:        bundle.PlatformMacOS,
	}
	out, err := o.IntendedOutput(ctx)
	require.NoError(t, err)
	require.Contains(t, out.Bundle, "Hello.app")
}

func TestEscapeRPMName(t *testing.T) {
	require.Equal(t, "my-app", escapeRPMName("My App"))
}

func TestNormalizeMSIVersion(t *testing.T) {
	require.Equal(t, "1.0.0", normalizeMSIVersion(""))
	require.Equal(t, "1.2.0", normalizeMSIVersion("1.2"))
	require.Equal(t, "1.2.3", normalizeMSIVersion("1.2.3.4"))
}

func TestTrimExeSuffix(t *testing.T) {
	require.Equal(t, "/tmp/app", trimExeSuffix("/tmp/app.exe"))
	require.Equal(t, "/tmp/app", trimExeSuffix("/tmp/app"))
}
