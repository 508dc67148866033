// Package bundlers implements the Orchestrator and one PlatformBundler per
// target (spec §4.1, §4.2, §4.9): each variant composes the shared
// ResourcePipeline, DynamicDependencyRelocator, PlistCreator and
// MetadataInserter packages into a platform-specific bundling sequence.
package bundlers

import (
	"github.com/swiftbundler/bundler/internal/berr"
	"github.com/swiftbundler/bundler/internal/bundle"
)

// PlatformBundler is the shared capability every bundler variant exposes
// (spec §9 "Polymorphic bundler set"): a pure computation of the intended
// output, and the side-effecting bundle operation that must produce exactly
// that output's Bundle path.
type PlatformBundler interface {
	IntendedOutput(ctx *bundle.BundlerContext) (bundle.OutputStructure, error)
	Bundle(ctx *bundle.BundlerContext) (bundle.OutputStructure, error)
}

// Registry maps each supported Platform to its PlatformBundler.
type Registry map[bundle.Platform]PlatformBundler

// NewDefaultRegistry wires every concrete bundler variant into a Registry,
// reusing one GenericLinuxBundler/GenericWindowsBundler instance for the
// wrapping bundlers (AppImage/RPM, MSI) to call into directly.
func NewDefaultRegistry(toolPrefix string) Registry {
	linux := &GenericLinuxBundler{}
	windows := &GenericWindowsBundler{}
	darwin := &DarwinBundler{}

	return Registry{
		bundle.PlatformMacOS:           darwin,
		bundle.PlatformMacCatalyst:     darwin,
		bundle.PlatformIOS:             darwin,
		bundle.PlatformIOSSimulator:    darwin,
		bundle.PlatformTVOS:            darwin,
		bundle.PlatformTVOSSimulator:   darwin,
		bundle.PlatformVisionOS:        darwin,
		bundle.PlatformVisionSimulator: darwin,
		bundle.PlatformLinuxGeneric:    linux,
		bundle.PlatformLinuxAppImage:   &AppImageBundler{Generic: linux},
		bundle.PlatformLinuxRPM:        &RPMBundler{Generic: linux},
		bundle.PlatformWindowsGeneric:  windows,
		bundle.PlatformWindowsMSI:      &MSIBundler{Generic: windows},
		bundle.PlatformAndroid:        &APKBundler{},
	}
}

// Orchestrator dispatches BundlerContexts to the matching PlatformBundler
// (spec §4.1).
type Orchestrator struct {
	Registry Registry
}

// IntendedOutput computes, without side effects, the output bundling ctx
// would produce.
func (o *Orchestrator) IntendedOutput(ctx *bundle.BundlerContext) (bundle.OutputStructure, error) {
	b, err := o.resolve(ctx)
	if err != nil {
		return bundle.OutputStructure{}, err
	}
	return b.IntendedOutput(ctx)
}

// Bundle dispatches to ctx.Platform's PlatformBundler and runs it.
func (o *Orchestrator) Bundle(ctx *bundle.BundlerContext) (bundle.OutputStructure, error) {
	b, err := o.resolve(ctx)
	if err != nil {
		return bundle.OutputStructure{}, err
	}
	if ctx.Platform.RequiresDevice() && ctx.Device == nil {
		return bundle.OutputStructure{}, berr.New(berr.Config, "platform %s requires a target device", ctx.Platform).With("platform", string(ctx.Platform))
	}
	return b.Bundle(ctx)
}

func (o *Orchestrator) resolve(ctx *bundle.BundlerContext) (PlatformBundler, error) {
	b, ok := o.Registry[ctx.Platform]
	if !ok {
		return nil, berr.New(berr.Config, "unsupported platform %s", ctx.Platform).With("platform", string(ctx.Platform))
	}
	return b, nil
}
