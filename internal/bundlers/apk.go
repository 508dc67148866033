package bundlers

import (
	"path/filepath"

	"github.com/swiftbundler/bundler/internal/berr"
	"github.com/swiftbundler/bundler/internal/bundle"
)

// APKBundler is currently a stub (spec §4.9): it computes and returns the
// intended output path only, without producing a real Android package.
type APKBundler struct{}

func (a *APKBundler) IntendedOutput(ctx *bundle.BundlerContext) (bundle.OutputStructure, error) {
	path := filepath.Join(ctx.OutputDirectory, ctx.AppName+".apk")
	return bundle.OutputStructure{Bundle: path}, nil
}

func (a *APKBundler) Bundle(ctx *bundle.BundlerContext) (bundle.OutputStructure, error) {
	return bundle.OutputStructure{}, berr.New(berr.Config, "android bundling is not implemented").With("platform", string(ctx.Platform))
}
