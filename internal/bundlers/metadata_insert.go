package bundlers

import (
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/swiftbundler/bundler/internal/berr"
	"github.com/swiftbundler/bundler/internal/bundle"
	"github.com/swiftbundler/bundler/internal/fsops"
	"github.com/swiftbundler/bundler/internal/metadata"
	"github.com/swiftbundler/bundler/internal/procrunner"
)

// metadataPayload builds the MetadataInserter payload from an app's
// identity fields (spec §4.10).
func metadataPayload(cfg bundle.AppConfiguration) metadata.Payload {
	return metadata.Payload{
		AppIdentifier:      cfg.Identifier,
		AppVersion:         cfg.Version,
		AdditionalMetadata: cfg.Metadata,
	}
}

// writeLinkFlags persists the flags a downstream build would pass to its
// own linker, next to the compiled metadata artifact, so the build that
// produced ctx.Executable can pick them up on a future invocation.
func writeLinkFlags(dir string, flags metadata.LinkFlags) error {
	dst := filepath.Join(dir, "metadata-link-flags.txt")
	content := strings.Join(flags.Flags, " ") + "\n"
	if err := os.WriteFile(dst, []byte(content), 0o644); err != nil {
		return berr.Wrap(berr.Filesystem, err, "writing %s", dst).With("path", dst)
	}
	return nil
}

// embedMetadataObject implements the single-architecture, non-Apple
// short-circuit (spec §4.10): a single CompileObject call (a cgo C archive,
// with no separate ar step) exposed with ObjectLinkFlags, used by the generic
// Windows bundler.
func embedMetadataObject(runner *procrunner.Runner, ctx *bundle.BundlerContext, dir string) error {
	scratch := filepath.Join(dir, ".metadata-scratch")
	defer os.RemoveAll(scratch)

	src := filepath.Join(scratch, "metadata.go")
	if err := metadata.GenerateSource(metadataPayload(ctx.Configuration), src); err != nil {
		return err
	}

	obj := filepath.Join(dir, "metadata.o")
	if err := metadata.CompileObject(runner, src, obj, runtime.GOOS, runtime.GOARCH); err != nil {
		return err
	}

	return writeLinkFlags(dir, metadata.ObjectLinkFlags(obj))
}

// embedMetadataLibrary archives the compiled metadata object into
// libDir/libmetadata.a, used by platforms that already keep a dedicated
// library directory (the generic Linux bundler).
func embedMetadataLibrary(runner *procrunner.Runner, ctx *bundle.BundlerContext, libDir string) error {
	scratch := filepath.Join(libDir, ".metadata-scratch")
	defer os.RemoveAll(scratch)

	src := filepath.Join(scratch, "metadata.go")
	if err := metadata.GenerateSource(metadataPayload(ctx.Configuration), src); err != nil {
		return err
	}

	obj := filepath.Join(scratch, "metadata.o")
	if err := metadata.CompileObject(runner, src, obj, runtime.GOOS, runtime.GOARCH); err != nil {
		return err
	}

	lib := filepath.Join(libDir, "libmetadata.a")
	if err := metadata.Archive(runner, []string{obj}, lib); err != nil {
		return err
	}

	return writeLinkFlags(libDir, metadata.LibraryLinkFlags(libDir))
}

// embedMetadataUniversal compiles the metadata library once per requested
// Darwin architecture and lipo-combines the results into
// libDir/libmetadata.a, mirroring the per-arch-then-lipo shape the
// executable's own universal build already uses (spec §4.10 Apple branch).
func embedMetadataUniversal(runner *procrunner.Runner, ctx *bundle.BundlerContext, libDir string, archs []string) error {
	scratch := filepath.Join(libDir, ".metadata-scratch")
	defer os.RemoveAll(scratch)

	src := filepath.Join(scratch, "metadata.go")
	if err := metadata.GenerateSource(metadataPayload(ctx.Configuration), src); err != nil {
		return err
	}

	var archLibs []string
	for _, arch := range archs {
		obj := filepath.Join(scratch, "metadata_"+arch+".o")
		if err := metadata.CompileObject(runner, src, obj, "darwin", arch); err != nil {
			return err
		}
		lib := filepath.Join(scratch, "libmetadata_"+arch+".a")
		if err := metadata.Archive(runner, []string{obj}, lib); err != nil {
			return err
		}
		archLibs = append(archLibs, lib)
	}

	dst := filepath.Join(libDir, "libmetadata.a")
	if len(archLibs) == 1 {
		if err := fsops.CopyFile(archLibs[0], dst); err != nil {
			return err
		}
	} else if err := metadata.LipoCombine(runner, archLibs, dst); err != nil {
		return err
	}

	return writeLinkFlags(libDir, metadata.LibraryLinkFlags(libDir))
}
