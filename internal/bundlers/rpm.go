package bundlers

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/mholt/archives"
	"github.com/swiftbundler/bundler/internal/berr"
	"github.com/swiftbundler/bundler/internal/bundle"
)

// RPMBundler wraps GenericLinuxBundler: build the generic bundle under an
// rpmbuild BUILDROOT, tar it as the source, render a .spec file, and run
// rpmbuild (spec §4.9).
type RPMBundler struct {
	Generic *GenericLinuxBundler
}

func escapeRPMName(appName string) string {
	return strings.ToLower(strings.ReplaceAll(appName, " ", "-"))
}

func (r *RPMBundler) IntendedOutput(ctx *bundle.BundlerContext) (bundle.OutputStructure, error) {
	path := filepath.Join(ctx.OutputDirectory, ctx.AppName+".rpm")
	return bundle.OutputStructure{Bundle: path}, nil
}

func (r *RPMBundler) Bundle(ctx *bundle.BundlerContext) (bundle.OutputStructure, error) {
	escapedName := escapeRPMName(ctx.AppName)
	rpmLayout := bundle.NewRPMBuildLayout(ctx.OutputDirectory)
	for _, dir := range []string{rpmLayout.Build, rpmLayout.BuildRoot, rpmLayout.RPMS, rpmLayout.Sources, rpmLayout.Specs, rpmLayout.SRPMS} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return bundle.OutputStructure{}, berr.Wrap(berr.Filesystem, err, "creating %s", dir).With("path", dir)
		}
	}

	installRoot := "/opt/" + escapedName
	buildRootTree := filepath.Join(rpmLayout.BuildRoot, escapedName)
	inner := &GenericLinuxBundler{Runner: r.Generic.runner(), InstallationRootHint: installRoot}
	if _, err := inner.bundleInto(ctx, bundle.NewGenericLinuxLayout(buildRootTree)); err != nil {
		return bundle.OutputStructure{}, err
	}

	version := ctx.Configuration.Version
	if version == "" {
		version = "0.0.0"
	}
	tarName := fmt.Sprintf("%s-%s.tar.gz", escapedName, version)
	tarPath := filepath.Join(rpmLayout.Sources, tarName)
	if err := tarDirectory(buildRootTree, tarPath); err != nil {
		return bundle.OutputStructure{}, err
	}

	specPath := filepath.Join(rpmLayout.Specs, escapedName+".spec")
	if err := writeRPMSpec(specPath, escapedName, ctx, installRoot, version); err != nil {
		return bundle.OutputStructure{}, err
	}

	if _, err := r.Generic.runner().Run("rpmbuild", "--define", "_topdir "+rpmLayout.Root, "-bb", specPath); err != nil {
		return bundle.OutputStructure{}, berr.Wrap(berr.ToolFailed, err, "running rpmbuild on %s", specPath).With("path", specPath)
	}

	rpmPath, err := firstRPMUnder(rpmLayout.RPMS)
	if err != nil {
		return bundle.OutputStructure{}, err
	}

	finalPath := filepath.Join(ctx.OutputDirectory, ctx.AppName+".rpm")
	if err := os.Rename(rpmPath, finalPath); err != nil {
		return bundle.OutputStructure{}, berr.Wrap(berr.Filesystem, err, "moving %s to %s", rpmPath, finalPath).With("path", finalPath)
	}

	return bundle.OutputStructure{Bundle: finalPath}, nil
}

// writeRPMSpec renders a minimal .spec file (spec §8 scenario 5, "RPM spec
// quoting"): Name/Version lines plus a Requires: line per configured
// RPMRequirements entry.
func writeRPMSpec(dst, escapedName string, ctx *bundle.BundlerContext, installRoot, version string) error {
	var b strings.Builder
	fmt.Fprintf(&b, "Name:           %s\n", escapedName)
	fmt.Fprintf(&b, "Version:        %s\n", version)
	fmt.Fprintf(&b, "Release:        1\n")
	fmt.Fprintf(&b, "Summary:        %s\n", ctx.AppName)
	fmt.Fprintf(&b, "License:        Proprietary\n")
	fmt.Fprintf(&b, "Source0:        %s-%s.tar.gz\n", escapedName, version)
	for _, req := range ctx.Configuration.RPMRequirements {
		fmt.Fprintf(&b, "Requires:       %s\n", req)
	}
	b.WriteString("\n%description\n")
	fmt.Fprintf(&b, "%s packaged by the bundler.\n\n", ctx.AppName)
	b.WriteString("%prep\n%setup -q -c\n\n%install\n")
	fmt.Fprintf(&b, "mkdir -p %%{buildroot}%s\ncp -a . %%{buildroot}%s\n\n", installRoot, installRoot)
	b.WriteString("%files\n")
	fmt.Fprintf(&b, "%s\n", installRoot)

	if err := os.WriteFile(dst, []byte(b.String()), 0o644); err != nil {
		return berr.Wrap(berr.Filesystem, err, "writing %s", dst).With("path", dst)
	}
	return nil
}

// tarDirectory archives srcDir into dstTarGz using github.com/mholt/archives
// (the same pack-member library joeblew999-xplat imports for its tar/zip
// extract commands), rather than shelling out to the "tar" binary.
func tarDirectory(srcDir, dstTarGz string) error {
	out, err := os.Create(dstTarGz)
	if err != nil {
		return berr.Wrap(berr.Filesystem, err, "creating %s", dstTarGz).With("path", dstTarGz)
	}
	defer out.Close()

	format := archives.CompressedArchive{Compression: archives.Gz{}, Archival: archives.Tar{}}
	files, err := archives.FilesFromDisk(context.Background(), nil, map[string]string{srcDir: ""})
	if err != nil {
		return berr.Wrap(berr.Filesystem, err, "collecting files under %s", srcDir).With("path", srcDir)
	}
	if err := format.Archive(context.Background(), out, files); err != nil {
		return berr.Wrap(berr.Filesystem, err, "archiving %s", srcDir).With("path", srcDir)
	}
	return nil
}

func firstRPMUnder(dir string) (string, error) {
	var found string
	err := filepath.Walk(dir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if found == "" && !info.IsDir() && filepath.Ext(path) == ".rpm" {
			found = path
		}
		return nil
	})
	if err != nil {
		return "", berr.Wrap(berr.Filesystem, err, "searching %s for .rpm output", dir).With("path", dir)
	}
	if found == "" {
		return "", berr.New(berr.Filesystem, "no .rpm file produced under %s", dir).With("path", dir)
	}
	return found, nil
}
