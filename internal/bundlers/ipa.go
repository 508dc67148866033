package bundlers

import (
	"context"
	"os"
	"path/filepath"

	"github.com/mholt/archives"

	"github.com/swiftbundler/bundler/internal/berr"
)

// zipIPA implements the "SPEC_FULL.md .ipa zipping for iOS device builds"
// supplement: archive a Payload/<Name>.app tree into <name>.ipa, mirroring
// gogio's zipDir but using github.com/mholt/archives instead of shelling to
// a "zip" binary or hand-rolling archive/zip headers.
func zipIPA(outputDir, appName, appDir string) (string, error) {
	payload := filepath.Join(outputDir, "Payload")
	if err := os.RemoveAll(payload); err != nil {
		return "", berr.Wrap(berr.Filesystem, err, "clearing %s", payload).With("path", payload)
	}
	if err := os.MkdirAll(payload, 0o755); err != nil {
		return "", berr.Wrap(berr.Filesystem, err, "creating %s", payload).With("path", payload)
	}
	defer os.RemoveAll(payload)

	linked := filepath.Join(payload, filepath.Base(appDir))
	if err := os.Symlink(appDir, linked); err != nil {
		return "", berr.Wrap(berr.Filesystem, err, "linking %s into Payload", appDir).With("path", appDir)
	}

	ipaPath := filepath.Join(outputDir, appName+".ipa")
	if err := zipDirectory(ipaPath, outputDir, "Payload"); err != nil {
		return "", err
	}
	return ipaPath, nil
}

// zipDirectory archives the single top-level entry "base" found inside root
// into dstZip, matching gogio's zipDir(dst, base, dir) signature/behavior.
func zipDirectory(dstZip, root, base string) error {
	out, err := os.Create(dstZip)
	if err != nil {
		return berr.Wrap(berr.Filesystem, err, "creating %s", dstZip).With("path", dstZip)
	}
	defer out.Close()

	srcDir := filepath.Join(root, base)
	files, err := archives.FilesFromDisk(context.Background(), nil, map[string]string{srcDir: base})
	if err != nil {
		return berr.Wrap(berr.Filesystem, err, "collecting files under %s", srcDir).With("path", srcDir)
	}
	if err := (archives.Zip{}).Archive(context.Background(), out, files); err != nil {
		return berr.Wrap(berr.Filesystem, err, "zipping %s", srcDir).With("path", srcDir)
	}
	return nil
}
