package bundlers

import (
	"path/filepath"

	"github.com/swiftbundler/bundler/internal/berr"
	"github.com/swiftbundler/bundler/internal/bundle"
	"github.com/swiftbundler/bundler/internal/fsops"
)

// copyDependencyProducts copies every artifact the CLI's ProjectBuilder pass
// resolved into ctx.DependencyProducts ("project.product" -> built artifact
// path) into destDir, the hand-off point between ProjectBuilder and
// PlatformBundler spec §2's control-flow description requires.
func copyDependencyProducts(ctx *bundle.BundlerContext, destDir string) error {
	for dep, path := range ctx.DependencyProducts {
		if path == "" || !fsops.Exists(path) {
			continue
		}
		dst := filepath.Join(destDir, filepath.Base(path))
		if err := fsops.CopyFile(path, dst); err != nil {
			return berr.Wrap(berr.Filesystem, err, "copying dependency product %s", dep).With("dependency", dep)
		}
	}
	return nil
}
