package projectbuild

import (
	"path/filepath"

	"github.com/swiftbundler/bundler/internal/berr"
	"github.com/swiftbundler/bundler/internal/config"
	"github.com/swiftbundler/bundler/internal/procrunner"
	"golang.org/x/tools/go/packages"
)

// BuildRootProduct implements the config.RootProjectName branch of
// ProjectBuilder (spec §4.6 step 1): builds productName directly with the
// host build system from packageDir and returns the resulting executable
// path. Only ProductExecutable is supported; anything else fails with a
// berr.ProjectBuild error ("unsupported root project product type").
func BuildRootProduct(runner *procrunner.Runner, packageDir string, productName string, product config.ProductConfiguration) (string, error) {
	if product.Type != config.ProductExecutable {
		return "", berr.New(berr.ProjectBuild, "unsupported root project product type %q for %q", product.Type, productName).With("product", productName)
	}

	pkgs, err := packages.Load(&packages.Config{
		Mode: packages.NeedName | packages.NeedFiles,
		Dir:  packageDir,
	}, ".")
	if err != nil {
		return "", berr.Wrap(berr.ProjectBuild, err, "resolving root package metadata in %s", packageDir).With("path", packageDir)
	}
	if len(pkgs) == 0 || len(pkgs[0].GoFiles) == 0 {
		return "", berr.New(berr.ProjectBuild, "no buildable Go package found in %s", packageDir).With("path", packageDir)
	}

	outPath := filepath.Join(packageDir, ".bundler-scratch", productName)
	sub := &procrunner.Runner{Dir: packageDir, Env: runner.Env}
	if _, err := sub.Run("go", "build", "-o", outPath, "."); err != nil {
		return "", berr.Wrap(berr.ProjectBuild, err, "building root product %q", productName).With("product", productName)
	}
	return outPath, nil
}
