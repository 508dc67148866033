package cli

import (
	"os"
	"path/filepath"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/swiftbundler/bundler/internal/berr"
	"github.com/swiftbundler/bundler/internal/bundle"
	"github.com/swiftbundler/bundler/internal/bundlers"
	"github.com/swiftbundler/bundler/internal/buildlog"
	"github.com/swiftbundler/bundler/internal/config"
	"github.com/swiftbundler/bundler/internal/procrunner"
	"github.com/swiftbundler/bundler/internal/projectbuild"
	"github.com/swiftbundler/bundler/internal/variables"
)

type bundleFlags struct {
	packageDir  string
	productsDir string
	outputDir   string
	platform    string
	appName     string
	all         bool
	identity    string
	profilePath string
	notarizeAppleID  string
	notarizeTeamID   string
	notarizePassword string
	logLevel    string
}

func newBundleCommand() *cobra.Command {
	flags := &bundleFlags{}

	cmd := &cobra.Command{
		Use:   "bundle",
		Short: "Bundle one app, or every app declared in the package, for one platform",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runBundle(flags)
		},
	}

	cmd.Flags().StringVar(&flags.packageDir, "package-directory", ".", "directory containing Bundler.toml")
	cmd.Flags().StringVar(&flags.productsDir, "products-directory", "", "directory containing the built executable and resources")
	cmd.Flags().StringVar(&flags.outputDir, "output-directory", "bundle", "directory to write the produced bundle into")
	cmd.Flags().StringVar(&flags.platform, "platform", "", "target platform (macOS, iOS, linuxGeneric, linuxAppImage, linuxRPM, windowsGeneric, windowsMSI, android, ...)")
	cmd.Flags().StringVar(&flags.appName, "app", "", "app name as declared in Bundler.toml")
	cmd.Flags().BoolVar(&flags.all, "all", false, "bundle every app declared in Bundler.toml concurrently, instead of a single --app")
	cmd.Flags().StringVar(&flags.identity, "identity", "", "code signing identity (Apple targets)")
	cmd.Flags().StringVar(&flags.profilePath, "provisioning-profile", "", "manual .mobileprovision path (device targets); searched for automatically when omitted")
	cmd.Flags().StringVar(&flags.notarizeAppleID, "notarize-apple-id", "", "Apple ID for post-sign notarization (macOS only)")
	cmd.Flags().StringVar(&flags.notarizeTeamID, "notarize-team-id", "", "team ID for post-sign notarization (macOS only)")
	cmd.Flags().StringVar(&flags.notarizePassword, "notarize-password", "", "app-specific password for post-sign notarization (macOS only)")
	cmd.Flags().StringVar(&flags.logLevel, "log-level", "info", "log level: debug, info, warn, error")

	cmd.MarkFlagRequired("products-directory")
	cmd.MarkFlagRequired("platform")

	return cmd
}

func runBundle(flags *bundleFlags) error {
	logger := buildlog.New(os.Stderr, flags.logLevel).With("platform", flags.platform)

	pkg, err := config.Load(filepath.Join(flags.packageDir, "Bundler.toml"))
	if err != nil {
		return exitWithRenderedError(logger, err)
	}

	orchestrator := &bundlers.Orchestrator{Registry: bundlers.NewDefaultRegistry("")}

	if !flags.all {
		if flags.appName == "" {
			return exitWithRenderedError(logger, berr.New(berr.Config, "either --app or --all must be given"))
		}
		return bundleOneApp(logger, pkg, orchestrator, flags, flags.appName)
	}

	// Distinct app bundles never share mutable state (each owns its own
	// output directory and scratch tree), so bundling the whole package is
	// safe to run concurrently (spec §5, "Parallelism would be safe across
	// distinct app bundles"). errgroup caps concurrency and collects the
	// first failure, mirroring cogentcore-core's build-fan-out commands.
	var group errgroup.Group
	group.SetLimit(4)
	for _, appName := range pkg.AppNames() {
		appName := appName
		group.Go(func() error {
			return bundleOneApp(logger.With("app", appName), pkg, orchestrator, flags, appName)
		})
	}
	return group.Wait()
}

func bundleOneApp(logger buildlog.Logger, pkg *config.PackageConfiguration, orchestrator *bundlers.Orchestrator, flags *bundleFlags, appName string) (err error) {
	platform := bundle.Platform(flags.platform)
	eval := variables.Default(variables.Context{ProductName: appName})

	flat, err := pkg.Flatten(appName, string(platform), eval)
	if err != nil {
		return exitWithRenderedError(logger, err)
	}

	// Each app gets its own scratch tree so concurrent --all bundling never
	// shares a projectbuild.Cache (its build-state map isn't guarded for
	// concurrent access). Deleted on success; left in place on failure for
	// post-mortem, per spec §4.6's scratch-directory lifecycle.
	scratchDir := filepath.Join(os.TempDir(), "swiftbundler-"+appName+"-"+uuid.NewString())
	if mkErr := os.MkdirAll(scratchDir, 0o755); mkErr != nil {
		return exitWithRenderedError(logger, berr.Wrap(berr.Filesystem, mkErr, "creating scratch directory %s", scratchDir).With("path", scratchDir))
	}
	defer func() {
		if err == nil {
			os.RemoveAll(scratchDir)
		} else {
			logger.Warnf("leaving scratch directory %s in place for inspection", scratchDir)
		}
	}()

	runner := &procrunner.Runner{}
	dependencyProducts, err := resolveDependencies(runner, pkg, flat, flags, string(platform), scratchDir)
	if err != nil {
		return exitWithRenderedError(logger, err)
	}

	ctx := &bundle.BundlerContext{
		AppName:            appName,
		PackageName:        appName,
		Configuration:      flat,
		PackageDirectory:   flags.packageDir,
		ProductsDirectory:  flags.productsDir,
		OutputDirectory:    flags.outputDir,
		Platform:           platform,
		DependencyProducts: dependencyProducts,
		Executable:         filepath.Join(flags.productsDir, appName),
	}
	if flags.identity != "" || flags.profilePath != "" || flags.notarizeAppleID != "" {
		ctx.CodeSigning = &bundle.CodeSigningContext{
			Identity:          flags.identity,
			ManualProfilePath: flags.profilePath,
			NotarizeAppleID:   flags.notarizeAppleID,
			NotarizeTeamID:    flags.notarizeTeamID,
			NotarizePassword:  flags.notarizePassword,
		}
	}

	intended, err := orchestrator.IntendedOutput(ctx)
	if err != nil {
		return exitWithRenderedError(logger, err)
	}
	logger.Infof("intended bundle output: %s", intended.Bundle)

	out, err := orchestrator.Bundle(ctx)
	if err != nil {
		return exitWithRenderedError(logger, err)
	}
	if out.Bundle != intended.Bundle {
		return exitWithRenderedError(logger, berr.New(berr.Config, "bundle output %q does not match intended output %q", out.Bundle, intended.Bundle))
	}

	logger.Infof("bundled %s", out.Bundle)
	return nil
}

// resolveDependencies walks flat.Dependencies, builds each referenced
// project exactly once (via a per-app projectbuild.Cache rooted at
// scratchDir) or, for the config.RootProjectName sentinel, builds the app's
// own product directly with the host build system, and returns the
// "project.product" -> artifact path map orchestrator.Bundle expects on
// BundlerContext.DependencyProducts (spec §2, §4.6).
func resolveDependencies(runner *procrunner.Runner, pkg *config.PackageConfiguration, flat bundle.AppConfiguration, flags *bundleFlags, platform string, scratchDir string) (map[string]string, error) {
	if len(flat.Dependencies) == 0 {
		return nil, nil
	}

	cache := projectbuild.NewCache(filepath.Join(scratchDir, "projects"), runner)
	products := make(map[string]string, len(flat.Dependencies))

	for _, dep := range flat.Dependencies {
		edge, ok := config.ParseDependencyEdge(dep)
		if !ok {
			return nil, berr.New(berr.Config, "malformed dependency edge %q", dep).With("dependency", dep)
		}

		proj, ok := pkg.Projects[edge.Project]
		if !ok {
			return nil, berr.New(berr.Config, "dependency %q references unknown project %q", dep, edge.Project).With("project", edge.Project)
		}
		product, ok := proj.Products[edge.Product]
		if !ok {
			return nil, berr.New(berr.Config, "dependency %q references unknown product %q", dep, edge.Product).With("product", edge.Product)
		}

		if edge.Project == config.RootProjectName {
			path, err := projectbuild.BuildRootProduct(runner, flags.packageDir, edge.Product, product)
			if err != nil {
				return nil, err
			}
			products[dep] = path
			continue
		}

		productsDir, err := cache.EnsureBuilt(flags.packageDir, edge.Project, proj, platform)
		if err != nil {
			return nil, err
		}
		artifact, ok := product.ArtifactByPlatform[platform]
		if !ok {
			return nil, berr.New(berr.ProjectBuild, "project %q product %q declares no artifact for platform %q", edge.Project, edge.Product, platform).With("project", edge.Project).With("platform", platform)
		}
		products[dep] = filepath.Join(productsDir, filepath.Base(artifact))
	}

	return products, nil
}
