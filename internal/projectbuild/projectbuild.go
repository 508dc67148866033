// Package projectbuild implements ProjectBuilder (spec §4.6): checking out
// dependency project sources, synthesizing a throwaway builder package,
// building and invoking that builder, and collecting the artifacts it
// declares.
//
// Git checkout/fetch is done with github.com/go-git/go-git/v5 rather than
// shelling out to the git binary, grounded on joeblew999-xplat's
// internal/gitops package.
package projectbuild

import (
	"bytes"
	"encoding/json"
	"os"
	"os/exec"
	"path/filepath"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	shellwords "github.com/mattn/go-shellwords"
	"github.com/swiftbundler/bundler/internal/berr"
	"github.com/swiftbundler/bundler/internal/config"
	"github.com/swiftbundler/bundler/internal/fsops"
	"github.com/swiftbundler/bundler/internal/procrunner"
)

// BuildState is the per-project build-cache state machine (spec §4.11):
// Unbuilt -> Building -> Built(productsDir), with a terminal Failed state.
type BuildState int

const (
	Unbuilt BuildState = iota
	Building
	Built
	Failed
)

type projectResult struct {
	state       BuildState
	productsDir string
	err         error
}

// Cache tracks each project's build state for the lifetime of a single
// Orchestrator run; projects are only ever built once per run (spec §4.6,
// "Concurrency between projects: sequential").
type Cache struct {
	scratchDir string
	runner     *procrunner.Runner
	results    map[string]*projectResult
}

// NewCache creates a build cache rooted at scratchDir, using runner for
// every subprocess this package spawns.
func NewCache(scratchDir string, runner *procrunner.Runner) *Cache {
	return &Cache{scratchDir: scratchDir, runner: runner, results: map[string]*projectResult{}}
}

// BuilderContext is the JSON document fed to a builder subprocess's stdin
// (spec §4.6 step d).
type BuilderContext struct {
	BuildDirectory string `json:"buildDirectory"`
}

// EnsureBuilt builds projectName (if not already built this run) and
// returns the directory its artifacts were collected into. platform selects
// which of a product's per-platform artifacts collectArtifacts picks up.
func (c *Cache) EnsureBuilt(packageDir string, projectName string, proj config.ProjectConfiguration, platform string) (string, error) {
	if r, ok := c.results[projectName]; ok {
		switch r.state {
		case Built:
			return r.productsDir, nil
		case Failed:
			return "", berr.Wrap(berr.ProjectBuild, r.err, "project %q previously failed this run", projectName).With("project", projectName)
		case Building:
			return "", berr.New(berr.ProjectBuild, "cyclic build dependency on project %q", projectName).With("project", projectName)
		}
	}

	c.results[projectName] = &projectResult{state: Building}
	productsDir, err := c.build(packageDir, projectName, proj, platform)
	if err != nil {
		c.results[projectName] = &projectResult{state: Failed, err: err}
		return "", err
	}
	c.results[projectName] = &projectResult{state: Built, productsDir: productsDir}
	return productsDir, nil
}

func (c *Cache) build(packageDir, projectName string, proj config.ProjectConfiguration, platform string) (string, error) {
	sourceDir := filepath.Join(c.scratchDir, "sources", projectName)
	if err := checkout(packageDir, sourceDir, proj.Source); err != nil {
		return "", err
	}

	builderDir := filepath.Join(c.scratchDir, "builder", projectName)
	builderExe, err := synthesizeAndBuildBuilder(c.runner, packageDir, builderDir, proj.Builder)
	if err != nil {
		return "", err
	}

	if err := invokeBuilder(c.runner, builderExe, sourceDir); err != nil {
		return "", err
	}

	productsDir := filepath.Join(c.scratchDir, "products", projectName)
	if err := collectArtifacts(sourceDir, productsDir, proj, platform); err != nil {
		return "", err
	}
	return productsDir, nil
}

// checkout realizes proj's source into dstDir: a git clone+checkout for git
// sources, or a symlink to a local path (spec §4.6 step a).
func checkout(packageDir, dstDir string, source config.ProjectSource) error {
	if source.IsGit() {
		return checkoutGit(dstDir, source.GitURL, source.GitRevision)
	}
	localPath, err := fsops.ExpandHome(source.LocalPath)
	if err != nil {
		return err
	}
	if !filepath.IsAbs(localPath) {
		localPath = filepath.Join(packageDir, localPath)
	}
	if _, err := os.Stat(localPath); err != nil {
		return berr.Wrap(berr.ProjectBuild, err, "local project source %s does not exist", localPath).With("path", localPath)
	}
	if err := os.MkdirAll(filepath.Dir(dstDir), 0o755); err != nil {
		return berr.Wrap(berr.Filesystem, err, "preparing %s", filepath.Dir(dstDir)).With("path", dstDir)
	}
	os.Remove(dstDir)
	if err := os.Symlink(localPath, dstDir); err != nil {
		return berr.Wrap(berr.Filesystem, err, "symlinking %s to %s", dstDir, localPath).With("path", dstDir)
	}
	return nil
}

// checkoutGit keeps an existing checkout if its origin URL matches, else
// wipes and reclones, mirroring gitops.Clone/Checkout (joeblew999-xplat).
func checkoutGit(dstDir, url, revision string) error {
	if repo, err := git.PlainOpen(dstDir); err == nil {
		if sameOrigin(repo, url) {
			return checkoutRevision(repo, revision)
		}
	}

	if err := os.RemoveAll(dstDir); err != nil {
		return berr.Wrap(berr.Filesystem, err, "removing stale checkout %s", dstDir).With("path", dstDir)
	}
	repo, err := git.PlainClone(dstDir, false, &git.CloneOptions{
		URL:               url,
		RecurseSubmodules: git.DefaultSubmoduleRecursionDepth,
	})
	if err != nil {
		return berr.Wrap(berr.ProjectBuild, err, "cloning %s", url).With("url", url)
	}
	return checkoutRevision(repo, revision)
}

func sameOrigin(repo *git.Repository, url string) bool {
	remote, err := repo.Remote("origin")
	if err != nil {
		return false
	}
	cfg := remote.Config()
	for _, u := range cfg.URLs {
		if u == url {
			return true
		}
	}
	return false
}

func checkoutRevision(repo *git.Repository, revision string) error {
	wt, err := repo.Worktree()
	if err != nil {
		return berr.Wrap(berr.ProjectBuild, err, "opening worktree")
	}
	hash, err := repo.ResolveRevision(plumbing.Revision(revision))
	if err != nil {
		return berr.Wrap(berr.ProjectBuild, err, "resolving revision %s", revision).With("revision", revision)
	}
	if err := wt.Checkout(&git.CheckoutOptions{Hash: *hash}); err != nil {
		return berr.Wrap(berr.ProjectBuild, err, "checking out %s", revision).With("revision", revision)
	}
	return nil
}

// synthesizeAndBuildBuilder writes a throwaway builder package referencing
// the configured Swift-Bundler-Builders-equivalent API source, symlinks in
// the user-supplied builder source file, and builds it for the host
// platform (spec §4.6 step b/c).
func synthesizeAndBuildBuilder(runner *procrunner.Runner, packageDir, builderDir string, ref config.BuilderReference) (string, error) {
	if err := os.MkdirAll(builderDir, 0o755); err != nil {
		return "", berr.Wrap(berr.Filesystem, err, "creating %s", builderDir).With("path", builderDir)
	}

	mainGo := filepath.Join(builderDir, "main.go")
	userFile := ref.File
	if !filepath.IsAbs(userFile) {
		userFile = filepath.Join(packageDir, userFile)
	}
	os.Remove(mainGo)
	if err := os.Symlink(userFile, mainGo); err != nil {
		return "", berr.Wrap(berr.Filesystem, err, "symlinking builder source %s", userFile).With("path", userFile)
	}

	if err := writeBuilderModule(builderDir, ref.APISource); err != nil {
		return "", err
	}

	extraArgs, err := shellwords.Parse(ref.BuildFlags)
	if err != nil {
		return "", berr.Wrap(berr.Builder, err, "parsing build_flags %q", ref.BuildFlags).With("path", builderDir)
	}

	exePath := filepath.Join(builderDir, "builder")
	args := append([]string{"build", "-o", exePath}, extraArgs...)
	args = append(args, ".")
	sub := &procrunner.Runner{Dir: builderDir, Env: runner.Env}
	if _, err := sub.Run("go", args...); err != nil {
		return "", berr.Wrap(berr.Builder, err, "building builder in %s", builderDir).With("path", builderDir)
	}
	return exePath, nil
}

func writeBuilderModule(builderDir string, apiSource config.ProjectSource) error {
	req := "require swiftbundlerbuilders v0.0.0\nreplace swiftbundlerbuilders => " + apiSource.LocalPath + "\n"
	if apiSource.IsGit() {
		req = "require swiftbundlerbuilders " + apiSource.GitRevision + "\n"
	}
	content := "module builder\n\ngo 1.23\n\n" + req
	return os.WriteFile(filepath.Join(builderDir, "go.mod"), []byte(content), 0o644)
}

// invokeBuilder runs the built builder executable with cwd=sourceDir,
// feeding the JSON BuilderContext on stdin (spec §4.6 step d).
func invokeBuilder(runner *procrunner.Runner, builderExe, sourceDir string) error {
	ctxJSON, err := json.Marshal(BuilderContext{BuildDirectory: sourceDir})
	if err != nil {
		return berr.Wrap(berr.Builder, err, "encoding builder context")
	}

	cmd := exec.Command(builderExe)
	cmd.Dir = sourceDir
	cmd.Env = append(os.Environ(), runner.Env...)
	cmd.Stdin = bytes.NewReader(ctxJSON)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return berr.Wrap(berr.Builder, err, "running builder %s: %s", builderExe, stderr.String()).With("builder", builderExe)
	}
	return nil
}

// collectArtifacts copies each product's artifact declared for platform
// (and any auxiliary artifacts that happen to exist) out of sourceDir's
// build output into productsDir. A product that declares no artifact for
// platform contributes no required artifact (its auxiliary artifacts that
// exist are still copied): most dependency projects only build for a
// subset of the platforms the app itself targets.
func collectArtifacts(sourceDir, productsDir string, proj config.ProjectConfiguration, platform string) error {
	if err := os.MkdirAll(productsDir, 0o755); err != nil {
		return berr.Wrap(berr.Filesystem, err, "creating %s", productsDir).With("path", productsDir)
	}
	for productName, product := range proj.Products {
		if artifact, ok := product.ArtifactByPlatform[platform]; ok {
			src := filepath.Join(sourceDir, artifact)
			if _, err := os.Stat(src); err != nil {
				return berr.New(berr.ProjectBuild, "missing product artifact %s for product %q", artifact, productName).With("product", productName).With("path", artifact)
			}
			if err := copyArtifact(src, filepath.Join(productsDir, filepath.Base(artifact))); err != nil {
				return err
			}
		}
		for _, aux := range product.AuxiliaryArtifacts {
			src := filepath.Join(sourceDir, aux)
			if _, err := os.Stat(src); err != nil {
				continue // auxiliary artifacts are optional: skip silently.
			}
			if err := copyArtifact(src, filepath.Join(productsDir, filepath.Base(aux))); err != nil {
				return err
			}
		}
	}
	return nil
}

func copyArtifact(src, dst string) error {
	data, err := os.ReadFile(src)
	if err != nil {
		return berr.Wrap(berr.Filesystem, err, "reading artifact %s", src).With("path", src)
	}
	if err := os.WriteFile(dst, data, 0o755); err != nil {
		return berr.Wrap(berr.Filesystem, err, "writing artifact %s", dst).With("path", dst)
	}
	return nil
}
