// Package relocate implements the DynamicDependencyRelocator (spec §4.3):
// enumerate a binary's transitive dynamic dependencies via a platform tool,
// filter by policy, copy survivors into the bundle, and rewrite load
// commands / runpaths so the relocated binary still resolves everything.
package relocate

import (
	"context"
	"os"
	"path/filepath"
	"strings"

	"github.com/swiftbundler/bundler/internal/berr"
	"github.com/swiftbundler/bundler/internal/fsops"
	"github.com/swiftbundler/bundler/internal/procrunner"
)

// Policy governs which dependencies are considered "bundleable" versus
// system-provided, per platform.
type Policy struct {
	ProductsDir string
	Standalone  bool
}

// visited dedups by destination filename so cyclic dependency graphs
// terminate, per spec §9 "arena+visited-set keyed by destination filename".
type visited map[string]bool

// Darwin relocates dependencies of a Mach-O binary using otool/install_name_tool.
type Darwin struct {
	Runner        *procrunner.Runner
	LibraryDir    string
	FrameworkDir  string
}

var darwinSystemPrefixes = []string{"/usr/lib/", "/System/Library/"}

// darwinBackDeployRuntime is treated as a system dependency even though it
// is rpath-relative, because it ships with the OS on supported deployment
// targets (spec §4.3).
const darwinBackDeployRuntime = "@rpath/libswift_Concurrency.dylib"

// parseOtoolL parses "otool -L" output into a list of install names,
// skipping the first line (the "<path>:" header) and any entry that repeats
// that path (the binary's own id).
func parseOtoolL(output string) []string {
	lines := strings.Split(output, "\n")
	self := strings.TrimSuffix(strings.TrimSpace(lines[0]), ":")
	var names []string
	for i, line := range lines {
		if i == 0 {
			continue
		}
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		idx := strings.Index(line, " (compatibility version")
		if idx == -1 {
			idx = len(line)
		}
		name := strings.TrimSpace(line[:idx])
		if name == self {
			continue
		}
		names = append(names, name)
	}
	return names
}

func isDarwinSystem(name string) bool {
	if name == darwinBackDeployRuntime {
		return true
	}
	for _, prefix := range darwinSystemPrefixes {
		if strings.HasPrefix(name, prefix) {
			return true
		}
	}
	return false
}

func isFramework(path string) bool {
	for _, part := range strings.Split(path, string(filepath.Separator)) {
		if strings.HasSuffix(part, ".framework") {
			return true
		}
	}
	return false
}

// Relocate walks binary's dependency tree, copying non-system libraries into
// d.LibraryDir/d.FrameworkDir and rewriting install names in-place.
func (d *Darwin) Relocate(ctx context.Context, binary string, policy Policy) error {
	return d.relocate(ctx, binary, policy, visited{})
}

func (d *Darwin) relocate(ctx context.Context, binary string, policy Policy, seen visited) error {
	out, err := d.Runner.Run("otool", "-L", binary)
	if err != nil {
		return berr.Wrap(berr.DependencyResolution, err, "listing dependencies of %s", binary).With("binary", binary)
	}
	for _, name := range parseOtoolL(out) {
		if isDarwinSystem(name) {
			continue
		}

		srcPath := name
		if strings.HasPrefix(name, "@rpath/") {
			rel := strings.TrimPrefix(name, "@rpath/")
			candidates := []string{
				filepath.Join(policy.ProductsDir, rel),
				filepath.Join(policy.ProductsDir, "PackageFrameworks", rel),
			}
			found := ""
			for _, c := range candidates {
				if fsops.Exists(c) {
					found = c
					break
				}
			}
			if found == "" {
				continue // not found under any search path: skipped without copying; no warning is logged.
			}
			srcPath = found
		}

		framework := isFramework(srcPath)
		destDir := d.LibraryDir
		if framework {
			destDir = d.FrameworkDir
		}
		base := filepath.Base(srcPath)
		if !framework && filepath.Ext(base) != ".dylib" {
			base += ".dylib"
		}
		destPath := filepath.Join(destDir, base)

		if seen[destPath] {
			continue
		}
		seen[destPath] = true

		if err := fsops.CopyFile(srcPath, destPath); err != nil {
			return err
		}

		rel, err := filepath.Rel(filepath.Dir(binary), destPath)
		if err != nil {
			return berr.Wrap(berr.Filesystem, err, "computing relative path from %s to %s", binary, destPath)
		}
		newName := "@rpath/" + filepath.ToSlash(rel)
		if _, err := d.Runner.Run("install_name_tool", "-change", name, newName, binary); err != nil {
			return berr.Wrap(berr.ToolFailed, err, "rewriting install name %s in %s", name, binary).With("binary", binary)
		}

		if err := d.relocate(ctx, destPath, policy, seen); err != nil {
			return err
		}
	}
	return nil
}

// Linux relocates ELF dependencies using ldd/patchelf.
type Linux struct {
	Runner  *procrunner.Runner
	LibDir  string
	AllowList []string
}

var defaultLinuxAllowList = []string{"libswiftCore.so", "libFoundation.so", "libicu"}

// parseLddLine parses a single "ldd" output line of the form
// "<name> => <path> (<addr>)", returning name and path.
func parseLddLine(line string) (name, path string, ok bool) {
	idx := strings.Index(line, " => ")
	if idx == -1 {
		return "", "", false
	}
	name = strings.TrimSpace(line[:idx])
	rest := strings.TrimSpace(line[idx+len(" => "):])
	end := strings.Index(rest, " (")
	if end == -1 {
		return "", "", false
	}
	path = rest[:end]
	if path == "" || name == "" {
		return "", "", false
	}
	return name, path, true
}

func (l *Linux) isAllowed(name, resolvedPath string, policy Policy) bool {
	if strings.HasPrefix(name, "libc.so") {
		return false
	}
	for _, allow := range l.AllowList {
		if strings.HasPrefix(name, allow) {
			return true
		}
	}
	actual, err := filepath.EvalSymlinks(resolvedPath)
	if err != nil {
		actual = resolvedPath
	}
	rel, err := filepath.Rel(policy.ProductsDir, actual)
	return err == nil && !strings.HasPrefix(rel, "..")
}

// Relocate copies libraries ldd reports as produced-by-build or on the
// allow-list into l.LibDir, then fixes up rpaths with patchelf.
func (l *Linux) Relocate(ctx context.Context, executable string, policy Policy) error {
	allow := l.AllowList
	if len(allow) == 0 {
		allow = defaultLinuxAllowList
	}
	l.AllowList = allow

	out, err := l.Runner.Run("ldd", executable)
	if err != nil {
		return berr.Wrap(berr.DependencyResolution, err, "listing dependencies of %s", executable).With("binary", executable)
	}

	var copied []string
	for _, line := range strings.Split(out, "\n") {
		name, path, ok := parseLddLine(line)
		if !ok || !l.isAllowed(name, path, policy) {
			continue
		}
		dest := filepath.Join(l.LibDir, filepath.Base(path))
		if err := fsops.CopyFile(path, dest); err != nil {
			return err
		}
		copied = append(copied, dest)
	}

	for _, dest := range copied {
		if _, err := l.Runner.Run("patchelf", "--set-rpath", "$ORIGIN", dest); err != nil {
			return berr.Wrap(berr.ToolFailed, err, "setting rpath on %s", dest).With("binary", dest)
		}
	}

	if len(copied) > 0 {
		rel, err := filepath.Rel(filepath.Dir(executable), l.LibDir)
		if err != nil {
			return berr.Wrap(berr.Filesystem, err, "computing relative lib path for %s", executable)
		}
		rpath := "$ORIGIN/" + filepath.ToSlash(rel)
		if _, err := l.Runner.Run("patchelf", "--set-rpath", rpath, executable); err != nil {
			return berr.Wrap(berr.ToolFailed, err, "setting rpath on %s", executable).With("binary", executable)
		}
	}
	return nil
}

// Windows relocates PE dependencies using dumpbin, walking %PATH% to
// resolve allow-listed DLL names that aren't already in the products dir.
type Windows struct {
	Runner    *procrunner.Runner
	ModulesDir string
	AllowList []string
	PathEnv   []string // entries of %PATH%, injected for testability; when empty, the process's PATH is used.
}

var defaultWindowsAllowList = []string{"swiftCore.dll", "vcruntime", "FoundationEssentials.dll", "BlocksRuntime.dll", "dispatch.dll"}

const dumpbinHeader = "Image has the following dependencies:"

// parseDumpbinDependents extracts the DLL names listed after the dumpbin
// header line, skipping the blank lines before the first name and stopping
// at the first blank line after the list.
func parseDumpbinDependents(output string) []string {
	lines := strings.Split(output, "\n")
	var names []string
	inSection := false
	for _, line := range lines {
		trimmed := strings.TrimSpace(line)
		if !inSection {
			if strings.Contains(trimmed, dumpbinHeader) {
				inSection = true
			}
			continue
		}
		if trimmed == "" {
			if len(names) == 0 {
				continue
			}
			break
		}
		names = append(names, trimmed)
	}
	return names
}

func (w *Windows) allowed(name string) bool {
	allow := w.AllowList
	if len(allow) == 0 {
		allow = defaultWindowsAllowList
	}
	for _, a := range allow {
		if strings.EqualFold(a, name) || strings.HasPrefix(strings.ToLower(name), strings.ToLower(a)) {
			return true
		}
	}
	return false
}

func (w *Windows) resolveOnPath(name string) string {
	dirs := w.PathEnv
	if len(dirs) == 0 {
		dirs = filepath.SplitList(os.Getenv("PATH"))
	}
	for _, dir := range dirs {
		candidate := filepath.Join(dir, name)
		if fsops.Exists(candidate) {
			return candidate
		}
	}
	return ""
}

// Relocate copies each dependent DLL (preferring a products-directory copy)
// into w.ModulesDir, and its .pdb sibling when present.
func (w *Windows) Relocate(ctx context.Context, executable string, policy Policy) error {
	out, err := w.Runner.Run("dumpbin", "/DEPENDENTS", executable)
	if err != nil {
		return berr.Wrap(berr.DependencyResolution, err, "listing dependencies of %s", executable).With("binary", executable)
	}

	for _, name := range parseDumpbinDependents(out) {
		productCopy := filepath.Join(policy.ProductsDir, name)
		var src string
		switch {
		case fsops.Exists(productCopy):
			src = productCopy
		case w.allowed(name):
			src = w.resolveOnPath(name)
		}
		if src == "" {
			continue
		}
		dest := filepath.Join(w.ModulesDir, name)
		if err := fsops.CopyFile(src, dest); err != nil {
			return err
		}
		pdbSrc := strings.TrimSuffix(src, filepath.Ext(src)) + ".pdb"
		if fsops.Exists(pdbSrc) {
			pdbDest := strings.TrimSuffix(dest, filepath.Ext(dest)) + ".pdb"
			if err := fsops.CopyFile(pdbSrc, pdbDest); err != nil {
				return err
			}
		}
	}
	return nil
}

// FixExecutableRpath rewrites a Darwin executable's own rpath entry from
// "@executable_path/../lib" to "@executable_path" (spec §4.2 step 8,
// universal/Xcode build case).
func FixExecutableRpath(runner *procrunner.Runner, executable string) error {
	_, err := runner.Run("install_name_tool", "-rpath", "@executable_path/../lib", "@executable_path", executable)
	if err != nil {
		return berr.Wrap(berr.ToolFailed, err, "rewriting rpath of %s", executable).With("binary", executable)
	}
	return nil
}

// hasUniversalRpath reports whether otool -l output carries an
// "@executable_path/../lib" LC_RPATH load command, the signature of
// Xcode's universal build layout (spec §4.2 step 8).
func hasUniversalRpath(loadCommands string) bool {
	return strings.Contains(loadCommands, "@executable_path/../lib")
}

// DetectUniversalRpath reports whether executable's load commands carry an
// "@executable_path/../lib" LC_RPATH, meaning FixExecutableRpath must run
// before the general dependency relocation pass.
func DetectUniversalRpath(runner *procrunner.Runner, executable string) (bool, error) {
	out, err := runner.Run("otool", "-l", executable)
	if err != nil {
		return false, berr.Wrap(berr.DependencyResolution, err, "inspecting load commands of %s", executable).With("binary", executable)
	}
	return hasUniversalRpath(out), nil
}
