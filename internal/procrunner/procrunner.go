// Package procrunner spawns external tools (otool, ldd, codesign, rpmbuild,
// wix, ...) with environment/working-directory overrides and reports their
// exit status through berr's typed errors.
//
// Grounded on gogio's runCmd/runCmdRaw helpers (iosbuild.go, macosbuild.go),
// generalized into a reusable type rather than a package-level free
// function, since this module runs many distinct tool families instead of
// gogio's single xcrun/codesign toolchain.
package procrunner

import (
	"bytes"
	"context"
	"errors"
	"os/exec"
	"strings"

	"github.com/swiftbundler/bundler/internal/berr"
)

// Runner spawns processes with a fixed set of environment overlays and
// working directory, so a PlatformBundler can build one Runner per bundling
// pass and reuse it for every tool invocation in that pass.
type Runner struct {
	Dir string
	Env []string // appended on top of os.Environ(); last write wins.
}

// Result captures a completed invocation's output.
type Result struct {
	Stdout string
	Stderr string
}

// Run executes name with args, waits for completion, and returns stdout
// with trailing newlines trimmed (matching tools like `xcrun --show-sdk-path`
// that emit a single line). Non-zero exit is reported as berr.ToolFailed; "no
// such file" as berr.ToolNotFound.
func (r Runner) Run(name string, args ...string) (string, error) {
	res, err := r.RunRaw(name, args...)
	if err != nil {
		return "", err
	}
	return strings.TrimRight(res.Stdout, "\n"), nil
}

// RunRaw executes name with args and returns stdout/stderr without trimming,
// for callers that need exact bytes (e.g. a DER certificate on stdout).
func (r Runner) RunRaw(name string, args ...string) (Result, error) {
	cmd := exec.CommandContext(context.Background(), name, args...)
	cmd.Dir = r.Dir
	if len(r.Env) > 0 {
		cmd.Env = append(cmd.Environ(), r.Env...)
	}
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	err := cmd.Run()
	if err != nil {
		if errors.Is(err, exec.ErrNotFound) || strings.Contains(err.Error(), "executable file not found") {
			return Result{}, berr.New(berr.ToolNotFound, "tool not found: %s", name).With("tool", name)
		}
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			return Result{}, berr.Wrap(berr.ToolFailed, err, "%s %s: %s", name, strings.Join(args, " "), strings.TrimSpace(stderr.String())).
				With("tool", name).
				With("exitCode", exitErr.ExitCode())
		}
		return Result{}, berr.Wrap(berr.ToolFailed, err, "running %s", name).With("tool", name)
	}
	return Result{Stdout: stdout.String(), Stderr: stderr.String()}, nil
}
