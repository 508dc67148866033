// Package cli wires the bundler's cobra-based CLI entry point, grounded on
// joeblew999-xplat's cmd/xplat/main.go root-command-plus-subcommands shape.
package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/swiftbundler/bundler/internal/berr"
	"github.com/swiftbundler/bundler/internal/buildlog"
)

// NewRootCommand builds the "swiftbundler" root command and attaches the
// "bundle" subcommand.
func NewRootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:   "swiftbundler",
		Short: "Package a built executable into a platform-native app bundle",
		Long: `swiftbundler reads a Bundler.toml package configuration and a products
directory and produces a ready-to-distribute bundle for one target platform.`,
		SilenceUsage: true,
	}

	root.AddCommand(newBundleCommand())
	return root
}

// exitWithRenderedError prints berr's tree rendering for err to stderr and
// returns a plain error so cobra's own usage-printing stays suppressed.
func exitWithRenderedError(logger buildlog.Logger, err error) error {
	logger.Errorf("bundling failed")
	fmt.Fprintln(os.Stderr, berr.Render(err))
	return err
}
