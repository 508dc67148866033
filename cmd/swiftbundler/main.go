// swiftbundler packages a built executable into a platform-native app
// bundle from a Bundler.toml package configuration.
package main

import (
	"os"

	"github.com/swiftbundler/bundler/internal/cli"
)

func main() {
	if err := cli.NewRootCommand().Execute(); err != nil {
		os.Exit(1)
	}
}
