package config

import (
	"os"
	"sort"

	"github.com/pelletier/go-toml/v2"
	"github.com/swiftbundler/bundler/internal/berr"
	"github.com/swiftbundler/bundler/internal/fsops"
)

// Load reads and parses a Bundler.toml file from path, expanding a leading
// "~" so package configs authored on another machine still resolve.
func Load(path string) (*PackageConfiguration, error) {
	path, err := fsops.ExpandHome(path)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, berr.Wrap(berr.Config, err, "reading %s", path).With("path", path)
	}
	var cfg PackageConfiguration
	if err := toml.Unmarshal(data, &cfg); err != nil {
		return nil, berr.Wrap(berr.Config, err, "parsing %s", path).With("path", path)
	}
	return &cfg, nil
}

// AppNames returns the configured app names in a deterministic order.
func (c *PackageConfiguration) AppNames() []string {
	names := make([]string, 0, len(c.Apps))
	for name := range c.Apps {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
