// Package config implements ConfigModel (spec §4, data model §3): the
// strongly-typed raw package/app configuration and its "flattened" variant
// after per-platform overlay merging and variable evaluation.
package config

// ProductType discriminates what a project's product actually is.
type ProductType string

const (
	ProductExecutable ProductType = "executable"
	ProductDynamicLibrary ProductType = "dynamicLibrary"
)

// ProjectSource is either a git source (URL + revision) or a local path;
// exactly one of the two groups of fields is expected to be populated.
// Nothing validates this; IsGit treats any non-empty GitURL as a git source.
type ProjectSource struct {
	GitURL      string `toml:"git,omitempty"`
	GitRevision string `toml:"revision,omitempty"`
	LocalPath   string `toml:"path,omitempty"`
}

// IsGit reports whether this source checks out from a remote git URL.
func (s ProjectSource) IsGit() bool { return s.GitURL != "" }

// BuilderReference names the builder program a ProjectConfiguration uses,
// plus where the Swift-Bundler-Builders-equivalent support library comes
// from (by local path or by git+revision, mirroring ProjectSource).
type BuilderReference struct {
	File      string        `toml:"file"`
	APISource ProjectSource `toml:"api_source"`
	// BuildFlags is a single shell-quoted argument string (e.g.
	// "-tags custom -ldflags '-s -w'") appended to the builder's own "go
	// build" invocation; split with mattn/go-shellwords rather than a naive
	// strings.Fields so quoted flag values survive intact.
	BuildFlags string `toml:"build_flags,omitempty"`
}

// ProductConfiguration names one buildable product of a project: its type
// and its expected artifact filename, per platform.
type ProductConfiguration struct {
	Type               ProductType       `toml:"type"`
	ArtifactByPlatform map[string]string `toml:"artifacts"`
	AuxiliaryArtifacts []string          `toml:"auxiliary_artifacts,omitempty"` // missing auxiliary artifacts are skipped, not errors.
}

// RootProjectName is the reserved project name meaning "build via the host
// build system directly" (spec §3).
const RootProjectName = "__root__"

// ProjectConfiguration is one dependency project: where its source lives,
// which builder compiles it, and what products it exposes.
type ProjectConfiguration struct {
	Source   ProjectSource                   `toml:"source"`
	Builder  BuilderReference                `toml:"builder"`
	Products map[string]ProductConfiguration `toml:"products"`
}

// DependencyEdge is a single (appName, "project.product") dependency.
type DependencyEdge struct {
	Project string
	Product string
}

// PlatformOverlay carries per-platform overrides merged onto the base
// AppConfiguration when flattening for a specific target platform.
type PlatformOverlay struct {
	IconPath    string            `toml:"icon,omitempty"`
	Category    string            `toml:"category,omitempty"`
	PlistExtras map[string]any    `toml:"plist,omitempty"`
	Metadata    map[string]string `toml:"metadata,omitempty"`
}

// RawAppConfiguration is one app's TOML-shaped configuration before overlay
// merging and variable evaluation.
type RawAppConfiguration struct {
	Identifier       string            `toml:"identifier"`
	Version          string            `toml:"version"`
	MarketingVersion string            `toml:"marketing_version,omitempty"`
	Build            string            `toml:"build,omitempty"`
	Icon             string            `toml:"icon,omitempty"`
	URLSchemes       []string          `toml:"url_schemes,omitempty"`
	DBusActivatable  bool              `toml:"dbus_activatable,omitempty"`
	Category         string            `toml:"category,omitempty"`
	CatalystIdiom    string            `toml:"catalyst_idiom,omitempty"`
	PlistExtras      map[string]any    `toml:"plist,omitempty"`
	Metadata         map[string]string `toml:"metadata,omitempty"`
	RPMRequirements  []string          `toml:"rpm_requirements,omitempty"`
	Dependencies     []string          `toml:"dependencies,omitempty"` // "project.product" strings
	Platforms        map[string]PlatformOverlay `toml:"platforms,omitempty"`
}

// PackageConfiguration is the top-level Bundler.toml document (spec §3,
// "PackageConfiguration contains apps: map<name, AppConfiguration> and
// projects: map<name, ProjectConfiguration>").
type PackageConfiguration struct {
	Apps     map[string]RawAppConfiguration  `toml:"apps"`
	Projects map[string]ProjectConfiguration `toml:"projects,omitempty"`
}

// ParseDependencyEdge splits a "project.product" dependency string into its
// edge components.
func ParseDependencyEdge(s string) (DependencyEdge, bool) {
	for i := len(s) - 1; i >= 0; i-- {
		if s[i] == '.' {
			return DependencyEdge{Project: s[:i], Product: s[i+1:]}, true
		}
	}
	return DependencyEdge{}, false
}
