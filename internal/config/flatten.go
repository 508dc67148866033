package config

import (
	"github.com/Masterminds/semver/v3"
	"github.com/jinzhu/copier"
	"github.com/swiftbundler/bundler/internal/berr"
	"github.com/swiftbundler/bundler/internal/bundle"
	"github.com/swiftbundler/bundler/internal/variables"
)

// Flatten merges appName's base configuration with its per-platform
// overlay (if any), then expands every $(VAR) field through eval, producing
// the bundle.AppConfiguration every PlatformBundler consumes.
//
// The overlay merge deep-copies the base config with jinzhu/copier (grounded
// in cogentcore-core) before mutating it with overlay fields, so the raw
// PackageConfiguration the caller holds is never mutated in place.
func (c *PackageConfiguration) Flatten(appName string, platform string, eval variables.Evaluator) (bundle.AppConfiguration, error) {
	raw, ok := c.Apps[appName]
	if !ok {
		return bundle.AppConfiguration{}, berr.New(berr.Config, "no app named %q", appName).With("app", appName)
	}

	var merged RawAppConfiguration
	if err := copier.CopyWithOption(&merged, &raw, copier.Option{DeepCopy: true}); err != nil {
		return bundle.AppConfiguration{}, berr.Wrap(berr.Config, err, "copying configuration for %q", appName).With("app", appName)
	}

	if overlay, ok := raw.Platforms[platform]; ok {
		applyOverlay(&merged, overlay)
	}

	if _, err := semver.NewVersion(merged.Version); merged.Version != "" && err != nil {
		return bundle.AppConfiguration{}, berr.Wrap(berr.Config, err, "invalid version %q for app %q", merged.Version, appName).With("app", appName)
	}

	flat := bundle.AppConfiguration{
		Identifier:       merged.Identifier,
		Version:          merged.Version,
		MarketingVersion: merged.MarketingVersion,
		Build:            merged.Build,
		IconPath:         merged.Icon,
		URLSchemes:       append([]string(nil), merged.URLSchemes...),
		DBusActivatable:  merged.DBusActivatable,
		Category:         merged.Category,
		CatalystIdiom:    merged.CatalystIdiom,
		PlistExtras:      merged.PlistExtras,
		Metadata:         merged.Metadata,
		RPMRequirements:  append([]string(nil), merged.RPMRequirements...),
		Dependencies:     append([]string(nil), merged.Dependencies...),
	}

	if err := evaluateFields(&flat, eval); err != nil {
		return bundle.AppConfiguration{}, err
	}

	return flat, nil
}

func applyOverlay(base *RawAppConfiguration, overlay PlatformOverlay) {
	if overlay.IconPath != "" {
		base.Icon = overlay.IconPath
	}
	if overlay.Category != "" {
		base.Category = overlay.Category
	}
	if len(overlay.Metadata) > 0 {
		if base.Metadata == nil {
			base.Metadata = map[string]string{}
		}
		for k, v := range overlay.Metadata {
			base.Metadata[k] = v
		}
	}
	if len(overlay.PlistExtras) > 0 {
		if base.PlistExtras == nil {
			base.PlistExtras = map[string]any{}
		}
		for k, v := range overlay.PlistExtras {
			base.PlistExtras[k] = v
		}
	}
}

// evaluateFields expands $(VAR) in every string field of flat, enforcing
// the invariant that once evaluation completes no field contains an
// unresolved "$(" literal that matches a known variable.
func evaluateFields(flat *bundle.AppConfiguration, eval variables.Evaluator) error {
	fields := []*string{
		&flat.Identifier, &flat.Version, &flat.MarketingVersion, &flat.Build,
		&flat.IconPath, &flat.Category, &flat.CatalystIdiom,
	}
	for _, f := range fields {
		v, err := variables.Evaluate(*f, eval)
		if err != nil {
			return berr.Wrap(berr.Config, err, "evaluating field %q", *f)
		}
		*f = v
	}
	for _, list := range [][]string{flat.RPMRequirements, flat.Dependencies} {
		for i, s := range list {
			v, err := variables.Evaluate(s, eval)
			if err != nil {
				return berr.Wrap(berr.Config, err, "evaluating field %q", s)
			}
			list[i] = v
		}
	}
	for i, scheme := range flat.URLSchemes {
		v, err := variables.Evaluate(scheme, eval)
		if err != nil {
			return berr.Wrap(berr.Config, err, "evaluating url scheme %q", scheme)
		}
		flat.URLSchemes[i] = v
	}
	if flat.Metadata != nil {
		evaluated := make(map[string]string, len(flat.Metadata))
		for k, v := range flat.Metadata {
			ev, err := variables.Evaluate(v, eval)
			if err != nil {
				return berr.Wrap(berr.Config, err, "evaluating metadata %q", k)
			}
			evaluated[k] = ev
		}
		flat.Metadata = evaluated
	}
	if flat.PlistExtras != nil {
		tree, err := variables.EvaluateTree(flat.PlistExtras, eval)
		if err != nil {
			return berr.Wrap(berr.Config, err, "evaluating plist extras")
		}
		m, ok := tree.(map[string]any)
		if !ok {
			return berr.New(berr.Config, "plist extras evaluated to non-map %T", tree)
		}
		flat.PlistExtras = m
	}
	return nil
}
