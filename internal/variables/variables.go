// Package variables implements the $(VAR) templating engine used to expand
// configuration fields (spec §4.5).
package variables

import (
	"strconv"
	"strings"
	"time"

	"github.com/swiftbundler/bundler/internal/berr"
)

// Context supplies the values of the well-known variables for one
// evaluation pass. Zero values expand to the empty string; the
// PRODUCT_NAME-derived variables are computed on demand from ProductName.
type Context struct {
	CommitHash             string
	RevisionNumber         string
	Version                string
	MarketingVersion       string
	CurrentProjectVersion  string
	ProductBundleIdentifier string
	ProductName            string
	Now                    func() time.Time
}

// Evaluator resolves a single variable name to its expansion, or returns an
// error (berr.Variable/"unknownName") if the name isn't recognised.
type Evaluator func(name string) (string, error)

// Default builds an Evaluator backed by ctx, implementing every well-known
// variable from spec §4.5.
func Default(ctx Context) Evaluator {
	now := ctx.Now
	if now == nil {
		now = time.Now
	}
	return func(name string) (string, error) {
		switch name {
		case "COMMIT_HASH":
			return ctx.CommitHash, nil
		case "REVISION_NUMBER":
			return ctx.RevisionNumber, nil
		case "VERSION":
			return ctx.Version, nil
		case "MARKETING_VERSION":
			return ctx.MarketingVersion, nil
		case "CURRENT_PROJECT_VERSION":
			return ctx.CurrentProjectVersion, nil
		case "PRODUCT_BUNDLE_IDENTIFIER":
			return ctx.ProductBundleIdentifier, nil
		case "PRODUCT_NAME":
			return ctx.ProductName, nil
		case "PRODUCT_NAME:rfc1034identifier":
			return rfc1034(ctx.ProductName, '-'), nil
		case "PRODUCT_BUNDLE_PACKAGE_TYPE":
			return "APPL", nil
		case "DEVELOPMENT_LANGUAGE":
			return "en", nil
		case "PRODUCT_MODULE_NAME":
			return rfc1034(ctx.ProductName, '_'), nil
		case "SRCROOT":
			return ".", nil
		case "UNIX_TIMESTAMP":
			return strconv.FormatInt(now().Unix(), 10), nil
		default:
			return "", berr.New(berr.Variable, "unknown variable %q", name).With("name", name)
		}
	}
}

// rfc1034 replaces every character not in [A-Za-z0-9] with replacement,
// matching Xcode's :rfc1034identifier / module-name transforms.
func rfc1034(s string, replacement rune) string {
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			return r
		default:
			return replacement
		}
	}, s)
}

// Evaluate expands every $(VAR) token in s using eval. Unmatched brackets
// produce berr.Variable/"unmatchedBrackets"; an unknown variable's error is
// wrapped as berr.Variable/"customEvaluatorFailed" and propagated.
func Evaluate(s string, eval Evaluator) (string, error) {
	var out strings.Builder
	i := 0
	for i < len(s) {
		start := strings.Index(s[i:], "$(")
		if start < 0 {
			out.WriteString(s[i:])
			break
		}
		start += i
		out.WriteString(s[i:start])
		end := strings.IndexByte(s[start+2:], ')')
		if end < 0 {
			return "", berr.New(berr.Variable, "unmatched brackets in %q", s).With("input", s)
		}
		end += start + 2
		name := s[start+2 : end]
		value, err := eval(name)
		if err != nil {
			return "", berr.Wrap(berr.Variable, err, "evaluating %q", name).With("input", s)
		}
		out.WriteString(value)
		i = end + 1
	}
	return out.String(), nil
}

// Tree is the JSON-like shape (string/array/map leaves) EvaluateTree walks
// recursively, replacing only string leaves.
type Tree = any

// EvaluateTree recursively expands every string leaf in v (a tree of
// string/[]any/map[string]any values), leaving non-string leaves untouched.
func EvaluateTree(v Tree, eval Evaluator) (Tree, error) {
	switch t := v.(type) {
	case string:
		return Evaluate(t, eval)
	case []any:
		out := make([]any, len(t))
		for i, e := range t {
			r, err := EvaluateTree(e, eval)
			if err != nil {
				return nil, err
			}
			out[i] = r
		}
		return out, nil
	case map[string]any:
		out := make(map[string]any, len(t))
		for k, e := range t {
			r, err := EvaluateTree(e, eval)
			if err != nil {
				return nil, err
			}
			out[k] = r
		}
		return out, nil
	default:
		return v, nil
	}
}
