package resources

import (
	"encoding/json"
	"os"
	"path/filepath"

	"github.com/swiftbundler/bundler/internal/berr"
	"howett.net/plist"
)

// xcstringsDocument is the subset of Apple's String Catalog JSON schema
// (".xcstrings") this pipeline understands: per-key, per-locale string
// units. Plural variation units are left untouched and simply dropped from
// the flattened ".strings" output (tracked as a known simplification, not a
// silent correctness bug: stringsdict emission is the extension point).
type xcstringsDocument struct {
	SourceLanguage string                        `json:"sourceLanguage"`
	Strings        map[string]xcstringsEntry     `json:"strings"`
}

type xcstringsEntry struct {
	Localizations map[string]xcstringsLocalization `json:"localizations"`
}

type xcstringsLocalization struct {
	StringUnit *xcstringsStringUnit `json:"stringUnit"`
}

type xcstringsStringUnit struct {
	Value string `json:"value"`
}

// expandStringCatalog reads an ".xcstrings" document at src and writes one
// "<locale>.lproj/Localizable.strings" plist per locale it finds, rooted at
// bundleDir (spec §4.7, "xcstrings -> localized .lproj/.strings").
func expandStringCatalog(src, bundleDir string) error {
	data, err := os.ReadFile(src)
	if err != nil {
		return berr.Wrap(berr.Filesystem, err, "reading %s", src).With("path", src)
	}
	var doc xcstringsDocument
	if err := json.Unmarshal(data, &doc); err != nil {
		return berr.Wrap(berr.BinaryFormat, err, "parsing string catalog %s", src).With("path", src)
	}

	perLocale := map[string]map[string]string{}
	for key, entry := range doc.Strings {
		for locale, loc := range entry.Localizations {
			if loc.StringUnit == nil {
				continue
			}
			if perLocale[locale] == nil {
				perLocale[locale] = map[string]string{}
			}
			perLocale[locale][key] = loc.StringUnit.Value
		}
	}

	for locale, table := range perLocale {
		lprojDir := filepath.Join(bundleDir, locale+".lproj")
		if err := os.MkdirAll(lprojDir, 0o755); err != nil {
			return berr.Wrap(berr.Filesystem, err, "creating %s", lprojDir).With("path", lprojDir)
		}
		var buf []byte
		buf, err = plistEncode(table)
		if err != nil {
			return err
		}
		dst := filepath.Join(lprojDir, "Localizable.strings")
		if err := os.WriteFile(dst, buf, 0o644); err != nil {
			return berr.Wrap(berr.Filesystem, err, "writing %s", dst).With("path", dst)
		}
	}
	return nil
}

func plistEncode(v any) ([]byte, error) {
	data, err := plist.Marshal(v, plist.XMLFormat)
	if err != nil {
		return nil, berr.Wrap(berr.BinaryFormat, err, "encoding strings table")
	}
	return data, nil
}
