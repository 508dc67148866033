package bundlers

import (
	"crypto/sha1"
	"encoding/hex"
	"path/filepath"
	"time"

	homedir "github.com/mitchellh/go-homedir"
	"howett.net/plist"

	"github.com/swiftbundler/bundler/internal/berr"
	"github.com/swiftbundler/bundler/internal/fsops"
	"github.com/swiftbundler/bundler/internal/procrunner"
)

// provisioningProfile is the subset of a decoded .mobileprovision plist this
// bundler cares about (SPEC_FULL.md "Provisioning-profile selection by
// expiration + app-id match"), grounded on gogio's signIOS PlistBuddy reads.
type provisioningProfile struct {
	Path                  string
	ExpirationDate        time.Time          `plist:"ExpirationDate"`
	DeveloperCertificates [][]byte           `plist:"DeveloperCertificates"`
	Entitlements          map[string]any     `plist:"Entitlements"`
}

func (p provisioningProfile) appIDPrefix() string {
	prefixes, _ := p.Entitlements["application-identifier"].(string)
	return prefixes
}

// findProvisioningProfile scans ~/Library/MobileDevice/Provisioning Profiles
// for an unexpired profile whose entitlements "application-identifier"
// matches "<teamPrefix>.<bundleID>", decoding each with "security cms -D"
// (there is no way to parse the CMS signature in pure Go without vendoring a
// PKCS#7 library the example pack never imports, so the external tool stays
// the right call here per spec.md's "external collaborators" list).
func findProvisioningProfile(runner *procrunner.Runner, bundleID string) (provisioningProfile, error) {
	home, err := homedir.Dir()
	if err != nil {
		return provisioningProfile{}, berr.Wrap(berr.Filesystem, err, "resolving home directory")
	}
	pattern := filepath.Join(home, "Library", "MobileDevice", "Provisioning Profiles", "*.mobileprovision")
	candidates, err := fsops.Glob(filepath.Dir(pattern), "*.mobileprovision")
	if err != nil {
		return provisioningProfile{}, err
	}

	var tried []string
	for _, path := range candidates {
		decoded, err := runner.RunRaw("security", "cms", "-D", "-i", path)
		if err != nil {
			continue // unreadable profile: skip rather than fail the whole search.
		}
		var prof provisioningProfile
		if err := plist.Unmarshal([]byte(decoded.Stdout), &prof); err != nil {
			continue
		}
		prof.Path = path
		if prof.ExpirationDate.Before(time.Now()) {
			continue
		}
		tried = append(tried, prof.appIDPrefix())
		if matchesAppID(prof.appIDPrefix(), bundleID) {
			return prof, nil
		}
	}
	return provisioningProfile{}, berr.New(berr.CodeSigning, "no valid provisioning profile found for bundle id %q among %v", bundleID, tried).With("bundleID", bundleID)
}

// matchesAppID compares a profile's "TEAMID.bundleID" (or wildcard
// "TEAMID.*") entitlement against the bundle identifier being signed.
func matchesAppID(entitlement, bundleID string) bool {
	for i := 0; i < len(entitlement); i++ {
		if entitlement[i] != '.' {
			continue
		}
		suffix := entitlement[i+1:]
		return suffix == "*" || suffix == bundleID
	}
	return false
}

// signingIdentity derives the SHA-1 codesign identity hash from the
// profile's leading developer certificate, mirroring gogio's
// `sha1.Sum(certDER)` call in signIOS.
func (p provisioningProfile) signingIdentity() (string, error) {
	if len(p.DeveloperCertificates) == 0 {
		return "", berr.New(berr.CodeSigning, "provisioning profile %s carries no developer certificates", p.Path).With("path", p.Path)
	}
	sum := sha1.Sum(p.DeveloperCertificates[0])
	return hex.EncodeToString(sum[:]), nil
}
