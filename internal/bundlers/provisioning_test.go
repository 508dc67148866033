package bundlers

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestMatchesAppID(t *testing.T) {
	require.True(t, matchesAppID("ABCDE12345.com.example.app", "com.example.app"))
	require.True(t, matchesAppID("ABCDE12345.*", "com.example.app"))
	require.False(t, matchesAppID("ABCDE12345.com.example.other", "com.example.app"))
	require.False(t, matchesAppID("no-dot-here", "com.example.app"))
}

func TestProvisioningProfileSigningIdentityRequiresCertificate(t *testing.T) {
	_, err := provisioningProfile{Path: "profile.mobileprovision"}.signingIdentity()
	require.Error(t, err)
}
