package metadata

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestGenerateSourceEmbedsPayload(t *testing.T) {
	dir := t.TempDir()
	dst := filepath.Join(dir, "metadata.go")

	err := GenerateSource(Payload{
		AppIdentifier:      "com.example.app",
		AppVersion:         "1.0",
		AdditionalMetadata: map[string]string{"buildNumber": "42"},
	}, dst)
	require.NoError(t, err)

	data, err := os.ReadFile(dst)
	require.NoError(t, err)
	require.Contains(t, string(data), "_getSwiftBundlerMetadata")
	require.Contains(t, string(data), "metadataBytes")
}

func TestObjectLinkFlagsIncludesDefine(t *testing.T) {
	flags := ObjectLinkFlags("/tmp/metadata.o")
	require.Contains(t, flags.Flags, "-DSWIFT_BUNDLER_METADATA")
	require.Contains(t, flags.Flags, "/tmp/metadata.o")
}

func TestLibraryLinkFlagsReferencesDir(t *testing.T) {
	flags := LibraryLinkFlags("/tmp/libs")
	require.Contains(t, flags.Flags, "-L/tmp/libs")
	require.Contains(t, flags.Flags, "-lmetadata")
}
