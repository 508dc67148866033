// Package guid implements the deterministic seeded GUID generator used for
// the MSI bundler's UpgradeCode (spec §4.9, testable property §8.6).
package guid

import (
	"crypto/sha256"
	"encoding/binary"
	"fmt"
)

// Random derives a GUID from seed: SHA-256 of the UTF-8 bytes, the first 16
// bytes read as two little-endian u64 halves, formatted as a standard
// XXXXXXXX-XXXX-XXXX-XXXX-XXXXXXXXXXXX GUID string. Same seed always yields
// the same GUID.
func Random(seed string) string {
	sum := sha256.Sum256([]byte(seed))
	hi := binary.LittleEndian.Uint64(sum[0:8])
	lo := binary.LittleEndian.Uint64(sum[8:16])

	// The two halves as 32 hex digits, split into the 8-4-4-4-12 groups.
	s := fmt.Sprintf("%016X%016X", hi, lo)
	return s[0:8] + "-" + s[8:12] + "-" + s[12:16] + "-" + s[16:20] + "-" + s[20:32]
}
