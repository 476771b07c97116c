// Package checksum computes the content digests used as note ETags.
package checksum

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
)

// Sum returns the hex-encoded SHA-256 digest of data.
func Sum(data []byte) string {
	h := sha256.Sum256(data)
	return hex.EncodeToString(h[:])
}

// Matches reports whether want (optionally quoted, as in an If-Match header)
// is the digest of data. An empty want always matches.
func Matches(data []byte, want string) bool {
	want = strings.Trim(strings.TrimSpace(want), `"`)
	if want == "" {
		return true
	}
	return strings.EqualFold(want, Sum(data))
}
