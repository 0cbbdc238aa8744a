// Package hash provides the digest helper behind identity
// fingerprints and cache file naming.
package hash

import (
	"crypto/sha256"
	"encoding/hex"
)

// StringHash computes the hex SHA-256 digest of a string.
func StringHash(input string) string {
	sum := sha256.Sum256([]byte(input))
	return hex.EncodeToString(sum[:])
}
