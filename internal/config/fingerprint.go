package config

import (
	"strings"

	"github.com/redmine-cli/rdm/internal/hash"
)

// shortFingerprintLen is the truncated digest length used in file
// names; the full digest is still stored and compared.
const shortFingerprintLen = 12

// Identity pins cached server data to one {url, api key} pair, so a
// cache produced for one account can never answer for another.
type Identity struct {
	// URL is the normalized base URL (no trailing slash).
	URL string `json:"url"`

	// Digest is the full hex SHA-256 over the normalized url and key.
	Digest string `json:"digest"`
}

// NewIdentity derives the identity for a server account.
func NewIdentity(url, apiKey string) Identity {
	normalized := strings.TrimRight(strings.TrimSpace(url), "/")
	return Identity{
		URL:    normalized,
		Digest: hash.StringHash(normalized + "\x00" + apiKey),
	}
}

// Short returns the truncated digest used in cache file names.
func (i Identity) Short() string {
	if len(i.Digest) < shortFingerprintLen {
		return i.Digest
	}
	return i.Digest[:shortFingerprintLen]
}

// Matches reports whether two identities refer to the same account.
func (i Identity) Matches(other Identity) bool {
	return i.Digest != "" && i.Digest == other.Digest
}
