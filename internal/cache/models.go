package cache

import (
	"time"

	"github.com/redmine-cli/rdm/internal/config"
	"github.com/redmine-cli/rdm/internal/redmine"
)

// Entry is the on-disk cache document for one server account's
// activity enumeration.
type Entry struct {
	CachedAt       time.Time          `json:"cached_at"`
	TTLSeconds     int64              `json:"ttl_secs"`
	ServerIdentity string             `json:"server_identity"` // full digest
	ServerURL      string             `json:"server_url"`
	Activities     []redmine.Activity `json:"activities"`
}

// TTL returns the entry's recorded lifetime, falling back to the given
// default for entries written without one.
func (e *Entry) TTL(fallback time.Duration) time.Duration {
	if e.TTLSeconds > 0 {
		return time.Duration(e.TTLSeconds) * time.Second
	}
	return fallback
}

// IsExpired checks whether the entry has outlived its TTL.
func (e *Entry) IsExpired(now time.Time, fallback time.Duration) bool {
	return now.Sub(e.CachedAt) >= e.TTL(fallback)
}

// MatchesIdentity reports whether the entry was produced for the given
// server account. An entry for one account never answers for another.
func (e *Entry) MatchesIdentity(identity config.Identity) bool {
	return e.ServerIdentity != "" && e.ServerIdentity == identity.Digest
}

// Age returns how long ago the entry was written.
func (e *Entry) Age(now time.Time) time.Duration {
	return now.Sub(e.CachedAt)
}
