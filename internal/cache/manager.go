// Package cache persists the per-server activity enumeration between
// invocations, so name resolution does not pay a network round-trip on
// every command.
package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"go.uber.org/zap"

	"github.com/redmine-cli/rdm/internal/config"
	"github.com/redmine-cli/rdm/internal/observability"
	"github.com/redmine-cli/rdm/internal/redmine"
)

// DefaultTTL is how long a cached activity list stays fresh.
const DefaultTTL = 24 * time.Hour

// Helper function to get current time (useful for testing)
var now = time.Now

// Fetcher retrieves the full activity enumeration from the server.
type Fetcher func(ctx context.Context) ([]redmine.Activity, error)

// Manager handles the cached activity enumeration. Files are scoped by
// identity fingerprint; concurrent writers race benignly because the
// replace is a whole-file rename (last writer wins).
type Manager struct {
	dir     string
	ttl     time.Duration
	fetch   Fetcher
	logger  *zap.SugaredLogger
	tracing *observability.TracingManager
}

// NewManager creates a cache manager rooted at dir.
func NewManager(dir string, fetch Fetcher, logger *zap.SugaredLogger) *Manager {
	return &Manager{
		dir:     dir,
		ttl:     DefaultTTL,
		fetch:   fetch,
		logger:  logger,
		tracing: observability.NewDisabled(),
	}
}

// SetTTL overrides the freshness window.
func (m *Manager) SetTTL(ttl time.Duration) {
	if ttl > 0 {
		m.ttl = ttl
	}
}

// SetTracing attaches a tracing manager.
func (m *Manager) SetTracing(tm *observability.TracingManager) {
	if tm != nil {
		m.tracing = tm
	}
}

// FilePath returns the cache file for one server account.
func (m *Manager) FilePath(identity config.Identity) string {
	return filepath.Join(m.dir, fmt.Sprintf("activities-%s.json", identity.Short()))
}

// Get returns the cached entry for the identity, if one exists, belongs
// to that identity, and is still fresh. Any unreadable or corrupt file
// is a miss, never an error; the next refresh silently replaces it.
func (m *Manager) Get(identity config.Identity) (*Entry, bool) {
	path := m.FilePath(identity)

	data, err := os.ReadFile(path)
	if err != nil {
		if !os.IsNotExist(err) {
			m.logger.Debugw("cache file unreadable, treating as miss", "path", path, "error", err)
		}
		return nil, false
	}

	var entry Entry
	if err := json.Unmarshal(data, &entry); err != nil {
		m.logger.Debugw("cache file corrupt, treating as miss", "path", path, "error", err)
		return nil, false
	}

	if !entry.MatchesIdentity(identity) {
		m.logger.Debugw("cache entry belongs to a different server identity, treating as miss",
			"path", path)
		return nil, false
	}

	if entry.IsExpired(now(), m.ttl) {
		m.logger.Debugw("cache entry expired, treating as miss",
			"path", path,
			"age", entry.Age(now()).String())
		return nil, false
	}

	return &entry, true
}

// Refresh fetches the activity list from the server and atomically
// replaces the cache file: write to a temp file in the same directory,
// fsync, then rename over the old file. Readers always see either the
// old complete file or the new complete file.
func (m *Manager) Refresh(ctx context.Context, identity config.Identity) (*Entry, error) {
	ctx, span := m.tracing.TraceCacheRefresh(ctx, identity.Short())
	defer span.End()

	activities, err := m.fetch(ctx)
	if err != nil {
		m.tracing.SetSpanError(ctx, err)
		return nil, err
	}

	entry := &Entry{
		CachedAt:       now(),
		TTLSeconds:     int64(m.ttl / time.Second),
		ServerIdentity: identity.Digest,
		ServerURL:      identity.URL,
		Activities:     activities,
	}

	if err := m.writeAtomic(m.FilePath(identity), entry); err != nil {
		return nil, fmt.Errorf("failed to persist activity cache: %w", err)
	}

	m.logger.Debugw("activity cache refreshed",
		"identity", identity.Short(),
		"activities", len(activities))

	return entry, nil
}

// ResolveOrRefresh returns a fresh cached entry when one exists, and
// refreshes from the server otherwise.
func (m *Manager) ResolveOrRefresh(ctx context.Context, identity config.Identity) (*Entry, error) {
	if entry, ok := m.Get(identity); ok {
		return entry, nil
	}
	return m.Refresh(ctx, identity)
}

func (m *Manager) writeAtomic(path string, entry *Entry) error {
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return fmt.Errorf("failed to create cache directory: %w", err)
	}

	data, err := json.MarshalIndent(entry, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode cache entry: %w", err)
	}

	// The temp file must live in the target directory so the rename
	// stays on one filesystem.
	tmp, err := os.CreateTemp(filepath.Dir(path), filepath.Base(path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("failed to create temp cache file: %w", err)
	}
	tmpName := tmp.Name()

	cleanup := func() {
		tmp.Close()
		os.Remove(tmpName)
	}

	if _, err := tmp.Write(data); err != nil {
		cleanup()
		return fmt.Errorf("failed to write temp cache file: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		cleanup()
		return fmt.Errorf("failed to sync temp cache file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to close temp cache file: %w", err)
	}

	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to replace cache file: %w", err)
	}
	return nil
}
