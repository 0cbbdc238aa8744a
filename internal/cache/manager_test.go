package cache

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/redmine-cli/rdm/internal/config"
	"github.com/redmine-cli/rdm/internal/redmine"
)

var testActivities = []redmine.Activity{
	{ID: 8, Name: "Design"},
	{ID: 9, Name: "Development", IsDefault: true},
	{ID: 10, Name: "Review"},
}

// countingFetcher records how many times the server was consulted.
type countingFetcher struct {
	calls      int
	activities []redmine.Activity
	err        error
}

func (f *countingFetcher) fetch(_ context.Context) ([]redmine.Activity, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return f.activities, nil
}

func newTestManager(t *testing.T) (*Manager, *countingFetcher) {
	t.Helper()
	fetcher := &countingFetcher{activities: testActivities}
	manager := NewManager(t.TempDir(), fetcher.fetch, zap.NewNop().Sugar())
	return manager, fetcher
}

func testIdentity() config.Identity {
	return config.NewIdentity("https://redmine.example.com", "key-one")
}

func TestGetMissWhenNoFile(t *testing.T) {
	manager, _ := newTestManager(t)

	_, ok := manager.Get(testIdentity())
	assert.False(t, ok)
}

func TestRefreshThenGet(t *testing.T) {
	manager, fetcher := newTestManager(t)
	identity := testIdentity()

	entry, err := manager.Refresh(context.Background(), identity)
	require.NoError(t, err)
	assert.Equal(t, testActivities, entry.Activities)
	assert.Equal(t, identity.Digest, entry.ServerIdentity)
	assert.Equal(t, 1, fetcher.calls)

	// The file name carries the short fingerprint.
	assert.FileExists(t, manager.FilePath(identity))
	assert.Contains(t, manager.FilePath(identity), "activities-"+identity.Short()+".json")

	cached, ok := manager.Get(identity)
	require.True(t, ok)
	assert.Equal(t, testActivities, cached.Activities)
}

func TestResolveOrRefreshUsesFreshCache(t *testing.T) {
	manager, fetcher := newTestManager(t)
	identity := testIdentity()

	_, err := manager.ResolveOrRefresh(context.Background(), identity)
	require.NoError(t, err)
	require.Equal(t, 1, fetcher.calls)

	_, err = manager.ResolveOrRefresh(context.Background(), identity)
	require.NoError(t, err)
	assert.Equal(t, 1, fetcher.calls, "a fresh cache entry must not hit the server")
}

func TestExpiredEntryTriggersOneRefresh(t *testing.T) {
	manager, fetcher := newTestManager(t)
	identity := testIdentity()

	stale := &Entry{
		CachedAt:       time.Now().Add(-25 * time.Hour),
		TTLSeconds:     int64(DefaultTTL / time.Second),
		ServerIdentity: identity.Digest,
		ServerURL:      identity.URL,
		Activities:     testActivities,
	}
	require.NoError(t, manager.writeAtomic(manager.FilePath(identity), stale))

	_, ok := manager.Get(identity)
	assert.False(t, ok, "an entry past its TTL is a miss")

	entry, err := manager.ResolveOrRefresh(context.Background(), identity)
	require.NoError(t, err)
	assert.Equal(t, 1, fetcher.calls, "exactly one refresh for an expired entry")
	assert.False(t, entry.IsExpired(time.Now(), DefaultTTL))
}

func TestCorruptFileIsMissNotError(t *testing.T) {
	manager, fetcher := newTestManager(t)
	identity := testIdentity()

	require.NoError(t, os.MkdirAll(manager.dir, 0700))
	require.NoError(t, os.WriteFile(manager.FilePath(identity), []byte("{not json"), 0600))

	_, ok := manager.Get(identity)
	assert.False(t, ok)

	// The corrupt file is silently replaced by the next refresh.
	entry, err := manager.ResolveOrRefresh(context.Background(), identity)
	require.NoError(t, err)
	assert.Equal(t, 1, fetcher.calls)
	assert.Equal(t, testActivities, entry.Activities)

	data, err := os.ReadFile(manager.FilePath(identity))
	require.NoError(t, err)
	var reread Entry
	require.NoError(t, json.Unmarshal(data, &reread))
	assert.Equal(t, identity.Digest, reread.ServerIdentity)
}

func TestEntryForOneIdentityNeverServesAnother(t *testing.T) {
	manager, fetcher := newTestManager(t)
	identityA := config.NewIdentity("https://redmine.example.com", "key-a")
	identityB := config.NewIdentity("https://redmine.example.com", "key-b")

	_, err := manager.Refresh(context.Background(), identityA)
	require.NoError(t, err)

	// Different identity, different file: B misses and refreshes.
	_, ok := manager.Get(identityB)
	assert.False(t, ok)

	_, err = manager.ResolveOrRefresh(context.Background(), identityB)
	require.NoError(t, err)
	assert.Equal(t, 2, fetcher.calls)

	// Even with A's entry copied over B's file, the stored identity
	// digest does not match and the entry is rejected.
	dataA, err := os.ReadFile(manager.FilePath(identityA))
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(manager.FilePath(identityB), dataA, 0600))

	_, ok = manager.Get(identityB)
	assert.False(t, ok, "an entry fingerprinted for A must never answer for B")
}

func TestRefreshPropagatesFetchFailure(t *testing.T) {
	manager, fetcher := newTestManager(t)
	fetcher.err = errors.New("boom")
	identity := testIdentity()

	_, err := manager.Refresh(context.Background(), identity)
	require.Error(t, err)
	assert.NoFileExists(t, manager.FilePath(identity), "a failed refresh must not write a file")
}

func TestRefreshReplacesAtomically(t *testing.T) {
	manager, fetcher := newTestManager(t)
	identity := testIdentity()

	_, err := manager.Refresh(context.Background(), identity)
	require.NoError(t, err)

	fetcher.activities = []redmine.Activity{{ID: 11, Name: "QA"}}
	_, err = manager.Refresh(context.Background(), identity)
	require.NoError(t, err)

	entry, ok := manager.Get(identity)
	require.True(t, ok)
	assert.Equal(t, []redmine.Activity{{ID: 11, Name: "QA"}}, entry.Activities)

	// No stray temp files left behind.
	dirEntries, err := os.ReadDir(manager.dir)
	require.NoError(t, err)
	assert.Len(t, dirEntries, 1)
}

func TestCustomTTLRecordedInEntry(t *testing.T) {
	manager, _ := newTestManager(t)
	manager.SetTTL(time.Hour)
	identity := testIdentity()

	entry, err := manager.Refresh(context.Background(), identity)
	require.NoError(t, err)
	assert.Equal(t, int64(3600), entry.TTLSeconds)

	// The recorded TTL governs expiry, not the manager default.
	assert.True(t, entry.IsExpired(entry.CachedAt.Add(61*time.Minute), DefaultTTL))
	assert.False(t, entry.IsExpired(entry.CachedAt.Add(59*time.Minute), DefaultTTL))
}
