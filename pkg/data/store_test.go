package data

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupTestStore(t *testing.T, ttl time.Duration) Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.db")
	store, err := OpenSQLite(path, ttl)
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func TestOpenSQLite_CreatesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.db")
	store, err := OpenSQLite(path, time.Hour)
	require.NoError(t, err)
	defer store.Close()

	_, err = os.Stat(path)
	assert.NoError(t, err)
}

func TestOpenSQLite_EmptyPath(t *testing.T) {
	_, err := OpenSQLite("", time.Hour)
	assert.Error(t, err)
}

func TestOpen_DispatchesOnDSN(t *testing.T) {
	store, err := Open(filepath.Join(t.TempDir(), "test.db"), "", time.Hour)
	require.NoError(t, err)
	assert.NoError(t, store.Close())
}

func TestDuration_RoundTrip(t *testing.T) {
	store := setupTestStore(t, time.Hour)
	ctx := context.Background()

	_, ok, err := store.GetDuration(ctx, "osrm", "driving", "a", "b")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, store.PutDuration(ctx, "osrm", "driving", "a", "b", 1234.5))

	seconds, ok, err := store.GetDuration(ctx, "osrm", "driving", "a", "b")
	require.NoError(t, err)
	require.True(t, ok)
	assert.InDelta(t, 1234.5, seconds, 1e-9)

	// different mode is a different cache key
	_, ok, err = store.GetDuration(ctx, "osrm", "walking", "a", "b")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestDuration_Upsert(t *testing.T) {
	store := setupTestStore(t, time.Hour)
	ctx := context.Background()

	require.NoError(t, store.PutDuration(ctx, "osrm", "driving", "a", "b", 100))
	require.NoError(t, store.PutDuration(ctx, "osrm", "driving", "a", "b", 200))

	seconds, ok, err := store.GetDuration(ctx, "osrm", "driving", "a", "b")
	require.NoError(t, err)
	require.True(t, ok)
	assert.InDelta(t, 200, seconds, 1e-9)
}

func TestDuration_Validation(t *testing.T) {
	store := setupTestStore(t, time.Hour)
	assert.Error(t, store.PutDuration(context.Background(), "", "driving", "a", "b", 1))
	assert.Error(t, store.PutDuration(context.Background(), "osrm", "", "a", "b", 1))
}

func TestGeocode_RoundTrip(t *testing.T) {
	store := setupTestStore(t, time.Hour)
	ctx := context.Background()

	_, _, ok, err := store.GetGeocode(ctx, "nominatim", "1 Main St")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, store.PutGeocode(ctx, "nominatim", "1 Main St", 47.37, 8.54))

	lat, lng, ok, err := store.GetGeocode(ctx, "nominatim", "1 Main St")
	require.NoError(t, err)
	require.True(t, ok)
	assert.InDelta(t, 47.37, lat, 1e-9)
	assert.InDelta(t, 8.54, lng, 1e-9)
}

func TestTTL_ExpiredIsMiss(t *testing.T) {
	store := setupTestStore(t, time.Millisecond)
	ctx := context.Background()

	require.NoError(t, store.PutDuration(ctx, "osrm", "driving", "a", "b", 100))
	time.Sleep(1100 * time.Millisecond) // created_at has second resolution

	_, ok, err := store.GetDuration(ctx, "osrm", "driving", "a", "b")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestStats(t *testing.T) {
	store := setupTestStore(t, time.Hour)
	ctx := context.Background()

	require.NoError(t, store.PutDuration(ctx, "osrm", "driving", "a", "b", 1))
	require.NoError(t, store.PutDuration(ctx, "osrm", "driving", "a", "c", 2))
	require.NoError(t, store.PutGeocode(ctx, "nominatim", "a", 1, 2))

	stats, err := store.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(2), stats["duration"])
	assert.Equal(t, int64(1), stats["geocode"])
}

func TestPurge_All(t *testing.T) {
	store := setupTestStore(t, time.Hour)
	ctx := context.Background()

	require.NoError(t, store.PutDuration(ctx, "osrm", "driving", "a", "b", 1))
	require.NoError(t, store.PutGeocode(ctx, "nominatim", "a", 1, 2))

	removed, err := store.Purge(ctx, true)
	require.NoError(t, err)
	assert.Equal(t, int64(2), removed)

	stats, err := store.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(0), stats["duration"])
	assert.Equal(t, int64(0), stats["geocode"])
}

func TestPurge_ExpiredOnly(t *testing.T) {
	store := setupTestStore(t, time.Millisecond)
	ctx := context.Background()

	require.NoError(t, store.PutDuration(ctx, "osrm", "driving", "a", "b", 1))
	time.Sleep(1100 * time.Millisecond)

	removed, err := store.Purge(ctx, false)
	require.NoError(t, err)
	assert.Equal(t, int64(1), removed)
}
