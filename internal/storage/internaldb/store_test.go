package internaldb

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bobmcallan/stance/internal/common"
	"github.com/bobmcallan/stance/internal/models"
)

func newUnitTestStore(t *testing.T) *Store {
	t.Helper()
	dir := t.TempDir()
	store, err := NewStore(common.NewSilentLogger(), dir)
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

func newEntry(key string, expires time.Time) *models.CacheEntry {
	return &models.CacheEntry{
		Key:        key,
		Value:      []byte(`{"overall_stance":"Improving"}`),
		TTLSeconds: 60,
		StoredAt:   time.Now(),
		ExpiresAt:  expires,
		TierOrigin: models.TierDisk,
	}
}

func TestCacheEntryCRUD(t *testing.T) {
	store := newUnitTestStore(t)
	ctx := context.Background()
	expires := time.Now().Add(time.Hour).Truncate(time.Second)

	require.NoError(t, store.Set(ctx, newEntry("analysis:TCS", expires)))

	got, err := store.Get(ctx, "analysis:TCS")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, `{"overall_stance":"Improving"}`, string(got.Value))
	assert.True(t, got.ExpiresAt.Equal(expires))
	assert.Equal(t, models.TierDisk, got.TierOrigin)

	require.NoError(t, store.Delete(ctx, "analysis:TCS"))
	got, err = store.Get(ctx, "analysis:TCS")
	require.NoError(t, err)
	assert.Nil(t, got)

	// Deleting a missing key is not an error
	assert.NoError(t, store.Delete(ctx, "analysis:TCS"))
}

func TestExpiredEntryIsMiss(t *testing.T) {
	store := newUnitTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.Set(ctx, newEntry("insights:TCS", time.Now().Add(-time.Second))))
	got, err := store.Get(ctx, "insights:TCS")
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestCleanupRemovesExpired(t *testing.T) {
	store := newUnitTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.Set(ctx, newEntry("analysis:OLD1", time.Now().Add(-time.Hour))))
	require.NoError(t, store.Set(ctx, newEntry("analysis:OLD2", time.Now().Add(-time.Minute))))
	require.NoError(t, store.Set(ctx, newEntry("analysis:NEW", time.Now().Add(time.Hour))))

	n, err := store.Cleanup(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	got, err := store.Get(ctx, "analysis:NEW")
	require.NoError(t, err)
	assert.NotNil(t, got)
}

func TestSurvivesReopen(t *testing.T) {
	dir := t.TempDir()
	ctx := context.Background()

	store, err := NewStore(common.NewSilentLogger(), dir)
	require.NoError(t, err)
	require.NoError(t, store.Set(ctx, newEntry("analysis:INFY", time.Now().Add(time.Hour))))
	require.NoError(t, store.Close())

	reopened, err := NewStore(common.NewSilentLogger(), dir)
	require.NoError(t, err)
	defer reopened.Close()

	got, err := reopened.Get(ctx, "analysis:INFY")
	require.NoError(t, err)
	require.NotNil(t, got)
}
