package surrealdb

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bobmcallan/stance/internal/common"
	"github.com/bobmcallan/stance/internal/models"
	tcommon "github.com/bobmcallan/stance/tests/common"
)

func newTestCacheStore(t *testing.T) *CacheStore {
	t.Helper()
	db := testDB(t)
	store, err := NewCacheStore(context.Background(), db, testLogger(), 5*time.Second)
	require.NoError(t, err)
	return store
}

func TestCacheStore_SetGetDelete(t *testing.T) {
	store := newTestCacheStore(t)
	ctx := context.Background()

	entry := &models.CacheEntry{
		Key:        "analysis:TCS",
		Value:      []byte(`{"symbol":"TCS"}`),
		TTLSeconds: 3600,
		StoredAt:   time.Now().UTC(),
		ExpiresAt:  time.Now().UTC().Add(time.Hour),
		TierOrigin: models.TierShared,
	}
	require.NoError(t, store.Set(ctx, entry))

	got, err := store.Get(ctx, "analysis:TCS")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, entry.Value, got.Value)
	assert.Equal(t, models.TierShared, got.TierOrigin)

	// Overwrite
	entry.Value = []byte(`{"symbol":"TCS","v":2}`)
	require.NoError(t, store.Set(ctx, entry))
	got, err = store.Get(ctx, "analysis:TCS")
	require.NoError(t, err)
	assert.Equal(t, entry.Value, got.Value)

	require.NoError(t, store.Delete(ctx, "analysis:TCS"))
	got, err = store.Get(ctx, "analysis:TCS")
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestCacheStore_Cleanup(t *testing.T) {
	store := newTestCacheStore(t)
	ctx := context.Background()
	now := time.Now().UTC()

	for key, expires := range map[string]time.Time{
		"analysis:OLD": now.Add(-time.Hour),
		"insights:OLD": now.Add(-time.Minute),
		"analysis:NEW": now.Add(time.Hour),
	} {
		require.NoError(t, store.Set(ctx, &models.CacheEntry{Key: key, Value: []byte("{}"), ExpiresAt: expires}))
	}

	expired, err := store.Get(ctx, "analysis:OLD")
	require.NoError(t, err)
	assert.Nil(t, expired, "expired rows read as a miss")

	n, err := store.Cleanup(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	got, err := store.Get(ctx, "analysis:NEW")
	require.NoError(t, err)
	assert.NotNil(t, got)
}

func TestConnect_UsesConfiguredDatabase(t *testing.T) {
	sc := tcommon.RequireSurrealDB(t)
	user, pass := sc.Credentials()
	ctx := context.Background()

	store, err := Connect(ctx, testLogger(), common.SharedCacheConfig{
		Enabled:   true,
		Address:   sc.Address(),
		Namespace: tcommon.Namespace(),
		Database:  "connect_" + time.Now().Format("150405"),
		Username:  user,
		Password:  pass,
		Timeout:   "5s",
	})
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	require.NoError(t, store.Set(ctx, &models.CacheEntry{Key: "search:TCS:10", Value: []byte("[]"), ExpiresAt: time.Now().Add(time.Minute)}))
	got, err := store.Get(ctx, "search:TCS:10")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, []byte("[]"), got.Value)
}

func TestConnect_BadCredentials(t *testing.T) {
	sc := tcommon.RequireSurrealDB(t)

	_, err := Connect(context.Background(), testLogger(), common.SharedCacheConfig{
		Address:   sc.Address(),
		Namespace: tcommon.Namespace(),
		Database:  "denied",
		Username:  "root",
		Password:  "wrong",
	})
	assert.Error(t, err)
}
