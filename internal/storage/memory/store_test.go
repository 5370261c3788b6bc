package memory

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bobmcallan/stance/internal/models"
)

var base = time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)

func entryFor(key string, ttl time.Duration) *models.CacheEntry {
	return &models.CacheEntry{
		Key:        key,
		Value:      []byte(`{"symbol":"TCS"}`),
		TTLSeconds: int64(ttl.Seconds()),
		StoredAt:   base,
		ExpiresAt:  base.Add(ttl),
		TierOrigin: models.TierMemory,
	}
}

func TestStore_GetSet(t *testing.T) {
	ctx := context.Background()
	s := NewStore(10).WithClock(func() time.Time { return base })

	require.NoError(t, s.Set(ctx, entryFor("analysis:TCS", time.Minute)))

	got, err := s.Get(ctx, "analysis:TCS")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, `{"symbol":"TCS"}`, string(got.Value))

	miss, err := s.Get(ctx, "analysis:INFY")
	require.NoError(t, err)
	assert.Nil(t, miss)
}

func TestStore_LazyExpiry(t *testing.T) {
	ctx := context.Background()
	now := base
	s := NewStore(10).WithClock(func() time.Time { return now })

	require.NoError(t, s.Set(ctx, entryFor("analysis:TCS", time.Minute)))
	now = base.Add(time.Minute)

	got, err := s.Get(ctx, "analysis:TCS")
	require.NoError(t, err)
	assert.Nil(t, got)
	assert.Equal(t, 0, s.Len())
}

func TestStore_EvictsOldestInsert(t *testing.T) {
	ctx := context.Background()
	s := NewStore(2).WithClock(func() time.Time { return base })

	require.NoError(t, s.Set(ctx, entryFor("a", time.Minute)))
	require.NoError(t, s.Set(ctx, entryFor("b", time.Minute)))
	require.NoError(t, s.Set(ctx, entryFor("a", time.Minute))) // update in place
	require.NoError(t, s.Set(ctx, entryFor("c", time.Minute)))

	assert.Equal(t, 2, s.Len())
	gone, _ := s.Get(ctx, "b")
	assert.Nil(t, gone)
	kept, _ := s.Get(ctx, "a")
	assert.NotNil(t, kept)
}

func TestStore_Cleanup(t *testing.T) {
	ctx := context.Background()
	now := base
	s := NewStore(10).WithClock(func() time.Time { return now })

	require.NoError(t, s.Set(ctx, entryFor("short", time.Second)))
	require.NoError(t, s.Set(ctx, entryFor("long", time.Hour)))
	now = base.Add(time.Minute)

	n, err := s.Cleanup(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.Equal(t, 1, s.Len())
}

func TestStore_ConcurrentAccess(t *testing.T) {
	ctx := context.Background()
	s := NewStore(50)

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			key := fmt.Sprintf("k%d", i%5)
			e := &models.CacheEntry{Key: key, ExpiresAt: time.Now().Add(time.Minute)}
			_ = s.Set(ctx, e)
			_, _ = s.Get(ctx, key)
			_ = s.Delete(ctx, key)
		}(i)
	}
	wg.Wait()
}
