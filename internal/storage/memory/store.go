// Package memory provides the in-process cache tier.
package memory

import (
	"context"
	"sync"
	"time"

	"github.com/bobmcallan/stance/internal/models"
)

// entry wraps a cache entry with insertion order tracking.
type entry struct {
	value     models.CacheEntry
	insertIdx int64
}

// Store is a bounded in-process cache tier. Expired entries are removed
// lazily on read and by Cleanup; at capacity the oldest insert is evicted.
// Thread-safe with sync.RWMutex.
type Store struct {
	mu         sync.RWMutex
	items      map[string]entry
	maxEntries int
	nextIdx    int64
	now        func() time.Time
}

// NewStore creates a memory tier holding at most maxEntries entries.
func NewStore(maxEntries int) *Store {
	if maxEntries < 1 {
		maxEntries = 1
	}
	return &Store{
		items:      make(map[string]entry),
		maxEntries: maxEntries,
		now:        time.Now,
	}
}

// WithClock replaces the time source. Used by tests.
func (s *Store) WithClock(now func() time.Time) *Store {
	s.now = now
	return s
}

func (s *Store) Name() models.CacheTier { return models.TierMemory }

// Get returns a copy of a live entry, or nil on miss.
func (s *Store) Get(_ context.Context, key string) (*models.CacheEntry, error) {
	s.mu.RLock()
	e, ok := s.items[key]
	s.mu.RUnlock()

	if !ok {
		return nil, nil
	}

	if e.value.Expired(s.now()) {
		s.mu.Lock()
		if e2, ok2 := s.items[key]; ok2 && e2.value.Expired(s.now()) {
			delete(s.items, key)
		}
		s.mu.Unlock()
		return nil, nil
	}

	out := e.value
	return &out, nil
}

// Set stores an entry, evicting the oldest insert when at capacity.
func (s *Store) Set(_ context.Context, ce *models.CacheEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	e := entry{value: *ce, insertIdx: s.nextIdx}
	s.nextIdx++

	if _, exists := s.items[ce.Key]; exists {
		s.items[ce.Key] = e
		return nil
	}

	if len(s.items) >= s.maxEntries {
		s.evictOldest()
	}

	s.items[ce.Key] = e
	return nil
}

func (s *Store) Delete(_ context.Context, key string) error {
	s.mu.Lock()
	delete(s.items, key)
	s.mu.Unlock()
	return nil
}

// Cleanup removes every expired entry.
func (s *Store) Cleanup(_ context.Context) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	removed := 0
	for key, e := range s.items {
		if e.value.Expired(now) {
			delete(s.items, key)
			removed++
		}
	}
	return removed, nil
}

// Len returns the number of held entries, expired or not.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.items)
}

func (s *Store) Close() error { return nil }

// evictOldest removes the entry with the lowest insertIdx. Must be called with mu held.
func (s *Store) evictOldest() {
	var oldestKey string
	var oldestIdx int64 = -1

	for key, e := range s.items {
		if oldestIdx == -1 || e.insertIdx < oldestIdx {
			oldestIdx = e.insertIdx
			oldestKey = key
		}
	}

	if oldestKey != "" {
		delete(s.items, oldestKey)
	}
}
