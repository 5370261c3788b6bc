// Package internaldb implements the durable disk cache tier using BadgerHold.
// Entries survive restarts; expired rows are removed lazily on read and in
// bulk by Cleanup.
package internaldb

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/bobmcallan/stance/internal/common"
	"github.com/bobmcallan/stance/internal/models"
	"github.com/timshannon/badgerhold/v4"
)

// cacheRecord is the stored form of a models.CacheEntry. Expiry is kept as
// unix nanoseconds so range queries compare integers.
type cacheRecord struct {
	Key        string
	Value      []byte
	TTLSeconds int64
	StoredAt   time.Time
	ExpiresAt  int64
	TierOrigin string
}

// Store implements interfaces.CacheTier using BadgerHold.
type Store struct {
	db     *badgerhold.Store
	logger *common.Logger
	now    func() time.Time
}

// NewStore opens (or creates) the disk tier at path.
func NewStore(logger *common.Logger, path string) (*Store, error) {
	if err := os.MkdirAll(path, 0755); err != nil {
		return nil, fmt.Errorf("failed to create cache db path %s: %w", path, err)
	}
	opts := badgerhold.DefaultOptions
	opts.Dir = path
	opts.ValueDir = path
	opts.Logger = nil
	db, err := badgerhold.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("failed to open cache db at %s: %w", path, err)
	}
	logger.Info().Str("path", path).Msg("Disk cache opened")
	return &Store{db: db, logger: logger, now: time.Now}, nil
}

func (s *Store) Name() models.CacheTier { return models.TierDisk }

func (s *Store) Get(_ context.Context, key string) (*models.CacheEntry, error) {
	var rec cacheRecord
	if err := s.db.Get(key, &rec); err != nil {
		if err == badgerhold.ErrNotFound {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get cache entry '%s': %w", key, err)
	}

	entry := rec.toEntry()
	if entry.Expired(s.now()) {
		if err := s.db.Delete(key, cacheRecord{}); err != nil && err != badgerhold.ErrNotFound {
			s.logger.Warn().Str("key", key).Err(err).Msg("Failed to delete expired cache entry")
		}
		return nil, nil
	}
	return entry, nil
}

func (s *Store) Set(_ context.Context, entry *models.CacheEntry) error {
	rec := cacheRecord{
		Key:        entry.Key,
		Value:      entry.Value,
		TTLSeconds: entry.TTLSeconds,
		StoredAt:   entry.StoredAt,
		ExpiresAt:  entry.ExpiresAt.UnixNano(),
		TierOrigin: string(entry.TierOrigin),
	}
	if err := s.db.Upsert(entry.Key, rec); err != nil {
		return fmt.Errorf("failed to save cache entry '%s': %w", entry.Key, err)
	}
	return nil
}

func (s *Store) Delete(_ context.Context, key string) error {
	if err := s.db.Delete(key, cacheRecord{}); err != nil && err != badgerhold.ErrNotFound {
		return fmt.Errorf("failed to delete cache entry '%s': %w", key, err)
	}
	return nil
}

// Cleanup deletes every expired row.
func (s *Store) Cleanup(_ context.Context) (int, error) {
	var expired []cacheRecord
	if err := s.db.Find(&expired, badgerhold.Where("ExpiresAt").Le(s.now().UnixNano())); err != nil {
		return 0, fmt.Errorf("failed to find expired cache entries: %w", err)
	}
	removed := 0
	for _, rec := range expired {
		if err := s.db.Delete(rec.Key, cacheRecord{}); err != nil && err != badgerhold.ErrNotFound {
			return removed, fmt.Errorf("failed to delete cache entry '%s': %w", rec.Key, err)
		}
		removed++
	}
	if removed > 0 {
		s.logger.Debug().Int("removed", removed).Msg("Disk cache cleanup")
	}
	return removed, nil
}

func (s *Store) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

func (r *cacheRecord) toEntry() *models.CacheEntry {
	return &models.CacheEntry{
		Key:        r.Key,
		Value:      r.Value,
		TTLSeconds: r.TTLSeconds,
		StoredAt:   r.StoredAt,
		ExpiresAt:  time.Unix(0, r.ExpiresAt).UTC(),
		TierOrigin: models.CacheTier(r.TierOrigin),
	}
}
