// Package surrealdb implements the shared network cache tier on SurrealDB.
package surrealdb

import (
	"context"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/bobmcallan/stance/internal/common"
	"github.com/bobmcallan/stance/internal/models"
	"github.com/surrealdb/surrealdb.go"
	surrealmodels "github.com/surrealdb/surrealdb.go/pkg/models"
)

const cacheTable = "cache_entry"

// Writes are retried this many times after the first attempt.
const writeRetries = 2

// writeBackOff spaces out write retries: 25ms, then 50ms, capped at 200ms,
// and stops as soon as ctx is done.
func writeBackOff(ctx context.Context) backoff.BackOff {
	eb := backoff.NewExponentialBackOff()
	eb.InitialInterval = 25 * time.Millisecond
	eb.MaxInterval = 200 * time.Millisecond
	eb.RandomizationFactor = 0
	eb.Multiplier = 2
	eb.Reset()
	return backoff.WithContext(backoff.WithMaxRetries(eb, writeRetries), ctx)
}

// cacheRecord is the stored form of a models.CacheEntry.
type cacheRecord struct {
	Key        string    `json:"key"`
	Value      []byte    `json:"value"`
	TTLSeconds int64     `json:"ttl_seconds"`
	StoredAt   time.Time `json:"stored_at"`
	ExpiresAt  time.Time `json:"expires_at"`
	TierOrigin string    `json:"tier_origin"`
}

// CacheStore implements interfaces.CacheTier on a SurrealDB table. Every
// operation is bounded by the configured timeout so a slow database costs
// a cache miss rather than a stalled request.
type CacheStore struct {
	db      *surrealdb.DB
	logger  *common.Logger
	timeout time.Duration
	now     func() time.Time
}

// Connect opens the SurrealDB connection described by cfg and returns a
// ready cache store.
func Connect(ctx context.Context, logger *common.Logger, cfg common.SharedCacheConfig) (*CacheStore, error) {
	db, err := surrealdb.New(cfg.Address)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to SurrealDB: %w", err)
	}

	if cfg.Username != "" {
		if _, err := db.SignIn(ctx, map[string]interface{}{
			"user": cfg.Username,
			"pass": cfg.Password,
		}); err != nil {
			db.Close(context.Background())
			return nil, fmt.Errorf("failed to sign in to SurrealDB: %w", err)
		}
	}

	if err := db.Use(ctx, cfg.Namespace, cfg.Database); err != nil {
		db.Close(context.Background())
		return nil, fmt.Errorf("failed to select namespace/database: %w", err)
	}

	store, err := NewCacheStore(ctx, db, logger, cfg.GetTimeout())
	if err != nil {
		db.Close(context.Background())
		return nil, err
	}

	logger.Info().
		Str("address", cfg.Address).
		Str("namespace", cfg.Namespace).
		Str("database", cfg.Database).
		Msg("Shared cache connected")
	return store, nil
}

// NewCacheStore wraps an existing connection and ensures the table exists.
func NewCacheStore(ctx context.Context, db *surrealdb.DB, logger *common.Logger, timeout time.Duration) (*CacheStore, error) {
	// SurrealDB v3 errors on querying non-existent tables
	sql := fmt.Sprintf("DEFINE TABLE IF NOT EXISTS %s SCHEMALESS", cacheTable)
	if _, err := surrealdb.Query[any](ctx, db, sql, nil); err != nil {
		return nil, fmt.Errorf("failed to define table %s: %w", cacheTable, err)
	}
	return &CacheStore{db: db, logger: logger, timeout: timeout, now: time.Now}, nil
}

func (s *CacheStore) Name() models.CacheTier { return models.TierShared }

func (s *CacheStore) Get(ctx context.Context, key string) (*models.CacheEntry, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	rec, err := surrealdb.Select[cacheRecord](ctx, s.db, surrealmodels.NewRecordID(cacheTable, key))
	if err != nil {
		return nil, fmt.Errorf("failed to select cache entry: %w", err)
	}
	if rec == nil || rec.Key == "" {
		return nil, nil
	}

	entry := &models.CacheEntry{
		Key:        rec.Key,
		Value:      rec.Value,
		TTLSeconds: rec.TTLSeconds,
		StoredAt:   rec.StoredAt,
		ExpiresAt:  rec.ExpiresAt,
		TierOrigin: models.CacheTier(rec.TierOrigin),
	}
	if entry.Expired(s.now()) {
		return nil, nil
	}
	return entry, nil
}

func (s *CacheStore) Set(ctx context.Context, entry *models.CacheEntry) error {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	rec := cacheRecord{
		Key:        entry.Key,
		Value:      entry.Value,
		TTLSeconds: entry.TTLSeconds,
		StoredAt:   entry.StoredAt,
		ExpiresAt:  entry.ExpiresAt,
		TierOrigin: string(entry.TierOrigin),
	}
	sql := "UPSERT $rid CONTENT $entry"
	vars := map[string]any{"rid": surrealmodels.NewRecordID(cacheTable, entry.Key), "entry": rec}

	attempts := 0
	err := backoff.Retry(func() error {
		attempts++
		_, err := surrealdb.Query[[]cacheRecord](ctx, s.db, sql, vars)
		return err
	}, writeBackOff(ctx))
	if err != nil {
		return fmt.Errorf("failed to save cache entry after %d attempts: %w", attempts, err)
	}
	return nil
}

func (s *CacheStore) Delete(ctx context.Context, key string) error {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	if _, err := surrealdb.Delete[cacheRecord](ctx, s.db, surrealmodels.NewRecordID(cacheTable, key)); err != nil {
		return fmt.Errorf("failed to delete cache entry: %w", err)
	}
	return nil
}

// Cleanup deletes every expired row. It is not bounded by the per-operation
// timeout since it runs from the scheduler.
func (s *CacheStore) Cleanup(ctx context.Context) (int, error) {
	sql := "DELETE cache_entry WHERE expires_at <= $now RETURN BEFORE"
	results, err := surrealdb.Query[[]cacheRecord](ctx, s.db, sql, map[string]any{"now": s.now()})
	if err != nil {
		return 0, fmt.Errorf("failed to purge expired cache entries: %w", err)
	}
	if results != nil && len(*results) > 0 {
		return len((*results)[0].Result), nil
	}
	return 0, nil
}

func (s *CacheStore) Close() error {
	s.db.Close(context.Background())
	return nil
}
