// Package cache composes the cache tiers into a single read-through,
// write-through cache with per-key single-flight computation.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"runtime/debug"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/bobmcallan/stance/internal/common"
	"github.com/bobmcallan/stance/internal/interfaces"
	"github.com/bobmcallan/stance/internal/models"
)

// ErrComputePanicked is returned to every waiter when the computation panics.
var ErrComputePanicked = errors.New("cache computation panicked")

// Tier pairs a cache tier with the longest TTL it may hold. A zero MaxTTL
// means the tier keeps whatever TTL the caller asked for.
type Tier struct {
	interfaces.CacheTier
	MaxTTL time.Duration
}

// Tiered reads tiers fastest first and writes to all of them.
type Tiered struct {
	tiers  []Tier
	group  singleflight.Group
	logger *common.Logger
	now    func() time.Time
}

type flightResult struct {
	value []byte
	tier  models.CacheTier
}

// New creates a tiered cache. Tiers must be ordered fastest first.
func New(logger *common.Logger, tiers ...Tier) *Tiered {
	return &Tiered{tiers: tiers, logger: logger, now: time.Now}
}

// WithClock replaces the time source. Used by tests.
func (c *Tiered) WithClock(now func() time.Time) *Tiered {
	c.now = now
	return c
}

// TierNames lists the configured tiers in lookup order.
func (c *Tiered) TierNames() []string {
	names := make([]string, len(c.tiers))
	for i, t := range c.tiers {
		names[i] = string(t.Name())
	}
	return names
}

// Get returns the first live entry, or nil on a miss. The returned entry's
// TierOrigin is the tier that served it. Faster tiers are back-filled with
// the remaining TTL. Tier errors are logged and read as misses.
func (c *Tiered) Get(ctx context.Context, key string) *models.CacheEntry {
	for i, t := range c.tiers {
		entry, err := t.Get(ctx, key)
		if err != nil {
			c.logger.Warn().Str("tier", string(t.Name())).Str("key", key).Err(err).Msg("Cache tier read failed")
			continue
		}
		if entry == nil {
			continue
		}

		now := c.now()
		remaining := entry.Remaining(now)
		if remaining <= 0 {
			continue
		}
		for j := 0; j < i; j++ {
			c.write(ctx, c.tiers[j], key, entry.Value, remaining, now)
		}

		out := *entry
		out.TierOrigin = t.Name()
		return &out
	}
	return nil
}

// Set writes value to every tier, capping the TTL per tier.
func (c *Tiered) Set(ctx context.Context, key string, value []byte, ttl time.Duration) {
	now := c.now()
	for _, t := range c.tiers {
		c.write(ctx, t, key, value, ttl, now)
	}
}

func (c *Tiered) write(ctx context.Context, t Tier, key string, value []byte, ttl time.Duration, now time.Time) {
	if t.MaxTTL > 0 && ttl > t.MaxTTL {
		ttl = t.MaxTTL
	}
	if ttl <= 0 {
		return
	}
	entry := &models.CacheEntry{
		Key:        key,
		Value:      value,
		TTLSeconds: int64(ttl / time.Second),
		StoredAt:   now,
		ExpiresAt:  now.Add(ttl),
		TierOrigin: t.Name(),
	}
	if err := t.Set(ctx, entry); err != nil {
		c.logger.Warn().Str("tier", string(t.Name())).Str("key", key).Err(err).Msg("Cache tier write failed")
	}
}

// Invalidate deletes key from every tier. The first failure is returned
// after all tiers have been attempted.
func (c *Tiered) Invalidate(ctx context.Context, key string) error {
	var firstErr error
	for _, t := range c.tiers {
		if err := t.Delete(ctx, key); err != nil {
			c.logger.Warn().Str("tier", string(t.Name())).Str("key", key).Err(err).Msg("Cache tier delete failed")
			if firstErr == nil {
				firstErr = fmt.Errorf("failed to invalidate %s in %s tier: %w", key, t.Name(), err)
			}
		}
	}
	return firstErr
}

// Cleanup removes expired entries from every tier and returns the counts
// per tier name.
func (c *Tiered) Cleanup(ctx context.Context) map[string]int {
	counts := make(map[string]int, len(c.tiers))
	for _, t := range c.tiers {
		n, err := t.Cleanup(ctx)
		if err != nil {
			c.logger.Warn().Str("tier", string(t.Name())).Err(err).Msg("Cache tier cleanup failed")
		}
		counts[string(t.Name())] = n
	}
	return counts
}

// GetOrCompute returns the cached value for key, or runs compute once per
// key no matter how many callers are waiting. The computation runs detached
// from the caller's cancellation so an abandoning waiter does not abort it
// for the others; each waiter stops waiting when its own ctx ends. Errors
// are returned to every waiter and are not cached.
func (c *Tiered) GetOrCompute(ctx context.Context, key string, ttl time.Duration, compute func(ctx context.Context) ([]byte, error)) ([]byte, models.CacheTier, error) {
	if entry := c.Get(ctx, key); entry != nil {
		return entry.Value, entry.TierOrigin, nil
	}

	ch := c.group.DoChan(key, func() (interface{}, error) {
		fctx := context.WithoutCancel(ctx)

		// Another flight may have filled the cache between our miss and now
		if entry := c.Get(fctx, key); entry != nil {
			return flightResult{value: entry.Value, tier: entry.TierOrigin}, nil
		}

		start := c.now()
		value, err := c.runCompute(fctx, key, compute)
		if err != nil {
			return nil, err
		}
		c.Set(fctx, key, value, ttl)
		c.logger.Debug().Str("key", key).Dur("elapsed", c.now().Sub(start)).Msg("Cache computed")
		return flightResult{value: value, tier: models.TierNone}, nil
	})

	select {
	case <-ctx.Done():
		return nil, "", ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return nil, "", res.Err
		}
		fr := res.Val.(flightResult)
		return fr.value, fr.tier, nil
	}
}

// runCompute turns a panic in compute into ErrComputePanicked. DoChan would
// otherwise re-panic on its own goroutine, out of reach of HTTP recovery.
func (c *Tiered) runCompute(ctx context.Context, key string, compute func(ctx context.Context) ([]byte, error)) (value []byte, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			c.logger.Error().
				Str("key", key).
				Str("panic", fmt.Sprint(rec)).
				Str("stack", string(debug.Stack())).
				Msg("Cache computation panicked")
			value, err = nil, fmt.Errorf("%w: %s: %v", ErrComputePanicked, key, rec)
		}
	}()
	return compute(ctx)
}

// GetJSON decodes a cached value into T. ok is false on a miss or when the
// stored bytes no longer decode.
func GetJSON[T any](ctx context.Context, c *Tiered, key string) (value T, tier models.CacheTier, ok bool) {
	entry := c.Get(ctx, key)
	if entry == nil {
		return value, "", false
	}
	if err := json.Unmarshal(entry.Value, &value); err != nil {
		c.logger.Warn().Str("key", key).Err(err).Msg("Cached value failed to decode")
		return value, "", false
	}
	return value, entry.TierOrigin, true
}

// SetJSON encodes v and writes it to every tier.
func SetJSON[T any](ctx context.Context, c *Tiered, key string, v T, ttl time.Duration) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("failed to encode cache value for %s: %w", key, err)
	}
	c.Set(ctx, key, data, ttl)
	return nil
}

// GetOrComputeJSON is GetOrCompute for JSON-encoded values.
func GetOrComputeJSON[T any](ctx context.Context, c *Tiered, key string, ttl time.Duration, compute func(ctx context.Context) (T, error)) (T, models.CacheTier, error) {
	var out T
	data, tier, err := c.GetOrCompute(ctx, key, ttl, func(ctx context.Context) ([]byte, error) {
		v, err := compute(ctx)
		if err != nil {
			return nil, err
		}
		return json.Marshal(v)
	})
	if err != nil {
		return out, "", err
	}
	if err := json.Unmarshal(data, &out); err != nil {
		return out, "", fmt.Errorf("failed to decode cache value for %s: %w", key, err)
	}
	return out, tier, nil
}
