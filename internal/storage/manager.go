// Package storage opens the cache tiers and assembles them, fastest
// first, into the tiered cache.
package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/bobmcallan/stance/internal/cache"
	"github.com/bobmcallan/stance/internal/common"
	"github.com/bobmcallan/stance/internal/storage/internaldb"
	"github.com/bobmcallan/stance/internal/storage/memory"
	"github.com/bobmcallan/stance/internal/storage/surrealdb"
)

// Manager owns the cache tiers and their lifecycle.
type Manager struct {
	tiers  []cache.Tier
	cache  *cache.Tiered
	logger *common.Logger
}

// NewManager opens the configured tiers. The shared tier is optional: when
// it is disabled or unreachable the cache runs on memory and disk alone.
func NewManager(ctx context.Context, logger *common.Logger, config *common.Config) (*Manager, error) {
	cfg := config.Cache
	tiers := []cache.Tier{
		{CacheTier: memory.NewStore(cfg.Memory.MaxEntries), MaxTTL: cfg.Memory.GetTTL()},
	}

	if cfg.Shared.Enabled {
		connectCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		shared, err := surrealdb.Connect(connectCtx, logger, cfg.Shared)
		cancel()
		if err != nil {
			logger.Warn().Str("address", cfg.Shared.Address).Err(err).Msg("Shared cache unreachable, continuing without it")
		} else {
			tiers = append(tiers, cache.Tier{CacheTier: shared, MaxTTL: cfg.Shared.GetTTL()})
		}
	}

	disk, err := internaldb.NewStore(logger, cfg.Disk.Path)
	if err != nil {
		for _, t := range tiers {
			t.Close()
		}
		return nil, fmt.Errorf("failed to create disk cache: %w", err)
	}
	tiers = append(tiers, cache.Tier{CacheTier: disk, MaxTTL: cfg.Disk.GetTTL()})

	m := &Manager{
		tiers:  tiers,
		cache:  cache.New(logger, tiers...),
		logger: logger,
	}

	logger.Info().Strs("tiers", m.cache.TierNames()).Msg("Cache tiers initialized")
	return m, nil
}

// Cache returns the tiered cache over all open tiers.
func (m *Manager) Cache() *cache.Tiered {
	return m.cache
}

// TierNames lists the open tiers fastest first.
func (m *Manager) TierNames() []string {
	return m.cache.TierNames()
}

// Cleanup purges expired entries from every tier.
func (m *Manager) Cleanup(ctx context.Context) map[string]int {
	counts := m.cache.Cleanup(ctx)
	total := 0
	for _, n := range counts {
		total += n
	}
	m.logger.Info().
		Int("memory", counts["memory"]).
		Int("shared", counts["shared"]).
		Int("disk", counts["disk"]).
		Int("total", total).
		Msg("Expired cache entries purged")
	return counts
}

func (m *Manager) Close() error {
	var firstErr error
	for _, t := range m.tiers {
		if err := t.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
