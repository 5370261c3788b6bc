package interfaces

import (
	"context"

	"github.com/bobmcallan/stance/internal/models"
)

// CacheTier is one layer of the tiered cache
type CacheTier interface {
	Name() models.CacheTier

	// Get returns nil, nil on a miss or an expired entry
	Get(ctx context.Context, key string) (*models.CacheEntry, error)
	Set(ctx context.Context, entry *models.CacheEntry) error
	Delete(ctx context.Context, key string) error

	// Cleanup removes expired entries and returns how many were removed
	Cleanup(ctx context.Context) (int, error)
	Close() error
}
