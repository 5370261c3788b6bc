package models

import "time"

// CacheTier names a cache layer, fastest first.
type CacheTier string

const (
	TierMemory CacheTier = "memory"
	TierShared CacheTier = "shared"
	TierDisk   CacheTier = "disk"
	TierNone   CacheTier = "computed"
)

// CacheEntry is one stored value. Value is the JSON encoding of the cached
// result so every tier stores the same bytes.
type CacheEntry struct {
	Key        string    `json:"key"`
	Value      []byte    `json:"value"`
	TTLSeconds int64     `json:"ttl_seconds"`
	StoredAt   time.Time `json:"stored_at"`
	ExpiresAt  time.Time `json:"expires_at"`
	TierOrigin CacheTier `json:"tier_origin"`
}

// Expired reports whether the entry is no longer readable at now.
func (e *CacheEntry) Expired(now time.Time) bool {
	return !now.Before(e.ExpiresAt)
}

// Remaining returns the TTL left at now, zero when expired.
func (e *CacheEntry) Remaining(now time.Time) time.Duration {
	if e.Expired(now) {
		return 0
	}
	return e.ExpiresAt.Sub(now)
}

// Cache key prefixes
const (
	KeyPrefixAnalysis = "analysis:"
	KeyPrefixInsights = "insights:"
	KeyPrefixSearch   = "search:"
)

// AnalysisKey returns the cache key for a symbol's numeric analysis.
func AnalysisKey(symbol string) string { return KeyPrefixAnalysis + symbol }

// InsightsKey returns the cache key for a symbol's narrative insights.
func InsightsKey(symbol string) string { return KeyPrefixInsights + symbol }

// SearchKey returns the cache key for a normalised search query.
func SearchKey(query string) string { return KeyPrefixSearch + query }
