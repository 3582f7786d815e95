package services

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/vanshpatelx/Opinex/internal/cache"
	"github.com/vanshpatelx/Opinex/internal/metrics"
)

// CacheTTL holds the expiries used by the services.
type CacheTTL struct {
	Default    time.Duration
	LiveEvents time.Duration
	OrderList  time.Duration
}

// DefaultCacheTTL mirrors the configured defaults.
var DefaultCacheTTL = CacheTTL{
	Default:    cache.DefaultTTL,
	LiveEvents: 10 * time.Second,
	OrderList:  300 * time.Second,
}

// readCache treats the cache as advisory: any failure is logged and reported
// as a miss so the caller falls through to the store.
func readCache(ctx context.Context, c cache.Cache, key string, value interface{}) bool {
	found, err := c.Get(ctx, key, value)
	if err != nil {
		log.Warn().Err(err).Str("key", key).Msg("Cache read failed, falling back to store")
		return false
	}
	return found
}

// writeCache stores value and logs failures.
func writeCache(ctx context.Context, c cache.Cache, m *metrics.Metrics, key string, value interface{}, ttl time.Duration) {
	if err := c.Set(ctx, key, value, ttl); err != nil {
		m.IncrementCounter(metrics.CounterCacheErrors)
		log.Warn().Err(err).Str("key", key).Msg("Cache write failed")
	}
}
