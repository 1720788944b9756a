package data

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// CachedProvider puts a Redis day-level cache in front of another
// provider. Daily bars only change once a session, so a TTL of a day is
// safe. A Redis outage degrades to direct fetches; the scan never fails
// because the cache is down.
type CachedProvider struct {
	inner  Provider
	client *redis.Client
	ttl    time.Duration
	logger zerolog.Logger
}

// NewCachedProvider wraps a provider with a Redis cache
func NewCachedProvider(inner Provider, client *redis.Client, ttl time.Duration, logger zerolog.Logger) *CachedProvider {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &CachedProvider{inner: inner, client: client, ttl: ttl, logger: logger}
}

func cacheKey(symbol string, cutoff time.Time) string {
	day := "latest"
	if !cutoff.IsZero() {
		day = cutoff.Format("2006-01-02")
	}
	return fmt.Sprintf("edgerank:bars:%s:%s", symbol, day)
}

// DailyBars serves from cache when possible, falling through to the inner
// provider and writing back on a miss
func (c *CachedProvider) DailyBars(ctx context.Context, symbol string, cutoff time.Time) (*PriceTable, error) {
	key := cacheKey(symbol, cutoff)

	raw, err := c.client.Get(ctx, key).Bytes()
	if err == nil {
		var table PriceTable
		if err := json.Unmarshal(raw, &table); err == nil {
			c.logger.Debug().Str("symbol", symbol).Msg("bars cache hit")
			return &table, nil
		}
		c.logger.Warn().Str("key", key).Msg("corrupt cache entry, refetching")
	} else if err != redis.Nil {
		c.logger.Warn().Err(err).Str("symbol", symbol).Msg("bars cache unavailable, fetching directly")
	}

	table, err := c.inner.DailyBars(ctx, symbol, cutoff)
	if err != nil {
		return nil, err
	}

	if encoded, err := json.Marshal(table); err == nil {
		if err := c.client.Set(ctx, key, encoded, c.ttl).Err(); err != nil {
			c.logger.Warn().Err(err).Str("symbol", symbol).Msg("failed to write bars cache")
		}
	}
	return table, nil
}
