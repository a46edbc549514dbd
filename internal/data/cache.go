package data

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/rs/zerolog/log"

	"github.com/driftcast/driftcast/internal/series"
)

const cacheKeyPrefix = "driftcast:closes:"

// Cache decorates a Provider with Redis-backed TTL caching of fetched price
// series. Cache faults are non-fatal: a failed read falls through to the
// inner provider, a failed write only logs.
type Cache struct {
	inner  Provider
	client *redis.Client
	ttl    time.Duration
}

// NewCache wraps inner with the given Redis client.
func NewCache(inner Provider, client *redis.Client, ttl time.Duration) *Cache {
	return &Cache{inner: inner, client: client, ttl: ttl}
}

func cacheKey(symbol string, from, to time.Time) string {
	return fmt.Sprintf("%s%s:%s:%s", cacheKeyPrefix, symbol, from.Format("20060102"), to.Format("20060102"))
}

// DailyCloses serves from Redis when the exact (symbol, range) key is
// present, otherwise fetches and stores.
func (c *Cache) DailyCloses(ctx context.Context, symbol string, from, to time.Time) ([]series.PricePoint, error) {
	key := cacheKey(symbol, from, to)

	payload, err := c.client.Get(ctx, key).Bytes()
	if err == nil {
		var points []series.PricePoint
		if err := json.Unmarshal(payload, &points); err == nil {
			log.Debug().Str("key", key).Int("points", len(points)).Msg("price cache hit")
			return points, nil
		}
		log.Warn().Str("key", key).Msg("corrupt cache entry, refetching")
	} else if err != redis.Nil {
		log.Warn().Err(err).Str("key", key).Msg("cache read failed, falling through")
	}

	points, err := c.inner.DailyCloses(ctx, symbol, from, to)
	if err != nil {
		return nil, err
	}

	if payload, err := json.Marshal(points); err == nil {
		if err := c.client.Set(ctx, key, payload, c.ttl).Err(); err != nil {
			log.Warn().Err(err).Str("key", key).Msg("cache write failed")
		}
	}
	return points, nil
}
