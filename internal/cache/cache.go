// Package cache is a thin optional read-through cache for the catalog and
// stats endpoints. A nil or unreachable redis leaves every operation a no-op,
// so callers never branch on availability.
package cache

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

const (
	StatsKey       = "stats"
	ProductsP1Key  = "products:page1"
	CustomersP1Key = "customers:page1"

	TTL = 5 * time.Minute
)

type Cache struct {
	client *redis.Client
	log    zerolog.Logger
}

// New connects to redis at addr. An empty addr or a failed ping returns a
// disabled cache rather than an error; caching is an optimization here.
func New(addr string, log zerolog.Logger) *Cache {
	c := &Cache{log: log}
	if addr == "" {
		return c
	}
	client := redis.NewClient(&redis.Options{Addr: addr})
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		log.Warn().Err(err).Str("addr", addr).Msg("redis unreachable, caching disabled")
		return c
	}
	c.client = client
	return c
}

func (c *Cache) Enabled() bool { return c != nil && c.client != nil }

// Get unmarshals the cached value into dest and reports whether it was found.
func (c *Cache) Get(ctx context.Context, key string, dest any) bool {
	if !c.Enabled() {
		return false
	}
	raw, err := c.client.Get(ctx, key).Result()
	if err != nil {
		return false
	}
	if err := json.Unmarshal([]byte(raw), dest); err != nil {
		return false
	}
	return true
}

func (c *Cache) Set(ctx context.Context, key string, val any) {
	if !c.Enabled() {
		return
	}
	body, err := json.Marshal(val)
	if err != nil {
		return
	}
	if err := c.client.Set(ctx, key, body, TTL).Err(); err != nil {
		c.log.Warn().Err(err).Str("key", key).Msg("cache set failed")
	}
}

// Invalidate drops the listing/stat keys after a write.
func (c *Cache) Invalidate(ctx context.Context) {
	if !c.Enabled() {
		return
	}
	if err := c.client.Del(ctx, StatsKey, ProductsP1Key, CustomersP1Key).Err(); err != nil {
		c.log.Warn().Err(err).Msg("cache invalidation failed")
	}
}
