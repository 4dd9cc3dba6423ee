// Package cache is a thin JSON cache over Redis. A nil *Cache or one built
// without a client is valid and behaves as a permanent miss, so callers never
// branch on whether Redis is configured.
package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/shashiranjanraj/studio/pkg/metrics"
)

type Cache struct {
	rdb    *redis.Client
	prefix string
}

// New wraps an existing client. rdb may be nil.
func New(rdb *redis.Client, prefix string) *Cache {
	return &Cache{rdb: rdb, prefix: prefix}
}

// Connect dials Redis and verifies the connection with a ping. On failure it
// returns a disabled cache together with the error so the caller can log and
// continue.
func Connect(ctx context.Context, addr, password, prefix string) (*Cache, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       0,
	})

	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return New(nil, prefix), fmt.Errorf("cache: redis ping: %w", err)
	}
	return New(rdb, prefix), nil
}

// Enabled reports whether a Redis client is attached.
func (c *Cache) Enabled() bool { return c != nil && c.rdb != nil }

func (c *Cache) key(k string) string { return c.prefix + k }

// Get unmarshals the value under key into dest. Returns true on a hit.
func (c *Cache) Get(ctx context.Context, key string, dest interface{}) bool {
	if !c.Enabled() {
		return false
	}

	val, err := c.rdb.Get(ctx, c.key(key)).Bytes()
	if err != nil {
		metrics.CacheMisses.Inc()
		return false
	}

	if err := json.Unmarshal(val, dest); err != nil {
		metrics.CacheMisses.Inc()
		return false
	}

	metrics.CacheHits.Inc()
	return true
}

// Set stores value as JSON under key for ttl.
func (c *Cache) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	if !c.Enabled() {
		return nil
	}

	data, err := json.Marshal(value)
	if err != nil {
		return err
	}

	return c.rdb.Set(ctx, c.key(key), data, ttl).Err()
}

// Del removes one or more keys.
func (c *Cache) Del(ctx context.Context, keys ...string) error {
	if !c.Enabled() || len(keys) == 0 {
		return nil
	}
	full := make([]string, len(keys))
	for i, k := range keys {
		full[i] = c.key(k)
	}
	return c.rdb.Del(ctx, full...).Err()
}

// Claim marks key as seen for ttl and reports whether this call was the
// first to do so. Without Redis every claim succeeds.
func (c *Cache) Claim(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	if !c.Enabled() {
		return true, nil
	}
	return c.rdb.SetNX(ctx, c.key(key), 1, ttl).Result()
}

// Close releases the underlying client.
func (c *Cache) Close() error {
	if !c.Enabled() {
		return nil
	}
	return c.rdb.Close()
}
