package cache

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
)

const redisOpTimeout = 2 * time.Second

// RedisCache shares cached values between processes. Redis errors degrade to
// cache misses so callers fall back to the database.
type RedisCache[T any] struct {
	rdb    *redis.Client
	prefix string
	ttl    time.Duration
}

var _ Cache[int] = (*RedisCache[int])(nil)

func NewRedisCache[T any](rdb *redis.Client, prefix string, ttl time.Duration) *RedisCache[T] {
	return &RedisCache[T]{rdb: rdb, prefix: prefix, ttl: ttl}
}

func (c *RedisCache[T]) Get(key string) (T, bool) {
	var zero T
	ctx, cancel := context.WithTimeout(context.Background(), redisOpTimeout)
	defer cancel()

	val, err := c.rdb.Get(ctx, c.prefix+key).Bytes()
	if errors.Is(err, redis.Nil) {
		return zero, false
	}
	if err != nil {
		slog.Warn("Redis cache get failed", "component", "cache", "key", key, "error", err)
		return zero, false
	}

	var out T
	if err := json.Unmarshal(val, &out); err != nil {
		slog.Warn("Redis cache value is corrupt", "component", "cache", "key", key, "error", err)
		return zero, false
	}
	return out, true
}

func (c *RedisCache[T]) Set(key string, data T) {
	b, err := json.Marshal(data)
	if err != nil {
		slog.Warn("Redis cache marshal failed", "component", "cache", "key", key, "error", err)
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), redisOpTimeout)
	defer cancel()

	if err := c.rdb.Set(ctx, c.prefix+key, b, c.ttl).Err(); err != nil {
		slog.Warn("Redis cache set failed", "component", "cache", "key", key, "error", err)
	}
}

func (c *RedisCache[T]) Delete(keys ...string) {
	if len(keys) == 0 {
		return
	}
	full := make([]string, len(keys))
	for i, k := range keys {
		full[i] = c.prefix + k
	}
	ctx, cancel := context.WithTimeout(context.Background(), redisOpTimeout)
	defer cancel()

	if err := c.rdb.Del(ctx, full...).Err(); err != nil {
		slog.Warn("Redis cache delete failed", "component", "cache", "keys", keys, "error", err)
	}
}

// Size counts keys under the cache prefix.
func (c *RedisCache[T]) Size() int {
	ctx, cancel := context.WithTimeout(context.Background(), redisOpTimeout)
	defer cancel()

	n := 0
	iter := c.rdb.Scan(ctx, 0, c.prefix+"*", 100).Iterator()
	for iter.Next(ctx) {
		n++
	}
	if err := iter.Err(); err != nil {
		slog.Warn("Redis cache scan failed", "component", "cache", "error", err)
	}
	return n
}
