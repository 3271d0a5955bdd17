package lock

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/bsm/redislock"
)

// RedisConfig tunes the distributed lock.
type RedisConfig struct {
	// Prefix is prepended to every key (default "zakatledger:lock:").
	Prefix string
	// TTL bounds how long a crashed holder can block others (default 30s).
	TTL time.Duration
	// WaitTimeout is how long Lock keeps retrying before ErrNotObtained (default 10s).
	WaitTimeout time.Duration
}

// Redis is a Locker shared by every process talking to the same Redis.
type Redis struct {
	client *redislock.Client
	cfg    RedisConfig
}

func NewRedis(rdb redislock.RedisClient, cfg RedisConfig) *Redis {
	if cfg.Prefix == "" {
		cfg.Prefix = "zakatledger:lock:"
	}
	if cfg.TTL <= 0 {
		cfg.TTL = 30 * time.Second
	}
	if cfg.WaitTimeout <= 0 {
		cfg.WaitTimeout = 10 * time.Second
	}
	return &Redis{client: redislock.New(rdb), cfg: cfg}
}

func (r *Redis) Lock(ctx context.Context, key string) (func(), error) {
	waitCtx, cancel := context.WithTimeout(ctx, r.cfg.WaitTimeout)
	defer cancel()

	lk, err := r.client.Obtain(waitCtx, r.cfg.Prefix+key, r.cfg.TTL, &redislock.Options{
		RetryStrategy: redislock.ExponentialBackoff(16*time.Millisecond, 512*time.Millisecond),
	})
	if errors.Is(err, redislock.ErrNotObtained) || errors.Is(err, context.DeadlineExceeded) {
		return nil, fmt.Errorf("%w: %s", ErrNotObtained, key)
	}
	if err != nil {
		return nil, fmt.Errorf("obtain redis lock %s: %w", key, err)
	}

	return func() {
		if err := lk.Release(context.Background()); err != nil && !errors.Is(err, redislock.ErrLockNotHeld) {
			slog.Warn("Failed to release redis lock", "key", key, "error", err)
		}
	}, nil
}
