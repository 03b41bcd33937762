package grpc

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

type FetchFunc[T any] func(ctx context.Context) (T, error)

const (
	defaultFetchTimeout = 15 * time.Second
	defaultSetTimeout   = 5 * time.Second
	maxTTLJitter        = 15 * time.Second
)

// addTTLJitter spreads expirations by up to ±15s, or ±10% of short TTLs.
func addTTLJitter(ttl time.Duration) time.Duration {
	if ttl <= 0 {
		return ttl
	}
	spread := min(ttl/10, maxTTLJitter)
	if spread <= 0 {
		return ttl
	}
	return ttl + time.Duration(rand.Int63n(int64(2*spread))) - spread
}

func storeValue[T any](c Cacher, key string, ttl time.Duration, logger *zap.Logger, value T, event string) {
	setCtx, cancel := context.WithTimeout(context.Background(), defaultSetTimeout)
	defer cancel()

	ttlWithJitter := addTTLJitter(ttl)
	if err := c.Set(setCtx, key, value, ttlWithJitter); err != nil {
		logger.Warn("cache set failed",
			zap.String("key", key),
			zap.String("event", event),
			zap.Error(err))
		return
	}
	logger.Debug("cache updated",
		zap.String("key", key),
		zap.String("event", event),
		zap.Duration("ttl", ttlWithJitter))
}

// triggerBackgroundRefresh recomputes a cached entry after a hit so the next
// reader sees fresh data. Concurrent refreshes of one key collapse into one.
func triggerBackgroundRefresh[T any](
	c Cacher,
	sf *singleflight.Group,
	key string,
	ttl time.Duration,
	logger *zap.Logger,
	fn FetchFunc[T],
) {
	go func() {
		time.Sleep(time.Duration(rand.Intn(1000)) * time.Millisecond)

		_, _, _ = sf.Do(key+":refresh", func() (any, error) {
			ctx, cancel := context.WithTimeout(context.Background(), defaultFetchTimeout)
			defer cancel()

			value, err := fn(ctx)
			if err != nil {
				logger.Warn("background refresh failed",
					zap.String("key", key),
					zap.Error(err))
				return nil, err
			}

			storeValue(c, key, ttl, logger, value, "refresh")
			return value, nil
		})
	}()
}

func fetchAndCacheInBackground[T any](
	ctx context.Context,
	c Cacher,
	key string,
	ttl time.Duration,
	logger *zap.Logger,
	fn FetchFunc[T],
) (T, error) {
	var zero T

	value, err := fn(ctx)
	if err != nil {
		logger.Debug("fetch failed", zap.String("key", key), zap.Error(err))
		return zero, err
	}

	go storeValue(c, key, ttl, logger, value, "miss")

	return value, nil
}

// FindAndCache implements read-through caching with singleflight and refresh-ahead logic.
// Cache errors are treated as misses; fetch errors are never cached.
func FindAndCache[T any](
	ctx context.Context,
	c Cacher,
	sf *singleflight.Group,
	key string,
	ttl time.Duration,
	logger *zap.Logger,
	fn FetchFunc[T],
) (T, error) {
	var zero T
	if logger == nil {
		logger = zap.NewNop()
	}

	var cached T
	err := c.Get(ctx, key, &cached)
	switch {
	case err == nil:
		logger.Debug("cache hit", zap.String("key", key))
		triggerBackgroundRefresh(c, sf, key, ttl, logger, fn)
		return cached, nil

	case errors.Is(err, redis.Nil):
		logger.Debug("cache miss", zap.String("key", key))

	default:
		logger.Warn("cache get error (treating as miss)", zap.String("key", key), zap.Error(err))
	}

	v, err, shared := sf.Do(key, func() (any, error) {
		return fetchAndCacheInBackground(ctx, c, key, ttl, logger, fn)
	})
	if err != nil {
		return zero, err
	}

	value, ok := v.(T)
	if !ok {
		logger.Error("singleflight type mismatch", zap.String("key", key))
		return zero, fmt.Errorf("type mismatch for key %q", key)
	}

	if shared {
		logger.Debug("singleflight shared result", zap.String("key", key))
	}

	return value, nil
}
