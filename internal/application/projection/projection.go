// Package projection implements read-through caching of JSON projections.
// The cache is advisory: every cache failure degrades to a store read and a Warn log.
package projection

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/opentoworkprojects/bill-sub001/internal/domain/shared"
	"github.com/opentoworkprojects/bill-sub001/internal/infrastructure/logger"
	"go.uber.org/zap"
)

// Load fetches the authoritative value on a miss
type Load[T any] func(ctx context.Context) (T, error)

// ReadThrough returns the value cached at key, or loads it, caches it for ttl and returns it.
// A nil cache always loads.
//
// The fill is not ordered against Invalidate: a write that commits and invalidates
// between load and store leaves the older value cached until ttl expires.
// Projection TTLs are kept short to bound that window.
func ReadThrough[T any](ctx context.Context, cache shared.ProjectionCache, key string, ttl time.Duration, load Load[T]) (T, error) {
	if cache != nil {
		if v, ok := lookup[T](ctx, cache, key); ok {
			return v, nil
		}
	}

	v, err := load(ctx)
	if err != nil {
		return v, err
	}
	if cache != nil {
		store(ctx, cache, key, ttl, v)
	}
	return v, nil
}

func lookup[T any](ctx context.Context, cache shared.ProjectionCache, key string) (T, bool) {
	var v T
	data, err := cache.Get(ctx, key)
	if err != nil {
		if !isPlainMiss(err) {
			logger.L(ctx).Warn("Cache read failed", zap.String("key", key), zap.Error(err))
		}
		return v, false
	}
	if err := json.Unmarshal(data, &v); err != nil {
		logger.L(ctx).Warn("Discarding undecodable cache entry", zap.String("key", key), zap.Error(err))
		Invalidate(ctx, cache, key)
		var zero T
		return zero, false
	}
	return v, true
}

// isPlainMiss tells an absent key apart from a degraded cache
func isPlainMiss(err error) bool {
	var de *shared.DomainError
	return errors.As(err, &de) && de.Code == shared.CodeCacheMiss && de.Unwrap() == nil
}

func store[T any](ctx context.Context, cache shared.ProjectionCache, key string, ttl time.Duration, v T) {
	data, err := json.Marshal(v)
	if err != nil {
		logger.L(ctx).Warn("Cannot encode projection", zap.String("key", key), zap.Error(err))
		return
	}
	if err := cache.Set(ctx, key, data, ttl); err != nil {
		logger.L(ctx).Warn("Cache write failed", zap.String("key", key), zap.Error(err))
	}
}

// Invalidate deletes keys. Failures are logged; stale entries expire at their TTL.
func Invalidate(ctx context.Context, cache shared.ProjectionCache, keys ...string) {
	if cache == nil || len(keys) == 0 {
		return
	}
	if err := cache.Delete(ctx, keys...); err != nil {
		logger.L(ctx).Warn("Cache invalidation failed", zap.Strings("keys", keys), zap.Error(err))
	}
}

// InvalidatePrefix deletes every key under each prefix. Failures are logged like Invalidate.
func InvalidatePrefix(ctx context.Context, cache shared.ProjectionCache, prefixes ...string) {
	if cache == nil {
		return
	}
	for _, prefix := range prefixes {
		if err := cache.DeletePrefix(ctx, prefix); err != nil {
			logger.L(ctx).Warn("Cache invalidation failed", zap.String("prefix", prefix), zap.Error(err))
		}
	}
}
