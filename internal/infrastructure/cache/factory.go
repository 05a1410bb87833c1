package cache

import (
	"context"

	"github.com/opentoworkprojects/bill-sub001/internal/domain/shared"
	"github.com/opentoworkprojects/bill-sub001/internal/infrastructure/config"
	"go.uber.org/zap"
)

// Factory creates the projection cache described by configuration
type Factory struct {
	cfg                   config.RedisConfig
	logger                *zap.Logger
	allowInMemoryFallback bool
}

// FactoryOption is a functional option for configuring the factory
type FactoryOption func(*Factory)

// WithLogger sets the logger for the factory and the caches it builds
func WithLogger(logger *zap.Logger) FactoryOption {
	return func(f *Factory) {
		f.logger = logger
	}
}

// WithInMemoryFallback controls whether an unreachable Redis is replaced by an in-process cache.
// Defaults to cfg.FallbackInMemory.
func WithInMemoryFallback(allow bool) FactoryOption {
	return func(f *Factory) {
		f.allowInMemoryFallback = allow
	}
}

// NewFactory creates a new factory
func NewFactory(cfg config.RedisConfig, opts ...FactoryOption) *Factory {
	f := &Factory{
		cfg:                   cfg,
		logger:                zap.NewNop(),
		allowInMemoryFallback: cfg.FallbackInMemory,
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Create returns the cache to use and a function releasing it.
//
//   - redis disabled: NoopCache, every read goes to the store
//   - redis reachable: RedisCache
//   - redis unreachable with fallback: InMemoryCache
//   - redis unreachable without fallback: RedisCache anyway; reads miss until Redis recovers
func (f *Factory) Create(ctx context.Context) (shared.ProjectionCache, func() error) {
	nop := func() error { return nil }
	if !f.cfg.Enabled {
		f.logger.Info("Projection cache disabled")
		return NoopCache{}, nop
	}

	rc := NewRedisCache(RedisConfig{
		Addr:     f.cfg.Addr(),
		Password: f.cfg.Password,
		DB:       f.cfg.DB,
		Timeout:  f.cfg.Timeout,
	}, WithRedisLogger(f.logger))

	err := rc.Ping(ctx)
	if err == nil {
		f.logger.Info("Using Redis projection cache", zap.String("addr", f.cfg.Addr()))
		return rc, rc.Close
	}

	if f.allowInMemoryFallback {
		_ = rc.Close()
		f.logger.Warn("Redis unavailable, falling back to in-memory projection cache. "+
			"Cached views are not shared between instances.",
			zap.String("addr", f.cfg.Addr()),
			zap.Error(err),
		)
		return NewInMemoryCache(), nop
	}

	f.logger.Warn("Redis unavailable, reads will fall through to the store until it recovers",
		zap.String("addr", f.cfg.Addr()),
		zap.Error(err),
	)
	return rc, rc.Close
}
