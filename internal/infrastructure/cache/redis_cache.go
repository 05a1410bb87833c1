package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/opentoworkprojects/bill-sub001/internal/domain/shared"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const (
	defaultScanBatchSize = 100
	defaultTimeout       = time.Second
)

// RedisCache implements shared.ProjectionCache on Redis.
// Every call is bounded by timeout; failures surface as CACHE_MISS so callers fall through to the store.
type RedisCache struct {
	client     *redis.Client
	ownsClient bool
	timeout    time.Duration
	logger     *zap.Logger
}

// RedisConfig holds Redis connection configuration
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
	Timeout  time.Duration
}

// RedisCacheOption is a functional option for configuring the cache
type RedisCacheOption func(*RedisCache)

// WithRedisLogger sets the logger for the cache
func WithRedisLogger(logger *zap.Logger) RedisCacheOption {
	return func(c *RedisCache) {
		c.logger = logger
	}
}

// WithTimeout sets the per-operation timeout
func WithTimeout(timeout time.Duration) RedisCacheOption {
	return func(c *RedisCache) {
		if timeout > 0 {
			c.timeout = timeout
		}
	}
}

// NewRedisCache creates a client for cfg. It does not require Redis to be reachable;
// use Ping to check connectivity.
func NewRedisCache(cfg RedisConfig, opts ...RedisCacheOption) *RedisCache {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	client := redis.NewClient(&redis.Options{
		Addr:         cfg.Addr,
		Password:     cfg.Password,
		DB:           cfg.DB,
		DialTimeout:  timeout,
		ReadTimeout:  timeout,
		WriteTimeout: timeout,
		MaxRetries:   1,
	})
	c := NewRedisCacheWithClient(client, append([]RedisCacheOption{WithTimeout(timeout)}, opts...)...)
	c.ownsClient = true
	return c
}

// NewRedisCacheWithClient wraps an existing client, e.g. one shared with other components
func NewRedisCacheWithClient(client *redis.Client, opts ...RedisCacheOption) *RedisCache {
	c := &RedisCache{
		client:  client,
		timeout: defaultTimeout,
		logger:  zap.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Ping checks that Redis answers
func (c *RedisCache) Ping(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()
	return c.client.Ping(ctx).Err()
}

// Get returns the blob stored at key
func (c *RedisCache) Get(ctx context.Context, key string) ([]byte, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	data, err := c.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, shared.ErrCacheMiss
	}
	if err != nil {
		return nil, unavailable("get", err)
	}
	return data, nil
}

// Set stores value at key for ttl
func (c *RedisCache) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	if err := c.client.Set(ctx, key, value, ttl).Err(); err != nil {
		return unavailable("set", err)
	}
	return nil
}

// Delete removes keys
func (c *RedisCache) Delete(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	if err := c.client.Del(ctx, keys...).Err(); err != nil {
		return unavailable("delete", err)
	}
	return nil
}

// DeletePrefix removes every key starting with prefix using SCAN, never KEYS
func (c *RedisCache) DeletePrefix(ctx context.Context, prefix string) error {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	var (
		cursor  uint64
		deleted int64
	)
	for {
		keys, next, err := c.client.Scan(ctx, cursor, prefix+"*", defaultScanBatchSize).Result()
		if err != nil {
			return unavailable("scan", err)
		}
		if len(keys) > 0 {
			n, err := c.client.Del(ctx, keys...).Result()
			if err != nil {
				return unavailable("delete", err)
			}
			deleted += n
		}
		cursor = next
		if cursor == 0 {
			break
		}
	}
	c.logger.Debug("Deleted cache keys by prefix", zap.String("prefix", prefix), zap.Int64("deleted", deleted))
	return nil
}

// IsConnected reports whether Redis answers a PING
func (c *RedisCache) IsConnected(ctx context.Context) bool {
	return c.Ping(ctx) == nil
}

// Close releases the client if the cache created it
func (c *RedisCache) Close() error {
	if c.ownsClient {
		return c.client.Close()
	}
	return nil
}

// Client returns the underlying Redis client
func (c *RedisCache) Client() *redis.Client {
	return c.client
}

func unavailable(op string, err error) error {
	return shared.WrapDomainError(shared.CodeCacheMiss, fmt.Sprintf("cache %s failed", op), err)
}

var _ shared.ProjectionCache = (*RedisCache)(nil)
