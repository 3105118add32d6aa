package cache

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/abduss/artifactdrive/internal/metrics"
)

// Redis is a cache shared by every API instance. Values are stored as JSON.
// Redis failures degrade to cache misses; they are logged, never returned.
type Redis[V any] struct {
	rdb    redis.Cmdable
	prefix string
	ttl    time.Duration
	logger *zap.Logger
}

// RedisOptions configures a Redis connection.
type RedisOptions struct {
	Addr     string
	Password string
	DB       int
}

// NewRedisClient opens a client for opts.
func NewRedisClient(opts RedisOptions) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:     opts.Addr,
		Password: opts.Password,
		DB:       opts.DB,
	})
}

// NewRedis wraps rdb. Keys are namespaced with prefix.
func NewRedis[V any](rdb redis.Cmdable, prefix string, ttl time.Duration, logger *zap.Logger) *Redis[V] {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Redis[V]{
		rdb:    rdb,
		prefix: prefix,
		ttl:    ttl,
		logger: logger.With(zap.String("component", "cache")),
	}
}

// Get returns the cached value for key.
func (c *Redis[V]) Get(ctx context.Context, key string) (V, bool) {
	var zero V

	raw, err := c.rdb.Get(ctx, c.prefix+key).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			c.logger.Warn("redis get failed", zap.String("key", key), zap.Error(err))
		}
		metrics.ObserveCacheLookup(false)
		return zero, false
	}

	var val V
	if err := json.Unmarshal(raw, &val); err != nil {
		c.logger.Warn("discarding undecodable cache entry", zap.String("key", key), zap.Error(err))
		c.Delete(ctx, key)
		metrics.ObserveCacheLookup(false)
		return zero, false
	}
	metrics.ObserveCacheLookup(true)
	return val, true
}

// Set stores val under key for the configured TTL.
func (c *Redis[V]) Set(ctx context.Context, key string, val V) {
	raw, err := json.Marshal(val)
	if err != nil {
		c.logger.Warn("encode cache entry", zap.String("key", key), zap.Error(err))
		return
	}
	if err := c.rdb.Set(ctx, c.prefix+key, raw, c.ttl).Err(); err != nil {
		c.logger.Warn("redis set failed", zap.String("key", key), zap.Error(err))
	}
}

// Delete drops key.
func (c *Redis[V]) Delete(ctx context.Context, key string) {
	if err := c.rdb.Del(ctx, c.prefix+key).Err(); err != nil {
		c.logger.Warn("redis delete failed", zap.String("key", key), zap.Error(err))
	}
}
