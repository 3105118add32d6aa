// Package cache holds short-lived read caches in front of PostgreSQL.
// Entries expire after a TTL; writers invalidate explicitly.
package cache

import (
	"context"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"

	"github.com/abduss/artifactdrive/internal/metrics"
)

// LRU is an in-process cache bounded by entry count and TTL.
// Each API instance keeps its own copy.
type LRU[V any] struct {
	cache *expirable.LRU[string, V]
}

// NewLRU creates a cache holding at most size entries for ttl each.
func NewLRU[V any](size int, ttl time.Duration) *LRU[V] {
	return &LRU[V]{cache: expirable.NewLRU[string, V](size, nil, ttl)}
}

// Get returns the cached value for key.
func (c *LRU[V]) Get(_ context.Context, key string) (V, bool) {
	val, ok := c.cache.Get(key)
	metrics.ObserveCacheLookup(ok)
	return val, ok
}

// Set stores val under key.
func (c *LRU[V]) Set(_ context.Context, key string, val V) {
	c.cache.Add(key, val)
}

// Delete drops key.
func (c *LRU[V]) Delete(_ context.Context, key string) {
	c.cache.Remove(key)
}
