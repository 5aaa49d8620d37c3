package cache

import (
	"context"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
)

// Cache is a typed key/value cache with per-entry expiry.
// Misses and backend failures both report ok=false; callers fall through
// to the source of truth.
type Cache[V any] interface {
	Get(ctx context.Context, key string) (V, bool)
	Set(ctx context.Context, key string, value V)
	Delete(ctx context.Context, key string)
}

// LRU is an in-process cache bounded by entry count and TTL.
type LRU[V any] struct {
	lru *expirable.LRU[string, V]
}

// NewLRU creates a new in-memory cache holding at most size entries for ttl each.
func NewLRU[V any](size int, ttl time.Duration) *LRU[V] {
	if size <= 0 {
		size = 1000
	}
	return &LRU[V]{lru: expirable.NewLRU[string, V](size, nil, ttl)}
}

// Get retrieves an item from the cache
func (c *LRU[V]) Get(_ context.Context, key string) (V, bool) {
	return c.lru.Get(key)
}

// Set adds an item to the cache with the default expiration
func (c *LRU[V]) Set(_ context.Context, key string, value V) {
	c.lru.Add(key, value)
}

// Delete removes an item from the cache
func (c *LRU[V]) Delete(_ context.Context, key string) {
	c.lru.Remove(key)
}

// Len returns the number of live entries.
func (c *LRU[V]) Len() int {
	return c.lru.Len()
}
