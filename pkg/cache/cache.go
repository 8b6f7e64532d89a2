// Package cache stores resolved DID documents with a bounded size and a maximum age.
package cache

import (
	"context"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
)

const (
	DefaultMaxSize = 5
	DefaultMaxAge  = 24 * time.Hour
)

// Cache is a bounded key/value store. Entries older than the configured max age are never returned,
// and the least recently used entry is evicted when the cache is full. Implementations report a
// backend fault as a miss.
type Cache[V any] interface {
	Get(ctx context.Context, key string) (V, bool)
	Set(ctx context.Context, key string, value V) bool
}

type options struct {
	maxSize int
	maxAge  time.Duration
}

type Option func(*options)

// WithMaxSize sets the number of entries kept. Values below one are ignored.
func WithMaxSize(size int) Option {
	return func(o *options) {
		if size > 0 {
			o.maxSize = size
		}
	}
}

// WithMaxAge sets how long an entry lives after it was written. Values below one are ignored.
func WithMaxAge(age time.Duration) Option {
	return func(o *options) {
		if age > 0 {
			o.maxAge = age
		}
	}
}

func newOptions(opts []Option) options {
	o := options{maxSize: DefaultMaxSize, maxAge: DefaultMaxAge}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// MemoryCache is a process local LRU cache with per entry expiry. It is safe for concurrent use.
type MemoryCache[V any] struct {
	lru *expirable.LRU[string, V]
}

var _ Cache[string] = (*MemoryCache[string])(nil)

func NewMemoryCache[V any](opts ...Option) *MemoryCache[V] {
	o := newOptions(opts)
	return &MemoryCache[V]{lru: expirable.NewLRU[string, V](o.maxSize, nil, o.maxAge)}
}

func (c *MemoryCache[V]) Get(_ context.Context, key string) (V, bool) {
	return c.lru.Get(key)
}

func (c *MemoryCache[V]) Set(_ context.Context, key string, value V) bool {
	c.lru.Add(key, value)
	return true
}

// Len is the number of entries, including expired ones not yet purged.
func (c *MemoryCache[V]) Len() int {
	return c.lru.Len()
}
