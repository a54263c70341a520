// Package cache implements the two-tier LRU+TTL cache used for embeddings
// and generated answers.
package cache

import (
	"time"

	lru "github.com/hashicorp/golang-lru/v2/expirable"

	"github.com/sevigo/coderag/internal/telemetry"
)

// Cache is a generic, capacity-bounded, per-entry-TTL store. A single
// instance backs either the embedding cache (1000 entries, 3600s TTL) or
// the answer cache (500 entries, 300s TTL); both are constructed with New.
//
// Linearizability and LRU-on-overflow/lazy-TTL-on-access semantics are
// provided directly by hashicorp/golang-lru/v2's expirable.LRU, which holds
// its own internal mutex and reports an expired entry as absent; Get below
// also removes such an entry.
type Cache[V any] struct {
	lru       *lru.LRU[string, V]
	telemetry *telemetry.Sink
	tier      string
}

// New returns a cache with the given capacity and TTL.
func New[V any](capacity int, ttl time.Duration) *Cache[V] {
	return &Cache[V]{lru: lru.NewLRU[string, V](capacity, nil, ttl)}
}

// WithTelemetry attaches a telemetry sink and a tier label ("embedding" or
// "answer") so Get reports hit/miss counts. Returns c for chaining at
// construction time.
func (c *Cache[V]) WithTelemetry(sink *telemetry.Sink, tier string) *Cache[V] {
	c.telemetry = sink
	c.tier = tier
	return c
}

// Get returns the value for k if present and not expired.
func (c *Cache[V]) Get(k string) (V, bool) {
	v, ok := c.lru.Get(k)
	if !ok {
		// drop an expired entry the library may still hold
		c.lru.Remove(k)
	}
	if c.telemetry != nil {
		outcome := "miss"
		if ok {
			outcome = "hit"
		}
		c.telemetry.CacheHits.WithLabelValues(c.tier, outcome).Inc()
	}
	return v, ok
}

// Set upserts k, refreshing its expiry, and evicts the least-recently-used
// entry if the cache is at capacity.
func (c *Cache[V]) Set(k string, v V) {
	c.lru.Add(k, v)
}

// Clear empties the cache.
func (c *Cache[V]) Clear() {
	c.lru.Purge()
}

// Len returns the number of entries the cache holds; an expired entry is
// counted until Get or the library's periodic cleanup removes it.
func (c *Cache[V]) Len() int {
	return c.lru.Len()
}

// Remove deletes k if present.
func (c *Cache[V]) Remove(k string) {
	c.lru.Remove(k)
}

const (
	EmbeddingCapacity = 1000
	EmbeddingTTL      = 3600 * time.Second
	AnswerCapacity    = 500
	AnswerTTL         = 300 * time.Second
)

// NewEmbeddingCache returns a cache sized per spec.md's embedding tier.
func NewEmbeddingCache() *Cache[[]float32] {
	return New[[]float32](EmbeddingCapacity, EmbeddingTTL)
}

// NewAnswerCache returns a cache sized per spec.md's answer tier.
func NewAnswerCache() *Cache[string] {
	return New[string](AnswerCapacity, AnswerTTL)
}
