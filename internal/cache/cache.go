package cache

import (
	"context"
	"sync"
	"time"

	"github.com/wonny/fairvalue/internal/contracts"
	"github.com/wonny/fairvalue/pkg/logger"
	"github.com/wonny/fairvalue/pkg/redis"
)

// ComputeFunc produces a fresh value on a cache miss
type ComputeFunc[V any] func(ctx context.Context) (V, error)

// Cache holds immutable snapshots per key for a fixed TTL.
// Each key has its own lock so concurrent misses for one key compute once
// while other keys proceed. Values go in and come out through clone, so a
// caller never shares memory with the cache.
// ⭐ SSOT: 평가 결과 캐시는 엔진 바깥 여기서만
type Cache[V any] struct {
	ttl       time.Duration
	shared    *redis.Cache
	sharedKey func(string) string
	clone     func(V) V
	logger    *logger.Logger
	now       func() time.Time

	mu      sync.Mutex
	entries map[string]*entry[V]
}

type entry[V any] struct {
	mu      sync.Mutex
	value   V
	filled  bool
	expires time.Time
}

// New creates a cache. shared may be nil or disabled; values stored there
// must round-trip through JSON. clone deep-copies a value.
func New[V any](ttl time.Duration, shared *redis.Cache, clone func(V) V, log *logger.Logger) *Cache[V] {
	if ttl <= 0 {
		ttl = redis.TTLValuation
	}
	return &Cache[V]{
		ttl:       ttl,
		shared:    shared,
		sharedKey: redis.ValuationKey,
		clone:     clone,
		logger:    log,
		now:       time.Now,
		entries:   make(map[string]*entry[V]),
	}
}

// WithSharedKey sets how local keys map to shared-tier keys (default redis.ValuationKey)
func (c *Cache[V]) WithSharedKey(fn func(string) string) *Cache[V] {
	c.sharedKey = fn
	return c
}

func (c *Cache[V]) entryFor(key string) *entry[V] {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, found := c.entries[key]
	if !found {
		e = &entry[V]{}
		c.entries[key] = e
	}
	return e
}

// GetOrCompute returns the cached value for key, or runs compute and caches
// its value. refresh bypasses both tiers. The bool reports a cache hit.
// Errors are never cached.
func (c *Cache[V]) GetOrCompute(ctx context.Context, key string, refresh bool, compute ComputeFunc[V]) (V, bool, error) {
	e := c.entryFor(key)

	e.mu.Lock()
	defer e.mu.Unlock()

	now := c.now()
	if !refresh && e.filled && now.Before(e.expires) {
		return c.clone(e.value), true, nil
	}

	if !refresh && c.shared.Enabled() {
		var shared V
		found, err := c.shared.Get(ctx, c.sharedKey(key), &shared)
		if err != nil {
			c.logger.WithError(err).WithField("key", key).Warn("Shared cache read failed")
		}
		if found {
			e.value, e.filled = shared, true
			e.expires = now.Add(c.ttl)
			return c.clone(shared), true, nil
		}
	}

	value, err := compute(ctx)
	if err != nil {
		var zero V
		return zero, false, err
	}

	e.value, e.filled = c.clone(value), true
	e.expires = c.now().Add(c.ttl)

	if err := c.shared.Set(ctx, c.sharedKey(key), value, c.ttl); err != nil {
		c.logger.WithError(err).WithField("key", key).Warn("Shared cache write failed")
	}

	return value, false, nil
}

// Invalidate drops key from the local tier and the shared tier
func (c *Cache[V]) Invalidate(ctx context.Context, key string) {
	c.mu.Lock()
	delete(c.entries, key)
	c.mu.Unlock()

	if err := c.shared.Delete(ctx, c.sharedKey(key)); err != nil {
		c.logger.WithError(err).WithField("key", key).Warn("Shared cache delete failed")
	}
}

// Sweep removes expired local entries and returns how many were dropped.
// Entries busy with a computation are skipped.
func (c *Cache[V]) Sweep() int {
	now := c.now()

	c.mu.Lock()
	defer c.mu.Unlock()

	removed := 0
	for key, e := range c.entries {
		if !e.mu.TryLock() {
			continue
		}
		if !e.filled || !now.Before(e.expires) {
			delete(c.entries, key)
			removed++
		}
		e.mu.Unlock()
	}
	return removed
}

// Len returns the number of local entries, expired or not
func (c *Cache[V]) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

// CloneResult deep-copies a result so callers cannot mutate a cached snapshot
func CloneResult(r *contracts.ValuationResult) *contracts.ValuationResult {
	if r == nil {
		return nil
	}
	out := *r
	if r.ProjectedFCF != nil {
		out.ProjectedFCF = append([]float64(nil), r.ProjectedFCF...)
	}
	if r.Warnings != nil {
		out.Warnings = append([]contracts.Degradation(nil), r.Warnings...)
	}
	return &out
}
