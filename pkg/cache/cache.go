// Package cache provides the session-scoped model cache used by page
// factories to reuse view models across navigations.
//
// The cache has no eviction policy, TTL or size bound. Invalidation is all
// or nothing: the navigation controller owning the cache calls Clear when
// its region is torn down. Clearing early is always safe; the cache is an
// optimization, not a source of truth.
package cache

import (
	"context"
	"fmt"
	"slices"
	"sync"

	"golang.org/x/sync/singleflight"
)

// ModelCache maps string keys to previously constructed page models.
// It is safe for concurrent use.
type ModelCache struct {
	mu      sync.RWMutex
	entries map[string]any

	// epoch increments on every Clear so in-flight loads started before a
	// clear do not repopulate the cache.
	epoch uint64

	group singleflight.Group
}

// New creates an empty model cache.
func New() *ModelCache {
	return &ModelCache{
		entries: make(map[string]any),
	}
}

// Get returns the cached value for key.
func (c *ModelCache) Get(key string) (any, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	v, ok := c.entries[key]
	return v, ok
}

// Set stores value under key, replacing any previous value.
func (c *ModelCache) Set(key string, value any) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[key] = value
}

// Clear removes all entries.
func (c *ModelCache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[string]any)
	c.epoch++
}

// Len returns the number of cached entries.
func (c *ModelCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

// Keys returns the cached keys in sorted order.
func (c *ModelCache) Keys() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	keys := make([]string, 0, len(c.entries))
	for k := range c.entries {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}

func (c *ModelCache) currentEpoch() uint64 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.epoch
}

// setIfEpoch stores value only if no Clear happened since epoch was read.
func (c *ModelCache) setIfEpoch(key string, value any, epoch uint64) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.epoch != epoch {
		return false
	}
	c.entries[key] = value
	return true
}

// Load returns the model cached under key, or builds it with init and caches
// the result. Concurrent loads of the same key share one init call. A failed
// init is not cached. If the cache is cleared while init runs, the result is
// returned to the caller but not stored.
//
// A nil cache always calls init.
func Load[T any](ctx context.Context, c *ModelCache, key string, init func(ctx context.Context) (T, error)) (T, error) {
	var zero T
	if c == nil {
		return init(ctx)
	}

	if v, ok := c.Get(key); ok {
		model, ok := v.(T)
		if !ok {
			return zero, fmt.Errorf("cache: key %q holds %T, want %T", key, v, zero)
		}
		return model, nil
	}

	epoch := c.currentEpoch()
	v, err, _ := c.group.Do(key, func() (any, error) {
		model, err := init(ctx)
		if err != nil {
			return nil, err
		}
		c.setIfEpoch(key, model, epoch)
		return model, nil
	})
	if err != nil {
		return zero, err
	}

	model, ok := v.(T)
	if !ok {
		return zero, fmt.Errorf("cache: key %q holds %T, want %T", key, v, zero)
	}
	return model, nil
}
