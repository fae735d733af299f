// Package cache keeps created form instances for reuse, bounded by capacity
// and ordered by recency. The cache owns instance lifetime: every instance it
// evicts is released.
package cache

import (
	"fmt"

	"github.com/hashicorp/golang-lru/v2/simplelru"
	"go.uber.org/zap"

	"github.com/GriffinCanCode/formstack/internal/domain/form"
)

// EvictFunc runs before an evicted instance is released.
type EvictFunc func(f *form.Instance)

// Cache is a recency-ordered registry of instances keyed by asset name.
// It is not safe for concurrent use.
type Cache struct {
	lru      *simplelru.LRU[string, *form.Instance]
	capacity int
	onEvict  EvictFunc
	evicted  int
	logger   *zap.Logger
}

// New creates a cache holding at most capacity instances.
func New(capacity int, onEvict EvictFunc, logger *zap.Logger) (*Cache, error) {
	if capacity < 0 {
		return nil, fmt.Errorf("cache capacity %d: %w", capacity, form.ErrValidation)
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	c := &Cache{onEvict: onEvict, logger: logger.Named("cache")}

	// simplelru needs a positive size; capacity 0 is applied by Resize below.
	lru, err := simplelru.NewLRU[string, *form.Instance](max(capacity, 1), c.release)
	if err != nil {
		return nil, fmt.Errorf("failed to create lru: %w", err)
	}
	c.lru = lru
	c.applyCapacity(capacity)
	return c, nil
}

// TryGet returns the cached instance and marks it most recently used.
func (c *Cache) TryGet(assetName string) (*form.Instance, bool) {
	return c.lru.Get(assetName)
}

// Peek returns the cached instance without touching recency.
func (c *Cache) Peek(assetName string) (*form.Instance, bool) {
	return c.lru.Peek(assetName)
}

func (c *Cache) Contains(assetName string) bool {
	return c.lru.Contains(assetName)
}

// Insert adds the instance as most recently used, evicting and releasing the
// least recently used one when over capacity. An instance already cached
// under the same asset name is released first.
func (c *Cache) Insert(f *form.Instance) {
	if old, ok := c.lru.Peek(f.AssetName()); ok {
		if old == f {
			c.lru.Get(f.AssetName())
			return
		}
		c.logger.Warn("replacing cached form", zap.Stringer("old", old), zap.Stringer("new", f))
		c.lru.Remove(f.AssetName())
	}
	c.lru.Add(f.AssetName(), f)
}

// Remove evicts and releases the instance cached for the asset.
func (c *Cache) Remove(assetName string) bool {
	return c.lru.Remove(assetName)
}

// Resize changes the capacity, eagerly evicting from the least recently used
// end. Growing never creates anything.
func (c *Cache) Resize(capacity int) error {
	if capacity < 0 {
		return fmt.Errorf("cache capacity %d: %w", capacity, form.ErrValidation)
	}
	if capacity == c.capacity {
		return nil
	}
	c.logger.Info("resizing cache", zap.Int("from", c.capacity), zap.Int("to", capacity))
	c.applyCapacity(capacity)
	return nil
}

// Purge releases every cached instance, least recently used first.
func (c *Cache) Purge() {
	for {
		if _, _, ok := c.lru.RemoveOldest(); !ok {
			return
		}
	}
}

func (c *Cache) Len() int {
	return c.lru.Len()
}

func (c *Cache) Capacity() int {
	return c.capacity
}

// Evictions returns how many instances were evicted so far.
func (c *Cache) Evictions() int {
	return c.evicted
}

// Entries returns cached instances, most recently used first.
func (c *Cache) Entries() []*form.Instance {
	values := c.lru.Values()
	out := make([]*form.Instance, len(values))
	for i, v := range values {
		out[len(values)-1-i] = v
	}
	return out
}

// applyCapacity resizes the lru. A capacity of 0 evicts everything, then
// leaves room for the instance being inserted so that a fresh form is never
// released before it is opened; the next insert evicts it.
func (c *Cache) applyCapacity(capacity int) {
	c.capacity = capacity
	c.lru.Resize(capacity)
	if capacity == 0 {
		c.lru.Resize(1)
	}
}

func (c *Cache) release(assetName string, f *form.Instance) {
	c.evicted++
	c.logger.Debug("evicting form", zap.String("asset", assetName), zap.Int64("serial", f.SerialID()))
	if c.onEvict != nil {
		c.onEvict(f)
	}
	f.Release()
}
