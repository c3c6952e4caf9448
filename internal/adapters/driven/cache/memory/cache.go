// Package memory provides a process-local, size-bounded embedding cache.
package memory

import (
	"container/list"
	"context"
	"slices"
	"sync"
	"time"

	"github.com/custodia-labs/reverie/internal/adapters/driven/cache"
	"github.com/custodia-labs/reverie/internal/core/ports/driven"
)

// DefaultCapacity is the entry bound used when none is given.
const DefaultCapacity = 1024

var _ driven.EmbeddingCache = (*Cache)(nil)

type entry struct {
	key     string
	vector  []float32
	expires time.Time
}

// Cache is an LRU cache with per-entry expiry.
type Cache struct {
	mu       sync.Mutex
	capacity int
	ttl      time.Duration
	order    *list.List
	items    map[string]*list.Element
	now      func() time.Time
}

// New creates a cache. A non-positive ttl disables expiry.
func New(capacity int, ttl time.Duration) *Cache {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &Cache{
		capacity: capacity,
		ttl:      ttl,
		order:    list.New(),
		items:    make(map[string]*list.Element),
		now:      time.Now,
	}
}

// Get returns a copy of the cached vector.
func (c *Cache) Get(_ context.Context, model, text string) ([]float32, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	el, ok := c.items[cache.Key(model, text)]
	if !ok {
		return nil, false, nil
	}
	e := el.Value.(*entry)
	if !e.expires.IsZero() && c.now().After(e.expires) {
		c.order.Remove(el)
		delete(c.items, e.key)
		return nil, false, nil
	}
	c.order.MoveToFront(el)
	return slices.Clone(e.vector), true, nil
}

// Set stores vector, evicting the least recently used entry when full.
func (c *Cache) Set(_ context.Context, model, text string, vector []float32) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	key := cache.Key(model, text)
	var expires time.Time
	if c.ttl > 0 {
		expires = c.now().Add(c.ttl)
	}
	if el, ok := c.items[key]; ok {
		e := el.Value.(*entry)
		e.vector = slices.Clone(vector)
		e.expires = expires
		c.order.MoveToFront(el)
		return nil
	}

	c.items[key] = c.order.PushFront(&entry{key: key, vector: slices.Clone(vector), expires: expires})
	for c.order.Len() > c.capacity {
		last := c.order.Back()
		c.order.Remove(last)
		delete(c.items, last.Value.(*entry).key)
	}
	return nil
}

// Len returns the number of cached entries, expired ones included.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.order.Len()
}
