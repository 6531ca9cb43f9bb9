package store

import (
	"fmt"
	"sync"
	"time"

	"github.com/dgraph-io/ristretto"

	"github.com/rcliao/smart-memory/internal/model"
)

// Cache holds recently used memories in process. The repository stays the
// source of truth; a cache may drop entries at any time.
type Cache interface {
	Get(id model.MemoryID) (model.Memory, bool)
	Put(m model.Memory)
	// Touch records an access on a cached entry and returns the updated copy.
	Touch(id model.MemoryID, at time.Time) (model.Memory, bool)
	Close()
}

// mapCache never evicts; it grows with the number of distinct memories read
// or written during the process lifetime.
type mapCache struct {
	mu      sync.Mutex
	entries map[model.MemoryID]model.Memory
}

// NewMapCache returns an unbounded cache.
func NewMapCache() Cache {
	return &mapCache{entries: make(map[model.MemoryID]model.Memory)}
}

func (c *mapCache) Get(id model.MemoryID) (model.Memory, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	m, ok := c.entries[id]
	return m.Clone(), ok
}

func (c *mapCache) Put(m model.Memory) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[m.ID] = m.Clone()
}

func (c *mapCache) Touch(id model.MemoryID, at time.Time) (model.Memory, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	m, ok := c.entries[id]
	if !ok {
		return model.Memory{}, false
	}
	m.Touch(at)
	c.entries[id] = m
	return m.Clone(), true
}

func (c *mapCache) Close() {}

// RistrettoCache bounds the cache by the sum of cached token counts.
type RistrettoCache struct {
	mu sync.Mutex
	c  *ristretto.Cache
}

// NewRistrettoCache returns a cache holding roughly maxTokens worth of memories.
func NewRistrettoCache(maxTokens int64) (*RistrettoCache, error) {
	if maxTokens <= 0 {
		return nil, fmt.Errorf("cache size must be positive, got %d", maxTokens)
	}
	c, err := ristretto.NewCache(&ristretto.Config{
		NumCounters: max(maxTokens, 1000) * 10,
		MaxCost:     maxTokens,
		BufferItems: 64,
	})
	if err != nil {
		return nil, fmt.Errorf("create ristretto cache: %w", err)
	}
	return &RistrettoCache{c: c}, nil
}

func (r *RistrettoCache) Get(id model.MemoryID) (model.Memory, bool) {
	v, ok := r.c.Get(string(id))
	if !ok {
		return model.Memory{}, false
	}
	return v.(model.Memory).Clone(), true
}

func (r *RistrettoCache) Put(m model.Memory) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.set(m)
}

func (r *RistrettoCache) Touch(id model.MemoryID, at time.Time) (model.Memory, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	v, ok := r.c.Get(string(id))
	if !ok {
		return model.Memory{}, false
	}
	m := v.(model.Memory).Clone()
	m.Touch(at)
	r.set(m)
	return m.Clone(), true
}

// set must be called with mu held. Wait makes the write visible to the next Get.
func (r *RistrettoCache) set(m model.Memory) {
	r.c.Set(string(m.ID), m.Clone(), max(int64(m.TokenCount), 1))
	r.c.Wait()
}

func (r *RistrettoCache) Close() {
	r.c.Close()
}
