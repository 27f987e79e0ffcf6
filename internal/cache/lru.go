// Package cache memoizes finished documents under a seed-independent
// canonicalization of the reading context. The front tier is a fixed-capacity
// in-memory LRU with O(1) amortized operations; an optional SQLite tier
// persists documents across processes. Any persistent-tier failure is
// swallowed and the cache degrades to memory-only, then to a transparent
// pass-through: callers never see a cache error.
package cache

import (
	"container/list"
	"sync"
	"time"

	"go.uber.org/zap"

	"arcana/internal/reading"
)

// Entry is one cached document plus its access bookkeeping.
type Entry struct {
	Key            string
	Value          string
	CreatedAt      time.Time
	LastAccessedAt time.Time
	AccessCount    int
}

// Cache is the two-tier synthesis cache. Safe for concurrent use; LRU
// reordering is a read-then-write, so both Get and Put take the mutex.
type Cache struct {
	mu       sync.Mutex
	capacity int
	ll       *list.List
	items    map[string]*list.Element
	store    *Store
	logger   *zap.Logger
	now      func() time.Time
}

// Option configures a Cache.
type Option func(*Cache)

// WithStore attaches a persistent tier.
func WithStore(store *Store) Option {
	return func(c *Cache) { c.store = store }
}

// WithLogger attaches a logger; the default is a no-op.
func WithLogger(logger *zap.Logger) Option {
	return func(c *Cache) { c.logger = logger }
}

// WithClock injects a clock for deterministic tests.
func WithClock(now func() time.Time) Option {
	return func(c *Cache) { c.now = now }
}

// New builds a cache with the given capacity. Capacity below 1 is clamped
// to 1 so Put always has somewhere to land.
func New(capacity int, opts ...Option) *Cache {
	if capacity < 1 {
		capacity = 1
	}
	c := &Cache{
		capacity: capacity,
		ll:       list.New(),
		items:    make(map[string]*list.Element, capacity),
		logger:   zap.NewNop(),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Get returns the cached document for a context, if any. A memory hit is
// promoted to most-recently-used; a persistent-tier hit is pulled forward
// into memory. Persistent-tier errors degrade to a miss.
func (c *Cache) Get(rc reading.Context) (string, bool) {
	key := Key(rc)

	c.mu.Lock()
	if el, ok := c.items[key]; ok {
		c.ll.MoveToFront(el)
		e := el.Value.(*Entry)
		e.LastAccessedAt = c.now()
		e.AccessCount++
		value := e.Value
		c.mu.Unlock()
		return value, true
	}
	c.mu.Unlock()

	if c.store == nil {
		return "", false
	}
	value, ok, err := c.store.Get(key)
	if err != nil {
		c.logger.Debug("persistent cache unavailable, bypassing", zap.Error(err))
		return "", false
	}
	if !ok {
		return "", false
	}
	c.insert(key, value)
	return value, true
}

// Put stores a document under the context's key, evicting the
// least-recently-used entry at capacity. The persistent tier is written
// best-effort.
func (c *Cache) Put(rc reading.Context, value string) {
	key := Key(rc)
	c.insert(key, value)

	if c.store != nil {
		if err := c.store.Put(key, value); err != nil {
			c.logger.Debug("persistent cache write failed, continuing", zap.Error(err))
		}
	}
}

func (c *Cache) insert(key, value string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if el, ok := c.items[key]; ok {
		c.ll.MoveToFront(el)
		e := el.Value.(*Entry)
		e.Value = value
		e.LastAccessedAt = c.now()
		return
	}

	e := &Entry{
		Key:            key,
		Value:          value,
		CreatedAt:      c.now(),
		LastAccessedAt: c.now(),
	}
	c.items[key] = c.ll.PushFront(e)

	if c.ll.Len() > c.capacity {
		oldest := c.ll.Back()
		if oldest != nil {
			c.ll.Remove(oldest)
			delete(c.items, oldest.Value.(*Entry).Key)
		}
	}
}

// Len reports the number of in-memory entries.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.ll.Len()
}

// Capacity reports the configured capacity.
func (c *Cache) Capacity() int {
	return c.capacity
}

// Clear drops every in-memory entry. The persistent tier, if any, is
// cleared separately via Store.Clear.
func (c *Cache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.ll.Init()
	c.items = make(map[string]*list.Element, c.capacity)
}
