package cache

import (
	"strings"
	"sync"
	"time"

	"github.com/use-agent/flowscout/models"
)

// Key identifies a reconciled result set. Pagination, debug and audit
// flags are not part of it: every page and mode is served from the
// same entry.
//
// Fields are compared case-insensitively, so "CD3" and "cd3" share an
// entry. The stored rows keep the spelling of the query that filled it
// until the entry expires.
type Key struct {
	Vendor  models.Vendor
	Target  string
	Species string
	Laser   models.Laser
}

// KeyFor builds the canonical cache key for a normalized query.
func KeyFor(q models.Query) Key {
	return Key{
		Vendor:  models.Vendor(strings.ToLower(string(q.Vendor))),
		Target:  strings.ToLower(q.Target),
		Species: strings.ToLower(q.Species),
		Laser:   models.Laser(strings.ToLower(string(q.Laser))),
	}
}

// entry holds a cached result set with its creation timestamp.
type entry struct {
	set       *models.ResultSet
	createdAt time.Time
}

// Cache is an in-memory TTL cache for reconciled result sets.
// It is safe for concurrent use.
type Cache struct {
	mu         sync.Mutex
	store      map[Key]*entry
	ttl        time.Duration
	maxEntries int
	now        func() time.Time
}

// New creates a Cache. Expired entries are removed lazily on Get.
func New(ttl time.Duration, maxEntries int) *Cache {
	if maxEntries < 1 {
		maxEntries = 1
	}
	return &Cache{
		store:      make(map[Key]*entry),
		ttl:        ttl,
		maxEntries: maxEntries,
		now:        time.Now,
	}
}

// WithClock replaces the time source. Intended for tests.
func (c *Cache) WithClock(now func() time.Time) *Cache {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = now
	return c
}

// Get returns the result set for key if it is younger than the TTL.
// An expired entry is deleted.
func (c *Cache) Get(key Key) (*models.ResultSet, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.store[key]
	if !ok {
		return nil, false
	}
	if c.now().Sub(e.createdAt) >= c.ttl {
		delete(c.store, key)
		return nil, false
	}
	return e.set, true
}

// Set stores set under key, overwriting any previous entry. At capacity an
// expired entry is evicted if there is one, otherwise an arbitrary one.
func (c *Cache) Set(key Key, set *models.ResultSet) {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	if _, exists := c.store[key]; !exists && len(c.store) >= c.maxEntries {
		c.evictLocked(now)
	}

	c.store[key] = &entry{set: set, createdAt: now}
}

// evictLocked removes one entry. Caller must hold c.mu.
func (c *Cache) evictLocked(now time.Time) {
	for k, e := range c.store {
		if now.Sub(e.createdAt) >= c.ttl {
			delete(c.store, k)
			return
		}
	}
	// Map iteration order is random in Go.
	for k := range c.store {
		delete(c.store, k)
		return
	}
}

// Len returns the number of stored entries, expired ones included.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.store)
}
