package selectors

import (
	"context"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"presswork/internal/cms"
	"presswork/internal/testing/mock"
	"presswork/pkg/logging"
)

// Key identifies one cached resolution: a named element for a CMS kind.
type Key struct {
	Element string
	Kind    cms.Kind
}

func (k Key) String() string {
	return string(k.Kind) + "/" + k.Element
}

// Observer receives cache events. The metrics sink implements it; tests use
// a counter. A nil observer is valid.
type Observer interface {
	CacheHit()
	CacheMiss()
	CacheSize(n int)
}

// CacheConfig configures a Cache.
type CacheConfig struct {
	// TTL bounds how long a resolved selector is served without re-probing.
	// A non-positive TTL disables caching entirely.
	TTL time.Duration

	// Clock defaults to the real clock.
	Clock mock.Clock

	// Observer is optional.
	Observer Observer
}

// Cache is the TTL cache for resolved selectors. Safe for concurrent use.
type Cache struct {
	ttl   time.Duration
	clock mock.Clock
	obs   Observer

	mu      sync.RWMutex
	entries map[Key]entry

	group singleflight.Group
}

type entry struct {
	selector   string
	resolvedAt time.Time
}

// NewCache creates a selector cache.
func NewCache(cfg CacheConfig) *Cache {
	clock := cfg.Clock
	if clock == nil {
		clock = mock.RealClock{}
	}
	return &Cache{
		ttl:     cfg.TTL,
		clock:   clock,
		obs:     cfg.Observer,
		entries: make(map[Key]entry),
	}
}

// Resolve returns the cached selector for key when fresh, otherwise runs
// resolve once (collapsing concurrent callers of the same key) and caches
// the result. The bool reports whether the value came from the cache.
// Resolution failures are not cached.
func (c *Cache) Resolve(ctx context.Context, key Key, resolve func(context.Context) (string, error)) (string, bool, error) {
	if sel, ok := c.lookup(key); ok {
		if c.obs != nil {
			c.obs.CacheHit()
		}
		return sel, true, nil
	}
	if c.obs != nil {
		c.obs.CacheMiss()
	}

	v, err, shared := c.group.Do(key.String(), func() (interface{}, error) {
		// A concurrent caller may have stored the entry while this caller
		// was entering the flight.
		if sel, ok := c.lookup(key); ok {
			return sel, nil
		}
		sel, err := resolve(ctx)
		if err != nil {
			return "", err
		}
		c.store(key, sel)
		return sel, nil
	})
	if err != nil {
		return "", false, err
	}
	if shared {
		logging.Debug("SelectorCache", "Collapsed concurrent resolution of %s", key)
	}
	return v.(string), false, nil
}

// Invalidate drops the entry for key. Called when a cached selector stopped
// matching the live page.
func (c *Cache) Invalidate(key Key) {
	c.mu.Lock()
	_, existed := c.entries[key]
	delete(c.entries, key)
	n := len(c.entries)
	c.mu.Unlock()

	if existed {
		logging.Debug("SelectorCache", "Invalidated %s", key)
		if c.obs != nil {
			c.obs.CacheSize(n)
		}
	}
}

// Len returns the number of live entries, expired ones included until their
// next lookup.
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

// Purge drops every entry.
func (c *Cache) Purge() {
	c.mu.Lock()
	c.entries = make(map[Key]entry)
	c.mu.Unlock()

	if c.obs != nil {
		c.obs.CacheSize(0)
	}
}

func (c *Cache) lookup(key Key) (string, bool) {
	if c.ttl <= 0 {
		return "", false
	}

	c.mu.RLock()
	e, ok := c.entries[key]
	c.mu.RUnlock()
	if !ok {
		return "", false
	}

	if c.clock.Now().Sub(e.resolvedAt) >= c.ttl {
		c.mu.Lock()
		// Re-check under the write lock; a fresh store may have raced in.
		if cur, ok := c.entries[key]; ok && c.clock.Now().Sub(cur.resolvedAt) >= c.ttl {
			delete(c.entries, key)
		}
		c.mu.Unlock()
		return "", false
	}
	return e.selector, true
}

func (c *Cache) store(key Key, selector string) {
	if c.ttl <= 0 {
		return
	}

	c.mu.Lock()
	c.entries[key] = entry{selector: selector, resolvedAt: c.clock.Now()}
	n := len(c.entries)
	c.mu.Unlock()

	if c.obs != nil {
		c.obs.CacheSize(n)
	}
}
