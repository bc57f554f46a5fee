package cache

import (
	"sort"
	"sync"
	"time"

	"github.com/matheus3301/lexchat/internal/bus"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

// InvalidatedEvent is the payload of bus.KindCacheInvalidated.
type InvalidatedEvent struct {
	Tags []Tag
	Keys []string
}

// KeyEvent is the payload of stored and patched events.
type KeyEvent struct {
	Key string
}

type entry struct {
	value     any
	tags      []Tag
	stale     bool
	fetchedAt time.Time
}

// Cache holds query results keyed by string, each labelled with tags.
type Cache struct {
	mu      sync.RWMutex
	entries map[string]*entry
	epoch   uint64

	group    singleflight.Group
	flightMu sync.Mutex
	flights  map[string]*flightCall

	bus    *bus.Bus
	logger *zap.Logger
	now    func() time.Time
}

// New creates an empty cache. Events are published on b when it is non-nil.
func New(b *bus.Bus, logger *zap.Logger) *Cache {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Cache{
		entries: make(map[string]*entry),
		flights: make(map[string]*flightCall),
		bus:     b,
		logger:  logger,
		now:     time.Now,
	}
}

// Get returns the value stored under key if it is present and fresh.
func (c *Cache) Get(key string) (any, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	e, ok := c.entries[key]
	if !ok || e.stale {
		return nil, false
	}
	return e.value, true
}

// Peek returns the value stored under key even when it is stale.
func (c *Cache) Peek(key string) (any, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	e, ok := c.entries[key]
	if !ok {
		return nil, false
	}
	return e.value, true
}

// IsStale reports whether key is present but awaiting a refetch.
func (c *Cache) IsStale(key string) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	e, ok := c.entries[key]
	return ok && e.stale
}

// FetchedAt returns when key was last written by a fetch.
func (c *Cache) FetchedAt(key string) (time.Time, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	e, ok := c.entries[key]
	if !ok {
		return time.Time{}, false
	}
	return e.fetchedAt, true
}

// Put stores value under key as fresh, replacing any previous entry.
func (c *Cache) Put(key string, value any, tags ...Tag) {
	c.mu.Lock()
	c.entries[key] = &entry{value: value, tags: tags, fetchedAt: c.now()}
	c.mu.Unlock()
	c.bus.Emit(bus.KindCacheStored, KeyEvent{Key: key})
}

// putAt stores value only if no Reset happened since epoch was read.
func (c *Cache) putAt(epoch uint64, key string, value any, tags []Tag) bool {
	c.mu.Lock()
	if c.epoch != epoch {
		c.mu.Unlock()
		return false
	}
	c.entries[key] = &entry{value: value, tags: tags, fetchedAt: c.now()}
	c.mu.Unlock()
	c.bus.Emit(bus.KindCacheStored, KeyEvent{Key: key})
	return true
}

// mergeAt combines fetched with the current value under key atomically.
func (c *Cache) mergeAt(epoch uint64, key string, tags []Tag, fn func(old any, ok bool) any) (any, bool) {
	c.mu.Lock()
	if c.epoch != epoch {
		c.mu.Unlock()
		return nil, false
	}
	var old any
	e, ok := c.entries[key]
	if ok {
		old = e.value
	}
	merged := fn(old, ok)
	c.entries[key] = &entry{value: merged, tags: tags, fetchedAt: c.now()}
	c.mu.Unlock()
	c.bus.Emit(bus.KindCacheStored, KeyEvent{Key: key})
	return merged, true
}

// update replaces the value under key in place, keeping tags and freshness.
// fn is not called when the key is missing.
func (c *Cache) update(key string, fn func(old any) (any, bool)) bool {
	c.mu.Lock()
	e, ok := c.entries[key]
	if !ok {
		c.mu.Unlock()
		return false
	}
	next, changed := fn(e.value)
	if changed {
		e.value = next
	}
	c.mu.Unlock()
	if changed {
		c.bus.Emit(bus.KindCachePatched, KeyEvent{Key: key})
	}
	return changed
}

func (c *Cache) currentEpoch() uint64 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.epoch
}

// Invalidate marks stale every entry carrying a tag matched by tags and
// returns the affected keys.
func (c *Cache) Invalidate(tags ...Tag) []string {
	if len(tags) == 0 {
		return nil
	}
	var keys []string
	c.mu.Lock()
	for key, e := range c.entries {
		if matchesAny(tags, e.tags) {
			e.stale = true
			keys = append(keys, key)
		}
	}
	c.mu.Unlock()
	sort.Strings(keys)

	c.logger.Debug("cache invalidated", zap.Stringers("tags", tags), zap.Strings("keys", keys))
	c.bus.Emit(bus.KindCacheInvalidated, InvalidatedEvent{Tags: tags, Keys: keys})
	return keys
}

// Remove drops key.
func (c *Cache) Remove(key string) {
	c.mu.Lock()
	delete(c.entries, key)
	c.mu.Unlock()
}

// Keys returns every stored key in lexical order.
func (c *Cache) Keys() []string {
	c.mu.RLock()
	keys := make([]string, 0, len(c.entries))
	for key := range c.entries {
		keys = append(keys, key)
	}
	c.mu.RUnlock()
	sort.Strings(keys)
	return keys
}

// Reset drops every entry. Fetches that started before Reset do not write back.
func (c *Cache) Reset() {
	c.mu.Lock()
	c.entries = make(map[string]*entry)
	c.epoch++
	c.mu.Unlock()
	c.bus.Emit(bus.KindCacheReset, nil)
}

func matchesAny(invalidate, provided []Tag) bool {
	for _, inv := range invalidate {
		for _, p := range provided {
			if inv.Matches(p) {
				return true
			}
		}
	}
	return false
}
