package rulesource

import (
	"context"
	"fmt"
	"sync"

	"golang.org/x/sync/singleflight"

	"cartrules/internal/rules"
	"cartrules/pkg/logging"
)

// cacheEntry is the loaded rule set of one shop.
type cacheEntry struct {
	rules []rules.Rule
}

// Cache is the fetch-once rule cache in front of a Source.
//
// A shop's rules are fetched at most once until Invalidate is called. A failed
// fetch returns an empty set and leaves the shop unloaded so the next call
// retries. Concurrent callers before the first successful load share a single
// fetch.
type Cache struct {
	source Source

	mu      sync.RWMutex
	entries map[string]*cacheEntry
	// generation is bumped by Invalidate so a fetch started before the
	// invalidation cannot mark the shop loaded afterwards.
	generation uint64

	group singleflight.Group
}

// NewCache creates a rule cache over source.
func NewCache(source Source) *Cache {
	return &Cache{
		source:  source,
		entries: make(map[string]*cacheEntry),
	}
}

// Load returns the rule set for shop. On failure it returns an empty slice and
// the fetch error.
func (c *Cache) Load(ctx context.Context, shop string) ([]rules.Rule, error) {
	c.mu.RLock()
	if entry, ok := c.entries[shop]; ok {
		c.mu.RUnlock()
		return entry.rules, nil
	}
	generation := c.generation
	c.mu.RUnlock()

	// Flights are per generation: a Load after Invalidate never joins a fetch
	// that started before it.
	key := fmt.Sprintf("%s#%d", shop, generation)
	result, err, shared := c.group.Do(key, func() (interface{}, error) {
		// Double-check after winning the flight.
		c.mu.RLock()
		if entry, ok := c.entries[shop]; ok {
			c.mu.RUnlock()
			return entry.rules, nil
		}
		c.mu.RUnlock()

		logging.Debug("RuleSource", "Loading cart rules for %s", shop)
		fetched, err := c.source.Fetch(ctx, shop)
		if err != nil {
			return nil, err
		}
		if fetched == nil {
			fetched = []rules.Rule{}
		}

		c.mu.Lock()
		if c.generation == generation {
			c.entries[shop] = &cacheEntry{rules: fetched}
		}
		c.mu.Unlock()

		logging.Info("RuleSource", "Loaded %d cart rules for %s", len(fetched), shop)
		return fetched, nil
	})

	if err != nil {
		logging.Warn("RuleSource", "Failed to load cart rules for %s: %v", shop, err)
		recordLoad(false)
		return []rules.Rule{}, err
	}
	if !shared {
		recordLoad(true)
	}

	return result.([]rules.Rule), nil
}

// Loaded reports whether shop has a cached rule set.
func (c *Cache) Loaded(shop string) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	_, ok := c.entries[shop]
	return ok
}

// Count returns the number of cached rules for shop, zero when unloaded.
func (c *Cache) Count(shop string) int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if entry, ok := c.entries[shop]; ok {
		return len(entry.rules)
	}
	return 0
}

// Invalidate drops every cached rule set; the next Load fetches again.
func (c *Cache) Invalidate() {
	c.mu.Lock()
	c.entries = make(map[string]*cacheEntry)
	c.generation++
	c.mu.Unlock()

	logging.Info("RuleSource", "Rule cache invalidated")
}
