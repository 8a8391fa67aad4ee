package application

import (
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"
)

// searchCache stores recently computed search results to avoid re-filtering
// an unchanged event list for identical queries. Entries are keyed by the
// query plus the store revision, so any mutation naturally invalidates them.
type searchCache struct {
	mu         sync.RWMutex
	now        func() time.Time
	ttl        time.Duration
	maxEntries int
	entries    map[string]searchCacheEntry
}

type searchCacheEntry struct {
	results   []Event
	expiresAt time.Time
}

func newSearchCache(ttl time.Duration, maxEntries int, now func() time.Time) *searchCache {
	if ttl <= 0 {
		ttl = 30 * time.Second
	}
	if maxEntries <= 0 {
		maxEntries = 128
	}
	if now == nil {
		now = time.Now
	}
	return &searchCache{
		now:        now,
		ttl:        ttl,
		maxEntries: maxEntries,
		entries:    make(map[string]searchCacheEntry),
	}
}

func (c *searchCache) Get(key string) ([]Event, bool) {
	if c == nil {
		return nil, false
	}
	c.mu.RLock()
	entry, ok := c.entries[key]
	c.mu.RUnlock()
	if !ok {
		return nil, false
	}
	if c.now().After(entry.expiresAt) {
		c.mu.Lock()
		delete(c.entries, key)
		c.mu.Unlock()
		return nil, false
	}
	return cloneEvents(entry.results), true
}

func (c *searchCache) Store(key string, results []Event) {
	if c == nil {
		return
	}
	cloned := cloneEvents(results)
	expiry := c.now().Add(c.ttl)

	c.mu.Lock()
	defer c.mu.Unlock()

	c.cleanupLocked()
	if len(c.entries) >= c.maxEntries {
		c.evictOneLocked()
	}
	c.entries[key] = searchCacheEntry{results: cloned, expiresAt: expiry}
}

func (c *searchCache) Invalidate() {
	if c == nil {
		return
	}
	c.mu.Lock()
	c.entries = make(map[string]searchCacheEntry)
	c.mu.Unlock()
}

func (c *searchCache) cleanupLocked() {
	now := c.now()
	for key, entry := range c.entries {
		if now.After(entry.expiresAt) {
			delete(c.entries, key)
		}
	}
}

func (c *searchCache) evictOneLocked() {
	for key := range c.entries {
		delete(c.entries, key)
		return
	}
}

func buildSearchCacheKey(term string, types []EventType, revision uint64) string {
	normalized := make([]string, len(types))
	for i, t := range types {
		normalized[i] = strings.ToLower(string(t))
	}
	sort.Strings(normalized)

	builder := strings.Builder{}
	builder.WriteString(strconv.FormatUint(revision, 10))
	builder.WriteString("|")
	builder.WriteString(strings.ToLower(strings.TrimSpace(term)))
	builder.WriteString("|")
	builder.WriteString(strings.Join(normalized, ","))
	return builder.String()
}
