package cache

import (
	"sync"
	"time"

	"audio-proxy/internal/models"
)

// ResolutionCache memoizes lookup results keyed by normalized query. Entries
// expire by age since insertion; an entry whose age exceeds the expiry window
// is invisible to readers even before the sweeper removes it.
type ResolutionCache struct {
	mu      sync.RWMutex
	entries map[string]*models.ResolvedQuery
	expire  time.Duration
}

func NewResolutionCache(expire time.Duration) *ResolutionCache {
	return &ResolutionCache{
		entries: make(map[string]*models.ResolvedQuery),
		expire:  expire,
	}
}

// Get returns the live entry for key, if any. Expired entries are a miss.
func (c *ResolutionCache) Get(key string) (*models.ResolvedQuery, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	entry, ok := c.entries[key]
	if !ok {
		return nil, false
	}
	if time.Since(entry.ResolvedAt) > c.expire {
		return nil, false
	}
	return entry, true
}

// Put stores a freshly resolved entry, replacing any previous value wholesale.
func (c *ResolutionCache) Put(entry *models.ResolvedQuery) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries[entry.Key] = entry
}

// Prune removes entries whose age since insertion strictly exceeds the expiry
// window and returns how many were removed. An entry aged exactly at the
// window survives.
func (c *ResolutionCache) Prune(now time.Time) int {
	c.mu.Lock()
	defer c.mu.Unlock()

	pruned := 0
	for key, entry := range c.entries {
		if now.Sub(entry.ResolvedAt) > c.expire {
			delete(c.entries, key)
			pruned++
		}
	}
	return pruned
}

// Len reports the number of entries, expired or not.
func (c *ResolutionCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()

	return len(c.entries)
}
