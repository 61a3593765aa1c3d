package udio

import (
	"sync"

	"cryogon/rizumu-udio/models"
)

// resultCache keeps successful results keyed by normalized query. Entries never expire, so a
// long-running caller sees stale results until InvalidateCache is called.
type resultCache struct {
	mu      sync.RWMutex
	entries map[string][]models.Track
}

func newResultCache() *resultCache {
	return &resultCache{entries: make(map[string][]models.Track)}
}

func (c *resultCache) get(key string) ([]models.Track, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	tracks, ok := c.entries[key]
	if !ok {
		return nil, false
	}
	return cloneTracks(tracks), true
}

func (c *resultCache) put(key string, tracks []models.Track) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[key] = cloneTracks(tracks)
}

func (c *resultCache) clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	clear(c.entries)
}

func (c *resultCache) len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}
