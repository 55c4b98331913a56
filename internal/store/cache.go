package store

import (
	"sync"

	"dubsync/internal/cues"
)

// CueCache holds the narrated cues prepared for each video. Entries live
// until they are evicted; nothing expires on its own.
type CueCache struct {
	mu      sync.RWMutex
	entries map[string][]cues.NarratedCue
}

// NewCueCache returns an empty cache.
func NewCueCache() *CueCache {
	return &CueCache{entries: make(map[string][]cues.NarratedCue)}
}

// Get returns the cues stored for videoID.
func (c *CueCache) Get(videoID string) ([]cues.NarratedCue, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	list, ok := c.entries[videoID]
	return list, ok
}

// Put stores list for videoID, replacing any previous entry.
func (c *CueCache) Put(videoID string, list []cues.NarratedCue) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[videoID] = list
}

// Evict drops the entry for videoID.
func (c *CueCache) Evict(videoID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, videoID)
}

// Clear drops every entry.
func (c *CueCache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	clear(c.entries)
}

// Len returns the number of cached videos.
func (c *CueCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}
