// Package cache is the in-memory response cache for the ops API. Entries
// are serialized JSON payloads keyed by endpoint, each carrying a weak ETag
// so clients can revalidate with If-None-Match instead of re-downloading.
package cache

import (
	"fmt"
	"hash/fnv"
	"sync"
	"time"
)

// TTLs per response family. Run history and catalog coverage only change
// when a pipeline run finishes; the title index also changes on import, but
// a few minutes of staleness in a search box is invisible.
const (
	TTLRuns        = 1 * time.Minute
	TTLSummary     = 5 * time.Minute
	TTLTitlesIndex = 10 * time.Minute
)

// sweepInterval is how often expired entries are physically removed. Lookups
// already treat expired entries as misses; the sweep just reclaims memory.
const sweepInterval = 5 * time.Minute

type entry struct {
	data      []byte
	etag      string
	expiresAt time.Time
}

// Cache is a thread-safe TTL cache. A disabled cache accepts Sets (so
// handlers still get an ETag to send) but never serves a hit, which keeps
// the handler code identical in both modes.
type Cache struct {
	mu      sync.RWMutex
	entries map[string]entry
	enabled bool

	hits   int64
	misses int64
}

// New creates a cache. Pass enabled=false for a pass-through cache.
func New(enabled bool) *Cache {
	c := &Cache{
		entries: make(map[string]entry),
		enabled: enabled,
	}
	if enabled {
		go c.sweepLoop()
	}
	return c
}

// Get returns the cached payload and its ETag. Expired entries count as
// misses.
func (c *Cache) Get(key string) (data []byte, etag string, ok bool) {
	if !c.enabled {
		return nil, "", false
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	e, exists := c.entries[key]
	if !exists || time.Now().After(e.expiresAt) {
		c.misses++
		return nil, "", false
	}
	c.hits++
	return e.data, e.etag, true
}

// Set stores a payload and returns its ETag. The ETag is computed even when
// the cache is disabled so 304 revalidation keeps working.
func (c *Cache) Set(key string, data []byte, ttl time.Duration) string {
	etag := ComputeETag(data)
	if !c.enabled {
		return etag
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[key] = entry{
		data:      data,
		etag:      etag,
		expiresAt: time.Now().Add(ttl),
	}
	return etag
}

// Stats reports cache state for the /health/cache endpoint.
func (c *Cache) Stats() map[string]interface{} {
	c.mu.RLock()
	defer c.mu.RUnlock()

	active := 0
	now := time.Now()
	for _, e := range c.entries {
		if now.Before(e.expiresAt) {
			active++
		}
	}
	return map[string]interface{}{
		"enabled":      c.enabled,
		"total_keys":   len(c.entries),
		"active_keys":  active,
		"expired_keys": len(c.entries) - active,
		"hits":         c.hits,
		"misses":       c.misses,
	}
}

func (c *Cache) sweepLoop() {
	ticker := time.NewTicker(sweepInterval)
	defer ticker.Stop()
	for range ticker.C {
		c.sweep()
	}
}

func (c *Cache) sweep() {
	c.mu.Lock()
	defer c.mu.Unlock()
	now := time.Now()
	for key, e := range c.entries {
		if now.After(e.expiresAt) {
			delete(c.entries, key)
		}
	}
}

// ComputeETag derives a weak ETag from the payload bytes. FNV-1a is enough:
// the tag only needs to change when the payload does, not resist collisions
// from an adversary.
func ComputeETag(data []byte) string {
	h := fnv.New64a()
	h.Write(data)
	return fmt.Sprintf(`W/"%016x"`, h.Sum64())
}

// CheckETagMatch reports whether an If-None-Match header matches the ETag.
func CheckETagMatch(ifNoneMatch, etag string) bool {
	if ifNoneMatch == "" {
		return false
	}
	if ifNoneMatch == "*" {
		return true
	}
	return ifNoneMatch == etag
}
