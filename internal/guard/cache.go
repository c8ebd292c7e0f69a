// Package guard rejects re-delivered or excessively frequent inbound events
// before any side effect runs.
//
// This file implements a small in-process TTL cache that mirrors recently
// seen dedup keys. It exists only to shave a store round trip on the common
// path; the durable store stays authoritative, because a process-local map
// cannot dedup across more than one instance of the server.
//
// The cache is an explicitly owned, injectable component with a Sweep()
// operation rather than ambient package state, so tests and multi-instance
// deployments can substitute a no-op.
package guard

import (
	"sync"
	"time"
)

// TTLCache is a mutex-guarded set of keys with per-entry expiry.
// It is safe for concurrent use.
type TTLCache struct {
	ttl     time.Duration
	mu      sync.Mutex
	entries map[string]time.Time // key -> expiry
}

// NewTTLCache constructs a cache whose entries live for ttl.
func NewTTLCache(ttl time.Duration) *TTLCache {
	return &TTLCache{
		ttl:     ttl,
		entries: make(map[string]time.Time),
	}
}

// Seen reports whether key is present and unexpired. Expired entries are
// dropped on access.
func (c *TTLCache) Seen(key string) bool {
	now := time.Now()
	c.mu.Lock()
	defer c.mu.Unlock()
	exp, ok := c.entries[key]
	if !ok {
		return false
	}
	if now.After(exp) {
		delete(c.entries, key)
		return false
	}
	return true
}

// Add records key with the configured TTL.
func (c *TTLCache) Add(key string) {
	c.mu.Lock()
	c.entries[key] = time.Now().Add(c.ttl)
	c.mu.Unlock()
}

// Sweep evicts expired entries and returns how many were removed. Wire it to
// a periodic scheduler to bound memory between bursts.
func (c *TTLCache) Sweep() int {
	now := time.Now()
	removed := 0
	c.mu.Lock()
	for k, exp := range c.entries {
		if now.After(exp) {
			delete(c.entries, k)
			removed++
		}
	}
	c.mu.Unlock()
	return removed
}

// Len returns the current entry count.
func (c *TTLCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}
