package data

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"
	"sync"
	"time"
)

// CacheEntry is a cached value and its expiry.
type CacheEntry[V any] struct {
	Value     V
	ExpiresAt time.Time
}

// Cache is an in-memory TTL cache. A nil *Cache is valid and never hits.
type Cache[V any] struct {
	mu    sync.RWMutex
	store map[string]*CacheEntry[V]
	ttl   time.Duration
	now   func() time.Time
}

// NewCache returns a cache whose entries live for ttl. A ttl <= 0 disables
// caching and returns nil.
func NewCache[V any](ttl time.Duration) *Cache[V] {
	if ttl <= 0 {
		return nil
	}
	return &Cache[V]{
		store: make(map[string]*CacheEntry[V]),
		ttl:   ttl,
		now:   time.Now,
	}
}

// Get retrieves a value if present and not expired.
func (c *Cache[V]) Get(key string) (V, bool) {
	var zero V
	if c == nil {
		return zero, false
	}

	c.mu.RLock()
	defer c.mu.RUnlock()

	entry, exists := c.store[key]
	if !exists || c.now().After(entry.ExpiresAt) {
		return zero, false
	}
	return entry.Value, true
}

// Set stores a value.
func (c *Cache[V]) Set(key string, v V) {
	if c == nil {
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	c.store[key] = &CacheEntry[V]{
		Value:     v,
		ExpiresAt: c.now().Add(c.ttl),
	}
}

// Len returns the number of stored entries, expired or not.
func (c *Cache[V]) Len() int {
	if c == nil {
		return 0
	}
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.store)
}

// Clear removes all entries.
func (c *Cache[V]) Clear() {
	if c == nil {
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	c.store = make(map[string]*CacheEntry[V])
}

// Prune removes expired entries.
func (c *Cache[V]) Prune() {
	if c == nil {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	now := c.now()
	for key, entry := range c.store {
		if now.After(entry.ExpiresAt) {
			delete(c.store, key)
		}
	}
}

// Janitor prunes the cache every interval until ctx is done.
func (c *Cache[V]) Janitor(ctx context.Context, interval time.Duration) {
	if c == nil {
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			c.Prune()
		}
	}
}

// FileKey builds a cache key from a file path, its size and modification time
// plus any extra qualifiers, so edits on disk invalidate cached parses.
func FileKey(path string, extra ...string) (string, error) {
	st, err := os.Stat(path)
	if err != nil {
		return "", err
	}
	keyStr := fmt.Sprintf("%s:%d:%d:%v", path, st.Size(), st.ModTime().UnixNano(), extra)

	hash := sha256.Sum256([]byte(keyStr))
	return hex.EncodeToString(hash[:]), nil
}
