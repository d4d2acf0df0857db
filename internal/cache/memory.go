package cache

import (
	"context"
	"sync"
	"time"
)

// Compile-time interface check
var _ Cache = (*MemoryCache)(nil)

type memoryEntry struct {
	value     []byte
	expiresAt time.Time
}

func (e memoryEntry) expired(now time.Time) bool {
	return !e.expiresAt.IsZero() && now.After(e.expiresAt)
}

// MemoryCache keeps entries in process memory and drops expired ones in
// the background.
type MemoryCache struct {
	entries       map[string]memoryEntry
	mu            sync.RWMutex
	cleanupCancel context.CancelFunc
}

func NewMemoryCache(cleanupInterval time.Duration) *MemoryCache {
	c := &MemoryCache{entries: make(map[string]memoryEntry)}
	if cleanupInterval > 0 {
		ctx, cancel := context.WithCancel(context.Background())
		c.cleanupCancel = cancel
		go c.cleanupLoop(ctx, cleanupInterval)
	}
	return c
}

func (c *MemoryCache) Get(ctx context.Context, key string) ([]byte, bool, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if c.entries == nil {
		return nil, false, ErrClosed
	}
	entry, ok := c.entries[key]
	if !ok || entry.expired(time.Now()) {
		return nil, false, nil
	}
	return entry.value, true, nil
}

func (c *MemoryCache) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.entries == nil {
		return ErrClosed
	}
	entry := memoryEntry{value: value}
	if ttl > 0 {
		entry.expiresAt = time.Now().Add(ttl)
	}
	c.entries[key] = entry
	return nil
}

func (c *MemoryCache) Invalidate(ctx context.Context, key string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	for k := range c.entries {
		if matchesFamily(k, key) {
			delete(c.entries, k)
		}
	}
	return nil
}

// Len returns the number of live entries.
func (c *MemoryCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()

	now := time.Now()
	n := 0
	for _, entry := range c.entries {
		if !entry.expired(now) {
			n++
		}
	}
	return n
}

func (c *MemoryCache) Close() error {
	if c.cleanupCancel != nil {
		c.cleanupCancel()
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries = nil
	return nil
}

func (c *MemoryCache) cleanupLoop(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			c.cleanup()
		}
	}
}

func (c *MemoryCache) cleanup() {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := time.Now()
	for key, entry := range c.entries {
		if entry.expired(now) {
			delete(c.entries, key)
		}
	}
}
