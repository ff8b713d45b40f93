// Package cache is a TTL-bounded key/value cache layered on the durable
// store. Eviction is lazy: an expired entry is deleted on the read that
// discovers it, there is no background sweep.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/healthsync/hsync/internal/store"
)

// DefaultTTL applies when the caller passes a non-positive TTL.
const DefaultTTL = 60 * time.Minute

// Entry is the stored shape of a cached value.
type Entry struct {
	Key       string          `json:"key"`
	Data      json.RawMessage `json:"data"`
	CachedAt  time.Time       `json:"cachedAt"`
	ExpiresAt time.Time       `json:"expiresAt"`
}

// Cache reads and writes cache entries in the cache-entries collection.
type Cache struct {
	backend store.Backend
	now     func() time.Time
}

// New creates a cache over the given backend.
func New(backend store.Backend) *Cache {
	return &Cache{backend: backend, now: time.Now}
}

// SetNow overrides the clock, for tests.
func (c *Cache) SetNow(now func() time.Time) {
	c.now = now
}

// Put caches value under key for ttl. Overwriting an existing key resets
// both cachedAt and expiresAt relative to this write.
func (c *Cache) Put(ctx context.Context, key string, value any, ttl time.Duration) error {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("marshal cache value %q: %w", key, err)
	}

	now := c.now()
	entry := Entry{
		Key:       key,
		Data:      data,
		CachedAt:  now,
		ExpiresAt: now.Add(ttl),
	}
	raw, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("marshal cache entry %q: %w", key, err)
	}
	return c.backend.Put(ctx, store.CollectionCacheEntries, key, raw, nil)
}

// Get returns the cached payload for key, or ok=false on a miss. A read past
// the entry's expiry is a miss and deletes the stale entry.
func (c *Cache) Get(ctx context.Context, key string) (json.RawMessage, bool, error) {
	raw, err := c.backend.Get(ctx, store.CollectionCacheEntries, key)
	if errors.Is(err, store.ErrNotFound) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}

	var entry Entry
	if err := json.Unmarshal(raw, &entry); err != nil {
		return nil, false, fmt.Errorf("parse cache entry %q: %w", key, err)
	}

	if c.now().After(entry.ExpiresAt) {
		if err := c.backend.Delete(ctx, store.CollectionCacheEntries, key); err != nil {
			return nil, false, err
		}
		return nil, false, nil
	}
	return entry.Data, true, nil
}

// Invalidate removes key from the cache. Removing an absent key is not an error.
func (c *Cache) Invalidate(ctx context.Context, key string) error {
	return c.backend.Delete(ctx, store.CollectionCacheEntries, key)
}

// GetAs decodes the cached payload for key into T. A miss returns ok=false
// with the zero value.
func GetAs[T any](ctx context.Context, c *Cache, key string) (T, bool, error) {
	var out T
	data, ok, err := c.Get(ctx, key)
	if err != nil || !ok {
		return out, false, err
	}
	if err := json.Unmarshal(data, &out); err != nil {
		return out, false, fmt.Errorf("decode cache value %q: %w", key, err)
	}
	return out, true, nil
}
