// Package ristretto implements the cache port using dgraph-io/ristretto as
// an in-process cache for extractor responses and provider results.
package ristretto

import (
	"context"
	"time"

	"github.com/dgraph-io/ristretto/v2"
)

// Cache wraps a ristretto cache as an in-process cache.
type Cache struct {
	c        *ristretto.Cache[string, []byte]
	maxEntry int64
}

// New creates a ristretto-backed cache. maxCostBytes is the maximum total
// size of cached values in bytes. Extraction deltas are tiny and provider
// payloads can run to megabytes, so any single entry is capped at 1/16 of
// the cache; an oversized flight-offer dump must not evict every hot
// extraction entry.
func New(maxCostBytes int64) (*Cache, error) {
	c, err := ristretto.NewCache(&ristretto.Config[string, []byte]{
		NumCounters: maxCostBytes / 100 * 10, // ~10x expected items
		MaxCost:     maxCostBytes,
		BufferItems: 64,
	})
	if err != nil {
		return nil, err
	}
	return &Cache{c: c, maxEntry: maxCostBytes / 16}, nil
}

// Get retrieves a value from the cache.
func (c *Cache) Get(_ context.Context, key string) (data []byte, ok bool, err error) {
	val, found := c.c.Get(key)
	if !found {
		return nil, false, nil
	}
	return val, true, nil
}

// Set stores a value in the cache with the given TTL. Writes are applied
// asynchronously; call Wait when a subsequent Get must observe the value.
// Values over the per-entry cap are silently skipped: the callers treat
// the cache as best-effort and fall back to the upstream provider.
func (c *Cache) Set(_ context.Context, key string, value []byte, ttl time.Duration) error {
	if int64(len(value)) > c.maxEntry {
		return nil
	}
	c.c.SetWithTTL(key, value, int64(len(value)), ttl)
	return nil
}

// Delete removes a value from the cache.
func (c *Cache) Delete(_ context.Context, key string) error {
	c.c.Del(key)
	return nil
}

// Wait blocks until pending writes have been applied.
func (c *Cache) Wait() {
	c.c.Wait()
}

// Close shuts down the cache and releases resources.
func (c *Cache) Close() {
	c.c.Close()
}
