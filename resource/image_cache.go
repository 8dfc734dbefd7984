// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

package resource

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"

	"github.com/gogpu/gg"
	"golang.org/x/sync/singleflight"
)

// imageEntry holds a completed resolution, successful or not.
// Failures are cached alongside successes so a doomed key is attempted
// (and reported) exactly once per session.
type imageEntry struct {
	img *gg.ImageBuf
	err error
}

// ImageCache maps logical image keys to their decoded pixels.
//
// Entries are created at most once per key and never evicted; replay
// correctness relies on the same key always yielding the same object.
// Concurrent resolutions of a still-unresolved key are collapsed into a
// single load, so the guard is per key, not per call.
type ImageCache struct {
	mu      sync.RWMutex
	entries map[string]*imageEntry
	group   singleflight.Group

	// onLoadError observes failed loads, once per failing key.
	onLoadError func(key string, err error)

	// Statistics (atomic for zero-allocation reads)
	hits   atomic.Uint64
	misses atomic.Uint64
	loads  atomic.Uint64
}

// ImageCacheStats contains cache statistics for monitoring.
type ImageCacheStats struct {
	// Entries is the number of resolved keys, including cached failures.
	Entries int
	// Hits is the number of lookups answered from the cache.
	Hits uint64
	// Misses is the number of lookups that required a load.
	Misses uint64
	// Loads is the number of loads actually performed.
	Loads uint64
	// HitRate is the cache hit rate (0.0 to 1.0).
	HitRate float64
}

// NewImageCache creates an empty image cache. The onLoadError callback, if
// non-nil, is invoked once per key whose load fails; it runs on the loading
// goroutine and must not block.
func NewImageCache(onLoadError func(key string, err error)) *ImageCache {
	return &ImageCache{
		entries:     make(map[string]*imageEntry),
		onLoadError: onLoadError,
	}
}

// GetOrLoad returns the image for key, loading it with load on first use.
// The hit result reports whether the key was already resolved before this
// call; callers use it to decide whether argument state changed.
//
// A load failure is cached: subsequent calls return the same error as a
// hit without retrying. The error callback fires only on the call that
// performed the load. Cancellation is the exception: an error matching
// context.Canceled or context.DeadlineExceeded is returned but not cached,
// and does not fire the callback.
func (c *ImageCache) GetOrLoad(ctx context.Context, key string, load func(context.Context) (*gg.ImageBuf, error)) (img *gg.ImageBuf, err error, hit bool) {
	c.mu.RLock()
	entry, ok := c.entries[key]
	c.mu.RUnlock()

	if ok {
		c.hits.Add(1)
		return entry.img, entry.err, true
	}
	c.misses.Add(1)

	v, _, _ := c.group.Do(key, func() (any, error) {
		// Re-check: the entry may have landed while we queued.
		c.mu.RLock()
		entry, ok := c.entries[key]
		c.mu.RUnlock()
		if ok {
			return entry, nil
		}

		c.loads.Add(1)
		img, err := load(ctx)
		entry = &imageEntry{img: img, err: err}

		// A failure caused by the caller's context says nothing about the
		// key itself; leave it unresolved so a later call can retry.
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return entry, nil
		}

		// Publish before resolving so later lookups see the entry.
		c.mu.Lock()
		c.entries[key] = entry
		c.mu.Unlock()

		if err != nil && c.onLoadError != nil {
			c.onLoadError(key, err)
		}
		return entry, nil
	})

	entry = v.(*imageEntry)
	return entry.img, entry.err, false
}

// Get returns the cached image for key without loading.
func (c *ImageCache) Get(key string) (*gg.ImageBuf, bool) {
	c.mu.RLock()
	entry, ok := c.entries[key]
	c.mu.RUnlock()

	if !ok || entry.err != nil {
		return nil, false
	}
	return entry.img, true
}

// Contains reports whether key has been resolved, successfully or not.
func (c *ImageCache) Contains(key string) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	_, ok := c.entries[key]
	return ok
}

// Len returns the number of resolved keys.
func (c *ImageCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

// Clear drops all entries. Called on session teardown only; replay must
// never clear the cache mid-session.
func (c *ImageCache) Clear() {
	c.mu.Lock()
	c.entries = make(map[string]*imageEntry)
	c.mu.Unlock()
}

// Stats returns current cache statistics.
func (c *ImageCache) Stats() ImageCacheStats {
	c.mu.RLock()
	entries := len(c.entries)
	c.mu.RUnlock()

	hits := c.hits.Load()
	misses := c.misses.Load()

	var hitRate float64
	if total := hits + misses; total > 0 {
		hitRate = float64(hits) / float64(total)
	}

	return ImageCacheStats{
		Entries: entries,
		Hits:    hits,
		Misses:  misses,
		Loads:   c.loads.Load(),
		HitRate: hitRate,
	}
}

// ResetStats resets the hit, miss, and load counters to zero.
func (c *ImageCache) ResetStats() {
	c.hits.Store(0)
	c.misses.Store(0)
	c.loads.Store(0)
}
