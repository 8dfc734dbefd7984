// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

package resource

import (
	"sync"
	"sync/atomic"
)

// ResolvedCommand is one draw call with all arguments replaced by live
// values, ready to apply to a surface.
type ResolvedCommand struct {
	// Method is the recorded draw-call name (e.g. "fillRect").
	Method string
	// Setter marks a property assignment rather than a method call.
	Setter bool
	// Args are the resolved argument values in recorded order.
	Args []any
}

// CommandCache maps a mutation event to its resolved command list.
//
// Keys are event identities (pointers), not event contents: the timeline
// owns its events and never mutates them, so identity is stable for the
// whole session. Entries are written at most once per event and only when
// resolving actually changed an argument's representation; pure-primitive
// command lists are not worth remembering.
type CommandCache struct {
	mu      sync.RWMutex
	entries map[any][]ResolvedCommand

	hits   atomic.Uint64
	misses atomic.Uint64
}

// NewCommandCache creates an empty command cache.
func NewCommandCache() *CommandCache {
	return &CommandCache{
		entries: make(map[any][]ResolvedCommand),
	}
}

// Get returns the cached command list for an event.
func (c *CommandCache) Get(key any) ([]ResolvedCommand, bool) {
	c.mu.RLock()
	cmds, ok := c.entries[key]
	c.mu.RUnlock()

	if ok {
		c.hits.Add(1)
	} else {
		c.misses.Add(1)
	}
	return cmds, ok
}

// Contains reports whether an event has a cached command list.
// Unlike Get, this does not touch the statistics counters.
func (c *CommandCache) Contains(key any) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	_, ok := c.entries[key]
	return ok
}

// Put stores the resolved command list for an event. If preloading and
// playback race on the same event, the first writer wins; both resolved
// from the same image cache, so the lists are interchangeable.
func (c *CommandCache) Put(key any, cmds []ResolvedCommand) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, ok := c.entries[key]; ok {
		return
	}
	c.entries[key] = cmds
}

// Len returns the number of cached events.
func (c *CommandCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

// Clear drops all entries. Called on session teardown.
func (c *CommandCache) Clear() {
	c.mu.Lock()
	c.entries = make(map[any][]ResolvedCommand)
	c.mu.Unlock()
}

// Hits returns the number of lookups answered from the cache.
func (c *CommandCache) Hits() uint64 { return c.hits.Load() }

// Misses returns the number of lookups that required inline resolution.
func (c *CommandCache) Misses() uint64 { return c.misses.Load() }
