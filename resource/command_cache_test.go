// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

package resource

import (
	"testing"
)

func TestCommandCache_PutAndGet(t *testing.T) {
	cache := NewCommandCache()
	key := new(int)

	if _, ok := cache.Get(key); ok {
		t.Error("Get() on an empty cache reported a hit")
	}

	cmds := []ResolvedCommand{{Method: "fillRect", Args: []any{0.0, 0.0, 4.0, 4.0}}}
	cache.Put(key, cmds)

	got, ok := cache.Get(key)
	if !ok {
		t.Fatal("Get() after Put() reported a miss")
	}
	if len(got) != 1 || got[0].Method != "fillRect" {
		t.Errorf("Get() = %v, want the stored commands", got)
	}
}

func TestCommandCache_FirstWriterWins(t *testing.T) {
	cache := NewCommandCache()
	key := new(int)

	first := []ResolvedCommand{{Method: "fillRect"}}
	second := []ResolvedCommand{{Method: "clearRect"}}
	cache.Put(key, first)
	cache.Put(key, second)

	got, _ := cache.Get(key)
	if len(got) != 1 || got[0].Method != "fillRect" {
		t.Errorf("Get() = %v, want the first writer's commands", got)
	}
}

func TestCommandCache_KeysAreIdentities(t *testing.T) {
	cache := NewCommandCache()
	a, b := new(int), new(int)

	cache.Put(a, []ResolvedCommand{{Method: "save"}})
	if _, ok := cache.Get(b); ok {
		t.Error("a distinct key with equal contents reported a hit")
	}
	if cache.Len() != 1 {
		t.Errorf("Len() = %d, want 1", cache.Len())
	}
}

func TestCommandCache_Counters(t *testing.T) {
	cache := NewCommandCache()
	key := new(int)

	_, _ = cache.Get(key)
	cache.Put(key, nil)
	_, _ = cache.Get(key)

	if cache.Hits() != 1 {
		t.Errorf("Hits() = %d, want 1", cache.Hits())
	}
	if cache.Misses() != 1 {
		t.Errorf("Misses() = %d, want 1", cache.Misses())
	}

	// Contains does not touch the counters.
	_ = cache.Contains(key)
	if cache.Hits() != 1 || cache.Misses() != 1 {
		t.Error("Contains() changed the hit/miss counters")
	}

	cache.Clear()
	if cache.Len() != 0 {
		t.Errorf("Len() after Clear = %d, want 0", cache.Len())
	}
}
