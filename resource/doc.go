// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

// Package resource holds the session-scoped caches behind canvas replay.
//
// Two identity-keyed caches back the replay engine. ImageCache maps the
// logical key of an image argument to its decoded pixels; entries are
// created at most once per key and never evicted while the session lives.
// CommandCache maps a mutation event to its fully-resolved command list so
// that playback never repeats deserialization work.
//
// Both caches are append-only and read-mostly. The only writer race is
// "first resolver wins" on a key: ImageCache collapses concurrent loads of
// one key into a single decode, so a resource referenced from many events
// is fetched exactly once.
//
// Loader fetches and decodes image bytes. The default HTTPLoader handles
// inline blobs, data: URLs, and http(s) sources.
package resource
