// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

package surface

import (
	"sync"
)

// Placeholder is the visible output slot for one recorded canvas. It holds
// the latest encoded snapshot of the surface; the surrounding player shows
// it wherever the original canvas sat in the document.
//
// A placeholder's identity is stable for the whole session: when the host
// node is rebuilt by the timeline, the same placeholder is reattached so
// the displayed image survives the rebuild.
type Placeholder struct {
	mu sync.RWMutex

	id   int
	host PlaceholderHost

	// Latest encoded snapshot and its natural dimensions.
	data   []byte
	width  int
	height int

	// Transient display size forced by layout events. Cleared whenever a
	// new snapshot lands, so the displayed size tracks the natural
	// snapshot dimensions again.
	forcedWidth  int
	forcedHeight int

	version uint64
}

// ID returns the recorded canvas id this placeholder displays.
func (p *Placeholder) ID() int { return p.id }

// SetSnapshot replaces the displayed image with freshly encoded data and
// resets any forced display size. The data is stored as-is; callers must
// not modify it after handing it over.
func (p *Placeholder) SetSnapshot(data []byte, width, height int) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.data = data
	p.width = width
	p.height = height
	p.forcedWidth = 0
	p.forcedHeight = 0
	p.version++
}

// Snapshot returns the latest encoded image and its natural dimensions.
// The returned bytes must be treated as read-only.
func (p *Placeholder) Snapshot() (data []byte, width, height int) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.data, p.width, p.height
}

// Empty reports whether a snapshot has been published yet.
func (p *Placeholder) Empty() bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return len(p.data) == 0
}

// Version returns a counter that increments with every published snapshot.
// Displays poll it to detect fresh content cheaply.
func (p *Placeholder) Version() uint64 {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.version
}

// ForceSize overrides the displayed size until the next snapshot.
func (p *Placeholder) ForceSize(width, height int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.forcedWidth = width
	p.forcedHeight = height
}

// DisplaySize returns the size the placeholder should be shown at: the
// forced size when one is set, the natural snapshot size otherwise.
func (p *Placeholder) DisplaySize() (width, height int) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.forcedWidth > 0 || p.forcedHeight > 0 {
		return p.forcedWidth, p.forcedHeight
	}
	return p.width, p.height
}

// Host returns the node the placeholder is currently attached to.
func (p *Placeholder) Host() PlaceholderHost {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.host
}

// attach binds the placeholder to a rebuilt host node.
func (p *Placeholder) attach(host PlaceholderHost) {
	p.mu.Lock()
	p.host = host
	p.mu.Unlock()

	if host != nil {
		host.AttachPlaceholder(p)
	}
}
