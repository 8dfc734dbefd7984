// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

package surface

import (
	"context"
	"log/slog"
	"sort"
	"sync"

	"github.com/gogpu/gg"
)

// Surface dimension limits. Recorded boxes are clamped into this range:
// zero-sized canvases still need a drawable surface, and a corrupt
// recording must not allocate an absurd pixmap.
const (
	MinDimension = 1

	// DefaultMaxDimension caps one surface side unless overridden.
	DefaultMaxDimension = 4096
)

// Option configures a Manager.
type Option func(*Manager)

// WithMaxDimension overrides the per-side clamp for new surfaces.
func WithMaxDimension(maxDim int) Option {
	return func(m *Manager) {
		if maxDim >= MinDimension {
			m.maxDim = maxDim
		}
	}
}

// WithLogger sets the manager's logger. The default discards all output.
func WithLogger(log *slog.Logger) Option {
	return func(m *Manager) {
		if log != nil {
			m.log = log
		}
	}
}

// Manager owns the mapping from recorded canvas ids to their replay state.
// It is safe for concurrent use, though mutation application itself is
// expected to stay on one goroutine per the replay model.
type Manager struct {
	mu           sync.RWMutex
	records      map[int]*Record
	placeholders map[int]*Placeholder

	maxDim int
	log    *slog.Logger
}

// NewManager creates an empty surface manager.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		records:      make(map[int]*Record),
		placeholders: make(map[int]*Placeholder),
		maxDim:       DefaultMaxDimension,
		log:          slog.New(nopHandler{}),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// GetOrCreate returns the record for id, building it on first use. The new
// off-screen surface is sized to the node's clamped rendered box. An
// existing record is returned as-is: accumulated draw state must persist,
// so records are never recreated.
func (m *Manager) GetOrCreate(id int, node Node) *Record {
	m.mu.RLock()
	rec, ok := m.records[id]
	m.mu.RUnlock()
	if ok {
		return rec
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	// Re-check after acquiring the write lock.
	if rec, ok := m.records[id]; ok {
		return rec
	}

	width, height := m.clampBounds(node)
	rec = &Record{
		ID:          id,
		Canvas:      gg.NewContext(width, height),
		Placeholder: m.placeholderLocked(id),
		Style:       DefaultStyle(),
	}
	m.records[id] = rec

	m.log.Debug("surface: created record",
		"id", id, "width", width, "height", height)
	return rec
}

// Get returns the record for id without creating one.
func (m *Manager) Get(id int) (*Record, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	rec, ok := m.records[id]
	return rec, ok
}

// Resolve returns the drawing surface for id, or nil when none exists.
// It matches the signature draw-call deserialization expects for
// canvas-valued arguments.
func (m *Manager) Resolve(id int) *gg.Context {
	rec, ok := m.Get(id)
	if !ok {
		return nil
	}
	return rec.Canvas
}

// OnBuild reacts to the timeline (re)building a node in the visible tree.
// For canvas nodes it ensures a placeholder exists for the id and attaches
// it to the new host, reusing any placeholder created earlier so its
// identity survives the rebuild. Non-canvas nodes are ignored.
func (m *Manager) OnBuild(id int, node Node) *Placeholder {
	if node == nil || node.Kind() != KindCanvas {
		return nil
	}

	m.mu.Lock()
	p := m.placeholderLocked(id)
	m.mu.Unlock()

	if host, ok := node.(PlaceholderHost); ok {
		p.attach(host)
	}
	return p
}

// Resize grows or shrinks the record's surface to the node's current
// clamped box. Resizing clears accumulated pixels and resets style state,
// matching the recorded context's behavior; when the box is unchanged the
// surface is left alone. Returns true when a reset happened.
func (m *Manager) Resize(rec *Record, node Node) bool {
	width, height := m.clampBounds(node)
	if rec.Canvas.Width() == width && rec.Canvas.Height() == height {
		return false
	}

	if err := rec.Canvas.Resize(width, height); err != nil {
		m.log.Warn("surface: resize failed",
			"id", rec.ID, "width", width, "height", height, "error", err)
		return false
	}
	rec.ResetStyle()

	m.log.Debug("surface: resized record",
		"id", rec.ID, "width", width, "height", height)
	return true
}

// IDs returns the ids of all existing records, sorted ascending.
func (m *Manager) IDs() []int {
	m.mu.RLock()
	defer m.mu.RUnlock()

	ids := make([]int, 0, len(m.records))
	for id := range m.records {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	return ids
}

// Len returns the number of existing records.
func (m *Manager) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.records)
}

// Close releases all records and placeholders. The manager must not be
// used afterwards.
func (m *Manager) Close() {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, rec := range m.records {
		_ = rec.Canvas.Close()
	}
	m.records = make(map[int]*Record)
	m.placeholders = make(map[int]*Placeholder)
}

// placeholderLocked returns the placeholder for id, creating it if needed.
// Must be called with m.mu held.
func (m *Manager) placeholderLocked(id int) *Placeholder {
	p, ok := m.placeholders[id]
	if !ok {
		p = &Placeholder{id: id}
		m.placeholders[id] = p
	}
	return p
}

// clampBounds derives surface dimensions from a node's rendered box.
func (m *Manager) clampBounds(node Node) (width, height int) {
	if node != nil {
		width, height = node.Bounds()
	}
	width = clampDim(width, m.maxDim)
	height = clampDim(height, m.maxDim)
	return width, height
}

func clampDim(dim, maxDim int) int {
	if dim < MinDimension {
		return MinDimension
	}
	if dim > maxDim {
		return maxDim
	}
	return dim
}

// nopHandler is a slog.Handler that silently discards all log records.
type nopHandler struct{}

func (nopHandler) Enabled(context.Context, slog.Level) bool  { return false }
func (nopHandler) Handle(context.Context, slog.Record) error { return nil }
func (nopHandler) WithAttrs([]slog.Attr) slog.Handler        { return nopHandler{} }
func (nopHandler) WithGroup(string) slog.Handler             { return nopHandler{} }
