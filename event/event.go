// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

// Package event models the recorded timeline consumed by canvas replay.
//
// A recording is an ordered list of discriminated events. Only incremental
// snapshots whose source is a canvas mutation matter to this module; every
// other event passes through the replay engine untouched, so their payloads
// are kept as raw JSON and never decoded here.
package event

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"sync"

	"github.com/gogpu/ggreplay/serial"
)

// Type is the top-level discriminator of a timeline event.
// Values match the recorded wire format.
type Type int

// Timeline event types.
const (
	DOMContentLoaded Type = iota
	Load
	FullSnapshot
	IncrementalSnapshot
	Meta
	Custom
	Plugin
)

// IncrementalSource discriminates incremental snapshot payloads.
// Values match the recorded wire format.
type IncrementalSource int

// Incremental snapshot sources.
const (
	SourceMutation IncrementalSource = iota
	SourceMouseMove
	SourceMouseInteraction
	SourceScroll
	SourceViewportResize
	SourceInput
	SourceTouchMove
	SourceMediaInteraction
	SourceStyleSheetRule
	SourceCanvasMutation
	SourceFont
)

// Event is one recorded timeline entry. Events are produced by the external
// timeline, are immutable once decoded, and are identified by pointer: two
// loads of the same recording yield distinct event identities.
//
// The payload stays raw until a consumer asks for it. CanvasMutation decodes
// lazily and caches the result on the event, so the (potentially large)
// command list is parsed at most once.
type Event struct {
	Type      Type            `json:"type"`
	Timestamp int64           `json:"timestamp"`
	Data      json.RawMessage `json:"data"`

	canvasOnce sync.Once
	canvas     *CanvasMutation
}

// Command is one recorded draw-call descriptor.
type Command struct {
	// Method is the draw-call or property name on the recorded context.
	Method string `json:"method"`
	// Args are the serialized arguments in call order.
	Args []serial.Value `json:"args"`
	// Setter marks a property assignment ("fillStyle = ...") rather than
	// a method invocation.
	Setter bool `json:"setter,omitempty"`
}

// CanvasMutation is the payload of a canvas-mutation incremental snapshot.
// It targets one recorded surface and carries an ordered command list; a
// recording may batch many draw calls into one event or emit them singly.
type CanvasMutation struct {
	// ID is the recorded identifier of the target canvas node.
	ID int
	// Commands are the draw calls to apply, in recorded order.
	Commands []Command
}

// canvasMutationWire covers both payload shapes: the batched form carries a
// "commands" array, the legacy form inlines a single method/args pair.
type canvasMutationWire struct {
	Source IncrementalSource `json:"source"`
	ID     int               `json:"id"`

	Commands []Command `json:"commands"`

	Method string         `json:"method"`
	Args   []serial.Value `json:"args"`
	Setter bool           `json:"setter"`
}

// incrementalHeader is the minimal decode used to classify a payload.
type incrementalHeader struct {
	Source IncrementalSource `json:"source"`
}

// CanvasMutation returns the decoded canvas-mutation payload, or false if
// the event is not a canvas mutation. Safe for concurrent use.
func (e *Event) CanvasMutation() (*CanvasMutation, bool) {
	if e.Type != IncrementalSnapshot || len(e.Data) == 0 {
		return nil, false
	}
	e.canvasOnce.Do(func() {
		var header incrementalHeader
		if err := json.Unmarshal(e.Data, &header); err != nil || header.Source != SourceCanvasMutation {
			return
		}
		var wire canvasMutationWire
		if err := json.Unmarshal(e.Data, &wire); err != nil {
			return
		}
		mut := &CanvasMutation{ID: wire.ID, Commands: wire.Commands}
		if len(mut.Commands) == 0 && wire.Method != "" {
			mut.Commands = []Command{{
				Method: wire.Method,
				Args:   wire.Args,
				Setter: wire.Setter,
			}}
		}
		e.canvas = mut
	})
	if e.canvas == nil {
		return nil, false
	}
	return e.canvas, true
}

// IsCanvasMutation reports whether the event carries a canvas mutation.
func (e *Event) IsCanvasMutation() bool {
	_, ok := e.CanvasMutation()
	return ok
}

// Decode reads a full recording from r. Both serialization layouts in the
// wild are accepted: a single JSON array of events, and one event object
// per line.
func Decode(r io.Reader) ([]*Event, error) {
	br := bufio.NewReader(r)

	first, err := peekByte(br)
	if err != nil {
		return nil, fmt.Errorf("event: decode recording: %w", err)
	}

	if first == '[' {
		var events []*Event
		if err := json.NewDecoder(br).Decode(&events); err != nil {
			return nil, fmt.Errorf("event: decode recording: %w", err)
		}
		return events, nil
	}

	// Line-delimited form.
	var events []*Event
	dec := json.NewDecoder(br)
	for {
		ev := &Event{}
		if err := dec.Decode(ev); err != nil {
			if err == io.EOF {
				break
			}
			return nil, fmt.Errorf("event: decode recording event %d: %w", len(events), err)
		}
		events = append(events, ev)
	}
	return events, nil
}

// peekByte returns the first non-whitespace byte without consuming it.
func peekByte(br *bufio.Reader) (byte, error) {
	for {
		b, err := br.ReadByte()
		if err != nil {
			return 0, err
		}
		switch b {
		case ' ', '\t', '\r', '\n':
			continue
		default:
			if err := br.UnreadByte(); err != nil {
				return 0, err
			}
			return b, nil
		}
	}
}
