// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

package surface

import (
	"github.com/gogpu/gg"
)

// KindCanvas is the node kind that reacts to canvas mutations.
const KindCanvas = "canvas"

// Node describes a live element in the reconstructed document tree, as
// resolved by the external mirror. Only the rendered box and the element
// kind matter to replay; everything else stays with the mirror.
type Node interface {
	// Kind returns the lowercased element tag. Drawing surfaces report
	// KindCanvas; all other kinds are ignored by replay.
	Kind() string

	// Bounds returns the current rendered box in pixels. A zero dimension
	// means the box is unknown and a minimal surface is used.
	Bounds() (width, height int)
}

// PlaceholderHost is implemented by nodes that can display a snapshot
// placeholder as a child. Manager.OnBuild attaches the placeholder to the
// host whenever the node is (re)built in the visible tree.
type PlaceholderHost interface {
	AttachPlaceholder(p *Placeholder)
}

// Style carries canvas state that the drawing context does not stack
// itself. Fill and stroke colors live here because a recorded context
// keeps them independently, while global alpha scales both on use. Line
// state is mirrored here too: the context's Push/Pop covers only
// transform, clip, and mask, but a recorded save/restore also snapshots
// line width, cap, join, miter limit, and dash.
type Style struct {
	// Alpha is the recorded globalAlpha, applied to both colors.
	Alpha float64
	// Fill is the recorded fillStyle color.
	Fill gg.RGBA
	// Stroke is the recorded strokeStyle color.
	Stroke gg.RGBA

	// LineWidth is the recorded lineWidth.
	LineWidth float64
	// LineCap is the recorded lineCap.
	LineCap gg.LineCap
	// LineJoin is the recorded lineJoin.
	LineJoin gg.LineJoin
	// MiterLimit is the recorded miterLimit.
	MiterLimit float64
	// Dash is the recorded setLineDash pattern; empty means solid.
	Dash []float64
	// DashOffset is the recorded lineDashOffset.
	DashOffset float64
}

// DefaultStyle returns the initial style of a fresh recorded context.
// The line values match a fresh gg paint.
func DefaultStyle() Style {
	return Style{
		Alpha:      1,
		Fill:       gg.RGBA{R: 0, G: 0, B: 0, A: 1},
		Stroke:     gg.RGBA{R: 0, G: 0, B: 0, A: 1},
		LineWidth:  1,
		LineCap:    gg.LineCapButt,
		LineJoin:   gg.LineJoinMiter,
		MiterLimit: 10,
	}
}

// clone returns a copy whose dash pattern is safe to keep on a stack.
func (s Style) clone() Style {
	if s.Dash != nil {
		s.Dash = append([]float64(nil), s.Dash...)
	}
	return s
}

// Record is the replay state of one recorded canvas.
//
// Canvas is exclusively owned by the mutation applier for this id; nothing
// else may draw on it. Placeholder is written only with encoded snapshots.
type Record struct {
	// ID is the recorded canvas identifier.
	ID int

	// Canvas is the off-screen accumulation surface.
	Canvas *gg.Context

	// Placeholder publishes the latest encoded snapshot.
	Placeholder *Placeholder

	// Style is the current recorded style state.
	Style Style

	// styleStack backs save/restore of Style alongside the context's own
	// state stack.
	styleStack []Style
}

// SaveStyle pushes the current style, mirroring a recorded save call.
func (r *Record) SaveStyle() {
	r.styleStack = append(r.styleStack, r.Style.clone())
}

// RestoreStyle pops the style stack, mirroring a recorded restore call,
// and pushes the restored line state back onto the drawing context.
// Restoring past the bottom of the stack is a no-op, like its browser
// counterpart.
func (r *Record) RestoreStyle() {
	if len(r.styleStack) == 0 {
		return
	}
	r.Style = r.styleStack[len(r.styleStack)-1]
	r.styleStack = r.styleStack[:len(r.styleStack)-1]
	r.applyLineState()
}

// ResetStyle clears the style state back to defaults. Called when the
// surface is resized, because a resize resets the recorded context too.
func (r *Record) ResetStyle() {
	r.Style = DefaultStyle()
	r.styleStack = r.styleStack[:0]
	r.applyLineState()
}

// applyLineState pushes the style's line values onto the drawing context.
func (r *Record) applyLineState() {
	if r.Canvas == nil {
		return
	}
	r.Canvas.SetLineWidth(r.Style.LineWidth)
	r.Canvas.SetLineCap(r.Style.LineCap)
	r.Canvas.SetLineJoin(r.Style.LineJoin)
	r.Canvas.SetMiterLimit(r.Style.MiterLimit)
	if len(r.Style.Dash) == 0 {
		r.Canvas.ClearDash()
	} else {
		r.Canvas.SetDash(r.Style.Dash...)
	}
	r.Canvas.SetDashOffset(r.Style.DashOffset)
}
