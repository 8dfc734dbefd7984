// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

package surface

import (
	"reflect"
	"testing"

	"github.com/gogpu/gg"
)

// stubNode is a minimal Node for manager tests.
type stubNode struct {
	kind string
	w, h int
}

func (n *stubNode) Kind() string       { return n.kind }
func (n *stubNode) Bounds() (int, int) { return n.w, n.h }

// hostNode additionally accepts a snapshot placeholder.
type hostNode struct {
	stubNode
	attached *Placeholder
}

func (n *hostNode) AttachPlaceholder(p *Placeholder) { n.attached = p }

func canvasNode(w, h int) *stubNode {
	return &stubNode{kind: KindCanvas, w: w, h: h}
}

func TestManager_GetOrCreate(t *testing.T) {
	m := NewManager()
	defer m.Close()

	rec := m.GetOrCreate(5, canvasNode(32, 16))
	if rec == nil {
		t.Fatal("GetOrCreate() = nil")
	}
	if rec.ID != 5 {
		t.Errorf("ID = %d, want 5", rec.ID)
	}
	if w, h := rec.Canvas.Width(), rec.Canvas.Height(); w != 32 || h != 16 {
		t.Errorf("surface = %dx%d, want 32x16", w, h)
	}
	if rec.Placeholder == nil {
		t.Error("record created without a placeholder")
	}
	if !reflect.DeepEqual(rec.Style, DefaultStyle()) {
		t.Errorf("Style = %+v, want defaults", rec.Style)
	}

	// A second lookup must return the same record, even with new bounds:
	// accumulated state persists and resizing is a separate decision.
	again := m.GetOrCreate(5, canvasNode(64, 64))
	if again != rec {
		t.Error("GetOrCreate() recreated an existing record")
	}
	if w := again.Canvas.Width(); w != 32 {
		t.Errorf("existing surface width = %d, want 32 (unchanged)", w)
	}
}

func TestManager_ClampBounds(t *testing.T) {
	m := NewManager(WithMaxDimension(100))
	defer m.Close()

	tests := []struct {
		name  string
		w, h  int
		wantW int
		wantH int
	}{
		{"zero box", 0, 0, MinDimension, MinDimension},
		{"negative box", -5, -5, MinDimension, MinDimension},
		{"oversized box", 5000, 40, 100, 40},
		{"normal box", 80, 60, 80, 60},
	}

	for i, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := m.GetOrCreate(i, canvasNode(tt.w, tt.h))
			if w, h := rec.Canvas.Width(), rec.Canvas.Height(); w != tt.wantW || h != tt.wantH {
				t.Errorf("surface = %dx%d, want %dx%d", w, h, tt.wantW, tt.wantH)
			}
		})
	}
}

func TestManager_Resolve(t *testing.T) {
	m := NewManager()
	defer m.Close()

	if dc := m.Resolve(1); dc != nil {
		t.Errorf("Resolve(missing) = %v, want nil", dc)
	}

	rec := m.GetOrCreate(1, canvasNode(8, 8))
	if dc := m.Resolve(1); dc != rec.Canvas {
		t.Error("Resolve() did not return the record's surface")
	}
}

func TestManager_Resize(t *testing.T) {
	m := NewManager()
	defer m.Close()

	rec := m.GetOrCreate(1, canvasNode(20, 20))
	rec.Style.Alpha = 0.5

	// Unchanged bounds leave the surface and style alone.
	if m.Resize(rec, canvasNode(20, 20)) {
		t.Error("Resize() reported a reset for unchanged bounds")
	}
	if rec.Style.Alpha != 0.5 {
		t.Error("Resize() with unchanged bounds touched the style")
	}

	// Changed bounds resize and reset style state.
	if !m.Resize(rec, canvasNode(40, 10)) {
		t.Error("Resize() did not report a reset for changed bounds")
	}
	if w, h := rec.Canvas.Width(), rec.Canvas.Height(); w != 40 || h != 10 {
		t.Errorf("surface = %dx%d, want 40x10", w, h)
	}
	if !reflect.DeepEqual(rec.Style, DefaultStyle()) {
		t.Errorf("Style after resize = %+v, want defaults", rec.Style)
	}
}

func TestManager_OnBuild(t *testing.T) {
	m := NewManager()
	defer m.Close()

	host := &hostNode{stubNode: stubNode{kind: KindCanvas, w: 10, h: 10}}
	p := m.OnBuild(3, host)
	if p == nil {
		t.Fatal("OnBuild() = nil for a canvas node")
	}
	if host.attached != p {
		t.Error("OnBuild() did not attach the placeholder to the host")
	}
	if p.Host() != PlaceholderHost(host) {
		t.Error("placeholder does not know its host")
	}

	// A rebuild reuses the placeholder so its content survives.
	rebuilt := &hostNode{stubNode: stubNode{kind: KindCanvas, w: 10, h: 10}}
	if again := m.OnBuild(3, rebuilt); again != p {
		t.Error("OnBuild() created a new placeholder for a rebuilt node")
	}
	if rebuilt.attached != p {
		t.Error("rebuilt host did not receive the existing placeholder")
	}

	// The record created later shares the same placeholder.
	rec := m.GetOrCreate(3, host)
	if rec.Placeholder != p {
		t.Error("record placeholder differs from the one OnBuild created")
	}
}

func TestManager_OnBuildIgnoresNonCanvas(t *testing.T) {
	m := NewManager()
	defer m.Close()

	if p := m.OnBuild(1, &stubNode{kind: "div"}); p != nil {
		t.Errorf("OnBuild(div) = %v, want nil", p)
	}
	if p := m.OnBuild(2, nil); p != nil {
		t.Errorf("OnBuild(nil) = %v, want nil", p)
	}
}

func TestManager_IDs(t *testing.T) {
	m := NewManager()
	defer m.Close()

	for _, id := range []int{9, 2, 5} {
		m.GetOrCreate(id, canvasNode(4, 4))
	}
	if got, want := m.IDs(), []int{2, 5, 9}; !reflect.DeepEqual(got, want) {
		t.Errorf("IDs() = %v, want %v", got, want)
	}
	if m.Len() != 3 {
		t.Errorf("Len() = %d, want 3", m.Len())
	}

	m.Close()
	if m.Len() != 0 {
		t.Errorf("Len() after Close = %d, want 0", m.Len())
	}
}

func TestRecord_StyleStack(t *testing.T) {
	rec := &Record{Style: DefaultStyle()}

	rec.Style.Fill = gg.RGBA{R: 1, A: 1}
	rec.SaveStyle()
	rec.Style.Fill = gg.RGBA{B: 1, A: 1}
	rec.Style.Alpha = 0.25

	rec.RestoreStyle()
	if rec.Style.Fill != (gg.RGBA{R: 1, A: 1}) {
		t.Errorf("Fill after restore = %+v, want the saved red", rec.Style.Fill)
	}
	if rec.Style.Alpha != 1 {
		t.Errorf("Alpha after restore = %v, want 1", rec.Style.Alpha)
	}

	// Restoring past the bottom of the stack is a no-op.
	rec.RestoreStyle()
	rec.RestoreStyle()
	if rec.Style.Fill != (gg.RGBA{R: 1, A: 1}) {
		t.Error("unbalanced restore corrupted the style")
	}
}

func TestRecord_StyleStackLineState(t *testing.T) {
	rec := &Record{
		Canvas: gg.NewContext(10, 10),
		Style:  DefaultStyle(),
	}
	defer func() { _ = rec.Canvas.Close() }()

	rec.SaveStyle()
	rec.Style.LineWidth = 12
	rec.Style.LineCap = gg.LineCapRound
	rec.Style.LineJoin = gg.LineJoinBevel
	rec.Style.MiterLimit = 3
	rec.Style.Dash = []float64{4, 2}
	rec.Style.DashOffset = 1

	rec.RestoreStyle()
	if rec.Style.LineWidth != 1 {
		t.Errorf("LineWidth after restore = %v, want 1", rec.Style.LineWidth)
	}
	if rec.Style.LineCap != gg.LineCapButt || rec.Style.LineJoin != gg.LineJoinMiter {
		t.Errorf("cap/join after restore = %v/%v, want butt/miter",
			rec.Style.LineCap, rec.Style.LineJoin)
	}
	if rec.Style.MiterLimit != 10 {
		t.Errorf("MiterLimit after restore = %v, want 10", rec.Style.MiterLimit)
	}
	if len(rec.Style.Dash) != 0 || rec.Style.DashOffset != 0 {
		t.Errorf("dash after restore = %v offset %v, want solid",
			rec.Style.Dash, rec.Style.DashOffset)
	}
}

func TestRecord_SaveStyleCopiesDash(t *testing.T) {
	rec := &Record{Style: DefaultStyle()}
	rec.Style.Dash = []float64{4, 2}

	rec.SaveStyle()
	rec.Style.Dash[0] = 99
	rec.RestoreStyle()
	if rec.Style.Dash[0] != 4 {
		t.Errorf("saved dash[0] = %v, want 4 (stack must not alias)", rec.Style.Dash[0])
	}
}
