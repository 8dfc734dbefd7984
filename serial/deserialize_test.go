// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

package serial

import (
	"context"
	"errors"
	"image"
	"sync/atomic"
	"testing"

	"github.com/gogpu/gg"

	"github.com/gogpu/ggreplay/resource"
)

// fakeLoader serves canned results and counts invocations.
type fakeLoader struct {
	img   *gg.ImageBuf
	err   error
	calls atomic.Int32
}

func (l *fakeLoader) Load(ctx context.Context, src string, data []byte) (*gg.ImageBuf, error) {
	l.calls.Add(1)
	return l.img, l.err
}

func testImage() *gg.ImageBuf {
	return gg.ImageBufFromImage(image.NewRGBA(image.Rect(0, 0, 2, 2)))
}

func newTestDeserializer(loader resource.Loader) (*Deserializer, *resource.ImageCache) {
	cache := resource.NewImageCache(nil)
	return NewDeserializer(cache, loader, nil), cache
}

func TestDeserializer_ResolvePrimitive(t *testing.T) {
	d, _ := newTestDeserializer(&fakeLoader{})

	changed := false
	got := d.Resolve(context.Background(), Value{Kind: KindPrimitive, Prim: 3.5}, nil, &changed)
	if got != 3.5 {
		t.Errorf("Resolve(primitive) = %v, want 3.5", got)
	}
	if changed {
		t.Error("primitive resolution set the changed flag")
	}
}

func TestDeserializer_ResolveBufferSetsChanged(t *testing.T) {
	d, _ := newTestDeserializer(&fakeLoader{})

	v := Value{Kind: KindBuffer, Buf: &Buffer{Elem: ElemUint8, Nums: []float64{1, 2}}}
	changed := false
	got := d.Resolve(context.Background(), v, nil, &changed)
	if _, ok := got.([]uint8); !ok {
		t.Fatalf("Resolve(buffer) = %T, want []uint8", got)
	}
	if !changed {
		t.Error("buffer resolution did not set the changed flag")
	}
}

func TestDeserializer_ResolveImageUsesCache(t *testing.T) {
	loader := &fakeLoader{img: testImage()}
	d, _ := newTestDeserializer(loader)

	v := Value{Kind: KindImage, Image: &ImageRef{Src: "https://example.com/a.png"}}

	changed := false
	first := d.Resolve(context.Background(), v, nil, &changed)
	if first == nil {
		t.Fatal("Resolve(image) = nil on first use")
	}
	if !changed {
		t.Error("first resolution of an image did not set the changed flag")
	}

	changed = false
	second := d.Resolve(context.Background(), v, nil, &changed)
	if first != second {
		t.Error("repeated resolution returned a different image object")
	}
	if changed {
		t.Error("cached resolution set the changed flag")
	}
	if n := loader.calls.Load(); n != 1 {
		t.Errorf("loader calls = %d, want 1", n)
	}
}

func TestDeserializer_ResolveFailedImage(t *testing.T) {
	loadErr := errors.New("boom")
	loader := &fakeLoader{err: loadErr}
	d, _ := newTestDeserializer(loader)

	v := Value{Kind: KindImage, Image: &ImageRef{Src: "https://example.com/missing.png"}}

	got := d.Resolve(context.Background(), v, nil, nil)
	broken, ok := got.(*BrokenImage)
	if !ok {
		t.Fatalf("Resolve(failed image) = %T, want *BrokenImage", got)
	}
	if !errors.Is(broken.Err, loadErr) {
		t.Errorf("BrokenImage.Err = %v, want wrapped %v", broken.Err, loadErr)
	}

	// The failure is cached: no retry on the second resolution.
	_ = d.Resolve(context.Background(), v, nil, nil)
	if n := loader.calls.Load(); n != 1 {
		t.Errorf("loader calls = %d, want 1 (failures must cache)", n)
	}
}

func TestDeserializer_ResolveSurface(t *testing.T) {
	d, _ := newTestDeserializer(&fakeLoader{})
	v := Value{Kind: KindSurface, Surface: &SurfaceRef{ID: 4}}

	// Without a resolver the reference stays deferred.
	changed := false
	got := d.Resolve(context.Background(), v, nil, &changed)
	if handle, ok := got.(SurfaceHandle); !ok || handle.ID != 4 {
		t.Errorf("Resolve(surface, nil resolver) = %v, want SurfaceHandle{ID: 4}", got)
	}
	if changed {
		t.Error("surface resolution set the changed flag")
	}

	// With a resolver the live surface comes back.
	dc := gg.NewContext(8, 8)
	resolver := func(id int) *gg.Context {
		if id == 4 {
			return dc
		}
		return nil
	}
	if got := d.Resolve(context.Background(), v, resolver, nil); got != dc {
		t.Errorf("Resolve(surface) = %v, want the resolver's context", got)
	}
}

func TestDeserializer_ResolveList(t *testing.T) {
	d, _ := newTestDeserializer(&fakeLoader{})
	v := Value{Kind: KindList, List: []Value{
		{Kind: KindPrimitive, Prim: 1.0},
		{Kind: KindBuffer, Buf: &Buffer{Elem: ElemFloat64, Nums: []float64{2}}},
	}}

	changed := false
	got := d.Resolve(context.Background(), v, nil, &changed)
	list, ok := got.([]any)
	if !ok || len(list) != 2 {
		t.Fatalf("Resolve(list) = %v, want a 2-element []any", got)
	}
	if !changed {
		t.Error("list containing a buffer did not set the changed flag")
	}
}

func TestDeserializer_ResolveUnknown(t *testing.T) {
	d, _ := newTestDeserializer(&fakeLoader{})
	got := d.Resolve(context.Background(), Value{Kind: KindUnknown, Tag: "Mystery"}, nil, nil)
	if got != nil {
		t.Errorf("Resolve(unknown) = %v, want nil", got)
	}
}
