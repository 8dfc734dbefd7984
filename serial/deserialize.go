// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

package serial

import (
	"context"
	"log/slog"

	"github.com/gogpu/gg"

	"github.com/gogpu/ggreplay/resource"
)

// SurfaceResolver maps a recorded canvas id to its live drawing surface.
// It returns nil when no surface exists for the id; the argument then
// resolves to nil and the command using it is expected to cope.
//
// Surface references are resolved on every use and never cached: a surface
// must reflect current replay state, not the state it had when some earlier
// event was resolved.
type SurfaceResolver func(id int) *gg.Context

// Deserializer converts serialized arguments into live values.
// It is safe for concurrent use; all mutable state lives in the caches.
type Deserializer struct {
	images *resource.ImageCache
	loader resource.Loader
	log    *slog.Logger
}

// NewDeserializer creates a deserializer resolving image references through
// the given cache and loader. A nil logger disables logging.
func NewDeserializer(images *resource.ImageCache, loader resource.Loader, log *slog.Logger) *Deserializer {
	if log == nil {
		log = slog.New(discardHandler{})
	}
	return &Deserializer{
		images: images,
		loader: loader,
		log:    log,
	}
}

// Resolve produces the live value for one serialized argument.
//
// Primitives pass through untouched. Buffers reconstruct into fresh typed
// slices and set the changed flag. Image references resolve through the
// image cache; the flag is set only when this call populated the cache.
// Surface references go through surfaces each time and never set the flag.
//
// A failed image load resolves to a *BrokenImage instead of an error:
// resolution is best-effort and must never abort the mutation that
// triggered it.
func (d *Deserializer) Resolve(ctx context.Context, v Value, surfaces SurfaceResolver, changed *bool) any {
	switch v.Kind {
	case KindPrimitive:
		return v.Prim

	case KindBuffer:
		d.markChanged(changed)
		return v.Buf.Materialize()

	case KindImage:
		return d.resolveImage(ctx, v.Image, changed)

	case KindSurface:
		if surfaces == nil {
			return SurfaceHandle{ID: v.Surface.ID}
		}
		return surfaces(v.Surface.ID)

	case KindList:
		out := make([]any, len(v.List))
		for i, item := range v.List {
			out[i] = d.Resolve(ctx, item, surfaces, changed)
		}
		return out

	default:
		d.log.Warn("serial: unsupported argument tag", "tag", v.Tag)
		return nil
	}
}

// ResolveArgs resolves a command's argument list in order.
func (d *Deserializer) ResolveArgs(ctx context.Context, args []Value, surfaces SurfaceResolver, changed *bool) []any {
	out := make([]any, len(args))
	for i, a := range args {
		out[i] = d.Resolve(ctx, a, surfaces, changed)
	}
	return out
}

// resolveImage loads an image reference through the cache.
func (d *Deserializer) resolveImage(ctx context.Context, ref *ImageRef, changed *bool) any {
	key := ref.Key()
	img, err, hit := d.images.GetOrLoad(ctx, key, func(ctx context.Context) (*gg.ImageBuf, error) {
		return d.loader.Load(ctx, ref.Src, ref.Data)
	})
	if !hit {
		d.markChanged(changed)
	}
	if err != nil {
		return &BrokenImage{Key: key, Err: err}
	}
	return img
}

func (d *Deserializer) markChanged(changed *bool) {
	if changed != nil {
		*changed = true
	}
}

// discardHandler is a slog.Handler that silently discards all records.
type discardHandler struct{}

func (discardHandler) Enabled(context.Context, slog.Level) bool  { return false }
func (discardHandler) Handle(context.Context, slog.Record) error { return nil }
func (discardHandler) WithAttrs([]slog.Attr) slog.Handler        { return discardHandler{} }
func (discardHandler) WithGroup(string) slog.Handler             { return discardHandler{} }
