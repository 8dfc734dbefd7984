package ggreplay

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"sync/atomic"

	"golang.org/x/sync/errgroup"

	"github.com/gogpu/ggreplay/event"
	"github.com/gogpu/ggreplay/resource"
	"github.com/gogpu/ggreplay/serial"
	"github.com/gogpu/ggreplay/surface"
)

// Session replays one recorded canvas-mutation stream.
//
// All per-replay state lives on the session: the image and command caches,
// the surface records, and the deserializer. Sessions are independent;
// tearing one down with Close never affects another.
//
// Mutation application is driven by the external timeline and is expected
// to stay on one goroutine. Preload may run concurrently with playback:
// the caches tolerate the race, and playback falls back to inline
// resolution on a cache miss.
type Session struct {
	mirror   Mirror
	images   *resource.ImageCache
	commands *resource.CommandCache
	surfaces *surface.Manager
	deser    *serial.Deserializer

	opts sessionOptions
	log  *slog.Logger

	closed atomic.Bool
}

// NewSession creates a replay session resolving recorded node ids through
// mirror.
func NewSession(mirror Mirror, opts ...Option) *Session {
	o := defaultSessionOptions()
	for _, opt := range opts {
		opt(&o)
	}
	if o.loader == nil {
		o.loader = resource.NewHTTPLoader()
	}
	if o.logger == nil {
		o.logger = Logger()
	}

	s := &Session{
		mirror:   mirror,
		commands: resource.NewCommandCache(),
		opts:     o,
		log:      o.logger,
	}

	surfaceOpts := []surface.Option{surface.WithLogger(o.logger)}
	if o.maxSurfaceSize > 0 {
		surfaceOpts = append(surfaceOpts, surface.WithMaxDimension(o.maxSurfaceSize))
	}
	s.surfaces = surface.NewManager(surfaceOpts...)

	s.images = resource.NewImageCache(func(key string, err error) {
		s.report(&resource.LoadError{Key: key, Err: err})
	})
	s.deser = serial.NewDeserializer(s.images, o.loader, o.logger)

	return s
}

// HandleEvent is the playback hook invoked by the external player for every
// timeline event. Non-canvas events are no-ops. The sync flag marks events
// delivered during a fast seek; canvas mutations apply either way, since
// skipping one would desynchronize accumulated surface state.
//
// HandleEvent never panics; replay errors degrade to reported no-ops.
func (s *Session) HandleEvent(ctx context.Context, ev *event.Event, sync bool) {
	defer func() {
		if r := recover(); r != nil {
			s.log.Warn("ggreplay: event handler panic", "panic", r)
		}
	}()

	if ev == nil || s.closed.Load() {
		return
	}
	if !ev.IsCanvasMutation() {
		return
	}
	s.Apply(ctx, ev)
}

// OnBuild is the build hook invoked when the external player (re)constructs
// a node in the visible tree. Canvas nodes get their snapshot placeholder
// (re)attached; other nodes are ignored.
func (s *Session) OnBuild(id int, node Node) {
	if s.closed.Load() {
		return
	}
	s.surfaces.OnBuild(id, node)
}

// Preload walks the full event list once and resolves every canvas
// mutation's arguments in parallel, populating the caches before playback
// needs them. Playback does not require Preload to finish - a cache miss
// resolves inline - but awaiting it avoids visible popping during the
// first seconds of playback.
//
// Preload is idempotent: a second run over the same list does not trigger
// image loads already cached.
func (s *Session) Preload(ctx context.Context, events []*event.Event) error {
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(s.opts.preloadConcurrency)

	for _, ev := range events {
		mut, ok := ev.CanvasMutation()
		if !ok || s.commands.Contains(ev) {
			continue
		}
		g.Go(func() error {
			s.resolveCommands(ctx, ev, mut)
			return nil
		})
	}
	return g.Wait()
}

// Apply applies one canvas-mutation event.
//
// A missing or non-canvas target makes the whole event a no-op. Individual
// command failures are reported and skipped; the remaining commands of the
// same event still apply. After the last command the surface is re-encoded
// into the placeholder.
func (s *Session) Apply(ctx context.Context, ev *event.Event) {
	mut, ok := ev.CanvasMutation()
	if !ok || s.closed.Load() {
		return
	}

	node, ok := s.mirror.GetNode(mut.ID)
	if !ok || node == nil {
		// The node was never mounted. Expected during seeks and partial
		// reconstructions, so no error and no surface record.
		s.log.Debug("ggreplay: mutation target not mounted", "id", mut.ID)
		return
	}
	if node.Kind() != surface.KindCanvas {
		s.log.Debug("ggreplay: mutation target is not a canvas",
			"id", mut.ID, "kind", node.Kind())
		return
	}

	rec := s.surfaces.GetOrCreate(mut.ID, node)

	// The recorded dimensions follow earlier DOM mutations; a change wipes
	// accumulated pixels, matching what the live canvas did.
	s.surfaces.Resize(rec, node)

	cmds, ok := s.commands.Get(ev)
	if !ok {
		// Preload has not reached this event (or nothing in it needed
		// caching). Resolve inline, blocking this one event only.
		cmds = s.resolveCommands(ctx, ev, mut)
	}

	for _, cmd := range cmds {
		if err := s.applyCommand(rec, cmd); err != nil {
			s.report(&ApplyError{ID: mut.ID, Method: cmd.Method, Err: err})
		}
	}

	s.publish(rec)
}

// Snapshot returns the latest encoded snapshot for a recorded canvas id.
func (s *Session) Snapshot(id int) (data []byte, width, height int, ok bool) {
	rec, found := s.surfaces.Get(id)
	if !found {
		return nil, 0, 0, false
	}
	data, width, height = rec.Placeholder.Snapshot()
	return data, width, height, true
}

// Placeholder returns the placeholder for a recorded canvas id.
func (s *Session) Placeholder(id int) (*Placeholder, bool) {
	rec, ok := s.surfaces.Get(id)
	if !ok {
		return nil, false
	}
	return rec.Placeholder, true
}

// SurfaceIDs returns the recorded ids of all surfaces created so far,
// sorted ascending.
func (s *Session) SurfaceIDs() []int {
	return s.surfaces.IDs()
}

// ImageCacheStats exposes image cache statistics for monitoring.
func (s *Session) ImageCacheStats() resource.ImageCacheStats {
	return s.images.Stats()
}

// Close tears the session down: caches are dropped and surfaces released.
// The session must not be used afterwards. Close is idempotent.
func (s *Session) Close() {
	if s.closed.Swap(true) {
		return
	}
	s.images.Clear()
	s.commands.Clear()
	s.surfaces.Close()
}

// resolveCommands resolves every argument of the event's command list. The
// resolved list enters the command cache only when at least one argument
// changed representation: looking up a pure-primitive list would gain
// nothing over re-reading the event.
//
// Surface references stay deferred (serial.SurfaceHandle) so that cached
// lists never pin another surface's past state.
func (s *Session) resolveCommands(ctx context.Context, ev *event.Event, mut *event.CanvasMutation) []resource.ResolvedCommand {
	changed := false
	cmds := make([]resource.ResolvedCommand, len(mut.Commands))
	for i, cmd := range mut.Commands {
		cmds[i] = resource.ResolvedCommand{
			Method: cmd.Method,
			Setter: cmd.Setter,
			Args:   s.deser.ResolveArgs(ctx, cmd.Args, nil, &changed),
		}
	}
	if changed {
		s.commands.Put(ev, cmds)
	}
	return cmds
}

// applyCommand applies one resolved draw call to a surface record.
// Unknown methods and commands doomed by a failed image load are skipped
// without error. Panics out of the drawing layer are contained here so a
// malformed command can never take down playback.
func (s *Session) applyCommand(rec *surface.Record, cmd resource.ResolvedCommand) (err error) {
	op, ok := opTable[cmd.Method]
	if !ok {
		// The recorded format evolves; unrecognized methods degrade to a
		// logged no-op instead of failing the event.
		s.log.Warn("ggreplay: unknown draw method", "method", cmd.Method)
		return nil
	}

	if broken := brokenImageArg(cmd.Args); broken != nil {
		s.log.Debug("ggreplay: skipping command with failed image",
			"method", cmd.Method, "key", broken.Key)
		return nil
	}

	defer func() {
		if r := recover(); r != nil {
			err = &panicError{value: r}
		}
	}()
	return op(s, rec, cmd.Args)
}

// brokenImageArg finds a failed image anywhere in an argument tree.
// Lists recurse because recorded calls may nest resources inside arrays.
func brokenImageArg(args []any) *serial.BrokenImage {
	for _, a := range args {
		switch v := a.(type) {
		case *serial.BrokenImage:
			return v
		case []any:
			if broken := brokenImageArg(v); broken != nil {
				return broken
			}
		}
	}
	return nil
}

// publish re-encodes the surface's pixels and hands them to the
// placeholder. Encoding failures keep the previous snapshot.
func (s *Session) publish(rec *surface.Record) {
	var buf bytes.Buffer
	if err := rec.Canvas.EncodeJPEG(&buf, s.opts.quality); err != nil {
		s.report(&EncodeError{ID: rec.ID, Err: err})
		return
	}
	rec.Placeholder.SetSnapshot(buf.Bytes(), rec.Canvas.Width(), rec.Canvas.Height())
	s.log.Debug("ggreplay: published snapshot",
		"id", rec.ID, "bytes", buf.Len(), "version", rec.Placeholder.Version())
}

// report forwards a swallowed error to the configured handler. Handler
// panics are contained; observability must never affect playback.
func (s *Session) report(err error) {
	if err == nil {
		return
	}
	s.log.Warn("ggreplay: replay error", "error", err)
	if s.opts.errorHandler == nil {
		return
	}
	defer func() {
		if r := recover(); r != nil {
			s.log.Warn("ggreplay: error handler panic", "panic", r)
		}
	}()
	s.opts.errorHandler(err)
}

// panicError wraps a recovered panic from the drawing layer.
type panicError struct {
	value any
}

func (e *panicError) Error() string {
	return fmt.Sprintf("ggreplay: draw panic: %v", e.value)
}
