// Package ggreplay replays recorded canvas-mutation streams onto gg surfaces.
//
// # Overview
//
// A session recording captures every draw call made against the canvases of
// a live page as a time-ordered stream of mutation events. ggreplay
// reconstructs the visual state of those canvases during playback without
// ever touching the original page: each recorded canvas id gets an
// off-screen gg drawing context that accumulates state event by event, and
// a placeholder that publishes freshly encoded JPEG snapshots after every
// applied mutation.
//
// # Quick Start
//
//	import "github.com/gogpu/ggreplay"
//
//	events, _ := event.Decode(file)
//
//	s := ggreplay.NewSession(mirror)
//	defer s.Close()
//
//	// Optional: resolve image arguments up front so playback never stalls.
//	_ = s.Preload(ctx, events)
//
//	// The external timeline delivers events in recorded order.
//	for _, ev := range events {
//	    s.HandleEvent(ctx, ev, false)
//	}
//
//	data, w, h, _ := s.Snapshot(canvasID)
//
// # Architecture
//
// The module is organized into:
//   - ggreplay: Session, mutation applier, draw-op dispatch
//   - event: timeline event model and decoding
//   - serial: serialized draw-call arguments and their deserializer
//   - resource: image and command caches, image loading
//   - surface: per-canvas drawing state and snapshot placeholders
//
// # Failure Model
//
// Replay favors best-effort visual fidelity over strict correctness. A
// failed image load, a malformed draw call, or a mutation targeting a node
// that was never mounted degrades that one command or event; it never
// aborts playback. All such degradations are reported to the error handler
// installed with WithErrorHandler.
package ggreplay

// Version information
const (
	// Version is the current version of the library
	Version = "0.3.1"
)
