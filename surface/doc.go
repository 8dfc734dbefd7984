// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

// Package surface owns the drawing state reconstructed per recorded canvas.
//
// Each recorded canvas id maps to a Record: an off-screen gg drawing
// context that accumulates draw operations across mutation events, plus a
// Placeholder that publishes the latest encoded snapshot to whoever
// displays the replay. The off-screen context is never attached to the
// reconstructed document; it exists purely as an accumulation buffer.
//
// Records are created lazily on first use and live for the whole session.
// A record is never recreated once made, because incremental draw state
// must survive from one mutation event to the next.
package surface
