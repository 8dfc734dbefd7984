// Command ggreplay replays recorded canvas mutation events into JPEG
// snapshots, one file per canvas surface.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"

	"github.com/gogpu/ggreplay"
	"github.com/gogpu/ggreplay/event"
	"github.com/gogpu/ggreplay/surface"
)

// staticNode is a fixed-size canvas entry in the command-line mirror. A
// recording pipeline would track real DOM geometry per node; here every
// canvas in the stream gets the same bounds.
type staticNode struct {
	width  int
	height int
}

func (n staticNode) Kind() string       { return surface.KindCanvas }
func (n staticNode) Bounds() (int, int) { return n.width, n.height }

func main() {
	var (
		events  = flag.String("events", "", "recorded event stream (JSON array or one JSON object per line)")
		outDir  = flag.String("out", ".", "directory for snapshot JPEGs")
		quality = flag.Int("quality", ggreplay.DefaultQuality, "JPEG quality, 1-100")
		width   = flag.Int("width", 800, "canvas width for surfaces in the stream")
		height  = flag.Int("height", 600, "canvas height for surfaces in the stream")
	)
	flag.Parse()

	if *events == "" {
		flag.Usage()
		os.Exit(2)
	}

	f, err := os.Open(*events)
	if err != nil {
		log.Fatalf("open events: %v", err)
	}
	stream, err := event.Decode(f)
	_ = f.Close()
	if err != nil {
		log.Fatalf("decode events: %v", err)
	}

	node := staticNode{width: *width, height: *height}
	mirror := ggreplay.MirrorFunc(func(id int) (ggreplay.Node, bool) {
		return node, true
	})

	session := ggreplay.NewSession(mirror,
		ggreplay.WithQuality(*quality),
		ggreplay.WithErrorHandler(func(err error) {
			log.Printf("replay: %v", err)
		}),
	)
	defer session.Close()

	ctx := context.Background()
	if err := session.Preload(ctx, stream); err != nil {
		log.Fatalf("preload: %v", err)
	}

	applied := 0
	for _, ev := range stream {
		if !ev.IsCanvasMutation() {
			continue
		}
		session.HandleEvent(ctx, ev, false)
		applied++
	}

	written := 0
	for _, id := range session.SurfaceIDs() {
		data, _, _, ok := session.Snapshot(id)
		if !ok {
			continue
		}
		path := filepath.Join(*outDir, fmt.Sprintf("%d.jpg", id))
		if err := os.WriteFile(path, data, 0o644); err != nil {
			log.Fatalf("write %s: %v", path, err)
		}
		written++
	}

	log.Printf("replayed %d canvas events, wrote %d snapshots to %s", applied, written, *outDir)
}
