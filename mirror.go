package ggreplay

import (
	"github.com/gogpu/ggreplay/surface"
)

// Node is the replay engine's view of a reconstructed element.
type Node = surface.Node

// Placeholder is the visible output slot for one recorded canvas.
type Placeholder = surface.Placeholder

// Mirror maps recorded node identifiers to their reconstructed
// counterparts. It is owned by the external player; replay only reads it.
//
// GetNode returns false when the recorded id was never mounted in the
// reconstructed tree. Mutation events targeting such ids are no-ops, not
// errors: a recording may reference canvases that the player chose not to
// rebuild.
type Mirror interface {
	GetNode(id int) (Node, bool)
}

// MirrorFunc adapts a function to the Mirror interface.
type MirrorFunc func(id int) (Node, bool)

// GetNode implements Mirror.
func (f MirrorFunc) GetNode(id int) (Node, bool) { return f(id) }
