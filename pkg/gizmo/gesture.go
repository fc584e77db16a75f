package gizmo

import (
	"math"

	"github.com/matzehuels/tryon/pkg/coords"
	"github.com/matzehuels/tryon/pkg/scene"
)

// State is a controller state.
type State int

const (
	Idle State = iota
	Selected
	Dragging
	Rotating
	Scaling
)

func (s State) String() string {
	switch s {
	case Idle:
		return "Idle"
	case Selected:
		return "Selected"
	case Dragging:
		return "Dragging"
	case Rotating:
		return "Rotating"
	case Scaling:
		return "Scaling"
	}
	return "Unknown"
}

// Gesture is an active pointer gesture. It is one of [Drag], [Rotate] or
// [Scale].
type Gesture interface {
	State() State
	Target() scene.Handle
	// apply returns the new stage position, scale magnitude and rotation
	// for the target sprite with the pointer at p.
	apply(sp scene.Sprite, p coords.Point, opts *Options) (coords.Point, float64, float64)
}

// Drag moves a sprite with the pointer. Offset is the sprite position
// minus the pointer position at the press; the sprite follows the pointer
// at that fixed offset.
type Drag struct {
	Handle scene.Handle
	Offset coords.Point
}

func (g Drag) State() State         { return Dragging }
func (g Drag) Target() scene.Handle { return g.Handle }
func (g Drag) apply(sp scene.Sprite, p coords.Point, _ *Options) (coords.Point, float64, float64) {
	return p.Add(g.Offset), math.Abs(sp.ScaleY), sp.Rotation
}

// Rotate turns a sprite toward the pointer. The rotate handle sits above
// the sprite, so a pointer straight above the center is zero rotation.
type Rotate struct {
	Handle scene.Handle
}

func (g Rotate) State() State         { return Rotating }
func (g Rotate) Target() scene.Handle { return g.Handle }
func (g Rotate) apply(sp scene.Sprite, p coords.Point, _ *Options) (coords.Point, float64, float64) {
	angle := math.Atan2(p.Y-sp.Pos.Y, p.X-sp.Pos.X) + math.Pi/2
	return sp.Pos, math.Abs(sp.ScaleY), angle
}

// Scale resizes a sprite by the pointer distance from the press point,
// in units of [Options.ScaleReference]. The direction of travel does not
// matter; only the wheel shrinks. StartScale is the fit-relative scale at
// the press.
type Scale struct {
	Handle     scene.Handle
	Start      coords.Point
	StartScale float64
}

func (g Scale) State() State         { return Scaling }
func (g Scale) Target() scene.Handle { return g.Handle }
func (g Scale) apply(sp scene.Sprite, p coords.Point, opts *Options) (coords.Point, float64, float64) {
	rel := math.Max(opts.MinScale, g.StartScale+p.Sub(g.Start).Len()/opts.ScaleReference)
	return sp.Pos, rel * sp.BaseScale, sp.Rotation
}
