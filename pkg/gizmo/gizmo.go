// Package gizmo implements the interactive move/rotate/scale controller for
// garments on a [scene.Scene].
//
// The controller is a state machine with five states (see [State]). The
// active gesture is a single [Gesture] value, so two simultaneous gestures
// cannot be represented: while one is held, [Controller.PointerDown]
// returns [ErrGestureActive] and changes nothing.
//
// Every completed gesture emits exactly one commit through
// [Options.OnCommit]. Moves during a gesture update the scene and redraw
// the overlay through [Options.OnRedraw] but never commit. Wheel scaling
// changes the selected sprite without a commit.
//
// Callbacks are bound once, when the controller is created.
package gizmo

import (
	"errors"
	"math"

	"github.com/matzehuels/tryon/pkg/coords"
	"github.com/matzehuels/tryon/pkg/fit"
	"github.com/matzehuels/tryon/pkg/scene"
)

// Errors returned by [Controller.PointerDown] and [Controller.Select].
var (
	ErrGestureActive = errors.New("gizmo: a gesture is already active")
	ErrNotEditable   = errors.New("gizmo: editing is disabled")
	ErrNoSprite      = errors.New("gizmo: no such sprite")
)

// SceneView is the part of a scene the controller works on.
// [*scene.Scene] implements it.
type SceneView interface {
	HitTest(p coords.Point) (scene.Handle, bool)
	Sprite(h scene.Handle) (scene.Sprite, bool)
	Bounds(h scene.Handle) (scene.Rect, bool)
	SetTransform(h scene.Handle, pos coords.Point, scale, rotation float64) error
	Commit(h scene.Handle) (string, fit.Transform, error)
}

// Options configures a controller. Zero values select the defaults.
type Options struct {
	Editable bool

	HandlePx       float64 // handle size in pixels (16)
	MinScale       float64 // minimum fit-relative scale (0.05)
	MaxScale       float64 // maximum fit-relative scale for wheel scaling (6)
	WheelStep      float64 // multiplicative wheel step (1.06)
	ScaleReference float64 // pointer distance that adds 1 to the scale (300)

	OnCommit func(itemID string, t fit.Transform)
	OnRedraw func(Overlay)
}

func (o *Options) setDefaults() {
	if o.HandlePx <= 0 {
		o.HandlePx = 16
	}
	if o.MinScale <= 0 {
		o.MinScale = 0.05
	}
	if o.MaxScale <= 0 {
		o.MaxScale = 6
	}
	if o.WheelStep <= 1 {
		o.WheelStep = 1.06
	}
	if o.ScaleReference <= 0 {
		o.ScaleReference = 300
	}
}

// Overlay is the on-screen gizmo for the selected sprite.
type Overlay struct {
	Visible      bool         `json:"visible"`
	Box          scene.Rect   `json:"box"`
	RotateHandle coords.Point `json:"rotateHandle"`
	ScaleHandle  coords.Point `json:"scaleHandle"`
	HandleRadius float64      `json:"handleRadius"`
}

// Controller drives gestures on a scene. It is not safe for concurrent
// use; callers serialize events.
type Controller struct {
	sc   SceneView
	opts Options

	selected scene.Handle
	hasSel   bool
	gesture  Gesture
}

// New creates a controller in the Idle state.
func New(sc SceneView, opts Options) *Controller {
	opts.setDefaults()
	return &Controller{sc: sc, opts: opts}
}

// Options returns the effective options.
func (c *Controller) Options() Options { return c.opts }

// State returns the current state.
func (c *Controller) State() State {
	switch {
	case c.gesture != nil:
		return c.gesture.State()
	case c.hasSel:
		return Selected
	default:
		return Idle
	}
}

// Selected returns the selected sprite.
func (c *Controller) Selected() (scene.Handle, bool) {
	return c.selected, c.hasSel
}

// Gesture returns the active gesture, or nil.
func (c *Controller) Gesture() Gesture { return c.gesture }

// PointerDown handles a press at p. A press on the rotate or scale handle
// of the selection starts rotating or scaling; a press on a garment
// selects it and starts dragging; a press on empty canvas deselects.
func (c *Controller) PointerDown(p coords.Point) error {
	if !c.opts.Editable {
		return ErrNotEditable
	}
	if c.gesture != nil {
		return ErrGestureActive
	}

	if c.hasSel {
		if sp, ok := c.sc.Sprite(c.selected); ok {
			ov := c.Overlay()
			switch {
			case ov.RotateHandle.Sub(p).Len() <= ov.HandleRadius:
				c.gesture = Rotate{Handle: c.selected}
				c.redraw()
				return nil
			case ov.ScaleHandle.Sub(p).Len() <= ov.HandleRadius:
				c.gesture = Scale{
					Handle:     c.selected,
					Start:      p,
					StartScale: relScale(sp),
				}
				c.redraw()
				return nil
			}
		}
	}

	h, ok := c.sc.HitTest(p)
	if !ok {
		c.clear()
		c.redraw()
		return nil
	}
	sp, _ := c.sc.Sprite(h)
	c.selected, c.hasSel = h, true
	c.gesture = Drag{Handle: h, Offset: sp.Pos.Sub(p)}
	c.redraw()
	return nil
}

// PointerMove updates the active gesture. Without a gesture it does
// nothing.
func (c *Controller) PointerMove(p coords.Point) {
	if c.gesture == nil {
		return
	}
	sp, ok := c.sc.Sprite(c.gesture.Target())
	if !ok {
		c.clear()
		c.redraw()
		return
	}
	pos, scale, rot := c.gesture.apply(sp, p, &c.opts)
	_ = c.sc.SetTransform(sp.Handle, pos, scale, rot)
	c.redraw()
}

// PointerUp ends the active gesture and commits its result.
func (c *Controller) PointerUp(p coords.Point) {
	c.end()
}

// PointerUpOutside ends the active gesture when the pointer is released
// outside the canvas. It commits like [Controller.PointerUp].
func (c *Controller) PointerUpOutside(p coords.Point) {
	c.end()
}

func (c *Controller) end() {
	if c.gesture == nil {
		return
	}
	h := c.gesture.Target()
	c.gesture = nil
	if itemID, t, err := c.sc.Commit(h); err == nil && c.opts.OnCommit != nil {
		c.opts.OnCommit(itemID, t)
	}
	c.redraw()
}

// Wheel scales the selected sprite when the pointer is over it. Negative
// deltaY zooms in. The fit-relative scale is clamped to
// [MinScale, MaxScale]. The mirrored twin of a selected shoe counts as
// the selection. It reports whether the sprite was scaled.
func (c *Controller) Wheel(p coords.Point, deltaY float64) bool {
	if !c.opts.Editable || !c.hasSel || c.gesture != nil || deltaY == 0 {
		return false
	}
	sp, ok := c.sc.Sprite(c.selected)
	if !ok {
		return false
	}
	if h, ok := c.sc.HitTest(p); !ok || (h != c.selected && (sp.Twin == 0 || h != sp.Twin)) {
		return false
	}
	rel := relScale(sp)
	if deltaY < 0 {
		rel *= c.opts.WheelStep
	} else {
		rel /= c.opts.WheelStep
	}
	rel = math.Min(c.opts.MaxScale, math.Max(c.opts.MinScale, rel))
	_ = c.sc.SetTransform(sp.Handle, sp.Pos, rel*sp.BaseScale, sp.Rotation)
	c.redraw()
	return true
}

// Select selects a sprite without starting a gesture.
func (c *Controller) Select(h scene.Handle) error {
	if !c.opts.Editable {
		return ErrNotEditable
	}
	if c.gesture != nil {
		return ErrGestureActive
	}
	sp, ok := c.sc.Sprite(h)
	if !ok || !sp.Interactive() {
		return ErrNoSprite
	}
	c.selected, c.hasSel = h, true
	c.redraw()
	return nil
}

// Deselect clears the selection. An active gesture is dropped without a
// commit.
func (c *Controller) Deselect() {
	if !c.hasSel && c.gesture == nil {
		return
	}
	c.clear()
	c.redraw()
}

// Relayout revalidates the selection after the scene was laid out again.
// A selection whose sprite no longer exists is cleared.
func (c *Controller) Relayout() {
	if !c.hasSel {
		return
	}
	if _, ok := c.sc.Sprite(c.selected); !ok {
		c.clear()
	}
	c.redraw()
}

// Overlay returns the gizmo for the current selection.
func (c *Controller) Overlay() Overlay {
	if !c.hasSel {
		return Overlay{}
	}
	b, ok := c.sc.Bounds(c.selected)
	if !ok {
		return Overlay{}
	}
	hp := c.opts.HandlePx
	return Overlay{
		Visible:      true,
		Box:          b,
		RotateHandle: coords.Point{X: b.X + b.W/2, Y: b.Y - hp*0.9},
		ScaleHandle:  coords.Point{X: b.X + b.W + hp*0.25, Y: b.Y + b.H + hp*0.25},
		HandleRadius: math.Max(12, hp*0.75),
	}
}

func (c *Controller) clear() {
	c.selected, c.hasSel = 0, false
	c.gesture = nil
}

func (c *Controller) redraw() {
	if c.opts.OnRedraw != nil {
		c.opts.OnRedraw(c.Overlay())
	}
}

// relScale returns the fit-relative scale of a sprite.
func relScale(sp scene.Sprite) float64 {
	return math.Abs(sp.ScaleX) / math.Max(1e-6, sp.BaseScale)
}
