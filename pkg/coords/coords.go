// Package coords converts between mannequin-normalized coordinates and
// stage pixels.
//
// The mannequin is drawn centered at (Geometry.X, Geometry.Y) with a pixel
// size of Geometry.Width x Geometry.Height. A normalized point (nx, ny) in
// [0,1]x[0,1] maps to
//
//	stageX = X + (nx - 0.5) * Width
//	stageY = Y + (ny - 0.5) * Height
//
// Persisted offsets are stored in the same normalized units, which makes a
// saved placement independent of the canvas size. No function in this
// package rounds; quantization happens only when a fit is persisted.
package coords

import (
	"math"

	"github.com/matzehuels/tryon/pkg/errors"
	"github.com/matzehuels/tryon/pkg/fit"
	"github.com/matzehuels/tryon/pkg/pose"
)

// LegacyThreshold is the magnitude above which a stored offset is assumed
// to be in pixels rather than normalized units.
const LegacyThreshold = 2.0

// Mannequin sizing relative to the container.
const (
	HeightFraction = 0.8
	WidthFraction  = 0.9
)

// Point is a position in stage pixels.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Sub returns p - q.
func (p Point) Sub(q Point) Point { return Point{X: p.X - q.X, Y: p.Y - q.Y} }

// Add returns p + q.
func (p Point) Add(q Point) Point { return Point{X: p.X + q.X, Y: p.Y + q.Y} }

// Len returns the distance of p from the origin.
func (p Point) Len() float64 { return math.Hypot(p.X, p.Y) }

// Size is a pixel extent.
type Size struct {
	W float64 `json:"w"`
	H float64 `json:"h"`
}

// Empty reports whether either side is not positive.
func (s Size) Empty() bool { return !(s.W > 0) || !(s.H > 0) }

// Geometry is the placement of the mannequin on the stage: its center and
// its pixel size.
type Geometry struct {
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// StageBox is an anchor box in stage pixels, described by its center.
type StageBox struct {
	CenterX float64 `json:"centerX"`
	CenterY float64 `json:"centerY"`
	Width   float64 `json:"width"`
	Height  float64 `json:"height"`
}

// Center returns the center of the box.
func (b StageBox) Center() Point { return Point{X: b.CenterX, Y: b.CenterY} }

// ToStage maps a normalized point to stage pixels.
func (g Geometry) ToStage(p pose.Point) Point {
	return Point{
		X: g.X + (p.X-0.5)*g.Width,
		Y: g.Y + (p.Y-0.5)*g.Height,
	}
}

// FromStage maps a stage point back to normalized coordinates.
func (g Geometry) FromStage(p Point) pose.Point {
	return pose.Point{
		X: (p.X-g.X)/math.Max(1, g.Width) + 0.5,
		Y: (p.Y-g.Y)/math.Max(1, g.Height) + 0.5,
	}
}

// BoxToStage maps a normalized box to stage pixels.
func (g Geometry) BoxToStage(b pose.Box) StageBox {
	c := g.ToStage(b.Center())
	return StageBox{
		CenterX: c.X,
		CenterY: c.Y,
		Width:   b.W * g.Width,
		Height:  b.H * g.Height,
	}
}

// Offset converts a normalized offset to stage pixels.
func (g Geometry) Offset(nx, ny float64) Point {
	return Point{X: nx * g.Width, Y: ny * g.Height}
}

// Bounds returns the top-left corner and size of the mannequin.
func (g Geometry) Bounds() (x, y, w, h float64) {
	return g.X - g.Width/2, g.Y - g.Height/2, g.Width, g.Height
}

// CommitToFit converts a sprite's stage state back into a fit transform.
// anchor is the anchor center in stage pixels and baseScale the base fit
// scale used at layout time. The sign of scaleX (mirroring) is dropped.
func CommitToFit(pos Point, scaleX, rotationRad float64, anchor Point, baseScale float64, g Geometry) fit.Transform {
	return fit.Transform{
		X:           (pos.X - anchor.X) / math.Max(1, g.Width),
		Y:           (pos.Y - anchor.Y) / math.Max(1, g.Height),
		Scale:       math.Abs(scaleX) / math.Max(1e-6, baseScale),
		RotationDeg: rotationRad * 180 / math.Pi,
	}
}

// NormalizeLegacy converts offsets saved in pixels by older clients into
// normalized units. Offsets whose magnitude does not exceed
// [LegacyThreshold] are assumed normalized and returned unchanged.
func NormalizeLegacy(x, y float64, g Geometry) (nx, ny float64) {
	if math.Max(math.Abs(x), math.Abs(y)) <= LegacyThreshold {
		return x, y
	}
	return x / math.Max(1, g.Width), y / math.Max(1, g.Height)
}

// FitMannequin centers a mannequin texture in a container. The mannequin
// takes 80% of the container height, shrunk if needed so its width does
// not exceed 90% of the container width. The aspect ratio is preserved.
func FitMannequin(container, texture Size) (Geometry, error) {
	if texture.Empty() {
		return Geometry{}, errors.New(errors.ErrCodeGeometry, "mannequin texture has zero size")
	}
	if container.Empty() {
		return Geometry{}, errors.New(errors.ErrCodeGeometry, "container has zero size")
	}
	h := HeightFraction * container.H
	w := h * texture.W / texture.H
	if maxW := WidthFraction * container.W; w > maxW {
		w = maxW
		h = w * texture.H / texture.W
	}
	return Geometry{
		X:      container.W / 2,
		Y:      container.H / 2,
		Width:  w,
		Height: h,
	}, nil
}

// Radians converts degrees to radians.
func Radians(deg float64) float64 { return deg * math.Pi / 180 }
