package pose

import (
	"maps"
	"math"

	"github.com/matzehuels/tryon/pkg/errors"
)

// Region names an anchor box on the mannequin.
type Region string

// Anchor regions every pose must define.
const (
	Chest     Region = "chest"
	Waist     Region = "waist"
	Hip       Region = "hip"
	Head      Region = "head"
	LeftShoe  Region = "left_shoe"
	RightShoe Region = "right_shoe"
)

// Regions lists the required regions.
var Regions = []Region{Chest, Waist, Hip, Head, LeftShoe, RightShoe}

const (
	// UnknownZ is the z-order used for categories a pose does not list.
	UnknownZ = 500
	// DefaultOccluderZ places occluders above garments and below footwear.
	DefaultOccluderZ = 550
)

// Point is a position normalized to the mannequin bounding box, where
// (0,0) is the top-left corner and (1,1) the bottom-right corner.
type Point struct {
	X float64 `json:"x" toml:"x"`
	Y float64 `json:"y" toml:"y"`
}

// Box is a normalized axis-aligned rectangle; (X,Y) is its top-left corner.
type Box struct {
	X float64 `json:"x" toml:"x"`
	Y float64 `json:"y" toml:"y"`
	W float64 `json:"w" toml:"w"`
	H float64 `json:"h" toml:"h"`
}

// Center returns the normalized center of the box.
func (b Box) Center() Point {
	return Point{X: b.X + b.W/2, Y: b.Y + b.H/2}
}

// Contains reports whether p lies inside the box (edges included).
func (b Box) Contains(p Point) bool {
	return p.X >= b.X && p.X <= b.X+b.W && p.Y >= b.Y && p.Y <= b.Y+b.H
}

// HemLine is the horizontal hem reference of the pose.
type HemLine struct {
	X1 float64 `json:"x1" toml:"x1"`
	Y  float64 `json:"y" toml:"y"`
	X2 float64 `json:"x2" toml:"x2"`
}

// Anchors is the anchor set of one mannequin pose. Anchors registered in a
// [Registry] are shared and must be treated as read-only.
type Anchors struct {
	ID        string           `json:"id"`
	Neck      Point            `json:"neck"`
	Hem       HemLine          `json:"hem"`
	Boxes     map[Region]Box   `json:"boxes"`
	Z         map[Category]int `json:"z"`
	OccluderZ int              `json:"occluderZ"`
}

// Resolve maps a layer category to its anchor box. Tops and outerwear
// attach to the chest, bottoms to the hip, headwear to the head and
// accessories to the waist. Footwear has no single anchor and reports
// false; use [Anchors.ShoeBoxes]. Unknown categories fall back to the chest.
func (a *Anchors) Resolve(c Category) (Box, bool) {
	switch c {
	case Footwear:
		return Box{}, false
	case BaseTop, MidTop, Outerwear:
		return a.Boxes[Chest], true
	case BaseBottom, MidBottom:
		return a.Boxes[Hip], true
	case Headwear:
		return a.Boxes[Head], true
	case Accessory:
		return a.Boxes[Waist], true
	default:
		return a.Boxes[Chest], true
	}
}

// DefaultZ returns the stacking order for a category. Higher draws on top.
func (a *Anchors) DefaultZ(c Category) int {
	if z, ok := a.Z[c]; ok {
		return z
	}
	return UnknownZ
}

// ShoeBoxes returns the left and right shoe boxes used for footwear.
func (a *Anchors) ShoeBoxes() (left, right Box) {
	return a.Boxes[LeftShoe], a.Boxes[RightShoe]
}

// Validate checks that every required region exists inside the unit square
// with a positive size and that every category has a z-order.
func (a *Anchors) Validate() error {
	if err := errors.ValidatePoseID(a.ID); err != nil {
		return err
	}
	if !inUnit(a.Neck.X) || !inUnit(a.Neck.Y) {
		return errors.New(errors.ErrCodeInvalidPose, "pose %s: neck point outside mannequin bounds", a.ID)
	}
	if !inUnit(a.Hem.X1) || !inUnit(a.Hem.X2) || !inUnit(a.Hem.Y) || a.Hem.X1 > a.Hem.X2 {
		return errors.New(errors.ErrCodeInvalidPose, "pose %s: invalid hem line", a.ID)
	}
	for _, r := range Regions {
		b, ok := a.Boxes[r]
		if !ok {
			return errors.New(errors.ErrCodeInvalidPose, "pose %s: missing region %s", a.ID, r)
		}
		if !(b.W > 0) || !(b.H > 0) {
			return errors.New(errors.ErrCodeInvalidPose, "pose %s: region %s has non-positive size", a.ID, r)
		}
		if !inUnit(b.X) || !inUnit(b.Y) || !inUnit(b.X+b.W) || !inUnit(b.Y+b.H) {
			return errors.New(errors.ErrCodeInvalidPose, "pose %s: region %s outside mannequin bounds", a.ID, r)
		}
	}
	for _, c := range Categories {
		if _, ok := a.Z[c]; !ok {
			return errors.New(errors.ErrCodeInvalidPose, "pose %s: no z-order for %s", a.ID, c)
		}
	}
	return nil
}

func (a *Anchors) clone() *Anchors {
	c := *a
	c.Boxes = maps.Clone(a.Boxes)
	c.Z = maps.Clone(a.Z)
	if c.OccluderZ == 0 {
		c.OccluderZ = DefaultOccluderZ
	}
	return &c
}

func inUnit(v float64) bool {
	return !math.IsNaN(v) && v >= 0 && v <= 1
}

// FrontV1 returns the canonical front-facing pose.
func FrontV1() *Anchors {
	return &Anchors{
		ID:   CanonicalID,
		Neck: Point{X: 0.5, Y: 0.20},
		Hem:  HemLine{X1: 0.30, Y: 0.82, X2: 0.70},
		Boxes: map[Region]Box{
			Chest:     {X: 0.35, Y: 0.22, W: 0.30, H: 0.16},
			Waist:     {X: 0.35, Y: 0.38, W: 0.30, H: 0.10},
			Hip:       {X: 0.34, Y: 0.46, W: 0.32, H: 0.12},
			Head:      {X: 0.42, Y: 0.05, W: 0.16, H: 0.12},
			LeftShoe:  {X: 0.42, Y: 0.86, W: 0.10, H: 0.07},
			RightShoe: {X: 0.52, Y: 0.86, W: 0.10, H: 0.07},
		},
		Z: map[Category]int{
			BaseTop:    200,
			BaseBottom: 250,
			MidBottom:  275,
			MidTop:     300,
			Outerwear:  400,
			Accessory:  500,
			Footwear:   600,
			Headwear:   650,
		},
		OccluderZ: DefaultOccluderZ,
	}
}
