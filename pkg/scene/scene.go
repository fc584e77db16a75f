// Package scene lays garments out on a mannequin pose.
//
// A [Scene] owns every sprite: the mannequin, one sprite per garment (two
// for footwear) and any occluder overlays. Sprites live in an arena and are
// referenced by a stable integer [Handle]; a side table maps garment item ids
// to their handles. Handles survive re-layouts for as long as the item stays
// in the outfit, so an interactive controller can keep a selection across a
// resize.
//
// Layout is a pure function of the pose, the mannequin geometry, the item
// list and the texture sizes. [Scene.Resize] recomputes the geometry and
// re-runs the last layout before returning.
//
// A Scene is not safe for concurrent use.
package scene

import (
	"math"
	"slices"

	"github.com/matzehuels/tryon/pkg/coords"
	"github.com/matzehuels/tryon/pkg/errors"
	"github.com/matzehuels/tryon/pkg/fit"
	"github.com/matzehuels/tryon/pkg/pose"
)

// Handle identifies a sprite. The zero Handle is never assigned.
type Handle int

// Kind distinguishes sprite roles.
type Kind int

const (
	KindMannequin Kind = iota
	KindGarment
	KindOccluder
)

func (k Kind) String() string {
	switch k {
	case KindMannequin:
		return "mannequin"
	case KindGarment:
		return "garment"
	case KindOccluder:
		return "occluder"
	}
	return "unknown"
}

// MarshalText encodes the kind by name.
func (k Kind) MarshalText() ([]byte, error) { return []byte(k.String()), nil }

// UnmarshalText decodes a kind name.
func (k *Kind) UnmarshalText(b []byte) error {
	switch string(b) {
	case "mannequin":
		*k = KindMannequin
	case "garment":
		*k = KindGarment
	case "occluder":
		*k = KindOccluder
	default:
		return errors.New(errors.ErrCodeInvalidFormat, "unknown sprite kind %q", b)
	}
	return nil
}

// Item is a garment to place.
type Item struct {
	ID       string
	ImageRef string
	Category pose.Category
	Fit      *fit.Transform // nil places the garment on its anchor
	Z        *int           // nil uses the pose default for the category
}

// TextureSource reports decoded texture sizes. ok is false when the
// texture failed to load.
type TextureSource interface {
	Size(ref string) (w, h int, ok bool)
}

// Options configures a scene.
type Options struct {
	// Container is the initial stage size in pixels.
	Container coords.Size
	// MannequinRef is the image reference of the mannequin, for renderers.
	MannequinRef string
	// Occluders are image references drawn over the mannequin at the pose's
	// occluder z-order. They are sized like the mannequin.
	Occluders []string

	DebugAnchors bool
	DebugGrid    bool
	// GridStep is the normalized spacing of debug grid lines (default 0.1).
	GridStep float64
}

// Sprite is a placed image. Values returned by a Scene are copies.
type Sprite struct {
	Handle   Handle        `json:"handle"`
	Kind     Kind          `json:"kind"`
	ItemID   string        `json:"itemId,omitempty"`
	ImageRef string        `json:"image,omitempty"`
	Category pose.Category `json:"layerCategory,omitempty"`
	Texture  coords.Size   `json:"texture"`

	// Stage transform, about the sprite center.
	Pos      coords.Point `json:"pos"`
	ScaleX   float64      `json:"scaleX"` // negative when mirrored
	ScaleY   float64      `json:"scaleY"`
	Rotation float64      `json:"rotation"` // radians, clockwise
	Z        int          `json:"z"`

	// Layout state used to commit edits back into a fit.
	Anchor    coords.Point `json:"anchor"`
	BaseScale float64      `json:"baseScale"`
	Mirrored  bool         `json:"mirrored,omitempty"`
	Twin      Handle       `json:"twin,omitempty"` // mirrored partner for footwear, zero otherwise

	order int
}

// Interactive reports whether the sprite can be selected.
func (s Sprite) Interactive() bool { return s.Kind == KindGarment }

// Size returns the unrotated stage size of the sprite.
func (s Sprite) Size() coords.Size {
	return coords.Size{W: s.Texture.W * math.Abs(s.ScaleX), H: s.Texture.H * math.Abs(s.ScaleY)}
}

// Rect is an axis-aligned rectangle in stage pixels.
type Rect struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	W float64 `json:"w"`
	H float64 `json:"h"`
}

// Contains reports whether p lies inside r (edges included).
func (r Rect) Contains(p coords.Point) bool {
	return p.X >= r.X && p.X <= r.X+r.W && p.Y >= r.Y && p.Y <= r.Y+r.H
}

// Center returns the center of r.
func (r Rect) Center() coords.Point { return coords.Point{X: r.X + r.W/2, Y: r.Y + r.H/2} }

// Scene is a laid-out outfit on one pose.
type Scene struct {
	anchors   *pose.Anchors
	mannequin coords.Size
	container coords.Size
	geom      coords.Geometry
	opts      Options

	sprites   map[Handle]*Sprite
	byItem    map[string][]Handle
	fits      map[string]fit.Transform
	occluders []Handle
	base      Handle
	next      Handle
	order     int

	items []Item
	tex   TextureSource
}

// New creates a scene for the given pose and mannequin texture size. A
// zero-size mannequin or container is a geometry failure and no scene is
// created.
func New(anchors *pose.Anchors, mannequin coords.Size, opts Options) (*Scene, error) {
	if anchors == nil {
		return nil, errors.New(errors.ErrCodeInvalidPose, "nil pose")
	}
	geom, err := coords.FitMannequin(opts.Container, mannequin)
	if err != nil {
		return nil, err
	}
	if opts.GridStep <= 0 {
		opts.GridStep = 0.1
	}
	s := &Scene{
		anchors:   anchors,
		mannequin: mannequin,
		container: opts.Container,
		geom:      geom,
		opts:      opts,
		sprites:   make(map[Handle]*Sprite),
		byItem:    make(map[string][]Handle),
		fits:      make(map[string]fit.Transform),
	}
	s.base = s.alloc(KindMannequin)
	s.sprites[s.base].ImageRef = opts.MannequinRef
	s.sprites[s.base].Texture = mannequin
	s.placeMannequin()
	return s, nil
}

// Pose returns the scene's pose.
func (s *Scene) Pose() *pose.Anchors { return s.anchors }

// Geometry returns the current mannequin placement.
func (s *Scene) Geometry() coords.Geometry { return s.geom }

// Container returns the current stage size.
func (s *Scene) Container() coords.Size { return s.container }

// Resize recomputes the mannequin geometry for a new container size and
// re-runs the last layout. On error the scene is left unchanged.
func (s *Scene) Resize(w, h float64) error {
	container := coords.Size{W: w, H: h}
	geom, err := coords.FitMannequin(container, s.mannequin)
	if err != nil {
		return err
	}
	s.container = container
	s.geom = geom
	s.placeMannequin()
	if s.tex != nil {
		s.Layout(s.items, s.tex)
	}
	return nil
}

// Sprite returns a copy of the sprite with handle h.
func (s *Scene) Sprite(h Handle) (Sprite, bool) {
	sp, ok := s.sprites[h]
	if !ok {
		return Sprite{}, false
	}
	return *sp, true
}

// Handles returns the sprite handles of an item: one, or left and right
// for footwear.
func (s *Scene) Handles(itemID string) []Handle {
	return slices.Clone(s.byItem[itemID])
}

// State returns the primary sprite of an item.
func (s *Scene) State(itemID string) (Sprite, bool) {
	hs := s.byItem[itemID]
	if len(hs) == 0 {
		return Sprite{}, false
	}
	return s.Sprite(hs[0])
}

// Sprites returns all sprites in draw order: ascending z, then insertion.
func (s *Scene) Sprites() []Sprite {
	out := make([]Sprite, 0, len(s.sprites))
	for _, sp := range s.sprites {
		out = append(out, *sp)
	}
	slices.SortFunc(out, func(a, b Sprite) int {
		if a.Z != b.Z {
			return a.Z - b.Z
		}
		return a.order - b.order
	})
	return out
}

// Bounds returns the axis-aligned bounds of the rotated sprite.
func (s *Scene) Bounds(h Handle) (Rect, bool) {
	sp, ok := s.sprites[h]
	if !ok {
		return Rect{}, false
	}
	return bounds(sp), true
}

func bounds(sp *Sprite) Rect {
	size := sp.Size()
	hw, hh := size.W/2, size.H/2
	sin, cos := math.Sincos(sp.Rotation)
	ex := math.Abs(cos)*hw + math.Abs(sin)*hh
	ey := math.Abs(sin)*hw + math.Abs(cos)*hh
	return Rect{X: sp.Pos.X - ex, Y: sp.Pos.Y - ey, W: 2 * ex, H: 2 * ey}
}

// HitTest returns the topmost interactive sprite under p. The test is
// against the rotated sprite rectangle, not its bounds.
func (s *Scene) HitTest(p coords.Point) (Handle, bool) {
	sprites := s.Sprites()
	for i := len(sprites) - 1; i >= 0; i-- {
		sp := sprites[i]
		if sp.Interactive() && contains(&sp, p) {
			return sp.Handle, true
		}
	}
	return 0, false
}

func contains(sp *Sprite, p coords.Point) bool {
	d := p.Sub(sp.Pos)
	sin, cos := math.Sincos(-sp.Rotation)
	lx := d.X*cos - d.Y*sin
	ly := d.X*sin + d.Y*cos
	size := sp.Size()
	return math.Abs(lx) <= size.W/2 && math.Abs(ly) <= size.H/2
}

// SetTransform moves, scales and rotates a garment sprite. scale is the
// stage scale magnitude; the mirror sign of the sprite is kept. A mirrored
// twin follows with the same offset from its own anchor, the same
// fit-relative scale and the same rotation.
func (s *Scene) SetTransform(h Handle, pos coords.Point, scale, rotation float64) error {
	sp, ok := s.sprites[h]
	if !ok || !sp.Interactive() {
		return errors.New(errors.ErrCodeNotFound, "no garment sprite %d", h)
	}
	sp.Pos = pos
	sp.setScale(scale)
	sp.Rotation = rotation

	if twin, ok := s.sprites[sp.Twin]; ok {
		twin.Pos = twin.Anchor.Add(pos.Sub(sp.Anchor))
		twin.setScale(scale / math.Max(1e-6, sp.BaseScale) * twin.BaseScale)
		twin.Rotation = rotation
	}
	return nil
}

func (sp *Sprite) setScale(mag float64) {
	mag = math.Abs(mag)
	sp.ScaleY = mag
	if sp.Mirrored {
		sp.ScaleX = -mag
	} else {
		sp.ScaleX = mag
	}
}

// Commit converts the current state of a garment sprite into a fit. The
// mesh of the item's current fit is carried over unchanged.
func (s *Scene) Commit(h Handle) (string, fit.Transform, error) {
	sp, ok := s.sprites[h]
	if !ok || !sp.Interactive() {
		return "", fit.Transform{}, errors.New(errors.ErrCodeNotFound, "no garment sprite %d", h)
	}
	t := coords.CommitToFit(sp.Pos, sp.ScaleX, sp.Rotation, sp.Anchor, sp.BaseScale, s.geom)
	t.Mesh = s.fits[sp.ItemID].Mesh
	return sp.ItemID, t, nil
}

// Fit returns the fit the item was last laid out with.
func (s *Scene) Fit(itemID string) (fit.Transform, bool) {
	t, ok := s.fits[itemID]
	return t, ok
}

func (s *Scene) alloc(kind Kind) Handle {
	s.next++
	s.order++
	h := s.next
	s.sprites[h] = &Sprite{Handle: h, Kind: kind, order: s.order}
	return h
}

func (s *Scene) release(h Handle) {
	delete(s.sprites, h)
}

func (s *Scene) placeMannequin() {
	m := s.sprites[s.base]
	scale := s.geom.Width / s.mannequin.W
	m.Pos = coords.Point{X: s.geom.X, Y: s.geom.Y}
	m.ScaleX, m.ScaleY = scale, scale
	m.Anchor = m.Pos
	m.BaseScale = scale
	m.Z = 0
}
