package scene

import (
	"math"
	"slices"

	"github.com/matzehuels/tryon/pkg/coords"
	"github.com/matzehuels/tryon/pkg/fit"
	"github.com/matzehuels/tryon/pkg/pose"
)

// Skip reasons reported by [Scene.Layout].
const (
	ReasonNoImage   = "no image"
	ReasonTexture   = "texture unavailable"
	ReasonDuplicate = "duplicate item id"
)

// Skip records an item that was not placed.
type Skip struct {
	ItemID string `json:"itemId"`
	Reason string `json:"reason"`
}

// Report summarizes a layout pass.
type Report struct {
	Placed  int
	Skipped []Skip
	// Defaulted lists items whose fit was invalid and was replaced by the
	// identity fit.
	Defaulted []string
}

// Layout places items on the mannequin, replacing the previous layout.
// Sprites of items that are no longer present, or that cannot be placed
// in this pass, are released. Handles of items that remain are kept.
func (s *Scene) Layout(items []Item, tex TextureSource) Report {
	s.items = slices.Clone(items)
	s.tex = tex

	var rep Report
	placed := make(map[string]bool, len(items))
	for _, it := range items {
		if placed[it.ID] {
			rep.Skipped = append(rep.Skipped, Skip{ItemID: it.ID, Reason: ReasonDuplicate})
			continue
		}
		if it.ImageRef == "" {
			rep.Skipped = append(rep.Skipped, Skip{ItemID: it.ID, Reason: ReasonNoImage})
			continue
		}
		w, h, ok := tex.Size(it.ImageRef)
		if !ok || w <= 0 || h <= 0 {
			rep.Skipped = append(rep.Skipped, Skip{ItemID: it.ID, Reason: ReasonTexture})
			continue
		}
		texture := coords.Size{W: float64(w), H: float64(h)}

		f := fit.Identity()
		if it.Fit != nil {
			if err := it.Fit.Validate(); err != nil {
				rep.Defaulted = append(rep.Defaulted, it.ID)
			} else {
				f = *it.Fit
			}
		}
		f.X, f.Y = coords.NormalizeLegacy(f.X, f.Y, s.geom)

		z := s.anchors.DefaultZ(it.Category)
		if it.Z != nil {
			z = *it.Z
		}

		if it.Category == pose.Footwear {
			left, right := s.anchors.ShoeBoxes()
			hs := s.ensure(it.ID, 2)
			s.place(hs[0], it, texture, left, f, z, false)
			s.place(hs[1], it, texture, right, f, z, true)
			s.sprites[hs[0]].Twin = hs[1]
			s.sprites[hs[1]].Twin = hs[0]
		} else {
			box, _ := s.anchors.Resolve(it.Category)
			hs := s.ensure(it.ID, 1)
			s.place(hs[0], it, texture, box, f, z, false)
		}
		s.fits[it.ID] = f
		placed[it.ID] = true
		rep.Placed++
	}

	for id, hs := range s.byItem {
		if placed[id] {
			continue
		}
		for _, h := range hs {
			s.release(h)
		}
		delete(s.byItem, id)
		delete(s.fits, id)
	}

	s.placeOccluders(tex)
	return rep
}

// ensure returns n handles for an item, reusing existing ones when the
// count matches.
func (s *Scene) ensure(itemID string, n int) []Handle {
	hs := s.byItem[itemID]
	if len(hs) == n {
		return hs
	}
	for _, h := range hs {
		s.release(h)
	}
	hs = make([]Handle, n)
	for i := range hs {
		hs[i] = s.alloc(KindGarment)
	}
	s.byItem[itemID] = hs
	return hs
}

func (s *Scene) place(h Handle, it Item, texture coords.Size, box pose.Box, f fit.Transform, z int, mirrored bool) {
	sb := s.geom.BoxToStage(box)
	base := math.Min(sb.Width/texture.W, sb.Height/texture.H)

	sp := s.sprites[h]
	sp.ItemID = it.ID
	sp.ImageRef = it.ImageRef
	sp.Category = it.Category
	sp.Texture = texture
	sp.Anchor = sb.Center()
	sp.BaseScale = base
	sp.Mirrored = mirrored
	sp.Twin = 0
	sp.Pos = sp.Anchor.Add(s.geom.Offset(f.X, f.Y))
	sp.setScale(f.Scale * base)
	sp.Rotation = coords.Radians(f.RotationDeg)
	sp.Z = z
}

func (s *Scene) placeOccluders(tex TextureSource) {
	if len(s.occluders) != len(s.opts.Occluders) {
		for _, h := range s.occluders {
			s.release(h)
		}
		s.occluders = make([]Handle, len(s.opts.Occluders))
	}
	for i, ref := range s.opts.Occluders {
		w, h, ok := tex.Size(ref)
		if !ok || w <= 0 || h <= 0 {
			if s.occluders[i] != 0 {
				s.release(s.occluders[i])
				s.occluders[i] = 0
			}
			continue
		}
		if s.occluders[i] == 0 {
			s.occluders[i] = s.alloc(KindOccluder)
		}
		sp := s.sprites[s.occluders[i]]
		sp.ImageRef = ref
		sp.Texture = coords.Size{W: float64(w), H: float64(h)}
		scale := s.geom.Width / sp.Texture.W
		sp.Pos = coords.Point{X: s.geom.X, Y: s.geom.Y}
		sp.Anchor = sp.Pos
		sp.ScaleX, sp.ScaleY = scale, scale
		sp.BaseScale = scale
		sp.Z = s.anchors.OccluderZ
	}
}
