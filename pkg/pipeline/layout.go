package pipeline

import (
	"context"
	"encoding/json"
	"time"

	"github.com/matzehuels/tryon/pkg/cache"
	"github.com/matzehuels/tryon/pkg/coords"
	"github.com/matzehuels/tryon/pkg/errors"
	"github.com/matzehuels/tryon/pkg/fit"
	"github.com/matzehuels/tryon/pkg/gizmo"
	"github.com/matzehuels/tryon/pkg/observability"
	"github.com/matzehuels/tryon/pkg/render"
	"github.com/matzehuels/tryon/pkg/scene"
	"github.com/matzehuels/tryon/pkg/texture"
)

// Layout is the serializable result of a layout pass.
type Layout struct {
	PoseID    string              `json:"poseId"`
	Stage     coords.Size         `json:"stage"`
	Geometry  coords.Geometry     `json:"geometry"`
	Sprites   []scene.Sprite      `json:"sprites"`
	Overlay   *gizmo.Overlay      `json:"overlay,omitempty"`
	Debug     *scene.DebugOverlay `json:"debug,omitempty"`
	Skipped   []scene.Skip        `json:"skipped,omitempty"`
	Defaulted []string            `json:"defaulted,omitempty"`
}

// NewLayout snapshots a laid-out scene.
func NewLayout(sc *scene.Scene, rep scene.Report, ov *gizmo.Overlay) Layout {
	f := render.FromScene(sc, ov)
	return Layout{
		PoseID:    sc.Pose().ID,
		Stage:     sc.Container(),
		Geometry:  sc.Geometry(),
		Sprites:   f.Sprites,
		Overlay:   f.Overlay,
		Debug:     f.Debug,
		Skipped:   rep.Skipped,
		Defaulted: rep.Defaulted,
	}
}

// Frame returns the renderable frame of the layout.
func (l Layout) Frame() render.Frame {
	return render.Frame{
		Width:   l.Stage.W,
		Height:  l.Stage.H,
		Sprites: l.Sprites,
		Overlay: l.Overlay,
		Debug:   l.Debug,
	}
}

// ImageRefs returns the distinct image references drawn by the layout.
func (l Layout) ImageRefs() []string {
	seen := make(map[string]bool)
	var refs []string
	for _, sp := range l.Sprites {
		if sp.ImageRef != "" && !seen[sp.ImageRef] {
			seen[sp.ImageRef] = true
			refs = append(refs, sp.ImageRef)
		}
	}
	return refs
}

// Placed returns the number of garment items on the stage.
func (l Layout) Placed() int {
	items := make(map[string]bool)
	for _, sp := range l.Sprites {
		if sp.Kind == scene.KindGarment {
			items[sp.ItemID] = true
		}
	}
	return len(items)
}

// BuildScene loads the outfit's textures and lays it out. stored fits
// override the fits written in the outfit. The mannequin image must load;
// garments that fail to load are skipped and reported.
func BuildScene(ctx context.Context, tex *texture.Loader, anchors poseSource, opts Options, stored map[string]fit.Transform) (*scene.Scene, scene.Report, error) {
	o := opts.Outfit
	a, err := anchors.Get(o.Pose)
	if err != nil {
		return nil, scene.Report{}, err
	}

	start := time.Now()
	failed := tex.Preload(ctx, o.ImageRefs())
	if err := failed[o.Mannequin]; err != nil {
		return nil, scene.Report{}, errors.Wrap(errors.ErrCodeGeometry, err, "mannequin")
	}
	for ref, err := range failed {
		opts.Logger.Warn("texture failed to load", "ref", ref, "error", err)
	}

	mw, mh, _ := tex.Size(o.Mannequin)
	sc, err := scene.New(a, coords.Size{W: float64(mw), H: float64(mh)}, scene.Options{
		Container:    coords.Size{W: opts.Width, H: opts.Height},
		MannequinRef: o.Mannequin,
		Occluders:    o.Occluders,
		DebugAnchors: opts.DebugAnchors,
		DebugGrid:    opts.DebugGrid,
	})
	if err != nil {
		return nil, scene.Report{}, err
	}
	rep := sc.Layout(o.SceneItems(stored), tex)
	observability.Layout().OnLayout(ctx, o.Pose, rep.Placed, len(rep.Skipped), time.Since(start))
	return sc, rep, nil
}

// selectionOverlay returns the gizmo of itemID, or nil when the item is
// not on the stage.
func selectionOverlay(sc *scene.Scene, itemID string) *gizmo.Overlay {
	if itemID == "" {
		return nil
	}
	hs := sc.Handles(itemID)
	if len(hs) == 0 {
		return nil
	}
	c := gizmo.New(sc, gizmo.Options{Editable: true})
	if err := c.Select(hs[0]); err != nil {
		return nil
	}
	ov := c.Overlay()
	return &ov
}

// layoutInputsHash hashes everything a layout depends on besides the pose
// and stage size.
func layoutInputsHash(opts Options, stored map[string]fit.Transform) string {
	data, _ := json.Marshal(struct {
		Outfit       any                      `json:"outfit"`
		Fits         map[string]fit.Transform `json:"fits"`
		Meshes       map[string]int           `json:"meshes"`
		Select       string                   `json:"select"`
		DebugAnchors bool                     `json:"debugAnchors"`
		DebugGrid    bool                     `json:"debugGrid"`
	}{opts.Outfit, stored, meshSizes(stored), opts.Select, opts.DebugAnchors, opts.DebugGrid})
	return cache.Hash(data)
}

func meshSizes(fits map[string]fit.Transform) map[string]int {
	out := make(map[string]int)
	for id, t := range fits {
		if len(t.Mesh) > 0 {
			out[id] = len(t.Mesh)
		}
	}
	return out
}
