// Package studio runs an interactive try-on session: a scene, a gizmo
// controller and fit persistence wired together.
//
// Every event runs under one lock, which plays the part of a UI thread.
// Saved fits are fetched in the background after [Open] returns; until
// they arrive the outfit is shown with default fits. Results of a fetch
// that completes after [Studio.Close], or after [Studio.SetItems] replaced
// the items, are discarded.
//
// A committed gesture becomes a local override of the item's fit, so later
// layouts keep the operator's placement, and marks the item dirty. With
// [Config.AutoSave] the fit is saved in the background. A failed save
// keeps the visual state and is reported on [Studio.Failures]; it is not
// retried.
package studio

import (
	"context"
	"io"
	"slices"
	"sync"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/tryon/pkg/coords"
	"github.com/matzehuels/tryon/pkg/errors"
	"github.com/matzehuels/tryon/pkg/fit"
	"github.com/matzehuels/tryon/pkg/fitstore"
	"github.com/matzehuels/tryon/pkg/gizmo"
	"github.com/matzehuels/tryon/pkg/outfit"
	"github.com/matzehuels/tryon/pkg/pose"
	"github.com/matzehuels/tryon/pkg/render"
	"github.com/matzehuels/tryon/pkg/scene"
	"github.com/matzehuels/tryon/pkg/texture"
)

// failureBuffer is the capacity of the Failures channel. Failures beyond
// it are logged and dropped.
const failureBuffer = 16

// Config configures a session.
type Config struct {
	// Outfit is the mannequin and garments to edit. Required.
	Outfit *outfit.Outfit
	// Width and Height are the stage size in pixels.
	Width, Height float64

	Poses    *pose.Registry
	Textures *texture.Loader
	// Fits loads and saves fits. Nil disables persistence.
	Fits fitstore.Adapter
	// FitPose is the pose fits are stored under (front_v1).
	FitPose string

	Editable bool
	AutoSave bool
	// HandlePx is the gizmo handle size (16).
	HandlePx float64

	DebugAnchors bool
	DebugGrid    bool

	Logger *log.Logger

	// OnChange is called after any event that changed the view, outside
	// the session lock.
	OnChange func()
	// OnSaveError is called for every failed save, outside the session
	// lock.
	OnSaveError func(SaveError)
}

// SaveError reports a failed save.
type SaveError struct {
	ItemID string
	Fit    fit.Transform
	Err    error
}

func (e SaveError) Error() string { return "save " + e.ItemID + ": " + e.Err.Error() }

func (e SaveError) Unwrap() error { return e.Err }

// Snapshot is an immutable view of the session for renderers.
type Snapshot struct {
	Frame    render.Frame
	Geometry coords.Geometry
	State    gizmo.State
	Selected string // item id of the selection, empty when none
	Dirty    []string
	Loading  bool // saved fits not yet applied
	Skipped  []scene.Skip
}

// Studio is an editing session. It is safe for concurrent use.
type Studio struct {
	cfg    Config
	logger *log.Logger

	mu        sync.Mutex
	sc        *scene.Scene
	gz        *gizmo.Controller
	items     []outfit.Item
	stored    map[string]fit.Transform
	overrides map[string]fit.Transform
	dirty     map[string]fit.Transform
	skipped   []scene.Skip
	gen       int
	loading   bool
	stale     bool // stored fits arrived during a gesture
	closed    bool

	ctx      context.Context
	cancel   context.CancelFunc
	wg       sync.WaitGroup
	failures chan SaveError
}

// Open creates a session. The mannequin texture must load; otherwise no
// session is created. Garments are laid out with default fits right away
// and saved fits are fetched in the background.
func Open(ctx context.Context, cfg Config) (*Studio, error) {
	if cfg.Outfit == nil {
		return nil, errors.New(errors.ErrCodeInvalidInput, "outfit is required")
	}
	if cfg.Outfit.Pose == "" {
		cfg.Outfit.Pose = pose.CanonicalID
	}
	if err := cfg.Outfit.Validate(); err != nil {
		return nil, err
	}
	if cfg.Outfit.Mannequin == "" {
		return nil, errors.New(errors.ErrCodeInvalidInput, "outfit has no mannequin image")
	}
	if cfg.Poses == nil {
		cfg.Poses = pose.DefaultRegistry()
	}
	if cfg.Textures == nil {
		cfg.Textures = texture.NewLoader(texture.DirResolver{Root: "."})
	}
	if cfg.FitPose == "" {
		cfg.FitPose = pose.CanonicalID
	}
	if cfg.Logger == nil {
		cfg.Logger = log.NewWithOptions(io.Discard, log.Options{})
	}

	anchors, err := cfg.Poses.Get(cfg.Outfit.Pose)
	if err != nil {
		return nil, err
	}
	failed := cfg.Textures.Preload(ctx, cfg.Outfit.ImageRefs())
	if err := failed[cfg.Outfit.Mannequin]; err != nil {
		return nil, errors.Wrap(errors.ErrCodeGeometry, err, "mannequin")
	}
	for ref, err := range failed {
		cfg.Logger.Warn("texture failed to load", "ref", ref, "error", err)
	}
	mw, mh, _ := cfg.Textures.Size(cfg.Outfit.Mannequin)

	sc, err := scene.New(anchors, coords.Size{W: float64(mw), H: float64(mh)}, scene.Options{
		Container:    coords.Size{W: cfg.Width, H: cfg.Height},
		MannequinRef: cfg.Outfit.Mannequin,
		Occluders:    cfg.Outfit.Occluders,
		DebugAnchors: cfg.DebugAnchors,
		DebugGrid:    cfg.DebugGrid,
	})
	if err != nil {
		return nil, err
	}

	// Background work outlives the caller's context; Close cancels it.
	bg, cancel := context.WithCancel(context.WithoutCancel(ctx))
	s := &Studio{
		cfg:       cfg,
		logger:    cfg.Logger,
		sc:        sc,
		items:     slices.Clone(cfg.Outfit.Items),
		overrides: make(map[string]fit.Transform),
		dirty:     make(map[string]fit.Transform),
		ctx:       bg,
		cancel:    cancel,
		failures:  make(chan SaveError, failureBuffer),
	}
	s.gz = gizmo.New(sc, gizmo.Options{
		Editable: cfg.Editable,
		HandlePx: cfg.HandlePx,
		OnCommit: s.onCommit,
	})

	s.mu.Lock()
	s.layout()
	s.fetch()
	s.mu.Unlock()
	return s, nil
}

// Failures returns the channel failed saves are reported on. It is closed
// by Close.
func (s *Studio) Failures() <-chan SaveError { return s.failures }

// PointerDown handles a press at stage point p.
func (s *Studio) PointerDown(p coords.Point) error {
	var err error
	s.run(func() { err = s.gz.PointerDown(p) })
	return err
}

// PointerMove handles pointer motion.
func (s *Studio) PointerMove(p coords.Point) {
	s.run(func() { s.gz.PointerMove(p) })
}

// PointerUp ends the active gesture.
func (s *Studio) PointerUp(p coords.Point) {
	s.run(func() { s.gz.PointerUp(p) })
}

// PointerUpOutside ends the active gesture released outside the stage.
func (s *Studio) PointerUpOutside(p coords.Point) {
	s.run(func() { s.gz.PointerUpOutside(p) })
}

// Wheel scales the selection. It reports whether anything changed.
func (s *Studio) Wheel(p coords.Point, deltaY float64) bool {
	var ok bool
	s.run(func() { ok = s.gz.Wheel(p, deltaY) })
	return ok
}

// Select selects the primary sprite of itemID.
func (s *Studio) Select(itemID string) error {
	var err error
	s.run(func() {
		hs := s.sc.Handles(itemID)
		if len(hs) == 0 {
			err = errors.New(errors.ErrCodeNotFound, "item %q is not on the stage", itemID)
			return
		}
		err = s.gz.Select(hs[0])
	})
	return err
}

// Deselect clears the selection.
func (s *Studio) Deselect() {
	s.run(func() { s.gz.Deselect() })
}

// Resize changes the stage size. The lock is held until the new geometry
// and layout are in place.
func (s *Studio) Resize(w, h float64) error {
	var err error
	s.run(func() {
		if err = s.sc.Resize(w, h); err != nil {
			return
		}
		s.layout()
		s.gz.Relayout()
	})
	return err
}

// SetItems replaces the garments. Their textures are loaded before the
// layout changes, and saved fits of the new items are fetched in the
// background. A fetch still in flight for the previous items is ignored.
func (s *Studio) SetItems(ctx context.Context, items []outfit.Item) error {
	look := outfit.Outfit{Pose: s.cfg.Outfit.Pose, Mannequin: s.cfg.Outfit.Mannequin, Items: items}
	if err := look.Validate(); err != nil {
		return err
	}
	var refs []string
	for _, it := range items {
		if it.Image != "" {
			refs = append(refs, it.Image)
		}
	}
	for ref, err := range s.cfg.Textures.Preload(ctx, refs) {
		s.logger.Warn("texture failed to load", "ref", ref, "error", err)
	}

	var err error
	s.run(func() {
		if s.closed {
			err = errors.New(errors.ErrCodeInvalidInput, "studio is closed")
			return
		}
		s.items = slices.Clone(items)
		s.gen++
		s.layout()
		s.gz.Relayout()
		s.fetch()
	})
	return err
}

// Fit returns the fit an item is currently shown with.
func (s *Studio) Fit(itemID string) (fit.Transform, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if t, ok := s.overrides[itemID]; ok {
		return t, true
	}
	return s.sc.Fit(itemID)
}

// Dirty returns the ids of items with unsaved changes, sorted.
func (s *Studio) Dirty() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.dirtyIDs()
}

// Snapshot returns an immutable view of the session.
func (s *Studio) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	ov := s.gz.Overlay()
	snap := Snapshot{
		Frame:    render.FromScene(s.sc, &ov),
		Geometry: s.sc.Geometry(),
		State:    s.gz.State(),
		Dirty:    s.dirtyIDs(),
		Loading:  s.loading,
		Skipped:  slices.Clone(s.skipped),
	}
	if h, ok := s.gz.Selected(); ok {
		if sp, ok := s.sc.Sprite(h); ok {
			snap.Selected = sp.ItemID
		}
	}
	return snap
}

// SaveAll saves every dirty fit and waits for the results. Failures are
// reported like background failures; the first one is returned.
func (s *Studio) SaveAll(ctx context.Context) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return errors.New(errors.ErrCodeInvalidInput, "studio is closed")
	}
	if s.cfg.Fits == nil {
		s.mu.Unlock()
		return nil
	}
	pending := make(map[string]fit.Transform, len(s.dirty))
	for id, t := range s.dirty {
		pending[id] = t
	}
	s.mu.Unlock()

	var first error
	for _, id := range sortedKeys(pending) {
		if err := s.save(ctx, id, pending[id]); err != nil && first == nil {
			first = err
		}
	}
	return first
}

// Close ends the session. It waits for background fetches and saves;
// their results are ignored. Close is idempotent.
func (s *Studio) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	s.gz.Deselect()
	s.mu.Unlock()

	s.cancel()
	s.wg.Wait()

	s.mu.Lock()
	close(s.failures)
	s.mu.Unlock()
	return nil
}

// run executes fn under the session lock and notifies OnChange.
func (s *Studio) run(fn func()) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	fn()
	if s.stale && s.gz.Gesture() == nil {
		s.stale = false
		s.layout()
		s.gz.Relayout()
	}
	s.mu.Unlock()
	s.changed()
}

func (s *Studio) changed() {
	if s.cfg.OnChange != nil {
		s.cfg.OnChange()
	}
}

// layout lays the items out with the effective fits. Callers hold mu.
func (s *Studio) layout() {
	fits := make(map[string]fit.Transform, len(s.stored)+len(s.overrides))
	for id, t := range s.stored {
		fits[id] = t
	}
	for id, t := range s.overrides {
		fits[id] = t
	}
	look := outfit.Outfit{Items: s.items}
	rep := s.sc.Layout(look.SceneItems(fits), s.cfg.Textures)
	s.skipped = rep.Skipped
	for _, sk := range rep.Skipped {
		s.logger.Warn("skipped item", "item", sk.ItemID, "reason", sk.Reason)
	}
	for _, id := range rep.Defaulted {
		s.logger.Warn("invalid fit replaced by default", "item", id)
	}
}

// fetch starts loading the saved fits of the current items. Callers hold
// mu.
func (s *Studio) fetch() {
	if s.cfg.Fits == nil || len(s.items) == 0 {
		s.loading = false
		return
	}
	gen := s.gen
	ids := (&outfit.Outfit{Items: s.items}).ItemIDs()
	s.loading = true

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		fits, err := s.cfg.Fits.FetchFits(s.ctx, s.cfg.FitPose, ids)

		s.mu.Lock()
		if s.closed || gen != s.gen {
			s.mu.Unlock()
			return
		}
		s.loading = false
		if err != nil {
			s.logger.Warn("fetch fits failed, keeping default fits", "error", err)
			s.mu.Unlock()
			s.changed()
			return
		}
		s.logger.Debug("fetched fits", "requested", len(ids), "found", len(fits))
		s.stored = fits
		if s.gz.Gesture() != nil {
			s.stale = true
		} else {
			s.layout()
			s.gz.Relayout()
		}
		s.mu.Unlock()
		s.changed()
	}()
}

// onCommit runs inside a gizmo event, with mu held.
func (s *Studio) onCommit(itemID string, t fit.Transform) {
	s.overrides[itemID] = t
	s.dirty[itemID] = t
	s.logger.Debug("committed fit", "item", itemID, "x", t.X, "y", t.Y, "scale", t.Scale, "rotation", t.RotationDeg)
	if !s.cfg.AutoSave || s.cfg.Fits == nil {
		return
	}
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		_ = s.save(s.ctx, itemID, t)
	}()
}

// save persists one fit and clears the dirty mark if the fit was not
// changed again meanwhile.
func (s *Studio) save(ctx context.Context, itemID string, t fit.Transform) error {
	_, err := s.cfg.Fits.SaveFit(ctx, itemID, s.cfg.FitPose, t)

	s.mu.Lock()
	closed := s.closed
	if err == nil {
		if cur, ok := s.dirty[itemID]; ok && sameFit(cur, t) {
			delete(s.dirty, itemID)
		}
	}
	s.mu.Unlock()

	if err != nil {
		if closed {
			return err
		}
		s.logger.Error("save fit failed", "item", itemID, "error", err)
		s.report(SaveError{ItemID: itemID, Fit: t, Err: err})
		return err
	}
	s.logger.Debug("saved fit", "item", itemID)
	s.changed()
	return nil
}

func (s *Studio) report(e SaveError) {
	if s.cfg.OnSaveError != nil {
		s.cfg.OnSaveError(e)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	select {
	case s.failures <- e:
	default:
		s.logger.Warn("failure channel full, dropping report", "item", e.ItemID)
	}
}

func (s *Studio) dirtyIDs() []string {
	return sortedKeys(s.dirty)
}

func sortedKeys(m map[string]fit.Transform) []string {
	ids := make([]string, 0, len(m))
	for id := range m {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	return ids
}

func sameFit(a, b fit.Transform) bool {
	return a.X == b.X && a.Y == b.Y && a.Scale == b.Scale && a.RotationDeg == b.RotationDeg
}
