package pipeline

import (
	"context"
	"encoding/json"
	"image/color"
	"time"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/tryon/pkg/cache"
	"github.com/matzehuels/tryon/pkg/errors"
	"github.com/matzehuels/tryon/pkg/fit"
	"github.com/matzehuels/tryon/pkg/observability"
	"github.com/matzehuels/tryon/pkg/pose"
	"github.com/matzehuels/tryon/pkg/render"
	"github.com/matzehuels/tryon/pkg/texture"
)

type poseSource interface {
	Get(id string) (*pose.Anchors, error)
}

// Runner executes runs against a shared cache, pose registry and texture
// loader. It keeps no per-run state and is safe for concurrent use.
type Runner struct {
	Cache    cache.Cache
	Keyer    cache.Keyer
	Logger   *log.Logger
	Poses    *pose.Registry
	Textures *texture.Loader
}

// NewRunner returns a runner on c. A nil c disables caching and a nil
// keyer selects [cache.DefaultKeyer]. Poses come from the built-in
// registry and textures resolve against the working directory until the
// fields are replaced.
func NewRunner(c cache.Cache, keyer cache.Keyer, logger *log.Logger) *Runner {
	if keyer == nil {
		keyer = cache.NewDefaultKeyer()
	}
	if c == nil {
		c = cache.NewNullCache()
	}
	if logger == nil {
		logger = log.Default()
	}
	return &Runner{
		Cache:    c,
		Keyer:    keyer,
		Logger:   logger,
		Poses:    pose.DefaultRegistry(),
		Textures: texture.NewLoader(texture.DirResolver{Root: "."}, texture.WithCache(c, keyer)),
	}
}

// Execute fetches fits, lays out and renders.
func (r *Runner) Execute(ctx context.Context, opts Options) (*Result, error) {
	if err := opts.ValidateAndSetDefaults(); err != nil {
		return nil, err
	}
	r.applyLogger(&opts)

	result := &Result{Artifacts: make(map[string][]byte)}
	result.Stats.Items = len(opts.Outfit.Items)

	start := time.Now()
	stored := r.FetchFits(ctx, opts)
	result.Stats.FitsTime = time.Since(start)
	result.Stats.StoredFits = len(stored)

	start = time.Now()
	layout, layoutHit, err := r.LayoutWithCacheInfo(ctx, opts, stored)
	if err != nil {
		return nil, err
	}
	result.Layout = layout
	result.Stats.LayoutTime = time.Since(start)
	result.Stats.Placed = layout.Placed()
	result.Stats.Skipped = len(layout.Skipped)
	result.CacheInfo.LayoutHit = layoutHit

	r.Logger.Info("laid out", "pose", layout.PoseID, "placed", result.Stats.Placed,
		"skipped", result.Stats.Skipped, "cached", layoutHit, "took", result.Stats.LayoutTime)

	start = time.Now()
	artifacts, hash, renderHit, err := r.RenderWithCacheInfo(ctx, layout, opts)
	if err != nil {
		return nil, err
	}
	result.Artifacts = artifacts
	result.LayoutHash = hash
	result.Stats.RenderTime = time.Since(start)
	result.CacheInfo.RenderHit = renderHit

	r.Logger.Info("rendered", "formats", opts.Formats, "cached", renderHit, "took", result.Stats.RenderTime)

	return result, nil
}

// FetchFits returns the saved fits of the outfit's items. Failures are
// logged and yield no fits, so the outfit is laid out with defaults.
func (r *Runner) FetchFits(ctx context.Context, opts Options) map[string]fit.Transform {
	if opts.Fits == nil || opts.Outfit == nil || len(opts.Outfit.Items) == 0 {
		return nil
	}
	fits, err := opts.Fits.FetchFits(ctx, opts.FitPose, opts.Outfit.ItemIDs())
	if err != nil {
		r.Logger.Warn("fetch fits failed, using default fits", "error", err)
		return nil
	}
	r.Logger.Debug("fetched fits", "requested", len(opts.Outfit.Items), "found", len(fits))
	return fits
}

// LayoutWithCacheInfo lays out the outfit against stored fits and reports
// whether the layout was cached. An undecodable cache entry is recomputed.
func (r *Runner) LayoutWithCacheInfo(ctx context.Context, opts Options, stored map[string]fit.Transform) (Layout, bool, error) {
	if err := opts.ValidateForLayout(); err != nil {
		return Layout{}, false, err
	}
	r.applyLogger(&opts)

	key := r.Keyer.LayoutKey(layoutInputsHash(opts, stored), opts.LayoutKeyOpts())
	if !opts.Refresh {
		var cached Layout
		if data, hit, err := r.Cache.Get(ctx, key); err == nil && hit && json.Unmarshal(data, &cached) == nil {
			return cached, true, nil
		}
	}

	sc, rep, err := BuildScene(ctx, r.Textures, r.Poses, opts, stored)
	if err != nil {
		return Layout{}, false, err
	}
	for _, s := range rep.Skipped {
		r.Logger.Warn("skipped item", "item", s.ItemID, "reason", s.Reason)
	}
	for _, id := range rep.Defaulted {
		r.Logger.Warn("invalid fit replaced by default", "item", id)
	}

	ov := selectionOverlay(sc, opts.Select)
	if opts.Select != "" && ov == nil {
		r.Logger.Warn("selected item is not on the stage", "item", opts.Select)
	}
	layout := NewLayout(sc, rep, ov)

	if data, err := json.Marshal(layout); err == nil {
		_ = r.Cache.Set(ctx, key, data, LayoutTTL)
	}
	return layout, false, nil
}

// Layout is [Runner.LayoutWithCacheInfo] without the hit flag.
func (r *Runner) Layout(ctx context.Context, opts Options, stored map[string]fit.Transform) (Layout, error) {
	l, _, err := r.LayoutWithCacheInfo(ctx, opts, stored)
	return l, err
}

// RenderWithCacheInfo renders every requested format. It returns the
// artifacts, the layout hash and whether all of them came from cache; a
// single miss re-renders every format.
func (r *Runner) RenderWithCacheInfo(ctx context.Context, layout Layout, opts Options) (map[string][]byte, string, bool, error) {
	if err := opts.ValidateForRender(); err != nil {
		return nil, "", false, err
	}
	r.applyLogger(&opts)

	layoutData, err := json.Marshal(layout)
	if err != nil {
		return nil, "", false, errors.Wrap(errors.ErrCodeInternal, err, "serialize layout for cache key")
	}
	layoutHash := cache.Hash(layoutData)

	if !opts.Refresh {
		if cached, ok := r.cachedArtifacts(ctx, layoutHash, opts); ok {
			return cached, layoutHash, true, nil
		}
	}

	if opts.NeedsImages() {
		for ref, err := range r.Textures.Preload(ctx, layout.ImageRefs()) {
			r.Logger.Warn("texture failed to load", "ref", ref, "error", err)
		}
	}

	rendered, err := RenderLayout(ctx, layout, r.Textures, opts)
	if err != nil {
		return nil, "", false, err
	}

	for format, data := range rendered {
		_ = r.Cache.Set(ctx, r.Keyer.ArtifactKey(layoutHash, opts.ArtifactKeyOpts(format)), data, ArtifactTTL)
	}
	return rendered, layoutHash, false, nil
}

func (r *Runner) cachedArtifacts(ctx context.Context, layoutHash string, opts Options) (map[string][]byte, bool) {
	out := make(map[string][]byte, len(opts.Formats))
	for _, format := range opts.Formats {
		data, hit, err := r.Cache.Get(ctx, r.Keyer.ArtifactKey(layoutHash, opts.ArtifactKeyOpts(format)))
		if err != nil || !hit {
			return nil, false
		}
		out[format] = data
	}
	return out, true
}

// Render is [Runner.RenderWithCacheInfo] without the hash and hit flag.
func (r *Runner) Render(ctx context.Context, layout Layout, opts Options) (map[string][]byte, error) {
	artifacts, _, _, err := r.RenderWithCacheInfo(ctx, layout, opts)
	return artifacts, err
}

// RenderLayout renders layout in each of opts.Formats without caching.
// images supplies decoded garments for raster formats and embedded SVG.
func RenderLayout(ctx context.Context, layout Layout, images render.ImageSource, opts Options) (map[string][]byte, error) {
	var ropts []render.Option
	if opts.Background != "" {
		c, err := ParseColor(opts.Background)
		if err != nil {
			return nil, err
		}
		ropts = append(ropts, render.WithBackground(color.Color(c)))
	}

	frame := layout.Frame()
	artifacts := make(map[string][]byte, len(opts.Formats))
	for _, format := range opts.Formats {
		start := time.Now()
		var (
			data []byte
			err  error
		)
		switch format {
		case FormatSVG:
			svgOpts := append([]render.Option{render.WithIDs()}, ropts...)
			if opts.Embed {
				svgOpts = append(svgOpts, render.WithEmbed(images))
			}
			data = render.RenderSVG(frame, svgOpts...)
		case FormatPNG:
			data, err = render.RenderPNG(frame, images, ropts...)
		case FormatWebP:
			data, err = render.RenderWebP(frame, images, ropts...)
		case FormatJSON:
			data, err = json.MarshalIndent(layout, "", "  ")
		default:
			err = ValidateFormat(format)
		}

		observability.Layout().OnRender(ctx, format, len(data), time.Since(start), err)
		if err != nil {
			code := errors.GetCode(err)
			if code == "" {
				code = errors.ErrCodeInternal
			}
			return nil, errors.Wrap(code, err, "render %s", format)
		}
		artifacts[format] = data
	}
	return artifacts, nil
}

// Close closes the cache.
func (r *Runner) Close() error {
	if r.Cache != nil {
		return r.Cache.Close()
	}
	return nil
}

func (r *Runner) applyLogger(opts *Options) {
	if opts.Logger == nil {
		opts.Logger = r.Logger
	}
}
