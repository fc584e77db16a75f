// Package pipeline runs outfit previews for the CLI and the API server:
// fetch saved fits, lay the garments out on the posed mannequin, and render
// the layout.
//
//	runner := pipeline.NewRunner(cache, nil, logger)
//	result, err := runner.Execute(ctx, pipeline.Options{
//	    Outfit:  look,
//	    Formats: []string{"svg", "png"},
//	})
//	svg := result.Artifacts["svg"]
//
// Layouts and artifacts are cached by content: the layout key covers the
// outfit, the stored fits and the stage; the artifact key covers the
// serialized layout and the render options.
//
// A failed fit fetch never fails a run. Items fall back to their default
// fits and a warning is logged. A mannequin that cannot be loaded fails the
// layout.
package pipeline

import (
	"image/color"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/tryon/pkg/cache"
	"github.com/matzehuels/tryon/pkg/errors"
	"github.com/matzehuels/tryon/pkg/fitstore"
	"github.com/matzehuels/tryon/pkg/outfit"
	"github.com/matzehuels/tryon/pkg/pose"
)

// Stage defaults shared by the CLI flags and the API.
const (
	DefaultWidth  = 800.0
	DefaultHeight = 1000.0
	MaxStageSide  = 8192.0
)

// Cache lifetimes.
const (
	LayoutTTL   = 24 * time.Hour
	ArtifactTTL = 7 * 24 * time.Hour
)

// Output formats.
const (
	FormatSVG  = "svg"
	FormatPNG  = "png"
	FormatWebP = "webp"
	FormatJSON = "json"
)

var contentTypes = map[string]string{
	FormatSVG:  "image/svg+xml",
	FormatPNG:  "image/png",
	FormatWebP: "image/webp",
	FormatJSON: "application/json",
}

// ContentType returns the MIME type of an output format, or "" when the
// format is unknown.
func ContentType(format string) string { return contentTypes[format] }

// Options configures a run. The serialized fields are the API's preview
// request body.
type Options struct {
	Outfit       *outfit.Outfit `json:"outfit"`
	Width        float64        `json:"width,omitempty"`
	Height       float64        `json:"height,omitempty"`
	Select       string         `json:"select,omitempty"` // item whose gizmo is drawn
	DebugAnchors bool           `json:"debug_anchors,omitempty"`
	DebugGrid    bool           `json:"debug_grid,omitempty"`

	Formats    []string `json:"formats,omitempty"`
	Embed      bool     `json:"embed,omitempty"`      // inline images in SVG output
	Background string   `json:"background,omitempty"` // #rrggbb, transparent when empty
	Refresh    bool     `json:"refresh,omitempty"`    // bypass the cache

	Logger *log.Logger `json:"-"`
	// Fits supplies saved fits. Nil lays out with the outfit's own fits.
	Fits fitstore.Adapter `json:"-"`
	// FitPose is the pose fits are stored under. Defaults to the canonical
	// pose.
	FitPose string `json:"-"`

	validated bool
}

// Result is the output of [Runner.Execute].
type Result struct {
	Layout     Layout
	LayoutHash string            // SHA-256 of the serialized layout
	Artifacts  map[string][]byte // keyed by format
	Stats      Stats
	CacheInfo  CacheInfo
}

// Stats counts items and times each stage.
type Stats struct {
	Items      int
	Placed     int
	Skipped    int
	StoredFits int
	FitsTime   time.Duration
	LayoutTime time.Duration
	RenderTime time.Duration
}

// CacheInfo reports which stages were served from cache. RenderHit is set
// only when every requested format was cached.
type CacheInfo struct {
	LayoutHit bool
	RenderHit bool
}

// ValidateFormat rejects unknown output formats. Formats are lower case.
func ValidateFormat(format string) error {
	if _, ok := contentTypes[format]; !ok {
		return errors.New(errors.ErrCodeInvalidInput, "invalid format: %q (must be one of: svg, png, webp, json)", format)
	}
	return nil
}

// ValidateFormats validates every format in turn.
func ValidateFormats(formats []string) error {
	for _, f := range formats {
		if err := ValidateFormat(f); err != nil {
			return err
		}
	}
	return nil
}

// ParseColor parses a #rgb or #rrggbb color.
func ParseColor(s string) (color.NRGBA, error) {
	hex := strings.TrimPrefix(s, "#")
	if len(hex) == 3 {
		hex = string([]byte{hex[0], hex[0], hex[1], hex[1], hex[2], hex[2]})
	}
	if len(hex) != 6 || !strings.HasPrefix(s, "#") {
		return color.NRGBA{}, errors.New(errors.ErrCodeInvalidInput, "invalid color %q (want #rrggbb)", s)
	}
	v, err := strconv.ParseUint(hex, 16, 32)
	if err != nil {
		return color.NRGBA{}, errors.New(errors.ErrCodeInvalidInput, "invalid color %q (want #rrggbb)", s)
	}
	return color.NRGBA{R: uint8(v >> 16), G: uint8(v >> 8), B: uint8(v), A: 0xff}, nil
}

// ValidateAndSetDefaults validates o for a full run and fills defaults.
// Repeated calls are no-ops.
func (o *Options) ValidateAndSetDefaults() error {
	if o.validated {
		return nil
	}
	if err := o.ValidateForLayout(); err != nil {
		return err
	}
	if err := o.ValidateForRender(); err != nil {
		return err
	}
	o.validated = true
	return nil
}

// ValidateForLayout checks the outfit and stage, and sets layout defaults.
func (o *Options) ValidateForLayout() error {
	if o.Outfit == nil {
		return errors.New(errors.ErrCodeInvalidInput, "outfit is required")
	}
	if o.Outfit.Pose == "" {
		o.Outfit.Pose = pose.CanonicalID
	}
	if err := o.Outfit.Validate(); err != nil {
		return err
	}
	if o.Outfit.Mannequin == "" {
		return errors.New(errors.ErrCodeInvalidInput, "outfit has no mannequin image")
	}
	o.SetLayoutDefaults()
	if o.Width < 0 || o.Height < 0 || o.Width > MaxStageSide || o.Height > MaxStageSide {
		return errors.New(errors.ErrCodeInvalidInput, "stage %vx%v out of range (max %v)", o.Width, o.Height, MaxStageSide)
	}
	return nil
}

// SetLayoutDefaults fills the stage size, the fit pose and a discarding
// logger.
func (o *Options) SetLayoutDefaults() {
	if o.Width == 0 {
		o.Width = DefaultWidth
	}
	if o.Height == 0 {
		o.Height = DefaultHeight
	}
	if o.FitPose == "" {
		o.FitPose = pose.CanonicalID
	}
	if o.Logger == nil {
		o.Logger = log.NewWithOptions(io.Discard, log.Options{})
	}
}

// SetRenderDefaults selects SVG when no format was requested.
func (o *Options) SetRenderDefaults() {
	if len(o.Formats) == 0 {
		o.Formats = []string{FormatSVG}
	}
	if o.Logger == nil {
		o.Logger = log.NewWithOptions(io.Discard, log.Options{})
	}
}

// ValidateForRender checks formats and the background color.
func (o *Options) ValidateForRender() error {
	o.SetRenderDefaults()
	if err := ValidateFormats(o.Formats); err != nil {
		return err
	}
	if o.Background != "" {
		if _, err := ParseColor(o.Background); err != nil {
			return err
		}
	}
	return nil
}

// NeedsImages reports whether rendering needs decoded garment images.
func (o *Options) NeedsImages() bool {
	for _, f := range o.Formats {
		if f == FormatPNG || f == FormatWebP || (f == FormatSVG && o.Embed) {
			return true
		}
	}
	return false
}

// LayoutKeyOpts returns the stage inputs of the layout cache key.
func (o *Options) LayoutKeyOpts() cache.LayoutKeyOpts {
	return cache.LayoutKeyOpts{
		PoseID: o.Outfit.Pose,
		Width:  o.Width,
		Height: o.Height,
	}
}

// ArtifactKeyOpts returns the render inputs of the artifact cache key.
func (o *Options) ArtifactKeyOpts(format string) cache.ArtifactKeyOpts {
	return cache.ArtifactKeyOpts{
		Format:       format,
		Gizmo:        o.Select,
		DebugAnchors: o.DebugAnchors,
		DebugGrid:    o.DebugGrid,
		Embed:        o.Embed,
		Background:   o.Background,
	}
}
