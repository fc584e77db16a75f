package render

import (
	"image"
	"image/color"

	"github.com/matzehuels/tryon/pkg/gizmo"
	"github.com/matzehuels/tryon/pkg/scene"
)

// Frame is a renderable snapshot of a scene.
type Frame struct {
	Width, Height float64
	Sprites       []scene.Sprite // draw order
	Overlay       *gizmo.Overlay
	Debug         *scene.DebugOverlay
}

// FromScene snapshots sc. A nil or invisible overlay is omitted, as is an
// empty debug overlay.
func FromScene(sc *scene.Scene, ov *gizmo.Overlay) Frame {
	c := sc.Container()
	f := Frame{Width: c.W, Height: c.H, Sprites: sc.Sprites()}
	if ov != nil && ov.Visible {
		o := *ov
		f.Overlay = &o
	}
	if d := sc.Debug(); len(d.Anchors) > 0 || len(d.Grid) > 0 {
		f.Debug = &d
	}
	return f
}

// ImageSource returns decoded images by reference.
type ImageSource interface {
	Image(ref string) (*image.NRGBA, bool)
}

// Option configures rendering.
type Option func(*renderer)

type renderer struct {
	background color.Color
	embed      ImageSource
	href       func(ref string) string
	ids        bool
}

// WithBackground fills the stage before drawing. The default is
// transparent.
func WithBackground(c color.Color) Option { return func(r *renderer) { r.background = c } }

// WithEmbed inlines sprite images as PNG data URIs in SVG output.
func WithEmbed(src ImageSource) Option { return func(r *renderer) { r.embed = src } }

// WithHref maps image references to SVG hrefs.
func WithHref(fn func(ref string) string) Option { return func(r *renderer) { r.href = fn } }

// WithIDs tags SVG sprite elements with their item ids and handles.
func WithIDs() Option { return func(r *renderer) { r.ids = true } }

func newRenderer(opts ...Option) renderer {
	r := renderer{href: func(ref string) string { return ref }}
	for _, opt := range opts {
		opt(&r)
	}
	return r
}

var (
	overlayColor = color.NRGBA{R: 0x25, G: 0x63, B: 0xeb, A: 0xff}
	anchorColor  = color.NRGBA{R: 0xef, G: 0x44, B: 0x44, A: 0xc0}
	gridColor    = color.NRGBA{R: 0x94, G: 0xa3, B: 0xb8, A: 0x80}
	neckColor    = color.NRGBA{R: 0x16, G: 0xa3, B: 0x4a, A: 0xff}
)
