package render

import (
	"bytes"
	"image"
	"image/color"
	"image/png"
	"math"

	"github.com/HugoSmits86/nativewebp"
	"golang.org/x/image/draw"
	"golang.org/x/image/math/f64"

	"github.com/matzehuels/tryon/pkg/coords"
	"github.com/matzehuels/tryon/pkg/errors"
	"github.com/matzehuels/tryon/pkg/scene"
)

// MaxRasterSide bounds the pixel size of raster output.
const MaxRasterSide = 8192

// RenderImage composites f onto a new image of the stage size.
func RenderImage(f Frame, src ImageSource, opts ...Option) (*image.NRGBA, error) {
	w, h := int(math.Ceil(f.Width)), int(math.Ceil(f.Height))
	if w <= 0 || h <= 0 || w > MaxRasterSide || h > MaxRasterSide {
		return nil, errors.New(errors.ErrCodeGeometry, "cannot rasterize a %dx%d stage", w, h)
	}
	r := newRenderer(opts...)

	dst := image.NewNRGBA(image.Rect(0, 0, w, h))
	if r.background != nil {
		draw.Draw(dst, dst.Bounds(), image.NewUniform(r.background), image.Point{}, draw.Src)
	}
	for _, sp := range f.Sprites {
		img, ok := src.Image(sp.ImageRef)
		if !ok {
			continue
		}
		draw.CatmullRom.Transform(dst, spriteAffine(sp), img, img.Bounds(), draw.Over, nil)
	}
	if f.Debug != nil {
		drawDebug(dst, f.Debug)
	}
	if f.Overlay != nil {
		drawOverlay(dst, f)
	}
	return dst, nil
}

// RenderPNG renders f as PNG.
func RenderPNG(f Frame, src ImageSource, opts ...Option) ([]byte, error) {
	img, err := RenderImage(f, src, opts...)
	if err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, errors.Wrap(errors.ErrCodeInternal, err, "encode png")
	}
	return buf.Bytes(), nil
}

// RenderWebP renders f as lossless WebP.
func RenderWebP(f Frame, src ImageSource, opts ...Option) ([]byte, error) {
	img, err := RenderImage(f, src, opts...)
	if err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	if err := nativewebp.Encode(&buf, img, nil); err != nil {
		return nil, errors.Wrap(errors.ErrCodeInternal, err, "encode webp")
	}
	return buf.Bytes(), nil
}

// spriteAffine maps texture pixels to stage pixels: texture center to
// sprite position, then scale, then clockwise rotation.
func spriteAffine(sp scene.Sprite) f64.Aff3 {
	sin, cos := math.Sincos(sp.Rotation)
	a, b := cos*sp.ScaleX, -sin*sp.ScaleY
	c, d := sin*sp.ScaleX, cos*sp.ScaleY
	cx, cy := sp.Texture.W/2, sp.Texture.H/2
	return f64.Aff3{
		a, b, sp.Pos.X - (a*cx + b*cy),
		c, d, sp.Pos.Y - (c*cx + d*cy),
	}
}

func drawOverlay(dst *image.NRGBA, f Frame) {
	o := f.Overlay
	b := o.Box
	corners := []coords.Point{{X: b.X, Y: b.Y}, {X: b.X + b.W, Y: b.Y}, {X: b.X + b.W, Y: b.Y + b.H}, {X: b.X, Y: b.Y + b.H}}
	for i := range corners {
		drawLine(dst, corners[i], corners[(i+1)%4], overlayColor)
	}
	drawLine(dst, coords.Point{X: b.X + b.W/2, Y: b.Y}, o.RotateHandle, overlayColor)
	fillCircle(dst, o.RotateHandle, o.HandleRadius, overlayColor)
	fillCircle(dst, o.ScaleHandle, o.HandleRadius, overlayColor)
}

func drawDebug(dst *image.NRGBA, d *scene.DebugOverlay) {
	for _, l := range d.Grid {
		drawLine(dst, l.From, l.To, gridColor)
	}
	for _, a := range d.Anchors {
		bx := a.Box
		x0, y0 := bx.CenterX-bx.Width/2, bx.CenterY-bx.Height/2
		x1, y1 := x0+bx.Width, y0+bx.Height
		drawLine(dst, coords.Point{X: x0, Y: y0}, coords.Point{X: x1, Y: y0}, anchorColor)
		drawLine(dst, coords.Point{X: x1, Y: y0}, coords.Point{X: x1, Y: y1}, anchorColor)
		drawLine(dst, coords.Point{X: x1, Y: y1}, coords.Point{X: x0, Y: y1}, anchorColor)
		drawLine(dst, coords.Point{X: x0, Y: y1}, coords.Point{X: x0, Y: y0}, anchorColor)
	}
	if d.Hem != nil {
		drawLine(dst, d.Hem.From, d.Hem.To, anchorColor)
	}
	if d.Neck != nil {
		fillCircle(dst, *d.Neck, 4, neckColor)
	}
}

func drawLine(dst *image.NRGBA, from, to coords.Point, c color.NRGBA) {
	steps := int(math.Ceil(math.Max(math.Abs(to.X-from.X), math.Abs(to.Y-from.Y))))
	for i := 0; i <= steps; i++ {
		t := 0.0
		if steps > 0 {
			t = float64(i) / float64(steps)
		}
		blend(dst, int(math.Round(from.X+(to.X-from.X)*t)), int(math.Round(from.Y+(to.Y-from.Y)*t)), c)
	}
}

func fillCircle(dst *image.NRGBA, p coords.Point, r float64, c color.NRGBA) {
	for y := int(p.Y - r); y <= int(p.Y+r); y++ {
		for x := int(p.X - r); x <= int(p.X+r); x++ {
			dx, dy := float64(x)-p.X, float64(y)-p.Y
			if dx*dx+dy*dy <= r*r {
				blend(dst, x, y, c)
			}
		}
	}
}

func blend(dst *image.NRGBA, x, y int, c color.NRGBA) {
	if !(image.Point{X: x, Y: y}).In(dst.Rect) {
		return
	}
	i := dst.PixOffset(x, y)
	a := float64(c.A) / 255
	da := float64(dst.Pix[i+3]) / 255
	outA := a + da*(1-a)
	if outA == 0 {
		return
	}
	mix := func(s, d uint8) uint8 {
		return uint8((float64(s)*a + float64(d)*da*(1-a)) / outA)
	}
	dst.Pix[i] = mix(c.R, dst.Pix[i])
	dst.Pix[i+1] = mix(c.G, dst.Pix[i+1])
	dst.Pix[i+2] = mix(c.B, dst.Pix[i+2])
	dst.Pix[i+3] = uint8(outA*255 + 0.5)
}
