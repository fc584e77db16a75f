package render

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"html"
	"image/color"
	"image/png"
	"math"

	"github.com/matzehuels/tryon/pkg/scene"
)

// RenderSVG renders f as a standalone SVG document.
func RenderSVG(f Frame, opts ...Option) []byte {
	r := newRenderer(opts...)

	var buf bytes.Buffer
	fmt.Fprintf(&buf, `<svg xmlns="http://www.w3.org/2000/svg" viewBox="0 0 %.1f %.1f" width="%.0f" height="%.0f">`+"\n",
		f.Width, f.Height, f.Width, f.Height)

	if r.background != nil {
		fmt.Fprintf(&buf, `  <rect width="100%%" height="100%%" fill="%s"/>`+"\n", hexColor(r.background))
	}
	for _, sp := range f.Sprites {
		r.renderSprite(&buf, sp)
	}
	if f.Debug != nil {
		renderDebugSVG(&buf, f.Debug)
	}
	if f.Overlay != nil {
		renderOverlaySVG(&buf, f)
	}

	buf.WriteString("</svg>\n")
	return buf.Bytes()
}

func (r *renderer) renderSprite(buf *bytes.Buffer, sp scene.Sprite) {
	href := r.imageHref(sp.ImageRef)
	if href == "" {
		return
	}
	attrs := fmt.Sprintf(` class="sprite %s"`, sp.Kind)
	if r.ids {
		attrs += fmt.Sprintf(` id="sprite-%d" data-item="%s"`, sp.Handle, html.EscapeString(sp.ItemID))
	}
	fmt.Fprintf(buf, `  <image%s href="%s" width="%.2f" height="%.2f" transform="translate(%.3f %.3f) rotate(%.4f) scale(%.6f %.6f) translate(%.2f %.2f)"/>`+"\n",
		attrs, href, sp.Texture.W, sp.Texture.H,
		sp.Pos.X, sp.Pos.Y, sp.Rotation*180/math.Pi, sp.ScaleX, sp.ScaleY,
		-sp.Texture.W/2, -sp.Texture.H/2)
}

func (r *renderer) imageHref(ref string) string {
	if ref == "" {
		return ""
	}
	if r.embed != nil {
		if img, ok := r.embed.Image(ref); ok {
			var b bytes.Buffer
			if err := png.Encode(&b, img); err == nil {
				return "data:image/png;base64," + base64.StdEncoding.EncodeToString(b.Bytes())
			}
		}
	}
	return html.EscapeString(r.href(ref))
}

func renderOverlaySVG(buf *bytes.Buffer, f Frame) {
	o := f.Overlay
	c := hexColor(overlayColor)
	buf.WriteString(`  <g class="gizmo">` + "\n")
	fmt.Fprintf(buf, `    <rect x="%.2f" y="%.2f" width="%.2f" height="%.2f" fill="none" stroke="%s" stroke-width="2" stroke-dasharray="6 4"/>`+"\n",
		o.Box.X, o.Box.Y, o.Box.W, o.Box.H, c)
	top := o.Box.Center()
	top.Y = o.Box.Y
	fmt.Fprintf(buf, `    <line x1="%.2f" y1="%.2f" x2="%.2f" y2="%.2f" stroke="%s" stroke-width="1.5"/>`+"\n",
		top.X, top.Y, o.RotateHandle.X, o.RotateHandle.Y, c)
	fmt.Fprintf(buf, `    <circle class="rotate-handle" cx="%.2f" cy="%.2f" r="%.2f" fill="white" stroke="%s" stroke-width="2"/>`+"\n",
		o.RotateHandle.X, o.RotateHandle.Y, o.HandleRadius, c)
	fmt.Fprintf(buf, `    <rect class="scale-handle" x="%.2f" y="%.2f" width="%.2f" height="%.2f" fill="white" stroke="%s" stroke-width="2"/>`+"\n",
		o.ScaleHandle.X-o.HandleRadius, o.ScaleHandle.Y-o.HandleRadius, 2*o.HandleRadius, 2*o.HandleRadius, c)
	buf.WriteString("  </g>\n")
}

func renderDebugSVG(buf *bytes.Buffer, d *scene.DebugOverlay) {
	buf.WriteString(`  <g class="debug">` + "\n")
	for _, l := range d.Grid {
		fmt.Fprintf(buf, `    <line x1="%.2f" y1="%.2f" x2="%.2f" y2="%.2f" stroke="%s" stroke-width="1"/>`+"\n",
			l.From.X, l.From.Y, l.To.X, l.To.Y, hexColor(gridColor))
	}
	for _, a := range d.Anchors {
		b := a.Box
		fmt.Fprintf(buf, `    <rect data-region="%s" x="%.2f" y="%.2f" width="%.2f" height="%.2f" fill="none" stroke="%s" stroke-width="2"/>`+"\n",
			a.Region, b.CenterX-b.Width/2, b.CenterY-b.Height/2, b.Width, b.Height, hexColor(anchorColor))
	}
	if d.Hem != nil {
		fmt.Fprintf(buf, `    <line class="hem" x1="%.2f" y1="%.2f" x2="%.2f" y2="%.2f" stroke="%s" stroke-width="2"/>`+"\n",
			d.Hem.From.X, d.Hem.From.Y, d.Hem.To.X, d.Hem.To.Y, hexColor(anchorColor))
	}
	if d.Neck != nil {
		fmt.Fprintf(buf, `    <circle class="neck" cx="%.2f" cy="%.2f" r="4" fill="%s"/>`+"\n",
			d.Neck.X, d.Neck.Y, hexColor(neckColor))
	}
	buf.WriteString("  </g>\n")
}

func hexColor(c color.Color) string {
	n := color.NRGBAModel.Convert(c).(color.NRGBA)
	if n.A == 0xff {
		return fmt.Sprintf("#%02x%02x%02x", n.R, n.G, n.B)
	}
	return fmt.Sprintf("#%02x%02x%02x%02x", n.R, n.G, n.B, n.A)
}
