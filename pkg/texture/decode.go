package texture

import (
	"bytes"
	"image"
	"image/draw"
	"image/gif"
	"image/jpeg"
	"image/png"
	"io"

	"github.com/ftrvxmtrx/tga"
	"golang.org/x/image/webp"

	"github.com/matzehuels/tryon/pkg/errors"
)

// decoders are matched by magic bytes. TARGA has no magic and is tried
// last. image.Decode is not used: the tga package registers itself with an
// empty magic that would claim every input.
var decoders = []struct {
	match  func([]byte) bool
	decode func(io.Reader) (image.Image, error)
}{
	{prefix("\x89PNG\r\n\x1a\n"), png.Decode},
	{prefix("\xff\xd8"), jpeg.Decode},
	{prefix("GIF8"), gif.Decode},
	{isWebP, webp.Decode},
}

func prefix(magic string) func([]byte) bool {
	return func(b []byte) bool { return bytes.HasPrefix(b, []byte(magic)) }
}

func isWebP(b []byte) bool {
	return len(b) >= 12 && string(b[:4]) == "RIFF" && string(b[8:12]) == "WEBP"
}

// Decode decodes PNG, JPEG, GIF, WebP or TGA data into an NRGBA image.
// Images with a zero dimension are load failures.
func Decode(data []byte) (*image.NRGBA, error) {
	decode := tga.Decode
	for _, d := range decoders {
		if d.match(data) {
			decode = d.decode
			break
		}
	}
	img, err := decode(bytes.NewReader(data))
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeTextureLoad, err, "decode image")
	}
	b := img.Bounds()
	if b.Dx() <= 0 || b.Dy() <= 0 {
		return nil, errors.New(errors.ErrCodeTextureLoad, "image has zero size (%dx%d)", b.Dx(), b.Dy())
	}
	return toNRGBA(img), nil
}

func toNRGBA(src image.Image) *image.NRGBA {
	if n, ok := src.(*image.NRGBA); ok && n.Rect.Min == (image.Point{}) {
		return n
	}
	b := src.Bounds()
	dst := image.NewNRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(dst, dst.Bounds(), src, b.Min, draw.Src)
	return dst
}
