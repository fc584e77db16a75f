package texture

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"image/gif"
	"image/jpeg"
	"image/png"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/HugoSmits86/nativewebp"
	"github.com/ftrvxmtrx/tga"

	"github.com/matzehuels/tryon/pkg/cache"
	"github.com/matzehuels/tryon/pkg/errors"
)

func pngBytes(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, color.NRGBA{R: 200, A: 255})
		}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatal(err)
	}
	return buf.Bytes()
}

func TestResolvers(t *testing.T) {
	tests := []struct {
		name    string
		r       Resolver
		ref     string
		want    string
		wantErr bool
	}{
		{"dir", DirResolver{Root: "/assets"}, "closet/shirt.png", filepath.Join("/assets", "closet", "shirt.png"), false},
		{"dir traversal", DirResolver{Root: "/assets"}, "../etc/passwd", "", true},
		{"dir url passthrough", DirResolver{Root: "/assets"}, "https://cdn.example.com/a.png", "https://cdn.example.com/a.png", false},
		{"cdn", CDNResolver{Base: "https://cdn.example.com/"}, "closet/shirt.png", "https://cdn.example.com/closet/shirt.png", false},
		{"cdn empty", CDNResolver{Base: "https://cdn.example.com"}, "", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := tt.r.Resolve(tt.ref)
			if (err != nil) != tt.wantErr {
				t.Fatalf("Resolve(%q) err = %v, wantErr %v", tt.ref, err, tt.wantErr)
			}
			if !tt.wantErr && got != tt.want {
				t.Errorf("Resolve(%q) = %q, want %q", tt.ref, got, tt.want)
			}
		})
	}

	if _, ok := NewResolver("https://cdn.example.com").(CDNResolver); !ok {
		t.Error("NewResolver(url) should return a CDNResolver")
	}
	if _, ok := NewResolver("./assets").(DirResolver); !ok {
		t.Error("NewResolver(dir) should return a DirResolver")
	}
}

func TestDecode(t *testing.T) {
	img, err := Decode(pngBytes(t, 3, 2))
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if img.Bounds().Dx() != 3 || img.Bounds().Dy() != 2 {
		t.Errorf("bounds = %v", img.Bounds())
	}

	if _, err := Decode([]byte("not an image")); !errors.Is(err, errors.ErrCodeTextureLoad) {
		t.Errorf("garbage: err = %v, want TEXTURE_LOAD", err)
	}
}

func TestDecodeFormats(t *testing.T) {
	src := image.NewNRGBA(image.Rect(0, 0, 4, 3))
	for i := range src.Pix {
		src.Pix[i] = 0xff
	}
	tests := []struct {
		name   string
		encode func(io.Writer, image.Image) error
	}{
		{"png", png.Encode},
		{"jpeg", func(w io.Writer, m image.Image) error { return jpeg.Encode(w, m, nil) }},
		{"gif", func(w io.Writer, m image.Image) error { return gif.Encode(w, m, nil) }},
		{"webp", func(w io.Writer, m image.Image) error { return nativewebp.Encode(w, m, nil) }},
		{"tga", tga.Encode},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			if err := tt.encode(&buf, src); err != nil {
				t.Fatalf("encode: %v", err)
			}
			img, err := Decode(buf.Bytes())
			if err != nil {
				t.Fatalf("Decode: %v", err)
			}
			if img.Bounds().Dx() != 4 || img.Bounds().Dy() != 3 {
				t.Errorf("bounds = %v, want 4x3", img.Bounds())
			}
		})
	}
}

func TestLoaderLocal(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "shirt.png"), pngBytes(t, 40, 20), 0o644); err != nil {
		t.Fatal(err)
	}
	l := NewLoader(DirResolver{Root: dir})

	w, h, ok := l.Size("shirt.png")
	if !ok || w != 40 || h != 20 {
		t.Errorf("Size = %d, %d, %v", w, h, ok)
	}
	if _, _, ok := l.Size("missing.png"); ok {
		t.Error("missing texture should not be ok")
	}
	if _, ok := l.Image("shirt.png"); !ok {
		t.Error("Image should return the loaded texture")
	}

	errs := l.Preload(context.Background(), []string{"shirt.png", "missing.png", ""})
	if len(errs) != 1 || errs["missing.png"] == nil {
		t.Errorf("Preload errors = %v", errs)
	}
}

func TestLoaderRemoteUsesByteCache(t *testing.T) {
	body := pngBytes(t, 8, 8)
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		_, _ = w.Write(body)
	}))
	defer srv.Close()

	fc, err := cache.NewFileCache(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	opts := []Option{WithCache(fc, cache.NewDefaultKeyer()), WithHTTPClient(srv.Client())}

	first := NewLoader(CDNResolver{Base: srv.URL}, opts...)
	if _, err := first.Load(context.Background(), "a.png"); err != nil {
		t.Fatalf("Load: %v", err)
	}

	second := NewLoader(CDNResolver{Base: srv.URL}, opts...)
	if _, err := second.Load(context.Background(), "a.png"); err != nil {
		t.Fatalf("Load: %v", err)
	}
	if hits.Load() != 1 {
		t.Errorf("server hits = %d, want 1", hits.Load())
	}
}

func TestLoaderCachesFailures(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	l := NewLoader(CDNResolver{Base: srv.URL}, WithHTTPClient(srv.Client()))
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	for i := 0; i < 3; i++ {
		if _, err := l.Load(ctx, "gone.png"); !errors.Is(err, errors.ErrCodeTextureLoad) {
			t.Fatalf("err = %v, want TEXTURE_LOAD", err)
		}
	}
	if hits.Load() != 1 {
		t.Errorf("server hits = %d, want 1", hits.Load())
	}

	l.Forget("gone.png")
	_, _ = l.Load(ctx, "gone.png")
	if hits.Load() != 2 {
		t.Errorf("after Forget hits = %d, want 2", hits.Load())
	}
}
