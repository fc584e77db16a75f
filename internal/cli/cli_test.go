package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"image"
	"image/color"
	"image/png"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/matzehuels/tryon/internal/config"
	"github.com/matzehuels/tryon/pkg/errors"
	"github.com/matzehuels/tryon/pkg/fitstore"
	"github.com/matzehuels/tryon/pkg/pipeline"
)

func writePNG(t *testing.T, dir, name string, w, h int) {
	t.Helper()
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.SetNRGBA(x, y, color.NRGBA{R: 180, A: 255})
		}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, name), buf.Bytes(), 0o644); err != nil {
		t.Fatal(err)
	}
}

const testLook = `{
  "mannequin": "mannequin.png",
  "items": [
    {"id": "shirt", "image": "shirt.png", "layerCategory": "base_top"},
    {"id": "jeans", "image": "jeans.png", "layerCategory": "base_bottom"}
  ]
}`

// workspace writes a config, an outfit and its textures to a temp dir
// and returns the dir.
func workspace(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	t.Setenv("XDG_CACHE_HOME", filepath.Join(dir, "cache"))
	writePNG(t, dir, "mannequin.png", 40, 100)
	writePNG(t, dir, "shirt.png", 20, 16)
	writePNG(t, dir, "jeans.png", 16, 30)
	files := map[string]string{
		"look.json": testLook,
		"config.toml": `[store]
backend = "file"
dir = "fits"
user = "ada@example.com"

[assets]
root = "."
`,
	}
	for name, data := range files {
		if err := os.WriteFile(filepath.Join(dir, name), []byte(data), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	return dir
}

func runCLI(t *testing.T, dir string, args ...string) error {
	t.Helper()
	c := New(io.Discard, LogInfo)
	root := c.RootCommand()
	root.SetArgs(append([]string{"--config", filepath.Join(dir, "config.toml")}, args...))
	root.SetOut(io.Discard)
	root.SetErr(io.Discard)
	return root.ExecuteContext(context.Background())
}

func TestRootCommandRegistersSubcommands(t *testing.T) {
	root := New(io.Discard, LogInfo).RootCommand()
	want := []string{"layout", "render", "edit", "fits", "poses", "serve", "gizmo-graph", "cache", "completion"}
	for _, name := range want {
		cmd, _, err := root.Find([]string{name})
		if err != nil || cmd.Name() != name {
			t.Errorf("subcommand %q not registered", name)
		}
	}
}

func TestParseFormats(t *testing.T) {
	tests := []struct {
		in   string
		want []string
	}{
		{"", []string{"svg"}},
		{"png", []string{"png"}},
		{"SVG, png,,webp", []string{"svg", "png", "webp"}},
	}
	for _, tt := range tests {
		got := parseFormats(tt.in)
		if strings.Join(got, ",") != strings.Join(tt.want, ",") {
			t.Errorf("parseFormats(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestAssetKeyerScopesByRoot(t *testing.T) {
	a := assetKeyer(&config.Config{Assets: config.Assets{Root: "/srv/closet"}})
	b := assetKeyer(&config.Config{Assets: config.Assets{Root: "https://cdn.example.com/closet"}})

	ka, kb := a.TextureKey("shirt.png"), b.TextureKey("shirt.png")
	if ka == kb {
		t.Fatalf("roots share texture key %s", ka)
	}
	if !strings.HasPrefix(ka, "assets:") || !strings.HasSuffix(ka, ":texture:shirt.png") {
		t.Errorf("TextureKey = %s", ka)
	}
	again := assetKeyer(&config.Config{Assets: config.Assets{Root: "/srv/closet"}})
	if again.TextureKey("shirt.png") != ka {
		t.Error("assetKeyer is not stable for one root")
	}
}

func TestOutputPath(t *testing.T) {
	tests := []struct {
		input, output, format string
		multi                 bool
		want                  string
	}{
		{"looks/summer.toml", "", "svg", false, "summer.svg"},
		{"summer.toml", "out.png", "png", false, "out.png"},
		{"summer.toml", "out/look.svg", "png", true, "out/look.png"},
		{"summer.toml", "out/look", "webp", true, "out/look.webp"},
	}
	for _, tt := range tests {
		if got := outputPath(tt.input, tt.output, tt.format, tt.multi); got != tt.want {
			t.Errorf("outputPath(%q, %q, %q, %v) = %q, want %q", tt.input, tt.output, tt.format, tt.multi, got, tt.want)
		}
	}
}

func TestRenderCommand(t *testing.T) {
	dir := workspace(t)
	base := filepath.Join(dir, "out", "look")
	if err := os.MkdirAll(filepath.Dir(base), 0o755); err != nil {
		t.Fatal(err)
	}

	err := runCLI(t, dir, "render", filepath.Join(dir, "look.json"), "-f", "svg,png", "-o", base, "--width", "200", "--height", "250")
	if err != nil {
		t.Fatalf("render: %v", err)
	}

	svg, err := os.ReadFile(base + ".svg")
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Contains(svg, []byte("<svg")) || !bytes.Contains(svg, []byte("shirt.png")) {
		t.Errorf("unexpected svg: %.200s", svg)
	}
	raw, err := os.ReadFile(base + ".png")
	if err != nil {
		t.Fatal(err)
	}
	img, err := png.Decode(bytes.NewReader(raw))
	if err != nil {
		t.Fatal(err)
	}
	if b := img.Bounds(); b.Dx() != 200 || b.Dy() != 250 {
		t.Errorf("png size = %v, want 200x250", b)
	}
}

func TestRenderRejectsUnknownFormat(t *testing.T) {
	dir := workspace(t)
	err := runCLI(t, dir, "render", filepath.Join(dir, "look.json"), "-f", "pdf", "-o", filepath.Join(dir, "look.pdf"))
	if errors.GetCode(err) != errors.ErrCodeInvalidInput {
		t.Errorf("err = %v, want INVALID_INPUT", err)
	}
}

func TestLayoutCommand(t *testing.T) {
	dir := workspace(t)
	out := filepath.Join(dir, "look.layout.json")

	if err := runCLI(t, dir, "layout", filepath.Join(dir, "look.json"), "-o", out); err != nil {
		t.Fatalf("layout: %v", err)
	}

	data, err := os.ReadFile(out)
	if err != nil {
		t.Fatal(err)
	}
	var l pipeline.Layout
	if err := json.Unmarshal(data, &l); err != nil {
		t.Fatal(err)
	}
	if l.PoseID != "front_v1" || l.Placed() != 2 {
		t.Errorf("layout pose=%q placed=%d, want front_v1 and 2", l.PoseID, l.Placed())
	}
}

func TestLayoutMissingOutfit(t *testing.T) {
	dir := workspace(t)
	err := runCLI(t, dir, "layout", filepath.Join(dir, "missing.json"))
	if errors.GetCode(err) != errors.ErrCodeFileNotFound {
		t.Errorf("err = %v, want FILE_NOT_FOUND", err)
	}
}

func TestFitsCommands(t *testing.T) {
	dir := workspace(t)
	ctx := context.Background()

	if err := runCLI(t, dir, "fits", "set", "shirt", "--x", "0.05", "--scale", "1.2", "--rotation", "-3"); err != nil {
		t.Fatalf("fits set: %v", err)
	}
	if err := runCLI(t, dir, "fits", "get", "shirt", "jeans"); err != nil {
		t.Fatalf("fits get: %v", err)
	}

	store, err := fitstore.NewFile(filepath.Join(dir, "fits"))
	if err != nil {
		t.Fatal(err)
	}
	recs, err := store.Fetch(ctx, "ada@example.com", "front_v1", []string{"shirt"})
	if err != nil {
		t.Fatal(err)
	}
	if len(recs) != 1 {
		t.Fatalf("got %d records, want 1", len(recs))
	}
	if tr := recs[0].Transform; tr.X != 0.05 || tr.Scale != 1.2 || tr.RotationDeg != -3 {
		t.Errorf("stored transform = %+v", tr)
	}

	if err := runCLI(t, dir, "fits", "delete", "shirt"); err != nil {
		t.Fatalf("fits delete: %v", err)
	}
	recs, _ = store.Fetch(ctx, "ada@example.com", "front_v1", []string{"shirt"})
	if len(recs) != 0 {
		t.Errorf("record survived delete: %+v", recs)
	}
}

func TestFitsSetRejectsBadScale(t *testing.T) {
	dir := workspace(t)
	err := runCLI(t, dir, "fits", "set", "shirt", "--scale", "0")
	if errors.GetCode(err) != errors.ErrCodeInvalidTransform {
		t.Errorf("err = %v, want INVALID_TRANSFORM", err)
	}
}

func TestRenderAppliesSavedFits(t *testing.T) {
	dir := workspace(t)
	look := filepath.Join(dir, "look.json")
	plain := filepath.Join(dir, "plain.json")
	fitted := filepath.Join(dir, "fitted.json")

	if err := runCLI(t, dir, "layout", look, "-o", plain, "--no-cache"); err != nil {
		t.Fatal(err)
	}
	if err := runCLI(t, dir, "fits", "set", "shirt", "--x", "0.1"); err != nil {
		t.Fatal(err)
	}
	if err := runCLI(t, dir, "layout", look, "-o", fitted, "--no-cache"); err != nil {
		t.Fatal(err)
	}

	shirtX := func(path string) float64 {
		data, err := os.ReadFile(path)
		if err != nil {
			t.Fatal(err)
		}
		var l pipeline.Layout
		if err := json.Unmarshal(data, &l); err != nil {
			t.Fatal(err)
		}
		for _, sp := range l.Sprites {
			if sp.ItemID == "shirt" {
				return sp.Pos.X
			}
		}
		t.Fatalf("no shirt in %s", path)
		return 0
	}
	if d := shirtX(fitted) - shirtX(plain); d <= 0 {
		t.Errorf("saved fit did not move the shirt right (delta %v)", d)
	}
}

func TestPosesShow(t *testing.T) {
	dir := workspace(t)
	if err := runCLI(t, dir, "poses", "show", "front_v1"); err != nil {
		t.Fatalf("poses show: %v", err)
	}
	err := runCLI(t, dir, "poses", "show", "nope_v9")
	if errors.GetCode(err) != errors.ErrCodePoseNotFound {
		t.Errorf("err = %v, want POSE_NOT_FOUND", err)
	}
}
