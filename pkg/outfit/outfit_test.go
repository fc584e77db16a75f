package outfit

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/matzehuels/tryon/pkg/errors"
	"github.com/matzehuels/tryon/pkg/fit"
	"github.com/matzehuels/tryon/pkg/pose"
)

const tomlOutfit = `
mannequin = "mannequin/front_v1.png"
occluders = ["mannequin/arms.png"]

[[items]]
id = "tee"
image = "closet/tee.png"
layerCategory = "base-top"

[[items]]
id = "boots"
image = "closet/boots.png"
layerCategory = "Footwear"
z = 610
fit = { x = 0.01, y = 0.0, scale = 1.1, rotationDeg = 0 }

[[items]]
id = "cape"
image = "closet/cape.png"
layerCategory = "cape"
`

const jsonOutfit = `{
  "pose": "front_v1",
  "mannequin": "mannequin/front_v1.png",
  "items": [
    {"id": "tee", "image": "closet/tee.png", "layerCategory": "base_top"}
  ]
}`

func TestParse(t *testing.T) {
	o, err := Parse([]byte(tomlOutfit), TOML)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if o.Pose != pose.CanonicalID {
		t.Errorf("Pose = %q, want default %q", o.Pose, pose.CanonicalID)
	}
	if len(o.Items) != 3 {
		t.Fatalf("items = %d", len(o.Items))
	}

	tests := []struct {
		idx  int
		want pose.Category
	}{
		{0, pose.BaseTop},
		{1, pose.Footwear},
		{2, pose.Category("cape")},
	}
	for _, tt := range tests {
		if got := o.Items[tt.idx].Category(); got != tt.want {
			t.Errorf("item %d category = %q, want %q", tt.idx, got, tt.want)
		}
	}
	if o.Items[1].Z == nil || *o.Items[1].Z != 610 {
		t.Errorf("z override not parsed: %v", o.Items[1].Z)
	}
	if o.Items[1].Fit == nil || o.Items[1].Fit.Scale != 1.1 {
		t.Errorf("fit not parsed: %+v", o.Items[1].Fit)
	}

	j, err := Parse([]byte(jsonOutfit), JSON)
	if err != nil {
		t.Fatalf("Parse JSON: %v", err)
	}
	if len(j.Items) != 1 || j.Items[0].Category() != pose.BaseTop {
		t.Errorf("json outfit = %+v", j)
	}
}

func TestParseErrors(t *testing.T) {
	tests := []struct {
		name   string
		data   string
		format Format
		code   errors.Code
	}{
		{"bad json", `{`, JSON, errors.ErrCodeInvalidFormat},
		{"unknown field", `{"items": [], "extra": 1}`, JSON, errors.ErrCodeInvalidFormat},
		{"bad item id", `{"items": [{"id": "../x", "image": "a.png", "layerCategory": "base_top"}]}`, JSON, errors.ErrCodeInvalidInput},
		{"bad image", `{"items": [{"id": "a", "image": "/etc/passwd", "layerCategory": "base_top"}]}`, JSON, errors.ErrCodeInvalidInput},
		{"bad format", `{}`, Format("yaml"), errors.ErrCodeInvalidFormat},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.data), tt.format)
			if !errors.Is(err, tt.code) {
				t.Errorf("err = %v, want %s", err, tt.code)
			}
		})
	}
}

func TestLoad(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "look.toml")
	if err := os.WriteFile(path, []byte(tomlOutfit), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(path); err != nil {
		t.Errorf("Load: %v", err)
	}
	if _, err := Load(filepath.Join(dir, "missing.json")); !errors.Is(err, errors.ErrCodeFileNotFound) {
		t.Errorf("missing file: %v", err)
	}
	if _, err := Load(filepath.Join(dir, "look.yaml")); !errors.Is(err, errors.ErrCodeInvalidFormat) {
		t.Errorf("bad extension: %v", err)
	}
}

func TestSceneItems(t *testing.T) {
	o, _ := Parse([]byte(tomlOutfit), TOML)
	stored := map[string]fit.Transform{"tee": {X: 0.05, Scale: 1.2}}

	items := o.SceneItems(stored)
	if len(items) != 3 {
		t.Fatalf("items = %d", len(items))
	}
	if items[0].Fit == nil || items[0].Fit.X != 0.05 {
		t.Errorf("stored fit not applied: %+v", items[0].Fit)
	}
	if items[1].Fit == nil || items[1].Fit.Scale != 1.1 {
		t.Errorf("outfit fit not applied: %+v", items[1].Fit)
	}
	if items[2].Fit != nil {
		t.Errorf("item without fit got %+v", items[2].Fit)
	}

	refs := o.ImageRefs()
	if len(refs) != 5 || refs[0] != "mannequin/front_v1.png" {
		t.Errorf("ImageRefs = %v", refs)
	}
	if ids := o.ItemIDs(); len(ids) != 3 || ids[2] != "cape" {
		t.Errorf("ItemIDs = %v", ids)
	}
}

func TestHashStable(t *testing.T) {
	a, _ := Parse([]byte(tomlOutfit), TOML)
	b, _ := Parse([]byte(tomlOutfit), TOML)
	if a.Hash() != b.Hash() {
		t.Error("same outfit should hash the same")
	}
	b.Items[0].Image = "closet/other.png"
	if a.Hash() == b.Hash() {
		t.Error("different outfits should hash differently")
	}
}
