package pose

import (
	"os"
	"path/filepath"
	"slices"
	"testing"

	"github.com/matzehuels/tryon/pkg/errors"
)

func TestParseCategory(t *testing.T) {
	tests := []struct {
		in      string
		want    Category
		wantErr bool
	}{
		{"base_top", BaseTop, false},
		{"base-top", BaseTop, false},
		{"BASE-BOTTOM", BaseBottom, false},
		{" outerwear ", Outerwear, false},
		{"footwear", Footwear, false},
		{"cape", "", true},
		{"", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseCategory(tt.in)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseCategory(%q) err = %v, wantErr %v", tt.in, err, tt.wantErr)
			}
			if err != nil && !errors.Is(err, errors.ErrCodeInvalidCategory) {
				t.Errorf("wrong error code: %v", err)
			}
			if got != tt.want {
				t.Errorf("ParseCategory(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestResolve(t *testing.T) {
	a := FrontV1()
	tests := []struct {
		cat  Category
		want Region
		ok   bool
	}{
		{BaseTop, Chest, true},
		{MidTop, Chest, true},
		{Outerwear, Chest, true},
		{BaseBottom, Hip, true},
		{MidBottom, Hip, true},
		{Headwear, Head, true},
		{Accessory, Waist, true},
		{Category("cape"), Chest, true},
		{Footwear, "", false},
	}
	for _, tt := range tests {
		t.Run(string(tt.cat), func(t *testing.T) {
			box, ok := a.Resolve(tt.cat)
			if ok != tt.ok {
				t.Fatalf("Resolve(%s) ok = %v, want %v", tt.cat, ok, tt.ok)
			}
			if ok && box != a.Boxes[tt.want] {
				t.Errorf("Resolve(%s) = %+v, want %s box %+v", tt.cat, box, tt.want, a.Boxes[tt.want])
			}
		})
	}
}

func TestDefaultZ(t *testing.T) {
	a := FrontV1()
	if got := a.DefaultZ(Headwear); got != 650 {
		t.Errorf("DefaultZ(headwear) = %d, want 650", got)
	}
	if got := a.DefaultZ(BaseTop); got != 200 {
		t.Errorf("DefaultZ(base_top) = %d, want 200", got)
	}
	if got := a.DefaultZ(Category("cape")); got != UnknownZ {
		t.Errorf("DefaultZ(unknown) = %d, want %d", got, UnknownZ)
	}
	if a.DefaultZ(Footwear) <= a.OccluderZ || a.DefaultZ(Outerwear) >= a.OccluderZ {
		t.Error("occluders must sit between outerwear and footwear")
	}
}

func TestShoeBoxes(t *testing.T) {
	left, right := FrontV1().ShoeBoxes()
	if left.Center().X >= right.Center().X {
		t.Errorf("left shoe %+v should be left of right shoe %+v", left, right)
	}
	if left.Y != right.Y || left.W != right.W {
		t.Error("shoe boxes should be symmetric")
	}
}

func TestFrontV1BoxesInsideUnitSquare(t *testing.T) {
	a := FrontV1()
	if err := a.Validate(); err != nil {
		t.Fatalf("front_v1 invalid: %v", err)
	}
	for r, b := range a.Boxes {
		if b.X < 0 || b.Y < 0 || b.X+b.W > 1 || b.Y+b.H > 1 {
			t.Errorf("region %s outside [0,1]: %+v", r, b)
		}
	}
}

func TestValidateRejects(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(a *Anchors)
	}{
		{"missing region", func(a *Anchors) { delete(a.Boxes, Hip) }},
		{"zero width", func(a *Anchors) { a.Boxes[Chest] = Box{X: 0.3, Y: 0.2, W: 0, H: 0.1} }},
		{"outside", func(a *Anchors) { a.Boxes[Head] = Box{X: 0.95, Y: 0.05, W: 0.1, H: 0.1} }},
		{"missing z", func(a *Anchors) { delete(a.Z, Accessory) }},
		{"bad id", func(a *Anchors) { a.ID = "" }},
		{"neck outside", func(a *Anchors) { a.Neck = Point{X: 1.2, Y: 0.2} }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := FrontV1()
			tt.mutate(a)
			if err := a.Validate(); err == nil {
				t.Error("Validate() = nil, want error")
			}
		})
	}
}

func TestRegistry(t *testing.T) {
	r := DefaultRegistry()

	a, err := r.Get(CanonicalID)
	if err != nil {
		t.Fatalf("Get(front_v1): %v", err)
	}
	if a.ID != CanonicalID {
		t.Errorf("ID = %s", a.ID)
	}

	_, err = r.Get("side_v1")
	if !errors.Is(err, errors.ErrCodePoseNotFound) {
		t.Errorf("Get(unknown) err = %v, want POSE_NOT_FOUND", err)
	}

	if err := r.Register(FrontV1()); err == nil {
		t.Error("duplicate Register should fail")
	}

	side := FrontV1()
	side.ID = "side_v1"
	if err := r.Register(side); err != nil {
		t.Fatalf("Register(side_v1): %v", err)
	}
	side.Boxes[Chest] = Box{X: 0, Y: 0, W: 1, H: 1}
	got, _ := r.Get("side_v1")
	if got.Boxes[Chest] == side.Boxes[Chest] {
		t.Error("registered pose must not change when the caller mutates its copy")
	}

	got.Boxes[Chest] = Box{X: 0, Y: 0, W: 1, H: 1}
	got.Z[BaseTop] = 999
	again, _ := r.Get("side_v1")
	if again.Boxes[Chest] == got.Boxes[Chest] || again.Z[BaseTop] == 999 {
		t.Error("registered pose must not change when a Get result is mutated")
	}

	if ids := r.IDs(); !slices.Equal(ids, []string{"front_v1", "side_v1"}) {
		t.Errorf("IDs() = %v", ids)
	}
}

const sidePose = `
id = "side_v1"
neck = { x = 0.48, y = 0.2 }
hem = { x1 = 0.35, y = 0.8, x2 = 0.65 }

[boxes.chest]
x = 0.38
y = 0.22
w = 0.24
h = 0.16

[boxes.waist]
x = 0.38
y = 0.38
w = 0.24
h = 0.10

[boxes.hip]
x = 0.37
y = 0.46
w = 0.26
h = 0.12

[boxes.head]
x = 0.42
y = 0.05
w = 0.14
h = 0.12

[boxes.left_shoe]
x = 0.40
y = 0.86
w = 0.12
h = 0.07

[boxes.right_shoe]
x = 0.50
y = 0.86
w = 0.12
h = 0.07

[z]
base-top = 200
base_bottom = 250
mid_bottom = 275
mid_top = 300
outerwear = 400
accessory = 500
footwear = 600
headwear = 650
`

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "side.toml")
	if err := os.WriteFile(path, []byte(sidePose), 0o644); err != nil {
		t.Fatal(err)
	}

	a, err := LoadFile(path)
	if err != nil {
		t.Fatalf("LoadFile: %v", err)
	}
	if a.ID != "side_v1" {
		t.Errorf("ID = %q", a.ID)
	}
	if a.Boxes[Hip].W != 0.26 {
		t.Errorf("hip width = %v", a.Boxes[Hip].W)
	}
	if a.DefaultZ(BaseTop) != 200 {
		t.Errorf("base_top z = %d", a.DefaultZ(BaseTop))
	}
	if a.OccluderZ != DefaultOccluderZ {
		t.Errorf("OccluderZ = %d", a.OccluderZ)
	}
}

func TestLoadFileErrors(t *testing.T) {
	if _, err := LoadFile(filepath.Join(t.TempDir(), "missing.toml")); !errors.Is(err, errors.ErrCodeFileNotFound) {
		t.Errorf("missing file err = %v", err)
	}
	if _, err := Parse([]byte("id = ")); !errors.Is(err, errors.ErrCodeInvalidFormat) {
		t.Errorf("bad toml err = %v", err)
	}
	if _, err := Parse([]byte("id = \"x\"\n[boxes.elbow]\nx=0.1\ny=0.1\nw=0.1\nh=0.1\n")); !errors.Is(err, errors.ErrCodeInvalidPose) {
		t.Errorf("unknown region err = %v", err)
	}
}
