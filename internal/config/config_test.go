package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/matzehuels/tryon/pkg/errors"
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoad(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "side.toml", sidePose)
	path := writeFile(t, dir, "config.toml", `
[server]
addr = ":9090"
timeout = "5s"

[store]
backend = "file"
dir = "fits"

[assets]
root = "https://cdn.example.com/closet"

[editor]
width = 400
autosave = true

[poses]
files = ["side.toml"]
`)

	c, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if c.Server.Addr != ":9090" || c.Server.Timeout.Duration != 5*time.Second {
		t.Errorf("server = %+v", c.Server)
	}
	if c.Store.Dir != filepath.Join(dir, "fits") {
		t.Errorf("store dir = %q, want it relative to the config file", c.Store.Dir)
	}
	if c.Assets.Root != "https://cdn.example.com/closet" {
		t.Errorf("assets root = %q", c.Assets.Root)
	}
	if c.Editor.Width != 400 || c.Editor.Height != 1000 || !c.Editor.AutoSave {
		t.Errorf("editor = %+v", c.Editor)
	}
	if c.Store.User != "local" || c.Poses.Canonical != "front_v1" {
		t.Errorf("defaults not applied: %+v %+v", c.Store, c.Poses)
	}

	reg, err := c.PoseRegistry()
	if err != nil {
		t.Fatalf("PoseRegistry: %v", err)
	}
	if _, err := reg.Get("side_v1"); err != nil {
		t.Errorf("side_v1 not registered: %v", err)
	}
}

func TestLoadErrors(t *testing.T) {
	dir := t.TempDir()
	tests := []struct {
		name    string
		content string
		code    errors.Code
	}{
		{"unknown key", "[server]\nport = 1\n", errors.ErrCodeInvalidFormat},
		{"bad toml", "[server\n", errors.ErrCodeInvalidFormat},
		{"bad duration", "[server]\ntimeout = \"soon\"\n", errors.ErrCodeInvalidFormat},
		{"unknown backend", "[store]\nbackend = \"sqlite\"\n", errors.ErrCodeInvalidInput},
		{"redis without url", "[store]\nbackend = \"redis\"\n", errors.ErrCodeInvalidInput},
		{"remote bad url", "[store]\nbackend = \"remote\"\nurl = \"ftp://x\"\n", errors.ErrCodeInvalidInput},
		{"negative stage", "[editor]\nwidth = -1\n", errors.ErrCodeInvalidInput},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := writeFile(t, dir, "c.toml", tt.content)
			_, err := Load(path)
			if !errors.Is(err, tt.code) {
				t.Errorf("Load error = %v, want %s", err, tt.code)
			}
		})
	}
}

func TestLoadMissing(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())

	c, err := Load("")
	if err != nil {
		t.Fatalf("missing default config should yield defaults: %v", err)
	}
	if c.Store.Backend != BackendFile || c.Editor.Width != 800 {
		t.Errorf("defaults = %+v", c)
	}

	_, err = Load(filepath.Join(t.TempDir(), "nope.toml"))
	if !errors.Is(err, errors.ErrCodeFileNotFound) {
		t.Errorf("explicit missing file error = %v, want FILE_NOT_FOUND", err)
	}
}

func TestDefaultPath(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", "/tmp/xdg")
	p, err := DefaultPath()
	if err != nil {
		t.Fatal(err)
	}
	if p != filepath.Join("/tmp/xdg", "tryon", "config.toml") {
		t.Errorf("DefaultPath = %q", p)
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
