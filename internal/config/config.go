// Package config loads the tryon configuration file.
//
// The file is TOML and lives at $XDG_CONFIG_HOME/tryon/config.toml unless
// --config names another one. Command-line flags override file values.
//
//	[server]
//	addr = ":8080"
//	timeout = "30s"
//
//	[store]
//	backend = "redis"          # memory, file, redis, mongo or remote
//	url = "redis://localhost:6379/0"
//
//	[assets]
//	root = "https://cdn.example.com/closet"
//
//	[editor]
//	width = 800
//	height = 1000
//	autosave = true
//
//	[poses]
//	files = ["poses/side_v1.toml"]
package config

import (
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"

	"github.com/matzehuels/tryon/pkg/errors"
	"github.com/matzehuels/tryon/pkg/pose"
)

const appName = "tryon"

// Store backends.
const (
	BackendMemory = "memory"
	BackendFile   = "file"
	BackendRedis  = "redis"
	BackendMongo  = "mongo"
	BackendRemote = "remote"
)

// Config is the parsed configuration file.
type Config struct {
	Server Server `toml:"server"`
	Store  Store  `toml:"store"`
	Assets Assets `toml:"assets"`
	Editor Editor `toml:"editor"`
	Poses  Poses  `toml:"poses"`
}

// Server configures `tryon serve`.
type Server struct {
	Addr    string   `toml:"addr"`
	NoAuth  bool     `toml:"no_auth"`
	Timeout Duration `toml:"timeout"`
}

// Store selects the fit store.
type Store struct {
	Backend string `toml:"backend"`
	// Dir is the directory of the file backend.
	Dir string `toml:"dir"`
	// URL is the redis URL, the mongo URI or the remote API base URL.
	URL string `toml:"url"`
	// Database is the mongo database.
	Database string `toml:"database"`
	// Prefix namespaces redis keys.
	Prefix string `toml:"prefix"`
	// User is the identity used against the remote API and by local
	// commands.
	User string `toml:"user"`
}

// Assets locates garment and mannequin images.
type Assets struct {
	// Root is a directory or an http(s) base URL.
	Root string `toml:"root"`
}

// Editor configures `tryon edit` and rendering defaults.
type Editor struct {
	Width    float64 `toml:"width"`
	Height   float64 `toml:"height"`
	AutoSave bool    `toml:"autosave"`
	HandlePx float64 `toml:"handle_px"`
}

// Poses adds pose definitions to the built-in ones.
type Poses struct {
	Files []string `toml:"files"`
	// Canonical is the pose fits are stored under.
	Canonical string `toml:"canonical"`
}

// Duration is a time.Duration written as a string like "30s".
type Duration struct{ time.Duration }

// UnmarshalText implements encoding.TextUnmarshaler.
func (d *Duration) UnmarshalText(b []byte) error {
	v, err := time.ParseDuration(string(b))
	if err != nil {
		return err
	}
	d.Duration = v
	return nil
}

// MarshalText implements encoding.TextMarshaler.
func (d Duration) MarshalText() ([]byte, error) { return []byte(d.Duration.String()), nil }

// DefaultPath returns $XDG_CONFIG_HOME/tryon/config.toml.
func DefaultPath() (string, error) {
	dir := os.Getenv("XDG_CONFIG_HOME")
	if dir == "" {
		var err error
		if dir, err = os.UserConfigDir(); err != nil {
			return "", err
		}
	}
	return filepath.Join(dir, appName, "config.toml"), nil
}

// Load reads the file at path. A missing file at the default path yields
// the defaults; a missing file named explicitly is an error. Unknown keys
// are rejected. Relative paths in the file resolve against its directory.
func Load(path string) (*Config, error) {
	explicit := path != ""
	if !explicit {
		p, err := DefaultPath()
		if err != nil {
			return Default(), nil
		}
		path = p
	}

	var c Config
	md, err := toml.DecodeFile(path, &c)
	if err != nil {
		if os.IsNotExist(err) && !explicit {
			return Default(), nil
		}
		if os.IsNotExist(err) {
			return nil, errors.Wrap(errors.ErrCodeFileNotFound, err, "config %s", path)
		}
		return nil, errors.Wrap(errors.ErrCodeInvalidFormat, err, "config %s", path)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, len(undecoded))
		for i, k := range undecoded {
			keys[i] = k.String()
		}
		return nil, errors.New(errors.ErrCodeInvalidFormat, "config %s: unknown keys: %s", path, strings.Join(keys, ", "))
	}

	c.resolvePaths(filepath.Dir(path))
	c.SetDefaults()
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return &c, nil
}

// Default returns the configuration used without a file.
func Default() *Config {
	c := &Config{}
	c.SetDefaults()
	return c
}

// SetDefaults fills unset fields.
func (c *Config) SetDefaults() {
	if c.Server.Addr == "" {
		c.Server.Addr = ":8080"
	}
	if c.Server.Timeout.Duration == 0 {
		c.Server.Timeout.Duration = 30 * time.Second
	}
	if c.Store.Backend == "" {
		c.Store.Backend = BackendFile
	}
	if c.Store.Backend == BackendFile && c.Store.Dir == "" {
		if dir, err := os.UserConfigDir(); err == nil {
			c.Store.Dir = filepath.Join(dir, appName, "fits")
		}
	}
	if c.Store.Backend == BackendMongo && c.Store.Database == "" {
		c.Store.Database = appName
	}
	if c.Store.User == "" {
		c.Store.User = "local"
	}
	if c.Assets.Root == "" {
		c.Assets.Root = "."
	}
	if c.Editor.Width == 0 {
		c.Editor.Width = 800
	}
	if c.Editor.Height == 0 {
		c.Editor.Height = 1000
	}
	if c.Editor.HandlePx == 0 {
		c.Editor.HandlePx = 16
	}
	if c.Poses.Canonical == "" {
		c.Poses.Canonical = pose.CanonicalID
	}
}

// Validate checks the configuration after defaults are applied.
func (c *Config) Validate() error {
	switch c.Store.Backend {
	case BackendMemory:
	case BackendFile:
		if c.Store.Dir == "" {
			return errors.New(errors.ErrCodeInvalidInput, "store: file backend needs dir")
		}
	case BackendRedis, BackendMongo:
		if c.Store.URL == "" {
			return errors.New(errors.ErrCodeInvalidInput, "store: %s backend needs url", c.Store.Backend)
		}
	case BackendRemote:
		if err := errors.ValidateURL(c.Store.URL); err != nil {
			return errors.Wrap(errors.ErrCodeInvalidInput, err, "store: remote url")
		}
	default:
		return errors.New(errors.ErrCodeInvalidInput, "store: unknown backend %q (want memory, file, redis, mongo or remote)", c.Store.Backend)
	}
	if err := errors.ValidateUserID(c.Store.User); err != nil {
		return errors.Wrap(errors.ErrCodeInvalidInput, err, "store: user")
	}
	if c.Editor.Width <= 0 || c.Editor.Height <= 0 {
		return errors.New(errors.ErrCodeInvalidInput, "editor: stage size must be positive")
	}
	if c.Server.Timeout.Duration < 0 {
		return errors.New(errors.ErrCodeInvalidInput, "server: negative timeout")
	}
	if err := errors.ValidatePoseID(c.Poses.Canonical); err != nil {
		return err
	}
	return nil
}

// PoseRegistry returns the built-in poses plus those of [Poses.Files].
func (c *Config) PoseRegistry() (*pose.Registry, error) {
	r := pose.DefaultRegistry()
	for _, f := range c.Poses.Files {
		a, err := pose.LoadFile(f)
		if err != nil {
			return nil, err
		}
		if err := r.Register(a); err != nil {
			return nil, err
		}
	}
	if _, err := r.Get(c.Poses.Canonical); err != nil {
		return nil, err
	}
	return r, nil
}

func (c *Config) resolvePaths(base string) {
	abs := func(p string) string {
		if p == "" || filepath.IsAbs(p) || strings.Contains(p, "://") {
			return p
		}
		return filepath.Join(base, p)
	}
	c.Store.Dir = abs(c.Store.Dir)
	if c.Assets.Root != "" {
		c.Assets.Root = abs(c.Assets.Root)
	}
	for i, f := range c.Poses.Files {
		c.Poses.Files[i] = abs(f)
	}
}
