// Package cli implements the tryon command-line interface.
//
// The CLI lays out and renders outfits, edits fits interactively, manages
// saved fits and serves the HTTP API. It is built using cobra and logs
// through charmbracelet/log.
//
// # Commands
//
// The main commands are:
//   - layout: Compute garment placement for an outfit file
//   - render: Generate SVG, PNG, WebP or JSON previews
//   - edit: Adjust fits interactively in the terminal
//   - fits: Read, write and delete saved fits
//   - poses: List the registered mannequin poses
//   - serve: Run the HTTP API
//   - cache: Manage the texture and preview cache
//
// # Configuration
//
// Commands read $XDG_CONFIG_HOME/tryon/config.toml unless --config names
// another file. See the config package for the format.
package cli

import (
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/matzehuels/tryon/internal/config"
	"github.com/matzehuels/tryon/pkg/buildinfo"
	"github.com/matzehuels/tryon/pkg/cache"
	"github.com/matzehuels/tryon/pkg/pipeline"
	"github.com/matzehuels/tryon/pkg/texture"
)

// =============================================================================
// Constants
// =============================================================================

// appName is the application name used for directories and display.
const appName = "tryon"

// Log levels exported for use in main.go.
const (
	LogDebug = log.DebugLevel
	LogInfo  = log.InfoLevel
)

// =============================================================================
// CLI - Central CLI State
// =============================================================================

// CLI holds shared state for all commands.
type CLI struct {
	Logger *log.Logger

	configPath string
	cfg        *config.Config
}

// New creates a new CLI instance with a default logger.
func New(w io.Writer, level log.Level) *CLI {
	return &CLI{Logger: newLogger(w, level)}
}

// SetLogLevel updates the logger's level.
func (c *CLI) SetLogLevel(level log.Level) {
	c.Logger.SetLevel(level)
}

// RootCommand creates the root cobra command with all subcommands registered.
func (c *CLI) RootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:          appName,
		Short:        "Tryon places garments on a mannequin",
		Long:         `Tryon lays out garment images on a posed mannequin, lets you adjust each garment with a move/rotate/scale gizmo, and keeps the resulting fits per user, item and pose.`,
		Version:      buildinfo.Current(),
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cmd.SetContext(withLogger(cmd.Context(), c.Logger))
			if c.Logger.GetLevel() <= log.DebugLevel {
				installLogHooks(c.Logger)
			}
			return nil
		},
	}

	root.SetVersionTemplate(buildinfo.Template())
	root.PersistentFlags().StringVar(&c.configPath, "config", "", "config file (default $XDG_CONFIG_HOME/tryon/config.toml)")

	// Register all subcommands
	root.AddCommand(c.layoutCommand())
	root.AddCommand(c.renderCommand())
	root.AddCommand(c.editCommand())
	root.AddCommand(c.fitsCommand())
	root.AddCommand(c.posesCommand())
	root.AddCommand(c.serveCommand())
	root.AddCommand(c.gizmoGraphCommand())
	root.AddCommand(c.cacheCommand())
	root.AddCommand(c.completionCommand())

	return root
}

// config loads the configuration file once.
func (c *CLI) config() (*config.Config, error) {
	if c.cfg != nil {
		return c.cfg, nil
	}
	cfg, err := config.Load(c.configPath)
	if err != nil {
		return nil, err
	}
	c.Logger.Debug("loaded config", "store", cfg.Store.Backend, "assets", cfg.Assets.Root)
	c.cfg = cfg
	return cfg, nil
}

// =============================================================================
// Runner Factory
// =============================================================================

// newRunner creates a pipeline runner for CLI use. Textures resolve
// against the configured asset root.
func (c *CLI) newRunner(cfg *config.Config, noCache bool) (*pipeline.Runner, error) {
	cc, err := newCache(noCache)
	if err != nil {
		return nil, err
	}
	poses, err := cfg.PoseRegistry()
	if err != nil {
		return nil, err
	}
	r := pipeline.NewRunner(cc, assetKeyer(cfg), c.Logger)
	r.Poses = poses
	r.Textures = newTextureLoader(cfg, cc)
	return r, nil
}

func newTextureLoader(cfg *config.Config, cc cache.Cache) *texture.Loader {
	return texture.NewLoader(texture.NewResolver(cfg.Assets.Root), texture.WithCache(cc, assetKeyer(cfg)))
}

// assetKeyer scopes cache keys by asset root. Image references are
// relative to the root, so two roots must never share entries.
func assetKeyer(cfg *config.Config) cache.Keyer {
	root := cache.Hash([]byte(cfg.Assets.Root))[:12]
	return cache.NewScopedKeyer(cache.NewDefaultKeyer(), "assets:"+root+":")
}

func newCache(noCache bool) (cache.Cache, error) {
	if noCache {
		return cache.NewNullCache(), nil
	}
	dir, err := cacheDir()
	if err != nil {
		return cache.NewNullCache(), nil
	}
	return cache.NewFileCache(dir)
}

// =============================================================================
// Paths
// =============================================================================

// cacheDir returns the cache directory using XDG standard (~/.cache/tryon/).
func cacheDir() (string, error) {
	if cacheHome := os.Getenv("XDG_CACHE_HOME"); cacheHome != "" {
		return filepath.Join(cacheHome, appName), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".cache", appName), nil
}

// =============================================================================
// Options Helpers
// =============================================================================

// parseFormats parses a comma-separated format string into a slice.
func parseFormats(s string) []string {
	if s == "" {
		return []string{pipeline.FormatSVG}
	}
	var out []string
	for _, f := range strings.Split(s, ",") {
		if f = strings.TrimSpace(strings.ToLower(f)); f != "" {
			out = append(out, f)
		}
	}
	return out
}

// outputPath returns the file an artifact is written to. A single format
// writes to output as given; several formats use output as a base name.
func outputPath(input, output, format string, multi bool) string {
	if output == "" {
		base := strings.TrimSuffix(filepath.Base(input), filepath.Ext(input))
		return base + "." + format
	}
	if !multi {
		return output
	}
	return strings.TrimSuffix(output, filepath.Ext(output)) + "." + format
}
