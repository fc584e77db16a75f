package cli

import (
	"context"
	"fmt"
	"os"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/matzehuels/tryon/pkg/outfit"
	"github.com/matzehuels/tryon/pkg/render"
	"github.com/matzehuels/tryon/pkg/studio"
)

// editCommand creates the edit command, an interactive fit editor.
func (c *CLI) editCommand() *cobra.Command {
	var width, height float64
	var noAutoSave bool
	var readOnly bool

	cmd := &cobra.Command{
		Use:   "edit [outfit-file]",
		Short: "Adjust garment fits interactively",
		Long: `Open an outfit in a terminal editor and adjust each garment's fit.

The arrow keys move the selected garment, r and R rotate it and + and -
scale it. Each adjustment is a committed gesture and is saved in the
background unless --no-autosave is given; press s to save pending
changes and p to write an SVG preview of the current stage.`,
		Example: `  tryon edit look.toml
  tryon edit look.toml --no-autosave`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			cfg, err := c.config()
			if err != nil {
				return err
			}
			if !cmd.Flags().Changed("width") {
				width = cfg.Editor.Width
			}
			if !cmd.Flags().Changed("height") {
				height = cfg.Editor.Height
			}
			o, err := outfit.Load(args[0])
			if err != nil {
				return err
			}
			poses, err := cfg.PoseRegistry()
			if err != nil {
				return err
			}
			cc, err := newCache(false)
			if err != nil {
				return err
			}
			defer cc.Close()

			fits, closeFits, err := openAdapter(ctx, cfg)
			if err != nil {
				printWarning("Saved fits unavailable: %v", err)
				fits, closeFits = nil, func() {}
			}
			defer closeFits()

			// The editor owns the terminal; log to a file instead.
			logger := c.Logger
			if f, err := os.CreateTemp("", "tryon-edit-*.log"); err == nil {
				defer f.Close()
				logger = newLogger(f, c.Logger.GetLevel())
			}

			changes := make(chan struct{}, 1)
			st, err := studio.Open(ctx, studio.Config{
				Outfit:   o,
				Width:    width,
				Height:   height,
				Poses:    poses,
				Textures: newTextureLoader(cfg, cc),
				Fits:     fits,
				FitPose:  cfg.Poses.Canonical,
				Editable: !readOnly,
				AutoSave: cfg.Editor.AutoSave && !noAutoSave,
				HandlePx: cfg.Editor.HandlePx,
				Logger:   logger,
				OnChange: func() {
					select {
					case changes <- struct{}{}:
					default:
					}
				},
			})
			if err != nil {
				return err
			}
			defer st.Close()

			m := NewEditModel(ctx, st, o.ItemIDs(), changes)
			m.preview = func(snap studio.Snapshot) (string, error) {
				return writePreview(args[0], snap)
			}
			if _, err := tea.NewProgram(m, tea.WithContext(ctx)).Run(); err != nil {
				return err
			}

			return c.flushEdits(ctx, st)
		},
	}

	cmd.Flags().Float64Var(&width, "width", 0, "stage width in pixels (default from config)")
	cmd.Flags().Float64Var(&height, "height", 0, "stage height in pixels (default from config)")
	cmd.Flags().BoolVar(&noAutoSave, "no-autosave", false, "only save when s is pressed")
	cmd.Flags().BoolVar(&readOnly, "read-only", false, "view fits without editing")
	return cmd
}

// flushEdits reports and saves changes left unsaved when the editor
// quits.
func (c *CLI) flushEdits(ctx context.Context, st *studio.Studio) error {
	dirty := st.Dirty()
	if len(dirty) == 0 {
		printSuccess("All fits saved")
		return nil
	}
	printInfo("Saving %d unsaved fits: %s", len(dirty), strings.Join(dirty, ", "))
	if err := st.SaveAll(ctx); err != nil {
		printError("Save failed: %v", err)
		return err
	}
	printSuccess("Saved %d fits", len(dirty))
	return nil
}

// writePreview writes the current stage as SVG next to the outfit file.
func writePreview(input string, snap studio.Snapshot) (string, error) {
	path := outputPath(input, "", "edit.svg", false)
	if err := os.WriteFile(path, render.RenderSVG(snap.Frame, render.WithIDs()), 0o644); err != nil {
		return "", fmt.Errorf("write %s: %w", path, err)
	}
	return path, nil
}
