package cli

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/matzehuels/tryon/pkg/outfit"
	"github.com/matzehuels/tryon/pkg/pipeline"
)

// renderFlags holds flags shared by the layout and render commands.
type renderFlags struct {
	output       string
	formats      string
	width        float64
	height       float64
	selectItem   string
	debugAnchors bool
	debugGrid    bool
	embed        bool
	background   string
	noCache      bool
	refresh      bool
	noFits       bool
}

func (f *renderFlags) register(cmd *cobra.Command, withFormats bool) {
	cmd.Flags().StringVarP(&f.output, "output", "o", "", "output file (default: input name with format extension)")
	cmd.Flags().Float64Var(&f.width, "width", pipeline.DefaultWidth, "stage width in pixels")
	cmd.Flags().Float64Var(&f.height, "height", pipeline.DefaultHeight, "stage height in pixels")
	cmd.Flags().StringVar(&f.selectItem, "select", "", "draw the gizmo around this item")
	cmd.Flags().BoolVar(&f.debugAnchors, "debug-anchors", false, "draw the pose anchor boxes")
	cmd.Flags().BoolVar(&f.debugGrid, "debug-grid", false, "draw a grid over the mannequin")
	cmd.Flags().BoolVar(&f.noCache, "no-cache", false, "disable the texture and preview cache")
	cmd.Flags().BoolVar(&f.refresh, "refresh", false, "recompute even when cached")
	cmd.Flags().BoolVar(&f.noFits, "no-fits", false, "ignore saved fits")
	if withFormats {
		cmd.Flags().StringVarP(&f.formats, "format", "f", "", "output formats: svg, png, webp, json (comma-separated)")
		cmd.Flags().BoolVar(&f.embed, "embed", false, "inline garment images in SVG output")
		cmd.Flags().StringVar(&f.background, "background", "", "background color (#rrggbb), transparent when empty")
	}
}

func (f *renderFlags) options(o *outfit.Outfit) pipeline.Options {
	return pipeline.Options{
		Outfit:       o,
		Width:        f.width,
		Height:       f.height,
		Select:       f.selectItem,
		DebugAnchors: f.debugAnchors,
		DebugGrid:    f.debugGrid,
		Formats:      parseFormats(f.formats),
		Embed:        f.embed,
		Background:   f.background,
		Refresh:      f.refresh,
	}
}

// renderCommand creates the render command for generating previews.
func (c *CLI) renderCommand() *cobra.Command {
	var flags renderFlags

	cmd := &cobra.Command{
		Use:   "render [outfit-file]",
		Short: "Render an outfit preview",
		Long: `Render an outfit as SVG, PNG, WebP or a JSON layout.

Saved fits for the outfit's items are applied unless --no-fits is given.
An outfit file is JSON or TOML and names the pose, the mannequin image and
the garments.`,
		Example: `  tryon render look.toml
  tryon render look.toml -f svg,png -o previews/look
  tryon render look.json --select shirt --debug-anchors`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runRender(cmd.Context(), args[0], flags)
		},
	}

	flags.register(cmd, true)
	return cmd
}

func (c *CLI) runRender(ctx context.Context, input string, flags renderFlags) error {
	logger := loggerFromContext(ctx)

	result, err := c.execute(ctx, input, flags)
	if err != nil {
		return err
	}

	opts := flags.options(nil)
	multi := len(opts.Formats) > 1
	var written []string
	for _, format := range opts.Formats {
		path := outputPath(input, flags.output, format, multi)
		if err := os.WriteFile(path, result.Artifacts[format], 0o644); err != nil {
			return fmt.Errorf("write %s: %w", path, err)
		}
		logger.Debug("wrote artifact", "format", format, "path", path, "bytes", len(result.Artifacts[format]))
		written = append(written, path)
	}

	printSuccess("Rendered %s", input)
	printStats(result.Stats.Placed, result.Stats.Skipped, result.CacheInfo.RenderHit)
	for _, path := range written {
		printFile(path)
	}
	printSkipped(result.Layout)
	return nil
}

// layoutCommand creates the layout command, which writes the computed
// placement as JSON.
func (c *CLI) layoutCommand() *cobra.Command {
	var flags renderFlags

	cmd := &cobra.Command{
		Use:   "layout [outfit-file]",
		Short: "Compute garment placement for an outfit",
		Long: `Compute where each garment sits on the mannequin and write the result as JSON.

The layout lists every sprite with its stage position, scale, rotation and
z-order, plus the items that could not be placed.`,
		Example: `  tryon layout look.toml
  tryon layout look.toml -o look.layout.json --width 1200 --height 1500`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			flags.formats = pipeline.FormatJSON
			result, err := c.execute(cmd.Context(), args[0], flags)
			if err != nil {
				return err
			}
			path := outputPath(args[0], flags.output, "layout.json", false)
			if err := os.WriteFile(path, result.Artifacts[pipeline.FormatJSON], 0o644); err != nil {
				return fmt.Errorf("write %s: %w", path, err)
			}
			printSuccess("Laid out %s on %s", args[0], result.Layout.PoseID)
			printStats(result.Stats.Placed, result.Stats.Skipped, result.CacheInfo.LayoutHit)
			printFile(path)
			printSkipped(result.Layout)
			printNewline()
			printNextStep("Render it", "tryon render "+args[0])
			return nil
		},
	}

	flags.register(cmd, false)
	return cmd
}

// execute loads the outfit and runs the pipeline behind a spinner.
func (c *CLI) execute(ctx context.Context, input string, flags renderFlags) (*pipeline.Result, error) {
	cfg, err := c.config()
	if err != nil {
		return nil, err
	}
	o, err := outfit.Load(input)
	if err != nil {
		return nil, err
	}

	runner, err := c.newRunner(cfg, flags.noCache)
	if err != nil {
		return nil, err
	}
	defer runner.Close()

	opts := flags.options(o)
	opts.Logger = loggerFromContext(ctx)
	opts.FitPose = cfg.Poses.Canonical
	if !flags.noFits {
		fits, closeFits, err := openAdapter(ctx, cfg)
		if err != nil {
			printWarning("Saved fits unavailable: %v", err)
		} else {
			defer closeFits()
			opts.Fits = fits
		}
	}

	spinner := newSpinnerWithContext(ctx, "Fetching saved fits...")
	spinner.Start()
	result, err := runStages(ctx, runner, opts, spinner)
	if err != nil {
		if spinner.Cancelled() {
			spinner.Stop()
			return nil, ctx.Err()
		}
		spinner.StopWithError(input)
		return nil, err
	}
	spinner.Stop()
	return result, nil
}

// runStages runs the pipeline one stage at a time so the spinner can
// name the current stage.
func runStages(ctx context.Context, runner *pipeline.Runner, opts pipeline.Options, spinner *Spinner) (*pipeline.Result, error) {
	if err := opts.ValidateAndSetDefaults(); err != nil {
		return nil, err
	}
	result := &pipeline.Result{}
	result.Stats.Items = len(opts.Outfit.Items)

	start := time.Now()
	stored := runner.FetchFits(ctx, opts)
	result.Stats.FitsTime = time.Since(start)
	result.Stats.StoredFits = len(stored)

	spinner.Update(fmt.Sprintf("Laying out %d items...", len(opts.Outfit.Items)))
	start = time.Now()
	layout, hit, err := runner.LayoutWithCacheInfo(ctx, opts, stored)
	if err != nil {
		return nil, err
	}
	result.Layout = layout
	result.Stats.LayoutTime = time.Since(start)
	result.Stats.Placed = layout.Placed()
	result.Stats.Skipped = len(layout.Skipped)
	result.CacheInfo.LayoutHit = hit

	spinner.Update("Rendering " + strings.Join(opts.Formats, ", ") + "...")
	start = time.Now()
	artifacts, hash, hit, err := runner.RenderWithCacheInfo(ctx, layout, opts)
	if err != nil {
		return nil, err
	}
	result.Artifacts = artifacts
	result.LayoutHash = hash
	result.Stats.RenderTime = time.Since(start)
	result.CacheInfo.RenderHit = hit

	loggerFromContext(ctx).Debug("pipeline finished",
		"stored_fits", result.Stats.StoredFits,
		"fits", result.Stats.FitsTime,
		"layout", result.Stats.LayoutTime,
		"render", result.Stats.RenderTime)
	return result, nil
}
