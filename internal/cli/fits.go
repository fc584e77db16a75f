package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/matzehuels/tryon/internal/config"
	"github.com/matzehuels/tryon/pkg/errors"
	"github.com/matzehuels/tryon/pkg/fit"
	"github.com/matzehuels/tryon/pkg/fitstore"
)

// fitsCommand creates the fits command for managing saved fits.
func (c *CLI) fitsCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "fits",
		Short: "Read, write and delete saved fits",
		Long: `Manage the saved fits of the configured user.

Fits are stored per user, item and pose in the backend named by the
[store] section of the config file.`,
	}

	cmd.AddCommand(c.fitsGetCommand())
	cmd.AddCommand(c.fitsSetCommand())
	cmd.AddCommand(c.fitsDeleteCommand())

	return cmd
}

// fitsGetCommand creates the "fits get" subcommand.
func (c *CLI) fitsGetCommand() *cobra.Command {
	var poseID string
	var asJSON bool

	cmd := &cobra.Command{
		Use:     "get [item-id...]",
		Short:   "Show saved fits",
		Example: `  tryon fits get shirt jeans`,
		Args:    cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			cfg, err := c.config()
			if err != nil {
				return err
			}
			if poseID == "" {
				poseID = cfg.Poses.Canonical
			}
			recs, err := c.fetchRecords(ctx, cfg, poseID, args)
			if err != nil {
				return err
			}
			if asJSON {
				enc := json.NewEncoder(os.Stdout)
				enc.SetIndent("", "  ")
				return enc.Encode(recs)
			}
			if len(recs) == 0 {
				printInfo("No saved fits for %s on %s", strings.Join(args, ", "), poseID)
				return nil
			}
			fmt.Println(fitsTable(recs))
			return nil
		},
	}

	cmd.Flags().StringVar(&poseID, "pose", "", "pose id (default: canonical pose)")
	cmd.Flags().BoolVar(&asJSON, "json", false, "print records as JSON")
	return cmd
}

// fetchRecords returns full records. The remote backend only exposes
// transforms, so its records carry no id or timestamp.
func (c *CLI) fetchRecords(ctx context.Context, cfg *config.Config, poseID string, itemIDs []string) ([]fit.Record, error) {
	if cfg.Store.Backend == config.BackendRemote {
		a, closeFits, err := openAdapter(ctx, cfg)
		if err != nil {
			return nil, err
		}
		defer closeFits()
		fits, err := a.FetchFits(ctx, poseID, itemIDs)
		if err != nil {
			return nil, err
		}
		var recs []fit.Record
		for _, id := range itemIDs {
			if t, ok := fits[id]; ok {
				recs = append(recs, fit.Record{UserID: cfg.Store.User, ItemID: id, PoseID: poseID, Transform: t, Mesh: t.Mesh})
			}
		}
		return recs, nil
	}

	s, err := openStore(ctx, cfg)
	if err != nil {
		return nil, err
	}
	defer s.Close()
	return fitstore.Fetch(ctx, s, cfg.Store.User, poseID, itemIDs)
}

// fitsSetCommand creates the "fits set" subcommand.
func (c *CLI) fitsSetCommand() *cobra.Command {
	var poseID string
	var t fit.Transform

	cmd := &cobra.Command{
		Use:   "set [item-id]",
		Short: "Save a fit",
		Long: `Save the fit of an item, replacing any previous fit on the same pose.

Offsets are in mannequin widths (x) and heights (y) from the anchor
center; scale multiplies the default fit.`,
		Example: `  tryon fits set shirt --x 0.02 --y -0.01 --scale 1.1 --rotation 4`,
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			cfg, err := c.config()
			if err != nil {
				return err
			}
			if poseID == "" {
				poseID = cfg.Poses.Canonical
			}
			a, closeFits, err := openAdapter(ctx, cfg)
			if err != nil {
				return err
			}
			defer closeFits()

			rec, err := a.SaveFit(ctx, args[0], poseID, t)
			if err != nil {
				return err
			}
			printSuccess("Saved fit for %s on %s", rec.ItemID, rec.PoseID)
			printTransform(rec.Fit())
			return nil
		},
	}

	cmd.Flags().StringVar(&poseID, "pose", "", "pose id (default: canonical pose)")
	cmd.Flags().Float64Var(&t.X, "x", 0, "horizontal offset in mannequin widths")
	cmd.Flags().Float64Var(&t.Y, "y", 0, "vertical offset in mannequin heights")
	cmd.Flags().Float64Var(&t.Scale, "scale", 1, "scale relative to the default fit")
	cmd.Flags().Float64Var(&t.RotationDeg, "rotation", 0, "rotation in degrees, clockwise")
	return cmd
}

// fitsDeleteCommand creates the "fits delete" subcommand.
func (c *CLI) fitsDeleteCommand() *cobra.Command {
	var poseID string

	cmd := &cobra.Command{
		Use:     "delete [item-id...]",
		Aliases: []string{"rm"},
		Short:   "Delete saved fits",
		Args:    cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			cfg, err := c.config()
			if err != nil {
				return err
			}
			if poseID == "" {
				poseID = cfg.Poses.Canonical
			}
			if cfg.Store.Backend == config.BackendRemote {
				return errors.New(errors.ErrCodeInvalidInput, "the remote backend does not support deleting fits")
			}
			s, err := openStore(ctx, cfg)
			if err != nil {
				return err
			}
			defer s.Close()

			for _, id := range args {
				if err := errors.ValidateItemID(id); err != nil {
					return err
				}
				if err := s.Delete(ctx, fit.Key{User: cfg.Store.User, Pose: poseID, Item: id}); err != nil {
					return err
				}
			}
			printSuccess("Deleted %d fits on %s", len(args), poseID)
			return nil
		},
	}

	cmd.Flags().StringVar(&poseID, "pose", "", "pose id (default: canonical pose)")
	return cmd
}
