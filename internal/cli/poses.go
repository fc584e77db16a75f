package cli

import (
	"encoding/json"
	"fmt"
	"os"
	"slices"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/matzehuels/tryon/pkg/pose"
)

// posesCommand creates the poses command for inspecting mannequin poses.
func (c *CLI) posesCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "poses",
		Short: "List and inspect mannequin poses",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := c.config()
			if err != nil {
				return err
			}
			reg, err := cfg.PoseRegistry()
			if err != nil {
				return err
			}
			for _, id := range reg.IDs() {
				if id == cfg.Poses.Canonical {
					fmt.Println(styleAccent.Render(id) + " " + styleDim.Render("(canonical)"))
					continue
				}
				fmt.Println(id)
			}
			return nil
		},
	}

	cmd.AddCommand(c.posesShowCommand())
	return cmd
}

// posesShowCommand creates the "poses show" subcommand.
func (c *CLI) posesShowCommand() *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "show [pose-id]",
		Short: "Show the anchors of a pose",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := c.config()
			if err != nil {
				return err
			}
			reg, err := cfg.PoseRegistry()
			if err != nil {
				return err
			}
			a, err := reg.Get(args[0])
			if err != nil {
				return err
			}
			if asJSON {
				enc := json.NewEncoder(os.Stdout)
				enc.SetIndent("", "  ")
				return enc.Encode(a)
			}
			printPose(a)
			return nil
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "print the pose as JSON")
	return cmd
}

func printPose(a *pose.Anchors) {
	fmt.Println(styleTitle.Render(a.ID))
	printKeyValue("neck", fmt.Sprintf("%s, %s", formatFloat(a.Neck.X), formatFloat(a.Neck.Y)))
	printKeyValue("hem", fmt.Sprintf("%s..%s at %s", formatFloat(a.Hem.X1), formatFloat(a.Hem.X2), formatFloat(a.Hem.Y)))
	printKeyValue("occluders", strconv.Itoa(a.OccluderZ))

	boxes := newTable(func(col int) bool { return col > 0 }, "REGION", "X", "Y", "W", "H")
	for _, r := range pose.Regions {
		b := a.Boxes[r]
		boxes.Row(string(r), formatFloat(b.X), formatFloat(b.Y), formatFloat(b.W), formatFloat(b.H))
	}
	fmt.Println(boxes.String())

	cats := slices.Clone(pose.Categories)
	slices.SortStableFunc(cats, func(x, y pose.Category) int { return a.DefaultZ(x) - a.DefaultZ(y) })
	order := newTable(func(col int) bool { return col == 1 }, "CATEGORY", "Z")
	for _, cat := range cats {
		order.Row(cat.String(), strconv.Itoa(a.DefaultZ(cat)))
	}
	fmt.Println(order.String())
}
