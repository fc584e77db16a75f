package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/matzehuels/tryon/pkg/gizmo"
)

// gizmoGraphCommand creates a debug command that draws the gizmo
// controller's state machine.
func (c *CLI) gizmoGraphCommand() *cobra.Command {
	var format string
	var output string

	cmd := &cobra.Command{
		Use:    "gizmo-graph",
		Short:  "Draw the gizmo state machine (debug)",
		Hidden: true,
		Example: `  tryon gizmo-graph
  tryon gizmo-graph --format svg -o gizmo.svg`,
		RunE: func(cmd *cobra.Command, args []string) error {
			dot := gizmo.ToDOT()

			var data []byte
			var err error
			switch format {
			case "dot":
				data = []byte(dot)
			case "svg":
				data, err = gizmo.RenderSVG(cmd.Context(), dot)
			case "png":
				data, err = gizmo.RenderPNG(cmd.Context(), dot)
			default:
				return fmt.Errorf("invalid format: %q (must be one of: dot, svg, png)", format)
			}
			if err != nil {
				return err
			}

			if output == "" {
				_, err := os.Stdout.Write(data)
				return err
			}
			if err := os.WriteFile(output, data, 0o644); err != nil {
				return fmt.Errorf("write %s: %w", output, err)
			}
			printSuccess("Wrote %d transitions", len(gizmo.Transitions()))
			printFile(output)
			return nil
		},
	}

	cmd.Flags().StringVarP(&format, "format", "f", "dot", "output format: dot, svg, png")
	cmd.Flags().StringVarP(&output, "output", "o", "", "output file (default: stdout)")
	return cmd
}
