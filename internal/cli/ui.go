package cli

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"github.com/matzehuels/tryon/pkg/fit"
	"github.com/matzehuels/tryon/pkg/pipeline"
)

// Terminal palette (ANSI 256).
var (
	colorAccent = lipgloss.Color("36")
	colorOK     = lipgloss.Color("35")
	colorWarn   = lipgloss.Color("220")
	colorErr    = lipgloss.Color("167")
	colorCmd    = lipgloss.Color("75")
	colorValue  = lipgloss.Color("255")
	colorLabel  = lipgloss.Color("245")
	colorDim    = lipgloss.Color("240")
)

var (
	styleTitle  = lipgloss.NewStyle().Bold(true).Foreground(colorAccent)
	styleAccent = lipgloss.NewStyle().Foreground(colorAccent)
	styleDim    = lipgloss.NewStyle().Foreground(colorDim)
	styleValue  = lipgloss.NewStyle().Foreground(colorValue)
	styleLabel  = lipgloss.NewStyle().Foreground(colorLabel)
	styleOK     = lipgloss.NewStyle().Foreground(colorOK)
	styleWarn   = lipgloss.NewStyle().Foreground(colorWarn)
	styleErr    = lipgloss.NewStyle().Foreground(colorErr)
	styleCmd    = lipgloss.NewStyle().Foreground(colorCmd)
	styleHeader = lipgloss.NewStyle().Bold(true).Foreground(colorLabel).Padding(0, 1)
	styleKey    = styleLabel.Width(12)
	styleCell   = styleValue.Padding(0, 1)
	styleNumber = styleAccent.Padding(0, 1)
)

const (
	iconOK    = "✓"
	iconErr   = "✗"
	iconWarn  = "!"
	iconInfo  = "›"
	iconArrow = "→"
	dot       = " · "
)

func status(icon lipgloss.Style, glyph, msg string) {
	fmt.Println(icon.Render(glyph) + " " + msg)
}

func printSuccess(format string, args ...any) {
	status(styleOK, iconOK, fmt.Sprintf(format, args...))
}

func printError(format string, args ...any) {
	status(styleErr, iconErr, fmt.Sprintf(format, args...))
}

func printWarning(format string, args ...any) {
	status(styleWarn, iconWarn, styleWarn.Render(fmt.Sprintf(format, args...)))
}

func printInfo(format string, args ...any) {
	status(styleLabel, iconInfo, fmt.Sprintf(format, args...))
}

// printDetail prints an indented secondary line.
func printDetail(format string, args ...any) {
	fmt.Println("  " + styleDim.Render(fmt.Sprintf(format, args...)))
}

// printFile prints a written output path.
func printFile(path string) {
	fmt.Println("  " + styleDim.Render(iconArrow) + " " + styleValue.Render(path))
}

func printKeyValue(key, value string) {
	fmt.Println(styleKey.Render(key) + " " + styleValue.Render(value))
}

func printNextStep(description, cmd string) {
	fmt.Println(styleDim.Render(description+":") + " " + styleCmd.Render(cmd))
}

func printNewline() { fmt.Println() }

// printStats prints "N placed · M skipped · cached|fresh".
func printStats(placed, skipped int, cached bool) {
	parts := []string{styleDim.Render(fmt.Sprintf("%d placed", placed))}
	if skipped > 0 {
		parts = append(parts, styleDim.Render(fmt.Sprintf("%d skipped", skipped)))
	}
	if cached {
		parts = append(parts, styleOK.Render("cached"))
	} else {
		parts = append(parts, styleLabel.Render("fresh"))
	}
	fmt.Println("  " + strings.Join(parts, styleDim.Render(dot)))
}

// printSkipped warns about items left off the stage and items whose saved
// fit was rejected in favor of the default.
func printSkipped(l pipeline.Layout) {
	for _, s := range l.Skipped {
		printWarning("Skipped %s: %s", s.ItemID, s.Reason)
	}
	for _, id := range l.Defaulted {
		printWarning("Invalid fit for %s, using default", id)
	}
}

// newTable returns a rounded table whose numeric columns are highlighted.
func newTable(numeric func(col int) bool, headers ...string) *table.Table {
	return table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(styleDim).
		Headers(headers...).
		StyleFunc(func(row, col int) lipgloss.Style {
			switch {
			case row == -1:
				return styleHeader
			case numeric != nil && numeric(col):
				return styleNumber
			default:
				return styleCell
			}
		})
}

func fitsTable(recs []fit.Record) string {
	t := newTable(func(col int) bool { return col >= 2 && col <= 5 },
		"ITEM", "POSE", "X", "Y", "SCALE", "ROTATION", "UPDATED")
	for _, r := range recs {
		tr := r.Transform
		t.Row(r.ItemID, r.PoseID,
			formatFloat(tr.X), formatFloat(tr.Y), formatFloat(tr.Scale), formatDeg(tr.RotationDeg),
			r.UpdatedAt.Local().Format("2006-01-02 15:04"))
	}
	return t.String()
}

func printTransform(t fit.Transform) {
	printKeyValue("offset", formatFloat(t.X)+", "+formatFloat(t.Y))
	printKeyValue("scale", formatFloat(t.Scale))
	printKeyValue("rotation", formatDeg(t.RotationDeg))
	if n := len(t.Mesh); n > 0 {
		printKeyValue("mesh", fmt.Sprintf("%d points", n))
	}
}

func formatFloat(v float64) string { return strconv.FormatFloat(v, 'f', -1, 64) }

func formatDeg(v float64) string { return formatFloat(v) + "°" }
