package gizmo

import (
	"bytes"
	"context"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/goccy/go-graphviz"
)

// Transition is one edge of the controller state machine.
type Transition struct {
	From   State
	Event  string
	To     State
	Commit bool
}

// Transitions returns the controller's transition table.
func Transitions() []Transition {
	return []Transition{
		{Idle, "down on garment", Dragging, false},
		{Idle, "down on canvas", Idle, false},
		{Selected, "down on garment", Dragging, false},
		{Selected, "down on rotate handle", Rotating, false},
		{Selected, "down on scale handle", Scaling, false},
		{Selected, "down on canvas", Idle, false},
		{Selected, "wheel over selection", Selected, false},
		{Dragging, "move", Dragging, false},
		{Dragging, "up / up outside", Selected, true},
		{Rotating, "move", Rotating, false},
		{Rotating, "up / up outside", Selected, true},
		{Scaling, "move", Scaling, false},
		{Scaling, "up / up outside", Selected, true},
	}
}

// ToDOT renders the transition table as a Graphviz digraph. Committing
// transitions are drawn bold.
func ToDOT() string {
	var b strings.Builder
	b.WriteString(`digraph gizmo {
  rankdir=LR;
  bgcolor="transparent";
  node [shape=box, style="rounded,filled", fillcolor=white, fontsize=14];
  edge [fontsize=10];
`)
	for _, s := range []State{Idle, Selected, Dragging, Rotating, Scaling} {
		fmt.Fprintf(&b, "  %q;\n", s.String())
	}
	for _, t := range Transitions() {
		label, style := t.Event, ""
		if t.Commit {
			label, style = label+`\ncommit`, ", style=bold"
		}
		fmt.Fprintf(&b, "  %q -> %q [label=\"%s\"%s];\n", t.From.String(), t.To.String(), label, style)
	}
	b.WriteString("}\n")
	return b.String()
}

// RenderSVG lays out a DOT graph and returns it as SVG sized to its
// view box.
func RenderSVG(ctx context.Context, dot string) ([]byte, error) {
	out, err := layoutDOT(ctx, dot, graphviz.SVG)
	if err != nil {
		return nil, err
	}
	return fitSVG(out), nil
}

// RenderPNG lays out a DOT graph and returns it as PNG.
func RenderPNG(ctx context.Context, dot string) ([]byte, error) {
	return layoutDOT(ctx, dot, graphviz.PNG)
}

func layoutDOT(ctx context.Context, dot string, format graphviz.Format) ([]byte, error) {
	gv, err := graphviz.New(ctx)
	if err != nil {
		return nil, fmt.Errorf("graphviz: %w", err)
	}
	defer gv.Close()

	g, err := graphviz.ParseBytes([]byte(dot))
	if err != nil {
		return nil, fmt.Errorf("graphviz: parse: %w", err)
	}
	defer g.Close()

	var out bytes.Buffer
	if err := gv.Render(ctx, g, format, &out); err != nil {
		return nil, fmt.Errorf("graphviz: render %s: %w", format, err)
	}
	return out.Bytes(), nil
}

var (
	svgOpenTag = regexp.MustCompile(`<svg[^>]*>`)
	svgViewBox = regexp.MustCompile(`viewBox="[0-9.]+\s+[0-9.]+\s+([0-9.]+)\s+([0-9.]+)"`)
)

// fitSVG replaces the root element so the document scales to its view box.
// Graphviz emits pt sizes and a translated origin, which browsers render
// clipped when the SVG is embedded.
func fitSVG(svg []byte) []byte {
	m := svgViewBox.FindSubmatch(svg)
	if m == nil {
		return svg
	}
	w, errW := strconv.ParseFloat(string(m[1]), 64)
	h, errH := strconv.ParseFloat(string(m[2]), 64)
	if errW != nil || errH != nil || w <= 0 || h <= 0 {
		return svg
	}
	root := fmt.Sprintf(`<svg xmlns="http://www.w3.org/2000/svg" viewBox="0 0 %.2f %.2f" width="%.0f" height="%.0f">`, w, h, w, h)
	return svgOpenTag.ReplaceAll(svg, []byte(root))
}
