package scene

import (
	"github.com/matzehuels/tryon/pkg/coords"
	"github.com/matzehuels/tryon/pkg/pose"
)

// DebugBox is an anchor region in stage pixels.
type DebugBox struct {
	Region pose.Region     `json:"region"`
	Box    coords.StageBox `json:"box"`
}

// Line is a segment in stage pixels.
type Line struct {
	From coords.Point `json:"from"`
	To   coords.Point `json:"to"`
}

// DebugOverlay holds the debug drawing enabled in [Options]. Disabled
// parts are empty.
type DebugOverlay struct {
	Anchors []DebugBox    `json:"anchors,omitempty"`
	Neck    *coords.Point `json:"neck,omitempty"`
	Hem     *Line         `json:"hem,omitempty"`
	Grid    []Line        `json:"grid,omitempty"`
}

// Debug returns the debug overlay for the current geometry.
func (s *Scene) Debug() DebugOverlay {
	var d DebugOverlay
	if s.opts.DebugAnchors {
		for _, r := range pose.Regions {
			if b, ok := s.anchors.Boxes[r]; ok {
				d.Anchors = append(d.Anchors, DebugBox{Region: r, Box: s.geom.BoxToStage(b)})
			}
		}
		neck := s.geom.ToStage(s.anchors.Neck)
		d.Neck = &neck
		d.Hem = &Line{
			From: s.geom.ToStage(pose.Point{X: s.anchors.Hem.X1, Y: s.anchors.Hem.Y}),
			To:   s.geom.ToStage(pose.Point{X: s.anchors.Hem.X2, Y: s.anchors.Hem.Y}),
		}
	}
	if s.opts.DebugGrid {
		steps := int(1/s.opts.GridStep + 0.5)
		for i := 0; i <= steps; i++ {
			n := float64(i) * s.opts.GridStep
			if n > 1 {
				n = 1
			}
			d.Grid = append(d.Grid,
				Line{From: s.geom.ToStage(pose.Point{X: n, Y: 0}), To: s.geom.ToStage(pose.Point{X: n, Y: 1})},
				Line{From: s.geom.ToStage(pose.Point{X: 0, Y: n}), To: s.geom.ToStage(pose.Point{X: 1, Y: n})},
			)
		}
	}
	return d
}

// Normalized maps a stage point to mannequin-normalized coordinates.
func (s *Scene) Normalized(p coords.Point) pose.Point {
	return s.geom.FromStage(p)
}
