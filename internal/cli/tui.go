package cli

import (
	"context"
	"fmt"
	"math"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"github.com/matzehuels/tryon/pkg/coords"
	"github.com/matzehuels/tryon/pkg/studio"
)

// List styles
var (
	listSelectedStyle = lipgloss.NewStyle().Bold(true).Foreground(colorAccent)
	listNormalStyle   = lipgloss.NewStyle().Foreground(colorValue)
	listDimStyle      = lipgloss.NewStyle().Foreground(colorDim)
)

// Keyboard gesture sizes in stage pixels and degrees.
const (
	nudgePx     = 4.0
	nudgeFastPx = 20.0
	rotateStep  = 5.0
	scaleStepPx = 15.0 // 0.05 of the fit at the default scale reference
)

// =============================================================================
// Messages
// =============================================================================

// changedMsg reports that the studio view changed.
type changedMsg struct{}

// saveFailedMsg carries a failed background save.
type saveFailedMsg struct{ err studio.SaveError }

// savedAllMsg reports the result of an explicit save.
type savedAllMsg struct{ err error }

// statusMsg replaces the status line.
type statusMsg string

// =============================================================================
// EditModel - Interactive fit editor
// =============================================================================

// EditModel is the bubbletea model driving a studio session from the
// keyboard. Keys are turned into the pointer gestures a mouse would make,
// so every edit goes through the gizmo and commits like a drag would.
type EditModel struct {
	ctx     context.Context
	st      *studio.Studio
	changes <-chan struct{}
	items   []string
	Cursor  int
	Status  string
	Errors  []string
	preview func(studio.Snapshot) (string, error)
}

// NewEditModel creates an editor for st. changes receives a value
// whenever the studio view changed.
func NewEditModel(ctx context.Context, st *studio.Studio, items []string, changes <-chan struct{}) EditModel {
	return EditModel{ctx: ctx, st: st, items: items, changes: changes}
}

func (m EditModel) Init() tea.Cmd {
	cmds := []tea.Cmd{m.waitChange(), m.waitFailure()}
	if len(m.items) > 0 {
		cmds = append(cmds, m.selectCmd(0))
	}
	return tea.Batch(cmds...)
}

func (m EditModel) waitChange() tea.Cmd {
	return func() tea.Msg {
		select {
		case <-m.changes:
			return changedMsg{}
		case <-m.ctx.Done():
			return nil
		}
	}
}

func (m EditModel) waitFailure() tea.Cmd {
	return func() tea.Msg {
		e, ok := <-m.st.Failures()
		if !ok {
			return nil
		}
		return saveFailedMsg{err: e}
	}
}

func (m EditModel) selectCmd(i int) tea.Cmd {
	id := m.items[i]
	return func() tea.Msg {
		if err := m.st.Select(id); err != nil {
			return statusMsg(err.Error())
		}
		return changedMsg{}
	}
}

func (m EditModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case changedMsg:
		return m, m.waitChange()
	case saveFailedMsg:
		m.Errors = append(m.Errors, msg.err.Error())
		return m, m.waitFailure()
	case statusMsg:
		m.Status = string(msg)
		return m, nil
	case savedAllMsg:
		if msg.err != nil {
			m.Status = msg.err.Error()
		} else {
			m.Status = "saved"
		}
		return m, nil
	case tea.KeyMsg:
		return m.handleKey(msg)
	}
	return m, nil
}

func (m EditModel) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	m.Status = ""
	switch msg.String() {
	case "q", "ctrl+c", "esc":
		return m, tea.Quit
	case "tab", "j":
		if len(m.items) > 0 {
			m.Cursor = (m.Cursor + 1) % len(m.items)
			return m, m.selectCmd(m.Cursor)
		}
	case "shift+tab", "k":
		if len(m.items) > 0 {
			m.Cursor = (m.Cursor + len(m.items) - 1) % len(m.items)
			return m, m.selectCmd(m.Cursor)
		}
	case "left":
		m.Status = m.drag(-nudgePx, 0)
	case "right":
		m.Status = m.drag(nudgePx, 0)
	case "up":
		m.Status = m.drag(0, -nudgePx)
	case "down":
		m.Status = m.drag(0, nudgePx)
	case "shift+left":
		m.Status = m.drag(-nudgeFastPx, 0)
	case "shift+right":
		m.Status = m.drag(nudgeFastPx, 0)
	case "shift+up":
		m.Status = m.drag(0, -nudgeFastPx)
	case "shift+down":
		m.Status = m.drag(0, nudgeFastPx)
	case "r":
		m.Status = m.rotate(rotateStep)
	case "R":
		m.Status = m.rotate(-rotateStep)
	case "+", "=":
		m.Status = m.scale(scaleStepPx)
	case "-":
		m.Status = m.scale(-scaleStepPx)
	case "s":
		m.Status = "saving..."
		return m, func() tea.Msg { return savedAllMsg{err: m.st.SaveAll(m.ctx)} }
	case "p":
		if m.preview != nil {
			path, err := m.preview(m.st.Snapshot())
			if err != nil {
				m.Status = err.Error()
			} else {
				m.Status = "wrote " + path
			}
		}
	}
	return m, nil
}

// drag presses on the selected garment's center and moves it by (dx, dy).
func (m EditModel) drag(dx, dy float64) string {
	snap := m.st.Snapshot()
	if snap.Selected == "" || snap.Frame.Overlay == nil {
		return "nothing selected"
	}
	from := snap.Frame.Overlay.Box.Center()
	if err := m.st.PointerDown(from); err != nil {
		return err.Error()
	}
	if m.st.Snapshot().Selected != snap.Selected {
		// Another garment covers the center; drop the gesture uncommitted.
		m.st.Deselect()
		_ = m.st.Select(snap.Selected)
		return snap.Selected + " is covered, select the garment on top"
	}
	to := from.Add(coords.Point{X: dx, Y: dy})
	m.st.PointerMove(to)
	m.st.PointerUp(to)
	return ""
}

// rotate drags the rotate handle around the garment center by deg.
func (m EditModel) rotate(deg float64) string {
	snap := m.st.Snapshot()
	ov := snap.Frame.Overlay
	if snap.Selected == "" || ov == nil {
		return "nothing selected"
	}
	t, _ := m.st.Fit(snap.Selected)
	center := ov.Box.Center()
	r := ov.RotateHandle.Sub(center).Len()
	theta := coords.Radians(t.RotationDeg + deg)
	to := center.Add(coords.Point{X: r * math.Sin(theta), Y: -r * math.Cos(theta)})

	if err := m.st.PointerDown(ov.RotateHandle); err != nil {
		return err.Error()
	}
	m.st.PointerMove(to)
	m.st.PointerUp(to)
	return ""
}

// scale drags the scale handle away from (or toward) the garment center.
func (m EditModel) scale(px float64) string {
	snap := m.st.Snapshot()
	ov := snap.Frame.Overlay
	if snap.Selected == "" || ov == nil {
		return "nothing selected"
	}
	dir := ov.ScaleHandle.Sub(ov.Box.Center())
	n := dir.Len()
	if n == 0 {
		return ""
	}
	to := ov.ScaleHandle.Add(coords.Point{X: dir.X / n * px, Y: dir.Y / n * px})

	if err := m.st.PointerDown(ov.ScaleHandle); err != nil {
		return err.Error()
	}
	m.st.PointerMove(to)
	m.st.PointerUp(to)
	return ""
}

func (m EditModel) View() string {
	snap := m.st.Snapshot()
	var b strings.Builder

	title := styleTitle.Render("tryon edit")
	state := styleDim.Render(snap.State.String())
	if snap.Loading {
		state += styleDim.Render(" · loading saved fits")
	}
	b.WriteString(title + "  " + state + "\n\n")

	dirty := make(map[string]bool, len(snap.Dirty))
	for _, id := range snap.Dirty {
		dirty[id] = true
	}

	rows := make([][]string, 0, len(m.items))
	for i, id := range m.items {
		cursor := " "
		if i == m.Cursor {
			cursor = "›"
		}
		mark := ""
		if dirty[id] {
			mark = "●"
		}
		t, ok := m.st.Fit(id)
		if !ok {
			rows = append(rows, []string{cursor, id, "-", "-", "-", "-", mark})
			continue
		}
		rows = append(rows, []string{
			cursor, id,
			fmt.Sprintf("%.4f", t.X),
			fmt.Sprintf("%.4f", t.Y),
			fmt.Sprintf("%.3f", t.Scale),
			fmt.Sprintf("%.1f°", t.RotationDeg),
			mark,
		})
	}

	t := table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(styleDim).
		Headers("", "Item", "X", "Y", "Scale", "Rotation", "").
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == -1 {
				return styleHeader
			}
			if row == m.Cursor {
				return listSelectedStyle
			}
			if col == 6 {
				return styleWarn
			}
			return listNormalStyle
		})
	b.WriteString(t.String() + "\n")

	for _, s := range snap.Skipped {
		b.WriteString(styleWarn.Render(fmt.Sprintf("! %s skipped: %s", s.ItemID, s.Reason)) + "\n")
	}
	for _, e := range m.Errors {
		b.WriteString(styleErr.Render(iconErr) + " " + e + "\n")
	}
	if m.Status != "" {
		b.WriteString(styleDim.Render(m.Status) + "\n")
	}

	b.WriteString("\n" + listDimStyle.Render("tab select · arrows move · r/R rotate · +/- scale · s save · p preview · q quit") + "\n")
	return b.String()
}
