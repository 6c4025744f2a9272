package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/Mr-Dark-debug/codevis/internal/explorer"
	"github.com/Mr-Dark-debug/codevis/internal/export"
	"github.com/Mr-Dark-debug/codevis/internal/graph"
	"github.com/Mr-Dark-debug/codevis/pkg/timeutil"
)

// renderDetail renders the selected node and a summary of the tree.
func renderDetail(m *Model, width, height int) string {
	st := m.st
	titleStyle := st.panelTitleDim
	if m.activePane == PaneDetail {
		titleStyle = st.panelTitle
	}
	title := titleStyle.Render("Detail")

	info, err := m.ctrl.Selected()
	if err != nil {
		return title + "\n\n" + st.emptyState.Render("Select a node to view details.")
	}

	lines := []string{title, ""}

	// ── Node ──

	path := info.ID
	if info.IsRoot() {
		path = "/"
	}
	color := m.ctrl.Styler().ColorFor(info.Meta, m.theme)
	swatch := lipgloss.NewStyle().Foreground(color).Render("● ") + st.dim.Render(string(color))

	lines = append(lines,
		detailRow(st, "Path", truncateLeft(path, width-8)),
		detailRow(st, "Kind", info.Kind.String()),
		detailRow(st, "Depth", fmt.Sprintf("%d", info.Depth)),
		detailRow(st, "Color", swatch),
		detailRow(st, "Size", fmt.Sprintf("%.1f", m.ctrl.Styler().SizeFor(info.Meta))),
	)
	if info.Kind == graph.KindDirectory {
		state := "expanded"
		if info.Collapsed {
			state = "collapsed"
		}
		lines = append(lines,
			detailRow(st, "Children", fmt.Sprintf("%d", info.ChildCount)),
			detailRow(st, "State", state),
		)
	}
	if !info.Visible {
		lines = append(lines, st.warning.Render("hidden under a collapsed ancestor"))
	} else if ft, ok := focusFor(m, info.ID); ok {
		lines = append(lines, detailRow(st, "Focus",
			fmt.Sprintf("(%.0f, %.0f, %.0f) %s", ft.X, ft.Y, ft.Z, timeutil.FormatDuration(int64(ft.DurationMs)))))
	}

	// ── Tree summary ──

	if r := m.report; r != nil {
		barWidth := min(width-14, 40)

		lines = append(lines, "", st.detailSection.Render("Tree Summary"))
		lines = append(lines,
			detailRow(st, "Files", timeutil.FormatCount(r.Files)),
			detailRow(st, "Directories", timeutil.FormatCount(r.Directories)),
			detailRow(st, "Max depth", fmt.Sprintf("%d", r.MaxDepth)),
			detailRow(st, "Loaded in", timeutil.FormatDuration(r.LoadMs)),
		)

		if r.Files > 0 && barWidth > 4 {
			lines = append(lines, "")
			lines = append(lines, renderUsageBar(st, "typed", r.TypedFiles, r.Files, barWidth, st.pal.Typed))
			lines = append(lines, renderUsageBar(st, "other", r.Files-r.TypedFiles, r.Files, barWidth, st.pal.Generic))
		}

		if len(r.Extensions) > 0 {
			lines = append(lines, "", st.detailSection.Render("Extensions"))
			for _, e := range r.Extensions[:min(len(r.Extensions), 5)] {
				ext := e.Ext
				if ext == "" {
					ext = "(none)"
				}
				lines = append(lines, detailRow(st, fmt.Sprintf("%-8s", ext), fmt.Sprintf("%d", e.Count)))
			}
		}
	}

	// Truncate to available height
	if len(lines) > height {
		lines = lines[:height]
	}

	return strings.Join(lines, "\n")
}

// focusFor returns the camera move to id at its radial layout position,
// seen from the home view.
func focusFor(m *Model, id string) (explorer.FocusTarget, bool) {
	if m.snap == nil {
		return explorer.FocusTarget{}, false
	}
	pos, ok := export.RadialLayout(m.snap, 0).Position(id)
	if !ok {
		return explorer.FocusTarget{}, false
	}
	ft, err := m.ctrl.ComputeFocusTarget(id, pos, m.ctrl.Camera().Home)
	if err != nil {
		return explorer.FocusTarget{}, false
	}
	return ft, true
}

// renderDetailPanel wraps detail in a styled panel.
func renderDetailPanel(m *Model, width, height int) string {
	content := renderDetail(m, width-4, height-2)

	style := m.st.panel
	if m.activePane == PaneDetail {
		style = m.st.panelActive
	}

	return style.Width(width).Height(height).Render(content)
}

// ── helpers ──

func detailRow(st styles, label, value string) string {
	return st.detailLabel.Render(label) + "  " + st.detailValue.Render(value)
}

func renderUsageBar(st styles, label string, count, total, barWidth int, color lipgloss.Color) string {
	if total == 0 {
		return ""
	}
	pct := count * 100 / total
	filled := barWidth * count / total
	if filled < 1 && count > 0 {
		filled = 1
	}
	empty := barWidth - filled

	bar := lipgloss.NewStyle().Foreground(color).Render(strings.Repeat("█", filled)) +
		st.barEmpty.Render(strings.Repeat("░", empty))

	return fmt.Sprintf("%-6s %s %d%%", label, bar, pct)
}
