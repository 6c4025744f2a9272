package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/Mr-Dark-debug/codevis/pkg/timeutil"
)

// renderHeader produces the top bar:
//
//	CODEVIS  |  github:acme/widgets@main  |  1.2k nodes  |  48 visible  |  2m ago
func renderHeader(m *Model) string {
	st := m.st
	brand := st.headerBrand.Render("CODEVIS")
	sep := st.headerSep.Render(" │ ")

	parts := []string{brand}

	if name, at := m.ctrl.Source(); name != "" {
		parts = append(parts, sep, st.headerMeta.Render(truncateLeft(name, m.width/2)))
		if t := m.ctrl.Tree(); t != nil {
			parts = append(parts, sep, st.headerMeta.Render(
				timeutil.FormatCount(t.Len())+" nodes"))
		}
		if m.snap != nil {
			parts = append(parts, sep, st.headerMeta.Render(
				fmt.Sprintf("%d visible", len(m.snap.Nodes))))
		}
		parts = append(parts, sep, st.headerMeta.Render(timeutil.RelativeTime(at.UnixNano())))
	} else {
		parts = append(parts, sep, st.headerMeta.Render("Repository Explorer"))
	}

	if m.loading != "" {
		parts = append(parts, sep, st.warning.Render("loading…"))
	}

	return st.headerBar.Width(m.width).Render(strings.Join(parts, ""))
}

// renderFooter produces the bottom status bar with keyboard hints, or the
// input bar while one is open.
func renderFooter(m *Model) string {
	st := m.st
	var left, right string

	switch {
	case m.mode != inputNone:
		left = st.inputBar.Render(m.input.View())
		right = renderHints(st, []hint{
			{"enter", "submit"},
			{"esc", "cancel"},
		})
	case m.showRecent:
		left = renderStatus(m)
		right = renderHints(st, []hint{
			{"↑↓", "navigate"},
			{"enter", "open"},
			{"o", "new"},
			{"x", "forget"},
			{"q", "quit"},
		})
	default:
		left = renderStatus(m)
		right = renderHints(st, []hint{
			{"↑↓", "navigate"},
			{"enter", "toggle"},
			{"/", "search"},
			{"y", "copy"},
			{"t", "theme"},
			{"tab", "pane"},
			{"q", "quit"},
		})
	}

	gap := m.width - lipgloss.Width(left) - lipgloss.Width(right)
	if gap < 0 {
		// Drop the hints before the status.
		right = ""
		gap = max(m.width-lipgloss.Width(left), 0)
	}

	bar := left + strings.Repeat(" ", gap) + right
	return lipgloss.NewStyle().
		Background(st.pal.Surface).
		Width(m.width).
		Render(bar)
}

func renderStatus(m *Model) string {
	if m.statusMsg == "" {
		return ""
	}
	if m.err != nil {
		return m.st.statusError.Render(truncate(m.statusMsg, m.width/2))
	}
	return m.st.status.Render(truncate(m.statusMsg, m.width/2))
}

type hint struct {
	key  string
	desc string
}

func renderHints(st styles, hints []hint) string {
	var parts []string
	for _, h := range hints {
		parts = append(parts,
			st.hintKey.Render(h.key)+" "+st.hintDesc.Render(h.desc))
	}
	return strings.Join(parts, st.hintDesc.Render("  "))
}
