package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/Mr-Dark-debug/codevis/internal/manifest"
	"github.com/Mr-Dark-debug/codevis/pkg/timeutil"
)

// renderRecent renders the cached manifest selection screen.
func renderRecent(m *Model, height int) string {
	st := m.st
	if len(m.recent) == 0 {
		empty := st.emptyState.Render(
			"No cached repositories.\n\n" +
				"Press o and enter a GitHub URL, a manifest file\n" +
				"or a local directory to start exploring.")
		return lipgloss.Place(m.width, height, lipgloss.Center, lipgloss.Center, empty)
	}

	heading := st.panelTitle.Render("Recent") +
		st.dim.Render(fmt.Sprintf("  %d cached", len(m.recent)))

	lines := []string{heading, ""}

	// Visible range for scrolling
	maxVisible := max(height-3, 5)
	start := scrollStart(m.selectedRecent, maxVisible)
	end := min(start+maxVisible, len(m.recent))

	for i := start; i < end; i++ {
		info := m.recent[i]

		dot := st.nodeStyle(st.pal.Typed).Render("●")
		if info.Truncated {
			dot = st.warning.Render("○")
		}

		kind := st.dim.Render(fmt.Sprintf("%-6s", manifest.KindOf(info.Key)))
		count := st.dim.Render(fmt.Sprintf("%7s entries", timeutil.FormatCount(info.EntryCount)))
		when := st.dim.Render(timeutil.FormatTimestampFull(info.FetchedAt) +
			" (" + timeutil.RelativeTime(info.FetchedAt) + ")")

		name := info.Key
		if _, rest, ok := strings.Cut(name, ":"); ok {
			name = rest
		}
		name = truncate(name, max(m.width/2, 10))

		content := fmt.Sprintf("%s  %s %s  %s  %s", dot, kind, name, count, when)

		if i == m.selectedRecent {
			lines = append(lines, st.itemSelected.Width(m.width-4).Render(content))
		} else {
			lines = append(lines, st.item.Width(m.width-4).Render(content))
		}
	}

	return strings.Join(lines, "\n")
}
