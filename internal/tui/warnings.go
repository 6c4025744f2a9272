package tui

import (
	"fmt"
	"strings"
)

// renderWarnings renders the structural warnings of the loaded manifest.
func renderWarnings(m *Model, width, height int) string {
	st := m.st
	titleStyle := st.panelTitleDim
	if m.activePane == PaneWarnings {
		titleStyle = st.panelTitle
	}

	title := titleStyle.Render("Warnings")

	if len(m.warnings) == 0 {
		return title + "\n" + st.context.Render("Manifest is consistent.")
	}

	title += st.dim.Render(fmt.Sprintf("  %d", len(m.warnings)))

	var lines []string
	for _, w := range m.warnings {
		idx := st.context.Render(fmt.Sprintf("#%-5d", w.Index))
		path := st.warning.Render("~ " + truncateLeft(w.Path, width/2))
		reason := st.dim.Render(truncate(w.Reason, max(width-width/2-12, 8)))
		lines = append(lines, idx+" "+path+"  "+reason)
	}

	// Apply scroll offset
	contentHeight := height - 1
	if m.warnScroll > 0 && m.warnScroll < len(lines) {
		lines = lines[m.warnScroll:]
	}
	if len(lines) > contentHeight {
		lines = lines[:max(contentHeight, 0)]
	}

	return title + "\n" + strings.Join(lines, "\n")
}

// renderWarningsPanel wraps the warnings in a styled panel.
func renderWarningsPanel(m *Model, width, height int) string {
	content := renderWarnings(m, width-4, height-2)

	style := m.st.panel
	if m.activePane == PaneWarnings {
		style = m.st.panelActive
	}

	return style.Width(width).Height(height).Render(content)
}
