package tui

import (
	"fmt"
	"strings"

	"github.com/Mr-Dark-debug/codevis/internal/graph"
)

// renderTree renders the visible snapshot in the left pane.
func renderTree(m *Model, width, height int) string {
	st := m.st
	titleStyle := st.panelTitleDim
	if m.activePane == PaneTree {
		titleStyle = st.panelTitle
	}

	title := titleStyle.Render("Tree")
	if m.snap == nil || len(m.snap.Nodes) == 0 {
		return title + "\n\n" + st.emptyState.Render("Nothing loaded.")
	}
	nodes := m.snap.Nodes
	title += st.dim.Render(fmt.Sprintf("  %d visible", len(nodes)))

	lines := []string{title, ""}
	contentHeight := height - 3 // title, blank, scroll indicator

	start := scrollStart(m.cursor, contentHeight)
	end := min(start+contentHeight, len(nodes))

	for i := start; i < end; i++ {
		n := nodes[i]
		line := treeRow(m, n, isLastSibling(nodes, i), width)
		if i == m.cursor {
			line = st.nodeSelected.Width(width).Render(treeRowPlain(n, isLastSibling(nodes, i), width))
		}
		lines = append(lines, line)
	}

	// Scroll indicator
	if len(nodes) > contentHeight {
		pct := 0
		if len(nodes) > 1 {
			pct = m.cursor * 100 / (len(nodes) - 1)
		}
		lines = append(lines, st.dim.Render(
			fmt.Sprintf(" %d/%d (%d%%)", m.cursor+1, len(nodes), pct)))
	}

	return strings.Join(lines, "\n")
}

// treeRow renders one colored row: connector, expand marker, name.
func treeRow(m *Model, n graph.SnapshotNode, last bool, width int) string {
	st := m.st
	indent, connector, marker, name := treeParts(n, last, width)
	color := m.ctrl.Styler().ColorFor(n.Meta, m.theme)
	return indent +
		st.branch.Render(connector) +
		st.marker.Render(marker) +
		st.nodeStyle(color).Render(name)
}

// treeRowPlain is treeRow without colors, for the highlighted row.
func treeRowPlain(n graph.SnapshotNode, last bool, width int) string {
	indent, connector, marker, name := treeParts(n, last, width)
	return indent + connector + marker + name
}

func treeParts(n graph.SnapshotNode, last bool, width int) (indent, connector, marker, name string) {
	if n.IsRoot() {
		name = "/"
	} else {
		indent = strings.Repeat("  ", n.Depth-1)
		connector = "├─ "
		if last {
			connector = "└─ "
		}
		name = n.Name
	}

	switch {
	case n.Kind == graph.KindFile:
		marker = "  "
	case n.Collapsed:
		marker = "▸ "
	default:
		marker = "▾ "
	}
	if n.Kind == graph.KindDirectory && n.Collapsed && n.ChildCount > 0 {
		name += fmt.Sprintf(" (%d)", n.ChildCount)
	}

	used := len([]rune(indent)) + len([]rune(connector)) + len([]rune(marker))
	name = truncate(name, max(width-used, 4))
	return indent, connector, marker, name
}

// isLastSibling reports whether row i is the last child of its parent
// among the visible rows.
func isLastSibling(nodes []graph.SnapshotNode, i int) bool {
	depth := nodes[i].Depth
	for j := i + 1; j < len(nodes); j++ {
		switch {
		case nodes[j].Depth == depth:
			return false
		case nodes[j].Depth < depth:
			return true
		}
	}
	return true
}

// renderTreePanel wraps the tree in a styled panel.
func renderTreePanel(m *Model, width, height int) string {
	content := renderTree(m, width-4, height-2)

	style := m.st.panel
	if m.activePane == PaneTree {
		style = m.st.panelActive
	}

	return style.Width(width).Height(height).Render(content)
}
