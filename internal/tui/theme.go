package tui

import (
	"github.com/charmbracelet/lipgloss"

	"github.com/Mr-Dark-debug/codevis/internal/style"
)

// ────────────────────────────────────────────────────────────
// Styles
// ────────────────────────────────────────────────────────────
//
// Every color comes from the active style.Palette. No ad-hoc color
// literals anywhere; switching theme rebuilds the whole set.

type styles struct {
	pal style.Palette

	// Header bar
	headerBar   lipgloss.Style
	headerBrand lipgloss.Style
	headerSep   lipgloss.Style
	headerMeta  lipgloss.Style

	// Panel chrome
	panel         lipgloss.Style
	panelActive   lipgloss.Style
	panelTitle    lipgloss.Style
	panelTitleDim lipgloss.Style

	// Tree
	nodeSelected lipgloss.Style
	branch       lipgloss.Style
	marker       lipgloss.Style

	// Detail pane
	detailLabel   lipgloss.Style
	detailValue   lipgloss.Style
	detailSection lipgloss.Style
	barEmpty      lipgloss.Style

	// Warnings
	warning lipgloss.Style
	context lipgloss.Style

	// Footer / status bar
	status       lipgloss.Style
	statusAccent lipgloss.Style
	statusError  lipgloss.Style
	hintKey      lipgloss.Style
	hintDesc     lipgloss.Style

	// Recent list
	item         lipgloss.Style
	itemSelected lipgloss.Style
	dim          lipgloss.Style
	emptyState   lipgloss.Style

	// Input bar
	inputBar lipgloss.Style
	match    lipgloss.Style
}

// panelBorder draws a single rule above each panel.
var panelBorder = lipgloss.Border{Top: "─"}

func newStyles(t style.Theme) styles {
	pal := style.PaletteFor(t)
	return styles{
		pal: pal,

		headerBar: lipgloss.NewStyle().
			Background(pal.Surface).
			Foreground(pal.Text).
			Padding(0, 1),
		headerBrand: lipgloss.NewStyle().
			Bold(true).
			Foreground(pal.Accent),
		headerSep: lipgloss.NewStyle().
			Foreground(pal.TextMuted),
		headerMeta: lipgloss.NewStyle().
			Foreground(pal.TextDim),

		panel: lipgloss.NewStyle().
			Padding(0, 1).
			Border(panelBorder).
			BorderForeground(pal.Divider),
		panelActive: lipgloss.NewStyle().
			Padding(0, 1).
			Border(panelBorder).
			BorderForeground(pal.Accent),
		panelTitle: lipgloss.NewStyle().
			Foreground(pal.Accent).
			Bold(true),
		panelTitleDim: lipgloss.NewStyle().
			Foreground(pal.TextMuted).
			Bold(true),

		nodeSelected: lipgloss.NewStyle().
			Background(pal.Highlight).
			Foreground(pal.Text).
			Bold(true),
		branch: lipgloss.NewStyle().
			Foreground(pal.Divider),
		marker: lipgloss.NewStyle().
			Foreground(pal.TextDim),

		detailLabel: lipgloss.NewStyle().
			Foreground(pal.Accent),
		detailValue: lipgloss.NewStyle().
			Foreground(pal.Text),
		detailSection: lipgloss.NewStyle().
			Foreground(pal.TextMuted).
			Bold(true),
		barEmpty: lipgloss.NewStyle().
			Foreground(pal.TextMuted),

		warning: lipgloss.NewStyle().
			Foreground(pal.Warning),
		context: lipgloss.NewStyle().
			Foreground(pal.TextMuted),

		status: lipgloss.NewStyle().
			Foreground(pal.Text).
			Background(pal.Surface).
			Padding(0, 1),
		statusAccent: lipgloss.NewStyle().
			Foreground(pal.Accent).
			Background(pal.Surface).
			Bold(true).
			Padding(0, 1),
		statusError: lipgloss.NewStyle().
			Foreground(pal.Generic).
			Background(pal.Surface).
			Padding(0, 1),
		hintKey: lipgloss.NewStyle().
			Foreground(pal.Text).
			Bold(true),
		hintDesc: lipgloss.NewStyle().
			Foreground(pal.TextMuted),

		item: lipgloss.NewStyle().
			Foreground(pal.Text).
			Padding(0, 1),
		itemSelected: lipgloss.NewStyle().
			Background(pal.Highlight).
			Foreground(pal.Text).
			Bold(true).
			Padding(0, 1),
		dim: lipgloss.NewStyle().
			Foreground(pal.TextDim),
		emptyState: lipgloss.NewStyle().
			Foreground(pal.TextMuted).
			Padding(2, 4),

		inputBar: lipgloss.NewStyle().
			Foreground(pal.Text).
			Background(pal.Surface).
			Padding(0, 1),
		match: lipgloss.NewStyle().
			Foreground(pal.Accent).
			Bold(true),
	}
}

// nodeStyle colors a tree row by the node's styler color.
func (s styles) nodeStyle(color lipgloss.Color) lipgloss.Style {
	return lipgloss.NewStyle().Foreground(color)
}
