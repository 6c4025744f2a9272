// Package style maps tree nodes to colors and sizes for a given theme.
//
// All colors are defined here as lipgloss color tokens so the terminal UI,
// the SVG exporter and the HTTP renderer feed draw from one palette.
package style

import (
	"fmt"
	"strings"

	"github.com/Mr-Dark-debug/codevis/internal/graph"
	"github.com/charmbracelet/lipgloss"
)

// Theme selects a palette.
type Theme string

const (
	ThemeDark  Theme = "dark"
	ThemeLight Theme = "light"
)

// Themes lists every supported theme in cycling order.
var Themes = []Theme{ThemeDark, ThemeLight}

// ParseTheme validates a theme token.
func ParseTheme(s string) (Theme, error) {
	switch t := Theme(strings.ToLower(strings.TrimSpace(s))); t {
	case ThemeDark, ThemeLight:
		return t, nil
	default:
		return "", fmt.Errorf("unknown theme %q (want dark or light)", s)
	}
}

// Next returns the theme after t in Themes.
func (t Theme) Next() Theme {
	for i, th := range Themes {
		if th == t {
			return Themes[(i+1)%len(Themes)]
		}
	}
	return ThemeDark
}

// ────────────────────────────────────────────────────────────
// Palettes
// ────────────────────────────────────────────────────────────

// Palette holds node colors plus the chrome colors adapters need.
type Palette struct {
	// Nodes
	Container lipgloss.Color // directories
	Typed     lipgloss.Color // files with a recognized extension
	Generic   lipgloss.Color // every other file
	Link      lipgloss.Color
	Selected  lipgloss.Color

	// Chrome
	Background lipgloss.Color
	Surface    lipgloss.Color
	Text       lipgloss.Color
	TextDim    lipgloss.Color
	TextMuted  lipgloss.Color
	Accent     lipgloss.Color
	Warning    lipgloss.Color
	Divider    lipgloss.Color
	Highlight  lipgloss.Color
}

var palettes = map[Theme]Palette{
	ThemeDark: {
		Container: lipgloss.Color("#60A5FA"),
		Typed:     lipgloss.Color("#34D399"),
		Generic:   lipgloss.Color("#F87171"),
		Link:      lipgloss.Color("#999999"),
		Selected:  lipgloss.Color("#FF0000"),

		Background: lipgloss.Color("#0A0A0A"),
		Surface:    lipgloss.Color("#1F1F1F"),
		Text:       lipgloss.Color("#E6EDF3"),
		TextDim:    lipgloss.Color("#8B949E"),
		TextMuted:  lipgloss.Color("#484F58"),
		Accent:     lipgloss.Color("#58A6FF"),
		Warning:    lipgloss.Color("#D29922"),
		Divider:    lipgloss.Color("#2D2D2D"),
		Highlight:  lipgloss.Color("#1F6FEB"),
	},
	ThemeLight: {
		Container: lipgloss.Color("#2563EB"),
		Typed:     lipgloss.Color("#059669"),
		Generic:   lipgloss.Color("#DC2626"),
		Link:      lipgloss.Color("#6B7280"),
		Selected:  lipgloss.Color("#B91C1C"),

		Background: lipgloss.Color("#FFFFFF"),
		Surface:    lipgloss.Color("#F3F4F6"),
		Text:       lipgloss.Color("#1F2328"),
		TextDim:    lipgloss.Color("#57606A"),
		TextMuted:  lipgloss.Color("#8C959F"),
		Accent:     lipgloss.Color("#0969DA"),
		Warning:    lipgloss.Color("#9A6700"),
		Divider:    lipgloss.Color("#D0D7DE"),
		Highlight:  lipgloss.Color("#DDF4FF"),
	},
}

// PaletteFor returns the palette of t, falling back to dark.
func PaletteFor(t Theme) Palette {
	if p, ok := palettes[t]; ok {
		return p
	}
	return palettes[ThemeDark]
}

// ────────────────────────────────────────────────────────────
// Styler
// ────────────────────────────────────────────────────────────

// DefaultExtensions are the file suffixes colored as "typed".
var DefaultExtensions = []string{".ts", ".tsx"}

// Styler maps nodes to colors and sizes. It is immutable after
// construction and safe for concurrent use.
type Styler struct {
	extensions []string
}

// NewStyler creates a styler recognizing the given extensions. A nil or
// empty list selects DefaultExtensions.
func NewStyler(extensions []string) *Styler {
	if len(extensions) == 0 {
		extensions = DefaultExtensions
	}
	ext := make([]string, len(extensions))
	copy(ext, extensions)
	return &Styler{extensions: ext}
}

// Extensions returns the recognized extension set.
func (s *Styler) Extensions() []string {
	out := make([]string, len(s.extensions))
	copy(out, s.extensions)
	return out
}

// Typed reports whether name ends with a recognized extension.
func (s *Styler) Typed(name string) bool {
	for _, ext := range s.extensions {
		if strings.HasSuffix(name, ext) {
			return true
		}
	}
	return false
}

// ColorFor returns the node color under theme t. Directories always get the
// container color, whatever their name.
func (s *Styler) ColorFor(m graph.Meta, t Theme) lipgloss.Color {
	p := PaletteFor(t)
	if m.Kind == graph.KindDirectory {
		return p.Container
	}
	if s.Typed(m.Name) {
		return p.Typed
	}
	return p.Generic
}

// SizeFor returns the rendered size of a node.
func (s *Styler) SizeFor(m graph.Meta) float64 {
	if m.SizeHint > 0 {
		return m.SizeHint
	}
	switch {
	case m.IsRoot():
		return graph.SizeRoot
	case m.Kind == graph.KindDirectory:
		return graph.SizeDirectory
	default:
		return graph.SizeFile
	}
}
