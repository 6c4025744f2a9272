// Package tui implements the codevis terminal user interface.
//
// It is a keyboard-driven tree explorer built with Charmbracelet's
// BubbleTea, Lipgloss, and Bubbles libraries, driving the same
// explorer.Controller the HTTP daemon uses.
//
// Component architecture:
//
//	model.go     root model, message routing, Init/Update
//	theme.go     styles derived from the active style.Palette
//	header.go    top bar with source context, footer with key hints
//	treeview.go  visible snapshot rendered as an indented tree
//	detail.go    selected node metadata and tree summary
//	warnings.go  structural warnings of the loaded manifest
//	recent.go    cached manifest selector (initial screen)
//	input.go     open prompt and fuzzy path search
//	helpers.go   width-aware truncation, clamping
package tui
