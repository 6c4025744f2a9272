package tui

import (
	"fmt"
	"os"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/sahilm/fuzzy"

	"github.com/Mr-Dark-debug/codevis/internal/graph"
	"github.com/Mr-Dark-debug/codevis/internal/manifest"
)

// maxMatches bounds the search results kept and drawn.
const maxMatches = 8

// beginInput focuses the input bar for mode.
func (m *Model) beginInput(mode inputMode) tea.Cmd {
	if mode == inputSearch && m.ctrl.Tree() == nil {
		m.statusMsg = "Nothing loaded"
		return nil
	}
	m.mode = mode
	m.matches = nil
	m.matchIdx = 0
	m.input.Reset()
	switch mode {
	case inputOpen:
		m.input.Prompt = "open: "
		m.input.Placeholder = "https://github.com/owner/repo, manifest.json or a directory"
	case inputSearch:
		m.input.Prompt = "/ "
		m.input.Placeholder = "fuzzy path search"
	}
	m.input.Focus()
	return textinput.Blink
}

func (m *Model) endInput() {
	m.mode = inputNone
	m.matches = nil
	m.input.Blur()
}

// handleInputKey edits the input bar and submits it on enter.
func (m Model) handleInputKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "esc":
		m.endInput()
		return m, nil

	case "enter":
		if m.mode == inputSearch {
			m.jumpToMatch()
			m.endInput()
			return m, nil
		}
		value := strings.TrimSpace(m.input.Value())
		m.endInput()
		cmd := m.open(value)
		return m, cmd

	case "up", "ctrl+p":
		if m.mode == inputSearch && m.matchIdx > 0 {
			m.matchIdx--
		}
		return m, nil

	case "down", "ctrl+n":
		if m.mode == inputSearch && m.matchIdx < len(m.matches)-1 {
			m.matchIdx++
		}
		return m, nil
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	if m.mode == inputSearch {
		m.refreshMatches()
	}
	return m, cmd
}

// ────────────────────────────────────────────────────────────
// Open
// ────────────────────────────────────────────────────────────

// open resolves value and starts loading it.
func (m *Model) open(value string) tea.Cmd {
	if value == "" {
		return nil
	}
	src, err := m.resolver.Resolve(selectorFor(value))
	if err != nil {
		m.err = err
		m.statusMsg = fmt.Sprintf("Error: %v", err)
		return nil
	}
	return m.startLoad(src)
}

// selectorFor guesses what kind of location value names: a GitHub URL,
// a local directory, or a manifest file.
func selectorFor(value string) manifest.Selector {
	if strings.Contains(strings.ToLower(value), "github.com") {
		return manifest.Selector{Repo: value}
	}
	if fi, err := os.Stat(value); err == nil && fi.IsDir() {
		return manifest.Selector{Dir: value}
	}
	return manifest.Selector{Manifest: value}
}

// ────────────────────────────────────────────────────────────
// Search
// ────────────────────────────────────────────────────────────

// refreshMatches fuzzy-matches the query against every path in the tree,
// visible or not.
func (m *Model) refreshMatches() {
	m.matchIdx = 0
	m.matches = nil

	query := strings.TrimSpace(m.input.Value())
	tree := m.ctrl.Tree()
	if query == "" || tree == nil {
		return
	}

	var paths []string
	tree.Walk(func(n *graph.Node) bool {
		if !n.IsRoot() {
			paths = append(paths, n.ID)
		}
		return true
	})

	for _, match := range fuzzy.Find(query, paths) {
		m.matches = append(m.matches, match.Str)
		if len(m.matches) == maxMatches {
			break
		}
	}
}

// jumpToMatch reveals the chosen match and moves the cursor onto it.
func (m *Model) jumpToMatch() {
	if m.matchIdx >= len(m.matches) {
		m.statusMsg = "No match"
		return
	}
	id := m.matches[m.matchIdx]
	snap, err := m.ctrl.Reveal(id)
	if err != nil {
		m.reportTransition(err)
		return
	}
	m.snap = snap
	m.cursor = max(indexOf(snap, id), 0)
	m.activePane = PaneTree
	m.selectCursor()
	m.statusMsg = "Revealed " + id
}
