package tui

import (
	"context"
	"errors"
	"fmt"

	"github.com/atotto/clipboard"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/Mr-Dark-debug/codevis/internal/analysis"
	"github.com/Mr-Dark-debug/codevis/internal/database"
	"github.com/Mr-Dark-debug/codevis/internal/explorer"
	"github.com/Mr-Dark-debug/codevis/internal/graph"
	"github.com/Mr-Dark-debug/codevis/internal/manifest"
	"github.com/Mr-Dark-debug/codevis/internal/style"
	"github.com/Mr-Dark-debug/codevis/pkg/timeutil"
)

// ────────────────────────────────────────────────────────────
// Pane focuses
// ────────────────────────────────────────────────────────────

// Pane represents which UI pane currently has keyboard focus.
type Pane int

const (
	PaneTree Pane = iota
	PaneDetail
	PaneWarnings
)

// inputMode says what the bottom input bar is collecting.
type inputMode int

const (
	inputNone inputMode = iota
	inputOpen
	inputSearch
)

// recentLimit bounds the cached manifests listed on the initial screen.
const recentLimit = 100

// ────────────────────────────────────────────────────────────
// Model
// ────────────────────────────────────────────────────────────

// Options wires a Model to its collaborators.
type Options struct {
	Controller *explorer.Controller // required
	Resolver   *manifest.Resolver   // nil selects an uncached resolver
	Store      database.Store       // nil hides the recent list
	Initial    manifest.Source      // loaded on start when set
	Theme      style.Theme
}

// Model is the root BubbleTea model for the codevis TUI.
// State is organized by concern; rendering is delegated
// to component functions in separate files.
type Model struct {
	ctrl     *explorer.Controller
	resolver *manifest.Resolver
	store    database.Store
	initial  manifest.Source
	current  manifest.Source

	// Data
	snap     *graph.Snapshot
	report   *analysis.Report
	recent   []*database.ManifestInfo
	warnings []graph.StructuralWarning

	// UI state
	theme          style.Theme
	st             styles
	activePane     Pane
	cursor         int
	selectedRecent int
	warnScroll     int
	width          int
	height         int
	showRecent     bool
	loading        string // source name of the outstanding load

	// Input bar
	mode     inputMode
	input    textinput.Model
	matches  []string
	matchIdx int

	// Status
	statusMsg string
	err       error

	copy func(string) error
}

// NewModel creates a new TUI model.
func NewModel(opts Options) Model {
	if opts.Resolver == nil {
		opts.Resolver = &manifest.Resolver{}
	}
	if opts.Theme == "" {
		opts.Theme = style.ThemeDark
	}

	ti := textinput.New()
	ti.CharLimit = 256
	ti.Width = 60

	m := Model{
		ctrl:       opts.Controller,
		resolver:   opts.Resolver,
		store:      opts.Store,
		initial:    opts.Initial,
		theme:      opts.Theme,
		st:         newStyles(opts.Theme),
		input:      ti,
		showRecent: opts.Initial == nil,
		statusMsg:  "Press o to open a repository",
		copy:       clipboard.WriteAll,
	}
	if opts.Initial != nil {
		m.loading = opts.Initial.Name()
		m.statusMsg = "Loading " + opts.Initial.Name() + "..."
	}
	return m
}

// ────────────────────────────────────────────────────────────
// Messages
// ────────────────────────────────────────────────────────────

type loadedMsg struct {
	res *explorer.LoadResult
	src manifest.Source
}

type loadFailedMsg struct {
	name string
	err  error
}

type recentLoadedMsg []*database.ManifestInfo

type errMsg struct{ err error }

func (e errMsg) Error() string { return e.err.Error() }

// ────────────────────────────────────────────────────────────
// Init
// ────────────────────────────────────────────────────────────

func (m Model) Init() tea.Cmd {
	var cmds []tea.Cmd
	if m.initial != nil {
		cmds = append(cmds, m.load(m.initial))
	}
	if m.store != nil {
		cmds = append(cmds, m.loadRecent())
	}
	return tea.Batch(cmds...)
}

// load runs a controller load off the UI goroutine.
func (m Model) load(src manifest.Source) tea.Cmd {
	ctrl := m.ctrl
	return func() tea.Msg {
		res, err := ctrl.Load(context.Background(), src)
		if err != nil {
			return loadFailedMsg{name: src.Name(), err: err}
		}
		return loadedMsg{res: res, src: src}
	}
}

func (m Model) loadRecent() tea.Cmd {
	store := m.store
	return func() tea.Msg {
		infos, err := store.ListManifests(recentLimit)
		if err != nil {
			return errMsg{err}
		}
		return recentLoadedMsg(infos)
	}
}

// startLoad marks src as loading and returns the command.
func (m *Model) startLoad(src manifest.Source) tea.Cmd {
	m.loading = src.Name()
	m.statusMsg = "Loading " + src.Name() + "..."
	m.err = nil
	return m.load(src)
}

// ────────────────────────────────────────────────────────────
// Update
// ────────────────────────────────────────────────────────────

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil

	case tea.KeyMsg:
		return m.handleKey(msg)

	case loadedMsg:
		m.loading = ""
		m.current = msg.src
		m.snap = msg.res.Snapshot
		m.warnings = msg.res.Warnings
		m.report = analysis.Analyze(m.ctrl.Tree(), analysis.Options{
			Source:       msg.res.Source,
			LoadDuration: msg.res.Duration,
			Styler:       m.ctrl.Styler(),
		})
		m.cursor = 0
		m.warnScroll = 0
		m.showRecent = false
		m.activePane = PaneTree
		m.selectCursor()
		m.statusMsg = fmt.Sprintf("%s nodes  %d warnings  %s",
			timeutil.FormatCount(msg.res.Nodes), len(msg.res.Warnings),
			timeutil.FormatDuration(msg.res.Duration.Milliseconds()))
		if m.store != nil {
			return m, m.loadRecent()
		}
		return m, nil

	case loadFailedMsg:
		// A newer load owns the status line.
		if errors.Is(msg.err, explorer.ErrSuperseded) {
			return m, nil
		}
		m.loading = ""
		m.err = msg.err
		m.statusMsg = fmt.Sprintf("Error: %v", msg.err)
		return m, nil

	case recentLoadedMsg:
		m.recent = []*database.ManifestInfo(msg)
		m.selectedRecent = clamp(m.selectedRecent, 0, max(len(m.recent)-1, 0))
		return m, nil

	case errMsg:
		m.err = msg.err
		m.statusMsg = fmt.Sprintf("Error: %v", msg.err)
		return m, nil
	}

	if m.mode != inputNone {
		var cmd tea.Cmd
		m.input, cmd = m.input.Update(msg)
		return m, cmd
	}
	return m, nil
}

// handleKey routes keyboard input based on current mode.
func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	key := msg.String()

	if key == "ctrl+c" {
		return m, tea.Quit
	}

	// ── Input bar ──

	if m.mode != inputNone {
		return m.handleInputKey(msg)
	}

	// ── Global ──

	switch key {
	case "q":
		return m, tea.Quit

	case "o":
		cmd := m.beginInput(inputOpen)
		return m, cmd

	case "t":
		m.theme = m.theme.Next()
		m.st = newStyles(m.theme)
		m.statusMsg = "Theme: " + string(m.theme)
		return m, nil
	}

	// ── Recent list mode ──

	if m.showRecent {
		switch key {
		case "j", "down":
			if m.selectedRecent < len(m.recent)-1 {
				m.selectedRecent++
			}
		case "k", "up":
			if m.selectedRecent > 0 {
				m.selectedRecent--
			}
		case "enter":
			if m.store != nil && m.selectedRecent < len(m.recent) {
				src := manifest.NewStoredSource(m.store, m.recent[m.selectedRecent].Key)
				cmd := m.startLoad(src)
				return m, cmd
			}
		case "x":
			if m.store != nil && m.selectedRecent < len(m.recent) {
				key := m.recent[m.selectedRecent].Key
				if err := m.store.DeleteManifest(key); err != nil {
					m.statusMsg = fmt.Sprintf("Error: %v", err)
					return m, nil
				}
				m.statusMsg = "Removed " + key
				return m, m.loadRecent()
			}
		case "esc":
			if m.snap != nil {
				m.showRecent = false
			}
		}
		return m, nil
	}

	// ── Explorer ──

	switch key {
	case "tab":
		m.activePane = (m.activePane + 1) % 3
		return m, nil

	case "shift+tab":
		m.activePane = (m.activePane + 2) % 3
		return m, nil

	case "esc":
		if m.store != nil {
			m.showRecent = true
		}
		return m, nil

	case "/":
		cmd := m.beginInput(inputSearch)
		return m, cmd

	case "r":
		if m.current != nil {
			cmd := m.startLoad(m.current)
			return m, cmd
		}
		return m, nil

	case "c":
		m.apply(m.ctrl.CollapseAll())
		return m, nil

	case "y":
		m.copySelected()
		return m, nil
	}

	// ── Pane-specific ──

	switch m.activePane {
	case PaneTree:
		m.handleTreeKey(key)

	case PaneDetail:
		// Detail is read-only.

	case PaneWarnings:
		switch key {
		case "j", "down":
			if m.warnScroll < len(m.warnings)-1 {
				m.warnScroll++
			}
		case "k", "up":
			if m.warnScroll > 0 {
				m.warnScroll--
			}
		}
	}

	return m, nil
}

// handleTreeKey moves the cursor and toggles directories.
func (m *Model) handleTreeKey(key string) {
	if m.snap == nil || len(m.snap.Nodes) == 0 {
		return
	}
	node := m.snap.Nodes[m.cursor]

	switch key {
	case "j", "down":
		if m.cursor < len(m.snap.Nodes)-1 {
			m.cursor++
			m.selectCursor()
		}
	case "k", "up":
		if m.cursor > 0 {
			m.cursor--
			m.selectCursor()
		}
	case "g", "home":
		m.cursor = 0
		m.selectCursor()
	case "G", "end":
		m.cursor = len(m.snap.Nodes) - 1
		m.selectCursor()
	case "enter", " ", "space":
		if node.Kind == graph.KindDirectory {
			m.toggle(node.ID)
		}
	case "l", "right":
		if node.Kind == graph.KindDirectory && node.Collapsed {
			m.apply(m.ctrl.Expand(node.ID))
		}
	case "h", "left":
		if node.Kind == graph.KindDirectory && !node.Collapsed && !node.IsRoot() {
			m.toggle(node.ID)
			return
		}
		if parent := parentIndex(m.snap, m.cursor); parent >= 0 {
			m.cursor = parent
			m.selectCursor()
		}
	}
}

// toggle flips id and keeps the cursor on it.
func (m *Model) toggle(id string) {
	snap, err := m.ctrl.ToggleNode(id)
	if err != nil {
		m.reportTransition(err)
		return
	}
	m.snap = snap
	m.cursor = indexOf(snap, id)
}

// apply publishes the result of a bulk transition, keeping the cursor on
// the selected node when it is still visible.
func (m *Model) apply(snap *graph.Snapshot, err error) {
	if err != nil {
		m.reportTransition(err)
		return
	}
	id := m.cursorID()
	m.snap = snap
	m.cursor = max(indexOf(snap, id), 0)
	m.selectCursor()
}

func (m *Model) reportTransition(err error) {
	switch {
	case errors.Is(err, explorer.ErrBusy):
		m.statusMsg = "Busy: a load is in progress"
	case errors.Is(err, explorer.ErrNoTree):
		m.statusMsg = "Nothing loaded"
	default:
		m.statusMsg = fmt.Sprintf("Error: %v", err)
	}
}

// selectCursor mirrors the cursor into the controller's selection.
func (m *Model) selectCursor() {
	if n, ok := m.cursorNode(); ok {
		if _, err := m.ctrl.Select(n.ID); err != nil {
			m.reportTransition(err)
		}
	}
}

func (m *Model) cursorNode() (graph.SnapshotNode, bool) {
	if m.snap == nil || m.cursor < 0 || m.cursor >= len(m.snap.Nodes) {
		return graph.SnapshotNode{}, false
	}
	return m.snap.Nodes[m.cursor], true
}

func (m *Model) cursorID() string {
	n, _ := m.cursorNode()
	return n.ID
}

// copySelected puts the selected node's path on the system clipboard.
func (m *Model) copySelected() {
	n, ok := m.cursorNode()
	if !ok {
		return
	}
	path := n.ID
	if n.IsRoot() {
		path = "/"
	}
	if err := m.copy(path); err != nil {
		m.statusMsg = fmt.Sprintf("Copy failed: %v", err)
		return
	}
	m.statusMsg = "Copied " + path
}

// indexOf returns the snapshot row of id, or -1.
func indexOf(snap *graph.Snapshot, id string) int {
	for i := range snap.Nodes {
		if snap.Nodes[i].ID == id {
			return i
		}
	}
	return -1
}

// parentIndex returns the row of the parent of row i, or -1 for the root.
// Snapshot rows are pre-order, so the parent is the nearest earlier row
// one level up.
func parentIndex(snap *graph.Snapshot, i int) int {
	depth := snap.Nodes[i].Depth
	for j := i - 1; j >= 0; j-- {
		if snap.Nodes[j].Depth == depth-1 {
			return j
		}
	}
	return -1
}

// ────────────────────────────────────────────────────────────
// View
// ────────────────────────────────────────────────────────────

func (m Model) View() string {
	if m.width == 0 {
		return "Initializing..."
	}

	header := renderHeader(&m)
	footer := renderFooter(&m)

	bodyHeight := m.height - 2 // header + footer

	var body string
	switch {
	case m.showRecent:
		body = renderRecent(&m, bodyHeight)
	case m.snap == nil:
		body = lipgloss.Place(m.width, bodyHeight, lipgloss.Center, lipgloss.Center,
			m.st.emptyState.Render(m.statusMsg))
	default:
		body = m.renderMainLayout(bodyHeight)
	}

	return lipgloss.JoinVertical(lipgloss.Left, header, body, footer)
}

// renderMainLayout assembles the three-pane explorer view.
func (m Model) renderMainLayout(totalHeight int) string {
	// Responsive: collapse to single pane on narrow terminals
	if m.width < 60 {
		return m.renderCompactLayout(totalHeight)
	}

	leftWidth := m.width * 55 / 100
	rightWidth := m.width - leftWidth
	topHeight := totalHeight * 70 / 100
	bottomHeight := totalHeight - topHeight

	tree := renderTreePanel(&m, leftWidth, topHeight)
	detail := renderDetailPanel(&m, rightWidth, topHeight)
	warnings := renderWarningsPanel(&m, m.width, bottomHeight)

	topRow := lipgloss.JoinHorizontal(lipgloss.Top, tree, detail)
	return lipgloss.JoinVertical(lipgloss.Left, topRow, warnings)
}

// renderCompactLayout is used when the terminal is narrow (< 60 cols).
// Only the focused pane is shown.
func (m Model) renderCompactLayout(totalHeight int) string {
	switch m.activePane {
	case PaneDetail:
		return renderDetailPanel(&m, m.width, totalHeight)
	case PaneWarnings:
		return renderWarningsPanel(&m, m.width, totalHeight)
	default:
		return renderTreePanel(&m, m.width, totalHeight)
	}
}
