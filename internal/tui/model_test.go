package tui

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/mattn/go-runewidth"

	"github.com/Mr-Dark-debug/codevis/internal/database"
	"github.com/Mr-Dark-debug/codevis/internal/explorer"
	"github.com/Mr-Dark-debug/codevis/internal/graph"
	"github.com/Mr-Dark-debug/codevis/internal/manifest"
	"github.com/Mr-Dark-debug/codevis/internal/style"
)

const exampleManifest = `[
  {"path": "src/a.ts", "type": "blob"},
  {"path": "src/b/c.ts", "type": "blob"},
  {"path": "README.md", "type": "blob"}
]`

func keyMsg(k string) tea.KeyMsg {
	switch k {
	case "enter":
		return tea.KeyMsg{Type: tea.KeyEnter}
	case "esc":
		return tea.KeyMsg{Type: tea.KeyEsc}
	case "tab":
		return tea.KeyMsg{Type: tea.KeyTab}
	case "down":
		return tea.KeyMsg{Type: tea.KeyDown}
	case "up":
		return tea.KeyMsg{Type: tea.KeyUp}
	default:
		return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(k)}
	}
}

func update(t *testing.T, m Model, msg tea.Msg) (Model, tea.Cmd) {
	t.Helper()
	next, cmd := m.Update(msg)
	nm, ok := next.(Model)
	if !ok {
		t.Fatalf("Update returned %T", next)
	}
	return nm, cmd
}

func press(t *testing.T, m Model, keys ...string) Model {
	t.Helper()
	for _, k := range keys {
		m, _ = update(t, m, keyMsg(k))
	}
	return m
}

// newLoadedModel returns a sized model with the example manifest loaded.
func newLoadedModel(t *testing.T) (Model, *[]string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "manifest.json")
	if err := os.WriteFile(path, []byte(exampleManifest), 0o644); err != nil {
		t.Fatalf("WriteFile failed: %v", err)
	}

	m := NewModel(Options{Controller: explorer.New(explorer.Options{})})
	var copied []string
	m.copy = func(s string) error {
		copied = append(copied, s)
		return nil
	}

	m, _ = update(t, m, m.load(manifest.NewFileSource(path))())
	m, _ = update(t, m, tea.WindowSizeMsg{Width: 120, Height: 40})
	return m, &copied
}

func visibleIDs(m Model) []string {
	ids := make([]string, len(m.snap.Nodes))
	for i, n := range m.snap.Nodes {
		ids[i] = n.ID
	}
	return ids
}

// TestLoadedModelShowsTree checks the initial explorer screen.
func TestLoadedModelShowsTree(t *testing.T) {
	m, _ := newLoadedModel(t)

	if m.showRecent {
		t.Error("expected explorer screen after load")
	}
	if got := strings.Join(visibleIDs(m), ","); got != ",src,README.md" {
		t.Errorf("visible = %q", got)
	}
	if m.report == nil || m.report.Files != 3 {
		t.Errorf("report = %+v", m.report)
	}

	view := m.View()
	for _, want := range []string{"CODEVIS", "src", "README.md", "Tree", "Detail", "Warnings"} {
		if !strings.Contains(view, want) {
			t.Errorf("view missing %q", want)
		}
	}
}

// TestToggleWithKeys expands and collapses a directory from the keyboard.
func TestToggleWithKeys(t *testing.T) {
	m, _ := newLoadedModel(t)

	m = press(t, m, "j", "enter")
	if len(m.snap.Nodes) != 5 {
		t.Fatalf("expected 5 visible after expand, got %q", visibleIDs(m))
	}
	if m.cursor != 1 || m.cursorID() != "src" {
		t.Errorf("cursor moved to %d (%q)", m.cursor, m.cursorID())
	}
	if info, err := m.ctrl.Selected(); err != nil || info.ID != "src" {
		t.Errorf("selected = %+v, %v", info, err)
	}

	m = press(t, m, "h")
	if len(m.snap.Nodes) != 3 {
		t.Errorf("expected 3 visible after collapse, got %q", visibleIDs(m))
	}

	m = press(t, m, "l", "j", "j", "h")
	if m.cursorID() != "src" {
		t.Errorf("h on a file should move to its parent, cursor on %q", m.cursorID())
	}

	m = press(t, m, "c")
	if len(m.snap.Nodes) != 3 || m.cursorID() != "src" {
		t.Errorf("collapse all left %q with cursor on %q", visibleIDs(m), m.cursorID())
	}
}

// TestSearchRevealsHiddenNode fuzzy-searches a path under a collapsed
// directory and jumps to it.
func TestSearchRevealsHiddenNode(t *testing.T) {
	m, _ := newLoadedModel(t)

	m = press(t, m, "/", "b/c")
	if m.mode != inputSearch {
		t.Fatal("expected search mode")
	}
	if len(m.matches) != 1 || m.matches[0] != "src/b/c.ts" {
		t.Fatalf("matches = %q", m.matches)
	}

	m = press(t, m, "enter")
	if m.mode != inputNone {
		t.Error("search bar still open")
	}
	if m.cursorID() != "src/b/c.ts" {
		t.Errorf("cursor on %q", m.cursorID())
	}
	if !m.snap.Contains("src/b/c.ts") {
		t.Error("match not revealed")
	}
}

// TestSearchEscapeCancels verifies esc closes the bar without moving.
func TestSearchEscapeCancels(t *testing.T) {
	m, _ := newLoadedModel(t)
	m = press(t, m, "/", "read", "esc")
	if m.mode != inputNone || m.cursor != 0 {
		t.Errorf("mode = %v, cursor = %d", m.mode, m.cursor)
	}
}

// TestCopySelectedPath checks the clipboard hook.
func TestCopySelectedPath(t *testing.T) {
	m, copied := newLoadedModel(t)
	m = press(t, m, "y", "j", "y")
	if got := strings.Join(*copied, ","); got != "/,src" {
		t.Errorf("copied = %q", got)
	}

	m.copy = func(string) error { return errors.New("no clipboard") }
	m = press(t, m, "y")
	if !strings.Contains(m.statusMsg, "no clipboard") {
		t.Errorf("status = %q", m.statusMsg)
	}
}

// TestThemeCycle switches palettes.
func TestThemeCycle(t *testing.T) {
	m, _ := newLoadedModel(t)
	m = press(t, m, "t")
	if m.theme != style.ThemeLight {
		t.Errorf("theme = %q", m.theme)
	}
	if m.st.pal != style.PaletteFor(style.ThemeLight) {
		t.Error("styles not rebuilt for the new theme")
	}
	m = press(t, m, "t")
	if m.theme != style.ThemeDark {
		t.Errorf("theme = %q", m.theme)
	}
}

// TestLoadFailures keeps the tree on failure and ignores superseded loads.
func TestLoadFailures(t *testing.T) {
	m, _ := newLoadedModel(t)

	m, _ = update(t, m, loadFailedMsg{name: "x", err: explorer.ErrSuperseded})
	if m.err != nil {
		t.Errorf("superseded load reported: %v", m.err)
	}

	m, _ = update(t, m, loadFailedMsg{name: "x", err: errors.New("boom")})
	if m.err == nil || !strings.Contains(m.statusMsg, "boom") {
		t.Errorf("status = %q", m.statusMsg)
	}
	if m.snap == nil || len(m.snap.Nodes) != 3 {
		t.Error("failed load dropped the current tree")
	}
}

// TestRecentListReopensCachedManifest opens a manifest straight from the
// cache store.
func TestRecentListReopensCachedManifest(t *testing.T) {
	store, err := database.NewDBService(":memory:")
	if err != nil {
		t.Fatalf("NewDBService failed: %v", err)
	}
	defer store.Close()

	key := "github:acme/widgets@main"
	err = store.SaveManifest(&database.Manifest{
		ManifestInfo: database.ManifestInfo{Key: key, Source: "github"},
		Entries:      []graph.Entry{{Path: "lib/x.go", Kind: graph.EntryBlob}},
	})
	if err != nil {
		t.Fatalf("SaveManifest failed: %v", err)
	}

	m := NewModel(Options{Controller: explorer.New(explorer.Options{}), Store: store})
	m, _ = update(t, m, tea.WindowSizeMsg{Width: 120, Height: 30})
	m, _ = update(t, m, m.loadRecent()())
	if !m.showRecent || len(m.recent) != 1 {
		t.Fatalf("recent = %d entries, showRecent = %v", len(m.recent), m.showRecent)
	}
	if !strings.Contains(m.View(), "acme/widgets@main") {
		t.Error("recent list missing the cached repository")
	}

	m, cmd := update(t, m, keyMsg("enter"))
	if cmd == nil {
		t.Fatal("expected a load command")
	}
	m, _ = update(t, m, cmd())
	if name, _ := m.ctrl.Source(); name != key {
		t.Errorf("source = %q", name)
	}
	if got := strings.Join(visibleIDs(m), ","); got != ",lib" {
		t.Errorf("visible = %q", got)
	}
}

// TestSelectorFor checks how the open prompt classifies input.
func TestSelectorFor(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "m.json")
	if err := os.WriteFile(file, []byte("[]"), 0o644); err != nil {
		t.Fatalf("WriteFile failed: %v", err)
	}

	tests := []struct {
		in   string
		want manifest.Selector
	}{
		{"https://github.com/acme/widgets", manifest.Selector{Repo: "https://github.com/acme/widgets"}},
		{dir, manifest.Selector{Dir: dir}},
		{file, manifest.Selector{Manifest: file}},
	}
	for _, tt := range tests {
		if got := selectorFor(tt.in); got != tt.want {
			t.Errorf("selectorFor(%q) = %+v, want %+v", tt.in, got, tt.want)
		}
	}
}

// TestTruncate checks width-aware truncation, including wide runes.
func TestTruncate(t *testing.T) {
	if got := truncate("short", 10); got != "short" {
		t.Errorf("truncate kept %q", got)
	}
	for _, s := range []string{"a-very-long-file-name.ts", "日本語のファイル名.ts"} {
		for _, w := range []int{1, 5, 9} {
			got := truncate(s, w)
			if runewidth.StringWidth(got) > w {
				t.Errorf("truncate(%q, %d) = %q is %d cells", s, w, got, runewidth.StringWidth(got))
			}
			got = truncateLeft(s, w)
			if runewidth.StringWidth(got) > w {
				t.Errorf("truncateLeft(%q, %d) = %q is %d cells", s, w, got, runewidth.StringWidth(got))
			}
		}
	}
	if got := truncateLeft("src/deep/path/file.ts", 8); !strings.HasSuffix(got, "file.ts") {
		t.Errorf("truncateLeft = %q", got)
	}
}
