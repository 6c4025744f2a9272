package graph

import (
	"errors"
	"fmt"
	"strings"
	"testing"
)

func entries(pairs ...string) []Entry {
	out := make([]Entry, 0, len(pairs)/2)
	for i := 0; i+1 < len(pairs); i += 2 {
		out = append(out, Entry{Path: pairs[i], Kind: pairs[i+1]})
	}
	return out
}

// TestBuildTreeExample checks the reference manifest from the README.
func TestBuildTreeExample(t *testing.T) {
	tree, err := BuildTree(entries("src/a.ts", "blob", "src/b/c.ts", "blob"))
	if err != nil {
		t.Fatalf("BuildTree failed: %v", err)
	}

	want := []struct {
		id   string
		name string
		kind Kind
	}{
		{"", "", KindDirectory},
		{"src", "src", KindDirectory},
		{"src/a.ts", "a.ts", KindFile},
		{"src/b", "b", KindDirectory},
		{"src/b/c.ts", "c.ts", KindFile},
	}

	nodes := tree.Nodes()
	if len(nodes) != len(want) {
		t.Fatalf("expected %d nodes, got %d", len(want), len(nodes))
	}
	for i, w := range want {
		n := nodes[i]
		if n.ID != w.id || n.Name != w.name || n.Kind != w.kind {
			t.Errorf("node %d: got (%q, %q, %s), want (%q, %q, %s)",
				i, n.ID, n.Name, n.Kind, w.id, w.name, w.kind)
		}
	}

	src, ok := tree.Lookup("src")
	if !ok {
		t.Fatal("Lookup(src) failed")
	}
	if got := strings.Join(src.ChildIDs(), ","); got != "src/a.ts,src/b" {
		t.Errorf("src children = %s", got)
	}
	if err := Verify(tree); err != nil {
		t.Errorf("Verify: %v", err)
	}
}

// TestBuildTreeSizeHints verifies the renderer size hints per node class.
func TestBuildTreeSizeHints(t *testing.T) {
	tree, err := BuildTree(entries("docs", "tree", "docs/readme.md", "blob"))
	if err != nil {
		t.Fatalf("BuildTree failed: %v", err)
	}
	if tree.Root().SizeHint != SizeRoot {
		t.Errorf("root size = %v", tree.Root().SizeHint)
	}
	docs, _ := tree.Lookup("docs")
	if docs.SizeHint != SizeDirectory {
		t.Errorf("dir size = %v", docs.SizeHint)
	}
	readme, _ := tree.Lookup("docs/readme.md")
	if readme.SizeHint != SizeFile {
		t.Errorf("file size = %v", readme.SizeHint)
	}
}

// TestBuildTreeIdempotent verifies that repeated paths do not create
// duplicate nodes or children.
func TestBuildTreeIdempotent(t *testing.T) {
	tree, err := BuildTree(entries(
		"a/b.go", "blob",
		"a", "tree",
		"a/b.go", "blob",
		"a", "tree",
	))
	if err != nil {
		t.Fatalf("BuildTree failed: %v", err)
	}
	if tree.Len() != 3 {
		t.Errorf("expected 3 nodes, got %d", tree.Len())
	}
	a, _ := tree.Lookup("a")
	if len(a.Children) != 1 {
		t.Errorf("expected 1 child under a, got %d", len(a.Children))
	}
	if len(tree.Warnings()) != 0 {
		t.Errorf("unexpected warnings: %v", tree.Warnings())
	}
}

// TestBuildTreeNodeCount checks that the node count equals the number of
// distinct path prefixes plus the root.
func TestBuildTreeNodeCount(t *testing.T) {
	manifest := entries(
		"cmd/app/main.go", "blob",
		"internal/db/store.go", "blob",
		"internal/db/store_test.go", "blob",
		"internal/api", "tree",
		"README.md", "blob",
		"cmd/app/flags.go", "blob",
	)
	prefixes := map[string]bool{}
	for _, e := range manifest {
		parts := strings.Split(e.Path, "/")
		for i := range parts {
			prefixes[strings.Join(parts[:i+1], "/")] = true
		}
	}

	tree, err := BuildTree(manifest)
	if err != nil {
		t.Fatalf("BuildTree failed: %v", err)
	}
	if tree.Len() != len(prefixes)+1 {
		t.Errorf("expected %d nodes, got %d", len(prefixes)+1, tree.Len())
	}
	for p := range prefixes {
		if _, ok := tree.Lookup(p); !ok {
			t.Errorf("missing node %q", p)
		}
	}
	if err := Verify(tree); err != nil {
		t.Errorf("Verify: %v", err)
	}
}

// TestBuildTreeKindConflicts exercises directory-wins resolution in both
// manifest orders.
func TestBuildTreeKindConflicts(t *testing.T) {
	tests := []struct {
		name      string
		manifest  []Entry
		wantIndex int
	}{
		{"leaf then ancestor", entries("lib", "blob", "lib/x.go", "blob"), 0},
		{"ancestor then leaf", entries("lib/x.go", "blob", "lib", "blob"), 1},
		{"blob then tree", entries("lib", "blob", "lib", "tree"), 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tree, err := BuildTree(tt.manifest)
			if err != nil {
				t.Fatalf("BuildTree failed: %v", err)
			}
			lib, ok := tree.Lookup("lib")
			if !ok {
				t.Fatal("lib missing")
			}
			if lib.Kind != KindDirectory {
				t.Errorf("lib kind = %s, want directory", lib.Kind)
			}
			if lib.SizeHint != SizeDirectory {
				t.Errorf("lib size = %v", lib.SizeHint)
			}
			warnings := tree.Warnings()
			if len(warnings) != 1 {
				t.Fatalf("expected 1 warning, got %d", len(warnings))
			}
			if warnings[0].Path != "lib" || warnings[0].Index != tt.wantIndex {
				t.Errorf("warning = %+v", warnings[0])
			}
		})
	}
}

// TestBuildTreeValidation verifies each malformed-manifest rule.
func TestBuildTreeValidation(t *testing.T) {
	tests := []struct {
		name     string
		manifest []Entry
	}{
		{"empty manifest", nil},
		{"empty path", entries("", "blob")},
		{"leading slash", entries("/a", "blob")},
		{"trailing slash", entries("a/", "tree")},
		{"double slash", entries("a//b", "blob")},
		{"backslash", entries(`a\b`, "blob")},
		{"dot segment", entries("a/./b", "blob")},
		{"dotdot segment", entries("a/../b", "blob")},
		{"bad entry after good", entries("ok.txt", "blob", "x//y", "blob")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tree, err := BuildTree(tt.manifest)
			if err == nil {
				t.Fatal("expected error")
			}
			if tree != nil {
				t.Error("expected nil tree on failure")
			}
			var ve *ValidationError
			if !errors.As(err, &ve) {
				t.Errorf("expected *ValidationError, got %T", err)
			}
		})
	}
}

// TestLookupAndAncestors covers ID resolution helpers.
func TestLookupAndAncestors(t *testing.T) {
	tree, err := BuildTree(entries("a/b/c/d.txt", "blob"))
	if err != nil {
		t.Fatalf("BuildTree failed: %v", err)
	}
	if _, ok := tree.Lookup("a/b/x"); ok {
		t.Error("Lookup of missing id succeeded")
	}
	if n, ok := tree.Lookup(""); !ok || n != tree.Root() {
		t.Error("Lookup(\"\") should return root")
	}

	chain, err := tree.Ancestors("a/b/c/d.txt")
	if err != nil {
		t.Fatalf("Ancestors failed: %v", err)
	}
	var ids []string
	for _, n := range chain {
		ids = append(ids, fmt.Sprintf("%q", n.ID))
	}
	if got := strings.Join(ids, " "); got != `"" "a" "a/b" "a/b/c"` {
		t.Errorf("ancestors = %s", got)
	}

	if _, err := tree.Ancestors("nope"); !errors.Is(err, ErrUnknownNode) {
		t.Errorf("expected ErrUnknownNode, got %v", err)
	}
}

// TestBuildTreeDeepPath makes sure very deep manifests build and walk
// without recursion.
func TestBuildTreeDeepPath(t *testing.T) {
	segs := make([]string, 5000)
	for i := range segs {
		segs[i] = "d"
	}
	tree, err := BuildTree([]Entry{{Path: strings.Join(segs, "/") + "/leaf", Kind: EntryBlob}})
	if err != nil {
		t.Fatalf("BuildTree failed: %v", err)
	}
	if tree.Len() != 5002 {
		t.Errorf("expected 5002 nodes, got %d", tree.Len())
	}

	count := 0
	tree.Walk(func(*Node) bool { count++; return true })
	if count != tree.Len() {
		t.Errorf("Walk visited %d nodes", count)
	}
	if err := Verify(tree); err != nil {
		t.Errorf("Verify: %v", err)
	}
}
