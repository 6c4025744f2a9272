package analysis

import (
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/Mr-Dark-debug/codevis/internal/graph"
)

func buildTree(t *testing.T, paths ...string) *graph.Tree {
	t.Helper()
	entries := make([]graph.Entry, len(paths))
	for i, p := range paths {
		kind := graph.EntryBlob
		if strings.HasSuffix(p, "/") {
			kind = graph.EntryTree
			p = strings.TrimSuffix(p, "/")
		}
		entries[i] = graph.Entry{Path: p, Kind: kind}
	}
	tree, err := graph.BuildTree(entries)
	if err != nil {
		t.Fatalf("BuildTree failed: %v", err)
	}
	return tree
}

func TestAnalyzeShape(t *testing.T) {
	tree := buildTree(t,
		"src/index.ts",
		"src/app.tsx",
		"src/lib/util.ts",
		"src/lib/deep/x.go",
		"README.md",
		"Makefile",
		"docs/",
	)

	r := Analyze(tree, Options{Source: "test", LoadDuration: 1500 * time.Millisecond})

	if r.Files != 6 {
		t.Errorf("expected 6 files, got %d", r.Files)
	}
	if r.Directories != 4 {
		t.Errorf("expected 4 directories, got %d", r.Directories)
	}
	if r.Nodes != 11 {
		t.Errorf("expected 11 nodes, got %d", r.Nodes)
	}
	if r.TypedFiles != 3 {
		t.Errorf("expected 3 typed files, got %d", r.TypedFiles)
	}
	if r.MaxDepth != 4 || r.DeepestPath != "src/lib/deep/x.go" {
		t.Errorf("deepest = %d %q", r.MaxDepth, r.DeepestPath)
	}
	if r.WidestDir.Path != "" || r.WidestDir.Children != 4 {
		t.Errorf("widest = %+v", r.WidestDir)
	}
	if r.LoadMs != 1500 {
		t.Errorf("load ms = %d", r.LoadMs)
	}
}

func TestExtensionHistogramOrder(t *testing.T) {
	tree := buildTree(t, "a.go", "b.go", "c.ts", "d.md", "e.md", "f.go", "LICENSE")
	r := Analyze(tree, Options{})

	want := []ExtCount{{".go", 3}, {".md", 2}, {"", 1}, {".ts", 1}}
	if len(r.Extensions) != len(want) {
		t.Fatalf("extensions = %+v", r.Extensions)
	}
	for i, w := range want {
		if r.Extensions[i] != w {
			t.Errorf("row %d = %+v, want %+v", i, r.Extensions[i], w)
		}
	}

	r = Analyze(tree, Options{TopN: 2})
	if len(r.Extensions) != 2 {
		t.Errorf("TopN not applied: %+v", r.Extensions)
	}
}

func TestDetectHotspots(t *testing.T) {
	dirs := []DirStat{
		{"a", 2}, {"b", 2}, {"c", 3}, {"d", 2}, {"e", 2},
		{"f", 3}, {"g", 2}, {"h", 2}, {"i", 3}, {"vendor", 40},
	}
	hs := detectHotspots(dirs)
	if len(hs) != 1 {
		t.Fatalf("expected 1 hotspot, got %+v", hs)
	}
	if hs[0].Path != "vendor" || hs[0].Severity != "medium" && hs[0].Severity != "high" {
		t.Errorf("unexpected hotspot %+v", hs[0])
	}

	if hs := detectHotspots([]DirStat{{"a", 5}, {"b", 5}}); hs != nil {
		t.Errorf("uniform fan-out should have no hotspots, got %+v", hs)
	}
	if hs := detectHotspots([]DirStat{{"a", 5}}); hs != nil {
		t.Errorf("single directory should have no hotspots, got %+v", hs)
	}
}

func TestAnalyzeWarnings(t *testing.T) {
	tree := buildTree(t, "a", "a/b.txt")
	r := Analyze(tree, Options{})
	if r.WarningCount != 1 || len(r.Warnings) != 1 || r.Warnings[0].Path != "a" {
		t.Errorf("warnings = %+v", r.Warnings)
	}
}

func TestFormatReport(t *testing.T) {
	var paths []string
	for i := 0; i < 30; i++ {
		paths = append(paths, fmt.Sprintf("vendor/f%d.go", i))
	}
	for _, d := range []string{"a", "b", "c", "d", "e", "f"} {
		paths = append(paths, d+"/x.ts")
	}
	paths = append(paths, "z", "z/y.md")
	tree := buildTree(t, paths...)

	out := FormatReport(Analyze(tree, Options{Source: "github:acme/widgets@main", LoadDuration: 2 * time.Second}))
	for _, want := range []string{
		"# codevis Analysis Report",
		"**Source:** `github:acme/widgets@main`",
		"| Files | 37 |",
		"| Load Time | 2.0s |",
		"## Extensions",
		"| .go | 30 |",
		"## Fan-out Hotspots",
		"`vendor`",
		"## Structural Warnings",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("report missing %q:\n%s", want, out)
		}
	}
}
