package export

import (
	"bytes"
	"errors"
	"math"
	"strings"
	"testing"

	"gonum.org/v1/gonum/spatial/r3"

	"github.com/Mr-Dark-debug/codevis/internal/explorer"
	"github.com/Mr-Dark-debug/codevis/internal/graph"
	"github.com/Mr-Dark-debug/codevis/internal/style"
)

func expandedSnapshot(t *testing.T) *graph.Snapshot {
	t.Helper()
	tree, err := graph.BuildTree([]graph.Entry{
		{Path: "src/a.ts", Kind: graph.EntryBlob},
		{Path: "src/b/c.ts", Kind: graph.EntryBlob},
		{Path: "README.md", Kind: graph.EntryBlob},
	})
	if err != nil {
		t.Fatalf("BuildTree failed: %v", err)
	}
	x, err := tree.InitialExpansion().Toggle("src")
	if err != nil {
		t.Fatalf("Toggle failed: %v", err)
	}
	return graph.Prune(x)
}

// TestRadialLayout checks ring radii and that every visible node is placed.
func TestRadialLayout(t *testing.T) {
	snap := expandedSnapshot(t)
	l := RadialLayout(snap, 50)

	if l.Len() != len(snap.Nodes) {
		t.Fatalf("placed %d of %d nodes", l.Len(), len(snap.Nodes))
	}
	root, _ := l.Position("")
	if root != (r3.Vec{}) {
		t.Errorf("root at %+v", root)
	}
	for _, n := range snap.Nodes {
		p, ok := l.Position(n.ID)
		if !ok {
			t.Errorf("node %q not placed", n.ID)
			continue
		}
		if got, want := r3.Norm(p), float64(n.Depth)*50; math.Abs(got-want) > 1e-9 {
			t.Errorf("node %q at radius %v, want %v", n.ID, got, want)
		}
		if p.Z != 0 {
			t.Errorf("node %q off plane", n.ID)
		}
	}
	if l.Radius() != 100 {
		t.Errorf("radius = %v", l.Radius())
	}
}

// TestRadialLayoutFeedsFocus checks that every non-root position is a
// valid focus input.
func TestRadialLayoutFeedsFocus(t *testing.T) {
	snap := expandedSnapshot(t)
	l := RadialLayout(snap, 0)
	cam := explorer.DefaultCamera()
	for _, n := range snap.Nodes[1:] {
		p, _ := l.Position(n.ID)
		if _, err := cam.Focus(n.ID, p); err != nil {
			t.Errorf("Focus(%q) failed: %v", n.ID, err)
		}
	}
}

// TestWriteSVG renders the graph and checks its main elements.
func TestWriteSVG(t *testing.T) {
	snap := expandedSnapshot(t)
	g := explorer.Render(snap, style.NewStyler(nil), style.ThemeDark)

	var buf bytes.Buffer
	if err := WriteSVG(&buf, g, RadialLayout(snap, 0), SVGOptions{Width: 400, Height: 400, Labels: true}); err != nil {
		t.Fatalf("WriteSVG failed: %v", err)
	}
	out := buf.String()

	if !strings.Contains(out, "<svg") || !strings.HasSuffix(strings.TrimSpace(out), "</svg>") {
		t.Fatalf("not an svg document:\n%s", out)
	}
	if got := strings.Count(out, "<circle"); got != len(snap.Nodes) {
		t.Errorf("circles = %d, want %d", got, len(snap.Nodes))
	}
	if got := strings.Count(out, "<line"); got != len(snap.Edges) {
		t.Errorf("lines = %d, want %d", got, len(snap.Edges))
	}
	for _, want := range []string{"#60A5FA", "#34D399", "#F87171", "a.ts", "README.md"} {
		if !strings.Contains(out, want) {
			t.Errorf("svg missing %q", want)
		}
	}
}

type failingWriter struct{}

func (failingWriter) Write(p []byte) (int, error) { return 0, errors.New("disk full") }

// TestWriteSVGReportsWriteErrors verifies the first write error surfaces.
func TestWriteSVGReportsWriteErrors(t *testing.T) {
	snap := expandedSnapshot(t)
	g := explorer.Render(snap, style.NewStyler(nil), style.ThemeLight)
	if err := WriteSVG(failingWriter{}, g, RadialLayout(snap, 0), SVGOptions{}); err == nil {
		t.Error("expected write error")
	}
}
