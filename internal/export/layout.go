// Package export renders snapshots outside a live renderer: a radial
// layout that assigns every visible node a position, and a static SVG
// drawing of the rendered graph.
package export

import (
	"math"

	"gonum.org/v1/gonum/spatial/r3"

	"github.com/Mr-Dark-debug/codevis/internal/graph"
)

// DefaultRingSpacing is the radial distance between depth rings.
const DefaultRingSpacing = 60.0

// Layout maps visible node IDs to positions in the z=0 plane.
type Layout struct {
	positions map[string]r3.Vec
	radius    float64
}

// Position returns the position of id.
func (l *Layout) Position(id string) (r3.Vec, bool) {
	p, ok := l.positions[id]
	return p, ok
}

// Radius returns the distance of the outermost node from the origin.
func (l *Layout) Radius() float64 { return l.radius }

// Len returns the number of placed nodes.
func (l *Layout) Len() int { return len(l.positions) }

// RadialLayout places the root at the origin and each visible node on the
// ring for its depth. Every node gets an angular wedge proportional to the
// number of visible leaves below it, so crowded subtrees get more room.
// Siblings are laid out clockwise in snapshot order.
func RadialLayout(snap *graph.Snapshot, ringSpacing float64) *Layout {
	if ringSpacing <= 0 {
		ringSpacing = DefaultRingSpacing
	}
	l := &Layout{positions: make(map[string]r3.Vec, len(snap.Nodes))}
	if len(snap.Nodes) == 0 {
		return l
	}

	children := make(map[string][]string, len(snap.Nodes))
	for _, e := range snap.Edges {
		children[e.Source] = append(children[e.Source], e.Target)
	}

	// Snapshot nodes are in pre-order, so a reverse scan sees every child
	// before its parent.
	leaves := make(map[string]int, len(snap.Nodes))
	for i := len(snap.Nodes) - 1; i >= 0; i-- {
		id := snap.Nodes[i].ID
		kids := children[id]
		if len(kids) == 0 {
			leaves[id] = 1
			continue
		}
		for _, k := range kids {
			leaves[id] += leaves[k]
		}
	}

	type wedge struct {
		id         string
		depth      int
		start, end float64
	}
	root := snap.Nodes[0].ID
	stack := []wedge{{id: root, start: 0, end: 2 * math.Pi}}
	for len(stack) > 0 {
		w := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		if w.depth == 0 {
			l.positions[w.id] = r3.Vec{}
		} else {
			mid := (w.start + w.end) / 2
			r := float64(w.depth) * ringSpacing
			l.positions[w.id] = r3.Vec{X: r * math.Cos(mid), Y: r * math.Sin(mid)}
			if r > l.radius {
				l.radius = r
			}
		}

		kids := children[w.id]
		if len(kids) == 0 {
			continue
		}
		span := (w.end - w.start) / float64(leaves[w.id])
		at := w.start
		for _, k := range kids {
			next := at + span*float64(leaves[k])
			stack = append(stack, wedge{id: k, depth: w.depth + 1, start: at, end: next})
			at = next
		}
	}
	return l
}
