package explorer

import (
	"github.com/Mr-Dark-debug/codevis/internal/graph"
	"github.com/Mr-Dark-debug/codevis/internal/style"
)

// RenderNode is a visible node decorated for a force-graph renderer.
type RenderNode struct {
	ID        string  `json:"id"`
	Name      string  `json:"name"`
	Kind      string  `json:"kind"`
	Color     string  `json:"color"`
	Val       float64 `json:"val"`
	Collapsed bool    `json:"collapsed"`
	Depth     int     `json:"depth"`
}

// RenderLink connects two rendered nodes by id.
type RenderLink struct {
	Source string `json:"source"`
	Target string `json:"target"`
}

// RenderGraph is the {nodes, links} document force-graph renderers take.
type RenderGraph struct {
	Theme style.Theme  `json:"theme"`
	Nodes []RenderNode `json:"nodes"`
	Links []RenderLink `json:"links"`
}

// Render decorates snap with colors and sizes for theme t. A nil snapshot
// renders as an empty graph.
func Render(snap *graph.Snapshot, s *style.Styler, t style.Theme) *RenderGraph {
	g := &RenderGraph{Theme: t, Nodes: []RenderNode{}, Links: []RenderLink{}}
	if snap == nil {
		return g
	}

	g.Nodes = make([]RenderNode, len(snap.Nodes))
	for i, n := range snap.Nodes {
		g.Nodes[i] = RenderNode{
			ID:        n.ID,
			Name:      n.Name,
			Kind:      n.Kind.String(),
			Color:     string(s.ColorFor(n.Meta, t)),
			Val:       s.SizeFor(n.Meta),
			Collapsed: n.Collapsed,
			Depth:     n.Depth,
		}
	}
	g.Links = make([]RenderLink, len(snap.Edges))
	for i, e := range snap.Edges {
		g.Links[i] = RenderLink{Source: e.Source, Target: e.Target}
	}
	return g
}
