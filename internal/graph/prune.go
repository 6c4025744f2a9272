package graph

// ============================================================
// Collapse state
// ============================================================

// Expansion is an immutable set of collapse flags for one Tree. Methods
// that change state return a new value; the receiver is never modified, so
// an Expansion can be shared freely between observers.
type Expansion struct {
	tree      *Tree
	collapsed []bool
}

// InitialExpansion returns the default state: root expanded, every other
// node collapsed.
func (t *Tree) InitialExpansion() Expansion {
	c := make([]bool, len(t.nodes))
	for i := 1; i < len(c); i++ {
		c[i] = true
	}
	return Expansion{tree: t, collapsed: c}
}

// Tree returns the tree this state belongs to.
func (x Expansion) Tree() *Tree { return x.tree }

// Collapsed reports whether n is collapsed.
func (x Expansion) Collapsed(n *Node) bool {
	return x.collapsed[n.ord]
}

// Toggle returns a copy of x with the collapse flag of id flipped.
func (x Expansion) Toggle(id string) (Expansion, error) {
	n, ok := x.tree.Lookup(id)
	if !ok {
		return x, &UnknownNodeError{ID: id}
	}
	next := x.clone()
	next.collapsed[n.ord] = !next.collapsed[n.ord]
	return next, nil
}

// Expand returns a copy of x with id expanded. Expanding an expanded node
// is a no-op.
func (x Expansion) Expand(id string) (Expansion, error) {
	n, ok := x.tree.Lookup(id)
	if !ok {
		return x, &UnknownNodeError{ID: id}
	}
	if !x.collapsed[n.ord] {
		return x, nil
	}
	next := x.clone()
	next.collapsed[n.ord] = false
	return next, nil
}

// Reveal returns a copy of x in which every ancestor of id is expanded, so
// the node itself becomes visible. The node's own flag is left unchanged.
func (x Expansion) Reveal(id string) (Expansion, error) {
	chain, err := x.tree.Ancestors(id)
	if err != nil {
		return x, err
	}
	next := x.clone()
	for _, a := range chain {
		next.collapsed[a.ord] = false
	}
	return next, nil
}

// CollapseAll returns the initial state for x's tree.
func (x Expansion) CollapseAll() Expansion {
	return x.tree.InitialExpansion()
}

func (x Expansion) clone() Expansion {
	c := make([]bool, len(x.collapsed))
	copy(c, x.collapsed)
	return Expansion{tree: x.tree, collapsed: c}
}

// ============================================================
// Snapshot
// ============================================================

// Edge links a visible parent to a visible child.
type Edge struct {
	Source string `json:"source"`
	Target string `json:"target"`
}

// SnapshotNode is a visible node together with its view state.
type SnapshotNode struct {
	Meta
	Collapsed  bool `json:"collapsed"`
	Depth      int  `json:"depth"`
	ChildCount int  `json:"child_count"`
}

// Snapshot is the visible subset of a tree. Node and edge order is the
// pre-order traversal order and is stable for a given tree and state.
type Snapshot struct {
	Nodes []SnapshotNode `json:"nodes"`
	Edges []Edge         `json:"edges"`
}

// Contains reports whether the snapshot includes the node id.
func (s *Snapshot) Contains(id string) bool {
	for i := range s.Nodes {
		if s.Nodes[i].ID == id {
			return true
		}
	}
	return false
}

// Prune walks the tree in pre-order and returns the nodes and edges visible
// under x. A collapsed node is included but its subtree is never touched,
// so collapsing a large directory makes later prunes cheaper. The edge to
// each child is emitted immediately before the child is visited.
//
// The walk uses an explicit stack and assumes the tree precondition
// documented on Tree; it is not re-checked here.
func Prune(x Expansion) *Snapshot {
	t := x.tree
	snap := &Snapshot{}

	type frame struct {
		node   *Node
		parent *Node
		depth  int
	}
	stack := []frame{{node: t.root}}
	for len(stack) > 0 {
		f := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		if f.parent != nil {
			snap.Edges = append(snap.Edges, Edge{Source: f.parent.ID, Target: f.node.ID})
		}
		collapsed := x.collapsed[f.node.ord]
		snap.Nodes = append(snap.Nodes, SnapshotNode{
			Meta:       f.node.Meta,
			Collapsed:  collapsed,
			Depth:      f.depth,
			ChildCount: len(f.node.Children),
		})
		if collapsed {
			continue
		}
		for i := len(f.node.Children) - 1; i >= 0; i-- {
			stack = append(stack, frame{node: f.node.Children[i], parent: f.node, depth: f.depth + 1})
		}
	}
	if snap.Edges == nil {
		snap.Edges = []Edge{}
	}
	return snap
}
