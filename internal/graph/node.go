// Package graph turns a flat repository manifest into a rooted path tree
// and derives the visible node/edge subset for a given collapse state.
//
// The tree is built once per manifest (BuildTree) and never mutated after
// that. Collapse state is held separately in an immutable Expansion value;
// every toggle produces a new Expansion and Prune derives a fresh Snapshot
// from the pair. Nothing in this package performs I/O.
package graph

import "strings"

// ============================================================
// Manifest entries
// ============================================================

// Entry kinds as reported by the repository host's tree listing.
const (
	EntryBlob = "blob"
	EntryTree = "tree"
)

// Entry is one record of a flat manifest: a slash-separated path and the
// host's object type for it.
type Entry struct {
	Path string `json:"path" yaml:"path"`
	Kind string `json:"type" yaml:"type"`
}

// ============================================================
// Nodes
// ============================================================

// Kind discriminates files from directories.
type Kind uint8

const (
	KindDirectory Kind = iota
	KindFile
)

// String implements fmt.Stringer.
func (k Kind) String() string {
	if k == KindFile {
		return "file"
	}
	return "directory"
}

// MarshalText renders the kind as "file" or "directory" in JSON/YAML output.
func (k Kind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

// Size hints handed to renderers.
const (
	SizeRoot      = 2.0
	SizeDirectory = 1.5
	SizeFile      = 1.0
)

// RootID is the identifier of the tree root.
const RootID = ""

// Meta is the renderer-facing identity of a node. It is shared by tree
// nodes and snapshot nodes so styling works on either.
type Meta struct {
	ID       string  `json:"id"`
	Name     string  `json:"name"`
	Kind     Kind    `json:"kind"`
	SizeHint float64 `json:"size_hint"`
}

// IsRoot reports whether m describes the tree root.
func (m Meta) IsRoot() bool { return m.ID == RootID }

// Node is one path segment of the tree.
type Node struct {
	Meta

	Parent   *Node
	Children []*Node

	// ord is the creation ordinal; it indexes Expansion.
	ord int
}

// ChildIDs returns the IDs of n's children in manifest order.
func (n *Node) ChildIDs() []string {
	ids := make([]string, len(n.Children))
	for i, c := range n.Children {
		ids[i] = c.ID
	}
	return ids
}

// Depth returns the number of segments in n's path (0 for root).
func (n *Node) Depth() int {
	if n.ID == RootID {
		return 0
	}
	return strings.Count(n.ID, "/") + 1
}

// ============================================================
// Tree
// ============================================================

// childKey addresses a child by its parent ordinal and segment name.
type childKey struct {
	parent int
	name   string
}

// Tree is an immutable path tree built from one manifest.
//
// Precondition relied upon by Prune: every node is reachable from the root
// through exactly one parent. BuildTree guarantees this; Verify checks it.
type Tree struct {
	root     *Node
	nodes    []*Node
	children map[childKey]*Node
	warnings []StructuralWarning
}

// Root returns the root node.
func (t *Tree) Root() *Node { return t.root }

// Len returns the total number of nodes, root included.
func (t *Tree) Len() int { return len(t.nodes) }

// Warnings returns the non-fatal kind conflicts found during the build.
func (t *Tree) Warnings() []StructuralWarning {
	out := make([]StructuralWarning, len(t.warnings))
	copy(out, t.warnings)
	return out
}

// Nodes returns every node in creation order.
func (t *Tree) Nodes() []*Node {
	out := make([]*Node, len(t.nodes))
	copy(out, t.nodes)
	return out
}

// Lookup resolves a node by ID in time proportional to len(id).
func (t *Tree) Lookup(id string) (*Node, bool) {
	if id == RootID {
		return t.root, true
	}
	cur := t.root
	for start := 0; start <= len(id); {
		end := strings.IndexByte(id[start:], '/')
		if end < 0 {
			end = len(id)
		} else {
			end += start
		}
		next, ok := t.children[childKey{parent: cur.ord, name: id[start:end]}]
		if !ok {
			return nil, false
		}
		cur = next
		start = end + 1
	}
	return cur, true
}

// Ancestors returns the chain from the root down to (excluding) the node
// with the given id.
func (t *Tree) Ancestors(id string) ([]*Node, error) {
	n, ok := t.Lookup(id)
	if !ok {
		return nil, &UnknownNodeError{ID: id}
	}
	var chain []*Node
	for p := n.Parent; p != nil; p = p.Parent {
		chain = append(chain, p)
	}
	for i, j := 0, len(chain)-1; i < j; i, j = i+1, j-1 {
		chain[i], chain[j] = chain[j], chain[i]
	}
	return chain, nil
}

// Walk visits every node in pre-order. Returning false from fn skips the
// node's subtree.
func (t *Tree) Walk(fn func(n *Node) bool) {
	stack := []*Node{t.root}
	for len(stack) > 0 {
		n := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if !fn(n) {
			continue
		}
		for i := len(n.Children) - 1; i >= 0; i-- {
			stack = append(stack, n.Children[i])
		}
	}
}
