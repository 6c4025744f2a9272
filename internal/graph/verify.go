package graph

import "fmt"

// Verify checks the structural precondition Prune relies on: every node is
// reachable exactly once, has the parent its ID implies, and has no
// duplicate children. It is meant for tests and debugging tools, not for
// the rendering path.
func Verify(t *Tree) error {
	if t.root == nil || t.root.ID != RootID || t.root.Parent != nil {
		return fmt.Errorf("verify: malformed root")
	}
	seen := make(map[*Node]bool, len(t.nodes))
	stack := []*Node{t.root}
	for len(stack) > 0 {
		n := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if seen[n] {
			return fmt.Errorf("verify: node %q reachable more than once", n.ID)
		}
		seen[n] = true

		names := make(map[string]bool, len(n.Children))
		for _, c := range n.Children {
			if names[c.Name] {
				return fmt.Errorf("verify: duplicate child %q under %q", c.Name, n.ID)
			}
			names[c.Name] = true
			if c.Parent != n {
				return fmt.Errorf("verify: child %q has wrong parent", c.ID)
			}
			want := c.Name
			if n.ID != RootID {
				want = n.ID + "/" + c.Name
			}
			if c.ID != want {
				return fmt.Errorf("verify: child id %q, want %q", c.ID, want)
			}
			if n.Kind == KindFile {
				return fmt.Errorf("verify: file %q has children", n.ID)
			}
			stack = append(stack, c)
		}
	}
	if len(seen) != len(t.nodes) {
		return fmt.Errorf("verify: %d nodes reachable, %d created", len(seen), len(t.nodes))
	}
	return nil
}
