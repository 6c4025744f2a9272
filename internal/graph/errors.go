package graph

import (
	"errors"
	"fmt"
)

// ErrUnknownNode is matched by errors.Is for lookups of IDs not in the tree.
var ErrUnknownNode = errors.New("unknown node")

// ValidationError reports a malformed manifest. It aborts the build.
type ValidationError struct {
	Index  int // entry position in the manifest, -1 for manifest-level problems
	Path   string
	Reason string
}

func (e *ValidationError) Error() string {
	if e.Index < 0 {
		return "invalid manifest: " + e.Reason
	}
	return fmt.Sprintf("invalid manifest entry %d (%q): %s", e.Index, e.Path, e.Reason)
}

// StructuralWarning records a path that was listed as a leaf but is also an
// implied ancestor directory of another entry. The node is kept as a
// directory.
type StructuralWarning struct {
	Index  int    `json:"index"`
	Path   string `json:"path"`
	Reason string `json:"reason"`
}

func (w StructuralWarning) String() string {
	return fmt.Sprintf("entry %d (%q): %s", w.Index, w.Path, w.Reason)
}

// UnknownNodeError carries the ID that failed to resolve.
type UnknownNodeError struct {
	ID string
}

func (e *UnknownNodeError) Error() string {
	return fmt.Sprintf("unknown node %q", e.ID)
}

func (e *UnknownNodeError) Is(target error) bool {
	return target == ErrUnknownNode
}
