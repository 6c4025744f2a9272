// Package manifest acquires flat path manifests for graph.BuildTree.
//
// A Source hides where the listing comes from: the GitHub tree API, a
// manifest file on disk, a local checkout, or any of those behind the
// session cache. Every source returns entries in the order the host listed
// them; BuildTree depends on that order for child ordering.
package manifest

import (
	"context"
	"errors"

	"github.com/Mr-Dark-debug/codevis/internal/graph"
)

// ErrTruncated marks a listing the host cut short. It is logged, never
// returned: a partial tree is still worth exploring.
var ErrTruncated = errors.New("manifest listing truncated by host")

// Source produces a manifest.
type Source interface {
	// Fetch returns the manifest entries in host order.
	Fetch(ctx context.Context) ([]graph.Entry, error)
	// Name identifies the source, e.g. "github:owner/repo@main". It doubles
	// as the cache key.
	Name() string
}

// Listing is a manifest plus what the host said about it.
type Listing struct {
	Entries   []graph.Entry
	Truncated bool
	Revision  string // host revision id, when known
}

// Lister is implemented by sources that can report listing metadata.
type Lister interface {
	List(ctx context.Context) (*Listing, error)
}

// list fetches through List when src supports it.
func list(ctx context.Context, src Source) (*Listing, error) {
	if l, ok := src.(Lister); ok {
		return l.List(ctx)
	}
	entries, err := src.Fetch(ctx)
	if err != nil {
		return nil, err
	}
	return &Listing{Entries: entries}, nil
}
