package manifest

import (
	"context"
	"fmt"
	"io/fs"
	"path/filepath"

	"github.com/Mr-Dark-debug/codevis/internal/graph"
)

// DefaultIgnore lists directory names DirSource never descends into.
var DefaultIgnore = []string{".git"}

// DirSource lists a local checkout.
type DirSource struct {
	root   string
	ignore map[string]bool
}

// NewDirSource creates a source for the tree under root. A nil ignore list
// selects DefaultIgnore.
func NewDirSource(root string, ignore []string) *DirSource {
	if ignore == nil {
		ignore = DefaultIgnore
	}
	skip := make(map[string]bool, len(ignore))
	for _, name := range ignore {
		skip[name] = true
	}
	return &DirSource{root: filepath.Clean(root), ignore: skip}
}

// Name implements Source.
func (d *DirSource) Name() string { return "dir:" + d.root }

// Fetch implements Source. Directories become "tree" entries and everything
// else "blob", in lexical walk order.
func (d *DirSource) Fetch(ctx context.Context) ([]graph.Entry, error) {
	var entries []graph.Entry
	err := filepath.WalkDir(d.root, func(path string, de fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		if path == d.root {
			return nil
		}
		if de.IsDir() && d.ignore[de.Name()] {
			return filepath.SkipDir
		}

		rel, err := filepath.Rel(d.root, path)
		if err != nil {
			return err
		}
		kind := graph.EntryBlob
		if de.IsDir() {
			kind = graph.EntryTree
		}
		entries = append(entries, graph.Entry{Path: filepath.ToSlash(rel), Kind: kind})
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walking %s: %w", d.root, err)
	}
	return entries, nil
}
