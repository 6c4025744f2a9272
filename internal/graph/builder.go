package graph

import "strings"

// BuildTree constructs the path tree for a manifest.
//
// Entries are processed in order. Each path is split on "/" and walked from
// the root; missing ancestors are created as directories. The terminal node
// takes its kind from the entry ("blob" is a file, anything else a
// directory). Listing a path twice is a no-op. When a path is both a leaf
// entry and an ancestor of another entry, the node stays a directory and a
// StructuralWarning is recorded.
//
// Node IDs are substrings of the manifest paths and each segment is resolved
// with one map lookup keyed by (parent, segment), so the build runs in time
// proportional to the total length of all paths.
func BuildTree(entries []Entry) (*Tree, error) {
	if len(entries) == 0 {
		return nil, &ValidationError{Index: -1, Reason: "manifest is empty"}
	}

	root := &Node{Meta: Meta{ID: RootID, Kind: KindDirectory, SizeHint: SizeRoot}}
	t := &Tree{
		root:     root,
		nodes:    []*Node{root},
		children: make(map[childKey]*Node, len(entries)),
	}

	// leafAt remembers which entry declared a node as a file, so a later
	// implied-directory conflict can be attributed to it.
	leafAt := make(map[int]int)

	for i, e := range entries {
		if err := validatePath(i, e.Path); err != nil {
			return nil, err
		}
		isFile := e.Kind == EntryBlob

		parent := root
		for start := 0; start < len(e.Path); {
			end := strings.IndexByte(e.Path[start:], '/')
			last := end < 0
			if last {
				end = len(e.Path)
			} else {
				end += start
			}
			name := e.Path[start:end]
			key := childKey{parent: parent.ord, name: name}

			n, exists := t.children[key]
			switch {
			case !exists:
				n = &Node{
					Meta:   Meta{ID: e.Path[:end], Name: name, Kind: KindDirectory, SizeHint: SizeDirectory},
					Parent: parent,
					ord:    len(t.nodes),
				}
				if last && isFile {
					n.Kind = KindFile
					n.SizeHint = SizeFile
					leafAt[n.ord] = i
				}
				t.nodes = append(t.nodes, n)
				t.children[key] = n
				parent.Children = append(parent.Children, n)

			case !last && n.Kind == KindFile:
				// Declared as a file earlier, now implied as a directory.
				n.Kind = KindDirectory
				n.SizeHint = SizeDirectory
				t.warnings = append(t.warnings, StructuralWarning{
					Index:  leafAt[n.ord],
					Path:   n.ID,
					Reason: "listed as a file but contains other entries; treated as directory",
				})
				delete(leafAt, n.ord)

			case last && isFile && n.Kind == KindDirectory:
				t.warnings = append(t.warnings, StructuralWarning{
					Index:  i,
					Path:   n.ID,
					Reason: "listed as a file but already known as a directory; treated as directory",
				})

			case last && !isFile && n.Kind == KindFile:
				// An explicit tree entry for a path first listed as a blob.
				n.Kind = KindDirectory
				n.SizeHint = SizeDirectory
				t.warnings = append(t.warnings, StructuralWarning{
					Index:  leafAt[n.ord],
					Path:   n.ID,
					Reason: "listed as both file and directory; treated as directory",
				})
				delete(leafAt, n.ord)
			}

			parent = n
			start = end + 1
		}
	}

	return t, nil
}

// validatePath rejects paths the builder cannot split unambiguously.
func validatePath(i int, p string) error {
	fail := func(reason string) error {
		return &ValidationError{Index: i, Path: p, Reason: reason}
	}
	if p == "" {
		return fail("empty path")
	}
	if strings.ContainsRune(p, '\\') {
		return fail(`backslash separator; only "/" is accepted`)
	}
	if p[0] == '/' {
		return fail("leading separator")
	}
	if p[len(p)-1] == '/' {
		return fail("trailing separator")
	}
	for start := 0; start <= len(p); {
		end := strings.IndexByte(p[start:], '/')
		if end < 0 {
			end = len(p)
		} else {
			end += start
		}
		switch p[start:end] {
		case "":
			return fail("empty path segment")
		case ".", "..":
			return fail("relative path segment")
		}
		start = end + 1
	}
	return nil
}
