package manifest

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/Mr-Dark-debug/codevis/internal/graph"
)

// Format selects a manifest file encoding.
type Format int

const (
	FormatJSON Format = iota
	FormatYAML
)

// FormatFor picks the encoding from a file extension; anything that is not
// .yaml or .yml is read as JSON.
func FormatFor(path string) Format {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return FormatYAML
	default:
		return FormatJSON
	}
}

// FileSource reads a manifest saved on disk, either a bare entry list or a
// saved git trees response ({"tree": [...], "truncated": ...}).
type FileSource struct {
	path string
}

// NewFileSource creates a source for the manifest at path.
func NewFileSource(path string) *FileSource {
	return &FileSource{path: path}
}

// Name implements Source.
func (f *FileSource) Name() string { return "file:" + f.path }

// Path returns the manifest location.
func (f *FileSource) Path() string { return f.path }

// Fetch implements Source.
func (f *FileSource) Fetch(ctx context.Context) ([]graph.Entry, error) {
	l, err := f.List(ctx)
	if err != nil {
		return nil, err
	}
	return l.Entries, nil
}

// List implements Lister.
func (f *FileSource) List(ctx context.Context) (*Listing, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	data, err := os.ReadFile(f.path)
	if err != nil {
		return nil, fmt.Errorf("reading manifest %s: %w", f.path, err)
	}
	l, err := ParseManifest(data, FormatFor(f.path))
	if err != nil {
		return nil, fmt.Errorf("manifest %s: %w", f.path, err)
	}
	return l, nil
}

type treeDocument struct {
	SHA       string        `json:"sha" yaml:"sha"`
	Tree      []graph.Entry `json:"tree" yaml:"tree"`
	Truncated bool          `json:"truncated" yaml:"truncated"`
}

// ParseManifest decodes a manifest document.
func ParseManifest(data []byte, format Format) (*Listing, error) {
	switch format {
	case FormatYAML:
		var node yaml.Node
		if err := yaml.Unmarshal(data, &node); err != nil {
			return nil, fmt.Errorf("parsing yaml: %w", err)
		}
		if len(node.Content) == 0 {
			return &Listing{Entries: []graph.Entry{}}, nil
		}
		doc := node.Content[0]
		if doc.Kind == yaml.SequenceNode {
			var entries []graph.Entry
			if err := doc.Decode(&entries); err != nil {
				return nil, fmt.Errorf("decoding entry list: %w", err)
			}
			return &Listing{Entries: entries}, nil
		}
		var td treeDocument
		if err := doc.Decode(&td); err != nil {
			return nil, fmt.Errorf("decoding tree document: %w", err)
		}
		return &Listing{Entries: td.Tree, Truncated: td.Truncated, Revision: td.SHA}, nil

	default:
		trimmed := bytes.TrimSpace(data)
		if len(trimmed) > 0 && trimmed[0] == '[' {
			var entries []graph.Entry
			if err := json.Unmarshal(trimmed, &entries); err != nil {
				return nil, fmt.Errorf("decoding entry list: %w", err)
			}
			return &Listing{Entries: entries}, nil
		}
		var td treeDocument
		if err := json.Unmarshal(trimmed, &td); err != nil {
			return nil, fmt.Errorf("decoding tree document: %w", err)
		}
		return &Listing{Entries: td.Tree, Truncated: td.Truncated, Revision: td.SHA}, nil
	}
}
