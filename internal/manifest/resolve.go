package manifest

import (
	"errors"
	"fmt"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/Mr-Dark-debug/codevis/internal/database"
)

// Selector errors.
var (
	ErrNoSource        = errors.New("one of repo, manifest or dir is required")
	ErrAmbiguousSource = errors.New("only one of repo, manifest or dir may be set")
)

// Selector names exactly one manifest location. It is shared by the CLI
// flags and the HTTP load request.
type Selector struct {
	Repo     string `json:"repo,omitempty"`
	Manifest string `json:"manifest,omitempty"`
	Dir      string `json:"dir,omitempty"`
}

// Resolver turns selectors into sources with shared settings. Repository
// sources it returns share one in-flight request per repository. A
// Resolver must not be copied after first use.
type Resolver struct {
	GitHub   GitHubOptions
	Cache    database.Store // nil disables caching
	CacheTTL time.Duration

	flights singleflight.Group
}

// Resolve returns the source named by sel. Repository sources go through
// the cache when one is configured; local sources never do.
func (r *Resolver) Resolve(sel Selector) (Source, error) {
	set := 0
	for _, s := range []string{sel.Repo, sel.Manifest, sel.Dir} {
		if s != "" {
			set++
		}
	}
	switch {
	case set == 0:
		return nil, ErrNoSource
	case set > 1:
		return nil, fmt.Errorf("%w, got %d", ErrAmbiguousSource, set)
	}

	switch {
	case sel.Repo != "":
		repo, err := ParseRepoURL(sel.Repo)
		if err != nil {
			return nil, err
		}
		opts := r.GitHub
		if opts.Group == nil {
			opts.Group = &r.flights
		}
		var src Source = NewGitHubSource(repo, opts)
		if r.Cache != nil {
			src = NewCachedSource(src, r.Cache, r.CacheTTL)
		}
		return src, nil
	case sel.Manifest != "":
		return NewFileSource(sel.Manifest), nil
	default:
		return NewDirSource(sel.Dir, nil), nil
	}
}
