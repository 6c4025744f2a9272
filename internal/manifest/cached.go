package manifest

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/Mr-Dark-debug/codevis/internal/database"
	"github.com/Mr-Dark-debug/codevis/internal/graph"
	"github.com/Mr-Dark-debug/codevis/internal/logging"
)

// CachedSource serves a manifest from the session cache while it is
// younger than the TTL and refreshes it from the wrapped source otherwise.
// A zero TTL disables reads but still records each fetch.
type CachedSource struct {
	inner Source
	store database.Store
	ttl   time.Duration
	now   func() time.Time
}

// NewCachedSource wraps inner with a read-through cache.
func NewCachedSource(inner Source, store database.Store, ttl time.Duration) *CachedSource {
	return &CachedSource{inner: inner, store: store, ttl: ttl, now: time.Now}
}

// Name implements Source; the cache is transparent.
func (c *CachedSource) Name() string { return c.inner.Name() }

// Fetch implements Source.
func (c *CachedSource) Fetch(ctx context.Context) ([]graph.Entry, error) {
	l, err := c.List(ctx)
	if err != nil {
		return nil, err
	}
	return l.Entries, nil
}

// List implements Lister.
func (c *CachedSource) List(ctx context.Context) (*Listing, error) {
	key := c.inner.Name()

	if c.ttl > 0 {
		m, err := c.store.GetManifest(key)
		switch {
		case err == nil:
			age := c.now().Sub(time.Unix(0, m.FetchedAt))
			if age < c.ttl {
				logging.Debug("manifest cache hit", logging.Source(key), logging.Duration("age", age))
				return &Listing{
					Entries:   m.Entries,
					Truncated: m.Truncated,
					Revision:  m.Metadata["revision"],
				}, nil
			}
		case !errors.Is(err, database.ErrNotFound):
			logging.Warn("manifest cache read failed", logging.Source(key), logging.Err(err))
		}
	}

	l, err := list(ctx, c.inner)
	if err != nil {
		return nil, err
	}

	m := &database.Manifest{
		ManifestInfo: database.ManifestInfo{
			Key:       key,
			Source:    KindOf(key),
			FetchedAt: c.now().UnixNano(),
			Truncated: l.Truncated,
		},
		Entries: l.Entries,
	}
	if l.Revision != "" {
		m.Metadata = map[string]string{"revision": l.Revision}
	}
	if err := c.store.SaveManifest(m); err != nil {
		logging.Warn("manifest cache write failed", logging.Source(key), logging.Err(err))
	}
	return l, nil
}

// KindOf returns the prefix of a source name: "github", "file" or "dir".
func KindOf(name string) string {
	kind, _, _ := strings.Cut(name, ":")
	return kind
}

// StoredSource replays a cached manifest by key, whatever its age. It
// lets adapters reopen a previously fetched repository offline.
type StoredSource struct {
	key   string
	store database.Store
}

// NewStoredSource returns a source reading key from store.
func NewStoredSource(store database.Store, key string) *StoredSource {
	return &StoredSource{key: key, store: store}
}

// Name implements Source. It is the original source name so reloads and
// metrics see the same identity.
func (s *StoredSource) Name() string { return s.key }

// Fetch implements Source.
func (s *StoredSource) Fetch(ctx context.Context) ([]graph.Entry, error) {
	l, err := s.List(ctx)
	if err != nil {
		return nil, err
	}
	return l.Entries, nil
}

// List implements Lister.
func (s *StoredSource) List(ctx context.Context) (*Listing, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m, err := s.store.GetManifest(s.key)
	if err != nil {
		return nil, fmt.Errorf("reading cached manifest %s: %w", s.key, err)
	}
	return &Listing{Entries: m.Entries, Truncated: m.Truncated, Revision: m.Metadata["revision"]}, nil
}
