package manifest

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/Mr-Dark-debug/codevis/internal/database"
	"github.com/Mr-Dark-debug/codevis/internal/graph"
)

// countingSource is an in-memory Source that records how often it was hit.
type countingSource struct {
	name    string
	entries []graph.Entry
	err     error
	calls   int
}

func (c *countingSource) Name() string { return c.name }

func (c *countingSource) Fetch(ctx context.Context) ([]graph.Entry, error) {
	c.calls++
	if c.err != nil {
		return nil, c.err
	}
	return c.entries, nil
}

func newCacheStore(t *testing.T) *database.DBService {
	t.Helper()
	svc, err := database.NewDBService(":memory:")
	if err != nil {
		t.Fatalf("NewDBService failed: %v", err)
	}
	t.Cleanup(func() { svc.Close() })
	return svc
}

func TestCachedSourceHitAndExpiry(t *testing.T) {
	store := newCacheStore(t)
	inner := &countingSource{
		name:    "github:acme/widgets@main",
		entries: []graph.Entry{{Path: "a.ts", Kind: "blob"}, {Path: "b", Kind: "tree"}},
	}
	now := time.Unix(1_700_000_000, 0)
	src := NewCachedSource(inner, store, time.Minute)
	src.now = func() time.Time { return now }

	for i := 0; i < 2; i++ {
		entries, err := src.Fetch(context.Background())
		if err != nil {
			t.Fatalf("Fetch %d failed: %v", i, err)
		}
		if len(entries) != 2 || entries[0].Path != "a.ts" {
			t.Errorf("Fetch %d entries = %+v", i, entries)
		}
	}
	if inner.calls != 1 {
		t.Errorf("expected 1 upstream fetch, got %d", inner.calls)
	}

	m, err := store.GetManifest("github:acme/widgets@main")
	if err != nil {
		t.Fatalf("GetManifest failed: %v", err)
	}
	if m.Source != "github" {
		t.Errorf("expected source kind github, got %q", m.Source)
	}

	now = now.Add(2 * time.Minute)
	if _, err := src.Fetch(context.Background()); err != nil {
		t.Fatalf("Fetch after expiry failed: %v", err)
	}
	if inner.calls != 2 {
		t.Errorf("expected refetch after expiry, got %d calls", inner.calls)
	}
}

func TestCachedSourceZeroTTLBypassesReads(t *testing.T) {
	store := newCacheStore(t)
	inner := &countingSource{name: "dir:/x", entries: []graph.Entry{{Path: "a", Kind: "blob"}}}
	src := NewCachedSource(inner, store, 0)

	src.Fetch(context.Background())
	src.Fetch(context.Background())
	if inner.calls != 2 {
		t.Errorf("expected every fetch to reach the source, got %d", inner.calls)
	}
}

func TestCachedSourcePropagatesErrors(t *testing.T) {
	store := newCacheStore(t)
	boom := errors.New("boom")
	src := NewCachedSource(&countingSource{name: "x", err: boom}, store, time.Minute)

	if _, err := src.Fetch(context.Background()); !errors.Is(err, boom) {
		t.Errorf("expected boom, got %v", err)
	}
	if _, err := store.GetManifest("x"); !errors.Is(err, database.ErrNotFound) {
		t.Errorf("failed fetch must not be cached, got %v", err)
	}
}

// TestStoredSourceReplaysCache reads back a saved manifest and reports
// missing keys.
func TestStoredSourceReplaysCache(t *testing.T) {
	store := newCacheStore(t)
	key := "github:acme/widgets@main"
	err := store.SaveManifest(&database.Manifest{
		ManifestInfo: database.ManifestInfo{Key: key, Source: "github", FetchedAt: 1},
		Entries:      []graph.Entry{{Path: "a.ts", Kind: "blob"}},
	})
	if err != nil {
		t.Fatalf("SaveManifest failed: %v", err)
	}

	src := NewStoredSource(store, key)
	if src.Name() != key {
		t.Errorf("Name() = %q", src.Name())
	}
	entries, err := src.Fetch(context.Background())
	if err != nil {
		t.Fatalf("Fetch failed: %v", err)
	}
	if len(entries) != 1 || entries[0].Path != "a.ts" {
		t.Errorf("entries = %+v", entries)
	}

	_, err = NewStoredSource(store, "github:none/none").Fetch(context.Background())
	if !errors.Is(err, database.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}
