package server

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/Mr-Dark-debug/codevis/internal/explorer"
	"github.com/Mr-Dark-debug/codevis/internal/graph"
	"github.com/Mr-Dark-debug/codevis/internal/manifest"
)

// gatedSource blocks in Fetch until gate closes.
type gatedSource struct {
	entries []graph.Entry
	entered chan struct{}
	gate    chan struct{}
}

func (s *gatedSource) Name() string { return "test:gated" }

func (s *gatedSource) Fetch(ctx context.Context) ([]graph.Entry, error) {
	close(s.entered)
	select {
	case <-s.gate:
		return s.entries, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

const exampleManifest = `[
  {"path": "src/a.ts", "type": "blob"},
  {"path": "src/b/c.ts", "type": "blob"},
  {"path": "README.md", "type": "blob"}
]`

func writeManifest(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "manifest.json")
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("WriteFile failed: %v", err)
	}
	return path
}

func newTestServer(t *testing.T) (*Server, http.Handler) {
	t.Helper()
	s := New(DefaultConfig(), explorer.New(explorer.Options{}), &manifest.Resolver{})
	return s, s.Handler()
}

func do(t *testing.T, h http.Handler, method, target, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, target, nil)
	} else {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder, v any) {
	t.Helper()
	if err := json.Unmarshal(rec.Body.Bytes(), v); err != nil {
		t.Fatalf("decoding %q failed: %v", rec.Body.String(), err)
	}
}

func loadExample(t *testing.T, h http.Handler) {
	t.Helper()
	path := writeManifest(t, exampleManifest)
	body := fmt.Sprintf(`{"manifest": %q}`, path)
	rec := do(t, h, http.MethodPost, "/api/load", body)
	if rec.Code != http.StatusOK {
		t.Fatalf("load status = %d: %s", rec.Code, rec.Body.String())
	}
}

// TestHealth checks the liveness endpoint.
func TestHealth(t *testing.T) {
	_, h := newTestServer(t)
	rec := do(t, h, http.MethodGet, "/health", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("health status = %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), `"ok"`) {
		t.Errorf("health body = %s", rec.Body.String())
	}
}

// TestGraphBeforeLoad verifies that no graph is served until a load.
func TestGraphBeforeLoad(t *testing.T) {
	_, h := newTestServer(t)
	rec := do(t, h, http.MethodGet, "/api/graph", "")
	if rec.Code != http.StatusNotFound {
		t.Errorf("graph status = %d, want 404", rec.Code)
	}
	var body errorResponse
	decodeBody(t, rec, &body)
	if body.Error == "" || body.RequestID == "" || body.RequestID != rec.Header().Get("X-Request-ID") {
		t.Errorf("error body = %+v", body)
	}
	if rec := do(t, h, http.MethodPost, "/api/nodes/toggle", `{"id": "src"}`); rec.Code != http.StatusNotFound {
		t.Errorf("toggle status = %d, want 404", rec.Code)
	}
}

// TestLoadAndToggle loads a manifest file and expands a directory.
func TestLoadAndToggle(t *testing.T) {
	s, h := newTestServer(t)
	loadExample(t, h)

	var g explorer.RenderGraph
	rec := do(t, h, http.MethodGet, "/api/graph?theme=light", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("graph status = %d", rec.Code)
	}
	decodeBody(t, rec, &g)
	if len(g.Nodes) != 3 || len(g.Links) != 2 {
		t.Fatalf("initial graph = %d nodes, %d links", len(g.Nodes), len(g.Links))
	}
	if g.Theme != "light" {
		t.Errorf("theme = %q", g.Theme)
	}

	rec = do(t, h, http.MethodPost, "/api/nodes/toggle", `{"id": "src"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("toggle status = %d: %s", rec.Code, rec.Body.String())
	}
	decodeBody(t, rec, &g)
	if len(g.Nodes) != 5 {
		t.Errorf("expanded graph has %d nodes, want 5", len(g.Nodes))
	}

	st := s.Stats()
	if st.Loads != 1 || st.Toggles != 1 {
		t.Errorf("stats = %+v", st)
	}
	if st.Nodes != 6 || st.VisibleNodes != 5 {
		t.Errorf("node counts = %d/%d", st.Nodes, st.VisibleNodes)
	}
	if !strings.HasPrefix(st.Source, "file:") {
		t.Errorf("source = %q", st.Source)
	}
}

// TestRequestErrors covers the status mapping for bad input.
func TestRequestErrors(t *testing.T) {
	_, h := newTestServer(t)
	loadExample(t, h)

	tests := []struct {
		name   string
		method string
		target string
		body   string
		want   int
	}{
		{"unknown node", http.MethodPost, "/api/nodes/toggle", `{"id": "nope"}`, http.StatusNotFound},
		{"missing id", http.MethodPost, "/api/nodes/toggle", `{}`, http.StatusBadRequest},
		{"malformed body", http.MethodPost, "/api/nodes/toggle", `{`, http.StatusBadRequest},
		{"unknown field", http.MethodPost, "/api/nodes/select", `{"id": "src", "x": 1}`, http.StatusBadRequest},
		{"bad theme", http.MethodGet, "/api/graph?theme=neon", "", http.StatusBadRequest},
		{"info unknown", http.MethodGet, "/api/node?id=zzz", "", http.StatusNotFound},
		{"focus at origin", http.MethodPost, "/api/focus", `{"id": "src", "position": {"x":0,"y":0,"z":0}}`, http.StatusUnprocessableEntity},
		{"bad zoom", http.MethodPost, "/api/camera/zoom", `{"direction": "sideways"}`, http.StatusBadRequest},
		{"empty selector", http.MethodPost, "/api/load", `{}`, http.StatusBadRequest},
		{"bad repo", http.MethodPost, "/api/load", `{"repo": "https://gitlab.com/a/b"}`, http.StatusBadRequest},
		{"wrong method", http.MethodGet, "/api/nodes/toggle", "", http.StatusMethodNotAllowed},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := do(t, h, tt.method, tt.target, tt.body)
			if rec.Code != tt.want {
				t.Errorf("status = %d, want %d: %s", rec.Code, tt.want, rec.Body.String())
			}
		})
	}
}

// TestInvalidManifestKeepsTree verifies a failed load leaves the previous
// graph in place.
func TestInvalidManifestKeepsTree(t *testing.T) {
	_, h := newTestServer(t)
	loadExample(t, h)

	bad := writeManifest(t, `[{"path": "/abs", "type": "blob"}]`)
	rec := do(t, h, http.MethodPost, "/api/load", fmt.Sprintf(`{"manifest": %q}`, bad))
	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("load status = %d: %s", rec.Code, rec.Body.String())
	}
	if rec := do(t, h, http.MethodGet, "/api/graph", ""); rec.Code != http.StatusOK {
		t.Errorf("graph status after failed load = %d", rec.Code)
	}
}

// TestSelectFocusAndCamera walks the selection and camera endpoints.
func TestSelectFocusAndCamera(t *testing.T) {
	_, h := newTestServer(t)
	loadExample(t, h)

	var info explorer.NodeInfo
	rec := do(t, h, http.MethodPost, "/api/nodes/select", `{"id": "src/b/c.ts"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("select status = %d", rec.Code)
	}
	decodeBody(t, rec, &info)
	if info.Visible || info.Depth != 3 {
		t.Errorf("info = %+v", info)
	}

	rec = do(t, h, http.MethodPost, "/api/nodes/reveal", `{"id": "src/b/c.ts"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("reveal status = %d", rec.Code)
	}

	var ft explorer.FocusTarget
	rec = do(t, h, http.MethodPost, "/api/focus", `{"id": "src", "position": {"x":10,"y":0,"z":0}}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("focus status = %d: %s", rec.Code, rec.Body.String())
	}
	decodeBody(t, rec, &ft)
	if ft.X != 50 || ft.LookAt.X != 10 || ft.DurationMs != 1000 {
		t.Errorf("focus target = %+v", ft)
	}

	rec = do(t, h, http.MethodPost, "/api/focus", `{"id": "", "position": {"x":0,"y":0,"z":0}, "camera": {"x":0,"y":0,"z":10}}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("root focus status = %d: %s", rec.Code, rec.Body.String())
	}

	rec = do(t, h, http.MethodPost, "/api/camera/zoom", `{"direction": "in", "camera": {"x":0,"y":0,"z":100}}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("zoom status = %d", rec.Code)
	}
	decodeBody(t, rec, &ft)
	if ft.Z != 80 {
		t.Errorf("zoomed z = %v, want 80", ft.Z)
	}

	if rec := do(t, h, http.MethodPost, "/api/camera/reset", ""); rec.Code != http.StatusOK {
		t.Errorf("reset status = %d", rec.Code)
	}
	if rec := do(t, h, http.MethodPost, "/api/collapse", ""); rec.Code != http.StatusOK {
		t.Errorf("collapse status = %d", rec.Code)
	}
}

// TestBusyDuringLoad verifies that toggles are rejected while a load runs.
func TestBusyDuringLoad(t *testing.T) {
	s, h := newTestServer(t)
	loadExample(t, h)

	src := &gatedSource{
		entries: []graph.Entry{{Path: "x.ts", Kind: graph.EntryBlob}},
		entered: make(chan struct{}),
		gate:    make(chan struct{}),
	}
	done := make(chan error, 1)
	go func() {
		_, err := s.load(context.Background(), src)
		done <- err
	}()
	<-src.entered

	if rec := do(t, h, http.MethodPost, "/api/nodes/toggle", `{"id": "src"}`); rec.Code != http.StatusConflict {
		t.Errorf("toggle during load = %d, want 409", rec.Code)
	}

	close(src.gate)
	if err := <-done; err != nil {
		t.Fatalf("gated load failed: %v", err)
	}
	if st := s.Stats(); st.Nodes != 2 || st.Source != "test:gated" {
		t.Errorf("stats after gated load = %+v", st)
	}
}

// TestWatchReloadsManifest starts the daemon on a watched file and
// rewrites it.
func TestWatchReloadsManifest(t *testing.T) {
	path := writeManifest(t, exampleManifest)

	cfg := DefaultConfig()
	cfg.ListenAddr = "127.0.0.1:0"
	cfg.WatchManifest = path
	cfg.Debounce = 10 * time.Millisecond
	s := New(cfg, explorer.New(explorer.Options{}), nil)

	if err := s.Start(context.Background()); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	defer s.Stop()

	if st := s.Stats(); st.Nodes != 6 {
		t.Fatalf("initial nodes = %d, want 6", st.Nodes)
	}

	resp, err := http.Get("http://" + s.Addr() + "/api/stats")
	if err != nil {
		t.Fatalf("GET /api/stats failed: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("stats status = %d", resp.StatusCode)
	}

	// Give the watcher time to register before writing.
	time.Sleep(50 * time.Millisecond)
	if err := os.WriteFile(path, []byte(`[{"path": "only.go", "type": "blob"}]`), 0o644); err != nil {
		t.Fatalf("WriteFile failed: %v", err)
	}

	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		if s.Stats().Nodes == 2 {
			return
		}
		time.Sleep(20 * time.Millisecond)
	}
	t.Errorf("manifest was not reloaded; stats = %+v", s.Stats())
}

// TestTransitionHonorsTheme verifies that transitions render the snapshot
// they produced in the requested theme, and that a bad theme changes
// nothing.
func TestTransitionHonorsTheme(t *testing.T) {
	s, h := newTestServer(t)
	loadExample(t, h)

	if rec := do(t, h, http.MethodPost, "/api/nodes/toggle?theme=neon", `{"id": "src"}`); rec.Code != http.StatusBadRequest {
		t.Fatalf("bad theme status = %d, want 400", rec.Code)
	}
	if n := len(s.ctrl.Snapshot().Nodes); n != 3 {
		t.Fatalf("rejected toggle changed the view: %d nodes", n)
	}

	var g explorer.RenderGraph
	rec := do(t, h, http.MethodPost, "/api/nodes/toggle?theme=light", `{"id": "src"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("toggle status = %d: %s", rec.Code, rec.Body.String())
	}
	decodeBody(t, rec, &g)
	if g.Theme != "light" || len(g.Nodes) != 5 {
		t.Errorf("toggle rendered theme %q with %d nodes", g.Theme, len(g.Nodes))
	}

	rec = do(t, h, http.MethodPost, "/api/collapse?theme=light", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("collapse status = %d: %s", rec.Code, rec.Body.String())
	}
	decodeBody(t, rec, &g)
	if g.Theme != "light" || len(g.Nodes) != 3 {
		t.Errorf("collapse rendered theme %q with %d nodes", g.Theme, len(g.Nodes))
	}
}

// TestMetricsLabelRoutes verifies that request metrics are labeled by
// route pattern, so unknown URLs share a single series.
func TestMetricsLabelRoutes(t *testing.T) {
	_, h := newTestServer(t)
	for i := 0; i < 5; i++ {
		if rec := do(t, h, http.MethodGet, fmt.Sprintf("/random-%d", i), ""); rec.Code != http.StatusNotFound {
			t.Fatalf("unknown path status = %d", rec.Code)
		}
	}
	do(t, h, http.MethodGet, "/health", "")

	rec := do(t, h, http.MethodGet, "/metrics", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("metrics status = %d", rec.Code)
	}
	body := rec.Body.String()
	if strings.Contains(body, "random-") {
		t.Error("raw request path leaked into metric labels")
	}
	if !strings.Contains(body, `path="unmatched"`) {
		t.Error("unknown paths not labeled as unmatched")
	}
	if !strings.Contains(body, `path="/health"`) {
		t.Error("matched route not labeled by pattern")
	}
}
