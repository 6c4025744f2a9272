// Package server exposes the view controller over HTTP for a browser-side
// force-graph renderer.
//
// Architecture:
//
//	Renderer → HTTP JSON API → Server → explorer.Controller → manifest.Source
//
// The renderer owns layout and animation. It asks for the visible graph,
// posts toggles and focus requests, and reloads after /api/load. All state
// lives in the controller; the server is a thin adapter plus metrics.
package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/Mr-Dark-debug/codevis/internal/explorer"
	"github.com/Mr-Dark-debug/codevis/internal/logging"
	"github.com/Mr-Dark-debug/codevis/internal/manifest"
	"github.com/Mr-Dark-debug/codevis/internal/metrics"
	"github.com/Mr-Dark-debug/codevis/internal/style"
)

// Daemon defines the lifecycle of the HTTP service.
type Daemon interface {
	// Start begins serving. It returns once the listener is bound.
	Start(ctx context.Context) error
	// Stop gracefully shuts the server down.
	Stop() error
	// Stats returns the current counters.
	Stats() Stats
}

// Stats tracks request outcomes since start.
type Stats struct {
	Loads        int64  `json:"loads"`
	LoadFailures int64  `json:"load_failures"`
	Toggles      int64  `json:"toggles"`
	Errors       int64  `json:"errors"`
	Nodes        int    `json:"nodes"`
	VisibleNodes int    `json:"visible_nodes"`
	Source       string `json:"source,omitempty"`
	LoadedAt     string `json:"loaded_at,omitempty"`
	Uptime       int64  `json:"uptime_seconds"`
}

// Config holds configuration for the daemon.
type Config struct {
	// ListenAddr is the TCP address to serve on.
	ListenAddr string `json:"listen_addr"`

	// Theme is used when /api/graph has no theme parameter.
	Theme style.Theme `json:"theme"`

	// WatchManifest, when set, is a manifest file loaded at start and
	// reloaded whenever it changes on disk.
	WatchManifest string `json:"watch_manifest"`

	// Debounce is the quiet period before a watched file is reloaded.
	Debounce time.Duration `json:"debounce"`

	// ShutdownTimeout bounds graceful shutdown.
	ShutdownTimeout time.Duration `json:"shutdown_timeout"`
}

// DefaultConfig returns sensible defaults for the daemon.
func DefaultConfig() Config {
	return Config{
		ListenAddr:      "127.0.0.1:9800",
		Theme:           style.ThemeDark,
		Debounce:        manifest.DefaultDebounce,
		ShutdownTimeout: 5 * time.Second,
	}
}

// ============================================================
// Server Implementation
// ============================================================

// Server is the production implementation of Daemon.
type Server struct {
	config   Config
	ctrl     *explorer.Controller
	resolver *manifest.Resolver

	loads        atomic.Int64
	loadFailures atomic.Int64
	toggles      atomic.Int64
	errors       atomic.Int64

	listener net.Listener
	http     *http.Server
	wg       sync.WaitGroup
	started  time.Time
	cancel   context.CancelFunc
}

// New creates a server around ctrl. resolver turns /api/load bodies into
// sources.
func New(config Config, ctrl *explorer.Controller, resolver *manifest.Resolver) *Server {
	if config.Theme == "" {
		config.Theme = style.ThemeDark
	}
	if config.ShutdownTimeout <= 0 {
		config.ShutdownTimeout = 5 * time.Second
	}
	if resolver == nil {
		resolver = &manifest.Resolver{}
	}
	return &Server{config: config, ctrl: ctrl, resolver: resolver, started: time.Now()}
}

// Start binds the listener, serves in the background, and starts the
// manifest watcher when configured.
func (s *Server) Start(ctx context.Context) error {
	s.started = time.Now()

	listener, err := net.Listen("tcp", s.config.ListenAddr)
	if err != nil {
		return fmt.Errorf("listening on %s: %w", s.config.ListenAddr, err)
	}
	s.listener = listener
	s.http = &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, s.cancel = context.WithCancel(ctx)

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		if err := s.http.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logging.Error("http server stopped", logging.Err(err))
		}
	}()

	if s.config.WatchManifest != "" {
		if _, err := s.load(ctx, manifest.NewFileSource(s.config.WatchManifest)); err != nil {
			logging.Warn("initial manifest load failed", logging.String("path", s.config.WatchManifest), logging.Err(err))
		}
		s.wg.Add(1)
		go s.watch(ctx)
	}

	logging.Info("codevis daemon listening", logging.String("addr", listener.Addr().String()))
	return nil
}

// Addr returns the bound address, or "" before Start.
func (s *Server) Addr() string {
	if s.listener == nil {
		return ""
	}
	return s.listener.Addr().String()
}

// Stop gracefully shuts down the server and the watcher.
func (s *Server) Stop() error {
	logging.Info("shutting down codevis daemon")

	if s.cancel != nil {
		s.cancel()
	}

	var err error
	if s.http != nil {
		ctx, cancel := context.WithTimeout(context.Background(), s.config.ShutdownTimeout)
		defer cancel()
		err = s.http.Shutdown(ctx)
	}

	s.wg.Wait()
	logging.Info("codevis daemon stopped")
	return err
}

// Stats returns a snapshot of the counters.
func (s *Server) Stats() Stats {
	st := Stats{
		Loads:        s.loads.Load(),
		LoadFailures: s.loadFailures.Load(),
		Toggles:      s.toggles.Load(),
		Errors:       s.errors.Load(),
		Uptime:       int64(time.Since(s.started).Seconds()),
	}
	if t := s.ctrl.Tree(); t != nil {
		st.Nodes = t.Len()
	}
	if snap := s.ctrl.Snapshot(); snap != nil {
		st.VisibleNodes = len(snap.Nodes)
	}
	if src, at := s.ctrl.Source(); src != "" {
		st.Source = src
		st.LoadedAt = at.Format(time.RFC3339)
	}
	return st
}

// watch reloads the watched manifest after each burst of changes.
func (s *Server) watch(ctx context.Context) {
	defer s.wg.Done()

	src := manifest.NewFileSource(s.config.WatchManifest)
	err := manifest.Watch(ctx, s.config.WatchManifest, s.config.Debounce, func() {
		if _, err := s.load(ctx, src); err != nil && !errors.Is(err, explorer.ErrSuperseded) {
			logging.Warn("manifest reload failed", logging.Source(src.Name()), logging.Err(err))
		}
	})
	if err != nil {
		logging.Error("manifest watcher stopped", logging.Err(err))
	}
}

// load runs a controller load and records its outcome.
func (s *Server) load(ctx context.Context, src manifest.Source) (*explorer.LoadResult, error) {
	start := time.Now()
	kind := manifest.KindOf(src.Name())

	res, err := s.ctrl.Load(ctx, src)
	switch {
	case errors.Is(err, explorer.ErrSuperseded):
		metrics.RecordManifestLoad(kind, "superseded", time.Since(start))
		return nil, err
	case err != nil:
		s.loadFailures.Add(1)
		metrics.RecordManifestLoad(kind, "error", time.Since(start))
		return nil, err
	}

	s.loads.Add(1)
	metrics.RecordManifestLoad(kind, "success", res.Duration)
	metrics.SetTree(res.Nodes, len(res.Warnings))
	metrics.SetVisibleNodes(len(res.Snapshot.Nodes))
	return res, nil
}
