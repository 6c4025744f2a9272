package server

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/Mr-Dark-debug/codevis/internal/explorer"
	"github.com/Mr-Dark-debug/codevis/internal/graph"
	"github.com/Mr-Dark-debug/codevis/internal/logging"
	"github.com/Mr-Dark-debug/codevis/internal/manifest"
	"github.com/Mr-Dark-debug/codevis/internal/metrics"
	"github.com/Mr-Dark-debug/codevis/internal/style"
)

// maxBodyBytes bounds request bodies; none of the API payloads come close.
const maxBodyBytes = 1 << 20

// Handler returns the full route table wrapped in logging and metrics
// middleware.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	mux.Handle("GET /metrics", metrics.Handler())

	mux.HandleFunc("GET /api/graph", s.handleGraph)
	mux.HandleFunc("GET /api/node", s.handleNode)
	mux.HandleFunc("GET /api/warnings", s.handleWarnings)
	mux.HandleFunc("GET /api/stats", s.handleStats)

	mux.HandleFunc("POST /api/nodes/toggle", s.handleToggle)
	mux.HandleFunc("POST /api/nodes/reveal", s.handleReveal)
	mux.HandleFunc("POST /api/nodes/select", s.handleSelect)
	mux.HandleFunc("POST /api/collapse", s.handleCollapse)
	mux.HandleFunc("POST /api/focus", s.handleFocus)
	mux.HandleFunc("POST /api/camera/zoom", s.handleZoom)
	mux.HandleFunc("POST /api/camera/reset", s.handleReset)
	mux.HandleFunc("POST /api/load", s.handleLoad)

	return logging.Middleware(metrics.Middleware(mux))
}

// ============================================================
// Request / Response Types
// ============================================================

type nodeRequest struct {
	ID *string `json:"id"`
}

type focusRequest struct {
	ID       *string        `json:"id"`
	Position explorer.Point `json:"position"`
	Camera   explorer.Point `json:"camera"`
}

type zoomRequest struct {
	Direction string         `json:"direction"` // "in" or "out"
	Camera    explorer.Point `json:"camera"`
	LookAt    explorer.Point `json:"lookAt"`
}

type loadResponse struct {
	Source     string                    `json:"source"`
	Nodes      int                       `json:"nodes"`
	Visible    int                       `json:"visible"`
	Warnings   []graph.StructuralWarning `json:"warnings"`
	DurationMs int64                     `json:"duration_ms"`
}

type errorResponse struct {
	Error     string `json:"error"`
	RequestID string `json:"request_id,omitempty"`
}

// ============================================================
// Handlers
// ============================================================

func (s *Server) handleGraph(w http.ResponseWriter, r *http.Request) {
	theme, ok := s.readTheme(w, r)
	if !ok {
		return
	}
	snap := s.ctrl.Snapshot()
	if snap == nil {
		s.writeError(w, r, http.StatusNotFound, explorer.ErrNoTree)
		return
	}
	writeJSON(w, http.StatusOK, explorer.Render(snap, s.ctrl.Styler(), theme))
}

func (s *Server) handleNode(w http.ResponseWriter, r *http.Request) {
	info, err := s.ctrl.Info(r.URL.Query().Get("id"))
	if err != nil {
		s.writeError(w, r, statusFor(err), err)
		return
	}
	writeJSON(w, http.StatusOK, info)
}

func (s *Server) handleWarnings(w http.ResponseWriter, r *http.Request) {
	warnings := s.ctrl.Warnings()
	if warnings == nil {
		warnings = []graph.StructuralWarning{}
	}
	writeJSON(w, http.StatusOK, warnings)
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.Stats())
}

func (s *Server) handleToggle(w http.ResponseWriter, r *http.Request) {
	theme, ok := s.readTheme(w, r)
	if !ok {
		return
	}
	id, ok := s.readNodeID(w, r)
	if !ok {
		return
	}
	snap, err := s.ctrl.ToggleNode(id)
	metrics.RecordToggle(err == nil)
	if err != nil {
		s.writeError(w, r, statusFor(err), err)
		return
	}
	s.toggles.Add(1)
	metrics.SetVisibleNodes(len(snap.Nodes))
	writeJSON(w, http.StatusOK, explorer.Render(snap, s.ctrl.Styler(), theme))
}

func (s *Server) handleReveal(w http.ResponseWriter, r *http.Request) {
	theme, ok := s.readTheme(w, r)
	if !ok {
		return
	}
	id, ok := s.readNodeID(w, r)
	if !ok {
		return
	}
	snap, err := s.ctrl.Reveal(id)
	if err != nil {
		s.writeError(w, r, statusFor(err), err)
		return
	}
	metrics.SetVisibleNodes(len(snap.Nodes))
	writeJSON(w, http.StatusOK, explorer.Render(snap, s.ctrl.Styler(), theme))
}

func (s *Server) handleSelect(w http.ResponseWriter, r *http.Request) {
	id, ok := s.readNodeID(w, r)
	if !ok {
		return
	}
	info, err := s.ctrl.Select(id)
	if err != nil {
		s.writeError(w, r, statusFor(err), err)
		return
	}
	writeJSON(w, http.StatusOK, info)
}

func (s *Server) handleCollapse(w http.ResponseWriter, r *http.Request) {
	theme, ok := s.readTheme(w, r)
	if !ok {
		return
	}
	snap, err := s.ctrl.CollapseAll()
	if err != nil {
		s.writeError(w, r, statusFor(err), err)
		return
	}
	metrics.SetVisibleNodes(len(snap.Nodes))
	writeJSON(w, http.StatusOK, explorer.Render(snap, s.ctrl.Styler(), theme))
}

func (s *Server) handleFocus(w http.ResponseWriter, r *http.Request) {
	var req focusRequest
	if !s.decode(w, r, &req) {
		return
	}
	if req.ID == nil {
		s.writeError(w, r, http.StatusBadRequest, errors.New("id is required"))
		return
	}
	ft, err := s.ctrl.ComputeFocusTarget(*req.ID, req.Position.Vec(), req.Camera.Vec())
	if err != nil {
		s.writeError(w, r, statusFor(err), err)
		return
	}
	writeJSON(w, http.StatusOK, ft)
}

func (s *Server) handleZoom(w http.ResponseWriter, r *http.Request) {
	var req zoomRequest
	if !s.decode(w, r, &req) {
		return
	}
	switch req.Direction {
	case "in":
		writeJSON(w, http.StatusOK, s.ctrl.ZoomIn(req.Camera.Vec(), req.LookAt.Vec()))
	case "out":
		writeJSON(w, http.StatusOK, s.ctrl.ZoomOut(req.Camera.Vec(), req.LookAt.Vec()))
	default:
		s.writeError(w, r, http.StatusBadRequest, errors.New(`direction must be "in" or "out"`))
	}
}

func (s *Server) handleReset(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.ctrl.ResetCamera())
}

func (s *Server) handleLoad(w http.ResponseWriter, r *http.Request) {
	var sel manifest.Selector
	if !s.decode(w, r, &sel) {
		return
	}
	src, err := s.resolver.Resolve(sel)
	if err != nil {
		s.writeError(w, r, http.StatusBadRequest, err)
		return
	}

	res, err := s.load(r.Context(), src)
	if err != nil {
		s.writeError(w, r, statusFor(err), err)
		return
	}
	writeJSON(w, http.StatusOK, loadResponse{
		Source:     res.Source,
		Nodes:      res.Nodes,
		Visible:    len(res.Snapshot.Nodes),
		Warnings:   res.Warnings,
		DurationMs: res.Duration.Milliseconds(),
	})
}

// ============================================================
// Helpers
// ============================================================

// statusFor maps domain errors to HTTP status codes.
func statusFor(err error) int {
	var verr *graph.ValidationError
	var ferr *explorer.FocusError
	var herr *manifest.HTTPError
	switch {
	case errors.Is(err, explorer.ErrBusy), errors.Is(err, explorer.ErrSuperseded):
		return http.StatusConflict
	case errors.Is(err, graph.ErrUnknownNode), errors.Is(err, explorer.ErrNoTree):
		return http.StatusNotFound
	case errors.As(err, &verr), errors.As(err, &ferr):
		return http.StatusUnprocessableEntity
	case errors.Is(err, manifest.ErrRateLimited):
		return http.StatusTooManyRequests
	case errors.As(err, &herr):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func (s *Server) decode(w http.ResponseWriter, r *http.Request, v any) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		s.writeError(w, r, http.StatusBadRequest, err)
		return false
	}
	return true
}

// readTheme returns the ?theme= override or the configured theme.
func (s *Server) readTheme(w http.ResponseWriter, r *http.Request) (style.Theme, bool) {
	q := r.URL.Query().Get("theme")
	if q == "" {
		return s.config.Theme, true
	}
	t, err := style.ParseTheme(q)
	if err != nil {
		s.writeError(w, r, http.StatusBadRequest, err)
		return "", false
	}
	return t, true
}

func (s *Server) readNodeID(w http.ResponseWriter, r *http.Request) (string, bool) {
	var req nodeRequest
	if !s.decode(w, r, &req) {
		return "", false
	}
	if req.ID == nil {
		s.writeError(w, r, http.StatusBadRequest, errors.New("id is required"))
		return "", false
	}
	return *req.ID, true
}

func (s *Server) writeError(w http.ResponseWriter, r *http.Request, status int, err error) {
	s.errors.Add(1)
	if status >= http.StatusInternalServerError {
		logging.WithContext(r.Context()).Error("request failed", logging.Err(err))
	}
	writeJSON(w, status, errorResponse{
		Error:     err.Error(),
		RequestID: logging.GetRequestID(r.Context()),
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logging.Warn("encoding response failed", logging.Err(err))
	}
}
