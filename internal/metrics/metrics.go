// Package metrics provides Prometheus metrics for codevis.
package metrics

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// HTTP request metrics
	httpRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "codevis_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	httpRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "codevis_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)

	// Manifest metrics
	manifestLoadsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "codevis_manifest_loads_total",
			Help: "Total manifest loads by source and outcome",
		},
		[]string{"source", "status"},
	)

	manifestLoadDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "codevis_manifest_load_duration_seconds",
			Help:    "Time to fetch a manifest and build its tree",
			Buckets: []float64{.01, .05, .1, .25, .5, 1, 2.5, 5, 10, 30},
		},
		[]string{"source"},
	)

	// Tree metrics
	treeNodes = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "codevis_tree_nodes",
			Help: "Number of nodes in the loaded tree",
		},
	)

	visibleNodes = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "codevis_visible_nodes",
			Help: "Number of nodes in the published snapshot",
		},
	)

	structuralWarnings = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "codevis_structural_warnings",
			Help: "Kind conflicts recorded while building the loaded tree",
		},
	)

	togglesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "codevis_toggles_total",
			Help: "Total expand/collapse toggles",
		},
		[]string{"result"},
	)
)

// Handler returns the Prometheus metrics HTTP handler.
func Handler() http.Handler {
	return promhttp.Handler()
}

// RecordHTTPRequest records an HTTP request metric.
func RecordHTTPRequest(method, path string, status int, duration time.Duration) {
	httpRequestsTotal.WithLabelValues(method, path, strconv.Itoa(status)).Inc()
	httpRequestDuration.WithLabelValues(method, path).Observe(duration.Seconds())
}

// RecordManifestLoad records one load attempt. status is one of "success",
// "error" or "superseded".
func RecordManifestLoad(source, status string, duration time.Duration) {
	manifestLoadsTotal.WithLabelValues(source, status).Inc()
	if status == "success" {
		manifestLoadDuration.WithLabelValues(source).Observe(duration.Seconds())
	}
}

// SetTree records the size of a freshly loaded tree.
func SetTree(nodes, warnings int) {
	treeNodes.Set(float64(nodes))
	structuralWarnings.Set(float64(warnings))
}

// SetVisibleNodes records the size of the published snapshot.
func SetVisibleNodes(n int) {
	visibleNodes.Set(float64(n))
}

// RecordToggle records an expand/collapse toggle.
func RecordToggle(success bool) {
	result := "success"
	if !success {
		result = "error"
	}
	togglesTotal.WithLabelValues(result).Inc()
}

// responseWriter wraps http.ResponseWriter to capture status code.
type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

// UnmatchedRoute labels requests no route pattern matched.
const UnmatchedRoute = "unmatched"

// Middleware returns HTTP middleware that records request metrics. It
// must wrap a ServeMux directly: requests are labeled with the route
// pattern the mux matched, never the raw URL.
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rw := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}
		next.ServeHTTP(rw, r)
		method, route := routeLabels(r)
		RecordHTTPRequest(method, route, rw.statusCode, time.Since(start))
	})
}

// routeLabels bounds label values to the registered routes.
func routeLabels(r *http.Request) (method, route string) {
	if r.Pattern == "" {
		switch r.Method {
		case http.MethodGet, http.MethodHead, http.MethodPost, http.MethodPut,
			http.MethodPatch, http.MethodDelete, http.MethodOptions:
			return r.Method, UnmatchedRoute
		default:
			return "OTHER", UnmatchedRoute
		}
	}
	// Patterns look like "GET /api/graph".
	if _, path, ok := strings.Cut(r.Pattern, " "); ok {
		return r.Method, path
	}
	return r.Method, r.Pattern
}
