// Package httpapi exposes the decision service's HTTP surface: the check
// endpoint, key/pattern configuration management, and the administrative
// key/stats/cache routes. Routing uses the standard library's net/http
// ServeMux with Go 1.22+ method+pattern routes, following the plain-stdlib
// idiom the teacher's own HTTP middleware example uses rather than adopting
// a router framework.
package httpapi

import (
	"log/slog"
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/distlimit/distlimit/healthcheck"
	"github.com/distlimit/distlimit/metrics"
	"github.com/distlimit/distlimit/orchestrator"
	"github.com/distlimit/distlimit/resolver"
	"github.com/distlimit/distlimit/store"
)

// Server holds the wiring the HTTP handlers need.
type Server struct {
	orchestrator *orchestrator.Orchestrator
	resolver     *resolver.Resolver
	store        store.Store
	metrics      *metrics.Metrics
	health       *healthcheck.Monitor
	logger       *slog.Logger
}

// New builds a Server. health may be nil if background health checking is
// disabled, in which case /healthz always reports healthy.
func New(o *orchestrator.Orchestrator, r *resolver.Resolver, s store.Store, m *metrics.Metrics, h *healthcheck.Monitor, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{orchestrator: o, resolver: r, store: s, metrics: m, health: h, logger: logger}
}

// Handler builds the root http.Handler, wrapped with request-id
// propagation.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("POST /api/ratelimit/check", s.handleCheck)

	mux.HandleFunc("GET /api/ratelimit/config/patterns", s.handleListPatterns)
	mux.HandleFunc("POST /api/ratelimit/config/reload", s.handleReload)
	mux.HandleFunc("GET /api/ratelimit/config/{key}", s.handleGetKeyConfig)
	mux.HandleFunc("POST /api/ratelimit/config/keys/{key}", s.handleSaveKeyConfig)
	mux.HandleFunc("DELETE /api/ratelimit/config/keys/{key}", s.handleDeleteKeyConfig)
	mux.HandleFunc("POST /api/ratelimit/config/patterns/{pattern}", s.handleSavePatternConfig)
	mux.HandleFunc("DELETE /api/ratelimit/config/patterns/{pattern}", s.handleDeletePatternConfig)

	mux.HandleFunc("GET /api/admin/keys", s.handleListKeys)
	mux.HandleFunc("DELETE /api/admin/keys", s.handleDeleteKey)
	mux.HandleFunc("DELETE /api/admin/keys/{pattern}", s.handleDeleteKeyPattern)
	mux.HandleFunc("GET /api/admin/stats", s.handleStats)
	mux.HandleFunc("POST /api/admin/cache/clear", s.handleCacheClear)

	mux.HandleFunc("GET /healthz", s.handleHealthz)
	mux.Handle("GET /metrics", promhttp.HandlerFor(s.metrics.Registry(), promhttp.HandlerOpts{}))

	return withRequestID(mux)
}
