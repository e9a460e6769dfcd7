// Package server exposes the agent runtime over HTTP: a JSON chat
// endpoint, an SSE streaming endpoint, and health/readiness/metrics
// probes.
package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/haasonsaas/strand/internal/agent"
	"github.com/haasonsaas/strand/internal/observability"
	"github.com/haasonsaas/strand/pkg/models"
)

// Server serves the agent over HTTP. Sessions live in memory for the
// server's lifetime; persistence across restarts is out of scope.
type Server struct {
	addr    string
	agent   *agent.Agent
	logger  *observability.Logger
	metrics *observability.Metrics
	version string

	mu       sync.RWMutex
	sessions map[models.Id]*agent.Session

	httpServer *http.Server
}

// Option configures a Server.
type Option func(*Server)

// WithAddr sets the listen address. Defaults to ":3000".
func WithAddr(addr string) Option {
	return func(s *Server) { s.addr = addr }
}

// WithLogger attaches a logger.
func WithLogger(l *observability.Logger) Option {
	return func(s *Server) { s.logger = l }
}

// WithMetrics attaches metrics collectors.
func WithMetrics(m *observability.Metrics) Option {
	return func(s *Server) { s.metrics = m }
}

// WithVersion sets the version reported by /health.
func WithVersion(v string) Option {
	return func(s *Server) { s.version = v }
}

// New builds a server around an agent.
func New(a *agent.Agent, opts ...Option) (*Server, error) {
	if a == nil {
		return nil, errors.New("server: agent is required")
	}
	s := &Server{
		addr:     ":3000",
		agent:    a,
		version:  "dev",
		sessions: make(map[models.Id]*agent.Session),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Handler returns the full route tree, instrumented.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/v1/chat", s.instrument("/api/v1/chat", s.handleChat))
	mux.HandleFunc("/api/v1/chat/stream", s.instrument("/api/v1/chat/stream", s.handleChatStream))
	mux.HandleFunc("/health", s.instrument("/health", s.handleHealth))
	mux.HandleFunc("/ready", s.instrument("/ready", s.handleReady))
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		s.writeError(w, http.StatusNotFound, "not_found", "unknown route")
	})
	return mux
}

// Start listens and serves until Shutdown. It blocks.
func (s *Server) Start() error {
	s.httpServer = &http.Server{
		Addr:              s.addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	s.logger.Info(context.Background(), "starting http server", "addr", s.addr)
	if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("http serve: %w", err)
	}
	return nil
}

// Shutdown drains in-flight requests.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.httpServer == nil {
		return nil
	}
	return s.httpServer.Shutdown(ctx)
}

// SessionCount returns the number of live sessions.
func (s *Server) SessionCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}

// session resolves a session id from the request body: empty mints a
// fresh session, a well-formed unknown id is adopted, a malformed id is
// an error.
func (s *Server) session(raw string) (*agent.Session, error) {
	if raw == "" {
		sess := s.agent.CreateSession()
		s.storeSession(sess)
		return sess, nil
	}

	id, err := models.ParseId(raw)
	if err != nil {
		return nil, fmt.Errorf("invalid session id %q", raw)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if sess, ok := s.sessions[id]; ok {
		return sess, nil
	}
	sess := agent.NewSessionWithID(id)
	s.sessions[id] = sess
	s.metrics.SetActiveSessions(len(s.sessions))
	return sess, nil
}

func (s *Server) storeSession(sess *agent.Session) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[sess.ID()] = sess
	s.metrics.SetActiveSessions(len(s.sessions))
}

// instrument wraps a handler with request logging and latency metrics.
// The path label is the route pattern, never the raw URL, to bound
// cardinality.
func (s *Server) instrument(path string, next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next(rec, r)
		elapsed := time.Since(start)
		s.metrics.ObserveHTTPRequest(r.Method, path, rec.status, elapsed.Seconds())
		s.logger.Debug(r.Context(), "http request",
			"method", r.Method,
			"path", path,
			"status", rec.status,
			"duration_ms", elapsed.Milliseconds(),
		)
	}
}

// statusRecorder captures the response status for instrumentation. It
// passes Flush through so SSE keeps working behind the middleware.
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

func (r *statusRecorder) Flush() {
	if f, ok := r.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}
