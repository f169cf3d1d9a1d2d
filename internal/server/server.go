// Package server exposes a workspace session to a host editor over HTTP, with
// a WebSocket channel that pushes the session state after every change.
package server

import (
	"bufio"
	"context"
	"errors"
	"log/slog"
	"mime"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/gorilla/websocket"

	"github.com/mark3labs/openspec-studio/internal/document"
	"github.com/mark3labs/openspec-studio/internal/metrics"
	"github.com/mark3labs/openspec-studio/internal/workspace"
)

// MaxBodyBytes bounds request bodies.
const MaxBodyBytes = 8 << 20

// Server routes API requests to one session.
type Server struct {
	session  *workspace.Session
	metrics  *metrics.Recorder
	logger   *slog.Logger
	hub      *hub
	upgrader websocket.Upgrader
	origins  map[string]bool
	mux      *http.ServeMux

	// pingPeriod must stay below pongWait.
	pingPeriod time.Duration
	pongWait   time.Duration
}

// Option configures a Server.
type Option func(*Server)

func WithLogger(l *slog.Logger) Option { return func(s *Server) { s.logger = l } }

// WithMetrics records compiles and live clients, and serves /metrics.
func WithMetrics(r *metrics.Recorder) Option { return func(s *Server) { s.metrics = r } }

// WithAllowedOrigins admits browser requests from these origins (for example
// "http://localhost:5173") besides the server's own.
func WithAllowedOrigins(origins ...string) Option {
	return func(s *Server) {
		for _, o := range origins {
			if o = normalizeOrigin(o); o != "" {
				s.origins[o] = true
			}
		}
	}
}

// New builds a server for session.
func New(session *workspace.Session, opts ...Option) *Server {
	s := &Server{
		session: session,
		logger:  slog.Default(),
		origins: map[string]bool{},

		pingPeriod: pingPeriod,
		pongWait:   pongWait,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.upgrader = websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin:     s.checkOrigin,
	}
	s.hub = newHub(s.logger, s.metrics)
	s.routes()
	return s
}

func normalizeOrigin(o string) string {
	return strings.TrimSuffix(strings.ToLower(strings.TrimSpace(o)), "/")
}

// checkOrigin admits requests without an Origin header (non-browser clients),
// same-host origins and the configured allow-list.
func (s *Server) checkOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" {
		return true
	}
	if s.origins[normalizeOrigin(origin)] {
		return true
	}
	u, err := url.Parse(origin)
	if err != nil || u.Host == "" {
		return false
	}
	return strings.EqualFold(u.Host, r.Host)
}

// guard rejects cross-origin browser requests on a mutating route and, when
// jsonBody is set, bodies not declared as application/json.
func (s *Server) guard(next http.HandlerFunc, jsonBody bool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !s.checkOrigin(r) {
			s.logger.Warn("rejected cross-origin request", "origin", r.Header.Get("Origin"), "path", r.URL.Path)
			writeJSON(w, http.StatusForbidden, errorView{Error: "origin not allowed", Code: "OriginError"})
			return
		}
		if jsonBody {
			mt, _, err := mime.ParseMediaType(r.Header.Get("Content-Type"))
			if err != nil || mt != "application/json" {
				writeJSON(w, http.StatusUnsupportedMediaType, errorView{Error: "content type must be application/json", Code: string(document.InputError)})
				return
			}
		}
		next(w, r)
	}
}

func (s *Server) routes() {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/document", s.handleGetDocument)
	mux.HandleFunc("PUT /api/document", s.guard(s.handlePutDocument, false))
	mux.HandleFunc("POST /api/document/new", s.guard(s.handleNew, false))
	mux.HandleFunc("POST /api/document/import", s.guard(s.handleImport, true))
	mux.HandleFunc("POST /api/format/toggle", s.guard(s.handleToggle, false))
	mux.HandleFunc("GET /api/endpoints", s.handleEndpoints)
	mux.HandleFunc("GET /api/schemas", s.handleSchemas)
	mux.HandleFunc("GET /api/diagnostics", s.handleDiagnostics)
	mux.HandleFunc("GET /api/navigate", s.handleNavigate)
	mux.HandleFunc("GET /api/fields/{category}", s.handleFields)
	mux.HandleFunc("POST /api/compile", s.guard(s.handleCompile, true))
	mux.HandleFunc("GET /api/export", s.handleExport)
	mux.HandleFunc("GET /api/live", s.handleLive)
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	if s.metrics != nil {
		mux.Handle("GET /metrics", s.metrics.Handler())
	}
	s.mux = mux
}

// Handler returns the routed handler wrapped in request logging.
func (s *Server) Handler() http.Handler {
	return s.logRequests(s.mux)
}

// ListenAndServe serves on addr until ctx is cancelled, then shuts down,
// closing live connections.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("server listening", "addr", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	s.logger.Info("server stopping")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	s.hub.closeAll()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		s.logger.Error("graceful shutdown failed", "error", err)
		return err
	}
	return nil
}

// statusRecorder captures the response status for logging.
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func (r *statusRecorder) Unwrap() http.ResponseWriter { return r.ResponseWriter }

// Hijack hands the connection to the WebSocket upgrader.
func (r *statusRecorder) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	h, ok := r.ResponseWriter.(http.Hijacker)
	if !ok {
		return nil, nil, errors.New("response writer does not support hijacking")
	}
	r.status = http.StatusSwitchingProtocols
	return h.Hijack()
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		s.logger.Debug("request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", rec.status,
			"duration", time.Since(start))
	})
}
