// Package server implements the remote feedback service: a single shared
// collection over HTTP with an optional websocket change feed and token
// authentication.
package server

import (
	"context"
	stderrors "errors"
	"net"
	"net/http"
	"time"

	"github.com/kimhsiao/feedbacksync/internal/errors"
	"github.com/kimhsiao/feedbacksync/internal/localstore"
	"github.com/kimhsiao/feedbacksync/internal/logging"
)

// DefaultAddr matches the client's default base URL.
const DefaultAddr = ":3001"

// Config holds server configuration.
type Config struct {
	Addr            string        `mapstructure:"addr"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
	Auth            AuthConfig    `mapstructure:"auth"`
}

// Server is the feedback service.
type Server struct {
	cfg     Config
	repo    *Repository
	hub     *Hub
	auth    *Authenticator
	handler http.Handler
}

// New creates a Server persisting to store.
func New(store localstore.Store, cfg Config) (*Server, error) {
	if cfg.Addr == "" {
		cfg.Addr = DefaultAddr
	}
	if cfg.ReadTimeout <= 0 {
		cfg.ReadTimeout = 15 * time.Second
	}
	if cfg.WriteTimeout <= 0 {
		cfg.WriteTimeout = 15 * time.Second
	}
	if cfg.ShutdownTimeout <= 0 {
		cfg.ShutdownTimeout = 5 * time.Second
	}

	auth, err := NewAuthenticator(cfg.Auth)
	if err != nil {
		return nil, err
	}

	s := &Server{
		cfg:  cfg,
		repo: NewRepository(store),
		hub:  NewHub(),
		auth: auth,
	}
	s.handler = s.routes()
	return s, nil
}

func (s *Server) routes() http.Handler {
	h := NewFeedbackHandler(s.repo, s.hub, s.auth)
	mux := http.NewServeMux()

	mux.HandleFunc("GET /{$}", h.Index)
	mux.HandleFunc("GET /feedbacks", h.List)
	mux.HandleFunc("POST /feedbacks", s.auth.Require(h.Create, RoleUser, RoleAdmin))
	mux.HandleFunc("DELETE /feedbacks", s.auth.Require(h.Clear, RoleAdmin))
	mux.HandleFunc("DELETE /feedbacks/{id}", s.auth.Require(h.Delete, RoleAdmin))
	mux.HandleFunc("GET /stats", h.Stats)
	mux.HandleFunc("POST /auth/login", h.Login)
	mux.HandleFunc("GET /ws", s.hub.ServeWS)

	return withCORS(withRequestLog(s.auth.WithAuth(mux)))
}

// Handler returns the root handler.
func (s *Server) Handler() http.Handler {
	return s.handler
}

// AuthEnabled reports whether requests need tokens.
func (s *Server) AuthEnabled() bool {
	return s.auth != nil
}

// ListenAndServe serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) ListenAndServe(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.cfg.Addr)
	if err != nil {
		return errors.Wrap(errors.ErrConfig, "failed to listen on "+s.cfg.Addr, err)
	}
	return s.Serve(ctx, ln)
}

// Serve serves on ln until ctx is cancelled.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	srv := &http.Server{
		Handler:      s.handler,
		ReadTimeout:  s.cfg.ReadTimeout,
		WriteTimeout: s.cfg.WriteTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		logging.Info("Feedback service listening", map[string]interface{}{
			"addr": ln.Addr().String(),
			"auth": s.AuthEnabled(),
		})
		errCh <- srv.Serve(ln)
	}()

	select {
	case err := <-errCh:
		s.hub.Close()
		if stderrors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.cfg.ShutdownTimeout)
	defer cancel()
	s.hub.Close()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	logging.Info("Feedback service stopped", nil)
	return nil
}

// Close releases the hub. Use it when serving through Handler directly.
func (s *Server) Close() {
	s.hub.Close()
}

// statusRecorder captures the response status for logging. It forwards
// Hijack so websocket upgrades keep working.
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func (r *statusRecorder) Unwrap() http.ResponseWriter {
	return r.ResponseWriter
}

func withRequestLog(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/ws" {
			next.ServeHTTP(w, r)
			return
		}
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		logging.Debug("Request served", map[string]interface{}{
			"method":      r.Method,
			"path":        r.URL.Path,
			"status":      rec.status,
			"duration_ms": time.Since(start).Milliseconds(),
		})
	})
}

func withCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}
