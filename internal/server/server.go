package server

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/encore/internal/shared"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// Middleware wraps an http.Handler and returns a new http.Handler with additional behavior.
type Middleware func(http.Handler) http.Handler

// Handler mounts its routes on a router.
type Handler interface {
	Mount(r chi.Router)
}

// NewRouter creates a router with recovery and request logging and mounts handlers on it.
func NewRouter(logger *log.Logger, handlers ...Handler) chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(RequestLogger(logger))
	for _, h := range handlers {
		h.Mount(r)
	}
	return r
}

// RequestLogger logs each request with its status and duration at debug level.
func RequestLogger(logger *log.Logger) Middleware {
	if logger == nil {
		logger = shared.NewLogger(io.Discard)
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			start := time.Now()
			next.ServeHTTP(ww, r)
			logger.Debug("request", "method", r.Method, "path", r.URL.Path, "status", ww.Status(), "duration", time.Since(start))
		})
	}
}

// Server is a running HTTP server bound to a local address.
type Server struct {
	http     *http.Server
	listener net.Listener
	logger   *log.Logger
	errs     chan error
}

// Listen binds addr and serves h in the background. Port 0 picks a free port.
func Listen(addr string, h http.Handler, logger *log.Logger) (*Server, error) {
	if logger == nil {
		logger = shared.NewLogger(io.Discard)
	}
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("failed to listen on %s: %w", addr, err)
	}

	s := &Server{
		http:     &http.Server{Handler: h, ReadHeaderTimeout: 10 * time.Second},
		listener: ln,
		logger:   logger,
		errs:     make(chan error, 1),
	}
	go func() {
		err := s.http.Serve(ln)
		if errors.Is(err, http.ErrServerClosed) {
			err = nil
		}
		s.errs <- err
	}()
	logger.Debug("callback server listening", "addr", s.Addr())
	return s, nil
}

// Addr returns the bound address, e.g. "127.0.0.1:3000".
func (s *Server) Addr() string {
	return s.listener.Addr().String()
}

// URL returns the base URL of the server.
func (s *Server) URL() string {
	return "http://" + s.Addr()
}

// Shutdown stops accepting connections and waits for active requests until ctx is done.
func (s *Server) Shutdown(ctx context.Context) error {
	if err := s.http.Shutdown(ctx); err != nil {
		return fmt.Errorf("failed to shut down callback server: %w", err)
	}
	if err := <-s.errs; err != nil {
		s.logger.Warn("callback server stopped with error", "error", err)
		return err
	}
	return nil
}
