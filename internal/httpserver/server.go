// internal/httpserver/server.go
package httpserver

import (
	"context"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/MrSnakeDoc/ytpush/internal/httpserver/deps"
	"github.com/MrSnakeDoc/ytpush/internal/httpserver/mw"
	"github.com/MrSnakeDoc/ytpush/internal/httpserver/routes"
	"github.com/MrSnakeDoc/ytpush/internal/logger"
)

// Server wraps the HTTP server and its dependencies.
type Server struct {
	http     *http.Server
	listener net.Listener
	logger   logger.Logger
	started  time.Time
}

// New builds the HTTP server (router, middlewares, route registration).
// When listener is non-nil the server serves on it instead of binding addr;
// that is how a tunnel hands us its remote listener.
func New(addr string, loggerClient logger.Logger, d deps.Deps, listener net.Listener) *Server {
	r := chi.NewRouter()

	// --- Global middlewares (safe defaults)
	r.Use(middleware.GetHead)
	r.Use(middleware.RequestID)                 // X-Request-ID on each request
	r.Use(middleware.Recoverer)                 // never crash the process on panic
	r.Use(middleware.Timeout(10 * time.Second)) // per-request timeout
	r.Use(mw.Log(loggerClient))                 // structured access logs

	routes.RegisterAll(r, d)

	s := &http.Server{
		Addr:              addr,
		Handler:           r,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
		MaxHeaderBytes:    1 << 20,
	}

	return &Server{
		http:     s,
		listener: listener,
		logger:   loggerClient,
		started:  d.StartTime,
	}
}

// Start runs the HTTP server (blocks until error or shutdown).
func (s *Server) Start() error {
	var err error
	if s.listener != nil {
		s.logger.Infof("HTTP server serving on tunnel listener %s", s.listener.Addr())
		err = s.http.Serve(s.listener)
	} else {
		s.logger.Infof("HTTP server listening on %s", s.http.Addr)
		err = s.http.ListenAndServe()
	}
	// http.ErrServerClosed is expected on graceful shutdown.
	if err == http.ErrServerClosed {
		return nil
	}
	return err
}

// Stop gracefully shuts down the server with the provided context deadline.
func (s *Server) Stop(ctx context.Context) error {
	s.logger.Info("HTTP server shutting down...")
	return s.http.Shutdown(ctx)
}
