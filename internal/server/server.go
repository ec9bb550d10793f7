// Package server exposes the engine's read-only operations over HTTP for the
// orchestration layer. The surface mirrors the engine one-to-one: every
// endpoint is a stateless lookup, and "no match" responses are empty lists,
// not errors.
package server

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/rxcost/rxcost/internal/engine"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// Config holds the HTTP server settings.
type Config struct {
	Address string
	Port    string
	// RateLimit is the sustained per-client request rate; Burst is the
	// bucket capacity. Zero values disable limiting.
	RateLimit float64
	Burst     int64
}

// Server wraps the HTTP listener over an engine service.
type Server struct {
	server *http.Server
	router chi.Router
	svc    engine.Service
}

// New creates a server for the given engine service.
func New(cfg Config, svc engine.Service) *Server {
	router := chi.NewRouter()

	s := &Server{
		server: &http.Server{
			Handler:      router,
			Addr:         cfg.Address + ":" + cfg.Port,
			ReadTimeout:  15 * time.Second,
			WriteTimeout: 15 * time.Second,
			IdleTimeout:  60 * time.Second,
		},
		router: router,
		svc:    svc,
	}

	router.Use(middleware.RequestID)
	router.Use(middleware.RealIP)
	router.Use(middleware.RedirectSlashes)
	router.Use(middleware.Recoverer)
	if cfg.RateLimit > 0 {
		router.Use(newRateLimiter(cfg.RateLimit, cfg.Burst).middleware)
	}

	h := &handler{svc: svc}
	router.Get("/health", h.health)
	router.Route("/v1", func(r chi.Router) {
		r.Get("/match", h.match)
		r.Get("/equivalents", h.equivalents)
		r.Get("/generics", h.generics)
		r.Get("/costs", h.costs)
		r.Get("/years/latest", h.latestYear)
		r.Get("/cheapest", h.cheapest)
	})

	return s
}

// Handler returns the router, for tests and embedding.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Start begins serving and blocks until the listener stops.
func (s *Server) Start() error {
	slog.Info("http server starting", "addr", s.server.Addr)
	if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

// Shutdown drains in-flight requests and stops the listener.
func (s *Server) Shutdown(ctx context.Context) error {
	slog.Info("http server shutting down")
	return s.server.Shutdown(ctx)
}
