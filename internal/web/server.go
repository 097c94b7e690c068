// Package web provides the HTTP server for browsing, importing and exporting
// test case and connection records.
package web

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/JonMunkholm/tqp/internal/config"
	"github.com/JonMunkholm/tqp/internal/interchange"
	"github.com/JonMunkholm/tqp/internal/web/middleware"
)

// Server is the HTTP server for the record interchange service.
type Server struct {
	svc     *interchange.Service
	cfg     *config.Config
	router  *chi.Mux
	server  *http.Server
	imports *importLimiter
	limiter *rateLimiter
}

// NewServer creates a Server with middleware and routes configured.
func NewServer(svc *interchange.Service, cfg *config.Config) *Server {
	s := &Server{
		svc:     svc,
		cfg:     cfg,
		router:  chi.NewRouter(),
		imports: newImportLimiter(cfg.Import.MaxConcurrent, cfg.Import.QueueWait),
	}
	s.setupMiddleware()
	s.setupRoutes()
	return s
}

// setupMiddleware configures middleware for all routes.
func (s *Server) setupMiddleware() {
	s.router.Use(chimw.RequestID)
	s.router.Use(middleware.TrustedRealIP(s.cfg.Security.TrustedProxies))
	s.router.Use(middleware.Logger)
	s.router.Use(chimw.Recoverer)
	s.router.Use(chimw.Compress(5))
	if s.cfg.Server.RequestTimeout > 0 {
		s.router.Use(chimw.Timeout(s.cfg.Server.RequestTimeout))
	}
	s.router.Use(securityHeaders)

	if s.cfg.Security.RateLimit > 0 {
		s.limiter = newRateLimiter(s.cfg.Security.RateLimit, s.cfg.Security.RateWindow)
		s.router.Use(s.limiter.middleware)
	}
}

// setupRoutes configures all HTTP routes.
func (s *Server) setupRoutes() {
	s.router.Get("/", s.handleOverview)
	s.router.Get("/healthz", s.handleHealth)

	s.router.Route("/api", func(r chi.Router) {
		r.Use(middleware.APIKeyAuth(s.cfg.Security))

		r.Get("/counts", s.handleCounts)

		r.Route("/testcases", func(r chi.Router) {
			r.Get("/", s.handleListTestCases)
			r.Post("/", s.handleSaveTestCase)
			r.Get("/{id}", s.handleGetTestCase)
			r.Put("/{id}", s.handleSaveTestCase)
			r.Delete("/{id}", s.handleDeleteTestCase)
		})

		r.Route("/connections", func(r chi.Router) {
			r.Get("/", s.handleListConnections)
			r.Post("/", s.handleSaveConnection)
			r.Get("/choices", s.handleConnectionChoices)
			r.Get("/{project}", s.handleGetConnection)
			r.Put("/{project}", s.handleSaveConnection)
			r.Delete("/{project}", s.handleDeleteConnection)
		})

		r.Post("/import", s.handleImport)
		r.Post("/preview", s.handlePreview)
		r.Get("/export/{kind}", s.handleExport)
		r.Get("/template/{kind}", s.handleTemplate)
	})
}

// Start listens on the configured address and blocks until the server stops.
// It returns nil after a graceful Shutdown.
func (s *Server) Start() error {
	s.server = &http.Server{
		Addr:         s.cfg.Server.Addr(),
		Handler:      s.router,
		ReadTimeout:  s.cfg.Server.ReadTimeout,
		WriteTimeout: s.cfg.Server.WriteTimeout,
		IdleTimeout:  s.cfg.Server.IdleTimeout,
	}

	slog.Info("starting server", "addr", s.server.Addr)
	if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown stops accepting requests, then waits for in-flight imports.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.limiter != nil {
		s.limiter.stop()
	}
	var err error
	if s.server != nil {
		err = s.server.Shutdown(ctx)
	}
	if derr := s.imports.drain(ctx); derr != nil && err == nil {
		err = derr
	}
	return err
}

// Router returns the underlying chi router for testing.
func (s *Server) Router() *chi.Mux {
	return s.router
}

// securityHeaders adds security headers to all responses.
func securityHeaders(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("X-Frame-Options", "DENY")
		// The overview page carries its own inline stylesheet and no scripts.
		w.Header().Set("Content-Security-Policy", "default-src 'self'; style-src 'self' 'unsafe-inline'; script-src 'none'")
		w.Header().Set("Referrer-Policy", "strict-origin-when-cross-origin")
		next.ServeHTTP(w, r)
	})
}
