// Package web serves the export job API over HTTP.
package web

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/JonMunkholm/CSRExport/internal/config"
	"github.com/JonMunkholm/CSRExport/internal/core"
	"github.com/JonMunkholm/CSRExport/internal/web/middleware"
)

// MaxRequestBody caps JSON request bodies.
const MaxRequestBody = 1 << 20

// Files resolves artifact names to paths on disk.
type Files interface {
	Path(name string) (string, error)
}

// Options configure the server.
type Options struct {
	Server   config.ServerConfig
	Security config.SecurityConfig
	// RateLimit is requests per minute per client; zero disables it.
	RateLimit int
	// Files serves finished artifacts; nil disables the downloads route.
	Files Files
}

// Server is the HTTP server for the export job API.
type Server struct {
	service *core.Service
	files   Files
	opts    Options
	router  *chi.Mux
	server  *http.Server
	limiter *rateLimiter
}

// NewServer creates a new Server instance.
func NewServer(service *core.Service, opts Options) *Server {
	s := &Server{
		service: service,
		files:   opts.Files,
		opts:    opts,
		router:  chi.NewRouter(),
	}
	s.setupMiddleware()
	s.setupRoutes()
	return s
}

// setupMiddleware configures middleware for all routes.
func (s *Server) setupMiddleware() {
	s.router.Use(chimw.RequestID)
	s.router.Use(middleware.TrustedRealIP(s.opts.Security.TrustedProxies))
	s.router.Use(middleware.Logger)
	s.router.Use(chimw.Recoverer)
	if s.opts.Server.RequestTimeout > 0 {
		s.router.Use(chimw.Timeout(s.opts.Server.RequestTimeout))
	}
	s.router.Use(securityHeaders)

	if s.opts.RateLimit > 0 {
		s.limiter = newRateLimiter(s.opts.RateLimit, time.Minute)
		s.router.Use(s.limiter.middleware)
	}
}

// setupRoutes configures all HTTP routes.
func (s *Server) setupRoutes() {
	s.router.Get("/healthz", s.handleHealth)

	s.router.Route("/api", func(r chi.Router) {
		r.Use(middleware.APIKeyAuth(s.opts.Security))

		// Catalogs
		r.Get("/entities", s.handleListEntities)
		r.Get("/entities/{entity}/columns", s.handleEntityColumns)
		r.Get("/templates", s.handleListTemplates)

		// Exports
		r.Post("/exports", s.handleSubmitExport)
		r.Post("/exports/preview", s.handlePreviewExport)
		r.Post("/templates/{id}/export", s.handleSubmitTemplate)

		// Jobs
		r.Get("/jobs", s.handleListJobs)
		r.Get("/jobs/{id}", s.handleGetJob)
		r.Post("/jobs/{id}/cancel", s.handleCancelJob)
		r.Delete("/jobs/{id}", s.handleDeleteJob)
		r.Delete("/jobs", s.handleClearJobs)

		if s.files != nil {
			r.Get("/downloads/{file}", s.handleDownload)
		}
	})
}

// Start begins listening for HTTP requests.
func (s *Server) Start(addr string) error {
	s.server = &http.Server{
		Addr:         addr,
		Handler:      s.router,
		ReadTimeout:  s.opts.Server.ReadTimeout,
		WriteTimeout: s.opts.Server.WriteTimeout,
		IdleTimeout:  s.opts.Server.IdleTimeout,
	}

	slog.Info("starting server", "addr", addr)
	return s.server.ListenAndServe()
}

// Shutdown gracefully stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.limiter != nil {
		s.limiter.stop()
	}
	if s.server == nil {
		return nil
	}
	return s.server.Shutdown(ctx)
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
		w.Header().Set("Content-Security-Policy", "default-src 'none'; frame-ancestors 'none'")
		w.Header().Set("Referrer-Policy", "no-referrer")
		next.ServeHTTP(w, r)
	})
}
