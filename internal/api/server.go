// Package api exposes the HTTP surface: the Telnyx webhook sink, the
// operator endpoints that start and inspect prank sessions, and the auth
// endpoints that issue bearer tokens.
package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prankline/prankline/internal/api/middleware"
	"github.com/prankline/prankline/internal/config"
	"github.com/prankline/prankline/internal/database"
	"github.com/prankline/prankline/internal/prank"
)

// Server holds HTTP handler dependencies and the chi router.
type Server struct {
	router  *chi.Mux
	cfg     *config.Config
	users   database.UserRepository
	pranks  *prank.Service
	orch    *prank.Orchestrator
	metrics http.Handler
}

// NewServer creates the HTTP handler with all routes mounted. metricsHandler
// serves GET /metrics and may be nil to disable the endpoint.
func NewServer(cfg *config.Config, users database.UserRepository, pranks *prank.Service, orch *prank.Orchestrator, metricsHandler http.Handler) *Server {
	s := &Server{
		router:  chi.NewRouter(),
		cfg:     cfg,
		users:   users,
		pranks:  pranks,
		orch:    orch,
		metrics: metricsHandler,
	}

	s.routes()
	return s
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// routes configures the middleware stack and mounts all route groups.
func (s *Server) routes() {
	r := s.router

	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(middleware.StructuredLogger)
	r.Use(middleware.Recoverer)

	if origins := middleware.ParseCORSOrigins(s.cfg.CORSOrigins); origins != nil {
		r.Use(middleware.CORS(origins))
	}

	r.Get("/health", s.handleHealth)
	if s.metrics != nil {
		r.Method(http.MethodGet, "/metrics", s.metrics)
	}

	// Provider webhook sink. Unauthenticated and never rate limited: the
	// provider must always receive a 200.
	r.Post("/webhooks/telnyx", s.handleTelnyxWebhook)

	authLimiter := middleware.NewIPRateLimiter(middleware.AuthRateLimitConfig())
	r.Group(func(r chi.Router) {
		r.Use(middleware.RateLimit(authLimiter))
		r.Post("/auth/register", s.handleRegister)
		r.Post("/auth/login", s.handleLogin)
	})

	devLimiter := middleware.NewIPRateLimiter(middleware.DevRateLimitConfig())
	r.Group(func(r chi.Router) {
		r.Use(middleware.RequireAuth([]byte(s.cfg.JWTSecret)))
		r.Get("/auth/me", s.handleMe)

		r.Group(func(r chi.Router) {
			r.Use(middleware.RateLimit(devLimiter))
			r.Post("/dev/start-prank", s.handleStartPrank)
		})
		r.Get("/dev/sessions/{id}", s.handleGetSession)
	})
}

// handleHealth returns basic health status. Unauthenticated.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
