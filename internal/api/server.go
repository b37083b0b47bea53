// Package api provides the HTTP API server and handlers for the addons directory.
package api

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/adapters/humachi"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/addonsdir/addons-server/internal/store"
	"github.com/addonsdir/addons-server/internal/validation"
)

// Options tune the HTTP surface.
type Options struct {
	Version              string
	CORSOrigins          []string
	WebhookRatePerMinute int
	WebhookBurst         int
}

// Server holds dependencies for HTTP handlers.
type Server struct {
	store          store.Store
	services       *Services
	router         *chi.Mux
	api            huma.API
	validator      *validation.Validator
	webhookLimiter *RateLimiter
	logger         *slog.Logger
}

// NewServer creates a new HTTP server with all routes configured.
func NewServer(st store.Store, services *Services, opts Options, logger *slog.Logger) *Server {
	if opts.Version == "" {
		opts.Version = "dev"
	}
	if opts.WebhookRatePerMinute <= 0 {
		opts.WebhookRatePerMinute = 60
	}
	if opts.WebhookBurst <= 0 {
		opts.WebhookBurst = 10
	}

	s := &Server{
		store:          st,
		services:       services,
		router:         chi.NewRouter(),
		validator:      validation.New(),
		webhookLimiter: NewRateLimiter(opts.WebhookRatePerMinute, time.Minute, opts.WebhookBurst),
		logger:         logger,
	}

	s.setupMiddleware(opts)

	// The webhook speaks form-encoded requests and its own envelope, so it
	// stays outside huma.
	s.registerWebhookRoutes()

	humaConfig := huma.DefaultConfig("Addons Directory API", opts.Version)
	humaConfig.Components.SecuritySchemes = map[string]*huma.SecurityScheme{
		"basic": {
			Type:        "http",
			Scheme:      "basic",
			Description: "User name and API token",
		},
	}
	humaConfig.Transformers = append(humaConfig.Transformers, EnvelopeTransformer)

	s.api = humachi.New(s.router, humaConfig)
	RegisterErrorHandler()

	s.registerHealthRoutes()
	s.registerAddonRoutes()
	s.registerTagRoutes()
	s.registerSearchRoutes()

	return s
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// API returns the huma API, mainly for tests.
func (s *Server) API() huma.API {
	return s.api
}

// Close stops background work owned by the server.
func (s *Server) Close() {
	s.webhookLimiter.Stop()
}

// setupMiddleware configures middleware stack.
func (s *Server) setupMiddleware(opts Options) {
	s.router.Use(middleware.RequestID)
	s.router.Use(middleware.RealIP)
	s.router.Use(requestLogger(s.logger))
	s.router.Use(middleware.Recoverer)
	s.router.Use(cors.Handler(cors.Options{
		AllowedOrigins: opts.CORSOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Authorization", "Content-Type"},
		ExposedHeaders: []string{"X-Request-Id"},
		MaxAge:         300,
	}))
	s.router.Use(authMiddleware(s.services.Users, s.logger))
}
