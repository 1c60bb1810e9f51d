// Package server provides the HTTP server and routing for ledgersync.
package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"github.com/aristath/ledgersync/internal/config"
	"github.com/aristath/ledgersync/internal/connectivity"
	"github.com/aristath/ledgersync/internal/database"
	"github.com/aristath/ledgersync/internal/events"
	"github.com/aristath/ledgersync/internal/modules/ledger"
	ledgerhandlers "github.com/aristath/ledgersync/internal/modules/ledger/handlers"
	"github.com/aristath/ledgersync/internal/modules/syncer"
	synchandlers "github.com/aristath/ledgersync/internal/modules/syncer/handlers"
)

// Config holds server configuration
type Config struct {
	Log          zerolog.Logger
	Port         int
	DevMode      bool
	CORSOrigins  []string
	RateLimit    config.RateLimitConfig
	DataDir      string
	DB           *database.DB
	Ledger       *ledger.Service
	Engine       *syncer.Engine
	Monitor      *connectivity.Monitor
	EventManager *events.Manager
	Backups      BackupService // nil when backups are disabled
	Jobs         JobLister     // nil when no scheduler runs
}

// Server represents the HTTP server
type Server struct {
	router  *chi.Mux
	server  *http.Server
	cfg     Config
	limiter *rate.Limiter
	system  *SystemHandlers
	log     zerolog.Logger
}

// New creates a new HTTP server
func New(cfg Config) *Server {
	s := &Server{
		router: chi.NewRouter(),
		cfg:    cfg,
		system: NewSystemHandlers(cfg.DB, cfg.DataDir, cfg.Backups, cfg.Jobs, cfg.Log),
		log:    cfg.Log.With().Str("component", "server").Logger(),
	}
	if cfg.RateLimit.PerSecond > 0 {
		s.limiter = rate.NewLimiter(rate.Limit(cfg.RateLimit.PerSecond), cfg.RateLimit.Burst)
	}

	s.setupMiddleware()
	s.setupRoutes()

	s.server = &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       15 * time.Second,
		// No WriteTimeout: /api/events connections are long-lived
		IdleTimeout: 60 * time.Second,
	}

	return s
}

// Handler returns the root handler
func (s *Server) Handler() http.Handler {
	return s.router
}

// setupMiddleware configures middleware shared by every route
func (s *Server) setupMiddleware() {
	// Recovery from panics
	s.router.Use(middleware.Recoverer)

	// Request ID
	s.router.Use(middleware.RequestID)

	// Real IP
	s.router.Use(middleware.RealIP)

	// Logging
	s.router.Use(s.loggingMiddleware)

	// CORS
	origins := s.cfg.CORSOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	s.router.Use(cors.Handler(cors.Options{
		AllowedOrigins:   origins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: len(s.cfg.CORSOrigins) > 0,
		MaxAge:           300,
	}))

	// Rate limiting
	if s.limiter != nil {
		s.router.Use(s.rateLimitMiddleware)
	}
}

// setupRoutes configures all routes
func (s *Server) setupRoutes() {
	s.router.Get("/health", s.handleHealth)

	s.router.Route("/api", func(r chi.Router) {
		// Notification stream stays outside the timeout and compression middleware
		stream := NewEventsStreamHandler(s.cfg.EventManager.Bus(), s.cfg.CORSOrigins, s.log)
		r.Get("/events", stream.ServeHTTP)

		r.Group(func(r chi.Router) {
			r.Use(middleware.Timeout(60 * time.Second))
			if !s.cfg.DevMode {
				r.Use(middleware.Compress(5))
			}

			ledgerhandlers.NewHandler(s.cfg.Ledger, s.log).RegisterRoutes(r)
			synchandlers.NewHandler(s.cfg.Engine, s.cfg.Monitor, s.log).RegisterRoutes(r)

			r.Route("/system", func(r chi.Router) {
				r.Get("/stats", s.system.HandleSystemStats)
				r.Get("/jobs", s.system.HandleListJobs)
				r.Get("/backups", s.system.HandleListBackups)
				r.Post("/backups", s.system.HandleCreateBackup)
			})
		})
	})
}

// Start starts the HTTP server and blocks until it stops
func (s *Server) Start() error {
	s.log.Info().Int("port", s.cfg.Port).Msg("Starting HTTP server")
	return s.server.ListenAndServe()
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown(ctx context.Context) error {
	s.log.Info().Msg("Shutting down HTTP server")
	return s.server.Shutdown(ctx)
}

// rateLimitMiddleware rejects requests beyond the configured global rate
func (s *Server) rateLimitMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !s.limiter.Allow() {
			s.log.Warn().Str("path", r.URL.Path).Msg("Rate limit exceeded")
			http.Error(w, http.StatusText(http.StatusTooManyRequests), http.StatusTooManyRequests)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// loggingMiddleware logs HTTP requests
func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		s.log.Info().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", ww.Status()).
			Int("bytes", ww.BytesWritten()).
			Dur("duration_ms", time.Since(start)).
			Str("request_id", middleware.GetReqID(r.Context())).
			Msg("HTTP request")
	})
}
