// Package server provides the local HTTP surface over the exchange session.
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

	"github.com/aristath/unocoin/internal/database"
	"github.com/aristath/unocoin/internal/events"
	"github.com/aristath/unocoin/internal/modules/quotes"
	"github.com/aristath/unocoin/internal/scheduler"
	"github.com/aristath/unocoin/internal/session"
)

// Config holds server configuration
type Config struct {
	Log       zerolog.Logger
	Port      int
	DevMode   bool
	Session   *session.Session
	EventBus  *events.Bus
	Scheduler *scheduler.Scheduler // optional, enables job triggers
	Databases []*database.DB       // reported by the system status endpoint
	Metrics   http.Handler         // optional /metrics handler
	Now       func() time.Time     // defaults to time.Now
}

// Server represents the HTTP server
type Server struct {
	router    *chi.Mux
	server    *http.Server
	log       zerolog.Logger
	port      int
	devMode   bool
	session   *session.Session
	bus       *events.Bus
	scheduler *scheduler.Scheduler
	databases []*database.DB
	metrics   http.Handler
	quotes    *quotes.Book
	now       func() time.Time
	startedAt time.Time
}

// New creates a new HTTP server
func New(cfg Config) *Server {
	now := cfg.Now
	if now == nil {
		now = time.Now
	}

	s := &Server{
		router:    chi.NewRouter(),
		log:       cfg.Log.With().Str("component", "server").Logger(),
		port:      cfg.Port,
		devMode:   cfg.DevMode,
		session:   cfg.Session,
		bus:       cfg.EventBus,
		scheduler: cfg.Scheduler,
		databases: cfg.Databases,
		metrics:   cfg.Metrics,
		quotes:    quotes.NewBook(now),
		now:       now,
		startedAt: now(),
	}

	s.setupMiddleware()
	s.setupRoutes()

	s.server = &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      s.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return s
}

// Handler returns the router, for embedding and tests
func (s *Server) Handler() http.Handler {
	return s.router
}

// setupMiddleware configures middleware
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
	s.router.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: true,
		MaxAge:           300,
	}))
}

// setupRoutes configures all routes
func (s *Server) setupRoutes() {
	s.router.Get("/health", s.handleHealth)
	if s.metrics != nil {
		s.router.Method(http.MethodGet, "/metrics", s.metrics)
	}

	s.router.Route("/api", func(r chi.Router) {
		// The websocket stream must not sit behind the timeout or compression
		r.Get("/events/ws", s.handleEventsWS)

		r.Group(func(r chi.Router) {
			r.Use(middleware.Timeout(60 * time.Second))
			if !s.devMode {
				r.Use(middleware.Compress(5))
			}

			r.Get("/account", s.handleGetAccount)
			r.Post("/account/signup", s.handleSignup)

			r.Get("/profile", s.handleGetProfile)
			r.Post("/profile/fetch", s.handleFetchProfile)

			r.Route("/kyc", func(r chi.Router) {
				r.Get("/", s.handleListKYCs)
				r.Post("/", s.handleTriggerKYC)
				r.Post("/sync", s.handleSyncKYCs)
				r.Post("/{id}/refresh", s.handleRefreshKYC)
			})

			r.Get("/currencies", s.handleGetCurrencies)
			r.Get("/rates/{base}/{quote}", s.handleGetRate)
			r.Post("/quotes", s.handleCreateQuote)

			r.Route("/trades", func(r chi.Router) {
				r.Get("/", s.handleListTrades)
				r.Post("/sync", s.handleSyncTrades)
				r.Post("/sell", s.handleSell)
				r.Post("/buy", s.handleBuy)
				r.Post("/{id}/refresh", s.handleRefreshTrade)
				r.Post("/{id}/requote", s.handleRequoteTrade)
			})

			r.Route("/bank/accounts", func(r chi.Router) {
				r.Get("/", s.handleListBankAccounts)
				r.Post("/", s.handleLinkBankAccount)
			})

			r.Route("/system", func(r chi.Router) {
				r.Get("/status", s.handleSystemStatus)
				r.Post("/jobs/{name}", s.handleTriggerJob)
			})
		})
	})
}

// Start starts the HTTP server
func (s *Server) Start() error {
	s.log.Info().Int("port", s.port).Msg("Starting HTTP server")
	return s.server.ListenAndServe()
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown(ctx context.Context) error {
	s.log.Info().Msg("Shutting down HTTP server")
	return s.server.Shutdown(ctx)
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
