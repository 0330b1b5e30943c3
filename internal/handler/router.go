package handler

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/capitalize-ai/reservation-assistant/internal/middleware"
	"github.com/capitalize-ai/reservation-assistant/pkg/logger"
)

// RouterConfig wires the handlers into the API router.
type RouterConfig struct {
	Health       *HealthHandler
	Messages     *MessageHandler
	Sessions     *SessionHandler
	Reservations *ReservationHandler

	JWTSecret         string
	RateLimitRequests int
	RateLimitWindow   time.Duration
	Logger            *logger.Logger
}

// NewRouter builds the HTTP routes.
func NewRouter(cfg RouterConfig) http.Handler {
	r := chi.NewRouter()

	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.Logging(cfg.Logger))
	r.Use(middleware.SecurityHeaders)
	r.Use(chimiddleware.Recoverer)
	r.Use(middleware.CORS())

	// Health endpoints (no auth required)
	r.Get("/health", cfg.Health.Health)
	r.Get("/ready", cfg.Health.Ready)
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWTSecret))
		if cfg.RateLimitRequests > 0 {
			r.Use(middleware.RateLimit(cfg.RateLimitRequests, cfg.RateLimitWindow))
		}

		r.With(middleware.RequireScope(cfg.JWTSecret, middleware.ScopeMessagesWrite)).
			Post("/messages", cfg.Messages.Receive)

		r.Route("/sessions/{id}", func(r chi.Router) {
			r.Use(middleware.RequireScope(cfg.JWTSecret, middleware.ScopeSessionsAdmin))
			r.Get("/", cfg.Sessions.Get)
			r.Delete("/", cfg.Sessions.Delete)
			r.Get("/transcript", cfg.Sessions.Transcript)
		})

		r.Group(func(r chi.Router) {
			r.Use(middleware.RequireScope(cfg.JWTSecret, middleware.ScopeReservationsRead))
			r.Get("/rooms", cfg.Reservations.ListRooms)
			r.Get("/reservations/{ref}", cfg.Reservations.GetReservation)
		})
	})

	return r
}
