package http

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	mw "github.com/trackitco/support-dashboard/internal/adapters/primary/http/middleware"
	"github.com/trackitco/support-dashboard/internal/core/ports"
)

// RouterConfig collects the handlers and middleware NewRouter mounts.
// Rate limiters and the metrics handler are optional.
type RouterConfig struct {
	Logger          *slog.Logger
	Authenticator   ports.Authenticator
	AllowedOrigins  []string
	RateLimiter     *mw.RateLimiter
	AuthRateLimiter *mw.RateLimiter

	Health      *HealthHandler
	WebSocket   *WebSocketHandler
	Streams     *StreamHandler
	Messages    *MessageHandler
	SupportAuth *SupportAuthHandler
	PusherAuth  *PusherAuthHandler
	Metrics     http.Handler
}

// NewRouter builds the HTTP surface of the dashboard backend.
func NewRouter(cfg RouterConfig) http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(mw.RequestID)
	r.Use(mw.RequestLogger(cfg.Logger))
	r.Use(mw.RecoveryLogger(cfg.Logger))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.AllowedOrigins,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders:   []string{"Content-Type", "Authorization", "Cookie", mw.SupportUserHeader, mw.RequestIDHeader},
		ExposedHeaders:   []string{"Content-Type", mw.RequestIDHeader},
		AllowCredentials: true,
		MaxAge:           86400,
	}))

	if cfg.RateLimiter != nil {
		r.Use(cfg.RateLimiter.Middleware)
	}

	// Probes stay outside /api for standard paths
	cfg.Health.RegisterRoutes(r)
	if cfg.Metrics != nil {
		r.Handle("/metrics", cfg.Metrics)
	}

	r.Route("/api", func(r chi.Router) {
		// Authentication is done in-band by the auth frame
		r.Get("/ws", cfg.WebSocket.ServeHTTP)

		r.Group(func(r chi.Router) {
			r.Use(mw.Authenticate(cfg.Authenticator))
			r.Post("/pusher/auth", cfg.PusherAuth.ServeHTTP)
		})

		r.Route("/v1", func(r chi.Router) {
			r.Group(func(r chi.Router) {
				if cfg.AuthRateLimiter != nil {
					r.Use(cfg.AuthRateLimiter.Middleware)
				}
				r.Route("/auth/support", cfg.SupportAuth.RegisterRoutes)
			})

			r.Get("/tickets/stream", cfg.Streams.HandleTickets)
			r.Get("/transactions/stream", cfg.Streams.HandleTransactions)

			r.Route("/tickets/{ticketID}/messages", func(r chi.Router) {
				r.Get("/stream", cfg.Streams.HandleMessages)
				r.Group(func(r chi.Router) {
					r.Use(mw.Authenticate(cfg.Authenticator))
					cfg.Messages.RegisterRoutes(r)
				})
			})
		})
	})

	return r
}
