package router

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/wolfman30/homewellness-booking/internal/http/handlers"
	httpmiddleware "github.com/wolfman30/homewellness-booking/internal/http/middleware"
	"github.com/wolfman30/homewellness-booking/pkg/logging"
)

// Config holds router configuration
type Config struct {
	Logger             *logging.Logger
	Booking            *handlers.BookingHandler
	MetricsHandler     http.Handler
	CORSAllowedOrigins []string
	// RateLimiter guards the routes that call the scheduling provider.
	RateLimiter    *httpmiddleware.RateLimiter
	RequestTimeout time.Duration
}

// New creates a new Chi router with all routes configured
func New(cfg *Config) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Compress(5))
	if len(cfg.CORSAllowedOrigins) > 0 {
		r.Use(httpmiddleware.CORS(cfg.CORSAllowedOrigins))
	}
	r.Use(httpmiddleware.Viewer)
	if cfg.Logger != nil {
		r.Use(httpmiddleware.RequestLogger(cfg.Logger))
	}

	r.Get("/health", handlers.Health)
	if cfg.MetricsHandler != nil {
		r.Handle("/metrics", cfg.MetricsHandler)
	}

	if cfg.Booking == nil {
		return r
	}

	r.Route("/api/v1", func(api chi.Router) {
		if cfg.RequestTimeout > 0 {
			api.Use(middleware.Timeout(cfg.RequestTimeout))
		}
		api.Get("/health", handlers.Health)

		api.Group(func(provider chi.Router) {
			if cfg.RateLimiter != nil {
				provider.Use(cfg.RateLimiter.Middleware)
			}
			provider.Get("/treatment-services", cfg.Booking.TreatmentServices)
			provider.Get("/therapists", cfg.Booking.Therapists)
			provider.Get("/availability", cfg.Booking.Availability)
			provider.Get("/schedule", cfg.Booking.Schedule)
			provider.Post("/bookings", cfg.Booking.CreateBooking)
			provider.Post("/bookings/{lineKey}/appointment", cfg.Booking.CreateAppointment)
		})
	})

	return r
}
