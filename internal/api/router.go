package api

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/httprate"
)

// NewRouter builds and returns the Chi router with all routes configured.
// The health endpoint is unauthenticated; every other route requires bearer auth.
// Rate limiting is applied globally: 60 requests per minute per IP.
func NewRouter(handlers *Handlers, token string, db, redis pinger, log *slog.Logger) *chi.Mux {
	r := chi.NewRouter()

	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(httprate.LimitByIP(60, time.Minute))
	r.Use(RequestLogger(log))

	r.Get("/api/v1/health", HealthHandlerFunc(db, redis, log))

	r.Group(func(r chi.Router) {
		r.Use(BearerAuth(token))
		r.Get("/api/v1/weather", handlers.GetWeather)
		r.Get("/api/v1/readings", handlers.ListReadings)

		r.Route("/api/v1/devices/{device}", func(r chi.Router) {
			r.Post("/location", handlers.ReportLocation)
			r.Post("/refresh", handlers.RefreshDevice)
			r.Get("/weather", handlers.GetDeviceWeather)
			r.Get("/preferences", handlers.GetPreferences)
			r.Put("/preferences", handlers.PutPreferences)
		})
	})

	return r
}

// Ensure chi.Mux implements http.Handler.
var _ http.Handler = (*chi.Mux)(nil)
