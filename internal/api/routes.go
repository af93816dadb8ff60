package api

import (
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/ignite/petitions-api/internal/auth"
)

// SetupRoutes configures all API routes.
func SetupRoutes(h *Handlers, hc *HealthChecker, adminAuth *auth.AdminAuth, corsOrigins []string) *chi.Mux {
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.RealIP)
	r.Use(middleware.RequestID)

	// CORS - the signing form posts from the frontend origin(s)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   corsOrigins,
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-API-Key"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	// Health and metrics (no auth required)
	r.Get("/health", hc.HandleHealth)
	r.Get("/health/live", hc.HandleLiveness)
	r.Get("/health/ready", hc.HandleReadiness)
	r.Method("GET", "/metrics", promhttp.Handler())

	r.Route("/api", func(r chi.Router) {
		r.Route("/petitions", func(r chi.Router) {
			r.Post("/{slug}/sign", h.HandleSign)
			r.Get("/{slug}/stats", h.HandleStats)
		})

		r.Get("/confirm", h.HandleConfirm)
		r.Post("/confirm/resend", h.HandleResend)

		// Admin routes (JWT or API key)
		r.Route("/admin", func(r chi.Router) {
			r.Use(adminAuth.Middleware)
			r.Get("/stats", h.HandleAdminStats)
			r.Get("/signatures.csv", h.HandleAdminExportCSV)
		})
	})

	return r
}
