package http

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/paramirez/deckzter-seed/internal/auth"
	"github.com/paramirez/deckzter-seed/pkg/health"
	"github.com/paramirez/deckzter-seed/pkg/middleware"
)

const serviceName = "card-importer"

// NewRouter creates a chi router with the import, health and metrics routes.
// When validate is non-nil, starting an import requires an admin bearer token.
func NewRouter(imports *ImportHandler, healthHandler *health.Handler, validate middleware.TokenValidator, logger *slog.Logger) http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(middleware.Recovery(logger))
	r.Use(middleware.Tracing(serviceName))
	r.Use(middleware.RequestLogging(logger))
	r.Use(middleware.PrometheusMetrics(serviceName))

	r.Get("/health/live", healthHandler.LivenessHandler())
	r.Get("/health/ready", healthHandler.ReadinessHandler())
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api/v1/imports", func(r chi.Router) {
		r.Use(ContentTypeJSON)
		if validate != nil {
			r.Use(middleware.Auth(validate))
			r.Use(middleware.RequireRole(auth.RoleAdmin))
		}

		r.Post("/", imports.CreateImport)
	})

	return r
}
