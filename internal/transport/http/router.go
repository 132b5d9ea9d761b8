// Package httptransport is the thin HTTP layer over the screening and
// registry services. Handlers decode, delegate, and encode; domain rules
// live in the services.
package httptransport

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"zkcomply/internal/platform/health"
	"zkcomply/internal/platform/middleware"
)

// NewRouter wires all public endpoints with the middleware stack.
func NewRouter(screeningH *ScreeningHandler, registryH *RegistryHandler, healthH *health.Handler, logger *slog.Logger) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.Recovery(logger))
	r.Use(middleware.RequestID)
	r.Use(middleware.Logger(logger))
	r.Use(middleware.Timeout(30 * time.Second))

	r.Route("/api", func(api chi.Router) {
		screeningH.Register(api)
		registryH.Register(api)
	})

	healthH.Register(r)
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	return r
}
