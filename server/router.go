// Package server assembles the HTTP surface of the SQL gateway.
package server

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/nnnkkk7/sqlgateway/pkg/observability"
	"github.com/nnnkkk7/sqlgateway/server/handlers"
)

// NewRouter mounts the execution API under /api/v1 next to /health and /metrics.
func NewRouter(executions *handlers.ExecutionHandler, logger *slog.Logger) http.Handler {
	logger = observability.OrNop(logger)

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(observability.LoggingMiddleware(logger))
	r.Use(observability.MetricsMiddleware)

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		if _, err := w.Write([]byte("OK")); err != nil {
			logger.Warn("failed to write health response", slog.String("error", err.Error()))
		}
	})
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api/v1", executions.Routes)
	return r
}
