// Package httptransport assembles the HTTP router: middleware chain, feature
// handlers, health and metrics endpoints.
package httptransport

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	attendancehandler "shiftgate/internal/attendance/handler"
	"shiftgate/internal/platform/middleware"
)

// NewRouter wires the middleware chain and mounts all endpoints.
func NewRouter(attendance *attendancehandler.Handler, logger *slog.Logger) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recovery(logger))
	r.Use(middleware.RequestID)
	r.Use(middleware.Logger(logger))
	r.Use(middleware.Device)

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	r.Handle("/metrics", promhttp.Handler())

	attendance.Register(r)
	return r
}
