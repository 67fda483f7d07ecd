// Package handler is the thin HTTP layer over the attendance service. It
// decodes requests, delegates, and translates domain errors; business rules
// stay in the service.
package handler

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"shiftgate/internal/attendance/models"
	"shiftgate/internal/geofence"
	"shiftgate/internal/location"
	"shiftgate/internal/platform/middleware"
	dErrors "shiftgate/pkg/errors"
)

// AttendanceService is the state machine surface the handler needs.
type AttendanceService interface {
	ClockIn(ctx context.Context, employeeID string) (*models.ShiftRecord, error)
	StartBreak(ctx context.Context, employeeID string) (*models.ShiftRecord, error)
	EndBreak(ctx context.Context, employeeID string) (*models.ShiftRecord, error)
	ClockOut(ctx context.Context, employeeID string) (*models.ShiftRecord, error)
	Today(ctx context.Context, employeeID string) (*models.ShiftRecord, error)
}

// SessionManager is the monitoring session surface the handler needs.
type SessionManager interface {
	Activate(ctx context.Context, employeeID string) error
	Deactivate()
	Cached(employeeID string) (geofence.Status, *geofence.Sample)
}

type Handler struct {
	logger   *slog.Logger
	svc      AttendanceService
	sessions SessionManager
	feed     *location.DeviceFeed
}

func New(svc AttendanceService, sessions SessionManager, feed *location.DeviceFeed, logger *slog.Logger) *Handler {
	return &Handler{
		logger:   logger,
		svc:      svc,
		sessions: sessions,
		feed:     feed,
	}
}

// Register mounts the attendance routes.
func (h *Handler) Register(r chi.Router) {
	r.Route("/attendance/{employeeID}", func(r chi.Router) {
		r.Post("/clock-in", h.transition(h.svc.ClockIn))
		r.Post("/break/start", h.transition(h.svc.StartBreak))
		r.Post("/break/end", h.transition(h.svc.EndBreak))
		r.Post("/clock-out", h.handleClockOut)
		r.Get("/today", h.handleToday)
		r.Get("/geofence", h.handleGeofenceStatus)
		r.Post("/session", h.handleStartSession)
	})
	r.Delete("/attendance/session", h.handleEndSession)
	r.Post("/location/{employeeID}/report", h.handleLocationReport)
}

func (h *Handler) transition(do func(ctx context.Context, employeeID string) (*models.ShiftRecord, error)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		employeeID := chi.URLParam(r, "employeeID")

		rec, err := do(ctx, employeeID)
		if err != nil {
			h.logger.WarnContext(ctx, "transition rejected",
				"request_id", middleware.GetRequestID(ctx),
				"employee_id", employeeID,
				"error", err.Error(),
			)
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, rec)
	}
}

func (h *Handler) handleClockOut(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	employeeID := chi.URLParam(r, "employeeID")

	rec, err := h.svc.ClockOut(ctx, employeeID)
	if err != nil {
		writeError(w, err)
		return
	}

	// A completed shift needs no further verification.
	h.sessions.Deactivate()
	writeJSON(w, http.StatusOK, rec)
}

func (h *Handler) handleToday(w http.ResponseWriter, r *http.Request) {
	rec, err := h.svc.Today(r.Context(), chi.URLParam(r, "employeeID"))
	if err != nil {
		writeError(w, err)
		return
	}
	if rec == nil {
		writeJSON(w, http.StatusOK, map[string]any{
			"status": models.StatusNotStarted,
		})
		return
	}
	writeJSON(w, http.StatusOK, struct {
		*models.ShiftRecord
		Status models.ShiftStatus `json:"status"`
	}{rec, rec.Status()})
}

func (h *Handler) handleGeofenceStatus(w http.ResponseWriter, r *http.Request) {
	status, sample := h.sessions.Cached(chi.URLParam(r, "employeeID"))
	writeJSON(w, http.StatusOK, map[string]any{
		"status": status,
		"sample": sample,
	})
}

func (h *Handler) handleStartSession(w http.ResponseWriter, r *http.Request) {
	employeeID := chi.URLParam(r, "employeeID")
	if err := h.sessions.Activate(r.Context(), employeeID); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleEndSession(w http.ResponseWriter, r *http.Request) {
	h.sessions.Deactivate()
	w.WriteHeader(http.StatusNoContent)
}

type locationReport struct {
	Lat        float64    `json:"lat"`
	Lng        float64    `json:"lng"`
	CapturedAt *time.Time `json:"captured_at"`
	Denied     bool       `json:"denied"`
}

func (h *Handler) handleLocationReport(w http.ResponseWriter, r *http.Request) {
	employeeID := chi.URLParam(r, "employeeID")

	var report locationReport
	if err := json.NewDecoder(r.Body).Decode(&report); err != nil {
		writeError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
		return
	}

	if report.Denied {
		h.feed.ReportDenied(employeeID)
		w.WriteHeader(http.StatusAccepted)
		return
	}

	capturedAt := time.Now()
	if report.CapturedAt != nil {
		capturedAt = *report.CapturedAt
	}
	h.feed.Report(employeeID, geofence.Sample{
		Coordinate: geofence.Coordinate{Lat: report.Lat, Lng: report.Lng},
		CapturedAt: capturedAt,
	})
	w.WriteHeader(http.StatusAccepted)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeError translates domain errors to the JSON error envelope.
func writeError(w http.ResponseWriter, err error) {
	code := dErrors.CodeOf(err)
	message := "internal server error"
	var de *dErrors.Error
	if errors.As(err, &de) {
		message = de.Message
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(dErrors.ToHTTPStatus(code))
	_ = json.NewEncoder(w).Encode(map[string]string{
		"error":   string(code),
		"message": message,
	})
}
