// Package service implements the attendance state machine: the per-employee,
// per-day transitions between NotStarted, Working, OnBreak and Completed,
// gated on geofence verification and persisted through the shift record
// store.
package service

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"

	"shiftgate/internal/attendance/metrics"
	"shiftgate/internal/attendance/models"
	"shiftgate/internal/attendance/ports"
	"shiftgate/internal/geofence"
	"shiftgate/internal/journal"
	"shiftgate/internal/notify"
	"shiftgate/internal/platform/middleware"
	dErrors "shiftgate/pkg/errors"
)

const notifyTimeout = 5 * time.Second

// Service drives the shift state machine. Transitions for one
// (employee, day) key are serialized internally; the store's upsert-by-key
// semantics back that up across processes.
type Service struct {
	store    ports.ShiftRecordStore
	config   ports.ConfigProvider
	status   ports.StatusSource
	notifier notify.Notifier
	sink     *journal.Sink
	metrics  *metrics.Metrics
	logger   *slog.Logger
	tracer   trace.Tracer
	loc      *time.Location

	now         func() time.Time
	resolveName func(ctx context.Context, employeeID string) string

	locks keyedMutex
}

type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) { s.logger = logger }
}

func WithNotifier(n notify.Notifier) Option {
	return func(s *Service) { s.notifier = n }
}

func WithJournal(sink *journal.Sink) Option {
	return func(s *Service) { s.sink = sink }
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) { s.metrics = m }
}

// WithTimeZone sets the business time zone used to decide which calendar day
// a transition belongs to.
func WithTimeZone(loc *time.Location) Option {
	return func(s *Service) { s.loc = loc }
}

// WithClock overrides the time source for tests.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// WithNameResolver maps an employee id to a display name for notifications.
func WithNameResolver(f func(ctx context.Context, employeeID string) string) Option {
	return func(s *Service) { s.resolveName = f }
}

func New(store ports.ShiftRecordStore, config ports.ConfigProvider, status ports.StatusSource, opts ...Option) (*Service, error) {
	if store == nil {
		return nil, fmt.Errorf("shift record store is required")
	}
	if config == nil {
		return nil, fmt.Errorf("geofence config provider is required")
	}
	if status == nil {
		return nil, fmt.Errorf("geofence status source is required")
	}

	s := &Service{
		store:  store,
		config: config,
		status: status,
		logger: slog.Default(),
		tracer: otel.Tracer("shiftgate/attendance"),
		loc:    time.Local,
		now:    time.Now,
		resolveName: func(_ context.Context, employeeID string) string {
			return employeeID
		},
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.notifier == nil {
		s.notifier = notify.NewSlogNotifier(s.logger)
	}
	return s, nil
}

// ClockIn opens the employee's shift for today. When geofence verification is
// required the current status must be Verified; any other status rejects the
// transition without touching state.
func (s *Service) ClockIn(ctx context.Context, employeeID string) (*models.ShiftRecord, error) {
	ctx, span := s.tracer.Start(ctx, "attendance.clock_in")
	defer span.End()

	now := s.now()
	day := models.DayOf(now, s.loc)
	defer s.locks.lock(lockKey(employeeID, day))()

	existing, err := s.store.FindByEmployeeAndDate(ctx, employeeID, day)
	if err != nil {
		return nil, s.reject(models.TransitionClockIn, dErrors.Wrap(err, dErrors.CodeInternal, "read shift record"))
	}
	if existing.Status() != models.StatusNotStarted {
		return nil, s.reject(models.TransitionClockIn,
			dErrors.New(dErrors.CodeConflict, "already clocked in today"))
	}

	cfg, err := s.config.Load(ctx)
	if err != nil {
		return nil, s.reject(models.TransitionClockIn, err)
	}

	var (
		sample   *geofence.Sample
		verified bool
	)
	if cfg.Active() {
		status, current := s.status.Current(ctx, employeeID)
		s.metrics.GeofenceObserved(string(status))
		if status != geofence.StatusVerified {
			return nil, s.reject(models.TransitionClockIn, locationRequiredError(status))
		}
		sample = current
		verified = true
	}

	rec := &models.ShiftRecord{
		EmployeeID:                employeeID,
		RecordDate:                day,
		ClockIn:                   &now,
		ClockInLocation:           sample,
		LocationVerifiedAtClockIn: verified,
	}
	if err := s.store.Upsert(ctx, rec); err != nil {
		return nil, s.reject(models.TransitionClockIn, dErrors.Wrap(err, dErrors.CodeInternal, "persist clock-in"))
	}

	s.afterTransition(ctx, rec, models.TransitionClockIn, now, sample, verified)
	return rec, nil
}

// StartBreak opens a break. Requires the shift to be Working; location is not
// re-checked.
func (s *Service) StartBreak(ctx context.Context, employeeID string) (*models.ShiftRecord, error) {
	ctx, span := s.tracer.Start(ctx, "attendance.start_break")
	defer span.End()

	now := s.now()
	day := models.DayOf(now, s.loc)
	defer s.locks.lock(lockKey(employeeID, day))()

	rec, err := s.store.FindByEmployeeAndDate(ctx, employeeID, day)
	if err != nil {
		return nil, s.reject(models.TransitionBreakStart, dErrors.Wrap(err, dErrors.CodeInternal, "read shift record"))
	}
	if err := requireStatus(rec, models.TransitionBreakStart, models.StatusWorking); err != nil {
		return nil, s.reject(models.TransitionBreakStart, err)
	}

	updated, err := s.store.Update(ctx, employeeID, day, models.ShiftUpdate{
		BreakStart:    &now,
		ClearBreakEnd: true,
	})
	if err != nil {
		return nil, s.reject(models.TransitionBreakStart, dErrors.Wrap(err, dErrors.CodeInternal, "persist break start"))
	}

	s.afterTransition(ctx, updated, models.TransitionBreakStart, now, nil, false)
	return updated, nil
}

// EndBreak closes the open break and accumulates its minutes.
func (s *Service) EndBreak(ctx context.Context, employeeID string) (*models.ShiftRecord, error) {
	ctx, span := s.tracer.Start(ctx, "attendance.end_break")
	defer span.End()

	now := s.now()
	day := models.DayOf(now, s.loc)
	defer s.locks.lock(lockKey(employeeID, day))()

	rec, err := s.store.FindByEmployeeAndDate(ctx, employeeID, day)
	if err != nil {
		return nil, s.reject(models.TransitionBreakEnd, dErrors.Wrap(err, dErrors.CodeInternal, "read shift record"))
	}
	if err := requireStatus(rec, models.TransitionBreakEnd, models.StatusOnBreak); err != nil {
		return nil, s.reject(models.TransitionBreakEnd, err)
	}

	total := rec.TotalBreakMinutes + now.Sub(*rec.BreakStart).Minutes()
	updated, err := s.store.Update(ctx, employeeID, day, models.ShiftUpdate{
		BreakEnd:          &now,
		TotalBreakMinutes: &total,
	})
	if err != nil {
		return nil, s.reject(models.TransitionBreakEnd, dErrors.Wrap(err, dErrors.CodeInternal, "persist break end"))
	}

	s.afterTransition(ctx, updated, models.TransitionBreakEnd, now, nil, false)
	return updated, nil
}

// ClockOut completes the shift. An open break is closed first at the
// clock-out instant; total hours are wall time minus accumulated break
// minutes, to two decimals. Location is attached best-effort, never gated.
func (s *Service) ClockOut(ctx context.Context, employeeID string) (*models.ShiftRecord, error) {
	ctx, span := s.tracer.Start(ctx, "attendance.clock_out")
	defer span.End()

	now := s.now()
	day := models.DayOf(now, s.loc)
	defer s.locks.lock(lockKey(employeeID, day))()

	rec, err := s.store.FindByEmployeeAndDate(ctx, employeeID, day)
	if err != nil {
		return nil, s.reject(models.TransitionClockOut, dErrors.Wrap(err, dErrors.CodeInternal, "read shift record"))
	}
	switch rec.Status() {
	case models.StatusNotStarted:
		return nil, s.reject(models.TransitionClockOut,
			dErrors.New(dErrors.CodeConflict, "cannot clock out without clocking in"))
	case models.StatusCompleted:
		return nil, s.reject(models.TransitionClockOut,
			dErrors.New(dErrors.CodeConflict, "shift already completed"))
	}

	total := rec.TotalBreakMinutes
	upd := models.ShiftUpdate{ClockOut: &now}
	if rec.Status() == models.StatusOnBreak {
		total += now.Sub(*rec.BreakStart).Minutes()
		upd.BreakEnd = &now
	}
	upd.TotalBreakMinutes = &total

	hours := round2(now.Sub(*rec.ClockIn).Hours() - total/60)
	upd.TotalHours = &hours

	_, sample := s.status.Cached(employeeID)
	upd.ClockOutLocation = sample

	updated, err := s.store.Update(ctx, employeeID, day, upd)
	if err != nil {
		return nil, s.reject(models.TransitionClockOut, dErrors.Wrap(err, dErrors.CodeInternal, "persist clock-out"))
	}

	s.afterTransition(ctx, updated, models.TransitionClockOut, now, sample, false)
	return updated, nil
}

// Today returns the employee's record for the current day, nil when none.
func (s *Service) Today(ctx context.Context, employeeID string) (*models.ShiftRecord, error) {
	day := models.DayOf(s.now(), s.loc)
	rec, err := s.store.FindByEmployeeAndDate(ctx, employeeID, day)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "read shift record")
	}
	return rec, nil
}

func (s *Service) afterTransition(ctx context.Context, rec *models.ShiftRecord, kind models.TransitionKind, at time.Time, sample *geofence.Sample, verified bool) {
	s.metrics.TransitionSucceeded(string(kind))

	if s.sink != nil {
		s.sink.Emit(journal.Event{
			EmployeeID: rec.EmployeeID,
			Kind:       kind,
			At:         at,
			Location:   sample,
			Verified:   verified,
			Device:     middleware.GetDevice(ctx),
		})
	}

	event := notify.Event{
		EmployeeID:   rec.EmployeeID,
		EmployeeName: s.resolveName(ctx, rec.EmployeeID),
		Kind:         kind,
		At:           at,
	}
	// Fire-and-forget: the transition already committed, delivery failures
	// are logged and discarded.
	sendCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), notifyTimeout)
	go func() {
		defer cancel()
		if err := s.notifier.Send(sendCtx, event); err != nil {
			s.logger.WarnContext(sendCtx, "notification dispatch failed",
				"employee_id", event.EmployeeID, "kind", string(kind), "error", err)
		}
	}()
}

func (s *Service) reject(kind models.TransitionKind, err error) error {
	s.metrics.TransitionRejected(string(kind), string(dErrors.CodeOf(err)))
	return err
}

func requireStatus(rec *models.ShiftRecord, kind models.TransitionKind, want models.ShiftStatus) error {
	got := rec.Status()
	if got == want {
		return nil
	}
	return dErrors.New(dErrors.CodeConflict,
		fmt.Sprintf("%s not allowed while shift is %s", kind, got))
}

// locationRequiredError explains why clock-in was blocked; the geofence
// status picks the caller-facing message.
func locationRequiredError(status geofence.Status) error {
	switch status {
	case geofence.StatusOutOfRange:
		return dErrors.New(dErrors.CodeForbidden, "location required: outside the allowed work area")
	case geofence.StatusPermissionDenied:
		return dErrors.New(dErrors.CodeForbidden, "location required: device denied location access")
	case geofence.StatusUnavailable:
		return dErrors.New(dErrors.CodeForbidden, "location required: current location unavailable")
	default:
		return dErrors.New(dErrors.CodeForbidden, "location required: verification not completed")
	}
}

func round2(f float64) float64 {
	return math.Round(f*100) / 100
}

func lockKey(employeeID string, day models.Day) string {
	return employeeID + "|" + string(day)
}
