// Package journal keeps an append-only trail of successful attendance
// transitions. Emission is best-effort and never blocks a transition; a full
// buffer drops the event with a warning.
package journal

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"shiftgate/internal/attendance/models"
	"shiftgate/internal/geofence"
)

// Event is one recorded transition.
type Event struct {
	ID         uuid.UUID
	EmployeeID string
	Kind       models.TransitionKind
	At         time.Time
	Location   *geofence.Sample
	Verified   bool
	Device     string
}

// Store persists journal events.
type Store interface {
	Append(ctx context.Context, e Event) error
	ListByEmployee(ctx context.Context, employeeID string, limit int) ([]Event, error)
}

// Sink accepts events from the state machine and hands them to the worker.
type Sink struct {
	inbox  chan Event
	logger *slog.Logger
}

func NewSink(buffer int, logger *slog.Logger) *Sink {
	return &Sink{
		inbox:  make(chan Event, buffer),
		logger: logger,
	}
}

// Emit queues an event. Non-blocking: when the buffer is full the event is
// dropped, because a slow journal must never stall a clock-in.
func (s *Sink) Emit(e Event) {
	if e.ID == uuid.Nil {
		e.ID = uuid.New()
	}
	select {
	case s.inbox <- e:
	default:
		s.logger.Warn("journal buffer full, dropping event",
			"employee_id", e.EmployeeID, "kind", string(e.Kind))
	}
}

// Worker drains a sink into a store.
type Worker struct {
	store  Store
	sink   *Sink
	logger *slog.Logger
}

func NewWorker(store Store, sink *Sink, logger *slog.Logger) *Worker {
	return &Worker{store: store, sink: sink, logger: logger}
}

// Run persists events until the context is cancelled. Store failures are
// logged and skipped; the journal is an audit convenience, not a ledger.
func (w *Worker) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case e := <-w.sink.inbox:
			if err := w.store.Append(ctx, e); err != nil {
				w.logger.ErrorContext(ctx, "journal append failed",
					"event_id", e.ID.String(), "error", err)
			}
		}
	}
}
