// Package notify delivers best-effort messages after successful attendance
// transitions. Delivery is fire-and-forget: senders may fail and the failure
// is logged at most, never surfaced to the transition caller.
package notify

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"shiftgate/internal/attendance/models"
)

// Event describes one successful transition.
type Event struct {
	EmployeeID   string                `json:"employee_id"`
	EmployeeName string                `json:"employee_name"`
	Kind         models.TransitionKind `json:"kind"`
	At           time.Time             `json:"at"`
}

// Message renders the human-readable notification text.
func (e Event) Message() string {
	verb := map[models.TransitionKind]string{
		models.TransitionClockIn:    "clocked in",
		models.TransitionBreakStart: "started a break",
		models.TransitionBreakEnd:   "ended a break",
		models.TransitionClockOut:   "clocked out",
	}[e.Kind]
	return fmt.Sprintf("%s %s at %s", e.EmployeeName, verb, e.At.Format("15:04"))
}

// Notifier sends one event. Implementations must be safe for concurrent use.
type Notifier interface {
	Send(ctx context.Context, e Event) error
}

// SlogNotifier writes notifications to the log. The default sender when no
// broker is configured.
type SlogNotifier struct {
	logger *slog.Logger
}

func NewSlogNotifier(logger *slog.Logger) *SlogNotifier {
	return &SlogNotifier{logger: logger}
}

func (n *SlogNotifier) Send(ctx context.Context, e Event) error {
	n.logger.InfoContext(ctx, "attendance notification",
		"employee_id", e.EmployeeID,
		"kind", string(e.Kind),
		"message", e.Message(),
	)
	return nil
}
