// Package location produces live geofence statuses for an employee session:
// a positioning provider abstraction, a push-based device feed, and a
// cancellable monitor that keeps the status fresh.
package location

import (
	"context"
	"errors"
	"time"

	"shiftgate/internal/geofence"
)

// Provider failure modes. The monitor maps these to geofence statuses; they
// never reach the distance computation.
var (
	ErrPermissionDenied = errors.New("location permission denied")
	ErrTimeout          = errors.New("location request timed out")
	ErrUnavailable      = errors.New("location unavailable")
)

// RequestOptions control one position request.
type RequestOptions struct {
	HighAccuracy bool
	Timeout      time.Duration
}

// Provider answers one-shot position requests for a single employee. A
// request must respect both the passed context and the timeout option and
// must be cancellable through either.
type Provider interface {
	CurrentPosition(ctx context.Context, opts RequestOptions) (geofence.Sample, error)
}

// ProviderFunc adapts a function to the Provider interface.
type ProviderFunc func(ctx context.Context, opts RequestOptions) (geofence.Sample, error)

func (f ProviderFunc) CurrentPosition(ctx context.Context, opts RequestOptions) (geofence.Sample, error) {
	return f(ctx, opts)
}
