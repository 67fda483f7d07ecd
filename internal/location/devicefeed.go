package location

import (
	"context"
	"sync"
	"time"

	"shiftgate/internal/geofence"
)

// MaxSampleAge is how long a pushed device sample satisfies a position
// request. Matches the monitor refresh interval so every periodic re-check
// needs a report no older than the previous cycle.
const MaxSampleAge = 30 * time.Second

// DeviceFeed collects location reports pushed by employee devices and serves
// them as a Provider. A position request returns the cached sample when it is
// fresh enough, otherwise blocks until a fresh report arrives or the request
// times out.
type DeviceFeed struct {
	now func() time.Time

	mu      sync.Mutex
	entries map[string]*feedEntry
}

type feedEntry struct {
	sample  *geofence.Sample
	denied  bool
	arrived chan struct{} // closed and replaced on every report
}

func NewDeviceFeed() *DeviceFeed {
	return &DeviceFeed{
		now:     time.Now,
		entries: make(map[string]*feedEntry),
	}
}

// Report records a device sample for an employee and wakes pending requests.
func (f *DeviceFeed) Report(employeeID string, s geofence.Sample) {
	f.mu.Lock()
	defer f.mu.Unlock()
	e := f.entry(employeeID)
	e.sample = &s
	e.denied = false
	close(e.arrived)
	e.arrived = make(chan struct{})
}

// ReportDenied records that the employee's device refused location access.
// Subsequent requests fail with ErrPermissionDenied until a sample arrives.
func (f *DeviceFeed) ReportDenied(employeeID string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	e := f.entry(employeeID)
	e.denied = true
	close(e.arrived)
	e.arrived = make(chan struct{})
}

// ForEmployee returns a Provider bound to one employee's reports.
func (f *DeviceFeed) ForEmployee(employeeID string) Provider {
	return ProviderFunc(func(ctx context.Context, opts RequestOptions) (geofence.Sample, error) {
		return f.currentPosition(ctx, employeeID, opts)
	})
}

func (f *DeviceFeed) currentPosition(ctx context.Context, employeeID string, opts RequestOptions) (geofence.Sample, error) {
	deadline := f.now().Add(opts.Timeout)
	for {
		f.mu.Lock()
		e := f.entry(employeeID)
		if e.denied {
			f.mu.Unlock()
			return geofence.Sample{}, ErrPermissionDenied
		}
		if e.sample != nil && f.now().Sub(e.sample.CapturedAt) <= MaxSampleAge {
			s := *e.sample
			f.mu.Unlock()
			return s, nil
		}
		arrived := e.arrived
		f.mu.Unlock()

		wait := deadline.Sub(f.now())
		if wait <= 0 {
			return geofence.Sample{}, ErrTimeout
		}
		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return geofence.Sample{}, ctx.Err()
		case <-timer.C:
			return geofence.Sample{}, ErrTimeout
		case <-arrived:
			timer.Stop()
		}
	}
}

// entry must be called with the mutex held.
func (f *DeviceFeed) entry(employeeID string) *feedEntry {
	e, ok := f.entries[employeeID]
	if !ok {
		e = &feedEntry{arrived: make(chan struct{})}
		f.entries[employeeID] = e
	}
	return e
}
