package location

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"shiftgate/internal/geofence"
)

// Sampling constants. Fixed by design, not user-tunable; options exist so
// tests can shrink them.
const (
	RequestTimeout  = 10 * time.Second
	RefreshInterval = 30 * time.Second
)

// Status is the monitor's latest verification result.
type Status struct {
	Geofence geofence.Status
	Sample   *geofence.Sample
	At       time.Time
}

// Monitor keeps a live geofence status for one employee session. It issues a
// position request immediately on Start and then on a fixed period, so an
// employee who walks out of range while idle is downgraded and one who walks
// back in is upgraded. Stop cancels the loop; forgetting it leaks a ticker
// per session.
type Monitor struct {
	provider Provider
	cfg      geofence.Config
	logger   *slog.Logger
	interval time.Duration
	timeout  time.Duration

	mu      sync.RWMutex
	current Status

	updates  chan Status
	cancel   context.CancelFunc
	done     chan struct{}
	stopOnce sync.Once
}

type MonitorOption func(*Monitor)

func WithLogger(logger *slog.Logger) MonitorOption {
	return func(m *Monitor) { m.logger = logger }
}

// WithIntervals overrides the sampling period and per-request timeout.
func WithIntervals(interval, timeout time.Duration) MonitorOption {
	return func(m *Monitor) {
		m.interval = interval
		m.timeout = timeout
	}
}

func NewMonitor(provider Provider, cfg geofence.Config, opts ...MonitorOption) *Monitor {
	m := &Monitor{
		provider: provider,
		cfg:      cfg,
		logger:   slog.Default(),
		interval: RefreshInterval,
		timeout:  RequestTimeout,
		current:  Status{Geofence: geofence.StatusChecking},
		updates:  make(chan Status, 1),
		done:     make(chan struct{}),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Start begins sampling. When geofencing is inapplicable the status becomes
// Verified immediately and no timer is scheduled.
func (m *Monitor) Start() {
	if !m.cfg.Active() {
		m.set(Status{Geofence: geofence.StatusVerified, At: time.Now()})
		close(m.done)
		return
	}

	ctx, cancel := context.WithCancel(context.Background())
	m.cancel = cancel

	go func() {
		defer close(m.done)
		m.check(ctx)

		ticker := time.NewTicker(m.interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				m.check(ctx)
			}
		}
	}()
}

// Stop cancels the sampling loop and waits for it to exit. Idempotent.
func (m *Monitor) Stop() {
	m.stopOnce.Do(func() {
		if m.cancel != nil {
			m.cancel()
		}
		<-m.done
	})
}

// Status returns the latest verification result.
func (m *Monitor) Status() Status {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.current
}

// Updates delivers status changes, latest-wins: a slow consumer only misses
// intermediate states, never the current one.
func (m *Monitor) Updates() <-chan Status {
	return m.updates
}

func (m *Monitor) check(ctx context.Context) {
	reqCtx, cancel := context.WithTimeout(ctx, m.timeout)
	defer cancel()

	sample, err := m.provider.CurrentPosition(reqCtx, RequestOptions{
		HighAccuracy: true,
		Timeout:      m.timeout,
	})
	now := time.Now()
	if err != nil {
		if ctx.Err() != nil {
			return // stopped mid-request; keep the last status
		}
		m.set(Status{Geofence: ClassifyError(err), At: now})
		m.logger.WarnContext(ctx, "location check failed", "status", m.Status().Geofence, "error", err)
		return
	}

	m.set(Status{
		Geofence: geofence.Classify(sample, m.cfg),
		Sample:   &sample,
		At:       now,
	})
}

func (m *Monitor) set(s Status) {
	m.mu.Lock()
	m.current = s
	m.mu.Unlock()

	select {
	case m.updates <- s:
	default:
		select {
		case <-m.updates:
		default:
		}
		select {
		case m.updates <- s:
		default:
		}
	}
}

// ClassifyError maps a provider failure to the geofence status it implies.
func ClassifyError(err error) geofence.Status {
	switch {
	case errors.Is(err, ErrPermissionDenied):
		return geofence.StatusPermissionDenied
	case errors.Is(err, ErrTimeout), errors.Is(err, ErrUnavailable),
		errors.Is(err, context.DeadlineExceeded):
		return geofence.StatusUnavailable
	default:
		return geofence.StatusError
	}
}
