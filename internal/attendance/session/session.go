// Package session binds one monitored employee to one live location monitor.
// At most one monitor is live per manager: activating a different employee
// stops the previous monitor first, so switching identities can never leak a
// timer or apply a stale geofence status to the wrong person.
package session

import (
	"context"
	"log/slog"
	"sync"

	"shiftgate/internal/attendance/ports"
	"shiftgate/internal/geofence"
	"shiftgate/internal/location"
)

// ProviderFactory returns the position provider for one employee.
type ProviderFactory func(employeeID string) location.Provider

// Manager owns the active monitoring session and doubles as the state
// machine's geofence status source.
type Manager struct {
	providers ProviderFactory
	config    ports.ConfigProvider
	logger    *slog.Logger
	monOpts   []location.MonitorOption

	mu         sync.Mutex
	employeeID string
	monitor    *location.Monitor
	cfg        geofence.Config
}

type Option func(*Manager)

func WithLogger(logger *slog.Logger) Option {
	return func(m *Manager) { m.logger = logger }
}

// WithMonitorOptions forwards options to every monitor the manager starts.
func WithMonitorOptions(opts ...location.MonitorOption) Option {
	return func(m *Manager) { m.monOpts = opts }
}

func NewManager(providers ProviderFactory, config ports.ConfigProvider, opts ...Option) *Manager {
	m := &Manager{
		providers: providers,
		config:    config,
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Activate starts monitoring an employee, stopping any previous session. The
// geofence configuration is loaded once here and stays fixed for the session;
// a config change requires re-activating.
func (m *Manager) Activate(ctx context.Context, employeeID string) error {
	cfg, err := m.config.Load(ctx)
	if err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.monitor != nil {
		m.monitor.Stop()
		m.monitor = nil
	}

	opts := append([]location.MonitorOption{location.WithLogger(m.logger)}, m.monOpts...)
	mon := location.NewMonitor(m.providers(employeeID), cfg, opts...)
	mon.Start()

	m.employeeID = employeeID
	m.monitor = mon
	m.cfg = cfg
	m.logger.InfoContext(ctx, "monitoring session started",
		"employee_id", employeeID, "geofence_active", cfg.Active())
	return nil
}

// Deactivate stops the current session, if any. Called on view teardown and
// once a shift completes, when no further verification is needed.
func (m *Manager) Deactivate() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.monitor != nil {
		m.monitor.Stop()
		m.monitor = nil
		m.employeeID = ""
	}
}

// Active returns the currently monitored employee id, empty when none.
func (m *Manager) Active() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.employeeID
}

// Current implements ports.StatusSource. With a live monitor for the
// employee it returns the monitor's status; otherwise (or while the monitor
// is still checking) it falls back to a one-shot position request bounded by
// the standard request timeout.
func (m *Manager) Current(ctx context.Context, employeeID string) (geofence.Status, *geofence.Sample) {
	m.mu.Lock()
	mon, active := m.monitor, m.employeeID
	m.mu.Unlock()

	if mon != nil && active == employeeID {
		if st := mon.Status(); st.Geofence != geofence.StatusChecking {
			return st.Geofence, st.Sample
		}
	}

	cfg, err := m.config.Load(ctx)
	if err != nil {
		m.logger.WarnContext(ctx, "geofence config load failed", "error", err)
		return geofence.StatusError, nil
	}
	if !cfg.Active() {
		return geofence.StatusVerified, nil
	}

	sample, err := m.providers(employeeID).CurrentPosition(ctx, location.RequestOptions{
		HighAccuracy: true,
		Timeout:      location.RequestTimeout,
	})
	if err != nil {
		return location.ClassifyError(err), nil
	}
	return geofence.Classify(sample, cfg), &sample
}

// Cached implements ports.StatusSource without blocking.
func (m *Manager) Cached(employeeID string) (geofence.Status, *geofence.Sample) {
	m.mu.Lock()
	mon, active := m.monitor, m.employeeID
	m.mu.Unlock()

	if mon != nil && active == employeeID {
		st := mon.Status()
		return st.Geofence, st.Sample
	}
	return geofence.StatusChecking, nil
}
