package session

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"shiftgate/internal/geofence"
	"shiftgate/internal/geofence/config"
	"shiftgate/internal/location"
)

var activeCfg = geofence.Config{
	Center:          geofence.Coordinate{Lat: -12.0464, Lng: -77.0428},
	RadiusMeters:    100,
	RequireLocation: true,
}

// countingProviders tracks position requests per employee.
type countingProviders struct {
	mu    sync.Mutex
	calls map[string]int
	at    geofence.Coordinate
}

func newCountingProviders(at geofence.Coordinate) *countingProviders {
	return &countingProviders{calls: make(map[string]int), at: at}
}

func (p *countingProviders) factory(employeeID string) location.Provider {
	return location.ProviderFunc(func(context.Context, location.RequestOptions) (geofence.Sample, error) {
		p.mu.Lock()
		p.calls[employeeID]++
		p.mu.Unlock()
		return geofence.Sample{Coordinate: p.at, CapturedAt: time.Now()}, nil
	})
}

func (p *countingProviders) count(employeeID string) int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.calls[employeeID]
}

func fastMonitor() Option {
	return WithMonitorOptions(location.WithIntervals(2*time.Millisecond, time.Second))
}

func TestActivateSwitchingEmployeesStopsOldMonitor(t *testing.T) {
	providers := newCountingProviders(activeCfg.Center)
	mgr := NewManager(providers.factory, config.NewMemoryProvider(activeCfg), fastMonitor())
	defer mgr.Deactivate()

	ctx := context.Background()
	require.NoError(t, mgr.Activate(ctx, "emp-1"))
	require.Eventually(t, func() bool { return providers.count("emp-1") > 0 },
		time.Second, time.Millisecond)

	require.NoError(t, mgr.Activate(ctx, "emp-2"))
	assert.Equal(t, "emp-2", mgr.Active())

	// emp-1's monitor must be fully stopped: its call count freezes.
	frozen := providers.count("emp-1")
	time.Sleep(20 * time.Millisecond)
	assert.Equal(t, frozen, providers.count("emp-1"))
	assert.Greater(t, providers.count("emp-2"), 0)
}

func TestDeactivateStopsMonitoring(t *testing.T) {
	providers := newCountingProviders(activeCfg.Center)
	mgr := NewManager(providers.factory, config.NewMemoryProvider(activeCfg), fastMonitor())

	require.NoError(t, mgr.Activate(context.Background(), "emp-1"))
	require.Eventually(t, func() bool { return providers.count("emp-1") > 0 },
		time.Second, time.Millisecond)

	mgr.Deactivate()
	assert.Empty(t, mgr.Active())

	frozen := providers.count("emp-1")
	time.Sleep(20 * time.Millisecond)
	assert.Equal(t, frozen, providers.count("emp-1"))

	// Idempotent.
	mgr.Deactivate()
}

func TestCurrentUsesLiveMonitor(t *testing.T) {
	providers := newCountingProviders(activeCfg.Center)
	mgr := NewManager(providers.factory, config.NewMemoryProvider(activeCfg), fastMonitor())
	defer mgr.Deactivate()

	require.NoError(t, mgr.Activate(context.Background(), "emp-1"))
	require.Eventually(t, func() bool {
		st, _ := mgr.Cached("emp-1")
		return st == geofence.StatusVerified
	}, time.Second, time.Millisecond)

	st, sample := mgr.Current(context.Background(), "emp-1")
	assert.Equal(t, geofence.StatusVerified, st)
	require.NotNil(t, sample)
}

func TestCurrentFallsBackToOneShotWithoutMonitor(t *testing.T) {
	providers := newCountingProviders(activeCfg.Center)
	mgr := NewManager(providers.factory, config.NewMemoryProvider(activeCfg))

	st, sample := mgr.Current(context.Background(), "emp-9")
	assert.Equal(t, geofence.StatusVerified, st)
	require.NotNil(t, sample)
	assert.Equal(t, 1, providers.count("emp-9"))
}

func TestCurrentInapplicableGeofence(t *testing.T) {
	providers := newCountingProviders(activeCfg.Center)
	mgr := NewManager(providers.factory, config.NewMemoryProvider(geofence.Config{RequireLocation: false}))

	st, _ := mgr.Current(context.Background(), "emp-1")
	assert.Equal(t, geofence.StatusVerified, st)
	assert.Zero(t, providers.count("emp-1"), "no sampling when geofence inapplicable")
}

func TestCurrentClassifiesProviderFailure(t *testing.T) {
	denied := func(string) location.Provider {
		return location.ProviderFunc(func(context.Context, location.RequestOptions) (geofence.Sample, error) {
			return geofence.Sample{}, location.ErrPermissionDenied
		})
	}
	mgr := NewManager(denied, config.NewMemoryProvider(activeCfg))

	st, sample := mgr.Current(context.Background(), "emp-1")
	assert.Equal(t, geofence.StatusPermissionDenied, st)
	assert.Nil(t, sample)
}

func TestCachedWithoutMonitorIsChecking(t *testing.T) {
	providers := newCountingProviders(activeCfg.Center)
	mgr := NewManager(providers.factory, config.NewMemoryProvider(activeCfg))

	st, sample := mgr.Cached("emp-1")
	assert.Equal(t, geofence.StatusChecking, st)
	assert.Nil(t, sample)
}
