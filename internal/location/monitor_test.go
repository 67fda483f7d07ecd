package location

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"shiftgate/internal/geofence"
)

var testCfg = geofence.Config{
	Center:          geofence.Coordinate{Lat: -12.0464, Lng: -77.0428},
	RadiusMeters:    100,
	RequireLocation: true,
}

func fixedProvider(c geofence.Coordinate) Provider {
	return ProviderFunc(func(context.Context, RequestOptions) (geofence.Sample, error) {
		return geofence.Sample{Coordinate: c, CapturedAt: time.Now()}, nil
	})
}

func failingProvider(err error) Provider {
	return ProviderFunc(func(context.Context, RequestOptions) (geofence.Sample, error) {
		return geofence.Sample{}, err
	})
}

func waitForStatus(t *testing.T, m *Monitor, want geofence.Status) {
	t.Helper()
	deadline := time.After(2 * time.Second)
	for {
		if m.Status().Geofence == want {
			return
		}
		select {
		case <-deadline:
			t.Fatalf("status never became %s, last %s", want, m.Status().Geofence)
		case <-time.After(time.Millisecond):
		}
	}
}

func TestMonitorInapplicableGeofence(t *testing.T) {
	var calls atomic.Int32
	provider := ProviderFunc(func(context.Context, RequestOptions) (geofence.Sample, error) {
		calls.Add(1)
		return geofence.Sample{}, nil
	})

	for _, cfg := range []geofence.Config{
		{RequireLocation: false, Center: testCfg.Center, RadiusMeters: 100},
		{RequireLocation: true}, // zero center: business not configured
	} {
		m := NewMonitor(provider, cfg, WithIntervals(time.Millisecond, time.Millisecond))
		m.Start()
		assert.Equal(t, geofence.StatusVerified, m.Status().Geofence)
		m.Stop()
	}

	time.Sleep(20 * time.Millisecond)
	assert.Zero(t, calls.Load(), "inapplicable geofence must never sample")
}

func TestMonitorVerifiedInsideRadius(t *testing.T) {
	m := NewMonitor(fixedProvider(testCfg.Center), testCfg,
		WithIntervals(time.Hour, time.Second))
	m.Start()
	defer m.Stop()

	waitForStatus(t, m, geofence.StatusVerified)
	st := m.Status()
	require.NotNil(t, st.Sample)
	assert.Equal(t, testCfg.Center, st.Sample.Coordinate)
}

func TestMonitorOutOfRange(t *testing.T) {
	// ~150 m north of the business.
	away := geofence.Coordinate{Lat: testCfg.Center.Lat + 0.00135, Lng: testCfg.Center.Lng}
	m := NewMonitor(fixedProvider(away), testCfg, WithIntervals(time.Hour, time.Second))
	m.Start()
	defer m.Stop()

	waitForStatus(t, m, geofence.StatusOutOfRange)
}

func TestMonitorProviderFailures(t *testing.T) {
	cases := []struct {
		err  error
		want geofence.Status
	}{
		{ErrPermissionDenied, geofence.StatusPermissionDenied},
		{ErrTimeout, geofence.StatusUnavailable},
		{ErrUnavailable, geofence.StatusUnavailable},
		{errors.New("gps hardware fault"), geofence.StatusError},
	}
	for _, tc := range cases {
		m := NewMonitor(failingProvider(tc.err), testCfg, WithIntervals(time.Hour, time.Second))
		m.Start()
		waitForStatus(t, m, tc.want)
		m.Stop()
	}
}

func TestMonitorPeriodicRecheckTracksMovement(t *testing.T) {
	away := geofence.Coordinate{Lat: testCfg.Center.Lat + 0.00135, Lng: testCfg.Center.Lng}
	var onSite atomic.Bool
	onSite.Store(true)

	provider := ProviderFunc(func(context.Context, RequestOptions) (geofence.Sample, error) {
		c := away
		if onSite.Load() {
			c = testCfg.Center
		}
		return geofence.Sample{Coordinate: c, CapturedAt: time.Now()}, nil
	})

	m := NewMonitor(provider, testCfg, WithIntervals(5*time.Millisecond, time.Second))
	m.Start()
	defer m.Stop()

	waitForStatus(t, m, geofence.StatusVerified)

	// Walks out of range while idle: the periodic re-check must downgrade.
	onSite.Store(false)
	waitForStatus(t, m, geofence.StatusOutOfRange)

	// And walks back in: upgraded again.
	onSite.Store(true)
	waitForStatus(t, m, geofence.StatusVerified)
}

func TestMonitorStopCancelsSampling(t *testing.T) {
	var calls atomic.Int32
	provider := ProviderFunc(func(context.Context, RequestOptions) (geofence.Sample, error) {
		calls.Add(1)
		return geofence.Sample{Coordinate: testCfg.Center, CapturedAt: time.Now()}, nil
	})

	m := NewMonitor(provider, testCfg, WithIntervals(2*time.Millisecond, time.Second))
	m.Start()
	waitForStatus(t, m, geofence.StatusVerified)

	m.Stop()
	after := calls.Load()
	time.Sleep(20 * time.Millisecond)
	assert.Equal(t, after, calls.Load(), "sampling must cease after Stop")

	// Stop is idempotent.
	m.Stop()
}

func TestMonitorUpdatesLatestWins(t *testing.T) {
	m := NewMonitor(fixedProvider(testCfg.Center), testCfg, WithIntervals(time.Hour, time.Second))
	m.Start()
	defer m.Stop()

	select {
	case st := <-m.Updates():
		assert.Equal(t, geofence.StatusVerified, st.Geofence)
	case <-time.After(2 * time.Second):
		t.Fatal("no update delivered")
	}
}
