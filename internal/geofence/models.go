// Package geofence classifies device location samples against the configured
// business geofence. It is pure computation: no state, no I/O.
package geofence

import "time"

// Coordinate is a WGS84 latitude/longitude pair in degrees.
type Coordinate struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// IsZero reports whether the coordinate is the exact (0, 0) point.
func (c Coordinate) IsZero() bool {
	return c.Lat == 0 && c.Lng == 0
}

// Sample is one device location reading. Samples are ephemeral; they are only
// persisted as the location attached to a clock-in/out event.
type Sample struct {
	Coordinate
	CapturedAt time.Time `json:"captured_at"`
}

// Config is the business geofence configuration: center, radius, and whether
// on-site verification is required at all. Loaded once per session and
// treated as immutable while a monitor is live.
type Config struct {
	Center          Coordinate
	RadiusMeters    float64
	RequireLocation bool
}

// Configured reports whether a business location has been set. The exact
// (0, 0) coordinate means "not configured" — a business genuinely located at
// the equator/prime-meridian intersection would silently disable geofencing.
// Preserved as documented behavior of the system this replaces.
func (c Config) Configured() bool {
	return !c.Center.IsZero()
}

// Active reports whether geofence verification applies at all.
func (c Config) Active() bool {
	return c.RequireLocation && c.Configured()
}

// Status is the derived verification state for the current session. It is
// recomputed on every sample and never persisted.
type Status string

const (
	StatusChecking         Status = "checking"
	StatusVerified         Status = "verified"
	StatusOutOfRange       Status = "out_of_range"
	StatusPermissionDenied Status = "permission_denied"
	StatusUnavailable      Status = "unavailable"
	StatusError            Status = "error"
)
