// Package config supplies the business geofence configuration from an
// external key/value store. The configuration is loaded once per monitoring
// session and treated as immutable until the session is restarted.
package config

import (
	"context"

	"shiftgate/internal/geofence"
)

// Key names in the external key/value store. One record per key, latest
// value wins.
const (
	KeyLatitude        = "shiftgate:geofence:latitude"
	KeyLongitude       = "shiftgate:geofence:longitude"
	KeyRadiusMeters    = "shiftgate:geofence:radius_m"
	KeyRequireLocation = "shiftgate:geofence:require_location"
)

// Provider loads the business geofence configuration.
type Provider interface {
	Load(ctx context.Context) (geofence.Config, error)
}
