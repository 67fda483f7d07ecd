package config

import (
	"context"
	"os"
	"strconv"

	"shiftgate/internal/geofence"
)

// EnvProvider reads the geofence configuration from environment variables.
// Used when no Redis is configured so a dev instance still boots.
type EnvProvider struct{}

func NewEnvProvider() EnvProvider { return EnvProvider{} }

func (EnvProvider) Load(_ context.Context) (geofence.Config, error) {
	return geofence.Config{
		Center: geofence.Coordinate{
			Lat: envFloat("SHIFTGATE_BUSINESS_LAT"),
			Lng: envFloat("SHIFTGATE_BUSINESS_LNG"),
		},
		RadiusMeters:    envFloat("SHIFTGATE_BUSINESS_RADIUS_M"),
		RequireLocation: os.Getenv("SHIFTGATE_REQUIRE_LOCATION") == "true",
	}, nil
}

func envFloat(key string) float64 {
	f, err := strconv.ParseFloat(os.Getenv(key), 64)
	if err != nil {
		return 0
	}
	return f
}
