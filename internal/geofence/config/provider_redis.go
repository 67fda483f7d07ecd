package config

import (
	"context"
	"strconv"

	"github.com/redis/go-redis/v9"

	"shiftgate/internal/geofence"
	dErrors "shiftgate/pkg/errors"
)

// RedisProvider reads the geofence keys from Redis. Missing keys yield zero
// values, which downstream code treats as "not configured".
type RedisProvider struct {
	client redis.UniversalClient
}

func NewRedisProvider(client redis.UniversalClient) *RedisProvider {
	return &RedisProvider{client: client}
}

func (p *RedisProvider) Load(ctx context.Context) (geofence.Config, error) {
	vals, err := p.client.MGet(ctx, KeyLatitude, KeyLongitude, KeyRadiusMeters, KeyRequireLocation).Result()
	if err != nil {
		return geofence.Config{}, dErrors.Wrap(err, dErrors.CodeUnavailable, "load geofence config")
	}

	cfg := geofence.Config{
		Center: geofence.Coordinate{
			Lat: parseFloat(vals[0]),
			Lng: parseFloat(vals[1]),
		},
		RadiusMeters:    parseFloat(vals[2]),
		RequireLocation: parseBool(vals[3]),
	}
	return cfg, nil
}

func parseFloat(v any) float64 {
	s, ok := v.(string)
	if !ok {
		return 0
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0
	}
	return f
}

func parseBool(v any) bool {
	s, ok := v.(string)
	if !ok {
		return false
	}
	b, err := strconv.ParseBool(s)
	if err != nil {
		return false
	}
	return b
}
