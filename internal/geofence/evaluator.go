package geofence

import "math"

// earthRadiusMeters is the mean Earth radius used by the Haversine formula.
const earthRadiusMeters = 6371000.0

// Distance returns the great-circle distance between two coordinates in
// meters, via the Haversine formula. Symmetric, zero iff a == b.
func Distance(a, b Coordinate) float64 {
	lat1 := radians(a.Lat)
	lat2 := radians(b.Lat)
	dLat := radians(b.Lat - a.Lat)
	dLng := radians(b.Lng - a.Lng)

	sinLat := math.Sin(dLat / 2)
	sinLng := math.Sin(dLng / 2)
	h := sinLat*sinLat + math.Cos(lat1)*math.Cos(lat2)*sinLng*sinLng

	return 2 * earthRadiusMeters * math.Asin(math.Sqrt(h))
}

// Classify evaluates a sample against the configured geofence.
//
// When verification does not apply — RequireLocation is off, or the business
// location is unset — the sample is Verified: geofencing is inapplicable, not
// failed. Provider-level failures (permission, timeout) never reach this
// function; the monitor classifies those directly.
func Classify(s Sample, c Config) Status {
	if !c.Active() {
		return StatusVerified
	}
	if Distance(s.Coordinate, c.Center) <= c.RadiusMeters {
		return StatusVerified
	}
	return StatusOutOfRange
}

func radians(deg float64) float64 {
	return deg * math.Pi / 180
}
