// Package geo provides the great-circle distance used by activation checks.
package geo

import "math"

// earthRadiusMeters is the canonical radius used everywhere; every call site
// goes through DistanceMeters so proximity thresholds compare consistently.
const earthRadiusMeters = 6371000.0

// DistanceMeters returns the haversine great-circle distance in meters
// between two latitude/longitude points.
func DistanceMeters(lat1, lng1, lat2, lng2 float64) float64 {
	dLat := radians(lat2 - lat1)
	dLng := radians(lng2 - lng1)

	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(radians(lat1))*math.Cos(radians(lat2))*
			math.Sin(dLng/2)*math.Sin(dLng/2)
	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))

	return earthRadiusMeters * c
}

func radians(deg float64) float64 {
	return deg * math.Pi / 180
}

// ValidCoordinates reports whether a latitude/longitude pair is inside the
// WGS84 value range. Out-of-range pairs are rejected before they reach the
// geo index.
func ValidCoordinates(lat, lng float64) bool {
	return lat >= -90 && lat <= 90 && lng >= -180 && lng <= 180
}
