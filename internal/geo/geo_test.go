package geo

import (
	"math"
	"testing"
)

func TestDistanceMeters_Symmetric(t *testing.T) {
	t.Parallel()

	lat1, lng1 := 24.7136, 46.6753 // Riyadh
	lat2, lng2 := 24.6877, 46.7219

	ab := DistanceMeters(lat1, lng1, lat2, lng2)
	ba := DistanceMeters(lat2, lng2, lat1, lng1)

	if math.Abs(ab-ba) > 1e-6 {
		t.Errorf("distance not symmetric: %f vs %f", ab, ba)
	}
}

func TestDistanceMeters_SamePointIsZero(t *testing.T) {
	t.Parallel()

	if d := DistanceMeters(24.7136, 46.6753, 24.7136, 46.6753); d != 0 {
		t.Errorf("expected 0 for identical points, got %f", d)
	}
}

func TestDistanceMeters_KnownDistance(t *testing.T) {
	t.Parallel()

	// One degree of latitude is roughly 111.2km.
	d := DistanceMeters(24.0, 46.0, 25.0, 46.0)
	if d < 110000 || d > 112500 {
		t.Errorf("one degree latitude should be ~111km, got %fm", d)
	}
}

func TestValidCoordinates(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		name     string
		lat, lng float64
		want     bool
	}{
		{"origin", 0, 0, true},
		{"poles and antimeridian", 90, 180, true},
		{"lower bounds", -90, -180, true},
		{"latitude too high", 90.0001, 0, false},
		{"latitude too low", -91, 0, false},
		{"longitude too high", 0, 181, false},
		{"longitude too low", 0, -180.5, false},
	}

	for _, tc := range testCases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			if got := ValidCoordinates(tc.lat, tc.lng); got != tc.want {
				t.Errorf("ValidCoordinates(%v, %v) = %v, want %v", tc.lat, tc.lng, got, tc.want)
			}
		})
	}
}
