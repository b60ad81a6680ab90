package tests

import (
	"testing"
	"time"

	"fleet/internal/service"
)

// ──────────────────────────────────────────────
// CHECKPOINT TIMING EDGE CASES
// ──────────────────────────────────────────────

func TestTiming_LateArrival_RoundsToWholeMinutes(t *testing.T) {
	t.Parallel()

	expected := time.Date(2026, 3, 1, 22, 10, 0, 0, time.UTC)
	actual := time.Date(2026, 3, 1, 22, 13, 13, 0, time.UTC)

	result := service.CalculateTimingDifference(expected, actual)
	if result == nil {
		t.Fatal("expected a timing result")
	}

	if result.Status != service.TimingLate {
		t.Errorf("expected status %s, got %s", service.TimingLate, result.Status)
	}
	// 3m13s rounds to 3 minutes.
	if result.Minutes != 3 {
		t.Errorf("expected 3 minutes, got %d", result.Minutes)
	}
}

func TestTiming_ExactlyOneMinuteEarly_CountsAsEarly(t *testing.T) {
	t.Parallel()

	expected := time.Date(2026, 3, 1, 22, 10, 0, 0, time.UTC)
	actual := time.Date(2026, 3, 1, 22, 9, 0, 0, time.UTC)

	result := service.CalculateTimingDifference(expected, actual)
	if result == nil {
		t.Fatal("expected a timing result")
	}

	// The on-time band is strictly under a minute, so -60s falls outside it.
	if result.Status != service.TimingEarly {
		t.Errorf("expected status %s, got %s", service.TimingEarly, result.Status)
	}
	if result.Minutes != 1 {
		t.Errorf("expected 1 minute, got %d", result.Minutes)
	}
}

func TestTiming_WithinOneMinute_OnTime(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		name   string
		offset time.Duration
	}{
		{"exactly on time", 0},
		{"30 seconds late", 30 * time.Second},
		{"59 seconds early", -59 * time.Second},
	}

	expected := time.Date(2026, 3, 1, 22, 10, 0, 0, time.UTC)

	for _, tc := range testCases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			result := service.CalculateTimingDifference(expected, expected.Add(tc.offset))
			if result == nil {
				t.Fatal("expected a timing result")
			}
			if result.Status != service.TimingOnTime {
				t.Errorf("expected status %s, got %s", service.TimingOnTime, result.Status)
			}
			if result.Minutes != 0 {
				t.Errorf("expected 0 minutes, got %d", result.Minutes)
			}
		})
	}
}

func TestTiming_MissingTime_ReturnsNil(t *testing.T) {
	t.Parallel()

	now := time.Now()

	if result := service.CalculateTimingDifference(time.Time{}, now); result != nil {
		t.Errorf("expected nil for zero expected time, got %+v", result)
	}
	if result := service.CalculateTimingDifference(now, time.Time{}); result != nil {
		t.Errorf("expected nil for zero actual time, got %+v", result)
	}
}

func TestTiming_MislabeledLocalTime_Corrected(t *testing.T) {
	t.Parallel()

	// An imported schedule carries 22:10 local wall-clock time but marked
	// UTC. The captain arrives at 22:10:30 in UTC+3; the raw difference says
	// almost three hours early, the corrected one says 30 seconds.
	expected := time.Date(2026, 3, 1, 22, 10, 0, 0, time.UTC)
	zone := time.FixedZone("UTC+3", 3*3600)
	actual := time.Date(2026, 3, 1, 22, 10, 30, 0, zone)

	result := service.CalculateTimingDifference(expected, actual)
	if result == nil {
		t.Fatal("expected a timing result")
	}

	if !result.TimezoneCorrected {
		t.Error("expected the timezone correction to apply")
	}
	if result.Status != service.TimingOnTime {
		t.Errorf("expected status %s, got %s", service.TimingOnTime, result.Status)
	}
	if result.DiffMs != 30_000 {
		t.Errorf("expected corrected diff of 30000ms, got %d", result.DiffMs)
	}
}

func TestTiming_GenuinelyEarly_NotCorrected(t *testing.T) {
	t.Parallel()

	// 90 minutes early in a zone with no offset: the correction attempt
	// changes nothing and the raw difference stands.
	expected := time.Date(2026, 3, 1, 22, 10, 0, 0, time.UTC)
	actual := expected.Add(-90 * time.Minute)

	result := service.CalculateTimingDifference(expected, actual)
	if result == nil {
		t.Fatal("expected a timing result")
	}

	if result.Status != service.TimingEarly {
		t.Errorf("expected status %s, got %s", service.TimingEarly, result.Status)
	}
	if result.Minutes != 90 {
		t.Errorf("expected 90 minutes, got %d", result.Minutes)
	}
}
