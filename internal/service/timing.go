package service

import (
	"log"
	"math"
	"time"
)

// Timing status values reported for a reached checkpoint.
const (
	TimingOnTime = "on_time"
	TimingEarly  = "early"
	TimingLate   = "late"
)

const (
	// Arrivals within a minute of the expected time count as on time.
	onTimeToleranceMs = 60_000

	// Raw differences beyond a day almost always mean bad input data.
	timingSanityMs = int64(24 * time.Hour / time.Millisecond)
)

// TimingResult describes how a checkpoint arrival compares to its expected
// time.
type TimingResult struct {
	Status string `json:"status"`
	// Minutes is the absolute difference rounded to whole minutes. Zero for
	// on-time arrivals.
	Minutes int `json:"minutes"`
	DiffMs  int64 `json:"diff_ms"`
	// TimezoneCorrected is set when the expected time was reinterpreted as a
	// local wall-clock value. See CalculateTimingDifference.
	TimezoneCorrected bool `json:"timezone_corrected,omitempty"`
}

// CalculateTimingDifference compares an actual arrival against the expected
// checkpoint time. Returns nil when either time is missing.
//
// Some imported schedules carry expected times as local wall-clock values
// mislabeled as UTC. When the raw difference says the captain arrived more
// than an hour early, the expected time is reinterpreted by stripping the
// server's UTC offset; the corrected difference is used only if it lands in
// a plausible range of one hour early to two hours late.
func CalculateTimingDifference(expected, actual time.Time) *TimingResult {
	if expected.IsZero() || actual.IsZero() {
		return nil
	}

	diffMs := actual.Sub(expected).Milliseconds()

	if abs64(diffMs) > timingSanityMs {
		log.Printf("WARN: timing difference exceeds 24h (expected=%s actual=%s)",
			expected.Format(time.RFC3339), actual.Format(time.RFC3339))
	}

	corrected := false
	if diffMs < -60*60_000 {
		_, offsetSec := actual.Zone()
		adjusted := expected.Add(-time.Duration(offsetSec) * time.Second)
		adjustedMs := actual.Sub(adjusted).Milliseconds()

		if adjustedMs >= -60*60_000 && adjustedMs <= 120*60_000 {
			diffMs = adjustedMs
			corrected = true
		}
	}

	result := &TimingResult{
		DiffMs:            diffMs,
		TimezoneCorrected: corrected,
	}

	if abs64(diffMs) < onTimeToleranceMs {
		result.Status = TimingOnTime
		return result
	}

	result.Minutes = int(math.Round(float64(abs64(diffMs)) / 60_000))
	if diffMs < 0 {
		result.Status = TimingEarly
	} else {
		result.Status = TimingLate
	}

	return result
}

func abs64(v int64) int64 {
	if v < 0 {
		return -v
	}
	return v
}
