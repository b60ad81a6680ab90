package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"math"
	"strings"
	"time"

	"github.com/google/uuid"

	"fleet/internal/config"
	"fleet/internal/domain"
	"fleet/internal/geo"
	"fleet/internal/repository"
)

// Activation rejection reasons for trips that cannot be evaluated far enough
// to record an audit row.
const (
	ReasonTripNotFound    = "trip not found"
	ReasonNoCheckpoints   = "trip has no checkpoints"
	ReasonNoCaptain       = "no captain assigned"
	ReasonCaptainNotFound = "captain not found"
	ReasonMustBeOnline    = "must be online"
)

// ActivationResult is the outcome of one activation evaluation. IsOnTime is
// diagnostic only, the evaluation ran at or before the scheduled time; the
// gate itself is WithinWindow.
type ActivationResult struct {
	TripID          string    `json:"trip_id"`
	CaptainID       string    `json:"captain_id,omitempty"`
	CanActivate     bool      `json:"can_activate"`
	Reason          string    `json:"reason,omitempty"`
	DistanceMeters  float64   `json:"distance_meters,omitempty"`
	WithinProximity bool      `json:"within_proximity"`
	WithinWindow    bool      `json:"within_window"`
	IsOnTime        bool      `json:"is_on_time"`
	TooEarly        bool      `json:"too_early"`
	CheckedAt       time.Time `json:"checked_at"`
}

// ActivationService decides whether a scheduled trip may start: the assigned
// captain must be online, within the proximity radius of the first
// checkpoint, and inside the early-start window ending at the scheduled
// time. Once a trip passes the structural guards, every evaluation is
// recorded as an append-only audit row, approvals and rejections alike.
type ActivationService struct {
	tripRepo    repository.ScheduledTripRepository
	captainRepo repository.CaptainRepository
	checkRepo   repository.ActivationCheckRepository
	cfg         config.ActivationConfig
}

// NewActivationService creates a new ActivationService.
func NewActivationService(
	tripRepo repository.ScheduledTripRepository,
	captainRepo repository.CaptainRepository,
	checkRepo repository.ActivationCheckRepository,
	cfg config.ActivationConfig,
) *ActivationService {
	return &ActivationService{
		tripRepo:    tripRepo,
		captainRepo: captainRepo,
		checkRepo:   checkRepo,
		cfg:         cfg,
	}
}

// CheckActivation evaluates the activation gate for a trip against the
// captain's reported position. The result always carries a reason when the
// trip cannot start; internal failures are folded into the reason instead of
// being returned, so callers can treat any non-activatable result uniformly.
func (s *ActivationService) CheckActivation(ctx context.Context, tripID string, lat, lng float64) *ActivationResult {
	now := time.Now()
	result := &ActivationResult{
		TripID:    tripID,
		CheckedAt: now,
	}

	trip, err := s.tripRepo.GetByID(ctx, tripID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			result.Reason = ReasonTripNotFound
		} else {
			log.Printf("ERROR: trip lookup failed during activation of %s: %v", tripID, err)
			result.Reason = err.Error()
		}
		return result
	}
	result.CaptainID = trip.AssignedCaptainID

	// Structural guards. Failing any of these means the trip cannot be
	// meaningfully evaluated, so no audit row is written.
	if trip.Status != domain.TripStatusScheduled {
		result.Reason = strings.ToLower(string(trip.Status))
		return result
	}

	first := trip.FirstPoint()
	if first == nil {
		result.Reason = ReasonNoCheckpoints
		return result
	}

	if trip.AssignedCaptainID == "" {
		result.Reason = ReasonNoCaptain
		return result
	}

	captain, err := s.captainRepo.GetByID(ctx, trip.AssignedCaptainID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			result.Reason = ReasonCaptainNotFound
		} else {
			log.Printf("ERROR: captain lookup failed during activation of trip %s: %v", trip.ID, err)
			result.Reason = err.Error()
		}
		return result
	}
	if !captain.IsOnline() {
		result.Reason = ReasonMustBeOnline
		return result
	}

	// From here on the outcome is always recorded.
	result.DistanceMeters = geo.DistanceMeters(lat, lng, first.Latitude, first.Longitude)
	result.WithinProximity = result.DistanceMeters <= s.cfg.ProximityMeters

	earliest := trip.ScheduledTime.Add(-s.cfg.EarlyStartWindow)
	result.IsOnTime = !now.After(trip.ScheduledTime)
	result.TooEarly = now.Before(earliest)
	result.WithinWindow = !now.Before(earliest) && !now.After(trip.ScheduledTime)
	result.CanActivate = result.WithinProximity && result.WithinWindow

	if !result.CanActivate {
		result.Reason = rejectionReason(result, earliest, now)
	}

	check := &domain.ActivationCheck{
		ID:                   uuid.New().String(),
		TripID:               trip.ID,
		CaptainID:            trip.AssignedCaptainID,
		WasWithinProximity:   result.WithinProximity,
		WasOnTime:            result.WithinWindow,
		Activated:            result.CanActivate,
		CaptainLatitude:      lat,
		CaptainLongitude:     lng,
		DistanceToFirstPoint: result.DistanceMeters,
		CreatedAt:            now,
	}
	if err := s.checkRepo.Create(ctx, check); err != nil {
		// The evaluation outcome is still valid without its audit row.
		log.Printf("ERROR: failed to record activation check for trip %s: %v", trip.ID, err)
	}

	return result
}

// rejectionReason picks the most actionable explanation: being early
// dominates, then distance combined with a closed window, then each alone.
func rejectionReason(result *ActivationResult, earliest, now time.Time) string {
	if result.TooEarly {
		remaining := int(math.Ceil(earliest.Sub(now).Minutes()))
		return fmt.Sprintf("too early: start window opens in %d minutes", remaining)
	}
	if !result.WithinProximity && !result.WithinWindow {
		return fmt.Sprintf("too far from first checkpoint (%.0f m) and start window has passed", result.DistanceMeters)
	}
	if !result.WithinProximity {
		return fmt.Sprintf("too far from first checkpoint (%.0f m)", result.DistanceMeters)
	}
	return "start window has passed"
}

// WasRecentlyActivatable reports whether an approving audit row exists for
// the trip within the dedup window. The activation worker and the location
// ping path use this to avoid re-notifying a captain on every evaluation.
func (s *ActivationService) WasRecentlyActivatable(ctx context.Context, tripID string) (bool, error) {
	since := time.Now().Add(-s.cfg.NotifyDedupTTL)
	return s.checkRepo.HasActivatedSince(ctx, tripID, since)
}
