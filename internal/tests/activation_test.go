package tests

import (
	"context"
	"strings"
	"testing"
	"time"

	"fleet/internal/config"
	"fleet/internal/domain"
	"fleet/internal/service"
)

// ──────────────────────────────────────────────
// ACTIVATION GATE EDGE CASES
// ──────────────────────────────────────────────

var testActivationConfig = config.ActivationConfig{
	ProximityMeters:  5000,
	EarlyStartWindow: 15 * time.Minute,
	NotifyDedupTTL:   24 * time.Hour,
}

const (
	firstPointLat = 24.7136
	firstPointLng = 46.6753
)

// scheduledTrip builds a one-checkpoint SCHEDULED trip for activation tests.
func scheduledTrip(id, captainID string, scheduledTime time.Time) *domain.ScheduledTrip {
	return &domain.ScheduledTrip{
		ID:                id,
		Name:              "Morning Run",
		Status:            domain.TripStatusScheduled,
		ScheduledTime:     scheduledTime,
		TripType:          domain.TripTypeDeparture,
		Price:             1000,
		AssignedCaptainID: captainID,
		Points: []*domain.TripPoint{
			{
				ID:           id + "-p0",
				TripID:       id,
				Latitude:     firstPointLat,
				Longitude:    firstPointLng,
				Order:        0,
				IsFinalPoint: true,
			},
		},
	}
}

func newActivationService(tripRepo *MockScheduledTripRepository, captainRepo *MockCaptainRepository, checkRepo *MockActivationCheckRepository) *service.ActivationService {
	return service.NewActivationService(tripRepo, captainRepo, checkRepo, testActivationConfig)
}

func TestActivation_WithinWindowAndProximity_Approved(t *testing.T) {
	t.Parallel()

	tripRepo := NewMockScheduledTripRepository()
	captainRepo := NewMockCaptainRepository()
	checkRepo := NewMockActivationCheckRepository()

	captainRepo.AddCaptain(&domain.Captain{ID: "captain-1", Status: domain.CaptainStatusActive})
	tripRepo.AddTrip(scheduledTrip("trip-1", "captain-1", time.Now().Add(10*time.Minute)))

	svc := newActivationService(tripRepo, captainRepo, checkRepo)
	result := svc.CheckActivation(context.Background(), "trip-1", firstPointLat, firstPointLng)

	if !result.CanActivate {
		t.Fatalf("expected activation to be approved, got reason %q", result.Reason)
	}
	if !result.WithinProximity || !result.WithinWindow {
		t.Errorf("expected both conditions met, got proximity=%v window=%v", result.WithinProximity, result.WithinWindow)
	}
	if !result.IsOnTime {
		t.Error("expected the on-time diagnostic before the scheduled time")
	}

	// Approval is recorded in the audit log.
	if checkRepo.CountChecks("trip-1") != 1 {
		t.Fatalf("expected 1 audit row, got %d", checkRepo.CountChecks("trip-1"))
	}
	check := checkRepo.LastCheck("trip-1")
	if !check.Activated {
		t.Error("expected the audit row to record approval")
	}
}

func TestActivation_TooEarly_RejectedWithMinutesRemaining(t *testing.T) {
	t.Parallel()

	tripRepo := NewMockScheduledTripRepository()
	captainRepo := NewMockCaptainRepository()
	checkRepo := NewMockActivationCheckRepository()

	captainRepo.AddCaptain(&domain.Captain{ID: "captain-1", Status: domain.CaptainStatusActive})
	// Window opens 15 minutes before the scheduled time; 25 minutes out is
	// 10 minutes too early.
	tripRepo.AddTrip(scheduledTrip("trip-1", "captain-1", time.Now().Add(25*time.Minute)))

	svc := newActivationService(tripRepo, captainRepo, checkRepo)
	result := svc.CheckActivation(context.Background(), "trip-1", firstPointLat, firstPointLng)

	if result.CanActivate {
		t.Fatal("expected activation to be rejected")
	}
	if !result.TooEarly {
		t.Error("expected the too-early flag")
	}
	if !strings.Contains(result.Reason, "too early") {
		t.Errorf("expected a too-early reason, got %q", result.Reason)
	}

	// Rejections past the structural guards are audited too.
	if checkRepo.CountChecks("trip-1") != 1 {
		t.Errorf("expected 1 audit row, got %d", checkRepo.CountChecks("trip-1"))
	}
}

func TestActivation_WindowPassed_Rejected(t *testing.T) {
	t.Parallel()

	tripRepo := NewMockScheduledTripRepository()
	captainRepo := NewMockCaptainRepository()
	checkRepo := NewMockActivationCheckRepository()

	captainRepo.AddCaptain(&domain.Captain{ID: "captain-1", Status: domain.CaptainStatusActive})
	tripRepo.AddTrip(scheduledTrip("trip-1", "captain-1", time.Now().Add(-5*time.Minute)))

	svc := newActivationService(tripRepo, captainRepo, checkRepo)
	result := svc.CheckActivation(context.Background(), "trip-1", firstPointLat, firstPointLng)

	if result.CanActivate {
		t.Fatal("expected activation to be rejected")
	}
	if result.Reason != "start window has passed" {
		t.Errorf("expected window-passed reason, got %q", result.Reason)
	}
	if result.IsOnTime {
		t.Error("expected the on-time diagnostic to be false after the scheduled time")
	}
}

func TestActivation_TooFarFromFirstCheckpoint_Rejected(t *testing.T) {
	t.Parallel()

	tripRepo := NewMockScheduledTripRepository()
	captainRepo := NewMockCaptainRepository()
	checkRepo := NewMockActivationCheckRepository()

	captainRepo.AddCaptain(&domain.Captain{ID: "captain-1", Status: domain.CaptainStatusActive})
	tripRepo.AddTrip(scheduledTrip("trip-1", "captain-1", time.Now().Add(10*time.Minute)))

	svc := newActivationService(tripRepo, captainRepo, checkRepo)
	// Roughly a degree of latitude away, far beyond the 5km radius.
	result := svc.CheckActivation(context.Background(), "trip-1", firstPointLat+1.0, firstPointLng)

	if result.CanActivate {
		t.Fatal("expected activation to be rejected")
	}
	if result.WithinProximity {
		t.Error("expected the proximity condition to fail")
	}
	if !strings.Contains(result.Reason, "too far from first checkpoint") {
		t.Errorf("expected a distance reason, got %q", result.Reason)
	}
}

func TestActivation_StructuralGuards_NoAuditRow(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		name       string
		setup      func(*MockScheduledTripRepository, *MockCaptainRepository)
		tripID     string
		wantReason string
	}{
		{
			name:       "trip not found",
			setup:      func(tr *MockScheduledTripRepository, cr *MockCaptainRepository) {},
			tripID:     "missing",
			wantReason: service.ReasonTripNotFound,
		},
		{
			name: "trip already active",
			setup: func(tr *MockScheduledTripRepository, cr *MockCaptainRepository) {
				trip := scheduledTrip("trip-1", "captain-1", time.Now())
				trip.Status = domain.TripStatusActive
				tr.AddTrip(trip)
			},
			tripID:     "trip-1",
			wantReason: "active",
		},
		{
			name: "no checkpoints",
			setup: func(tr *MockScheduledTripRepository, cr *MockCaptainRepository) {
				trip := scheduledTrip("trip-1", "captain-1", time.Now())
				trip.Points = nil
				tr.AddTrip(trip)
			},
			tripID:     "trip-1",
			wantReason: service.ReasonNoCheckpoints,
		},
		{
			name: "no captain assigned",
			setup: func(tr *MockScheduledTripRepository, cr *MockCaptainRepository) {
				tr.AddTrip(scheduledTrip("trip-1", "", time.Now()))
			},
			tripID:     "trip-1",
			wantReason: service.ReasonNoCaptain,
		},
		{
			name: "captain offline",
			setup: func(tr *MockScheduledTripRepository, cr *MockCaptainRepository) {
				cr.AddCaptain(&domain.Captain{ID: "captain-1", Status: domain.CaptainStatusInactive})
				tr.AddTrip(scheduledTrip("trip-1", "captain-1", time.Now()))
			},
			tripID:     "trip-1",
			wantReason: service.ReasonMustBeOnline,
		},
	}

	for _, tc := range testCases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			tripRepo := NewMockScheduledTripRepository()
			captainRepo := NewMockCaptainRepository()
			checkRepo := NewMockActivationCheckRepository()
			tc.setup(tripRepo, captainRepo)

			svc := newActivationService(tripRepo, captainRepo, checkRepo)
			result := svc.CheckActivation(context.Background(), tc.tripID, firstPointLat, firstPointLng)

			if result.CanActivate {
				t.Fatal("expected activation to be rejected")
			}
			if result.Reason != tc.wantReason {
				t.Errorf("expected reason %q, got %q", tc.wantReason, result.Reason)
			}
			// Guard failures never reach the audit log.
			if checkRepo.CountChecks(tc.tripID) != 0 {
				t.Errorf("expected no audit rows, got %d", checkRepo.CountChecks(tc.tripID))
			}
		})
	}
}

func TestActivation_RecentApproval_DetectedForDedup(t *testing.T) {
	t.Parallel()

	tripRepo := NewMockScheduledTripRepository()
	captainRepo := NewMockCaptainRepository()
	checkRepo := NewMockActivationCheckRepository()

	captainRepo.AddCaptain(&domain.Captain{ID: "captain-1", Status: domain.CaptainStatusActive})
	tripRepo.AddTrip(scheduledTrip("trip-1", "captain-1", time.Now().Add(10*time.Minute)))

	svc := newActivationService(tripRepo, captainRepo, checkRepo)

	recent, err := svc.WasRecentlyActivatable(context.Background(), "trip-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if recent {
		t.Error("expected no recent approval before any evaluation")
	}

	result := svc.CheckActivation(context.Background(), "trip-1", firstPointLat, firstPointLng)
	if !result.CanActivate {
		t.Fatalf("expected activation to be approved, got reason %q", result.Reason)
	}

	recent, err = svc.WasRecentlyActivatable(context.Background(), "trip-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !recent {
		t.Error("expected the approving audit row to be found")
	}
}
