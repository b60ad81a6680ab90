package tests

import (
	"context"
	"testing"
	"time"

	"fleet/internal/domain"
	"fleet/internal/service"
	"fleet/internal/worker"
)

// ──────────────────────────────────────────────
// OVERDUE SWEEP EDGE CASES
// ──────────────────────────────────────────────

func TestOverdueSweep_FailsUnstartedPastTrips(t *testing.T) {
	t.Parallel()

	tripRepo := NewMockScheduledTripRepository()
	progressRepo := NewMockTripProgressRepository()

	tripRepo.AddTrip(&domain.ScheduledTrip{
		ID:            "trip-overdue",
		Status:        domain.TripStatusScheduled,
		ScheduledTime: time.Now().Add(-30 * time.Minute),
		Price:         1000,
	})
	tripRepo.AddTrip(&domain.ScheduledTrip{
		ID:            "trip-future",
		Status:        domain.TripStatusScheduled,
		ScheduledTime: time.Now().Add(30 * time.Minute),
		Price:         1000,
	})

	w := worker.NewOverdueWorker(time.Minute, tripRepo, progressRepo)
	if err := w.Tick(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if got := tripRepo.GetTrip("trip-overdue").Status; got != domain.TripStatusFailed {
		t.Errorf("expected the overdue trip to be FAILED, got %s", got)
	}
	if got := tripRepo.GetTrip("trip-future").Status; got != domain.TripStatusScheduled {
		t.Errorf("expected the future trip to stay SCHEDULED, got %s", got)
	}
}

func TestOverdueSweep_SkipsTripsWithProgress(t *testing.T) {
	t.Parallel()

	tripRepo := NewMockScheduledTripRepository()
	progressRepo := NewMockTripProgressRepository()

	// Past its scheduled time, but a progress row says it actually started.
	tripRepo.AddTrip(&domain.ScheduledTrip{
		ID:            "trip-1",
		Status:        domain.TripStatusScheduled,
		ScheduledTime: time.Now().Add(-30 * time.Minute),
	})
	progressRepo.AddProgress(&domain.TripProgress{
		TripID:    "trip-1",
		StartedAt: time.Now().Add(-20 * time.Minute),
	})

	w := worker.NewOverdueWorker(time.Minute, tripRepo, progressRepo)
	if err := w.Tick(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if got := tripRepo.GetTrip("trip-1").Status; got != domain.TripStatusScheduled {
		t.Errorf("expected the started trip to be left alone, got %s", got)
	}
}

func TestOverdueSweep_IsStatusOnly(t *testing.T) {
	t.Parallel()

	tripRepo := NewMockScheduledTripRepository()
	progressRepo := NewMockTripProgressRepository()

	tripRepo.AddTrip(&domain.ScheduledTrip{
		ID:                "trip-1",
		Status:            domain.TripStatusScheduled,
		ScheduledTime:     time.Now().Add(-time.Hour),
		Price:             1000,
		AssignedCaptainID: "captain-1",
	})

	w := worker.NewOverdueWorker(time.Minute, tripRepo, progressRepo)
	if err := w.Tick(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// The sweep marks the trip FAILED but leaves settlement untouched.
	trip := tripRepo.GetTrip("trip-1")
	if trip.Status != domain.TripStatusFailed {
		t.Fatalf("expected FAILED, got %s", trip.Status)
	}
	if trip.FinancialRule != "" {
		t.Errorf("expected no financial rule, got %s", trip.FinancialRule)
	}
}

// ──────────────────────────────────────────────
// ACTIVATION WORKER EDGE CASES
// ──────────────────────────────────────────────

type activationWorkerFixture struct {
	tripRepo      *MockScheduledTripRepository
	captainRepo   *MockCaptainRepository
	checkRepo     *MockActivationCheckRepository
	locationStore *MockLocationStore
	cacheStore    *MockCacheStore
	pushSender    *MockPushSender
	worker        *worker.ActivationWorker
}

func newActivationWorkerFixture() *activationWorkerFixture {
	tripRepo := NewMockScheduledTripRepository()
	captainRepo := NewMockCaptainRepository()
	checkRepo := NewMockActivationCheckRepository()
	locationStore := NewMockLocationStore()
	cacheStore := NewMockCacheStore()
	pushSender := NewMockPushSender()

	activation := service.NewActivationService(tripRepo, captainRepo, checkRepo, testActivationConfig)
	notifier := service.NewNotificationService(pushSender)

	return &activationWorkerFixture{
		tripRepo:      tripRepo,
		captainRepo:   captainRepo,
		checkRepo:     checkRepo,
		locationStore: locationStore,
		cacheStore:    cacheStore,
		pushSender:    pushSender,
		worker: worker.NewActivationWorker(
			30*time.Second, tripRepo, captainRepo,
			locationStore, cacheStore, activation, notifier,
		),
	}
}

func TestActivationWorker_NotifiesStartableTrip(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	f := newActivationWorkerFixture()
	f.captainRepo.AddCaptain(&domain.Captain{
		ID:        "captain-1",
		Status:    domain.CaptainStatusActive,
		PushToken: "ExponentPushToken[test]",
	})
	f.tripRepo.AddTrip(scheduledTrip("trip-1", "captain-1", time.Now().Add(10*time.Minute)))
	f.locationStore.SetLocation("captain-1", firstPointLat, firstPointLng)

	if err := f.worker.Tick(ctx); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if f.pushSender.CountSent() != 1 {
		t.Fatalf("expected 1 push, got %d", f.pushSender.CountSent())
	}
	check := f.checkRepo.LastCheck("trip-1")
	if check == nil || !check.Activated {
		t.Error("expected an approving audit row")
	}
}

func TestActivationWorker_SecondTick_DoesNotRenotify(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	f := newActivationWorkerFixture()
	f.captainRepo.AddCaptain(&domain.Captain{
		ID:        "captain-1",
		Status:    domain.CaptainStatusActive,
		PushToken: "ExponentPushToken[test]",
	})
	f.tripRepo.AddTrip(scheduledTrip("trip-1", "captain-1", time.Now().Add(10*time.Minute)))
	f.locationStore.SetLocation("captain-1", firstPointLat, firstPointLng)

	if err := f.worker.Tick(ctx); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := f.worker.Tick(ctx); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// The approving audit row from the first tick suppresses the repeat.
	if f.pushSender.CountSent() != 1 {
		t.Errorf("expected 1 push across both ticks, got %d", f.pushSender.CountSent())
	}
	// Both evaluations are still audited.
	if f.checkRepo.CountChecks("trip-1") != 2 {
		t.Errorf("expected 2 audit rows, got %d", f.checkRepo.CountChecks("trip-1"))
	}
}

func TestActivationWorker_SkipsNonCandidates(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	f := newActivationWorkerFixture()

	// Offline captain: online status is required.
	f.captainRepo.AddCaptain(&domain.Captain{
		ID: "captain-offline", Status: domain.CaptainStatusInactive,
		PushToken: "ExponentPushToken[a]",
	})
	f.tripRepo.AddTrip(scheduledTrip("trip-offline", "captain-offline", time.Now().Add(10*time.Minute)))
	f.locationStore.SetLocation("captain-offline", firstPointLat, firstPointLng)

	// Online captain who has never pinged a location.
	f.captainRepo.AddCaptain(&domain.Captain{
		ID: "captain-silent", Status: domain.CaptainStatusActive,
		PushToken: "ExponentPushToken[b]",
	})
	f.tripRepo.AddTrip(scheduledTrip("trip-silent", "captain-silent", time.Now().Add(10*time.Minute)))

	// Unassigned trip.
	f.tripRepo.AddTrip(scheduledTrip("trip-unassigned", "", time.Now().Add(10*time.Minute)))

	if err := f.worker.Tick(ctx); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if f.pushSender.CountSent() != 0 {
		t.Errorf("expected no pushes, got %d", f.pushSender.CountSent())
	}
}

func TestActivationWorker_BackfillsCaptainCache(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	f := newActivationWorkerFixture()
	f.captainRepo.AddCaptain(&domain.Captain{
		ID:        "captain-1",
		Status:    domain.CaptainStatusActive,
		PushToken: "ExponentPushToken[test]",
	})
	f.tripRepo.AddTrip(scheduledTrip("trip-1", "captain-1", time.Now().Add(10*time.Minute)))
	f.locationStore.SetLocation("captain-1", firstPointLat, firstPointLng)

	if err := f.worker.Tick(ctx); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	cached, err := f.cacheStore.GetCaptain(ctx, "captain-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cached == nil {
		t.Fatal("expected the cache miss to be back-filled")
	}
	if cached.PushToken != "ExponentPushToken[test]" {
		t.Errorf("expected the cached profile to carry the push token, got %q", cached.PushToken)
	}
}
