package tests

import (
	"context"
	"testing"
	"time"

	"fleet/internal/domain"
	"fleet/internal/service"
)

// ──────────────────────────────────────────────
// CAPTAIN REGISTRATION AND PRESENCE
// ──────────────────────────────────────────────

type captainFixture struct {
	captainRepo   *MockCaptainRepository
	tripRepo      *MockScheduledTripRepository
	progressRepo  *MockTripProgressRepository
	ledgerRepo    *MockLedgerRepository
	checkRepo     *MockActivationCheckRepository
	locationStore *MockLocationStore
	cacheStore    *MockCacheStore
	pushSender    *MockPushSender
	svc           *service.CaptainService
}

func newCaptainFixture() *captainFixture {
	captainRepo := NewMockCaptainRepository()
	tripRepo := NewMockScheduledTripRepository()
	progressRepo := NewMockTripProgressRepository()
	ledgerRepo := NewMockLedgerRepository()
	checkRepo := NewMockActivationCheckRepository()
	locationStore := NewMockLocationStore()
	cacheStore := NewMockCacheStore()
	pushSender := NewMockPushSender()

	activation := service.NewActivationService(tripRepo, captainRepo, checkRepo, testActivationConfig)
	notifier := service.NewNotificationService(pushSender)

	return &captainFixture{
		captainRepo:   captainRepo,
		tripRepo:      tripRepo,
		progressRepo:  progressRepo,
		ledgerRepo:    ledgerRepo,
		checkRepo:     checkRepo,
		locationStore: locationStore,
		cacheStore:    cacheStore,
		pushSender:    pushSender,
		svc: service.NewCaptainService(
			captainRepo, tripRepo, progressRepo, ledgerRepo,
			locationStore, cacheStore, activation, notifier,
		),
	}
}

func TestRegisterCaptain_DuplicatePhone_Rejected(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	f := newCaptainFixture()

	first, err := f.svc.RegisterCaptain(ctx, service.RegisterCaptainRequest{
		Name: "First", Phone: "0500000001",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if first.Status != domain.CaptainStatusActive {
		t.Errorf("expected new captains to start ACTIVE, got %s", first.Status)
	}

	_, err = f.svc.RegisterCaptain(ctx, service.RegisterCaptainRequest{
		Name: "Second", Phone: "0500000001",
	})
	if err != service.ErrPhoneAlreadyExists {
		t.Errorf("expected ErrPhoneAlreadyExists, got %v", err)
	}
}

func TestRegisterCaptain_InvalidPushToken_Rejected(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	f := newCaptainFixture()

	_, err := f.svc.RegisterCaptain(ctx, service.RegisterCaptainRequest{
		Name: "Captain", Phone: "0500000002", PushToken: "not-a-token",
	})
	if err != service.ErrInvalidPushToken {
		t.Errorf("expected ErrInvalidPushToken, got %v", err)
	}
}

func TestSetStatus_GoingInactive_DropsLocation(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	f := newCaptainFixture()
	f.captainRepo.AddCaptain(&domain.Captain{ID: "captain-1", Status: domain.CaptainStatusActive})
	f.locationStore.SetLocation("captain-1", firstPointLat, firstPointLng)

	if err := f.svc.SetStatus(ctx, "captain-1", domain.CaptainStatusInactive); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if got := f.captainRepo.GetCaptain("captain-1").Status; got != domain.CaptainStatusInactive {
		t.Errorf("expected INACTIVE, got %s", got)
	}
	if f.locationStore.HasLocation("captain-1") {
		t.Error("expected the location to be removed from the live index")
	}
}

func TestSetStatus_InvalidValue_Rejected(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	f := newCaptainFixture()
	f.captainRepo.AddCaptain(&domain.Captain{ID: "captain-1", Status: domain.CaptainStatusActive})

	if err := f.svc.SetStatus(ctx, "captain-1", domain.CaptainStatus("SLEEPING")); err == nil {
		t.Error("expected an error for an unknown status")
	}
}

// ──────────────────────────────────────────────
// LOCATION PING PATH
// ──────────────────────────────────────────────

func TestUpdateLocation_RefreshesActiveTripProgress(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	f := newCaptainFixture()
	f.captainRepo.AddCaptain(&domain.Captain{ID: "captain-1", Status: domain.CaptainStatusActive})

	trip := scheduledTrip("trip-1", "captain-1", time.Now())
	trip.Status = domain.TripStatusActive
	f.tripRepo.AddTrip(trip)
	f.progressRepo.AddProgress(&domain.TripProgress{
		TripID:    "trip-1",
		StartedAt: time.Now().Add(-10 * time.Minute),
	})

	resp, err := f.svc.UpdateLocation(ctx, service.UpdateLocationRequest{
		CaptainID: "captain-1",
		Latitude:  firstPointLat + 0.001,
		Longitude: firstPointLng + 0.001,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if resp.ActiveTripsUpdated != 1 {
		t.Errorf("expected 1 active trip updated, got %d", resp.ActiveTripsUpdated)
	}
	progress := f.progressRepo.GetProgress("trip-1")
	if progress.LastLatitude == 0 || progress.LastLocationUpdate.IsZero() {
		t.Error("expected the progress row to carry the latest ping")
	}
	if !f.locationStore.HasLocation("captain-1") {
		t.Error("expected the live location index to be updated")
	}
}

func TestUpdateLocation_EvaluatesScheduledTripsAndNotifiesOnce(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	f := newCaptainFixture()
	f.captainRepo.AddCaptain(&domain.Captain{
		ID: "captain-1", Status: domain.CaptainStatusActive,
		PushToken: "ExponentPushToken[test]",
	})
	f.tripRepo.AddTrip(scheduledTrip("trip-1", "captain-1", time.Now().Add(10*time.Minute)))

	req := service.UpdateLocationRequest{
		CaptainID: "captain-1",
		Latitude:  firstPointLat,
		Longitude: firstPointLng,
	}

	resp, err := f.svc.UpdateLocation(ctx, req)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(resp.Activations) != 1 {
		t.Fatalf("expected 1 activation result, got %d", len(resp.Activations))
	}
	if !resp.Activations[0].CanActivate {
		t.Fatalf("expected the trip to be startable, got reason %q", resp.Activations[0].Reason)
	}
	if f.pushSender.CountSent() != 1 {
		t.Fatalf("expected 1 trip-ready push, got %d", f.pushSender.CountSent())
	}

	// A second ping inside the dedup window evaluates again but stays quiet.
	if _, err := f.svc.UpdateLocation(ctx, req); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if f.pushSender.CountSent() != 1 {
		t.Errorf("expected no repeat push, got %d total", f.pushSender.CountSent())
	}
}

func TestUpdateLocation_OutOfRangeCoordinates_Rejected(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	f := newCaptainFixture()
	f.captainRepo.AddCaptain(&domain.Captain{ID: "captain-1", Status: domain.CaptainStatusActive})

	testCases := []struct {
		name     string
		lat, lng float64
	}{
		{"latitude above range", 100, firstPointLng},
		{"latitude below range", -91, firstPointLng},
		{"longitude above range", firstPointLat, 181},
		{"longitude below range", firstPointLat, -200},
	}

	for _, tc := range testCases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			_, err := f.svc.UpdateLocation(ctx, service.UpdateLocationRequest{
				CaptainID: "captain-1", Latitude: tc.lat, Longitude: tc.lng,
			})
			if err != service.ErrInvalidCoordinates {
				t.Errorf("expected ErrInvalidCoordinates, got %v", err)
			}
		})
	}

	// Nothing out of range reaches the live index.
	if f.locationStore.HasLocation("captain-1") {
		t.Error("expected no location to be stored for rejected pings")
	}
}

func TestUpdateLocation_PopulatesCaptainCache(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	f := newCaptainFixture()
	f.captainRepo.AddCaptain(&domain.Captain{ID: "captain-1", Status: domain.CaptainStatusActive})

	if _, err := f.svc.UpdateLocation(ctx, service.UpdateLocationRequest{
		CaptainID: "captain-1", Latitude: firstPointLat, Longitude: firstPointLng,
	}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	cached, err := f.cacheStore.GetCaptain(ctx, "captain-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cached == nil {
		t.Fatal("expected the first ping to back-fill the cache")
	}

	// The second ping is served from the cache.
	before := f.cacheStore.GetCallCount
	if _, err := f.svc.UpdateLocation(ctx, service.UpdateLocationRequest{
		CaptainID: "captain-1", Latitude: firstPointLat, Longitude: firstPointLng,
	}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if f.cacheStore.GetCallCount <= before {
		t.Error("expected the cache to be consulted on the second ping")
	}
}

func TestGetLedger_RequiresExistingCaptain(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	f := newCaptainFixture()

	if _, err := f.svc.GetLedger(ctx, "missing"); err != service.ErrCaptainNotFound {
		t.Errorf("expected ErrCaptainNotFound, got %v", err)
	}
}
