package service

import (
	"context"
	"errors"
	"log"
	"time"

	"github.com/google/uuid"

	"fleet/internal/domain"
	"fleet/internal/geo"
	fleetredis "fleet/internal/redis"
	"fleet/internal/repository"
)

// CaptainService handles captain registration, presence, and the location
// ping path that drives progress tracking and activation checks.
type CaptainService struct {
	captainRepo   repository.CaptainRepository
	tripRepo      repository.ScheduledTripRepository
	progressRepo  repository.TripProgressRepository
	ledgerRepo    repository.LedgerRepository
	locationStore fleetredis.LocationStoreInterface
	cacheStore    fleetredis.CacheStoreInterface
	activation    *ActivationService
	notifier      *NotificationService
}

// NewCaptainService creates a new CaptainService.
func NewCaptainService(
	captainRepo repository.CaptainRepository,
	tripRepo repository.ScheduledTripRepository,
	progressRepo repository.TripProgressRepository,
	ledgerRepo repository.LedgerRepository,
	locationStore fleetredis.LocationStoreInterface,
	cacheStore fleetredis.CacheStoreInterface,
	activation *ActivationService,
	notifier *NotificationService,
) *CaptainService {
	return &CaptainService{
		captainRepo:   captainRepo,
		tripRepo:      tripRepo,
		progressRepo:  progressRepo,
		ledgerRepo:    ledgerRepo,
		locationStore: locationStore,
		cacheStore:    cacheStore,
		activation:    activation,
		notifier:      notifier,
	}
}

// RegisterCaptainRequest contains the parameters for registering a captain.
type RegisterCaptainRequest struct {
	Name      string `json:"name"`
	Phone     string `json:"phone"`
	PushToken string `json:"push_token,omitempty"`
}

// RegisterCaptain creates a new captain. Phone numbers are unique; the push
// token, when given, must have the accepted format.
func (s *CaptainService) RegisterCaptain(ctx context.Context, req RegisterCaptainRequest) (*domain.Captain, error) {
	if req.PushToken != "" && !ValidPushToken(req.PushToken) {
		return nil, ErrInvalidPushToken
	}

	existing, err := s.captainRepo.GetByPhone(ctx, req.Phone)
	if err != nil && !errors.Is(err, repository.ErrNotFound) {
		return nil, err
	}
	if existing != nil {
		return nil, ErrPhoneAlreadyExists
	}

	captain := &domain.Captain{
		ID:        uuid.New().String(),
		Name:      req.Name,
		Phone:     req.Phone,
		Status:    domain.CaptainStatusActive,
		PushToken: req.PushToken,
	}

	if err := s.captainRepo.Create(ctx, captain); err != nil {
		return nil, err
	}

	return captain, nil
}

// GetCaptain retrieves a captain with fresh balance figures.
func (s *CaptainService) GetCaptain(ctx context.Context, id string) (*domain.Captain, error) {
	captain, err := s.captainRepo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrCaptainNotFound
		}
		return nil, err
	}
	return captain, nil
}

// ListCaptains retrieves all captains.
func (s *CaptainService) ListCaptains(ctx context.Context) ([]*domain.Captain, error) {
	return s.captainRepo.GetAll(ctx)
}

// SetStatus changes a captain's online status. Going inactive drops the
// captain from the live location index.
func (s *CaptainService) SetStatus(ctx context.Context, id string, status domain.CaptainStatus) error {
	switch status {
	case domain.CaptainStatusActive, domain.CaptainStatusInactive, domain.CaptainStatusSuspended:
	default:
		return errors.New("invalid captain status")
	}

	if err := s.captainRepo.UpdateStatus(ctx, id, status); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrCaptainNotFound
		}
		return err
	}

	if err := s.cacheStore.InvalidateCaptain(ctx, id); err != nil {
		log.Printf("ERROR: failed to invalidate captain cache for %s: %v", id, err)
	}

	if status != domain.CaptainStatusActive {
		if err := s.locationStore.RemoveLocation(ctx, id); err != nil {
			log.Printf("ERROR: failed to remove location for captain %s: %v", id, err)
		}
	}

	return nil
}

// GetLedger retrieves a captain's settlement history, newest first.
func (s *CaptainService) GetLedger(ctx context.Context, captainID string) ([]*domain.TripLedger, error) {
	if _, err := s.captainRepo.GetByID(ctx, captainID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrCaptainNotFound
		}
		return nil, err
	}
	return s.ledgerRepo.ListByCaptainID(ctx, captainID)
}

// UpdateLocationRequest contains one location ping from the mobile app.
type UpdateLocationRequest struct {
	CaptainID string  `json:"-"`
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// UpdateLocationResponse summarizes what one ping touched.
type UpdateLocationResponse struct {
	ActiveTripsUpdated int                 `json:"active_trips_updated"`
	Activations        []*ActivationResult `json:"activations,omitempty"`
}

// UpdateLocation processes a captain location ping: stores the position,
// refreshes the progress rows of the captain's active trips, and re-runs the
// activation evaluator for their scheduled trips. This is the synchronous
// counterpart of the activation worker, triggered by a live ping.
func (s *CaptainService) UpdateLocation(ctx context.Context, req UpdateLocationRequest) (*UpdateLocationResponse, error) {
	if !geo.ValidCoordinates(req.Latitude, req.Longitude) {
		return nil, ErrInvalidCoordinates
	}

	captain, err := s.cachedCaptain(ctx, req.CaptainID)
	if err != nil {
		return nil, err
	}

	if err := s.locationStore.UpdateLocation(ctx, req.CaptainID, req.Latitude, req.Longitude); err != nil {
		return nil, err
	}

	resp := &UpdateLocationResponse{}

	active, err := s.tripRepo.ListByCaptainAndStatus(ctx, req.CaptainID, domain.TripStatusActive)
	if err != nil {
		return nil, err
	}
	now := time.Now()
	for _, trip := range active {
		if err := s.progressRepo.UpdateLastLocation(ctx, trip.ID, req.Latitude, req.Longitude, now); err != nil {
			log.Printf("ERROR: failed to update progress location for trip %s: %v", trip.ID, err)
			continue
		}
		resp.ActiveTripsUpdated++
	}

	scheduled, err := s.tripRepo.ListByCaptainAndStatus(ctx, req.CaptainID, domain.TripStatusScheduled)
	if err != nil {
		return nil, err
	}
	for _, trip := range scheduled {
		// The dedup check runs before the evaluation writes a fresh audit
		// row, otherwise an approving evaluation would suppress its own
		// notification.
		recent, err := s.activation.WasRecentlyActivatable(ctx, trip.ID)
		if err != nil {
			log.Printf("ERROR: notification dedup check failed for trip %s: %v", trip.ID, err)
			recent = true
		}

		result := s.activation.CheckActivation(ctx, trip.ID, req.Latitude, req.Longitude)
		resp.Activations = append(resp.Activations, result)

		if result.CanActivate && !recent {
			if err := s.notifier.NotifyTripReady(ctx, captain, trip); err != nil {
				log.Printf("ERROR: trip-ready notification failed for trip %s: %v", trip.ID, err)
			}
		}
	}

	return resp, nil
}

// cachedCaptain resolves a captain through the short-lived Redis cache; the
// ping path is too hot to hit the database for an unchanged profile.
func (s *CaptainService) cachedCaptain(ctx context.Context, id string) (*domain.Captain, error) {
	cached, err := s.cacheStore.GetCaptain(ctx, id)
	if err != nil {
		log.Printf("ERROR: captain cache read failed for %s: %v", id, err)
	}
	if cached != nil {
		return &domain.Captain{
			ID:        cached.ID,
			Name:      cached.Name,
			Phone:     cached.Phone,
			Status:    domain.CaptainStatus(cached.Status),
			PushToken: cached.PushToken,
		}, nil
	}

	captain, err := s.captainRepo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrCaptainNotFound
		}
		return nil, err
	}

	if err := s.cacheStore.SetCaptain(ctx, &fleetredis.CachedCaptain{
		ID:        captain.ID,
		Name:      captain.Name,
		Phone:     captain.Phone,
		Status:    string(captain.Status),
		PushToken: captain.PushToken,
	}); err != nil {
		log.Printf("ERROR: captain cache write failed for %s: %v", id, err)
	}

	return captain, nil
}
