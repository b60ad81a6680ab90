package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sort"
	"time"

	"github.com/google/uuid"

	"fleet/internal/domain"
	"fleet/internal/geo"
	fleetredis "fleet/internal/redis"
	"fleet/internal/repository"
)

// emergencyLockTTL bounds how long the per-captain-per-day lock is held if a
// termination call dies before releasing it.
const emergencyLockTTL = 10 * time.Second

// TripService owns the trip lifecycle: it validates checkpoint invariants,
// performs every status transition as a compare-and-swap on the expected
// prior status, and invokes settlement when a trip reaches a terminal state.
type TripService struct {
	txm          repository.TxManager
	tripRepo     repository.ScheduledTripRepository
	progressRepo repository.TripProgressRepository
	captainRepo  repository.CaptainRepository
	usageRepo    repository.EmergencyUsageRepository
	lockStore    fleetredis.LockStoreInterface
	activation   *ActivationService
	finance      *FinanceService
	notifier     *NotificationService
}

// NewTripService creates a new TripService.
func NewTripService(
	txm repository.TxManager,
	tripRepo repository.ScheduledTripRepository,
	progressRepo repository.TripProgressRepository,
	captainRepo repository.CaptainRepository,
	usageRepo repository.EmergencyUsageRepository,
	lockStore fleetredis.LockStoreInterface,
	activation *ActivationService,
	finance *FinanceService,
	notifier *NotificationService,
) *TripService {
	return &TripService{
		txm:          txm,
		tripRepo:     tripRepo,
		progressRepo: progressRepo,
		captainRepo:  captainRepo,
		usageRepo:    usageRepo,
		lockStore:    lockStore,
		activation:   activation,
		finance:      finance,
		notifier:     notifier,
	}
}

// PointInput describes one checkpoint in a create or update request. Order
// is positional: the first entry is checkpoint 0.
type PointInput struct {
	Name         string    `json:"name"`
	Latitude     float64   `json:"latitude"`
	Longitude    float64   `json:"longitude"`
	IsFinalPoint bool      `json:"is_final_point"`
	ExpectedTime time.Time `json:"expected_time,omitempty"`
}

// validatePoints enforces the checkpoint invariants: at least one point,
// exactly one final point, the final point last, and an expected time on
// every point of an arrival trip.
func validatePoints(tripType domain.TripType, points []PointInput) error {
	if len(points) == 0 {
		return ErrNoCheckpointsGiven
	}

	finals := 0
	for i, p := range points {
		if !geo.ValidCoordinates(p.Latitude, p.Longitude) {
			return ErrInvalidCoordinates
		}
		if p.IsFinalPoint {
			finals++
			if i != len(points)-1 {
				return ErrFinalPointNotLast
			}
		}
		if tripType == domain.TripTypeArrival && p.ExpectedTime.IsZero() {
			return ErrExpectedTimeRequired
		}
	}
	if finals != 1 {
		return ErrFinalPointCount
	}

	return nil
}

// buildPoints converts inputs to domain points with positional order.
func buildPoints(tripID string, points []PointInput) []*domain.TripPoint {
	built := make([]*domain.TripPoint, 0, len(points))
	for i, p := range points {
		built = append(built, &domain.TripPoint{
			ID:           uuid.New().String(),
			TripID:       tripID,
			Name:         p.Name,
			Latitude:     p.Latitude,
			Longitude:    p.Longitude,
			Order:        i,
			IsFinalPoint: p.IsFinalPoint,
			ExpectedTime: p.ExpectedTime,
		})
	}
	return built
}

// CreateTripRequest contains the parameters for creating a scheduled trip.
type CreateTripRequest struct {
	Name              string          `json:"name"`
	TripDate          time.Time       `json:"trip_date"`
	ScheduledTime     time.Time       `json:"scheduled_time"`
	TripType          domain.TripType `json:"trip_type"`
	Price             float64         `json:"price"`
	AssignedCaptainID string          `json:"assigned_captain_id"`
	CompanyID         string          `json:"company_id"`
	Points            []PointInput    `json:"points"`
}

// CreateTrip creates a new trip in SCHEDULED status.
func (s *TripService) CreateTrip(ctx context.Context, req CreateTripRequest) (*domain.ScheduledTrip, error) {
	if req.Price <= 0 {
		return nil, ErrInvalidPrice
	}
	if req.TripType != domain.TripTypeArrival && req.TripType != domain.TripTypeDeparture {
		req.TripType = domain.TripTypeArrival
	}
	if err := validatePoints(req.TripType, req.Points); err != nil {
		return nil, err
	}

	if req.AssignedCaptainID != "" {
		if _, err := s.captainRepo.GetByID(ctx, req.AssignedCaptainID); err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return nil, ErrCaptainNotFound
			}
			return nil, err
		}
	}

	trip := &domain.ScheduledTrip{
		ID:                uuid.New().String(),
		Name:              req.Name,
		TripDate:          req.TripDate,
		ScheduledTime:     req.ScheduledTime,
		TripType:          req.TripType,
		Status:            domain.TripStatusScheduled,
		Price:             req.Price,
		AssignedCaptainID: req.AssignedCaptainID,
		CompanyID:         req.CompanyID,
		FinancialStatus:   domain.FinancialStatusNone,
		CreatedAt:         time.Now(),
	}
	trip.Points = buildPoints(trip.ID, req.Points)

	if err := s.tripRepo.Create(ctx, trip); err != nil {
		return nil, err
	}

	return trip, nil
}

// GetTrip retrieves a trip with its checkpoints.
func (s *TripService) GetTrip(ctx context.Context, id string) (*domain.ScheduledTrip, error) {
	trip, err := s.tripRepo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrTripNotFound
		}
		return nil, err
	}
	return trip, nil
}

// GetTripProgress retrieves the progress row for a trip, nil when the trip
// has not started.
func (s *TripService) GetTripProgress(ctx context.Context, tripID string) (*domain.TripProgress, error) {
	return s.progressRepo.GetByTripID(ctx, tripID)
}

// ListTripsByStatus retrieves all trips in one status.
func (s *TripService) ListTripsByStatus(ctx context.Context, status domain.TripStatus) ([]*domain.ScheduledTrip, error) {
	return s.tripRepo.ListByStatus(ctx, status)
}

// StartTripRequest contains the parameters for starting a trip.
type StartTripRequest struct {
	TripID    string  `json:"-"`
	CaptainID string  `json:"captain_id"`
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// StartTripResponse contains the result of starting a trip.
type StartTripResponse struct {
	Trip       *domain.ScheduledTrip `json:"trip"`
	Progress   *domain.TripProgress  `json:"progress"`
	Activation *ActivationResult     `json:"activation"`
}

// StartTrip performs the SCHEDULED to ACTIVE transition. The activation
// conditions are re-evaluated at call time against the reported location; a
// stale client-side "can start" flag is never trusted.
func (s *TripService) StartTrip(ctx context.Context, req StartTripRequest) (*StartTripResponse, error) {
	if !geo.ValidCoordinates(req.Latitude, req.Longitude) {
		return nil, ErrInvalidCoordinates
	}

	trip, err := s.tripRepo.GetByID(ctx, req.TripID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrTripNotFound
		}
		return nil, err
	}

	if trip.Status != domain.TripStatusScheduled {
		return nil, ErrTripNotScheduled
	}
	if trip.AssignedCaptainID == "" || trip.AssignedCaptainID != req.CaptainID {
		return nil, ErrNotAssignedCaptain
	}

	captain, err := s.captainRepo.GetByID(ctx, req.CaptainID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrCaptainNotFound
		}
		return nil, err
	}
	if !captain.IsOnline() {
		return nil, ErrCaptainNotActive
	}

	check := s.activation.CheckActivation(ctx, req.TripID, req.Latitude, req.Longitude)
	if !check.CanActivate {
		return nil, fmt.Errorf("%w: %s", ErrActivationRejected, check.Reason)
	}

	now := time.Now()
	progress := &domain.TripProgress{
		TripID:             trip.ID,
		CurrentPointIndex:  0,
		StartedAt:          now,
		LastLocationUpdate: now,
		LastLatitude:       req.Latitude,
		LastLongitude:      req.Longitude,
	}

	tx, err := s.txm.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	if err := tx.Trips().UpdateStatusFrom(ctx, trip.ID, domain.TripStatusScheduled, domain.TripStatusActive); err != nil {
		if errors.Is(err, repository.ErrStateConflict) {
			return nil, ErrStateConflict
		}
		return nil, err
	}
	if err := tx.Progress().Upsert(ctx, progress); err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}

	trip.Status = domain.TripStatusActive

	return &StartTripResponse{
		Trip:       trip,
		Progress:   progress,
		Activation: check,
	}, nil
}

// CheckpointReachedRequest contains the parameters for a progress update.
type CheckpointReachedRequest struct {
	TripID          string  `json:"trip_id"`
	CaptainID       string  `json:"captain_id"`
	CheckpointIndex int     `json:"checkpoint_index"`
	Latitude        float64 `json:"latitude,omitempty"`
	Longitude       float64 `json:"longitude,omitempty"`
}

// CheckpointReachedResponse contains the result of a progress update.
type CheckpointReachedResponse struct {
	Point     *domain.TripPoint `json:"point"`
	Timing    *TimingResult     `json:"timing,omitempty"`
	Completed bool              `json:"completed"`
	Finance   *FinanceResult    `json:"finance,omitempty"`
}

// CheckpointReached records the captain arriving at a checkpoint. Reaching
// the final checkpoint completes the trip and triggers settlement.
func (s *TripService) CheckpointReached(ctx context.Context, req CheckpointReachedRequest) (*CheckpointReachedResponse, error) {
	// The position is optional on a progress update; zero-zero means absent.
	if (req.Latitude != 0 || req.Longitude != 0) && !geo.ValidCoordinates(req.Latitude, req.Longitude) {
		return nil, ErrInvalidCoordinates
	}

	trip, err := s.tripRepo.GetByID(ctx, req.TripID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrTripNotFound
		}
		return nil, err
	}

	if trip.Status != domain.TripStatusActive {
		return nil, ErrTripNotActive
	}
	if trip.AssignedCaptainID != req.CaptainID {
		return nil, ErrNotAssignedCaptain
	}

	point := pointAtIndex(trip, req.CheckpointIndex)
	if point == nil {
		return nil, ErrPointNotFound
	}
	if !point.ReachedAt.IsZero() {
		return nil, ErrPointAlreadyDone
	}

	progress, err := s.progressRepo.GetByTripID(ctx, req.TripID)
	if err != nil {
		return nil, err
	}
	if progress == nil {
		// An active trip always has a progress row; recreate defensively.
		progress = &domain.TripProgress{TripID: trip.ID, StartedAt: time.Now()}
	}

	now := time.Now()

	var timing *TimingResult
	if trip.TripType == domain.TripTypeArrival && !point.ExpectedTime.IsZero() {
		timing = CalculateTimingDifference(point.ExpectedTime, now)
		if timing != nil && timing.Status != TimingOnTime {
			log.Printf("Trip %s checkpoint %d reached %s by %d minute(s)",
				trip.ID, req.CheckpointIndex, timing.Status, timing.Minutes)
		}
	}

	progress.CurrentPointIndex = req.CheckpointIndex
	if !point.IsFinalPoint {
		progress.CurrentPointIndex = req.CheckpointIndex + 1
	}
	if point.IsFinalPoint {
		progress.CompletedAt = now
	}
	if req.Latitude != 0 || req.Longitude != 0 {
		progress.LastLatitude = req.Latitude
		progress.LastLongitude = req.Longitude
		progress.LastLocationUpdate = now
	}

	tx, err := s.txm.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	if err := tx.Trips().MarkPointReached(ctx, point.ID, now); err != nil {
		return nil, err
	}
	if err := tx.Progress().Update(ctx, progress); err != nil {
		return nil, err
	}
	if point.IsFinalPoint {
		if err := tx.Trips().UpdateStatusFrom(ctx, trip.ID, domain.TripStatusActive, domain.TripStatusCompleted); err != nil {
			if errors.Is(err, repository.ErrStateConflict) {
				return nil, ErrStateConflict
			}
			return nil, err
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}

	point.ReachedAt = now
	resp := &CheckpointReachedResponse{
		Point:     point,
		Timing:    timing,
		Completed: point.IsFinalPoint,
	}

	if point.IsFinalPoint {
		resp.Finance = s.settle(ctx, trip)
	}

	return resp, nil
}

// pointAtIndex returns the checkpoint with the given positional order.
func pointAtIndex(trip *domain.ScheduledTrip, index int) *domain.TripPoint {
	if index < 0 || index >= len(trip.Points) {
		return nil
	}
	points := make([]*domain.TripPoint, len(trip.Points))
	copy(points, trip.Points)
	sort.Slice(points, func(i, j int) bool { return points[i].Order < points[j].Order })
	return points[index]
}

// settle runs settlement after a terminal transition has committed. A
// settlement failure is logged, not propagated: the missing ledger row is
// the signal for an idempotent retry.
func (s *TripService) settle(ctx context.Context, trip *domain.ScheduledTrip) *FinanceResult {
	result, err := s.finance.ApplyTripFinancials(ctx, trip.ID)
	if err != nil {
		log.Printf("ERROR: settlement failed for trip %s: %v", trip.ID, err)
		return nil
	}

	if result.Applied && trip.AssignedCaptainID != "" && result.Rule == domain.RuleCompletedFull {
		captain, err := s.captainRepo.GetByID(ctx, trip.AssignedCaptainID)
		if err == nil {
			if err := s.notifier.NotifyTripCompleted(ctx, captain, trip, result.NetAmount); err != nil {
				log.Printf("ERROR: completion notification failed for trip %s: %v", trip.ID, err)
			}
		}
	}

	return result
}

// EmergencyTerminateRequest contains the parameters for a captain-initiated
// emergency termination.
type EmergencyTerminateRequest struct {
	TripID    string `json:"-"`
	CaptainID string `json:"captain_id"`
}

// EmergencyTerminateResponse contains the result of an emergency termination.
type EmergencyTerminateResponse struct {
	Trip    *domain.ScheduledTrip `json:"trip"`
	Finance *FinanceResult        `json:"finance,omitempty"`
}

// EmergencyTerminate abandons an active trip at the captain's request. Each
// captain may do this once per calendar day; the quota check and the usage
// insert are serialized by a per-captain-per-day lock so concurrent calls
// cannot both pass the check.
func (s *TripService) EmergencyTerminate(ctx context.Context, req EmergencyTerminateRequest) (*EmergencyTerminateResponse, error) {
	trip, err := s.tripRepo.GetByID(ctx, req.TripID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrTripNotFound
		}
		return nil, err
	}

	if trip.Status != domain.TripStatusActive {
		return nil, ErrTripNotActive
	}
	if trip.AssignedCaptainID != req.CaptainID {
		return nil, ErrNotAssignedCaptain
	}

	now := time.Now()
	dayStart := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	day := dayStart.Format("2006-01-02")

	acquired, err := s.lockStore.AcquireEmergencyLock(ctx, req.CaptainID, day, emergencyLockTTL)
	if err != nil {
		return nil, err
	}
	if !acquired {
		return nil, ErrEmergencyInProgress
	}
	defer func() {
		if err := s.lockStore.ReleaseEmergencyLock(ctx, req.CaptainID, day); err != nil {
			log.Printf("ERROR: failed to release emergency lock for captain %s: %v", req.CaptainID, err)
		}
	}()

	used, err := s.usageRepo.UsedBetween(ctx, req.CaptainID, dayStart, dayStart.AddDate(0, 0, 1))
	if err != nil {
		return nil, err
	}
	if used {
		return nil, ErrEmergencyQuotaUsed
	}

	if err := s.endEmergency(ctx, trip, domain.TripStatusEmergencyEnded, now, req.CaptainID, true); err != nil {
		return nil, err
	}

	trip.Status = domain.TripStatusEmergencyEnded
	trip.EmergencyTerminatedAt = now
	trip.EmergencyTerminatedBy = req.CaptainID

	return &EmergencyTerminateResponse{
		Trip:    trip,
		Finance: s.settle(ctx, trip),
	}, nil
}

// AdminEmergencyTerminate is the admin/system variant of emergency
// termination. It does not consume the captain's daily quota but settles the
// same way.
func (s *TripService) AdminEmergencyTerminate(ctx context.Context, tripID, adminID string) (*EmergencyTerminateResponse, error) {
	trip, err := s.tripRepo.GetByID(ctx, tripID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrTripNotFound
		}
		return nil, err
	}

	if trip.Status != domain.TripStatusActive {
		return nil, ErrTripNotActive
	}

	now := time.Now()
	if err := s.endEmergency(ctx, trip, domain.TripStatusEmergencyTerminated, now, adminID, false); err != nil {
		return nil, err
	}

	trip.Status = domain.TripStatusEmergencyTerminated
	trip.EmergencyTerminatedAt = now
	trip.EmergencyTerminatedBy = adminID

	return &EmergencyTerminateResponse{
		Trip:    trip,
		Finance: s.settle(ctx, trip),
	}, nil
}

// endEmergency performs the guarded emergency transition, closes the
// progress row, and optionally records quota usage, all in one transaction.
func (s *TripService) endEmergency(ctx context.Context, trip *domain.ScheduledTrip, to domain.TripStatus, at time.Time, by string, recordUsage bool) error {
	tx, err := s.txm.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if err := tx.Trips().MarkEmergencyEnded(ctx, trip.ID, to, at, by); err != nil {
		if errors.Is(err, repository.ErrStateConflict) {
			return ErrStateConflict
		}
		return err
	}

	progress, err := s.progressRepo.GetByTripID(ctx, trip.ID)
	if err != nil {
		return err
	}
	if progress != nil {
		progress.CompletedAt = at
		if err := tx.Progress().Update(ctx, progress); err != nil {
			return err
		}
	}

	if recordUsage {
		usage := &domain.EmergencyUsage{
			ID:        uuid.New().String(),
			CaptainID: trip.AssignedCaptainID,
			TripID:    trip.ID,
			UsedAt:    at,
		}
		if err := tx.EmergencyUsages().Create(ctx, usage); err != nil {
			return err
		}
	}

	return tx.Commit()
}

// ForceClose terminates an active trip at an admin's request. The captain
// is debited the price minus a flat allowance, not a multiple of the price.
func (s *TripService) ForceClose(ctx context.Context, tripID string) (*EmergencyTerminateResponse, error) {
	trip, err := s.tripRepo.GetByID(ctx, tripID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrTripNotFound
		}
		return nil, err
	}

	if trip.Status != domain.TripStatusActive {
		return nil, ErrTripNotActive
	}
	if trip.AssignedCaptainID == "" {
		return nil, ErrNoAssignedCaptain
	}

	if err := s.tripRepo.UpdateStatusFrom(ctx, tripID, domain.TripStatusActive, domain.TripStatusForceClosed); err != nil {
		if errors.Is(err, repository.ErrStateConflict) {
			return nil, ErrStateConflict
		}
		return nil, err
	}

	trip.Status = domain.TripStatusForceClosed
	resp := &EmergencyTerminateResponse{
		Trip:    trip,
		Finance: s.settle(ctx, trip),
	}

	captain, err := s.captainRepo.GetByID(ctx, trip.AssignedCaptainID)
	if err == nil {
		if err := s.notifier.NotifyTripForceClosed(ctx, captain, trip); err != nil {
			log.Printf("ERROR: force-close notification failed for trip %s: %v", trip.ID, err)
		}
	}

	return resp, nil
}

// CancelTrip cancels a trip that has not started. No settlement applies.
func (s *TripService) CancelTrip(ctx context.Context, tripID string) error {
	err := s.tripRepo.UpdateStatusFrom(ctx, tripID, domain.TripStatusScheduled, domain.TripStatusCancelled)
	if errors.Is(err, repository.ErrStateConflict) {
		return ErrTripNotScheduled
	}
	return err
}

// UpdateTripRequest contains the parameters for an admin trip update. The
// whole trip is replaced, checkpoints included.
type UpdateTripRequest struct {
	TripID            string          `json:"-"`
	Name              string          `json:"name"`
	TripDate          time.Time       `json:"trip_date"`
	ScheduledTime     time.Time       `json:"scheduled_time"`
	TripType          domain.TripType `json:"trip_type"`
	Price             float64         `json:"price"`
	AssignedCaptainID string          `json:"assigned_captain_id"`
	CompanyID         string          `json:"company_id"`
	Points            []PointInput    `json:"points"`
}

// UpdateTrip replaces the admin-editable fields and checkpoints of a trip.
// Blocked while the trip is running or emergency-ended; the price may only
// change while the trip is still scheduled.
func (s *TripService) UpdateTrip(ctx context.Context, req UpdateTripRequest) (*domain.ScheduledTrip, error) {
	trip, err := s.tripRepo.GetByID(ctx, req.TripID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrTripNotFound
		}
		return nil, err
	}

	switch trip.Status {
	case domain.TripStatusActive, domain.TripStatusEmergencyEnded, domain.TripStatusEmergencyTerminated:
		return nil, ErrUpdateBlocked
	}
	if trip.Status != domain.TripStatusScheduled && req.Price != trip.Price {
		return nil, ErrPriceImmutable
	}
	if req.Price <= 0 {
		return nil, ErrInvalidPrice
	}

	tripType := req.TripType
	if tripType == "" {
		tripType = trip.TripType
	}
	if err := validatePoints(tripType, req.Points); err != nil {
		return nil, err
	}

	if req.AssignedCaptainID != "" && req.AssignedCaptainID != trip.AssignedCaptainID {
		if _, err := s.captainRepo.GetByID(ctx, req.AssignedCaptainID); err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return nil, ErrCaptainNotFound
			}
			return nil, err
		}
	}

	trip.Name = req.Name
	trip.TripDate = req.TripDate
	trip.ScheduledTime = req.ScheduledTime
	trip.TripType = tripType
	trip.Price = req.Price
	trip.AssignedCaptainID = req.AssignedCaptainID
	trip.CompanyID = req.CompanyID
	trip.Points = buildPoints(trip.ID, req.Points)

	tx, err := s.txm.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	if err := tx.Trips().UpdateDetails(ctx, trip); err != nil {
		return nil, err
	}
	if err := tx.Trips().ReplacePoints(ctx, trip.ID, trip.Points); err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}

	return trip, nil
}

// DeleteTrip removes a trip and everything it owns. Only allowed before the
// trip ran, while no ledger exists.
func (s *TripService) DeleteTrip(ctx context.Context, tripID string) error {
	trip, err := s.tripRepo.GetByID(ctx, tripID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrTripNotFound
		}
		return err
	}

	if trip.Status != domain.TripStatusScheduled && trip.Status != domain.TripStatusFailed {
		return ErrCannotDelete
	}

	return s.tripRepo.Delete(ctx, tripID)
}
