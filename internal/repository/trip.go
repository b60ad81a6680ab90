package repository

import (
	"context"
	"time"

	"fleet/internal/domain"
)

// ScheduledTripRepository defines the persistence operations for scheduled
// trips and their checkpoints.
type ScheduledTripRepository interface {
	// Create persists a new trip together with its checkpoints.
	Create(ctx context.Context, trip *domain.ScheduledTrip) error

	// GetByID retrieves a trip with its checkpoints ordered by position.
	GetByID(ctx context.Context, id string) (*domain.ScheduledTrip, error)

	// ListByStatus retrieves all trips in the given status, checkpoints
	// included.
	ListByStatus(ctx context.Context, status domain.TripStatus) ([]*domain.ScheduledTrip, error)

	// ListByCaptainAndStatus retrieves a captain's trips in the given status.
	ListByCaptainAndStatus(ctx context.Context, captainID string, status domain.TripStatus) ([]*domain.ScheduledTrip, error)

	// UpdateStatusFrom transitions a trip's status only if it currently has
	// the expected status. Returns ErrStateConflict when the guard fails.
	UpdateStatusFrom(ctx context.Context, id string, from, to domain.TripStatus) error

	// MarkEmergencyEnded transitions from ACTIVE to the given emergency
	// status and records who ended the trip and when, in one guarded write.
	MarkEmergencyEnded(ctx context.Context, id string, to domain.TripStatus, at time.Time, by string) error

	// UpdateDetails replaces the admin-editable fields (name, dates, captain,
	// company, price).
	UpdateDetails(ctx context.Context, trip *domain.ScheduledTrip) error

	// ReplacePoints deletes and recreates a trip's checkpoints.
	ReplacePoints(ctx context.Context, tripID string, points []*domain.TripPoint) error

	// MarkPointReached sets a checkpoint's reached time if it has not been
	// set before; a repeat call leaves the first timestamp untouched.
	MarkPointReached(ctx context.Context, pointID string, at time.Time) error

	// UpdateFinancials records the applied settlement on the trip row.
	UpdateFinancials(ctx context.Context, id string, rule domain.FinanceRule, net float64, status domain.FinancialStatus, appliedAt time.Time) error

	// Delete removes a trip and cascades to its checkpoints, progress and
	// activation checks.
	Delete(ctx context.Context, id string) error
}

// TripProgressRepository defines the persistence operations for trip
// progress rows.
type TripProgressRepository interface {
	// Upsert creates or replaces the progress row for a trip.
	Upsert(ctx context.Context, progress *domain.TripProgress) error

	// GetByTripID retrieves the progress for a trip.
	// Returns nil if no progress exists.
	GetByTripID(ctx context.Context, tripID string) (*domain.TripProgress, error)

	// Update replaces the mutable progress fields.
	Update(ctx context.Context, progress *domain.TripProgress) error

	// UpdateLastLocation records the captain's latest ping for a trip.
	UpdateLastLocation(ctx context.Context, tripID string, lat, lng float64, at time.Time) error
}
