package repository

import (
	"context"
	"time"

	"fleet/internal/domain"
)

// LedgerRepository defines the persistence operations for trip settlement
// ledgers.
type LedgerRepository interface {
	// GetByTripID retrieves the ledger row for a trip.
	// Returns nil if the trip has not been settled yet.
	GetByTripID(ctx context.Context, tripID string) (*domain.TripLedger, error)

	// Upsert creates the ledger row for a trip or replaces the existing one.
	Upsert(ctx context.Context, ledger *domain.TripLedger) error

	// ListByCaptainID retrieves a captain's settlement history, newest first.
	ListByCaptainID(ctx context.Context, captainID string) ([]*domain.TripLedger, error)
}

// ActivationCheckRepository defines the persistence operations for the
// append-only activation audit log.
type ActivationCheckRepository interface {
	// Create appends one audit row.
	Create(ctx context.Context, check *domain.ActivationCheck) error

	// HasActivatedSince reports whether an audit row with activated=true
	// exists for the trip at or after the given instant.
	HasActivatedSince(ctx context.Context, tripID string, since time.Time) (bool, error)

	// ListByTripID retrieves a trip's audit rows, newest first.
	ListByTripID(ctx context.Context, tripID string) ([]*domain.ActivationCheck, error)
}

// EmergencyUsageRepository defines the persistence operations for emergency
// termination usage records.
type EmergencyUsageRepository interface {
	// Create appends one usage row.
	Create(ctx context.Context, usage *domain.EmergencyUsage) error

	// UsedBetween reports whether the captain has a usage row in [from, to).
	UsedBetween(ctx context.Context, captainID string, from, to time.Time) (bool, error)
}
