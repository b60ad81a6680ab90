package repository

import (
	"context"

	"fleet/internal/domain"
)

// CaptainRepository defines the persistence operations for captains.
type CaptainRepository interface {
	// Create adds a new captain.
	Create(ctx context.Context, captain *domain.Captain) error

	// GetByID retrieves a captain by ID.
	GetByID(ctx context.Context, id string) (*domain.Captain, error)

	// GetByPhone retrieves a captain by phone number.
	GetByPhone(ctx context.Context, phone string) (*domain.Captain, error)

	// GetAll retrieves all captains.
	GetAll(ctx context.Context) ([]*domain.Captain, error)

	// UpdateStatus updates the online status of a captain.
	UpdateStatus(ctx context.Context, id string, status domain.CaptainStatus) error

	// ApplyBalanceDelta adjusts the captain's running totals by delta.
	// Called only from the finance engine's settlement transaction.
	ApplyBalanceDelta(ctx context.Context, id string, delta float64) error
}
