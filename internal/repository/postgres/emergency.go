package postgres

import (
	"context"
	"database/sql"
	"time"

	"fleet/internal/domain"
	"fleet/internal/repository"
)

// EmergencyUsageRepository is a PostgreSQL implementation of
// repository.EmergencyUsageRepository.
type EmergencyUsageRepository struct {
	q Querier
}

// NewEmergencyUsageRepository creates a new PostgreSQL emergency usage repository.
func NewEmergencyUsageRepository(db *sql.DB) *EmergencyUsageRepository {
	return &EmergencyUsageRepository{q: db}
}

// NewEmergencyUsageRepositoryWithTx creates an emergency usage repository using a transaction.
func NewEmergencyUsageRepositoryWithTx(tx *sql.Tx) *EmergencyUsageRepository {
	return &EmergencyUsageRepository{q: tx}
}

// Create appends one usage row.
func (r *EmergencyUsageRepository) Create(ctx context.Context, usage *domain.EmergencyUsage) error {
	query := `
		INSERT INTO emergency_usages (id, captain_id, trip_id, used_at)
		VALUES ($1, $2, $3, $4)
	`

	_, err := r.q.ExecContext(ctx, query, usage.ID, usage.CaptainID, usage.TripID, usage.UsedAt)
	return err
}

// UsedBetween reports whether the captain has a usage row in [from, to).
func (r *EmergencyUsageRepository) UsedBetween(ctx context.Context, captainID string, from, to time.Time) (bool, error) {
	query := `
		SELECT EXISTS (
			SELECT 1 FROM emergency_usages
			WHERE captain_id = $1 AND used_at >= $2 AND used_at < $3
		)
	`

	var exists bool
	if err := r.q.QueryRowContext(ctx, query, captainID, from, to).Scan(&exists); err != nil {
		return false, err
	}
	return exists, nil
}

// Ensure EmergencyUsageRepository implements repository.EmergencyUsageRepository.
var _ repository.EmergencyUsageRepository = (*EmergencyUsageRepository)(nil)
