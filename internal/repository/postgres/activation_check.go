package postgres

import (
	"context"
	"database/sql"
	"time"

	"fleet/internal/domain"
	"fleet/internal/repository"
)

// ActivationCheckRepository is a PostgreSQL implementation of
// repository.ActivationCheckRepository. Rows are append-only.
type ActivationCheckRepository struct {
	q Querier
}

// NewActivationCheckRepository creates a new PostgreSQL activation check repository.
func NewActivationCheckRepository(db *sql.DB) *ActivationCheckRepository {
	return &ActivationCheckRepository{q: db}
}

// Create appends one audit row.
func (r *ActivationCheckRepository) Create(ctx context.Context, check *domain.ActivationCheck) error {
	query := `
		INSERT INTO trip_activation_checks (id, trip_id, captain_id, was_within_proximity, was_on_time, activated, captain_latitude, captain_longitude, distance_to_first_point, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`

	_, err := r.q.ExecContext(ctx, query,
		check.ID,
		check.TripID,
		check.CaptainID,
		check.WasWithinProximity,
		check.WasOnTime,
		check.Activated,
		check.CaptainLatitude,
		check.CaptainLongitude,
		check.DistanceToFirstPoint,
		check.CreatedAt,
	)
	return err
}

// HasActivatedSince reports whether an audit row with activated=true exists
// for the trip at or after the given instant.
func (r *ActivationCheckRepository) HasActivatedSince(ctx context.Context, tripID string, since time.Time) (bool, error) {
	query := `
		SELECT EXISTS (
			SELECT 1 FROM trip_activation_checks
			WHERE trip_id = $1 AND activated = TRUE AND created_at >= $2
		)
	`

	var exists bool
	if err := r.q.QueryRowContext(ctx, query, tripID, since).Scan(&exists); err != nil {
		return false, err
	}
	return exists, nil
}

// ListByTripID retrieves a trip's audit rows, newest first.
func (r *ActivationCheckRepository) ListByTripID(ctx context.Context, tripID string) ([]*domain.ActivationCheck, error) {
	query := `
		SELECT id, trip_id, captain_id, was_within_proximity, was_on_time, activated, captain_latitude, captain_longitude, distance_to_first_point, created_at
		FROM trip_activation_checks WHERE trip_id = $1 ORDER BY created_at DESC
	`

	rows, err := r.q.QueryContext(ctx, query, tripID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var checks []*domain.ActivationCheck
	for rows.Next() {
		var check domain.ActivationCheck
		if err := rows.Scan(
			&check.ID,
			&check.TripID,
			&check.CaptainID,
			&check.WasWithinProximity,
			&check.WasOnTime,
			&check.Activated,
			&check.CaptainLatitude,
			&check.CaptainLongitude,
			&check.DistanceToFirstPoint,
			&check.CreatedAt,
		); err != nil {
			return nil, err
		}
		checks = append(checks, &check)
	}

	return checks, rows.Err()
}

// Ensure ActivationCheckRepository implements repository.ActivationCheckRepository.
var _ repository.ActivationCheckRepository = (*ActivationCheckRepository)(nil)
