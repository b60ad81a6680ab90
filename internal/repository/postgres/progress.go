package postgres

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"fleet/internal/domain"
	"fleet/internal/repository"
)

// TripProgressRepository is a PostgreSQL implementation of
// repository.TripProgressRepository.
type TripProgressRepository struct {
	q Querier
}

// NewTripProgressRepository creates a new PostgreSQL progress repository.
func NewTripProgressRepository(db *sql.DB) *TripProgressRepository {
	return &TripProgressRepository{q: db}
}

// NewTripProgressRepositoryWithTx creates a progress repository using a transaction.
func NewTripProgressRepositoryWithTx(tx *sql.Tx) *TripProgressRepository {
	return &TripProgressRepository{q: tx}
}

// Upsert creates or replaces the progress row for a trip.
func (r *TripProgressRepository) Upsert(ctx context.Context, progress *domain.TripProgress) error {
	query := `
		INSERT INTO trip_progress (trip_id, current_point_index, started_at, completed_at, last_location_update, last_latitude, last_longitude)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (trip_id) DO UPDATE
		SET current_point_index = EXCLUDED.current_point_index,
		    started_at = EXCLUDED.started_at,
		    completed_at = EXCLUDED.completed_at,
		    last_location_update = EXCLUDED.last_location_update,
		    last_latitude = EXCLUDED.last_latitude,
		    last_longitude = EXCLUDED.last_longitude
	`

	_, err := r.q.ExecContext(ctx, query,
		progress.TripID,
		progress.CurrentPointIndex,
		progress.StartedAt,
		nullTime(progress.CompletedAt),
		nullTime(progress.LastLocationUpdate),
		progress.LastLatitude,
		progress.LastLongitude,
	)
	return err
}

// GetByTripID retrieves the progress for a trip.
// Returns nil if no progress exists.
func (r *TripProgressRepository) GetByTripID(ctx context.Context, tripID string) (*domain.TripProgress, error) {
	query := `
		SELECT trip_id, current_point_index, started_at, completed_at, last_location_update, last_latitude, last_longitude
		FROM trip_progress WHERE trip_id = $1
	`

	var progress domain.TripProgress
	var completedAt, lastUpdate sql.NullTime

	err := r.q.QueryRowContext(ctx, query, tripID).Scan(
		&progress.TripID,
		&progress.CurrentPointIndex,
		&progress.StartedAt,
		&completedAt,
		&lastUpdate,
		&progress.LastLatitude,
		&progress.LastLongitude,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}

	if completedAt.Valid {
		progress.CompletedAt = completedAt.Time
	}
	if lastUpdate.Valid {
		progress.LastLocationUpdate = lastUpdate.Time
	}

	return &progress, nil
}

// Update replaces the mutable progress fields.
func (r *TripProgressRepository) Update(ctx context.Context, progress *domain.TripProgress) error {
	query := `
		UPDATE trip_progress
		SET current_point_index = $1, completed_at = $2, last_location_update = $3, last_latitude = $4, last_longitude = $5
		WHERE trip_id = $6
	`

	result, err := r.q.ExecContext(ctx, query,
		progress.CurrentPointIndex,
		nullTime(progress.CompletedAt),
		nullTime(progress.LastLocationUpdate),
		progress.LastLatitude,
		progress.LastLongitude,
		progress.TripID,
	)
	if err != nil {
		return err
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return err
	}

	if rowsAffected == 0 {
		return repository.ErrNotFound
	}

	return nil
}

// UpdateLastLocation records the captain's latest ping for a trip.
func (r *TripProgressRepository) UpdateLastLocation(ctx context.Context, tripID string, lat, lng float64, at time.Time) error {
	query := `
		UPDATE trip_progress
		SET last_latitude = $1, last_longitude = $2, last_location_update = $3
		WHERE trip_id = $4
	`

	_, err := r.q.ExecContext(ctx, query, lat, lng, at, tripID)
	return err
}

// Ensure TripProgressRepository implements repository.TripProgressRepository.
var _ repository.TripProgressRepository = (*TripProgressRepository)(nil)
