package postgres

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"fleet/internal/domain"
	"fleet/internal/repository"
)

// ScheduledTripRepository is a PostgreSQL implementation of
// repository.ScheduledTripRepository.
type ScheduledTripRepository struct {
	q Querier
}

// NewScheduledTripRepository creates a new PostgreSQL trip repository.
func NewScheduledTripRepository(db *sql.DB) *ScheduledTripRepository {
	return &ScheduledTripRepository{q: db}
}

// NewScheduledTripRepositoryWithTx creates a trip repository using a transaction.
func NewScheduledTripRepositoryWithTx(tx *sql.Tx) *ScheduledTripRepository {
	return &ScheduledTripRepository{q: tx}
}

const tripColumns = `
	id, name, trip_date, scheduled_time, trip_type, status, price,
	assigned_captain_id, company_id, financial_rule, net_amount,
	financial_status, financial_applied_at, emergency_terminated_at,
	emergency_terminated_by, created_at
`

// Create persists a new trip together with its checkpoints.
func (r *ScheduledTripRepository) Create(ctx context.Context, trip *domain.ScheduledTrip) error {
	query := `
		INSERT INTO scheduled_trips (` + tripColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)
	`

	_, err := r.q.ExecContext(ctx, query,
		trip.ID,
		trip.Name,
		trip.TripDate,
		trip.ScheduledTime,
		trip.TripType,
		trip.Status,
		trip.Price,
		nullString(trip.AssignedCaptainID),
		trip.CompanyID,
		nullString(string(trip.FinancialRule)),
		trip.NetAmount,
		trip.FinancialStatus,
		nullTime(trip.FinancialAppliedAt),
		nullTime(trip.EmergencyTerminatedAt),
		nullString(trip.EmergencyTerminatedBy),
		trip.CreatedAt,
	)
	if err != nil {
		return err
	}

	return r.insertPoints(ctx, trip.ID, trip.Points)
}

// GetByID retrieves a trip with its checkpoints ordered by position.
func (r *ScheduledTripRepository) GetByID(ctx context.Context, id string) (*domain.ScheduledTrip, error) {
	query := `SELECT ` + tripColumns + ` FROM scheduled_trips WHERE id = $1`

	trip, err := scanTrip(r.q.QueryRowContext(ctx, query, id))
	if err != nil {
		return nil, err
	}

	points, err := r.pointsForTrip(ctx, id)
	if err != nil {
		return nil, err
	}
	trip.Points = points

	return trip, nil
}

// ListByStatus retrieves all trips in the given status, checkpoints included.
func (r *ScheduledTripRepository) ListByStatus(ctx context.Context, status domain.TripStatus) ([]*domain.ScheduledTrip, error) {
	query := `SELECT ` + tripColumns + ` FROM scheduled_trips WHERE status = $1 ORDER BY scheduled_time`
	return r.listTrips(ctx, query, status)
}

// ListByCaptainAndStatus retrieves a captain's trips in the given status.
func (r *ScheduledTripRepository) ListByCaptainAndStatus(ctx context.Context, captainID string, status domain.TripStatus) ([]*domain.ScheduledTrip, error) {
	query := `
		SELECT ` + tripColumns + ` FROM scheduled_trips
		WHERE assigned_captain_id = $1 AND status = $2
		ORDER BY scheduled_time
	`
	return r.listTrips(ctx, query, captainID, status)
}

// UpdateStatusFrom transitions a trip's status only if it currently has the
// expected status.
func (r *ScheduledTripRepository) UpdateStatusFrom(ctx context.Context, id string, from, to domain.TripStatus) error {
	query := `UPDATE scheduled_trips SET status = $1 WHERE id = $2 AND status = $3`

	result, err := r.q.ExecContext(ctx, query, to, id, from)
	if err != nil {
		return err
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return err
	}

	if rowsAffected == 0 {
		return repository.ErrStateConflict
	}

	return nil
}

// MarkEmergencyEnded transitions from ACTIVE to the given emergency status
// and records who ended the trip and when, in one guarded write.
func (r *ScheduledTripRepository) MarkEmergencyEnded(ctx context.Context, id string, to domain.TripStatus, at time.Time, by string) error {
	query := `
		UPDATE scheduled_trips
		SET status = $1, emergency_terminated_at = $2, emergency_terminated_by = $3
		WHERE id = $4 AND status = $5
	`

	result, err := r.q.ExecContext(ctx, query, to, at, by, id, domain.TripStatusActive)
	if err != nil {
		return err
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return err
	}

	if rowsAffected == 0 {
		return repository.ErrStateConflict
	}

	return nil
}

// UpdateDetails replaces the admin-editable fields.
func (r *ScheduledTripRepository) UpdateDetails(ctx context.Context, trip *domain.ScheduledTrip) error {
	query := `
		UPDATE scheduled_trips
		SET name = $1, trip_date = $2, scheduled_time = $3, trip_type = $4,
		    price = $5, assigned_captain_id = $6, company_id = $7
		WHERE id = $8
	`

	result, err := r.q.ExecContext(ctx, query,
		trip.Name,
		trip.TripDate,
		trip.ScheduledTime,
		trip.TripType,
		trip.Price,
		nullString(trip.AssignedCaptainID),
		trip.CompanyID,
		trip.ID,
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

// ReplacePoints deletes and recreates a trip's checkpoints.
func (r *ScheduledTripRepository) ReplacePoints(ctx context.Context, tripID string, points []*domain.TripPoint) error {
	if _, err := r.q.ExecContext(ctx, `DELETE FROM trip_points WHERE trip_id = $1`, tripID); err != nil {
		return err
	}
	return r.insertPoints(ctx, tripID, points)
}

// MarkPointReached sets a checkpoint's reached time if it has not been set
// before; a repeat call leaves the first timestamp untouched.
func (r *ScheduledTripRepository) MarkPointReached(ctx context.Context, pointID string, at time.Time) error {
	query := `UPDATE trip_points SET reached_at = $1 WHERE id = $2 AND reached_at IS NULL`

	_, err := r.q.ExecContext(ctx, query, at, pointID)
	return err
}

// UpdateFinancials records the applied settlement on the trip row.
func (r *ScheduledTripRepository) UpdateFinancials(ctx context.Context, id string, rule domain.FinanceRule, net float64, status domain.FinancialStatus, appliedAt time.Time) error {
	query := `
		UPDATE scheduled_trips
		SET financial_rule = $1, net_amount = $2, financial_status = $3, financial_applied_at = $4
		WHERE id = $5
	`

	result, err := r.q.ExecContext(ctx, query, string(rule), net, status, appliedAt, id)
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

// Delete removes a trip; trip_points, trip_progress and activation checks
// cascade via foreign keys.
func (r *ScheduledTripRepository) Delete(ctx context.Context, id string) error {
	result, err := r.q.ExecContext(ctx, `DELETE FROM scheduled_trips WHERE id = $1`, id)
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

func (r *ScheduledTripRepository) listTrips(ctx context.Context, query string, args ...any) ([]*domain.ScheduledTrip, error) {
	rows, err := r.q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var trips []*domain.ScheduledTrip
	for rows.Next() {
		trip, err := scanTrip(rows)
		if err != nil {
			return nil, err
		}
		trips = append(trips, trip)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for _, trip := range trips {
		points, err := r.pointsForTrip(ctx, trip.ID)
		if err != nil {
			return nil, err
		}
		trip.Points = points
	}

	return trips, nil
}

func (r *ScheduledTripRepository) insertPoints(ctx context.Context, tripID string, points []*domain.TripPoint) error {
	query := `
		INSERT INTO trip_points (id, trip_id, name, latitude, longitude, position, is_final_point, expected_time, reached_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`

	for _, p := range points {
		_, err := r.q.ExecContext(ctx, query,
			p.ID,
			tripID,
			p.Name,
			p.Latitude,
			p.Longitude,
			p.Order,
			p.IsFinalPoint,
			nullTime(p.ExpectedTime),
			nullTime(p.ReachedAt),
		)
		if err != nil {
			return err
		}
	}

	return nil
}

func (r *ScheduledTripRepository) pointsForTrip(ctx context.Context, tripID string) ([]*domain.TripPoint, error) {
	query := `
		SELECT id, trip_id, name, latitude, longitude, position, is_final_point, expected_time, reached_at
		FROM trip_points WHERE trip_id = $1 ORDER BY position
	`

	rows, err := r.q.QueryContext(ctx, query, tripID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var points []*domain.TripPoint
	for rows.Next() {
		var p domain.TripPoint
		var expectedTime, reachedAt sql.NullTime

		if err := rows.Scan(
			&p.ID,
			&p.TripID,
			&p.Name,
			&p.Latitude,
			&p.Longitude,
			&p.Order,
			&p.IsFinalPoint,
			&expectedTime,
			&reachedAt,
		); err != nil {
			return nil, err
		}

		if expectedTime.Valid {
			p.ExpectedTime = expectedTime.Time
		}
		if reachedAt.Valid {
			p.ReachedAt = reachedAt.Time
		}

		points = append(points, &p)
	}

	return points, rows.Err()
}

// rowScanner is satisfied by *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanTrip(row rowScanner) (*domain.ScheduledTrip, error) {
	var trip domain.ScheduledTrip
	var assignedCaptainID, financialRule, emergencyBy sql.NullString
	var financialAppliedAt, emergencyAt sql.NullTime

	err := row.Scan(
		&trip.ID,
		&trip.Name,
		&trip.TripDate,
		&trip.ScheduledTime,
		&trip.TripType,
		&trip.Status,
		&trip.Price,
		&assignedCaptainID,
		&trip.CompanyID,
		&financialRule,
		&trip.NetAmount,
		&trip.FinancialStatus,
		&financialAppliedAt,
		&emergencyAt,
		&emergencyBy,
		&trip.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}

	if assignedCaptainID.Valid {
		trip.AssignedCaptainID = assignedCaptainID.String
	}
	if financialRule.Valid {
		trip.FinancialRule = domain.FinanceRule(financialRule.String)
	}
	if financialAppliedAt.Valid {
		trip.FinancialAppliedAt = financialAppliedAt.Time
	}
	if emergencyAt.Valid {
		trip.EmergencyTerminatedAt = emergencyAt.Time
	}
	if emergencyBy.Valid {
		trip.EmergencyTerminatedBy = emergencyBy.String
	}

	return &trip, nil
}

func nullTime(t time.Time) sql.NullTime {
	if t.IsZero() {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: t, Valid: true}
}

func nullString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}

// Ensure ScheduledTripRepository implements repository.ScheduledTripRepository.
var _ repository.ScheduledTripRepository = (*ScheduledTripRepository)(nil)
