package postgres

import (
	"context"
	"database/sql"
	"errors"

	"fleet/internal/domain"
	"fleet/internal/repository"
)

// CaptainRepository is a PostgreSQL implementation of repository.CaptainRepository.
type CaptainRepository struct {
	q Querier
}

// NewCaptainRepository creates a new PostgreSQL captain repository.
func NewCaptainRepository(db *sql.DB) *CaptainRepository {
	return &CaptainRepository{q: db}
}

// NewCaptainRepositoryWithTx creates a captain repository using a transaction.
func NewCaptainRepositoryWithTx(tx *sql.Tx) *CaptainRepository {
	return &CaptainRepository{q: tx}
}

// Create adds a new captain.
func (r *CaptainRepository) Create(ctx context.Context, captain *domain.Captain) error {
	query := `
		INSERT INTO captains (id, name, phone, status, push_token, total_earning, scheduled_trip_balance)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`
	_, err := r.q.ExecContext(ctx, query,
		captain.ID,
		captain.Name,
		captain.Phone,
		captain.Status,
		captain.PushToken,
		captain.TotalEarning,
		captain.ScheduledTripBalance,
	)
	return err
}

// GetByID retrieves a captain by ID.
func (r *CaptainRepository) GetByID(ctx context.Context, id string) (*domain.Captain, error) {
	query := `
		SELECT id, COALESCE(name, ''), COALESCE(phone, ''), status, COALESCE(push_token, ''), total_earning, scheduled_trip_balance
		FROM captains WHERE id = $1
	`
	return r.scanCaptain(r.q.QueryRowContext(ctx, query, id))
}

// GetByPhone retrieves a captain by phone number.
func (r *CaptainRepository) GetByPhone(ctx context.Context, phone string) (*domain.Captain, error) {
	query := `
		SELECT id, COALESCE(name, ''), COALESCE(phone, ''), status, COALESCE(push_token, ''), total_earning, scheduled_trip_balance
		FROM captains WHERE phone = $1
	`
	return r.scanCaptain(r.q.QueryRowContext(ctx, query, phone))
}

// GetAll retrieves all captains.
func (r *CaptainRepository) GetAll(ctx context.Context) ([]*domain.Captain, error) {
	query := `
		SELECT id, COALESCE(name, ''), COALESCE(phone, ''), status, COALESCE(push_token, ''), total_earning, scheduled_trip_balance
		FROM captains ORDER BY id
	`
	rows, err := r.q.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var captains []*domain.Captain
	for rows.Next() {
		var c domain.Captain
		if err := rows.Scan(&c.ID, &c.Name, &c.Phone, &c.Status, &c.PushToken, &c.TotalEarning, &c.ScheduledTripBalance); err != nil {
			return nil, err
		}
		captains = append(captains, &c)
	}
	return captains, rows.Err()
}

// UpdateStatus updates the online status of a captain.
func (r *CaptainRepository) UpdateStatus(ctx context.Context, id string, status domain.CaptainStatus) error {
	query := `UPDATE captains SET status = $1 WHERE id = $2`

	result, err := r.q.ExecContext(ctx, query, status, id)
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

// ApplyBalanceDelta adjusts the captain's running totals by delta.
func (r *CaptainRepository) ApplyBalanceDelta(ctx context.Context, id string, delta float64) error {
	query := `
		UPDATE captains
		SET total_earning = total_earning + $1,
		    scheduled_trip_balance = scheduled_trip_balance + $1
		WHERE id = $2
	`

	result, err := r.q.ExecContext(ctx, query, delta, id)
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

func (r *CaptainRepository) scanCaptain(row *sql.Row) (*domain.Captain, error) {
	var c domain.Captain
	err := row.Scan(&c.ID, &c.Name, &c.Phone, &c.Status, &c.PushToken, &c.TotalEarning, &c.ScheduledTripBalance)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}
	return &c, nil
}

// Ensure CaptainRepository implements repository.CaptainRepository.
var _ repository.CaptainRepository = (*CaptainRepository)(nil)
