package postgres

import (
	"context"
	"database/sql"
	"errors"

	"fleet/internal/domain"
	"fleet/internal/repository"
)

// LedgerRepository is a PostgreSQL implementation of repository.LedgerRepository.
type LedgerRepository struct {
	q Querier
}

// NewLedgerRepository creates a new PostgreSQL ledger repository.
func NewLedgerRepository(db *sql.DB) *LedgerRepository {
	return &LedgerRepository{q: db}
}

// NewLedgerRepositoryWithTx creates a ledger repository using a transaction.
func NewLedgerRepositoryWithTx(tx *sql.Tx) *LedgerRepository {
	return &LedgerRepository{q: tx}
}

// GetByTripID retrieves the ledger row for a trip.
// Returns nil if the trip has not been settled yet.
func (r *LedgerRepository) GetByTripID(ctx context.Context, tripID string) (*domain.TripLedger, error) {
	query := `
		SELECT id, trip_id, captain_id, base_amount, adjustment_amount, net_amount, rule, status_at_calculation, calculated_at
		FROM scheduled_trip_ledgers WHERE trip_id = $1
	`

	var ledger domain.TripLedger
	err := r.q.QueryRowContext(ctx, query, tripID).Scan(
		&ledger.ID,
		&ledger.TripID,
		&ledger.CaptainID,
		&ledger.BaseAmount,
		&ledger.AdjustmentAmount,
		&ledger.NetAmount,
		&ledger.Rule,
		&ledger.StatusAtCalculation,
		&ledger.CalculatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}

	return &ledger, nil
}

// Upsert creates the ledger row for a trip or replaces the existing one.
// The trip_id unique constraint guarantees at most one row per trip.
func (r *LedgerRepository) Upsert(ctx context.Context, ledger *domain.TripLedger) error {
	query := `
		INSERT INTO scheduled_trip_ledgers (id, trip_id, captain_id, base_amount, adjustment_amount, net_amount, rule, status_at_calculation, calculated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (trip_id) DO UPDATE
		SET captain_id = EXCLUDED.captain_id,
		    base_amount = EXCLUDED.base_amount,
		    adjustment_amount = EXCLUDED.adjustment_amount,
		    net_amount = EXCLUDED.net_amount,
		    rule = EXCLUDED.rule,
		    status_at_calculation = EXCLUDED.status_at_calculation,
		    calculated_at = EXCLUDED.calculated_at
	`

	_, err := r.q.ExecContext(ctx, query,
		ledger.ID,
		ledger.TripID,
		ledger.CaptainID,
		ledger.BaseAmount,
		ledger.AdjustmentAmount,
		ledger.NetAmount,
		ledger.Rule,
		ledger.StatusAtCalculation,
		ledger.CalculatedAt,
	)
	return err
}

// ListByCaptainID retrieves a captain's settlement history, newest first.
func (r *LedgerRepository) ListByCaptainID(ctx context.Context, captainID string) ([]*domain.TripLedger, error) {
	query := `
		SELECT id, trip_id, captain_id, base_amount, adjustment_amount, net_amount, rule, status_at_calculation, calculated_at
		FROM scheduled_trip_ledgers WHERE captain_id = $1 ORDER BY calculated_at DESC
	`

	rows, err := r.q.QueryContext(ctx, query, captainID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ledgers []*domain.TripLedger
	for rows.Next() {
		var ledger domain.TripLedger
		if err := rows.Scan(
			&ledger.ID,
			&ledger.TripID,
			&ledger.CaptainID,
			&ledger.BaseAmount,
			&ledger.AdjustmentAmount,
			&ledger.NetAmount,
			&ledger.Rule,
			&ledger.StatusAtCalculation,
			&ledger.CalculatedAt,
		); err != nil {
			return nil, err
		}
		ledgers = append(ledgers, &ledger)
	}

	return ledgers, rows.Err()
}

// Ensure LedgerRepository implements repository.LedgerRepository.
var _ repository.LedgerRepository = (*LedgerRepository)(nil)
