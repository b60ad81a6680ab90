package postgres

import (
	"context"
	"database/sql"

	"fleet/internal/repository"
)

// TxManager creates database-backed units of work.
type TxManager struct {
	db *sql.DB
}

// NewTxManager creates a new TxManager.
func NewTxManager(db *sql.DB) *TxManager {
	return &TxManager{db: db}
}

// Begin opens a transaction and wraps it as a unit of work.
func (m *TxManager) Begin(ctx context.Context) (repository.Tx, error) {
	tx, err := m.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	return &unitOfWork{tx: tx}, nil
}

// unitOfWork hands out transaction-scoped repositories.
type unitOfWork struct {
	tx *sql.Tx
}

func (u *unitOfWork) Trips() repository.ScheduledTripRepository {
	return NewScheduledTripRepositoryWithTx(u.tx)
}

func (u *unitOfWork) Progress() repository.TripProgressRepository {
	return NewTripProgressRepositoryWithTx(u.tx)
}

func (u *unitOfWork) Captains() repository.CaptainRepository {
	return NewCaptainRepositoryWithTx(u.tx)
}

func (u *unitOfWork) Ledgers() repository.LedgerRepository {
	return NewLedgerRepositoryWithTx(u.tx)
}

func (u *unitOfWork) EmergencyUsages() repository.EmergencyUsageRepository {
	return NewEmergencyUsageRepositoryWithTx(u.tx)
}

func (u *unitOfWork) Commit() error {
	return u.tx.Commit()
}

func (u *unitOfWork) Rollback() error {
	return u.tx.Rollback()
}

// Ensure TxManager implements repository.TxManager.
var _ repository.TxManager = (*TxManager)(nil)
