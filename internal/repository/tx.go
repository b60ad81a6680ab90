package repository

import "context"

// TxManager begins units of work that span multiple repositories.
type TxManager interface {
	Begin(ctx context.Context) (Tx, error)
}

// Tx is one unit of work. Repositories obtained from it share a single
// database transaction; nothing is visible to other readers until Commit.
// Rollback after Commit is a no-op, so it is safe to defer.
type Tx interface {
	Trips() ScheduledTripRepository
	Progress() TripProgressRepository
	Captains() CaptainRepository
	Ledgers() LedgerRepository
	EmergencyUsages() EmergencyUsageRepository

	Commit() error
	Rollback() error
}
