package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"

	"fleet/internal/domain"
	"fleet/internal/repository"
)

// FinanceResult describes the outcome of a settlement attempt.
type FinanceResult struct {
	TripID    string             `json:"trip_id"`
	CaptainID string             `json:"captain_id,omitempty"`
	Rule      domain.FinanceRule `json:"rule,omitempty"`
	NetAmount float64            `json:"net_amount"`
	// Delta is the balance adjustment actually applied this call. Zero when
	// the call was a no-op.
	Delta   float64 `json:"delta"`
	Applied bool    `json:"applied"`
	Skipped string  `json:"skipped,omitempty"`
}

// FinanceService applies the settlement rules for terminal trips. Settlement
// is deterministic from the trip's status and price, and idempotent:
// re-running it for an unchanged trip is a no-op, while a status change
// adjusts the captain's balance by the difference between the old and new
// net amounts.
type FinanceService struct {
	txm        repository.TxManager
	tripRepo   repository.ScheduledTripRepository
	ledgerRepo repository.LedgerRepository
}

// NewFinanceService creates a new FinanceService.
func NewFinanceService(
	txm repository.TxManager,
	tripRepo repository.ScheduledTripRepository,
	ledgerRepo repository.LedgerRepository,
) *FinanceService {
	return &FinanceService{
		txm:        txm,
		tripRepo:   tripRepo,
		ledgerRepo: ledgerRepo,
	}
}

// ApplyTripFinancials settles a trip according to its current status. The
// ledger row, the captain balance adjustment, and the trip's financial
// columns are written in a single transaction; a failure leaves no partial
// settlement and the stale ledger row makes the retry signal detectable.
func (s *FinanceService) ApplyTripFinancials(ctx context.Context, tripID string) (*FinanceResult, error) {
	trip, err := s.tripRepo.GetByID(ctx, tripID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrTripNotFound
		}
		return nil, err
	}

	result := &FinanceResult{
		TripID:    tripID,
		CaptainID: trip.AssignedCaptainID,
	}

	rule, net := domain.SettlementFor(trip.Status, trip.Price)
	if rule == "" {
		result.Skipped = "status does not settle"
		return result, nil
	}
	result.Rule = rule
	result.NetAmount = net

	if trip.AssignedCaptainID == "" {
		result.Skipped = "no captain assigned"
		return result, nil
	}

	existing, err := s.ledgerRepo.GetByTripID(ctx, tripID)
	if err != nil {
		return nil, err
	}
	if existing != nil && existing.Rule == rule && existing.NetAmount == net {
		result.Skipped = "already applied"
		return result, nil
	}

	delta := net
	if existing != nil {
		delta = net - existing.NetAmount
	}

	now := time.Now()
	finStatus := domain.FinancialStatusNone
	switch {
	case net > 0:
		finStatus = domain.FinancialStatusPaid
	case net < 0:
		finStatus = domain.FinancialStatusPenalized
	}

	ledger := &domain.TripLedger{
		ID:                  uuid.New().String(),
		TripID:              tripID,
		CaptainID:           trip.AssignedCaptainID,
		BaseAmount:          trip.Price,
		AdjustmentAmount:    net - trip.Price,
		NetAmount:           net,
		Rule:                rule,
		StatusAtCalculation: trip.Status,
		CalculatedAt:        now,
	}
	if existing != nil {
		ledger.ID = existing.ID
	}

	tx, err := s.txm.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin settlement transaction: %w", err)
	}
	defer tx.Rollback()

	if err := tx.Captains().ApplyBalanceDelta(ctx, trip.AssignedCaptainID, delta); err != nil {
		return nil, fmt.Errorf("failed to adjust captain balance: %w", err)
	}
	if err := tx.Ledgers().Upsert(ctx, ledger); err != nil {
		return nil, fmt.Errorf("failed to write ledger: %w", err)
	}
	if err := tx.Trips().UpdateFinancials(ctx, tripID, rule, net, finStatus, now); err != nil {
		return nil, fmt.Errorf("failed to update trip financials: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit settlement: %w", err)
	}

	result.Delta = delta
	result.Applied = true

	log.Printf("Settled trip %s: rule=%s net=%.2f delta=%.2f captain=%s",
		tripID, rule, net, delta, trip.AssignedCaptainID)

	return result, nil
}

// ApplyTripFailurePenalty settles a trip that has been marked FAILED. The
// trip must already be in FAILED status.
// TODO: call this from the overdue sweep once finance on auto-failed trips is
// approved by operations.
func (s *FinanceService) ApplyTripFailurePenalty(ctx context.Context, tripID string) (*FinanceResult, error) {
	trip, err := s.tripRepo.GetByID(ctx, tripID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrTripNotFound
		}
		return nil, err
	}
	if trip.Status != domain.TripStatusFailed {
		return nil, ErrStateConflict
	}

	return s.ApplyTripFinancials(ctx, tripID)
}
