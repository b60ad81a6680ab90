package tests

import (
	"context"
	"errors"
	"testing"

	"fleet/internal/domain"
	"fleet/internal/service"
)

// ──────────────────────────────────────────────
// SETTLEMENT RULE TABLE
// ──────────────────────────────────────────────

func TestSettlementRules(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		name     string
		status   domain.TripStatus
		price    float64
		wantRule domain.FinanceRule
		wantNet  float64
	}{
		{"completed pays the full price", domain.TripStatusCompleted, 1000, domain.RuleCompletedFull, 1000},
		{"failed deducts double", domain.TripStatusFailed, 200, domain.RuleFailedDouble, -400},
		{"captain emergency deducts the price", domain.TripStatusEmergencyEnded, 300, domain.RuleEmergencyDeduction, -300},
		{"admin emergency deducts the price", domain.TripStatusEmergencyTerminated, 300, domain.RuleEmergencyDeduction, -300},
		{"force close forgives the allowance", domain.TripStatusForceClosed, 500, domain.RuleForceClosedDeduction, -400},
		{"scheduled does not settle", domain.TripStatusScheduled, 1000, "", 0},
		{"active does not settle", domain.TripStatusActive, 1000, "", 0},
		{"cancelled does not settle", domain.TripStatusCancelled, 1000, "", 0},
	}

	for _, tc := range testCases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			rule, net := domain.SettlementFor(tc.status, tc.price)
			if rule != tc.wantRule {
				t.Errorf("expected rule %q, got %q", tc.wantRule, rule)
			}
			if net != tc.wantNet {
				t.Errorf("expected net %.2f, got %.2f", tc.wantNet, net)
			}
		})
	}
}

// ──────────────────────────────────────────────
// SETTLEMENT ENGINE EDGE CASES
// ──────────────────────────────────────────────

type financeFixture struct {
	tripRepo    *MockScheduledTripRepository
	captainRepo *MockCaptainRepository
	ledgerRepo  *MockLedgerRepository
	txm         *MockTxManager
	svc         *service.FinanceService
}

func newFinanceFixture() *financeFixture {
	tripRepo := NewMockScheduledTripRepository()
	progressRepo := NewMockTripProgressRepository()
	captainRepo := NewMockCaptainRepository()
	ledgerRepo := NewMockLedgerRepository()
	usageRepo := NewMockEmergencyUsageRepository()
	txm := NewMockTxManager(tripRepo, progressRepo, captainRepo, ledgerRepo, usageRepo)

	return &financeFixture{
		tripRepo:    tripRepo,
		captainRepo: captainRepo,
		ledgerRepo:  ledgerRepo,
		txm:         txm,
		svc:         service.NewFinanceService(txm, tripRepo, ledgerRepo),
	}
}

func (f *financeFixture) addTerminalTrip(id string, status domain.TripStatus, price float64, captainID string) {
	if captainID != "" && f.captainRepo.GetCaptain(captainID) == nil {
		f.captainRepo.AddCaptain(&domain.Captain{ID: captainID, Status: domain.CaptainStatusActive})
	}
	f.tripRepo.AddTrip(&domain.ScheduledTrip{
		ID:                id,
		Status:            status,
		Price:             price,
		AssignedCaptainID: captainID,
	})
}

func TestSettlement_CompletedTrip_CreditsCaptain(t *testing.T) {
	t.Parallel()

	f := newFinanceFixture()
	f.addTerminalTrip("trip-1", domain.TripStatusCompleted, 1000, "captain-1")

	result, err := f.svc.ApplyTripFinancials(context.Background(), "trip-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if !result.Applied {
		t.Fatalf("expected settlement to apply, skipped: %q", result.Skipped)
	}
	if result.Delta != 1000 {
		t.Errorf("expected delta 1000, got %.2f", result.Delta)
	}

	captain := f.captainRepo.GetCaptain("captain-1")
	if captain.TotalEarning != 1000 {
		t.Errorf("expected balance 1000, got %.2f", captain.TotalEarning)
	}

	ledger := f.ledgerRepo.GetLedger("trip-1")
	if ledger == nil {
		t.Fatal("expected a ledger row")
	}
	if ledger.Rule != domain.RuleCompletedFull || ledger.NetAmount != 1000 {
		t.Errorf("expected COMPLETED_FULL/1000, got %s/%.2f", ledger.Rule, ledger.NetAmount)
	}

	trip := f.tripRepo.GetTrip("trip-1")
	if trip.FinancialStatus != domain.FinancialStatusPaid {
		t.Errorf("expected financial status PAID, got %s", trip.FinancialStatus)
	}
}

func TestSettlement_Rerun_IsIdempotent(t *testing.T) {
	t.Parallel()

	f := newFinanceFixture()
	f.addTerminalTrip("trip-1", domain.TripStatusCompleted, 1000, "captain-1")

	if _, err := f.svc.ApplyTripFinancials(context.Background(), "trip-1"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	second, err := f.svc.ApplyTripFinancials(context.Background(), "trip-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if second.Applied {
		t.Error("expected the second run to be a no-op")
	}
	if second.Skipped != "already applied" {
		t.Errorf("expected skip reason %q, got %q", "already applied", second.Skipped)
	}

	// One ledger row, one credit.
	if f.ledgerRepo.CountLedgers() != 1 {
		t.Errorf("expected 1 ledger row, got %d", f.ledgerRepo.CountLedgers())
	}
	captain := f.captainRepo.GetCaptain("captain-1")
	if captain.TotalEarning != 1000 {
		t.Errorf("expected balance 1000 after rerun, got %.2f", captain.TotalEarning)
	}
}

func TestSettlement_RuleChange_AdjustsByDelta(t *testing.T) {
	t.Parallel()

	f := newFinanceFixture()
	f.addTerminalTrip("trip-1", domain.TripStatusCompleted, 1000, "captain-1")

	if _, err := f.svc.ApplyTripFinancials(context.Background(), "trip-1"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// The trip is later found to have failed. Re-settling replaces the
	// ledger row and the captain ends up at the new net, not the sum.
	stored := f.tripRepo.GetTrip("trip-1")
	stored.Status = domain.TripStatusFailed
	f.tripRepo.AddTrip(stored)

	result, err := f.svc.ApplyTripFinancials(context.Background(), "trip-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if !result.Applied {
		t.Fatalf("expected the re-settlement to apply, skipped: %q", result.Skipped)
	}
	// New net -2000, previous net +1000.
	if result.Delta != -3000 {
		t.Errorf("expected delta -3000, got %.2f", result.Delta)
	}

	captain := f.captainRepo.GetCaptain("captain-1")
	if captain.TotalEarning != -2000 {
		t.Errorf("expected balance -2000, got %.2f", captain.TotalEarning)
	}
	if f.ledgerRepo.CountLedgers() != 1 {
		t.Errorf("expected the ledger row to be replaced, got %d rows", f.ledgerRepo.CountLedgers())
	}

	trip := f.tripRepo.GetTrip("trip-1")
	if trip.FinancialStatus != domain.FinancialStatusPenalized {
		t.Errorf("expected financial status PENALIZED, got %s", trip.FinancialStatus)
	}
}

func TestSettlement_ForceClosed_DeductsPriceMinusAllowance(t *testing.T) {
	t.Parallel()

	f := newFinanceFixture()
	f.addTerminalTrip("trip-1", domain.TripStatusForceClosed, 500, "captain-1")

	result, err := f.svc.ApplyTripFinancials(context.Background(), "trip-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if result.NetAmount != -400 {
		t.Errorf("expected net -400, got %.2f", result.NetAmount)
	}
	captain := f.captainRepo.GetCaptain("captain-1")
	if captain.TotalEarning != -400 {
		t.Errorf("expected balance -400, got %.2f", captain.TotalEarning)
	}
}

func TestSettlement_NonTerminalStatus_Skipped(t *testing.T) {
	t.Parallel()

	f := newFinanceFixture()
	f.addTerminalTrip("trip-1", domain.TripStatusScheduled, 1000, "captain-1")

	result, err := f.svc.ApplyTripFinancials(context.Background(), "trip-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if result.Applied {
		t.Error("expected no settlement for a scheduled trip")
	}
	if result.Skipped != "status does not settle" {
		t.Errorf("expected skip reason %q, got %q", "status does not settle", result.Skipped)
	}
	if f.ledgerRepo.CountLedgers() != 0 {
		t.Errorf("expected no ledger rows, got %d", f.ledgerRepo.CountLedgers())
	}
}

func TestSettlement_NoCaptain_Skipped(t *testing.T) {
	t.Parallel()

	f := newFinanceFixture()
	f.addTerminalTrip("trip-1", domain.TripStatusCompleted, 1000, "")

	result, err := f.svc.ApplyTripFinancials(context.Background(), "trip-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if result.Applied {
		t.Error("expected no settlement without a captain")
	}
	if result.Skipped != "no captain assigned" {
		t.Errorf("expected skip reason %q, got %q", "no captain assigned", result.Skipped)
	}
}

func TestSettlement_WriteFailure_RollsBackWithoutCommit(t *testing.T) {
	t.Parallel()

	f := newFinanceFixture()
	f.addTerminalTrip("trip-1", domain.TripStatusCompleted, 1000, "captain-1")
	f.tripRepo.UpdateFinancialsError = ErrMockTimeout

	_, err := f.svc.ApplyTripFinancials(context.Background(), "trip-1")
	if !errors.Is(err, ErrMockTimeout) {
		t.Fatalf("expected the repository error to propagate, got %v", err)
	}

	if f.txm.CommitCallCount != 0 {
		t.Errorf("expected no commit, got %d", f.txm.CommitCallCount)
	}
	if f.txm.RollbackCallCount == 0 {
		t.Error("expected the transaction to be rolled back")
	}
}

func TestSettlement_TripNotFound(t *testing.T) {
	t.Parallel()

	f := newFinanceFixture()

	_, err := f.svc.ApplyTripFinancials(context.Background(), "missing")
	if err != service.ErrTripNotFound {
		t.Errorf("expected ErrTripNotFound, got %v", err)
	}
}
