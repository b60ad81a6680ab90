package domain

import "time"

// FinanceRule identifies the settlement rule applied when a trip reaches a
// terminal status.
type FinanceRule string

const (
	RuleCompletedFull        FinanceRule = "COMPLETED_FULL"
	RuleFailedDouble         FinanceRule = "FAILED_DOUBLE"
	RuleEmergencyDeduction   FinanceRule = "EMERGENCY_DEDUCTION"
	RuleForceClosedDeduction FinanceRule = "FORCE_CLOSED_DEDUCTION"
)

// ForceCloseAllowance is forgiven from the price when an admin force-closes
// a trip.
const ForceCloseAllowance = 100.0

// SettlementFor maps a trip status to its settlement rule and net amount.
// Returns an empty rule for statuses that do not settle.
func SettlementFor(status TripStatus, price float64) (FinanceRule, float64) {
	switch status {
	case TripStatusCompleted:
		return RuleCompletedFull, price
	case TripStatusFailed:
		return RuleFailedDouble, -2 * price
	case TripStatusEmergencyEnded, TripStatusEmergencyTerminated:
		return RuleEmergencyDeduction, -price
	case TripStatusForceClosed:
		return RuleForceClosedDeduction, -(price - ForceCloseAllowance)
	}
	return "", 0
}

// FinancialStatus summarizes the sign of a trip's applied settlement.
type FinancialStatus string

const (
	FinancialStatusNone      FinancialStatus = "NONE"
	FinancialStatusPaid      FinancialStatus = "PAID"
	FinancialStatusPenalized FinancialStatus = "PENALIZED"
)

// TripLedger is the single settlement record for a trip. At most one row
// exists per trip; a rule change replaces the row and the captain balance is
// adjusted by the delta.
type TripLedger struct {
	ID                  string
	TripID              string
	CaptainID           string
	BaseAmount          float64
	AdjustmentAmount    float64
	NetAmount           float64
	Rule                FinanceRule
	StatusAtCalculation TripStatus
	CalculatedAt        time.Time
}

// ActivationCheck is an append-only audit record of one activation
// evaluation. Rows are never mutated; they double as the dedup source for
// "was an activation notification already sent in the last 24h".
type ActivationCheck struct {
	ID                   string
	TripID               string
	CaptainID            string
	WasWithinProximity   bool
	WasOnTime            bool
	Activated            bool
	CaptainLatitude      float64
	CaptainLongitude     float64
	DistanceToFirstPoint float64
	CreatedAt            time.Time
}

// EmergencyUsage records a captain invoking emergency termination. One row
// per use; the once-per-day quota is enforced by querying the captain's rows
// for the current calendar day.
type EmergencyUsage struct {
	ID        string
	CaptainID string
	TripID    string
	UsedAt    time.Time
}
