package domain

import "time"

// TripStatus represents the current status of a scheduled trip.
type TripStatus string

const (
	TripStatusScheduled           TripStatus = "SCHEDULED"
	TripStatusActive              TripStatus = "ACTIVE"
	TripStatusCompleted           TripStatus = "COMPLETED"
	TripStatusFailed              TripStatus = "FAILED"
	TripStatusEmergencyEnded      TripStatus = "EMERGENCY_ENDED"
	TripStatusEmergencyTerminated TripStatus = "EMERGENCY_TERMINATED"
	TripStatusForceClosed         TripStatus = "FORCE_CLOSED"
	TripStatusCancelled           TripStatus = "CANCELLED"
)

// IsTerminal reports whether no further lifecycle transition is allowed.
func (s TripStatus) IsTerminal() bool {
	switch s {
	case TripStatusCompleted, TripStatusFailed, TripStatusEmergencyEnded,
		TripStatusEmergencyTerminated, TripStatusForceClosed, TripStatusCancelled:
		return true
	}
	return false
}

// TripType distinguishes arrival runs (timed checkpoints) from departures.
type TripType string

const (
	TripTypeArrival   TripType = "ARRIVAL"
	TripTypeDeparture TripType = "DEPARTURE"
)

// ScheduledTrip represents a planned multi-checkpoint journey.
type ScheduledTrip struct {
	ID                    string
	Name                  string
	TripDate              time.Time
	ScheduledTime         time.Time
	TripType              TripType
	Status                TripStatus
	Price                 float64
	AssignedCaptainID     string // empty when unassigned
	CompanyID             string
	FinancialRule         FinanceRule // empty until settlement applied
	NetAmount             float64
	FinancialStatus       FinancialStatus
	FinancialAppliedAt    time.Time
	EmergencyTerminatedAt time.Time
	EmergencyTerminatedBy string
	CreatedAt             time.Time

	Points []*TripPoint
}

// FinalPoint returns the checkpoint marked final, or nil.
func (t *ScheduledTrip) FinalPoint() *TripPoint {
	for _, p := range t.Points {
		if p.IsFinalPoint {
			return p
		}
	}
	return nil
}

// FirstPoint returns the checkpoint with the lowest order, or nil.
func (t *ScheduledTrip) FirstPoint() *TripPoint {
	var first *TripPoint
	for _, p := range t.Points {
		if first == nil || p.Order < first.Order {
			first = p
		}
	}
	return first
}

// TripPoint is one ordered checkpoint on a scheduled trip's route.
type TripPoint struct {
	ID           string
	TripID       string
	Name         string
	Latitude     float64
	Longitude    float64
	Order        int
	IsFinalPoint bool
	ExpectedTime time.Time // zero when untimed (DEPARTURE trips)
	ReachedAt    time.Time // zero until the captain arrives; set once
}

// TripProgress tracks a running trip, one-to-one with an ACTIVE or
// COMPLETED trip.
type TripProgress struct {
	TripID             string
	CurrentPointIndex  int
	StartedAt          time.Time
	CompletedAt        time.Time
	LastLocationUpdate time.Time
	LastLatitude       float64
	LastLongitude      float64
}
