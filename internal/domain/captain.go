package domain

// CaptainStatus represents the online status of a captain.
type CaptainStatus string

const (
	CaptainStatusActive    CaptainStatus = "ACTIVE"
	CaptainStatusInactive  CaptainStatus = "INACTIVE"
	CaptainStatusSuspended CaptainStatus = "SUSPENDED"
)

// Captain represents a driver assigned to operate scheduled trips.
type Captain struct {
	ID                   string
	Name                 string
	Phone                string
	Status               CaptainStatus
	PushToken            string
	TotalEarning         float64
	ScheduledTripBalance float64
}

// IsOnline reports whether the captain can be dispatched.
func (c *Captain) IsOnline() bool {
	return c.Status == CaptainStatusActive
}
