package redis

import (
	"context"
	"time"
)

// LocationStoreInterface defines the interface for captain location operations.
type LocationStoreInterface interface {
	UpdateLocation(ctx context.Context, captainID string, lat, lng float64) error
	GetLocation(ctx context.Context, captainID string) (*CaptainLocation, error)
	RemoveLocation(ctx context.Context, captainID string) error
}

// LockStoreInterface defines the interface for distributed locking.
type LockStoreInterface interface {
	AcquireEmergencyLock(ctx context.Context, captainID, day string, ttl time.Duration) (bool, error)
	ReleaseEmergencyLock(ctx context.Context, captainID, day string) error
}

// CacheStoreInterface defines the interface for entity caching.
type CacheStoreInterface interface {
	GetCaptain(ctx context.Context, captainID string) (*CachedCaptain, error)
	SetCaptain(ctx context.Context, captain *CachedCaptain) error
	InvalidateCaptain(ctx context.Context, captainID string) error
	GetCaptainsBatch(ctx context.Context, captainIDs []string) (map[string]*CachedCaptain, []string, error)
	SetCaptainsBatch(ctx context.Context, captains []*CachedCaptain) error
}

// Ensure concrete types implement interfaces.
var (
	_ LocationStoreInterface = (*LocationStore)(nil)
	_ LockStoreInterface     = (*LockStore)(nil)
	_ CacheStoreInterface    = (*CacheStore)(nil)
)
