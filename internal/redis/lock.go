package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// LockStore handles distributed locking in Redis.
type LockStore struct {
	client *redis.Client
}

// NewLockStore creates a new LockStore.
func NewLockStore(client *redis.Client) *LockStore {
	return &LockStore{client: client}
}

// AcquireEmergencyLock attempts to acquire the per-captain-per-day lock that
// serializes the emergency quota check-then-insert. The day string is the
// captain's local calendar date (YYYY-MM-DD). Returns true if the lock was
// acquired, false if another termination for the same captain and day is in
// flight.
func (s *LockStore) AcquireEmergencyLock(ctx context.Context, captainID, day string, ttl time.Duration) (bool, error) {
	key := fmt.Sprintf("lock:emergency:%s:%s", captainID, day)

	ok, err := s.client.SetNX(ctx, key, "1", ttl).Result()
	if err != nil {
		return false, err
	}

	return ok, nil
}

// ReleaseEmergencyLock releases the per-captain-per-day emergency lock.
func (s *LockStore) ReleaseEmergencyLock(ctx context.Context, captainID, day string) error {
	key := fmt.Sprintf("lock:emergency:%s:%s", captainID, day)

	return s.client.Del(ctx, key).Err()
}
