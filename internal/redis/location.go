package redis

import (
	"context"

	"github.com/redis/go-redis/v9"
)

const captainLocationKey = "captains:locations"

// CaptainLocation represents a captain's last reported position.
type CaptainLocation struct {
	CaptainID string
	Lat       float64
	Lng       float64
}

// LocationStore holds the live captain positions fed by mobile-app pings.
// The activation worker reads from here; a captain with no entry has never
// pinged and cannot be evaluated for proximity.
type LocationStore struct {
	client *redis.Client
}

// NewLocationStore creates a new LocationStore.
func NewLocationStore(client *redis.Client) *LocationStore {
	return &LocationStore{client: client}
}

// UpdateLocation stores a captain's location using GEOADD.
func (s *LocationStore) UpdateLocation(ctx context.Context, captainID string, lat, lng float64) error {
	return s.client.GeoAdd(ctx, captainLocationKey, &redis.GeoLocation{
		Name:      captainID,
		Longitude: lng,
		Latitude:  lat,
	}).Err()
}

// GetLocation returns the captain's last known position.
// Returns nil if the captain has never pinged.
func (s *LocationStore) GetLocation(ctx context.Context, captainID string) (*CaptainLocation, error) {
	positions, err := s.client.GeoPos(ctx, captainLocationKey, captainID).Result()
	if err != nil {
		return nil, err
	}

	if len(positions) == 0 || positions[0] == nil {
		return nil, nil
	}

	return &CaptainLocation{
		CaptainID: captainID,
		Lat:       positions[0].Latitude,
		Lng:       positions[0].Longitude,
	}, nil
}

// RemoveLocation removes a captain's location from the geo index.
func (s *LocationStore) RemoveLocation(ctx context.Context, captainID string) error {
	return s.client.ZRem(ctx, captainLocationKey, captainID).Err()
}
