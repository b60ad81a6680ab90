package redis

import (
	"context"
	"encoding/json"
	"log"
	"time"

	"github.com/redis/go-redis/v9"
)

// CacheStore handles entity caching in Redis.
type CacheStore struct {
	client *redis.Client
}

// NewCacheStore creates a new CacheStore.
func NewCacheStore(client *redis.Client) *CacheStore {
	return &CacheStore{client: client}
}

// CaptainCacheTTL is short because online status changes frequently.
const CaptainCacheTTL = 30 * time.Second

const captainCachePrefix = "cache:captain:"

// CachedCaptain represents a cached captain entity.
type CachedCaptain struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Phone     string `json:"phone"`
	Status    string `json:"status"`
	PushToken string `json:"push_token"`
}

// GetCaptain retrieves a captain from cache.
func (s *CacheStore) GetCaptain(ctx context.Context, captainID string) (*CachedCaptain, error) {
	key := captainCachePrefix + captainID
	data, err := s.client.Get(ctx, key).Bytes()
	if err != nil {
		if err == redis.Nil {
			return nil, nil // Cache miss
		}
		return nil, err
	}

	var captain CachedCaptain
	if err := json.Unmarshal(data, &captain); err != nil {
		return nil, err
	}
	return &captain, nil
}

// SetCaptain stores a captain in cache.
func (s *CacheStore) SetCaptain(ctx context.Context, captain *CachedCaptain) error {
	key := captainCachePrefix + captain.ID
	data, err := json.Marshal(captain)
	if err != nil {
		return err
	}
	return s.client.Set(ctx, key, data, CaptainCacheTTL).Err()
}

// InvalidateCaptain removes a captain from cache.
func (s *CacheStore) InvalidateCaptain(ctx context.Context, captainID string) error {
	key := captainCachePrefix + captainID
	return s.client.Del(ctx, key).Err()
}

// GetCaptainsBatch retrieves multiple captains from cache using a pipeline.
// Returns a map of captainID -> CachedCaptain and a slice of missing IDs.
func (s *CacheStore) GetCaptainsBatch(ctx context.Context, captainIDs []string) (map[string]*CachedCaptain, []string, error) {
	if len(captainIDs) == 0 {
		return make(map[string]*CachedCaptain), nil, nil
	}

	pipe := s.client.Pipeline()
	cmds := make(map[string]*redis.StringCmd, len(captainIDs))

	for _, id := range captainIDs {
		cmds[id] = pipe.Get(ctx, captainCachePrefix+id)
	}

	// Pipeline reports redis.Nil when some keys are missing; individual
	// command results are inspected below either way.
	if _, err := pipe.Exec(ctx); err != nil && err != redis.Nil {
		log.Printf("ERROR: captain cache pipeline read failed: %v", err)
	}

	result := make(map[string]*CachedCaptain)
	var missing []string

	for id, cmd := range cmds {
		data, err := cmd.Bytes()
		if err != nil {
			missing = append(missing, id)
			continue
		}

		var captain CachedCaptain
		if err := json.Unmarshal(data, &captain); err != nil {
			missing = append(missing, id)
			continue
		}
		result[id] = &captain
	}

	return result, missing, nil
}

// SetCaptainsBatch stores multiple captains in cache using a pipeline.
func (s *CacheStore) SetCaptainsBatch(ctx context.Context, captains []*CachedCaptain) error {
	if len(captains) == 0 {
		return nil
	}

	pipe := s.client.Pipeline()

	for _, captain := range captains {
		data, err := json.Marshal(captain)
		if err != nil {
			continue // Skip invalid entries
		}
		pipe.Set(ctx, captainCachePrefix+captain.ID, data, CaptainCacheTTL)
	}

	_, err := pipe.Exec(ctx)
	return err
}
