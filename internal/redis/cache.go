package redis

import (
	"context"
	"encoding/json"
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

// PlanCacheTTL bounds how stale a cached plan can get. Plans only
// change on reseed, so minutes is plenty.
const PlanCacheTTL = 5 * time.Minute

const planCachePrefix = "cache:plan:"

// CachedPlan represents a cached pricing plan.
type CachedPlan struct {
	Name            string  `json:"name"`
	DisplayName     string  `json:"display_name"`
	VehicleType     string  `json:"vehicle_type"`
	BaseFare        float64 `json:"base_fare"`
	PerDistanceRate float64 `json:"per_distance_rate"`
	PerTimeRate     float64 `json:"per_time_rate"`
	MinimumFare     float64 `json:"minimum_fare"`
	CancellationFee float64 `json:"cancellation_fee"`
	BookingFee      float64 `json:"booking_fee"`
	SurgeMultiplier float64 `json:"surge_multiplier"`
	Active          bool    `json:"active"`
}

// GetPlan retrieves a plan from cache. Returns nil on a cache miss.
func (s *CacheStore) GetPlan(ctx context.Context, name string) (*CachedPlan, error) {
	data, err := s.client.Get(ctx, planCachePrefix+name).Bytes()
	if err != nil {
		if err == redis.Nil {
			return nil, nil // Cache miss
		}
		return nil, err
	}

	var plan CachedPlan
	if err := json.Unmarshal(data, &plan); err != nil {
		return nil, err
	}
	return &plan, nil
}

// SetPlan stores a plan in cache.
func (s *CacheStore) SetPlan(ctx context.Context, plan *CachedPlan) error {
	data, err := json.Marshal(plan)
	if err != nil {
		return err
	}
	return s.client.Set(ctx, planCachePrefix+plan.Name, data, PlanCacheTTL).Err()
}

// InvalidatePlan removes a plan from cache. Called after a reseed so
// readers pick up the new rates immediately.
func (s *CacheStore) InvalidatePlan(ctx context.Context, name string) error {
	return s.client.Del(ctx, planCachePrefix+name).Err()
}
