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

// Cache TTL constants
const (
	TechnicianCacheTTL = 30 * time.Second // Online flag and wallet change frequently
	JobCacheTTL        = 10 * time.Second // Job status changes during dispatch
)

// Key prefixes
const (
	technicianCachePrefix = "cache:technician:"
	jobCachePrefix        = "cache:job:"
)

// CachedTechnician represents a cached technician profile.
type CachedTechnician struct {
	UserID        string  `json:"user_id"`
	Name          string  `json:"name"`
	Phone         string  `json:"phone"`
	IsOnline      bool    `json:"is_online"`
	CanAcceptJobs bool    `json:"can_accept_jobs"`
	Balance       float64 `json:"balance"`
	CommissionDue float64 `json:"commission_due"`
}

// CachedJob represents a cached job entity.
type CachedJob struct {
	ID           string  `json:"id"`
	CustomerID   string  `json:"customer_id"`
	Status       string  `json:"status"`
	TechnicianID string  `json:"technician_id"`
	Price        float64 `json:"price"`
}

// GetTechnician retrieves a technician from cache.
func (s *CacheStore) GetTechnician(ctx context.Context, userID string) (*CachedTechnician, error) {
	key := technicianCachePrefix + userID
	data, err := s.client.Get(ctx, key).Bytes()
	if err != nil {
		if err == redis.Nil {
			return nil, nil // Cache miss
		}
		return nil, err
	}

	var tech CachedTechnician
	if err := json.Unmarshal(data, &tech); err != nil {
		return nil, err
	}
	return &tech, nil
}

// SetTechnician stores a technician in cache.
func (s *CacheStore) SetTechnician(ctx context.Context, tech *CachedTechnician) error {
	key := technicianCachePrefix + tech.UserID
	data, err := json.Marshal(tech)
	if err != nil {
		return err
	}
	return s.client.Set(ctx, key, data, TechnicianCacheTTL).Err()
}

// InvalidateTechnician removes a technician from cache.
func (s *CacheStore) InvalidateTechnician(ctx context.Context, userID string) error {
	key := technicianCachePrefix + userID
	return s.client.Del(ctx, key).Err()
}

// GetJob retrieves a job from cache.
func (s *CacheStore) GetJob(ctx context.Context, jobID string) (*CachedJob, error) {
	key := jobCachePrefix + jobID
	data, err := s.client.Get(ctx, key).Bytes()
	if err != nil {
		if err == redis.Nil {
			return nil, nil // Cache miss
		}
		return nil, err
	}

	var job CachedJob
	if err := json.Unmarshal(data, &job); err != nil {
		return nil, err
	}
	return &job, nil
}

// SetJob stores a job in cache.
func (s *CacheStore) SetJob(ctx context.Context, job *CachedJob) error {
	key := jobCachePrefix + job.ID
	data, err := json.Marshal(job)
	if err != nil {
		return err
	}
	return s.client.Set(ctx, key, data, JobCacheTTL).Err()
}

// InvalidateJob removes a job from cache.
func (s *CacheStore) InvalidateJob(ctx context.Context, jobID string) error {
	key := jobCachePrefix + jobID
	return s.client.Del(ctx, key).Err()
}

// AddOnlineTechnician adds a technician to the online set.
// This is separate from the main cache - it's a set of online technician IDs.
func (s *CacheStore) AddOnlineTechnician(ctx context.Context, userID string) error {
	return s.client.SAdd(ctx, "online_technicians", userID).Err()
}

// RemoveOnlineTechnician removes a technician from the online set.
func (s *CacheStore) RemoveOnlineTechnician(ctx context.Context, userID string) error {
	return s.client.SRem(ctx, "online_technicians", userID).Err()
}

// IsTechnicianOnline checks if a technician is in the online set.
func (s *CacheStore) IsTechnicianOnline(ctx context.Context, userID string) (bool, error) {
	return s.client.SIsMember(ctx, "online_technicians", userID).Result()
}

// GetOnlineTechnicians returns all online technician IDs.
func (s *CacheStore) GetOnlineTechnicians(ctx context.Context) ([]string, error) {
	return s.client.SMembers(ctx, "online_technicians").Result()
}
