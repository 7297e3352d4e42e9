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

// AcquireWithdrawalLock attempts to acquire a lock for the given withdrawal.
// Returns true if the lock was acquired, false if already held.
func (s *LockStore) AcquireWithdrawalLock(ctx context.Context, withdrawalID string, ttl time.Duration) (bool, error) {
	key := fmt.Sprintf("lock:withdrawal:%s", withdrawalID)

	ok, err := s.client.SetNX(ctx, key, "1", ttl).Result()
	if err != nil {
		return false, err
	}

	return ok, nil
}

// ReleaseWithdrawalLock releases the lock for the given withdrawal.
func (s *LockStore) ReleaseWithdrawalLock(ctx context.Context, withdrawalID string) error {
	key := fmt.Sprintf("lock:withdrawal:%s", withdrawalID)

	return s.client.Del(ctx, key).Err()
}
