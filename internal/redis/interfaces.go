package redis

import (
	"context"
	"time"
)

// LocationStoreInterface defines the interface for technician location operations.
type LocationStoreInterface interface {
	UpdateLocation(ctx context.Context, technicianID string, lat, lng float64) error
	FindNearbyTechnicians(ctx context.Context, lat, lng, radiusKm float64) ([]TechnicianLocation, error)
	RemoveLocation(ctx context.Context, technicianID string) error
}

// LockStoreInterface defines the interface for distributed locking.
type LockStoreInterface interface {
	AcquireWithdrawalLock(ctx context.Context, withdrawalID string, ttl time.Duration) (bool, error)
	ReleaseWithdrawalLock(ctx context.Context, withdrawalID string) error
}

// Ensure concrete types implement interfaces.
var (
	_ LocationStoreInterface = (*LocationStore)(nil)
	_ LockStoreInterface     = (*LockStore)(nil)
)
