package repository

import (
	"context"
	"time"

	"dispatch/internal/domain"
)

// TechnicianRepository defines the persistence operations for technician
// profiles and their wallets.
//
// Wallet fields are the most contended shared state in the system, so every
// mutation is an atomic increment/decrement against the stored value; the
// interface deliberately offers no way to write a whole wallet back.
type TechnicianRepository interface {
	// GetOrCreate returns the profile for userID, creating an empty one on
	// first reference. Creation is idempotent under concurrent first-touch.
	GetOrCreate(ctx context.Context, userID string) (*domain.Technician, error)

	// GetByID retrieves a technician profile.
	GetByID(ctx context.Context, userID string) (*domain.Technician, error)

	// GetAll retrieves all technician profiles.
	GetAll(ctx context.Context) ([]*domain.Technician, error)

	// UpdateProfile sets name and phone.
	UpdateProfile(ctx context.Context, userID, name, phone string) error

	// SetOnline flips the online flag.
	SetOnline(ctx context.Context, userID string, online bool) error

	// UpdateLocation stores the best-effort profile location.
	UpdateLocation(ctx context.Context, userID string, lat, lng float64, address string, at time.Time) error

	// AddBalance atomically increments the wallet balance.
	AddBalance(ctx context.Context, userID string, amount float64) error

	// AddCommissionDue atomically increments the commission owed.
	AddCommissionDue(ctx context.Context, userID string, amount float64) error

	// SettleCommissionDue atomically decrements commission due by at most
	// the outstanding amount (floored at zero) and returns the amount
	// actually settled.
	SettleCommissionDue(ctx context.Context, userID string, amount float64) (float64, error)

	// DeductBalanceIf atomically decrements the balance only when it covers
	// the amount. Returns false when the balance is insufficient.
	DeductBalanceIf(ctx context.Context, userID string, amount float64) (bool, error)

	// RecordCompletedJob increments today's earnings and the job counters.
	RecordCompletedJob(ctx context.Context, userID string, earnings float64) error

	// ResetDailyStats zeroes today's earnings for all technicians.
	ResetDailyStats(ctx context.Context) error
}
