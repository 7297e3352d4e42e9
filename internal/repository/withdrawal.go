package repository

import (
	"context"
	"time"

	"dispatch/internal/domain"
)

// WithdrawalRepository defines the persistence operations for withdrawal
// requests.
type WithdrawalRepository interface {
	// Create persists a new withdrawal request.
	Create(ctx context.Context, w *domain.Withdrawal) error

	// GetByID retrieves a withdrawal request.
	GetByID(ctx context.Context, id string) (*domain.Withdrawal, error)

	// GetByTechnician retrieves a technician's withdrawal requests, newest first.
	GetByTechnician(ctx context.Context, technicianID string) ([]*domain.Withdrawal, error)

	// SumOutstandingByTechnician sums the amounts of the technician's
	// pending and approved withdrawals.
	SumOutstandingByTechnician(ctx context.Context, technicianID string) (float64, error)

	// UpdateStatus transitions a withdrawal and records processing details.
	UpdateStatus(ctx context.Context, id string, status domain.WithdrawalStatus, externalTxnID string, processedAt time.Time) error
}
