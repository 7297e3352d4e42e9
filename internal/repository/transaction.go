package repository

import (
	"context"

	"dispatch/internal/domain"
)

// TransactionRepository defines the persistence operations for ledger entries.
// The log is append-only: the only permitted mutation is the pending-to-
// completed status flip.
type TransactionRepository interface {
	// Create appends a ledger entry.
	Create(ctx context.Context, txn *domain.Transaction) error

	// GetByID retrieves a ledger entry.
	GetByID(ctx context.Context, id string) (*domain.Transaction, error)

	// GetByTechnician retrieves a technician's entries, newest first.
	GetByTechnician(ctx context.Context, technicianID string) ([]*domain.Transaction, error)

	// MarkCompleted flips a pending entry to completed.
	MarkCompleted(ctx context.Context, id string) error
}
