package domain

import "time"

// TransactionType represents the type of a ledger entry.
type TransactionType string

const (
	TransactionTypeCredit     TransactionType = "credit"
	TransactionTypeDebit      TransactionType = "debit"
	TransactionTypeSettlement TransactionType = "settlement"
)

// TransactionStatus represents the settlement state of a ledger entry.
type TransactionStatus string

const (
	TransactionStatusPending   TransactionStatus = "pending"
	TransactionStatusCompleted TransactionStatus = "completed"
)

// Transaction is an append-only ledger entry for a technician's wallet.
// Entries are never mutated except the pending-to-completed status flip used
// by deferred commission settlement.
type Transaction struct {
	ID           string
	TechnicianID string
	Type         TransactionType
	Amount       float64 // always positive; Type carries the sign
	Description  string
	JobID        string // related job, empty for standalone entries
	Status       TransactionStatus
	Metadata     map[string]string // gateway/payout correlation
	CreatedAt    time.Time
}
