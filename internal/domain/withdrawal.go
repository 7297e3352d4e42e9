package domain

import "time"

// WithdrawalStatus represents the state of a withdrawal request.
type WithdrawalStatus string

const (
	WithdrawalStatusPending   WithdrawalStatus = "pending"
	WithdrawalStatusApproved  WithdrawalStatus = "approved"
	WithdrawalStatusRejected  WithdrawalStatus = "rejected"
	WithdrawalStatusCompleted WithdrawalStatus = "completed"
)

// Outstanding reports whether the withdrawal still counts against the
// technician's available balance.
func (s WithdrawalStatus) Outstanding() bool {
	return s == WithdrawalStatusPending || s == WithdrawalStatusApproved
}

// PayoutMethod represents how a withdrawal is paid out.
type PayoutMethod string

const (
	PayoutMethodBank PayoutMethod = "bank"
	PayoutMethodUPI  PayoutMethod = "upi"
)

// PayoutDetails holds the destination for a payout. Fields are populated
// according to the payout method.
type PayoutDetails struct {
	AccountName   string
	AccountNumber string
	IFSC          string
	UPIHandle     string
}

// Withdrawal represents a technician's request to withdraw wallet balance.
type Withdrawal struct {
	ID            string
	TechnicianID  string
	Amount        float64
	Status        WithdrawalStatus
	Method        PayoutMethod
	Details       PayoutDetails
	ExternalTxnID string
	CreatedAt     time.Time
	ProcessedAt   time.Time
}
