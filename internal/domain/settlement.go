package domain

import "time"

// Settlement is the financial breakdown recorded when a job completes.
// The invariant Commission + Earnings == Price holds exactly.
type Settlement struct {
	ID             string
	JobID          string
	TechnicianID   string
	Price          float64
	CommissionRate float64
	Commission     float64
	Earnings       float64
	CompletedAt    time.Time
	CreatedAt      time.Time
}
