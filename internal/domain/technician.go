package domain

import "time"

// Wallet holds a technician's financial balances.
// Balances are mutated only by the ledger, via atomic increments in the store.
type Wallet struct {
	Balance       float64
	LockedAmount  float64
	CommissionDue float64
	CODLimit      float64
}

// Stats holds a technician's running counters. TodayEarnings and the job
// counters are monotonic and reset only by the explicit daily-reset operation.
type Stats struct {
	TodayEarnings float64
	CompletedJobs int
	TotalJobs     int
	Rating        float64
}

// Technician represents a technician profile.
// Profiles are created lazily on first reference (get-or-create) so a profile
// always exists before any wallet operation touches it.
type Technician struct {
	UserID            string
	Name              string
	Phone             string
	IsOnline          bool
	CanAcceptJobs     bool // KYC/authorization gate checked on accept
	Lat               float64
	Lng               float64
	LocationAddress   string
	LocationUpdatedAt time.Time
	Wallet            Wallet
	Stats             Stats
	CreatedAt         time.Time
}
