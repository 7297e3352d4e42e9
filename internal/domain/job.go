package domain

import "time"

// JobStatus represents the current status of a dispatch job.
type JobStatus string

const (
	JobStatusRequested  JobStatus = "REQUESTED"
	JobStatusAccepted   JobStatus = "ACCEPTED"
	JobStatusArrived    JobStatus = "ARRIVED"
	JobStatusInProgress JobStatus = "IN_PROGRESS"
	JobStatusCompleted  JobStatus = "COMPLETED"
	JobStatusCancelled  JobStatus = "CANCELLED"
)

// Terminal reports whether the status admits no further transitions.
func (s JobStatus) Terminal() bool {
	return s == JobStatusCompleted || s == JobStatusCancelled
}

// PaymentMethod represents how a job is paid for.
type PaymentMethod string

const (
	PaymentMethodOnline PaymentMethod = "ONLINE"
	// PaymentMethodCOD exists in the schema but the COD flow is disabled:
	// job creation rejects it until commission escrow is reconciled.
	PaymentMethodCOD PaymentMethod = "COD"
)

// PaymentTiming represents when payment is collected relative to dispatch.
type PaymentTiming string

const (
	PaymentTimingPrepaid  PaymentTiming = "PREPAID"
	PaymentTimingPostpaid PaymentTiming = "POSTPAID"
)

// PaymentStatus represents the payment state of a job.
type PaymentStatus string

const (
	PaymentStatusUnpaid   PaymentStatus = "UNPAID"
	PaymentStatusPaid     PaymentStatus = "PAID"
	PaymentStatusVerified PaymentStatus = "VERIFIED"
)

// DefaultDestination is used when a job has no destination address.
const DefaultDestination = "Not specified"

// Job represents a technician dispatch request in the system.
// Jobs are never hard-deleted; COMPLETED and CANCELLED are retained for history.
type Job struct {
	ID            string
	CustomerID    string
	ServiceType   string
	PickupAddress string
	PickupLat     float64
	PickupLng     float64
	DestAddress   string
	DestLat       float64
	DestLng       float64
	Status        JobStatus
	TechnicianID  string // set exactly once per lifecycle, non-empty beyond REQUESTED
	PaymentMethod PaymentMethod
	PaymentTiming PaymentTiming
	PaymentStatus PaymentStatus
	ArrivalOTP    string // 4-digit, generated on accept, verified (never cleared)
	CompletionOTP string // 5-digit, generated on service end
	Price         float64
	CancelReason  string
	CreatedAt     time.Time
	CompletedAt   time.Time
	CancelledAt   time.Time
}
