package repository

import (
	"context"
	"time"

	"dispatch/internal/domain"
)

// JobRepository defines the persistence operations for jobs.
//
// Transitions are expressed as conditional updates (the returned bool reports
// whether the condition held) so concurrent callers racing on the same job
// observe the post-commit state instead of clobbering each other.
type JobRepository interface {
	// Create persists a new job.
	Create(ctx context.Context, job *domain.Job) error

	// GetByID retrieves a job by ID.
	GetByID(ctx context.Context, id string) (*domain.Job, error)

	// GetByStatus retrieves jobs in the given status, newest first.
	GetByStatus(ctx context.Context, status domain.JobStatus) ([]*domain.Job, error)

	// GetActiveByTechnician retrieves the technician's non-terminal jobs.
	GetActiveByTechnician(ctx context.Context, technicianID string) ([]*domain.Job, error)

	// GetAll retrieves recent jobs.
	GetAll(ctx context.Context) ([]*domain.Job, error)

	// Accept atomically assigns the technician and arrival OTP when the job
	// is still available. Re-accept by the already-assigned technician
	// succeeds and keeps the original OTP. Returns false when another
	// technician committed first or the job left the acceptable states.
	Accept(ctx context.Context, jobID, technicianID, arrivalOTP string) (bool, error)

	// UpdateStatusFrom sets the status to `to` only when the current status
	// is `from`.
	UpdateStatusFrom(ctx context.Context, jobID string, from, to domain.JobStatus) (bool, error)

	// SetCompletionOTP stores the completion OTP while the job is IN_PROGRESS.
	SetCompletionOTP(ctx context.Context, jobID, otp string) (bool, error)

	// MarkPaid flips payment status UNPAID -> PAID on a non-terminal job.
	MarkPaid(ctx context.Context, jobID string) (bool, error)

	// MarkCompleted finalizes a job from ARRIVED or IN_PROGRESS: status
	// COMPLETED, payment status VERIFIED, completion time recorded.
	MarkCompleted(ctx context.Context, jobID string, at time.Time) (bool, error)

	// Cancel terminates any non-terminal job, recording the reason.
	Cancel(ctx context.Context, jobID, reason string, at time.Time) (bool, error)
}
