package postgres

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"dispatch/internal/domain"
	"dispatch/internal/repository"
)

// JobRepository is a PostgreSQL implementation of repository.JobRepository.
type JobRepository struct {
	q Querier
}

// NewJobRepository creates a new PostgreSQL job repository.
func NewJobRepository(db *sql.DB) *JobRepository {
	return &JobRepository{q: db}
}

// NewJobRepositoryWithTx creates a job repository using a transaction.
func NewJobRepositoryWithTx(tx *sql.Tx) *JobRepository {
	return &JobRepository{q: tx}
}

const jobColumns = `id, customer_id, service_type, pickup_address, pickup_lat, pickup_lng,
	dest_address, dest_lat, dest_lng, status, technician_id,
	payment_method, payment_timing, payment_status, arrival_otp, completion_otp,
	price, cancel_reason, created_at, completed_at, cancelled_at`

// Create persists a new job.
func (r *JobRepository) Create(ctx context.Context, job *domain.Job) error {
	query := `
		INSERT INTO jobs (` + jobColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20, $21)
	`

	_, err := r.q.ExecContext(ctx, query,
		job.ID,
		job.CustomerID,
		job.ServiceType,
		job.PickupAddress,
		job.PickupLat,
		job.PickupLng,
		job.DestAddress,
		job.DestLat,
		job.DestLng,
		job.Status,
		nullString(job.TechnicianID),
		job.PaymentMethod,
		job.PaymentTiming,
		job.PaymentStatus,
		nullString(job.ArrivalOTP),
		nullString(job.CompletionOTP),
		job.Price,
		nullString(job.CancelReason),
		job.CreatedAt,
		nullTime(job.CompletedAt),
		nullTime(job.CancelledAt),
	)

	return err
}

// GetByID retrieves a job by ID.
func (r *JobRepository) GetByID(ctx context.Context, id string) (*domain.Job, error) {
	query := `SELECT ` + jobColumns + ` FROM jobs WHERE id = $1`

	job, err := scanJob(r.q.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}
	return job, nil
}

// GetByStatus retrieves jobs in the given status, newest first.
func (r *JobRepository) GetByStatus(ctx context.Context, status domain.JobStatus) ([]*domain.Job, error) {
	query := `SELECT ` + jobColumns + ` FROM jobs WHERE status = $1 ORDER BY created_at DESC LIMIT 100`
	return r.queryJobs(ctx, query, status)
}

// GetActiveByTechnician retrieves the technician's non-terminal jobs.
func (r *JobRepository) GetActiveByTechnician(ctx context.Context, technicianID string) ([]*domain.Job, error) {
	query := `
		SELECT ` + jobColumns + ` FROM jobs
		WHERE technician_id = $1 AND status NOT IN ('COMPLETED', 'CANCELLED')
		ORDER BY created_at DESC
	`
	return r.queryJobs(ctx, query, technicianID)
}

// GetAll retrieves recent jobs.
func (r *JobRepository) GetAll(ctx context.Context) ([]*domain.Job, error) {
	query := `SELECT ` + jobColumns + ` FROM jobs ORDER BY created_at DESC LIMIT 100`
	return r.queryJobs(ctx, query)
}

// Accept atomically assigns the technician and arrival OTP when the job is
// still available. The condition is evaluated inside the UPDATE so N racing
// accepts commit exactly one winner; re-accept by the already-assigned
// technician succeeds without regenerating the OTP.
func (r *JobRepository) Accept(ctx context.Context, jobID, technicianID, arrivalOTP string) (bool, error) {
	query := `
		UPDATE jobs
		SET status = 'ACCEPTED',
		    technician_id = $2,
		    arrival_otp = CASE WHEN technician_id IS NULL THEN $3 ELSE arrival_otp END
		WHERE id = $1
		  AND (status = 'REQUESTED' OR (status = 'ACCEPTED' AND technician_id = $2))
	`

	result, err := r.q.ExecContext(ctx, query, jobID, technicianID, arrivalOTP)
	if err != nil {
		return false, err
	}
	return affected(result)
}

// UpdateStatusFrom sets the status to `to` only when the current status is `from`.
func (r *JobRepository) UpdateStatusFrom(ctx context.Context, jobID string, from, to domain.JobStatus) (bool, error) {
	query := `UPDATE jobs SET status = $3 WHERE id = $1 AND status = $2`

	result, err := r.q.ExecContext(ctx, query, jobID, from, to)
	if err != nil {
		return false, err
	}
	return affected(result)
}

// SetCompletionOTP stores the completion OTP while the job is IN_PROGRESS.
func (r *JobRepository) SetCompletionOTP(ctx context.Context, jobID, otp string) (bool, error) {
	query := `UPDATE jobs SET completion_otp = $2 WHERE id = $1 AND status = 'IN_PROGRESS'`

	result, err := r.q.ExecContext(ctx, query, jobID, otp)
	if err != nil {
		return false, err
	}
	return affected(result)
}

// MarkPaid flips payment status UNPAID -> PAID on a non-terminal job.
func (r *JobRepository) MarkPaid(ctx context.Context, jobID string) (bool, error) {
	query := `
		UPDATE jobs SET payment_status = 'PAID'
		WHERE id = $1 AND payment_status = 'UNPAID'
		  AND status NOT IN ('COMPLETED', 'CANCELLED')
	`

	result, err := r.q.ExecContext(ctx, query, jobID)
	if err != nil {
		return false, err
	}
	return affected(result)
}

// MarkCompleted finalizes a job from ARRIVED or IN_PROGRESS.
func (r *JobRepository) MarkCompleted(ctx context.Context, jobID string, at time.Time) (bool, error) {
	query := `
		UPDATE jobs
		SET status = 'COMPLETED', payment_status = 'VERIFIED', completed_at = $2
		WHERE id = $1 AND status IN ('ARRIVED', 'IN_PROGRESS')
	`

	result, err := r.q.ExecContext(ctx, query, jobID, at)
	if err != nil {
		return false, err
	}
	return affected(result)
}

// Cancel terminates any non-terminal job, recording the reason.
func (r *JobRepository) Cancel(ctx context.Context, jobID, reason string, at time.Time) (bool, error) {
	query := `
		UPDATE jobs
		SET status = 'CANCELLED', cancel_reason = $2, cancelled_at = $3
		WHERE id = $1 AND status NOT IN ('COMPLETED', 'CANCELLED')
	`

	result, err := r.q.ExecContext(ctx, query, jobID, nullString(reason), at)
	if err != nil {
		return false, err
	}
	return affected(result)
}

func (r *JobRepository) queryJobs(ctx context.Context, query string, args ...any) ([]*domain.Job, error) {
	rows, err := r.q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var jobs []*domain.Job
	for rows.Next() {
		job, err := scanJob(rows)
		if err != nil {
			return nil, err
		}
		jobs = append(jobs, job)
	}
	return jobs, rows.Err()
}

// rowScanner is satisfied by *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanJob(row rowScanner) (*domain.Job, error) {
	var job domain.Job
	var technicianID, arrivalOTP, completionOTP, cancelReason sql.NullString
	var completedAt, cancelledAt sql.NullTime

	err := row.Scan(
		&job.ID,
		&job.CustomerID,
		&job.ServiceType,
		&job.PickupAddress,
		&job.PickupLat,
		&job.PickupLng,
		&job.DestAddress,
		&job.DestLat,
		&job.DestLng,
		&job.Status,
		&technicianID,
		&job.PaymentMethod,
		&job.PaymentTiming,
		&job.PaymentStatus,
		&arrivalOTP,
		&completionOTP,
		&job.Price,
		&cancelReason,
		&job.CreatedAt,
		&completedAt,
		&cancelledAt,
	)
	if err != nil {
		return nil, err
	}

	job.TechnicianID = technicianID.String
	job.ArrivalOTP = arrivalOTP.String
	job.CompletionOTP = completionOTP.String
	job.CancelReason = cancelReason.String
	if completedAt.Valid {
		job.CompletedAt = completedAt.Time
	}
	if cancelledAt.Valid {
		job.CancelledAt = cancelledAt.Time
	}

	return &job, nil
}

func affected(result sql.Result) (bool, error) {
	n, err := result.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func nullString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}

func nullTime(t time.Time) sql.NullTime {
	if t.IsZero() {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: t, Valid: true}
}
