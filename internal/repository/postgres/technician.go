package postgres

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"dispatch/internal/domain"
	"dispatch/internal/repository"
)

// TechnicianRepository is a PostgreSQL implementation of
// repository.TechnicianRepository. All wallet and stats mutations are
// expressed as SQL-level increments so concurrent settlements for the same
// technician never lose updates.
type TechnicianRepository struct {
	q Querier
}

// NewTechnicianRepository creates a new PostgreSQL technician repository.
func NewTechnicianRepository(db *sql.DB) *TechnicianRepository {
	return &TechnicianRepository{q: db}
}

// NewTechnicianRepositoryWithTx creates a technician repository using a transaction.
func NewTechnicianRepositoryWithTx(tx *sql.Tx) *TechnicianRepository {
	return &TechnicianRepository{q: tx}
}

const technicianColumns = `user_id, COALESCE(name, ''), COALESCE(phone, ''), is_online, can_accept_jobs,
	lat, lng, COALESCE(location_address, ''), location_updated_at,
	balance, locked_amount, commission_due, cod_limit,
	today_earnings, completed_jobs, total_jobs, rating, created_at`

// GetOrCreate returns the profile for userID, creating an empty one on first
// reference. ON CONFLICT DO NOTHING keeps concurrent first-touch idempotent:
// exactly one row exists afterwards regardless of how many callers race.
func (r *TechnicianRepository) GetOrCreate(ctx context.Context, userID string) (*domain.Technician, error) {
	insert := `
		INSERT INTO technicians (user_id, is_online, can_accept_jobs, created_at)
		VALUES ($1, FALSE, TRUE, $2)
		ON CONFLICT (user_id) DO NOTHING
	`
	if _, err := r.q.ExecContext(ctx, insert, userID, time.Now()); err != nil {
		return nil, err
	}

	return r.GetByID(ctx, userID)
}

// GetByID retrieves a technician profile.
func (r *TechnicianRepository) GetByID(ctx context.Context, userID string) (*domain.Technician, error) {
	query := `SELECT ` + technicianColumns + ` FROM technicians WHERE user_id = $1`

	tech, err := scanTechnician(r.q.QueryRowContext(ctx, query, userID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}
	return tech, nil
}

// GetAll retrieves all technician profiles.
func (r *TechnicianRepository) GetAll(ctx context.Context) ([]*domain.Technician, error) {
	query := `SELECT ` + technicianColumns + ` FROM technicians ORDER BY user_id`

	rows, err := r.q.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var techs []*domain.Technician
	for rows.Next() {
		tech, err := scanTechnician(rows)
		if err != nil {
			return nil, err
		}
		techs = append(techs, tech)
	}
	return techs, rows.Err()
}

// UpdateProfile sets name and phone.
func (r *TechnicianRepository) UpdateProfile(ctx context.Context, userID, name, phone string) error {
	query := `UPDATE technicians SET name = $2, phone = $3 WHERE user_id = $1`
	return r.exec(ctx, query, userID, name, phone)
}

// SetOnline flips the online flag.
func (r *TechnicianRepository) SetOnline(ctx context.Context, userID string, online bool) error {
	query := `UPDATE technicians SET is_online = $2 WHERE user_id = $1`
	return r.exec(ctx, query, userID, online)
}

// UpdateLocation stores the best-effort profile location.
func (r *TechnicianRepository) UpdateLocation(ctx context.Context, userID string, lat, lng float64, address string, at time.Time) error {
	query := `
		UPDATE technicians
		SET lat = $2, lng = $3, location_address = $4, location_updated_at = $5
		WHERE user_id = $1
	`
	return r.exec(ctx, query, userID, lat, lng, address, at)
}

// AddBalance atomically increments the wallet balance.
func (r *TechnicianRepository) AddBalance(ctx context.Context, userID string, amount float64) error {
	query := `UPDATE technicians SET balance = balance + $2 WHERE user_id = $1`
	return r.exec(ctx, query, userID, amount)
}

// AddCommissionDue atomically increments the commission owed.
func (r *TechnicianRepository) AddCommissionDue(ctx context.Context, userID string, amount float64) error {
	query := `UPDATE technicians SET commission_due = commission_due + $2 WHERE user_id = $1`
	return r.exec(ctx, query, userID, amount)
}

// SettleCommissionDue decrements commission due by at most the outstanding
// amount and returns the amount actually settled.
func (r *TechnicianRepository) SettleCommissionDue(ctx context.Context, userID string, amount float64) (float64, error) {
	// RETURNING only sees post-update values, so the pre-update due is
	// captured in a locked subquery to report what was actually settled.
	query := `
		UPDATE technicians t
		SET commission_due = GREATEST(t.commission_due - $2, 0)
		FROM (SELECT user_id, commission_due AS old_due FROM technicians WHERE user_id = $1 FOR UPDATE) prev
		WHERE t.user_id = prev.user_id
		RETURNING LEAST(prev.old_due, $2)
	`

	var settled float64
	err := r.q.QueryRowContext(ctx, query, userID, amount).Scan(&settled)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, repository.ErrNotFound
		}
		return 0, err
	}
	return settled, nil
}

// DeductBalanceIf decrements the balance only when it covers the amount.
func (r *TechnicianRepository) DeductBalanceIf(ctx context.Context, userID string, amount float64) (bool, error) {
	query := `UPDATE technicians SET balance = balance - $2 WHERE user_id = $1 AND balance >= $2`

	result, err := r.q.ExecContext(ctx, query, userID, amount)
	if err != nil {
		return false, err
	}
	return affected(result)
}

// RecordCompletedJob increments today's earnings and the job counters.
func (r *TechnicianRepository) RecordCompletedJob(ctx context.Context, userID string, earnings float64) error {
	query := `
		UPDATE technicians
		SET today_earnings = today_earnings + $2,
		    completed_jobs = completed_jobs + 1,
		    total_jobs = total_jobs + 1
		WHERE user_id = $1
	`
	return r.exec(ctx, query, userID, earnings)
}

// ResetDailyStats zeroes today's earnings for all technicians.
func (r *TechnicianRepository) ResetDailyStats(ctx context.Context) error {
	_, err := r.q.ExecContext(ctx, `UPDATE technicians SET today_earnings = 0`)
	return err
}

func (r *TechnicianRepository) exec(ctx context.Context, query string, args ...any) error {
	result, err := r.q.ExecContext(ctx, query, args...)
	if err != nil {
		return err
	}

	ok, err := affected(result)
	if err != nil {
		return err
	}
	if !ok {
		return repository.ErrNotFound
	}
	return nil
}

func scanTechnician(row rowScanner) (*domain.Technician, error) {
	var tech domain.Technician
	var locationUpdatedAt sql.NullTime

	err := row.Scan(
		&tech.UserID,
		&tech.Name,
		&tech.Phone,
		&tech.IsOnline,
		&tech.CanAcceptJobs,
		&tech.Lat,
		&tech.Lng,
		&tech.LocationAddress,
		&locationUpdatedAt,
		&tech.Wallet.Balance,
		&tech.Wallet.LockedAmount,
		&tech.Wallet.CommissionDue,
		&tech.Wallet.CODLimit,
		&tech.Stats.TodayEarnings,
		&tech.Stats.CompletedJobs,
		&tech.Stats.TotalJobs,
		&tech.Stats.Rating,
		&tech.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	if locationUpdatedAt.Valid {
		tech.LocationUpdatedAt = locationUpdatedAt.Time
	}

	return &tech, nil
}
