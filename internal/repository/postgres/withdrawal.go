package postgres

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"dispatch/internal/domain"
	"dispatch/internal/repository"
)

// WithdrawalRepository is a PostgreSQL implementation of
// repository.WithdrawalRepository.
type WithdrawalRepository struct {
	q Querier
}

// NewWithdrawalRepository creates a new PostgreSQL withdrawal repository.
func NewWithdrawalRepository(db *sql.DB) *WithdrawalRepository {
	return &WithdrawalRepository{q: db}
}

// NewWithdrawalRepositoryWithTx creates a withdrawal repository using a transaction.
func NewWithdrawalRepositoryWithTx(tx *sql.Tx) *WithdrawalRepository {
	return &WithdrawalRepository{q: tx}
}

const withdrawalColumns = `id, technician_id, amount, status, payout_method,
	COALESCE(account_name, ''), COALESCE(account_number, ''), COALESCE(ifsc, ''), COALESCE(upi_handle, ''),
	COALESCE(external_txn_id, ''), created_at, processed_at`

// Create persists a new withdrawal request.
func (r *WithdrawalRepository) Create(ctx context.Context, w *domain.Withdrawal) error {
	query := `
		INSERT INTO withdrawals (id, technician_id, amount, status, payout_method,
			account_name, account_number, ifsc, upi_handle, external_txn_id, created_at, processed_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
	`

	_, err := r.q.ExecContext(ctx, query,
		w.ID,
		w.TechnicianID,
		w.Amount,
		w.Status,
		w.Method,
		nullString(w.Details.AccountName),
		nullString(w.Details.AccountNumber),
		nullString(w.Details.IFSC),
		nullString(w.Details.UPIHandle),
		nullString(w.ExternalTxnID),
		w.CreatedAt,
		nullTime(w.ProcessedAt),
	)

	return err
}

// GetByID retrieves a withdrawal request.
func (r *WithdrawalRepository) GetByID(ctx context.Context, id string) (*domain.Withdrawal, error) {
	query := `SELECT ` + withdrawalColumns + ` FROM withdrawals WHERE id = $1`

	w, err := scanWithdrawal(r.q.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}
	return w, nil
}

// GetByTechnician retrieves a technician's withdrawal requests, newest first.
func (r *WithdrawalRepository) GetByTechnician(ctx context.Context, technicianID string) ([]*domain.Withdrawal, error) {
	query := `SELECT ` + withdrawalColumns + ` FROM withdrawals WHERE technician_id = $1 ORDER BY created_at DESC`

	rows, err := r.q.QueryContext(ctx, query, technicianID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var withdrawals []*domain.Withdrawal
	for rows.Next() {
		w, err := scanWithdrawal(rows)
		if err != nil {
			return nil, err
		}
		withdrawals = append(withdrawals, w)
	}
	return withdrawals, rows.Err()
}

// SumOutstandingByTechnician sums the technician's pending and approved
// withdrawal amounts.
func (r *WithdrawalRepository) SumOutstandingByTechnician(ctx context.Context, technicianID string) (float64, error) {
	query := `
		SELECT COALESCE(SUM(amount), 0) FROM withdrawals
		WHERE technician_id = $1 AND status IN ('pending', 'approved')
	`

	var sum float64
	if err := r.q.QueryRowContext(ctx, query, technicianID).Scan(&sum); err != nil {
		return 0, err
	}
	return sum, nil
}

// UpdateStatus transitions a withdrawal and records processing details.
func (r *WithdrawalRepository) UpdateStatus(ctx context.Context, id string, status domain.WithdrawalStatus, externalTxnID string, processedAt time.Time) error {
	query := `UPDATE withdrawals SET status = $2, external_txn_id = $3, processed_at = $4 WHERE id = $1`

	result, err := r.q.ExecContext(ctx, query, id, status, nullString(externalTxnID), nullTime(processedAt))
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

func scanWithdrawal(row rowScanner) (*domain.Withdrawal, error) {
	var w domain.Withdrawal
	var processedAt sql.NullTime

	err := row.Scan(
		&w.ID,
		&w.TechnicianID,
		&w.Amount,
		&w.Status,
		&w.Method,
		&w.Details.AccountName,
		&w.Details.AccountNumber,
		&w.Details.IFSC,
		&w.Details.UPIHandle,
		&w.ExternalTxnID,
		&w.CreatedAt,
		&processedAt,
	)
	if err != nil {
		return nil, err
	}

	if processedAt.Valid {
		w.ProcessedAt = processedAt.Time
	}

	return &w, nil
}
