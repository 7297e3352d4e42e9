package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"

	"dispatch/internal/domain"
	"dispatch/internal/repository"
)

// TransactionRepository is a PostgreSQL implementation of
// repository.TransactionRepository.
type TransactionRepository struct {
	q Querier
}

// NewTransactionRepository creates a new PostgreSQL transaction repository.
func NewTransactionRepository(db *sql.DB) *TransactionRepository {
	return &TransactionRepository{q: db}
}

// NewTransactionRepositoryWithTx creates a transaction repository using a transaction.
func NewTransactionRepositoryWithTx(tx *sql.Tx) *TransactionRepository {
	return &TransactionRepository{q: tx}
}

// Create appends a ledger entry.
func (r *TransactionRepository) Create(ctx context.Context, txn *domain.Transaction) error {
	query := `
		INSERT INTO transactions (id, technician_id, type, amount, description, job_id, status, metadata, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`

	var metadata []byte
	if len(txn.Metadata) > 0 {
		var err error
		metadata, err = json.Marshal(txn.Metadata)
		if err != nil {
			return err
		}
	}

	_, err := r.q.ExecContext(ctx, query,
		txn.ID,
		txn.TechnicianID,
		txn.Type,
		txn.Amount,
		txn.Description,
		nullString(txn.JobID),
		txn.Status,
		metadata,
		txn.CreatedAt,
	)

	return err
}

// GetByID retrieves a ledger entry.
func (r *TransactionRepository) GetByID(ctx context.Context, id string) (*domain.Transaction, error) {
	query := `
		SELECT id, technician_id, type, amount, description, job_id, status, metadata, created_at
		FROM transactions WHERE id = $1
	`

	txn, err := scanTransaction(r.q.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}
	return txn, nil
}

// GetByTechnician retrieves a technician's entries, newest first.
func (r *TransactionRepository) GetByTechnician(ctx context.Context, technicianID string) ([]*domain.Transaction, error) {
	query := `
		SELECT id, technician_id, type, amount, description, job_id, status, metadata, created_at
		FROM transactions WHERE technician_id = $1 ORDER BY created_at DESC LIMIT 200
	`

	rows, err := r.q.QueryContext(ctx, query, technicianID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var txns []*domain.Transaction
	for rows.Next() {
		txn, err := scanTransaction(rows)
		if err != nil {
			return nil, err
		}
		txns = append(txns, txn)
	}
	return txns, rows.Err()
}

// MarkCompleted flips a pending entry to completed.
func (r *TransactionRepository) MarkCompleted(ctx context.Context, id string) error {
	query := `UPDATE transactions SET status = 'completed' WHERE id = $1 AND status = 'pending'`

	result, err := r.q.ExecContext(ctx, query, id)
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

func scanTransaction(row rowScanner) (*domain.Transaction, error) {
	var txn domain.Transaction
	var jobID sql.NullString
	var metadata []byte

	err := row.Scan(
		&txn.ID,
		&txn.TechnicianID,
		&txn.Type,
		&txn.Amount,
		&txn.Description,
		&jobID,
		&txn.Status,
		&metadata,
		&txn.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	txn.JobID = jobID.String
	if len(metadata) > 0 {
		if err := json.Unmarshal(metadata, &txn.Metadata); err != nil {
			return nil, err
		}
	}

	return &txn, nil
}
