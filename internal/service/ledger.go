package service

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"

	"dispatch/internal/domain"
	"dispatch/internal/redis"
	"dispatch/internal/repository"
)

// DefaultCommissionRate is the platform cut applied to every completed job.
const DefaultCommissionRate = 0.20

// DefaultMinWithdrawal is the smallest amount a technician may cash out.
const DefaultMinWithdrawal = 100.0

// withdrawalLockTTL bounds how long a payout processor may hold a withdrawal.
const withdrawalLockTTL = 30 * time.Second

// LedgerService handles wallet balances, commission accrual and withdrawals.
type LedgerService struct {
	technicianRepo repository.TechnicianRepository
	txnRepo        repository.TransactionRepository
	withdrawalRepo repository.WithdrawalRepository
	lockStore      redis.LockStoreInterface

	commissionRate float64
	minWithdrawal  float64
}

// NewLedgerService creates a new LedgerService. lockStore may be nil; payout
// processing then runs without a distributed lock.
func NewLedgerService(
	technicianRepo repository.TechnicianRepository,
	txnRepo repository.TransactionRepository,
	withdrawalRepo repository.WithdrawalRepository,
	lockStore redis.LockStoreInterface,
	commissionRate float64,
	minWithdrawal float64,
) *LedgerService {
	if commissionRate <= 0 || commissionRate >= 1 {
		commissionRate = DefaultCommissionRate
	}
	if minWithdrawal <= 0 {
		minWithdrawal = DefaultMinWithdrawal
	}

	return &LedgerService{
		technicianRepo: technicianRepo,
		txnRepo:        txnRepo,
		withdrawalRepo: withdrawalRepo,
		lockStore:      lockStore,
		commissionRate: commissionRate,
		minWithdrawal:  minWithdrawal,
	}
}

// SplitPrice divides a job price into platform commission and technician
// earnings. Commission is rounded to the nearest whole unit and earnings are
// derived by subtraction, so the two always sum back to the price exactly.
func (s *LedgerService) SplitPrice(price float64) (commission, earnings float64) {
	commission = math.Round(price * s.commissionRate)
	earnings = price - commission
	return commission, earnings
}

// SettleJob credits the technician's earnings and accrues the platform
// commission for a completed job. The repositories are passed in rather than
// taken from the service so the caller can supply transaction-scoped ones.
func (s *LedgerService) SettleJob(
	ctx context.Context,
	technicianRepo repository.TechnicianRepository,
	txnRepo repository.TransactionRepository,
	job *domain.Job,
) (*domain.Settlement, error) {
	commission, earnings := s.SplitPrice(job.Price)

	if err := technicianRepo.AddBalance(ctx, job.TechnicianID, earnings); err != nil {
		return nil, err
	}
	if err := technicianRepo.AddCommissionDue(ctx, job.TechnicianID, commission); err != nil {
		return nil, err
	}

	now := time.Now()
	credit := &domain.Transaction{
		ID:           uuid.New().String(),
		TechnicianID: job.TechnicianID,
		Type:         domain.TransactionTypeCredit,
		Amount:       earnings,
		Description:  fmt.Sprintf("Earnings for job %s", job.ID),
		JobID:        job.ID,
		Status:       domain.TransactionStatusCompleted,
		Metadata: map[string]string{
			"price":      fmt.Sprintf("%.2f", job.Price),
			"commission": fmt.Sprintf("%.2f", commission),
		},
		CreatedAt: now,
	}
	if err := txnRepo.Create(ctx, credit); err != nil {
		return nil, err
	}

	// Commission is tracked as dues, not withheld from the balance; the debit
	// entry records the obligation against the job.
	debit := &domain.Transaction{
		ID:           uuid.New().String(),
		TechnicianID: job.TechnicianID,
		Type:         domain.TransactionTypeDebit,
		Amount:       commission,
		Description:  fmt.Sprintf("Commission for job %s", job.ID),
		JobID:        job.ID,
		Status:       domain.TransactionStatusPending,
		CreatedAt:    now,
	}
	if err := txnRepo.Create(ctx, debit); err != nil {
		return nil, err
	}

	return &domain.Settlement{
		ID:             uuid.New().String(),
		JobID:          job.ID,
		TechnicianID:   job.TechnicianID,
		Price:          job.Price,
		CommissionRate: s.commissionRate,
		Commission:     commission,
		Earnings:       earnings,
		CompletedAt:    job.CompletedAt,
		CreatedAt:      now,
	}, nil
}

// PayCommissionRequest contains the parameters for clearing commission dues.
type PayCommissionRequest struct {
	TechnicianID string
	Amount       float64
}

// PayCommission clears commission dues against an out-of-band payment.
// At most the outstanding due is settled; the wallet balance is untouched
// because commission is never withheld from earnings.
func (s *LedgerService) PayCommission(ctx context.Context, req PayCommissionRequest) (float64, error) {
	if req.TechnicianID == "" {
		return 0, ErrInvalidTechnicianID
	}
	if req.Amount <= 0 {
		return 0, ErrInvalidAmount
	}

	settled, err := s.technicianRepo.SettleCommissionDue(ctx, req.TechnicianID, req.Amount)
	if err != nil {
		return 0, err
	}
	if settled <= 0 {
		return 0, nil
	}

	txn := &domain.Transaction{
		ID:           uuid.New().String(),
		TechnicianID: req.TechnicianID,
		Type:         domain.TransactionTypeSettlement,
		Amount:       settled,
		Description:  "Commission settlement",
		Status:       domain.TransactionStatusCompleted,
		CreatedAt:    time.Now(),
	}
	if err := s.txnRepo.Create(ctx, txn); err != nil {
		return 0, err
	}

	return settled, nil
}

// RequestWithdrawalRequest contains the parameters for a cash-out request.
type RequestWithdrawalRequest struct {
	TechnicianID string
	Amount       float64
	Method       domain.PayoutMethod
	Details      domain.PayoutDetails
}

// RequestWithdrawal records a pending withdrawal after checking that no
// commission is owed and the balance covers the amount on top of every
// withdrawal already in flight.
func (s *LedgerService) RequestWithdrawal(ctx context.Context, req RequestWithdrawalRequest) (*domain.Withdrawal, error) {
	if req.TechnicianID == "" {
		return nil, ErrInvalidTechnicianID
	}
	if req.Amount <= 0 {
		return nil, ErrInvalidAmount
	}
	if req.Amount < s.minWithdrawal {
		return nil, ErrBelowMinimumWithdrawal
	}
	if err := validatePayoutDetails(req.Method, req.Details); err != nil {
		return nil, err
	}

	tech, err := s.technicianRepo.GetByID(ctx, req.TechnicianID)
	if err != nil {
		return nil, err
	}

	if tech.Wallet.CommissionDue > 0 {
		return nil, ErrDuesPending
	}

	outstanding, err := s.withdrawalRepo.SumOutstandingByTechnician(ctx, req.TechnicianID)
	if err != nil {
		return nil, err
	}

	if tech.Wallet.Balance < req.Amount+outstanding {
		return nil, ErrInsufficientFunds
	}

	withdrawal := &domain.Withdrawal{
		ID:           uuid.New().String(),
		TechnicianID: req.TechnicianID,
		Amount:       req.Amount,
		Status:       domain.WithdrawalStatusPending,
		Method:       req.Method,
		Details:      req.Details,
		CreatedAt:    time.Now(),
	}

	if err := s.withdrawalRepo.Create(ctx, withdrawal); err != nil {
		return nil, err
	}

	return withdrawal, nil
}

// ProcessWithdrawal marks a pending withdrawal as paid out, debiting the
// wallet. A Redis lock serializes concurrent processors for the same
// withdrawal; the status check closes the race for anyone who slips past.
func (s *LedgerService) ProcessWithdrawal(ctx context.Context, withdrawalID, externalTxnID string) (*domain.Withdrawal, error) {
	if withdrawalID == "" {
		return nil, ErrInvalidWithdrawalID
	}

	if s.lockStore != nil {
		acquired, err := s.lockStore.AcquireWithdrawalLock(ctx, withdrawalID, withdrawalLockTTL)
		if err != nil {
			return nil, err
		}
		if !acquired {
			return nil, ErrWithdrawalLocked
		}
		defer func() {
			_ = s.lockStore.ReleaseWithdrawalLock(ctx, withdrawalID)
		}()
	}

	withdrawal, err := s.withdrawalRepo.GetByID(ctx, withdrawalID)
	if err != nil {
		return nil, err
	}

	if withdrawal.Status != domain.WithdrawalStatusPending {
		return nil, ErrWithdrawalNotPending
	}

	ok, err := s.technicianRepo.DeductBalanceIf(ctx, withdrawal.TechnicianID, withdrawal.Amount)
	if err != nil {
		return nil, err
	}
	if !ok {
		// Leave the withdrawal pending; it can be processed once the
		// balance recovers.
		return nil, ErrInsufficientBalance
	}

	now := time.Now()
	if err := s.withdrawalRepo.UpdateStatus(ctx, withdrawalID, domain.WithdrawalStatusCompleted, externalTxnID, now); err != nil {
		return nil, err
	}

	txn := &domain.Transaction{
		ID:           uuid.New().String(),
		TechnicianID: withdrawal.TechnicianID,
		Type:         domain.TransactionTypeDebit,
		Amount:       withdrawal.Amount,
		Description:  fmt.Sprintf("Withdrawal %s", withdrawal.ID),
		Status:       domain.TransactionStatusCompleted,
		Metadata:     map[string]string{"external_txn_id": externalTxnID},
		CreatedAt:    now,
	}
	if err := s.txnRepo.Create(ctx, txn); err != nil {
		return nil, err
	}

	withdrawal.Status = domain.WithdrawalStatusCompleted
	withdrawal.ExternalTxnID = externalTxnID
	withdrawal.ProcessedAt = now
	return withdrawal, nil
}

// GetWallet returns the technician's wallet snapshot.
func (s *LedgerService) GetWallet(ctx context.Context, technicianID string) (*domain.Wallet, error) {
	if technicianID == "" {
		return nil, ErrInvalidTechnicianID
	}

	tech, err := s.technicianRepo.GetByID(ctx, technicianID)
	if err != nil {
		return nil, err
	}
	return &tech.Wallet, nil
}

// GetTransactions returns the technician's ledger history.
func (s *LedgerService) GetTransactions(ctx context.Context, technicianID string) ([]*domain.Transaction, error) {
	if technicianID == "" {
		return nil, ErrInvalidTechnicianID
	}
	return s.txnRepo.GetByTechnician(ctx, technicianID)
}

// GetWithdrawals returns the technician's withdrawal history.
func (s *LedgerService) GetWithdrawals(ctx context.Context, technicianID string) ([]*domain.Withdrawal, error) {
	if technicianID == "" {
		return nil, ErrInvalidTechnicianID
	}
	return s.withdrawalRepo.GetByTechnician(ctx, technicianID)
}

func validatePayoutDetails(method domain.PayoutMethod, details domain.PayoutDetails) error {
	switch method {
	case domain.PayoutMethodBank:
		if details.AccountName == "" || details.AccountNumber == "" || details.IFSC == "" {
			return ErrInvalidPayoutDetails
		}
	case domain.PayoutMethodUPI:
		if details.UPIHandle == "" {
			return ErrInvalidPayoutDetails
		}
	default:
		return ErrInvalidPayoutDetails
	}
	return nil
}
