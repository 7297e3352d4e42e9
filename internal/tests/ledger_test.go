package tests

import (
	"context"
	"testing"
	"time"

	"dispatch/internal/domain"
	"dispatch/internal/service"
)

// ledgerFixture bundles the collaborators for ledger tests.
type ledgerFixture struct {
	technicians *MockTechnicianRepository
	txns        *MockTransactionRepository
	withdrawals *MockWithdrawalRepository
	locks       *MockLockStore
	svc         *service.LedgerService
}

func newLedgerFixture() *ledgerFixture {
	f := &ledgerFixture{
		technicians: NewMockTechnicianRepository(),
		txns:        NewMockTransactionRepository(),
		withdrawals: NewMockWithdrawalRepository(),
		locks:       NewMockLockStore(),
	}
	f.svc = service.NewLedgerService(
		f.technicians, f.txns, f.withdrawals, f.locks,
		service.DefaultCommissionRate, service.DefaultMinWithdrawal,
	)
	return f
}

func (f *ledgerFixture) addTechnician(id string, balance, due float64) {
	f.technicians.AddTechnician(&domain.Technician{
		UserID:        id,
		CanAcceptJobs: true,
		Wallet:        domain.Wallet{Balance: balance, CommissionDue: due},
	})
}

func bankDetails() domain.PayoutDetails {
	return domain.PayoutDetails{
		AccountName:   "A Technician",
		AccountNumber: "123456789",
		IFSC:          "HDFC0001234",
	}
}

func TestSplitPrice_SumsToPrice(t *testing.T) {
	f := newLedgerFixture()

	cases := []struct {
		price          float64
		wantCommission float64
	}{
		{500, 100},
		{100, 20},
		{99, 20},   // 19.8 rounds up
		{101, 20},  // 20.2 rounds down
		{1, 0},     // 0.2 rounds to zero
		{2.5, 1},   // 0.5 rounds up
		{333, 67},  // 66.6 rounds up
		{1249, 250},
	}

	for _, tc := range cases {
		commission, earnings := f.svc.SplitPrice(tc.price)
		if commission != tc.wantCommission {
			t.Errorf("price %.2f: expected commission %.2f, got %.2f", tc.price, tc.wantCommission, commission)
		}
		if commission+earnings != tc.price {
			t.Errorf("price %.2f: commission %.2f + earnings %.2f != price", tc.price, commission, earnings)
		}
	}
}

func TestPayCommission(t *testing.T) {
	f := newLedgerFixture()
	ctx := context.Background()
	f.addTechnician("tech-1", 500, 120)

	settled, err := f.svc.PayCommission(ctx, service.PayCommissionRequest{TechnicianID: "tech-1", Amount: 200})
	if err != nil {
		t.Fatalf("PayCommission failed: %v", err)
	}

	// Only the outstanding due is settled, not the full requested amount.
	if settled != 120 {
		t.Errorf("expected 120 settled, got %.2f", settled)
	}

	tech := f.technicians.GetTechnician("tech-1")
	if tech.Wallet.CommissionDue != 0 {
		t.Errorf("expected zero dues, got %.2f", tech.Wallet.CommissionDue)
	}
	// Dues are paid out of band; the wallet balance is never debited.
	if tech.Wallet.Balance != 500 {
		t.Errorf("balance should be untouched at 500, got %.2f", tech.Wallet.Balance)
	}
	if f.txns.CountTransactions() != 1 {
		t.Errorf("expected settlement ledger entry, got %d entries", f.txns.CountTransactions())
	}
}

func TestPayCommission_DuesExceedBalance(t *testing.T) {
	f := newLedgerFixture()
	ctx := context.Background()
	f.addTechnician("tech-1", 50, 120)

	// Clearing dues does not depend on the wallet covering them.
	settled, err := f.svc.PayCommission(ctx, service.PayCommissionRequest{TechnicianID: "tech-1", Amount: 120})
	if err != nil {
		t.Fatalf("PayCommission failed: %v", err)
	}
	if settled != 120 {
		t.Errorf("expected 120 settled, got %.2f", settled)
	}

	tech := f.technicians.GetTechnician("tech-1")
	if tech.Wallet.CommissionDue != 0 {
		t.Errorf("expected zero dues, got %.2f", tech.Wallet.CommissionDue)
	}
	if tech.Wallet.Balance != 50 {
		t.Errorf("balance should be untouched at 50, got %.2f", tech.Wallet.Balance)
	}
}

func TestPayCommission_Validation(t *testing.T) {
	f := newLedgerFixture()
	ctx := context.Background()

	if _, err := f.svc.PayCommission(ctx, service.PayCommissionRequest{Amount: 100}); err != service.ErrInvalidTechnicianID {
		t.Errorf("expected ErrInvalidTechnicianID, got %v", err)
	}
	if _, err := f.svc.PayCommission(ctx, service.PayCommissionRequest{TechnicianID: "tech-1", Amount: 0}); err != service.ErrInvalidAmount {
		t.Errorf("expected ErrInvalidAmount, got %v", err)
	}
}

func TestRequestWithdrawal(t *testing.T) {
	f := newLedgerFixture()
	ctx := context.Background()
	f.addTechnician("tech-1", 1000, 0)

	w, err := f.svc.RequestWithdrawal(ctx, service.RequestWithdrawalRequest{
		TechnicianID: "tech-1",
		Amount:       300,
		Method:       domain.PayoutMethodBank,
		Details:      bankDetails(),
	})
	if err != nil {
		t.Fatalf("RequestWithdrawal failed: %v", err)
	}
	if w.Status != domain.WithdrawalStatusPending {
		t.Errorf("expected pending status, got %s", w.Status)
	}

	// Balance is not debited until the payout is processed.
	if tech := f.technicians.GetTechnician("tech-1"); tech.Wallet.Balance != 1000 {
		t.Errorf("balance should be untouched at 1000, got %.2f", tech.Wallet.Balance)
	}
}

func TestRequestWithdrawal_Guards(t *testing.T) {
	f := newLedgerFixture()
	ctx := context.Background()
	f.addTechnician("tech-dues", 1000, 80)
	f.addTechnician("tech-poor", 150, 0)

	cases := []struct {
		name    string
		req     service.RequestWithdrawalRequest
		wantErr error
	}{
		{
			name:    "missing technician",
			req:     service.RequestWithdrawalRequest{Amount: 300, Method: domain.PayoutMethodBank, Details: bankDetails()},
			wantErr: service.ErrInvalidTechnicianID,
		},
		{
			name:    "zero amount",
			req:     service.RequestWithdrawalRequest{TechnicianID: "tech-poor", Method: domain.PayoutMethodBank, Details: bankDetails()},
			wantErr: service.ErrInvalidAmount,
		},
		{
			name:    "below minimum",
			req:     service.RequestWithdrawalRequest{TechnicianID: "tech-poor", Amount: 50, Method: domain.PayoutMethodBank, Details: bankDetails()},
			wantErr: service.ErrBelowMinimumWithdrawal,
		},
		{
			name:    "missing bank details",
			req:     service.RequestWithdrawalRequest{TechnicianID: "tech-poor", Amount: 150, Method: domain.PayoutMethodBank},
			wantErr: service.ErrInvalidPayoutDetails,
		},
		{
			name:    "missing upi handle",
			req:     service.RequestWithdrawalRequest{TechnicianID: "tech-poor", Amount: 150, Method: domain.PayoutMethodUPI},
			wantErr: service.ErrInvalidPayoutDetails,
		},
		{
			name:    "unknown payout method",
			req:     service.RequestWithdrawalRequest{TechnicianID: "tech-poor", Amount: 150, Method: "cheque", Details: bankDetails()},
			wantErr: service.ErrInvalidPayoutDetails,
		},
		{
			name:    "commission dues outstanding",
			req:     service.RequestWithdrawalRequest{TechnicianID: "tech-dues", Amount: 300, Method: domain.PayoutMethodBank, Details: bankDetails()},
			wantErr: service.ErrDuesPending,
		},
		{
			name:    "amount exceeds balance",
			req:     service.RequestWithdrawalRequest{TechnicianID: "tech-poor", Amount: 200, Method: domain.PayoutMethodBank, Details: bankDetails()},
			wantErr: service.ErrInsufficientFunds,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := f.svc.RequestWithdrawal(ctx, tc.req)
			if err != tc.wantErr {
				t.Errorf("expected %v, got %v", tc.wantErr, err)
			}
		})
	}
}

func TestRequestWithdrawal_CountsOutstanding(t *testing.T) {
	f := newLedgerFixture()
	ctx := context.Background()
	f.addTechnician("tech-1", 1000, 0)

	// 700 already committed to an in-flight withdrawal.
	f.withdrawals.AddWithdrawal(&domain.Withdrawal{
		ID:           "w-1",
		TechnicianID: "tech-1",
		Amount:       700,
		Status:       domain.WithdrawalStatusPending,
	})

	_, err := f.svc.RequestWithdrawal(ctx, service.RequestWithdrawalRequest{
		TechnicianID: "tech-1",
		Amount:       400,
		Method:       domain.PayoutMethodBank,
		Details:      bankDetails(),
	})
	if err != service.ErrInsufficientFunds {
		t.Fatalf("expected ErrInsufficientFunds with outstanding withdrawal, got %v", err)
	}

	// 300 still fits alongside the 700 in flight.
	if _, err := f.svc.RequestWithdrawal(ctx, service.RequestWithdrawalRequest{
		TechnicianID: "tech-1",
		Amount:       300,
		Method:       domain.PayoutMethodBank,
		Details:      bankDetails(),
	}); err != nil {
		t.Fatalf("expected withdrawal within remaining balance to succeed, got %v", err)
	}
}

func TestProcessWithdrawal(t *testing.T) {
	f := newLedgerFixture()
	ctx := context.Background()
	f.addTechnician("tech-1", 1000, 0)

	w, err := f.svc.RequestWithdrawal(ctx, service.RequestWithdrawalRequest{
		TechnicianID: "tech-1",
		Amount:       300,
		Method:       domain.PayoutMethodUPI,
		Details:      domain.PayoutDetails{UPIHandle: "tech@upi"},
	})
	if err != nil {
		t.Fatalf("RequestWithdrawal failed: %v", err)
	}

	processed, err := f.svc.ProcessWithdrawal(ctx, w.ID, "bank-ref-42")
	if err != nil {
		t.Fatalf("ProcessWithdrawal failed: %v", err)
	}
	if processed.Status != domain.WithdrawalStatusCompleted {
		t.Errorf("expected completed status, got %s", processed.Status)
	}
	if processed.ExternalTxnID != "bank-ref-42" {
		t.Errorf("expected external reference recorded, got %q", processed.ExternalTxnID)
	}
	if processed.ProcessedAt.IsZero() {
		t.Error("expected processed timestamp")
	}

	if tech := f.technicians.GetTechnician("tech-1"); tech.Wallet.Balance != 700 {
		t.Errorf("expected balance 700 after payout, got %.2f", tech.Wallet.Balance)
	}
	if f.txns.CountTransactions() != 1 {
		t.Errorf("expected debit ledger entry, got %d entries", f.txns.CountTransactions())
	}
	if f.locks.IsLocked(w.ID) {
		t.Error("lock should be released after processing")
	}

	// Processing twice is rejected by the status check.
	_, err = f.svc.ProcessWithdrawal(ctx, w.ID, "bank-ref-43")
	if err != service.ErrWithdrawalNotPending {
		t.Errorf("expected ErrWithdrawalNotPending on double process, got %v", err)
	}
}

func TestProcessWithdrawal_Locked(t *testing.T) {
	f := newLedgerFixture()
	ctx := context.Background()
	f.addTechnician("tech-1", 1000, 0)

	w := &domain.Withdrawal{
		ID:           "w-locked",
		TechnicianID: "tech-1",
		Amount:       300,
		Status:       domain.WithdrawalStatusPending,
	}
	f.withdrawals.AddWithdrawal(w)

	// Another processor holds the lock.
	f.locks.AcquireWithdrawalLock(ctx, w.ID, 30*time.Second)

	_, err := f.svc.ProcessWithdrawal(ctx, w.ID, "bank-ref")
	if err != service.ErrWithdrawalLocked {
		t.Errorf("expected ErrWithdrawalLocked, got %v", err)
	}

	if stored := f.withdrawals.GetWithdrawal(w.ID); stored.Status != domain.WithdrawalStatusPending {
		t.Errorf("withdrawal should remain pending, got %s", stored.Status)
	}
}

func TestProcessWithdrawal_InsufficientBalanceStaysPending(t *testing.T) {
	f := newLedgerFixture()
	ctx := context.Background()

	// Balance drained between request and processing.
	f.addTechnician("tech-1", 100, 0)
	f.withdrawals.AddWithdrawal(&domain.Withdrawal{
		ID:           "w-1",
		TechnicianID: "tech-1",
		Amount:       300,
		Status:       domain.WithdrawalStatusPending,
	})

	_, err := f.svc.ProcessWithdrawal(ctx, "w-1", "bank-ref")
	if err != service.ErrInsufficientBalance {
		t.Fatalf("expected ErrInsufficientBalance, got %v", err)
	}

	// No partial mutation: the withdrawal stays pending and the wallet
	// is untouched, so processing can be retried later.
	if stored := f.withdrawals.GetWithdrawal("w-1"); stored.Status != domain.WithdrawalStatusPending {
		t.Errorf("expected pending status, got %s", stored.Status)
	}
	if tech := f.technicians.GetTechnician("tech-1"); tech.Wallet.Balance != 100 {
		t.Errorf("balance should be untouched at 100, got %.2f", tech.Wallet.Balance)
	}

	// Once the balance recovers the same withdrawal goes through.
	if err := f.technicians.AddBalance(ctx, "tech-1", 400); err != nil {
		t.Fatalf("AddBalance failed: %v", err)
	}
	processed, err := f.svc.ProcessWithdrawal(ctx, "w-1", "bank-ref")
	if err != nil {
		t.Fatalf("retry after balance recovery failed: %v", err)
	}
	if processed.Status != domain.WithdrawalStatusCompleted {
		t.Errorf("expected completed status, got %s", processed.Status)
	}
	if tech := f.technicians.GetTechnician("tech-1"); tech.Wallet.Balance != 200 {
		t.Errorf("expected balance 200 after payout, got %.2f", tech.Wallet.Balance)
	}
}

func TestGetWallet(t *testing.T) {
	f := newLedgerFixture()
	ctx := context.Background()
	f.addTechnician("tech-1", 420, 35)

	wallet, err := f.svc.GetWallet(ctx, "tech-1")
	if err != nil {
		t.Fatalf("GetWallet failed: %v", err)
	}
	if wallet.Balance != 420 || wallet.CommissionDue != 35 {
		t.Errorf("unexpected wallet snapshot: %+v", wallet)
	}

	if _, err := f.svc.GetWallet(ctx, ""); err != service.ErrInvalidTechnicianID {
		t.Errorf("expected ErrInvalidTechnicianID, got %v", err)
	}
}
