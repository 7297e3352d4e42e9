package tests

import (
	"context"
	"testing"

	"dispatch/internal/domain"
	"dispatch/internal/service"
)

func TestPaymentFlow_SandboxOracle(t *testing.T) {
	f := newJobFixture()
	ctx := context.Background()

	oracle := service.NewSandboxOracle()
	payments := service.NewPaymentService(oracle, f.svc)

	job, err := f.svc.Request(ctx, postpaidRequest())
	if err != nil {
		t.Fatalf("Request failed: %v", err)
	}

	order, err := payments.CreateOrder(ctx, service.CreateOrderRequest{JobID: job.ID})
	if err != nil {
		t.Fatalf("CreateOrder failed: %v", err)
	}
	if order.Amount != job.Price {
		t.Errorf("expected order amount %.2f, got %.2f", job.Price, order.Amount)
	}
	if order.OrderRef == "" {
		t.Error("expected gateway order reference")
	}

	// Bogus reference is refused.
	_, err = payments.ConfirmPayment(ctx, service.ConfirmPaymentRequest{JobID: job.ID, GatewayRef: "forged"})
	if err != service.ErrPaymentNotVerified {
		t.Errorf("expected ErrPaymentNotVerified, got %v", err)
	}
	if stored := f.jobs.GetJob(job.ID); stored.PaymentStatus != domain.PaymentStatusUnpaid {
		t.Errorf("job should remain UNPAID after failed verification, got %s", stored.PaymentStatus)
	}

	// The issued reference confirms.
	confirmed, err := payments.ConfirmPayment(ctx, service.ConfirmPaymentRequest{JobID: job.ID, GatewayRef: order.OrderRef})
	if err != nil {
		t.Fatalf("ConfirmPayment failed: %v", err)
	}
	if confirmed.PaymentStatus != domain.PaymentStatusPaid {
		t.Errorf("expected PAID status, got %s", confirmed.PaymentStatus)
	}
}

func TestCreateOrder_Guards(t *testing.T) {
	f := newJobFixture()
	ctx := context.Background()

	oracle := NewMockOracle()
	payments := service.NewPaymentService(oracle, f.svc)

	if _, err := payments.CreateOrder(ctx, service.CreateOrderRequest{}); err != service.ErrInvalidJobID {
		t.Errorf("expected ErrInvalidJobID, got %v", err)
	}

	// Cancelled job is not payable.
	job, _ := f.svc.Request(ctx, postpaidRequest())
	f.svc.Cancel(ctx, service.CancelJobRequest{JobID: job.ID, CancelledBy: "customer-1"})

	_, err := payments.CreateOrder(ctx, service.CreateOrderRequest{JobID: job.ID})
	if err != service.ErrJobAlreadyTerminal {
		t.Errorf("expected ErrJobAlreadyTerminal, got %v", err)
	}

	// Already-paid job is not payable again.
	paidJob, _ := f.svc.Request(ctx, postpaidRequest())
	f.svc.PaymentSuccess(ctx, paidJob.ID)

	_, err = payments.CreateOrder(ctx, service.CreateOrderRequest{JobID: paidJob.ID})
	if err != service.ErrJobUnavailable {
		t.Errorf("expected ErrJobUnavailable for paid job, got %v", err)
	}
}

func TestConfirmPayment_OracleRejects(t *testing.T) {
	f := newJobFixture()
	ctx := context.Background()

	oracle := NewMockOracle()
	oracle.VerifyResult = false
	payments := service.NewPaymentService(oracle, f.svc)

	job, _ := f.svc.Request(ctx, postpaidRequest())

	_, err := payments.ConfirmPayment(ctx, service.ConfirmPaymentRequest{JobID: job.ID, GatewayRef: "ref"})
	if err != service.ErrPaymentNotVerified {
		t.Errorf("expected ErrPaymentNotVerified, got %v", err)
	}
	if oracle.VerifyCallCount != 1 {
		t.Errorf("expected 1 verify call, got %d", oracle.VerifyCallCount)
	}
}

func TestPaymentSuccess_DoubleConfirm(t *testing.T) {
	f := newJobFixture()
	ctx := context.Background()

	job, _ := f.svc.Request(ctx, postpaidRequest())

	if _, err := f.svc.PaymentSuccess(ctx, job.ID); err != nil {
		t.Fatalf("PaymentSuccess failed: %v", err)
	}

	// A second gateway callback for the same job is rejected.
	_, err := f.svc.PaymentSuccess(ctx, job.ID)
	if err != service.ErrJobUnavailable {
		t.Errorf("expected ErrJobUnavailable on double confirm, got %v", err)
	}
}
