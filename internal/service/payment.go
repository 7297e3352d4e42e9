package service

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/google/uuid"

	"dispatch/internal/domain"
)

// ErrPaymentNotVerified is returned when the gateway does not confirm the payment.
var ErrPaymentNotVerified = errors.New("payment not verified by gateway")

// PaymentOracle is the gateway adapter. Implementations wrap a real payment
// provider; the sandbox oracle below is used when no provider is configured.
type PaymentOracle interface {
	// CreateOrder registers an expected payment and returns the gateway's
	// order reference to hand to the client.
	CreateOrder(ctx context.Context, jobID string, amount float64) (string, error)

	// VerifyPayment checks a gateway reference against the expected order.
	VerifyPayment(ctx context.Context, jobID, gatewayRef string) (bool, error)
}

// PaymentService bridges gateway confirmations into the job state machine.
type PaymentService struct {
	oracle PaymentOracle
	jobs   *JobService
}

// NewPaymentService creates a new PaymentService.
func NewPaymentService(oracle PaymentOracle, jobs *JobService) *PaymentService {
	return &PaymentService{oracle: oracle, jobs: jobs}
}

// CreateOrderRequest contains the parameters for starting a payment.
type CreateOrderRequest struct {
	JobID string
}

// CreateOrderResponse contains the gateway order reference.
type CreateOrderResponse struct {
	JobID    string
	OrderRef string
	Amount   float64
}

// CreateOrder opens a gateway order for the job's price. The job must still
// be payable: unpaid and not terminal.
func (s *PaymentService) CreateOrder(ctx context.Context, req CreateOrderRequest) (*CreateOrderResponse, error) {
	if req.JobID == "" {
		return nil, ErrInvalidJobID
	}

	job, err := s.jobs.GetJob(ctx, req.JobID)
	if err != nil {
		return nil, err
	}
	if job.Status.Terminal() {
		return nil, ErrJobAlreadyTerminal
	}
	if job.PaymentStatus != domain.PaymentStatusUnpaid {
		return nil, ErrJobUnavailable
	}

	ref, err := s.oracle.CreateOrder(ctx, job.ID, job.Price)
	if err != nil {
		return nil, err
	}

	return &CreateOrderResponse{JobID: job.ID, OrderRef: ref, Amount: job.Price}, nil
}

// ConfirmPaymentRequest contains the gateway callback parameters.
type ConfirmPaymentRequest struct {
	JobID      string
	GatewayRef string
}

// ConfirmPayment verifies the gateway reference and, on success, marks the
// job paid and fires the payment broadcasts.
func (s *PaymentService) ConfirmPayment(ctx context.Context, req ConfirmPaymentRequest) (*domain.Job, error) {
	if req.JobID == "" {
		return nil, ErrInvalidJobID
	}

	verified, err := s.oracle.VerifyPayment(ctx, req.JobID, req.GatewayRef)
	if err != nil {
		return nil, err
	}
	if !verified {
		return nil, ErrPaymentNotVerified
	}

	return s.jobs.PaymentSuccess(ctx, req.JobID)
}

// SandboxOracle is an in-memory PaymentOracle that accepts any reference it
// issued. Used in development and tests; production wires a real provider.
type SandboxOracle struct {
	mu     sync.Mutex
	orders map[string]string // jobID -> order ref
}

// NewSandboxOracle creates a new SandboxOracle.
func NewSandboxOracle() *SandboxOracle {
	return &SandboxOracle{orders: make(map[string]string)}
}

// CreateOrder issues a synthetic order reference for the job.
func (o *SandboxOracle) CreateOrder(_ context.Context, jobID string, _ float64) (string, error) {
	o.mu.Lock()
	defer o.mu.Unlock()

	ref := fmt.Sprintf("sandbox_%s", uuid.New().String())
	o.orders[jobID] = ref
	return ref, nil
}

// VerifyPayment accepts the reference previously issued for the job.
func (o *SandboxOracle) VerifyPayment(_ context.Context, jobID, gatewayRef string) (bool, error) {
	o.mu.Lock()
	defer o.mu.Unlock()

	ref, ok := o.orders[jobID]
	return ok && ref == gatewayRef, nil
}
