package service

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"

	"dispatch/internal/domain"
	"dispatch/internal/redis"
	"dispatch/internal/relay"
	"dispatch/internal/repository"
	"dispatch/internal/repository/postgres"
)

// JobService drives the dispatch job state machine.
//
// All contested transitions (accept, status advances, completion,
// cancellation) are conditional updates in the store; the service never
// decides a race by reading first.
type JobService struct {
	db *sql.DB // nil means settle without a transaction (tests)

	jobRepo        repository.JobRepository
	technicianRepo repository.TechnicianRepository
	txnRepo        repository.TransactionRepository
	ledger         *LedgerService
	broadcaster    Broadcaster
	relay          *relay.Relay
	cache          *redis.CacheStore
}

// NewJobService creates a new JobService. broadcaster, relay and cache may be
// nil; the corresponding side effects are then skipped.
func NewJobService(
	db *sql.DB,
	jobRepo repository.JobRepository,
	technicianRepo repository.TechnicianRepository,
	txnRepo repository.TransactionRepository,
	ledger *LedgerService,
	broadcaster Broadcaster,
	locationRelay *relay.Relay,
	cache *redis.CacheStore,
) *JobService {
	return &JobService{
		db:             db,
		jobRepo:        jobRepo,
		technicianRepo: technicianRepo,
		txnRepo:        txnRepo,
		ledger:         ledger,
		broadcaster:    broadcaster,
		relay:          locationRelay,
		cache:          cache,
	}
}

// RequestJobRequest contains the parameters for creating a job.
type RequestJobRequest struct {
	CustomerID    string
	ServiceType   string
	PickupAddress string
	PickupLat     float64
	PickupLng     float64
	DestAddress   string
	DestLat       float64
	DestLng       float64
	PaymentMethod domain.PaymentMethod
	PaymentTiming domain.PaymentTiming
	Price         float64
}

// Request creates a job in REQUESTED state.
//
// Postpaid jobs are announced to the technician pool immediately. Prepaid
// jobs stay invisible to the pool until the payment gateway confirms; only
// the requesting customer is notified of the pending payment.
func (s *JobService) Request(ctx context.Context, req RequestJobRequest) (*domain.Job, error) {
	if err := validateRequest(req); err != nil {
		return nil, err
	}

	method := req.PaymentMethod
	if method == "" {
		method = domain.PaymentMethodOnline
	}
	if method == domain.PaymentMethodCOD {
		return nil, ErrCODDisabled
	}
	if method != domain.PaymentMethodOnline {
		return nil, ErrInvalidPaymentMethod
	}

	timing := req.PaymentTiming
	if timing == "" {
		timing = domain.PaymentTimingPostpaid
	}
	if timing != domain.PaymentTimingPrepaid && timing != domain.PaymentTimingPostpaid {
		return nil, ErrInvalidPaymentMethod
	}

	destAddress := req.DestAddress
	if destAddress == "" {
		destAddress = domain.DefaultDestination
	}

	job := &domain.Job{
		ID:            uuid.New().String(),
		CustomerID:    req.CustomerID,
		ServiceType:   req.ServiceType,
		PickupAddress: req.PickupAddress,
		PickupLat:     req.PickupLat,
		PickupLng:     req.PickupLng,
		DestAddress:   destAddress,
		DestLat:       req.DestLat,
		DestLng:       req.DestLng,
		Status:        domain.JobStatusRequested,
		PaymentMethod: method,
		PaymentTiming: timing,
		PaymentStatus: domain.PaymentStatusUnpaid,
		Price:         req.Price,
		CreatedAt:     time.Now(),
	}

	if err := s.jobRepo.Create(ctx, job); err != nil {
		return nil, err
	}

	if s.broadcaster != nil {
		if timing == domain.PaymentTimingPostpaid {
			s.broadcaster.BroadcastGlobal(EventJobRequested, jobPayload(job))
		} else {
			s.broadcaster.BroadcastToUser(job.CustomerID, EventJobRequested, jobPayload(job))
		}
	}

	return job, nil
}

// AcceptJobRequest contains the parameters for accepting a job.
type AcceptJobRequest struct {
	JobID        string
	TechnicianID string
}

// Accept assigns the technician to the job. When several technicians race,
// the store commits exactly one winner; the rest get ErrJobUnavailable.
// Re-accept by the winner is idempotent and keeps the original arrival OTP.
func (s *JobService) Accept(ctx context.Context, req AcceptJobRequest) (*domain.Job, error) {
	if req.JobID == "" {
		return nil, ErrInvalidJobID
	}
	if req.TechnicianID == "" {
		return nil, ErrInvalidTechnicianID
	}

	tech, err := s.technicianRepo.GetOrCreate(ctx, req.TechnicianID)
	if err != nil {
		return nil, err
	}
	if !tech.CanAcceptJobs {
		return nil, ErrTechnicianNotPermitted
	}

	otp, err := generateOTP(arrivalOTPDigits)
	if err != nil {
		return nil, err
	}

	won, err := s.jobRepo.Accept(ctx, req.JobID, req.TechnicianID, otp)
	if err != nil {
		return nil, err
	}
	if !won {
		// Distinguish "never existed" from "someone else got it".
		if _, err := s.jobRepo.GetByID(ctx, req.JobID); err != nil {
			return nil, err
		}
		return nil, ErrJobUnavailable
	}

	job, err := s.jobRepo.GetByID(ctx, req.JobID)
	if err != nil {
		return nil, err
	}

	s.invalidateJob(ctx, job.ID)

	if s.broadcaster != nil {
		payload := jobPayload(job)
		s.broadcaster.BroadcastToJob(job.ID, EventJobAccepted, payload)
		// Pool clients drop the job from their feed on this event.
		s.broadcaster.BroadcastGlobal(EventJobAccepted, payload)
	}

	return job, nil
}

// VerifyArrivalRequest contains the parameters for the arrival handshake.
type VerifyArrivalRequest struct {
	JobID        string
	TechnicianID string
	OTP          string
}

// VerifyArrival checks the customer's 4-digit code and moves the job to ARRIVED.
func (s *JobService) VerifyArrival(ctx context.Context, req VerifyArrivalRequest) (*domain.Job, error) {
	job, err := s.assignedJob(ctx, req.JobID, req.TechnicianID)
	if err != nil {
		return nil, err
	}

	if !isNumericOTP(req.OTP, arrivalOTPDigits) {
		return nil, ErrMalformedOTP
	}
	if req.OTP != job.ArrivalOTP {
		return nil, ErrInvalidOTP
	}

	ok, err := s.jobRepo.UpdateStatusFrom(ctx, job.ID, domain.JobStatusAccepted, domain.JobStatusArrived)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrJobUnavailable
	}

	job.Status = domain.JobStatusArrived
	s.invalidateJob(ctx, job.ID)

	if s.broadcaster != nil {
		s.broadcaster.BroadcastToJob(job.ID, EventJobArrived, jobPayload(job))
	}

	return job, nil
}

// StartServiceRequest contains the parameters for starting work.
type StartServiceRequest struct {
	JobID        string
	TechnicianID string
}

// StartService moves the job from ARRIVED to IN_PROGRESS.
func (s *JobService) StartService(ctx context.Context, req StartServiceRequest) (*domain.Job, error) {
	job, err := s.assignedJob(ctx, req.JobID, req.TechnicianID)
	if err != nil {
		return nil, err
	}

	ok, err := s.jobRepo.UpdateStatusFrom(ctx, job.ID, domain.JobStatusArrived, domain.JobStatusInProgress)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrJobUnavailable
	}

	job.Status = domain.JobStatusInProgress
	s.invalidateJob(ctx, job.ID)

	if s.broadcaster != nil {
		s.broadcaster.BroadcastToJob(job.ID, EventJobInProgress, jobPayload(job))
	}

	return job, nil
}

// EndServiceRequest contains the parameters for ending work.
type EndServiceRequest struct {
	JobID        string
	TechnicianID string
}

// EndService generates the 5-digit completion code for an IN_PROGRESS job and
// notifies the job room. The job stays IN_PROGRESS until the code is verified.
func (s *JobService) EndService(ctx context.Context, req EndServiceRequest) (*domain.Job, error) {
	job, err := s.assignedJob(ctx, req.JobID, req.TechnicianID)
	if err != nil {
		return nil, err
	}
	if job.Status != domain.JobStatusInProgress {
		return nil, ErrJobUnavailable
	}

	otp, err := generateOTP(completionOTPDigits)
	if err != nil {
		return nil, err
	}

	ok, err := s.jobRepo.SetCompletionOTP(ctx, job.ID, otp)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrJobUnavailable
	}

	job.CompletionOTP = otp

	if s.broadcaster != nil {
		payload := jobPayload(job)
		payload["completion_otp"] = otp
		s.broadcaster.BroadcastToJob(job.ID, EventServiceEnded, payload)
	}

	return job, nil
}

// PaymentSuccess records a confirmed gateway payment for the job. For prepaid
// jobs still in REQUESTED state this is the moment the job becomes visible to
// the technician pool.
func (s *JobService) PaymentSuccess(ctx context.Context, jobID string) (*domain.Job, error) {
	if jobID == "" {
		return nil, ErrInvalidJobID
	}

	ok, err := s.jobRepo.MarkPaid(ctx, jobID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrJobUnavailable
	}

	job, err := s.jobRepo.GetByID(ctx, jobID)
	if err != nil {
		return nil, err
	}

	s.invalidateJob(ctx, job.ID)

	if s.broadcaster != nil {
		payload := jobPayload(job)
		s.broadcaster.BroadcastToJob(job.ID, EventPaymentSuccess, payload)
		if job.PaymentTiming == domain.PaymentTimingPrepaid && job.Status == domain.JobStatusRequested {
			s.broadcaster.BroadcastGlobal(EventJobRequested, payload)
		}
	}

	return job, nil
}

// CompleteJobRequest contains the parameters for completing a job.
type CompleteJobRequest struct {
	JobID        string
	TechnicianID string
	OTP          string
}

// CompleteJobResponse contains the completed job and its settlement.
type CompleteJobResponse struct {
	Job        *domain.Job
	Settlement *domain.Settlement
}

// Complete verifies the completion code, finalizes the job and settles the
// ledger. The customer handing over the code is itself the payment
// confirmation for postpaid jobs, so completion flips payment to VERIFIED
// regardless of a prior gateway signal. The wallet credit, commission
// accrual, ledger entry and stats update commit in one database transaction
// when a handle is available.
func (s *JobService) Complete(ctx context.Context, req CompleteJobRequest) (*CompleteJobResponse, error) {
	job, err := s.assignedJob(ctx, req.JobID, req.TechnicianID)
	if err != nil {
		return nil, err
	}

	if !isNumericOTP(req.OTP, completionOTPDigits) {
		return nil, ErrMalformedOTP
	}
	if job.CompletionOTP == "" || req.OTP != job.CompletionOTP {
		return nil, ErrInvalidOTP
	}

	now := time.Now()
	ok, err := s.jobRepo.MarkCompleted(ctx, job.ID, now)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrJobUnavailable
	}

	job.Status = domain.JobStatusCompleted
	job.PaymentStatus = domain.PaymentStatusVerified
	job.CompletedAt = now

	settlement, err := s.settle(ctx, job)
	if err != nil {
		return nil, err
	}

	if s.relay != nil {
		s.relay.Remove(job.ID)
	}
	s.invalidateJob(ctx, job.ID)
	s.invalidateTechnician(ctx, job.TechnicianID)

	if s.broadcaster != nil {
		payload := jobPayload(job)
		payload["earnings"] = settlement.Earnings
		payload["commission"] = settlement.Commission
		s.broadcaster.BroadcastToJob(job.ID, EventJobCompleted, payload)
		s.broadcaster.BroadcastToUser(job.TechnicianID, EventJobCompleted, payload)
	}

	return &CompleteJobResponse{Job: job, Settlement: settlement}, nil
}

// settle runs the financial side of completion: earnings credit, commission
// accrual, ledger entry and stats bump.
func (s *JobService) settle(ctx context.Context, job *domain.Job) (*domain.Settlement, error) {
	if s.db == nil {
		settlement, err := s.ledger.SettleJob(ctx, s.technicianRepo, s.txnRepo, job)
		if err != nil {
			return nil, err
		}
		if err := s.technicianRepo.RecordCompletedJob(ctx, job.TechnicianID, settlement.Earnings); err != nil {
			return nil, err
		}
		return settlement, nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	techRepo := postgres.NewTechnicianRepositoryWithTx(tx)
	txnRepo := postgres.NewTransactionRepositoryWithTx(tx)

	settlement, err := s.ledger.SettleJob(ctx, techRepo, txnRepo, job)
	if err != nil {
		return nil, err
	}
	if err = techRepo.RecordCompletedJob(ctx, job.TechnicianID, settlement.Earnings); err != nil {
		return nil, err
	}

	if err = tx.Commit(); err != nil {
		return nil, err
	}
	return settlement, nil
}

// CancelJobRequest contains the parameters for cancelling a job.
type CancelJobRequest struct {
	JobID       string
	CancelledBy string
	Reason      string
}

// Cancel terminates a non-terminal job and clears its live-location feed.
func (s *JobService) Cancel(ctx context.Context, req CancelJobRequest) (*domain.Job, error) {
	if req.JobID == "" {
		return nil, ErrInvalidJobID
	}

	ok, err := s.jobRepo.Cancel(ctx, req.JobID, req.Reason, time.Now())
	if err != nil {
		return nil, err
	}
	if !ok {
		if _, err := s.jobRepo.GetByID(ctx, req.JobID); err != nil {
			return nil, err
		}
		return nil, ErrJobAlreadyTerminal
	}

	job, err := s.jobRepo.GetByID(ctx, req.JobID)
	if err != nil {
		return nil, err
	}

	if s.relay != nil {
		s.relay.Remove(job.ID)
	}
	s.invalidateJob(ctx, job.ID)

	if s.broadcaster != nil {
		payload := jobPayload(job)
		payload["cancelled_by"] = req.CancelledBy
		s.broadcaster.BroadcastToJob(job.ID, EventJobCancelled, payload)
		if job.TechnicianID != "" {
			s.broadcaster.BroadcastToUser(job.TechnicianID, EventJobCancelled, payload)
		} else {
			// Still unassigned; tell the pool to drop it from open-job feeds.
			s.broadcaster.BroadcastGlobal(EventJobCancelled, payload)
		}
	}

	return job, nil
}

// GetJob retrieves a job, serving the hot status fields from cache when fresh.
func (s *JobService) GetJob(ctx context.Context, jobID string) (*domain.Job, error) {
	if jobID == "" {
		return nil, ErrInvalidJobID
	}

	job, err := s.jobRepo.GetByID(ctx, jobID)
	if err != nil {
		return nil, err
	}

	if s.cache != nil {
		_ = s.cache.SetJob(ctx, &redis.CachedJob{
			ID:           job.ID,
			CustomerID:   job.CustomerID,
			Status:       string(job.Status),
			TechnicianID: job.TechnicianID,
			Price:        job.Price,
		})
	}

	return job, nil
}

// ListOpenJobs returns jobs still waiting for a technician.
func (s *JobService) ListOpenJobs(ctx context.Context) ([]*domain.Job, error) {
	return s.jobRepo.GetByStatus(ctx, domain.JobStatusRequested)
}

// ListJobs returns recent jobs across all statuses.
func (s *JobService) ListJobs(ctx context.Context) ([]*domain.Job, error) {
	return s.jobRepo.GetAll(ctx)
}

// ActiveJobs returns the technician's non-terminal jobs.
func (s *JobService) ActiveJobs(ctx context.Context, technicianID string) ([]*domain.Job, error) {
	if technicianID == "" {
		return nil, ErrInvalidTechnicianID
	}
	return s.jobRepo.GetActiveByTechnician(ctx, technicianID)
}

// assignedJob loads the job and checks it is live and assigned to the caller.
func (s *JobService) assignedJob(ctx context.Context, jobID, technicianID string) (*domain.Job, error) {
	if jobID == "" {
		return nil, ErrInvalidJobID
	}
	if technicianID == "" {
		return nil, ErrInvalidTechnicianID
	}

	job, err := s.jobRepo.GetByID(ctx, jobID)
	if err != nil {
		return nil, err
	}

	if job.Status.Terminal() {
		return nil, ErrJobAlreadyTerminal
	}
	if job.TechnicianID != technicianID {
		return nil, ErrTechnicianNotAssigned
	}

	return job, nil
}

func (s *JobService) invalidateJob(ctx context.Context, jobID string) {
	if s.cache != nil {
		_ = s.cache.InvalidateJob(ctx, jobID)
	}
}

func (s *JobService) invalidateTechnician(ctx context.Context, technicianID string) {
	if s.cache != nil {
		_ = s.cache.InvalidateTechnician(ctx, technicianID)
	}
}

func validateRequest(req RequestJobRequest) error {
	if req.CustomerID == "" {
		return ErrInvalidCustomerID
	}
	if req.ServiceType == "" {
		return ErrInvalidServiceType
	}
	if !isValidLatitude(req.PickupLat) || !isValidLongitude(req.PickupLng) {
		return ErrInvalidPickupLocation
	}
	if req.Price <= 0 {
		return ErrInvalidPrice
	}
	return nil
}

func isValidLatitude(lat float64) bool {
	return lat >= -90 && lat <= 90
}

func isValidLongitude(lng float64) bool {
	return lng >= -180 && lng <= 180
}

func isNumericOTP(s string, digits int) bool {
	if len(s) != digits {
		return false
	}
	for _, c := range s {
		if c < '0' || c > '9' {
			return false
		}
	}
	return true
}

func jobPayload(job *domain.Job) map[string]any {
	return map[string]any{
		"job_id":         job.ID,
		"customer_id":    job.CustomerID,
		"service_type":   job.ServiceType,
		"status":         string(job.Status),
		"technician_id":  job.TechnicianID,
		"pickup_address": job.PickupAddress,
		"pickup_lat":     job.PickupLat,
		"pickup_lng":     job.PickupLng,
		"payment_timing": string(job.PaymentTiming),
		"payment_status": string(job.PaymentStatus),
		"price":          job.Price,
	}
}
