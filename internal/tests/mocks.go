package tests

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"dispatch/internal/domain"
	"dispatch/internal/repository"
)

// ──────────────────────────────────────────────
// MOCK JOB REPOSITORY
// ──────────────────────────────────────────────

// MockJobRepository is a mock implementation of JobRepository. Conditional
// transitions are serialized under one mutex so concurrent accept races in
// tests resolve to exactly one winner, matching the store's semantics.
type MockJobRepository struct {
	mu   sync.RWMutex
	jobs map[string]*domain.Job

	// Counters for verification
	CreateCallCount int32
	AcceptCallCount int32

	// Error injection
	CreateError error
	AcceptError error
}

// NewMockJobRepository creates a new mock job repository.
func NewMockJobRepository() *MockJobRepository {
	return &MockJobRepository{
		jobs: make(map[string]*domain.Job),
	}
}

// AddJob adds a job to the mock repository.
func (m *MockJobRepository) AddJob(job *domain.Job) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.jobs[job.ID] = job
}

func (m *MockJobRepository) Create(ctx context.Context, job *domain.Job) error {
	atomic.AddInt32(&m.CreateCallCount, 1)
	if m.CreateError != nil {
		return m.CreateError
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	copy := *job
	m.jobs[job.ID] = &copy
	return nil
}

func (m *MockJobRepository) GetByID(ctx context.Context, id string) (*domain.Job, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	job, ok := m.jobs[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	// Return a copy to avoid mutation issues.
	copy := *job
	return &copy, nil
}

func (m *MockJobRepository) GetByStatus(ctx context.Context, status domain.JobStatus) ([]*domain.Job, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var result []*domain.Job
	for _, j := range m.jobs {
		if j.Status == status {
			copy := *j
			result = append(result, &copy)
		}
	}
	return result, nil
}

func (m *MockJobRepository) GetActiveByTechnician(ctx context.Context, technicianID string) ([]*domain.Job, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var result []*domain.Job
	for _, j := range m.jobs {
		if j.TechnicianID == technicianID && !j.Status.Terminal() {
			copy := *j
			result = append(result, &copy)
		}
	}
	return result, nil
}

func (m *MockJobRepository) GetAll(ctx context.Context) ([]*domain.Job, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	result := make([]*domain.Job, 0, len(m.jobs))
	for _, j := range m.jobs {
		copy := *j
		result = append(result, &copy)
	}
	return result, nil
}

func (m *MockJobRepository) Accept(ctx context.Context, jobID, technicianID, arrivalOTP string) (bool, error) {
	atomic.AddInt32(&m.AcceptCallCount, 1)
	if m.AcceptError != nil {
		return false, m.AcceptError
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	job, ok := m.jobs[jobID]
	if !ok {
		return false, nil
	}

	switch {
	case job.Status == domain.JobStatusRequested:
		job.Status = domain.JobStatusAccepted
		job.TechnicianID = technicianID
		job.ArrivalOTP = arrivalOTP
		return true, nil
	case job.Status == domain.JobStatusAccepted && job.TechnicianID == technicianID:
		// Idempotent re-accept keeps the original OTP.
		return true, nil
	default:
		return false, nil
	}
}

func (m *MockJobRepository) UpdateStatusFrom(ctx context.Context, jobID string, from, to domain.JobStatus) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	job, ok := m.jobs[jobID]
	if !ok || job.Status != from {
		return false, nil
	}
	job.Status = to
	return true, nil
}

func (m *MockJobRepository) SetCompletionOTP(ctx context.Context, jobID, otp string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	job, ok := m.jobs[jobID]
	if !ok || job.Status != domain.JobStatusInProgress {
		return false, nil
	}
	job.CompletionOTP = otp
	return true, nil
}

func (m *MockJobRepository) MarkPaid(ctx context.Context, jobID string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	job, ok := m.jobs[jobID]
	if !ok || job.PaymentStatus != domain.PaymentStatusUnpaid || job.Status.Terminal() {
		return false, nil
	}
	job.PaymentStatus = domain.PaymentStatusPaid
	return true, nil
}

func (m *MockJobRepository) MarkCompleted(ctx context.Context, jobID string, at time.Time) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	job, ok := m.jobs[jobID]
	if !ok || (job.Status != domain.JobStatusArrived && job.Status != domain.JobStatusInProgress) {
		return false, nil
	}
	job.Status = domain.JobStatusCompleted
	job.PaymentStatus = domain.PaymentStatusVerified
	job.CompletedAt = at
	return true, nil
}

func (m *MockJobRepository) Cancel(ctx context.Context, jobID, reason string, at time.Time) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	job, ok := m.jobs[jobID]
	if !ok || job.Status.Terminal() {
		return false, nil
	}
	job.Status = domain.JobStatusCancelled
	job.CancelReason = reason
	job.CancelledAt = at
	return true, nil
}

// GetJob returns the job by ID (for test assertions).
func (m *MockJobRepository) GetJob(id string) *domain.Job {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.jobs[id]
}

// ──────────────────────────────────────────────
// MOCK TECHNICIAN REPOSITORY
// ──────────────────────────────────────────────

// MockTechnicianRepository is a mock implementation of TechnicianRepository.
type MockTechnicianRepository struct {
	mu          sync.RWMutex
	technicians map[string]*domain.Technician

	// Counters for verification
	GetOrCreateCallCount int32
	AddBalanceCallCount  int32

	// Error injection
	GetOrCreateError error
	AddBalanceError  error
}

// NewMockTechnicianRepository creates a new mock technician repository.
func NewMockTechnicianRepository() *MockTechnicianRepository {
	return &MockTechnicianRepository{
		technicians: make(map[string]*domain.Technician),
	}
}

// AddTechnician adds a technician to the mock repository.
func (m *MockTechnicianRepository) AddTechnician(tech *domain.Technician) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.technicians[tech.UserID] = tech
}

func (m *MockTechnicianRepository) GetOrCreate(ctx context.Context, userID string) (*domain.Technician, error) {
	atomic.AddInt32(&m.GetOrCreateCallCount, 1)
	if m.GetOrCreateError != nil {
		return nil, m.GetOrCreateError
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	tech, ok := m.technicians[userID]
	if !ok {
		tech = &domain.Technician{
			UserID:        userID,
			CanAcceptJobs: true,
			CreatedAt:     time.Now(),
		}
		m.technicians[userID] = tech
	}
	copy := *tech
	return &copy, nil
}

func (m *MockTechnicianRepository) GetByID(ctx context.Context, userID string) (*domain.Technician, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	tech, ok := m.technicians[userID]
	if !ok {
		return nil, repository.ErrNotFound
	}
	copy := *tech
	return &copy, nil
}

func (m *MockTechnicianRepository) GetAll(ctx context.Context) ([]*domain.Technician, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	result := make([]*domain.Technician, 0, len(m.technicians))
	for _, tech := range m.technicians {
		copy := *tech
		result = append(result, &copy)
	}
	return result, nil
}

func (m *MockTechnicianRepository) UpdateProfile(ctx context.Context, userID, name, phone string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	tech, ok := m.technicians[userID]
	if !ok {
		return repository.ErrNotFound
	}
	tech.Name = name
	tech.Phone = phone
	return nil
}

func (m *MockTechnicianRepository) SetOnline(ctx context.Context, userID string, online bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	tech, ok := m.technicians[userID]
	if !ok {
		return repository.ErrNotFound
	}
	tech.IsOnline = online
	return nil
}

func (m *MockTechnicianRepository) UpdateLocation(ctx context.Context, userID string, lat, lng float64, address string, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	tech, ok := m.technicians[userID]
	if !ok {
		return repository.ErrNotFound
	}
	tech.Lat = lat
	tech.Lng = lng
	tech.LocationAddress = address
	tech.LocationUpdatedAt = at
	return nil
}

func (m *MockTechnicianRepository) AddBalance(ctx context.Context, userID string, amount float64) error {
	atomic.AddInt32(&m.AddBalanceCallCount, 1)
	if m.AddBalanceError != nil {
		return m.AddBalanceError
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	tech, ok := m.technicians[userID]
	if !ok {
		return repository.ErrNotFound
	}
	tech.Wallet.Balance += amount
	return nil
}

func (m *MockTechnicianRepository) AddCommissionDue(ctx context.Context, userID string, amount float64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	tech, ok := m.technicians[userID]
	if !ok {
		return repository.ErrNotFound
	}
	tech.Wallet.CommissionDue += amount
	return nil
}

func (m *MockTechnicianRepository) SettleCommissionDue(ctx context.Context, userID string, amount float64) (float64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	tech, ok := m.technicians[userID]
	if !ok {
		return 0, repository.ErrNotFound
	}
	settled := amount
	if tech.Wallet.CommissionDue < settled {
		settled = tech.Wallet.CommissionDue
	}
	tech.Wallet.CommissionDue -= settled
	return settled, nil
}

func (m *MockTechnicianRepository) DeductBalanceIf(ctx context.Context, userID string, amount float64) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	tech, ok := m.technicians[userID]
	if !ok {
		return false, repository.ErrNotFound
	}
	if tech.Wallet.Balance < amount {
		return false, nil
	}
	tech.Wallet.Balance -= amount
	return true, nil
}

func (m *MockTechnicianRepository) RecordCompletedJob(ctx context.Context, userID string, earnings float64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	tech, ok := m.technicians[userID]
	if !ok {
		return repository.ErrNotFound
	}
	tech.Stats.TodayEarnings += earnings
	tech.Stats.CompletedJobs++
	tech.Stats.TotalJobs++
	return nil
}

func (m *MockTechnicianRepository) ResetDailyStats(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, tech := range m.technicians {
		tech.Stats.TodayEarnings = 0
	}
	return nil
}

// GetTechnician returns the technician (for test assertions).
func (m *MockTechnicianRepository) GetTechnician(userID string) *domain.Technician {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.technicians[userID]
}

// CountTechnicians returns the number of technicians.
func (m *MockTechnicianRepository) CountTechnicians() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.technicians)
}

// ──────────────────────────────────────────────
// MOCK TRANSACTION REPOSITORY
// ──────────────────────────────────────────────

// MockTransactionRepository is a mock implementation of TransactionRepository.
type MockTransactionRepository struct {
	mu   sync.RWMutex
	txns map[string]*domain.Transaction

	// Counters
	CreateCallCount int32

	// Error injection
	CreateError error
}

// NewMockTransactionRepository creates a new mock transaction repository.
func NewMockTransactionRepository() *MockTransactionRepository {
	return &MockTransactionRepository{
		txns: make(map[string]*domain.Transaction),
	}
}

func (m *MockTransactionRepository) Create(ctx context.Context, txn *domain.Transaction) error {
	atomic.AddInt32(&m.CreateCallCount, 1)
	if m.CreateError != nil {
		return m.CreateError
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	copy := *txn
	m.txns[txn.ID] = &copy
	return nil
}

func (m *MockTransactionRepository) GetByID(ctx context.Context, id string) (*domain.Transaction, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	txn, ok := m.txns[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	copy := *txn
	return &copy, nil
}

func (m *MockTransactionRepository) GetByTechnician(ctx context.Context, technicianID string) ([]*domain.Transaction, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var result []*domain.Transaction
	for _, txn := range m.txns {
		if txn.TechnicianID == technicianID {
			copy := *txn
			result = append(result, &copy)
		}
	}
	return result, nil
}

func (m *MockTransactionRepository) MarkCompleted(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	txn, ok := m.txns[id]
	if !ok || txn.Status != domain.TransactionStatusPending {
		return repository.ErrNotFound
	}
	txn.Status = domain.TransactionStatusCompleted
	return nil
}

// CountTransactions returns the number of ledger entries.
func (m *MockTransactionRepository) CountTransactions() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.txns)
}

// TransactionsForJob returns ledger entries tied to a job.
func (m *MockTransactionRepository) TransactionsForJob(jobID string) []*domain.Transaction {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var result []*domain.Transaction
	for _, txn := range m.txns {
		if txn.JobID == jobID {
			result = append(result, txn)
		}
	}
	return result
}

// ──────────────────────────────────────────────
// MOCK WITHDRAWAL REPOSITORY
// ──────────────────────────────────────────────

// MockWithdrawalRepository is a mock implementation of WithdrawalRepository.
type MockWithdrawalRepository struct {
	mu          sync.RWMutex
	withdrawals map[string]*domain.Withdrawal

	// Counters
	CreateCallCount int32

	// Error injection
	CreateError error
}

// NewMockWithdrawalRepository creates a new mock withdrawal repository.
func NewMockWithdrawalRepository() *MockWithdrawalRepository {
	return &MockWithdrawalRepository{
		withdrawals: make(map[string]*domain.Withdrawal),
	}
}

// AddWithdrawal adds a withdrawal to the mock repository.
func (m *MockWithdrawalRepository) AddWithdrawal(w *domain.Withdrawal) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.withdrawals[w.ID] = w
}

func (m *MockWithdrawalRepository) Create(ctx context.Context, w *domain.Withdrawal) error {
	atomic.AddInt32(&m.CreateCallCount, 1)
	if m.CreateError != nil {
		return m.CreateError
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	copy := *w
	m.withdrawals[w.ID] = &copy
	return nil
}

func (m *MockWithdrawalRepository) GetByID(ctx context.Context, id string) (*domain.Withdrawal, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	w, ok := m.withdrawals[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	copy := *w
	return &copy, nil
}

func (m *MockWithdrawalRepository) GetByTechnician(ctx context.Context, technicianID string) ([]*domain.Withdrawal, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var result []*domain.Withdrawal
	for _, w := range m.withdrawals {
		if w.TechnicianID == technicianID {
			copy := *w
			result = append(result, &copy)
		}
	}
	return result, nil
}

func (m *MockWithdrawalRepository) SumOutstandingByTechnician(ctx context.Context, technicianID string) (float64, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var sum float64
	for _, w := range m.withdrawals {
		if w.TechnicianID == technicianID && w.Status.Outstanding() {
			sum += w.Amount
		}
	}
	return sum, nil
}

func (m *MockWithdrawalRepository) UpdateStatus(ctx context.Context, id string, status domain.WithdrawalStatus, externalTxnID string, processedAt time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	w, ok := m.withdrawals[id]
	if !ok {
		return repository.ErrNotFound
	}
	w.Status = status
	w.ExternalTxnID = externalTxnID
	w.ProcessedAt = processedAt
	return nil
}

// GetWithdrawal returns the withdrawal (for test assertions).
func (m *MockWithdrawalRepository) GetWithdrawal(id string) *domain.Withdrawal {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.withdrawals[id]
}

// ──────────────────────────────────────────────
// MOCK CUSTOMER REPOSITORY
// ──────────────────────────────────────────────

// MockCustomerRepository is a mock implementation of CustomerRepository.
type MockCustomerRepository struct {
	mu        sync.RWMutex
	customers map[string]*domain.Customer
}

// NewMockCustomerRepository creates a new mock customer repository.
func NewMockCustomerRepository() *MockCustomerRepository {
	return &MockCustomerRepository{
		customers: make(map[string]*domain.Customer),
	}
}

func (m *MockCustomerRepository) Create(ctx context.Context, customer *domain.Customer) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	copy := *customer
	m.customers[customer.ID] = &copy
	return nil
}

func (m *MockCustomerRepository) GetByID(ctx context.Context, id string) (*domain.Customer, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	customer, ok := m.customers[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	copy := *customer
	return &copy, nil
}

func (m *MockCustomerRepository) GetByPhone(ctx context.Context, phone string) (*domain.Customer, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, c := range m.customers {
		if c.Phone == phone {
			copy := *c
			return &copy, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (m *MockCustomerRepository) GetAll(ctx context.Context) ([]*domain.Customer, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	result := make([]*domain.Customer, 0, len(m.customers))
	for _, c := range m.customers {
		copy := *c
		result = append(result, &copy)
	}
	return result, nil
}

// ──────────────────────────────────────────────
// MOCK LOCK STORE
// ──────────────────────────────────────────────

// MockLockStore is a mock implementation of LockStore.
type MockLockStore struct {
	mu    sync.Mutex
	locks map[string]time.Time

	// Counters
	AcquireCallCount int32
	ReleaseCallCount int32

	// Error injection
	AcquireError error

	// Force lock failure
	ForceAcquireFailure bool
}

// NewMockLockStore creates a new mock lock store.
func NewMockLockStore() *MockLockStore {
	return &MockLockStore{
		locks: make(map[string]time.Time),
	}
}

func (m *MockLockStore) AcquireWithdrawalLock(ctx context.Context, withdrawalID string, ttl time.Duration) (bool, error) {
	atomic.AddInt32(&m.AcquireCallCount, 1)
	if m.AcquireError != nil {
		return false, m.AcquireError
	}
	if m.ForceAcquireFailure {
		return false, nil
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	key := "lock:withdrawal:" + withdrawalID
	if expiry, exists := m.locks[key]; exists {
		if time.Now().Before(expiry) {
			return false, nil // Lock still held.
		}
	}

	m.locks[key] = time.Now().Add(ttl)
	return true, nil
}

func (m *MockLockStore) ReleaseWithdrawalLock(ctx context.Context, withdrawalID string) error {
	atomic.AddInt32(&m.ReleaseCallCount, 1)
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.locks, "lock:withdrawal:"+withdrawalID)
	return nil
}

// IsLocked checks if a withdrawal is locked (for test assertions).
func (m *MockLockStore) IsLocked(withdrawalID string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	expiry, exists := m.locks["lock:withdrawal:"+withdrawalID]
	return exists && time.Now().Before(expiry)
}

// ──────────────────────────────────────────────
// RECORDER BROADCASTER
// ──────────────────────────────────────────────

// RecordedEvent is one captured broadcast.
type RecordedEvent struct {
	Scope   string // "global", "job", "user"
	Target  string // job ID or user ID, empty for global
	Event   string
	Payload any
}

// RecorderBroadcaster captures broadcasts for test assertions.
type RecorderBroadcaster struct {
	mu     sync.Mutex
	events []RecordedEvent
}

// NewRecorderBroadcaster creates a new recorder broadcaster.
func NewRecorderBroadcaster() *RecorderBroadcaster {
	return &RecorderBroadcaster{}
}

func (r *RecorderBroadcaster) BroadcastGlobal(event string, payload any) {
	r.record(RecordedEvent{Scope: "global", Event: event, Payload: payload})
}

func (r *RecorderBroadcaster) BroadcastToJob(jobID, event string, payload any) {
	r.record(RecordedEvent{Scope: "job", Target: jobID, Event: event, Payload: payload})
}

func (r *RecorderBroadcaster) BroadcastToUser(userID, event string, payload any) {
	r.record(RecordedEvent{Scope: "user", Target: userID, Event: event, Payload: payload})
}

func (r *RecorderBroadcaster) record(e RecordedEvent) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
}

// Events returns all captured broadcasts.
func (r *RecorderBroadcaster) Events() []RecordedEvent {
	r.mu.Lock()
	defer r.mu.Unlock()
	result := make([]RecordedEvent, len(r.events))
	copy(result, r.events)
	return result
}

// CountEvent counts broadcasts of a given event across scopes.
func (r *RecorderBroadcaster) CountEvent(event string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	count := 0
	for _, e := range r.events {
		if e.Event == event {
			count++
		}
	}
	return count
}

// HasGlobalEvent reports whether the event was broadcast globally.
func (r *RecorderBroadcaster) HasGlobalEvent(event string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, e := range r.events {
		if e.Scope == "global" && e.Event == event {
			return true
		}
	}
	return false
}

// ──────────────────────────────────────────────
// MOCK PAYMENT ORACLE
// ──────────────────────────────────────────────

// MockOracle is a controllable payment oracle.
type MockOracle struct {
	mu sync.Mutex

	// Control behavior
	VerifyResult bool
	VerifyError  error

	// Counters
	VerifyCallCount int32
}

// NewMockOracle creates a mock oracle that verifies everything.
func NewMockOracle() *MockOracle {
	return &MockOracle{VerifyResult: true}
}

func (m *MockOracle) CreateOrder(ctx context.Context, jobID string, amount float64) (string, error) {
	return "order_" + jobID, nil
}

func (m *MockOracle) VerifyPayment(ctx context.Context, jobID, gatewayRef string) (bool, error) {
	atomic.AddInt32(&m.VerifyCallCount, 1)
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.VerifyError != nil {
		return false, m.VerifyError
	}
	return m.VerifyResult, nil
}

// ──────────────────────────────────────────────
// HELPER ERRORS
// ──────────────────────────────────────────────

var (
	ErrMockDBConstraint = errors.New("mock: unique constraint violation")
	ErrMockTimeout      = errors.New("mock: operation timeout")
)
