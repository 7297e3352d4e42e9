package service

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"dispatch/internal/domain"
	"dispatch/internal/repository"
)

// CustomerService handles customer registration and lookup.
type CustomerService struct {
	customerRepo repository.CustomerRepository
}

// NewCustomerService creates a new CustomerService.
func NewCustomerService(customerRepo repository.CustomerRepository) *CustomerService {
	return &CustomerService{customerRepo: customerRepo}
}

// RegisterCustomerRequest contains the parameters for registering a customer.
type RegisterCustomerRequest struct {
	Name  string
	Phone string
}

// Register creates a customer, rejecting duplicate phone numbers.
func (s *CustomerService) Register(ctx context.Context, req RegisterCustomerRequest) (*domain.Customer, error) {
	if req.Phone == "" {
		return nil, ErrInvalidPhone
	}

	existing, err := s.customerRepo.GetByPhone(ctx, req.Phone)
	if err != nil && !errors.Is(err, repository.ErrNotFound) {
		return nil, err
	}
	if existing != nil {
		return nil, ErrCustomerExists
	}

	customer := &domain.Customer{
		ID:        uuid.New().String(),
		Name:      req.Name,
		Phone:     req.Phone,
		CreatedAt: time.Now(),
	}

	if err := s.customerRepo.Create(ctx, customer); err != nil {
		return nil, err
	}
	return customer, nil
}

// Get retrieves a customer by ID.
func (s *CustomerService) Get(ctx context.Context, customerID string) (*domain.Customer, error) {
	if customerID == "" {
		return nil, ErrInvalidCustomerID
	}
	return s.customerRepo.GetByID(ctx, customerID)
}

// List retrieves all customers.
func (s *CustomerService) List(ctx context.Context) ([]*domain.Customer, error) {
	return s.customerRepo.GetAll(ctx)
}
