package service

import "errors"

var (
	// ErrInvalidCustomerID is returned when customer ID is empty.
	ErrInvalidCustomerID = errors.New("invalid customer id")

	// ErrInvalidJobID is returned when job ID is empty.
	ErrInvalidJobID = errors.New("invalid job id")

	// ErrInvalidTechnicianID is returned when technician ID is empty.
	ErrInvalidTechnicianID = errors.New("invalid technician id")

	// ErrInvalidServiceType is returned when the requested service type is empty.
	ErrInvalidServiceType = errors.New("invalid service type")

	// ErrInvalidPickupLocation is returned when pickup coordinates are invalid.
	ErrInvalidPickupLocation = errors.New("invalid pickup location")

	// ErrInvalidPrice is returned when the quoted price is not positive.
	ErrInvalidPrice = errors.New("invalid price")

	// ErrInvalidPaymentMethod is returned when payment method is invalid.
	ErrInvalidPaymentMethod = errors.New("invalid payment method")

	// ErrCODDisabled is returned when a cash-on-delivery job is requested.
	ErrCODDisabled = errors.New("cash on delivery is disabled")

	// ErrJobUnavailable is returned when a job has already been taken or is
	// no longer in a state that allows the attempted transition.
	ErrJobUnavailable = errors.New("job unavailable")

	// ErrJobAlreadyTerminal is returned when acting on a completed or cancelled job.
	ErrJobAlreadyTerminal = errors.New("job already completed or cancelled")

	// ErrTechnicianNotAssigned is returned when the acting technician is not
	// the one assigned to the job.
	ErrTechnicianNotAssigned = errors.New("technician not assigned to this job")

	// ErrTechnicianNotPermitted is returned when the technician is blocked
	// from accepting jobs.
	ErrTechnicianNotPermitted = errors.New("technician not permitted to accept jobs")

	// ErrMalformedOTP is returned when a submitted OTP has the wrong shape.
	ErrMalformedOTP = errors.New("malformed otp")

	// ErrInvalidOTP is returned when a submitted OTP does not match.
	ErrInvalidOTP = errors.New("invalid otp")

	// ErrInvalidAmount is returned when a wallet amount is not positive.
	ErrInvalidAmount = errors.New("invalid amount")

	// ErrInvalidWithdrawalID is returned when withdrawal ID is empty.
	ErrInvalidWithdrawalID = errors.New("invalid withdrawal id")

	// ErrDuesPending is returned when a withdrawal is requested while
	// commission is still owed.
	ErrDuesPending = errors.New("commission dues pending")

	// ErrInsufficientFunds is returned at request time when the wallet cannot
	// cover the requested amount plus every withdrawal already in flight.
	ErrInsufficientFunds = errors.New("insufficient funds")

	// ErrInsufficientBalance is returned at payout time when the balance
	// re-check fails; the withdrawal stays pending for a later retry.
	ErrInsufficientBalance = errors.New("insufficient balance")

	// ErrBelowMinimumWithdrawal is returned when the requested amount is under
	// the configured floor.
	ErrBelowMinimumWithdrawal = errors.New("amount below minimum withdrawal")

	// ErrInvalidPayoutDetails is returned when payout details are incomplete
	// for the chosen method.
	ErrInvalidPayoutDetails = errors.New("invalid payout details")

	// ErrWithdrawalNotPending is returned when processing a withdrawal that
	// has already been handled.
	ErrWithdrawalNotPending = errors.New("withdrawal not pending")

	// ErrWithdrawalLocked is returned when another processor holds the
	// withdrawal lock.
	ErrWithdrawalLocked = errors.New("withdrawal is being processed")

	// ErrCustomerExists is returned when registering a phone number already in use.
	ErrCustomerExists = errors.New("customer already exists")

	// ErrInvalidPhone is returned when a phone number is empty.
	ErrInvalidPhone = errors.New("invalid phone number")
)
