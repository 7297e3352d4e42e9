package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"dispatch/internal/relay"
	"dispatch/internal/repository"
	"dispatch/internal/service"
)

// ErrorResponse represents an error response.
type ErrorResponse struct {
	Error string `json:"error"`
}

// respondError sends an error response with the appropriate HTTP status code.
func respondError(c *gin.Context, err error) {
	code := mapErrorToHTTPStatus(err)
	c.JSON(code, ErrorResponse{Error: err.Error()})
}

// respondJSON sends a JSON response with the given status code.
func respondJSON(c *gin.Context, code int, data any) {
	c.JSON(code, data)
}

// mapErrorToHTTPStatus maps service/repository errors to HTTP status codes.
func mapErrorToHTTPStatus(err error) int {
	switch {
	// Not found errors
	case errors.Is(err, repository.ErrNotFound):
		return http.StatusNotFound

	// Validation errors - Bad Request
	case errors.Is(err, service.ErrInvalidCustomerID),
		errors.Is(err, service.ErrInvalidJobID),
		errors.Is(err, service.ErrInvalidTechnicianID),
		errors.Is(err, service.ErrInvalidWithdrawalID),
		errors.Is(err, service.ErrInvalidServiceType),
		errors.Is(err, service.ErrInvalidPickupLocation),
		errors.Is(err, service.ErrInvalidPrice),
		errors.Is(err, service.ErrInvalidAmount),
		errors.Is(err, service.ErrInvalidPhone),
		errors.Is(err, service.ErrInvalidPaymentMethod),
		errors.Is(err, service.ErrCODDisabled),
		errors.Is(err, service.ErrInvalidPayoutDetails),
		errors.Is(err, service.ErrBelowMinimumWithdrawal),
		errors.Is(err, service.ErrMalformedOTP):
		return http.StatusBadRequest

	// Payment gate
	case errors.Is(err, service.ErrPaymentNotVerified):
		return http.StatusPaymentRequired

	// Conflict errors
	case errors.Is(err, service.ErrJobUnavailable),
		errors.Is(err, service.ErrJobAlreadyTerminal),
		errors.Is(err, service.ErrDuesPending),
		errors.Is(err, service.ErrInsufficientFunds),
		errors.Is(err, service.ErrInsufficientBalance),
		errors.Is(err, service.ErrWithdrawalNotPending),
		errors.Is(err, service.ErrWithdrawalLocked),
		errors.Is(err, service.ErrCustomerExists):
		return http.StatusConflict

	// Forbidden/Business rule errors
	case errors.Is(err, service.ErrTechnicianNotAssigned),
		errors.Is(err, service.ErrTechnicianNotPermitted),
		errors.Is(err, service.ErrInvalidOTP):
		return http.StatusForbidden

	// Rejected live-location writes
	case errors.Is(err, relay.ErrStaleSample):
		return http.StatusBadRequest

	// Default to internal server error
	default:
		return http.StatusInternalServerError
	}
}
