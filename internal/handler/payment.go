package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"dispatch/internal/service"
)

// PaymentHandler handles HTTP requests for payments.
type PaymentHandler struct {
	paymentService *service.PaymentService
}

// NewPaymentHandler creates a new PaymentHandler.
func NewPaymentHandler(paymentService *service.PaymentService) *PaymentHandler {
	return &PaymentHandler{paymentService: paymentService}
}

// CreateOrderRequest is the HTTP request body for opening a payment order.
type CreateOrderRequest struct {
	JobID string `json:"job_id"`
}

// CreateOrderResponse is the HTTP response for opening a payment order.
type CreateOrderResponse struct {
	JobID    string  `json:"job_id"`
	OrderRef string  `json:"order_ref"`
	Amount   float64 `json:"amount"`
}

// ConfirmPaymentRequest is the HTTP request body for the gateway callback.
type ConfirmPaymentRequest struct {
	JobID      string `json:"job_id"`
	GatewayRef string `json:"gateway_ref"`
}

// CreateOrder handles POST /v1/payments/order
func (h *PaymentHandler) CreateOrder(c *gin.Context) {
	var req CreateOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body"})
		return
	}

	order, err := h.paymentService.CreateOrder(c.Request.Context(), service.CreateOrderRequest{
		JobID: req.JobID,
	})
	if err != nil {
		respondError(c, err)
		return
	}

	respondJSON(c, http.StatusCreated, CreateOrderResponse{
		JobID:    order.JobID,
		OrderRef: order.OrderRef,
		Amount:   order.Amount,
	})
}

// ConfirmPayment handles POST /v1/payments/confirm
func (h *PaymentHandler) ConfirmPayment(c *gin.Context) {
	var req ConfirmPaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body"})
		return
	}

	job, err := h.paymentService.ConfirmPayment(c.Request.Context(), service.ConfirmPaymentRequest{
		JobID:      req.JobID,
		GatewayRef: req.GatewayRef,
	})
	if err != nil {
		respondError(c, err)
		return
	}

	respondJSON(c, http.StatusOK, toJobResponse(job))
}
