package handler

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"dispatch/internal/domain"
	"dispatch/internal/service"
)

// JobHandler handles HTTP requests for dispatch jobs.
type JobHandler struct {
	jobService     *service.JobService
	receiptService *service.ReceiptService
}

// NewJobHandler creates a new JobHandler.
func NewJobHandler(jobService *service.JobService, receiptService *service.ReceiptService) *JobHandler {
	return &JobHandler{jobService: jobService, receiptService: receiptService}
}

// CreateJobRequest is the HTTP request body for creating a job.
type CreateJobRequest struct {
	CustomerID    string  `json:"customer_id"`
	ServiceType   string  `json:"service_type"`
	PickupAddress string  `json:"pickup_address"`
	PickupLat     float64 `json:"pickup_lat"`
	PickupLng     float64 `json:"pickup_lng"`
	DestAddress   string  `json:"dest_address,omitempty"`
	DestLat       float64 `json:"dest_lat,omitempty"`
	DestLng       float64 `json:"dest_lng,omitempty"`
	PaymentMethod string  `json:"payment_method,omitempty"` // ONLINE
	PaymentTiming string  `json:"payment_timing,omitempty"` // PREPAID, POSTPAID
	Price         float64 `json:"price"`
}

// AcceptJobRequest is the HTTP request body for accepting a job.
type AcceptJobRequest struct {
	TechnicianID string `json:"technician_id"`
}

// OTPRequest is the HTTP request body for OTP-gated transitions.
type OTPRequest struct {
	TechnicianID string `json:"technician_id"`
	OTP          string `json:"otp"`
}

// TechnicianActionRequest is the HTTP request body for technician-only transitions.
type TechnicianActionRequest struct {
	TechnicianID string `json:"technician_id"`
}

// CancelJobRequest is the HTTP request body for cancelling a job.
type CancelJobRequest struct {
	CancelledBy string `json:"cancelled_by"`
	Reason      string `json:"reason,omitempty"`
}

// JobResponse is the HTTP representation of a job.
type JobResponse struct {
	ID            string  `json:"id"`
	CustomerID    string  `json:"customer_id"`
	ServiceType   string  `json:"service_type"`
	PickupAddress string  `json:"pickup_address"`
	PickupLat     float64 `json:"pickup_lat"`
	PickupLng     float64 `json:"pickup_lng"`
	DestAddress   string  `json:"dest_address"`
	Status        string  `json:"status"`
	TechnicianID  string  `json:"technician_id,omitempty"`
	PaymentMethod string  `json:"payment_method"`
	PaymentTiming string  `json:"payment_timing"`
	PaymentStatus string  `json:"payment_status"`
	ArrivalOTP    string  `json:"arrival_otp,omitempty"`
	CompletionOTP string  `json:"completion_otp,omitempty"`
	Price         float64 `json:"price"`
	CancelReason  string  `json:"cancel_reason,omitempty"`
	CreatedAt     string  `json:"created_at"`
	CompletedAt   string  `json:"completed_at,omitempty"`
	CancelledAt   string  `json:"cancelled_at,omitempty"`
}

// SettlementResponse is the financial breakdown returned on completion.
type SettlementResponse struct {
	JobID      string  `json:"job_id"`
	Price      float64 `json:"price"`
	Commission float64 `json:"commission"`
	Earnings   float64 `json:"earnings"`
}

// CompleteJobResponse is the HTTP response for completing a job.
type CompleteJobResponse struct {
	Job        JobResponse        `json:"job"`
	Settlement SettlementResponse `json:"settlement"`
	Receipt    string             `json:"receipt,omitempty"`
}

// CreateJob handles POST /v1/jobs
func (h *JobHandler) CreateJob(c *gin.Context) {
	var req CreateJobRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body"})
		return
	}

	job, err := h.jobService.Request(c.Request.Context(), service.RequestJobRequest{
		CustomerID:    req.CustomerID,
		ServiceType:   req.ServiceType,
		PickupAddress: req.PickupAddress,
		PickupLat:     req.PickupLat,
		PickupLng:     req.PickupLng,
		DestAddress:   req.DestAddress,
		DestLat:       req.DestLat,
		DestLng:       req.DestLng,
		PaymentMethod: domain.PaymentMethod(req.PaymentMethod),
		PaymentTiming: domain.PaymentTiming(req.PaymentTiming),
		Price:         req.Price,
	})
	if err != nil {
		respondError(c, err)
		return
	}

	respondJSON(c, http.StatusCreated, toJobResponse(job))
}

// GetJob handles GET /v1/jobs/:id
func (h *JobHandler) GetJob(c *gin.Context) {
	job, err := h.jobService.GetJob(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	respondJSON(c, http.StatusOK, toJobResponse(job))
}

// GetAll handles GET /v1/jobs
func (h *JobHandler) GetAll(c *gin.Context) {
	jobs, err := h.jobService.ListJobs(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	respondJSON(c, http.StatusOK, toJobResponses(jobs))
}

// GetOpen handles GET /v1/jobs/open
func (h *JobHandler) GetOpen(c *gin.Context) {
	jobs, err := h.jobService.ListOpenJobs(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	respondJSON(c, http.StatusOK, toJobResponses(jobs))
}

// Accept handles POST /v1/jobs/:id/accept
func (h *JobHandler) Accept(c *gin.Context) {
	var req AcceptJobRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body"})
		return
	}

	job, err := h.jobService.Accept(c.Request.Context(), service.AcceptJobRequest{
		JobID:        c.Param("id"),
		TechnicianID: req.TechnicianID,
	})
	if err != nil {
		respondError(c, err)
		return
	}

	respondJSON(c, http.StatusOK, toJobResponse(job))
}

// VerifyArrival handles POST /v1/jobs/:id/verify-arrival
func (h *JobHandler) VerifyArrival(c *gin.Context) {
	var req OTPRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body"})
		return
	}

	job, err := h.jobService.VerifyArrival(c.Request.Context(), service.VerifyArrivalRequest{
		JobID:        c.Param("id"),
		TechnicianID: req.TechnicianID,
		OTP:          req.OTP,
	})
	if err != nil {
		respondError(c, err)
		return
	}

	respondJSON(c, http.StatusOK, toJobResponse(job))
}

// StartService handles POST /v1/jobs/:id/start
func (h *JobHandler) StartService(c *gin.Context) {
	var req TechnicianActionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body"})
		return
	}

	job, err := h.jobService.StartService(c.Request.Context(), service.StartServiceRequest{
		JobID:        c.Param("id"),
		TechnicianID: req.TechnicianID,
	})
	if err != nil {
		respondError(c, err)
		return
	}

	respondJSON(c, http.StatusOK, toJobResponse(job))
}

// EndService handles POST /v1/jobs/:id/end
func (h *JobHandler) EndService(c *gin.Context) {
	var req TechnicianActionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body"})
		return
	}

	job, err := h.jobService.EndService(c.Request.Context(), service.EndServiceRequest{
		JobID:        c.Param("id"),
		TechnicianID: req.TechnicianID,
	})
	if err != nil {
		respondError(c, err)
		return
	}

	respondJSON(c, http.StatusOK, toJobResponse(job))
}

// Complete handles POST /v1/jobs/:id/complete
func (h *JobHandler) Complete(c *gin.Context) {
	var req OTPRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body"})
		return
	}

	result, err := h.jobService.Complete(c.Request.Context(), service.CompleteJobRequest{
		JobID:        c.Param("id"),
		TechnicianID: req.TechnicianID,
		OTP:          req.OTP,
	})
	if err != nil {
		respondError(c, err)
		return
	}

	resp := CompleteJobResponse{
		Job: toJobResponse(result.Job),
		Settlement: SettlementResponse{
			JobID:      result.Settlement.JobID,
			Price:      result.Settlement.Price,
			Commission: result.Settlement.Commission,
			Earnings:   result.Settlement.Earnings,
		},
	}
	if h.receiptService != nil {
		resp.Receipt = h.receiptService.FormatReceipt(result.Job, result.Settlement)
	}

	respondJSON(c, http.StatusOK, resp)
}

// Cancel handles POST /v1/jobs/:id/cancel
func (h *JobHandler) Cancel(c *gin.Context) {
	var req CancelJobRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body"})
		return
	}

	job, err := h.jobService.Cancel(c.Request.Context(), service.CancelJobRequest{
		JobID:       c.Param("id"),
		CancelledBy: req.CancelledBy,
		Reason:      req.Reason,
	})
	if err != nil {
		respondError(c, err)
		return
	}

	respondJSON(c, http.StatusOK, toJobResponse(job))
}

func toJobResponse(job *domain.Job) JobResponse {
	resp := JobResponse{
		ID:            job.ID,
		CustomerID:    job.CustomerID,
		ServiceType:   job.ServiceType,
		PickupAddress: job.PickupAddress,
		PickupLat:     job.PickupLat,
		PickupLng:     job.PickupLng,
		DestAddress:   job.DestAddress,
		Status:        string(job.Status),
		TechnicianID:  job.TechnicianID,
		PaymentMethod: string(job.PaymentMethod),
		PaymentTiming: string(job.PaymentTiming),
		PaymentStatus: string(job.PaymentStatus),
		ArrivalOTP:    job.ArrivalOTP,
		CompletionOTP: job.CompletionOTP,
		Price:         job.Price,
		CancelReason:  job.CancelReason,
		CreatedAt:     job.CreatedAt.Format(time.RFC3339),
	}

	if !job.CompletedAt.IsZero() {
		resp.CompletedAt = job.CompletedAt.Format(time.RFC3339)
	}
	if !job.CancelledAt.IsZero() {
		resp.CancelledAt = job.CancelledAt.Format(time.RFC3339)
	}

	return resp
}

func toJobResponses(jobs []*domain.Job) []JobResponse {
	responses := make([]JobResponse, 0, len(jobs))
	for _, job := range jobs {
		responses = append(responses, toJobResponse(job))
	}
	return responses
}
