package handler

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"dispatch/internal/domain"
	"dispatch/internal/service"
)

// WalletHandler handles HTTP requests for wallets, ledgers and withdrawals.
type WalletHandler struct {
	ledger *service.LedgerService
}

// NewWalletHandler creates a new WalletHandler.
func NewWalletHandler(ledger *service.LedgerService) *WalletHandler {
	return &WalletHandler{ledger: ledger}
}

// WalletResponse is the HTTP representation of a wallet.
type WalletResponse struct {
	Balance       float64 `json:"balance"`
	LockedAmount  float64 `json:"locked_amount"`
	CommissionDue float64 `json:"commission_due"`
}

// TransactionResponse is the HTTP representation of a ledger entry.
type TransactionResponse struct {
	ID          string  `json:"id"`
	Type        string  `json:"type"`
	Amount      float64 `json:"amount"`
	Description string  `json:"description"`
	JobID       string  `json:"job_id,omitempty"`
	Status      string  `json:"status"`
	CreatedAt   string  `json:"created_at"`
}

// PayCommissionRequest is the HTTP request body for clearing dues.
type PayCommissionRequest struct {
	Amount float64 `json:"amount"`
}

// RequestWithdrawalRequest is the HTTP request body for a cash-out request.
type RequestWithdrawalRequest struct {
	TechnicianID  string  `json:"technician_id"`
	Amount        float64 `json:"amount"`
	Method        string  `json:"method"` // bank, upi
	AccountName   string  `json:"account_name,omitempty"`
	AccountNumber string  `json:"account_number,omitempty"`
	IFSC          string  `json:"ifsc,omitempty"`
	UPIHandle     string  `json:"upi_handle,omitempty"`
}

// ProcessWithdrawalRequest is the HTTP request body for paying out a withdrawal.
type ProcessWithdrawalRequest struct {
	ExternalTxnID string `json:"external_txn_id"`
}

// WithdrawalResponse is the HTTP representation of a withdrawal.
type WithdrawalResponse struct {
	ID            string  `json:"id"`
	TechnicianID  string  `json:"technician_id"`
	Amount        float64 `json:"amount"`
	Status        string  `json:"status"`
	Method        string  `json:"method"`
	ExternalTxnID string  `json:"external_txn_id,omitempty"`
	CreatedAt     string  `json:"created_at"`
	ProcessedAt   string  `json:"processed_at,omitempty"`
}

// GetWallet handles GET /v1/technicians/:id/wallet
func (h *WalletHandler) GetWallet(c *gin.Context) {
	wallet, err := h.ledger.GetWallet(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}

	respondJSON(c, http.StatusOK, WalletResponse{
		Balance:       wallet.Balance,
		LockedAmount:  wallet.LockedAmount,
		CommissionDue: wallet.CommissionDue,
	})
}

// GetTransactions handles GET /v1/technicians/:id/transactions
func (h *WalletHandler) GetTransactions(c *gin.Context) {
	txns, err := h.ledger.GetTransactions(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}

	responses := make([]TransactionResponse, 0, len(txns))
	for _, txn := range txns {
		responses = append(responses, TransactionResponse{
			ID:          txn.ID,
			Type:        string(txn.Type),
			Amount:      txn.Amount,
			Description: txn.Description,
			JobID:       txn.JobID,
			Status:      string(txn.Status),
			CreatedAt:   txn.CreatedAt.Format(time.RFC3339),
		})
	}
	respondJSON(c, http.StatusOK, responses)
}

// PayCommission handles POST /v1/technicians/:id/commission/pay
func (h *WalletHandler) PayCommission(c *gin.Context) {
	var req PayCommissionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body"})
		return
	}

	settled, err := h.ledger.PayCommission(c.Request.Context(), service.PayCommissionRequest{
		TechnicianID: c.Param("id"),
		Amount:       req.Amount,
	})
	if err != nil {
		respondError(c, err)
		return
	}

	respondJSON(c, http.StatusOK, gin.H{"settled": settled})
}

// RequestWithdrawal handles POST /v1/withdrawals
func (h *WalletHandler) RequestWithdrawal(c *gin.Context) {
	var req RequestWithdrawalRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body"})
		return
	}

	withdrawal, err := h.ledger.RequestWithdrawal(c.Request.Context(), service.RequestWithdrawalRequest{
		TechnicianID: req.TechnicianID,
		Amount:       req.Amount,
		Method:       domain.PayoutMethod(req.Method),
		Details: domain.PayoutDetails{
			AccountName:   req.AccountName,
			AccountNumber: req.AccountNumber,
			IFSC:          req.IFSC,
			UPIHandle:     req.UPIHandle,
		},
	})
	if err != nil {
		respondError(c, err)
		return
	}

	respondJSON(c, http.StatusCreated, toWithdrawalResponse(withdrawal))
}

// ProcessWithdrawal handles POST /v1/withdrawals/:id/process
func (h *WalletHandler) ProcessWithdrawal(c *gin.Context) {
	var req ProcessWithdrawalRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body"})
		return
	}

	withdrawal, err := h.ledger.ProcessWithdrawal(c.Request.Context(), c.Param("id"), req.ExternalTxnID)
	if err != nil {
		respondError(c, err)
		return
	}

	respondJSON(c, http.StatusOK, toWithdrawalResponse(withdrawal))
}

// GetWithdrawals handles GET /v1/technicians/:id/withdrawals
func (h *WalletHandler) GetWithdrawals(c *gin.Context) {
	withdrawals, err := h.ledger.GetWithdrawals(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}

	responses := make([]WithdrawalResponse, 0, len(withdrawals))
	for _, w := range withdrawals {
		responses = append(responses, toWithdrawalResponse(w))
	}
	respondJSON(c, http.StatusOK, responses)
}

func toWithdrawalResponse(w *domain.Withdrawal) WithdrawalResponse {
	resp := WithdrawalResponse{
		ID:            w.ID,
		TechnicianID:  w.TechnicianID,
		Amount:        w.Amount,
		Status:        string(w.Status),
		Method:        string(w.Method),
		ExternalTxnID: w.ExternalTxnID,
		CreatedAt:     w.CreatedAt.Format(time.RFC3339),
	}
	if !w.ProcessedAt.IsZero() {
		resp.ProcessedAt = w.ProcessedAt.Format(time.RFC3339)
	}
	return resp
}
