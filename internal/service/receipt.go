package service

import (
	"fmt"

	"dispatch/internal/domain"
)

// ReceiptService formats settlement receipts for completed jobs.
type ReceiptService struct{}

// NewReceiptService creates a new ReceiptService.
func NewReceiptService() *ReceiptService {
	return &ReceiptService{}
}

// FormatReceipt formats the settlement as a string (for email/print).
func (s *ReceiptService) FormatReceipt(job *domain.Job, settlement *domain.Settlement) string {
	return `
=====================================
        SERVICE RECEIPT
=====================================
Job ID: ` + job.ID + `
Service: ` + job.ServiceType + `
Date: ` + settlement.CompletedAt.Format("Jan 02, 2006 3:04 PM") + `

SERVICE DETAILS
-------------------------------------
Address:    ` + job.PickupAddress + `
Technician: ` + job.TechnicianID + `

SETTLEMENT
-------------------------------------
Price:            ` + formatFloat(settlement.Price) + `
Commission (` + formatFloat(settlement.CommissionRate*100) + `%): ` + formatFloat(settlement.Commission) + `
-------------------------------------
EARNINGS:         ` + formatFloat(settlement.Earnings) + `

PAYMENT
-------------------------------------
Method: ` + string(job.PaymentMethod) + `
Status: ` + string(job.PaymentStatus) + `

=====================================
   Thank you for using our service!
=====================================
`
}

func formatFloat(f float64) string {
	return fmt.Sprintf("%.2f", f)
}
