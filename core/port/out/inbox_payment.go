package out

import (
	"context"
)

// =============================================================================
// Payment Scheduler Port
// =============================================================================

// SchedulePaymentRequest carries everything the external payment capability
// needs to queue a payment.
type SchedulePaymentRequest struct {
	OwnerID    string
	DocumentID string
	Amount     float64
	Currency   string
	Recipient  string
	DelayDays  int
	Reason     string
}

// PaymentScheduler queues a future payment for a document. Failures are
// logged by callers, never propagated into the classification pass.
type PaymentScheduler interface {
	Schedule(ctx context.Context, req *SchedulePaymentRequest) error
}
