// Package payment implements the payment-scheduling port by queueing
// payments in durable storage for a downstream executor.
package payment

import (
	"context"
	"time"

	"github.com/google/uuid"

	"inbox_server/core/domain"
	"inbox_server/core/port/out"
	"inbox_server/pkg/logger"
)

type StoreScheduler struct {
	payments out.ScheduledPaymentRepository
	log      *logger.Logger
}

func NewStoreScheduler(payments out.ScheduledPaymentRepository, log *logger.Logger) *StoreScheduler {
	return &StoreScheduler{payments: payments, log: log}
}

// Schedule queues a payment due DelayDays from now.
func (s *StoreScheduler) Schedule(ctx context.Context, req *out.SchedulePaymentRequest) error {
	now := time.Now()
	p := &domain.ScheduledPayment{
		ID:         uuid.NewString(),
		OwnerID:    req.OwnerID,
		DocumentID: req.DocumentID,
		Amount:     req.Amount,
		Currency:   req.Currency,
		Recipient:  req.Recipient,
		DueAt:      now.AddDate(0, 0, req.DelayDays),
		Reason:     req.Reason,
		Status:     domain.PaymentScheduleQueued,
		CreatedAt:  now,
	}
	if err := s.payments.Create(ctx, p); err != nil {
		return err
	}
	s.log.Info("[StoreScheduler.Schedule] payment queued: document=%s amount=%.2f %s due=%s",
		req.DocumentID, req.Amount, req.Currency, p.DueAt.Format("2006-01-02"))
	return nil
}
