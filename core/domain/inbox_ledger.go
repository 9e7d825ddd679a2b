package domain

import (
	"time"
)

// =============================================================================
// ActionEntry - append-only ledger of dispositions applied to documents
// =============================================================================

type ActionEntryType string

const (
	ActionEntryApproved         ActionEntryType = "approved"
	ActionEntryDismissed        ActionEntryType = "dismissed"
	ActionEntrySeen             ActionEntryType = "seen"
	ActionEntryMarkedPaid       ActionEntryType = "marked_paid"
	ActionEntryCategorized      ActionEntryType = "categorized"
	ActionEntryExpensed         ActionEntryType = "expensed"
	ActionEntryPaymentScheduled ActionEntryType = "payment_scheduled"
)

type ActionEntry struct {
	ID         int64           `json:"id"` // snowflake
	OwnerID    string          `json:"owner_id"`
	DocumentID string          `json:"document_id"`
	Type       ActionEntryType `json:"type"`
	RuleID     string          `json:"rule_id,omitempty"`
	Detail     string          `json:"detail,omitempty"`
	CreatedAt  time.Time       `json:"created_at"`
}

// =============================================================================
// ScheduledPayment - a payment queued by a schedule_payment action
// =============================================================================

type PaymentScheduleStatus string

const (
	PaymentScheduleQueued    PaymentScheduleStatus = "queued"
	PaymentScheduleCancelled PaymentScheduleStatus = "cancelled"
	PaymentScheduleExecuted  PaymentScheduleStatus = "executed"
)

type ScheduledPayment struct {
	ID         string                `json:"id"`
	OwnerID    string                `json:"owner_id"`
	DocumentID string                `json:"document_id"`
	Amount     float64               `json:"amount"`
	Currency   string                `json:"currency"`
	Recipient  string                `json:"recipient,omitempty"`
	DueAt      time.Time             `json:"due_at"`
	Reason     string                `json:"reason,omitempty"`
	Status     PaymentScheduleStatus `json:"status"`
	CreatedAt  time.Time             `json:"created_at"`
}
