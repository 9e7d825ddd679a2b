package domain

import (
	"time"
)

// =============================================================================
// Document - the structured "inbox card" derived from one source email
// =============================================================================

type DocumentType string

const (
	DocTypeInvoice         DocumentType = "invoice"
	DocTypeReceipt         DocumentType = "receipt"
	DocTypePaymentReminder DocumentType = "payment_reminder"
	DocTypeOther           DocumentType = "other"
)

// TypePriority ranks document types when merging competing extractions.
// Higher wins.
func (t DocumentType) TypePriority() int {
	switch t {
	case DocTypeInvoice:
		return 3
	case DocTypeReceipt:
		return 2
	case DocTypePaymentReminder:
		return 1
	default:
		return 0
	}
}

type DocumentStatus string

const (
	DocStatusPending   DocumentStatus = "pending"
	DocStatusSeen      DocumentStatus = "seen"
	DocStatusAuto      DocumentStatus = "auto"
	DocStatusDismissed DocumentStatus = "dismissed"
	DocStatusExecuted  DocumentStatus = "executed"
	DocStatusError     DocumentStatus = "error"
)

type PaymentStatus string

const (
	PaymentStatusUnpaid        PaymentStatus = "unpaid"
	PaymentStatusPaid          PaymentStatus = "paid"
	PaymentStatusNotApplicable PaymentStatus = "not_applicable"
)

type SourceType string

const (
	SourceTypeEmail SourceType = "email"
)

// AppliedClassification records one rule match applied to a document,
// kept for audit and replay.
type AppliedClassification struct {
	RuleID     string    `json:"rule_id"`
	RuleName   string    `json:"rule_name"`
	Confidence int       `json:"confidence"`
	Actions    []string  `json:"actions"`
	AppliedAt  time.Time `json:"applied_at"`
}

// AttachmentRef points at an attachment blob persisted for audit.
type AttachmentRef struct {
	Filename    string `json:"filename"`
	ContentType string `json:"content_type"`
	URL         string `json:"url"`
	Size        int64  `json:"size"`
}

type Document struct {
	ID              string       `json:"id"`
	OwnerID         string       `json:"owner_id"`
	SourceMessageID string       `json:"source_message_id"`
	SourceType      SourceType   `json:"source_type"`
	SubjectHash     string       `json:"subject_hash,omitempty"`
	DocumentType    DocumentType `json:"document_type"`

	Title   string `json:"title"`
	Summary string `json:"summary,omitempty"`

	Amount   *float64 `json:"amount,omitempty"`
	Currency string   `json:"currency,omitempty"`

	InvoiceNumber string     `json:"invoice_number,omitempty"`
	DueDate       *time.Time `json:"due_date,omitempty"`
	IssueDate     *time.Time `json:"issue_date,omitempty"`
	BuyerName     string     `json:"buyer_name,omitempty"`
	SellerName    string     `json:"seller_name,omitempty"`

	Confidence    int            `json:"confidence"`
	Status        DocumentStatus `json:"status"`
	PaymentStatus PaymentStatus  `json:"payment_status"`
	PaidAt        *time.Time     `json:"paid_at,omitempty"`

	Categories             []string                `json:"categories,omitempty"`
	ExpenseCategory        string                  `json:"expense_category,omitempty"`
	AddedToExpenses        bool                    `json:"added_to_expenses"`
	AppliedClassifications []AppliedClassification `json:"applied_classifications,omitempty"`

	SenderAddress      string `json:"sender_address,omitempty"`
	NormalizedSubject  string `json:"normalized_subject,omitempty"`
	ContentFingerprint string `json:"content_fingerprint,omitempty"`

	HasAttachments bool `json:"has_attachments"`
	// AttachmentCount is the number of attachments on the source message,
	// regardless of whether they were extracted.
	AttachmentCount int             `json:"attachment_count"`
	AttachmentRefs  []AttachmentRef `json:"attachment_refs,omitempty"`

	Rationale string    `json:"rationale,omitempty"`
	Timestamp time.Time `json:"timestamp"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// HasCategory - whether the document already carries the given category
func (d *Document) HasCategory(name string) bool {
	for _, c := range d.Categories {
		if c == name {
			return true
		}
	}
	return false
}

// AddCategory appends a category if it is not already present.
func (d *Document) AddCategory(name string) {
	if name == "" || d.HasCategory(name) {
		return
	}
	d.Categories = append(d.Categories, name)
}
