package domain

import (
	"time"
)

// =============================================================================
// ExtractedDocument - raw output of one AI extraction pass
// =============================================================================

type LineItem struct {
	Description string   `json:"description"`
	Quantity    *float64 `json:"quantity,omitempty"`
	UnitPrice   *float64 `json:"unit_price,omitempty"`
	Total       *float64 `json:"total,omitempty"`
}

// ExtractedDocument is a single extraction result, from either the email
// body or one attachment. Optional fields are nil/empty, never errors.
type ExtractedDocument struct {
	DocumentType DocumentType `json:"document_type"`
	Confidence   int          `json:"confidence"` // 0-100

	Title   string `json:"title,omitempty"`
	Summary string `json:"summary,omitempty"`

	InvoiceNumber string     `json:"invoice_number,omitempty"`
	Amount        *float64   `json:"amount,omitempty"`
	Currency      string     `json:"currency,omitempty"`
	DueDate       *time.Time `json:"due_date,omitempty"`
	IssueDate     *time.Time `json:"issue_date,omitempty"`
	BuyerName     string     `json:"buyer_name,omitempty"`
	SellerName    string     `json:"seller_name,omitempty"`
	Items         []LineItem `json:"items,omitempty"`

	Rationale string `json:"rationale,omitempty"`
	// SourceName names where this extraction came from (e.g. an attachment
	// filename, or "email body") for rationale concatenation.
	SourceName string `json:"source_name,omitempty"`
}
