package domain

import (
	"time"
)

// =============================================================================
// InboundMessage - one email as fetched from the mailbox provider
// =============================================================================

type Attachment struct {
	ID          string `json:"id"`
	Filename    string `json:"filename"`
	ContentType string `json:"content_type"`
	Size        int64  `json:"size"`
}

// IsPDF - whether the attachment looks like a PDF worth extracting from
func (a *Attachment) IsPDF() bool {
	if a.ContentType == "application/pdf" {
		return true
	}
	return len(a.Filename) > 4 && a.Filename[len(a.Filename)-4:] == ".pdf"
}

type InboundMessage struct {
	ID          string       `json:"id"`
	Subject     string       `json:"subject"`
	From        string       `json:"from"` // sender address, lower-cased by the provider adapter
	Date        time.Time    `json:"date"`
	Snippet     string       `json:"snippet"`
	TextBody    string       `json:"text_body,omitempty"`
	HTMLBody    string       `json:"html_body,omitempty"`
	Attachments []Attachment `json:"attachments,omitempty"`
}

// Body returns the text body, falling back to the HTML body and snippet.
func (m *InboundMessage) Body() string {
	if m.TextBody != "" {
		return m.TextBody
	}
	if m.HTMLBody != "" {
		return m.HTMLBody
	}
	return m.Snippet
}

// MessagePage is one page of a mailbox listing.
type MessagePage struct {
	Messages              []InboundMessage `json:"messages"`
	NextContinuationToken string           `json:"next_continuation_token,omitempty"`
}
