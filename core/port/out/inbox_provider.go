// Package out defines outbound ports (driven ports) for the application.
package out

import (
	"context"

	"inbox_server/core/domain"
)

// =============================================================================
// Mailbox Provider Port (Gmail)
// =============================================================================

// ListQuery narrows a mailbox listing to candidate messages.
type ListQuery struct {
	// Query is a provider search expression (e.g. Gmail query syntax).
	Query string
	// ContinuationToken resumes a previous listing; empty starts fresh.
	ContinuationToken string
	MaxResults        int
}

// MailboxProvider is the outbound port for the user's mailbox.
type MailboxProvider interface {
	// ListMessages returns one page of message headers matching the query.
	// Messages in the page carry subject/from/snippet but not full bodies.
	ListMessages(ctx context.Context, ownerID string, q ListQuery) (*domain.MessagePage, error)
	// FetchMessage loads the full message including bodies and attachment
	// metadata.
	FetchMessage(ctx context.Context, ownerID, messageID string) (*domain.InboundMessage, error)
	// FetchAttachmentBytes downloads one attachment's raw bytes.
	FetchAttachmentBytes(ctx context.Context, ownerID, messageID, attachmentID string) ([]byte, error)
}
