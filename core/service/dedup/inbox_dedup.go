// Package dedup decides whether a freshly fetched message duplicates an
// already-ingested document.
package dedup

import (
	"context"
	"strings"
	"time"

	"inbox_server/core/domain"
	"inbox_server/core/port/out"
	"inbox_server/core/service/hash"
	"inbox_server/pkg/logger"
)

// Duplicate match reasons, recorded for observability.
const (
	ReasonSourceMessageID = "source_message_id"
	ReasonSubjectHash     = "subject_hash"
	ReasonRecencyWindow   = "recency_window"
)

// recencyWindow is how far back the similarity check looks.
const recencyWindow = 24 * time.Hour

type Deduplicator struct {
	docs out.DocumentRepository
	log  *logger.Logger
}

func NewDeduplicator(docs out.DocumentRepository, log *logger.Logger) *Deduplicator {
	return &Deduplicator{docs: docs, log: log}
}

// IsDuplicate runs the three duplicate checks in order, short-circuiting on
// the first match. subjectHash may be empty (blank subject); fingerprint is
// always defined and backs the coarser recency-window comparison.
func (d *Deduplicator) IsDuplicate(ctx context.Context, ownerID string, msg *domain.InboundMessage, subjectHash, fingerprint string) (bool, string, error) {
	// 1. Exact source message id: literal re-processing of a resumed batch.
	existing, err := d.docs.GetBySourceMessageID(ctx, ownerID, msg.ID)
	if err != nil {
		return false, "", err
	}
	if existing != nil {
		return true, ReasonSourceMessageID, nil
	}

	// 2. Normalized subject hash: re-sent/forwarded copies.
	if subjectHash != "" {
		existing, err = d.docs.GetBySubjectHash(ctx, ownerID, subjectHash)
		if err != nil {
			return false, "", err
		}
		if existing != nil {
			return true, ReasonSubjectHash, nil
		}
	}

	// 3. Recency window: provider retries that mint a new message id for
	// the same logical content.
	since := time.Now().Add(-recencyWindow)
	recent, err := d.docs.ListRecent(ctx, ownerID, since)
	if err != nil {
		return false, "", err
	}

	sender := strings.ToLower(strings.TrimSpace(msg.From))
	subject := hash.NormalizeSubject(msg.Subject)
	attachCount := len(msg.Attachments)

	for _, doc := range recent {
		if doc.SourceType != domain.SourceTypeEmail {
			continue
		}
		if fingerprint != "" && doc.ContentFingerprint == fingerprint {
			d.log.Debug("[Deduplicator.IsDuplicate] fingerprint match: message=%s existing=%s", msg.ID, doc.ID)
			return true, ReasonRecencyWindow, nil
		}
		// AttachmentCount covers every listed attachment; AttachmentRefs only
		// cover extracted PDFs, so they under-count for this comparison.
		if doc.SenderAddress == sender &&
			doc.NormalizedSubject == subject &&
			doc.AttachmentCount == attachCount {
			d.log.Debug("[Deduplicator.IsDuplicate] recency match: message=%s existing=%s", msg.ID, doc.ID)
			return true, ReasonRecencyWindow, nil
		}
	}
	return false, "", nil
}
