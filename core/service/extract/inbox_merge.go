// Package extract runs AI extraction over message bodies and PDF
// attachments and merges the competing results into one document.
package extract

import (
	"sort"
	"strings"
	"time"

	"inbox_server/core/domain"
)

// attachmentMinConfidence filters out low-confidence attachment extractions
// before they can compete with the email-body result.
const attachmentMinConfidence = 60

// Merge combines an email-body extraction with attachment extractions into
// the one authoritative record. Either input may be nil/empty; returns nil
// only when everything is nil.
func Merge(email *domain.ExtractedDocument, attachments []*domain.ExtractedDocument) *domain.ExtractedDocument {
	candidates := make([]*domain.ExtractedDocument, 0, len(attachments))
	for _, a := range attachments {
		if a != nil && a.Confidence >= attachmentMinConfidence {
			candidates = append(candidates, a)
		}
	}
	if len(candidates) == 0 {
		return email
	}

	// Rank by document-type priority, ties broken by confidence.
	sort.SliceStable(candidates, func(i, j int) bool {
		pi, pj := candidates[i].DocumentType.TypePriority(), candidates[j].DocumentType.TypePriority()
		if pi != pj {
			return pi > pj
		}
		return candidates[i].Confidence > candidates[j].Confidence
	})
	best := candidates[0]

	if email == nil || email.Confidence < best.Confidence {
		return best
	}

	merged := *email
	if best.DocumentType != domain.DocTypeOther {
		merged.DocumentType = best.DocumentType
	}
	merged.InvoiceNumber = firstNonEmpty(best.InvoiceNumber, email.InvoiceNumber)
	merged.Amount = firstNonNilFloat(best.Amount, email.Amount)
	merged.Currency = firstNonEmpty(best.Currency, email.Currency)
	merged.DueDate = firstNonNilTime(best.DueDate, email.DueDate)
	merged.IssueDate = firstNonNilTime(best.IssueDate, email.IssueDate)
	merged.BuyerName = firstNonEmpty(best.BuyerName, email.BuyerName)
	merged.SellerName = firstNonEmpty(best.SellerName, email.SellerName)
	if len(best.Items) > 0 {
		merged.Items = best.Items
	}
	if best.Confidence > merged.Confidence {
		merged.Confidence = best.Confidence
	}
	merged.Rationale = joinRationale(email, best)
	return &merged
}

func firstNonEmpty(a, b string) string {
	if a != "" {
		return a
	}
	return b
}

func firstNonNilFloat(a, b *float64) *float64 {
	if a != nil {
		return a
	}
	return b
}

func firstNonNilTime(a, b *time.Time) *time.Time {
	if a != nil {
		return a
	}
	return b
}

// joinRationale concatenates both rationales, labeled by source, so the
// merged record stays auditable.
func joinRationale(email, best *domain.ExtractedDocument) string {
	parts := make([]string, 0, 2)
	if email.Rationale != "" {
		parts = append(parts, label(email.SourceName, "email body")+": "+email.Rationale)
	}
	if best.Rationale != "" {
		parts = append(parts, label(best.SourceName, "attachment")+": "+best.Rationale)
	}
	return strings.Join(parts, " | ")
}

func label(name, fallback string) string {
	if name != "" {
		return name
	}
	return fallback
}
