package extract

import (
	"context"
	"sync"

	"inbox_server/core/domain"
	"inbox_server/core/port/out"
	"inbox_server/pkg/logger"
)

// Pipeline runs the full extraction pass for one message: body text, each
// PDF attachment, then the merge. Attachment failures skip that attachment;
// blob persistence is best-effort.
type Pipeline struct {
	provider   out.MailboxProvider
	extraction out.ExtractionService
	blobs      out.BlobStore
	log        *logger.Logger
	maxBytes   int64
	workers    int
}

func NewPipeline(provider out.MailboxProvider, extraction out.ExtractionService, blobs out.BlobStore, maxAttachmentMB, workers int, log *logger.Logger) *Pipeline {
	if workers <= 0 {
		workers = 4
	}
	return &Pipeline{
		provider:   provider,
		extraction: extraction,
		blobs:      blobs,
		log:        log,
		maxBytes:   int64(maxAttachmentMB) * 1024 * 1024,
		workers:    workers,
	}
}

// Result is everything the extraction pass produced for one message.
type Result struct {
	Document       *domain.ExtractedDocument
	AttachmentRefs []domain.AttachmentRef
}

// Extract runs body extraction plus PDF attachment extraction and merges.
// A nil Result.Document means nothing financial was found.
func (p *Pipeline) Extract(ctx context.Context, ownerID string, msg *domain.InboundMessage) (*Result, error) {
	body, err := p.extraction.ExtractFromText(ctx, msg.Body(), msg.Subject)
	if err != nil {
		return nil, err
	}
	if body != nil {
		body.SourceName = "email body"
	}

	var candidates []domain.Attachment
	for _, att := range msg.Attachments {
		if !att.IsPDF() {
			continue
		}
		if p.maxBytes > 0 && att.Size > p.maxBytes {
			p.log.Warn("[Pipeline.Extract] skipping oversized attachment: message=%s file=%s size=%d", msg.ID, att.Filename, att.Size)
			continue
		}
		candidates = append(candidates, att)
	}

	// Bounded fan-out over the attachments; results keep listing order so
	// the merge stays deterministic.
	type attachmentResult struct {
		ref *domain.AttachmentRef
		doc *domain.ExtractedDocument
	}
	results := make([]attachmentResult, len(candidates))
	semaphore := make(chan struct{}, p.workers)
	var wg sync.WaitGroup

	for i, att := range candidates {
		wg.Add(1)
		go func(idx int, att domain.Attachment) {
			defer wg.Done()
			semaphore <- struct{}{}        // acquire
			defer func() { <-semaphore }() // release

			data, err := p.provider.FetchAttachmentBytes(ctx, ownerID, msg.ID, att.ID)
			if err != nil {
				p.log.WithError(err).Warn("[Pipeline.Extract] attachment fetch failed: message=%s file=%s", msg.ID, att.Filename)
				return
			}

			if p.blobs != nil {
				if url, err := p.blobs.Put(ctx, data, att.Filename, att.ContentType); err != nil {
					p.log.WithError(err).Warn("[Pipeline.Extract] blob store failed: message=%s file=%s", msg.ID, att.Filename)
				} else {
					results[idx].ref = &domain.AttachmentRef{
						Filename:    att.Filename,
						ContentType: att.ContentType,
						URL:         url,
						Size:        int64(len(data)),
					}
				}
			}

			doc, err := p.extraction.ExtractFromPDF(ctx, data, att.Filename)
			if err != nil {
				p.log.WithError(err).Warn("[Pipeline.Extract] attachment extraction failed: message=%s file=%s", msg.ID, att.Filename)
				return
			}
			if doc != nil {
				doc.SourceName = att.Filename
				results[idx].doc = doc
			}
		}(i, att)
	}
	wg.Wait()

	var (
		attachmentDocs []*domain.ExtractedDocument
		refs           []domain.AttachmentRef
	)
	for _, r := range results {
		if r.ref != nil {
			refs = append(refs, *r.ref)
		}
		if r.doc != nil {
			attachmentDocs = append(attachmentDocs, r.doc)
		}
	}

	return &Result{
		Document:       Merge(body, attachmentDocs),
		AttachmentRefs: refs,
	}, nil
}
