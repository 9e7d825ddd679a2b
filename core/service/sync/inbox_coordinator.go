// Package sync owns the mailbox sync job lifecycle: creation, the
// progressive-batch continuation loop, completion, failure and cancellation.
package sync

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"inbox_server/core/domain"
	"inbox_server/core/port/out"
	"inbox_server/core/service/classify"
	"inbox_server/core/service/dedup"
	"inbox_server/core/service/extract"
	"inbox_server/core/service/hash"
	"inbox_server/pkg/apperr"
	"inbox_server/pkg/logger"
	"inbox_server/pkg/ratelimit"
)

// Options tunes the coordinator's fetch behavior.
type Options struct {
	// SearchQuery is the provider search expression for candidate messages.
	SearchQuery string
	// SearchDays limits the listing to messages newer than N days.
	SearchDays int
	// MaxTotal caps how many messages one job will ever process.
	MaxTotal int
}

type Coordinator struct {
	jobs     out.JobRepository
	docs     out.DocumentRepository
	rules    out.RuleRepository
	provider out.MailboxProvider
	pipeline *extract.Pipeline
	engine   *classify.RuleEngine
	applier  *classify.Applier
	dedup    *dedup.Deduplicator
	producer out.MessageProducer
	limiter  *ratelimit.WindowLimiter
	opts     Options
	log      *logger.Logger
}

func NewCoordinator(
	jobs out.JobRepository,
	docs out.DocumentRepository,
	rules out.RuleRepository,
	provider out.MailboxProvider,
	pipeline *extract.Pipeline,
	engine *classify.RuleEngine,
	applier *classify.Applier,
	deduplicator *dedup.Deduplicator,
	producer out.MessageProducer,
	limiter *ratelimit.WindowLimiter,
	opts Options,
	log *logger.Logger,
) *Coordinator {
	if opts.MaxTotal <= 0 {
		opts.MaxTotal = 500
	}
	return &Coordinator{
		jobs:     jobs,
		docs:     docs,
		rules:    rules,
		provider: provider,
		pipeline: pipeline,
		engine:   engine,
		applier:  applier,
		dedup:    deduplicator,
		producer: producer,
		limiter:  limiter,
		opts:     opts,
		log:      log,
	}
}

// =============================================================================
// Job control operations
// =============================================================================

// StartSync creates a new sync job for the owner and enqueues its first
// batch. Single-flight per owner: an existing pending/running job is a
// conflict, never interleaved.
func (c *Coordinator) StartSync(ctx context.Context, ownerID string) (*domain.SyncJob, error) {
	if c.provider == nil {
		return nil, apperr.PreconditionFailed("mailbox provider is not configured")
	}
	if c.limiter != nil {
		allowed, err := c.limiter.Allow(ctx, ownerID)
		if err != nil {
			c.log.WithError(err).Warn("[Coordinator.StartSync] rate limit check failed, allowing")
		} else if !allowed {
			return nil, apperr.TooManyRequests("daily sync limit reached")
		}
	}

	active, err := c.jobs.GetActiveByOwner(ctx, ownerID)
	if err != nil {
		return nil, apperr.DatabaseError(err, "failed to check active jobs")
	}
	if active != nil {
		return nil, apperr.Conflict("a sync job is already in progress")
	}

	job := &domain.SyncJob{
		ID:            uuid.NewString(),
		OwnerID:       ownerID,
		Status:        domain.JobStatusPending,
		CurrentAction: "sync queued",
		CreatedAt:     time.Now(),
	}
	if err := c.jobs.Create(ctx, job); err != nil {
		// lost the race between GetActiveByOwner and the insert
		if errors.Is(err, out.ErrDuplicateActiveJob) {
			return nil, apperr.Conflict("a sync job is already in progress")
		}
		return nil, apperr.DatabaseError(err, "failed to create sync job")
	}

	if err := c.enqueueContinue(ctx, job); err != nil {
		c.log.WithError(err).Error("[Coordinator.StartSync] enqueue failed: job=%s", job.ID)
	}
	c.log.Info("[Coordinator.StartSync] job created: owner=%s job=%s", ownerID, job.ID)
	return job, nil
}

// ContinueJob runs the next batch of a pending job. It is the resumption
// point after a crash or a scheduled retry, so it revalidates job state
// before doing any work.
func (c *Coordinator) ContinueJob(ctx context.Context, jobID string) (*domain.SyncJob, error) {
	// jobs enqueued before the provider was unconfigured must not crash the
	// consumer; they stay pending until sync is configured again
	if c.provider == nil {
		return nil, apperr.PreconditionFailed("mailbox provider is not configured")
	}
	job, err := c.jobs.GetByID(ctx, jobID)
	if err != nil {
		return nil, apperr.DatabaseError(err, "failed to load job")
	}
	if job == nil {
		return nil, apperr.NotFound("job %s not found", jobID)
	}
	if job.Status != domain.JobStatusPending {
		return nil, apperr.PreconditionFailed("job %s is %s, not pending", jobID, job.Status)
	}

	now := time.Now()
	job.Status = domain.JobStatusRunning
	if job.StartedAt == nil {
		job.StartedAt = &now
	}
	job.CurrentAction = "starting batch"
	if err := c.jobs.Update(ctx, job); err != nil {
		return nil, apperr.DatabaseError(err, "failed to mark job running")
	}

	if err := c.runBatch(ctx, job); err != nil {
		c.failJob(ctx, job, err)
		return job, nil
	}

	if job.Status == domain.JobStatusPending {
		if err := c.enqueueContinue(ctx, job); err != nil {
			c.log.WithError(err).Error("[Coordinator.ContinueJob] enqueue next batch failed: job=%s", job.ID)
		}
	}
	return job, nil
}

// CancelSync fails an active job with the cancellation sentinel. Terminal
// jobs cannot be cancelled.
func (c *Coordinator) CancelSync(ctx context.Context, ownerID, jobID string) (*domain.SyncJob, error) {
	job, err := c.jobs.GetByID(ctx, jobID)
	if err != nil {
		return nil, apperr.DatabaseError(err, "failed to load job")
	}
	if job == nil || job.OwnerID != ownerID {
		return nil, apperr.NotFound("job %s not found", jobID)
	}
	if !job.IsActive() {
		return nil, apperr.PreconditionFailed("job %s is already %s", jobID, job.Status)
	}

	now := time.Now()
	job.Status = domain.JobStatusFailed
	job.Error = domain.CancelledByUser
	job.CurrentAction = "cancelled"
	job.FinishedAt = &now
	if err := c.jobs.Update(ctx, job); err != nil {
		return nil, apperr.DatabaseError(err, "failed to cancel job")
	}
	c.log.Info("[Coordinator.CancelSync] job cancelled: owner=%s job=%s", ownerID, jobID)
	return job, nil
}

// GetJob returns a job by id, scoped to the owner.
func (c *Coordinator) GetJob(ctx context.Context, ownerID, jobID string) (*domain.SyncJob, error) {
	job, err := c.jobs.GetByID(ctx, jobID)
	if err != nil {
		return nil, apperr.DatabaseError(err, "failed to load job")
	}
	if job == nil || job.OwnerID != ownerID {
		return nil, apperr.NotFound("job %s not found", jobID)
	}
	return job, nil
}

// GetLatestJob returns the owner's most recent job, or nil.
func (c *Coordinator) GetLatestJob(ctx context.Context, ownerID string) (*domain.SyncJob, error) {
	job, err := c.jobs.GetLatestByOwner(ctx, ownerID)
	if err != nil {
		return nil, apperr.DatabaseError(err, "failed to load latest job")
	}
	return job, nil
}

// RecoverStalled flips running jobs that went quiet (process death mid
// batch) back to pending and re-enqueues them.
func (c *Coordinator) RecoverStalled(ctx context.Context, stalledAfter time.Duration) (int, error) {
	cutoff := time.Now().Add(-stalledAfter)
	stalled, err := c.jobs.ListStalled(ctx, cutoff)
	if err != nil {
		return 0, apperr.DatabaseError(err, "failed to list stalled jobs")
	}
	recovered := 0
	for _, job := range stalled {
		job.Status = domain.JobStatusPending
		job.CurrentAction = "recovered after stall"
		if err := c.jobs.Update(ctx, job); err != nil {
			c.log.WithError(err).Error("[Coordinator.RecoverStalled] update failed: job=%s", job.ID)
			continue
		}
		if err := c.enqueueContinue(ctx, job); err != nil {
			c.log.WithError(err).Error("[Coordinator.RecoverStalled] enqueue failed: job=%s", job.ID)
			continue
		}
		recovered++
	}
	if recovered > 0 {
		c.log.Info("[Coordinator.RecoverStalled] recovered %d stalled jobs", recovered)
	}
	return recovered, nil
}

// =============================================================================
// Batch processing
// =============================================================================

func (c *Coordinator) runBatch(ctx context.Context, job *domain.SyncJob) error {
	batchSize := domain.NextBatchSize(job.ProcessedCount)

	// Persist progress before every remote call: the process may die at any
	// suspension point and the next invocation resumes from this state.
	job.CurrentAction = fmt.Sprintf("fetching up to %d messages", batchSize)
	if err := c.jobs.Update(ctx, job); err != nil {
		return err
	}

	page, err := c.provider.ListMessages(ctx, job.OwnerID, out.ListQuery{
		Query:             c.buildQuery(),
		ContinuationToken: job.ContinuationToken,
		MaxResults:        batchSize,
	})
	if err != nil {
		return fmt.Errorf("mailbox listing failed: %w", err)
	}

	rules, err := c.rules.ListEnabled(ctx, job.OwnerID)
	if err != nil {
		return fmt.Errorf("loading rules failed: %w", err)
	}

	added := 0
	for i := range page.Messages {
		header := &page.Messages[i]

		job.CurrentAction = fmt.Sprintf("processing message %d of %d", i+1, len(page.Messages))
		if err := c.jobs.Update(ctx, job); err != nil {
			return err
		}

		// Cancellation only blocks future batches, but re-checking here
		// keeps a long batch from grinding on after a cancel.
		fresh, err := c.jobs.GetByID(ctx, job.ID)
		if err == nil && fresh != nil && !fresh.IsActive() {
			c.log.Info("[Coordinator.runBatch] job no longer active, stopping: job=%s", job.ID)
			*job = *fresh
			return nil
		}

		inserted, err := c.processMessage(ctx, job, header, rules)
		if err != nil {
			// transient per-message failure: skip, keep the batch alive
			c.log.WithError(err).Warn("[Coordinator.runBatch] message skipped: job=%s message=%s", job.ID, header.ID)
			continue
		}
		if inserted {
			added++
		}
	}

	job.ProcessedCount += len(page.Messages)
	job.CardsAdded += added
	job.ContinuationToken = page.NextContinuationToken

	now := time.Now()
	switch {
	case page.NextContinuationToken != "" && job.ProcessedCount < c.opts.MaxTotal:
		job.Status = domain.JobStatusPending
		job.CurrentAction = fmt.Sprintf("processed %d messages, %d cards so far", job.ProcessedCount, job.CardsAdded)
	default:
		job.Status = domain.JobStatusCompleted
		job.ContinuationToken = ""
		job.CurrentAction = fmt.Sprintf("completed: %d messages, %d cards", job.ProcessedCount, job.CardsAdded)
		job.FinishedAt = &now
	}
	return c.jobs.Update(ctx, job)
}

// processMessage runs dedup -> extraction -> classification -> action
// application -> persist for one message. Returns whether a new document
// was written.
func (c *Coordinator) processMessage(ctx context.Context, job *domain.SyncJob, header *domain.InboundMessage, rules []*domain.ClassificationRule) (bool, error) {
	msg, err := c.provider.FetchMessage(ctx, job.OwnerID, header.ID)
	if err != nil {
		return false, fmt.Errorf("fetch failed: %w", err)
	}

	subjectHash, _ := hash.SubjectHash(msg.Subject)
	fingerprint := hash.ContentFingerprint(msg)

	dup, reason, err := c.dedup.IsDuplicate(ctx, job.OwnerID, msg, subjectHash, fingerprint)
	if err != nil {
		return false, fmt.Errorf("dedup check failed: %w", err)
	}
	if dup {
		c.log.Debug("[Coordinator.processMessage] duplicate skipped: message=%s reason=%s", msg.ID, reason)
		return false, nil
	}

	extracted, err := c.pipeline.Extract(ctx, job.OwnerID, msg)
	if err != nil {
		return false, fmt.Errorf("extraction failed: %w", err)
	}
	if extracted.Document == nil {
		c.log.Debug("[Coordinator.processMessage] nothing financial: message=%s", msg.ID)
		return false, nil
	}

	result := c.engine.Classify(ctx, extracted.Document, msg.Body(), rules)
	doc := buildDocument(job.OwnerID, msg, extracted, subjectHash, fingerprint)
	c.applier.Apply(ctx, doc, result)

	inserted, err := c.docs.Insert(ctx, doc)
	if err != nil {
		return false, fmt.Errorf("persist failed: %w", err)
	}
	// conflict on (owner_id, source_message_id) is an expected no-op
	return inserted, nil
}

func buildDocument(ownerID string, msg *domain.InboundMessage, extracted *extract.Result, subjectHash, fingerprint string) *domain.Document {
	ext := extracted.Document
	now := time.Now()

	title := ext.Title
	if title == "" {
		title = msg.Subject
	}
	paymentStatus := domain.PaymentStatusNotApplicable
	if ext.Amount != nil {
		paymentStatus = domain.PaymentStatusUnpaid
	}
	timestamp := msg.Date
	if timestamp.IsZero() {
		timestamp = now
	}

	return &domain.Document{
		ID:                 uuid.NewString(),
		OwnerID:            ownerID,
		SourceMessageID:    msg.ID,
		SourceType:         domain.SourceTypeEmail,
		SubjectHash:        subjectHash,
		DocumentType:       ext.DocumentType,
		Title:              title,
		Summary:            ext.Summary,
		Amount:             ext.Amount,
		Currency:           ext.Currency,
		InvoiceNumber:      ext.InvoiceNumber,
		DueDate:            ext.DueDate,
		IssueDate:          ext.IssueDate,
		BuyerName:          ext.BuyerName,
		SellerName:         ext.SellerName,
		Confidence:         ext.Confidence,
		Status:             domain.DocStatusPending,
		PaymentStatus:      paymentStatus,
		SenderAddress:      strings.ToLower(strings.TrimSpace(msg.From)),
		NormalizedSubject:  hash.NormalizeSubject(msg.Subject),
		ContentFingerprint: fingerprint,
		HasAttachments:     len(msg.Attachments) > 0,
		AttachmentCount:    len(msg.Attachments),
		AttachmentRefs:     extracted.AttachmentRefs,
		Rationale:          ext.Rationale,
		Timestamp:          timestamp,
		CreatedAt:          now,
		UpdatedAt:          now,
	}
}

func (c *Coordinator) failJob(ctx context.Context, job *domain.SyncJob, cause error) {
	now := time.Now()
	job.Status = domain.JobStatusFailed
	job.Error = cause.Error()
	job.CurrentAction = "failed"
	job.FinishedAt = &now
	if err := c.jobs.Update(ctx, job); err != nil {
		c.log.WithError(err).Error("[Coordinator.failJob] failed to persist failure: job=%s", job.ID)
	}
	c.log.WithError(cause).Error("[Coordinator.failJob] job failed: job=%s", job.ID)
}

func (c *Coordinator) enqueueContinue(ctx context.Context, job *domain.SyncJob) error {
	if c.producer == nil {
		return fmt.Errorf("no message producer configured, job %s cannot be enqueued", job.ID)
	}
	return c.producer.PublishSyncContinue(ctx, &out.SyncContinueJob{
		JobID:      job.ID,
		OwnerID:    job.OwnerID,
		EnqueuedAt: time.Now(),
	})
}

func (c *Coordinator) buildQuery() string {
	q := c.opts.SearchQuery
	if c.opts.SearchDays > 0 {
		q = fmt.Sprintf("%s newer_than:%dd", q, c.opts.SearchDays)
	}
	return strings.TrimSpace(q)
}
