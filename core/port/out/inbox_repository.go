// Package out defines outbound ports (driven ports) for the application.
// These interfaces represent dependencies that the application needs.
package out

import (
	"context"
	"errors"
	"time"

	"inbox_server/core/domain"
)

// ErrDuplicateActiveJob is returned by JobRepository.Create when the owner
// already has a pending or running job. The database enforces this with a
// partial unique index, closing the race between the single-flight check
// and the insert.
var ErrDuplicateActiveJob = errors.New("owner already has an active sync job")

// =============================================================================
// Job Repository (PostgreSQL)
// =============================================================================

// JobRepository persists sync job state between invocations.
type JobRepository interface {
	Create(ctx context.Context, job *domain.SyncJob) error
	Update(ctx context.Context, job *domain.SyncJob) error
	GetByID(ctx context.Context, id string) (*domain.SyncJob, error)
	// GetLatestByOwner returns the owner's most recently created job,
	// or nil when the owner never synced.
	GetLatestByOwner(ctx context.Context, ownerID string) (*domain.SyncJob, error)
	// GetActiveByOwner returns the owner's pending/running job, or nil.
	// Backs the single-flight check at job creation.
	GetActiveByOwner(ctx context.Context, ownerID string) (*domain.SyncJob, error)
	// ListStalled returns running jobs untouched for longer than cutoff,
	// candidates for recovery back to pending.
	ListStalled(ctx context.Context, cutoff time.Time) ([]*domain.SyncJob, error)
}

// =============================================================================
// Document Repository (PostgreSQL)
// =============================================================================

// DocumentRepository persists inbox cards. Insert is idempotent on
// (owner_id, source_message_id): re-inserting an already-seen message is a
// no-op, reported by the inserted flag.
type DocumentRepository interface {
	Insert(ctx context.Context, doc *domain.Document) (inserted bool, err error)
	Update(ctx context.Context, doc *domain.Document) error
	GetByID(ctx context.Context, id string) (*domain.Document, error)
	GetBySourceMessageID(ctx context.Context, ownerID, sourceMessageID string) (*domain.Document, error)
	GetBySubjectHash(ctx context.Context, ownerID, subjectHash string) (*domain.Document, error)
	// ListRecent returns the owner's email-sourced documents created after
	// `since`, used for the recency-window duplicate check.
	ListRecent(ctx context.Context, ownerID string, since time.Time) ([]*domain.Document, error)
	List(ctx context.Context, ownerID string, status domain.DocumentStatus, limit, offset int) ([]*domain.Document, int, error)
}

// =============================================================================
// Rule Repository (PostgreSQL)
// =============================================================================

// RuleRepository reads the owner's classification rules.
type RuleRepository interface {
	// ListEnabled returns enabled rules ordered by ascending priority,
	// ties broken by insertion order.
	ListEnabled(ctx context.Context, ownerID string) ([]*domain.ClassificationRule, error)
	Create(ctx context.Context, rule *domain.ClassificationRule) error
	Update(ctx context.Context, rule *domain.ClassificationRule) error
	Delete(ctx context.Context, ownerID, id string) error
	GetByID(ctx context.Context, ownerID, id string) (*domain.ClassificationRule, error)
	List(ctx context.Context, ownerID string) ([]*domain.ClassificationRule, error)
}

// =============================================================================
// Action Ledger Repository (PostgreSQL, append-only)
// =============================================================================

// ActionLedgerRepository appends disposition records for audit.
type ActionLedgerRepository interface {
	Append(ctx context.Context, entry *domain.ActionEntry) error
	ListByDocument(ctx context.Context, documentID string) ([]*domain.ActionEntry, error)
	ListByOwner(ctx context.Context, ownerID string, limit, offset int) ([]*domain.ActionEntry, error)
}

// =============================================================================
// Scheduled Payment Repository (PostgreSQL)
// =============================================================================

// ScheduledPaymentRepository persists payments queued by rule actions.
type ScheduledPaymentRepository interface {
	Create(ctx context.Context, p *domain.ScheduledPayment) error
	GetByID(ctx context.Context, id string) (*domain.ScheduledPayment, error)
	ListByOwner(ctx context.Context, ownerID string, limit, offset int) ([]*domain.ScheduledPayment, error)
	UpdateStatus(ctx context.Context, id string, status domain.PaymentScheduleStatus) error
}
