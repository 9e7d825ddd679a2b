package out

import (
	"context"
	"time"
)

// =============================================================================
// Message Producer Port (Redis Stream)
// =============================================================================

// SyncContinueJob asks the background worker to run the next batch of a
// pending sync job.
type SyncContinueJob struct {
	JobID      string    `json:"job_id"`
	OwnerID    string    `json:"owner_id"`
	EnqueuedAt time.Time `json:"enqueued_at"`
	RetryCount int       `json:"retry_count"`
}

// MessageProducer publishes background jobs.
type MessageProducer interface {
	// PublishSyncContinue enqueues the next batch of a sync job.
	PublishSyncContinue(ctx context.Context, job *SyncContinueJob) error
}
