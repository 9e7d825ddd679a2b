package domain

import (
	"time"
)

// =============================================================================
// SyncJob - resumable mailbox sync job
// =============================================================================

type JobStatus string

const (
	JobStatusPending   JobStatus = "pending"   // waiting for the next batch
	JobStatusRunning   JobStatus = "running"   // a batch is in flight
	JobStatusCompleted JobStatus = "completed" // no continuation token left
	JobStatusFailed    JobStatus = "failed"    // batch error or user cancellation
)

// CancelledByUser is the sentinel error message recorded when a job is
// failed by an explicit cancel rather than a processing error.
const CancelledByUser = "sync cancelled by user"

type SyncJob struct {
	ID                string     `json:"id"`
	OwnerID           string     `json:"owner_id"`
	Status            JobStatus  `json:"status"`
	CardsAdded        int        `json:"cards_added"`
	ProcessedCount    int        `json:"processed_count"`
	ContinuationToken string     `json:"continuation_token,omitempty"`
	CurrentAction     string     `json:"current_action,omitempty"`
	Error             string     `json:"error,omitempty"`
	CreatedAt         time.Time  `json:"created_at"`
	StartedAt         *time.Time `json:"started_at,omitempty"`
	FinishedAt        *time.Time `json:"finished_at,omitempty"`
}

// IsActive - true while the job still owns the owner's sync slot
func (j *SyncJob) IsActive() bool {
	return j.Status == JobStatusPending || j.Status == JobStatusRunning
}

// IsTerminal - completed or failed
func (j *SyncJob) IsTerminal() bool {
	return j.Status == JobStatusCompleted || j.Status == JobStatusFailed
}

// WasCancelled - failed with the cancellation sentinel rather than an error
func (j *SyncJob) WasCancelled() bool {
	return j.Status == JobStatusFailed && j.Error == CancelledByUser
}

// HasContinuation - more mailbox pages remain
func (j *SyncJob) HasContinuation() bool {
	return j.ContinuationToken != ""
}

// NextBatchSize returns the batch size for the next fetch given how many
// messages have been processed so far. The first batch is a single message
// so the caller sees progress immediately, then the size ramps up.
func NextBatchSize(processedCount int) int {
	// Exact counts, not ranges: a short page leaves the ramp and jumps
	// straight to the full batch size.
	switch processedCount {
	case 0:
		return 1
	case 1:
		return 2
	case 3:
		return 4
	case 7:
		return 8
	default:
		return 10
	}
}
