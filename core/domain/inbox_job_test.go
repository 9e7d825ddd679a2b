package domain

import (
	"testing"
)

func TestNextBatchSize(t *testing.T) {
	tests := []struct {
		processed int
		want      int
	}{
		{0, 1},
		{1, 2},
		{3, 4},
		{7, 8},
		{8, 10},
		{17, 10},
		{1000, 10},
		// off the exact ramp (short provider page): straight to full size
		{2, 10},
		{4, 10},
		{-1, 10},
	}
	for _, tt := range tests {
		if got := NextBatchSize(tt.processed); got != tt.want {
			t.Errorf("NextBatchSize(%d) = %d, want %d", tt.processed, got, tt.want)
		}
	}
}

func TestSyncJobStateHelpers(t *testing.T) {
	job := &SyncJob{Status: JobStatusPending}
	if !job.IsActive() || job.IsTerminal() {
		t.Error("pending job should be active, not terminal")
	}

	job.Status = JobStatusRunning
	if !job.IsActive() {
		t.Error("running job should be active")
	}

	job.Status = JobStatusCompleted
	if job.IsActive() || !job.IsTerminal() {
		t.Error("completed job should be terminal")
	}

	job.Status = JobStatusFailed
	job.Error = CancelledByUser
	if !job.WasCancelled() {
		t.Error("failed job with the sentinel should read as cancelled")
	}
	job.Error = "llm timeout"
	if job.WasCancelled() {
		t.Error("failed job with a real error is not a cancellation")
	}
}
