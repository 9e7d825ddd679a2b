// Package worker contains the background job processors.
package worker

import (
	"context"
	"fmt"

	"github.com/goccy/go-json"

	"inbox_server/adapter/out/messaging"
	"inbox_server/core/port/out"
	"inbox_server/core/service/sync"
	"inbox_server/pkg/apperr"
	"inbox_server/pkg/logger"
)

// =============================================================================
// Handler - dispatches stream messages to processors
// =============================================================================

type Handler struct {
	syncProcessor *SyncProcessor
}

func NewHandler(syncProcessor *SyncProcessor) *Handler {
	return &Handler{syncProcessor: syncProcessor}
}

// Handle implements messaging.JobHandler.
func (h *Handler) Handle(ctx context.Context, stream string, data []byte) error {
	logger.Debug("[Handler.Handle] processing message: stream=%s", stream)

	switch stream {
	case messaging.StreamSyncContinue:
		return h.syncProcessor.ProcessContinue(ctx, data)
	default:
		logger.Warn("[Handler.Handle] unknown stream: %s", stream)
		return nil
	}
}

var _ messaging.JobHandler = (*Handler)(nil)

// =============================================================================
// SyncProcessor - runs sync job batches
// =============================================================================

type SyncProcessor struct {
	coordinator *sync.Coordinator
}

func NewSyncProcessor(coordinator *sync.Coordinator) *SyncProcessor {
	return &SyncProcessor{coordinator: coordinator}
}

// ProcessContinue runs the next batch of a sync job. Jobs that are no longer
// pending (completed, cancelled, or picked up by another consumer) are
// acknowledged without retry.
func (p *SyncProcessor) ProcessContinue(ctx context.Context, data []byte) error {
	var job out.SyncContinueJob
	if err := json.Unmarshal(data, &job); err != nil {
		return fmt.Errorf("failed to parse sync continue job: %w", err)
	}

	log := logger.WithFields(map[string]any{
		"job_id":   job.JobID,
		"owner_id": job.OwnerID,
	})
	log.Debug("[SyncProcessor.ProcessContinue] continuing job")

	result, err := p.coordinator.ContinueJob(ctx, job.JobID)
	if err != nil {
		if apperr.IsCode(err, apperr.CodeNotFound) || apperr.IsCode(err, apperr.CodePreconditionFailed) {
			log.WithError(err).Warn("[SyncProcessor.ProcessContinue] job not continuable, dropping")
			return nil
		}
		return err
	}

	log.Info("[SyncProcessor.ProcessContinue] batch done: status=%s processed=%d cards=%d",
		result.Status, result.ProcessedCount, result.CardsAdded)
	return nil
}
