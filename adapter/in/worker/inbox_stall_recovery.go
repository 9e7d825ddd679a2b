package worker

import (
	"context"
	"time"

	"inbox_server/core/service/sync"
	"inbox_server/pkg/logger"
)

// =============================================================================
// StallRecoveryScheduler - revives jobs abandoned by a dead process
// =============================================================================
//
// A job persisted as running with no recent update means the consumer that
// owned it died mid-batch. This scheduler periodically flips such jobs back
// to pending and re-enqueues them.

const (
	stallCheckInterval = 1 * time.Minute
	stallCheckTimeout  = 30 * time.Second
	startupDelay       = 10 * time.Second
)

type StallRecoveryScheduler struct {
	coordinator   *sync.Coordinator
	stalledAfter  time.Duration
	checkInterval time.Duration
	ctx           context.Context
	cancel        context.CancelFunc
}

// NewStallRecoveryScheduler creates a new stall recovery scheduler.
func NewStallRecoveryScheduler(coordinator *sync.Coordinator, stalledAfter time.Duration) *StallRecoveryScheduler {
	ctx, cancel := context.WithCancel(context.Background())
	return &StallRecoveryScheduler{
		coordinator:   coordinator,
		stalledAfter:  stalledAfter,
		checkInterval: stallCheckInterval,
		ctx:           ctx,
		cancel:        cancel,
	}
}

// Start starts the scheduler.
func (s *StallRecoveryScheduler) Start() {
	logger.Info("[StallRecoveryScheduler] Starting...")
	go s.run()
}

// Stop stops the scheduler.
func (s *StallRecoveryScheduler) Stop() {
	logger.Info("[StallRecoveryScheduler] Stopping...")
	s.cancel()
}

// run is the main loop.
func (s *StallRecoveryScheduler) run() {
	// Let the consumer settle before the first sweep
	select {
	case <-s.ctx.Done():
		return
	case <-time.After(startupDelay):
	}

	ticker := time.NewTicker(s.checkInterval)
	defer ticker.Stop()

	for {
		select {
		case <-s.ctx.Done():
			logger.Info("[StallRecoveryScheduler] Stopped")
			return
		case <-ticker.C:
			s.sweep()
		}
	}
}

func (s *StallRecoveryScheduler) sweep() {
	ctx, cancel := context.WithTimeout(s.ctx, stallCheckTimeout)
	defer cancel()

	recovered, err := s.coordinator.RecoverStalled(ctx, s.stalledAfter)
	if err != nil {
		logger.Error("[StallRecoveryScheduler] Failed to recover stalled jobs: %v", err)
		return
	}
	if recovered > 0 {
		logger.Info("[StallRecoveryScheduler] Recovered %d stalled jobs", recovered)
	}
}

// SetCheckInterval sets the check interval (for testing).
func (s *StallRecoveryScheduler) SetCheckInterval(interval time.Duration) {
	s.checkInterval = interval
}
