package bootstrap

import (
	"context"
	"errors"
	"sync"
	"time"

	"inbox_server/adapter/in/worker"
	"inbox_server/adapter/out/messaging"
	"inbox_server/config"
	"inbox_server/pkg/logger"
)

var errRedisRequired = errors.New("worker mode requires REDIS_URL to be configured")

// Worker runs the background side of the system: the Redis Streams
// consumer that drives in-flight sync jobs forward and the stall
// recovery sweep that re-enqueues jobs whose worker died mid-batch.
type Worker struct {
	consumer      *messaging.Consumer
	stallRecovery *worker.StallRecoveryScheduler
	cleanup       func()

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

func NewWorker(cfg *config.Config) (*Worker, error) {
	logLevel := logger.LevelInfo
	if cfg.IsDevelopment() {
		logLevel = logger.LevelDebug
	}
	logger.Init(logger.Config{
		Level:   logLevel,
		Service: "inbox-worker",
	})

	deps, cleanup, err := NewDependencies(cfg)
	if err != nil {
		logger.WithError(err).Error("Failed to initialize dependencies")
		return nil, err
	}

	if deps.Redis == nil {
		cleanup()
		return nil, errRedisRequired
	}

	syncProcessor := worker.NewSyncProcessor(deps.Coordinator)
	handler := worker.NewHandler(syncProcessor)

	consumer := messaging.NewConsumer(deps.Redis, &messaging.ConsumerConfig{
		Group:           "inbox-workers",
		Consumer:        cfg.NodeID,
		Streams:         []string{messaging.StreamSyncContinue},
		Handler:         handler,
		Logger:          logger.Default().Zerolog(),
		ReadCount:       cfg.ConsumerBatchSize,
		BlockTime:       time.Duration(cfg.ConsumerBlockMS) * time.Millisecond,
		MaxRetries:      cfg.ConsumerMaxRetries,
		PendingIdleTime: cfg.ConsumerClaimMinIdle,
		RetryDelay:      time.Duration(cfg.ConsumerRetryDelaySec) * time.Second,
	})

	stallRecovery := worker.NewStallRecoveryScheduler(deps.Coordinator, cfg.SyncStalledAfter)

	ctx, cancel := context.WithCancel(context.Background())

	return &Worker{
		consumer:      consumer,
		stallRecovery: stallRecovery,
		cleanup:       cleanup,
		ctx:           ctx,
		cancel:        cancel,
	}, nil
}

// Start blocks until Stop is called or the consumer exits.
func (w *Worker) Start() error {
	w.wg.Add(1)
	go func() {
		defer w.wg.Done()
		if err := w.consumer.Run(w.ctx); err != nil && w.ctx.Err() == nil {
			logger.WithError(err).Error("Consumer exited unexpectedly")
		}
	}()

	w.stallRecovery.Start()

	logger.Info("Worker started")
	<-w.ctx.Done()
	return nil
}

// Stop shuts the worker down and waits for in-flight handlers.
func (w *Worker) Stop() {
	logger.Info("Stopping worker...")
	w.cancel()
	w.stallRecovery.Stop()
	w.wg.Wait()
	w.cleanup()
	logger.Info("Worker stopped")
}
