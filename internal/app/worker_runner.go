package app

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/dig"

	"service-dispatch/internal/logx"
	"service-dispatch/internal/queue/redisdelay"
	"service-dispatch/internal/transport/kafka"
)

// WorkerRunner runs the dispatch job worker: the Kafka consumer plus the
// delayed-job scheduler.
type WorkerRunner struct {
	runFn func(*dig.Container) error
}

// NewWorkerRunner returns a new WorkerRunner
func NewWorkerRunner() *WorkerRunner {
	return &WorkerRunner{runFn: runWorker}
}

// MustRun starts the worker using the provided DI container
func (r *WorkerRunner) MustRun(container *dig.Container) {
	err := r.runFn(container)
	if err == nil || errors.Is(err, context.Canceled) {
		return
	}
	panic(err)
}

func runWorker(container *dig.Container) error {
	return container.Invoke(workerRun)
}

func workerRun(
	ctx context.Context,
	pool *pgxpool.Pool,
	logger logx.Logger,
	consumer *kafka.Consumer,
	scheduler *redisdelay.Scheduler,
	producer *kafka.Producer,
) error {
	if consumer == nil {
		return fmt.Errorf("kafka consumer is nil: worker container misconfigured")
	}
	defer closeWorker(pool, logger, consumer, producer)

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	errCh := make(chan error, 2)
	go func() { errCh <- consumer.Run(ctx) }()
	go func() { errCh <- scheduler.Run(ctx) }()

	logger.Info("service-dispatch-worker started")

	// first exit wins; cancel the other loop and drain it
	err := <-errCh
	cancel()
	<-errCh
	return err
}

func closeWorker(pool *pgxpool.Pool, logger logx.Logger, consumer *kafka.Consumer, producer *kafka.Producer) {
	if err := consumer.Close(); err != nil {
		logger.Error("kafka consumer close error", logx.Any("err", err))
	}
	if err := producer.Close(); err != nil {
		logger.Error("kafka producer close error", logx.Any("err", err))
	}
	if pool != nil {
		pool.Close()
	}
}
