package task

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"golang.org/x/sync/errgroup"
)

// Consumer processes queue messages until its context is cancelled.
type Consumer interface {
	Run(ctx context.Context) error
}

// ConsumerFactory creates the consumer for one worker slot.
type ConsumerFactory func(worker int) (Consumer, error)

// WorkerPoolConfig holds configuration options for the worker pool
type WorkerPoolConfig struct {
	// WorkerCount determines how many consumers run concurrently
	// If zero or negative, defaults to 1
	WorkerCount int
}

// WorkerPool runs a fixed number of consumers. If any consumer stops with an
// error the others are cancelled and Run returns that error.
type WorkerPool struct {
	factory     ConsumerFactory
	workerCount int
	logger      *slog.Logger
}

// NewWorkerPool creates a new worker pool with the specified configuration
func NewWorkerPool(factory ConsumerFactory, config WorkerPoolConfig, logger *slog.Logger) *WorkerPool {
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("component", "worker_pool")

	workerCount := config.WorkerCount
	if workerCount <= 0 {
		workerCount = 1
		logger.Warn("invalid worker count specified, using default",
			"specified_count", config.WorkerCount,
			"default_count", 1)
	}

	return &WorkerPool{factory: factory, workerCount: workerCount, logger: logger}
}

// Run starts the workers and blocks until ctx is cancelled or a worker
// fails. Cancellation is a clean shutdown and returns nil.
func (p *WorkerPool) Run(ctx context.Context) error {
	consumers := make([]Consumer, 0, p.workerCount)
	for i := 0; i < p.workerCount; i++ {
		c, err := p.factory(i)
		if err != nil {
			return fmt.Errorf("failed to create consumer for worker %d: %w", i, err)
		}
		consumers = append(consumers, c)
	}

	p.logger.Info("starting worker pool", "worker_count", p.workerCount)
	g, gctx := errgroup.WithContext(ctx)
	for i, c := range consumers {
		g.Go(func() error {
			err := c.Run(gctx)
			if err != nil && !errors.Is(err, context.Canceled) {
				p.logger.Error("worker stopped", "worker", i, "error", err)
				return fmt.Errorf("worker %d: %w", i, err)
			}
			return nil
		})
	}

	err := g.Wait()
	p.logger.Info("worker pool stopped")
	return err
}
