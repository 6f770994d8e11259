// Package main runs the generation worker: it consumes generation requests,
// drafts and safety-checks quizzes with Gemini, and publishes the outcome.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/errgroup"

	"github.com/phrazzld/quizgen/internal/config"
	"github.com/phrazzld/quizgen/internal/generation"
	"github.com/phrazzld/quizgen/internal/platform/gemini"
	"github.com/phrazzld/quizgen/internal/platform/logger"
	"github.com/phrazzld/quizgen/internal/platform/rabbitmq"
	"github.com/phrazzld/quizgen/internal/redact"
	"github.com/phrazzld/quizgen/internal/task"
)

const (
	brokerDialRetries = 10
	brokerDialDelay   = 3 * time.Second
	shutdownTimeout   = 10 * time.Second
)

func main() {
	if err := run(); err != nil {
		slog.Error("generation worker stopped with error", "error", redact.Error(err))
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load(config.RoleGenerationWorker)
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	log, err := logger.Setup(cfg.Server)
	if err != nil {
		return fmt.Errorf("failed to set up logger: %w", err)
	}
	log.Info("generation worker configuration loaded",
		"model", cfg.LLM.ModelName,
		"max_try", cfg.LLM.MaxTry,
		"attempt_timeout", cfg.LLM.AttemptTimeout,
		"workers", cfg.Worker.Count)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	agent, err := gemini.NewAgent(ctx, log, cfg.LLM)
	if err != nil {
		return fmt.Errorf("failed to initialize gemini agent: %w", err)
	}

	runner, err := generation.NewRunner(agent,
		generation.WithAttemptTimeout(cfg.LLM.AttemptTimeout),
		generation.WithObserver(generation.PrometheusObserver{}),
		generation.WithLogger(log))
	if err != nil {
		return fmt.Errorf("failed to create generation runner: %w", err)
	}

	conn, err := rabbitmq.Dial(ctx, cfg.RabbitMQ.URL, brokerDialRetries, brokerDialDelay, log)
	if err != nil {
		return fmt.Errorf("failed to connect to rabbitmq: %w", err)
	}
	defer func() {
		if err := conn.Close(); err != nil {
			log.Error("failed to close rabbitmq connection", "error", err)
		}
	}()

	publisher, err := rabbitmq.NewPublisher(conn)
	if err != nil {
		return fmt.Errorf("failed to create publisher: %w", err)
	}
	defer func() {
		if err := publisher.Close(); err != nil {
			log.Error("failed to close publisher", "error", err)
		}
	}()

	handler, err := task.NewQuizGenerationTask(runner, publisher, cfg.RabbitMQ.GenerationCompleteQueue, log)
	if err != nil {
		return fmt.Errorf("failed to create generation task: %w", err)
	}

	pool := task.NewWorkerPool(func(int) (task.Consumer, error) {
		return rabbitmq.NewConsumer(conn, cfg.RabbitMQ.GenerationRequestQueue, handler)
	}, task.WorkerPoolConfig{WorkerCount: cfg.Worker.Count}, log)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return pool.Run(gctx) })
	g.Go(func() error { return serveOps(gctx, cfg.Server.Port, conn, log) })

	err = g.Wait()
	log.Info("generation worker stopped")
	return err
}

// serveOps exposes /metrics and /health until ctx is cancelled.
func serveOps(ctx context.Context, port int, conn *rabbitmq.Connection, log *slog.Logger) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		if err := conn.Healthy(r.Context()); err != nil {
			http.Error(w, "unavailable", http.StatusServiceUnavailable)
			return
		}
		_, _ = w.Write([]byte("OK"))
	})

	server := &http.Server{
		Addr:              fmt.Sprintf(":%d", port),
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("starting metrics server", "port", port)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("metrics server failed: %w", err)
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}
