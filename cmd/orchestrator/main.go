// Package main runs the quiz orchestrator: the HTTP API that accepts quiz
// requests, and the consumers that advance generation jobs as parsed files
// and generation results arrive.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/google/uuid"
	"github.com/phrazzld/quizgen/internal/auth"
	"github.com/phrazzld/quizgen/internal/config"
	"github.com/phrazzld/quizgen/internal/platform/logger"
	"github.com/phrazzld/quizgen/internal/redact"
)

func main() {
	dryRun := flag.Bool("dry-run", false,
		"publish to an in-memory broker instead of RabbitMQ and log every outbound message")
	issueToken := flag.String("issue-token", "",
		"print an access token for the given user ID and exit")
	flag.Parse()

	if *issueToken != "" {
		if err := printToken(*issueToken); err != nil {
			slog.Error("failed to issue token", "error", redact.Error(err))
			os.Exit(1)
		}
		return
	}

	if err := run(*dryRun); err != nil {
		slog.Error("orchestrator stopped with error", "error", redact.Error(err))
		os.Exit(1)
	}
}

// printToken signs an access token for local testing of the API.
func printToken(userID string) error {
	id, err := uuid.Parse(userID)
	if err != nil {
		return fmt.Errorf("invalid user ID: %w", err)
	}
	cfg, err := config.Load(config.RoleOrchestrator)
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}
	jwtService, err := auth.NewJWTService(cfg.Auth)
	if err != nil {
		return err
	}
	token, err := jwtService.GenerateToken(context.Background(), id)
	if err != nil {
		return err
	}
	fmt.Println(token)
	return nil
}

func run(dryRun bool) error {
	cfg, err := config.Load(config.RoleOrchestrator)
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	log, err := logger.Setup(cfg.Server)
	if err != nil {
		return fmt.Errorf("failed to set up logger: %w", err)
	}
	log.Info("orchestrator configuration loaded",
		"port", cfg.Server.Port,
		"log_level", cfg.Server.LogLevel,
		"cache_backend", cfg.Cache.Backend,
		"dry_run", dryRun)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	app, err := newApplication(ctx, cfg, log, dryRun)
	if err != nil {
		return err
	}
	defer app.cleanup()

	return app.run(ctx)
}
