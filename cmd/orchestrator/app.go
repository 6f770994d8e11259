package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	goredis "github.com/redis/go-redis/v9"
	"golang.org/x/sync/errgroup"

	"github.com/phrazzld/quizgen/internal/api"
	"github.com/phrazzld/quizgen/internal/auth"
	"github.com/phrazzld/quizgen/internal/config"
	"github.com/phrazzld/quizgen/internal/contentcache"
	"github.com/phrazzld/quizgen/internal/domain"
	"github.com/phrazzld/quizgen/internal/events"
	"github.com/phrazzld/quizgen/internal/orchestrator"
	"github.com/phrazzld/quizgen/internal/platform/minio"
	"github.com/phrazzld/quizgen/internal/platform/postgres"
	"github.com/phrazzld/quizgen/internal/platform/rabbitmq"
	redisstore "github.com/phrazzld/quizgen/internal/platform/redis"
	"github.com/phrazzld/quizgen/internal/quota"
	"github.com/phrazzld/quizgen/internal/store"
)

const (
	brokerDialRetries = 10
	brokerDialDelay   = 3 * time.Second
	shutdownTimeout   = 10 * time.Second
)

// consumer is a queue subscription run for the lifetime of the process.
type consumer interface {
	Run(ctx context.Context) error
}

// application holds the orchestrator dependencies and releases them on
// shutdown in reverse order of creation.
type application struct {
	config *config.Config
	logger *slog.Logger

	db      *sql.DB
	redis   goredis.UniversalClient
	broker  *rabbitmq.Connection
	service *orchestrator.Service
	router  http.Handler

	consumers []consumer
	closers   []func() error
}

func newApplication(ctx context.Context, cfg *config.Config, logger *slog.Logger, dryRun bool) (*application, error) {
	app := &application{config: cfg, logger: logger}
	ok := false
	defer func() {
		if !ok {
			app.cleanup()
		}
	}()

	db, err := postgres.Open(ctx, cfg.Database.URL, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	app.db = db
	app.closers = append(app.closers, db.Close)

	if err := postgres.Migrate(ctx, db, logger); err != nil {
		return nil, fmt.Errorf("failed to apply migrations: %w", err)
	}

	cache, err := app.newContentCache(ctx)
	if err != nil {
		return nil, err
	}

	files, err := app.newFileStorage(ctx)
	if err != nil {
		return nil, err
	}

	publisher, err := app.newPublisher(ctx, dryRun)
	if err != nil {
		return nil, err
	}

	app.service, err = orchestrator.NewService(orchestrator.Dependencies{
		Files:      files,
		Quizzes:    postgres.NewPostgresQuizStore(db, logger),
		Users:      postgres.NewPostgresUserStore(db, logger),
		Jobs:       postgres.NewPostgresJobStore(db, logger),
		Cache:      cache,
		Quota:      quota.NewGate(domain.PolicyForTier),
		Publisher:  publisher,
		Transactor: store.DBTransactor{DB: db},
		Queues: orchestrator.Queues{
			ParseRequests:      cfg.RabbitMQ.ParseRequestQueue,
			GenerationRequests: cfg.RabbitMQ.GenerationRequestQueue,
		},
		Logger: logger,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create orchestrator: %w", err)
	}

	if err := app.subscribe(publisher); err != nil {
		return nil, err
	}

	jwtService, err := auth.NewJWTService(cfg.Auth)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize JWT service: %w", err)
	}

	checks := map[string]api.HealthCheck{"database": db.PingContext}
	if app.broker != nil {
		checks["rabbitmq"] = app.broker.Healthy
	}
	if app.redis != nil {
		checks["redis"] = func(ctx context.Context) error { return app.redis.Ping(ctx).Err() }
	}
	app.router = api.NewRouter(api.RouterConfig{
		Quizzes: app.service,
		JWT:     jwtService,
		Logger:  logger,
		Checks:  checks,
	})

	ok = true
	return app, nil
}

// newContentCache builds the LRU-fronted parsed content cache over the
// configured durable backend.
func (app *application) newContentCache(ctx context.Context) (*contentcache.Service, error) {
	cfg := app.config.Cache

	var backend store.CachedFileStore
	switch cfg.Backend {
	case "redis":
		client := goredis.NewClient(&goredis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		app.redis = client
		app.closers = append(app.closers, client.Close)
		if err := client.Ping(ctx).Err(); err != nil {
			return nil, fmt.Errorf("failed to connect to redis: %w", err)
		}
		backend = redisstore.NewCachedFileStore(client, app.logger)
	default:
		backend = postgres.NewPostgresCachedFileStore(app.db, app.logger)
	}

	cache, err := contentcache.NewService(backend, cfg.LRUSize, app.logger)
	if err != nil {
		return nil, fmt.Errorf("failed to create content cache: %w", err)
	}
	app.logger.Info("content cache initialized", "backend", cfg.Backend, "lru_size", cfg.LRUSize)
	return cache, nil
}

func (app *application) newFileStorage(ctx context.Context) (*minio.FileStorage, error) {
	client, err := minio.InitClient(app.config.MinIO)
	if err != nil {
		return nil, fmt.Errorf("failed to create minio client: %w", err)
	}
	files, err := minio.NewFileStorage(client, app.config.MinIO.Bucket, app.logger)
	if err != nil {
		return nil, fmt.Errorf("failed to create file storage: %w", err)
	}
	if err := files.EnsureBucket(ctx); err != nil {
		return nil, fmt.Errorf("failed to ensure bucket: %w", err)
	}
	return files, nil
}

// newPublisher connects to RabbitMQ, or in dry-run mode returns an
// in-memory broker that delivers messages in-process.
func (app *application) newPublisher(ctx context.Context, dryRun bool) (events.Publisher, error) {
	if dryRun {
		app.logger.Warn("dry-run mode: messages are not sent to RabbitMQ")
		return events.NewInMemoryPublisher(app.logger), nil
	}

	conn, err := rabbitmq.Dial(ctx, app.config.RabbitMQ.URL, brokerDialRetries, brokerDialDelay, app.logger)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to rabbitmq: %w", err)
	}
	app.broker = conn
	app.closers = append(app.closers, conn.Close)

	publisher, err := rabbitmq.NewPublisher(conn)
	if err != nil {
		return nil, fmt.Errorf("failed to create publisher: %w", err)
	}
	app.closers = append(app.closers, publisher.Close)
	return publisher, nil
}

// subscribe attaches the orchestrator handlers to the inbound queues.
func (app *application) subscribe(publisher events.Publisher) error {
	queues := map[string]events.Handler{
		app.config.RabbitMQ.FileParsedQueue:         app.service.FileParsedHandler(),
		app.config.RabbitMQ.GenerationCompleteQueue: app.service.GenerationCompletedHandler(),
	}

	if mem, ok := publisher.(*events.InMemoryPublisher); ok {
		for queue, handler := range queues {
			mem.Subscribe(queue, handler)
		}
		mem.Subscribe(app.config.RabbitMQ.ParseRequestQueue, dryRunLogger(app.logger))
		mem.Subscribe(app.config.RabbitMQ.GenerationRequestQueue, dryRunLogger(app.logger))
		return nil
	}

	for queue, handler := range queues {
		c, err := rabbitmq.NewConsumer(app.broker, queue, handler)
		if err != nil {
			return fmt.Errorf("failed to create consumer for %s: %w", queue, err)
		}
		app.consumers = append(app.consumers, c)
	}
	return nil
}

func dryRunLogger(logger *slog.Logger) events.Handler {
	return events.HandlerFunc(func(_ context.Context, msg *events.Message) error {
		logger.Info("dry-run message published",
			"queue", msg.Queue,
			"message_id", msg.ID,
			"body_bytes", len(msg.Body))
		return nil
	})
}

// run serves HTTP and consumes queues until ctx is cancelled or one of them
// fails.
func (app *application) run(ctx context.Context) error {
	g, gctx := errgroup.WithContext(ctx)

	server := &http.Server{
		Addr:              fmt.Sprintf(":%d", app.config.Server.Port),
		Handler:           app.router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	g.Go(func() error {
		app.logger.Info("starting server", "port", app.config.Server.Port)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server failed: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		app.logger.Info("shutting down server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("server shutdown failed: %w", err)
		}
		return nil
	})

	for _, c := range app.consumers {
		g.Go(func() error {
			if err := c.Run(gctx); err != nil && !errors.Is(err, context.Canceled) {
				return err
			}
			return nil
		})
	}

	err := g.Wait()
	app.logger.Info("orchestrator stopped")
	return err
}

// cleanup releases resources in reverse order of acquisition.
func (app *application) cleanup() {
	for i := len(app.closers) - 1; i >= 0; i-- {
		if err := app.closers[i](); err != nil {
			app.logger.Error("failed to release resource", "error", err)
		}
	}
	app.closers = nil
}
