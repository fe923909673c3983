package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"cold_solutions_backend/internal/events"
	"cold_solutions_backend/internal/intelligence"
	"cold_solutions_backend/internal/intelligence/archive"
	"cold_solutions_backend/internal/intelligence/progress"
	birepo "cold_solutions_backend/internal/intelligence/repository"
	"cold_solutions_backend/internal/scheduler"
	"cold_solutions_backend/platform/config"
	"cold_solutions_backend/platform/db"
	"cold_solutions_backend/platform/logger"
	"cold_solutions_backend/platform/metrics"
	"cold_solutions_backend/platform/validator"

	"github.com/jackc/pgx/v5/pgxpool"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("failed to load config: " + err.Error())
	}
	if cfg.GetRedisURL() == "" {
		panic("REDIS_URL is required for the worker")
	}
	if cfg.GetStoreBackend() != config.StoreBackendPostgres {
		panic("the worker requires STORE_BACKEND=postgres")
	}

	log := logger.New(cfg.Env)
	log.Info("starting worker", "env", cfg.Env, "queue", cfg.GetAsynqQueueName())

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var pool *pgxpool.Pool
	if err := withRetry(ctx, log, "database connection", 5, 2*time.Second, func() error {
		p, err := db.NewPool(ctx, cfg)
		if err != nil {
			return err
		}
		pool = p
		return nil
	}); err != nil {
		log.Error("failed to connect to database", "error", err)
		panic("failed to connect to database: " + err.Error())
	}
	defer pool.Close()

	rdb, err := scheduler.NewRedisClient(cfg)
	if err != nil {
		log.Error("failed to initialize progress store", "error", err)
		panic("failed to initialize progress store: " + err.Error())
	}
	defer func() { _ = rdb.Close() }()

	store := birepo.New(pool)
	eventBus := events.NewInMemoryBus(log)
	eventBus.Subscribe(events.BulkRunFinished{}.EventName(), events.HandlerFunc(func(ctx context.Context, event events.Event) error {
		log.WithContext(ctx).Info("domain event", "event", event.EventName(), "payload", event)
		return nil
	}))

	deps := intelligence.Deps{
		Store:    store,
		Progress: progress.NewRedisStore(rdb, 0),
		Bus:      eventBus,
		Metrics:  metrics.New(),
		Val:      validator.New(),
		Log:      log,
	}
	if cfg.IsMinIOEnabled() {
		a, err := archive.New(cfg)
		if err != nil {
			log.Error("failed to initialize payload archive", "error", err)
			panic("failed to initialize payload archive: " + err.Error())
		}
		if err := withRetry(ctx, log, "ensure payload bucket", 5, 2*time.Second, func() error {
			return a.EnsureBucket(ctx)
		}); err != nil {
			log.Error("failed to ensure storage bucket exists", "error", err, "bucket", a.Bucket())
			panic("failed to ensure storage bucket exists: " + err.Error())
		}
		deps.Archive = a
	}

	module, err := intelligence.NewModule(ctx, cfg, deps)
	if err != nil {
		log.Error("failed to initialize intelligence module", "error", err)
		panic("failed to initialize intelligence module: " + err.Error())
	}

	sweepInterval := getDurationEnv("STALE_LEAD_SWEEP_INTERVAL", 10*time.Minute)
	staleAfter := getDurationEnv("STALE_LEAD_AFTER", time.Hour)
	go scheduler.NewStaleLeadSweeper(store, log, sweepInterval, staleAfter).Run(ctx)

	worker, err := scheduler.NewWorker(cfg, module.Service(), log)
	if err != nil {
		log.Error("failed to initialize worker", "error", err)
		panic("failed to initialize worker: " + err.Error())
	}

	worker.Run(ctx)
	eventBus.Wait()
}

func withRetry(ctx context.Context, log *logger.Logger, name string, attempts int, baseDelay time.Duration, fn func() error) error {
	if attempts < 1 {
		return errors.New(name + ": invalid retry attempts")
	}

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if err := fn(); err == nil {
			return nil
		} else {
			lastErr = err
			log.Warn("retryable operation failed", "operation", name, "attempt", attempt, "error", err)
		}

		if attempt < attempts {
			delay := time.Duration(attempt*attempt) * baseDelay
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(delay):
			}
		}
	}

	return errors.New(name + ": " + lastErr.Error())
}

func getDurationEnv(key string, fallback time.Duration) time.Duration {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return fallback
	}

	parsed, err := time.ParseDuration(raw)
	if err != nil || parsed <= 0 {
		return fallback
	}

	return parsed
}
