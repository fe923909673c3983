package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"cold_solutions_backend/internal/events"
	apphttp "cold_solutions_backend/internal/http"
	"cold_solutions_backend/internal/http/router"
	"cold_solutions_backend/internal/intelligence"
	"cold_solutions_backend/internal/intelligence/archive"
	"cold_solutions_backend/internal/intelligence/progress"
	birepo "cold_solutions_backend/internal/intelligence/repository"
	"cold_solutions_backend/internal/leads"
	leadrepo "cold_solutions_backend/internal/leads/repository"
	"cold_solutions_backend/internal/scheduler"
	"cold_solutions_backend/migrations"
	"cold_solutions_backend/platform/config"
	"cold_solutions_backend/platform/db"
	"cold_solutions_backend/platform/logger"
	"cold_solutions_backend/platform/metrics"
	"cold_solutions_backend/platform/validator"

	"github.com/jackc/pgx/v5/pgxpool"
)

const shutdownTimeout = 10 * time.Second

type stores struct {
	leads  leadrepo.Store
	bi     birepo.Store
	health apphttp.HealthChecker
	close  func()
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	log := logger.New(cfg.Env)
	log.Info("starting server", "env", cfg.Env, "addr", cfg.HTTPAddr, "store", cfg.StoreBackend)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// ========================================================================
	// Infrastructure Layer
	// ========================================================================

	st := initStores(ctx, cfg, log)
	defer st.close()

	seed, err := leadrepo.LoadSeed(cfg.GetRulesFile())
	if err != nil {
		log.Error("failed to load rules", "error", err, "path", cfg.GetRulesFile())
		panic("failed to load rules: " + err.Error())
	}

	eventBus := events.NewInMemoryBus(log)
	subscribeAudit(eventBus, log)

	m := metrics.New()
	val := validator.New()

	progressStore, enqueuer, closeScheduler := initBulkQueue(cfg, log)
	if closeScheduler != nil {
		defer closeScheduler()
	}

	rawArchive := initArchive(ctx, cfg, log)

	// ========================================================================
	// Domain Modules (Composition Root)
	// ========================================================================

	leadsModule, err := leads.NewModule(ctx, st.leads, seed, eventBus, m, val, log)
	if err != nil {
		log.Error("failed to initialize leads module", "error", err)
		panic("failed to initialize leads module: " + err.Error())
	}

	intelligenceModule, err := intelligence.NewModule(ctx, cfg, intelligence.Deps{
		Store:    st.bi,
		Progress: progressStore,
		Enqueuer: enqueuer,
		Archive:  rawArchive,
		Bus:      eventBus,
		Metrics:  m,
		Val:      val,
		Log:      log,
	})
	if err != nil {
		log.Error("failed to initialize intelligence module", "error", err)
		panic("failed to initialize intelligence module: " + err.Error())
	}

	// In-process runs have no worker to reap leads left behind by a crash.
	if enqueuer == nil && cfg.GetStoreBackend() == config.StoreBackendPostgres {
		go scheduler.NewStaleLeadSweeper(st.bi, log, 0, 0).Run(ctx)
	}

	// ========================================================================
	// HTTP Layer
	// ========================================================================

	app := &apphttp.App{
		Config:   cfg,
		Logger:   log,
		Health:   st.health,
		EventBus: eventBus,
		Metrics:  m,
		Modules: []apphttp.Module{
			leadsModule,
			intelligenceModule,
		},
	}

	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           router.New(app),
		ReadHeaderTimeout: 10 * time.Second,
	}

	srvErr := make(chan error, 1)
	go func() {
		log.Info("server listening", "addr", cfg.HTTPAddr)
		srvErr <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		log.Info("shutdown signal received, gracefully shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Error("http shutdown failed", "error", err)
		}
		intelligenceModule.Service().Shutdown()
		eventBus.Wait()
	case err := <-srvErr:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("server error", "error", err)
			panic("server error: " + err.Error())
		}
	}
}

func initStores(ctx context.Context, cfg *config.Config, log *logger.Logger) stores {
	if cfg.GetStoreBackend() == config.StoreBackendMemory {
		log.Warn("STORE_BACKEND=memory; data is lost on restart")
		return stores{leads: leadrepo.NewMemory(), bi: birepo.NewMemory(), close: func() {}}
	}

	if err := withRetry(ctx, log, "database migrations", 5, 2*time.Second, func() error {
		return db.RunMigrations(ctx, cfg, migrations.FS)
	}); err != nil {
		log.Error("failed to run database migrations", "error", err)
		panic("failed to run database migrations: " + err.Error())
	}
	log.Info("database migrations complete")

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
	log.Info("database connection established")

	return stores{
		leads:  leadrepo.New(pool),
		bi:     birepo.New(pool),
		health: pool,
		close:  pool.Close,
	}
}

// initBulkQueue hands bulk runs to the worker when Redis is configured.
// Without Redis, runs execute inside this process and progress lives in memory.
func initBulkQueue(cfg *config.Config, log *logger.Logger) (progress.Store, scheduler.BulkRunEnqueuer, func()) {
	if cfg.GetRedisURL() == "" {
		log.Warn("REDIS_URL not configured; bulk runs execute in-process")
		return progress.NewMemoryStore(), nil, nil
	}
	if cfg.GetStoreBackend() == config.StoreBackendMemory {
		log.Warn("STORE_BACKEND=memory cannot be shared with a worker; bulk runs execute in-process")
		return progress.NewMemoryStore(), nil, nil
	}

	client, err := scheduler.NewClient(cfg)
	if err != nil {
		log.Error("failed to initialize bulk run queue", "error", err)
		panic("failed to initialize bulk run queue: " + err.Error())
	}
	rdb, err := scheduler.NewRedisClient(cfg)
	if err != nil {
		_ = client.Close()
		log.Error("failed to initialize progress store", "error", err)
		panic("failed to initialize progress store: " + err.Error())
	}
	log.Info("bulk runs dispatched to worker", "queue", cfg.GetAsynqQueueName())

	return progress.NewRedisStore(rdb, 0), client, func() {
		_ = client.Close()
		_ = rdb.Close()
	}
}

// initArchive returns nil when MinIO is not configured.
func initArchive(ctx context.Context, cfg config.MinIOConfig, log *logger.Logger) *archive.Archive {
	if !cfg.IsMinIOEnabled() {
		log.Warn("MINIO_ENDPOINT not configured; raw payloads stay in the database only")
		return nil
	}
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
	log.Info("payload archive initialized", "bucket", a.Bucket())
	return a
}

func subscribeAudit(bus events.Bus, log *logger.Logger) {
	audit := events.HandlerFunc(func(ctx context.Context, event events.Event) error {
		log.WithContext(ctx).Info("domain event",
			"context", events.Context(event.EventName()), "event", event.EventName(), "payload", event)
		return nil
	})
	bus.Subscribe("leads.*", audit)
	bus.Subscribe("intelligence.*", audit)
}

func withRetry(ctx context.Context, log *logger.Logger, name string, attempts int, baseDelay time.Duration, fn func() error) error {
	if attempts < 1 {
		return fmt.Errorf("%s: invalid retry attempts", name)
	}

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		err := fn()
		if err == nil {
			return nil
		}
		lastErr = err
		log.Warn("retryable operation failed", "operation", name, "attempt", attempt, "error", err)

		if attempt < attempts {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(time.Duration(attempt*attempt) * baseDelay):
			}
		}
	}

	return fmt.Errorf("%s: %w", name, lastErr)
}
