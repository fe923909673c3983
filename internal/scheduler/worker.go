package scheduler

import (
	"context"
	"fmt"

	"cold_solutions_backend/platform/config"
	"cold_solutions_backend/platform/logger"

	"github.com/hibiken/asynq"
)

// BulkRunHandler executes one bulk run pulled off the queue.
type BulkRunHandler interface {
	HandleBulkRun(ctx context.Context, payload BulkRunPayload) error
}

type Worker struct {
	server  *asynq.Server
	mux     *asynq.ServeMux
	handler BulkRunHandler
	log     *logger.Logger
}

func NewWorker(cfg config.SchedulerConfig, handler BulkRunHandler, log *logger.Logger) (*Worker, error) {
	redisURL := cfg.GetRedisURL()
	if redisURL == "" {
		return nil, fmt.Errorf("redis url not configured")
	}

	opt, err := redisClientOpt(redisURL, cfg.GetRedisTLSInsecure())
	if err != nil {
		return nil, err
	}

	concurrency := cfg.GetAsynqConcurrency()
	if concurrency < 1 {
		concurrency = 2
	}

	server := asynq.NewServer(opt, asynq.Config{
		Concurrency: concurrency,
		Queues: map[string]int{
			queueName(cfg): 1,
		},
	})

	mux := asynq.NewServeMux()
	w := &Worker{
		server:  server,
		mux:     mux,
		handler: handler,
		log:     log,
	}

	mux.HandleFunc(TaskBulkRun, w.handleBulkRun)

	return w, nil
}

func (w *Worker) Run(ctx context.Context) {
	if w == nil || w.server == nil {
		return
	}

	go func() {
		<-ctx.Done()
		w.server.Shutdown()
	}()

	if err := w.server.Run(w.mux); err != nil {
		w.log.Error("scheduler worker stopped", "error", err)
	}
}

func (w *Worker) handleBulkRun(ctx context.Context, task *asynq.Task) error {
	payload, err := ParseBulkRunPayload(task)
	if err != nil {
		return fmt.Errorf("%w: %v", asynq.SkipRetry, err)
	}
	if payload.RunID == "" {
		return fmt.Errorf("%w: missing run id", asynq.SkipRetry)
	}

	w.log.Info("bulk run task received", "runId", payload.RunID, "limit", payload.Limit)
	return w.handler.HandleBulkRun(ctx, payload)
}
