package scheduler

import (
	"context"
	"errors"
	"testing"
	"time"

	"cold_solutions_backend/platform/logger"

	"github.com/hibiken/asynq"
)

type recordingHandler struct {
	got []BulkRunPayload
}

func (h *recordingHandler) HandleBulkRun(_ context.Context, payload BulkRunPayload) error {
	h.got = append(h.got, payload)
	return nil
}

func TestHandleBulkRunDispatchesPayload(t *testing.T) {
	h := &recordingHandler{}
	w := &Worker{handler: h, log: logger.Discard()}

	task, err := NewBulkRunTask(BulkRunPayload{RunID: "run-1", LeadIDs: []string{"a"}, Limit: 20})
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if task.Type() != TaskBulkRun {
		t.Fatalf("expected task type %s, got %s", TaskBulkRun, task.Type())
	}
	if err := w.handleBulkRun(context.Background(), task); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if len(h.got) != 1 || h.got[0].RunID != "run-1" || h.got[0].Limit != 20 || h.got[0].LeadIDs[0] != "a" {
		t.Fatalf("unexpected payloads %+v", h.got)
	}
}

func TestHandleBulkRunSkipsRetryOnBadPayload(t *testing.T) {
	w := &Worker{handler: &recordingHandler{}, log: logger.Discard()}

	for _, payload := range []string{"not json", `{"limit":5}`} {
		err := w.handleBulkRun(context.Background(), asynq.NewTask(TaskBulkRun, []byte(payload)))
		if !errors.Is(err, asynq.SkipRetry) {
			t.Fatalf("expected SkipRetry for %q, got %v", payload, err)
		}
	}
}

type fakeStaleStore struct {
	cutoff time.Time
	n      int
	err    error
}

func (f *fakeStaleStore) FailStale(_ context.Context, cutoff time.Time, _ string) (int, error) {
	f.cutoff = cutoff
	return f.n, f.err
}

func TestStaleLeadSweeperUsesCutoff(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	store := &fakeStaleStore{n: 3}
	s := NewStaleLeadSweeper(store, logger.Discard(), 0, 2*time.Hour)
	s.now = func() time.Time { return now }

	if got := s.sweep(context.Background()); got != 3 {
		t.Fatalf("expected 3 released leads, got %d", got)
	}
	if !store.cutoff.Equal(now.Add(-2 * time.Hour)) {
		t.Fatalf("unexpected cutoff %s", store.cutoff)
	}

	store.err = errors.New("db down")
	if got := s.sweep(context.Background()); got != 0 {
		t.Fatalf("expected 0 on error, got %d", got)
	}
}

func TestRedisClientOptAppliesInsecureTLS(t *testing.T) {
	opt, err := redisClientOpt("rediss://:secret@cache.internal:6380/2", true)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if opt.Addr != "cache.internal:6380" || opt.Password != "secret" || opt.DB != 2 {
		t.Fatalf("unexpected options %+v", opt)
	}
	if opt.TLSConfig == nil || !opt.TLSConfig.InsecureSkipVerify {
		t.Fatalf("expected insecure TLS config")
	}
}
