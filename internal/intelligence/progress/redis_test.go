package progress

import (
	"context"
	"testing"
	"time"

	"cold_solutions_backend/internal/intelligence/domain"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func newRedisStore(t *testing.T) (*RedisStore, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewRedisStore(client, time.Hour), mr
}

func TestRedisStoreRoundTripAndCancel(t *testing.T) {
	ctx := context.Background()
	store, mr := newRedisStore(t)

	if _, err := store.Get(ctx, "missing"); err != ErrNotFound {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if err := store.RequestCancel(ctx, "missing"); err != ErrNotFound {
		t.Fatalf("expected ErrNotFound cancelling unknown run, got %v", err)
	}

	status := domain.BulkProcessingStatus{
		RunID:        "run-1",
		State:        domain.RunRunning,
		InProgress:   true,
		Total:        12,
		TotalBatches: 3,
		CurrentBatch: 1,
		Results:      []domain.LeadResult{{LeadID: "a", Status: domain.StatusComplete}},
	}
	if err := store.Save(ctx, status); err != nil {
		t.Fatalf("save: %v", err)
	}
	if ttl := mr.TTL(statusKey("run-1")); ttl != time.Hour {
		t.Fatalf("expected one hour ttl, got %s", ttl)
	}

	got, err := store.Get(ctx, "run-1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.TotalBatches != 3 || len(got.Results) != 1 || got.CancelRequested {
		t.Fatalf("unexpected status %+v", got)
	}

	if err := store.RequestCancel(ctx, "run-1"); err != nil {
		t.Fatalf("cancel: %v", err)
	}
	requested, _ := store.CancelRequested(ctx, "run-1")
	got, _ = store.Get(ctx, "run-1")
	if !requested || !got.CancelRequested {
		t.Fatalf("expected cancel flag to be visible")
	}
}

func TestMemoryStoreIsolatesResults(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	status := domain.BulkProcessingStatus{RunID: "r", Results: []domain.LeadResult{{LeadID: "a"}}}
	_ = store.Save(ctx, status)
	status.Results[0].LeadID = "changed"

	got, _ := store.Get(ctx, "r")
	if got.Results[0].LeadID != "a" {
		t.Fatalf("expected stored results to be copied, got %+v", got.Results)
	}
}
