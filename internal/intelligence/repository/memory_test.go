package repository

import (
	"context"
	"testing"
	"time"

	"cold_solutions_backend/internal/intelligence/domain"
)

func TestFetchUnanalyzedPicksEligibleOldestFirst(t *testing.T) {
	ctx := context.Background()
	store := NewMemory()
	base := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	_ = store.Import(ctx, []domain.BusinessIntelligenceLead{
		{ID: "c", BusinessName: "C", CreatedAt: base.Add(2 * time.Hour)},
		{ID: "a", BusinessName: "A", CreatedAt: base},
		{ID: "b", BusinessName: "B", CreatedAt: base.Add(time.Hour)},
		{ID: "d", BusinessName: "D", CreatedAt: base.Add(3 * time.Hour), AnalysisStatus: domain.StatusComplete},
	})
	_ = store.UpdateStatus(ctx, []string{"b"}, domain.StatusFailed, "timeout")

	got, _ := store.FetchUnanalyzed(ctx, nil, 10)
	if len(got) != 3 || got[0].ID != "a" || got[1].ID != "b" || got[2].ID != "c" {
		t.Fatalf("expected a, b, c, got %+v", got)
	}
	if got[1].ErrorMessage != "timeout" {
		t.Fatalf("expected failed lead to keep its error, got %q", got[1].ErrorMessage)
	}

	got, _ = store.FetchUnanalyzed(ctx, []string{"c", "d"}, 10)
	if len(got) != 1 || got[0].ID != "c" {
		t.Fatalf("expected only c from the id filter, got %+v", got)
	}

	got, _ = store.FetchUnanalyzed(ctx, nil, 2)
	if len(got) != 2 {
		t.Fatalf("expected limit to apply, got %d", len(got))
	}
}

func TestUpdateStatusClearsErrorOnRetry(t *testing.T) {
	ctx := context.Background()
	store := NewMemory()
	_ = store.Import(ctx, []domain.BusinessIntelligenceLead{{ID: "a", BusinessName: "A"}})

	_ = store.UpdateStatus(ctx, []string{"a"}, domain.StatusFailed, "boom")
	_ = store.UpdateStatus(ctx, []string{"a", "missing"}, domain.StatusInProgress, "ignored")

	l, _ := store.GetByID(ctx, "a")
	if l.AnalysisStatus != domain.StatusInProgress || l.ErrorMessage != "" {
		t.Fatalf("unexpected lead state %+v", l)
	}
}

func TestSaveAnalysisRequiresLead(t *testing.T) {
	ctx := context.Background()
	store := NewMemory()
	if err := store.SaveAnalysis(ctx, "missing", domain.BusinessAnalysis{}); err != ErrNotFound {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}

	_ = store.Import(ctx, []domain.BusinessIntelligenceLead{{ID: "a", BusinessName: "A"}})
	if err := store.SaveAnalysis(ctx, "a", domain.BusinessAnalysis{Summary: "ok"}); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	a, err := store.GetAnalysis(ctx, "a")
	if err != nil || a.LeadID != "a" || a.Summary != "ok" {
		t.Fatalf("unexpected analysis %+v %v", a, err)
	}
}

func TestMemoryFailStaleOnlyTouchesOldInProgress(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	store := NewMemory().WithClock(func() time.Time { return now })
	_ = store.Import(ctx, []domain.BusinessIntelligenceLead{{ID: "old"}, {ID: "fresh"}, {ID: "idle"}})
	_ = store.UpdateStatus(ctx, []string{"old"}, domain.StatusInProgress, "")

	now = now.Add(time.Hour)
	_ = store.UpdateStatus(ctx, []string{"fresh"}, domain.StatusInProgress, "")

	n, err := store.FailStale(ctx, now.Add(-30*time.Minute), "worker stopped")
	if err != nil || n != 1 {
		t.Fatalf("expected 1 stale lead, got %d (%v)", n, err)
	}
	old, _ := store.GetByID(ctx, "old")
	fresh, _ := store.GetByID(ctx, "fresh")
	idle, _ := store.GetByID(ctx, "idle")
	if old.AnalysisStatus != domain.StatusFailed || old.ErrorMessage != "worker stopped" {
		t.Fatalf("expected old lead failed, got %s %q", old.AnalysisStatus, old.ErrorMessage)
	}
	if fresh.AnalysisStatus != domain.StatusInProgress || idle.AnalysisStatus != domain.StatusNotStarted {
		t.Fatalf("unexpected statuses %s / %s", fresh.AnalysisStatus, idle.AnalysisStatus)
	}
}
