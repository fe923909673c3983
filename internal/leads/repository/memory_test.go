package repository

import (
	"context"
	"errors"
	"testing"
	"time"

	"cold_solutions_backend/internal/leads/domain"
)

func TestMemorySaveStampsUpdatedAtAndIsolatesCopies(t *testing.T) {
	ctx := context.Background()
	fixed := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	store := NewMemory().WithClock(func() time.Time { return fixed })

	lead := domain.Lead{ID: "l1", Name: "Jane", Tags: []string{"a"}}
	if err := store.Save(ctx, &lead); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if !lead.UpdatedAt.Equal(fixed) {
		t.Fatalf("expected UpdatedAt to be stamped, got %s", lead.UpdatedAt)
	}

	lead.Tags[0] = "mutated"
	got, err := store.GetByID(ctx, "l1")
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if got.Tags[0] != "a" {
		t.Fatalf("expected stored copy to be isolated, got %v", got.Tags)
	}
}

func TestMemoryGetAndDeleteUnknown(t *testing.T) {
	store := NewMemory()
	if _, err := store.GetByID(context.Background(), "missing"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if err := store.Delete(context.Background(), "missing"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestMemoryActivitiesNewestFirst(t *testing.T) {
	ctx := context.Background()
	store := NewMemory()
	base := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)

	_ = store.Append(ctx, domain.LeadActivity{ID: "a1", LeadID: "l1", CreatedAt: base})
	_ = store.Append(ctx, domain.LeadActivity{ID: "a2", LeadID: "l2", CreatedAt: base.Add(time.Minute)})
	_ = store.Append(ctx, domain.LeadActivity{ID: "a3", LeadID: "l1", CreatedAt: base.Add(2 * time.Minute)})
	_ = store.Append(ctx, domain.LeadActivity{ID: "a4", LeadID: "l1", CreatedAt: base.Add(2 * time.Minute)})

	got, _ := store.ListByLead(ctx, "l1")
	if len(got) != 3 {
		t.Fatalf("expected 3 activities, got %d", len(got))
	}
	if got[0].ID != "a4" || got[1].ID != "a3" || got[2].ID != "a1" {
		t.Fatalf("unexpected order: %s, %s, %s", got[0].ID, got[1].ID, got[2].ID)
	}

	all, _ := store.ListByLead(ctx, "")
	if len(all) != 4 {
		t.Fatalf("expected all 4 activities, got %d", len(all))
	}
}

func TestMemoryRulesSortedByPriority(t *testing.T) {
	ctx := context.Background()
	store := NewMemory()
	_ = store.SaveRoutingRule(ctx, domain.AutoRoutingRule{ID: "b", Priority: 2})
	_ = store.SaveRoutingRule(ctx, domain.AutoRoutingRule{ID: "a", Priority: 1})
	_ = store.SaveRoutingRule(ctx, domain.AutoRoutingRule{ID: "c", Priority: 1})

	rules, _ := store.ListRoutingRules(ctx)
	if rules[0].ID != "a" || rules[1].ID != "c" || rules[2].ID != "b" {
		t.Fatalf("unexpected rule order: %s, %s, %s", rules[0].ID, rules[1].ID, rules[2].ID)
	}
}
