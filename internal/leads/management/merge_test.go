package management

import (
	"context"
	"strings"
	"testing"
	"time"

	"cold_solutions_backend/internal/leads/domain"
	"cold_solutions_backend/platform/apperr"
)

func TestMergeRecordsPrimaryWins(t *testing.T) {
	early := base.Add(-48 * time.Hour)
	primary := domain.Lead{
		ID: "p", Name: "Jane Doe", Email: "jane@acme.com", Company: "Acme",
		Notes: "met at expo", Tags: []string{"x"}, EstimatedValue: value(1000), CreatedAt: base,
		CustomFields: map[string]any{"tier": "gold"},
	}
	secondary := domain.Lead{
		ID: "s", Name: "J Doe", Email: "other@acme.com", Phone: "+12024561111", Position: "CTO",
		Notes: "called twice", Tags: []string{"x", "y"}, EstimatedValue: value(5000), CreatedAt: early,
		CustomFields: map[string]any{"tier": "silver", "region": "east"},
	}

	merged := MergeRecords(primary, secondary)

	if merged.Name != "Jane Doe" || merged.Email != "jane@acme.com" {
		t.Fatalf("expected primary identity to win, got %q %q", merged.Name, merged.Email)
	}
	if merged.Phone != "+12024561111" || merged.Position != "CTO" {
		t.Fatalf("expected gaps filled from secondary, got %q %q", merged.Phone, merged.Position)
	}
	if len(merged.Tags) != 2 || merged.Tags[0] != "x" || merged.Tags[1] != "y" {
		t.Fatalf("expected tag union [x y], got %v", merged.Tags)
	}
	if merged.EstimatedValueOrZero() != 5000 {
		t.Fatalf("expected max estimated value 5000, got %v", merged.EstimatedValueOrZero())
	}
	if !merged.CreatedAt.Equal(early) {
		t.Fatalf("expected earliest createdAt, got %s", merged.CreatedAt)
	}
	if merged.Notes != "met at expo"+mergedNotesSeparator+"called twice" {
		t.Fatalf("unexpected merged notes %q", merged.Notes)
	}
	if merged.CustomFields["tier"] != "gold" || merged.CustomFields["region"] != "east" {
		t.Fatalf("unexpected custom fields %v", merged.CustomFields)
	}
	if primary.CustomFields["region"] != nil {
		t.Fatalf("expected primary input to stay untouched")
	}
}

func TestMergeCopiesActivitiesOnce(t *testing.T) {
	svc, store, _ := newTestService(t)
	ctx := context.Background()
	_ = store.Save(ctx, &domain.Lead{ID: "p", Name: "Jane", Email: "jane@acme.com", Phone: "1", Notes: "primary", CreatedAt: base})
	_ = store.Save(ctx, &domain.Lead{ID: "s", Name: "Janet", Email: "janet@acme.com", Phone: "2", Notes: "secondary", CreatedAt: base})
	_ = store.Save(ctx, &domain.Lead{ID: "t", Name: "Jan", Email: "jan@acme.com", Phone: "3", IsDuplicate: true, DuplicateOf: "s", CreatedAt: base})
	_ = store.Append(ctx, domain.LeadActivity{ID: "a1", LeadID: "s", Type: domain.ActivityCall, Description: "Intro call", CreatedAt: base})

	merged, err := svc.Merge(ctx, "p", "s")
	if err != nil || merged == nil {
		t.Fatalf("expected merged lead, got %v %v", merged, err)
	}

	secondary, _ := store.GetByID(ctx, "s")
	if !secondary.IsDuplicate || secondary.DuplicateOf != "p" {
		t.Fatalf("expected secondary marked duplicate of p, got %+v", secondary)
	}
	third, _ := store.GetByID(ctx, "t")
	if third.DuplicateOf != "p" {
		t.Fatalf("expected transitive duplicate repointed to p, got %q", third.DuplicateOf)
	}

	countCopies := func() int {
		acts, _ := store.ListByLead(ctx, "p")
		n := 0
		for _, a := range acts {
			if a.Metadata[domain.MetaMergedFromActivityID] == "a1" {
				if !strings.HasPrefix(a.Description, mergedActivityPrefix) {
					t.Fatalf("expected merged prefix, got %q", a.Description)
				}
				n++
			}
		}
		return n
	}
	if got := countCopies(); got != 1 {
		t.Fatalf("expected one copy of a1, got %d", got)
	}
	if original, _ := store.ListByLead(ctx, "s"); len(original) == 0 {
		t.Fatalf("expected original activities to remain on secondary")
	}

	wantNotes := "primary" + mergedNotesSeparator + "secondary"
	if merged.Notes != wantNotes {
		t.Fatalf("expected notes %q, got %q", wantNotes, merged.Notes)
	}

	again, err := svc.Merge(ctx, "p", "s")
	if err != nil || again == nil {
		t.Fatalf("expected repeat merge to succeed, got %v %v", again, err)
	}
	if got := countCopies(); got != 1 {
		t.Fatalf("expected repeat merge not to copy a1 again, got %d", got)
	}
	stored, _ := store.GetByID(ctx, "p")
	if again.Notes != wantNotes || stored.Notes != wantNotes {
		t.Fatalf("expected notes unchanged by repeat merge, got %q (stored %q)", again.Notes, stored.Notes)
	}
}

func TestMergeRejectsInvalidPairs(t *testing.T) {
	svc, store, _ := newTestService(t)
	ctx := context.Background()
	_ = store.Save(ctx, &domain.Lead{ID: "p", Name: "P", Email: "p@x.com", Phone: "1"})
	_ = store.Save(ctx, &domain.Lead{ID: "q", Name: "Q", Email: "q@x.com", Phone: "2"})
	_ = store.Save(ctx, &domain.Lead{ID: "d", Name: "D", Email: "d@x.com", Phone: "3", IsDuplicate: true, DuplicateOf: "q"})

	if merged, err := svc.Merge(ctx, "p", "missing"); merged != nil || err != nil {
		t.Fatalf("expected nil, nil for unknown lead, got %v %v", merged, err)
	}
	if _, err := svc.Merge(ctx, "p", "p"); !apperr.Is(err, apperr.KindConflict) {
		t.Fatalf("expected conflict merging into itself, got %v", err)
	}
	if _, err := svc.Merge(ctx, "d", "p"); !apperr.Is(err, apperr.KindConflict) {
		t.Fatalf("expected conflict when primary is a duplicate, got %v", err)
	}
	if _, err := svc.Merge(ctx, "p", "d"); !apperr.Is(err, apperr.KindConflict) {
		t.Fatalf("expected conflict when secondary belongs to another lead, got %v", err)
	}
}

func TestDuplicateGroupsClusterTransitively(t *testing.T) {
	svc, store, _ := newTestService(t)
	ctx := context.Background()
	_ = store.Save(ctx, &domain.Lead{ID: "a", Name: "A", Email: "shared@x.com", Phone: "111"})
	_ = store.Save(ctx, &domain.Lead{ID: "b", Name: "B", Email: "shared@x.com", Phone: "222"})
	_ = store.Save(ctx, &domain.Lead{ID: "c", Name: "C", Email: "c@x.com", Phone: "222"})
	_ = store.Save(ctx, &domain.Lead{ID: "z", Name: "Z", Email: "z@x.com", Phone: "999"})

	groups, err := svc.DuplicateGroups(ctx)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if len(groups) != 1 || len(groups[0].Leads) != 3 {
		t.Fatalf("expected a single group of three, got %+v", groups)
	}

	matches, err := svc.FindDuplicates(ctx, "a")
	if err != nil || len(matches) != 1 || matches[0].Lead.ID != "b" {
		t.Fatalf("expected b as only direct duplicate of a, got %+v %v", matches, err)
	}
	if _, err := svc.FindDuplicates(ctx, "missing"); !apperr.Is(err, apperr.KindNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}
