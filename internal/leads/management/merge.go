package management

import (
	"context"
	"errors"
	"fmt"

	"cold_solutions_backend/internal/events"
	"cold_solutions_backend/internal/leads/domain"
	"cold_solutions_backend/internal/leads/repository"
	"cold_solutions_backend/platform/apperr"
)

const (
	mergedNotesSeparator = "\n\n--- Merged from duplicate lead ---\n"
	mergedActivityPrefix = "[Merged] "
	metaMergedFromLeadID = "mergedFromLeadId"
)

// Merge folds secondary into primary. Primary wins on conflicts; secondary only
// fills fields primary leaves empty. The secondary record is kept and marked as
// a duplicate of primary. Merging the same pair again returns primary unchanged.
// It returns nil, nil when either lead does not exist.
func (s *Service) Merge(ctx context.Context, primaryID, secondaryID string) (*domain.Lead, error) {
	if primaryID == secondaryID {
		return nil, apperr.Conflict("cannot merge a lead into itself")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	primary, err := s.leads.GetByID(ctx, primaryID)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	secondary, err := s.leads.GetByID(ctx, secondaryID)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	if primary.IsDuplicate {
		return nil, apperr.Conflict("primary lead is itself a merged duplicate").
			WithDetails(map[string]any{"duplicateOf": primary.DuplicateOf})
	}
	if secondary.IsDuplicate && secondary.DuplicateOf != primary.ID {
		return nil, apperr.Conflict("secondary lead was already merged into another lead").
			WithDetails(map[string]any{"duplicateOf": secondary.DuplicateOf})
	}
	if secondary.IsDuplicate {
		// Already folded into this primary; merging again would repeat the notes.
		out := s.withStageAge(primary)
		return &out, nil
	}

	merged := MergeRecords(primary, secondary)
	if err := s.leads.Save(ctx, &merged); err != nil {
		return nil, fmt.Errorf("save merged lead: %w", err)
	}

	secondary.IsDuplicate = true
	secondary.DuplicateOf = primary.ID
	if err := s.leads.Save(ctx, &secondary); err != nil {
		return nil, fmt.Errorf("save secondary lead: %w", err)
	}

	if err := s.repointDuplicates(ctx, secondary.ID, primary.ID); err != nil {
		return nil, err
	}

	copied, err := s.copyActivities(ctx, secondary.ID, primary.ID)
	if err != nil {
		return nil, err
	}

	if err := s.appendActivity(ctx, primary.ID, domain.ActivityNote,
		fmt.Sprintf("Merged duplicate lead %s", secondary.Name),
		map[string]any{"secondaryId": secondary.ID, "copiedActivities": copied}); err != nil {
		return nil, err
	}
	if err := s.appendActivity(ctx, secondary.ID, domain.ActivityNote,
		fmt.Sprintf("Marked as duplicate of %s", primary.Name),
		map[string]any{"primaryId": primary.ID}); err != nil {
		return nil, err
	}

	s.metrics.ObserveMerge()
	s.bus.Publish(ctx, events.LeadMerged{
		BaseEvent:   events.NewBaseEvent(),
		PrimaryID:   primary.ID,
		SecondaryID: secondary.ID,
	})
	s.log.WithContext(ctx).Info("leads merged", "primaryId", primary.ID, "secondaryId", secondary.ID, "copiedActivities", copied)

	out := s.withStageAge(merged)
	return &out, nil
}

// MergeRecords computes the canonical record without touching storage.
func MergeRecords(primary, secondary domain.Lead) domain.Lead {
	merged := primary.Clone()

	fillString(&merged.Name, secondary.Name)
	fillString(&merged.Email, secondary.Email)
	fillString(&merged.Phone, secondary.Phone)
	fillString(&merged.Company, secondary.Company)
	fillString(&merged.Position, secondary.Position)
	fillString(&merged.AssignedTo, secondary.AssignedTo)
	fillString(&merged.Territory, secondary.Territory)
	fillString(&merged.Industry, secondary.Industry)
	fillString(&merged.LeadSource, secondary.LeadSource)
	fillString(&merged.OriginalSource, secondary.OriginalSource)
	fillString(&merged.CampaignID, secondary.CampaignID)
	fillString(&merged.LeadListID, secondary.LeadListID)
	if merged.LastInteraction == nil && secondary.LastInteraction != nil {
		t := *secondary.LastInteraction
		merged.LastInteraction = &t
	}
	if merged.NextFollowUp == nil && secondary.NextFollowUp != nil {
		t := *secondary.NextFollowUp
		merged.NextFollowUp = &t
	}
	if merged.ExpectedCloseDate == nil && secondary.ExpectedCloseDate != nil {
		t := *secondary.ExpectedCloseDate
		merged.ExpectedCloseDate = &t
	}
	for k, v := range secondary.CustomFields {
		if merged.CustomFields == nil {
			merged.CustomFields = make(map[string]any)
		}
		if _, ok := merged.CustomFields[k]; !ok {
			merged.CustomFields[k] = v
		}
	}

	if secondary.Notes != "" {
		merged.Notes = primary.Notes + mergedNotesSeparator + secondary.Notes
	}

	merged.Tags = uniqueTags(append(append([]string{}, primary.Tags...), secondary.Tags...))

	if primary.EstimatedValue != nil || secondary.EstimatedValue != nil {
		v := primary.EstimatedValueOrZero()
		if sv := secondary.EstimatedValueOrZero(); sv > v {
			v = sv
		}
		merged.EstimatedValue = &v
	}

	if !secondary.CreatedAt.IsZero() && secondary.CreatedAt.Before(primary.CreatedAt) {
		merged.CreatedAt = secondary.CreatedAt
	}

	merged.IsDuplicate = false
	merged.DuplicateOf = ""
	return merged
}

// repointDuplicates keeps duplicate links one hop deep after a merge.
func (s *Service) repointDuplicates(ctx context.Context, fromID, toID string) error {
	all, err := s.leads.List(ctx)
	if err != nil {
		return err
	}
	for _, l := range all {
		if l.IsDuplicate && l.DuplicateOf == fromID {
			l.DuplicateOf = toID
			if err := s.leads.Save(ctx, &l); err != nil {
				return fmt.Errorf("repoint duplicate %s: %w", l.ID, err)
			}
		}
	}
	return nil
}

// copyActivities re-inserts the secondary's history under the primary. Originals
// stay where they are. Entries already copied by an earlier merge are skipped.
func (s *Service) copyActivities(ctx context.Context, fromID, toID string) (int, error) {
	source, err := s.activities.ListByLead(ctx, fromID)
	if err != nil {
		return 0, fmt.Errorf("list activities: %w", err)
	}
	target, err := s.activities.ListByLead(ctx, toID)
	if err != nil {
		return 0, fmt.Errorf("list activities: %w", err)
	}

	already := make(map[string]bool, len(target))
	for _, a := range target {
		if id, ok := a.Metadata[domain.MetaMergedFromActivityID].(string); ok {
			already[id] = true
		}
	}

	copied := 0
	// Oldest first so the copies keep their relative order.
	for i := len(source) - 1; i >= 0; i-- {
		a := source[i]
		if already[a.ID] {
			continue
		}
		meta := make(map[string]any, len(a.Metadata)+2)
		for k, v := range a.Metadata {
			meta[k] = v
		}
		meta[domain.MetaMergedFromActivityID] = a.ID
		meta[metaMergedFromLeadID] = fromID

		dup := a
		dup.ID = s.newID()
		dup.LeadID = toID
		dup.Description = mergedActivityPrefix + a.Description
		dup.Metadata = meta
		if err := s.activities.Append(ctx, dup); err != nil {
			return copied, fmt.Errorf("copy activity %s: %w", a.ID, err)
		}
		copied++
	}
	return copied, nil
}

func fillString(dst *string, src string) {
	if *dst == "" {
		*dst = src
	}
}
