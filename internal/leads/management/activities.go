package management

import (
	"context"
	"fmt"

	"cold_solutions_backend/internal/leads/domain"
	"cold_solutions_backend/internal/leads/transport"
	"cold_solutions_backend/platform/sanitize"
)

// ListActivities returns the audit trail newest-first. An empty leadID lists every lead's.
func (s *Service) ListActivities(ctx context.Context, leadID string) ([]domain.LeadActivity, error) {
	if leadID != "" {
		if _, err := s.leads.GetByID(ctx, leadID); err != nil {
			return nil, mapNotFound(err, "lead not found")
		}
	}
	return s.activities.ListByLead(ctx, leadID)
}

// LogActivity records a manual interaction such as a call or meeting.
func (s *Service) LogActivity(ctx context.Context, leadID string, req transport.LogActivityRequest) (domain.LeadActivity, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	lead, err := s.leads.GetByID(ctx, leadID)
	if err != nil {
		return domain.LeadActivity{}, mapNotFound(err, "lead not found")
	}

	a := domain.LeadActivity{
		ID:          s.newID(),
		LeadID:      leadID,
		Type:        req.Type,
		Description: sanitize.Text(req.Description),
		CreatedAt:   s.now(),
		CreatedBy:   actorFrom(ctx),
		Duration:    req.Duration,
		Outcome:     req.Outcome,
		Metadata:    req.Metadata,
	}
	if err := s.activities.Append(ctx, a); err != nil {
		return domain.LeadActivity{}, fmt.Errorf("append activity: %w", err)
	}

	switch req.Type {
	case domain.ActivityCall, domain.ActivityEmail, domain.ActivityMeeting:
		at := a.CreatedAt
		lead.LastInteraction = &at
		if err := s.leads.Save(ctx, &lead); err != nil {
			return domain.LeadActivity{}, fmt.Errorf("save lead: %w", err)
		}
	}
	return a, nil
}
