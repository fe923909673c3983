package management

import (
	"context"

	"cold_solutions_backend/internal/leads/dedup"
	"cold_solutions_backend/internal/leads/domain"
)

// FindDuplicates lists probable duplicates of a stored lead.
func (s *Service) FindDuplicates(ctx context.Context, leadID string) ([]dedup.Match, error) {
	lead, err := s.leads.GetByID(ctx, leadID)
	if err != nil {
		return nil, mapNotFound(err, "lead not found")
	}
	return s.FindDuplicatesFor(ctx, lead)
}

// FindDuplicatesFor lists probable duplicates of an arbitrary, possibly unsaved, candidate.
func (s *Service) FindDuplicatesFor(ctx context.Context, candidate domain.Lead) ([]dedup.Match, error) {
	existing, err := s.leads.List(ctx)
	if err != nil {
		return nil, err
	}
	matches := dedup.Find(candidate, existing)
	s.metrics.ObserveDuplicates(len(matches))
	return matches, nil
}

// DuplicateGroups clusters all active leads for operator review. Nothing is merged.
func (s *Service) DuplicateGroups(ctx context.Context) ([]dedup.Group, error) {
	all, err := s.leads.List(ctx)
	if err != nil {
		return nil, err
	}
	return dedup.Groups(all), nil
}
