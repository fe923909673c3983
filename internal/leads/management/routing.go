package management

import (
	"context"
	"errors"
	"fmt"

	"cold_solutions_backend/internal/events"
	"cold_solutions_backend/internal/leads/domain"
	"cold_solutions_backend/internal/leads/repository"
	"cold_solutions_backend/internal/leads/routing"
)

// ApplyAutoRouting runs the first matching auto-routing rule against a stored lead.
// It returns false when the lead does not exist or no rule fired.
func (s *Service) ApplyAutoRouting(ctx context.Context, leadID string) (bool, domain.Lead, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	lead, err := s.leads.GetByID(ctx, leadID)
	if errors.Is(err, repository.ErrNotFound) {
		return false, domain.Lead{}, nil
	}
	if err != nil {
		return false, domain.Lead{}, err
	}

	plan, err := s.planRoute(ctx, &lead)
	if err != nil {
		return false, domain.Lead{}, err
	}
	if plan == nil {
		return false, s.withStageAge(lead), nil
	}
	if err := s.leads.Save(ctx, &lead); err != nil {
		return false, domain.Lead{}, fmt.Errorf("save lead: %w", err)
	}
	if err := s.recordRoute(ctx, lead.ID, plan); err != nil {
		return false, domain.Lead{}, err
	}
	return true, s.withStageAge(lead), nil
}

// routePlan is an auto-routing decision already applied to a lead in memory.
type routePlan struct {
	rule     domain.AutoRoutingRule
	assignee *domain.User
	previous string
}

// planRoute applies the first matching auto-routing rule to lead without
// writing anything. Malformed rules are logged and skipped. A nil plan means
// no rule fired.
func (s *Service) planRoute(ctx context.Context, lead *domain.Lead) (*routePlan, error) {
	rules, err := s.rules.ListRoutingRules(ctx)
	if err != nil {
		return nil, fmt.Errorf("list routing rules: %w", err)
	}
	usable := make([]domain.AutoRoutingRule, 0, len(rules))
	for _, r := range rules {
		if err := r.Action.Validate(); err != nil {
			s.log.WithContext(ctx).Warn("skipping misconfigured routing rule", "ruleId", r.ID, "error", err)
			continue
		}
		usable = append(usable, r)
	}

	rule, ok := routing.SelectRule(usable, *lead)
	if !ok {
		return nil, nil
	}

	routed := *lead
	userID, err := routing.ApplyAction(&routed, rule.Action)
	if err != nil {
		s.log.WithContext(ctx).Warn("skipping misconfigured routing rule", "ruleId", rule.ID, "error", err)
		return nil, nil
	}

	plan := &routePlan{rule: rule}
	if userID != "" {
		user, err := s.users.GetUser(ctx, userID)
		switch {
		case errors.Is(err, repository.ErrNotFound):
			s.log.WithContext(ctx).Warn("routing rule targets unknown user", "ruleId", rule.ID, "userId", userID, "leadId", lead.ID)
		case err != nil:
			return nil, fmt.Errorf("get user: %w", err)
		default:
			plan.previous = routed.AssignedTo
			plan.assignee = &user
			routed.AssignedTo = user.ID
		}
	}

	*lead = routed
	return plan, nil
}

// recordRoute writes the activity trail and event for a stored routing decision.
func (s *Service) recordRoute(ctx context.Context, leadID string, plan *routePlan) error {
	if plan.assignee != nil {
		if err := s.logAssignment(ctx, leadID, *plan.assignee, plan.previous); err != nil {
			return err
		}
	}
	rule := plan.rule
	if err := s.appendActivity(ctx, leadID, domain.ActivityNote,
		fmt.Sprintf("Auto-routing rule applied: %s", rule.Name),
		map[string]any{"ruleId": rule.ID, "action": string(rule.Action.Type), "value": rule.Action.Value}); err != nil {
		return err
	}

	s.metrics.ObserveRouting(rule.Name)
	s.bus.Publish(ctx, events.LeadRouted{
		BaseEvent: events.NewBaseEvent(),
		LeadID:    leadID,
		RuleID:    rule.ID,
		RuleName:  rule.Name,
		Action:    string(rule.Action.Type),
		Value:     rule.Action.Value,
	})
	return nil
}

// ApplyWorkflowRouting evaluates the workflow routing rules and commits to the
// first match. Only a committed match advances a round-robin cursor.
func (s *Service) ApplyWorkflowRouting(ctx context.Context, leadID string) (*routing.Assignee, domain.Lead, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	lead, err := s.leads.GetByID(ctx, leadID)
	if err != nil {
		return nil, domain.Lead{}, mapNotFound(err, "lead not found")
	}

	rules, err := s.rules.ListLeadRoutingRules(ctx)
	if err != nil {
		return nil, domain.Lead{}, fmt.Errorf("list lead routing rules: %w", err)
	}
	rule, ok := routing.Evaluate(rules, lead)
	if !ok {
		return nil, s.withStageAge(lead), nil
	}

	assignee, err := routing.ApplyAssignment(&rule)
	if err != nil {
		return nil, domain.Lead{}, fmt.Errorf("routing rule %s: %w", rule.ID, err)
	}
	if err := s.rules.SaveLeadRoutingRule(ctx, rule); err != nil {
		return nil, domain.Lead{}, fmt.Errorf("save routing rule stats: %w", err)
	}

	switch assignee.Type {
	case domain.AssignUser:
		assigned, err := s.assign(ctx, &lead, assignee.ID)
		if err != nil {
			return nil, domain.Lead{}, err
		}
		if !assigned {
			s.log.WithContext(ctx).Warn("workflow routing targets unknown user", "ruleId", rule.ID, "userId", assignee.ID)
		}
	case domain.AssignTerritory:
		lead.Territory = s.territoryName(ctx, assignee.ID)
	}

	if err := s.leads.Save(ctx, &lead); err != nil {
		return nil, domain.Lead{}, fmt.Errorf("save lead: %w", err)
	}
	if err := s.appendActivity(ctx, lead.ID, domain.ActivityNote,
		fmt.Sprintf("Workflow routing rule applied: %s", rule.Name),
		map[string]any{"ruleId": rule.ID, "assignmentType": string(rule.AssignmentType), "assignee": assignee.ID}); err != nil {
		return nil, domain.Lead{}, err
	}

	s.metrics.ObserveRouting(rule.Name)
	s.bus.Publish(ctx, events.LeadRouted{
		BaseEvent: events.NewBaseEvent(),
		LeadID:    lead.ID,
		RuleID:    rule.ID,
		RuleName:  rule.Name,
		Action:    string(rule.AssignmentType),
		Value:     assignee.ID,
	})
	return &assignee, s.withStageAge(lead), nil
}

func (s *Service) territoryName(ctx context.Context, id string) string {
	territories, err := s.rules.ListTerritories(ctx)
	if err != nil {
		s.log.WithContext(ctx).Warn("list territories failed", "error", err)
		return id
	}
	for _, t := range territories {
		if t.ID == id {
			return t.Name
		}
	}
	return id
}
