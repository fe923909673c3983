// Package routing decides which rule applies to a lead and what it does.
// Functions here never touch storage; callers persist the outcome.
package routing

import (
	"errors"
	"fmt"
	"sort"

	"cold_solutions_backend/internal/leads/domain"
)

var ErrNoAssignee = errors.New("routing rule has no assignee")

// SelectRule returns the first active auto-routing rule, in ascending priority,
// whose conditions all hold for lead.
func SelectRule(rules []domain.AutoRoutingRule, lead domain.Lead) (domain.AutoRoutingRule, bool) {
	ordered := make([]domain.AutoRoutingRule, len(rules))
	copy(ordered, rules)
	sort.SliceStable(ordered, func(i, j int) bool { return ordered[i].Priority < ordered[j].Priority })

	for _, r := range ordered {
		if r.Active && domain.MatchesAll(r.Conditions, lead) {
			return r, true
		}
	}
	return domain.AutoRoutingRule{}, false
}

// ApplyAction mutates lead for territory, priority and tag actions.
// For assign_to_user it leaves the lead untouched and returns the user id,
// since assignment goes through the service to validate the user and log it.
// The lead is left untouched when the action is malformed.
func ApplyAction(lead *domain.Lead, action domain.RoutingAction) (assignUserID string, err error) {
	if action.Type == domain.ActionAssignToUser && action.Value == "" {
		return "", ErrNoAssignee
	}
	if err := action.Validate(); err != nil {
		return "", err
	}
	switch action.Type {
	case domain.ActionAssignToUser:
		return action.Value, nil
	case domain.ActionAssignToTerritory:
		lead.Territory = action.Value
	case domain.ActionSetPriority:
		lead.Priority = domain.Priority(action.Value)
	case domain.ActionAddTag:
		if !lead.HasTag(action.Value) {
			lead.Tags = append(lead.Tags, action.Value)
		}
	}
	return "", nil
}

// Assignee is the target chosen by a workflow routing rule.
type Assignee struct {
	Type domain.AssignmentType `json:"type"`
	ID   string                `json:"id"`
}

// Match reports whether a workflow routing rule applies to lead. It has no side effects.
func Match(rule domain.LeadRoutingRule, lead domain.Lead) bool {
	return rule.Active && domain.MatchesAll(rule.Conditions, lead)
}

// Evaluate returns the first matching workflow rule in ascending priority. It has no side effects.
func Evaluate(rules []domain.LeadRoutingRule, lead domain.Lead) (domain.LeadRoutingRule, bool) {
	ordered := make([]domain.LeadRoutingRule, len(rules))
	copy(ordered, rules)
	sort.SliceStable(ordered, func(i, j int) bool { return ordered[i].Priority < ordered[j].Priority })

	for _, r := range ordered {
		if Match(r, lead) {
			return r, true
		}
	}
	return domain.LeadRoutingRule{}, false
}

// ApplyAssignment commits to a matched rule: it picks the assignee and advances
// the rule's counters. Round-robin uses Stats.Assigned as its cursor.
func ApplyAssignment(rule *domain.LeadRoutingRule) (Assignee, error) {
	var a Assignee
	switch rule.AssignmentType {
	case domain.AssignUser, domain.AssignTerritory:
		if rule.AssignTo == "" {
			return Assignee{}, ErrNoAssignee
		}
		a = Assignee{Type: rule.AssignmentType, ID: rule.AssignTo}
	case domain.AssignRoundRobin:
		if len(rule.Users) == 0 {
			return Assignee{}, ErrNoAssignee
		}
		a = Assignee{Type: domain.AssignUser, ID: rule.Users[rule.Stats.Assigned%len(rule.Users)]}
	default:
		return Assignee{}, fmt.Errorf("unknown assignment type %q", rule.AssignmentType)
	}
	rule.Stats.Matched++
	rule.Stats.Assigned++
	return a, nil
}
