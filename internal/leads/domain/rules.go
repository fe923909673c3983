package domain

import "fmt"

// Operator compares a lead field with a rule value.
type Operator string

const (
	OpEquals      Operator = "equals"
	OpContains    Operator = "contains"
	OpGreaterThan Operator = "greater_than"
	OpLessThan    Operator = "less_than"
	OpIn          Operator = "in"
	OpNotIn       Operator = "not_in"
)

func (o Operator) Valid() bool {
	switch o {
	case OpEquals, OpContains, OpGreaterThan, OpLessThan, OpIn, OpNotIn:
		return true
	}
	return false
}

// Condition is a single field/operator/value test. Scoring rules use one as
// their criteria; routing rules AND a list of them.
type Condition struct {
	Field    string   `json:"field" yaml:"field"`
	Operator Operator `json:"operator" yaml:"operator"`
	Value    any      `json:"value" yaml:"value"`
}

// Matches evaluates the condition against the lead.
func (c Condition) Matches(lead Lead) bool {
	v, ok := lead.FieldValue(c.Field)
	return Evaluate(c.Operator, v, ok, c.Value)
}

// MatchesAll reports whether every condition holds. An empty list matches.
func MatchesAll(conditions []Condition, lead Lead) bool {
	for _, c := range conditions {
		if !c.Matches(lead) {
			return false
		}
	}
	return true
}

// ScoringRule adds Points to a lead's score when Criteria matches. Rules are additive.
type ScoringRule struct {
	ID       string    `json:"id" yaml:"id"`
	Name     string    `json:"name" yaml:"name"`
	Criteria Condition `json:"criteria" yaml:"criteria"`
	Points   int       `json:"points" yaml:"points"`
	Active   bool      `json:"active" yaml:"active"`
	Priority int       `json:"priority" yaml:"priority"`
}

type ActionType string

const (
	ActionAssignToUser      ActionType = "assign_to_user"
	ActionAssignToTerritory ActionType = "assign_to_territory"
	ActionSetPriority       ActionType = "set_priority"
	ActionAddTag            ActionType = "add_tag"
)

func (a ActionType) Valid() bool {
	switch a {
	case ActionAssignToUser, ActionAssignToTerritory, ActionSetPriority, ActionAddTag:
		return true
	}
	return false
}

type RoutingAction struct {
	Type  ActionType `json:"type" yaml:"type"`
	Value string     `json:"value" yaml:"value"`
}

// Validate reports whether the action can be applied to any lead.
func (a RoutingAction) Validate() error {
	if !a.Type.Valid() {
		return fmt.Errorf("unknown routing action %q", a.Type)
	}
	if a.Value == "" {
		return fmt.Errorf("%s needs a value", a.Type)
	}
	if a.Type == ActionSetPriority && !Priority(a.Value).Valid() {
		return fmt.Errorf("unknown priority %q", a.Value)
	}
	return nil
}

// AutoRoutingRule fires one action for the first active rule whose conditions all hold.
type AutoRoutingRule struct {
	ID         string        `json:"id" yaml:"id"`
	Name       string        `json:"name" yaml:"name"`
	Conditions []Condition   `json:"conditions" yaml:"conditions"`
	Action     RoutingAction `json:"action" yaml:"action"`
	Active     bool          `json:"active" yaml:"active"`
	Priority   int           `json:"priority" yaml:"priority"`
}

type AssignmentType string

const (
	AssignUser       AssignmentType = "user"
	AssignTerritory  AssignmentType = "territory"
	AssignRoundRobin AssignmentType = "round_robin"
)

func (a AssignmentType) Valid() bool {
	switch a {
	case AssignUser, AssignTerritory, AssignRoundRobin:
		return true
	}
	return false
}

// RoutingStats counts how often a workflow routing rule matched and assigned.
// Assigned also serves as the round-robin cursor.
type RoutingStats struct {
	Matched  int `json:"matched" yaml:"matched"`
	Assigned int `json:"assigned" yaml:"assigned"`
}

// LeadRoutingRule is the automation-workflow flavour of routing with
// user, territory and round-robin assignment.
type LeadRoutingRule struct {
	ID             string         `json:"id" yaml:"id"`
	Name           string         `json:"name" yaml:"name"`
	Conditions     []Condition    `json:"conditions" yaml:"conditions"`
	AssignmentType AssignmentType `json:"assignmentType" yaml:"assignmentType"`
	AssignTo       string         `json:"assignTo,omitempty" yaml:"assignTo"`
	Users          []string       `json:"users,omitempty" yaml:"users"`
	Active         bool           `json:"active" yaml:"active"`
	Priority       int            `json:"priority" yaml:"priority"`
	Stats          RoutingStats   `json:"stats" yaml:"stats"`
}

// Territory is read by routing and never mutated by it.
type Territory struct {
	ID            string   `json:"id" yaml:"id"`
	Name          string   `json:"name" yaml:"name"`
	Regions       []string `json:"regions,omitempty" yaml:"regions"`
	Industries    []string `json:"industries,omitempty" yaml:"industries"`
	AssignedUsers []string `json:"assignedUsers,omitempty" yaml:"assignedUsers"`
}

type User struct {
	ID     string `json:"id" yaml:"id"`
	Name   string `json:"name" yaml:"name"`
	Email  string `json:"email,omitempty" yaml:"email"`
	Active bool   `json:"active" yaml:"active"`
}
