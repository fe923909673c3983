// Package repository defines the persistence boundary of the leads context
// and provides Postgres and in-memory implementations of it.
package repository

import (
	"context"
	"errors"

	"cold_solutions_backend/internal/leads/domain"
)

var ErrNotFound = errors.New("not found")

// LeadStore persists leads.
type LeadStore interface {
	List(ctx context.Context) ([]domain.Lead, error)
	// GetByID returns ErrNotFound for unknown ids.
	GetByID(ctx context.Context, id string) (domain.Lead, error)
	// Save upserts by id and stamps UpdatedAt on the given lead.
	Save(ctx context.Context, lead *domain.Lead) error
	Delete(ctx context.Context, id string) error
}

// ActivityStore persists the append-only activity log.
type ActivityStore interface {
	Append(ctx context.Context, activity domain.LeadActivity) error
	// ListByLead returns activities newest-first. An empty leadID lists all.
	ListByLead(ctx context.Context, leadID string) ([]domain.LeadActivity, error)
}

// RuleStore persists scoring and routing configuration.
type RuleStore interface {
	ListScoringRules(ctx context.Context) ([]domain.ScoringRule, error)
	SaveScoringRule(ctx context.Context, rule domain.ScoringRule) error
	ListRoutingRules(ctx context.Context) ([]domain.AutoRoutingRule, error)
	SaveRoutingRule(ctx context.Context, rule domain.AutoRoutingRule) error
	ListLeadRoutingRules(ctx context.Context) ([]domain.LeadRoutingRule, error)
	SaveLeadRoutingRule(ctx context.Context, rule domain.LeadRoutingRule) error
	ListTerritories(ctx context.Context) ([]domain.Territory, error)
	SaveTerritory(ctx context.Context, territory domain.Territory) error
}

// UserStore resolves assignable users.
type UserStore interface {
	GetUser(ctx context.Context, id string) (domain.User, error)
	ListUsers(ctx context.Context) ([]domain.User, error)
	SaveUser(ctx context.Context, user domain.User) error
}

// Store bundles every store of the leads context.
type Store interface {
	LeadStore
	ActivityStore
	RuleStore
	UserStore
}
