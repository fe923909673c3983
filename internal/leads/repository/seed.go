package repository

import (
	"context"
	_ "embed"
	"fmt"
	"os"

	"cold_solutions_backend/internal/leads/domain"

	"gopkg.in/yaml.v3"
)

//go:embed seed_default.yaml
var defaultSeed []byte

// Seed is the YAML document describing rules, territories and users.
type Seed struct {
	Users            []domain.User            `yaml:"users"`
	Territories      []domain.Territory       `yaml:"territories"`
	ScoringRules     []domain.ScoringRule     `yaml:"scoringRules"`
	RoutingRules     []domain.AutoRoutingRule `yaml:"routingRules"`
	LeadRoutingRules []domain.LeadRoutingRule `yaml:"leadRoutingRules"`
}

// LoadSeed reads a seed file. An empty path yields the built-in defaults.
func LoadSeed(path string) (Seed, error) {
	data := defaultSeed
	if path != "" {
		b, err := os.ReadFile(path)
		if err != nil {
			return Seed{}, fmt.Errorf("read rules file: %w", err)
		}
		data = b
	}
	return ParseSeed(data)
}

// ParseSeed decodes and validates a seed document.
func ParseSeed(data []byte) (Seed, error) {
	var seed Seed
	if err := yaml.Unmarshal(data, &seed); err != nil {
		return Seed{}, fmt.Errorf("parse rules: %w", err)
	}
	for _, r := range seed.ScoringRules {
		if r.ID == "" || !r.Criteria.Operator.Valid() {
			return Seed{}, fmt.Errorf("scoring rule %q: id and a known operator are required", r.Name)
		}
	}
	for _, r := range seed.RoutingRules {
		if r.ID == "" {
			return Seed{}, fmt.Errorf("routing rule %q: id is required", r.Name)
		}
		if err := r.Action.Validate(); err != nil {
			return Seed{}, fmt.Errorf("routing rule %q: %w", r.ID, err)
		}
		for _, c := range r.Conditions {
			if !c.Operator.Valid() {
				return Seed{}, fmt.Errorf("routing rule %q: unknown operator %q", r.Name, c.Operator)
			}
		}
	}
	for _, r := range seed.LeadRoutingRules {
		if r.ID == "" || !r.AssignmentType.Valid() {
			return Seed{}, fmt.Errorf("lead routing rule %q: id and a known assignment type are required", r.Name)
		}
	}
	return seed, nil
}

// Apply upserts every entry of the seed into store.
func (s Seed) Apply(ctx context.Context, store interface {
	RuleStore
	UserStore
}) error {
	for _, u := range s.Users {
		if err := store.SaveUser(ctx, u); err != nil {
			return fmt.Errorf("seed user %s: %w", u.ID, err)
		}
	}
	for _, t := range s.Territories {
		if err := store.SaveTerritory(ctx, t); err != nil {
			return fmt.Errorf("seed territory %s: %w", t.ID, err)
		}
	}
	for _, r := range s.ScoringRules {
		if err := store.SaveScoringRule(ctx, r); err != nil {
			return fmt.Errorf("seed scoring rule %s: %w", r.ID, err)
		}
	}
	for _, r := range s.RoutingRules {
		if err := store.SaveRoutingRule(ctx, r); err != nil {
			return fmt.Errorf("seed routing rule %s: %w", r.ID, err)
		}
	}
	for _, r := range s.LeadRoutingRules {
		if err := store.SaveLeadRoutingRule(ctx, r); err != nil {
			return fmt.Errorf("seed lead routing rule %s: %w", r.ID, err)
		}
	}
	return nil
}
