package repository

import (
	"context"
	"sort"
	"sync"
	"time"

	"cold_solutions_backend/internal/leads/domain"
)

// Memory is an in-process Store used for tests and STORE_BACKEND=memory.
type Memory struct {
	mu          sync.RWMutex
	leads       map[string]domain.Lead
	activities  []domain.LeadActivity
	scoring     map[string]domain.ScoringRule
	routing     map[string]domain.AutoRoutingRule
	leadRouting map[string]domain.LeadRoutingRule
	territories map[string]domain.Territory
	users       map[string]domain.User
	now         func() time.Time
}

// NewMemory creates an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{
		leads:       make(map[string]domain.Lead),
		scoring:     make(map[string]domain.ScoringRule),
		routing:     make(map[string]domain.AutoRoutingRule),
		leadRouting: make(map[string]domain.LeadRoutingRule),
		territories: make(map[string]domain.Territory),
		users:       make(map[string]domain.User),
		now:         func() time.Time { return time.Now().UTC() },
	}
}

// WithClock overrides the clock used to stamp UpdatedAt.
func (m *Memory) WithClock(now func() time.Time) *Memory {
	m.now = now
	return m
}

func (m *Memory) List(_ context.Context) ([]domain.Lead, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]domain.Lead, 0, len(m.leads))
	for _, l := range m.leads {
		out = append(out, l.Clone())
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out, nil
}

func (m *Memory) GetByID(_ context.Context, id string) (domain.Lead, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	l, ok := m.leads[id]
	if !ok {
		return domain.Lead{}, ErrNotFound
	}
	return l.Clone(), nil
}

func (m *Memory) Save(_ context.Context, lead *domain.Lead) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	lead.UpdatedAt = m.now()
	m.leads[lead.ID] = lead.Clone()
	return nil
}

func (m *Memory) Delete(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.leads[id]; !ok {
		return ErrNotFound
	}
	delete(m.leads, id)
	return nil
}

func (m *Memory) Append(_ context.Context, activity domain.LeadActivity) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.activities = append(m.activities, cloneActivity(activity))
	return nil
}

func (m *Memory) ListByLead(_ context.Context, leadID string) ([]domain.LeadActivity, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]domain.LeadActivity, 0)
	// Walk backwards so equal timestamps keep newest-appended first.
	for i := len(m.activities) - 1; i >= 0; i-- {
		a := m.activities[i]
		if leadID == "" || a.LeadID == leadID {
			out = append(out, cloneActivity(a))
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out, nil
}

func (m *Memory) ListScoringRules(_ context.Context) ([]domain.ScoringRule, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]domain.ScoringRule, 0, len(m.scoring))
	for _, r := range m.scoring {
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool { return lessByPriority(out[i].Priority, out[j].Priority, out[i].ID, out[j].ID) })
	return out, nil
}

func (m *Memory) SaveScoringRule(_ context.Context, rule domain.ScoringRule) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.scoring[rule.ID] = rule
	return nil
}

func (m *Memory) ListRoutingRules(_ context.Context) ([]domain.AutoRoutingRule, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]domain.AutoRoutingRule, 0, len(m.routing))
	for _, r := range m.routing {
		r.Conditions = append([]domain.Condition(nil), r.Conditions...)
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool { return lessByPriority(out[i].Priority, out[j].Priority, out[i].ID, out[j].ID) })
	return out, nil
}

func (m *Memory) SaveRoutingRule(_ context.Context, rule domain.AutoRoutingRule) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	rule.Conditions = append([]domain.Condition(nil), rule.Conditions...)
	m.routing[rule.ID] = rule
	return nil
}

func (m *Memory) ListLeadRoutingRules(_ context.Context) ([]domain.LeadRoutingRule, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]domain.LeadRoutingRule, 0, len(m.leadRouting))
	for _, r := range m.leadRouting {
		r.Conditions = append([]domain.Condition(nil), r.Conditions...)
		r.Users = append([]string(nil), r.Users...)
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool { return lessByPriority(out[i].Priority, out[j].Priority, out[i].ID, out[j].ID) })
	return out, nil
}

func (m *Memory) SaveLeadRoutingRule(_ context.Context, rule domain.LeadRoutingRule) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	rule.Conditions = append([]domain.Condition(nil), rule.Conditions...)
	rule.Users = append([]string(nil), rule.Users...)
	m.leadRouting[rule.ID] = rule
	return nil
}

func (m *Memory) ListTerritories(_ context.Context) ([]domain.Territory, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]domain.Territory, 0, len(m.territories))
	for _, t := range m.territories {
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (m *Memory) SaveTerritory(_ context.Context, territory domain.Territory) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.territories[territory.ID] = territory
	return nil
}

func (m *Memory) GetUser(_ context.Context, id string) (domain.User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	u, ok := m.users[id]
	if !ok {
		return domain.User{}, ErrNotFound
	}
	return u, nil
}

func (m *Memory) ListUsers(_ context.Context) ([]domain.User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]domain.User, 0, len(m.users))
	for _, u := range m.users {
		out = append(out, u)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *Memory) SaveUser(_ context.Context, user domain.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.users[user.ID] = user
	return nil
}

func lessByPriority(pa, pb int, ida, idb string) bool {
	if pa == pb {
		return ida < idb
	}
	return pa < pb
}

func cloneActivity(a domain.LeadActivity) domain.LeadActivity {
	if a.Metadata != nil {
		meta := make(map[string]any, len(a.Metadata))
		for k, v := range a.Metadata {
			meta[k] = v
		}
		a.Metadata = meta
	}
	if a.Duration != nil {
		d := *a.Duration
		a.Duration = &d
	}
	return a
}

var _ Store = (*Memory)(nil)
