package repository

import (
	"context"
	"slices"
	"sort"
	"sync"
	"time"

	"cold_solutions_backend/internal/intelligence/domain"
)

// Memory is an in-process Store used for tests and STORE_BACKEND=memory.
type Memory struct {
	mu       sync.RWMutex
	leads    map[string]domain.BusinessIntelligenceLead
	analyses map[string]domain.BusinessAnalysis
	now      func() time.Time
}

func NewMemory() *Memory {
	return &Memory{
		leads:    make(map[string]domain.BusinessIntelligenceLead),
		analyses: make(map[string]domain.BusinessAnalysis),
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// WithClock overrides the clock used to stamp UpdatedAt.
func (m *Memory) WithClock(now func() time.Time) *Memory {
	m.now = now
	return m
}

func (m *Memory) Import(_ context.Context, leads []domain.BusinessIntelligenceLead) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	for _, l := range leads {
		if l.AnalysisStatus == "" {
			l.AnalysisStatus = domain.StatusNotStarted
		}
		if l.CreatedAt.IsZero() {
			l.CreatedAt = now
		}
		l.UpdatedAt = now
		m.leads[l.ID] = l
	}
	return nil
}

func (m *Memory) GetByID(_ context.Context, id string) (domain.BusinessIntelligenceLead, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	l, ok := m.leads[id]
	if !ok {
		return domain.BusinessIntelligenceLead{}, ErrNotFound
	}
	return l, nil
}

func (m *Memory) List(_ context.Context, status domain.AnalysisStatus, limit int) ([]domain.BusinessIntelligenceLead, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := m.sortedLocked(func(l domain.BusinessIntelligenceLead) bool {
		return status == "" || l.AnalysisStatus == status
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (m *Memory) GetAnalysis(_ context.Context, leadID string) (domain.BusinessAnalysis, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	a, ok := m.analyses[leadID]
	if !ok {
		return domain.BusinessAnalysis{}, ErrNotFound
	}
	return a, nil
}

func (m *Memory) FetchUnanalyzed(_ context.Context, ids []string, limit int) ([]domain.BusinessIntelligenceLead, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := m.sortedLocked(func(l domain.BusinessIntelligenceLead) bool {
		return l.AnalysisStatus.Eligible() && (len(ids) == 0 || slices.Contains(ids, l.ID))
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (m *Memory) UpdateStatus(_ context.Context, ids []string, status domain.AnalysisStatus, errMsg string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	for _, id := range ids {
		l, ok := m.leads[id]
		if !ok {
			continue
		}
		l.AnalysisStatus = status
		l.ErrorMessage = ""
		if status == domain.StatusFailed {
			l.ErrorMessage = errMsg
		}
		l.UpdatedAt = now
		m.leads[id] = l
	}
	return nil
}

func (m *Memory) SaveAnalysis(_ context.Context, leadID string, analysis domain.BusinessAnalysis) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.leads[leadID]; !ok {
		return ErrNotFound
	}
	analysis.LeadID = leadID
	if analysis.CreatedAt.IsZero() {
		analysis.CreatedAt = m.now()
	}
	m.analyses[leadID] = analysis
	return nil
}

func (m *Memory) FailStale(_ context.Context, cutoff time.Time, errMsg string) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	n := 0
	now := m.now()
	for id, l := range m.leads {
		if l.AnalysisStatus != domain.StatusInProgress || !l.UpdatedAt.Before(cutoff) {
			continue
		}
		l.AnalysisStatus = domain.StatusFailed
		l.ErrorMessage = errMsg
		l.UpdatedAt = now
		m.leads[id] = l
		n++
	}
	return n, nil
}

func (m *Memory) sortedLocked(keep func(domain.BusinessIntelligenceLead) bool) []domain.BusinessIntelligenceLead {
	out := make([]domain.BusinessIntelligenceLead, 0, len(m.leads))
	for _, l := range m.leads {
		if keep(l) {
			out = append(out, l)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out
}

var _ Store = (*Memory)(nil)
