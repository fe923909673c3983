package progress

import (
	"context"
	"slices"
	"sync"

	"cold_solutions_backend/internal/intelligence/domain"
)

// MemoryStore is used when Redis is not configured and in tests.
type MemoryStore struct {
	mu        sync.RWMutex
	runs      map[string]domain.BulkProcessingStatus
	cancelled map[string]bool
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		runs:      make(map[string]domain.BulkProcessingStatus),
		cancelled: make(map[string]bool),
	}
}

func (s *MemoryStore) Save(_ context.Context, status domain.BulkProcessingStatus) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	status.Results = slices.Clone(status.Results)
	s.runs[status.RunID] = status
	return nil
}

func (s *MemoryStore) Get(_ context.Context, runID string) (domain.BulkProcessingStatus, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	status, ok := s.runs[runID]
	if !ok {
		return domain.BulkProcessingStatus{}, ErrNotFound
	}
	status.Results = slices.Clone(status.Results)
	status.CancelRequested = status.CancelRequested || s.cancelled[runID]
	return status, nil
}

func (s *MemoryStore) RequestCancel(_ context.Context, runID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.runs[runID]; !ok {
		return ErrNotFound
	}
	s.cancelled[runID] = true
	return nil
}

func (s *MemoryStore) CancelRequested(_ context.Context, runID string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.cancelled[runID], nil
}

var _ Store = (*MemoryStore)(nil)
