package progress

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"cold_solutions_backend/internal/intelligence/domain"

	"github.com/redis/go-redis/v9"
)

const (
	keyPrefix = "bi:bulk-run:"
	// DefaultTTL keeps finished runs pollable for a day.
	DefaultTTL = 24 * time.Hour
)

// RedisStore keeps each run as a JSON string with a sibling cancel key.
type RedisStore struct {
	client redis.UniversalClient
	ttl    time.Duration
}

func NewRedisStore(client redis.UniversalClient, ttl time.Duration) *RedisStore {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &RedisStore{client: client, ttl: ttl}
}

func statusKey(runID string) string { return keyPrefix + runID }
func cancelKey(runID string) string { return keyPrefix + runID + ":cancel" }

func (s *RedisStore) Save(ctx context.Context, status domain.BulkProcessingStatus) error {
	data, err := json.Marshal(status)
	if err != nil {
		return fmt.Errorf("encode bulk status: %w", err)
	}
	return s.client.Set(ctx, statusKey(status.RunID), data, s.ttl).Err()
}

func (s *RedisStore) Get(ctx context.Context, runID string) (domain.BulkProcessingStatus, error) {
	data, err := s.client.Get(ctx, statusKey(runID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return domain.BulkProcessingStatus{}, ErrNotFound
	}
	if err != nil {
		return domain.BulkProcessingStatus{}, err
	}

	var status domain.BulkProcessingStatus
	if err := json.Unmarshal(data, &status); err != nil {
		return domain.BulkProcessingStatus{}, fmt.Errorf("decode bulk status: %w", err)
	}
	cancelled, err := s.CancelRequested(ctx, runID)
	if err != nil {
		return domain.BulkProcessingStatus{}, err
	}
	status.CancelRequested = status.CancelRequested || cancelled
	return status, nil
}

func (s *RedisStore) RequestCancel(ctx context.Context, runID string) error {
	n, err := s.client.Exists(ctx, statusKey(runID)).Result()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return s.client.Set(ctx, cancelKey(runID), "1", s.ttl).Err()
}

func (s *RedisStore) CancelRequested(ctx context.Context, runID string) (bool, error) {
	n, err := s.client.Exists(ctx, cancelKey(runID)).Result()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

var _ Store = (*RedisStore)(nil)
