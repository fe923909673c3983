// Package progress persists BulkProcessingStatus so API processes can poll
// runs executed by the worker, and carries the cancel request flag.
package progress

import (
	"context"
	"errors"

	"cold_solutions_backend/internal/intelligence/domain"
)

var ErrNotFound = errors.New("bulk run not found")

// Store keeps run status and cancel flags.
type Store interface {
	Save(ctx context.Context, status domain.BulkProcessingStatus) error
	// Get returns the status with CancelRequested reflecting the flag.
	Get(ctx context.Context, runID string) (domain.BulkProcessingStatus, error)
	RequestCancel(ctx context.Context, runID string) error
	CancelRequested(ctx context.Context, runID string) (bool, error)
}
