package repository

import (
	"context"
	"errors"
	"time"

	"cold_solutions_backend/internal/intelligence/domain"
)

var ErrNotFound = errors.New("not found")

// BulkLeadStore is what the bulk pipeline needs from storage.
type BulkLeadStore interface {
	// FetchUnanalyzed returns up to limit leads that are Not Started or Failed,
	// oldest first. A non-empty ids narrows the candidates to those leads.
	FetchUnanalyzed(ctx context.Context, ids []string, limit int) ([]domain.BusinessIntelligenceLead, error)
	// UpdateStatus sets the status of every lead in ids. errMsg is stored only for Failed.
	UpdateStatus(ctx context.Context, ids []string, status domain.AnalysisStatus, errMsg string) error
	// SaveAnalysis replaces the analysis attached to a lead.
	SaveAnalysis(ctx context.Context, leadID string, analysis domain.BusinessAnalysis) error
}

// LeadCatalog manages the imported leads and exposes stored analyses.
type LeadCatalog interface {
	Import(ctx context.Context, leads []domain.BusinessIntelligenceLead) error
	GetByID(ctx context.Context, id string) (domain.BusinessIntelligenceLead, error)
	List(ctx context.Context, status domain.AnalysisStatus, limit int) ([]domain.BusinessIntelligenceLead, error)
	GetAnalysis(ctx context.Context, leadID string) (domain.BusinessAnalysis, error)
	// FailStale marks leads stuck In Progress since before cutoff as Failed.
	FailStale(ctx context.Context, cutoff time.Time, errMsg string) (int, error)
}

// Store combines both views of the business-intelligence tables.
type Store interface {
	BulkLeadStore
	LeadCatalog
}
