package transport

import (
	"cold_solutions_backend/internal/intelligence/domain"
)

// ImportLead is one business to enrich. Field names follow the CSV header.
type ImportLead struct {
	BusinessName  string `json:"business_name" validate:"required,min=1,max=200"`
	Industry      string `json:"industry,omitempty" validate:"max=100"`
	Website       string `json:"website,omitempty" validate:"max=500"`
	City          string `json:"city" validate:"required,max=100"`
	Country       string `json:"country" validate:"required,max=100"`
	Address       string `json:"address,omitempty" validate:"max=300"`
	ZipCode       string `json:"zip_code,omitempty" validate:"max=20"`
	State         string `json:"state,omitempty" validate:"max=100"`
	GoogleMapsURL string `json:"google_maps_url,omitempty" validate:"omitempty,url,max=1000"`
}

type ImportLeadsRequest struct {
	Leads []ImportLead `json:"leads" validate:"required,min=1,max=1000,dive"`
}

// RowError reports why one imported row was skipped. Rows are 1-based data rows.
type RowError struct {
	Row    int               `json:"row"`
	Errors map[string]string `json:"errors"`
}

type ImportResult struct {
	Imported int        `json:"imported"`
	IDs      []string   `json:"ids"`
	Skipped  []RowError `json:"skipped"`
}

type StartBulkRunRequest struct {
	LeadIDs []string `json:"leadIds,omitempty" validate:"omitempty,max=1000,dive,min=1,max=100"`
	Limit   int      `json:"limit,omitempty" validate:"omitempty,min=1,max=1000"`
}

type CostEstimate struct {
	Count              int     `json:"count"`
	BatchSize          int     `json:"batchSize"`
	TotalBatches       int     `json:"totalBatches"`
	EstimatedCost      float64 `json:"estimatedCost"`
	MaxDurationSeconds int64   `json:"maxDurationSeconds"`
}

type ListLeadsParams struct {
	Status domain.AnalysisStatus `form:"status" validate:"omitempty,analysis_status"`
	Limit  int                   `form:"limit" validate:"omitempty,min=1,max=1000"`
}

type LeadListResponse struct {
	Items []domain.BusinessIntelligenceLead `json:"items"`
	Total int                               `json:"total"`
}

type EstimateParams struct {
	Count int `form:"count" validate:"min=0,max=10000"`
}
