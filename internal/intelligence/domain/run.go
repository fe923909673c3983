package domain

import "time"

// RunState is the lifecycle of one bulk run.
type RunState string

const (
	RunQueued    RunState = "queued"
	RunRunning   RunState = "running"
	RunCompleted RunState = "completed"
	RunCancelled RunState = "cancelled"
	RunFailed    RunState = "failed"
)

// Finished reports whether the run reached a final state.
func (s RunState) Finished() bool {
	return s == RunCompleted || s == RunCancelled || s == RunFailed
}

// LeadResult is the outcome of one lead inside a run. Results are appended in
// completion order, not batch order.
type LeadResult struct {
	LeadID       string         `json:"leadId"`
	BusinessName string         `json:"businessName"`
	Status       AnalysisStatus `json:"status"`
	Error        string         `json:"error,omitempty"`
	DurationMs   int64          `json:"durationMs"`
}

// BulkProcessingStatus is the progress object polled by operators.
type BulkProcessingStatus struct {
	RunID           string       `json:"runId"`
	State           RunState     `json:"state"`
	InProgress      bool         `json:"inProgress"`
	Total           int          `json:"total"`
	Processed       int          `json:"processed"`
	Successful      int          `json:"successful"`
	Degraded        int          `json:"degraded"`
	Failed          int          `json:"failed"`
	CurrentBatch    int          `json:"currentBatch"`
	TotalBatches    int          `json:"totalBatches"`
	EstimatedCost   float64      `json:"estimatedCost"`
	CancelRequested bool         `json:"cancelRequested"`
	Error           string       `json:"error,omitempty"`
	Results         []LeadResult `json:"results"`
	StartedAt       *time.Time   `json:"startedAt,omitempty"`
	FinishedAt      *time.Time   `json:"finishedAt,omitempty"`
	UpdatedAt       time.Time    `json:"updatedAt"`
}

// Record folds a lead outcome into the counters.
func (s *BulkProcessingStatus) Record(r LeadResult) {
	s.Processed++
	switch r.Status {
	case StatusComplete:
		s.Successful++
	case StatusDegraded:
		s.Degraded++
	default:
		s.Failed++
	}
	s.Results = append(s.Results, r)
}

// TotalBatches returns how many batches of size cover n leads.
func TotalBatches(n, size int) int {
	if n <= 0 || size <= 0 {
		return 0
	}
	return (n + size - 1) / size
}
