// Package service is the application layer of business-intelligence enrichment:
// lead import, cost estimation and the lifecycle of bulk runs.
package service

import (
	"context"
	"errors"
	"sync"
	"time"

	"cold_solutions_backend/internal/intelligence/domain"
	"cold_solutions_backend/internal/intelligence/pipeline"
	"cold_solutions_backend/internal/intelligence/progress"
	"cold_solutions_backend/internal/intelligence/repository"
	"cold_solutions_backend/internal/intelligence/transport"
	"cold_solutions_backend/internal/scheduler"
	"cold_solutions_backend/platform/apperr"
	"cold_solutions_backend/platform/logger"
	"cold_solutions_backend/platform/sanitize"
	"cold_solutions_backend/platform/validator"

	"github.com/google/uuid"
)

const (
	defaultListLimit = 100
	// runTimeoutMargin is added to the worst-case run time for the task deadline.
	runTimeoutMargin = 10 * time.Minute
)

// PayloadLoader reads archived raw payloads back.
type PayloadLoader interface {
	Load(ctx context.Context, key string) ([]byte, error)
}

// Deps are the collaborators of the service. Without an Enqueuer runs execute
// in-process; without an Archive raw payloads come from the database only.
type Deps struct {
	Store    repository.Store
	Pipeline *pipeline.Pipeline
	Progress progress.Store
	Enqueuer scheduler.BulkRunEnqueuer
	Archive  PayloadLoader
	Val      *validator.Validator
	Log      *logger.Logger
}

type Service struct {
	store    repository.Store
	pipeline *pipeline.Pipeline
	progress progress.Store
	enqueuer scheduler.BulkRunEnqueuer
	archive  PayloadLoader
	val      *validator.Validator
	log      *logger.Logger
	now      func() time.Time

	mu      sync.Mutex
	running map[string]context.CancelFunc
	wg      sync.WaitGroup
}

func New(deps Deps) *Service {
	return &Service{
		store:    deps.Store,
		pipeline: deps.Pipeline,
		progress: deps.Progress,
		enqueuer: deps.Enqueuer,
		archive:  deps.Archive,
		val:      deps.Val,
		log:      deps.Log,
		now:      func() time.Time { return time.Now().UTC() },
		running:  make(map[string]context.CancelFunc),
	}
}

// EstimateCost returns what enriching count leads would cost and take at most.
func (s *Service) EstimateCost(count int) (transport.CostEstimate, error) {
	if count < 0 {
		return transport.CostEstimate{}, apperr.Validation("count must not be negative")
	}
	return transport.CostEstimate{
		Count:              count,
		BatchSize:          s.pipeline.BatchSize(),
		TotalBatches:       domain.TotalBatches(count, s.pipeline.BatchSize()),
		EstimatedCost:      s.pipeline.EstimateCost(count),
		MaxDurationSeconds: int64(s.pipeline.MaxDuration(count).Seconds()),
	}, nil
}

// Start queues a bulk run over the currently eligible leads and returns its
// initial status. The pipeline fetches again when it starts, so the counts
// here are the operator's confirmation figures.
func (s *Service) Start(ctx context.Context, req transport.StartBulkRunRequest) (domain.BulkProcessingStatus, error) {
	pr := pipeline.Request{LeadIDs: req.LeadIDs, Limit: s.pipeline.Limit(pipeline.Request{Limit: req.Limit})}

	eligible, err := s.store.FetchUnanalyzed(ctx, pr.LeadIDs, pr.Limit)
	if err != nil {
		return domain.BulkProcessingStatus{}, apperr.Internal("failed to count eligible leads", err)
	}
	if len(eligible) == 0 {
		return domain.BulkProcessingStatus{}, apperr.Conflict("no leads are waiting for analysis")
	}

	now := s.now()
	status := domain.BulkProcessingStatus{
		RunID:         uuid.NewString(),
		State:         domain.RunQueued,
		InProgress:    true,
		Total:         len(eligible),
		TotalBatches:  domain.TotalBatches(len(eligible), s.pipeline.BatchSize()),
		EstimatedCost: s.pipeline.EstimateCost(len(eligible)),
		Results:       []domain.LeadResult{},
		UpdatedAt:     now,
	}
	if err := s.progress.Save(ctx, status); err != nil {
		return domain.BulkProcessingStatus{}, apperr.Internal("failed to save run status", err)
	}

	if s.enqueuer == nil {
		s.runLocal(status.RunID, pr)
		s.log.Info("bulk run started in process", "runId", status.RunID, "leads", status.Total)
		return status, nil
	}

	payload := scheduler.BulkRunPayload{RunID: status.RunID, LeadIDs: pr.LeadIDs, Limit: pr.Limit}
	timeout := s.pipeline.MaxDuration(len(eligible)) + runTimeoutMargin
	if err := s.enqueuer.EnqueueBulkRun(ctx, payload, timeout); err != nil {
		status.State = domain.RunFailed
		status.InProgress = false
		status.Error = "failed to queue run"
		status.UpdatedAt = s.now()
		if serr := s.progress.Save(context.WithoutCancel(ctx), status); serr != nil {
			s.log.Warn("save failed run status", "runId", status.RunID, "error", serr)
		}
		return domain.BulkProcessingStatus{}, apperr.Wrap(apperr.KindUnavailable, "failed to queue bulk run", err)
	}

	s.log.Info("bulk run queued", "runId", status.RunID, "leads", status.Total, "timeout", timeout)
	return status, nil
}

func (s *Service) runLocal(runID string, req pipeline.Request) {
	ctx, cancel := context.WithCancel(context.Background())

	s.mu.Lock()
	s.running[runID] = cancel
	s.mu.Unlock()

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		defer func() {
			s.mu.Lock()
			delete(s.running, runID)
			s.mu.Unlock()
			cancel()
		}()
		if _, err := s.pipeline.Run(ctx, runID, req); err != nil {
			s.log.Error("bulk run failed", "runId", runID, "error", err)
		}
	}()
}

// Wait blocks until every in-process run has returned.
func (s *Service) Wait() {
	s.wg.Wait()
}

// Shutdown cancels in-process runs and waits for them to stop.
func (s *Service) Shutdown() {
	s.mu.Lock()
	for _, cancel := range s.running {
		cancel()
	}
	s.mu.Unlock()
	s.wg.Wait()
}

// HandleBulkRun executes a queued run on the worker.
func (s *Service) HandleBulkRun(ctx context.Context, payload scheduler.BulkRunPayload) error {
	_, err := s.pipeline.Run(ctx, payload.RunID, pipeline.Request{LeadIDs: payload.LeadIDs, Limit: payload.Limit})
	return err
}

func (s *Service) GetRun(ctx context.Context, runID string) (domain.BulkProcessingStatus, error) {
	status, err := s.progress.Get(ctx, runID)
	if errors.Is(err, progress.ErrNotFound) {
		return domain.BulkProcessingStatus{}, apperr.NotFound("bulk run not found")
	}
	if err != nil {
		return domain.BulkProcessingStatus{}, apperr.Internal("failed to load run status", err)
	}
	return status, nil
}

// CancelRun raises the cancel flag. The run stops before its next batch or
// staggered launch; leads already running finish normally.
func (s *Service) CancelRun(ctx context.Context, runID string) (domain.BulkProcessingStatus, error) {
	status, err := s.GetRun(ctx, runID)
	if err != nil {
		return domain.BulkProcessingStatus{}, err
	}
	if status.State.Finished() {
		return status, nil
	}

	if err := s.progress.RequestCancel(ctx, runID); err != nil {
		return domain.BulkProcessingStatus{}, apperr.Internal("failed to request cancel", err)
	}
	s.mu.Lock()
	if cancel, ok := s.running[runID]; ok {
		cancel()
	}
	s.mu.Unlock()

	s.log.Info("bulk run cancel requested", "runId", runID)
	status.CancelRequested = true
	return status, nil
}

// Import stores new leads for enrichment and returns their ids.
func (s *Service) Import(ctx context.Context, rows []transport.ImportLead) (transport.ImportResult, error) {
	result := transport.ImportResult{IDs: []string{}, Skipped: []transport.RowError{}}
	leads := make([]domain.BusinessIntelligenceLead, 0, len(rows))
	for i, row := range rows {
		row = cleanRow(row)
		if err := s.val.Struct(row); err != nil {
			result.Skipped = append(result.Skipped, transport.RowError{Row: i + 1, Errors: validator.FieldErrors(err)})
			continue
		}
		leads = append(leads, toLead(row))
	}
	if len(leads) == 0 {
		return result, nil
	}

	if err := s.store.Import(ctx, leads); err != nil {
		return transport.ImportResult{}, apperr.Internal("failed to import leads", err)
	}
	for _, l := range leads {
		result.IDs = append(result.IDs, l.ID)
	}
	result.Imported = len(leads)
	s.log.Info("business leads imported", "imported", result.Imported, "skipped", len(result.Skipped))
	return result, nil
}

func (s *Service) ListLeads(ctx context.Context, params transport.ListLeadsParams) (transport.LeadListResponse, error) {
	limit := params.Limit
	if limit <= 0 {
		limit = defaultListLimit
	}
	items, err := s.store.List(ctx, params.Status, limit)
	if err != nil {
		return transport.LeadListResponse{}, apperr.Internal("failed to list leads", err)
	}
	return transport.LeadListResponse{Items: items, Total: len(items)}, nil
}

func (s *Service) GetLead(ctx context.Context, id string) (domain.BusinessIntelligenceLead, error) {
	lead, err := s.store.GetByID(ctx, id)
	if errors.Is(err, repository.ErrNotFound) {
		return domain.BusinessIntelligenceLead{}, apperr.NotFound("lead not found")
	}
	if err != nil {
		return domain.BusinessIntelligenceLead{}, apperr.Internal("failed to load lead", err)
	}
	return lead, nil
}

// GetAnalysis returns the stored analysis without its raw payload.
func (s *Service) GetAnalysis(ctx context.Context, leadID string) (domain.BusinessAnalysis, error) {
	a, err := s.store.GetAnalysis(ctx, leadID)
	if errors.Is(err, repository.ErrNotFound) {
		return domain.BusinessAnalysis{}, apperr.NotFound("analysis not found")
	}
	if err != nil {
		return domain.BusinessAnalysis{}, apperr.Internal("failed to load analysis", err)
	}
	a.RawPayload = nil
	return a, nil
}

// RawPayload returns the facts gathered for a lead, preferring the archived copy.
func (s *Service) RawPayload(ctx context.Context, leadID string) ([]byte, error) {
	a, err := s.store.GetAnalysis(ctx, leadID)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, apperr.NotFound("analysis not found")
	}
	if err != nil {
		return nil, apperr.Internal("failed to load analysis", err)
	}

	if a.RawArchiveKey != "" && s.archive != nil {
		data, err := s.archive.Load(ctx, a.RawArchiveKey)
		if err == nil {
			return data, nil
		}
		s.log.Warn("load archived payload failed", "leadId", leadID, "key", a.RawArchiveKey, "error", err)
	}
	if len(a.RawPayload) == 0 {
		return nil, apperr.NotFound("raw payload not found")
	}
	return a.RawPayload, nil
}

func cleanRow(row transport.ImportLead) transport.ImportLead {
	row.BusinessName = sanitize.Text(row.BusinessName)
	row.Industry = sanitize.Text(row.Industry)
	row.Website = sanitize.Text(row.Website)
	row.City = sanitize.Text(row.City)
	row.Country = sanitize.Text(row.Country)
	row.Address = sanitize.Text(row.Address)
	row.ZipCode = sanitize.Text(row.ZipCode)
	row.State = sanitize.Text(row.State)
	row.GoogleMapsURL = sanitize.Text(row.GoogleMapsURL)
	return row
}

func toLead(row transport.ImportLead) domain.BusinessIntelligenceLead {
	return domain.BusinessIntelligenceLead{
		ID:             uuid.NewString(),
		BusinessName:   row.BusinessName,
		Industry:       row.Industry,
		Website:        row.Website,
		City:           row.City,
		Country:        row.Country,
		Address:        row.Address,
		ZipCode:        row.ZipCode,
		State:          row.State,
		GoogleMapsURL:  row.GoogleMapsURL,
		AnalysisStatus: domain.StatusNotStarted,
	}
}
