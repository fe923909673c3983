// Package pipeline runs bulk business-intelligence enrichment: leads are
// processed in sequential batches, members of a batch concurrently with a
// staggered start, and every lead ends in its own terminal status.
package pipeline

import (
	"context"
	"encoding/json"
	"fmt"
	"slices"
	"sync"
	"time"

	"cold_solutions_backend/internal/events"
	"cold_solutions_backend/internal/intelligence/analysis"
	"cold_solutions_backend/internal/intelligence/domain"
	"cold_solutions_backend/internal/intelligence/places"
	"cold_solutions_backend/internal/intelligence/repository"
	"cold_solutions_backend/internal/intelligence/website"
	"cold_solutions_backend/platform/logger"
	"cold_solutions_backend/platform/metrics"

	"golang.org/x/sync/errgroup"
)

const (
	defaultBatchSize = 5
	defaultLimit     = 100
	cancelPollEvery  = time.Second
)

// BusinessDataProvider gathers the external facts for one lead.
type BusinessDataProvider interface {
	LookupPlace(ctx context.Context, q places.Query) (*places.Place, error)
	ScrapeWebsite(ctx context.Context, url string) (*website.Result, error)
	FindCompetitors(ctx context.Context, industry, city, country, excludeName string) ([]domain.Competitor, error)
}

// Analyzer synthesizes compiled facts. It degrades instead of failing.
type Analyzer interface {
	Analyze(ctx context.Context, compiledFacts string) analysis.Result
}

// Archiver stores the raw payload of one lead and returns its object key.
type Archiver interface {
	Store(ctx context.Context, runID, leadID string, payload []byte) (string, error)
}

// ProgressStore publishes run status to pollers and carries the cancel flag.
type ProgressStore interface {
	Save(ctx context.Context, status domain.BulkProcessingStatus) error
	CancelRequested(ctx context.Context, runID string) (bool, error)
}

// Config holds the batching knobs. Zero durations disable the waits.
type Config struct {
	BatchSize    int
	Stagger      time.Duration
	BatchDelay   time.Duration
	LeadTimeout  time.Duration
	CostPerLead  float64
	DefaultLimit int
}

// Deps are the collaborators of a Pipeline. Archive and Progress are optional.
type Deps struct {
	Leads    repository.BulkLeadStore
	Provider BusinessDataProvider
	Analyzer Analyzer
	Archive  Archiver
	Progress ProgressStore
	Bus      events.Bus
	Metrics  *metrics.Metrics
	Log      *logger.Logger
}

// Request selects the leads of a run. Empty LeadIDs means any eligible lead.
type Request struct {
	LeadIDs []string `json:"leadIds,omitempty"`
	Limit   int      `json:"limit,omitempty"`
}

type Pipeline struct {
	cfg      Config
	leads    repository.BulkLeadStore
	provider BusinessDataProvider
	analyzer Analyzer
	archive  Archiver
	progress ProgressStore
	bus      events.Bus
	metrics  *metrics.Metrics
	log      *logger.Logger
	now      func() time.Time
}

func New(cfg Config, deps Deps) *Pipeline {
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = defaultBatchSize
	}
	if cfg.DefaultLimit <= 0 {
		cfg.DefaultLimit = defaultLimit
	}
	return &Pipeline{
		cfg:      cfg,
		leads:    deps.Leads,
		provider: deps.Provider,
		analyzer: deps.Analyzer,
		archive:  deps.Archive,
		progress: deps.Progress,
		bus:      deps.Bus,
		metrics:  deps.Metrics,
		log:      deps.Log,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// WithClock overrides the clock used for timestamps.
func (p *Pipeline) WithClock(now func() time.Time) *Pipeline {
	p.now = now
	return p
}

// EstimateCost is the rough AI and places spend for n leads.
func (p *Pipeline) EstimateCost(n int) float64 {
	if n <= 0 {
		return 0
	}
	return float64(n) * p.cfg.CostPerLead
}

// Limit resolves the effective fetch limit of a request.
func (p *Pipeline) Limit(req Request) int {
	if req.Limit > 0 {
		return req.Limit
	}
	return p.cfg.DefaultLimit
}

// BatchSize is the configured number of leads per batch.
func (p *Pipeline) BatchSize() int {
	return p.cfg.BatchSize
}

// MaxDuration is the worst-case wall time of a run of n leads at the
// configured pacing, assuming every lead hits its timeout.
func (p *Pipeline) MaxDuration(n int) time.Duration {
	batches := domain.TotalBatches(n, p.cfg.BatchSize)
	if batches == 0 {
		return 0
	}
	perBatch := time.Duration(p.cfg.BatchSize-1)*p.cfg.Stagger + p.cfg.LeadTimeout
	return time.Duration(batches)*perBatch + time.Duration(batches-1)*p.cfg.BatchDelay
}

// Run processes one bulk run to the end, a cancel request or a fetch failure.
// Only a failed fetch returns an error; per-lead failures are recorded in the status.
func (p *Pipeline) Run(ctx context.Context, runID string, req Request) (domain.BulkProcessingStatus, error) {
	ctx = context.WithValue(ctx, logger.RunIDKey, runID)
	log := p.log.WithContext(ctx)

	started := p.now()
	status := domain.BulkProcessingStatus{
		RunID:      runID,
		State:      domain.RunRunning,
		InProgress: true,
		Results:    []domain.LeadResult{},
		StartedAt:  &started,
		UpdatedAt:  started,
	}

	leads, err := p.leads.FetchUnanalyzed(ctx, req.LeadIDs, p.Limit(req))
	if err != nil {
		status.Error = err.Error()
		p.finish(ctx, &status, domain.RunFailed)
		return status, fmt.Errorf("fetch unanalyzed leads: %w", err)
	}

	status.Total = len(leads)
	status.TotalBatches = domain.TotalBatches(len(leads), p.cfg.BatchSize)
	status.EstimatedCost = p.EstimateCost(len(leads))
	p.save(ctx, &status)
	log.Info("bulk run started", "leads", status.Total, "batches", status.TotalBatches)

	var mu sync.Mutex
	batches := partition(leads, p.cfg.BatchSize)
	cancelled := false
	for i, batch := range batches {
		if p.cancelRequested(ctx, runID) {
			cancelled = true
			break
		}

		mu.Lock()
		status.CurrentBatch = i + 1
		p.save(ctx, &status)
		mu.Unlock()

		log.BulkBatch(runID, i+1, len(batches), len(batch), "started")
		interrupted := p.runBatch(ctx, runID, batch, &mu, &status)
		log.BulkBatch(runID, i+1, len(batches), len(batch), "finished")
		if interrupted {
			cancelled = true
			break
		}

		if i < len(batches)-1 && !p.pause(ctx, runID, p.cfg.BatchDelay) {
			cancelled = true
			break
		}
	}

	state := domain.RunCompleted
	if cancelled {
		state = domain.RunCancelled
	}
	p.finish(ctx, &status, state)
	return status, nil
}

// runBatch marks the batch In Progress and processes its members concurrently.
// It reports true when a cancel stopped the staggered launches early.
func (p *Pipeline) runBatch(ctx context.Context, runID string, batch []domain.BusinessIntelligenceLead, mu *sync.Mutex, status *domain.BulkProcessingStatus) bool {
	log := p.log.WithContext(ctx)
	if err := p.leads.UpdateStatus(ctx, leadIDs(batch), domain.StatusInProgress, ""); err != nil {
		log.Warn("mark batch in progress failed", "error", err)
	}

	var g errgroup.Group
	launched := 0
	for i, lead := range batch {
		if i > 0 && !p.pause(ctx, runID, p.cfg.Stagger) {
			break
		}
		launched++
		g.Go(func() error {
			result := p.processLead(ctx, runID, lead)

			mu.Lock()
			defer mu.Unlock()
			status.Record(result)
			p.save(ctx, status)
			return nil
		})
	}
	_ = g.Wait()

	if launched == len(batch) {
		return false
	}
	rest := leadIDs(batch[launched:])
	if err := p.leads.UpdateStatus(context.WithoutCancel(ctx), rest, domain.StatusNotStarted, ""); err != nil {
		log.Warn("release unlaunched leads failed", "error", err)
	}
	return true
}

func (p *Pipeline) processLead(ctx context.Context, runID string, lead domain.BusinessIntelligenceLead) (result domain.LeadResult) {
	start := time.Now()
	persistCtx := context.WithoutCancel(ctx)
	log := p.log.WithContext(ctx).With("leadId", lead.ID)

	fail := func(err error) domain.LeadResult {
		if uerr := p.leads.UpdateStatus(persistCtx, []string{lead.ID}, domain.StatusFailed, err.Error()); uerr != nil {
			log.Warn("mark lead failed", "error", uerr)
		}
		log.Warn("lead enrichment failed", "error", err)
		return p.result(lead, domain.StatusFailed, err.Error(), start)
	}

	defer func() {
		if rec := recover(); rec != nil {
			result = fail(fmt.Errorf("enrichment panic: %v", rec))
		}
	}()

	leadCtx := ctx
	if p.cfg.LeadTimeout > 0 {
		var cancel context.CancelFunc
		leadCtx, cancel = context.WithTimeout(ctx, p.cfg.LeadTimeout)
		defer cancel()
	}

	record, err := p.enrich(leadCtx, runID, lead)
	if err != nil {
		return fail(err)
	}
	if err := p.leads.SaveAnalysis(persistCtx, lead.ID, record); err != nil {
		return fail(fmt.Errorf("save analysis: %w", err))
	}

	final := domain.StatusComplete
	if record.Degraded {
		final = domain.StatusDegraded
	}
	if err := p.leads.UpdateStatus(persistCtx, []string{lead.ID}, final, ""); err != nil {
		return fail(fmt.Errorf("update status: %w", err))
	}
	return p.result(lead, final, "", start)
}

// enrich runs the stages of one lead. Source failures leave their section out;
// only an expired context aborts the lead.
func (p *Pipeline) enrich(ctx context.Context, runID string, lead domain.BusinessIntelligenceLead) (domain.BusinessAnalysis, error) {
	log := p.log.WithContext(ctx).With("leadId", lead.ID)
	facts := analysis.Facts{Lead: lead}

	place, err := p.provider.LookupPlace(ctx, places.Query{
		Name:    lead.BusinessName,
		City:    lead.City,
		State:   lead.State,
		Country: lead.Country,
		MapsURL: lead.GoogleMapsURL,
	})
	if err != nil {
		log.Warn("place lookup failed", "error", err)
	}
	facts.Place = place

	site := lead.Website
	if site == "" && place != nil {
		site = place.Website
	}
	if site != "" {
		page, err := p.provider.ScrapeWebsite(ctx, site)
		if err != nil {
			log.Warn("website scrape failed", "url", site, "error", err)
		}
		facts.Website = page
	}

	competitors, err := p.provider.FindCompetitors(ctx, lead.Industry, lead.City, lead.Country, lead.BusinessName)
	if err != nil {
		log.Warn("competitor search failed", "error", err)
	}
	facts.Competitors = competitors

	if err := ctx.Err(); err != nil {
		return domain.BusinessAnalysis{}, fmt.Errorf("gather business data: %w", err)
	}

	synth := p.analyzer.Analyze(ctx, analysis.CompileFacts(facts))
	if err := ctx.Err(); err != nil {
		return domain.BusinessAnalysis{}, fmt.Errorf("analyze: %w", err)
	}
	if synth.Degraded {
		log.Warn("ai analysis degraded", "reason", synth.Reason)
	}

	record := analysis.Build(facts, synth)
	record.CreatedAt = p.now()

	raw, err := json.Marshal(facts)
	if err != nil {
		log.Warn("encode raw payload failed", "error", err)
		return record, nil
	}
	record.RawPayload = raw
	if p.archive != nil {
		key, err := p.archive.Store(ctx, runID, lead.ID, raw)
		if err != nil {
			log.Warn("archive raw payload failed", "error", err)
		} else {
			record.RawArchiveKey = key
		}
	}
	return record, nil
}

func (p *Pipeline) result(lead domain.BusinessIntelligenceLead, status domain.AnalysisStatus, errMsg string, start time.Time) domain.LeadResult {
	elapsed := time.Since(start)
	outcome := "complete"
	switch status {
	case domain.StatusDegraded:
		outcome = "degraded"
	case domain.StatusFailed:
		outcome = "failed"
	}
	p.metrics.ObserveBulkLead(outcome, elapsed)
	return domain.LeadResult{
		LeadID:       lead.ID,
		BusinessName: lead.BusinessName,
		Status:       status,
		Error:        errMsg,
		DurationMs:   elapsed.Milliseconds(),
	}
}

// pause waits d while watching the context and the cancel flag.
// It returns false when the run should stop.
func (p *Pipeline) pause(ctx context.Context, runID string, d time.Duration) bool {
	if d <= 0 {
		return !p.cancelRequested(ctx, runID)
	}

	timer := time.NewTimer(d)
	defer timer.Stop()
	ticker := time.NewTicker(min(d, cancelPollEvery))
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return false
		case <-timer.C:
			return !p.cancelRequested(ctx, runID)
		case <-ticker.C:
			if p.cancelRequested(ctx, runID) {
				return false
			}
		}
	}
}

func (p *Pipeline) cancelRequested(ctx context.Context, runID string) bool {
	if ctx.Err() != nil {
		return true
	}
	if p.progress == nil {
		return false
	}
	requested, err := p.progress.CancelRequested(ctx, runID)
	if err != nil {
		p.log.WithContext(ctx).Warn("read cancel flag failed", "error", err)
		return false
	}
	return requested
}

// save must be called with the status lock held once batches are running.
func (p *Pipeline) save(ctx context.Context, status *domain.BulkProcessingStatus) {
	status.UpdatedAt = p.now()
	if p.progress == nil {
		return
	}
	snapshot := *status
	snapshot.Results = slices.Clone(status.Results)
	if err := p.progress.Save(context.WithoutCancel(ctx), snapshot); err != nil {
		p.log.WithContext(ctx).Warn("save bulk progress failed", "error", err)
	}
}

func (p *Pipeline) finish(ctx context.Context, status *domain.BulkProcessingStatus, state domain.RunState) {
	finished := p.now()
	status.State = state
	status.InProgress = false
	status.FinishedAt = &finished
	status.CancelRequested = state == domain.RunCancelled
	p.save(ctx, status)
	p.metrics.ObserveBulkRun(string(state))

	p.log.WithContext(ctx).Info("bulk run finished",
		"state", state,
		"processed", status.Processed,
		"successful", status.Successful,
		"degraded", status.Degraded,
		"failed", status.Failed,
	)

	if p.bus != nil {
		p.bus.Publish(context.WithoutCancel(ctx), events.BulkRunFinished{
			BaseEvent:  events.NewBaseEvent(),
			RunID:      status.RunID,
			Processed:  status.Processed,
			Successful: status.Successful,
			Degraded:   status.Degraded,
			Failed:     status.Failed,
			Cancelled:  state == domain.RunCancelled,
			Error:      status.Error,
		})
	}
}

func partition(leads []domain.BusinessIntelligenceLead, size int) [][]domain.BusinessIntelligenceLead {
	batches := make([][]domain.BusinessIntelligenceLead, 0, domain.TotalBatches(len(leads), size))
	for start := 0; start < len(leads); start += size {
		end := min(start+size, len(leads))
		batches = append(batches, leads[start:end])
	}
	return batches
}

func leadIDs(leads []domain.BusinessIntelligenceLead) []string {
	ids := make([]string, len(leads))
	for i, l := range leads {
		ids[i] = l.ID
	}
	return ids
}
