package pipeline

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"cold_solutions_backend/internal/events"
	"cold_solutions_backend/internal/intelligence/analysis"
	"cold_solutions_backend/internal/intelligence/domain"
	"cold_solutions_backend/internal/intelligence/places"
	"cold_solutions_backend/internal/intelligence/repository"
	"cold_solutions_backend/internal/intelligence/website"
	"cold_solutions_backend/platform/logger"
)

type fakeProvider struct {
	panicFor string
}

func (f *fakeProvider) LookupPlace(_ context.Context, q places.Query) (*places.Place, error) {
	if q.Name == f.panicFor {
		panic("places client exploded")
	}
	if strings.HasPrefix(q.Name, "Unknown") {
		return nil, errors.New("lookup failed")
	}
	return &places.Place{PlaceID: "ChIJ" + q.Name, Name: q.Name, Rating: 4.2, ReviewCount: 10}, nil
}

func (f *fakeProvider) ScrapeWebsite(_ context.Context, url string) (*website.Result, error) {
	return &website.Result{URL: url, Title: "Home"}, nil
}

func (f *fakeProvider) FindCompetitors(_ context.Context, _, _, _, _ string) ([]domain.Competitor, error) {
	return []domain.Competitor{{Name: "Rival", Rating: 4}}, nil
}

type fakeAnalyzer struct{}

func (fakeAnalyzer) Analyze(_ context.Context, facts string) analysis.Result {
	if strings.Contains(facts, "Degraded Co") {
		return analysis.Result{Output: analysis.Fallback(), Degraded: true, Reason: "provider down"}
	}
	return analysis.Result{Output: domain.AIAnalysisOutput{Summary: "ok", OutreachAngle: "call"}}
}

// recordingStore remembers the size of every In Progress batch.
type recordingStore struct {
	*repository.Memory
	mu       sync.Mutex
	batches  []int
	failSave string
}

func (s *recordingStore) UpdateStatus(ctx context.Context, ids []string, status domain.AnalysisStatus, errMsg string) error {
	if status == domain.StatusInProgress {
		s.mu.Lock()
		s.batches = append(s.batches, len(ids))
		s.mu.Unlock()
	}
	return s.Memory.UpdateStatus(ctx, ids, status, errMsg)
}

func (s *recordingStore) SaveAnalysis(ctx context.Context, leadID string, a domain.BusinessAnalysis) error {
	if leadID == s.failSave {
		return errors.New("disk full")
	}
	return s.Memory.SaveAnalysis(ctx, leadID, a)
}

// cancellingProgress raises the cancel flag once enough leads were processed.
type cancellingProgress struct {
	mu          sync.Mutex
	cancelAfter int
	last        domain.BulkProcessingStatus
	saves       int
}

func (p *cancellingProgress) Save(_ context.Context, status domain.BulkProcessingStatus) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.last = status
	p.saves++
	return nil
}

func (p *cancellingProgress) CancelRequested(_ context.Context, _ string) (bool, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.cancelAfter > 0 && p.last.Processed >= p.cancelAfter, nil
}

type fakeArchive struct {
	mu   sync.Mutex
	keys []string
}

func (a *fakeArchive) Store(_ context.Context, runID, leadID string, payload []byte) (string, error) {
	if len(payload) == 0 {
		return "", errors.New("empty payload")
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	key := "runs/" + runID + "/" + leadID + ".json"
	a.keys = append(a.keys, key)
	return key, nil
}

func seedLeads(t *testing.T, store *repository.Memory, names ...string) {
	t.Helper()
	base := time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC)
	leads := make([]domain.BusinessIntelligenceLead, len(names))
	for i, name := range names {
		leads[i] = domain.BusinessIntelligenceLead{
			ID:           fmt.Sprintf("lead-%02d", i+1),
			BusinessName: name,
			Industry:     "Dentist",
			Website:      "https://example.test/" + fmt.Sprint(i),
			City:         "Austin",
			Country:      "US",
			CreatedAt:    base.Add(time.Duration(i) * time.Minute),
		}
	}
	if err := store.Import(context.Background(), leads); err != nil {
		t.Fatalf("seed: %v", err)
	}
}

func numbered(n int) []string {
	names := make([]string, n)
	for i := range names {
		names[i] = fmt.Sprintf("Business %d", i+1)
	}
	return names
}

func newTestPipeline(store repository.BulkLeadStore, provider BusinessDataProvider, progress ProgressStore, archive Archiver) (*Pipeline, *events.InMemoryBus) {
	bus := events.NewInMemoryBus(logger.Discard())
	p := New(Config{BatchSize: 5, CostPerLead: 0.07}, Deps{
		Leads:    store,
		Provider: provider,
		Analyzer: fakeAnalyzer{},
		Archive:  archive,
		Progress: progress,
		Bus:      bus,
		Log:      logger.Discard(),
	})
	return p, bus
}

func TestRunSplitsTwelveLeadsIntoThreeBatches(t *testing.T) {
	mem := repository.NewMemory()
	seedLeads(t, mem, numbered(12)...)
	store := &recordingStore{Memory: mem}
	archive := &fakeArchive{}
	progress := &cancellingProgress{}
	p, bus := newTestPipeline(store, &fakeProvider{}, progress, archive)

	var finished events.BulkRunFinished
	bus.Subscribe(events.BulkRunFinished{}.EventName(), events.HandlerFunc(func(_ context.Context, e events.Event) error {
		finished = e.(events.BulkRunFinished)
		return nil
	}))

	status, err := p.Run(context.Background(), "run-1", Request{})
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	bus.Wait()

	if status.TotalBatches != 3 || status.CurrentBatch != 3 {
		t.Fatalf("expected 3 batches, got total=%d current=%d", status.TotalBatches, status.CurrentBatch)
	}
	if len(store.batches) != 3 || store.batches[0] != 5 || store.batches[1] != 5 || store.batches[2] != 2 {
		t.Fatalf("expected batch sizes [5 5 2], got %v", store.batches)
	}
	if status.State != domain.RunCompleted || status.InProgress {
		t.Fatalf("expected completed run, got %s in progress=%v", status.State, status.InProgress)
	}
	if status.Processed != 12 || status.Successful != 12 || len(status.Results) != 12 {
		t.Fatalf("unexpected counters %+v", status)
	}
	if status.EstimatedCost < 0.839 || status.EstimatedCost > 0.841 {
		t.Fatalf("expected estimated cost 0.84, got %v", status.EstimatedCost)
	}
	if len(archive.keys) != 12 {
		t.Fatalf("expected 12 archived payloads, got %d", len(archive.keys))
	}
	if progress.last.State != domain.RunCompleted || progress.last.FinishedAt == nil {
		t.Fatalf("expected final progress to be saved, got %+v", progress.last)
	}
	if finished.RunID != "run-1" || finished.Successful != 12 || finished.Cancelled {
		t.Fatalf("unexpected finished event %+v", finished)
	}

	stored, err := mem.GetAnalysis(context.Background(), "lead-01")
	if err != nil {
		t.Fatalf("expected stored analysis, got %v", err)
	}
	if stored.RawArchiveKey != "runs/run-1/lead-01.json" || len(stored.RawPayload) == 0 {
		t.Fatalf("expected raw payload and archive key, got %q", stored.RawArchiveKey)
	}
	if stored.ReviewSentiment.Rating != 4.2 || len(stored.CompetitorInsights.Competitors) != 1 {
		t.Fatalf("expected place and competitor data on analysis, got %+v", stored)
	}
}

func TestRunIsolatesLeadFailures(t *testing.T) {
	mem := repository.NewMemory()
	seedLeads(t, mem, "Alpha", "Bravo", "Charlie", "Delta", "Echo")
	store := &recordingStore{Memory: mem}
	p, _ := newTestPipeline(store, &fakeProvider{panicFor: "Charlie"}, nil, nil)

	status, err := p.Run(context.Background(), "run-2", Request{})
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if status.Failed != 1 || status.Successful != 4 || status.Processed != 5 {
		t.Fatalf("expected 4 successful and 1 failed, got %+v", status)
	}

	failed, _ := mem.GetByID(context.Background(), "lead-03")
	if failed.AnalysisStatus != domain.StatusFailed || !strings.Contains(failed.ErrorMessage, "panic") {
		t.Fatalf("expected lead-03 failed with message, got %s %q", failed.AnalysisStatus, failed.ErrorMessage)
	}
	for _, id := range []string{"lead-01", "lead-02", "lead-04", "lead-05"} {
		l, _ := mem.GetByID(context.Background(), id)
		if l.AnalysisStatus != domain.StatusComplete {
			t.Fatalf("expected %s complete, got %s", id, l.AnalysisStatus)
		}
	}

	// Failed leads are picked up again by the next run.
	retry, _ := newTestPipeline(store, &fakeProvider{}, nil, nil)
	status, _ = retry.Run(context.Background(), "run-3", Request{})
	if status.Total != 1 || status.Successful != 1 {
		t.Fatalf("expected only the failed lead to be retried, got %+v", status)
	}
	l, _ := mem.GetByID(context.Background(), "lead-03")
	if l.AnalysisStatus != domain.StatusComplete || l.ErrorMessage != "" {
		t.Fatalf("expected retried lead complete without error, got %s %q", l.AnalysisStatus, l.ErrorMessage)
	}
}

func TestRunMarksPersistenceFailureAsFailed(t *testing.T) {
	mem := repository.NewMemory()
	seedLeads(t, mem, "Alpha", "Bravo")
	store := &recordingStore{Memory: mem, failSave: "lead-02"}
	p, _ := newTestPipeline(store, &fakeProvider{}, nil, nil)

	status, _ := p.Run(context.Background(), "run-4", Request{})
	if status.Failed != 1 || status.Successful != 1 {
		t.Fatalf("unexpected counters %+v", status)
	}
	l, _ := mem.GetByID(context.Background(), "lead-02")
	if !strings.Contains(l.ErrorMessage, "disk full") {
		t.Fatalf("expected error message to be kept, got %q", l.ErrorMessage)
	}
}

func TestRunCountsDegradedSeparately(t *testing.T) {
	mem := repository.NewMemory()
	seedLeads(t, mem, "Alpha", "Degraded Co", "Unknown Shop")
	p, _ := newTestPipeline(mem, &fakeProvider{}, nil, nil)

	status, _ := p.Run(context.Background(), "run-5", Request{})
	if status.Degraded != 1 || status.Successful != 2 || status.Failed != 0 {
		t.Fatalf("expected 2 complete and 1 degraded, got %+v", status)
	}

	l, _ := mem.GetByID(context.Background(), "lead-02")
	if l.AnalysisStatus != domain.StatusDegraded {
		t.Fatalf("expected degraded status, got %s", l.AnalysisStatus)
	}
	stored, _ := mem.GetAnalysis(context.Background(), "lead-02")
	if !stored.Degraded || stored.DegradedReason != "provider down" || len(stored.PainPoints) == 0 {
		t.Fatalf("expected fallback analysis to be stored, got %+v", stored)
	}

	// A failed places lookup leaves the section out without failing the lead.
	unknown, _ := mem.GetAnalysis(context.Background(), "lead-03")
	if unknown.ReviewSentiment.Rating != 0 {
		t.Fatalf("expected no rating without a place, got %v", unknown.ReviewSentiment.Rating)
	}
}

func TestRunStopsBetweenBatchesWhenCancelled(t *testing.T) {
	mem := repository.NewMemory()
	seedLeads(t, mem, numbered(12)...)
	progress := &cancellingProgress{cancelAfter: 5}
	p, _ := newTestPipeline(mem, &fakeProvider{}, progress, nil)

	status, err := p.Run(context.Background(), "run-6", Request{})
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if status.State != domain.RunCancelled || !status.CancelRequested {
		t.Fatalf("expected cancelled run, got %s", status.State)
	}
	if status.Processed != 5 || status.CurrentBatch != 1 {
		t.Fatalf("expected only the first batch processed, got processed=%d batch=%d", status.Processed, status.CurrentBatch)
	}

	remaining, _ := mem.FetchUnanalyzed(context.Background(), nil, 0)
	if len(remaining) != 7 {
		t.Fatalf("expected 7 leads left for a later run, got %d", len(remaining))
	}
}

func TestRunReleasesUnlaunchedLeadsOnContextCancel(t *testing.T) {
	mem := repository.NewMemory()
	seedLeads(t, mem, "Alpha", "Bravo", "Charlie")
	p, _ := newTestPipeline(mem, &fakeProvider{}, nil, nil)
	p.cfg.Stagger = time.Hour

	ctx, cancel := context.WithCancel(context.Background())
	time.AfterFunc(50*time.Millisecond, cancel)

	status, _ := p.Run(ctx, "run-7", Request{})
	if status.State != domain.RunCancelled {
		t.Fatalf("expected cancelled run, got %s", status.State)
	}
	for _, id := range []string{"lead-02", "lead-03"} {
		l, _ := mem.GetByID(context.Background(), id)
		if l.AnalysisStatus != domain.StatusNotStarted {
			t.Fatalf("expected %s released to Not Started, got %s", id, l.AnalysisStatus)
		}
	}
}

func TestRunFiltersRequestedLeadsAndLimit(t *testing.T) {
	mem := repository.NewMemory()
	seedLeads(t, mem, numbered(4)...)
	p, _ := newTestPipeline(mem, &fakeProvider{}, nil, nil)

	status, _ := p.Run(context.Background(), "run-8", Request{LeadIDs: []string{"lead-02", "lead-04"}, Limit: 1})
	if status.Total != 1 || status.Results[0].LeadID != "lead-02" {
		t.Fatalf("expected only lead-02, got %+v", status.Results)
	}
}

type failingFetchStore struct{ *repository.Memory }

func (failingFetchStore) FetchUnanalyzed(context.Context, []string, int) ([]domain.BusinessIntelligenceLead, error) {
	return nil, errors.New("connection refused")
}

func TestRunReportsFetchFailure(t *testing.T) {
	progress := &cancellingProgress{}
	p, _ := newTestPipeline(failingFetchStore{repository.NewMemory()}, &fakeProvider{}, progress, nil)

	status, err := p.Run(context.Background(), "run-9", Request{})
	if err == nil {
		t.Fatalf("expected fetch error")
	}
	if status.State != domain.RunFailed || status.InProgress || status.Error == "" {
		t.Fatalf("expected failed, not in progress, with error; got %+v", status)
	}
	if progress.last.State != domain.RunFailed {
		t.Fatalf("expected failed state to be saved, got %s", progress.last.State)
	}
}

func TestEstimateCostAndPartition(t *testing.T) {
	p := New(Config{CostPerLead: 0.07}, Deps{Log: logger.Discard()})
	if got := p.EstimateCost(100); got < 6.99 || got > 7.01 {
		t.Fatalf("expected 7.00, got %v", got)
	}
	if p.EstimateCost(-1) != 0 {
		t.Fatalf("expected zero cost for negative count")
	}
	if p.BatchSize() != 5 || p.Limit(Request{}) != 100 {
		t.Fatalf("expected defaults 5/100, got %d/%d", p.BatchSize(), p.Limit(Request{}))
	}
	paced := New(Config{BatchSize: 5, Stagger: 5 * time.Second, BatchDelay: 90 * time.Second, LeadTimeout: time.Minute}, Deps{Log: logger.Discard()})
	if got := paced.MaxDuration(12); got != 3*(20*time.Second+time.Minute)+2*90*time.Second {
		t.Fatalf("unexpected max duration %s", got)
	}
	if got := partition(make([]domain.BusinessIntelligenceLead, 7), 5); len(got) != 2 || len(got[1]) != 2 {
		t.Fatalf("unexpected partition %v", got)
	}
}
