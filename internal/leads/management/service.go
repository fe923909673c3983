// Package management orchestrates lead CRUD, scoring, duplicate review,
// merging and routing on top of the lead stores.
package management

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"cold_solutions_backend/internal/events"
	"cold_solutions_backend/internal/leads/dedup"
	"cold_solutions_backend/internal/leads/domain"
	"cold_solutions_backend/internal/leads/repository"
	"cold_solutions_backend/internal/leads/scoring"
	"cold_solutions_backend/internal/leads/transport"
	"cold_solutions_backend/platform/apperr"
	"cold_solutions_backend/platform/logger"
	"cold_solutions_backend/platform/metrics"
	"cold_solutions_backend/platform/phone"
	"cold_solutions_backend/platform/sanitize"

	"github.com/google/uuid"
)

const systemActor = "system"

// Service handles lead management operations.
// Writers are serialized by mu, so merge and routing see a consistent store.
type Service struct {
	leads      repository.LeadStore
	activities repository.ActivityStore
	rules      repository.RuleStore
	users      repository.UserStore
	bus        events.Bus
	metrics    *metrics.Metrics
	log        *logger.Logger
	now        func() time.Time
	newID      func() string
	region     string

	mu sync.Mutex
}

// Deps are the collaborators of Service. Metrics may be nil.
type Deps struct {
	Leads      repository.LeadStore
	Activities repository.ActivityStore
	Rules      repository.RuleStore
	Users      repository.UserStore
	Bus        events.Bus
	Metrics    *metrics.Metrics
	Log        *logger.Logger
}

// New creates a new lead management service.
func New(deps Deps) *Service {
	return &Service{
		leads:      deps.Leads,
		activities: deps.Activities,
		rules:      deps.Rules,
		users:      deps.Users,
		bus:        deps.Bus,
		metrics:    deps.Metrics,
		log:        deps.Log,
		now:        func() time.Time { return time.Now().UTC() },
		newID:      uuid.NewString,
		region:     phone.DefaultRegion,
	}
}

// WithClock overrides the clock, for tests.
func (s *Service) WithClock(now func() time.Time) *Service {
	s.now = now
	return s
}

// Create validates, scores, checks for duplicates, auto-routes and stores a new lead.
// Routing is decided before the save, so a lead is stored fully routed or not at all.
func (s *Service) Create(ctx context.Context, req transport.CreateLeadRequest) (transport.CreateLeadResponse, error) {
	if missing := missingRequired(req.Name, req.Email, req.Phone); len(missing) > 0 {
		return transport.CreateLeadResponse{}, apperr.Validation("name, email and phone are required").
			WithDetails(map[string]any{"missing": missing})
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	lead := domain.Lead{
		ID:                s.newID(),
		Name:              strings.TrimSpace(req.Name),
		Email:             strings.TrimSpace(req.Email),
		Phone:             phone.NormalizeE164(req.Phone, s.region),
		Company:           strings.TrimSpace(req.Company),
		Position:          strings.TrimSpace(req.Position),
		Source:            orDefault(req.Source, domain.SourceOther),
		Status:            orDefault(req.Status, domain.StatusNew),
		Priority:          orDefault(req.Priority, domain.PriorityMedium),
		AssignedTo:        req.AssignedTo,
		Territory:         req.Territory,
		Industry:          req.Industry,
		LeadSource:        req.LeadSource,
		OriginalSource:    req.OriginalSource,
		CampaignID:        req.CampaignID,
		LeadListID:        req.LeadListID,
		CreatedAt:         now,
		Notes:             sanitize.Text(req.Notes),
		Tags:              uniqueTags(req.Tags),
		EstimatedValue:    req.EstimatedValue,
		ExpectedCloseDate: req.ExpectedCloseDate,
		NextFollowUp:      req.NextFollowUp,
		CustomFields:      req.CustomFields,
	}
	lead.Lifecycle = domain.Lifecycle{Stage: lead.Status, StageChangedAt: now}

	rules, err := s.rules.ListScoringRules(ctx)
	if err != nil {
		return transport.CreateLeadResponse{}, fmt.Errorf("list scoring rules: %w", err)
	}
	lead.Score = scoring.Calculate(lead, rules)
	s.metrics.ObserveScore()

	existing, err := s.leads.List(ctx)
	if err != nil {
		return transport.CreateLeadResponse{}, fmt.Errorf("list leads: %w", err)
	}
	duplicates := dedup.Find(lead, existing)
	s.metrics.ObserveDuplicates(len(duplicates))

	plan, err := s.planRoute(ctx, &lead)
	if err != nil {
		return transport.CreateLeadResponse{}, err
	}

	// Once the lead is stored the request succeeds; activity log failures are only logged.
	if err := s.leads.Save(ctx, &lead); err != nil {
		return transport.CreateLeadResponse{}, fmt.Errorf("save lead: %w", err)
	}

	duplicateIDs := make([]string, 0, len(duplicates))
	for _, d := range duplicates {
		duplicateIDs = append(duplicateIDs, d.Lead.ID)
	}
	meta := map[string]any{"score": lead.Score}
	if len(duplicateIDs) > 0 {
		meta["potentialDuplicates"] = duplicateIDs
	}
	if err := s.appendActivity(ctx, lead.ID, domain.ActivityNote, "Lead created", meta); err != nil {
		s.log.WithContext(ctx).Warn("lead created without activity entry", "leadId", lead.ID, "error", err)
	}

	resp := transport.CreateLeadResponse{Lead: lead, Duplicates: duplicates}
	if plan != nil {
		resp.Routed = true
		resp.RuleName = plan.rule.Name
		if err := s.recordRoute(ctx, lead.ID, plan); err != nil {
			s.log.WithContext(ctx).Warn("lead routed without activity entry", "leadId", lead.ID, "error", err)
		}
	}

	s.bus.Publish(ctx, events.LeadCreated{
		BaseEvent:    events.NewBaseEvent(),
		LeadID:       lead.ID,
		Score:        lead.Score,
		DuplicateIDs: duplicateIDs,
	})
	s.log.WithContext(ctx).Info("lead created", "leadId", lead.ID, "score", lead.Score, "duplicates", len(duplicates))
	return resp, nil
}

// GetByID retrieves a lead by ID.
func (s *Service) GetByID(ctx context.Context, id string) (domain.Lead, error) {
	lead, err := s.leads.GetByID(ctx, id)
	if err != nil {
		return domain.Lead{}, mapNotFound(err, "lead not found")
	}
	return s.withStageAge(lead), nil
}

// List returns leads matching params, oldest first. Merged duplicates are hidden unless requested.
func (s *Service) List(ctx context.Context, params transport.ListLeadsParams) (transport.LeadListResponse, error) {
	all, err := s.leads.List(ctx)
	if err != nil {
		return transport.LeadListResponse{}, err
	}

	search := strings.ToLower(strings.TrimSpace(params.Search))
	items := make([]domain.Lead, 0, len(all))
	for _, l := range all {
		if l.IsDuplicate && !params.IncludeDuplicates {
			continue
		}
		if params.Status != "" && string(l.Status) != params.Status {
			continue
		}
		if params.AssignedTo != "" && l.AssignedTo != params.AssignedTo {
			continue
		}
		if search != "" && !matchesSearch(l, search) {
			continue
		}
		items = append(items, s.withStageAge(l))
	}
	return transport.LeadListResponse{Items: items, Total: len(items)}, nil
}

// Update applies a partial update, tracks status transitions and rescoring.
func (s *Service) Update(ctx context.Context, id string, req transport.UpdateLeadRequest) (domain.Lead, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	lead, err := s.leads.GetByID(ctx, id)
	if err != nil {
		return domain.Lead{}, mapNotFound(err, "lead not found")
	}

	if req.Name != nil {
		lead.Name = strings.TrimSpace(*req.Name)
	}
	if req.Email != nil {
		lead.Email = strings.TrimSpace(*req.Email)
	}
	if req.Phone != nil {
		lead.Phone = phone.NormalizeE164(*req.Phone, s.region)
	}
	if missing := missingRequired(lead.Name, lead.Email, lead.Phone); len(missing) > 0 {
		return domain.Lead{}, apperr.Validation("name, email and phone are required").
			WithDetails(map[string]any{"missing": missing})
	}
	if req.Company != nil {
		lead.Company = strings.TrimSpace(*req.Company)
	}
	if req.Position != nil {
		lead.Position = strings.TrimSpace(*req.Position)
	}
	if req.Source != nil {
		lead.Source = *req.Source
	}
	if req.Priority != nil {
		lead.Priority = *req.Priority
	}
	if req.Territory != nil {
		lead.Territory = *req.Territory
	}
	if req.Industry != nil {
		lead.Industry = *req.Industry
	}
	if req.Notes != nil {
		lead.Notes = sanitize.Text(*req.Notes)
	}
	if req.Tags != nil {
		lead.Tags = uniqueTags(req.Tags)
	}
	if req.EstimatedValue != nil {
		lead.EstimatedValue = req.EstimatedValue
	}
	if req.ExpectedCloseDate != nil {
		lead.ExpectedCloseDate = req.ExpectedCloseDate
	}
	if req.NextFollowUp != nil {
		lead.NextFollowUp = req.NextFollowUp
	}
	if req.CustomFields != nil {
		lead.CustomFields = req.CustomFields
	}

	var statusChange *statusTransition
	if req.Status != nil && *req.Status != lead.Status {
		statusChange = s.transition(&lead, *req.Status)
	}

	if err := s.rescoreAndSave(ctx, &lead); err != nil {
		return domain.Lead{}, err
	}
	if statusChange != nil {
		if err := s.logTransition(ctx, lead.ID, *statusChange); err != nil {
			return domain.Lead{}, err
		}
	}
	return s.withStageAge(lead), nil
}

// UpdateStatus moves a lead to a new lifecycle stage.
func (s *Service) UpdateStatus(ctx context.Context, id string, status domain.LeadStatus) (domain.Lead, error) {
	if !status.Valid() {
		return domain.Lead{}, apperr.Validation(fmt.Sprintf("unknown status %q", status))
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	lead, err := s.leads.GetByID(ctx, id)
	if err != nil {
		return domain.Lead{}, mapNotFound(err, "lead not found")
	}
	if lead.Status == status {
		return s.withStageAge(lead), nil
	}

	change := s.transition(&lead, status)
	if err := s.rescoreAndSave(ctx, &lead); err != nil {
		return domain.Lead{}, err
	}
	if err := s.logTransition(ctx, lead.ID, *change); err != nil {
		return domain.Lead{}, err
	}
	return s.withStageAge(lead), nil
}

// Assign gives the lead to a user. It returns false when either id is unknown.
func (s *Service) Assign(ctx context.Context, leadID, userID string) (bool, domain.Lead, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	lead, err := s.leads.GetByID(ctx, leadID)
	if errors.Is(err, repository.ErrNotFound) {
		return false, domain.Lead{}, nil
	}
	if err != nil {
		return false, domain.Lead{}, err
	}

	ok, err := s.assign(ctx, &lead, userID)
	if err != nil || !ok {
		return false, lead, err
	}
	if err := s.leads.Save(ctx, &lead); err != nil {
		return false, domain.Lead{}, fmt.Errorf("save lead: %w", err)
	}
	return true, lead, nil
}

// Delete removes a lead. Leads that other records were merged into cannot be deleted.
func (s *Service) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	all, err := s.leads.List(ctx)
	if err != nil {
		return err
	}
	for _, l := range all {
		if l.IsDuplicate && l.DuplicateOf == id {
			return apperr.Conflict("lead has merged duplicates pointing at it")
		}
	}
	if err := s.leads.Delete(ctx, id); err != nil {
		return mapNotFound(err, "lead not found")
	}
	s.log.WithContext(ctx).Info("lead deleted", "leadId", id)
	return nil
}

// PreviewScore scores a partial lead without storing anything.
func (s *Service) PreviewScore(ctx context.Context, req transport.ScorePreviewRequest) (scoring.Result, error) {
	rules, err := s.rules.ListScoringRules(ctx)
	if err != nil {
		return scoring.Result{}, fmt.Errorf("list scoring rules: %w", err)
	}
	lead := domain.Lead{
		Company:        req.Company,
		Position:       req.Position,
		Source:         req.Source,
		Status:         req.Status,
		Priority:       req.Priority,
		Territory:      req.Territory,
		Industry:       req.Industry,
		Tags:           req.Tags,
		EstimatedValue: req.EstimatedValue,
		CustomFields:   req.CustomFields,
	}
	return scoring.Explain(lead, rules), nil
}

// CalculateScore scores a lead against the stored rules.
func (s *Service) CalculateScore(ctx context.Context, lead domain.Lead) (int, error) {
	rules, err := s.rules.ListScoringRules(ctx)
	if err != nil {
		return 0, fmt.Errorf("list scoring rules: %w", err)
	}
	s.metrics.ObserveScore()
	return scoring.Calculate(lead, rules), nil
}

type statusTransition struct {
	from, to     domain.LeadStatus
	secondsSpent int64
}

// transition records the move on the lead's lifecycle; caller persists.
func (s *Service) transition(lead *domain.Lead, to domain.LeadStatus) *statusTransition {
	now := s.now()
	spent := int64(0)
	if !lead.Lifecycle.StageChangedAt.IsZero() {
		spent = int64(now.Sub(lead.Lifecycle.StageChangedAt).Seconds())
	}
	t := &statusTransition{from: lead.Status, to: to, secondsSpent: spent}
	lead.Status = to
	lead.Lifecycle = domain.Lifecycle{Stage: to, StageChangedAt: now}
	return t
}

func (s *Service) logTransition(ctx context.Context, leadID string, t statusTransition) error {
	return s.appendActivity(ctx, leadID, domain.ActivityStatusChange,
		fmt.Sprintf("Status changed from %s to %s", t.from, t.to),
		map[string]any{"from": string(t.from), "to": string(t.to), "secondsInPreviousStage": t.secondsSpent})
}

func (s *Service) rescoreAndSave(ctx context.Context, lead *domain.Lead) error {
	previous := lead.Score
	score, err := s.CalculateScore(ctx, *lead)
	if err != nil {
		return err
	}
	lead.Score = score
	if err := s.leads.Save(ctx, lead); err != nil {
		return fmt.Errorf("save lead: %w", err)
	}
	if score != previous {
		return s.appendActivity(ctx, lead.ID, domain.ActivityScoreChange,
			fmt.Sprintf("Score changed from %d to %d", previous, score),
			map[string]any{"from": previous, "to": score})
	}
	return nil
}

// assign sets AssignedTo and logs it; caller persists.
func (s *Service) assign(ctx context.Context, lead *domain.Lead, userID string) (bool, error) {
	user, err := s.users.GetUser(ctx, userID)
	if errors.Is(err, repository.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}

	previous := lead.AssignedTo
	lead.AssignedTo = user.ID
	if err := s.logAssignment(ctx, lead.ID, user, previous); err != nil {
		return false, err
	}
	return true, nil
}

func (s *Service) logAssignment(ctx context.Context, leadID string, user domain.User, previous string) error {
	meta := map[string]any{"userId": user.ID}
	if previous != "" {
		meta["previousUserId"] = previous
	}
	return s.appendActivity(ctx, leadID, domain.ActivityAssignment,
		fmt.Sprintf("Lead assigned to %s", user.Name), meta)
}

func (s *Service) appendActivity(ctx context.Context, leadID string, typ domain.ActivityType, description string, meta map[string]any) error {
	a := domain.LeadActivity{
		ID:          s.newID(),
		LeadID:      leadID,
		Type:        typ,
		Description: description,
		CreatedAt:   s.now(),
		CreatedBy:   actorFrom(ctx),
		Metadata:    meta,
	}
	if err := s.activities.Append(ctx, a); err != nil {
		return fmt.Errorf("append activity: %w", err)
	}
	return nil
}

func (s *Service) withStageAge(lead domain.Lead) domain.Lead {
	if !lead.Lifecycle.StageChangedAt.IsZero() {
		lead.Lifecycle.TimeInStageSeconds = int64(s.now().Sub(lead.Lifecycle.StageChangedAt).Seconds())
	}
	return lead
}

func actorFrom(ctx context.Context) string {
	if actor, ok := ctx.Value(logger.ActorKey).(string); ok && actor != "" {
		return actor
	}
	return systemActor
}

func mapNotFound(err error, message string) error {
	if errors.Is(err, repository.ErrNotFound) {
		return apperr.NotFound(message)
	}
	return err
}

func missingRequired(name, email, phoneNumber string) []string {
	missing := make([]string, 0, 3)
	if strings.TrimSpace(name) == "" {
		missing = append(missing, "name")
	}
	if strings.TrimSpace(email) == "" {
		missing = append(missing, "email")
	}
	if strings.TrimSpace(phoneNumber) == "" {
		missing = append(missing, "phone")
	}
	return missing
}

func orDefault[T ~string](v, fallback T) T {
	if v == "" {
		return fallback
	}
	return v
}

func uniqueTags(tags []string) []string {
	out := make([]string, 0, len(tags))
	seen := make(map[string]bool, len(tags))
	for _, t := range tags {
		t = strings.TrimSpace(t)
		if t == "" || seen[t] {
			continue
		}
		seen[t] = true
		out = append(out, t)
	}
	return out
}

func matchesSearch(l domain.Lead, q string) bool {
	for _, f := range []string{l.Name, l.Email, l.Company, l.Phone} {
		if strings.Contains(strings.ToLower(f), q) {
			return true
		}
	}
	return false
}
