// Package intelligence provides the business-intelligence enrichment module.
package intelligence

import (
	"context"
	"errors"
	"fmt"

	"cold_solutions_backend/internal/events"
	apphttp "cold_solutions_backend/internal/http"
	"cold_solutions_backend/internal/intelligence/analysis"
	"cold_solutions_backend/internal/intelligence/archive"
	"cold_solutions_backend/internal/intelligence/handler"
	"cold_solutions_backend/internal/intelligence/pipeline"
	"cold_solutions_backend/internal/intelligence/places"
	"cold_solutions_backend/internal/intelligence/progress"
	"cold_solutions_backend/internal/intelligence/provider"
	"cold_solutions_backend/internal/intelligence/repository"
	"cold_solutions_backend/internal/intelligence/service"
	"cold_solutions_backend/internal/intelligence/transport"
	"cold_solutions_backend/internal/intelligence/website"
	"cold_solutions_backend/internal/scheduler"
	"cold_solutions_backend/platform/ai"
	"cold_solutions_backend/platform/ai/gemini"
	"cold_solutions_backend/platform/ai/openai"
	"cold_solutions_backend/platform/config"
	"cold_solutions_backend/platform/logger"
	"cold_solutions_backend/platform/metrics"
	"cold_solutions_backend/platform/validator"
)

// Config is the slice of application config the module reads.
type Config interface {
	config.AIConfig
	config.PlacesConfig
	config.BulkPipelineConfig
}

// Deps are the shared resources the module is built from. Enqueuer and
// Archive are nil when Redis or MinIO are not configured.
type Deps struct {
	Store    repository.Store
	Progress progress.Store
	Enqueuer scheduler.BulkRunEnqueuer
	Archive  *archive.Archive
	Bus      events.Bus
	Metrics  *metrics.Metrics
	Val      *validator.Validator
	Log      *logger.Logger
}

// Module is the intelligence bounded context module implementing http.Module.
type Module struct {
	handler *handler.Handler
	service *service.Service
}

func NewModule(ctx context.Context, cfg Config, deps Deps) (*Module, error) {
	if err := transport.RegisterValidations(deps.Val); err != nil {
		return nil, fmt.Errorf("register intelligence validations: %w", err)
	}

	gen, err := newGenerator(ctx, cfg, deps.Log)
	if err != nil {
		return nil, err
	}

	placesClient := places.New(places.Config{
		APIKey:            cfg.GetGooglePlacesAPIKey(),
		BaseURL:           cfg.GetGooglePlacesBaseURL(),
		RequestsPerSecond: cfg.GetPlacesRequestsPerSecond(),
	}, deps.Log)
	if cfg.GetGooglePlacesAPIKey() == "" {
		deps.Log.Warn("google places not configured, analyses will lack listing data")
	}

	pdeps := pipeline.Deps{
		Leads:    deps.Store,
		Provider: provider.New(placesClient, website.New(deps.Log), deps.Log),
		Analyzer: analysis.New(gen, deps.Log),
		Progress: deps.Progress,
		Bus:      deps.Bus,
		Metrics:  deps.Metrics,
		Log:      deps.Log,
	}
	sdeps := service.Deps{
		Store:    deps.Store,
		Progress: deps.Progress,
		Enqueuer: deps.Enqueuer,
		Val:      deps.Val,
		Log:      deps.Log,
	}
	if deps.Archive != nil {
		pdeps.Archive = deps.Archive
		sdeps.Archive = deps.Archive
	}

	sdeps.Pipeline = pipeline.New(pipeline.Config{
		BatchSize:    cfg.GetBulkBatchSize(),
		Stagger:      cfg.GetBulkStagger(),
		BatchDelay:   cfg.GetBulkBatchDelay(),
		LeadTimeout:  cfg.GetBulkLeadTimeout(),
		CostPerLead:  cfg.GetBulkCostPerLead(),
		DefaultLimit: cfg.GetBulkDefaultLimit(),
	}, pdeps)

	svc := service.New(sdeps)
	return &Module{handler: handler.New(svc, deps.Val), service: svc}, nil
}

// newGenerator picks the AI provider. A missing API key is not fatal: every
// analysis is then stored as Degraded.
func newGenerator(ctx context.Context, cfg config.AIConfig, log *logger.Logger) (ai.JSONGenerator, error) {
	var (
		gen ai.JSONGenerator
		err error
	)
	switch cfg.GetAIProvider() {
	case "openai":
		gen, err = openai.New(openai.Config{
			APIKey:  cfg.GetOpenAIAPIKey(),
			Model:   cfg.GetOpenAIModel(),
			BaseURL: cfg.GetOpenAIBaseURL(),
		}, log)
	default:
		gen, err = gemini.New(ctx, gemini.Config{
			APIKey: cfg.GetGeminiAPIKey(),
			Model:  cfg.GetGeminiModel(),
		}, log)
	}
	if errors.Is(err, ai.ErrNotConfigured) {
		log.Warn("ai provider not configured, analyses will be degraded", "provider", cfg.GetAIProvider())
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("create ai provider: %w", err)
	}
	log.Info("ai provider ready", "provider", gen.Name())
	return gen, nil
}

func (m *Module) Name() string {
	return "intelligence"
}

// Service returns the service layer; the worker uses it as its bulk run handler.
func (m *Module) Service() *service.Service {
	return m.service
}

func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	m.handler.RegisterRoutes(ctx.V1.Group("/intelligence"))
}

var _ apphttp.Module = (*Module)(nil)
