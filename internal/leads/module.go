// Package leads provides the lead management bounded context module.
package leads

import (
	"context"
	"fmt"

	"cold_solutions_backend/internal/events"
	apphttp "cold_solutions_backend/internal/http"
	"cold_solutions_backend/internal/leads/handler"
	"cold_solutions_backend/internal/leads/management"
	"cold_solutions_backend/internal/leads/repository"
	"cold_solutions_backend/internal/leads/transport"
	"cold_solutions_backend/platform/logger"
	"cold_solutions_backend/platform/metrics"
	"cold_solutions_backend/platform/validator"
)

// Module is the leads bounded context module implementing http.Module.
type Module struct {
	handler *handler.Handler
	service *management.Service
}

// NewModule creates the leads module. Rules, users and territories from seed
// are written to store before the service starts taking requests.
func NewModule(
	ctx context.Context,
	store repository.Store,
	seed repository.Seed,
	eventBus events.Bus,
	m *metrics.Metrics,
	val *validator.Validator,
	log *logger.Logger,
) (*Module, error) {
	if err := transport.RegisterValidations(val); err != nil {
		return nil, fmt.Errorf("register lead validations: %w", err)
	}
	if err := seed.Apply(ctx, store); err != nil {
		return nil, fmt.Errorf("apply lead seed: %w", err)
	}

	svc := management.New(management.Deps{
		Leads:      store,
		Activities: store,
		Rules:      store,
		Users:      store,
		Bus:        eventBus,
		Metrics:    m,
		Log:        log,
	})

	return &Module{handler: handler.New(svc, val), service: svc}, nil
}

// Name returns the module identifier.
func (m *Module) Name() string {
	return "leads"
}

// Service returns the service layer for external use.
func (m *Module) Service() *management.Service {
	return m.service
}

// RegisterRoutes mounts lead routes on the provided router context.
func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	m.handler.RegisterRoutes(ctx.V1.Group("/leads"))
}

// Compile-time check that Module implements http.Module
var _ apphttp.Module = (*Module)(nil)
