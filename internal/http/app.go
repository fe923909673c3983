// Package http provides HTTP server infrastructure including module registration.
package http

import (
	"context"

	"cold_solutions_backend/internal/events"
	"cold_solutions_backend/platform/config"
	"cold_solutions_backend/platform/logger"
	"cold_solutions_backend/platform/metrics"
)

// RouterConfig is the config the HTTP router reads.
type RouterConfig interface {
	config.HTTPConfig
}

// HealthChecker exposes minimal functionality for readiness checks.
type HealthChecker interface {
	Ping(ctx context.Context) error
}

// App holds the fully initialized application dependencies.
// This is populated by main.go (the composition root) and passed to the router.
type App struct {
	// Config holds the router configuration.
	Config RouterConfig
	// Logger is the structured logger.
	Logger *logger.Logger
	// Health is used for readiness checks. Nil means the process has no
	// external store to ping.
	Health HealthChecker
	// EventBus is the domain event bus for cross-module communication.
	EventBus events.Bus
	// Metrics backs the /metrics endpoint and request instrumentation.
	Metrics *metrics.Metrics
	// Modules contains all HTTP-facing domain modules.
	Modules []Module
}
