// Package logger provides structured logging infrastructure for the application.
// This is part of the platform layer and contains no business logic.
package logger

import (
	"context"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"
)

type contextKey string

const (
	// RequestIDKey is the context key for request ID
	RequestIDKey contextKey = "request_id"
	// ActorKey is the context key for the acting user
	ActorKey contextKey = "actor"
	// RunIDKey is the context key for a bulk run ID
	RunIDKey contextKey = "run_id"
)

// Logger wraps slog.Logger for structured logging
type Logger struct {
	*slog.Logger
}

// New creates a new logger based on environment
func New(env string) *Logger {
	return NewWithWriter(env, os.Stdout)
}

// NewWithWriter creates a logger writing to w. Tests pass io.Discard.
func NewWithWriter(env string, w io.Writer) *Logger {
	var handler slog.Handler

	opts := &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}

	if strings.EqualFold(env, "development") || strings.EqualFold(env, "test") {
		opts.Level = slog.LevelDebug
		handler = slog.NewTextHandler(w, opts)
	} else {
		handler = slog.NewJSONHandler(w, opts)
	}

	return &Logger{
		Logger: slog.New(handler),
	}
}

// Discard returns a logger that drops everything.
func Discard() *Logger {
	return NewWithWriter("test", io.Discard)
}

// WithContext returns a logger with request_id, actor and run_id extracted from ctx.
func (l *Logger) WithContext(ctx context.Context) *Logger {
	if ctx == nil {
		return l
	}

	newLogger := l

	if requestID, ok := ctx.Value(RequestIDKey).(string); ok && requestID != "" {
		newLogger = newLogger.WithRequestID(requestID)
	}

	if actor, ok := ctx.Value(ActorKey).(string); ok && actor != "" {
		newLogger = &Logger{Logger: newLogger.With(slog.String("actor", actor))}
	}

	if runID, ok := ctx.Value(RunIDKey).(string); ok && runID != "" {
		newLogger = &Logger{Logger: newLogger.With(slog.String("run_id", runID))}
	}

	return newLogger
}

// WithRequestID returns a logger with request ID
func (l *Logger) WithRequestID(requestID string) *Logger {
	return &Logger{
		Logger: l.With(slog.String("request_id", requestID)),
	}
}

// HTTPRequest logs an HTTP request
func (l *Logger) HTTPRequest(method, path string, status int, latencyMs float64, clientIP string) {
	l.Info("http_request",
		slog.String("method", method),
		slog.String("path", path),
		slog.Int("status", status),
		slog.Float64("latency_ms", latencyMs),
		slog.String("client_ip", clientIP),
	)
}

// DatabaseError logs database errors
func (l *Logger) DatabaseError(operation string, err error) {
	l.Error("database_error",
		slog.String("operation", operation),
		slog.String("error", err.Error()),
	)
}

// RateLimitExceeded logs rate limit events
func (l *Logger) RateLimitExceeded(clientIP, path string) {
	l.Warn("rate_limit_exceeded",
		slog.String("client_ip", clientIP),
		slog.String("path", path),
	)
}

// ExternalCall logs the outcome of a call to a third-party API.
func (l *Logger) ExternalCall(provider, operation string, latency time.Duration, err error) {
	if err != nil {
		l.Warn("external_call",
			slog.String("provider", provider),
			slog.String("operation", operation),
			slog.Int64("latency_ms", latency.Milliseconds()),
			slog.String("error", err.Error()),
		)
		return
	}
	l.Debug("external_call",
		slog.String("provider", provider),
		slog.String("operation", operation),
		slog.Int64("latency_ms", latency.Milliseconds()),
	)
}

// BulkBatch logs progress of one bulk pipeline batch.
func (l *Logger) BulkBatch(runID string, batch, totalBatches, size int, phase string) {
	l.Info("bulk_batch",
		slog.String("run_id", runID),
		slog.Int("batch", batch),
		slog.Int("total_batches", totalBatches),
		slog.Int("size", size),
		slog.String("phase", phase),
	)
}
