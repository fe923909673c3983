// Package ai defines the provider-neutral contract for structured LLM calls.
// This is part of the platform layer and contains no business logic.
package ai

import (
	"context"
	"errors"
	"strings"
)

// ErrEmptyResponse is returned when the provider answered without any content.
var ErrEmptyResponse = errors.New("ai: empty response")

// ErrNotConfigured is returned when no API key was provided.
var ErrNotConfigured = errors.New("ai: provider not configured")

// JSONGenerator produces a single JSON document for a system instruction and a user prompt.
type JSONGenerator interface {
	GenerateJSON(ctx context.Context, system, prompt string) (string, error)
	Name() string
}

// StripCodeFence removes a surrounding markdown code fence (```json ... ```), if any.
func StripCodeFence(s string) string {
	trimmed := strings.TrimSpace(s)
	if !strings.HasPrefix(trimmed, "```") {
		return trimmed
	}
	trimmed = strings.TrimPrefix(trimmed, "```")
	if nl := strings.IndexByte(trimmed, '\n'); nl >= 0 {
		trimmed = trimmed[nl+1:]
	}
	trimmed = strings.TrimSuffix(strings.TrimSpace(trimmed), "```")
	return strings.TrimSpace(trimmed)
}
