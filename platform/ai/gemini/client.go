// Package gemini adapts Google's Gemini API to ai.JSONGenerator.
package gemini

import (
	"context"
	"fmt"
	"time"

	"cold_solutions_backend/platform/ai"
	"cold_solutions_backend/platform/logger"

	"google.golang.org/genai"
)

// Config for Gemini.
type Config struct {
	APIKey      string
	Model       string
	Temperature float32
}

// Client calls GenerateContent with a JSON response MIME type.
type Client struct {
	config Config
	client *genai.Client
	log    *logger.Logger
}

// New creates a Gemini client. It fails when no API key is configured.
func New(ctx context.Context, cfg Config, log *logger.Logger) (*Client, error) {
	if cfg.APIKey == "" {
		return nil, ai.ErrNotConfigured
	}
	if cfg.Model == "" {
		cfg.Model = "gemini-2.5-flash"
	}
	if cfg.Temperature == 0 {
		cfg.Temperature = 0.4
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  cfg.APIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("create gemini client: %w", err)
	}

	return &Client{config: cfg, client: client, log: log}, nil
}

// Name returns the configured model.
func (c *Client) Name() string {
	return "gemini/" + c.config.Model
}

// GenerateJSON sends one prompt and returns the model's JSON text.
func (c *Client) GenerateJSON(ctx context.Context, system, prompt string) (string, error) {
	start := time.Now()
	resp, err := c.client.Models.GenerateContent(ctx, c.config.Model, genai.Text(prompt), &genai.GenerateContentConfig{
		SystemInstruction: genai.NewContentFromText(system, genai.RoleUser),
		ResponseMIMEType:  "application/json",
		Temperature:       genai.Ptr(c.config.Temperature),
	})
	c.log.ExternalCall("gemini", "generate_content", time.Since(start), err)
	if err != nil {
		return "", fmt.Errorf("gemini generate: %w", err)
	}

	text := resp.Text()
	if text == "" {
		return "", ai.ErrEmptyResponse
	}
	return ai.StripCodeFence(text), nil
}

var _ ai.JSONGenerator = (*Client)(nil)
