// Package openai adapts OpenAI-compatible chat completion APIs to ai.JSONGenerator.
package openai

import (
	"context"
	"fmt"
	"strings"
	"time"

	"cold_solutions_backend/platform/ai"
	"cold_solutions_backend/platform/logger"

	goopenai "github.com/sashabaranov/go-openai"
)

// Config for OpenAI. BaseURL may point at any OpenAI-compatible endpoint.
type Config struct {
	APIKey      string
	BaseURL     string
	Model       string
	Temperature float32
	MaxTokens   int
}

// Client wraps go-openai with JSON-object response format.
type Client struct {
	config Config
	client *goopenai.Client
	log    *logger.Logger
}

// New creates an OpenAI client. It fails when no API key is configured.
func New(cfg Config, log *logger.Logger) (*Client, error) {
	if cfg.APIKey == "" {
		return nil, ai.ErrNotConfigured
	}
	if cfg.Model == "" {
		cfg.Model = "gpt-4o-mini"
	}
	if cfg.Temperature == 0 {
		cfg.Temperature = 0.4
	}
	if cfg.MaxTokens == 0 {
		cfg.MaxTokens = 2000
	}

	clientCfg := goopenai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientCfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	}

	return &Client{
		config: cfg,
		client: goopenai.NewClientWithConfig(clientCfg),
		log:    log,
	}, nil
}

// Name returns the configured model.
func (c *Client) Name() string {
	return "openai/" + c.config.Model
}

// GenerateJSON sends one system+user exchange and returns the assistant's JSON text.
func (c *Client) GenerateJSON(ctx context.Context, system, prompt string) (string, error) {
	req := goopenai.ChatCompletionRequest{
		Model: c.config.Model,
		Messages: []goopenai.ChatCompletionMessage{
			{Role: goopenai.ChatMessageRoleSystem, Content: system},
			{Role: goopenai.ChatMessageRoleUser, Content: prompt},
		},
		Temperature: c.config.Temperature,
		MaxTokens:   c.config.MaxTokens,
		ResponseFormat: &goopenai.ChatCompletionResponseFormat{
			Type: goopenai.ChatCompletionResponseFormatTypeJSONObject,
		},
	}

	start := time.Now()
	resp, err := c.client.CreateChatCompletion(ctx, req)
	c.log.ExternalCall("openai", "chat_completion", time.Since(start), err)
	if err != nil {
		return "", fmt.Errorf("openai chat: %w", err)
	}
	if len(resp.Choices) == 0 || strings.TrimSpace(resp.Choices[0].Message.Content) == "" {
		return "", ai.ErrEmptyResponse
	}
	return ai.StripCodeFence(resp.Choices[0].Message.Content), nil
}

var _ ai.JSONGenerator = (*Client)(nil)
