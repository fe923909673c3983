package openai

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"cold_solutions_backend/platform/ai"
	"cold_solutions_backend/platform/logger"
)

func TestNewRequiresAPIKey(t *testing.T) {
	if _, err := New(Config{}, logger.Discard()); err != ai.ErrNotConfigured {
		t.Fatalf("expected ErrNotConfigured, got %v", err)
	}
}

func TestGenerateJSONReturnsAssistantContent(t *testing.T) {
	var gotFormat string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body struct {
			ResponseFormat struct {
				Type string `json:"type"`
			} `json:"response_format"`
		}
		_ = json.NewDecoder(r.Body).Decode(&body)
		gotFormat = body.ResponseFormat.Type

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":"x","object":"chat.completion","choices":[{"index":0,"message":{"role":"assistant","content":"` + "```json\\n{\\\"summary\\\":\\\"ok\\\"}\\n```" + `"},"finish_reason":"stop"}],"usage":{"total_tokens":3}}`))
	}))
	defer srv.Close()

	client, err := New(Config{APIKey: "k", BaseURL: srv.URL}, logger.Discard())
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	out, err := client.GenerateJSON(context.Background(), "system", "prompt")
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if out != `{"summary":"ok"}` {
		t.Fatalf("expected fenced JSON stripped, got %q", out)
	}
	if gotFormat != "json_object" {
		t.Fatalf("expected json_object response format, got %q", gotFormat)
	}
}
