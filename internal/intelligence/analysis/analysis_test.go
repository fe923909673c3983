package analysis

import (
	"context"
	"errors"
	"strings"
	"testing"

	"cold_solutions_backend/internal/intelligence/domain"
	"cold_solutions_backend/internal/intelligence/places"
	"cold_solutions_backend/internal/intelligence/website"
	"cold_solutions_backend/platform/logger"
)

type fakeGenerator struct {
	response string
	err      error
	prompt   string
}

func (f *fakeGenerator) GenerateJSON(_ context.Context, _, prompt string) (string, error) {
	f.prompt = prompt
	return f.response, f.err
}

func (f *fakeGenerator) Name() string { return "fake" }

const goodResponse = "```json\n" + `{
  "summary": "Family-run plumbing company.",
  "outreachAngle": "You miss calls after 6pm.",
  "painPoints": ["missed calls", " "],
  "automationOpportunities": ["after-hours answering"],
  "recommendedServices": ["AI receptionist"],
  "competitiveAdvantages": ["fast response"],
  "marketPosition": "challenger",
  "sentimentOverall": "positive",
  "sentimentPositives": ["friendly"],
  "sentimentNegatives": []
}` + "\n```"

func TestAnalyzeParsesFencedJSON(t *testing.T) {
	gen := &fakeGenerator{response: goodResponse}
	res := New(gen, logger.Discard()).Analyze(context.Background(), "Name: Acme")

	if res.Degraded {
		t.Fatalf("expected a genuine result, got degraded: %s", res.Reason)
	}
	if res.Output.Summary != "Family-run plumbing company." {
		t.Fatalf("unexpected summary %q", res.Output.Summary)
	}
	if len(res.Output.PainPoints) != 1 {
		t.Fatalf("expected blank entries dropped, got %v", res.Output.PainPoints)
	}
	if !strings.Contains(gen.prompt, "Name: Acme") {
		t.Fatalf("expected compiled facts in prompt, got %q", gen.prompt)
	}
}

func TestAnalyzeDegradesOnProviderError(t *testing.T) {
	res := New(&fakeGenerator{err: errors.New("quota exceeded")}, logger.Discard()).Analyze(context.Background(), "x")
	if !res.Degraded || res.Reason != "quota exceeded" {
		t.Fatalf("expected degraded result with reason, got %+v", res)
	}
	if res.Output.Summary == "" || len(res.Output.AutomationOpportunities) == 0 {
		t.Fatalf("expected fallback content, got %+v", res.Output)
	}
}

func TestAnalyzeDegradesOnIncompleteOutput(t *testing.T) {
	res := New(&fakeGenerator{response: `{"summary": ""}`}, logger.Discard()).Analyze(context.Background(), "x")
	if !res.Degraded || res.Reason != ErrIncompleteOutput.Error() {
		t.Fatalf("expected degraded result for incomplete output, got %+v", res)
	}

	res = New(nil, logger.Discard()).Analyze(context.Background(), "x")
	if !res.Degraded {
		t.Fatalf("expected degraded result without a generator")
	}
}

func TestCompileFactsOmitsMissingSections(t *testing.T) {
	lead := domain.BusinessIntelligenceLead{BusinessName: "Acme", City: "Springfield", Country: "US"}

	bare := CompileFacts(Facts{Lead: lead})
	if !strings.Contains(bare, "Name: Acme") || !strings.Contains(bare, "Location: Springfield, US") {
		t.Fatalf("unexpected business section %q", bare)
	}
	for _, section := range []string{"## Google listing", "## Website", "## Nearby competitors"} {
		if strings.Contains(bare, section) {
			t.Fatalf("expected %q omitted, got %q", section, bare)
		}
	}

	full := CompileFacts(Facts{
		Lead:        lead,
		Place:       &places.Place{Name: "Acme Plumbing", Rating: 4.5, ReviewCount: 20, Reviews: []places.Review{{Rating: 5, Text: "great"}}},
		Website:     &website.Result{Title: "Acme", Technologies: domain.DetectedTechnologies{HasBooking: true}},
		Competitors: []domain.Competitor{{Name: "Rival", Rating: 4.0, ReviewCount: 3}},
	})
	for _, want := range []string{"Rating: 4.5 from 20 reviews", "- (5/5) great", "Online booking: yes", "- Rival (4.0, 3 reviews)"} {
		if !strings.Contains(full, want) {
			t.Fatalf("expected %q in facts, got %q", want, full)
		}
	}
}

func TestBuildMergesSources(t *testing.T) {
	f := Facts{
		Lead:        domain.BusinessIntelligenceLead{ID: "l1"},
		Place:       &places.Place{Rating: 4.1, ReviewCount: 12},
		Competitors: []domain.Competitor{{Name: "A", Rating: 4.0}, {Name: "B", Rating: 5.0}, {Name: "C"}},
	}
	a := Build(f, Result{Output: Fallback(), Degraded: true, Reason: "down"})

	if a.LeadID != "l1" || !a.Degraded || a.DegradedReason != "down" {
		t.Fatalf("unexpected analysis header %+v", a)
	}
	if a.CompetitorInsights.AverageRating != 4.5 {
		t.Fatalf("expected average 4.5 over rated competitors, got %v", a.CompetitorInsights.AverageRating)
	}
	if a.ReviewSentiment.Rating != 4.1 || a.ReviewSentiment.ReviewCount != 12 {
		t.Fatalf("unexpected sentiment %+v", a.ReviewSentiment)
	}
}
