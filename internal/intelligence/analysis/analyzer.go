package analysis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"cold_solutions_backend/internal/intelligence/domain"
	"cold_solutions_backend/platform/ai"
	"cold_solutions_backend/platform/logger"
)

const systemPrompt = `You are a B2B sales analyst preparing cold outreach for an automation agency.
Using only the facts provided, return one JSON object with exactly these keys:
"summary" (2-3 sentences about the business),
"outreachAngle" (one sentence a caller can open with),
"painPoints" (array of strings),
"automationOpportunities" (array of strings),
"recommendedServices" (array of strings),
"competitiveAdvantages" (array of strings),
"marketPosition" (one of "leader", "challenger", "follower", "unknown"),
"sentimentOverall" (one of "positive", "mixed", "negative", "unknown"),
"sentimentPositives" (array of strings),
"sentimentNegatives" (array of strings).
Do not invent facts that are not supported by the input. Respond with JSON only.`

// ErrIncompleteOutput is returned by Parse when required keys are empty.
var ErrIncompleteOutput = errors.New("analysis output is missing summary or outreach angle")

// Result is the outcome of one analysis call. Degraded results carry fallback content.
type Result struct {
	Output   domain.AIAnalysisOutput
	Degraded bool
	Reason   string
}

// Analyzer implements the pipeline's AI analysis stage on top of an ai.JSONGenerator.
type Analyzer struct {
	gen ai.JSONGenerator
	log *logger.Logger
}

// New creates an Analyzer. A nil generator always yields degraded results.
func New(gen ai.JSONGenerator, log *logger.Logger) *Analyzer {
	return &Analyzer{gen: gen, log: log}
}

// Analyze never fails: provider and parse errors produce a degraded Result.
func (a *Analyzer) Analyze(ctx context.Context, compiledFacts string) Result {
	if a.gen == nil {
		return degraded(ai.ErrNotConfigured)
	}

	start := time.Now()
	raw, err := a.gen.GenerateJSON(ctx, systemPrompt, "Business facts:\n\n"+compiledFacts)
	a.log.WithContext(ctx).ExternalCall(a.gen.Name(), "analyze", time.Since(start), err)
	if err != nil {
		return degraded(err)
	}

	out, err := Parse(raw)
	if err != nil {
		a.log.WithContext(ctx).Warn("ai analysis unparseable", "provider", a.gen.Name(), "error", err)
		return degraded(err)
	}
	return Result{Output: out}
}

// Parse decodes and checks a provider response.
func Parse(raw string) (domain.AIAnalysisOutput, error) {
	var out domain.AIAnalysisOutput
	if err := json.Unmarshal([]byte(ai.StripCodeFence(raw)), &out); err != nil {
		return domain.AIAnalysisOutput{}, fmt.Errorf("decode analysis: %w", err)
	}
	out.Summary = strings.TrimSpace(out.Summary)
	out.OutreachAngle = strings.TrimSpace(out.OutreachAngle)
	if out.Summary == "" || out.OutreachAngle == "" {
		return domain.AIAnalysisOutput{}, ErrIncompleteOutput
	}
	out.PainPoints = clean(out.PainPoints)
	out.AutomationOpportunities = clean(out.AutomationOpportunities)
	out.RecommendedServices = clean(out.RecommendedServices)
	out.CompetitiveAdvantages = clean(out.CompetitiveAdvantages)
	out.SentimentPositives = clean(out.SentimentPositives)
	out.SentimentNegatives = clean(out.SentimentNegatives)
	return out, nil
}

// Fallback is the fixed content stored when the AI call fails.
func Fallback() domain.AIAnalysisOutput {
	return domain.AIAnalysisOutput{
		Summary:       "Automated analysis was unavailable for this business; the listing and website data were collected for manual review.",
		OutreachAngle: "Ask how they currently handle inbound calls, quotes and follow-ups.",
		PainPoints: []string{
			"Manual handling of inbound enquiries",
			"Missed calls outside business hours",
			"Inconsistent follow-up on quotes",
		},
		AutomationOpportunities: []string{
			"Automated call answering and lead capture",
			"Online booking with reminders",
			"Review request automation",
		},
		RecommendedServices:   []string{"AI receptionist", "CRM setup", "Follow-up automation"},
		CompetitiveAdvantages: []string{},
		MarketPosition:        "unknown",
		SentimentOverall:      "unknown",
		SentimentPositives:    []string{},
		SentimentNegatives:    []string{},
	}
}

func degraded(err error) Result {
	return Result{Output: Fallback(), Degraded: true, Reason: err.Error()}
}

func clean(items []string) []string {
	out := make([]string, 0, len(items))
	for _, s := range items {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}
