package analysis

import (
	"cold_solutions_backend/internal/intelligence/domain"
)

// Build combines the gathered facts and the AI result into the stored record.
func Build(f Facts, r Result) domain.BusinessAnalysis {
	out := r.Output
	a := domain.BusinessAnalysis{
		LeadID:                  f.Lead.ID,
		Summary:                 out.Summary,
		OutreachAngle:           out.OutreachAngle,
		PainPoints:              out.PainPoints,
		AutomationOpportunities: out.AutomationOpportunities,
		RecommendedServices:     out.RecommendedServices,
		CompetitiveAdvantages:   out.CompetitiveAdvantages,
		DetectedTechnologies:    domain.DetectedTechnologies{Analytics: []string{}, Marketing: []string{}},
		Degraded:                r.Degraded,
		DegradedReason:          r.Reason,
	}
	if f.Website != nil {
		a.DetectedTechnologies = f.Website.Technologies
	}

	competitors := f.Competitors
	if competitors == nil {
		competitors = []domain.Competitor{}
	}
	a.CompetitorInsights = domain.CompetitorInsights{
		Competitors:    competitors,
		AverageRating:  averageRating(competitors),
		MarketPosition: out.MarketPosition,
	}

	a.ReviewSentiment = domain.ReviewSentiment{
		Overall:   out.SentimentOverall,
		Positives: nonNil(out.SentimentPositives),
		Negatives: nonNil(out.SentimentNegatives),
	}
	if f.Place != nil {
		a.ReviewSentiment.Rating = f.Place.Rating
		a.ReviewSentiment.ReviewCount = f.Place.ReviewCount
	}
	return a
}

func averageRating(cs []domain.Competitor) float64 {
	var sum float64
	n := 0
	for _, c := range cs {
		if c.Rating > 0 {
			sum += c.Rating
			n++
		}
	}
	if n == 0 {
		return 0
	}
	return sum / float64(n)
}

func nonNil(items []string) []string {
	if items == nil {
		return []string{}
	}
	return items
}
