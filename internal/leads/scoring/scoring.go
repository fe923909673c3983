// Package scoring computes a lead's 0-100 quality score from configurable
// rules plus a built-in profile used when the rules are close to neutral.
package scoring

import (
	"sort"

	"cold_solutions_backend/internal/leads/domain"
)

const (
	// BaseScore is the starting point before any rule is applied.
	BaseScore = 50
	// FallbackWindow is the distance from BaseScore under which the built-in profile applies.
	FallbackWindow = 10

	MinScore = 0
	MaxScore = 100
)

var sourcePoints = map[domain.LeadSource]int{
	domain.SourceReferral:      20,
	domain.SourceWebsite:       15,
	domain.SourceEvent:         15,
	domain.SourceEmailCampaign: 10,
	domain.SourceSocialMedia:   10,
	domain.SourceColdCall:      8,
	domain.SourceCSVImport:     5,
	domain.SourceOther:         5,
}

var statusPoints = map[domain.LeadStatus]int{
	domain.StatusNew:         0,
	domain.StatusContacted:   5,
	domain.StatusQualified:   15,
	domain.StatusProposal:    20,
	domain.StatusNegotiation: 25,
	domain.StatusWon:         30,
	domain.StatusLost:        -10,
}

var priorityPoints = map[domain.Priority]int{
	domain.PriorityCritical: 15,
	domain.PriorityHigh:     10,
	domain.PriorityMedium:   0,
	domain.PriorityLow:      -5,
}

// Result explains how a score was reached.
type Result struct {
	Score           int      `json:"score"`
	RuleAdjustment  int      `json:"ruleAdjustment"`
	FallbackApplied bool     `json:"fallbackApplied"`
	FallbackPoints  int      `json:"fallbackPoints"`
	MatchedRules    []string `json:"matchedRules"`
}

// Calculate returns the clamped score for lead.
func Calculate(lead domain.Lead, rules []domain.ScoringRule) int {
	return Explain(lead, rules).Score
}

// Explain runs the additive rule pass, the near-neutral fallback and the clamp, in that order.
func Explain(lead domain.Lead, rules []domain.ScoringRule) Result {
	active := make([]domain.ScoringRule, 0, len(rules))
	for _, r := range rules {
		if r.Active {
			active = append(active, r)
		}
	}
	sort.SliceStable(active, func(i, j int) bool { return active[i].Priority < active[j].Priority })

	res := Result{MatchedRules: []string{}}
	score := BaseScore
	for _, r := range active {
		if r.Criteria.Matches(lead) {
			score += r.Points
			res.RuleAdjustment += r.Points
			res.MatchedRules = append(res.MatchedRules, r.ID)
		}
	}

	if abs(score-BaseScore) < FallbackWindow {
		res.FallbackApplied = true
		res.FallbackPoints = FallbackPoints(lead)
		score += res.FallbackPoints
	}

	res.Score = clamp(score)
	return res
}

// FallbackPoints is the built-in profile used when custom rules barely moved the score.
func FallbackPoints(lead domain.Lead) int {
	points := sourcePoints[lead.Source]
	if lead.Company != "" {
		points += 10
	}
	if lead.Position != "" {
		points += 5
	}
	points += statusPoints[lead.Status]

	switch v := lead.EstimatedValueOrZero(); {
	case v > 20000:
		points += 15
	case v > 10000:
		points += 10
	case v > 5000:
		points += 5
	}

	points += priorityPoints[lead.Priority]
	return points
}

func clamp(score int) int {
	if score < MinScore {
		return MinScore
	}
	if score > MaxScore {
		return MaxScore
	}
	return score
}

func abs(n int) int {
	if n < 0 {
		return -n
	}
	return n
}
