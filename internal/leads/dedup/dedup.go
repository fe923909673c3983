// Package dedup finds probable duplicate leads and clusters them for review.
package dedup

import (
	"sort"
	"strings"
	"unicode/utf8"

	"cold_solutions_backend/internal/leads/domain"
	"cold_solutions_backend/platform/phone"

	"github.com/agnivade/levenshtein"
)

const (
	// Threshold is the minimum match score for a lead to count as a duplicate.
	Threshold = 60

	emailPoints       = 100
	phonePoints       = 80
	nameCompanyPoints = 60

	// similarityCutoff must be exceeded by both name and company.
	similarityCutoff = 0.8

	ReasonEmail       = "Identical email address"
	ReasonPhone       = "Matching phone number"
	ReasonNameCompany = "Similar name and company"
)

// Match is an existing lead judged to duplicate a candidate.
type Match struct {
	Lead    domain.Lead `json:"lead"`
	Score   int         `json:"score"`
	Reasons []string    `json:"reasons"`
}

// Similarity is the normalized edit distance of the trimmed, lower-cased inputs, in [0,1].
func Similarity(a, b string) float64 {
	a = strings.ToLower(strings.TrimSpace(a))
	b = strings.ToLower(strings.TrimSpace(b))

	maxLen := utf8.RuneCountInString(a)
	if n := utf8.RuneCountInString(b); n > maxLen {
		maxLen = n
	}
	if maxLen == 0 {
		return 1
	}
	dist := levenshtein.ComputeDistance(a, b)
	return float64(maxLen-dist) / float64(maxLen)
}

// Score weighs the evidence that a and b describe the same contact.
func Score(a, b domain.Lead) (int, []string) {
	score := 0
	reasons := make([]string, 0, 3)

	ea := strings.ToLower(strings.TrimSpace(a.Email))
	eb := strings.ToLower(strings.TrimSpace(b.Email))
	if ea != "" && ea == eb {
		score += emailPoints
		reasons = append(reasons, ReasonEmail)
	}

	pa := phone.Digits(a.Phone)
	if pa != "" && pa == phone.Digits(b.Phone) {
		score += phonePoints
		reasons = append(reasons, ReasonPhone)
	}

	if hasNameAndCompany(a) && hasNameAndCompany(b) &&
		Similarity(a.Name, b.Name) > similarityCutoff &&
		Similarity(a.Company, b.Company) > similarityCutoff {
		score += nameCompanyPoints
		reasons = append(reasons, ReasonNameCompany)
	}

	return score, reasons
}

// Find returns every existing lead scoring at least Threshold against candidate,
// strongest first. The candidate itself and leads already marked as duplicates are skipped.
func Find(candidate domain.Lead, existing []domain.Lead) []Match {
	matches := make([]Match, 0)
	for _, l := range existing {
		if l.IsDuplicate || (candidate.ID != "" && l.ID == candidate.ID) {
			continue
		}
		score, reasons := Score(candidate, l)
		if score >= Threshold {
			matches = append(matches, Match{Lead: l, Score: score, Reasons: reasons})
		}
	}
	sort.SliceStable(matches, func(i, j int) bool { return matches[i].Score > matches[j].Score })
	return matches
}

func hasNameAndCompany(l domain.Lead) bool {
	return strings.TrimSpace(l.Name) != "" && strings.TrimSpace(l.Company) != ""
}
