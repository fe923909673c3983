// Package domain holds the business-intelligence records enriched by the bulk pipeline.
package domain

import (
	"encoding/json"
	"time"
)

// AnalysisStatus tracks a lead through the bulk pipeline.
type AnalysisStatus string

const (
	StatusNotStarted AnalysisStatus = "Not Started"
	StatusInProgress AnalysisStatus = "In Progress"
	StatusComplete   AnalysisStatus = "Complete"
	// StatusDegraded marks a stored analysis built from fallback content because the AI call failed.
	StatusDegraded AnalysisStatus = "Degraded"
	StatusFailed   AnalysisStatus = "Failed"
)

func (s AnalysisStatus) Valid() bool {
	switch s {
	case StatusNotStarted, StatusInProgress, StatusComplete, StatusDegraded, StatusFailed:
		return true
	}
	return false
}

// Eligible reports whether a lead in this state may be picked up by a run.
func (s AnalysisStatus) Eligible() bool {
	return s == StatusNotStarted || s == StatusFailed
}

// BusinessIntelligenceLead is a business imported for enrichment.
type BusinessIntelligenceLead struct {
	ID             string         `json:"id"`
	BusinessName   string         `json:"business_name"`
	Industry       string         `json:"industry,omitempty"`
	Website        string         `json:"website,omitempty"`
	City           string         `json:"city"`
	Country        string         `json:"country"`
	Address        string         `json:"address,omitempty"`
	ZipCode        string         `json:"zip_code,omitempty"`
	State          string         `json:"state,omitempty"`
	GoogleMapsURL  string         `json:"google_maps_url,omitempty"`
	AnalysisStatus AnalysisStatus `json:"analysis_status"`
	ErrorMessage   string         `json:"error_message,omitempty"`
	PushedToCaller bool           `json:"pushed_to_caller"`
	CreatedAt      time.Time      `json:"created_at"`
	UpdatedAt      time.Time      `json:"updated_at"`
}

// Competitor is a nearby business in the same industry.
type Competitor struct {
	Name        string  `json:"name"`
	PlaceID     string  `json:"placeId,omitempty"`
	Address     string  `json:"address,omitempty"`
	Rating      float64 `json:"rating,omitempty"`
	ReviewCount int     `json:"reviewCount,omitempty"`
}

// DetectedTechnologies lists what the website scrape revealed about the business's tooling.
type DetectedTechnologies struct {
	CMS            string   `json:"cms,omitempty"`
	Analytics      []string `json:"analytics"`
	Marketing      []string `json:"marketing"`
	HasLiveChat    bool     `json:"hasLiveChat"`
	HasBooking     bool     `json:"hasBooking"`
	HasContactForm bool     `json:"hasContactForm"`
}

type CompetitorInsights struct {
	Competitors    []Competitor `json:"competitors"`
	AverageRating  float64      `json:"averageRating,omitempty"`
	MarketPosition string       `json:"marketPosition,omitempty"`
}

type ReviewSentiment struct {
	Rating      float64  `json:"rating,omitempty"`
	ReviewCount int      `json:"reviewCount,omitempty"`
	Overall     string   `json:"overall,omitempty"`
	Positives   []string `json:"positives"`
	Negatives   []string `json:"negatives"`
}

// BusinessAnalysis is the stored result for a Complete or Degraded lead.
type BusinessAnalysis struct {
	LeadID                  string               `json:"leadId"`
	Summary                 string               `json:"summary"`
	OutreachAngle           string               `json:"outreachAngle"`
	PainPoints              []string             `json:"painPoints"`
	AutomationOpportunities []string             `json:"automationOpportunities"`
	RecommendedServices     []string             `json:"recommendedServices"`
	CompetitiveAdvantages   []string             `json:"competitiveAdvantages"`
	DetectedTechnologies    DetectedTechnologies `json:"detectedTechnologies"`
	CompetitorInsights      CompetitorInsights   `json:"competitorInsights"`
	ReviewSentiment         ReviewSentiment      `json:"reviewSentiment"`
	Degraded                bool                 `json:"degraded"`
	DegradedReason          string               `json:"degradedReason,omitempty"`
	RawPayload              json.RawMessage      `json:"rawPayload,omitempty"`
	RawArchiveKey           string               `json:"rawArchiveKey,omitempty"`
	CreatedAt               time.Time            `json:"createdAt"`
}

// AIAnalysisOutput is the structured JSON contract the AI provider must return.
type AIAnalysisOutput struct {
	Summary                 string   `json:"summary"`
	OutreachAngle           string   `json:"outreachAngle"`
	PainPoints              []string `json:"painPoints"`
	AutomationOpportunities []string `json:"automationOpportunities"`
	RecommendedServices     []string `json:"recommendedServices"`
	CompetitiveAdvantages   []string `json:"competitiveAdvantages"`
	MarketPosition          string   `json:"marketPosition"`
	SentimentOverall        string   `json:"sentimentOverall"`
	SentimentPositives      []string `json:"sentimentPositives"`
	SentimentNegatives      []string `json:"sentimentNegatives"`
}
