// Package domain holds the lead model shared by the scoring, duplicate
// detection, merge and routing engines.
package domain

import (
	"strings"
	"time"
)

type LeadSource string

const (
	SourceWebsite       LeadSource = "Website"
	SourceReferral      LeadSource = "Referral"
	SourceSocialMedia   LeadSource = "Social Media"
	SourceEmailCampaign LeadSource = "Email Campaign"
	SourceColdCall      LeadSource = "Cold Call"
	SourceEvent         LeadSource = "Event"
	SourceCSVImport     LeadSource = "CSV Import"
	SourceOther         LeadSource = "Other"
)

type LeadStatus string

const (
	StatusNew         LeadStatus = "New"
	StatusContacted   LeadStatus = "Contacted"
	StatusQualified   LeadStatus = "Qualified"
	StatusProposal    LeadStatus = "Proposal"
	StatusNegotiation LeadStatus = "Negotiation"
	StatusWon         LeadStatus = "Won"
	StatusLost        LeadStatus = "Lost"
)

type Priority string

const (
	PriorityLow      Priority = "Low"
	PriorityMedium   Priority = "Medium"
	PriorityHigh     Priority = "High"
	PriorityCritical Priority = "Critical"
)

// Lifecycle mirrors Status but remembers when the current stage was entered.
type Lifecycle struct {
	Stage              LeadStatus `json:"stage"`
	StageChangedAt     time.Time  `json:"stageChangedAt"`
	TimeInStageSeconds int64      `json:"timeInStage"`
}

// Lead is a sales prospect record.
type Lead struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Email    string `json:"email"`
	Phone    string `json:"phone"`
	Company  string `json:"company,omitempty"`
	Position string `json:"position,omitempty"`

	Source   LeadSource `json:"source"`
	Status   LeadStatus `json:"status"`
	Priority Priority   `json:"priority"`
	Score    int        `json:"score"`

	AssignedTo string `json:"assignedTo,omitempty"`
	Territory  string `json:"territory,omitempty"`
	Industry   string `json:"industry,omitempty"`

	LeadSource     string `json:"leadSource,omitempty"`
	OriginalSource string `json:"originalSource,omitempty"`
	CampaignID     string `json:"campaignId,omitempty"`
	LeadListID     string `json:"leadListId,omitempty"`

	CreatedAt       time.Time  `json:"createdAt"`
	UpdatedAt       time.Time  `json:"updatedAt"`
	LastInteraction *time.Time `json:"lastInteraction,omitempty"`
	NextFollowUp    *time.Time `json:"nextFollowUp,omitempty"`

	Notes             string         `json:"notes"`
	Tags              []string       `json:"tags"`
	EstimatedValue    *float64       `json:"estimatedValue,omitempty"`
	ExpectedCloseDate *time.Time     `json:"expectedCloseDate,omitempty"`
	CustomFields      map[string]any `json:"customFields,omitempty"`

	Lifecycle Lifecycle `json:"lifecycle"`

	IsDuplicate bool   `json:"isDuplicate,omitempty"`
	DuplicateOf string `json:"duplicateOf,omitempty"`
}

// EstimatedValueOrZero treats a missing estimate as 0.
func (l Lead) EstimatedValueOrZero() float64 {
	if l.EstimatedValue == nil {
		return 0
	}
	return *l.EstimatedValue
}

// HasTag reports whether tag is present, compared case-sensitively.
func (l Lead) HasTag(tag string) bool {
	for _, t := range l.Tags {
		if t == tag {
			return true
		}
	}
	return false
}

// Clone returns a copy that shares no slices or maps with l.
func (l Lead) Clone() Lead {
	out := l
	if l.Tags != nil {
		out.Tags = append([]string(nil), l.Tags...)
	}
	if l.CustomFields != nil {
		out.CustomFields = make(map[string]any, len(l.CustomFields))
		for k, v := range l.CustomFields {
			out.CustomFields[k] = v
		}
	}
	if l.EstimatedValue != nil {
		v := *l.EstimatedValue
		out.EstimatedValue = &v
	}
	out.LastInteraction = cloneTime(l.LastInteraction)
	out.NextFollowUp = cloneTime(l.NextFollowUp)
	out.ExpectedCloseDate = cloneTime(l.ExpectedCloseDate)
	return out
}

// FieldValue resolves a rule field name against the lead. Unknown names fall
// through to CustomFields. ok is false when the field is absent or empty.
func (l Lead) FieldValue(field string) (any, bool) {
	switch field {
	case "id":
		return nonEmpty(l.ID)
	case "name":
		return nonEmpty(l.Name)
	case "email":
		return nonEmpty(l.Email)
	case "phone":
		return nonEmpty(l.Phone)
	case "company":
		return nonEmpty(l.Company)
	case "position":
		return nonEmpty(l.Position)
	case "source":
		return nonEmpty(string(l.Source))
	case "status":
		return nonEmpty(string(l.Status))
	case "priority":
		return nonEmpty(string(l.Priority))
	case "score":
		return l.Score, true
	case "assignedTo":
		return nonEmpty(l.AssignedTo)
	case "territory":
		return nonEmpty(l.Territory)
	case "industry":
		return nonEmpty(l.Industry)
	case "leadSource":
		return nonEmpty(l.LeadSource)
	case "originalSource":
		return nonEmpty(l.OriginalSource)
	case "campaignId":
		return nonEmpty(l.CampaignID)
	case "leadListId":
		return nonEmpty(l.LeadListID)
	case "notes":
		return nonEmpty(l.Notes)
	case "tags":
		if len(l.Tags) == 0 {
			return nil, false
		}
		return l.Tags, true
	case "estimatedValue":
		if l.EstimatedValue == nil {
			return nil, false
		}
		return *l.EstimatedValue, true
	case "stage":
		return nonEmpty(string(l.Lifecycle.Stage))
	}
	if l.CustomFields == nil {
		return nil, false
	}
	v, ok := l.CustomFields[field]
	if !ok || v == nil {
		return nil, false
	}
	return v, true
}

func nonEmpty(s string) (any, bool) {
	if strings.TrimSpace(s) == "" {
		return nil, false
	}
	return s, true
}

func cloneTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	v := *t
	return &v
}

// Valid enum checks used by request validation.

func (s LeadSource) Valid() bool {
	switch s {
	case SourceWebsite, SourceReferral, SourceSocialMedia, SourceEmailCampaign,
		SourceColdCall, SourceEvent, SourceCSVImport, SourceOther:
		return true
	}
	return false
}

func (s LeadStatus) Valid() bool {
	switch s {
	case StatusNew, StatusContacted, StatusQualified, StatusProposal,
		StatusNegotiation, StatusWon, StatusLost:
		return true
	}
	return false
}

func (p Priority) Valid() bool {
	switch p {
	case PriorityLow, PriorityMedium, PriorityHigh, PriorityCritical:
		return true
	}
	return false
}
