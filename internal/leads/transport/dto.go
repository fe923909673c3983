package transport

import (
	"time"

	"cold_solutions_backend/internal/leads/dedup"
	"cold_solutions_backend/internal/leads/domain"
	"cold_solutions_backend/internal/leads/routing"
)

// Request DTOs
type CreateLeadRequest struct {
	Name              string            `json:"name" validate:"required,min=1,max=200"`
	Email             string            `json:"email" validate:"required,email,max=254"`
	Phone             string            `json:"phone" validate:"required,min=5,max=30"`
	Company           string            `json:"company,omitempty" validate:"max=200"`
	Position          string            `json:"position,omitempty" validate:"max=200"`
	Source            domain.LeadSource `json:"source,omitempty" validate:"omitempty,lead_source"`
	Status            domain.LeadStatus `json:"status,omitempty" validate:"omitempty,lead_status"`
	Priority          domain.Priority   `json:"priority,omitempty" validate:"omitempty,lead_priority"`
	AssignedTo        string            `json:"assignedTo,omitempty" validate:"max=100"`
	Territory         string            `json:"territory,omitempty" validate:"max=100"`
	Industry          string            `json:"industry,omitempty" validate:"max=100"`
	LeadSource        string            `json:"leadSource,omitempty" validate:"max=200"`
	OriginalSource    string            `json:"originalSource,omitempty" validate:"max=200"`
	CampaignID        string            `json:"campaignId,omitempty" validate:"max=100"`
	LeadListID        string            `json:"leadListId,omitempty" validate:"max=100"`
	Notes             string            `json:"notes,omitempty" validate:"max=20000"`
	Tags              []string          `json:"tags,omitempty" validate:"max=50,dive,min=1,max=60"`
	EstimatedValue    *float64          `json:"estimatedValue,omitempty" validate:"omitempty,gte=0"`
	ExpectedCloseDate *time.Time        `json:"expectedCloseDate,omitempty"`
	NextFollowUp      *time.Time        `json:"nextFollowUp,omitempty"`
	CustomFields      map[string]any    `json:"customFields,omitempty"`
}

type UpdateLeadRequest struct {
	Name              *string            `json:"name,omitempty" validate:"omitempty,min=1,max=200"`
	Email             *string            `json:"email,omitempty" validate:"omitempty,email,max=254"`
	Phone             *string            `json:"phone,omitempty" validate:"omitempty,min=5,max=30"`
	Company           *string            `json:"company,omitempty" validate:"omitempty,max=200"`
	Position          *string            `json:"position,omitempty" validate:"omitempty,max=200"`
	Source            *domain.LeadSource `json:"source,omitempty" validate:"omitempty,lead_source"`
	Status            *domain.LeadStatus `json:"status,omitempty" validate:"omitempty,lead_status"`
	Priority          *domain.Priority   `json:"priority,omitempty" validate:"omitempty,lead_priority"`
	Territory         *string            `json:"territory,omitempty" validate:"omitempty,max=100"`
	Industry          *string            `json:"industry,omitempty" validate:"omitempty,max=100"`
	Notes             *string            `json:"notes,omitempty" validate:"omitempty,max=20000"`
	Tags              []string           `json:"tags,omitempty" validate:"omitempty,max=50,dive,min=1,max=60"`
	EstimatedValue    *float64           `json:"estimatedValue,omitempty" validate:"omitempty,gte=0"`
	ExpectedCloseDate *time.Time         `json:"expectedCloseDate,omitempty"`
	NextFollowUp      *time.Time         `json:"nextFollowUp,omitempty"`
	CustomFields      map[string]any     `json:"customFields,omitempty"`
}

type UpdateLeadStatusRequest struct {
	Status domain.LeadStatus `json:"status" validate:"required,lead_status"`
}

type AssignLeadRequest struct {
	UserID string `json:"userId" validate:"required,max=100"`
}

type MergeLeadsRequest struct {
	PrimaryID   string `json:"primaryId" validate:"required,max=100"`
	SecondaryID string `json:"secondaryId" validate:"required,max=100,nefield=PrimaryID"`
}

// ScorePreviewRequest carries a partial lead; nothing is required.
type ScorePreviewRequest struct {
	Company        string            `json:"company,omitempty"`
	Position       string            `json:"position,omitempty"`
	Source         domain.LeadSource `json:"source,omitempty" validate:"omitempty,lead_source"`
	Status         domain.LeadStatus `json:"status,omitempty" validate:"omitempty,lead_status"`
	Priority       domain.Priority   `json:"priority,omitempty" validate:"omitempty,lead_priority"`
	Territory      string            `json:"territory,omitempty"`
	Industry       string            `json:"industry,omitempty"`
	Tags           []string          `json:"tags,omitempty"`
	EstimatedValue *float64          `json:"estimatedValue,omitempty" validate:"omitempty,gte=0"`
	CustomFields   map[string]any    `json:"customFields,omitempty"`
}

type LogActivityRequest struct {
	Type        domain.ActivityType `json:"type" validate:"required,activity_type"`
	Description string              `json:"description" validate:"required,min=1,max=5000"`
	Duration    *int                `json:"duration,omitempty" validate:"omitempty,gte=0"`
	Outcome     domain.Outcome      `json:"outcome,omitempty" validate:"omitempty,oneof=Positive Negative Neutral"`
	Metadata    map[string]any      `json:"metadata,omitempty"`
}

type ListLeadsParams struct {
	Status            string `form:"status"`
	AssignedTo        string `form:"assignedTo"`
	Search            string `form:"search"`
	IncludeDuplicates bool   `form:"includeDuplicates"`
}

// Response DTOs
type CreateLeadResponse struct {
	Lead       domain.Lead   `json:"lead"`
	Duplicates []dedup.Match `json:"duplicates"`
	Routed     bool          `json:"routed"`
	RuleName   string        `json:"ruleName,omitempty"`
}

type LeadListResponse struct {
	Items []domain.Lead `json:"items"`
	Total int           `json:"total"`
}

type AutoRouteResponse struct {
	Routed bool        `json:"routed"`
	Lead   domain.Lead `json:"lead"`
}

type WorkflowRouteResponse struct {
	Routed   bool              `json:"routed"`
	Assignee *routing.Assignee `json:"assignee,omitempty"`
	Lead     domain.Lead       `json:"lead"`
}

type AssignLeadResponse struct {
	Assigned bool        `json:"assigned"`
	Lead     domain.Lead `json:"lead"`
}
