// Package events provides domain event definitions for decoupled,
// event-driven communication between modules.
// Infrastructure (Bus, Handler) is in platform/events.
package events

import (
	"cold_solutions_backend/platform/events"
)

// Re-export platform types for convenience
type (
	Event       = events.Event
	Bus         = events.Bus
	Handler     = events.Handler
	HandlerFunc = events.HandlerFunc
	BaseEvent   = events.BaseEvent
)

// Re-export platform functions
var (
	NewBaseEvent = events.NewBaseEvent
	Context      = events.Context
)

// =============================================================================
// Lead Domain Events
// =============================================================================

// LeadCreated is published when a new lead is stored.
type LeadCreated struct {
	BaseEvent
	LeadID       string   `json:"leadId"`
	Score        int      `json:"score"`
	DuplicateIDs []string `json:"duplicateIds,omitempty"`
}

func (e LeadCreated) EventName() string { return "leads.lead.created" }

// LeadMerged is published after a secondary lead has been folded into a primary.
type LeadMerged struct {
	BaseEvent
	PrimaryID   string `json:"primaryId"`
	SecondaryID string `json:"secondaryId"`
}

func (e LeadMerged) EventName() string { return "leads.lead.merged" }

// LeadRouted is published when an auto-routing or workflow routing rule fires.
type LeadRouted struct {
	BaseEvent
	LeadID   string `json:"leadId"`
	RuleID   string `json:"ruleId"`
	RuleName string `json:"ruleName"`
	Action   string `json:"action"`
	Value    string `json:"value,omitempty"`
}

func (e LeadRouted) EventName() string { return "leads.lead.routed" }

// =============================================================================
// Business Intelligence Domain Events
// =============================================================================

// BulkRunFinished is published when a bulk analysis run stops, for any reason.
type BulkRunFinished struct {
	BaseEvent
	RunID      string `json:"runId"`
	Processed  int    `json:"processed"`
	Successful int    `json:"successful"`
	Degraded   int    `json:"degraded"`
	Failed     int    `json:"failed"`
	Cancelled  bool   `json:"cancelled"`
	Error      string `json:"error,omitempty"`
}

func (e BulkRunFinished) EventName() string { return "intelligence.bulk_run.finished" }
