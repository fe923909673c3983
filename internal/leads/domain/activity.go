package domain

import "time"

type ActivityType string

const (
	ActivityCall         ActivityType = "Call"
	ActivityEmail        ActivityType = "Email"
	ActivityMeeting      ActivityType = "Meeting"
	ActivityNote         ActivityType = "Note"
	ActivityStatusChange ActivityType = "Status Change"
	ActivityScoreChange  ActivityType = "Score Change"
	ActivityAssignment   ActivityType = "Assignment"
	ActivityTask         ActivityType = "Task"
	ActivityFollowUp     ActivityType = "Follow-up"
)

func (t ActivityType) Valid() bool {
	switch t {
	case ActivityCall, ActivityEmail, ActivityMeeting, ActivityNote, ActivityStatusChange,
		ActivityScoreChange, ActivityAssignment, ActivityTask, ActivityFollowUp:
		return true
	}
	return false
}

type Outcome string

const (
	OutcomePositive Outcome = "Positive"
	OutcomeNegative Outcome = "Negative"
	OutcomeNeutral  Outcome = "Neutral"
)

// Metadata key set on activities copied from a merged lead.
const MetaMergedFromActivityID = "mergedFromActivityId"

// LeadActivity is an append-only audit entry. Activities are never updated or deleted.
type LeadActivity struct {
	ID          string         `json:"id"`
	LeadID      string         `json:"leadId"`
	Type        ActivityType   `json:"type"`
	Description string         `json:"description"`
	CreatedAt   time.Time      `json:"createdAt"`
	CreatedBy   string         `json:"createdBy"`
	Duration    *int           `json:"duration,omitempty"`
	Outcome     Outcome        `json:"outcome,omitempty"`
	Metadata    map[string]any `json:"metadata,omitempty"`
}
