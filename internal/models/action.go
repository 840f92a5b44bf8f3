package models

import (
	"time"
)

// ActionPriority ranks action recommendations
type ActionPriority string

const (
	ActionPriorityHigh   ActionPriority = "high"
	ActionPriorityMedium ActionPriority = "medium"
	ActionPriorityLow    ActionPriority = "low"
)

// ActionStatus tracks the lifecycle of a recommendation.
// Status transitions past "pending" are made by external collaborators
// (dashboard users), not by the pipeline.
type ActionStatus string

const (
	ActionStatusPending    ActionStatus = "pending"
	ActionStatusInProgress ActionStatus = "in_progress"
	ActionStatusCompleted  ActionStatus = "completed"
	ActionStatusSnoozed    ActionStatus = "snoozed"
	ActionStatusCancelled  ActionStatus = "cancelled"
)

// ActionItem is one checklist step within a recommendation
type ActionItem struct {
	Task  string `json:"task"`
	Owner string `json:"owner,omitempty"`
	Done  bool   `json:"done"`
}

// ActionAssignment is optional post-creation assignment detail,
// added by external collaborators
type ActionAssignment struct {
	Team            string     `json:"team,omitempty"`
	Assignee        string     `json:"assignee,omitempty"`
	DueDate         *time.Time `json:"due_date,omitempty"`
	ProgressPercent int        `json:"progress_percent"`
	Notes           string     `json:"notes,omitempty"`
}

// ActionRecommendation is an actionable follow-up derived from forecast
// results. Source-stamped with the originating pipeline job.
type ActionRecommendation struct {
	ID    string `json:"id" badgerhold:"key"` // act_{uuid}
	JobID string `json:"job_id" badgerhold:"index"`

	ActionType  string         `json:"action_type"` // "capacity_planning", "inventory_optimization"
	Category    string         `json:"category"`    // "production", "inventory"
	Title       string         `json:"title"`
	Description string         `json:"description"`
	Priority    ActionPriority `json:"priority"`
	Status      ActionStatus   `json:"status"`

	AffectedProducts []string     `json:"affected_products"`
	ExpectedImpact   string       `json:"expected_impact,omitempty"`
	EstimatedCost    float64      `json:"estimated_cost"`
	Items            []ActionItem `json:"items,omitempty"`
	Deadline         *time.Time   `json:"deadline,omitempty"`
	ConfidenceScore  float64      `json:"confidence_score"`

	Assignment *ActionAssignment `json:"assignment,omitempty"`

	Provenance Provenance `json:"provenance"`
	CreatedAt  time.Time  `json:"created_at"`
	UpdatedAt  time.Time  `json:"updated_at"`
}
