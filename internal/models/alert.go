package models

import (
	"time"
)

// AlertSeverity scales with the magnitude of the triggering condition
type AlertSeverity string

const (
	AlertSeverityCritical AlertSeverity = "critical"
	AlertSeverityWarning  AlertSeverity = "warning"
	AlertSeverityInfo     AlertSeverity = "info"
)

// Alert is raised by the output stage when a forecast's percent change
// exceeds the configured threshold or a capacity/risk condition is flagged.
type Alert struct {
	ID    string `json:"id" badgerhold:"key"` // alr_{uuid}
	JobID string `json:"job_id" badgerhold:"index"`

	AlertType string        `json:"alert_type"` // "demand_change", "capacity_risk"
	Severity  AlertSeverity `json:"severity"`
	Message   string        `json:"message"`

	// ForecastID references the triggering forecast, empty for run-level alerts
	ForecastID       string   `json:"forecast_id,omitempty"`
	AffectedProducts []string `json:"affected_products,omitempty"`
	ChangePercent    float64  `json:"change_percent,omitempty"`

	Read      bool      `json:"read"`
	CreatedAt time.Time `json:"created_at"`
}

// AlertStats summarizes stored alerts for the daily summary endpoint
type AlertStats struct {
	TotalAlerts int            `json:"total_alerts"`
	UnreadCount int            `json:"unread_count"`
	BySeverity  map[string]int `json:"by_severity"`
	ByType      map[string]int `json:"by_type"`
	LatestAlert *time.Time     `json:"latest_alert,omitempty"`
}
