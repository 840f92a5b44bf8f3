// -----------------------------------------------------------------------
// Output Stage - Persist results, derive actions and alerts
// A persistence failure here fails the job; retries are external
// -----------------------------------------------------------------------

package pipeline

import (
	"context"
	"fmt"
	"time"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/demandcast/internal/common"
	"github.com/ternarybob/demandcast/internal/interfaces"
	"github.com/ternarybob/demandcast/internal/models"
)

// ReportGenerator writes the optional run report. Implemented by the report
// service; a failed report never fails the run.
type ReportGenerator interface {
	Generate(job *models.PipelineJob, forecasts []models.ForecastResult, alerts []models.Alert) (string, error)
}

// OutputStage persists the aggregate result set and derives follow-ups
type OutputStage struct {
	forecasts interfaces.ForecastStorage
	actions   interfaces.ActionStorage
	alerts    interfaces.AlertStorage
	config    *common.Config
	report    ReportGenerator
	logger    arbor.ILogger
}

// NewOutputStage creates the output stage. report may be nil.
func NewOutputStage(
	forecasts interfaces.ForecastStorage,
	actions interfaces.ActionStorage,
	alerts interfaces.AlertStorage,
	config *common.Config,
	report ReportGenerator,
	logger arbor.ILogger,
) *OutputStage {
	return &OutputStage{
		forecasts: forecasts,
		actions:   actions,
		alerts:    alerts,
		config:    config,
		report:    report,
		logger:    logger,
	}
}

// Persist writes forecasts, failures, derived actions, and alerts for one
// run. The derived actions and alerts are returned so the outcome can carry
// them. Any storage error aborts immediately; the caller marks the job failed.
func (s *OutputStage) Persist(ctx context.Context, job *models.PipelineJob, aggregate *models.AggregateResult, extraActions []models.ActionRecommendation) (*models.OutputSummary, []models.ActionRecommendation, []models.Alert, error) {
	summary := &models.OutputSummary{}

	for i := range aggregate.Succeeded {
		forecast := &aggregate.Succeeded[i]

		// Timeseries and metrics are written through their own operations,
		// once per (forecast, job)
		points := forecast.Timeseries
		metrics := forecast.Metrics
		forecast.Timeseries = nil
		forecast.Metrics = nil

		if err := s.forecasts.CreateForecast(ctx, forecast); err != nil {
			return nil, nil, nil, fmt.Errorf("output stage: %w", err)
		}
		if len(points) > 0 {
			if err := s.forecasts.SaveTimeseries(ctx, forecast.ID, points); err != nil {
				return nil, nil, nil, fmt.Errorf("output stage: %w", err)
			}
		}
		if metrics != nil {
			if err := s.forecasts.SaveMetrics(ctx, forecast.ID, metrics); err != nil {
				return nil, nil, nil, fmt.Errorf("output stage: %w", err)
			}
		}

		forecast.Timeseries = points
		forecast.Metrics = metrics
		summary.ForecastsSaved++
	}

	for i := range aggregate.Failed {
		if err := s.forecasts.SaveFailure(ctx, &aggregate.Failed[i]); err != nil {
			return nil, nil, nil, fmt.Errorf("output stage: %w", err)
		}
		summary.FailuresSaved++
	}

	actions := append(s.deriveActions(job, aggregate), extraActions...)
	for i := range actions {
		if err := s.actions.CreateAction(ctx, &actions[i]); err != nil {
			return nil, nil, nil, fmt.Errorf("output stage: %w", err)
		}
		summary.ActionsSaved++
	}

	alerts := s.deriveAlerts(job, aggregate)
	for i := range alerts {
		if err := s.alerts.CreateAlert(ctx, &alerts[i]); err != nil {
			return nil, nil, nil, fmt.Errorf("output stage: %w", err)
		}
		summary.AlertsCreated++
	}

	// Retention sweep; a sweep failure never fails the run
	if days := s.config.Alerts.RetentionDays; days > 0 {
		cutoff := time.Now().AddDate(0, 0, -days)
		removed, err := s.alerts.DeleteAlertsBefore(ctx, cutoff)
		if err != nil {
			s.logger.Warn().Err(err).Msg("Alert retention sweep failed")
		} else if removed > 0 {
			s.logger.Debug().
				Int("removed", removed).
				Str("cutoff", cutoff.Format(time.RFC3339)).
				Msg("Expired alerts removed")
		}
	}

	if s.config.Report.Enabled && s.report != nil {
		path, err := s.report.Generate(job, aggregate.Succeeded, alerts)
		if err != nil {
			s.logger.Warn().Err(err).Msg("Run report generation failed")
		} else {
			summary.ReportPath = path
		}
	}

	s.logger.Info().
		Str("job_id", job.ID).
		Int("forecasts", summary.ForecastsSaved).
		Int("actions", summary.ActionsSaved).
		Int("alerts", summary.AlertsCreated).
		Int("failures", summary.FailuresSaved).
		Msg("Output stage complete")

	return summary, actions, alerts, nil
}

// deriveActions applies the recommendation rules to the forecast set
func (s *OutputStage) deriveActions(job *models.PipelineJob, aggregate *models.AggregateResult) []models.ActionRecommendation {
	now := time.Now()
	var actions []models.ActionRecommendation

	var capacityProducts []string
	var inventoryProducts []string
	for _, forecast := range aggregate.Succeeded {
		if forecast.Trend == models.TrendUp && forecast.ChangePercent > s.config.Alerts.ChangeThresholdPercent {
			capacityProducts = append(capacityProducts, forecast.ProductCode)
		}
		if forecast.Trend == models.TrendStable && forecast.ForecastUnits > 0 &&
			float64(forecast.CurrentStock) > 1.5*forecast.ForecastUnits {
			inventoryProducts = append(inventoryProducts, forecast.ProductCode)
		}
	}

	if len(capacityProducts) > 0 {
		deadline := now.AddDate(0, 0, 14)
		actions = append(actions, models.ActionRecommendation{
			ID:               common.NewActionID(),
			JobID:            job.ID,
			ActionType:       "capacity_planning",
			Category:         "production",
			Title:            fmt.Sprintf("Plan capacity for %d products with rising demand", len(capacityProducts)),
			Description:      "Forecast demand rose past the alert threshold for these products. Review line capacity and supplier commitments for the coming horizon.",
			Priority:         models.ActionPriorityHigh,
			Status:           models.ActionStatusPending,
			AffectedProducts: capacityProducts,
			ExpectedImpact:   "Avoid stockouts on rising-demand products",
			EstimatedCost:    float64(len(capacityProducts)) * 5000,
			Items: []models.ActionItem{
				{Task: "Confirm raw material availability"},
				{Task: "Review production line allocation"},
				{Task: "Update supplier delivery schedules"},
			},
			Deadline:        &deadline,
			ConfidenceScore: 70,
			Provenance:      job.Provenance,
			CreatedAt:       now,
			UpdatedAt:       now,
		})
	}

	if len(inventoryProducts) > 0 {
		deadline := now.AddDate(0, 0, 30)
		actions = append(actions, models.ActionRecommendation{
			ID:               common.NewActionID(),
			JobID:            job.ID,
			ActionType:       "inventory_optimization",
			Category:         "inventory",
			Title:            fmt.Sprintf("Reduce excess stock on %d stable products", len(inventoryProducts)),
			Description:      "Current stock exceeds 1.5x the forecast horizon demand with a stable trend. Consider drawing down inventory.",
			Priority:         models.ActionPriorityMedium,
			Status:           models.ActionStatusPending,
			AffectedProducts: inventoryProducts,
			ExpectedImpact:   "Free working capital tied up in slow stock",
			EstimatedCost:    0,
			Items: []models.ActionItem{
				{Task: "Pause replenishment orders"},
				{Task: "Review warehouse holding costs"},
			},
			Deadline:        &deadline,
			ConfidenceScore: 60,
			Provenance:      job.Provenance,
			CreatedAt:       now,
			UpdatedAt:       now,
		})
	}

	return actions
}

// deriveAlerts raises demand-change alerts per forecast and a capacity-risk
// alert when the aggregate exceeds configured capacity
func (s *OutputStage) deriveAlerts(job *models.PipelineJob, aggregate *models.AggregateResult) []models.Alert {
	now := time.Now()
	var alerts []models.Alert

	warning := s.config.Alerts.ChangeThresholdPercent
	critical := s.config.Alerts.CriticalThresholdPercent

	for _, forecast := range aggregate.Succeeded {
		magnitude := forecast.ChangePercent
		if magnitude < 0 {
			magnitude = -magnitude
		}

		var severity models.AlertSeverity
		switch {
		case magnitude > critical:
			severity = models.AlertSeverityCritical
		case magnitude > warning:
			severity = models.AlertSeverityWarning
		default:
			continue
		}

		direction := "increase"
		if forecast.ChangePercent < 0 {
			direction = "decrease"
		}
		alerts = append(alerts, models.Alert{
			ID:               common.NewAlertID(),
			JobID:            job.ID,
			AlertType:        "demand_change",
			Severity:         severity,
			Message:          fmt.Sprintf("Forecast demand %s of %.1f%% for %s", direction, magnitude, forecast.ProductCode),
			ForecastID:       forecast.ID,
			AffectedProducts: []string{forecast.ProductCode},
			ChangePercent:    forecast.ChangePercent,
			CreatedAt:        now,
		})
	}

	if capacity := s.config.Pipeline.CapacityUnits; capacity > 0 && aggregate.TotalForecastUnits > float64(capacity) {
		var affected []string
		for _, forecast := range aggregate.Succeeded {
			affected = append(affected, forecast.ProductCode)
		}
		alerts = append(alerts, models.Alert{
			ID:               common.NewAlertID(),
			JobID:            job.ID,
			AlertType:        "capacity_risk",
			Severity:         models.AlertSeverityCritical,
			Message:          fmt.Sprintf("Aggregate forecast of %.0f units exceeds capacity of %d units", aggregate.TotalForecastUnits, capacity),
			AffectedProducts: affected,
			CreatedAt:        now,
		})
	}

	return alerts
}
