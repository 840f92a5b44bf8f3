package models

import (
	"time"
)

// Trend classifies forecast direction versus baseline
type Trend string

const (
	TrendUp     Trend = "up"
	TrendDown   Trend = "down"
	TrendStable Trend = "stable"
)

// TimeseriesPoint is one day of the forecast horizon with bounds
type TimeseriesPoint struct {
	Date       time.Time `json:"date"`
	Forecast   float64   `json:"forecast"`
	UpperBound float64   `json:"upper_bound"`
	LowerBound float64   `json:"lower_bound"`
}

// ModelMetrics are the fit metrics reported by the forecast model
type ModelMetrics struct {
	MAPE     float64 `json:"mape"`
	RMSE     float64 `json:"rmse"`
	MAE      float64 `json:"mae"`
	RSquared float64 `json:"r_squared"`
}

// ForecastResult is the per-product forecast produced by one pipeline run.
// Written once per (product, job); never mutated after creation.
type ForecastResult struct {
	ID          string `json:"id" badgerhold:"key"` // fct_{uuid}
	JobID       string `json:"job_id" badgerhold:"index"`
	ProductCode string `json:"product_code" badgerhold:"index"`
	ProductName string `json:"product_name"`
	Category    string `json:"category"`

	HorizonDays   int       `json:"horizon_days"`
	PeriodStart   time.Time `json:"period_start"`
	PeriodEnd     time.Time `json:"period_end"`
	ForecastUnits float64   `json:"forecast_units"`
	CurrentStock  int       `json:"current_stock"`

	Trend         Trend   `json:"trend"`
	ChangePercent float64 `json:"change_percent"` // vs trailing baseline
	Confidence    float64 `json:"confidence"`     // 0-100

	Timeseries []TimeseriesPoint `json:"timeseries,omitempty"`
	Metrics    *ModelMetrics     `json:"metrics,omitempty"`

	ModelType  string     `json:"model_type"`
	Provenance Provenance `json:"provenance"`
	CreatedAt  time.Time  `json:"created_at"`
}

// ProductFailure marks one product that could not be forecast.
// Failed products are reported explicitly, never silently dropped.
type ProductFailure struct {
	ProductCode string `json:"product_code"`
	Stage       string `json:"stage"` // "retrieve", "analyze", "fuse", "forecast"
	Reason      string `json:"reason"`
	JobID       string `json:"job_id"`
}

// BatchResult is the outcome of one batch worker
type BatchResult struct {
	BatchIndex int              `json:"batch_index"`
	Succeeded  []ForecastResult `json:"succeeded"`
	Failed     []ProductFailure `json:"failed"`
}

// AggregateResult merges all batch outputs into one result set.
// Succeeded is ordered by product code for determinism.
type AggregateResult struct {
	Succeeded []ForecastResult `json:"succeeded"`
	Failed    []ProductFailure `json:"failed"`

	TotalForecastUnits float64 `json:"total_forecast_units"`
	// MissingProducts are universe members found in neither succeeded nor
	// failed; a non-empty list is a data-integrity warning.
	MissingProducts []string `json:"missing_products,omitempty"`
}

// OutputSummary reports what the output stage persisted
type OutputSummary struct {
	ForecastsSaved int    `json:"forecasts_saved"`
	ActionsSaved   int    `json:"actions_saved"`
	AlertsCreated  int    `json:"alerts_created"`
	FailuresSaved  int    `json:"failures_saved"`
	ReportPath     string `json:"report_path,omitempty"`
}
