package forecastmodel

import (
	"context"
	"testing"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/demandcast/internal/common"
	"github.com/ternarybob/demandcast/internal/models"
)

func newTestModel() *BaselineModel {
	return NewBaselineModel(&common.PipelineConfig{
		ForecastHorizon: 30,
		BaselineFactor:  1.0,
	}, arbor.NewLogger())
}

func fusedWith(history []float64, signal string, insightConfidence float64) *models.FusedDataset {
	fused := &models.FusedDataset{
		ProductCode: "ac-compressor",
		Product: models.ProductRecord{
			Code:            "ac-compressor",
			Name:            "AC Compressor",
			Category:        "cooling",
			HistoricalSales: history,
			CurrentStock:    500,
		},
		MarketSignal: signal,
	}
	if insightConfidence > 0 {
		fused.Insight = &models.MarketInsight{
			ProductCode: "ac-compressor",
			Summary:     "summary",
			Confidence:  insightConfidence,
			Provider:    "stub",
		}
	}
	return fused
}

func TestPredictBaselineIsMovingAverage(t *testing.T) {
	model := newTestModel()

	// Trailing three periods average 120; no insight, no adjustment
	fused := fusedWith([]float64{80, 90, 100, 110, 120, 130}, "flat", 0)
	result, err := model.Predict(context.Background(), fused)
	if err != nil {
		t.Fatalf("Predict failed: %v", err)
	}

	if result.ForecastUnits != 120 {
		t.Errorf("expected forecast units 120, got %f", result.ForecastUnits)
	}
	if result.ChangePercent != 0 {
		t.Errorf("expected no change vs baseline, got %f", result.ChangePercent)
	}
	if result.Provenance != models.ProvenanceReal {
		t.Errorf("expected real provenance, got %s", result.Provenance)
	}
	if result.ModelType != "baseline-ma3" {
		t.Errorf("unexpected model type %q", result.ModelType)
	}
}

func TestPredictMarketAdjustment(t *testing.T) {
	model := newTestModel()
	history := []float64{100, 100, 100}

	t.Run("expanding signal raises the forecast", func(t *testing.T) {
		result, err := model.Predict(context.Background(), fusedWith(history, "expanding", 1.0))
		if err != nil {
			t.Fatalf("Predict failed: %v", err)
		}
		if result.ForecastUnits != 115 {
			t.Errorf("expected 115 units with full-confidence expansion, got %f", result.ForecastUnits)
		}
		if result.ChangePercent != 15 {
			t.Errorf("expected +15 percent change, got %f", result.ChangePercent)
		}
	})

	t.Run("contracting signal lowers the forecast", func(t *testing.T) {
		result, err := model.Predict(context.Background(), fusedWith(history, "contracting", 1.0))
		if err != nil {
			t.Fatalf("Predict failed: %v", err)
		}
		if result.ForecastUnits != 85 {
			t.Errorf("expected 85 units with full-confidence contraction, got %f", result.ForecastUnits)
		}
	})

	t.Run("nil insight means no adjustment", func(t *testing.T) {
		result, err := model.Predict(context.Background(), fusedWith(history, "expanding", 0))
		if err != nil {
			t.Fatalf("Predict failed: %v", err)
		}
		if result.ForecastUnits != 100 {
			t.Errorf("expected unadjusted 100 units without insight, got %f", result.ForecastUnits)
		}
	})
}

func TestPredictInsufficientHistory(t *testing.T) {
	model := newTestModel()
	if _, err := model.Predict(context.Background(), fusedWith([]float64{100, 110}, "flat", 0)); err == nil {
		t.Error("expected error for two periods of history")
	}
}

func TestPredictTimeseriesAndBounds(t *testing.T) {
	model := newTestModel()
	result, err := model.Predict(context.Background(), fusedWith([]float64{90, 90, 90}, "flat", 0))
	if err != nil {
		t.Fatalf("Predict failed: %v", err)
	}

	if len(result.Timeseries) != 30 {
		t.Fatalf("expected 30 daily points, got %d", len(result.Timeseries))
	}
	first := result.Timeseries[0]
	if first.Forecast != 3 {
		t.Errorf("expected 3 units/day, got %f", first.Forecast)
	}
	if first.UpperBound <= first.Forecast || first.LowerBound >= first.Forecast {
		t.Errorf("expected bounds around forecast, got %+v", first)
	}
	if !result.Timeseries[29].Date.After(result.Timeseries[0].Date) {
		t.Error("expected dates to advance across the horizon")
	}
}

func TestClassifyTrend(t *testing.T) {
	tests := []struct {
		name    string
		history []float64
		want    models.Trend
	}{
		{"rising", []float64{100, 100, 100, 120, 120, 120}, models.TrendUp},
		{"falling", []float64{120, 120, 120, 100, 100, 100}, models.TrendDown},
		{"flat", []float64{100, 100, 100, 102, 101, 100}, models.TrendStable},
		{"short history defaults stable", []float64{100, 120, 140}, models.TrendStable},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := classifyTrend(tt.history); got != tt.want {
				t.Errorf("classifyTrend(%v) = %s, want %s", tt.history, got, tt.want)
			}
		})
	}
}

func TestComputeMetrics(t *testing.T) {
	metrics := computeMetrics([]float64{100, 100, 100, 100, 100, 100})
	if metrics == nil {
		t.Fatal("expected metrics for six periods")
	}
	if metrics.MAE != 0 || metrics.RMSE != 0 {
		t.Errorf("expected zero error on constant series, got %+v", metrics)
	}

	if computeMetrics([]float64{100, 100, 100}) != nil {
		t.Error("expected nil metrics when history equals the window")
	}
}

func TestPredictDeterministic(t *testing.T) {
	model := newTestModel()
	fused := fusedWith([]float64{80, 90, 100, 110, 120, 130}, "expanding", 0.6)

	a, err := model.Predict(context.Background(), fused)
	if err != nil {
		t.Fatalf("Predict failed: %v", err)
	}
	b, err := model.Predict(context.Background(), fused)
	if err != nil {
		t.Fatalf("Predict failed: %v", err)
	}

	if a.ForecastUnits != b.ForecastUnits || a.ChangePercent != b.ChangePercent || a.Confidence != b.Confidence {
		t.Errorf("expected deterministic prediction, got %+v vs %+v", a, b)
	}
}
