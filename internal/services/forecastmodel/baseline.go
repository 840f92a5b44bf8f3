// -----------------------------------------------------------------------
// Baseline Forecast Model - Trailing moving average with market adjustment
// -----------------------------------------------------------------------

package forecastmodel

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/demandcast/internal/common"
	"github.com/ternarybob/demandcast/internal/interfaces"
	"github.com/ternarybob/demandcast/internal/models"
)

// movingAverageWindow is the number of trailing periods in the baseline
const movingAverageWindow = 3

// periodDays is the length of one historical sales period
const periodDays = 30

// BaselineModel forecasts demand as the trailing moving average of historical
// sales, adjusted by the fused market signal. Deterministic for a given input.
type BaselineModel struct {
	horizonDays int
	factor      float64
	logger      arbor.ILogger
}

var _ interfaces.ForecastModel = (*BaselineModel)(nil)

// NewBaselineModel creates the baseline model from pipeline configuration
func NewBaselineModel(config *common.PipelineConfig, logger arbor.ILogger) *BaselineModel {
	horizon := config.ForecastHorizon
	if horizon <= 0 {
		horizon = 30
	}
	factor := config.BaselineFactor
	if factor <= 0 {
		factor = 1.0
	}
	return &BaselineModel{
		horizonDays: horizon,
		factor:      factor,
		logger:      logger,
	}
}

// Name identifies the model on forecast records
func (m *BaselineModel) Name() string {
	return "baseline-ma3"
}

// Predict produces a forecast for one fused dataset. Products with fewer
// than movingAverageWindow historical periods cannot be forecast.
func (m *BaselineModel) Predict(ctx context.Context, fused *models.FusedDataset) (*models.ForecastResult, error) {
	if fused == nil {
		return nil, fmt.Errorf("fused dataset cannot be nil")
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	history := fused.Product.HistoricalSales
	if len(history) < movingAverageWindow {
		return nil, fmt.Errorf("insufficient history for %s: %d periods, need %d",
			fused.ProductCode, len(history), movingAverageWindow)
	}

	baseline := mean(history[len(history)-movingAverageWindow:])
	adjustment := m.marketAdjustment(fused)
	perPeriod := baseline * adjustment * m.factor

	horizonPeriods := float64(m.horizonDays) / float64(periodDays)
	forecastUnits := perPeriod * horizonPeriods

	changePercent := 0.0
	if baseline > 0 {
		changePercent = (perPeriod - baseline) / baseline * 100
	}

	now := time.Now()
	result := &models.ForecastResult{
		ProductCode:   fused.ProductCode,
		ProductName:   fused.Product.Name,
		Category:      fused.Product.Category,
		HorizonDays:   m.horizonDays,
		PeriodStart:   now,
		PeriodEnd:     now.AddDate(0, 0, m.horizonDays),
		ForecastUnits: round1(forecastUnits),
		CurrentStock:  fused.Product.CurrentStock,
		Trend:         classifyTrend(history),
		ChangePercent: round1(changePercent),
		Confidence:    m.confidence(fused, len(history)),
		Timeseries:    m.buildTimeseries(now, perPeriod),
		Metrics:       computeMetrics(history),
		ModelType:     m.Name(),
		Provenance:    models.ProvenanceReal,
		CreatedAt:     now,
	}

	m.logger.Debug().
		Str("product", fused.ProductCode).
		Float64("units", result.ForecastUnits).
		Str("trend", string(result.Trend)).
		Float64("change_percent", result.ChangePercent).
		Msg("Baseline forecast produced")

	return result, nil
}

// marketAdjustment scales the baseline by the fused market signal, weighted
// by insight confidence. A nil insight leaves the baseline untouched.
func (m *BaselineModel) marketAdjustment(fused *models.FusedDataset) float64 {
	if fused.Insight == nil {
		return 1.0
	}

	confidence := fused.Insight.Confidence
	if confidence <= 0 {
		return 1.0
	}
	if confidence > 1 {
		confidence = 1
	}

	switch fused.MarketSignal {
	case "expanding":
		return 1.0 + 0.15*confidence
	case "contracting":
		return 1.0 - 0.15*confidence
	default:
		return 1.0
	}
}

// confidence scores the forecast 0-100 from history depth and insight quality
func (m *BaselineModel) confidence(fused *models.FusedDataset, historyLen int) float64 {
	score := 50.0

	// More history, more confidence, capped at +25
	depth := float64(historyLen-movingAverageWindow) * 5
	if depth > 25 {
		depth = 25
	}
	if depth > 0 {
		score += depth
	}

	if fused.Insight != nil {
		score += fused.Insight.Confidence * 20
	}

	if score > 100 {
		score = 100
	}
	return round1(score)
}

// buildTimeseries projects the per-period rate across the horizon with
// symmetric 10 percent bounds
func (m *BaselineModel) buildTimeseries(start time.Time, perPeriod float64) []models.TimeseriesPoint {
	daily := perPeriod / float64(periodDays)

	points := make([]models.TimeseriesPoint, m.horizonDays)
	for i := 0; i < m.horizonDays; i++ {
		points[i] = models.TimeseriesPoint{
			Date:       start.AddDate(0, 0, i+1),
			Forecast:   round1(daily),
			UpperBound: round1(daily * 1.1),
			LowerBound: round1(daily * 0.9),
		}
	}
	return points
}

// classifyTrend compares the trailing window to the prior window.
// Within 5 percent either way is stable.
func classifyTrend(history []float64) models.Trend {
	if len(history) < 2*movingAverageWindow {
		return models.TrendStable
	}

	recent := mean(history[len(history)-movingAverageWindow:])
	prior := mean(history[len(history)-2*movingAverageWindow : len(history)-movingAverageWindow])
	if prior == 0 {
		return models.TrendStable
	}

	change := (recent - prior) / prior * 100
	switch {
	case change > 5:
		return models.TrendUp
	case change < -5:
		return models.TrendDown
	default:
		return models.TrendStable
	}
}

// computeMetrics runs an in-sample one-step moving average backtest
func computeMetrics(history []float64) *models.ModelMetrics {
	if len(history) <= movingAverageWindow {
		return nil
	}

	var absErrSum, sqErrSum, pctErrSum float64
	var actuals []float64
	n := 0

	for i := movingAverageWindow; i < len(history); i++ {
		predicted := mean(history[i-movingAverageWindow : i])
		actual := history[i]

		err := actual - predicted
		absErrSum += math.Abs(err)
		sqErrSum += err * err
		if actual != 0 {
			pctErrSum += math.Abs(err/actual) * 100
		}
		actuals = append(actuals, actual)
		n++
	}
	if n == 0 {
		return nil
	}

	actualMean := mean(actuals)
	var totalSq float64
	for _, a := range actuals {
		totalSq += (a - actualMean) * (a - actualMean)
	}
	rSquared := 0.0
	if totalSq > 0 {
		rSquared = 1 - sqErrSum/totalSq
	}

	return &models.ModelMetrics{
		MAPE:     round2(pctErrSum / float64(n)),
		RMSE:     round2(math.Sqrt(sqErrSum / float64(n))),
		MAE:      round2(absErrSum / float64(n)),
		RSquared: round2(rSquared),
	}
}

func mean(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	sum := 0.0
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}

func round1(v float64) float64 {
	return math.Round(v*10) / 10
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
