package pipeline

import (
	"sort"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/demandcast/internal/models"
)

// Aggregate merges all batch results into one result set. Succeeded forecasts
// are ordered by product code. Every universe member must appear in exactly
// one of succeeded or failed; anything missing is reported as a
// data-integrity warning, never silently dropped.
func Aggregate(universe []string, results []models.BatchResult, logger arbor.ILogger) *models.AggregateResult {
	aggregate := &models.AggregateResult{}

	seen := make(map[string]bool, len(universe))
	for _, result := range results {
		for _, forecast := range result.Succeeded {
			aggregate.Succeeded = append(aggregate.Succeeded, forecast)
			aggregate.TotalForecastUnits += forecast.ForecastUnits
			seen[forecast.ProductCode] = true
		}
		for _, failure := range result.Failed {
			aggregate.Failed = append(aggregate.Failed, failure)
			seen[failure.ProductCode] = true
		}
	}

	sort.Slice(aggregate.Succeeded, func(i, j int) bool {
		return aggregate.Succeeded[i].ProductCode < aggregate.Succeeded[j].ProductCode
	})

	for _, code := range universe {
		if !seen[code] {
			aggregate.MissingProducts = append(aggregate.MissingProducts, code)
		}
	}
	sort.Strings(aggregate.MissingProducts)

	if len(aggregate.MissingProducts) > 0 {
		logger.Warn().
			Int("missing", len(aggregate.MissingProducts)).
			Strs("products", aggregate.MissingProducts).
			Msg("Data integrity warning: products unaccounted for after aggregation")
	}

	return aggregate
}
