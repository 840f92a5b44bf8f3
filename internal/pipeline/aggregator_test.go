package pipeline

import (
	"reflect"
	"testing"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/demandcast/internal/models"
)

func TestAggregateMergesAndOrders(t *testing.T) {
	universe := []string{"aa", "bb", "cc", "dd"}
	results := []models.BatchResult{
		{
			BatchIndex: 0,
			Succeeded: []models.ForecastResult{
				{ProductCode: "cc", ForecastUnits: 50},
				{ProductCode: "aa", ForecastUnits: 100},
			},
		},
		{
			BatchIndex: 1,
			Succeeded: []models.ForecastResult{
				{ProductCode: "bb", ForecastUnits: 75},
			},
			Failed: []models.ProductFailure{
				{ProductCode: "dd", Stage: "forecast", Reason: "insufficient history"},
			},
		},
	}

	aggregate := Aggregate(universe, results, arbor.NewLogger())

	var codes []string
	for _, forecast := range aggregate.Succeeded {
		codes = append(codes, forecast.ProductCode)
	}
	want := []string{"aa", "bb", "cc"}
	if !reflect.DeepEqual(codes, want) {
		t.Errorf("succeeded order = %v, want %v", codes, want)
	}

	if aggregate.TotalForecastUnits != 225 {
		t.Errorf("total forecast units = %v, want 225", aggregate.TotalForecastUnits)
	}
	if len(aggregate.Failed) != 1 || aggregate.Failed[0].ProductCode != "dd" {
		t.Errorf("unexpected failed set: %+v", aggregate.Failed)
	}
	if len(aggregate.MissingProducts) != 0 {
		t.Errorf("no products should be missing, got %v", aggregate.MissingProducts)
	}
}

func TestAggregateReportsMissingProducts(t *testing.T) {
	universe := []string{"aa", "bb", "cc"}
	results := []models.BatchResult{
		{Succeeded: []models.ForecastResult{{ProductCode: "bb", ForecastUnits: 10}}},
	}

	aggregate := Aggregate(universe, results, arbor.NewLogger())

	want := []string{"aa", "cc"}
	if !reflect.DeepEqual(aggregate.MissingProducts, want) {
		t.Errorf("missing products = %v, want %v", aggregate.MissingProducts, want)
	}
}

func TestAggregateEmptyResults(t *testing.T) {
	aggregate := Aggregate(nil, nil, arbor.NewLogger())
	if len(aggregate.Succeeded) != 0 || len(aggregate.Failed) != 0 || aggregate.TotalForecastUnits != 0 {
		t.Errorf("empty input should produce an empty aggregate: %+v", aggregate)
	}
}
