package pipeline

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/demandcast/internal/models"
)

func testProduct(code string) *models.ProductRecord {
	return &models.ProductRecord{
		Code:            code,
		Name:            "Product " + code,
		Category:        "widgets",
		HistoricalSales: []float64{100, 110, 120},
		CurrentStock:    200,
	}
}

func TestBatchProcessorIsolatesProductFailures(t *testing.T) {
	products := newMemProductStorage(testProduct("p-01"), testProduct("p-02"), testProduct("p-03"))
	model := &stubForecastModel{failProducts: map[string]bool{"p-02": true}}
	processor := NewBatchProcessor(&memDocumentStorage{}, products, &stubInsightService{}, model, 5, arbor.NewLogger())

	batch := models.ProductBatch{Index: 0, Products: []string{"p-01", "p-02", "p-03"}}
	result := processor.Process(context.Background(), batch, "job-1")

	if len(result.Succeeded) != 2 {
		t.Fatalf("expected 2 forecasts, got %d", len(result.Succeeded))
	}
	if len(result.Failed) != 1 {
		t.Fatalf("expected 1 failure, got %d", len(result.Failed))
	}
	failure := result.Failed[0]
	if failure.ProductCode != "p-02" || failure.Stage != "forecast" {
		t.Errorf("unexpected failure: %+v", failure)
	}
	for _, forecast := range result.Succeeded {
		if forecast.ID == "" || forecast.JobID != "job-1" {
			t.Errorf("forecast missing identity: %+v", forecast)
		}
	}
}

func TestBatchProcessorUnknownProductFails(t *testing.T) {
	products := newMemProductStorage(testProduct("p-01"))
	processor := NewBatchProcessor(&memDocumentStorage{}, products, &stubInsightService{}, &stubForecastModel{}, 5, arbor.NewLogger())

	batch := models.ProductBatch{Index: 0, Products: []string{"p-01", "p-99"}}
	result := processor.Process(context.Background(), batch, "job-1")

	if len(result.Succeeded) != 1 {
		t.Fatalf("expected 1 forecast, got %d", len(result.Succeeded))
	}
	if len(result.Failed) != 1 || result.Failed[0].Stage != "fuse" {
		t.Errorf("unknown product should fail at the fuse stage: %+v", result.Failed)
	}
}

func TestBatchProcessorProceedsWithoutInsight(t *testing.T) {
	products := newMemProductStorage(testProduct("p-01"))
	insights := &stubInsightService{err: fmt.Errorf("provider exhausted")}
	processor := NewBatchProcessor(&memDocumentStorage{}, products, insights, &stubForecastModel{}, 5, arbor.NewLogger())

	batch := models.ProductBatch{Index: 0, Products: []string{"p-01"}}
	result := processor.Process(context.Background(), batch, "job-1")

	if len(result.Failed) != 0 {
		t.Fatalf("insight failure must not fail the product: %+v", result.Failed)
	}
	if len(result.Succeeded) != 1 {
		t.Fatalf("expected 1 forecast, got %d", len(result.Succeeded))
	}
	if insights.calls != 1 {
		t.Errorf("expected 1 insight call, got %d", insights.calls)
	}
}

func TestBatchProcessorCancelledContext(t *testing.T) {
	products := newMemProductStorage(testProduct("p-01"), testProduct("p-02"))
	processor := NewBatchProcessor(&memDocumentStorage{}, products, &stubInsightService{}, &stubForecastModel{}, 5, arbor.NewLogger())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	batch := models.ProductBatch{Index: 2, Products: []string{"p-01", "p-02"}}
	result := processor.Process(ctx, batch, "job-1")

	if len(result.Succeeded) != 0 {
		t.Errorf("no forecasts expected after cancellation, got %d", len(result.Succeeded))
	}
	if len(result.Failed) != 2 {
		t.Fatalf("all batch products must be reported failed, got %d", len(result.Failed))
	}
	for _, failure := range result.Failed {
		if failure.JobID != "job-1" {
			t.Errorf("failure missing job id: %+v", failure)
		}
	}
	if result.BatchIndex != 2 {
		t.Errorf("batch index = %d, want 2", result.BatchIndex)
	}
}

func TestFuseDerivedFeatures(t *testing.T) {
	product := &models.ProductRecord{
		Code:            "p-01",
		HistoricalSales: []float64{100, 100, 130},
		CurrentStock:    50,
	}
	retrieved := models.RetrievedContext{
		ProductCode: "p-01",
		Documents: []models.ScoredDocument{
			{Document: &models.TaggedDocument{Sentiment: models.SentimentPositive}},
			{Document: &models.TaggedDocument{Sentiment: models.SentimentPositive}},
			{Document: &models.TaggedDocument{Sentiment: models.SentimentNegative}},
		},
	}

	fused := fuse(product, nil, retrieved)

	if fused.HistoricalTrend != models.TrendUp {
		t.Errorf("historical trend = %s, want up", fused.HistoricalTrend)
	}
	if fused.InventoryStatus != "low" {
		t.Errorf("inventory status = %s, want low", fused.InventoryStatus)
	}
	if fused.MarketSignal != "expanding" {
		t.Errorf("market signal = %s, want expanding", fused.MarketSignal)
	}
	if fused.Insight != nil {
		t.Errorf("insight should stay nil")
	}
}

func TestFallbackSetIsDeterministic(t *testing.T) {
	products := newMemProductStorage(
		&models.ProductRecord{Code: "p-02", Name: "Two", HistoricalSales: []float64{60, 80, 100}, CurrentStock: 40},
		&models.ProductRecord{Code: "p-01", Name: "One"},
	)

	first := FallbackSet(context.Background(), []string{"p-02", "p-01", "p-03"}, products, 30, "job-a")
	second := FallbackSet(context.Background(), []string{"p-03", "p-01", "p-02"}, products, 30, "job-b")

	if len(first.Succeeded) != 3 || len(second.Succeeded) != 3 {
		t.Fatalf("every universe member needs a fallback forecast")
	}
	for i := range first.Succeeded {
		a, b := first.Succeeded[i], second.Succeeded[i]
		if a.ProductCode != b.ProductCode || a.ForecastUnits != b.ForecastUnits {
			t.Errorf("fallback differs between runs: %s/%.1f vs %s/%.1f", a.ProductCode, a.ForecastUnits, b.ProductCode, b.ForecastUnits)
		}
	}

	// Sorted by product code; stored history drives the units
	if first.Succeeded[0].ProductCode != "p-01" {
		t.Errorf("fallback set not sorted: first is %s", first.Succeeded[0].ProductCode)
	}
	if got := first.Succeeded[1].ForecastUnits; got != 80 {
		t.Errorf("p-02 fallback units = %v, want 80 (mean of history)", got)
	}
	if got := first.Succeeded[2].ForecastUnits; got != fallbackUnitsPerPeriod {
		t.Errorf("unknown product fallback units = %v, want %v", got, fallbackUnitsPerPeriod)
	}

	for _, forecast := range first.Succeeded {
		if forecast.Provenance != models.ProvenanceFallback {
			t.Errorf("fallback forecast carries provenance %s", forecast.Provenance)
		}
		if forecast.ModelType != "fallback" {
			t.Errorf("fallback forecast model type = %s", forecast.ModelType)
		}
		if forecast.Confidence != 10 {
			t.Errorf("fallback confidence = %v, want 10", forecast.Confidence)
		}
	}
}

func TestFallbackActionsFlagReview(t *testing.T) {
	actions := FallbackActions("job-1", "deadline exceeded during ingestion")
	if len(actions) != 1 {
		t.Fatalf("expected a single review action, got %d", len(actions))
	}
	action := actions[0]
	if action.Provenance != models.ProvenanceFallback {
		t.Errorf("action provenance = %s, want fallback", action.Provenance)
	}
	if action.Priority != models.ActionPriorityHigh {
		t.Errorf("action priority = %s, want high", action.Priority)
	}
	if action.Deadline == nil || action.Deadline.Before(time.Now()) {
		t.Errorf("review action needs a future deadline")
	}
}
