// -----------------------------------------------------------------------
// Batch Processor - Per-product retrieve, analyze, fuse, forecast
// One failed product never aborts the rest of the batch
// -----------------------------------------------------------------------

package pipeline

import (
	"context"
	"fmt"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/demandcast/internal/common"
	"github.com/ternarybob/demandcast/internal/interfaces"
	"github.com/ternarybob/demandcast/internal/models"
	"github.com/ternarybob/demandcast/internal/services/insight"
)

// BatchProcessor runs the per-product stage chain for one batch
type BatchProcessor struct {
	documents interfaces.DocumentStorage
	products  interfaces.ProductStorage
	insights  interfaces.InsightService
	model     interfaces.ForecastModel
	topN      int
	logger    arbor.ILogger
}

// NewBatchProcessor creates a batch processor over the shared services
func NewBatchProcessor(
	documents interfaces.DocumentStorage,
	products interfaces.ProductStorage,
	insights interfaces.InsightService,
	model interfaces.ForecastModel,
	topN int,
	logger arbor.ILogger,
) *BatchProcessor {
	if topN <= 0 {
		topN = 5
	}
	return &BatchProcessor{
		documents: documents,
		products:  products,
		insights:  insights,
		model:     model,
		topN:      topN,
		logger:    logger,
	}
}

// Process runs retrieve, analyze, fuse, forecast for every product in the
// batch. Per-product failures are collected, never propagated. When the
// context is cancelled mid-batch the remaining products are reported as
// failures so the aggregate still covers the full batch.
func (p *BatchProcessor) Process(ctx context.Context, batch models.ProductBatch, jobID string) models.BatchResult {
	result := models.BatchResult{BatchIndex: batch.Index}
	anonymizer := insight.NewAnonymizer()

	for i, code := range batch.Products {
		if err := ctx.Err(); err != nil {
			for _, remaining := range batch.Products[i:] {
				result.Failed = append(result.Failed, models.ProductFailure{
					ProductCode: remaining,
					Stage:       "retrieve",
					Reason:      fmt.Sprintf("batch cancelled: %v", err),
					JobID:       jobID,
				})
			}
			break
		}

		forecast, failure := p.processProduct(ctx, code, jobID, anonymizer)
		if failure != nil {
			result.Failed = append(result.Failed, *failure)
			continue
		}
		result.Succeeded = append(result.Succeeded, *forecast)
	}

	p.logger.Debug().
		Int("batch", batch.Index).
		Int("succeeded", len(result.Succeeded)).
		Int("failed", len(result.Failed)).
		Msg("Batch processed")

	return result
}

// processProduct runs the stage chain for one product
func (p *BatchProcessor) processProduct(ctx context.Context, code, jobID string, anonymizer *insight.Anonymizer) (*models.ForecastResult, *models.ProductFailure) {
	fail := func(stage, reason string) *models.ProductFailure {
		p.logger.Warn().
			Str("product", code).
			Str("stage", stage).
			Str("reason", reason).
			Msg("Product failed")
		return &models.ProductFailure{
			ProductCode: code,
			Stage:       stage,
			Reason:      reason,
			JobID:       jobID,
		}
	}

	// Retrieve: top-N relevant documents; an empty result is fine
	product, err := p.products.GetProduct(ctx, code)
	if err != nil || product == nil {
		return nil, fail("fuse", "no internal product data")
	}

	docs, err := p.documents.Query(ctx, retrievalTags(product), p.topN)
	if err != nil {
		return nil, fail("retrieve", err.Error())
	}
	retrieved := models.RetrievedContext{ProductCode: product.Code, Documents: docs}

	// Analyze: remote insight call with anonymized context. A provider
	// failure leaves the insight nil; the product proceeds on internal data.
	marketInsight := p.analyze(ctx, product, retrieved, anonymizer)

	// Fuse: merge insight with internal operational data
	fused := fuse(product, marketInsight, retrieved)

	// Forecast
	forecast, err := p.model.Predict(ctx, fused)
	if err != nil {
		return nil, fail("forecast", err.Error())
	}

	forecast.ID = common.NewForecastID()
	forecast.JobID = jobID
	return forecast, nil
}

// analyze calls the insight provider with anonymized context. Never fails the
// product: an exhausted provider yields a nil insight.
func (p *BatchProcessor) analyze(ctx context.Context, product *models.ProductRecord, retrieved models.RetrievedContext, anonymizer *insight.Anonymizer) *models.MarketInsight {
	productCtx := interfaces.ProductContext{
		ProductAlias: anonymizer.Alias(product.Code),
		Category:     product.Category,
	}
	for _, scored := range retrieved.Documents {
		productCtx.Snippets = append(productCtx.Snippets, interfaces.ContextSnippet{
			Content:   anonymizer.Scrub(scored.Document.Content, product.Code, product.Name),
			Source:    scored.Document.Source,
			Score:     scored.Score,
			Sentiment: string(scored.Document.Sentiment),
		})
	}

	marketInsight, err := p.insights.Analyze(ctx, productCtx)
	if err != nil {
		p.logger.Warn().
			Err(err).
			Str("product", product.Code).
			Msg("Insight unavailable, proceeding on internal data")
		return nil
	}

	// Re-identify: the provider only ever saw the alias
	marketInsight.ProductCode = product.Code
	return marketInsight
}

// fuse merges the insight with internal data and derives the model features
func fuse(product *models.ProductRecord, marketInsight *models.MarketInsight, retrieved models.RetrievedContext) *models.FusedDataset {
	return &models.FusedDataset{
		ProductCode:     product.Code,
		Product:         *product,
		Insight:         marketInsight,
		HistoricalTrend: historicalTrend(product.HistoricalSales),
		InventoryStatus: inventoryStatus(product),
		MarketSignal:    marketSignal(retrieved.Documents),
	}
}

// retrievalTags is the tag set used to query the document store for one product
func retrievalTags(product *models.ProductRecord) []string {
	tags := []string{"product:" + product.Code}
	if product.Category != "" {
		tags = append(tags, "category:"+product.Category)
	}
	tags = append(tags, product.RelevanceTags...)
	return tags
}

// historicalTrend compares the most recent period against the trailing mean
func historicalTrend(history []float64) models.Trend {
	if len(history) < 2 {
		return models.TrendStable
	}

	last := history[len(history)-1]
	prior := history[:len(history)-1]
	sum := 0.0
	for _, v := range prior {
		sum += v
	}
	avg := sum / float64(len(prior))
	if avg == 0 {
		return models.TrendStable
	}

	change := (last - avg) / avg * 100
	switch {
	case change > 5:
		return models.TrendUp
	case change < -5:
		return models.TrendDown
	default:
		return models.TrendStable
	}
}

// inventoryStatus flags stock that cannot cover the most recent sales period
func inventoryStatus(product *models.ProductRecord) string {
	if len(product.HistoricalSales) == 0 {
		return "adequate"
	}
	lastPeriod := product.HistoricalSales[len(product.HistoricalSales)-1]
	if float64(product.CurrentStock) < lastPeriod {
		return "low"
	}
	return "adequate"
}

// marketSignal reads the retrieved documents' sentiment balance
func marketSignal(retrieved []models.ScoredDocument) string {
	positive, negative := 0, 0
	for _, scored := range retrieved {
		switch scored.Document.Sentiment {
		case models.SentimentPositive:
			positive++
		case models.SentimentNegative:
			negative++
		}
	}
	switch {
	case positive > negative:
		return "expanding"
	case negative > positive:
		return "contracting"
	default:
		return "flat"
	}
}
