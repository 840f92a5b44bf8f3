package interfaces

import (
	"context"

	"github.com/ternarybob/demandcast/internal/models"
)

// ProductContext is the anonymized payload sent to the insight provider.
// It must never carry internal identifying detail (stock levels, production
// plans, internal product names).
type ProductContext struct {
	// ProductAlias is an anonymized stand-in for the product code
	ProductAlias string
	Category     string
	// Snippets are externally sourced document excerpts with relevance scores
	Snippets []ContextSnippet
}

// ContextSnippet is one retrieved document excerpt
type ContextSnippet struct {
	Content   string
	Source    string
	Score     float64
	Sentiment string
}

// InsightService generates a market insight for one product from retrieved
// external context. This is a remote model call with latency and failure
// characteristics; callers bound it with a timeout and at most one retry.
type InsightService interface {
	// Analyze returns a market insight for the given anonymized context.
	// Implementations apply their own per-call timeout on top of ctx.
	Analyze(ctx context.Context, productCtx ProductContext) (*models.MarketInsight, error)

	// HealthCheck verifies the provider is reachable
	HealthCheck(ctx context.Context) error

	// Provider returns the provider name ("claude", "gemini")
	Provider() string

	Close() error
}
