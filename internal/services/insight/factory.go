package insight

import (
	"context"
	"fmt"
	"time"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/demandcast/internal/common"
	"github.com/ternarybob/demandcast/internal/interfaces"
	"github.com/ternarybob/demandcast/internal/models"
)

// NewInsightService creates the configured provider wrapped with retry
// handling
func NewInsightService(cfg *common.Config, kvStorage interfaces.KeyValueStorage, logger arbor.ILogger) (interfaces.InsightService, error) {
	var base interfaces.InsightService
	var err error

	switch cfg.LLM.DefaultProvider {
	case common.LLMProviderClaude:
		base, err = NewClaudeService(&cfg.Claude, kvStorage, logger)
	case common.LLMProviderGemini:
		base, err = NewGeminiService(&cfg.Gemini, kvStorage, logger)
	default:
		return nil, fmt.Errorf("unsupported insight provider: %s", cfg.LLM.DefaultProvider)
	}
	if err != nil {
		return nil, err
	}

	logger.Info().
		Str("provider", base.Provider()).
		Int("max_retries", cfg.LLM.MaxRetries).
		Msg("Insight service initialized")

	return WithRetry(base, cfg.LLM.MaxRetries, parseBackoff(cfg.LLM.RetryBackoff), logger), nil
}

// retryingService retries failed Analyze calls a bounded number of times.
// The pipeline treats an exhausted retry as "no insight", never as a
// product failure.
type retryingService struct {
	base       interfaces.InsightService
	maxRetries int
	backoff    time.Duration
	logger     arbor.ILogger
}

// WithRetry wraps an insight service with bounded retry
func WithRetry(base interfaces.InsightService, maxRetries int, backoff time.Duration, logger arbor.ILogger) interfaces.InsightService {
	if maxRetries < 0 {
		maxRetries = 0
	}
	return &retryingService{
		base:       base,
		maxRetries: maxRetries,
		backoff:    backoff,
		logger:     logger,
	}
}

// Analyze calls the base provider, retrying after a backoff on failure
func (s *retryingService) Analyze(ctx context.Context, productCtx interfaces.ProductContext) (*models.MarketInsight, error) {
	var lastErr error
	for attempt := 0; attempt <= s.maxRetries; attempt++ {
		if attempt > 0 {
			s.logger.Debug().
				Str("product", productCtx.ProductAlias).
				Int("attempt", attempt+1).
				Msg("Retrying insight analysis")

			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(s.backoff):
			}
		}

		insight, err := s.base.Analyze(ctx, productCtx)
		if err == nil {
			return insight, nil
		}
		lastErr = err

		// A cancelled context will not recover on retry
		if ctx.Err() != nil {
			return nil, lastErr
		}
	}
	return nil, fmt.Errorf("insight analysis failed after %d attempts: %w", s.maxRetries+1, lastErr)
}

func (s *retryingService) HealthCheck(ctx context.Context) error {
	return s.base.HealthCheck(ctx)
}

func (s *retryingService) Provider() string {
	return s.base.Provider()
}

func (s *retryingService) Close() error {
	return s.base.Close()
}

func parseBackoff(value string) time.Duration {
	if d, err := time.ParseDuration(value); err == nil && d > 0 {
		return d
	}
	return 2 * time.Second
}
