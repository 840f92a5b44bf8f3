// -----------------------------------------------------------------------
// Claude Insight Service - Market insight generation via Anthropic Claude
// -----------------------------------------------------------------------

package insight

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/ternarybob/arbor"
	"github.com/ternarybob/demandcast/internal/common"
	"github.com/ternarybob/demandcast/internal/interfaces"
	"github.com/ternarybob/demandcast/internal/models"
	"golang.org/x/time/rate"
)

// ClaudeService implements the InsightService interface using the Anthropic
// Claude API
type ClaudeService struct {
	config    *common.ClaudeConfig
	logger    arbor.ILogger
	client    anthropic.Client
	limiter   *rate.Limiter
	timeout   time.Duration
	maxTokens int
}

var _ interfaces.InsightService = (*ClaudeService)(nil)

// NewClaudeService creates a new Claude insight service.
// The API key resolution order is environment, KV store, then config.
func NewClaudeService(claudeConfig *common.ClaudeConfig, kvStorage interfaces.KeyValueStorage, logger arbor.ILogger) (*ClaudeService, error) {
	ctx := context.Background()
	apiKey, err := common.ResolveAPIKey(ctx, kvStorage, "anthropic_api_key", claudeConfig.APIKey)
	if err != nil {
		return nil, fmt.Errorf("Anthropic API key is required (set ANTHROPIC_API_KEY, DEMANDCAST_CLAUDE_API_KEY, or claude.api_key): %w", err)
	}

	if claudeConfig.Model == "" {
		claudeConfig.Model = "claude-haiku-3-5-20241022"
	}

	timeout, err := time.ParseDuration(claudeConfig.Timeout)
	if err != nil {
		return nil, fmt.Errorf("invalid timeout duration '%s': %w", claudeConfig.Timeout, err)
	}

	maxTokens := claudeConfig.MaxTokens
	if maxTokens <= 0 {
		maxTokens = 2048
	}

	client := anthropic.NewClient(
		option.WithAPIKey(apiKey),
	)

	service := &ClaudeService{
		config:    claudeConfig,
		logger:    logger,
		client:    client,
		limiter:   newCallLimiter(claudeConfig.RateLimit, time.Second),
		timeout:   timeout,
		maxTokens: maxTokens,
	}

	logger.Debug().
		Str("model", claudeConfig.Model).
		Dur("timeout", timeout).
		Int("max_tokens", maxTokens).
		Msg("Claude insight service initialized")

	return service, nil
}

// Analyze generates a market insight for the anonymized product context
func (s *ClaudeService) Analyze(ctx context.Context, productCtx interfaces.ProductContext) (*models.MarketInsight, error) {
	if err := s.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limiter wait cancelled: %w", err)
	}

	timeoutCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	startTime := time.Now()
	raw, err := s.generateCompletion(timeoutCtx, buildUserPrompt(productCtx))
	if err != nil {
		return nil, err
	}

	insight, err := parseInsight(raw, productCtx.ProductAlias, s.Provider())
	if err != nil {
		return nil, err
	}

	s.logger.Debug().
		Str("product", productCtx.ProductAlias).
		Int("findings", len(insight.KeyFindings)).
		Dur("duration", time.Since(startTime)).
		Msg("Claude analysis complete")

	return insight, nil
}

// HealthCheck performs a minimal probe against the Claude API
func (s *ClaudeService) HealthCheck(ctx context.Context) error {
	probeCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	response, err := s.generateCompletion(probeCtx, "ping")
	if err != nil {
		return fmt.Errorf("Claude health check failed: %w", err)
	}
	if len(strings.TrimSpace(response)) == 0 {
		return fmt.Errorf("Claude probe returned empty response")
	}
	return nil
}

// Provider returns the provider name
func (s *ClaudeService) Provider() string {
	return string(common.LLMProviderClaude)
}

// Close releases service resources. The Claude client needs no cleanup.
func (s *ClaudeService) Close() error {
	return nil
}

// generateCompletion makes one Claude API call with the fixed system prompt
func (s *ClaudeService) generateCompletion(ctx context.Context, userPrompt string) (string, error) {
	params := anthropic.MessageNewParams{
		Model:     anthropic.Model(s.config.Model),
		MaxTokens: int64(s.maxTokens),
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(userPrompt)),
		},
		System: []anthropic.TextBlockParam{
			{Text: systemPrompt},
		},
	}
	if s.config.Temperature > 0 {
		params.Temperature = anthropic.Float(float64(s.config.Temperature))
	}

	resp, err := s.client.Messages.New(ctx, params)
	if err != nil {
		return "", fmt.Errorf("Claude API call failed: %w", err)
	}

	var response strings.Builder
	for _, block := range resp.Content {
		if block.Type == "text" {
			response.WriteString(block.Text)
		}
	}
	if response.Len() == 0 {
		return "", fmt.Errorf("no response generated from Claude API")
	}
	return response.String(), nil
}

// newCallLimiter builds a one-call-per-interval limiter from a duration string
func newCallLimiter(interval string, fallback time.Duration) *rate.Limiter {
	spacing := fallback
	if d, err := time.ParseDuration(interval); err == nil && d > 0 {
		spacing = d
	}
	return rate.NewLimiter(rate.Every(spacing), 1)
}
