// -----------------------------------------------------------------------
// Gemini Insight Service - Market insight generation via Google Gemini
// -----------------------------------------------------------------------

package insight

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/demandcast/internal/common"
	"github.com/ternarybob/demandcast/internal/interfaces"
	"github.com/ternarybob/demandcast/internal/models"
	"golang.org/x/time/rate"
	"google.golang.org/genai"
)

// GeminiService implements the InsightService interface using the Google
// Gemini API
type GeminiService struct {
	config  *common.GeminiConfig
	logger  arbor.ILogger
	client  *genai.Client
	limiter *rate.Limiter
	timeout time.Duration
}

var _ interfaces.InsightService = (*GeminiService)(nil)

// NewGeminiService creates a new Gemini insight service.
// The API key resolution order is environment, KV store, then config.
func NewGeminiService(geminiConfig *common.GeminiConfig, kvStorage interfaces.KeyValueStorage, logger arbor.ILogger) (*GeminiService, error) {
	ctx := context.Background()
	apiKey, err := common.ResolveAPIKey(ctx, kvStorage, "gemini_api_key", geminiConfig.APIKey)
	if err != nil {
		return nil, fmt.Errorf("Gemini API key is required (set GEMINI_API_KEY, DEMANDCAST_GEMINI_API_KEY, or gemini.api_key): %w", err)
	}

	if geminiConfig.Model == "" {
		geminiConfig.Model = "gemini-2.0-flash"
	}

	timeout, err := time.ParseDuration(geminiConfig.Timeout)
	if err != nil {
		return nil, fmt.Errorf("invalid timeout duration '%s': %w", geminiConfig.Timeout, err)
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize genai client: %w", err)
	}

	service := &GeminiService{
		config:  geminiConfig,
		logger:  logger,
		client:  client,
		limiter: newCallLimiter(geminiConfig.RateLimit, 4*time.Second),
		timeout: timeout,
	}

	logger.Debug().
		Str("model", geminiConfig.Model).
		Dur("timeout", timeout).
		Msg("Gemini insight service initialized")

	return service, nil
}

// Analyze generates a market insight for the anonymized product context
func (s *GeminiService) Analyze(ctx context.Context, productCtx interfaces.ProductContext) (*models.MarketInsight, error) {
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
		Msg("Gemini analysis complete")

	return insight, nil
}

// HealthCheck performs a minimal probe against the Gemini API
func (s *GeminiService) HealthCheck(ctx context.Context) error {
	if s.client == nil {
		return fmt.Errorf("Gemini client is not initialized")
	}

	probeCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	response, err := s.generateCompletion(probeCtx, "ping")
	if err != nil {
		return fmt.Errorf("Gemini health check failed: %w", err)
	}
	if len(strings.TrimSpace(response)) == 0 {
		return fmt.Errorf("Gemini probe returned empty response")
	}
	return nil
}

// Provider returns the provider name
func (s *GeminiService) Provider() string {
	return string(common.LLMProviderGemini)
}

// Close clears the client reference. genai.Client needs no explicit Close.
func (s *GeminiService) Close() error {
	s.client = nil
	return nil
}

// generateCompletion makes one Gemini API call with the fixed system prompt
func (s *GeminiService) generateCompletion(ctx context.Context, userPrompt string) (string, error) {
	config := &genai.GenerateContentConfig{
		Temperature:       genai.Ptr(s.config.Temperature),
		SystemInstruction: genai.NewContentFromText(systemPrompt, genai.RoleUser),
	}

	contents := []*genai.Content{
		genai.NewContentFromText(userPrompt, genai.RoleUser),
	}

	resp, err := s.client.Models.GenerateContent(ctx, s.config.Model, contents, config)
	if err != nil {
		return "", fmt.Errorf("Gemini API call failed: %w", err)
	}

	var response strings.Builder
	if resp != nil {
		for _, candidate := range resp.Candidates {
			if candidate.Content == nil {
				continue
			}
			for _, part := range candidate.Content.Parts {
				if part.Text != "" {
					response.WriteString(part.Text)
				}
			}
			if response.Len() > 0 {
				break
			}
		}
	}
	if response.Len() == 0 {
		return "", fmt.Errorf("no response generated from Gemini API")
	}
	return response.String(), nil
}
