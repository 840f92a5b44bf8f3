package insight

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/ternarybob/demandcast/internal/interfaces"
	"github.com/ternarybob/demandcast/internal/models"
)

const systemPrompt = `You are a demand analyst for automotive components. You receive anonymized
product context and externally sourced market snippets. Respond with a single
JSON object and nothing else:
{"summary": "<2-3 sentence market summary>", "key_findings": ["<finding>", ...], "confidence": <0.0-1.0>}
Base every finding on the provided snippets. If the snippets are thin, say so
in the summary and lower the confidence.`

// insightResponse is the JSON shape the provider is instructed to return
type insightResponse struct {
	Summary     string   `json:"summary"`
	KeyFindings []string `json:"key_findings"`
	Confidence  float64  `json:"confidence"`
}

// buildUserPrompt renders the anonymized product context for the provider
func buildUserPrompt(productCtx interfaces.ProductContext) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Product: %s\n", productCtx.ProductAlias)
	if productCtx.Category != "" {
		fmt.Fprintf(&b, "Category: %s\n", productCtx.Category)
	}

	if len(productCtx.Snippets) == 0 {
		b.WriteString("\nNo market snippets were retrieved for this product.\n")
		return b.String()
	}

	b.WriteString("\nMarket snippets, most relevant first:\n")
	for i, snippet := range productCtx.Snippets {
		fmt.Fprintf(&b, "\n[%d] source=%s sentiment=%s score=%.2f\n%s\n",
			i+1, snippet.Source, snippet.Sentiment, snippet.Score, truncate(snippet.Content, 1500))
	}
	return b.String()
}

// parseInsight extracts the JSON insight from a provider response, tolerating
// surrounding prose and markdown fences
func parseInsight(raw, productAlias, provider string) (*models.MarketInsight, error) {
	payload := extractJSON(raw)
	if payload == "" {
		return nil, fmt.Errorf("no JSON object in provider response")
	}

	var parsed insightResponse
	if err := json.Unmarshal([]byte(payload), &parsed); err != nil {
		return nil, fmt.Errorf("failed to parse provider response: %w", err)
	}
	if strings.TrimSpace(parsed.Summary) == "" {
		return nil, fmt.Errorf("provider response missing summary")
	}

	confidence := parsed.Confidence
	if confidence < 0 {
		confidence = 0
	}
	if confidence > 1 {
		confidence = 1
	}

	return &models.MarketInsight{
		ProductCode: productAlias,
		Summary:     strings.TrimSpace(parsed.Summary),
		KeyFindings: parsed.KeyFindings,
		Confidence:  confidence,
		Provider:    provider,
	}, nil
}

// extractJSON returns the first balanced JSON object in the text
func extractJSON(text string) string {
	start := strings.Index(text, "{")
	if start < 0 {
		return ""
	}
	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(text); i++ {
		c := text[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			continue
		}
		switch c {
		case '"':
			inString = true
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return text[start : i+1]
			}
		}
	}
	return ""
}

// truncate caps snippet length so prompts stay inside the token budget
func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max] + "..."
}
