package indexing

import (
	"strings"

	"github.com/ternarybob/demandcast/internal/models"
)

// positiveTerms and negativeTerms form the sentiment lexicon for market news.
// Scoring is count-based: whichever side dominates wins, close counts are mixed.
var positiveTerms = []string{
	"growth", "rising", "rise", "increase", "increasing", "surge", "strong",
	"demand climbs", "expansion", "expanding", "record", "gain", "gains",
	"recovery", "rebound", "boom", "upbeat", "improved", "improving",
}

var negativeTerms = []string{
	"decline", "declining", "fall", "falling", "drop", "drops", "shortage",
	"weak", "slowdown", "contraction", "contracting", "recession", "cuts",
	"disruption", "delay", "delays", "loss", "losses", "downturn", "risk",
}

// ScoreSentiment classifies document tone against the market lexicon
func ScoreSentiment(text string) models.Sentiment {
	lower := strings.ToLower(text)

	positive := 0
	for _, term := range positiveTerms {
		positive += strings.Count(lower, term)
	}
	negative := 0
	for _, term := range negativeTerms {
		negative += strings.Count(lower, term)
	}

	switch {
	case positive == 0 && negative == 0:
		return models.SentimentNeutral
	case positive > 0 && negative > 0 && abs(positive-negative) <= 1:
		return models.SentimentMixed
	case positive > negative:
		return models.SentimentPositive
	case negative > positive:
		return models.SentimentNegative
	default:
		return models.SentimentMixed
	}
}

func abs(n int) int {
	if n < 0 {
		return -n
	}
	return n
}
