package models

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
	"time"
)

// Sentiment classifies the tone of an external document
type Sentiment string

const (
	SentimentPositive Sentiment = "positive"
	SentimentNegative Sentiment = "negative"
	SentimentMixed    Sentiment = "mixed"
	SentimentNeutral  Sentiment = "neutral"
)

// ExternalDocument is a raw document pulled from an external source during
// ingestion, before cleaning and tagging.
type ExternalDocument struct {
	// ExternalID is the stable id from the source (URL, message id, feed guid).
	// Indexing upserts on it, so re-ingesting the same document is idempotent.
	ExternalID string `json:"external_id"`
	Source     string `json:"source"` // Source name (e.g. "iea-news", "reuters-feed")
	Title      string `json:"title"`
	Content    string `json:"content"` // Markdown-first content
	URL        string `json:"url,omitempty"`

	PublishedAt *time.Time `json:"published_at,omitempty"`
	FetchedAt   time.Time  `json:"fetched_at"`
}

// TaggedDocument is a cleaned, tagged document ready for the document store
type TaggedDocument struct {
	ID         string `json:"id" badgerhold:"key"` // doc_{uuid}
	ExternalID string `json:"external_id" badgerhold:"index"`
	Source     string `json:"source"`
	Title      string `json:"title"`
	Content    string `json:"content"`
	URL        string `json:"url,omitempty"`

	// ContentHash is the SHA-256 of the normalized content, used for
	// near-duplicate rejection during cleaning.
	ContentHash string `json:"content_hash" badgerhold:"index"`

	Sentiment Sentiment `json:"sentiment"`
	// Tags carry product/category relevance markers, e.g. "product:ac-compressor",
	// "category:spark_plugs", "trend:ev".
	Tags   []string `json:"tags"`
	Region string   `json:"region,omitempty"`

	PublishedAt time.Time `json:"published_at"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// HasTag reports whether the document carries the given tag
func (d *TaggedDocument) HasTag(tag string) bool {
	for _, t := range d.Tags {
		if strings.EqualFold(t, tag) {
			return true
		}
	}
	return false
}

// HashContent returns the SHA-256 hex digest of normalized content
func HashContent(content string) string {
	normalized := strings.Join(strings.Fields(strings.ToLower(content)), " ")
	sum := sha256.Sum256([]byte(normalized))
	return hex.EncodeToString(sum[:])
}

// ScoredDocument pairs a stored document with its retrieval relevance score
type ScoredDocument struct {
	Document *TaggedDocument `json:"document"`
	Score    float64         `json:"score"`
}

// RetrievedContext is the top-N documents relevant to one product.
// Ephemeral, scoped to one product's processing within a batch.
type RetrievedContext struct {
	ProductCode string           `json:"product_code"`
	Documents   []ScoredDocument `json:"documents"`
}

// StoreSummary reports the outcome of one indexing store pass
type StoreSummary struct {
	Stored    int `json:"stored"`
	Updated   int `json:"updated"`
	Rejected  int `json:"rejected"`   // Missing publish date
	Duplicate int `json:"duplicates"` // Dropped by content hash
}
