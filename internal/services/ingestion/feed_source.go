package ingestion

import (
	"context"
	"encoding/xml"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/demandcast/internal/common"
	"github.com/ternarybob/demandcast/internal/httpclient"
	"github.com/ternarybob/demandcast/internal/interfaces"
	"github.com/ternarybob/demandcast/internal/models"
)

// rssDocument covers the RSS 2.0 shape used by industry news feeds
type rssDocument struct {
	Channel struct {
		Title string    `xml:"title"`
		Items []rssItem `xml:"item"`
	} `xml:"channel"`
}

type rssItem struct {
	Title       string `xml:"title"`
	Link        string `xml:"link"`
	GUID        string `xml:"guid"`
	PubDate     string `xml:"pubDate"`
	Description string `xml:"description"`
}

// pubDateFormats are tried in order when parsing feed timestamps
var pubDateFormats = []string{
	time.RFC1123Z,
	time.RFC1123,
	time.RFC822Z,
	time.RFC822,
	time.RFC3339,
}

// FeedSource pulls documents from one RSS news feed
type FeedSource struct {
	config common.FeedSourceConfig
	client *http.Client
	common *common.IngestionConfig
	logger arbor.ILogger
}

var _ interfaces.ExternalSource = (*FeedSource)(nil)

// NewFeedSource creates a feed source for one configured feed
func NewFeedSource(config common.FeedSourceConfig, client *http.Client, ingestion *common.IngestionConfig, logger arbor.ILogger) *FeedSource {
	return &FeedSource{
		config: config,
		client: client,
		common: ingestion,
		logger: logger,
	}
}

// Name returns the configured source name
func (s *FeedSource) Name() string {
	return s.config.Name
}

// Fetch downloads and parses the feed into raw documents
func (s *FeedSource) Fetch(ctx context.Context) ([]models.ExternalDocument, error) {
	body, err := httpclient.FetchBody(ctx, s.client, s.config.URL, s.common.UserAgent, int64(s.common.MaxBodySize))
	if err != nil {
		return nil, err
	}

	var feed rssDocument
	if err := xml.Unmarshal(body, &feed); err != nil {
		return nil, fmt.Errorf("failed to parse feed %s: %w", s.config.Name, err)
	}

	now := time.Now()
	docs := make([]models.ExternalDocument, 0, len(feed.Channel.Items))
	for _, item := range feed.Channel.Items {
		externalID := item.GUID
		if externalID == "" {
			externalID = item.Link
		}
		if externalID == "" {
			continue
		}

		doc := models.ExternalDocument{
			ExternalID: externalID,
			Source:     s.config.Name,
			Title:      strings.TrimSpace(item.Title),
			Content:    strings.TrimSpace(item.Description),
			URL:        item.Link,
			FetchedAt:  now,
		}
		if published := parsePubDate(item.PubDate); published != nil {
			doc.PublishedAt = published
		}
		docs = append(docs, doc)
	}

	return docs, nil
}

// parsePubDate tries the common feed timestamp formats, nil if none match
func parsePubDate(value string) *time.Time {
	value = strings.TrimSpace(value)
	if value == "" {
		return nil
	}
	for _, format := range pubDateFormats {
		if t, err := time.Parse(format, value); err == nil {
			return &t
		}
	}
	return nil
}
