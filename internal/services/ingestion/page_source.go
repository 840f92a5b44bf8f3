package ingestion

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	md "github.com/JohannesKaufmann/html-to-markdown"
	"github.com/PuerkitoBio/goquery"
	"github.com/ternarybob/arbor"
	"github.com/ternarybob/demandcast/internal/common"
	"github.com/ternarybob/demandcast/internal/httpclient"
	"github.com/ternarybob/demandcast/internal/interfaces"
	"github.com/ternarybob/demandcast/internal/models"
)

// PageSource scrapes one HTML page into a markdown document
type PageSource struct {
	config    common.PageSourceConfig
	client    *http.Client
	common    *common.IngestionConfig
	converter *md.Converter
	logger    arbor.ILogger
}

var _ interfaces.ExternalSource = (*PageSource)(nil)

// NewPageSource creates a page source for one configured page
func NewPageSource(config common.PageSourceConfig, client *http.Client, ingestion *common.IngestionConfig, logger arbor.ILogger) *PageSource {
	return &PageSource{
		config:    config,
		client:    client,
		common:    ingestion,
		converter: md.NewConverter("", true, nil),
		logger:    logger,
	}
}

// Name returns the configured source name
func (s *PageSource) Name() string {
	return s.config.Name
}

// Fetch downloads the page, extracts the article body, and converts it to
// markdown. The page URL doubles as the stable external id.
func (s *PageSource) Fetch(ctx context.Context) ([]models.ExternalDocument, error) {
	body, err := httpclient.FetchBody(ctx, s.client, s.config.URL, s.common.UserAgent, int64(s.common.MaxBodySize))
	if err != nil {
		return nil, err
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(string(body)))
	if err != nil {
		return nil, fmt.Errorf("failed to parse page %s: %w", s.config.Name, err)
	}

	// Strip navigation chrome before conversion
	doc.Find("script, style, nav, footer, aside").Remove()

	selection := doc.Selection
	if s.config.Selector != "" {
		found := doc.Find(s.config.Selector)
		if found.Length() == 0 {
			return nil, fmt.Errorf("selector %q matched nothing on %s", s.config.Selector, s.config.URL)
		}
		selection = found.First()
	}

	markdown := s.converter.Convert(selection)
	markdown = strings.TrimSpace(markdown)
	if markdown == "" {
		return nil, fmt.Errorf("page %s produced no content", s.config.URL)
	}

	title := extractTitle(doc, s.config.Name)
	published := extractPublishedAt(doc)
	now := time.Now()

	result := models.ExternalDocument{
		ExternalID:  s.config.URL,
		Source:      s.config.Name,
		Title:       title,
		Content:     markdown,
		URL:         s.config.URL,
		PublishedAt: published,
		FetchedAt:   now,
	}
	return []models.ExternalDocument{result}, nil
}

// extractTitle tries the title tag, Open Graph, then h1
func extractTitle(doc *goquery.Document, fallback string) string {
	if title := strings.TrimSpace(doc.Find("title").First().Text()); title != "" {
		return title
	}
	if ogTitle, exists := doc.Find("meta[property='og:title']").Attr("content"); exists && ogTitle != "" {
		return strings.TrimSpace(ogTitle)
	}
	if h1 := strings.TrimSpace(doc.Find("h1").First().Text()); h1 != "" {
		return h1
	}
	return fallback
}

// extractPublishedAt reads the article publish timestamp from page metadata,
// nil when the page declares none
func extractPublishedAt(doc *goquery.Document) *time.Time {
	candidates := []string{
		"meta[property='article:published_time']",
		"meta[name='date']",
		"meta[itemprop='datePublished']",
	}
	for _, selector := range candidates {
		if value, exists := doc.Find(selector).Attr("content"); exists && value != "" {
			if t, err := time.Parse(time.RFC3339, strings.TrimSpace(value)); err == nil {
				return &t
			}
		}
	}
	if value, exists := doc.Find("time[datetime]").First().Attr("datetime"); exists && value != "" {
		if t, err := time.Parse(time.RFC3339, strings.TrimSpace(value)); err == nil {
			return &t
		}
	}
	return nil
}
