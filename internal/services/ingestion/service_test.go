package ingestion

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/demandcast/internal/common"
	"github.com/ternarybob/demandcast/internal/interfaces"
	"github.com/ternarybob/demandcast/internal/models"
)

// stubSource is a canned ExternalSource for fan-out tests
type stubSource struct {
	name string
	docs []models.ExternalDocument
	err  error
}

func (s *stubSource) Name() string { return s.name }

func (s *stubSource) Fetch(ctx context.Context) ([]models.ExternalDocument, error) {
	return s.docs, s.err
}

func TestFetchAllToleratesSourceFailures(t *testing.T) {
	sources := []interfaces.ExternalSource{
		&stubSource{name: "feed-a", docs: []models.ExternalDocument{
			{ExternalID: "a1", Source: "feed-a", Title: "one"},
			{ExternalID: "a2", Source: "feed-a", Title: "two"},
		}},
		&stubSource{name: "feed-b", err: fmt.Errorf("connection refused")},
		&stubSource{name: "feed-c", docs: []models.ExternalDocument{
			{ExternalID: "c1", Source: "feed-c", Title: "three"},
		}},
	}

	service := NewServiceWithSources(sources, arbor.NewLogger())
	result := service.FetchAll(context.Background())

	if result.SourceFailures != 1 {
		t.Errorf("expected 1 source failure, got %d", result.SourceFailures)
	}
	if len(result.Documents) != 3 {
		t.Fatalf("expected 3 documents from surviving sources, got %d", len(result.Documents))
	}
	if result.Documents[0].ExternalID != "a1" || result.Documents[2].ExternalID != "c1" {
		t.Errorf("expected configuration-order merge, got %v", result.Documents)
	}
}

func TestFetchAllAllSourcesFail(t *testing.T) {
	sources := []interfaces.ExternalSource{
		&stubSource{name: "feed-a", err: fmt.Errorf("timeout")},
		&stubSource{name: "feed-b", err: fmt.Errorf("dns failure")},
	}

	service := NewServiceWithSources(sources, arbor.NewLogger())
	result := service.FetchAll(context.Background())

	if result.SourceFailures != 2 {
		t.Errorf("expected 2 source failures, got %d", result.SourceFailures)
	}
	if len(result.Documents) != 0 {
		t.Errorf("expected no documents, got %d", len(result.Documents))
	}
}

func TestFeedSourceParsesRSS(t *testing.T) {
	rss := `<?xml version="1.0" encoding="UTF-8"?>
<rss version="2.0">
  <channel>
    <title>Auto Parts News</title>
    <item>
      <title>Compressor demand climbs</title>
      <link>https://example.com/articles/1</link>
      <guid>article-1</guid>
      <pubDate>Mon, 02 Jan 2006 15:04:05 -0700</pubDate>
      <description>OEM orders for AC compressors rose 8 percent.</description>
    </item>
    <item>
      <title>Missing id is skipped</title>
      <description>No guid, no link.</description>
    </item>
  </channel>
</rss>`

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, rss)
	}))
	defer server.Close()

	ingestionCfg := &common.IngestionConfig{
		RequestTimeout: 5 * time.Second,
		UserAgent:      "demandcast/test",
		MaxBodySize:    1 << 20,
	}
	source := NewFeedSource(common.FeedSourceConfig{Name: "auto-parts-news", URL: server.URL},
		server.Client(), ingestionCfg, arbor.NewLogger())

	docs, err := source.Fetch(context.Background())
	if err != nil {
		t.Fatalf("Fetch failed: %v", err)
	}

	if len(docs) != 1 {
		t.Fatalf("expected 1 document, got %d", len(docs))
	}
	doc := docs[0]
	if doc.ExternalID != "article-1" {
		t.Errorf("expected guid as external id, got %q", doc.ExternalID)
	}
	if doc.Source != "auto-parts-news" {
		t.Errorf("expected source name stamped, got %q", doc.Source)
	}
	if doc.PublishedAt == nil {
		t.Error("expected published timestamp to be parsed")
	}
}

func TestFeedSourceHTTPErrorFails(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "nope", http.StatusInternalServerError)
	}))
	defer server.Close()

	ingestionCfg := &common.IngestionConfig{
		RequestTimeout: 5 * time.Second,
		MaxBodySize:    1 << 20,
	}
	source := NewFeedSource(common.FeedSourceConfig{Name: "broken", URL: server.URL},
		server.Client(), ingestionCfg, arbor.NewLogger())

	if _, err := source.Fetch(context.Background()); err == nil {
		t.Error("expected error for 500 response")
	}
}

func TestPageSourceExtractsArticle(t *testing.T) {
	html := `<html>
<head>
  <title>Brake Pads Outlook</title>
  <meta property="article:published_time" content="2026-08-01T09:00:00Z">
</head>
<body>
  <nav>ignore this nav</nav>
  <article><h1>Brake Pads Outlook</h1><p>Aftermarket demand for brake pads is <strong>steady</strong>.</p></article>
  <footer>ignore this footer</footer>
</body>
</html>`

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, html)
	}))
	defer server.Close()

	ingestionCfg := &common.IngestionConfig{
		RequestTimeout: 5 * time.Second,
		MaxBodySize:    1 << 20,
	}
	source := NewPageSource(common.PageSourceConfig{Name: "brakes-page", URL: server.URL, Selector: "article"},
		server.Client(), ingestionCfg, arbor.NewLogger())

	docs, err := source.Fetch(context.Background())
	if err != nil {
		t.Fatalf("Fetch failed: %v", err)
	}
	if len(docs) != 1 {
		t.Fatalf("expected 1 document, got %d", len(docs))
	}

	doc := docs[0]
	if doc.Title != "Brake Pads Outlook" {
		t.Errorf("expected title from title tag, got %q", doc.Title)
	}
	if doc.PublishedAt == nil {
		t.Error("expected published timestamp from meta tag")
	}
	if !strings.Contains(doc.Content, "**steady**") {
		t.Errorf("expected markdown conversion, got %q", doc.Content)
	}
	if strings.Contains(doc.Content, "ignore this nav") {
		t.Errorf("expected nav stripped, got %q", doc.Content)
	}
}

func TestPageSourceSelectorMissFails(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, "<html><body><p>no article here</p></body></html>")
	}))
	defer server.Close()

	ingestionCfg := &common.IngestionConfig{
		RequestTimeout: 5 * time.Second,
		MaxBodySize:    1 << 20,
	}
	source := NewPageSource(common.PageSourceConfig{Name: "miss", URL: server.URL, Selector: "article.report"},
		server.Client(), ingestionCfg, arbor.NewLogger())

	if _, err := source.Fetch(context.Background()); err == nil {
		t.Error("expected error when selector matches nothing")
	}
}
