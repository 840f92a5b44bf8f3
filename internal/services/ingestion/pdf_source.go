package ingestion

import (
	"context"
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

// PDFSource downloads one published market report and extracts its text
type PDFSource struct {
	config    common.PDFSourceConfig
	client    *http.Client
	common    *common.IngestionConfig
	extractor interfaces.PDFExtractor
	logger    arbor.ILogger
}

var _ interfaces.ExternalSource = (*PDFSource)(nil)

// NewPDFSource creates a PDF report source
func NewPDFSource(config common.PDFSourceConfig, client *http.Client, ingestion *common.IngestionConfig, extractor interfaces.PDFExtractor, logger arbor.ILogger) *PDFSource {
	return &PDFSource{
		config:    config,
		client:    client,
		common:    ingestion,
		extractor: extractor,
		logger:    logger,
	}
}

// Name returns the configured source name
func (s *PDFSource) Name() string {
	return s.config.Name
}

// Fetch downloads the report and extracts its text content. The report URL
// is the stable external id, so a republished report updates in place.
func (s *PDFSource) Fetch(ctx context.Context) ([]models.ExternalDocument, error) {
	data, err := httpclient.FetchBody(ctx, s.client, s.config.URL, s.common.UserAgent, int64(s.common.MaxBodySize))
	if err != nil {
		return nil, err
	}

	text, err := s.extractor.ExtractText(ctx, data)
	if err != nil {
		return nil, fmt.Errorf("failed to extract text from %s: %w", s.config.Name, err)
	}

	text = strings.TrimSpace(text)
	if text == "" {
		return nil, fmt.Errorf("report %s produced no text", s.config.URL)
	}

	now := time.Now()
	doc := models.ExternalDocument{
		ExternalID: s.config.URL,
		Source:     s.config.Name,
		Title:      s.config.Name,
		Content:    text,
		URL:        s.config.URL,
		FetchedAt:  now,
	}
	return []models.ExternalDocument{doc}, nil
}
