// -----------------------------------------------------------------------
// Ingestion Service - Fan-out fetch across configured external sources
// A failed source is logged and counted, never fatal to the run
// -----------------------------------------------------------------------

package ingestion

import (
	"context"
	"sync"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/demandcast/internal/common"
	"github.com/ternarybob/demandcast/internal/httpclient"
	"github.com/ternarybob/demandcast/internal/interfaces"
	"github.com/ternarybob/demandcast/internal/models"
)

// Service fetches raw documents from all configured external sources
type Service struct {
	sources []interfaces.ExternalSource
	logger  arbor.ILogger
}

// FetchResult is the combined outcome of one ingestion pass
type FetchResult struct {
	Documents      []models.ExternalDocument
	SourceFailures int
}

// NewService builds the source list from configuration
func NewService(config *common.IngestionConfig, logger arbor.ILogger) *Service {
	client := httpclient.NewDefaultHTTPClient(config.RequestTimeout)

	var sources []interfaces.ExternalSource
	for _, feed := range config.Feeds {
		sources = append(sources, NewFeedSource(feed, client, config, logger))
	}
	for _, page := range config.Pages {
		sources = append(sources, NewPageSource(page, client, config, logger))
	}
	if len(config.Reports) > 0 {
		extractor := NewPDFExtractor(logger)
		for _, report := range config.Reports {
			sources = append(sources, NewPDFSource(report, client, config, extractor, logger))
		}
	}
	if config.Mailbox.Enabled {
		sources = append(sources, NewIMAPSource(config.Mailbox, logger))
	}

	return &Service{
		sources: sources,
		logger:  logger,
	}
}

// NewServiceWithSources creates a service over an explicit source list
func NewServiceWithSources(sources []interfaces.ExternalSource, logger arbor.ILogger) *Service {
	return &Service{
		sources: sources,
		logger:  logger,
	}
}

// Ingest fetches from every source and returns the merged documents plus the
// count of sources that failed
func (s *Service) Ingest(ctx context.Context) ([]models.ExternalDocument, int) {
	result := s.FetchAll(ctx)
	return result.Documents, result.SourceFailures
}

// SourceCount returns the number of configured sources
func (s *Service) SourceCount() int {
	return len(s.sources)
}

// FetchAll fetches from every source concurrently and merges the results.
// Source order in the output follows configuration order so repeated runs
// over the same data are deterministic.
func (s *Service) FetchAll(ctx context.Context) *FetchResult {
	type sourceOutcome struct {
		docs []models.ExternalDocument
		err  error
	}

	outcomes := make([]sourceOutcome, len(s.sources))

	var wg sync.WaitGroup
	for i, source := range s.sources {
		wg.Add(1)
		go func(idx int, src interfaces.ExternalSource) {
			defer wg.Done()
			docs, err := src.Fetch(ctx)
			outcomes[idx] = sourceOutcome{docs: docs, err: err}
		}(i, source)
	}
	wg.Wait()

	result := &FetchResult{}
	for i, outcome := range outcomes {
		if outcome.err != nil {
			result.SourceFailures++
			s.logger.Warn().
				Err(outcome.err).
				Str("source", s.sources[i].Name()).
				Msg("Source fetch failed, continuing without it")
			continue
		}
		result.Documents = append(result.Documents, outcome.docs...)
		s.logger.Debug().
			Str("source", s.sources[i].Name()).
			Int("documents", len(outcome.docs)).
			Msg("Source fetched")
	}

	s.logger.Info().
		Int("sources", len(s.sources)).
		Int("failures", result.SourceFailures).
		Int("documents", len(result.Documents)).
		Msg("Ingestion pass complete")

	return result
}
