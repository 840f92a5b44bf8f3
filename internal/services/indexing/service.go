// -----------------------------------------------------------------------
// Indexing Service - Clean, tag, and store ingested documents
// Rejects undated documents and deduplicates by normalized content hash
// -----------------------------------------------------------------------

package indexing

import (
	"context"
	"fmt"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/demandcast/internal/interfaces"
	"github.com/ternarybob/demandcast/internal/models"
)

// Service cleans and tags raw documents and stores them for retrieval
type Service struct {
	documents interfaces.DocumentStorage
	products  interfaces.ProductStorage
	logger    arbor.ILogger
}

// NewService creates a new indexing service
func NewService(documents interfaces.DocumentStorage, products interfaces.ProductStorage, logger arbor.ILogger) *Service {
	return &Service{
		documents: documents,
		products:  products,
		logger:    logger,
	}
}

// Index cleans and tags the raw documents against the current product
// universe and upserts the survivors. Re-indexing the same documents is
// idempotent: repeat external ids update in place and the document count
// does not grow.
func (s *Service) Index(ctx context.Context, docs []models.ExternalDocument) (*models.StoreSummary, error) {
	vocab, err := s.loadVocabulary(ctx)
	if err != nil {
		return nil, err
	}

	summary := &models.StoreSummary{}
	seenHashes := make(map[string]bool)
	var tagged []*models.TaggedDocument

	for i := range docs {
		doc := &docs[i]

		if doc.PublishedAt == nil {
			summary.Rejected++
			s.logger.Debug().
				Str("external_id", doc.ExternalID).
				Str("source", doc.Source).
				Msg("Rejected document without publish date")
			continue
		}

		hash := models.HashContent(doc.Content)
		if seenHashes[hash] {
			summary.Duplicate++
			continue
		}
		seenHashes[hash] = true

		text := doc.Title + "\n" + doc.Content
		tagged = append(tagged, &models.TaggedDocument{
			ExternalID:  doc.ExternalID,
			Source:      doc.Source,
			Title:       doc.Title,
			Content:     doc.Content,
			URL:         doc.URL,
			ContentHash: hash,
			Sentiment:   ScoreSentiment(text),
			Tags:        vocab.matchTags(text),
			Region:      detectRegion(text),
			PublishedAt: *doc.PublishedAt,
		})
	}

	if len(tagged) > 0 {
		stored, err := s.documents.Upsert(ctx, tagged)
		if err != nil {
			return nil, fmt.Errorf("failed to store tagged documents: %w", err)
		}
		summary.Stored = stored.Stored
		summary.Updated = stored.Updated
	}

	s.logger.Info().
		Int("stored", summary.Stored).
		Int("updated", summary.Updated).
		Int("rejected", summary.Rejected).
		Int("duplicates", summary.Duplicate).
		Msg("Indexing pass complete")

	return summary, nil
}

// loadVocabulary builds the tag vocabulary from all stored products
func (s *Service) loadVocabulary(ctx context.Context) (*tagVocabulary, error) {
	codes, err := s.products.ListProductCodes(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list products for vocabulary: %w", err)
	}

	products := make([]*models.ProductRecord, 0, len(codes))
	for _, code := range codes {
		product, err := s.products.GetProduct(ctx, code)
		if err != nil {
			return nil, err
		}
		products = append(products, product)
	}

	return buildVocabulary(products), nil
}
