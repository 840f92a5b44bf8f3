package badger

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/demandcast/internal/common"
	"github.com/ternarybob/demandcast/internal/interfaces"
	"github.com/ternarybob/demandcast/internal/models"
	"github.com/timshannon/badgerhold/v4"
)

// recencyWindow bounds the freshness boost applied during retrieval scoring.
// Documents older than this get tag-overlap score only.
const recencyWindow = 30 * 24 * time.Hour

// documentStorage implements interfaces.DocumentStorage backed by Badger
type documentStorage struct {
	db     *BadgerDB
	logger arbor.ILogger
}

// NewDocumentStorage creates a new document storage service
func NewDocumentStorage(db *BadgerDB, logger arbor.ILogger) interfaces.DocumentStorage {
	return &documentStorage{
		db:     db,
		logger: logger,
	}
}

// Upsert stores or updates documents keyed by their stable external id.
// Re-ingesting the same documents updates in place and never duplicates.
func (s *documentStorage) Upsert(ctx context.Context, docs []*models.TaggedDocument) (*models.StoreSummary, error) {
	summary := &models.StoreSummary{}
	now := time.Now()

	for _, doc := range docs {
		if doc == nil {
			continue
		}
		if doc.ExternalID == "" {
			return nil, fmt.Errorf("document missing external id: %s", doc.Title)
		}

		existing, err := s.GetByExternalID(ctx, doc.ExternalID)
		if err != nil {
			return nil, err
		}

		if existing != nil {
			doc.ID = existing.ID
			doc.CreatedAt = existing.CreatedAt
			doc.UpdatedAt = now
			summary.Updated++
		} else {
			if doc.ID == "" {
				doc.ID = common.NewDocumentID()
			}
			doc.CreatedAt = now
			doc.UpdatedAt = now
			summary.Stored++
		}

		if err := s.db.Store().Upsert(doc.ID, doc); err != nil {
			return nil, fmt.Errorf("failed to upsert document %s: %w", doc.ExternalID, err)
		}
	}

	s.logger.Debug().
		Int("stored", summary.Stored).
		Int("updated", summary.Updated).
		Msg("Documents upserted")

	return summary, nil
}

// Query returns the top-N documents matching the given relevance tags, ranked
// by tag overlap with a freshness boost. An empty result is not an error.
func (s *documentStorage) Query(ctx context.Context, tags []string, topN int) ([]models.ScoredDocument, error) {
	if topN <= 0 {
		topN = 5
	}
	if len(tags) == 0 {
		return nil, nil
	}

	var docs []*models.TaggedDocument
	if err := s.db.Store().Find(&docs, nil); err != nil {
		return nil, fmt.Errorf("failed to scan documents: %w", err)
	}

	now := time.Now()
	scored := make([]models.ScoredDocument, 0, len(docs))
	for _, doc := range docs {
		score := scoreDocument(doc, tags, now)
		if score <= 0 {
			continue
		}
		scored = append(scored, models.ScoredDocument{Document: doc, Score: score})
	}

	sort.SliceStable(scored, func(i, j int) bool {
		if scored[i].Score != scored[j].Score {
			return scored[i].Score > scored[j].Score
		}
		return scored[i].Document.PublishedAt.After(scored[j].Document.PublishedAt)
	})

	if len(scored) > topN {
		scored = scored[:topN]
	}
	return scored, nil
}

// scoreDocument combines tag overlap (dominant term) with a linear freshness
// boost inside the recency window.
func scoreDocument(doc *models.TaggedDocument, tags []string, now time.Time) float64 {
	matched := 0
	for _, tag := range tags {
		if doc.HasTag(tag) {
			matched++
		}
	}
	if matched == 0 {
		return 0
	}

	overlap := float64(matched) / float64(len(tags))

	age := now.Sub(doc.PublishedAt)
	freshness := 0.0
	if age >= 0 && age < recencyWindow {
		freshness = 0.2 * (1.0 - float64(age)/float64(recencyWindow))
	}

	return overlap + freshness
}

// GetByExternalID retrieves a document by its source-stable id, nil if absent
func (s *documentStorage) GetByExternalID(ctx context.Context, externalID string) (*models.TaggedDocument, error) {
	var docs []*models.TaggedDocument
	query := badgerhold.Where("ExternalID").Eq(externalID).Index("ExternalID").Limit(1)
	if err := s.db.Store().Find(&docs, query); err != nil {
		if errors.Is(err, badgerhold.ErrNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to query document by external id %s: %w", externalID, err)
	}
	if len(docs) == 0 {
		return nil, nil
	}
	return docs[0], nil
}

// CountDocuments returns the number of stored documents
func (s *documentStorage) CountDocuments(ctx context.Context) (int, error) {
	count, err := s.db.Store().Count(&models.TaggedDocument{}, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to count documents: %w", err)
	}
	return int(count), nil
}
