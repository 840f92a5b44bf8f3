package interfaces

import (
	"context"

	"github.com/ternarybob/demandcast/internal/models"
)

// DocumentStorage is the similarity-searchable store of tagged external
// documents. Upserts are keyed by the document's stable external id so
// re-ingestion of the same documents never creates duplicates.
type DocumentStorage interface {
	// Upsert stores or updates documents keyed by ExternalID
	Upsert(ctx context.Context, docs []*models.TaggedDocument) (*models.StoreSummary, error)

	// Query returns the top-N documents matching the given relevance tags,
	// ranked by relevance score. An empty result is not an error.
	Query(ctx context.Context, tags []string, topN int) ([]models.ScoredDocument, error)

	GetByExternalID(ctx context.Context, externalID string) (*models.TaggedDocument, error)
	CountDocuments(ctx context.Context) (int, error)
}
