package interfaces

import (
	"context"

	"github.com/ternarybob/demandcast/internal/models"
)

// ExternalSource supplies raw external documents (news, market reports).
// A failing source never aborts ingestion of the others.
type ExternalSource interface {
	// Name identifies the source in logs and failure counts
	Name() string

	// Fetch pulls the currently available documents from the source
	Fetch(ctx context.Context) ([]models.ExternalDocument, error)
}
