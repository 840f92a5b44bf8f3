package interfaces

import (
	"context"

	"github.com/ternarybob/demandcast/internal/models"
)

// ForecastModel turns a fused per-product dataset into a forecast.
// The model internals are pluggable; the pipeline only depends on this
// contract.
type ForecastModel interface {
	Predict(ctx context.Context, dataset *models.FusedDataset) (*models.ForecastResult, error)

	// Name identifies the model for the persisted forecast record
	Name() string
}
