package interfaces

import (
	"context"

	"github.com/ternarybob/demandcast/internal/models"
)

// Orchestrator owns the forecast pipeline stage graph: ingest, index, split,
// parallel batch processing, aggregate, output. One Run is one PipelineJob.
type Orchestrator interface {
	// Run executes the full pipeline for the given product universe under the
	// configured global deadline. It never returns an error to the caller for
	// stage failures: those degrade the run to the fallback result set. The
	// returned outcome's Provenance flag distinguishes real from fallback data.
	Run(ctx context.Context, productCodes []string) *models.PipelineOutcome

	// Trigger starts a run asynchronously and returns the new job id
	// immediately. A second trigger while a run is active is rejected.
	Trigger(ctx context.Context, productCodes []string) (string, error)
}
