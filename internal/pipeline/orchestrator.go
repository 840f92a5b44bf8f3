// -----------------------------------------------------------------------
// Pipeline Orchestrator - Stage graph for one forecast run
// Ingest -> index -> split -> process -> aggregate -> persist, under a
// global deadline. Stage failures degrade the run to the fallback set.
// -----------------------------------------------------------------------

package pipeline

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/demandcast/internal/common"
	"github.com/ternarybob/demandcast/internal/interfaces"
	"github.com/ternarybob/demandcast/internal/models"
)

// Ingestor fetches raw documents from all external sources
type Ingestor interface {
	Ingest(ctx context.Context) ([]models.ExternalDocument, int)
}

// Indexer cleans, tags, and stores raw documents
type Indexer interface {
	Index(ctx context.Context, docs []models.ExternalDocument) (*models.StoreSummary, error)
}

// BatchRunner processes one product batch
type BatchRunner interface {
	Process(ctx context.Context, batch models.ProductBatch, jobID string) models.BatchResult
}

// Orchestrator implements interfaces.Orchestrator over the shared services
type Orchestrator struct {
	storage interfaces.StorageManager
	ingest  Ingestor
	index   Indexer
	batch   BatchRunner
	output  *OutputStage
	config  *common.Config
	logger  arbor.ILogger

	mu      sync.Mutex
	running bool
}

var _ interfaces.Orchestrator = (*Orchestrator)(nil)

// NewOrchestrator wires the pipeline orchestrator
func NewOrchestrator(
	storage interfaces.StorageManager,
	ingest Ingestor,
	index Indexer,
	batch BatchRunner,
	output *OutputStage,
	config *common.Config,
	logger arbor.ILogger,
) *Orchestrator {
	return &Orchestrator{
		storage: storage,
		ingest:  ingest,
		index:   index,
		batch:   batch,
		output:  output,
		config:  config,
		logger:  logger,
	}
}

// Trigger starts a run asynchronously and returns the new job id.
// A second trigger while a run is active is rejected.
func (o *Orchestrator) Trigger(ctx context.Context, productCodes []string) (string, error) {
	o.mu.Lock()
	if o.running {
		o.mu.Unlock()
		return "", fmt.Errorf("a pipeline run is already active")
	}
	o.running = true
	o.mu.Unlock()

	job := o.newJob()
	if err := o.storage.JobStorage().SaveJob(ctx, job); err != nil {
		o.setRunning(false)
		return "", fmt.Errorf("failed to create job: %w", err)
	}

	common.SafeGo(o.logger, "pipeline-run-"+job.ID, func() {
		defer o.setRunning(false)
		o.run(context.Background(), job, productCodes)
	})

	return job.ID, nil
}

// Run executes a full pipeline run synchronously. Stage failures degrade the
// run; Run never returns an error for them.
func (o *Orchestrator) Run(ctx context.Context, productCodes []string) *models.PipelineOutcome {
	o.setRunning(true)
	defer o.setRunning(false)

	job := o.newJob()
	if err := o.storage.JobStorage().SaveJob(ctx, job); err != nil {
		o.logger.Error().Err(err).Msg("Failed to create pipeline job")
		return &models.PipelineOutcome{
			Status: models.JobStatusFailed,
			Error:  err.Error(),
		}
	}
	return o.run(ctx, job, productCodes)
}

// newJob creates the identity record for one run
func (o *Orchestrator) newJob() *models.PipelineJob {
	now := time.Now()
	return &models.PipelineJob{
		ID:         common.NewJobID(),
		Status:     models.JobStatusPending,
		Stage:      models.StagePending,
		Provenance: models.ProvenanceReal,
		StartedAt:  now,
		Deadline:   now.Add(o.config.PipelineDeadline()),
	}
}

// run drives the stage graph for one job. The parent ctx carries no deadline;
// the run deadline is applied to the pipeline stages only, so the output
// stage can still persist the fallback set after the deadline fires.
func (o *Orchestrator) run(ctx context.Context, job *models.PipelineJob, productCodes []string) *models.PipelineOutcome {
	startTime := time.Now()

	runCtx, cancel := context.WithDeadline(ctx, job.Deadline)
	defer cancel()

	o.logger.Info().
		Str("job_id", job.ID).
		Str("deadline", job.Deadline.Format(time.RFC3339)).
		Msg("Pipeline run started")

	// Resolve the product universe
	universe := productCodes
	if len(universe) == 0 {
		codes, err := o.storage.ProductStorage().ListProductCodes(runCtx)
		if err != nil {
			return o.degrade(ctx, job, nil, startTime, fmt.Sprintf("failed to load product universe: %v", err))
		}
		universe = codes
	}
	job.ProductCount = len(universe)
	job.BatchCount = o.config.Pipeline.NumBatches

	// Ingest
	o.markStage(ctx, job, models.StageIngesting)
	docs, sourceFailures := o.ingest.Ingest(runCtx)
	job.SourceFailures = sourceFailures
	if runCtx.Err() != nil {
		return o.degrade(ctx, job, universe, startTime, "deadline exceeded during ingestion")
	}

	// Index
	o.markStage(ctx, job, models.StageIndexing)
	if _, err := o.index.Index(runCtx, docs); err != nil {
		return o.degrade(ctx, job, universe, startTime, fmt.Sprintf("indexing failed: %v", err))
	}
	if runCtx.Err() != nil {
		return o.degrade(ctx, job, universe, startTime, "deadline exceeded during indexing")
	}

	// Split
	o.markStage(ctx, job, models.StageSplitting)
	batches := Split(universe, o.config.Pipeline.NumBatches)

	// Process batches in parallel, one worker per batch
	o.markStage(ctx, job, models.StageProcessing)
	results := make([]models.BatchResult, len(batches))
	var wg sync.WaitGroup
	for i, batch := range batches {
		wg.Add(1)
		idx, b := i, batch
		common.SafeGo(o.logger, fmt.Sprintf("batch-%d-%s", idx, job.ID), func() {
			defer wg.Done()
			results[idx] = o.batch.Process(runCtx, b, job.ID)
		})
	}
	wg.Wait()

	if runCtx.Err() != nil && o.config.Pipeline.DiscardOnTimeout {
		return o.degrade(ctx, job, universe, startTime, "deadline exceeded during batch processing")
	}

	// Aggregate
	o.markStage(ctx, job, models.StageAggregating)
	aggregate := Aggregate(universe, results, o.logger)

	// Persist
	o.markStage(ctx, job, models.StagePersisting)
	summary, actions, alerts, err := o.output.Persist(ctx, job, aggregate, nil)
	if err != nil {
		return o.fail(ctx, job, startTime, err)
	}

	job.ForecastsSaved = summary.ForecastsSaved
	job.ActionsSaved = summary.ActionsSaved
	job.AlertsRaised = summary.AlertsCreated
	job.FailedProducts = len(aggregate.Failed)
	job.MarkCompleted()
	o.saveJob(ctx, job)

	duration := time.Since(startTime)
	o.logger.Info().
		Str("job_id", job.ID).
		Int("forecasts", summary.ForecastsSaved).
		Int("failed_products", len(aggregate.Failed)).
		Dur("duration", duration).
		Msg("Pipeline run completed")

	return &models.PipelineOutcome{
		JobID:          job.ID,
		Status:         job.Status,
		Provenance:     job.Provenance,
		Duration:       duration,
		Forecasts:      aggregate.Succeeded,
		Failures:       aggregate.Failed,
		Actions:        actions,
		Alerts:         alerts,
		SourceFailures: sourceFailures,
	}
}

// degrade discards partial results and substitutes the deterministic
// fallback set. The output stage still runs so downstream consumers always
// have a result set to read.
func (o *Orchestrator) degrade(ctx context.Context, job *models.PipelineJob, universe []string, startTime time.Time, reason string) *models.PipelineOutcome {
	o.logger.Warn().
		Str("job_id", job.ID).
		Str("reason", reason).
		Msg("Pipeline degraded, substituting fallback results")

	job.MarkDegraded(reason)

	// When the universe load itself was the failure, re-read it here so the
	// fallback set is still non-empty
	if len(universe) == 0 {
		codes, err := o.storage.ProductStorage().ListProductCodes(ctx)
		if err != nil {
			o.logger.Warn().
				Err(err).
				Str("job_id", job.ID).
				Msg("Fallback universe unavailable, degraded run carries no forecasts")
		} else {
			universe = codes
		}
	}

	fallback := FallbackSet(ctx, universe, o.storage.ProductStorage(), o.config.Pipeline.ForecastHorizon, job.ID)
	extraActions := FallbackActions(job.ID, reason)

	summary, actions, alerts, err := o.output.Persist(ctx, job, fallback, extraActions)
	if err != nil {
		return o.fail(ctx, job, startTime, err)
	}

	job.ForecastsSaved = summary.ForecastsSaved
	job.ActionsSaved = summary.ActionsSaved
	job.AlertsRaised = summary.AlertsCreated
	o.saveJob(ctx, job)

	return &models.PipelineOutcome{
		JobID:          job.ID,
		Status:         models.JobStatusDegraded,
		Provenance:     models.ProvenanceFallback,
		Duration:       time.Since(startTime),
		Forecasts:      fallback.Succeeded,
		Actions:        actions,
		Alerts:         alerts,
		SourceFailures: job.SourceFailures,
		Error:          reason,
	}
}

// fail marks the job failed after an output-stage persistence error.
// Failed runs are retried by the external scheduler, never internally.
func (o *Orchestrator) fail(ctx context.Context, job *models.PipelineJob, startTime time.Time, err error) *models.PipelineOutcome {
	o.logger.Error().
		Err(err).
		Str("job_id", job.ID).
		Msg("Pipeline run failed in output stage")

	job.MarkFailed(err.Error())
	o.saveJob(ctx, job)

	return &models.PipelineOutcome{
		JobID:    job.ID,
		Status:   models.JobStatusFailed,
		Duration: time.Since(startTime),
		Error:    err.Error(),
	}
}

// markStage persists stage progress; a save failure is logged, not fatal
func (o *Orchestrator) markStage(ctx context.Context, job *models.PipelineJob, stage models.PipelineStage) {
	job.MarkStage(stage)
	o.saveJob(ctx, job)
	o.logger.Debug().
		Str("job_id", job.ID).
		Str("stage", string(stage)).
		Msg("Pipeline stage")
}

func (o *Orchestrator) saveJob(ctx context.Context, job *models.PipelineJob) {
	if err := o.storage.JobStorage().SaveJob(ctx, job); err != nil {
		o.logger.Warn().Err(err).Str("job_id", job.ID).Msg("Failed to persist job state")
	}
}

func (o *Orchestrator) setRunning(running bool) {
	o.mu.Lock()
	o.running = running
	o.mu.Unlock()
}

// IsRunning reports whether a run is currently active
func (o *Orchestrator) IsRunning() bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.running
}
