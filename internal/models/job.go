// -----------------------------------------------------------------------
// Pipeline Job - Identity and status record for one orchestrator run
// -----------------------------------------------------------------------

package models

import (
	"time"
)

// JobStatus represents the terminal-or-running status of a pipeline job
type JobStatus string

const (
	JobStatusPending   JobStatus = "pending"
	JobStatusRunning   JobStatus = "running"
	JobStatusCompleted JobStatus = "completed"
	// JobStatusDegraded means the run fell back to the synthetic result set
	// (deadline exceeded or an unrecoverable stage error).
	JobStatusDegraded JobStatus = "degraded"
	// JobStatusFailed is reserved for output-stage persistence failures.
	// Failed runs are retried by the external scheduler, never internally.
	JobStatusFailed JobStatus = "failed"
)

// PipelineStage tracks orchestrator progress through the stage graph
type PipelineStage string

const (
	StagePending     PipelineStage = "pending"
	StageIngesting   PipelineStage = "ingesting"
	StageIndexing    PipelineStage = "indexing"
	StageSplitting   PipelineStage = "splitting"
	StageProcessing  PipelineStage = "processing"
	StageAggregating PipelineStage = "aggregating"
	StagePersisting  PipelineStage = "persisting"
	StageDone        PipelineStage = "done"
)

// Provenance flags whether a result set is genuine pipeline output or fallback data
type Provenance string

const (
	ProvenanceReal     Provenance = "real"
	ProvenanceFallback Provenance = "fallback"
)

// PipelineJob is the identity and status record for one end-to-end run.
// Immutable once it reaches a terminal status; corrections produce a new job.
type PipelineJob struct {
	ID         string        `json:"id" badgerhold:"key"`
	Status     JobStatus     `json:"status"`
	Stage      PipelineStage `json:"stage"`
	Provenance Provenance    `json:"provenance"`

	ProductCount int `json:"product_count"`
	BatchCount   int `json:"batch_count"`

	// Run accounting, populated by the output stage
	ForecastsSaved int `json:"forecasts_saved"`
	ActionsSaved   int `json:"actions_saved"`
	AlertsRaised   int `json:"alerts_raised"`
	FailedProducts int `json:"failed_products"`
	SourceFailures int `json:"source_failures"`

	Error string `json:"error,omitempty"`

	StartedAt  time.Time  `json:"started_at"`
	Deadline   time.Time  `json:"deadline"`
	FinishedAt *time.Time `json:"finished_at,omitempty"`
}

// MarkStage records stage progress on a running job
func (j *PipelineJob) MarkStage(stage PipelineStage) {
	j.Stage = stage
	j.Status = JobStatusRunning
}

// MarkCompleted marks the job as completed
func (j *PipelineJob) MarkCompleted() {
	j.Status = JobStatusCompleted
	j.Stage = StageDone
	now := time.Now()
	j.FinishedAt = &now
}

// MarkDegraded marks the job as degraded with the fallback provenance flag set
func (j *PipelineJob) MarkDegraded(reason string) {
	j.Status = JobStatusDegraded
	j.Stage = StageDone
	j.Provenance = ProvenanceFallback
	j.Error = reason
	now := time.Now()
	j.FinishedAt = &now
}

// MarkFailed marks the job as failed (output stage could not persist)
func (j *PipelineJob) MarkFailed(errorMsg string) {
	j.Status = JobStatusFailed
	j.Stage = StageDone
	j.Error = errorMsg
	now := time.Now()
	j.FinishedAt = &now
}

// IsTerminal returns true if the job is in a terminal state
func (j *PipelineJob) IsTerminal() bool {
	return j.Status == JobStatusCompleted ||
		j.Status == JobStatusDegraded ||
		j.Status == JobStatusFailed
}

// PipelineOutcome is what Orchestrator.Run hands back to its caller.
// Consumers use Provenance to distinguish genuine predictions from the
// deterministic fallback set.
type PipelineOutcome struct {
	JobID      string        `json:"job_id"`
	Status     JobStatus     `json:"status"`
	Provenance Provenance    `json:"provenance"`
	Duration   time.Duration `json:"duration"`

	Forecasts []ForecastResult       `json:"forecasts"`
	Failures  []ProductFailure       `json:"failures"`
	Actions   []ActionRecommendation `json:"actions"`
	Alerts    []Alert                `json:"alerts"`

	SourceFailures int    `json:"source_failures"`
	Error          string `json:"error,omitempty"`
}
