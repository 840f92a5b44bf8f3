package badger

import (
	"context"
	"errors"
	"fmt"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/demandcast/internal/interfaces"
	"github.com/ternarybob/demandcast/internal/models"
	"github.com/timshannon/badgerhold/v4"
)

// jobStorage implements interfaces.JobStorage backed by Badger
type jobStorage struct {
	db     *BadgerDB
	logger arbor.ILogger
}

// NewJobStorage creates a new pipeline job storage service
func NewJobStorage(db *BadgerDB, logger arbor.ILogger) interfaces.JobStorage {
	return &jobStorage{
		db:     db,
		logger: logger,
	}
}

// SaveJob persists a pipeline job record, overwriting any prior state
func (s *jobStorage) SaveJob(ctx context.Context, job *models.PipelineJob) error {
	if job == nil {
		return fmt.Errorf("job cannot be nil")
	}
	if job.ID == "" {
		return fmt.Errorf("job id cannot be empty")
	}

	if err := s.db.Store().Upsert(job.ID, job); err != nil {
		return fmt.Errorf("failed to save job %s: %w", job.ID, err)
	}

	s.logger.Debug().
		Str("job_id", job.ID).
		Str("status", string(job.Status)).
		Str("stage", string(job.Stage)).
		Msg("Job saved")

	return nil
}

// GetJob retrieves a job by ID
func (s *jobStorage) GetJob(ctx context.Context, id string) (*models.PipelineJob, error) {
	var job models.PipelineJob
	if err := s.db.Store().Get(id, &job); err != nil {
		if errors.Is(err, badgerhold.ErrNotFound) {
			return nil, fmt.Errorf("job not found: %s", id)
		}
		return nil, fmt.Errorf("failed to get job %s: %w", id, err)
	}
	return &job, nil
}

// ListJobs returns the most recent jobs, newest first
func (s *jobStorage) ListJobs(ctx context.Context, limit int) ([]*models.PipelineJob, error) {
	if limit <= 0 {
		limit = 50
	}

	var jobs []*models.PipelineJob
	query := (&badgerhold.Query{}).SortBy("StartedAt").Reverse().Limit(limit)
	if err := s.db.Store().Find(&jobs, query); err != nil {
		return nil, fmt.Errorf("failed to list jobs: %w", err)
	}
	return jobs, nil
}

// ActiveJob returns the currently running job, or nil if none
func (s *jobStorage) ActiveJob(ctx context.Context) (*models.PipelineJob, error) {
	var jobs []*models.PipelineJob
	query := badgerhold.Where("Status").In(models.JobStatusPending, models.JobStatusRunning)
	if err := s.db.Store().Find(&jobs, query); err != nil {
		return nil, fmt.Errorf("failed to query active jobs: %w", err)
	}
	if len(jobs) == 0 {
		return nil, nil
	}
	return jobs[0], nil
}
