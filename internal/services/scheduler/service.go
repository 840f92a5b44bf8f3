// -----------------------------------------------------------------------
// Scheduler - Periodic pipeline trigger with skip-when-running
// -----------------------------------------------------------------------

package scheduler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/ternarybob/arbor"
	"github.com/ternarybob/demandcast/internal/common"
	"github.com/ternarybob/demandcast/internal/interfaces"
)

const defaultSchedule = "0 */2 * * *"

// PipelineTrigger is the orchestrator surface the scheduler needs
type PipelineTrigger interface {
	Trigger(ctx context.Context, productCodes []string) (string, error)
	IsRunning() bool
}

// Service triggers pipeline runs on a cron schedule. A tick that fires while
// a run is still active is skipped, never queued.
type Service struct {
	orchestrator PipelineTrigger
	jobs         interfaces.JobStorage
	cron         *cron.Cron
	schedule     string
	logger       arbor.ILogger

	mu      sync.Mutex
	running bool
	lastRun *time.Time
	skipped int
}

// NewService creates the scheduler over the orchestrator
func NewService(config *common.SchedulerConfig, orchestrator PipelineTrigger, jobs interfaces.JobStorage, logger arbor.ILogger) *Service {
	schedule := config.Schedule
	if schedule == "" {
		schedule = defaultSchedule
	}
	return &Service{
		orchestrator: orchestrator,
		jobs:         jobs,
		cron:         cron.New(),
		schedule:     schedule,
		logger:       logger,
	}
}

// Start begins the cron loop
func (s *Service) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running {
		return fmt.Errorf("scheduler already running")
	}

	if _, err := s.cron.AddFunc(s.schedule, s.tick); err != nil {
		return fmt.Errorf("invalid schedule %q: %w", s.schedule, err)
	}

	s.cron.Start()
	s.running = true

	s.logger.Info().
		Str("schedule", s.schedule).
		Msg("Scheduler started")
	return nil
}

// Stop halts the cron loop; a run already in flight is left to finish
func (s *Service) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.running {
		return
	}
	s.cron.Stop()
	s.running = false
	s.logger.Info().Msg("Scheduler stopped")
}

// IsRunning reports whether the cron loop is active
func (s *Service) IsRunning() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}

// SkippedTicks returns how many ticks were skipped because a run was active
func (s *Service) SkippedTicks() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.skipped
}

// tick triggers one pipeline run unless one is already active
func (s *Service) tick() {
	if s.shouldSkip() {
		s.mu.Lock()
		s.skipped++
		s.mu.Unlock()
		s.logger.Info().Msg("Pipeline run still active, skipping scheduled trigger")
		return
	}

	jobID, err := s.orchestrator.Trigger(context.Background(), nil)
	if err != nil {
		s.logger.Warn().Err(err).Msg("Scheduled trigger rejected")
		return
	}

	now := time.Now()
	s.mu.Lock()
	s.lastRun = &now
	s.mu.Unlock()

	s.logger.Info().
		Str("job_id", jobID).
		Msg("Scheduled pipeline run triggered")
}

// shouldSkip checks both the in-process orchestrator flag and the persisted
// active job, so a tick right after restart cannot double-trigger
func (s *Service) shouldSkip() bool {
	if s.orchestrator.IsRunning() {
		return true
	}
	if s.jobs != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if active, err := s.jobs.ActiveJob(ctx); err == nil && active != nil {
			return true
		}
	}
	return false
}
