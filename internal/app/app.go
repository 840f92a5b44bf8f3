package app

import (
	"context"
	"fmt"
	"time"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/demandcast/internal/common"
	"github.com/ternarybob/demandcast/internal/handlers"
	"github.com/ternarybob/demandcast/internal/interfaces"
	"github.com/ternarybob/demandcast/internal/pipeline"
	"github.com/ternarybob/demandcast/internal/services/forecastmodel"
	"github.com/ternarybob/demandcast/internal/services/indexing"
	"github.com/ternarybob/demandcast/internal/services/ingestion"
	"github.com/ternarybob/demandcast/internal/services/insight"
	"github.com/ternarybob/demandcast/internal/services/report"
	"github.com/ternarybob/demandcast/internal/services/scheduler"
	"github.com/ternarybob/demandcast/internal/storage/badger"
)

// App holds all application dependencies and services
type App struct {
	Config  *common.Config
	Logger  arbor.ILogger
	Storage interfaces.StorageManager

	Orchestrator *pipeline.Orchestrator
	Scheduler    *scheduler.Service

	// HTTP handlers
	APIHandler      *handlers.APIHandler
	JobHandler      *handlers.JobHandler
	ForecastHandler *handlers.ForecastHandler
	ActionHandler   *handlers.ActionHandler
	AlertHandler    *handlers.AlertHandler
	StatusHandler   *handlers.StatusHandler

	insights interfaces.InsightService
}

// New creates the application with all services wired
func New(config *common.Config, logger arbor.ILogger) (*App, error) {
	a := &App{
		Config: config,
		Logger: logger,
	}

	storage, err := badger.NewManager(logger, &config.Storage.Badger)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize storage: %w", err)
	}
	a.Storage = storage

	a.loadProductSeeds()

	if err := a.initServices(); err != nil {
		storage.Close()
		return nil, err
	}

	a.initHandlers()

	logger.Info().
		Str("environment", config.Environment).
		Bool("scheduler", config.Scheduler.Enabled).
		Bool("report", config.Report.Enabled).
		Msg("Application initialized")

	return a, nil
}

// loadProductSeeds loads the product universe from seed files. A missing or
// broken seed directory is not fatal; the universe may already be populated
// from a previous start.
func (a *App) loadProductSeeds() {
	if a.Config.Products.SeedDir == "" {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if _, err := badger.LoadProductSeeds(ctx, a.Storage.ProductStorage(), a.Config.Products.SeedDir, a.Logger); err != nil {
		a.Logger.Warn().
			Err(err).
			Str("dir", a.Config.Products.SeedDir).
			Msg("Failed to load product seeds")
	}
}

// initServices wires the pipeline stages and the scheduler
func (a *App) initServices() error {
	ingestor := ingestion.NewService(&a.Config.Ingestion, a.Logger)
	indexer := indexing.NewService(a.Storage.DocumentStorage(), a.Storage.ProductStorage(), a.Logger)

	insights, err := insight.NewInsightService(a.Config, a.Storage.KeyValueStorage(), a.Logger)
	if err != nil {
		a.Logger.Warn().
			Err(err).
			Msg("Insight provider unavailable, forecasts will run without market insights")
		insights = insight.NewDisabledService(err.Error())
	}
	a.insights = insights

	model := forecastmodel.NewBaselineModel(&a.Config.Pipeline, a.Logger)

	batch := pipeline.NewBatchProcessor(
		a.Storage.DocumentStorage(),
		a.Storage.ProductStorage(),
		insights,
		model,
		a.Config.Pipeline.RetrievalTopN,
		a.Logger,
	)

	var reporter pipeline.ReportGenerator
	if a.Config.Report.Enabled {
		reporter = report.NewService(&a.Config.Report, a.Logger)
	}

	output := pipeline.NewOutputStage(
		a.Storage.ForecastStorage(),
		a.Storage.ActionStorage(),
		a.Storage.AlertStorage(),
		a.Config,
		reporter,
		a.Logger,
	)

	a.Orchestrator = pipeline.NewOrchestrator(a.Storage, ingestor, indexer, batch, output, a.Config, a.Logger)

	if a.Config.Scheduler.Enabled {
		a.Scheduler = scheduler.NewService(&a.Config.Scheduler, a.Orchestrator, a.Storage.JobStorage(), a.Logger)
		if err := a.Scheduler.Start(); err != nil {
			return fmt.Errorf("failed to start scheduler: %w", err)
		}
	}

	return nil
}

// initHandlers creates the HTTP handlers over the wired services
func (a *App) initHandlers() {
	a.APIHandler = handlers.NewAPIHandler()
	a.JobHandler = handlers.NewJobHandler(a.Orchestrator, a.Storage.JobStorage(), a.Logger)
	a.ForecastHandler = handlers.NewForecastHandler(a.Storage.ForecastStorage(), a.Logger)
	a.ActionHandler = handlers.NewActionHandler(a.Storage.ActionStorage(), a.Logger)
	a.AlertHandler = handlers.NewAlertHandler(a.Storage.AlertStorage(), a.Logger)

	var schedulerStatus handlers.SchedulerStatus
	if a.Scheduler != nil {
		schedulerStatus = a.Scheduler
	}
	a.StatusHandler = handlers.NewStatusHandler(a.Storage, schedulerStatus, a.Config, a.Logger)
}

// Close shuts down all services in reverse initialization order
func (a *App) Close() error {
	a.Logger.Info().Msg("Shutting down application...")

	if a.Scheduler != nil {
		a.Scheduler.Stop()
	}

	if a.insights != nil {
		if err := a.insights.Close(); err != nil {
			a.Logger.Warn().Err(err).Msg("Failed to close insight service")
		}
	}

	if a.Storage != nil {
		if err := a.Storage.Close(); err != nil {
			return fmt.Errorf("failed to close storage: %w", err)
		}
	}

	a.Logger.Info().Msg("Application shutdown complete")
	return nil
}
