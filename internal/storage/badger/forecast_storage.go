package badger

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/google/uuid"
	"github.com/ternarybob/arbor"
	"github.com/ternarybob/demandcast/internal/interfaces"
	"github.com/ternarybob/demandcast/internal/models"
	"github.com/timshannon/badgerhold/v4"
)

// forecastStorage implements interfaces.ForecastStorage backed by Badger
type forecastStorage struct {
	db     *BadgerDB
	logger arbor.ILogger
}

// storedFailure wraps a ProductFailure with a key for badgerhold
type storedFailure struct {
	ID      string                `badgerhold:"key"`
	JobID   string                `badgerhold:"index"`
	Failure models.ProductFailure `json:"failure"`
}

// NewForecastStorage creates a new forecast storage service
func NewForecastStorage(db *BadgerDB, logger arbor.ILogger) interfaces.ForecastStorage {
	return &forecastStorage{
		db:     db,
		logger: logger,
	}
}

// CreateForecast persists a forecast result. Forecasts are written once per
// (product, job); calling twice with the same id overwrites identically.
func (s *forecastStorage) CreateForecast(ctx context.Context, forecast *models.ForecastResult) error {
	if forecast == nil {
		return fmt.Errorf("forecast cannot be nil")
	}
	if forecast.ID == "" {
		return fmt.Errorf("forecast id cannot be empty")
	}
	if forecast.JobID == "" {
		return fmt.Errorf("forecast %s missing job id", forecast.ID)
	}

	if err := s.db.Store().Upsert(forecast.ID, forecast); err != nil {
		return fmt.Errorf("failed to save forecast %s: %w", forecast.ID, err)
	}

	s.logger.Debug().
		Str("forecast_id", forecast.ID).
		Str("product", forecast.ProductCode).
		Float64("units", forecast.ForecastUnits).
		Msg("Forecast saved")

	return nil
}

// SaveTimeseries attaches daily forecast points to an existing forecast
func (s *forecastStorage) SaveTimeseries(ctx context.Context, forecastID string, points []models.TimeseriesPoint) error {
	forecast, err := s.GetForecast(ctx, forecastID)
	if err != nil {
		return err
	}
	forecast.Timeseries = points
	if err := s.db.Store().Upsert(forecast.ID, forecast); err != nil {
		return fmt.Errorf("failed to save timeseries for forecast %s: %w", forecastID, err)
	}
	return nil
}

// SaveMetrics attaches model fit metrics to an existing forecast
func (s *forecastStorage) SaveMetrics(ctx context.Context, forecastID string, metrics *models.ModelMetrics) error {
	forecast, err := s.GetForecast(ctx, forecastID)
	if err != nil {
		return err
	}
	forecast.Metrics = metrics
	if err := s.db.Store().Upsert(forecast.ID, forecast); err != nil {
		return fmt.Errorf("failed to save metrics for forecast %s: %w", forecastID, err)
	}
	return nil
}

// SaveFailure records a product that could not be forecast
func (s *forecastStorage) SaveFailure(ctx context.Context, failure *models.ProductFailure) error {
	if failure == nil {
		return fmt.Errorf("failure cannot be nil")
	}

	record := &storedFailure{
		ID:      fmt.Sprintf("flr_%s", uuid.New().String()),
		JobID:   failure.JobID,
		Failure: *failure,
	}
	if err := s.db.Store().Upsert(record.ID, record); err != nil {
		return fmt.Errorf("failed to save product failure for %s: %w", failure.ProductCode, err)
	}
	return nil
}

// GetForecast retrieves a forecast by ID
func (s *forecastStorage) GetForecast(ctx context.Context, id string) (*models.ForecastResult, error) {
	var forecast models.ForecastResult
	if err := s.db.Store().Get(id, &forecast); err != nil {
		if errors.Is(err, badgerhold.ErrNotFound) {
			return nil, fmt.Errorf("forecast not found: %s", id)
		}
		return nil, fmt.Errorf("failed to get forecast %s: %w", id, err)
	}
	return &forecast, nil
}

// ListForecastsByJob returns all forecasts produced by one job, ordered by
// product code
func (s *forecastStorage) ListForecastsByJob(ctx context.Context, jobID string) ([]*models.ForecastResult, error) {
	var forecasts []*models.ForecastResult
	query := badgerhold.Where("JobID").Eq(jobID).Index("JobID")
	if err := s.db.Store().Find(&forecasts, query); err != nil {
		return nil, fmt.Errorf("failed to list forecasts for job %s: %w", jobID, err)
	}

	sort.Slice(forecasts, func(i, j int) bool {
		return forecasts[i].ProductCode < forecasts[j].ProductCode
	})
	return forecasts, nil
}

// ListLatestForecasts returns the most recent forecasts across all jobs
func (s *forecastStorage) ListLatestForecasts(ctx context.Context, limit int) ([]*models.ForecastResult, error) {
	if limit <= 0 {
		limit = 50
	}

	var forecasts []*models.ForecastResult
	query := (&badgerhold.Query{}).SortBy("CreatedAt").Reverse().Limit(limit)
	if err := s.db.Store().Find(&forecasts, query); err != nil {
		return nil, fmt.Errorf("failed to list forecasts: %w", err)
	}
	return forecasts, nil
}

// LatestForecastForProduct returns the most recent forecast for a product
// from any prior job, or nil if the product has never been forecast
func (s *forecastStorage) LatestForecastForProduct(ctx context.Context, productCode string) (*models.ForecastResult, error) {
	var forecasts []*models.ForecastResult
	query := badgerhold.Where("ProductCode").Eq(productCode).Index("ProductCode").
		SortBy("CreatedAt").Reverse().Limit(1)
	if err := s.db.Store().Find(&forecasts, query); err != nil {
		return nil, fmt.Errorf("failed to query forecasts for product %s: %w", productCode, err)
	}
	if len(forecasts) == 0 {
		return nil, nil
	}
	return forecasts[0], nil
}
