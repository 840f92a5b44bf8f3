package interfaces

import (
	"context"
	"time"

	"github.com/ternarybob/demandcast/internal/models"
)

// JobStorage persists pipeline job records
type JobStorage interface {
	SaveJob(ctx context.Context, job *models.PipelineJob) error
	GetJob(ctx context.Context, id string) (*models.PipelineJob, error)
	ListJobs(ctx context.Context, limit int) ([]*models.PipelineJob, error)
	// ActiveJob returns the currently running job, or nil if none
	ActiveJob(ctx context.Context) (*models.PipelineJob, error)
}

// ForecastStorage persists forecast results, their timeseries, and metrics.
// Each write is idempotent-safe to call once per (entity, job).
type ForecastStorage interface {
	CreateForecast(ctx context.Context, forecast *models.ForecastResult) error
	SaveTimeseries(ctx context.Context, forecastID string, points []models.TimeseriesPoint) error
	SaveMetrics(ctx context.Context, forecastID string, metrics *models.ModelMetrics) error
	SaveFailure(ctx context.Context, failure *models.ProductFailure) error
	GetForecast(ctx context.Context, id string) (*models.ForecastResult, error)
	ListForecastsByJob(ctx context.Context, jobID string) ([]*models.ForecastResult, error)
	ListLatestForecasts(ctx context.Context, limit int) ([]*models.ForecastResult, error)
	// LatestForecastForProduct returns the most recent forecast for a product
	// from any prior job, or nil if the product has never been forecast.
	LatestForecastForProduct(ctx context.Context, productCode string) (*models.ForecastResult, error)
}

// ActionStorage persists action recommendations
type ActionStorage interface {
	CreateAction(ctx context.Context, action *models.ActionRecommendation) error
	GetAction(ctx context.Context, id string) (*models.ActionRecommendation, error)
	UpdateAction(ctx context.Context, action *models.ActionRecommendation) error
	ListActions(ctx context.Context, status models.ActionStatus, limit int) ([]*models.ActionRecommendation, error)
}

// AlertStorage persists alerts
type AlertStorage interface {
	CreateAlert(ctx context.Context, alert *models.Alert) error
	ListAlerts(ctx context.Context, limit int) ([]*models.Alert, error)
	GetAlertStats(ctx context.Context) (*models.AlertStats, error)
	DeleteAlertsBefore(ctx context.Context, cutoff time.Time) (int, error)
}

// ProductStorage holds internal product operational data
type ProductStorage interface {
	SaveProduct(ctx context.Context, product *models.ProductRecord) error
	GetProduct(ctx context.Context, code string) (*models.ProductRecord, error)
	ListProductCodes(ctx context.Context) ([]string, error)
	CountProducts(ctx context.Context) (int, error)
}

// KeyValueStorage provides generic key/value storage for API keys and settings
type KeyValueStorage interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key, value string) error
	Delete(ctx context.Context, key string) error
	GetAll(ctx context.Context) (map[string]string, error)
}

// StorageManager aggregates all storage interfaces
type StorageManager interface {
	JobStorage() JobStorage
	DocumentStorage() DocumentStorage
	ForecastStorage() ForecastStorage
	ActionStorage() ActionStorage
	AlertStorage() AlertStorage
	ProductStorage() ProductStorage
	KeyValueStorage() KeyValueStorage
	Close() error
}
