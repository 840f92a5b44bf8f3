package pipeline

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/ternarybob/demandcast/internal/interfaces"
	"github.com/ternarybob/demandcast/internal/models"
)

// memJobStorage is an in-memory JobStorage
type memJobStorage struct {
	mu   sync.Mutex
	jobs map[string]*models.PipelineJob
	err  error
}

func newMemJobStorage() *memJobStorage {
	return &memJobStorage{jobs: make(map[string]*models.PipelineJob)}
}

func (m *memJobStorage) SaveJob(ctx context.Context, job *models.PipelineJob) error {
	if m.err != nil {
		return m.err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	copied := *job
	m.jobs[job.ID] = &copied
	return nil
}

func (m *memJobStorage) GetJob(ctx context.Context, id string) (*models.PipelineJob, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	job, ok := m.jobs[id]
	if !ok {
		return nil, fmt.Errorf("job not found: %s", id)
	}
	return job, nil
}

func (m *memJobStorage) ListJobs(ctx context.Context, limit int) ([]*models.PipelineJob, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var jobs []*models.PipelineJob
	for _, job := range m.jobs {
		jobs = append(jobs, job)
	}
	return jobs, nil
}

func (m *memJobStorage) ActiveJob(ctx context.Context) (*models.PipelineJob, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, job := range m.jobs {
		if !job.IsTerminal() {
			return job, nil
		}
	}
	return nil, nil
}

// memForecastStorage is an in-memory ForecastStorage
type memForecastStorage struct {
	mu        sync.Mutex
	forecasts map[string]*models.ForecastResult
	failures  []models.ProductFailure
	failOn    string // operation name that should error
}

func newMemForecastStorage() *memForecastStorage {
	return &memForecastStorage{forecasts: make(map[string]*models.ForecastResult)}
}

func (m *memForecastStorage) CreateForecast(ctx context.Context, forecast *models.ForecastResult) error {
	if m.failOn == "create" {
		return fmt.Errorf("storage unavailable")
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	copied := *forecast
	m.forecasts[forecast.ID] = &copied
	return nil
}

func (m *memForecastStorage) SaveTimeseries(ctx context.Context, forecastID string, points []models.TimeseriesPoint) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	forecast, ok := m.forecasts[forecastID]
	if !ok {
		return fmt.Errorf("forecast not found: %s", forecastID)
	}
	forecast.Timeseries = points
	return nil
}

func (m *memForecastStorage) SaveMetrics(ctx context.Context, forecastID string, metrics *models.ModelMetrics) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	forecast, ok := m.forecasts[forecastID]
	if !ok {
		return fmt.Errorf("forecast not found: %s", forecastID)
	}
	forecast.Metrics = metrics
	return nil
}

func (m *memForecastStorage) SaveFailure(ctx context.Context, failure *models.ProductFailure) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failures = append(m.failures, *failure)
	return nil
}

func (m *memForecastStorage) GetForecast(ctx context.Context, id string) (*models.ForecastResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	forecast, ok := m.forecasts[id]
	if !ok {
		return nil, fmt.Errorf("forecast not found: %s", id)
	}
	return forecast, nil
}

func (m *memForecastStorage) ListForecastsByJob(ctx context.Context, jobID string) ([]*models.ForecastResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*models.ForecastResult
	for _, forecast := range m.forecasts {
		if forecast.JobID == jobID {
			out = append(out, forecast)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ProductCode < out[j].ProductCode })
	return out, nil
}

func (m *memForecastStorage) ListLatestForecasts(ctx context.Context, limit int) ([]*models.ForecastResult, error) {
	return m.ListForecastsByJob(ctx, "")
}

func (m *memForecastStorage) LatestForecastForProduct(ctx context.Context, productCode string) (*models.ForecastResult, error) {
	return nil, nil
}

// memActionStorage is an in-memory ActionStorage
type memActionStorage struct {
	mu      sync.Mutex
	actions []*models.ActionRecommendation
}

func (m *memActionStorage) CreateAction(ctx context.Context, action *models.ActionRecommendation) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	copied := *action
	m.actions = append(m.actions, &copied)
	return nil
}

func (m *memActionStorage) GetAction(ctx context.Context, id string) (*models.ActionRecommendation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, action := range m.actions {
		if action.ID == id {
			return action, nil
		}
	}
	return nil, fmt.Errorf("action not found: %s", id)
}

func (m *memActionStorage) UpdateAction(ctx context.Context, action *models.ActionRecommendation) error {
	return nil
}

func (m *memActionStorage) ListActions(ctx context.Context, status models.ActionStatus, limit int) ([]*models.ActionRecommendation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]*models.ActionRecommendation(nil), m.actions...), nil
}

// memAlertStorage is an in-memory AlertStorage
type memAlertStorage struct {
	mu     sync.Mutex
	alerts []*models.Alert
}

func (m *memAlertStorage) CreateAlert(ctx context.Context, alert *models.Alert) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	copied := *alert
	m.alerts = append(m.alerts, &copied)
	return nil
}

func (m *memAlertStorage) ListAlerts(ctx context.Context, limit int) ([]*models.Alert, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]*models.Alert(nil), m.alerts...), nil
}

func (m *memAlertStorage) GetAlertStats(ctx context.Context) (*models.AlertStats, error) {
	return &models.AlertStats{}, nil
}

func (m *memAlertStorage) DeleteAlertsBefore(ctx context.Context, cutoff time.Time) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var kept []*models.Alert
	removed := 0
	for _, alert := range m.alerts {
		if alert.CreatedAt.Before(cutoff) {
			removed++
			continue
		}
		kept = append(kept, alert)
	}
	m.alerts = kept
	return removed, nil
}

// memProductStorage is an in-memory ProductStorage. failLists makes the
// first N ListProductCodes calls error.
type memProductStorage struct {
	mu        sync.Mutex
	products  map[string]*models.ProductRecord
	failLists int
}

func newMemProductStorage(products ...*models.ProductRecord) *memProductStorage {
	m := &memProductStorage{products: make(map[string]*models.ProductRecord)}
	for _, product := range products {
		m.products[product.Code] = product
	}
	return m
}

func (m *memProductStorage) SaveProduct(ctx context.Context, product *models.ProductRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.products[product.Code] = product
	return nil
}

func (m *memProductStorage) GetProduct(ctx context.Context, code string) (*models.ProductRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	product, ok := m.products[code]
	if !ok {
		return nil, fmt.Errorf("product not found: %s", code)
	}
	return product, nil
}

func (m *memProductStorage) ListProductCodes(ctx context.Context) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failLists > 0 {
		m.failLists--
		return nil, fmt.Errorf("product index unavailable")
	}
	var codes []string
	for code := range m.products {
		codes = append(codes, code)
	}
	sort.Strings(codes)
	return codes, nil
}

func (m *memProductStorage) CountProducts(ctx context.Context) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.products), nil
}

// memDocumentStorage is an in-memory DocumentStorage
type memDocumentStorage struct {
	mu   sync.Mutex
	docs []*models.TaggedDocument
}

func (m *memDocumentStorage) Upsert(ctx context.Context, docs []*models.TaggedDocument) (*models.StoreSummary, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.docs = append(m.docs, docs...)
	return &models.StoreSummary{Stored: len(docs)}, nil
}

func (m *memDocumentStorage) Query(ctx context.Context, tags []string, topN int) ([]models.ScoredDocument, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.ScoredDocument
	for _, doc := range m.docs {
		for _, tag := range tags {
			if doc.HasTag(tag) {
				out = append(out, models.ScoredDocument{Document: doc, Score: 1})
				break
			}
		}
		if len(out) >= topN {
			break
		}
	}
	return out, nil
}

func (m *memDocumentStorage) GetByExternalID(ctx context.Context, externalID string) (*models.TaggedDocument, error) {
	return nil, nil
}

func (m *memDocumentStorage) CountDocuments(ctx context.Context) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.docs), nil
}

// memKVStorage is an in-memory KeyValueStorage
type memKVStorage struct {
	mu   sync.Mutex
	data map[string]string
}

func (m *memKVStorage) Get(ctx context.Context, key string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if v, ok := m.data[key]; ok {
		return v, nil
	}
	return "", interfaces.ErrKeyNotFound
}

func (m *memKVStorage) Set(ctx context.Context, key, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.data == nil {
		m.data = make(map[string]string)
	}
	m.data[key] = value
	return nil
}

func (m *memKVStorage) Delete(ctx context.Context, key string) error { return nil }

func (m *memKVStorage) GetAll(ctx context.Context) (map[string]string, error) {
	return m.data, nil
}

// memStorageManager aggregates the in-memory storages
type memStorageManager struct {
	job      *memJobStorage
	forecast *memForecastStorage
	action   *memActionStorage
	alert    *memAlertStorage
	product  *memProductStorage
	document *memDocumentStorage
	kv       *memKVStorage
}

func newMemStorageManager(products ...*models.ProductRecord) *memStorageManager {
	return &memStorageManager{
		job:      newMemJobStorage(),
		forecast: newMemForecastStorage(),
		action:   &memActionStorage{},
		alert:    &memAlertStorage{},
		product:  newMemProductStorage(products...),
		document: &memDocumentStorage{},
		kv:       &memKVStorage{},
	}
}

func (m *memStorageManager) JobStorage() interfaces.JobStorage           { return m.job }
func (m *memStorageManager) DocumentStorage() interfaces.DocumentStorage { return m.document }
func (m *memStorageManager) ForecastStorage() interfaces.ForecastStorage { return m.forecast }
func (m *memStorageManager) ActionStorage() interfaces.ActionStorage     { return m.action }
func (m *memStorageManager) AlertStorage() interfaces.AlertStorage       { return m.alert }
func (m *memStorageManager) ProductStorage() interfaces.ProductStorage   { return m.product }
func (m *memStorageManager) KeyValueStorage() interfaces.KeyValueStorage { return m.kv }
func (m *memStorageManager) Close() error                                { return nil }

// stubInsightService returns a fixed insight or error
type stubInsightService struct {
	insight *models.MarketInsight
	err     error
	calls   int
	mu      sync.Mutex
}

func (s *stubInsightService) Analyze(ctx context.Context, productCtx interfaces.ProductContext) (*models.MarketInsight, error) {
	s.mu.Lock()
	s.calls++
	s.mu.Unlock()
	if s.err != nil {
		return nil, s.err
	}
	if s.insight != nil {
		copied := *s.insight
		copied.ProductCode = productCtx.ProductAlias
		return &copied, nil
	}
	return &models.MarketInsight{ProductCode: productCtx.ProductAlias, Summary: "stub", Confidence: 0.5, Provider: "stub"}, nil
}

func (s *stubInsightService) HealthCheck(ctx context.Context) error { return nil }
func (s *stubInsightService) Provider() string                      { return "stub" }
func (s *stubInsightService) Close() error                          { return nil }

// stubForecastModel forecasts a fixed number of units, failing named products
type stubForecastModel struct {
	failProducts map[string]bool
	units        float64
}

func (m *stubForecastModel) Predict(ctx context.Context, fused *models.FusedDataset) (*models.ForecastResult, error) {
	if m.failProducts[fused.ProductCode] {
		return nil, fmt.Errorf("model rejected %s", fused.ProductCode)
	}
	units := m.units
	if units == 0 {
		units = 100
	}
	return &models.ForecastResult{
		ProductCode:   fused.ProductCode,
		ProductName:   fused.Product.Name,
		Category:      fused.Product.Category,
		HorizonDays:   30,
		ForecastUnits: units,
		CurrentStock:  fused.Product.CurrentStock,
		Trend:         models.TrendStable,
		Provenance:    models.ProvenanceReal,
		CreatedAt:     time.Now(),
	}, nil
}

func (m *stubForecastModel) Name() string { return "stub" }

// stubIngestor returns canned documents
type stubIngestor struct {
	docs     []models.ExternalDocument
	failures int
	delay    time.Duration
}

func (s *stubIngestor) Ingest(ctx context.Context) ([]models.ExternalDocument, int) {
	if s.delay > 0 {
		select {
		case <-ctx.Done():
		case <-time.After(s.delay):
		}
	}
	return s.docs, s.failures
}

// stubIndexer records what it was asked to index
type stubIndexer struct {
	err   error
	count int
}

func (s *stubIndexer) Index(ctx context.Context, docs []models.ExternalDocument) (*models.StoreSummary, error) {
	if s.err != nil {
		return nil, s.err
	}
	s.count = len(docs)
	return &models.StoreSummary{Stored: len(docs)}, nil
}

// stubBatchRunner delegates to a function
type stubBatchRunner struct {
	fn func(ctx context.Context, batch models.ProductBatch, jobID string) models.BatchResult
}

func (s *stubBatchRunner) Process(ctx context.Context, batch models.ProductBatch, jobID string) models.BatchResult {
	return s.fn(ctx, batch, jobID)
}
