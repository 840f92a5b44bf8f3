package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ternarybob/arbor"
	"github.com/ternarybob/demandcast/internal/models"
)

// stubOrchestrator implements interfaces.Orchestrator for handler tests
type stubOrchestrator struct {
	jobID   string
	err     error
	running bool
}

func (s *stubOrchestrator) Run(ctx context.Context, productCodes []string) *models.PipelineOutcome {
	return &models.PipelineOutcome{JobID: s.jobID, Status: models.JobStatusCompleted}
}

func (s *stubOrchestrator) Trigger(ctx context.Context, productCodes []string) (string, error) {
	if s.err != nil {
		return "", s.err
	}
	return s.jobID, nil
}

// stubJobStorage holds a fixed job set
type stubJobStorage struct {
	jobs map[string]*models.PipelineJob
}

func (s *stubJobStorage) SaveJob(ctx context.Context, job *models.PipelineJob) error { return nil }

func (s *stubJobStorage) GetJob(ctx context.Context, id string) (*models.PipelineJob, error) {
	job, ok := s.jobs[id]
	if !ok {
		return nil, fmt.Errorf("job not found: %s", id)
	}
	return job, nil
}

func (s *stubJobStorage) ListJobs(ctx context.Context, limit int) ([]*models.PipelineJob, error) {
	var out []*models.PipelineJob
	for _, job := range s.jobs {
		out = append(out, job)
	}
	return out, nil
}

func (s *stubJobStorage) ActiveJob(ctx context.Context) (*models.PipelineJob, error) {
	return nil, nil
}

// stubForecastStorage holds a fixed forecast set
type stubForecastStorage struct {
	forecasts map[string]*models.ForecastResult
}

func (s *stubForecastStorage) CreateForecast(ctx context.Context, forecast *models.ForecastResult) error {
	return nil
}
func (s *stubForecastStorage) SaveTimeseries(ctx context.Context, forecastID string, points []models.TimeseriesPoint) error {
	return nil
}
func (s *stubForecastStorage) SaveMetrics(ctx context.Context, forecastID string, metrics *models.ModelMetrics) error {
	return nil
}
func (s *stubForecastStorage) SaveFailure(ctx context.Context, failure *models.ProductFailure) error {
	return nil
}

func (s *stubForecastStorage) GetForecast(ctx context.Context, id string) (*models.ForecastResult, error) {
	forecast, ok := s.forecasts[id]
	if !ok {
		return nil, fmt.Errorf("forecast not found: %s", id)
	}
	return forecast, nil
}

func (s *stubForecastStorage) ListForecastsByJob(ctx context.Context, jobID string) ([]*models.ForecastResult, error) {
	var out []*models.ForecastResult
	for _, forecast := range s.forecasts {
		if forecast.JobID == jobID {
			out = append(out, forecast)
		}
	}
	return out, nil
}

func (s *stubForecastStorage) ListLatestForecasts(ctx context.Context, limit int) ([]*models.ForecastResult, error) {
	var out []*models.ForecastResult
	for _, forecast := range s.forecasts {
		out = append(out, forecast)
	}
	return out, nil
}

func (s *stubForecastStorage) LatestForecastForProduct(ctx context.Context, productCode string) (*models.ForecastResult, error) {
	var latest *models.ForecastResult
	for _, forecast := range s.forecasts {
		if forecast.ProductCode != productCode {
			continue
		}
		if latest == nil || forecast.CreatedAt.After(latest.CreatedAt) {
			latest = forecast
		}
	}
	return latest, nil
}

// stubActionStorage holds a fixed action set
type stubActionStorage struct {
	actions map[string]*models.ActionRecommendation
	updated *models.ActionRecommendation
}

func (s *stubActionStorage) CreateAction(ctx context.Context, action *models.ActionRecommendation) error {
	return nil
}

func (s *stubActionStorage) GetAction(ctx context.Context, id string) (*models.ActionRecommendation, error) {
	action, ok := s.actions[id]
	if !ok {
		return nil, fmt.Errorf("action not found: %s", id)
	}
	copied := *action
	return &copied, nil
}

func (s *stubActionStorage) UpdateAction(ctx context.Context, action *models.ActionRecommendation) error {
	s.updated = action
	return nil
}

func (s *stubActionStorage) ListActions(ctx context.Context, status models.ActionStatus, limit int) ([]*models.ActionRecommendation, error) {
	var out []*models.ActionRecommendation
	for _, action := range s.actions {
		if status != "" && action.Status != status {
			continue
		}
		out = append(out, action)
	}
	return out, nil
}

// stubAlertStorage holds a fixed alert set
type stubAlertStorage struct {
	alerts []*models.Alert
}

func (s *stubAlertStorage) CreateAlert(ctx context.Context, alert *models.Alert) error { return nil }

func (s *stubAlertStorage) ListAlerts(ctx context.Context, limit int) ([]*models.Alert, error) {
	return s.alerts, nil
}

func (s *stubAlertStorage) GetAlertStats(ctx context.Context) (*models.AlertStats, error) {
	return &models.AlertStats{TotalAlerts: len(s.alerts), UnreadCount: len(s.alerts)}, nil
}

func (s *stubAlertStorage) DeleteAlertsBefore(ctx context.Context, cutoff time.Time) (int, error) {
	return 0, nil
}

func TestTriggerForecastHandler(t *testing.T) {
	handler := NewJobHandler(&stubOrchestrator{jobID: "job_new"}, &stubJobStorage{}, arbor.NewLogger())

	body := bytes.NewBufferString(`{"product_codes":["p-01","p-02"]}`)
	req := httptest.NewRequest("POST", "/api/jobs/forecast", body)
	rec := httptest.NewRecorder()

	handler.TriggerForecastHandler(rec, req)

	require.Equal(t, http.StatusAccepted, rec.Code)
	var resp map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "started", resp["status"])
	assert.Equal(t, "job_new", resp["job_id"])
}

func TestTriggerForecastHandlerEmptyBody(t *testing.T) {
	handler := NewJobHandler(&stubOrchestrator{jobID: "job_new"}, &stubJobStorage{}, arbor.NewLogger())

	req := httptest.NewRequest("POST", "/api/jobs/forecast", nil)
	rec := httptest.NewRecorder()

	handler.TriggerForecastHandler(rec, req)

	assert.Equal(t, http.StatusAccepted, rec.Code)
}

func TestTriggerForecastHandlerConflict(t *testing.T) {
	orchestrator := &stubOrchestrator{err: fmt.Errorf("a pipeline run is already active")}
	handler := NewJobHandler(orchestrator, &stubJobStorage{}, arbor.NewLogger())

	req := httptest.NewRequest("POST", "/api/jobs/forecast", nil)
	rec := httptest.NewRecorder()

	handler.TriggerForecastHandler(rec, req)

	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestTriggerForecastHandlerRejectsGet(t *testing.T) {
	handler := NewJobHandler(&stubOrchestrator{}, &stubJobStorage{}, arbor.NewLogger())

	req := httptest.NewRequest("GET", "/api/jobs/forecast", nil)
	rec := httptest.NewRecorder()

	handler.TriggerForecastHandler(rec, req)

	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestGetJobHandler(t *testing.T) {
	jobs := &stubJobStorage{jobs: map[string]*models.PipelineJob{
		"job_1": {ID: "job_1", Status: models.JobStatusCompleted, Provenance: models.ProvenanceReal},
	}}
	handler := NewJobHandler(&stubOrchestrator{}, jobs, arbor.NewLogger())

	req := httptest.NewRequest("GET", "/api/jobs/job_1", nil)
	rec := httptest.NewRecorder()
	handler.GetJobHandler(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var job models.PipelineJob
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &job))
	assert.Equal(t, "job_1", job.ID)
	assert.Equal(t, models.JobStatusCompleted, job.Status)

	req = httptest.NewRequest("GET", "/api/jobs/missing", nil)
	rec = httptest.NewRecorder()
	handler.GetJobHandler(rec, req)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestListForecastsByJob(t *testing.T) {
	forecasts := &stubForecastStorage{forecasts: map[string]*models.ForecastResult{
		"fct_1": {ID: "fct_1", JobID: "job_1", ProductCode: "p-01"},
		"fct_2": {ID: "fct_2", JobID: "job_2", ProductCode: "p-02"},
	}}
	handler := NewForecastHandler(forecasts, arbor.NewLogger())

	req := httptest.NewRequest("GET", "/api/forecasts?job_id=job_1", nil)
	rec := httptest.NewRecorder()
	handler.ListForecastsHandler(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var resp struct {
		JobID     string                   `json:"job_id"`
		Forecasts []*models.ForecastResult `json:"forecasts"`
		Count     int                      `json:"count"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, 1, resp.Count)
	assert.Equal(t, "p-01", resp.Forecasts[0].ProductCode)
}

func TestListForecastsByProductCode(t *testing.T) {
	forecasts := &stubForecastStorage{forecasts: map[string]*models.ForecastResult{
		"fct_1": {ID: "fct_1", JobID: "job_1", ProductCode: "p-01", CreatedAt: time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)},
		"fct_2": {ID: "fct_2", JobID: "job_2", ProductCode: "p-01", CreatedAt: time.Date(2026, 8, 20, 0, 0, 0, 0, time.UTC)},
		"fct_3": {ID: "fct_3", JobID: "job_2", ProductCode: "p-02", CreatedAt: time.Date(2026, 8, 20, 0, 0, 0, 0, time.UTC)},
	}}
	handler := NewForecastHandler(forecasts, arbor.NewLogger())

	req := httptest.NewRequest("GET", "/api/forecasts?product_code=p-01", nil)
	rec := httptest.NewRecorder()
	handler.ListForecastsHandler(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var resp models.ForecastResult
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "fct_2", resp.ID)

	req = httptest.NewRequest("GET", "/api/forecasts?product_code=p-99", nil)
	rec = httptest.NewRecorder()
	handler.ListForecastsHandler(rec, req)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestGetForecastHandler(t *testing.T) {
	forecasts := &stubForecastStorage{forecasts: map[string]*models.ForecastResult{
		"fct_1": {ID: "fct_1", ProductCode: "p-01", ForecastUnits: 120},
	}}
	handler := NewForecastHandler(forecasts, arbor.NewLogger())

	req := httptest.NewRequest("GET", "/api/forecasts/fct_1", nil)
	rec := httptest.NewRecorder()
	handler.GetForecastHandler(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var forecast models.ForecastResult
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &forecast))
	assert.Equal(t, 120.0, forecast.ForecastUnits)
}

func TestUpdateActionHandler(t *testing.T) {
	actions := &stubActionStorage{actions: map[string]*models.ActionRecommendation{
		"act_1": {ID: "act_1", Status: models.ActionStatusPending},
	}}
	handler := NewActionHandler(actions, arbor.NewLogger())

	body := bytes.NewBufferString(`{"status":"in_progress"}`)
	req := httptest.NewRequest("PUT", "/api/actions/act_1", body)
	rec := httptest.NewRecorder()
	handler.UpdateActionHandler(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	require.NotNil(t, actions.updated)
	assert.Equal(t, models.ActionStatusInProgress, actions.updated.Status)
}

func TestUpdateActionHandlerInvalidStatus(t *testing.T) {
	actions := &stubActionStorage{actions: map[string]*models.ActionRecommendation{
		"act_1": {ID: "act_1", Status: models.ActionStatusPending},
	}}
	handler := NewActionHandler(actions, arbor.NewLogger())

	body := bytes.NewBufferString(`{"status":"bogus"}`)
	req := httptest.NewRequest("PUT", "/api/actions/act_1", body)
	rec := httptest.NewRecorder()
	handler.UpdateActionHandler(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Nil(t, actions.updated)
}

func TestListActionsHandlerStatusFilter(t *testing.T) {
	actions := &stubActionStorage{actions: map[string]*models.ActionRecommendation{
		"act_1": {ID: "act_1", Status: models.ActionStatusPending},
		"act_2": {ID: "act_2", Status: models.ActionStatusCompleted},
	}}
	handler := NewActionHandler(actions, arbor.NewLogger())

	req := httptest.NewRequest("GET", "/api/actions?status=pending", nil)
	rec := httptest.NewRecorder()
	handler.ListActionsHandler(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var resp struct {
		Count int `json:"count"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, 1, resp.Count)
}

func TestAlertHandlers(t *testing.T) {
	alerts := &stubAlertStorage{alerts: []*models.Alert{
		{ID: "alr_1", Severity: models.AlertSeverityWarning, Message: "demand change"},
	}}
	handler := NewAlertHandler(alerts, arbor.NewLogger())

	req := httptest.NewRequest("GET", "/api/alerts", nil)
	rec := httptest.NewRecorder()
	handler.ListAlertsHandler(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	req = httptest.NewRequest("GET", "/api/alerts/stats", nil)
	rec = httptest.NewRecorder()
	handler.GetAlertStatsHandler(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	var stats models.AlertStats
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &stats))
	assert.Equal(t, 1, stats.TotalAlerts)
}

func TestGetLimitParam(t *testing.T) {
	req := httptest.NewRequest("GET", "/api/jobs?limit=500", nil)
	assert.Equal(t, 200, GetLimitParam(req, 50, 200))

	req = httptest.NewRequest("GET", "/api/jobs", nil)
	assert.Equal(t, 50, GetLimitParam(req, 50, 200))

	req = httptest.NewRequest("GET", "/api/jobs?limit=abc", nil)
	assert.Equal(t, 50, GetLimitParam(req, 50, 200))
}
