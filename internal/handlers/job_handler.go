package handlers

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/demandcast/internal/interfaces"
)

// JobHandler handles pipeline job requests
type JobHandler struct {
	orchestrator interfaces.Orchestrator
	jobs         interfaces.JobStorage
	logger       arbor.ILogger
}

// NewJobHandler creates a new JobHandler
func NewJobHandler(orchestrator interfaces.Orchestrator, jobs interfaces.JobStorage, logger arbor.ILogger) *JobHandler {
	return &JobHandler{
		orchestrator: orchestrator,
		jobs:         jobs,
		logger:       logger,
	}
}

// triggerRequest is the optional body of POST /api/jobs/forecast
type triggerRequest struct {
	// ProductCodes restricts the run to a subset; empty means the full universe
	ProductCodes []string `json:"product_codes,omitempty"`
}

// TriggerForecastHandler handles POST /api/jobs/forecast.
// The run executes asynchronously; the response carries the new job id.
func (h *JobHandler) TriggerForecastHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, "POST") {
		return
	}

	var req triggerRequest
	if r.Body != nil && r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			WriteError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
			return
		}
	}

	jobID, err := h.orchestrator.Trigger(r.Context(), req.ProductCodes)
	if err != nil {
		WriteError(w, http.StatusConflict, err.Error())
		return
	}

	h.logger.Info().
		Str("job_id", jobID).
		Int("products", len(req.ProductCodes)).
		Msg("Forecast run triggered via API")

	WriteStarted(w, jobID)
}

// ListJobsHandler handles GET /api/jobs
func (h *JobHandler) ListJobsHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, "GET") {
		return
	}

	limit := GetLimitParam(r, 50, 200)
	jobs, err := h.jobs.ListJobs(r.Context(), limit)
	if err != nil {
		WriteError(w, http.StatusInternalServerError, err.Error())
		return
	}

	WriteJSON(w, http.StatusOK, map[string]interface{}{
		"jobs":  jobs,
		"count": len(jobs),
	})
}

// GetJobHandler handles GET /api/jobs/{id}
func (h *JobHandler) GetJobHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, "GET") {
		return
	}

	id := strings.TrimPrefix(r.URL.Path, "/api/jobs/")
	if id == "" || strings.Contains(id, "/") {
		WriteError(w, http.StatusBadRequest, "missing job id")
		return
	}

	job, err := h.jobs.GetJob(r.Context(), id)
	if err != nil {
		WriteError(w, http.StatusNotFound, err.Error())
		return
	}

	WriteJSON(w, http.StatusOK, job)
}
