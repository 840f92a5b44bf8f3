package handlers

import (
	"net/http"
	"strings"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/demandcast/internal/interfaces"
)

// ForecastHandler serves stored forecast results
type ForecastHandler struct {
	forecasts interfaces.ForecastStorage
	logger    arbor.ILogger
}

// NewForecastHandler creates a new ForecastHandler
func NewForecastHandler(forecasts interfaces.ForecastStorage, logger arbor.ILogger) *ForecastHandler {
	return &ForecastHandler{
		forecasts: forecasts,
		logger:    logger,
	}
}

// ListForecastsHandler handles GET /api/forecasts.
// With job_id set it returns that run's forecasts, with product_code the most
// recent forecast for that product, otherwise the latest set.
func (h *ForecastHandler) ListForecastsHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, "GET") {
		return
	}

	if productCode := r.URL.Query().Get("product_code"); productCode != "" {
		forecast, err := h.forecasts.LatestForecastForProduct(r.Context(), productCode)
		if err != nil {
			WriteError(w, http.StatusInternalServerError, err.Error())
			return
		}
		if forecast == nil {
			WriteError(w, http.StatusNotFound, "no forecast for product "+productCode)
			return
		}
		WriteJSON(w, http.StatusOK, forecast)
		return
	}

	if jobID := r.URL.Query().Get("job_id"); jobID != "" {
		forecasts, err := h.forecasts.ListForecastsByJob(r.Context(), jobID)
		if err != nil {
			WriteError(w, http.StatusInternalServerError, err.Error())
			return
		}
		WriteJSON(w, http.StatusOK, map[string]interface{}{
			"job_id":    jobID,
			"forecasts": forecasts,
			"count":     len(forecasts),
		})
		return
	}

	limit := GetLimitParam(r, 100, 500)
	forecasts, err := h.forecasts.ListLatestForecasts(r.Context(), limit)
	if err != nil {
		WriteError(w, http.StatusInternalServerError, err.Error())
		return
	}

	WriteJSON(w, http.StatusOK, map[string]interface{}{
		"forecasts": forecasts,
		"count":     len(forecasts),
	})
}

// GetForecastHandler handles GET /api/forecasts/{id}
func (h *ForecastHandler) GetForecastHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, "GET") {
		return
	}

	id := strings.TrimPrefix(r.URL.Path, "/api/forecasts/")
	if id == "" || strings.Contains(id, "/") {
		WriteError(w, http.StatusBadRequest, "missing forecast id")
		return
	}

	forecast, err := h.forecasts.GetForecast(r.Context(), id)
	if err != nil {
		WriteError(w, http.StatusNotFound, err.Error())
		return
	}

	WriteJSON(w, http.StatusOK, forecast)
}
