package handlers

import (
	"net/http"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/demandcast/internal/interfaces"
)

// AlertHandler serves stored alerts
type AlertHandler struct {
	alerts interfaces.AlertStorage
	logger arbor.ILogger
}

// NewAlertHandler creates a new AlertHandler
func NewAlertHandler(alerts interfaces.AlertStorage, logger arbor.ILogger) *AlertHandler {
	return &AlertHandler{
		alerts: alerts,
		logger: logger,
	}
}

// ListAlertsHandler handles GET /api/alerts
func (h *AlertHandler) ListAlertsHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, "GET") {
		return
	}

	limit := GetLimitParam(r, 50, 200)
	alerts, err := h.alerts.ListAlerts(r.Context(), limit)
	if err != nil {
		WriteError(w, http.StatusInternalServerError, err.Error())
		return
	}

	WriteJSON(w, http.StatusOK, map[string]interface{}{
		"alerts": alerts,
		"count":  len(alerts),
	})
}

// GetAlertStatsHandler handles GET /api/alerts/stats
func (h *AlertHandler) GetAlertStatsHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, "GET") {
		return
	}

	stats, err := h.alerts.GetAlertStats(r.Context())
	if err != nil {
		WriteError(w, http.StatusInternalServerError, err.Error())
		return
	}

	WriteJSON(w, http.StatusOK, stats)
}
