package server

import (
	"net/http"
)

// setupRoutes configures all HTTP routes
func (s *Server) setupRoutes() *http.ServeMux {
	mux := http.NewServeMux()

	// API routes - Jobs (pipeline runs)
	mux.HandleFunc("/api/jobs/forecast", s.app.JobHandler.TriggerForecastHandler) // POST - trigger a run
	mux.HandleFunc("/api/jobs", s.app.JobHandler.ListJobsHandler)
	mux.HandleFunc("/api/jobs/", s.app.JobHandler.GetJobHandler) // GET /{id}

	// API routes - Forecasts
	mux.HandleFunc("/api/forecasts", s.app.ForecastHandler.ListForecastsHandler)
	mux.HandleFunc("/api/forecasts/", s.app.ForecastHandler.GetForecastHandler) // GET /{id}

	// API routes - Actions
	mux.HandleFunc("/api/actions", s.app.ActionHandler.ListActionsHandler)
	mux.HandleFunc("/api/actions/", s.app.ActionHandler.UpdateActionHandler) // PUT /{id}

	// API routes - Alerts
	mux.HandleFunc("/api/alerts/stats", s.app.AlertHandler.GetAlertStatsHandler)
	mux.HandleFunc("/api/alerts", s.app.AlertHandler.ListAlertsHandler)

	// API routes - System
	mux.HandleFunc("/api/status", s.app.StatusHandler.GetStatusHandler)
	mux.HandleFunc("/api/version", s.app.APIHandler.VersionHandler)
	mux.HandleFunc("/api/health", s.app.APIHandler.HealthHandler)

	// 404 handler for unmatched API routes
	mux.HandleFunc("/api/", s.app.APIHandler.NotFoundHandler)

	return mux
}
