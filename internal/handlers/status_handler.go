package handlers

import (
	"net/http"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/demandcast/internal/common"
	"github.com/ternarybob/demandcast/internal/interfaces"
)

// SchedulerStatus is the scheduler surface the status endpoint needs
type SchedulerStatus interface {
	IsRunning() bool
}

// StatusHandler reports overall application status
type StatusHandler struct {
	storage   interfaces.StorageManager
	scheduler SchedulerStatus
	config    *common.Config
	logger    arbor.ILogger
}

// NewStatusHandler creates a new StatusHandler. scheduler may be nil when the
// scheduler is disabled.
func NewStatusHandler(storage interfaces.StorageManager, scheduler SchedulerStatus, config *common.Config, logger arbor.ILogger) *StatusHandler {
	return &StatusHandler{
		storage:   storage,
		scheduler: scheduler,
		config:    config,
		logger:    logger,
	}
}

// GetStatusHandler handles GET /api/status
func (h *StatusHandler) GetStatusHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, "GET") {
		return
	}

	ctx := r.Context()
	status := map[string]interface{}{
		"version":     common.GetVersion(),
		"environment": h.config.Environment,
	}

	if documents, err := h.storage.DocumentStorage().CountDocuments(ctx); err == nil {
		status["documents"] = documents
	}
	if products, err := h.storage.ProductStorage().CountProducts(ctx); err == nil {
		status["products"] = products
	}

	if active, err := h.storage.JobStorage().ActiveJob(ctx); err == nil && active != nil {
		status["active_job"] = map[string]interface{}{
			"id":    active.ID,
			"stage": active.Stage,
		}
	}

	status["scheduler_enabled"] = h.config.Scheduler.Enabled
	if h.scheduler != nil {
		status["scheduler_running"] = h.scheduler.IsRunning()
	}

	WriteJSON(w, http.StatusOK, status)
}
