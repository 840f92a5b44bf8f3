package handlers

import (
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/demandcast/internal/interfaces"
	"github.com/ternarybob/demandcast/internal/models"
)

// ActionHandler serves and updates action recommendations
type ActionHandler struct {
	actions interfaces.ActionStorage
	logger  arbor.ILogger
}

// NewActionHandler creates a new ActionHandler
func NewActionHandler(actions interfaces.ActionStorage, logger arbor.ILogger) *ActionHandler {
	return &ActionHandler{
		actions: actions,
		logger:  logger,
	}
}

// ListActionsHandler handles GET /api/actions with an optional status filter
func (h *ActionHandler) ListActionsHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, "GET") {
		return
	}

	status := models.ActionStatus(r.URL.Query().Get("status"))
	limit := GetLimitParam(r, 50, 200)

	actions, err := h.actions.ListActions(r.Context(), status, limit)
	if err != nil {
		WriteError(w, http.StatusInternalServerError, err.Error())
		return
	}

	WriteJSON(w, http.StatusOK, map[string]interface{}{
		"actions": actions,
		"count":   len(actions),
	})
}

// actionUpdateRequest is the body of PUT /api/actions/{id}
type actionUpdateRequest struct {
	Status     models.ActionStatus      `json:"status,omitempty"`
	Assignment *models.ActionAssignment `json:"assignment,omitempty"`
}

// UpdateActionHandler handles PUT /api/actions/{id}. Status transitions past
// pending are made here by dashboard users, never by the pipeline.
func (h *ActionHandler) UpdateActionHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, "PUT") {
		return
	}

	id := strings.TrimPrefix(r.URL.Path, "/api/actions/")
	if id == "" || strings.Contains(id, "/") {
		WriteError(w, http.StatusBadRequest, "missing action id")
		return
	}

	var req actionUpdateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		WriteError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}

	action, err := h.actions.GetAction(r.Context(), id)
	if err != nil {
		WriteError(w, http.StatusNotFound, err.Error())
		return
	}

	if req.Status != "" {
		if !validActionStatus(req.Status) {
			WriteError(w, http.StatusBadRequest, "invalid status: "+string(req.Status))
			return
		}
		action.Status = req.Status
	}
	if req.Assignment != nil {
		action.Assignment = req.Assignment
	}
	action.UpdatedAt = time.Now()

	if err := h.actions.UpdateAction(r.Context(), action); err != nil {
		WriteError(w, http.StatusInternalServerError, err.Error())
		return
	}

	h.logger.Info().
		Str("action_id", id).
		Str("status", string(action.Status)).
		Msg("Action updated")

	WriteJSON(w, http.StatusOK, action)
}

func validActionStatus(status models.ActionStatus) bool {
	switch status {
	case models.ActionStatusPending,
		models.ActionStatusInProgress,
		models.ActionStatusCompleted,
		models.ActionStatusSnoozed,
		models.ActionStatusCancelled:
		return true
	}
	return false
}
