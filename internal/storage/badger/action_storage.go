package badger

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/demandcast/internal/interfaces"
	"github.com/ternarybob/demandcast/internal/models"
	"github.com/timshannon/badgerhold/v4"
)

// actionStorage implements interfaces.ActionStorage backed by Badger
type actionStorage struct {
	db     *BadgerDB
	logger arbor.ILogger
}

// NewActionStorage creates a new action recommendation storage service
func NewActionStorage(db *BadgerDB, logger arbor.ILogger) interfaces.ActionStorage {
	return &actionStorage{
		db:     db,
		logger: logger,
	}
}

// CreateAction persists a new action recommendation
func (s *actionStorage) CreateAction(ctx context.Context, action *models.ActionRecommendation) error {
	if action == nil {
		return fmt.Errorf("action cannot be nil")
	}
	if action.ID == "" {
		return fmt.Errorf("action id cannot be empty")
	}

	now := time.Now()
	if action.CreatedAt.IsZero() {
		action.CreatedAt = now
	}
	action.UpdatedAt = now
	if action.Status == "" {
		action.Status = models.ActionStatusPending
	}

	if err := s.db.Store().Upsert(action.ID, action); err != nil {
		return fmt.Errorf("failed to save action %s: %w", action.ID, err)
	}

	s.logger.Debug().
		Str("action_id", action.ID).
		Str("type", action.ActionType).
		Str("priority", string(action.Priority)).
		Msg("Action saved")

	return nil
}

// GetAction retrieves an action by ID
func (s *actionStorage) GetAction(ctx context.Context, id string) (*models.ActionRecommendation, error) {
	var action models.ActionRecommendation
	if err := s.db.Store().Get(id, &action); err != nil {
		if errors.Is(err, badgerhold.ErrNotFound) {
			return nil, fmt.Errorf("action not found: %s", id)
		}
		return nil, fmt.Errorf("failed to get action %s: %w", id, err)
	}
	return &action, nil
}

// UpdateAction updates an existing action, preserving the creation time
func (s *actionStorage) UpdateAction(ctx context.Context, action *models.ActionRecommendation) error {
	if action == nil || action.ID == "" {
		return fmt.Errorf("action id cannot be empty")
	}

	existing, err := s.GetAction(ctx, action.ID)
	if err != nil {
		return err
	}

	action.CreatedAt = existing.CreatedAt
	action.UpdatedAt = time.Now()

	if err := s.db.Store().Upsert(action.ID, action); err != nil {
		return fmt.Errorf("failed to update action %s: %w", action.ID, err)
	}
	return nil
}

// ListActions returns actions filtered by status, newest first. An empty
// status matches all.
func (s *actionStorage) ListActions(ctx context.Context, status models.ActionStatus, limit int) ([]*models.ActionRecommendation, error) {
	if limit <= 0 {
		limit = 50
	}

	var query *badgerhold.Query
	if status != "" {
		query = badgerhold.Where("Status").Eq(status).SortBy("CreatedAt").Reverse().Limit(limit)
	} else {
		query = (&badgerhold.Query{}).SortBy("CreatedAt").Reverse().Limit(limit)
	}

	var actions []*models.ActionRecommendation
	if err := s.db.Store().Find(&actions, query); err != nil {
		return nil, fmt.Errorf("failed to list actions: %w", err)
	}
	return actions, nil
}
