package badger

import (
	"context"
	"fmt"
	"time"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/demandcast/internal/interfaces"
	"github.com/ternarybob/demandcast/internal/models"
	"github.com/timshannon/badgerhold/v4"
)

// alertStorage implements interfaces.AlertStorage backed by Badger
type alertStorage struct {
	db     *BadgerDB
	logger arbor.ILogger
}

// NewAlertStorage creates a new alert storage service
func NewAlertStorage(db *BadgerDB, logger arbor.ILogger) interfaces.AlertStorage {
	return &alertStorage{
		db:     db,
		logger: logger,
	}
}

// CreateAlert persists a new alert
func (s *alertStorage) CreateAlert(ctx context.Context, alert *models.Alert) error {
	if alert == nil {
		return fmt.Errorf("alert cannot be nil")
	}
	if alert.ID == "" {
		return fmt.Errorf("alert id cannot be empty")
	}
	if alert.CreatedAt.IsZero() {
		alert.CreatedAt = time.Now()
	}

	if err := s.db.Store().Upsert(alert.ID, alert); err != nil {
		return fmt.Errorf("failed to save alert %s: %w", alert.ID, err)
	}

	s.logger.Debug().
		Str("alert_id", alert.ID).
		Str("type", alert.AlertType).
		Str("severity", string(alert.Severity)).
		Msg("Alert saved")

	return nil
}

// ListAlerts returns the most recent alerts, newest first
func (s *alertStorage) ListAlerts(ctx context.Context, limit int) ([]*models.Alert, error) {
	if limit <= 0 {
		limit = 50
	}

	var alerts []*models.Alert
	query := (&badgerhold.Query{}).SortBy("CreatedAt").Reverse().Limit(limit)
	if err := s.db.Store().Find(&alerts, query); err != nil {
		return nil, fmt.Errorf("failed to list alerts: %w", err)
	}
	return alerts, nil
}

// GetAlertStats summarizes all stored alerts
func (s *alertStorage) GetAlertStats(ctx context.Context) (*models.AlertStats, error) {
	var alerts []*models.Alert
	if err := s.db.Store().Find(&alerts, nil); err != nil {
		return nil, fmt.Errorf("failed to scan alerts: %w", err)
	}

	stats := &models.AlertStats{
		TotalAlerts: len(alerts),
		BySeverity:  make(map[string]int),
		ByType:      make(map[string]int),
	}

	for _, alert := range alerts {
		stats.BySeverity[string(alert.Severity)]++
		stats.ByType[alert.AlertType]++
		if !alert.Read {
			stats.UnreadCount++
		}
		if stats.LatestAlert == nil || alert.CreatedAt.After(*stats.LatestAlert) {
			created := alert.CreatedAt
			stats.LatestAlert = &created
		}
	}

	return stats, nil
}

// DeleteAlertsBefore removes alerts created before the cutoff and returns the
// number deleted
func (s *alertStorage) DeleteAlertsBefore(ctx context.Context, cutoff time.Time) (int, error) {
	var alerts []*models.Alert
	query := badgerhold.Where("CreatedAt").Lt(cutoff)
	if err := s.db.Store().Find(&alerts, query); err != nil {
		return 0, fmt.Errorf("failed to query alerts before %s: %w", cutoff.Format(time.RFC3339), err)
	}

	deleted := 0
	for _, alert := range alerts {
		if err := s.db.Store().Delete(alert.ID, &models.Alert{}); err != nil {
			s.logger.Warn().Err(err).Str("alert_id", alert.ID).Msg("Failed to delete alert")
			continue
		}
		deleted++
	}

	if deleted > 0 {
		s.logger.Debug().Int("deleted", deleted).Msg("Old alerts pruned")
	}
	return deleted, nil
}
