package badger

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/demandcast/internal/interfaces"
	"github.com/timshannon/badgerhold/v4"
)

// kvStorage implements interfaces.KeyValueStorage backed by Badger
type kvStorage struct {
	db     *BadgerDB
	logger arbor.ILogger
}

// NewKVStorage creates a new key/value storage service
func NewKVStorage(db *BadgerDB, logger arbor.ILogger) interfaces.KeyValueStorage {
	return &kvStorage{
		db:     db,
		logger: logger,
	}
}

// Get retrieves a value by key
func (s *kvStorage) Get(ctx context.Context, key string) (string, error) {
	if key == "" {
		return "", fmt.Errorf("key cannot be empty")
	}

	var pair interfaces.KeyValuePair
	if err := s.db.Store().Get(key, &pair); err != nil {
		if errors.Is(err, badgerhold.ErrNotFound) {
			return "", interfaces.ErrKeyNotFound
		}
		return "", fmt.Errorf("failed to get key %s: %w", key, err)
	}
	return pair.Value, nil
}

// Set stores a value, preserving the original creation time on update
func (s *kvStorage) Set(ctx context.Context, key, value string) error {
	if key == "" {
		return fmt.Errorf("key cannot be empty")
	}

	now := time.Now()
	pair := interfaces.KeyValuePair{
		Key:       key,
		Value:     value,
		CreatedAt: now,
		UpdatedAt: now,
	}

	var existing interfaces.KeyValuePair
	if err := s.db.Store().Get(key, &existing); err == nil {
		pair.CreatedAt = existing.CreatedAt
	}

	if err := s.db.Store().Upsert(key, &pair); err != nil {
		return fmt.Errorf("failed to set key %s: %w", key, err)
	}

	s.logger.Debug().Str("key", key).Msg("Key/value pair saved")
	return nil
}

// Delete removes a key. Deleting a missing key is not an error.
func (s *kvStorage) Delete(ctx context.Context, key string) error {
	if key == "" {
		return fmt.Errorf("key cannot be empty")
	}

	if err := s.db.Store().Delete(key, &interfaces.KeyValuePair{}); err != nil {
		if errors.Is(err, badgerhold.ErrNotFound) {
			return nil
		}
		return fmt.Errorf("failed to delete key %s: %w", key, err)
	}
	return nil
}

// GetAll returns all stored key/value pairs
func (s *kvStorage) GetAll(ctx context.Context) (map[string]string, error) {
	var pairs []interfaces.KeyValuePair
	if err := s.db.Store().Find(&pairs, nil); err != nil {
		return nil, fmt.Errorf("failed to list key/value pairs: %w", err)
	}

	result := make(map[string]string, len(pairs))
	for _, pair := range pairs {
		result[pair.Key] = pair.Value
	}
	return result, nil
}
