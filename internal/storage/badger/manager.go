package badger

import (
	"github.com/ternarybob/arbor"
	"github.com/ternarybob/demandcast/internal/common"
	"github.com/ternarybob/demandcast/internal/interfaces"
)

// Manager implements the StorageManager interface for Badger
type Manager struct {
	db       *BadgerDB
	job      interfaces.JobStorage
	document interfaces.DocumentStorage
	forecast interfaces.ForecastStorage
	action   interfaces.ActionStorage
	alert    interfaces.AlertStorage
	product  interfaces.ProductStorage
	kv       interfaces.KeyValueStorage
	logger   arbor.ILogger
}

// NewManager creates a new Badger storage manager
func NewManager(logger arbor.ILogger, config *common.BadgerConfig) (interfaces.StorageManager, error) {
	db, err := NewBadgerDB(logger, config)
	if err != nil {
		return nil, err
	}

	manager := &Manager{
		db:       db,
		job:      NewJobStorage(db, logger),
		document: NewDocumentStorage(db, logger),
		forecast: NewForecastStorage(db, logger),
		action:   NewActionStorage(db, logger),
		alert:    NewAlertStorage(db, logger),
		product:  NewProductStorage(db, logger),
		kv:       NewKVStorage(db, logger),
		logger:   logger,
	}

	logger.Info().Msg("Badger storage manager initialized")

	return manager, nil
}

// JobStorage returns the PipelineJob storage interface
func (m *Manager) JobStorage() interfaces.JobStorage {
	return m.job
}

// DocumentStorage returns the Document storage interface
func (m *Manager) DocumentStorage() interfaces.DocumentStorage {
	return m.document
}

// ForecastStorage returns the Forecast storage interface
func (m *Manager) ForecastStorage() interfaces.ForecastStorage {
	return m.forecast
}

// ActionStorage returns the Action storage interface
func (m *Manager) ActionStorage() interfaces.ActionStorage {
	return m.action
}

// AlertStorage returns the Alert storage interface
func (m *Manager) AlertStorage() interfaces.AlertStorage {
	return m.alert
}

// ProductStorage returns the Product storage interface
func (m *Manager) ProductStorage() interfaces.ProductStorage {
	return m.product
}

// KeyValueStorage returns the KeyValue storage interface
func (m *Manager) KeyValueStorage() interfaces.KeyValueStorage {
	return m.kv
}

// Close closes the database connection
func (m *Manager) Close() error {
	if m.db != nil {
		return m.db.Close()
	}
	return nil
}
