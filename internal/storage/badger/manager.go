package badger

import (
	"github.com/ternarybob/arbor"

	"github.com/ternarybob/sitemark/internal/common"
	"github.com/ternarybob/sitemark/internal/interfaces"
)

// Manager implements the StorageManager interface for Badger
type Manager struct {
	db     *BadgerDB
	jobs   interfaces.JobStorage
	pages  interfaces.PageStorage
	logger arbor.ILogger
}

// NewManager creates a new Badger storage manager
func NewManager(logger arbor.ILogger, config *common.BadgerConfig) (interfaces.StorageManager, error) {
	db, err := NewBadgerDB(logger, config)
	if err != nil {
		return nil, err
	}

	manager := &Manager{
		db:     db,
		jobs:   NewJobStorage(db, logger),
		pages:  NewPageStorage(db, logger),
		logger: logger,
	}

	logger.Info().Msg("Badger storage manager initialized")

	return manager, nil
}

// JobStorage returns the Job storage interface
func (m *Manager) JobStorage() interfaces.JobStorage {
	return m.jobs
}

// PageStorage returns the Page storage interface
func (m *Manager) PageStorage() interfaces.PageStorage {
	return m.pages
}

// Close closes the underlying database
func (m *Manager) Close() error {
	m.logger.Debug().Msg("Closing Badger storage manager")
	return m.db.Close()
}
