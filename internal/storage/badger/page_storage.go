package badger

import (
	"context"
	"fmt"

	"github.com/ternarybob/arbor"
	"github.com/timshannon/badgerhold/v4"

	"github.com/ternarybob/sitemark/internal/interfaces"
	"github.com/ternarybob/sitemark/pkg/models"
)

// PageStorage implements the PageStorage interface for Badger. Pages are
// written as each one completes, keeping crawl history queryable across
// runs.
type PageStorage struct {
	db     *BadgerDB
	logger arbor.ILogger
}

// NewPageStorage creates a new PageStorage instance
func NewPageStorage(db *BadgerDB, logger arbor.ILogger) interfaces.PageStorage {
	return &PageStorage{
		db:     db,
		logger: logger,
	}
}

func (s *PageStorage) SavePage(ctx context.Context, page *models.StoredPage) error {
	if page == nil {
		return fmt.Errorf("page cannot be nil")
	}
	if page.ID == "" {
		return fmt.Errorf("page ID is required")
	}

	if err := s.db.Store().Upsert(page.ID, page); err != nil {
		return fmt.Errorf("failed to save page: %w", err)
	}
	return nil
}

func (s *PageStorage) GetPageByURL(ctx context.Context, url string) (*models.StoredPage, error) {
	var pages []*models.StoredPage
	query := badgerhold.Where("URL").Eq(url).SortBy("CrawledAt").Reverse().Limit(1)
	if err := s.db.Store().Find(&pages, query); err != nil {
		return nil, fmt.Errorf("failed to query page by URL: %w", err)
	}
	if len(pages) == 0 {
		return nil, fmt.Errorf("page not found: %s", url)
	}
	return pages[0], nil
}

func (s *PageStorage) ListPagesByJob(ctx context.Context, jobID string) ([]*models.StoredPage, error) {
	var pages []*models.StoredPage
	query := badgerhold.Where("JobID").Eq(jobID).Index("JobID").SortBy("CrawledAt")
	if err := s.db.Store().Find(&pages, query); err != nil {
		return nil, fmt.Errorf("failed to list pages for job: %w", err)
	}
	return pages, nil
}
