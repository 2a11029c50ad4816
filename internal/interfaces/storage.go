package interfaces

import (
	"context"

	"github.com/ternarybob/sitemark/pkg/models"
)

// JobStorage persists crawl job bookkeeping records
type JobStorage interface {
	SaveJob(ctx context.Context, job *models.CrawlJob) error
	GetJob(ctx context.Context, id string) (*models.CrawlJob, error)
	ListJobs(ctx context.Context) ([]*models.CrawlJob, error)
	DeleteJob(ctx context.Context, id string) error
}

// PageStorage persists per-page history records as each page completes
type PageStorage interface {
	SavePage(ctx context.Context, page *models.StoredPage) error
	GetPageByURL(ctx context.Context, url string) (*models.StoredPage, error)
	ListPagesByJob(ctx context.Context, jobID string) ([]*models.StoredPage, error)
}

// StorageManager bundles the storage backends and owns their lifecycle
type StorageManager interface {
	JobStorage() JobStorage
	PageStorage() PageStorage
	Close() error
}
