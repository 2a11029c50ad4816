package badger

import (
	"context"
	"fmt"

	"github.com/ternarybob/arbor"
	"github.com/timshannon/badgerhold/v4"

	"github.com/ternarybob/sitemark/internal/interfaces"
	"github.com/ternarybob/sitemark/pkg/models"
)

// JobStorage implements the JobStorage interface for Badger
type JobStorage struct {
	db     *BadgerDB
	logger arbor.ILogger
}

// NewJobStorage creates a new JobStorage instance
func NewJobStorage(db *BadgerDB, logger arbor.ILogger) interfaces.JobStorage {
	return &JobStorage{
		db:     db,
		logger: logger,
	}
}

func (s *JobStorage) SaveJob(ctx context.Context, job *models.CrawlJob) error {
	if job == nil {
		return fmt.Errorf("job cannot be nil")
	}
	if job.ID == "" {
		return fmt.Errorf("job ID is required")
	}

	if err := s.db.Store().Upsert(job.ID, job); err != nil {
		return fmt.Errorf("failed to save job: %w", err)
	}
	return nil
}

func (s *JobStorage) GetJob(ctx context.Context, id string) (*models.CrawlJob, error) {
	var job models.CrawlJob
	if err := s.db.Store().Get(id, &job); err != nil {
		if err == badgerhold.ErrNotFound {
			return nil, fmt.Errorf("job not found: %s", id)
		}
		return nil, fmt.Errorf("failed to get job: %w", err)
	}
	return &job, nil
}

func (s *JobStorage) ListJobs(ctx context.Context) ([]*models.CrawlJob, error) {
	var jobs []*models.CrawlJob
	query := badgerhold.Where("ID").Ne("").SortBy("CreatedAt").Reverse()
	if err := s.db.Store().Find(&jobs, query); err != nil {
		return nil, fmt.Errorf("failed to list jobs: %w", err)
	}
	return jobs, nil
}

func (s *JobStorage) DeleteJob(ctx context.Context, id string) error {
	if err := s.db.Store().Delete(id, &models.CrawlJob{}); err != nil {
		if err == badgerhold.ErrNotFound {
			return fmt.Errorf("job not found: %s", id)
		}
		return fmt.Errorf("failed to delete job: %w", err)
	}
	return nil
}
