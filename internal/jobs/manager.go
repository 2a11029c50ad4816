package jobs

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/ternarybob/arbor"

	"github.com/ternarybob/sitemark/internal/common"
	"github.com/ternarybob/sitemark/internal/crawler"
	"github.com/ternarybob/sitemark/internal/interfaces"
	"github.com/ternarybob/sitemark/internal/services/llm"
	"github.com/ternarybob/sitemark/pkg/models"
)

// maxProgressEntries bounds the progress log kept on the job record; older
// entries roll off.
const maxProgressEntries = 200

// Manager owns crawl job lifecycles: it starts runs in background
// goroutines, tracks their status in durable storage, and honors
// cancellation between pages.
type Manager struct {
	config      *common.Config
	storage     interfaces.StorageManager
	events      interfaces.EventService
	screenshots interfaces.Screenshotter
	logger      arbor.ILogger
	validate    *validator.Validate

	mu      sync.Mutex
	cancels map[string]context.CancelFunc
	wg      sync.WaitGroup
}

func NewManager(config *common.Config, storage interfaces.StorageManager, events interfaces.EventService, screenshots interfaces.Screenshotter, logger arbor.ILogger) *Manager {
	return &Manager{
		config:      config,
		storage:     storage,
		events:      events,
		screenshots: screenshots,
		logger:      logger,
		validate:    validator.New(),
		cancels:     make(map[string]context.CancelFunc),
	}
}

// StartJob validates the target, records a pending job, and launches the
// crawl in the background. Configuration problems (including a missing API
// key) fail here, before any fetch happens.
func (m *Manager) StartJob(ctx context.Context, target models.CrawlTarget) (*models.CrawlJob, error) {
	m.applyDefaults(&target)

	if err := m.validate.Struct(target); err != nil {
		return nil, fmt.Errorf("invalid crawl target: %w", err)
	}

	llmService, err := llm.NewLLMService(m.config, target.APIKey, target.Model, m.logger)
	if err != nil {
		return nil, err
	}

	jobID := uuid.New().String()
	if target.OutputDir == "" {
		target.OutputDir = filepath.Join(m.config.Crawler.OutputDir, jobID)
	}

	job := &models.CrawlJob{
		ID:        jobID,
		Target:    target,
		Status:    models.JobStatusPending,
		Progress:  []models.ProgressEvent{},
		OutputDir: target.OutputDir,
		CreatedAt: time.Now().UTC(),
	}
	if err := m.storage.JobStorage().SaveJob(ctx, job); err != nil {
		llmService.Close()
		return nil, fmt.Errorf("failed to record job: %w", err)
	}

	runCtx, cancel := context.WithCancel(context.Background())
	m.mu.Lock()
	m.cancels[jobID] = cancel
	m.mu.Unlock()

	// The run goroutine keeps mutating the job record; callers get a
	// detached snapshot so they can read or marshal it freely.
	snapshot := job.Clone()

	m.wg.Add(1)
	go m.runJob(runCtx, job, llmService)

	m.logger.Info().
		Str("job_id", jobID).
		Str("base_url", target.BaseURL).
		Int("max_pages", target.MaxPages).
		Msg("Crawl job started")

	return snapshot, nil
}

func (m *Manager) applyDefaults(target *models.CrawlTarget) {
	cfg := m.config.Crawler
	if target.MaxPages <= 0 {
		target.MaxPages = cfg.MaxPages
	}
	if target.RateLimit <= 0 {
		target.RateLimit = cfg.RateLimit
	}
	if target.Timeout <= 0 {
		target.Timeout = cfg.RequestTimeout
	}
	if target.UserAgent == "" {
		target.UserAgent = cfg.UserAgent
	}
}

// runJob executes the pipeline for one job and records the outcome. A
// page-level failure never reaches here; only run-fatal conditions do.
func (m *Manager) runJob(ctx context.Context, job *models.CrawlJob, llmService interfaces.LLMService) {
	defer m.wg.Done()
	defer llmService.Close()
	defer func() {
		m.mu.Lock()
		delete(m.cancels, job.ID)
		m.mu.Unlock()
	}()

	job.Status = models.JobStatusRunning
	m.saveJob(job)

	emitter := m.jobEmitter(job)

	var screenshots interfaces.Screenshotter
	if job.Target.UseVision {
		screenshots = m.screenshots
	}

	pipeline, err := crawler.NewPipeline(job.Target, crawler.PipelineDeps{
		LLM:         llmService,
		Screenshots: screenshots,
		Pages:       m.storage.PageStorage(),
		Emitter:     emitter,
		JobID:       job.ID,
		OnPageComplete: func(done int, url string) {
			job.PagesDone = done
			m.saveJob(job)
			m.publish(interfaces.EventPageComplete, map[string]interface{}{
				"job_id":     job.ID,
				"url":        url,
				"pages_done": done,
			})
		},
	})
	if err != nil {
		m.finishJob(job, models.JobStatusFailed, err)
		return
	}

	result, err := pipeline.Run(ctx)
	if result != nil {
		job.PagesDone = result.PagesProcessed
	}
	switch {
	case err != nil:
		m.finishJob(job, models.JobStatusFailed, err)
	case ctx.Err() != nil:
		m.finishJob(job, models.JobStatusCancelled, nil)
	default:
		m.finishJob(job, models.JobStatusCompleted, nil)
	}
}

// jobEmitter forwards pipeline progress to the event stream and keeps a
// bounded progress log on the job record.
func (m *Manager) jobEmitter(job *models.CrawlJob) crawler.Emitter {
	forward := crawler.EventEmitter(m.events, job.ID, m.logger)
	var mu sync.Mutex
	return crawler.EmitterFunc(func(level, message string) {
		forward.Emit(level, message)

		mu.Lock()
		job.Progress = append(job.Progress, models.ProgressEvent{
			Level:     level,
			Message:   message,
			Timestamp: time.Now().UTC(),
		})
		if len(job.Progress) > maxProgressEntries {
			job.Progress = job.Progress[len(job.Progress)-maxProgressEntries:]
		}
		mu.Unlock()
	})
}

func (m *Manager) finishJob(job *models.CrawlJob, status models.JobStatus, runErr error) {
	now := time.Now().UTC()
	job.Status = status
	job.CompletedAt = &now
	if runErr != nil {
		job.Error = runErr.Error()
	}
	m.saveJob(job)

	payload := map[string]interface{}{
		"job_id":     job.ID,
		"status":     string(status),
		"pages_done": job.PagesDone,
	}
	eventType := interfaces.EventCrawlComplete
	if status == models.JobStatusFailed {
		eventType = interfaces.EventCrawlFailed
		payload["error"] = job.Error
	}
	m.publish(eventType, payload)

	m.logger.Info().
		Str("job_id", job.ID).
		Str("status", string(status)).
		Int("pages_done", job.PagesDone).
		Msg("Crawl job finished")
}

func (m *Manager) saveJob(job *models.CrawlJob) {
	if err := m.storage.JobStorage().SaveJob(context.Background(), job); err != nil {
		m.logger.Warn().Err(err).Str("job_id", job.ID).Msg("Failed to persist job state")
	}
}

func (m *Manager) publish(eventType interfaces.EventType, payload map[string]interface{}) {
	_ = m.events.Publish(context.Background(), interfaces.Event{
		Type:      eventType,
		Timestamp: time.Now().UTC(),
		Payload:   payload,
	})
}

// CancelJob requests a running job stop dequeuing pages. The in-flight page
// completes first; cancellation granularity is between pages.
func (m *Manager) CancelJob(id string) error {
	m.mu.Lock()
	cancel, ok := m.cancels[id]
	m.mu.Unlock()
	if !ok {
		return fmt.Errorf("no running job with id %s", id)
	}
	cancel()
	m.logger.Info().Str("job_id", id).Msg("Crawl job cancellation requested")
	return nil
}

// GetJob returns the stored state of a job.
func (m *Manager) GetJob(ctx context.Context, id string) (*models.CrawlJob, error) {
	return m.storage.JobStorage().GetJob(ctx, id)
}

// ListJobs returns all stored jobs, newest first.
func (m *Manager) ListJobs(ctx context.Context) ([]*models.CrawlJob, error) {
	return m.storage.JobStorage().ListJobs(ctx)
}

// Close cancels all running jobs and waits for them to wind down.
func (m *Manager) Close() error {
	m.mu.Lock()
	for _, cancel := range m.cancels {
		cancel()
	}
	m.mu.Unlock()
	m.wg.Wait()
	return nil
}
