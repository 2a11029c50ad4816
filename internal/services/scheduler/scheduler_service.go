package scheduler

import (
	"context"
	"sync"

	"github.com/robfig/cron/v3"
	"github.com/ternarybob/arbor"

	"github.com/ternarybob/sitemark/internal/common"
	"github.com/ternarybob/sitemark/internal/jobs"
	"github.com/ternarybob/sitemark/pkg/models"
)

// Service runs configured recurring crawls on cron schedules. Each firing
// starts an ordinary crawl job; a schedule does not fire again while its
// previous job is still running.
type Service struct {
	cron    *cron.Cron
	manager *jobs.Manager
	logger  arbor.ILogger

	mu      sync.Mutex
	lastJob map[string]string
}

func NewService(manager *jobs.Manager, logger arbor.ILogger) *Service {
	return &Service{
		cron:    cron.New(),
		manager: manager,
		logger:  logger,
		lastJob: make(map[string]string),
	}
}

// Register adds the configured schedules. Invalid cron expressions are
// logged and skipped; one bad schedule must not block the rest.
func (s *Service) Register(schedules []common.ScheduleConfig) {
	for _, sched := range schedules {
		sched := sched
		_, err := s.cron.AddFunc(sched.Schedule, func() {
			s.fire(sched)
		})
		if err != nil {
			s.logger.Warn().
				Err(err).
				Str("name", sched.Name).
				Str("schedule", sched.Schedule).
				Msg("Invalid cron schedule, skipping")
			continue
		}
		s.logger.Info().
			Str("name", sched.Name).
			Str("schedule", sched.Schedule).
			Str("base_url", sched.BaseURL).
			Msg("Recurring crawl registered")
	}
}

func (s *Service) fire(sched common.ScheduleConfig) {
	s.mu.Lock()
	defer s.mu.Unlock()

	ctx := context.Background()

	if prevID := s.lastJob[sched.Name]; prevID != "" {
		if prev, err := s.manager.GetJob(ctx, prevID); err == nil && !prev.IsTerminal() {
			s.logger.Warn().
				Str("name", sched.Name).
				Str("job_id", prevID).
				Msg("Previous scheduled crawl still running, skipping this firing")
			return
		}
	}

	target := models.CrawlTarget{
		BaseURL:  sched.BaseURL,
		MaxPages: sched.MaxPages,
	}

	job, err := s.manager.StartJob(ctx, target)
	if err != nil {
		s.logger.Error().
			Err(err).
			Str("name", sched.Name).
			Msg("Scheduled crawl failed to start")
		return
	}
	s.lastJob[sched.Name] = job.ID
	s.logger.Info().
		Str("name", sched.Name).
		Str("job_id", job.ID).
		Msg("Scheduled crawl started")
}

func (s *Service) Start() {
	s.cron.Start()
	s.logger.Info().Msg("Scheduler started")
}

func (s *Service) Stop() {
	s.cron.Stop()
	s.logger.Info().Msg("Scheduler stopped")
}
