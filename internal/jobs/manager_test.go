package jobs

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ternarybob/arbor"

	"github.com/ternarybob/sitemark/internal/common"
	"github.com/ternarybob/sitemark/internal/services/events"
	"github.com/ternarybob/sitemark/internal/storage/badger"
	"github.com/ternarybob/sitemark/pkg/models"
)

func newTestManager(t *testing.T) *Manager {
	t.Helper()
	logger := arbor.NewLogger()

	cfg := common.NewDefaultConfig()
	cfg.Crawler.OutputDir = t.TempDir()
	cfg.Storage.Badger.Path = filepath.Join(t.TempDir(), "badger")

	storage, err := badger.NewManager(logger, &cfg.Storage.Badger)
	require.NoError(t, err)
	t.Cleanup(func() { storage.Close() })

	manager := NewManager(cfg, storage, events.NewService(logger), nil, logger)
	t.Cleanup(func() { _ = manager.Close() })
	return manager
}

// deadTarget points at a closed listener so the run fails fast without
// touching the network or the LLM.
func deadTarget(t *testing.T) models.CrawlTarget {
	t.Helper()
	server := httptest.NewServer(http.NotFoundHandler())
	baseURL := server.URL
	server.Close()

	return models.CrawlTarget{
		BaseURL:   baseURL,
		MaxPages:  1,
		RateLimit: time.Millisecond,
		Timeout:   time.Second,
		UserAgent: "sitemark-test",
		UseVision: false,
	}
}

func waitTerminal(t *testing.T, manager *Manager, jobID string) *models.CrawlJob {
	t.Helper()
	var stored *models.CrawlJob
	require.Eventually(t, func() bool {
		job, err := manager.GetJob(context.Background(), jobID)
		if err != nil || !job.IsTerminal() {
			return false
		}
		stored = job
		return true
	}, 10*time.Second, 20*time.Millisecond, "job never reached a terminal status")
	return stored
}

func TestStartJob_ReturnsDetachedRecord(t *testing.T) {
	t.Setenv("ANTHROPIC_API_KEY", "test-key")
	manager := newTestManager(t)

	returned, err := manager.StartJob(context.Background(), deadTarget(t))
	require.NoError(t, err)
	require.NotNil(t, returned)

	// Readers marshal the returned record while the run goroutine is still
	// mutating its own copy; the snapshot must hold still under that.
	marshalDone := make(chan struct{})
	go func() {
		defer close(marshalDone)
		for i := 0; i < 500; i++ {
			_, err := json.Marshal(returned)
			assert.NoError(t, err)
		}
	}()

	stored := waitTerminal(t, manager, returned.ID)
	<-marshalDone

	assert.Equal(t, models.JobStatusPending, returned.Status)
	assert.Empty(t, returned.Progress)
	assert.True(t, stored.IsTerminal())
	assert.Equal(t, returned.ID, stored.ID)
}

func TestStartJob_RejectsInvalidTarget(t *testing.T) {
	t.Setenv("ANTHROPIC_API_KEY", "test-key")
	manager := newTestManager(t)

	target := deadTarget(t)
	target.BaseURL = "not a url"

	_, err := manager.StartJob(context.Background(), target)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid crawl target")
}
