package jobs

import (
	"archive/zip"
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/ternarybob/sitemark/pkg/models"
)

// ZipResults packages a completed job's output directory (manifest, pages,
// prompts, index) into a zip archive for download.
func (m *Manager) ZipResults(ctx context.Context, jobID string) ([]byte, error) {
	job, err := m.GetJob(ctx, jobID)
	if err != nil {
		return nil, err
	}
	if !job.IsTerminal() {
		return nil, fmt.Errorf("job %s is still %s", jobID, job.Status)
	}
	if job.Status != models.JobStatusCompleted && job.PagesDone == 0 {
		return nil, fmt.Errorf("job %s produced no output", jobID)
	}

	var buf bytes.Buffer
	w := zip.NewWriter(&buf)

	err = filepath.Walk(job.OutputDir, func(path string, info os.FileInfo, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		if info.IsDir() {
			return nil
		}

		rel, err := filepath.Rel(job.OutputDir, path)
		if err != nil {
			return err
		}

		entry, err := w.Create(filepath.ToSlash(rel))
		if err != nil {
			return err
		}
		f, err := os.Open(path)
		if err != nil {
			return err
		}
		defer f.Close()
		_, err = io.Copy(entry, f)
		return err
	})
	if err != nil {
		w.Close()
		return nil, fmt.Errorf("failed to archive job output: %w", err)
	}

	if err := w.Close(); err != nil {
		return nil, fmt.Errorf("failed to finalize archive: %w", err)
	}
	return buf.Bytes(), nil
}
