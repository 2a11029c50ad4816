package models

import "time"

// JobStatus is the lifecycle state of a crawl job.
type JobStatus string

const (
	JobStatusPending   JobStatus = "pending"
	JobStatusRunning   JobStatus = "running"
	JobStatusCompleted JobStatus = "completed"
	JobStatusFailed    JobStatus = "failed"
	JobStatusCancelled JobStatus = "cancelled"
)

// ProgressEvent is one progress line emitted by a running crawl.
type ProgressEvent struct {
	Level     string    `json:"level"`
	Message   string    `json:"message"`
	Timestamp time.Time `json:"timestamp"`
}

// CrawlJob is the bookkeeping record for one crawl run. Each job owns its
// frontier, manifest, and output directory; jobs share no mutable state.
type CrawlJob struct {
	ID          string          `json:"id" badgerhold:"key"`
	Target      CrawlTarget     `json:"target"`
	Status      JobStatus       `json:"status"`
	Progress    []ProgressEvent `json:"progress"`
	PagesDone   int             `json:"pages_done"`
	OutputDir   string          `json:"output_dir"`
	Error       string          `json:"error,omitempty"`
	CreatedAt   time.Time       `json:"created_at"`
	CompletedAt *time.Time      `json:"completed_at,omitempty"`
}

// Clone returns an independent copy of the job record. Callers that hand a
// job out while its run goroutine is still mutating it must hand out a clone.
func (j *CrawlJob) Clone() *CrawlJob {
	clone := *j
	clone.Progress = append([]ProgressEvent(nil), j.Progress...)
	if j.CompletedAt != nil {
		completed := *j.CompletedAt
		clone.CompletedAt = &completed
	}
	return &clone
}

// IsTerminal reports whether the job has finished, successfully or not.
func (j *CrawlJob) IsTerminal() bool {
	return j.Status == JobStatusCompleted || j.Status == JobStatusFailed || j.Status == JobStatusCancelled
}
