package interfaces

import (
	"context"
	"encoding/json"
	"time"
)

// EventType identifies a category of event
type EventType string

const (
	EventCrawlProgress EventType = "crawl_progress"
	EventPageComplete  EventType = "page_complete"
	EventCrawlComplete EventType = "crawl_complete"
	EventCrawlFailed   EventType = "crawl_failed"
)

// Event is a message published through the event service
type Event struct {
	Type      EventType              `json:"type"`
	Timestamp time.Time              `json:"timestamp"`
	Payload   map[string]interface{} `json:"payload"`
}

// EventHandler processes a published event
type EventHandler func(ctx context.Context, event Event) error

// EventService provides pub/sub event distribution between components
type EventService interface {
	Subscribe(eventType EventType, handler EventHandler) error
	Publish(ctx context.Context, event Event) error
	PublishSync(ctx context.Context, event Event) error
	Close() error
}

// LLMService generates schema.org JSON-LD from assembled page prompts.
// Implementations must return crawler-recognizable sentinel errors for
// input-size rejection and unparseable responses so the caller can decide
// between shrinking the payload and falling back.
type LLMService interface {
	// Complete sends a system/user prompt pair, with an optional PNG
	// screenshot, and returns the response parsed as a JSON value.
	Complete(ctx context.Context, systemPrompt, userPrompt string, image []byte) (json.RawMessage, error)
	Close() error
}

// Screenshotter captures a rendered page image. Failure is non-fatal for
// the pipeline; implementations return an error rather than panicking.
type Screenshotter interface {
	Capture(ctx context.Context, url string, timeout time.Duration) ([]byte, error)
	Close() error
}
