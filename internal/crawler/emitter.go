package crawler

import (
	"context"
	"fmt"
	"time"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/sitemark/internal/interfaces"
)

// Emitter receives progress messages from the crawl pipeline. Each run gets
// its own emitter so concurrent runs stay isolated.
type Emitter interface {
	Emit(level, message string)
}

// EmitterFunc adapts a function to the Emitter interface.
type EmitterFunc func(level, message string)

func (f EmitterFunc) Emit(level, message string) {
	f(level, message)
}

// NopEmitter discards all progress messages.
func NopEmitter() Emitter {
	return EmitterFunc(func(string, string) {})
}

// LogEmitter writes progress messages to the application log.
func LogEmitter(logger arbor.ILogger) Emitter {
	return EmitterFunc(func(level, message string) {
		switch level {
		case "error":
			logger.Error().Msg(message)
		case "warn":
			logger.Warn().Msg(message)
		default:
			logger.Info().Msg(message)
		}
	})
}

// EventEmitter publishes progress messages to the event service under the
// given job ID, and also mirrors them to the application log.
func EventEmitter(events interfaces.EventService, jobID string, logger arbor.ILogger) Emitter {
	return EmitterFunc(func(level, message string) {
		switch level {
		case "error":
			logger.Error().Str("job_id", jobID).Msg(message)
		case "warn":
			logger.Warn().Str("job_id", jobID).Msg(message)
		default:
			logger.Info().Str("job_id", jobID).Msg(message)
		}

		_ = events.Publish(context.Background(), interfaces.Event{
			Type:      interfaces.EventCrawlProgress,
			Timestamp: time.Now().UTC(),
			Payload: map[string]interface{}{
				"job_id":  jobID,
				"level":   level,
				"message": message,
			},
		})
	})
}

func emitf(e Emitter, level, format string, args ...interface{}) {
	e.Emit(level, fmt.Sprintf(format, args...))
}
