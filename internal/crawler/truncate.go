package crawler

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/ternarybob/sitemark/internal/interfaces"
	"github.com/ternarybob/sitemark/pkg/models"
)

const (
	// shrinkFactor is applied to the text view and section count on each
	// size-rejected retry.
	shrinkFactor = 0.7
	// maxSizeRetries bounds proportional shrink-and-resubmit cycles before
	// the final aggressive attempt.
	maxSizeRetries = 2
	// finalTextClip and finalSectionsClip define the last-resort payload
	// after the retry ceiling is exhausted.
	finalTextClip     = 4000
	finalSectionsClip = 5
)

// PromptState holds the views of a page currently being submitted. It is
// mutated only by the size-backoff loop; every shrink yields strictly
// smaller views than the previous attempt.
type PromptState struct {
	Outline    models.Outline
	Text       string
	Screenshot []byte
	Truncated  bool
}

// NewPromptState applies the initial budget to a page's outline and text.
func NewPromptState(outline models.Outline, text string, screenshot []byte) PromptState {
	state := PromptState{
		Outline:    outline,
		Text:       TruncateText(text, TextBudget),
		Screenshot: screenshot,
	}
	if len(outline.Sections) > SectionsBudget {
		state.Outline.Sections = outline.Sections[:SectionsBudget]
	}
	state.Truncated = len(state.Text) < len(text) || len(state.Outline.Sections) < len(outline.Sections)
	return state
}

func (s PromptState) shrink() PromptState {
	next := s
	next.Text = clipRune(s.Text, shrunkSize(len(s.Text), shrinkFactor))
	next.Outline.Sections = s.Outline.Sections[:shrunkSize(len(s.Outline.Sections), shrinkFactor)]
	next.Truncated = true
	return next
}

// clipAggressive is the last-resort payload: a small fixed text size and
// section count, still strictly smaller than whatever the previous attempt
// carried.
func (s PromptState) clipAggressive() PromptState {
	next := s
	textClip := finalTextClip
	if textClip >= len(s.Text) {
		textClip = shrunkSize(len(s.Text), shrinkFactor)
	}
	next.Text = clipRune(s.Text, textClip)

	sectionsClip := finalSectionsClip
	if sectionsClip >= len(s.Outline.Sections) {
		sectionsClip = shrunkSize(len(s.Outline.Sections), shrinkFactor)
	}
	next.Outline.Sections = s.Outline.Sections[:sectionsClip]
	next.Truncated = true
	return next
}

// shrunkSize returns n scaled by factor, strictly less than n when n > 0.
func shrunkSize(n int, factor float64) int {
	if n <= 0 {
		return 0
	}
	shrunk := int(float64(n) * factor)
	if shrunk >= n {
		shrunk = n - 1
	}
	return shrunk
}

// SchemaGenerator drives the content-understanding call for one page,
// handling size-limit backoff. Non-size failures are returned to the caller
// unretried.
type SchemaGenerator struct {
	llm     interfaces.LLMService
	emitter Emitter

	// OnPrompt, when set, receives the exact first-attempt prompt text
	// before it is sent, for audit dumps.
	OnPrompt func(systemPrompt, userPrompt string)
}

func NewSchemaGenerator(llm interfaces.LLMService, emitter Emitter) *SchemaGenerator {
	if emitter == nil {
		emitter = NopEmitter()
	}
	return &SchemaGenerator{llm: llm, emitter: emitter}
}

// Generate submits the page and returns the structured-data JSON. On a size
// rejection the payload is shrunk and resubmitted up to the retry ceiling,
// then one final aggressively clipped attempt is made before reporting
// exhaustion.
func (g *SchemaGenerator) Generate(ctx context.Context, pageURL, title string, state PromptState) (json.RawMessage, error) {
	for attempt := 0; ; attempt++ {
		user := BuildUserPrompt(pageURL, title, state.Outline, state.Text, state.Truncated)
		if attempt == 0 && g.OnPrompt != nil {
			g.OnPrompt(systemPrompt, user)
		}

		result, err := g.llm.Complete(ctx, systemPrompt, user, state.Screenshot)
		if err == nil {
			return result, nil
		}
		if !errors.Is(err, interfaces.ErrSizeExceeded) {
			return nil, err
		}

		switch {
		case attempt < maxSizeRetries:
			state = state.shrink()
			emitf(g.emitter, "warn", "Input too large for %s, retrying with %d chars and %d sections",
				pageURL, len(state.Text), len(state.Outline.Sections))
		case attempt == maxSizeRetries:
			state = state.clipAggressive()
			emitf(g.emitter, "warn", "Retry ceiling reached for %s, final attempt with %d chars and %d sections",
				pageURL, len(state.Text), len(state.Outline.Sections))
		default:
			return nil, fmt.Errorf("size retries exhausted for %s: %w", pageURL, err)
		}
	}
}
