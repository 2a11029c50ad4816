package llm

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/ternarybob/sitemark/internal/interfaces"
)

// parseSchemaResponse extracts the JSON object from a model response. Models
// occasionally wrap the object in markdown fences or prose; the first
// top-level object found is used.
func parseSchemaResponse(text string) (json.RawMessage, error) {
	trimmed := strings.TrimSpace(text)

	if strings.HasPrefix(trimmed, "```") {
		trimmed = strings.TrimPrefix(trimmed, "```json")
		trimmed = strings.TrimPrefix(trimmed, "```")
		if i := strings.LastIndex(trimmed, "```"); i >= 0 {
			trimmed = trimmed[:i]
		}
		trimmed = strings.TrimSpace(trimmed)
	}

	if json.Valid([]byte(trimmed)) {
		return json.RawMessage(trimmed), nil
	}

	start := strings.Index(trimmed, "{")
	end := strings.LastIndex(trimmed, "}")
	if start >= 0 && end > start {
		candidate := trimmed[start : end+1]
		if json.Valid([]byte(candidate)) {
			return json.RawMessage(candidate), nil
		}
	}

	return nil, fmt.Errorf("%w: %.120s", interfaces.ErrResponseUnparseable, trimmed)
}

// sizeErrorPhrases are fragments providers use when rejecting an oversized
// input. Matched case-insensitively against the error text.
var sizeErrorPhrases = []string{
	"prompt is too long",
	"too many tokens",
	"exceeds the maximum",
	"exceeds maximum",
	"input is too long",
	"request too large",
	"context length",
	"token limit",
	"payload size",
}

func isSizeErrorMessage(msg string) bool {
	lower := strings.ToLower(msg)
	for _, phrase := range sizeErrorPhrases {
		if strings.Contains(lower, phrase) {
			return true
		}
	}
	return false
}
