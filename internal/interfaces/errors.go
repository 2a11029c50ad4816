package interfaces

import "errors"

// Sentinel errors shared between the crawl pipeline and the LLM providers.
var (
	// ErrSizeExceeded indicates the content-understanding service rejected
	// the request because the input exceeds its capacity. The pipeline
	// responds by shrinking the payload and resubmitting.
	ErrSizeExceeded = errors.New("llm input size exceeded")

	// ErrResponseUnparseable indicates the service responded but the
	// response could not be parsed as JSON. Treated as a page-level soft
	// failure with a minimal fallback record.
	ErrResponseUnparseable = errors.New("llm response not parseable as JSON")

	// ErrMissingAPIKey indicates no API key could be resolved from any
	// source. Fatal for the entire run, before any fetch occurs.
	ErrMissingAPIKey = errors.New("no API key resolvable")
)
