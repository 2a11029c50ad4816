package crawler

import (
	"encoding/json"
)

// schemaDenyList names the bookkeeping fields the model sometimes echoes
// back from the prompt. They are not schema.org vocabulary and are stripped
// at any nesting depth.
var schemaDenyList = map[string]struct{}{
	"tag":            {},
	"level":          {},
	"heading":        {},
	"headings":       {},
	"section":        {},
	"sections":       {},
	"outline":        {},
	"evidence":       {},
	"extracted_text": {},
	"raw_text":       {},
	"debug":          {},
}

// SanitizeSchema strips deny-listed keys from a structured-data result,
// recursively, and returns the re-marshaled JSON. Input that does not parse
// is returned unchanged.
func SanitizeSchema(raw json.RawMessage) json.RawMessage {
	var value interface{}
	if err := json.Unmarshal(raw, &value); err != nil {
		return raw
	}

	cleaned := stripDenied(value)

	out, err := json.Marshal(cleaned)
	if err != nil {
		return raw
	}
	return out
}

// stripDenied walks a generic JSON value and removes deny-listed object keys
// uniformly regardless of depth.
func stripDenied(value interface{}) interface{} {
	switch v := value.(type) {
	case map[string]interface{}:
		for key, child := range v {
			if _, denied := schemaDenyList[key]; denied {
				delete(v, key)
				continue
			}
			v[key] = stripDenied(child)
		}
		return v
	case []interface{}:
		for i, child := range v {
			v[i] = stripDenied(child)
		}
		return v
	default:
		return value
	}
}
