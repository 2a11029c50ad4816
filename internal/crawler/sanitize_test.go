package crawler

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSanitizeSchema_StripsTopLevelKeys(t *testing.T) {
	in := json.RawMessage(`{"@type":"WebPage","name":"Home","evidence":"from section 2","debug":true}`)

	out := SanitizeSchema(in)

	assert.JSONEq(t, `{"@type":"WebPage","name":"Home"}`, string(out))
}

func TestSanitizeSchema_StripsNestedKeys(t *testing.T) {
	in := json.RawMessage(`{
		"@type": "FAQPage",
		"mainEntity": [
			{"@type": "Question", "name": "Q1", "outline": {"sections": []}},
			{"@type": "Question", "name": "Q2", "extracted_text": "leak"}
		]
	}`)

	out := SanitizeSchema(in)

	assert.JSONEq(t, `{
		"@type": "FAQPage",
		"mainEntity": [
			{"@type": "Question", "name": "Q1"},
			{"@type": "Question", "name": "Q2"}
		]
	}`, string(out))
}

func TestSanitizeSchema_LeavesValidPropertiesAlone(t *testing.T) {
	in := json.RawMessage(`{"@context":"https://schema.org","@type":"Product","name":"Widget","offers":{"@type":"Offer","price":"9.99"}}`)

	out := SanitizeSchema(in)

	assert.JSONEq(t, string(in), string(out))
}

func TestSanitizeSchema_InvalidJSONUnchanged(t *testing.T) {
	in := json.RawMessage(`not json at all`)

	out := SanitizeSchema(in)

	assert.Equal(t, string(in), string(out))
}
