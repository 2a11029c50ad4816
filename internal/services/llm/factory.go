package llm

import (
	"fmt"

	"github.com/ternarybob/arbor"

	"github.com/ternarybob/sitemark/internal/common"
	"github.com/ternarybob/sitemark/internal/interfaces"
)

// NewLLMService constructs the configured provider. apiKeyOverride and
// modelOverride come from the crawl target and take precedence over the
// config file values.
func NewLLMService(cfg *common.Config, apiKeyOverride, modelOverride string, logger arbor.ILogger) (interfaces.LLMService, error) {
	switch cfg.LLM.DefaultProvider {
	case common.LLMProviderClaude, "":
		return NewClaudeService(&cfg.Claude, apiKeyOverride, modelOverride, logger)
	case common.LLMProviderGemini:
		return NewGeminiService(&cfg.Gemini, apiKeyOverride, modelOverride, logger)
	default:
		return nil, fmt.Errorf("unknown LLM provider '%s' (expected claude or gemini)", cfg.LLM.DefaultProvider)
	}
}
