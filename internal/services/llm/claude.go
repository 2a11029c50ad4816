package llm

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/ternarybob/arbor"

	"github.com/ternarybob/sitemark/internal/common"
	"github.com/ternarybob/sitemark/internal/interfaces"
)

// ClaudeService generates structured data through the Anthropic API.
type ClaudeService struct {
	config    *common.ClaudeConfig
	logger    arbor.ILogger
	client    anthropic.Client
	model     string
	timeout   time.Duration
	maxTokens int
}

// NewClaudeService creates a Claude-backed schema generator. The API key is
// resolved by precedence: explicit override, then ANTHROPIC_API_KEY and
// SITEMARK_CLAUDE_API_KEY, then the merged config files.
func NewClaudeService(claudeConfig *common.ClaudeConfig, apiKeyOverride, modelOverride string, logger arbor.ILogger) (*ClaudeService, error) {
	apiKey, err := ResolveAPIKey(apiKeyOverride, []string{"ANTHROPIC_API_KEY", "SITEMARK_CLAUDE_API_KEY"}, claudeConfig.APIKey)
	if err != nil {
		return nil, fmt.Errorf("Anthropic API key is required for Claude service: %w", err)
	}

	model := modelOverride
	if model == "" {
		model = claudeConfig.Model
	}
	if model == "" {
		model = "claude-haiku-3-5-20241022"
	}

	timeout, err := time.ParseDuration(claudeConfig.Timeout)
	if err != nil {
		return nil, fmt.Errorf("invalid timeout duration '%s': %w", claudeConfig.Timeout, err)
	}

	maxTokens := claudeConfig.MaxTokens
	if maxTokens <= 0 {
		maxTokens = 8192
	}

	service := &ClaudeService{
		config:    claudeConfig,
		logger:    logger,
		client:    anthropic.NewClient(option.WithAPIKey(apiKey)),
		model:     model,
		timeout:   timeout,
		maxTokens: maxTokens,
	}

	logger.Debug().
		Str("model", model).
		Dur("timeout", timeout).
		Int("max_tokens", maxTokens).
		Msg("Claude LLM service initialized successfully")

	return service, nil
}

// Complete sends one system/user prompt pair and returns the response parsed
// as JSON. Size rejections map to ErrSizeExceeded so the caller can shrink
// and resubmit.
func (s *ClaudeService) Complete(ctx context.Context, systemPrompt, userPrompt string, image []byte) (json.RawMessage, error) {
	timeoutCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	startTime := time.Now()
	s.logger.Debug().
		Int("prompt_length", len(userPrompt)).
		Bool("has_image", len(image) > 0).
		Msg("Starting Claude schema completion")

	var userBlocks []anthropic.ContentBlockParamUnion
	if len(image) > 0 {
		encoded := base64.StdEncoding.EncodeToString(image)
		userBlocks = append(userBlocks, anthropic.NewImageBlockBase64("image/png", encoded))
		userPrompt += "\n\nIMPORTANT: Analyze the screenshot above to better understand the page layout, visual hierarchy, and content structure. Use this visual context to improve schema accuracy, especially for identifying page type (marketing vs article), content sections, and key visual elements."
	}
	userBlocks = append(userBlocks, anthropic.NewTextBlock(userPrompt))

	params := anthropic.MessageNewParams{
		Model:     anthropic.Model(s.model),
		MaxTokens: int64(s.maxTokens),
		Messages:  []anthropic.MessageParam{anthropic.NewUserMessage(userBlocks...)},
		System: []anthropic.TextBlockParam{
			{Text: systemPrompt},
		},
	}
	if s.config.Temperature > 0 {
		params.Temperature = anthropic.Float(float64(s.config.Temperature))
	}

	resp, err := s.client.Messages.New(timeoutCtx, params)
	if err != nil {
		return nil, s.classifyError(err)
	}

	var response strings.Builder
	for _, block := range resp.Content {
		if block.Type == "text" {
			response.WriteString(block.Text)
		}
	}
	if response.Len() == 0 {
		return nil, fmt.Errorf("%w: empty Claude response", interfaces.ErrResponseUnparseable)
	}

	schema, err := parseSchemaResponse(response.String())
	if err != nil {
		return nil, err
	}

	s.logger.Debug().
		Int("response_length", response.Len()).
		Dur("duration", time.Since(startTime)).
		Msg("Claude schema completion completed successfully")

	return schema, nil
}

// classifyError maps API failures onto the pipeline's error taxonomy. A 413,
// or a 400 whose message indicates the prompt exceeded the context window,
// is a size rejection; everything else surfaces as a service error.
func (s *ClaudeService) classifyError(err error) error {
	var apiErr *anthropic.Error
	if errors.As(err, &apiErr) {
		if apiErr.StatusCode == 413 || (apiErr.StatusCode == 400 && isSizeErrorMessage(apiErr.Error())) {
			return fmt.Errorf("%w: %v", interfaces.ErrSizeExceeded, err)
		}
		return fmt.Errorf("Claude API call failed: %w", err)
	}
	if isSizeErrorMessage(err.Error()) {
		return fmt.Errorf("%w: %v", interfaces.ErrSizeExceeded, err)
	}
	return fmt.Errorf("Claude API call failed: %w", err)
}

func (s *ClaudeService) Close() error {
	s.logger.Debug().Msg("Closing Claude LLM service")
	return nil
}
