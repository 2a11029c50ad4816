package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/ternarybob/arbor"
	"google.golang.org/genai"

	"github.com/ternarybob/sitemark/internal/common"
	"github.com/ternarybob/sitemark/internal/interfaces"
)

// GeminiService generates structured data through the Google Gemini API.
type GeminiService struct {
	config  *common.GeminiConfig
	logger  arbor.ILogger
	client  *genai.Client
	model   string
	timeout time.Duration
}

// NewGeminiService creates a Gemini-backed schema generator. The API key is
// resolved by precedence: explicit override, then GEMINI_API_KEY and
// SITEMARK_GEMINI_API_KEY, then the merged config files.
func NewGeminiService(geminiConfig *common.GeminiConfig, apiKeyOverride, modelOverride string, logger arbor.ILogger) (*GeminiService, error) {
	apiKey, err := ResolveAPIKey(apiKeyOverride, []string{"GEMINI_API_KEY", "SITEMARK_GEMINI_API_KEY"}, geminiConfig.APIKey)
	if err != nil {
		return nil, fmt.Errorf("Google API key is required for Gemini service: %w", err)
	}

	model := modelOverride
	if model == "" {
		model = geminiConfig.Model
	}
	if model == "" {
		model = "gemini-2.0-flash"
	}

	timeout, err := time.ParseDuration(geminiConfig.Timeout)
	if err != nil {
		return nil, fmt.Errorf("invalid timeout duration '%s': %w", geminiConfig.Timeout, err)
	}

	client, err := genai.NewClient(context.Background(), &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize genai client: %w", err)
	}

	service := &GeminiService{
		config:  geminiConfig,
		logger:  logger,
		client:  client,
		model:   model,
		timeout: timeout,
	}

	logger.Debug().
		Str("model", model).
		Dur("timeout", timeout).
		Msg("Gemini LLM service initialized successfully")

	return service, nil
}

// Complete sends one system/user prompt pair and returns the response parsed
// as JSON. The request asks for a JSON response directly; size rejections
// map to ErrSizeExceeded.
func (s *GeminiService) Complete(ctx context.Context, systemPrompt, userPrompt string, image []byte) (json.RawMessage, error) {
	timeoutCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	startTime := time.Now()
	s.logger.Debug().
		Int("prompt_length", len(userPrompt)).
		Bool("has_image", len(image) > 0).
		Msg("Starting Gemini schema completion")

	parts := []*genai.Part{genai.NewPartFromText(userPrompt)}
	if len(image) > 0 {
		parts = append(parts, genai.NewPartFromBytes(image, "image/png"))
	}
	contents := []*genai.Content{
		{Role: genai.RoleUser, Parts: parts},
	}

	config := &genai.GenerateContentConfig{
		Temperature:      genai.Ptr(s.config.Temperature),
		ResponseMIMEType: "application/json",
	}
	if systemPrompt != "" {
		config.SystemInstruction = genai.NewContentFromText(systemPrompt, genai.RoleUser)
	}

	resp, err := s.client.Models.GenerateContent(timeoutCtx, s.model, contents, config)
	if err != nil {
		return nil, s.classifyError(err)
	}

	var response strings.Builder
	if resp != nil && len(resp.Candidates) > 0 {
		for _, candidate := range resp.Candidates {
			if candidate.Content == nil {
				continue
			}
			for _, part := range candidate.Content.Parts {
				if part.Text != "" {
					response.WriteString(part.Text)
				}
			}
			if response.Len() > 0 {
				break
			}
		}
	}
	if response.Len() == 0 {
		return nil, fmt.Errorf("%w: empty Gemini response", interfaces.ErrResponseUnparseable)
	}

	schema, err := parseSchemaResponse(response.String())
	if err != nil {
		return nil, err
	}

	s.logger.Debug().
		Int("response_length", response.Len()).
		Dur("duration", time.Since(startTime)).
		Msg("Gemini schema completion completed successfully")

	return schema, nil
}

func (s *GeminiService) classifyError(err error) error {
	if isSizeErrorMessage(err.Error()) {
		return fmt.Errorf("%w: %v", interfaces.ErrSizeExceeded, err)
	}
	return fmt.Errorf("Gemini API call failed: %w", err)
}

func (s *GeminiService) Close() error {
	s.logger.Debug().Msg("Closing Gemini LLM service")
	return nil
}
