package llm

import (
	"context"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"google.golang.org/api/option"
)

// GeminiClient implements Client for Google Gemini
type GeminiClient struct {
	client *genai.Client
	config *Config
	logger logrus.FieldLogger
}

// NewGeminiClient creates a new Gemini client
func NewGeminiClient(ctx context.Context, config *Config, apiKey string, logger logrus.FieldLogger) (*GeminiClient, error) {
	if apiKey == "" {
		return nil, &ConfigurationError{Provider: ProviderGemini}
	}

	opts := []option.ClientOption{option.WithAPIKey(apiKey)}
	if config.BaseURL != "" {
		opts = append(opts, option.WithEndpoint(config.BaseURL))
	}

	client, err := genai.NewClient(ctx, opts...)
	if err != nil {
		return nil, errors.Wrap(err, "failed to create Gemini client")
	}

	return &GeminiClient{
		client: client,
		config: config,
		logger: logger,
	}, nil
}

// Generate generates text content with the configured model
func (c *GeminiClient) Generate(ctx context.Context, prompt string, maxOutputTokens int) (string, error) {
	ctx, cancel := withTimeout(ctx, c.config)
	defer cancel()

	model := c.client.GenerativeModel(c.config.Model)
	model.SetMaxOutputTokens(int32(maxOutputTokens))

	resp, err := model.GenerateContent(ctx, genai.Text(prompt))
	if err != nil {
		uerr := &UpstreamError{
			Provider: ProviderGemini,
			Message:  "generate content failed",
			Cause:    errors.Wrap(err, "Gemini API call failed"),
		}
		if errors.Is(err, context.DeadlineExceeded) {
			uerr.Message = "request timed out"
		}
		return "", uerr
	}

	text, err := extractTextFromResponse(resp)
	if err != nil {
		return "", &UpstreamError{Provider: ProviderGemini, Message: "empty completion", Cause: err}
	}

	c.logger.WithFields(logrus.Fields{
		"provider":   ProviderGemini,
		"model":      c.config.Model,
		"max_tokens": maxOutputTokens,
	}).Debug("Generation completed")

	return text, nil
}

// Close releases resources held by the client
func (c *GeminiClient) Close() error {
	if c.client != nil {
		return c.client.Close()
	}
	return nil
}

// extractTextFromResponse extracts text from Gemini API response
func extractTextFromResponse(resp *genai.GenerateContentResponse) (string, error) {
	if resp == nil || len(resp.Candidates) == 0 {
		return "", errors.New("no candidates in response")
	}

	candidate := resp.Candidates[0]
	if candidate.Content == nil || len(candidate.Content.Parts) == 0 {
		return "", errors.New("no content in response")
	}

	var parts []string
	for _, part := range candidate.Content.Parts {
		if text, ok := part.(genai.Text); ok {
			parts = append(parts, string(text))
		}
	}

	text := strings.TrimSpace(strings.Join(parts, ""))
	if text == "" {
		return "", errors.New("no text parts in response")
	}

	return text, nil
}
