package llm

import (
	"context"
	"strings"
	"time"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

// AnthropicClient implements Client for the Anthropic Messages API
type AnthropicClient struct {
	client anthropic.Client
	config *Config
	logger logrus.FieldLogger
}

// NewAnthropicClient creates a new Anthropic client. SDK retries are disabled.
func NewAnthropicClient(config *Config, apiKey string, logger logrus.FieldLogger) *AnthropicClient {
	opts := []option.RequestOption{
		option.WithAPIKey(apiKey),
		option.WithMaxRetries(0),
	}
	if config.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(config.BaseURL))
	}

	return &AnthropicClient{
		client: anthropic.NewClient(opts...),
		config: config,
		logger: logger,
	}
}

// Generate sends a single user message and returns the concatenated text blocks.
func (c *AnthropicClient) Generate(ctx context.Context, prompt string, maxOutputTokens int) (string, error) {
	ctx, cancel := withTimeout(ctx, c.config)
	defer cancel()

	start := time.Now()
	resp, err := c.client.Messages.New(ctx, anthropic.MessageNewParams{
		Model:     anthropic.Model(c.config.Model),
		MaxTokens: int64(maxOutputTokens),
		Messages: []anthropic.MessageParam{{
			Content: []anthropic.ContentBlockParamUnion{{
				OfText: &anthropic.TextBlockParam{Text: prompt},
			}},
			Role: anthropic.MessageParamRoleUser,
		}},
	})
	if err != nil {
		return "", c.upstreamError(err)
	}

	var sb strings.Builder
	for _, block := range resp.Content {
		if block.Type == "text" {
			sb.WriteString(block.AsText().Text)
		}
	}
	text := strings.TrimSpace(sb.String())
	if text == "" {
		return "", &UpstreamError{Provider: ProviderAnthropic, Message: "empty completion"}
	}

	c.logger.WithFields(logrus.Fields{
		"provider":      ProviderAnthropic,
		"model":         c.config.Model,
		"max_tokens":    maxOutputTokens,
		"output_tokens": resp.Usage.OutputTokens,
		"duration":      time.Since(start),
	}).Debug("Generation completed")

	return text, nil
}

// Close is a no-op; the SDK holds no long-lived resources.
func (c *AnthropicClient) Close() error {
	return nil
}

func (c *AnthropicClient) upstreamError(err error) error {
	uerr := &UpstreamError{
		Provider: ProviderAnthropic,
		Message:  "messages request failed",
		Cause:    errors.Wrap(err, "Claude API call failed"),
	}

	var apiErr *anthropic.Error
	if errors.As(err, &apiErr) {
		uerr.StatusCode = apiErr.StatusCode
	}
	if errors.Is(err, context.DeadlineExceeded) {
		uerr.Message = "request timed out"
	}
	return uerr
}
