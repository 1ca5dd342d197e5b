package llm

import (
	"context"
	"strings"

	"github.com/sirupsen/logrus"
)

// Client is an abstraction over LLM providers
type Client interface {
	// Generate sends one prompt and returns the completion text.
	// Failures are *UpstreamError or *ConfigurationError.
	Generate(ctx context.Context, prompt string, maxOutputTokens int) (string, error)
	// Close releases any resources held by the client
	Close() error
}

// NewClient creates a new LLM client based on configuration.
// An empty apiKey yields an UnconfiguredClient so the process can still start.
func NewClient(ctx context.Context, config *Config, apiKey string, logger logrus.FieldLogger) (Client, error) {
	if config == nil {
		config = DefaultConfig()
	}
	if logger == nil {
		logger = logrus.StandardLogger()
	}

	if strings.TrimSpace(apiKey) == "" {
		logger.WithField("provider", config.Provider).Warn("No LLM API key configured; generation requests will fail")
		return &UnconfiguredClient{Provider: config.Provider}, nil
	}

	switch config.Provider {
	case ProviderGemini:
		return NewGeminiClient(ctx, config, apiKey, logger)
	default:
		return NewAnthropicClient(config, apiKey, logger), nil
	}
}

// UnconfiguredClient fails every call with a ConfigurationError.
type UnconfiguredClient struct {
	Provider Provider
}

// Generate always returns a *ConfigurationError.
func (c *UnconfiguredClient) Generate(_ context.Context, _ string, _ int) (string, error) {
	return "", &ConfigurationError{Provider: c.Provider}
}

// Close is a no-op.
func (c *UnconfiguredClient) Close() error {
	return nil
}

// withTimeout derives the per-call context.
func withTimeout(ctx context.Context, config *Config) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, config.GetTimeout())
}
