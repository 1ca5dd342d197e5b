// Package config provides configuration loading and validation for the service.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// Config is the service configuration. It can be loaded from a JSON or YAML
// file and is then overridden by environment variables.
type Config struct {
	// Server
	Port int `json:"port,omitempty" yaml:"port,omitempty"`

	// Storage
	DatabaseURL string `json:"database_url,omitempty" yaml:"database_url,omitempty"` // PostgreSQL URL; empty keeps state in memory
	RedisAddr   string `json:"redis_addr,omitempty" yaml:"redis_addr,omitempty"`     // Enables the shared rate limiter

	// Generation
	LLMProvider           string `json:"llm_provider,omitempty" yaml:"llm_provider,omitempty"`
	LLMModel              string `json:"llm_model,omitempty" yaml:"llm_model,omitempty"`
	LLMTimeoutSeconds     int    `json:"llm_timeout_seconds,omitempty" yaml:"llm_timeout_seconds,omitempty"`
	GenerationConcurrency int    `json:"generation_concurrency,omitempty" yaml:"generation_concurrency,omitempty"`
	AnthropicAPIKey       string `json:"anthropic_api_key,omitempty" yaml:"anthropic_api_key,omitempty"`
	GeminiAPIKey          string `json:"gemini_api_key,omitempty" yaml:"gemini_api_key,omitempty"`

	// Integrations
	WebhookSecret string `json:"webhook_secret,omitempty" yaml:"webhook_secret,omitempty"`
	ChromePath    string `json:"chrome_path,omitempty" yaml:"chrome_path,omitempty"`

	// Logging
	LogLevel  string `json:"log_level,omitempty" yaml:"log_level,omitempty"`
	LogFormat string `json:"log_format,omitempty" yaml:"log_format,omitempty"` // json or text
}

// Defaults returns the built-in configuration.
func Defaults() Config {
	return Config{
		Port:                  8080,
		LLMProvider:           "anthropic",
		LLMTimeoutSeconds:     60,
		GenerationConcurrency: 1,
		LogLevel:              "info",
		LogFormat:             "json",
	}
}

// LoadConfig loads configuration from a JSON or YAML file, chosen by extension.
// Returns an error if the file cannot be read or parsed.
func LoadConfig(path string) (*Config, error) {
	if path == "" {
		return nil, fmt.Errorf("config path is empty")
	}

	if !filepath.IsAbs(path) {
		cwd, err := os.Getwd()
		if err != nil {
			return nil, fmt.Errorf("failed to get current directory: %w", err)
		}
		path = filepath.Join(cwd, path)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	var cfg Config
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config YAML: %w", err)
		}
	default:
		if err := json.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config JSON: %w", err)
		}
	}

	return &cfg, nil
}

// Load builds the effective configuration: file (optional), then environment,
// then defaults for anything still unset.
func Load(path string) (*Config, error) {
	cfg := &Config{}
	if path != "" {
		loaded, err := LoadConfig(path)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	}

	if err := cfg.ApplyEnv(); err != nil {
		return nil, err
	}
	merged := cfg.MergeWithDefaults(Defaults())
	if err := merged.Validate(); err != nil {
		return nil, err
	}
	return &merged, nil
}

// ApplyEnv overrides fields with any environment variables that are set.
func (c *Config) ApplyEnv() error {
	setString := func(dst *string, keys ...string) {
		for _, key := range keys {
			if v := strings.TrimSpace(os.Getenv(key)); v != "" {
				*dst = v
				return
			}
		}
	}
	setInt := func(dst *int, key string) error {
		v := strings.TrimSpace(os.Getenv(key))
		if v == "" {
			return nil
		}
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid %s: %w", key, err)
		}
		*dst = n
		return nil
	}

	setString(&c.DatabaseURL, "DATABASE_URL")
	setString(&c.RedisAddr, "REDIS_ADDR")
	setString(&c.LLMProvider, "LLM_PROVIDER")
	setString(&c.LLMModel, "LLM_MODEL")
	setString(&c.AnthropicAPIKey, "ANTHROPIC_API_KEY", "CLAUDE_API_KEY")
	setString(&c.GeminiAPIKey, "GEMINI_API_KEY")
	setString(&c.WebhookSecret, "WEBHOOK_SECRET")
	setString(&c.ChromePath, "CHROME_PATH")
	setString(&c.LogLevel, "LOG_LEVEL")
	setString(&c.LogFormat, "LOG_FORMAT")

	if err := setInt(&c.Port, "PORT"); err != nil {
		return err
	}
	if err := setInt(&c.LLMTimeoutSeconds, "LLM_TIMEOUT"); err != nil {
		return err
	}
	return setInt(&c.GenerationConcurrency, "GENERATION_CONCURRENCY")
}

// APIKey returns the credential for the configured provider.
func (c *Config) APIKey() string {
	if strings.EqualFold(c.LLMProvider, "gemini") {
		return c.GeminiAPIKey
	}
	return c.AnthropicAPIKey
}

// Validate checks that the configuration has valid values.
// A missing API key is not an error: generation requests fail instead.
func (c *Config) Validate() error {
	if c.Port < 0 || c.Port > 65535 {
		return fmt.Errorf("config error: 'port' must be between 0 and 65535")
	}
	if c.LLMTimeoutSeconds < 0 {
		return fmt.Errorf("config error: 'llm_timeout_seconds' must be non-negative")
	}
	if c.GenerationConcurrency < 0 {
		return fmt.Errorf("config error: 'generation_concurrency' must be non-negative")
	}
	switch strings.ToLower(c.LLMProvider) {
	case "", "anthropic", "gemini":
	default:
		return fmt.Errorf("config error: unknown llm_provider %q", c.LLMProvider)
	}
	switch strings.ToLower(c.LogFormat) {
	case "", "json", "text":
	default:
		return fmt.Errorf("config error: 'log_format' must be json or text")
	}
	if c.ChromePath != "" {
		if _, err := os.Stat(c.ChromePath); os.IsNotExist(err) {
			return fmt.Errorf("config error: chrome binary not found: %s", c.ChromePath)
		}
	}
	return nil
}

// MergeWithDefaults returns a new Config with empty fields filled from defaults.
func (c *Config) MergeWithDefaults(defaults Config) Config {
	result := *c

	fillString := func(dst *string, def string) {
		if *dst == "" {
			*dst = def
		}
	}
	fillInt := func(dst *int, def int) {
		if *dst == 0 {
			*dst = def
		}
	}

	fillInt(&result.Port, defaults.Port)
	fillString(&result.DatabaseURL, defaults.DatabaseURL)
	fillString(&result.RedisAddr, defaults.RedisAddr)
	fillString(&result.LLMProvider, defaults.LLMProvider)
	fillString(&result.LLMModel, defaults.LLMModel)
	fillInt(&result.LLMTimeoutSeconds, defaults.LLMTimeoutSeconds)
	fillInt(&result.GenerationConcurrency, defaults.GenerationConcurrency)
	fillString(&result.AnthropicAPIKey, defaults.AnthropicAPIKey)
	fillString(&result.GeminiAPIKey, defaults.GeminiAPIKey)
	fillString(&result.WebhookSecret, defaults.WebhookSecret)
	fillString(&result.ChromePath, defaults.ChromePath)
	fillString(&result.LogLevel, defaults.LogLevel)
	fillString(&result.LogFormat, defaults.LogFormat)

	return result
}
