// Package config provides configuration loading and validation for the
// service. Settings come from an optional YAML file layered under environment
// variables; API keys come from the environment only.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Provider names accepted for the text-generation backend.
const (
	ProviderAnthropic = "anthropic"
	ProviderOpenAI    = "openai"
	ProviderGoogle    = "google"
	ProviderOllama    = "ollama"
)

// Default models per provider.
const (
	DefaultAnthropicModel = "claude-sonnet-4-20250514"
	DefaultOpenAIModel    = "gpt-4o"
	DefaultGoogleModel    = "gemini-2.0-flash"
	DefaultOllamaModel    = "llama3.1"
)

// DefaultOllamaHost is the standard local Ollama server URL.
const DefaultOllamaHost = "http://localhost:11434"

// Config holds all runtime options for the service.
type Config struct {
	// Addr is the HTTP listen address.
	Addr string `yaml:"addr"`

	// Provider selects the text-generation backend.
	Provider string `yaml:"provider"`

	// Model overrides the provider's default model.
	Model string `yaml:"model"`

	// OllamaHost is the Ollama server URL (ollama provider only).
	OllamaHost string `yaml:"ollama_host"`

	// GenerationTimeoutSeconds bounds one week-generation call.
	GenerationTimeoutSeconds int `yaml:"generation_timeout_seconds"`

	// RedisAddr enables the Redis store when non-empty; empty falls back to
	// the in-memory store (local development only).
	RedisAddr     string `yaml:"redis_addr"`
	RedisUsername string `yaml:"redis_username"`
	RedisPassword string `yaml:"-"` // env only
	RedisDB       int    `yaml:"redis_db"`

	// ArchivePath enables the completed-plan SQLite archive when non-empty.
	ArchivePath string `yaml:"archive_path"`

	// EmailFrom is the sender address for completion emails. Emails are
	// disabled when empty or when RESEND_API_KEY is unset.
	EmailFrom string `yaml:"email_from"`

	// PrometheusURL enables the /api/stats endpoint when non-empty.
	PrometheusURL string `yaml:"prometheus_url"`

	// API keys, environment only.
	AnthropicAPIKey string `yaml:"-"`
	OpenAIAPIKey    string `yaml:"-"`
	GeminiAPIKey    string `yaml:"-"`
	ResendAPIKey    string `yaml:"-"`
}

// Load reads the optional YAML config file, applies environment overrides and
// defaults, and validates the result. path may be empty.
func Load(path string) (*Config, error) {
	cfg := &Config{}

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
		}
	}

	applyEnv(cfg)
	applyDefaults(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func applyEnv(cfg *Config) {
	setString := func(dest *string, key string) {
		if v := os.Getenv(key); v != "" {
			*dest = v
		}
	}

	setString(&cfg.Addr, "TRAINPLAN_ADDR")
	setString(&cfg.Provider, "TRAINPLAN_PROVIDER")
	setString(&cfg.Model, "TRAINPLAN_MODEL")
	setString(&cfg.OllamaHost, "OLLAMA_HOST")
	setString(&cfg.RedisAddr, "TRAINPLAN_REDIS_ADDR")
	setString(&cfg.RedisUsername, "TRAINPLAN_REDIS_USERNAME")
	setString(&cfg.RedisPassword, "TRAINPLAN_REDIS_PASSWORD")
	setString(&cfg.ArchivePath, "TRAINPLAN_ARCHIVE_PATH")
	setString(&cfg.EmailFrom, "TRAINPLAN_EMAIL_FROM")
	setString(&cfg.PrometheusURL, "TRAINPLAN_PROMETHEUS_URL")

	setString(&cfg.AnthropicAPIKey, "ANTHROPIC_API_KEY")
	setString(&cfg.OpenAIAPIKey, "OPENAI_API_KEY")
	setString(&cfg.GeminiAPIKey, "GEMINI_API_KEY")
	setString(&cfg.ResendAPIKey, "RESEND_API_KEY")

	if v := os.Getenv("TRAINPLAN_REDIS_DB"); v != "" {
		if db, err := strconv.Atoi(v); err == nil {
			cfg.RedisDB = db
		}
	}
	if v := os.Getenv("TRAINPLAN_GENERATION_TIMEOUT_SECONDS"); v != "" {
		if secs, err := strconv.Atoi(v); err == nil {
			cfg.GenerationTimeoutSeconds = secs
		}
	}
}

func applyDefaults(cfg *Config) {
	if cfg.Addr == "" {
		cfg.Addr = ":8080"
	}
	if cfg.Provider == "" {
		cfg.Provider = ProviderAnthropic
	}
	if cfg.OllamaHost == "" {
		cfg.OllamaHost = DefaultOllamaHost
	}
	if cfg.GenerationTimeoutSeconds == 0 {
		cfg.GenerationTimeoutSeconds = 25
	}
	if cfg.Model == "" {
		switch cfg.Provider {
		case ProviderAnthropic:
			cfg.Model = DefaultAnthropicModel
		case ProviderOpenAI:
			cfg.Model = DefaultOpenAIModel
		case ProviderGoogle:
			cfg.Model = DefaultGoogleModel
		case ProviderOllama:
			cfg.Model = DefaultOllamaModel
		}
	}
}

// GenerationTimeout returns the generation timeout as a duration.
func (c *Config) GenerationTimeout() time.Duration {
	return time.Duration(c.GenerationTimeoutSeconds) * time.Second
}

// EmailEnabled reports whether completion emails are configured.
func (c *Config) EmailEnabled() bool {
	return c.EmailFrom != "" && c.ResendAPIKey != ""
}

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	switch c.Provider {
	case ProviderAnthropic:
		if c.AnthropicAPIKey == "" {
			return fmt.Errorf("config: provider %q requires ANTHROPIC_API_KEY", c.Provider)
		}
	case ProviderOpenAI:
		if c.OpenAIAPIKey == "" {
			return fmt.Errorf("config: provider %q requires OPENAI_API_KEY", c.Provider)
		}
	case ProviderGoogle:
		if c.GeminiAPIKey == "" {
			return fmt.Errorf("config: provider %q requires GEMINI_API_KEY", c.Provider)
		}
	case ProviderOllama:
		// Local runtime, no key needed.
	default:
		return fmt.Errorf("config: unknown provider %q", c.Provider)
	}

	if c.GenerationTimeoutSeconds < 1 {
		return fmt.Errorf("config: generation_timeout_seconds must be positive")
	}
	if c.EmailFrom != "" && c.ResendAPIKey == "" {
		return fmt.Errorf("config: email_from is set but RESEND_API_KEY is missing")
	}
	return nil
}
