package llm

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Config selects and configures the question-writing model.
type Config struct {
	// Provider is one of "anthropic", "openai", "gemini", "openrouter" or "mock".
	Provider string

	Anthropic  AnthropicConfig
	OpenAI     OpenAIConfig
	Gemini     GeminiConfig
	OpenRouter OpenRouterConfig
	Retry      RetryConfig

	// Timeout bounds one question request, retries included.
	Timeout time.Duration
}

type AnthropicConfig struct {
	APIKey  string
	Model   string
	BaseURL string
}

type OpenAIConfig struct {
	APIKey  string
	Model   string
	BaseURL string // for OpenAI-compatible gateways
}

type GeminiConfig struct {
	APIKey string
	Model  string
}

type OpenRouterConfig struct {
	APIKey   string
	Model    string // vendor/model, passed through as is
	BaseURL  string
	AppTitle string // X-Title attribution header
	AppURL   string // HTTP-Referer attribution header
}

// RetryConfig shapes the exponential backoff between attempts.
type RetryConfig struct {
	MaxAttempts int
	InitialWait time.Duration
	MaxWait     time.Duration
	Multiplier  float64
}

func DefaultConfig() Config {
	return Config{
		Provider:   "anthropic",
		Anthropic:  AnthropicConfig{Model: "claude-haiku"},
		OpenAI:     OpenAIConfig{Model: "gpt-4o-mini"},
		Gemini:     GeminiConfig{Model: "gemini-flash"},
		OpenRouter: OpenRouterConfig{Model: "google/gemini-2.0-flash-exp"},
		Retry: RetryConfig{
			MaxAttempts: 2,
			InitialWait: 500 * time.Millisecond,
			MaxWait:     5 * time.Second,
			Multiplier:  2.0,
		},
		Timeout: 20 * time.Second,
	}
}

// vendorKeys lists the conventional key variables probed when no provider
// is chosen explicitly, in priority order.
var vendorKeys = []struct {
	provider, env string
}{
	{"gemini", "GEMINI_API_KEY"},
	{"openai", "OPENAI_API_KEY"},
	{"anthropic", "ANTHROPIC_API_KEY"},
	{"openrouter", "OPENROUTER_API_KEY"},
}

// ConfigFromEnv builds a Config from QUIZ_* variables on top of whatever
// DiscoverConfig finds.
func ConfigFromEnv() Config {
	cfg := DefaultConfig()
	if discovered, ok := DiscoverConfig(); ok {
		cfg = discovered
	}

	for env, dst := range cfg.stringVars() {
		if v := os.Getenv(env); v != "" {
			*dst = v
		}
	}

	if d, err := time.ParseDuration(os.Getenv("QUIZ_LLM_TIMEOUT")); err == nil && d > 0 {
		cfg.Timeout = d
	}
	if n, err := strconv.Atoi(os.Getenv("QUIZ_LLM_MAX_ATTEMPTS")); err == nil && n > 0 {
		cfg.Retry.MaxAttempts = n
	}
	return cfg
}

func (c *Config) stringVars() map[string]*string {
	return map[string]*string{
		"QUIZ_LLM_PROVIDER":         &c.Provider,
		"QUIZ_ANTHROPIC_API_KEY":    &c.Anthropic.APIKey,
		"QUIZ_ANTHROPIC_MODEL":      &c.Anthropic.Model,
		"QUIZ_ANTHROPIC_BASE_URL":   &c.Anthropic.BaseURL,
		"QUIZ_OPENAI_API_KEY":       &c.OpenAI.APIKey,
		"QUIZ_OPENAI_MODEL":         &c.OpenAI.Model,
		"QUIZ_OPENAI_BASE_URL":      &c.OpenAI.BaseURL,
		"QUIZ_GEMINI_API_KEY":       &c.Gemini.APIKey,
		"QUIZ_GEMINI_MODEL":         &c.Gemini.Model,
		"QUIZ_OPENROUTER_API_KEY":   &c.OpenRouter.APIKey,
		"QUIZ_OPENROUTER_MODEL":     &c.OpenRouter.Model,
		"QUIZ_OPENROUTER_BASE_URL":  &c.OpenRouter.BaseURL,
		"QUIZ_OPENROUTER_APP_URL":   &c.OpenRouter.AppURL,
		"QUIZ_OPENROUTER_APP_TITLE": &c.OpenRouter.AppTitle,
	}
}

// DiscoverConfig returns a Config for the first provider whose conventional
// API key variable is set.
func DiscoverConfig() (Config, bool) {
	for _, vk := range vendorKeys {
		key := os.Getenv(vk.env)
		if key == "" {
			continue
		}
		cfg := DefaultConfig()
		cfg.Provider = vk.provider
		*cfg.apiKey() = key
		return cfg, true
	}
	return Config{}, false
}

// apiKey points at the key field of the selected provider, or nil for
// providers that need none.
func (c *Config) apiKey() *string {
	switch c.Provider {
	case "anthropic":
		return &c.Anthropic.APIKey
	case "openai":
		return &c.OpenAI.APIKey
	case "gemini":
		return &c.Gemini.APIKey
	case "openrouter":
		return &c.OpenRouter.APIKey
	}
	return nil
}

// Validate checks that the selected provider is known and has a key.
func (c Config) Validate() error {
	if c.Provider == "mock" {
		return nil
	}
	key := c.apiKey()
	if key == nil {
		return fmt.Errorf("unknown LLM provider: %q", c.Provider)
	}
	if *key == "" {
		return fmt.Errorf("no API key for the %s provider", c.Provider)
	}
	return nil
}
