package llm

import (
	"fmt"
	"net/http"
)

const defaultOpenRouterBaseURL = "https://openrouter.ai/api/v1"

// NewOpenRouterProvider reaches OpenRouter through its OpenAI-compatible
// endpoint. Model ids are "vendor/model" and are not remapped. Requests
// carry the app attribution headers OpenRouter shows in its dashboard.
func NewOpenRouterProvider(cfg OpenRouterConfig) (*OpenAIProvider, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("openrouter API key is required")
	}

	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = defaultOpenRouterBaseURL
	}
	title := cfg.AppTitle
	if title == "" {
		title = "codequiz"
	}

	headers := http.Header{}
	headers.Set("X-Title", title)
	if cfg.AppURL != "" {
		headers.Set("HTTP-Referer", cfg.AppURL)
	}

	return newOpenAICompatible("openrouter", OpenAIConfig{
		APIKey:  cfg.APIKey,
		Model:   cfg.Model,
		BaseURL: baseURL,
	}, nil, headers), nil
}
