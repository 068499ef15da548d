package llm

import (
	"context"
	"fmt"
	"time"

	"github.com/abhisek/codequiz/internal/store"
)

// NewProvider builds the configured provider and layers the decorators on
// top of it: timeout, then retry, then audit logging. audit may be nil.
func NewProvider(ctx context.Context, cfg Config, audit store.AuditRepo) (Provider, error) {
	base, err := newBaseProvider(ctx, cfg)
	if err != nil {
		return nil, err
	}
	if _, ok := base.(*MockProvider); ok {
		return base, nil
	}

	var p Provider = WithRetry(WithLogging(base, audit), cfg.Retry)
	if cfg.Timeout > 0 {
		p = &timeoutProvider{Provider: p, timeout: cfg.Timeout}
	}
	return p, nil
}

func newBaseProvider(ctx context.Context, cfg Config) (Provider, error) {
	var (
		p   Provider
		err error
	)
	switch cfg.Provider {
	case "anthropic":
		p, err = NewAnthropicProvider(cfg.Anthropic)
	case "openai":
		p, err = NewOpenAIProvider(cfg.OpenAI)
	case "gemini":
		p, err = NewGeminiProvider(ctx, cfg.Gemini)
	case "openrouter":
		p, err = NewOpenRouterProvider(cfg.OpenRouter)
	case "mock":
		return NewMockProvider(), nil
	default:
		return nil, fmt.Errorf("unknown LLM provider: %q", cfg.Provider)
	}
	if err != nil {
		return nil, fmt.Errorf("initializing %s provider: %w", cfg.Provider, err)
	}
	return p, nil
}

// timeoutProvider bounds a whole Generate call, retries included.
type timeoutProvider struct {
	Provider
	timeout time.Duration
}

func (t *timeoutProvider) Generate(ctx context.Context, req Request) (*Response, error) {
	ctx, cancel := context.WithTimeout(ctx, t.timeout)
	defer cancel()
	return t.Provider.Generate(ctx, req)
}
