package llm

import (
	"context"
	"encoding/json"
)

// Provider writes one structured reply per request. Implementations wrap a
// vendor SDK; decorators (retry, audit logging, timeout) wrap a Provider.
type Provider interface {
	// Generate returns the model's reply. With a Schema set, Content is
	// unfenced JSON that already passed validation.
	Generate(ctx context.Context, req Request) (*Response, error)

	// Name is the provider family, e.g. "anthropic" or "openrouter".
	Name() string

	ModelID() string
}

// Request is a single-turn question prompt.
type Request struct {
	System   string
	Messages []Message

	// Schema constrains the reply. Nil means free text.
	Schema *Schema

	MaxTokens   int
	Temperature float64 // 0 leaves the provider default
}

type Message struct {
	Role    Role
	Content string
}

type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Schema is a JSON Schema document plus the name providers label it with.
type Schema struct {
	Name        string // kebab-case, e.g. "quiz-question"
	Description string
	Definition  map[string]any
}

type Response struct {
	Content json.RawMessage
	Usage   Usage
	Model   string // model that actually served the request

	// StopReason is "end" or "max_tokens".
	StopReason string
}

type Usage struct {
	InputTokens  int
	OutputTokens int
	TotalTokens  int
}
