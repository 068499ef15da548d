package questiongen

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"

	"github.com/abhisek/codequiz/internal/llm"
)

// LLMSource implements Source using an LLM provider.
type LLMSource struct {
	provider llm.Provider
	config   SourceConfig
}

// NewLLMSource creates a new LLMSource with the given provider and config.
func NewLLMSource(provider llm.Provider, cfg SourceConfig) *LLMSource {
	return &LLMSource{provider: provider, config: cfg}
}

// GenerateQuestion drafts a single question for the request.
func (s *LLMSource) GenerateQuestion(ctx context.Context, req Request) (*Draft, error) {
	ctx = llm.WithPurpose(ctx, llm.PurposeQuestionGen)

	resp, err := s.provider.Generate(ctx, llm.Request{
		System: systemPrompt,
		Messages: []llm.Message{
			{Role: llm.RoleUser, Content: buildUserMessage(req)},
		},
		Schema:      QuestionSchema,
		MaxTokens:   s.config.MaxTokens,
		Temperature: s.config.Temperature,
	})
	if err != nil {
		return nil, fmt.Errorf("LLM generation failed: %w", err)
	}

	d, err := decodeDraft(resp.Content)
	if err != nil {
		return nil, err
	}

	for _, v := range s.config.Validators {
		if verr := v.Validate(d, req); verr != nil {
			return nil, verr
		}
	}
	return d, nil
}

// decodeDraft parses model output strictly: unknown fields and trailing
// data are rejected.
func decodeDraft(raw json.RawMessage) (*Draft, error) {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.DisallowUnknownFields()

	var d Draft
	if err := dec.Decode(&d); err != nil {
		return nil, &llm.ErrInvalidResponse{Content: raw, Err: fmt.Errorf("decode question: %w", err)}
	}
	if dec.More() {
		return nil, &llm.ErrInvalidResponse{Content: raw, Err: fmt.Errorf("decode question: trailing data")}
	}
	return &d, nil
}
