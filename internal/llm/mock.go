package llm

import (
	"context"
	"encoding/json"
	"sync"
	"time"
)

// MockResponse is one scripted reply. Delay holds the reply back until it
// elapses or the request context ends.
type MockResponse struct {
	Content json.RawMessage
	Usage   Usage
	Err     error
	Delay   time.Duration
}

// MockProvider replays scripted replies in order and records every
// request. Replies go through the same fence stripping and schema checks
// as real model output. Selected with QUIZ_LLM_PROVIDER=mock.
type MockProvider struct {
	mu     sync.Mutex
	script []MockResponse
	Calls  []Request
}

func NewMockProvider(script ...MockResponse) *MockProvider {
	return &MockProvider{script: script}
}

func (m *MockProvider) Generate(ctx context.Context, req Request) (*Response, error) {
	next, ok := m.pop(req)
	if !ok {
		return nil, &ErrProviderUnavailable{Provider: "mock", Err: errScriptExhausted}
	}

	if next.Delay > 0 {
		if err := sleepCtx(ctx, next.Delay); err != nil {
			return nil, err
		}
	}
	if next.Err != nil {
		return nil, next.Err
	}

	content, err := finishContent(req, string(next.Content), "end")
	if err != nil {
		return nil, err
	}
	return &Response{Content: content, Usage: next.Usage, Model: "mock", StopReason: "end"}, nil
}

func (m *MockProvider) pop(req Request) (MockResponse, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Calls = append(m.Calls, req)
	if len(m.script) == 0 {
		return MockResponse{}, false
	}
	next := m.script[0]
	m.script = m.script[1:]
	return next, true
}

func (m *MockProvider) Name() string    { return "mock" }
func (m *MockProvider) ModelID() string { return "mock" }

// AddResponse appends to the script.
func (m *MockProvider) AddResponse(resp MockResponse) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.script = append(m.script, resp)
}

func (m *MockProvider) CallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.Calls)
}
