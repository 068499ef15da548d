package llm

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestNewOpenRouterProvider(t *testing.T) {
	tests := []struct {
		name      string
		cfg       OpenRouterConfig
		wantModel string
		wantErr   bool
	}{
		{"default base URL", OpenRouterConfig{APIKey: "sk-or-test", Model: "google/gemini-2.0-flash-exp"}, "google/gemini-2.0-flash-exp", false},
		{"vendor ids pass through", OpenRouterConfig{APIKey: "sk-or-test", Model: "gpt-4o-mini"}, "gpt-4o-mini", false},
		{"custom base URL", OpenRouterConfig{APIKey: "sk-or-test", Model: "meta-llama/llama-3.1-8b-instruct", BaseURL: "https://proxy.example/v1"}, "meta-llama/llama-3.1-8b-instruct", false},
		{"missing key", OpenRouterConfig{Model: "google/gemini-2.0-flash-exp"}, "", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, err := NewOpenRouterProvider(tt.cfg)
			if tt.wantErr {
				if err == nil {
					t.Fatal("expected error")
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if p.Name() != "openrouter" || p.ModelID() != tt.wantModel {
				t.Errorf("got %s/%s, want openrouter/%s", p.Name(), p.ModelID(), tt.wantModel)
			}
		})
	}
}

func TestOpenRouterProvider_GeneratesQuestion(t *testing.T) {
	var gotAuth, gotPath, gotTitle, gotReferer string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		gotPath = r.URL.Path
		gotTitle = r.Header.Get("X-Title")
		gotReferer = r.Header.Get("HTTP-Referer")
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]any{
			"id":    "gen-1",
			"model": "google/gemini-2.0-flash-exp",
			"choices": []map[string]any{{
				"index":         0,
				"message":       map[string]any{"role": "assistant", "content": "```json\n" + questionJSON + "\n```"},
				"finish_reason": "stop",
			}},
			"usage": map[string]any{"prompt_tokens": 120, "completion_tokens": 80, "total_tokens": 200},
		})
	}))
	defer server.Close()

	p, err := NewOpenRouterProvider(OpenRouterConfig{
		APIKey:  "sk-or-test",
		Model:   "google/gemini-2.0-flash-exp",
		BaseURL: server.URL + "/api/v1",
		AppURL:  "https://quiz.example",
	})
	if err != nil {
		t.Fatal(err)
	}
	resp, err := p.Generate(context.Background(), Request{
		System:    "You write multiple-choice programming questions.",
		Messages:  []Message{{Role: RoleUser, Content: "One beginner Go question."}},
		Schema:    testSchema(),
		MaxTokens: 512,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if string(resp.Content) != questionJSON {
		t.Errorf("content = %s", resp.Content)
	}
	if resp.Usage.TotalTokens != 200 {
		t.Errorf("total tokens = %d, want 200", resp.Usage.TotalTokens)
	}
	if gotAuth != "Bearer sk-or-test" || gotPath != "/api/v1/chat/completions" {
		t.Errorf("request auth=%q path=%q", gotAuth, gotPath)
	}
	if gotTitle != "codequiz" || gotReferer != "https://quiz.example" {
		t.Errorf("attribution headers title=%q referer=%q", gotTitle, gotReferer)
	}
}

func TestOpenRouterProvider_ErrorsNameProvider(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadGateway)
		json.NewEncoder(w).Encode(map[string]any{"error": map[string]any{"message": "upstream unavailable"}})
	}))
	defer server.Close()

	p, err := NewOpenRouterProvider(OpenRouterConfig{APIKey: "sk-or-test", Model: "x/y", BaseURL: server.URL})
	if err != nil {
		t.Fatal(err)
	}
	_, err = p.Generate(context.Background(), Request{Messages: []Message{{Role: RoleUser, Content: "q"}}, MaxTokens: 16})
	var down *ErrProviderUnavailable
	if !errors.As(err, &down) || down.Provider != "openrouter" {
		t.Fatalf("expected openrouter ErrProviderUnavailable, got %T (%v)", err, err)
	}
}

func TestNewProvider_SelectsAndWraps(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Provider = "openrouter"
	cfg.OpenRouter.APIKey = "sk-or-test"

	p, err := NewProvider(context.Background(), cfg, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	tp, ok := p.(*timeoutProvider)
	if !ok || tp.timeout != cfg.Timeout {
		t.Fatalf("expected timeout decorator, got %T", p)
	}
	if _, ok := tp.Provider.(*RetryProvider); !ok {
		t.Errorf("expected retry decorator inside, got %T", tp.Provider)
	}
	if p.Name() != "openrouter" {
		t.Errorf("name = %q", p.Name())
	}

	cfg.Provider = "carrier-pigeon"
	if _, err := NewProvider(context.Background(), cfg, nil); err == nil {
		t.Error("expected error for unknown provider")
	}

	cfg.Provider = "openai"
	cfg.OpenAI.APIKey = ""
	if _, err := NewProvider(context.Background(), cfg, nil); err == nil {
		t.Error("expected error for missing openai key")
	}
}

func TestTimeoutProvider_BoundsRetries(t *testing.T) {
	mock := NewMockProvider(
		MockResponse{Err: &ErrProviderUnavailable{Provider: "mock"}},
		MockResponse{Content: json.RawMessage(questionJSON)},
	)
	p := &timeoutProvider{
		Provider: WithRetry(mock, RetryConfig{MaxAttempts: 3, InitialWait: time.Minute, MaxWait: time.Minute, Multiplier: 1}),
		timeout:  20 * time.Millisecond,
	}

	_, err := p.Generate(context.Background(), Request{})
	if Kind(err) != "timeout" {
		t.Fatalf("expected timeout, got %v", err)
	}
	if mock.CallCount() != 1 {
		t.Fatalf("calls = %d, want 1", mock.CallCount())
	}
}
