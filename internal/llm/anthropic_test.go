package llm

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
)

func newTestAnthropicProvider(t *testing.T, handler http.HandlerFunc) *AnthropicProvider {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	return &AnthropicProvider{
		client: anthropic.NewClient(
			option.WithAPIKey("test-key"),
			option.WithBaseURL(server.URL),
			option.WithMaxRetries(0),
		),
		model: "claude-haiku-4-5-20251001",
	}
}

// anthropicReply serves a Messages API reply built from text blocks.
func anthropicReply(stop string, blocks ...string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		content := make([]map[string]any, len(blocks))
		for i, b := range blocks {
			content[i] = map[string]any{"type": "text", "text": b}
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]any{
			"id":          "msg_test",
			"type":        "message",
			"role":        "assistant",
			"content":     content,
			"model":       "claude-haiku-4-5-20251001",
			"stop_reason": stop,
			"usage":       map[string]any{"input_tokens": 50, "output_tokens": 30},
		})
	}
}

func anthropicFailure(status int, errType string, header http.Header) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		for k, v := range header {
			w.Header()[k] = v
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		json.NewEncoder(w).Encode(map[string]any{
			"type":  "error",
			"error": map[string]any{"type": errType, "message": http.StatusText(status)},
		})
	}
}

func TestAnthropicProvider_Generate(t *testing.T) {
	half := len(questionJSON) / 2

	tests := []struct {
		name        string
		handler     http.HandlerFunc
		schema      bool
		wantContent string
		wantKind    string
	}{
		{"fenced question", anthropicReply("end_turn", "```json\n"+questionJSON+"\n```"), true, questionJSON, "ok"},
		{"split across blocks", anthropicReply("end_turn", questionJSON[:half], questionJSON[half:]), true, questionJSON, "ok"},
		{"no schema keeps fence", anthropicReply("end_turn", "```json\n{}\n```"), false, "```json\n{}\n```", "ok"},
		{"truncated", anthropicReply("max_tokens", questionJSON[:30]), true, "", "max_tokens"},
		{"refusal", anthropicReply("refusal", "I can't help with that."), true, "", "invalid_response"},
		{"empty reply", anthropicReply("end_turn"), true, "", "invalid_response"},
		{"wrong answer key", anthropicReply("end_turn", `{"question":"q","codeSnippet":"","options":{"A":"1","B":"2","C":"3","D":"4"},"correctAnswer":"E","explanation":"e"}`), true, "", "invalid_response"},
		{"server error", anthropicFailure(http.StatusInternalServerError, "api_error", nil), false, "", "unavailable"},
		{"rate limited", anthropicFailure(http.StatusTooManyRequests, "rate_limit_error", nil), false, "", "rate_limited"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := newTestAnthropicProvider(t, tt.handler)
			req := Request{
				System:    "You write multiple-choice programming questions.",
				Messages:  []Message{{Role: RoleUser, Content: "One beginner Python question."}},
				MaxTokens: 256,
			}
			if tt.schema {
				req.Schema = testSchema()
			}

			resp, err := p.Generate(context.Background(), req)
			if got := Kind(err); got != tt.wantKind {
				t.Fatalf("kind = %q (%v), want %q", got, err, tt.wantKind)
			}
			if err != nil {
				return
			}
			if string(resp.Content) != tt.wantContent {
				t.Errorf("content = %s", resp.Content)
			}
			if resp.Usage.TotalTokens != 80 || resp.StopReason != "end" {
				t.Errorf("usage = %+v, stop = %q", resp.Usage, resp.StopReason)
			}
		})
	}
}

func TestAnthropicProvider_RateLimitRetryAfter(t *testing.T) {
	p := newTestAnthropicProvider(t, anthropicFailure(http.StatusTooManyRequests, "rate_limit_error",
		http.Header{"Retry-After": []string{"7"}}))

	_, err := p.Generate(context.Background(), Request{Messages: []Message{{Role: RoleUser, Content: "q"}}, MaxTokens: 10})
	var rl *ErrRateLimit
	if !errors.As(err, &rl) {
		t.Fatalf("expected ErrRateLimit, got %T (%v)", err, err)
	}
	if rl.RetryAfter != 7*time.Second {
		t.Errorf("retry after = %s, want 7s", rl.RetryAfter)
	}
}

func TestAnthropicProvider_Identity(t *testing.T) {
	p, err := NewAnthropicProvider(AnthropicConfig{APIKey: "sk-test", Model: "claude-haiku"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if p.Name() != "anthropic" || p.ModelID() != "claude-haiku-4-5-20251001" {
		t.Fatalf("got %s/%s", p.Name(), p.ModelID())
	}
	if _, err := NewAnthropicProvider(AnthropicConfig{Model: "claude-haiku"}); err == nil {
		t.Fatal("expected error for missing key")
	}
}

func TestResolveModel(t *testing.T) {
	tests := []struct {
		input    string
		models   map[string]string
		expected string
	}{
		{"claude-sonnet", anthropicModels, "claude-sonnet-4-20250514"},
		{"claude-haiku", anthropicModels, "claude-haiku-4-5-20251001"},
		{"claude-3-opus-20240229", anthropicModels, "claude-3-opus-20240229"},
		{"gpt-4o-mini", openaiModels, "gpt-4o-mini"},
	}
	for _, tt := range tests {
		if got := resolveModel(tt.input, tt.models); got != tt.expected {
			t.Errorf("resolveModel(%q) = %q, want %q", tt.input, got, tt.expected)
		}
	}
}

func TestRetryAfterHeader(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	tests := []struct {
		value string
		want  time.Duration
	}{
		{"", 0},
		{"3", 3 * time.Second},
		{"0", 0},
		{now.Add(90 * time.Second).Format(http.TimeFormat), 90 * time.Second},
		{now.Add(-time.Minute).Format(http.TimeFormat), 0},
		{"soon", 0},
	}
	for _, tt := range tests {
		h := http.Header{}
		if tt.value != "" {
			h.Set("Retry-After", tt.value)
		}
		if got := retryAfter(h, now); got != tt.want {
			t.Errorf("retryAfter(%q) = %s, want %s", tt.value, got, tt.want)
		}
	}
}
