package llm

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/abhisek/codequiz/internal/store"
)

type recordingAudit struct {
	mu      sync.Mutex
	calls   []store.LLMCall
	ctxErrs []error
	err     error
}

func (r *recordingAudit) AppendLLMCall(ctx context.Context, c store.LLMCall) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = append(r.calls, c)
	r.ctxErrs = append(r.ctxErrs, ctx.Err())
	return r.err
}

func TestLoggingProvider_RecordsSuccess(t *testing.T) {
	audit := &recordingAudit{}
	mock := NewMockProvider(MockResponse{
		Content: json.RawMessage(questionJSON),
		Usage:   Usage{InputTokens: 12, OutputTokens: 7},
	})
	p := WithLogging(mock, audit)

	ctx := WithPurpose(context.Background(), PurposeQuestionGen)
	_, err := p.Generate(ctx, Request{
		System:   "sys",
		Messages: []Message{{Role: RoleUser, Content: "Generate a go question"}},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(audit.calls) != 1 {
		t.Fatalf("expected 1 audit entry, got %d", len(audit.calls))
	}
	c := audit.calls[0]
	if c.Provider != "mock" || c.Purpose != PurposeQuestionGen || !c.Success {
		t.Fatalf("unexpected entry: %+v", c)
	}
	if c.InputTokens != 12 || c.OutputTokens != 7 {
		t.Fatalf("unexpected token counts: %+v", c)
	}
	if !strings.Contains(c.RequestBody, "Generate a go question") {
		t.Fatalf("request body not captured: %q", c.RequestBody)
	}
}

func TestLoggingProvider_RecordsFailure(t *testing.T) {
	audit := &recordingAudit{}
	mock := NewMockProvider(MockResponse{Err: &ErrProviderUnavailable{Provider: "mock", Err: errors.New("down")}})
	p := WithLogging(mock, audit)

	_, err := p.Generate(context.Background(), Request{})
	if err == nil {
		t.Fatal("expected error")
	}
	if len(audit.calls) != 1 || audit.calls[0].Success || audit.calls[0].ErrorMessage == "" {
		t.Fatalf("expected failed entry, got %+v", audit.calls)
	}
}

func TestLoggingProvider_AuditErrorIgnored(t *testing.T) {
	audit := &recordingAudit{err: errors.New("disk full")}
	mock := NewMockProvider(MockResponse{Content: json.RawMessage(`{}`)})
	p := WithLogging(mock, audit)

	if _, err := p.Generate(context.Background(), Request{}); err != nil {
		t.Fatalf("audit failure must not fail the request: %v", err)
	}
}

func TestLoggingProvider_NilAudit(t *testing.T) {
	mock := NewMockProvider(MockResponse{Content: json.RawMessage(`{}`)})
	p := WithLogging(mock, nil)

	if _, err := p.Generate(context.Background(), Request{}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestLoggingProvider_KeepsRejectedOutput(t *testing.T) {
	audit := &recordingAudit{}
	bad := `{"question":"What does len(nil) return?","correctAnswer":"Z"}`
	p := WithLogging(NewMockProvider(MockResponse{Content: json.RawMessage(bad)}), audit)

	_, err := p.Generate(context.Background(), Request{Schema: testSchema()})
	if Kind(err) != "invalid_response" {
		t.Fatalf("expected invalid response, got %v", err)
	}
	if got := audit.calls[0].ResponseBody; got != bad {
		t.Fatalf("rejected output not kept: %q", got)
	}
}

func TestLoggingProvider_AuditsAfterDeadline(t *testing.T) {
	audit := &recordingAudit{}
	mock := NewMockProvider(MockResponse{Err: context.DeadlineExceeded})
	p := WithLogging(mock, audit)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := p.Generate(ctx, Request{}); Kind(err) != "timeout" {
		t.Fatalf("expected timeout, got %v", err)
	}
	if len(audit.ctxErrs) != 1 || audit.ctxErrs[0] != nil {
		t.Fatalf("audit should get a live context, got %v", audit.ctxErrs)
	}
}
