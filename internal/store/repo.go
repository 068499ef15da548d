package store

import (
	"context"
	"time"
)

// QueryOpts configures audit log queries with filtering and pagination.
type QueryOpts struct {
	Limit   int       // max results (0 = unlimited)
	Purpose string    // exact purpose match when non-empty
	From    time.Time // created_at >= From
	To      time.Time // created_at <= To
}

// LLMCall captures the data for a single LLM request.
type LLMCall struct {
	Provider     string
	Model        string
	Purpose      string
	InputTokens  int
	OutputTokens int
	LatencyMs    int64
	Success      bool
	ErrorMessage string
	RequestBody  string
	ResponseBody string
}

// LLMCallRecord is a stored LLMCall.
type LLMCallRecord struct {
	LLMCall
	ID        int64
	Timestamp time.Time
}

// UsageRow aggregates calls sharing a purpose or a model.
type UsageRow struct {
	Purpose      string
	Model        string
	Calls        int
	InputTokens  int
	OutputTokens int
	AvgLatencyMs int64
}

// AuditRepo provides append access to the LLM audit log.
type AuditRepo interface {
	// AppendLLMCall records an LLM API call.
	AppendLLMCall(ctx context.Context, call LLMCall) error
}
