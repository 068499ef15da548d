package llm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang/glog"

	"github.com/abhisek/codequiz/internal/metrics"
	"github.com/abhisek/codequiz/internal/store"
)

const auditTimeout = 2 * time.Second

// LoggingProvider is a decorator that records every LLM request in the
// audit log and in the process log.
type LoggingProvider struct {
	inner Provider
	audit store.AuditRepo
}

// WithLogging wraps a Provider with request logging. audit may be nil.
func WithLogging(p Provider, audit store.AuditRepo) Provider {
	return &LoggingProvider{inner: p, audit: audit}
}

func (l *LoggingProvider) Generate(ctx context.Context, req Request) (*Response, error) {
	start := time.Now()
	purpose := PurposeFrom(ctx)

	resp, err := l.inner.Generate(ctx, req)

	latency := time.Since(start)

	call := store.LLMCall{
		Provider:    l.inner.Name(),
		Model:       l.inner.ModelID(),
		Purpose:     purpose,
		LatencyMs:   latency.Milliseconds(),
		Success:     err == nil,
		RequestBody: serializeRequest(req),
	}

	if resp != nil {
		call.InputTokens = resp.Usage.InputTokens
		call.OutputTokens = resp.Usage.OutputTokens
		if resp.Model != "" {
			call.Model = resp.Model
		}
		call.ResponseBody = string(resp.Content)
	}

	metrics.LLMRequests.WithLabelValues(call.Provider, Kind(err)).Inc()
	metrics.LLMTokens.WithLabelValues(call.Provider, "input").Add(float64(call.InputTokens))
	metrics.LLMTokens.WithLabelValues(call.Provider, "output").Add(float64(call.OutputTokens))

	if err != nil {
		call.ErrorMessage = err.Error()
		if raw := rejectedContent(err); len(raw) > 0 {
			call.ResponseBody = string(raw)
		}
		glog.Warningf("llm: %s/%s %s failed after %s: %v", call.Provider, call.Model, purpose, latency, err)
	} else {
		glog.V(2).Infof("llm: %s/%s %s ok in %s (%d in, %d out)",
			call.Provider, call.Model, purpose, latency, call.InputTokens, call.OutputTokens)
	}

	if l.audit != nil {
		// Timed-out calls are still recorded.
		auditCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), auditTimeout)
		if logErr := l.audit.AppendLLMCall(auditCtx, call); logErr != nil {
			glog.Warningf("llm: failed to record audit entry: %v", logErr)
		}
		cancel()
	}

	return resp, err
}

func (l *LoggingProvider) Name() string {
	return l.inner.Name()
}

func (l *LoggingProvider) ModelID() string {
	return l.inner.ModelID()
}

// rejectedContent returns the model output carried by a schema or
// truncation failure.
func rejectedContent(err error) json.RawMessage {
	var (
		inv    *ErrInvalidResponse
		maxTok *ErrMaxTokensExceeded
	)
	switch {
	case errors.As(err, &inv):
		return inv.Content
	case errors.As(err, &maxTok):
		return maxTok.Content
	}
	return nil
}

// serializeRequest builds a readable representation of the LLM request.
func serializeRequest(req Request) string {
	var b strings.Builder

	if req.System != "" {
		b.WriteString("[system]\n")
		b.WriteString(req.System)
		b.WriteString("\n\n")
	}

	for _, m := range req.Messages {
		fmt.Fprintf(&b, "[%s]\n", m.Role)
		b.WriteString(m.Content)
		b.WriteString("\n\n")
	}

	if req.Schema != nil {
		schemaDef, err := json.Marshal(req.Schema.Definition)
		if err == nil {
			fmt.Fprintf(&b, "[schema: %s]\n", req.Schema.Name)
			b.Write(schemaDef)
			b.WriteString("\n")
		}
	}

	return b.String()
}
