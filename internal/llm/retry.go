package llm

import (
	"context"
	"math"
	"math/rand/v2"
	"time"

	"github.com/golang/glog"

	"github.com/abhisek/codequiz/internal/metrics"
)

// RetryProvider is a decorator that retries transient errors with
// exponential backoff and jitter. The caller's context deadline bounds the
// whole sequence, so a question that cannot be produced in time falls
// back instead of waiting out the backoff.
type RetryProvider struct {
	inner  Provider
	config RetryConfig
	sleep  func(ctx context.Context, d time.Duration) error
}

// WithRetry wraps a Provider with retry logic.
func WithRetry(p Provider, cfg RetryConfig) Provider {
	if cfg.MaxAttempts < 1 {
		cfg.MaxAttempts = 1
	}
	return &RetryProvider{inner: p, config: cfg, sleep: sleepCtx}
}

func (r *RetryProvider) Generate(ctx context.Context, req Request) (*Response, error) {
	var (
		lastErr        error
		invalidRetried bool
	)

	for attempt := range r.config.MaxAttempts {
		resp, err := r.inner.Generate(ctx, req)
		if err == nil {
			return resp, nil
		}
		lastErr = err

		kind := Kind(err)
		if !retryable(kind, &invalidRetried) || attempt == r.config.MaxAttempts-1 {
			break
		}

		wait := r.backoff(attempt, err)
		metrics.LLMRetries.WithLabelValues(r.inner.Name(), kind).Inc()
		glog.V(1).Infof("llm: %s attempt %d/%d failed (%s), retrying in %s: %v",
			r.inner.Name(), attempt+1, r.config.MaxAttempts, kind, wait.Round(time.Millisecond), err)

		if err := r.sleep(ctx, wait); err != nil {
			return nil, err
		}
	}

	return nil, lastErr
}

func (r *RetryProvider) Name() string {
	return r.inner.Name()
}

func (r *RetryProvider) ModelID() string {
	return r.inner.ModelID()
}

// retryable reports whether an error of the given kind is worth another
// attempt. Schema violations get a single retry; truncation and
// cancellation are final.
func retryable(kind string, invalidRetried *bool) bool {
	switch kind {
	case "timeout", "canceled", "max_tokens":
		return false
	case "invalid_response":
		if *invalidRetried {
			return false
		}
		*invalidRetried = true
		return true
	default:
		return true
	}
}

// backoff computes the wait before the next attempt, honouring a
// provider-supplied Retry-After.
func (r *RetryProvider) backoff(attempt int, err error) time.Duration {
	if rl, ok := asRateLimit(err); ok && rl.RetryAfter > 0 {
		return rl.RetryAfter
	}

	wait := float64(r.config.InitialWait) * math.Pow(r.config.Multiplier, float64(attempt))
	wait = math.Min(wait, float64(r.config.MaxWait))

	// ±20% jitter.
	wait += wait * 0.2 * (2*rand.Float64() - 1)
	return time.Duration(math.Max(wait, 0))
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
