package retry

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"math/rand/v2"
	"net/http"
	"time"

	"github.com/amishk599/jobagg/internal/model"
)

// Policy retries transient failures with exponential backoff and jitter.
type Policy struct {
	maxRetries int
	baseDelay  time.Duration
	logger     *slog.Logger
}

// NewPolicy allows maxRetries attempts after the first failure, waiting
// baseDelay before the first retry.
func NewPolicy(maxRetries int, baseDelay time.Duration, logger *slog.Logger) *Policy {
	return &Policy{
		maxRetries: maxRetries,
		baseDelay:  baseDelay,
		logger:     logger,
	}
}

// Do calls fn until it succeeds, fails permanently, or the policy runs out
// of retries. what names the target in log lines.
func Do[T any](ctx context.Context, p *Policy, what string, fn func(context.Context) (T, error)) (T, error) {
	var zero T
	for attempt := 0; ; attempt++ {
		out, err := fn(ctx)
		switch {
		case err == nil:
			return out, nil
		case !isRetryable(err), attempt == p.maxRetries:
			return zero, err
		}

		delay := p.backoffDelay(attempt+1, err)
		p.logger.Warn("retrying after transient error",
			"target", what,
			"attempt", attempt+1,
			"max_retries", p.maxRetries,
			"delay", delay,
			"error", err,
		)
		t := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			t.Stop()
			return zero, fmt.Errorf("retry cancelled: %w", ctx.Err())
		case <-t.C:
		}
	}
}

// RetrySource is a decorator that retries a source's fetch on transient
// failures.
type RetrySource struct {
	inner  model.Source
	policy *Policy
}

var _ model.Source = (*RetrySource)(nil)

// NewRetrySource wraps a Source with retry logic.
func NewRetrySource(inner model.Source, policy *Policy) *RetrySource {
	return &RetrySource{inner: inner, policy: policy}
}

func (s *RetrySource) Name() string { return s.inner.Name() }

// FetchPosts attempts to fetch posts, retrying on transient errors.
func (s *RetrySource) FetchPosts(ctx context.Context) ([]model.RawPost, error) {
	return Do(ctx, s.policy, s.inner.Name(), s.inner.FetchPosts)
}

// Completer is the LLM call being retried.
type Completer interface {
	Complete(ctx context.Context, prompt string) (string, error)
}

// RetryProvider retries an LLM provider's completions on 429 and 5xx.
type RetryProvider struct {
	inner  Completer
	policy *Policy
}

// NewRetryProvider wraps an LLM provider with retry logic.
func NewRetryProvider(inner Completer, policy *Policy) *RetryProvider {
	return &RetryProvider{inner: inner, policy: policy}
}

func (p *RetryProvider) Complete(ctx context.Context, prompt string) (string, error) {
	return Do(ctx, p.policy, "llm", func(ctx context.Context) (string, error) {
		return p.inner.Complete(ctx, prompt)
	})
}

// backoffDelay is baseDelay doubled per attempt with up to 30% jitter either
// way. A server-supplied Retry-After wins.
func (p *Policy) backoffDelay(attempt int, err error) time.Duration {
	var httpErr *model.HTTPError
	if errors.As(err, &httpErr) && httpErr.RetryAfter > 0 {
		return httpErr.RetryAfter
	}
	delay := float64(p.baseDelay) * math.Pow(2, float64(attempt-1))
	return time.Duration(delay * (0.7 + 0.6*rand.Float64()))
}

// isRetryable reports whether err looks transient: network trouble, 429 and
// 5xx answers. Cancellation, other 4xx answers and Permanent errors are final.
func isRetryable(err error) bool {
	var perm *permanentError
	var httpErr *model.HTTPError
	switch {
	case err == nil:
		return false
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return false
	case errors.As(err, &perm):
		return false
	case errors.As(err, &httpErr):
		return httpErr.StatusCode == http.StatusTooManyRequests || httpErr.StatusCode >= 500
	}
	return true
}

type permanentError struct{ err error }

func (e *permanentError) Error() string { return e.err.Error() }
func (e *permanentError) Unwrap() error { return e.err }

// Permanent marks err as not worth retrying, e.g. a missing file or bad
// credentials.
func Permanent(err error) error {
	if err == nil {
		return nil
	}
	return &permanentError{err: err}
}
