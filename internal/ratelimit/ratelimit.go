package ratelimit

import (
	"context"
	"fmt"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/amishk599/jobagg/internal/model"
)

// KeyedLimiter keeps one token bucket per key, e.g. per source type or per
// LLM endpoint.
type KeyedLimiter struct {
	mu sync.Mutex
	m  map[string]*rate.Limiter
	r  rate.Limit
	b  int
}

// NewKeyedLimiter allows perSecond events per key with the given burst.
func NewKeyedLimiter(perSecond float64, burst int) *KeyedLimiter {
	if burst < 1 {
		burst = 1
	}
	return &KeyedLimiter{
		m: make(map[string]*rate.Limiter),
		r: rate.Limit(perSecond),
		b: burst,
	}
}

// NewMinDelayLimiter enforces minDelay between consecutive events of the
// same key. A zero delay never blocks.
func NewMinDelayLimiter(minDelay time.Duration) *KeyedLimiter {
	if minDelay <= 0 {
		return &KeyedLimiter{m: make(map[string]*rate.Limiter), r: rate.Inf, b: 1}
	}
	return &KeyedLimiter{m: make(map[string]*rate.Limiter), r: rate.Every(minDelay), b: 1}
}

func (l *KeyedLimiter) limiterFor(key string) *rate.Limiter {
	l.mu.Lock()
	defer l.mu.Unlock()

	if lim, ok := l.m[key]; ok {
		return lim
	}
	lim := rate.NewLimiter(l.r, l.b)
	l.m[key] = lim
	return lim
}

// Wait blocks until key may proceed or ctx is done.
func (l *KeyedLimiter) Wait(ctx context.Context, key string) error {
	if err := l.limiterFor(key).Wait(ctx); err != nil {
		return fmt.Errorf("rate limiter wait for %s: %w", key, err)
	}
	return nil
}

// RateLimitedSource is a decorator that waits on a shared limiter before
// delegating to the wrapped Source.
type RateLimitedSource struct {
	inner   model.Source
	limiter *KeyedLimiter
	key     string // sources of the same kind share a key
}

var _ model.Source = (*RateLimitedSource)(nil)

// NewRateLimitedSource wraps a Source with keyed rate limiting.
func NewRateLimitedSource(inner model.Source, limiter *KeyedLimiter, key string) *RateLimitedSource {
	return &RateLimitedSource{
		inner:   inner,
		limiter: limiter,
		key:     key,
	}
}

func (s *RateLimitedSource) Name() string { return s.inner.Name() }

// FetchPosts waits for the limiter, then delegates.
func (s *RateLimitedSource) FetchPosts(ctx context.Context) ([]model.RawPost, error) {
	if err := s.limiter.Wait(ctx, s.key); err != nil {
		return nil, err
	}
	return s.inner.FetchPosts(ctx)
}

// Completer is the LLM call being limited.
type Completer interface {
	Complete(ctx context.Context, prompt string) (string, error)
}

// LimitedProvider keeps LLM requests under a requests-per-second budget.
type LimitedProvider struct {
	inner   Completer
	limiter *KeyedLimiter
	key     string
}

// NewLimitedProvider wraps an LLM provider; key is usually the endpoint URL.
func NewLimitedProvider(inner Completer, limiter *KeyedLimiter, key string) *LimitedProvider {
	return &LimitedProvider{inner: inner, limiter: limiter, key: key}
}

func (p *LimitedProvider) Complete(ctx context.Context, prompt string) (string, error) {
	if err := p.limiter.Wait(ctx, p.key); err != nil {
		return "", err
	}
	return p.inner.Complete(ctx, prompt)
}
