package ratelimit

import (
	"context"
	"testing"
	"time"

	"github.com/amishk599/jobagg/internal/model"
)

func TestWait_SameKey_EnforcesMinDelay(t *testing.T) {
	limiter := NewMinDelayLimiter(100 * time.Millisecond)
	ctx := context.Background()

	// First call should return immediately.
	if err := limiter.Wait(ctx, "telegram"); err != nil {
		t.Fatalf("first wait: %v", err)
	}

	start := time.Now()
	if err := limiter.Wait(ctx, "telegram"); err != nil {
		t.Fatalf("second wait: %v", err)
	}
	elapsed := time.Since(start)

	// Should have waited at least ~100ms (allow 80ms for timer jitter).
	if elapsed < 80*time.Millisecond {
		t.Errorf("expected >= 80ms wait, got %v", elapsed)
	}
}

func TestWait_DifferentKeys_NoCrossBlocking(t *testing.T) {
	limiter := NewMinDelayLimiter(200 * time.Millisecond)
	ctx := context.Background()

	if err := limiter.Wait(ctx, "telegram"); err != nil {
		t.Fatalf("telegram wait: %v", err)
	}

	// Immediately call for imap; should NOT block.
	start := time.Now()
	if err := limiter.Wait(ctx, "imap"); err != nil {
		t.Fatalf("imap wait: %v", err)
	}
	elapsed := time.Since(start)

	if elapsed > 50*time.Millisecond {
		t.Errorf("expected imap wait to be near-instant, got %v", elapsed)
	}
}

func TestWait_ContextCancellation(t *testing.T) {
	limiter := NewMinDelayLimiter(5 * time.Second) // long delay
	ctx := context.Background()

	// First call to consume the only token.
	if err := limiter.Wait(ctx, "telegram"); err != nil {
		t.Fatalf("first wait: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if err := limiter.Wait(ctx, "telegram"); err == nil {
		t.Fatal("expected error from cancelled context, got nil")
	}
}

func TestWait_ZeroDelayNeverBlocks(t *testing.T) {
	limiter := NewMinDelayLimiter(0)
	start := time.Now()
	for i := 0; i < 50; i++ {
		if err := limiter.Wait(context.Background(), "file"); err != nil {
			t.Fatalf("wait: %v", err)
		}
	}
	if time.Since(start) > 50*time.Millisecond {
		t.Errorf("zero delay limiter blocked for %v", time.Since(start))
	}
}

type recordingSource struct {
	called bool
}

func (s *recordingSource) Name() string { return "rec" }

func (s *recordingSource) FetchPosts(_ context.Context) ([]model.RawPost, error) {
	s.called = true
	return nil, nil
}

func TestRateLimitedSource_WaitsBeforeDelegating(t *testing.T) {
	limiter := NewMinDelayLimiter(100 * time.Millisecond)
	inner := &recordingSource{}
	src := NewRateLimitedSource(inner, limiter, "telegram")
	ctx := context.Background()

	if _, err := src.FetchPosts(ctx); err != nil {
		t.Fatalf("first fetch: %v", err)
	}
	if !inner.called {
		t.Fatal("inner source was not called on first fetch")
	}
	inner.called = false

	start := time.Now()
	if _, err := src.FetchPosts(ctx); err != nil {
		t.Fatalf("second fetch: %v", err)
	}
	if !inner.called {
		t.Fatal("inner source was not called on second fetch")
	}
	if elapsed := time.Since(start); elapsed < 80*time.Millisecond {
		t.Errorf("expected >= 80ms wait on second fetch, got %v", elapsed)
	}
	if src.Name() != "rec" {
		t.Errorf("Name() = %q, want rec", src.Name())
	}
}

type echoCompleter struct{ calls int }

func (e *echoCompleter) Complete(_ context.Context, prompt string) (string, error) {
	e.calls++
	return prompt, nil
}

func TestLimitedProvider_Budget(t *testing.T) {
	// 20 rps with burst 1: three calls need about 100ms.
	inner := &echoCompleter{}
	p := NewLimitedProvider(inner, NewKeyedLimiter(20, 1), "ollama")

	start := time.Now()
	for i := 0; i < 3; i++ {
		if _, err := p.Complete(context.Background(), "x"); err != nil {
			t.Fatalf("Complete: %v", err)
		}
	}
	if elapsed := time.Since(start); elapsed < 80*time.Millisecond {
		t.Errorf("expected >= 80ms for 3 calls at 20 rps, got %v", elapsed)
	}
	if inner.calls != 3 {
		t.Errorf("calls = %d, want 3", inner.calls)
	}
}
