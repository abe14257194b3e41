package llm

import (
	"context"
	"testing"
	"time"
)

func TestLLMEstimateTokens(t *testing.T) {
	tests := []struct {
		text string
		want int
	}{
		{"", 1},
		{"abc", 1},
		{"abcd", 2},
		{"abcdefgh", 3},
	}

	for _, tt := range tests {
		if got := EstimateTokens(tt.text); got != tt.want {
			t.Errorf("EstimateTokens(%q) = %d, want %d", tt.text, got, tt.want)
		}
	}
}

func TestLLMRateLimiter_WithinBudget(t *testing.T) {
	limiter := NewRateLimiter(100)
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	for i := 0; i < 4; i++ {
		if err := limiter.Wait(ctx, "gpt-4o", 25); err != nil {
			t.Fatalf("Wait() unexpected error on spend %d: %v", i, err)
		}
	}
}

func TestLLMRateLimiter_OversizedFirstRequest(t *testing.T) {
	// A single request above the whole budget must go through rather than
	// deadlock; the window empties and nothing smaller could ever fit
	// otherwise.
	limiter := NewRateLimiter(10)
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	if err := limiter.Wait(ctx, "gpt-4o", 50); err != nil {
		t.Fatalf("Wait() unexpected error: %v", err)
	}
}

func TestLLMRateLimiter_CancelledWhileWaiting(t *testing.T) {
	limiter := NewRateLimiter(10)

	if err := limiter.Wait(context.Background(), "gpt-4o", 10); err != nil {
		t.Fatalf("Wait() unexpected error: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	err := limiter.Wait(ctx, "gpt-4o", 10)
	if err != context.DeadlineExceeded {
		t.Errorf("Wait() error = %v, want context.DeadlineExceeded", err)
	}
}

func TestLLMRateLimiter_KeysIndependent(t *testing.T) {
	limiter := NewRateLimiter(10)
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	if err := limiter.Wait(ctx, "gpt-4o", 10); err != nil {
		t.Fatalf("Wait() unexpected error: %v", err)
	}
	// A different key has its own budget and must not block.
	if err := limiter.Wait(ctx, "claude", 10); err != nil {
		t.Fatalf("Wait() unexpected error for second key: %v", err)
	}
}
