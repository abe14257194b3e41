package llm

import (
	"context"
	"sync"
	"time"

	"golang.org/x/exp/slog"
)

// EstimateTokens approximates the token count of text. Four characters per
// token is close enough for budgeting purposes.
func EstimateTokens(text string) int {
	return len(text)/4 + 1
}

type usage struct {
	at     time.Time
	tokens int
}

// RateLimiter enforces a per-key tokens-per-minute budget over a sliding
// window. It is an explicit object with process-run lifetime, shared by every
// caller of the same provider/model rather than hidden module state.
type RateLimiter struct {
	mu     sync.Mutex
	limit  int
	window time.Duration
	spent  map[string][]usage
}

// NewRateLimiter builds a limiter allowing tokensPerMinute per key.
func NewRateLimiter(tokensPerMinute int) *RateLimiter {
	return &RateLimiter{
		limit:  tokensPerMinute,
		window: time.Minute,
		spent:  make(map[string][]usage),
	}
}

// Wait blocks until the key's budget can absorb tokens, then records the
// spend. Returns the context error when cancelled while waiting.
func (l *RateLimiter) Wait(ctx context.Context, key string, tokens int) error {
	for {
		delay := l.reserve(key, tokens)
		if delay <= 0 {
			return nil
		}

		slog.Warn("rate limit reached, waiting",
			"key", key, "tokens", tokens, "delay", delay.String())

		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}
}

// reserve records the spend when it fits and returns zero, or returns how
// long until the oldest usage ages out of the window.
func (l *RateLimiter) reserve(key string, tokens int) time.Duration {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := time.Now()
	cutoff := now.Add(-l.window)

	recent := l.spent[key][:0]
	total := 0
	for _, u := range l.spent[key] {
		if u.at.After(cutoff) {
			recent = append(recent, u)
			total += u.tokens
		}
	}
	l.spent[key] = recent

	if total+tokens <= l.limit || len(recent) == 0 {
		l.spent[key] = append(l.spent[key], usage{at: now, tokens: tokens})
		return 0
	}
	return recent[0].at.Sub(cutoff)
}
