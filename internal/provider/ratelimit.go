package provider

import (
	"context"
	"fmt"
	"sync"
	"time"

	"assistbot/internal/domain"
)

// RateLimiter is a token bucket for throttling model API calls.
type RateLimiter struct {
	mu       sync.Mutex
	tokens   float64
	max      float64
	rate     float64 // tokens per second
	lastTime time.Time
}

func NewRateLimiter(maxBurst int, ratePerMinute float64) *RateLimiter {
	if maxBurst <= 0 {
		maxBurst = 10
	}
	if ratePerMinute <= 0 {
		ratePerMinute = 30
	}
	return &RateLimiter{
		tokens:   float64(maxBurst),
		max:      float64(maxBurst),
		rate:     ratePerMinute / 60.0,
		lastTime: time.Now(),
	}
}

// Wait blocks until a token is available or ctx is done.
func (rl *RateLimiter) Wait(ctx context.Context) error {
	for {
		rl.mu.Lock()
		now := time.Now()
		elapsed := now.Sub(rl.lastTime).Seconds()
		rl.tokens += elapsed * rl.rate
		if rl.tokens > rl.max {
			rl.tokens = rl.max
		}
		rl.lastTime = now

		if rl.tokens >= 1.0 {
			rl.tokens -= 1.0
			rl.mu.Unlock()
			return nil
		}

		waitSec := (1.0 - rl.tokens) / rl.rate
		rl.mu.Unlock()

		timer := time.NewTimer(time.Duration(waitSec * float64(time.Second)))
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}
}

// RateLimited wraps a LanguageModel so every Ask first takes a token.
type RateLimited struct {
	model   domain.LanguageModel
	limiter *RateLimiter
}

func NewRateLimited(model domain.LanguageModel, limiter *RateLimiter) *RateLimited {
	return &RateLimited{model: model, limiter: limiter}
}

func (r *RateLimited) Name() string { return r.model.Name() }

func (r *RateLimited) Ask(ctx context.Context, p domain.Prompt) (string, error) {
	if err := r.limiter.Wait(ctx); err != nil {
		return "", domain.Fail("model", domain.ReasonTimeout, fmt.Errorf("rate limit wait: %w", err))
	}
	return r.model.Ask(ctx, p)
}
