package llm

import (
	"context"
	"fmt"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/ziadkadry99/pdfchat/internal/apperr"
)

// RateLimitedProvider wraps a Provider with a token bucket rate limiter.
type RateLimitedProvider struct {
	provider Provider
	limiter  *rate.Limiter
}

// WithLimiter wraps provider with an existing limiter so several
// short-lived providers draw from one budget. A nil limiter disables limiting.
func WithLimiter(provider Provider, limiter *rate.Limiter) Provider {
	if limiter == nil {
		return provider
	}
	return &RateLimitedProvider{provider: provider, limiter: limiter}
}

// NewLimiter returns a limiter allowing rpm requests per minute, or nil
// when rpm <= 0.
func NewLimiter(rpm int) *rate.Limiter {
	if rpm <= 0 {
		return nil
	}
	return rate.NewLimiter(rate.Every(time.Minute/time.Duration(rpm)), rpm)
}

func (r *RateLimitedProvider) Name() string {
	return r.provider.Name()
}

func (r *RateLimitedProvider) Complete(ctx context.Context, req CompletionRequest) (*CompletionResponse, error) {
	if err := r.limiter.Wait(ctx); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		// Wait refuses up front when the next token lies past the deadline.
		return nil, fmt.Errorf("%w: %s: %v", apperr.ErrRateLimited, r.provider.Name(), err)
	}
	return r.provider.Complete(ctx, req)
}

// UserLimiters hands out one limiter per user so a single user cannot
// exhaust the request budget of everyone else.
type UserLimiters struct {
	rpm int
	mu  sync.Mutex
	m   map[string]*rate.Limiter
}

// NewUserLimiters returns per-user limiters of rpm requests per minute.
func NewUserLimiters(rpm int) *UserLimiters {
	return &UserLimiters{rpm: rpm, m: make(map[string]*rate.Limiter)}
}

// For returns the limiter of userID, or nil when limiting is disabled.
func (u *UserLimiters) For(userID string) *rate.Limiter {
	if u == nil || u.rpm <= 0 {
		return nil
	}
	u.mu.Lock()
	defer u.mu.Unlock()
	l, ok := u.m[userID]
	if !ok {
		l = NewLimiter(u.rpm)
		u.m[userID] = l
	}
	return l
}

// Forget drops the limiter of userID.
func (u *UserLimiters) Forget(userID string) {
	if u == nil {
		return
	}
	u.mu.Lock()
	delete(u.m, userID)
	u.mu.Unlock()
}
