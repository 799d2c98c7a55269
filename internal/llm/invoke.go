package llm

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ziadkadry99/pdfchat/internal/apperr"
	"github.com/ziadkadry99/pdfchat/internal/metrics"
)

// Invoke calls p with a deadline of timeout and classifies failures:
// a missed deadline is apperr.ErrModelTimeout, a rate limiter refusal stays
// apperr.ErrRateLimited, anything else from the backend is
// apperr.ErrModelInvocation. Cancellation by the caller is returned as is.
func Invoke(ctx context.Context, p Provider, req CompletionRequest, timeout time.Duration) (*CompletionResponse, error) {
	callCtx := ctx
	if timeout > 0 {
		var cancel context.CancelFunc
		callCtx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	start := time.Now()
	resp, err := p.Complete(callCtx, req)
	elapsed := time.Since(start)
	metrics.ModelLatency.WithLabelValues(p.Name()).Observe(elapsed.Seconds())

	switch {
	case err == nil:
		return resp, nil
	case errors.Is(ctx.Err(), context.Canceled):
		return nil, ctx.Err()
	case errors.Is(err, apperr.ErrRateLimited):
		return nil, err
	case errors.Is(err, context.DeadlineExceeded), errors.Is(callCtx.Err(), context.DeadlineExceeded):
		return nil, fmt.Errorf("%w: %s after %s", apperr.ErrModelTimeout, p.Name(), elapsed.Round(time.Millisecond))
	default:
		return nil, fmt.Errorf("%w: %s: %v", apperr.ErrModelInvocation, p.Name(), err)
	}
}
