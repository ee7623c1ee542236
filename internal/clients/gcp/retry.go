package gcp

import (
	"context"
	"time"

	"github.com/yungbote/videoguard-backend/internal/pkg/httpx"
)

const (
	defaultMaxRetries = 4
	retryBaseDelay    = 750 * time.Millisecond
	retryMaxDelay     = 10 * time.Second
)

// withRetry runs fn until it succeeds, returns a non-transient error, or exhausts maxRetries.
func withRetry[T any](ctx context.Context, maxRetries int, fn func(context.Context) (T, error)) (T, error) {
	var zero T
	var last error
	for attempt := 0; attempt <= maxRetries; attempt++ {
		if err := ctx.Err(); err != nil {
			if last != nil {
				return zero, last
			}
			return zero, err
		}
		out, err := fn(ctx)
		if err == nil {
			return out, nil
		}
		last = err
		if !isTransient(err) || attempt == maxRetries {
			break
		}
		if err := httpx.Sleep(ctx, httpx.Backoff(retryBaseDelay, retryMaxDelay, attempt+1)); err != nil {
			break
		}
	}
	return zero, last
}
