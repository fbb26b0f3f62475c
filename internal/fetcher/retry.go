package fetcher

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"
)

// StatusError reports a response whose status code the backend treats as a
// failure worth retrying.
type StatusError struct {
	StatusCode int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("HTTP %d: %s", e.StatusCode, http.StatusText(e.StatusCode))
}

// RetryPolicy configures backend retry behavior.
type RetryPolicy struct {
	MaxAttempts int                                        // total attempts including initial try
	Delay       time.Duration                              // fixed delay between retries (used if DelayFunc nil)
	ShouldRetry func(error) bool                           // predicate; if nil, all errors retried
	DelayFunc   func(attempt int, err error) time.Duration // dynamic backoff; attempt is 1-based
}

// DefaultHTTPRetry retries twice on 429, 500, 502, 503, 504 and transport
// errors, backing off 0.5s then 1s.
func DefaultHTTPRetry() RetryPolicy {
	return RetryPolicy{
		MaxAttempts: 3,
		ShouldRetry: RetryableHTTP,
		DelayFunc:   ExponentialBackoff(500 * time.Millisecond),
	}
}

// ExponentialBackoff returns a DelayFunc yielding base, 2*base, 4*base, ...
func ExponentialBackoff(base time.Duration) func(int, error) time.Duration {
	return func(attempt int, _ error) time.Duration {
		if attempt < 1 {
			attempt = 1
		}
		return base << (attempt - 1)
	}
}

// RetryableHTTP reports whether err is a retryable status or transport error.
func RetryableHTTP(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	var se *StatusError
	if errors.As(err, &se) {
		switch se.StatusCode {
		case http.StatusTooManyRequests,
			http.StatusInternalServerError,
			http.StatusBadGateway,
			http.StatusServiceUnavailable,
			http.StatusGatewayTimeout:
			return true
		}
		return false
	}
	return true
}

// Retry calls fn until it succeeds, the policy gives up, or ctx ends.
func Retry(ctx context.Context, policy RetryPolicy, fn func(context.Context) error) error {
	attempts := policy.MaxAttempts
	if attempts < 1 {
		attempts = 1
	}
	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		if ctx.Err() != nil {
			return ctx.Err()
		}

		lastErr = fn(ctx)
		if lastErr == nil {
			return nil
		}

		// Don't delay after the last attempt.
		if attempt < attempts {
			if policy.ShouldRetry != nil && !policy.ShouldRetry(lastErr) {
				return lastErr
			}
			delay := policy.Delay
			if policy.DelayFunc != nil {
				delay = policy.DelayFunc(attempt, lastErr)
			}
			if delay > 0 {
				timer := time.NewTimer(delay)
				select {
				case <-timer.C:
				case <-ctx.Done():
					timer.Stop()
					return ctx.Err()
				}
			}
		}
	}
	return lastErr
}
