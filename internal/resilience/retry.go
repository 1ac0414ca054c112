// Package resilience retries transient failures of remote API calls.
//
// Only network-facing operations are retried. Local checker invocations are
// never retried: their exit status is the verdict.
package resilience

import (
	"context"
	"errors"
	"log/slog"
	"math/rand"
	"time"
)

// RetryPolicy defines the retry behavior for operations.
type RetryPolicy struct {
	// Name labels the operation in logs.
	Name string `json:"name"`

	// MaxRetries is the maximum number of retry attempts (not including initial call).
	MaxRetries int `json:"maxRetries"`

	// BaseDelay is the initial delay before the first retry.
	BaseDelay time.Duration `json:"baseDelay"`

	// MaxDelay is the maximum delay between retries.
	MaxDelay time.Duration `json:"maxDelay"`

	// UseJitter adds randomness to delays to prevent thundering herd.
	UseJitter bool `json:"useJitter"`

	// RetryableErrors is a list of errors that should be retried.
	// If empty, all errors except client errors are retried.
	RetryableErrors []error `json:"-"`
}

// DefaultPolicy returns the policy used for GitHub API calls.
func DefaultPolicy(name string, maxRetries int, baseDelay time.Duration) RetryPolicy {
	return RetryPolicy{
		Name:       name,
		MaxRetries: maxRetries,
		BaseDelay:  baseDelay,
		MaxDelay:   10 * time.Second,
		UseJitter:  true,
	}
}

// Retry executes fn with the given policy.
// It returns the error from the last attempt if all retries are exhausted.
func Retry(ctx context.Context, policy RetryPolicy, fn func() error) error {
	var lastErr error

	maxAttempts := max(policy.MaxRetries, 0) + 1

	for attempt := range maxAttempts {
		if err := ctx.Err(); err != nil {
			return err
		}

		err := fn()
		if err == nil {
			return nil
		}
		lastErr = err

		if !isErrorRetryable(err, policy.RetryableErrors) {
			return err
		}

		// Don't delay after the last attempt
		if attempt < maxAttempts-1 {
			delay := CalculateBackoff(attempt, policy.BaseDelay, policy.MaxDelay, policy.UseJitter)
			slog.Default().With("module", "resilience").Debug("retrying",
				"operation", policy.Name,
				"attempt", attempt+1,
				"delay", delay.String(),
				"error", err,
			)

			timer := time.NewTimer(delay)
			select {
			case <-ctx.Done():
				timer.Stop()
				return ctx.Err()
			case <-timer.C:
			}
		}
	}

	return lastErr
}

// CalculateBackoff calculates the backoff delay for a given attempt.
// The delay grows exponentially: baseDelay * 2^attempt, capped at maxDelay.
func CalculateBackoff(attempt int, baseDelay, maxDelay time.Duration, useJitter bool) time.Duration {
	if baseDelay <= 0 {
		baseDelay = 100 * time.Millisecond
	}
	if maxDelay <= 0 {
		maxDelay = 30 * time.Second
	}

	delay := baseDelay
	for range attempt {
		delay *= 2
		if delay > maxDelay {
			delay = maxDelay
			break
		}
	}

	// Jitter scales the delay by a random factor in [0.5, 1.5).
	if useJitter {
		jitterFactor := 0.5 + rand.Float64()
		delay = time.Duration(float64(delay) * jitterFactor)
	}

	if delay > maxDelay {
		delay = maxDelay
	}

	return delay
}

// isErrorRetryable checks if the error should be retried based on the policy.
func isErrorRetryable(err error, retryableErrors []error) bool {
	if err == nil {
		return false
	}

	// Context errors are never retryable
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}

	// Client errors are never retryable
	var clientErr isClientError
	if errors.As(err, &clientErr) && clientErr.IsClientError() {
		return false
	}

	if len(retryableErrors) > 0 {
		for _, retryable := range retryableErrors {
			if errors.Is(err, retryable) {
				return true
			}
		}
		return false
	}

	return true
}
