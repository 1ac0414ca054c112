package resilience

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"testing"
	"time"
)

func fastPolicy(retries int) RetryPolicy {
	return RetryPolicy{
		Name:       "test",
		MaxRetries: retries,
		BaseDelay:  time.Millisecond,
		MaxDelay:   5 * time.Millisecond,
	}
}

func TestRetry(t *testing.T) {
	t.Parallel()

	transient := errors.New("transient error")
	tests := []struct {
		name      string
		policy    RetryPolicy
		failUntil int32
		err       error
		wantCalls int32
		wantErr   bool
	}{
		{name: "first call succeeds", policy: fastPolicy(3), failUntil: 0, err: transient, wantCalls: 1},
		{name: "eventual success", policy: fastPolicy(3), failUntil: 2, err: transient, wantCalls: 3},
		{name: "exhausted", policy: fastPolicy(2), failUntil: 100, err: transient, wantCalls: 3, wantErr: true},
		{name: "zero retries", policy: fastPolicy(0), failUntil: 100, err: transient, wantCalls: 1, wantErr: true},
		{name: "client error is not retried", policy: fastPolicy(3), failUntil: 100, err: AsClientError(errors.New("HTTP 422")), wantCalls: 1, wantErr: true},
		{name: "wrapped client error is not retried", policy: fastPolicy(3), failUntil: 100, err: fmt.Errorf("create review: %w", AsClientError(transient)), wantCalls: 1, wantErr: true},
		{
			name:      "only listed errors are retried",
			policy:    RetryPolicy{MaxRetries: 3, BaseDelay: time.Millisecond, RetryableErrors: []error{transient}},
			failUntil: 100,
			err:       errors.New("other"),
			wantCalls: 1,
			wantErr:   true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			var calls atomic.Int32
			err := Retry(context.Background(), tt.policy, func() error {
				if calls.Add(1) <= tt.failUntil {
					return tt.err
				}
				return nil
			})
			if (err != nil) != tt.wantErr {
				t.Errorf("Retry() error = %v, wantErr %v", err, tt.wantErr)
			}
			if calls.Load() != tt.wantCalls {
				t.Errorf("calls = %d, want %d", calls.Load(), tt.wantCalls)
			}
		})
	}
}

func TestRetryContextCancellation(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	var calls atomic.Int32
	err := Retry(ctx, RetryPolicy{MaxRetries: 5, BaseDelay: time.Second}, func() error {
		calls.Add(1)
		cancel()
		return errors.New("fail")
	})
	if !errors.Is(err, context.Canceled) {
		t.Errorf("err = %v, want context.Canceled", err)
	}
	if calls.Load() != 1 {
		t.Errorf("calls = %d, want 1", calls.Load())
	}
}

func TestCalculateBackoff(t *testing.T) {
	t.Parallel()

	tests := []struct {
		attempt int
		want    time.Duration
	}{
		{0, 100 * time.Millisecond},
		{1, 200 * time.Millisecond},
		{3, 800 * time.Millisecond},
		{10, time.Second},
	}
	for _, tt := range tests {
		if got := CalculateBackoff(tt.attempt, 100*time.Millisecond, time.Second, false); got != tt.want {
			t.Errorf("CalculateBackoff(%d) = %v, want %v", tt.attempt, got, tt.want)
		}
	}

	for range 50 {
		got := CalculateBackoff(1, 100*time.Millisecond, time.Second, true)
		if got < 100*time.Millisecond || got > 300*time.Millisecond {
			t.Fatalf("jittered backoff %v outside [100ms, 300ms]", got)
		}
	}
}

func TestIsErrorRetryable(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"generic", errors.New("boom"), true},
		{"canceled", context.Canceled, false},
		{"deadline", fmt.Errorf("call: %w", context.DeadlineExceeded), false},
		{"client error", AsClientError(errors.New("bad input")), false},
	}
	for _, tt := range tests {
		if got := isErrorRetryable(tt.err, nil); got != tt.want {
			t.Errorf("%s: isErrorRetryable() = %v, want %v", tt.name, got, tt.want)
		}
	}
}
