package engine

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"
)

func TestClassifyLLMError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want RetryClass
	}{
		{name: "nil", err: nil, want: RetryClassNonRetryable},
		{name: "rate limit", err: errors.New("429 Too Many Requests"), want: RetryClassRetryable},
		{name: "server error", err: errors.New("502 bad gateway"), want: RetryClassRetryable},
		{name: "network", err: errors.New("dial tcp: connection refused"), want: RetryClassRetryable},
		{name: "deadline", err: errors.New("context deadline exceeded"), want: RetryClassMaybe},
		{name: "auth", err: errors.New("401 unauthorized"), want: RetryClassNonRetryable},
		{name: "cancelled", err: fmt.Errorf("request: %w", context.Canceled), want: RetryClassNonRetryable},
		{name: "status wins over text", err: NewTransportError(errors.New("timeout"), 400, ""), want: RetryClassNonRetryable},
		{name: "status 503", err: NewTransportError(errors.New("boom"), 503, ""), want: RetryClassRetryable},
		{name: "wrapped transport error", err: fmt.Errorf("chat: %w", NewTransportError(errors.New("x"), 429, "")), want: RetryClassRetryable},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ClassifyLLMError(tt.err); got != tt.want {
				t.Errorf("ClassifyLLMError() = %s, want %s", got, tt.want)
			}
		})
	}
}

func TestExtractRetryAfter(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want time.Duration
	}{
		{name: "header seconds", err: NewTransportError(errors.New("slow down"), 429, "7"), want: 7 * time.Second},
		{name: "message", err: errors.New("rate limited, retry after 3 seconds"), want: 3 * time.Second},
		{name: "none", err: errors.New("boom"), want: 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ExtractRetryAfter(tt.err); got != tt.want {
				t.Errorf("ExtractRetryAfter() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestCalculateDelay(t *testing.T) {
	policy := RetryPolicy{InitialDelay: 100 * time.Millisecond, MaxDelay: time.Second, Multiplier: 2}
	tests := []struct {
		attempt int
		err     error
		want    time.Duration
	}{
		{attempt: 0, err: errors.New("x"), want: 100 * time.Millisecond},
		{attempt: 2, err: errors.New("x"), want: 400 * time.Millisecond},
		{attempt: 10, err: errors.New("x"), want: time.Second},
		{attempt: 0, err: NewTransportError(errors.New("x"), 429, "60"), want: time.Second},
	}
	for _, tt := range tests {
		t.Run(fmt.Sprintf("attempt %d", tt.attempt), func(t *testing.T) {
			if got := calculateDelay(policy, tt.attempt, tt.err); got != tt.want {
				t.Errorf("calculateDelay() = %v, want %v", got, tt.want)
			}
		})
	}

	policy.Jitter = true
	for i := 0; i < 20; i++ {
		got := calculateDelay(policy, 0, errors.New("x"))
		if got < 100*time.Millisecond || got > 120*time.Millisecond {
			t.Fatalf("jittered delay %v outside [100ms, 120ms]", got)
		}
	}
}

func TestRetryWithPolicy(t *testing.T) {
	policy := RetryPolicy{MaxRetries: 3, InitialDelay: time.Millisecond, MaxDelay: time.Millisecond, Multiplier: 1}
	retryable := errors.New("503 service unavailable")
	tests := []struct {
		name      string
		failures  int
		err       error
		wantCalls int
		wantErr   bool
		exhausted bool
	}{
		{name: "first try", failures: 0, wantCalls: 1},
		{name: "recovers", failures: 2, err: retryable, wantCalls: 3},
		{name: "exhausted", failures: 10, err: retryable, wantCalls: 4, wantErr: true, exhausted: true},
		{name: "non retryable", failures: 10, err: errors.New("401 unauthorized"), wantCalls: 1, wantErr: true},
		{name: "guarded", failures: 10, err: errors.New("deadline exceeded"), wantCalls: 3, wantErr: true, exhausted: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			calls, retries := 0, 0
			got, err := RetryWithPolicy(context.Background(), policy,
				func(context.Context) (string, error) {
					calls++
					if calls <= tt.failures {
						return "", tt.err
					}
					return "ok", nil
				},
				ClassifyLLMError,
				func(int, time.Duration, error) { retries++ },
			)
			if calls != tt.wantCalls {
				t.Errorf("calls = %d, want %d", calls, tt.wantCalls)
			}
			if (err != nil) != tt.wantErr {
				t.Fatalf("err = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.exhausted != IsRetryExhausted(err) {
				t.Errorf("IsRetryExhausted(%v) = %v", err, !tt.exhausted)
			}
			if err == nil && got != "ok" {
				t.Errorf("result = %q", got)
			}
			if retries != calls-1 && !tt.wantErr {
				t.Errorf("retries = %d for %d calls", retries, calls)
			}
		})
	}
}

func TestRetryWithPolicyCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	policy := RetryPolicy{MaxRetries: 5, InitialDelay: time.Hour, MaxDelay: time.Hour, Multiplier: 1}
	_, err := RetryWithPolicy(ctx, policy,
		func(context.Context) (int, error) { return 0, errors.New("503") },
		ClassifyLLMError,
		func(int, time.Duration, error) { cancel() },
	)
	if !errors.Is(err, context.Canceled) {
		t.Errorf("err = %v, want context.Canceled", err)
	}
}
