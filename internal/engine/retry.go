package engine

import (
	"context"
	"fmt"
	"math"
	"math/rand"
	"time"

	"github.com/ChamsBouzaiene/nanocoder/internal/config"
)

// RetryPolicy defines retry behavior for model calls.
type RetryPolicy struct {
	MaxRetries   int           // Maximum number of retry attempts (0 = no retries)
	InitialDelay time.Duration // Initial delay before first retry
	MaxDelay     time.Duration // Maximum delay cap
	Multiplier   float64       // Exponential backoff multiplier (e.g., 2.0)
	Jitter       bool          // Whether to add random jitter to delays
}

// maxGuardedRetries caps retries of RetryClassMaybe errors.
const maxGuardedRetries = 2

// DefaultRetryPolicy returns the policy used when none is configured.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxRetries:   3,
		InitialDelay: 1 * time.Second,
		MaxDelay:     30 * time.Second,
		Multiplier:   2.0,
		Jitter:       true,
	}
}

// RetryPolicyFrom derives the policy from the session configuration.
func RetryPolicyFrom(r config.Retry) RetryPolicy {
	p := DefaultRetryPolicy()
	p.MaxRetries = r.MaxRetries
	if r.InitialDelay > 0 {
		p.InitialDelay = r.InitialDelay
	}
	if r.MaxDelay > 0 {
		p.MaxDelay = r.MaxDelay
	}
	return p
}

// RetryableFunc is a function that can be retried.
type RetryableFunc[T any] func(ctx context.Context) (T, error)

// RetryWithPolicy executes fn, retrying errors classified as retryable.
// Returns the result on success, a *RetryExhaustedError when attempts run
// out, or the error itself when it is not retryable.
func RetryWithPolicy[T any](
	ctx context.Context,
	policy RetryPolicy,
	fn RetryableFunc[T],
	classifyError func(error) RetryClass,
	onRetry func(attempt int, delay time.Duration, err error),
) (T, error) {
	var zero T

	for attempt := 0; ; attempt++ {
		result, err := fn(ctx)
		if err == nil {
			return result, nil
		}
		if ctx.Err() != nil {
			return zero, ctx.Err()
		}

		class := classifyError(err)
		if class == RetryClassNonRetryable {
			return zero, err
		}
		if attempt >= policy.MaxRetries {
			return zero, NewRetryExhaustedError(err, attempt+1, policy.MaxRetries, false)
		}
		if class == RetryClassMaybe && attempt >= maxGuardedRetries {
			return zero, NewRetryExhaustedError(err, attempt+1, maxGuardedRetries, true)
		}

		delay := calculateDelay(policy, attempt, err)
		if onRetry != nil {
			onRetry(attempt+1, delay, err)
		}

		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return zero, fmt.Errorf("context cancelled during retry: %w", ctx.Err())
		case <-timer.C:
		}
	}
}

// calculateDelay computes the delay for a retry attempt.
func calculateDelay(policy RetryPolicy, attempt int, err error) time.Duration {
	// Retry-After wins, capped at MaxDelay
	if retryAfter := ExtractRetryAfter(err); retryAfter > 0 {
		if policy.MaxDelay > 0 && retryAfter > policy.MaxDelay {
			return policy.MaxDelay
		}
		return retryAfter
	}

	multiplier := policy.Multiplier
	if multiplier < 1 {
		multiplier = 1
	}
	// initialDelay * (multiplier ^ attempt)
	delay := float64(policy.InitialDelay) * math.Pow(multiplier, float64(attempt))
	if policy.MaxDelay > 0 && delay > float64(policy.MaxDelay) {
		delay = float64(policy.MaxDelay)
	}

	// 0-20% random variation
	if policy.Jitter {
		delay += rand.Float64() * 0.2 * delay
	}
	return time.Duration(delay)
}
