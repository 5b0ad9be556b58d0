package engine

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"
)

// ErrSessionFatal is returned by Submit once the session has failed.
var ErrSessionFatal = errors.New("session ended after a fatal error")

// ErrSessionDone is returned by Submit after Stop.
var ErrSessionDone = errors.New("session is closed")

// RetryClass indicates whether an error should be retried.
type RetryClass string

const (
	RetryClassRetryable    RetryClass = "retryable"     // Definitely retry
	RetryClassMaybe        RetryClass = "maybe"         // Retry with caution (limited attempts)
	RetryClassNonRetryable RetryClass = "non_retryable" // Never retry
)

// TransportError is a failed model call with its classification.
type TransportError struct {
	Err         error
	Class       RetryClass
	HTTPStatus  int    // HTTP status code if applicable
	RetryAfter  string // Retry-After header value if present
	IsRateLimit bool
	IsTimeout   bool
	IsNetwork   bool
	IsAuth      bool
	IsQuota     bool
}

func (e *TransportError) Error() string {
	if e.Err != nil {
		return e.Err.Error()
	}
	return fmt.Sprintf("transport error: %s", e.Class)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// NewTransportError wraps a provider error with classification metadata.
// It returns nil for a nil err.
func NewTransportError(err error, httpStatus int, retryAfter string) error {
	if err == nil {
		return nil
	}
	class := classifyStatus(httpStatus)
	if class == "" {
		class = ClassifyLLMError(err)
	}
	return &TransportError{
		Err:         err,
		Class:       class,
		HTTPStatus:  httpStatus,
		RetryAfter:  retryAfter,
		IsRateLimit: httpStatus == http.StatusTooManyRequests,
		IsTimeout:   httpStatus == http.StatusGatewayTimeout || httpStatus == http.StatusRequestTimeout,
		IsNetwork:   httpStatus == 0 || httpStatus >= 500,
		IsAuth:      httpStatus == http.StatusUnauthorized || httpStatus == http.StatusForbidden,
		IsQuota:     httpStatus == http.StatusPaymentRequired,
	}
}

func classifyStatus(status int) RetryClass {
	switch {
	case status == 0:
		return ""
	case status == http.StatusTooManyRequests, status == http.StatusRequestTimeout, status >= 500:
		return RetryClassRetryable
	case status >= 400:
		return RetryClassNonRetryable
	}
	return ""
}

// ClassifyLLMError classifies an error from a model provider call.
func ClassifyLLMError(err error) RetryClass {
	if err == nil {
		return RetryClassNonRetryable
	}

	var te *TransportError
	if errors.As(err, &te) {
		return te.Class
	}
	// cancellation is the operator's decision, not a transport fault
	if errors.Is(err, context.Canceled) {
		return RetryClassNonRetryable
	}

	errStr := strings.ToLower(err.Error())

	// Rate limit errors (429) - retryable, respect Retry-After
	if containsAny(errStr, "429", "rate limit", "too many requests") {
		return RetryClassRetryable
	}

	// Server errors (5xx) - retryable
	if containsAny(errStr, "500", "502", "503", "504", "internal server error",
		"bad gateway", "service unavailable", "gateway timeout", "overloaded") {
		return RetryClassRetryable
	}

	// Network/timeout errors - retryable
	if containsAny(errStr, "timeout", "connection reset", "connection refused",
		"no such host", "network", "dns", "temporary failure", "eof") {
		return RetryClassRetryable
	}

	// Context deadline exceeded - maybe (limited retries)
	if containsAny(errStr, "deadline exceeded") {
		return RetryClassMaybe
	}

	// Length/context overflow - maybe
	if containsAny(errStr, "context length", "token limit", "maximum context length") {
		return RetryClassMaybe
	}

	// Authentication, bad requests, quota and refusals never heal on retry.
	return RetryClassNonRetryable
}

func containsAny(s string, subs ...string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}

// ExtractRetryAfter extracts the Retry-After value from an error.
// Returns 0 if not found or invalid.
func ExtractRetryAfter(err error) time.Duration {
	var te *TransportError
	if errors.As(err, &te) && te.RetryAfter != "" {
		var seconds int
		if _, err := fmt.Sscanf(te.RetryAfter, "%d", &seconds); err == nil {
			return time.Duration(seconds) * time.Second
		}
		if t, err := time.Parse(time.RFC1123, te.RetryAfter); err == nil {
			if d := time.Until(t); d > 0 {
				return d
			}
		}
	}

	errStr := strings.ToLower(err.Error())
	if i := strings.Index(errStr, "retry after "); i >= 0 {
		var seconds int
		if _, err := fmt.Sscanf(errStr[i:], "retry after %d", &seconds); err == nil {
			return time.Duration(seconds) * time.Second
		}
	}
	return 0
}

// RetryExhaustedError indicates that all retry attempts have been exhausted.
type RetryExhaustedError struct {
	Err         error
	Attempts    int
	MaxAttempts int
	IsGuarded   bool // True if this was a "maybe" class error with limited retries
}

func (e *RetryExhaustedError) Error() string {
	if e.IsGuarded {
		return fmt.Sprintf("guarded retries exhausted after %d attempts: %v", e.Attempts, e.Err)
	}
	return fmt.Sprintf("retries exhausted after %d attempts: %v", e.Attempts, e.Err)
}

func (e *RetryExhaustedError) Unwrap() error {
	return e.Err
}

// NewRetryExhaustedError creates a new RetryExhaustedError.
func NewRetryExhaustedError(err error, attempts, maxAttempts int, isGuarded bool) *RetryExhaustedError {
	return &RetryExhaustedError{
		Err:         err,
		Attempts:    attempts,
		MaxAttempts: maxAttempts,
		IsGuarded:   isGuarded,
	}
}

// IsRetryExhausted checks if an error is a RetryExhaustedError.
func IsRetryExhausted(err error) bool {
	var retryExhausted *RetryExhaustedError
	return errors.As(err, &retryExhausted)
}

// LoopBudgetError reports that the model kept issuing tool requests for
// more automatic turns than allowed. It is not fatal.
type LoopBudgetError struct {
	Turns int
}

func (e *LoopBudgetError) Error() string {
	return fmt.Sprintf("stopped after %d automatic tool turns without a final answer", e.Turns)
}

// EngineContextError wraps errors with the loop position they occurred at.
type EngineContextError struct {
	Err       error
	State     LoopState
	Turn      int
	Operation string // "model_call", "tool_execution"
}

func (e *EngineContextError) Error() string {
	return fmt.Sprintf("[turn=%d state=%s op=%s] %v", e.Turn, e.State, e.Operation, e.Err)
}

func (e *EngineContextError) Unwrap() error {
	return e.Err
}
