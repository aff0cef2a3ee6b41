// Package retry provides a bounded retry policy for remote calls.
// The default policy makes a single attempt with no backoff; callers opt in to
// more attempts through configuration.
package retry

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/aatumaykin/profsweep/internal/logger"
)

const (
	defaultMaxAttempts  = 1
	defaultInitialDelay = 1 * time.Second
	defaultMaxDelay     = 10 * time.Second
)

// Backoff names the wait strategy between attempts.
type Backoff string

const (
	BackoffNone        Backoff = "none"
	BackoffFixed       Backoff = "fixed"
	BackoffExponential Backoff = "exponential"
)

// Policy represents retry configuration.
type Policy struct {
	MaxAttempts    int           // Maximum number of attempts (default: 1)
	Backoff        Backoff       // Wait strategy (default: none)
	InitialBackoff time.Duration // First wait for fixed/exponential (default: 1s)
	MaxBackoff     time.Duration // Cap for exponential (default: 10s)
}

// Do executes fn until it succeeds, returns a non-retryable error, or the
// policy is exhausted. Context cancellation is checked between attempts.
func Do[T any](ctx context.Context, p Policy, log *logger.Logger, fn func(ctx context.Context) (T, error)) (T, error) {
	p = p.withDefaults()
	if log == nil {
		log = logger.Nop()
	}

	var zero T
	var lastErr error

	for attempt := 0; attempt < p.MaxAttempts; attempt++ {
		result, err := fn(ctx)
		if err == nil {
			return result, nil
		}
		lastErr = err

		if !IsRetryable(err) {
			return zero, err
		}

		if attempt == p.MaxAttempts-1 {
			break
		}

		log.DebugCtx(ctx, "retryable error",
			logger.Field{Key: "attempt", Value: attempt + 1},
			logger.Field{Key: "max_attempts", Value: p.MaxAttempts},
			logger.Field{Key: "error", Value: err})

		if err := wait(ctx, p.delay(attempt)); err != nil {
			return zero, err
		}
	}

	if p.MaxAttempts == 1 {
		return zero, lastErr
	}
	return zero, fmt.Errorf("all %d attempts failed: %w", p.MaxAttempts, lastErr)
}

func (p Policy) withDefaults() Policy {
	if p.MaxAttempts <= 0 {
		p.MaxAttempts = defaultMaxAttempts
	}
	if p.Backoff == "" {
		p.Backoff = BackoffNone
	}
	if p.InitialBackoff <= 0 {
		p.InitialBackoff = defaultInitialDelay
	}
	if p.MaxBackoff <= 0 {
		p.MaxBackoff = defaultMaxDelay
	}
	return p
}

func (p Policy) delay(attempt int) time.Duration {
	switch p.Backoff {
	case BackoffFixed:
		return p.InitialBackoff
	case BackoffExponential:
		return calculateBackoff(attempt, p.InitialBackoff, p.MaxBackoff)
	default:
		return 0
	}
}

func wait(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	select {
	case <-time.After(d):
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Permanent marks err as not worth retrying regardless of its message.
func Permanent(err error) error {
	if err == nil {
		return nil
	}
	return &permanentError{err: err}
}

type permanentError struct {
	err error
}

func (e *permanentError) Error() string { return e.err.Error() }
func (e *permanentError) Unwrap() error { return e.err }

// IsRetryable reports whether err looks transient: timeouts, refused or reset
// connections, WS-Management transport faults. Access denial, cancellation and
// errors wrapped with Permanent are never retried.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}

	var perm *permanentError
	if errors.As(err, &perm) {
		return false
	}
	if errors.Is(err, context.Canceled) {
		return false
	}

	errLower := strings.ToLower(err.Error())

	nonRetryablePatterns := []string{
		"access is denied",
		"access denied",
		"logon failure",
		"context canceled",
	}
	for _, pattern := range nonRetryablePatterns {
		if strings.Contains(errLower, pattern) {
			return false
		}
	}

	retryablePatterns := []string{
		"deadline exceeded",
		"timeout",
		"timed out",
		"connection refused",
		"connection reset",
		"temporary failure",
		"temporarily unavailable",
		"winrm",
		"ws-management",
		"rpc server is unavailable",
		"eof",
		"network",
	}
	for _, pattern := range retryablePatterns {
		if strings.Contains(errLower, pattern) {
			return true
		}
	}

	return false
}

// calculateBackoff returns 2^attempt * initial, capped at max.
// Large attempts saturate at max instead of overflowing.
func calculateBackoff(attempt int, initial, max time.Duration) time.Duration {
	if initial <= 0 {
		return 0
	}
	if attempt < 0 {
		attempt = 0
	}
	if attempt >= 62 || initial > max>>uint(attempt) {
		return max
	}
	backoff := time.Duration(1<<uint(attempt)) * initial
	if backoff > max {
		return max
	}
	return backoff
}
