package vigilib

import (
	"context"
	"errors"
	"io"
	"math"
	"math/rand"
	"net"
	"strings"
	"time"
)

// Default retry configuration values
const (
	DEF_MAX_ATTEMPTS   = 3
	DEF_BASE_DELAY     = 250 * time.Millisecond
	DEF_MAX_DELAY      = 5 * time.Second
	DEF_JITTER_FACTOR  = 0.5
	DEF_BACKOFF_FACTOR = 2.0
)

// RetryConfig holds configuration for retry behavior. It is parameterized
// independently of any specific collaborator so the same policy can wrap
// oracle queries, balance lookups, and quote requests.
type RetryConfig struct {
	MaxAttempts   int           // Total attempts including the first (0 = 1)
	BaseDelay     time.Duration // Initial delay before first retry
	MaxDelay      time.Duration // Maximum delay between retries
	JitterFactor  float64       // Random jitter factor (0-1)
	BackoffFactor float64       // Exponential backoff multiplier
	Breaker       *Breaker      // Optional shared circuit breaker
}

// DefaultRetryConfig returns a RetryConfig with sensible defaults.
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxAttempts:   DEF_MAX_ATTEMPTS,
		BaseDelay:     DEF_BASE_DELAY,
		MaxDelay:      DEF_MAX_DELAY,
		JitterFactor:  DEF_JITTER_FACTOR,
		BackoffFactor: DEF_BACKOFF_FACTOR,
	}
}

// ErrorCategory classifies errors for retry decisions.
type ErrorCategory int

const (
	ErrCategoryFatal     ErrorCategory = iota // Non-retryable (bad input, canceled)
	ErrCategoryRetryable                      // Transient (timeout, reset, EOF)
	ErrCategoryThrottled                      // Rate limiting (429, 503)
)

// ClassifyError determines how a collaborator error should be handled.
func ClassifyError(err error) ErrorCategory {
	if err == nil {
		return ErrCategoryFatal
	}

	// User cancellation is never retried; a per-request deadline is.
	if errors.Is(err, context.Canceled) {
		return ErrCategoryFatal
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return ErrCategoryRetryable
	}

	if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
		return ErrCategoryRetryable
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return ErrCategoryRetryable
	}

	// String-based pattern matching for wrapped collaborator errors.
	errStr := strings.ToLower(err.Error())
	retryablePatterns := []string{
		"connection reset",
		"connection refused",
		"broken pipe",
		"timeout",
		"temporary failure",
		"no such host",
		"network is unreachable",
	}
	for _, pattern := range retryablePatterns {
		if strings.Contains(errStr, pattern) {
			return ErrCategoryRetryable
		}
	}

	throttlePatterns := []string{
		"429",
		"503",
		"too many requests",
		"service unavailable",
		"rate limit",
		"throttl",
	}
	for _, pattern := range throttlePatterns {
		if strings.Contains(errStr, pattern) {
			return ErrCategoryThrottled
		}
	}

	// Unknown errors are treated as fatal to avoid infinite retry loops.
	return ErrCategoryFatal
}

// CalculateBackoff computes the delay before retry attempt number attempt.
func (c *RetryConfig) CalculateBackoff(attempt int) time.Duration {
	if attempt < 1 {
		attempt = 1
	}

	delay := float64(c.BaseDelay) * math.Pow(c.BackoffFactor, float64(attempt-1))

	if c.JitterFactor > 0 {
		jitter := c.JitterFactor * (2*rand.Float64() - 1) // random in [-1, 1]
		delay *= (1 + jitter)
	}

	if delay > float64(c.MaxDelay) {
		delay = float64(c.MaxDelay)
	}
	if delay < 0 {
		delay = float64(c.BaseDelay)
	}

	return time.Duration(delay)
}

// Do runs fn until it succeeds, the attempt budget is exhausted, a fatal
// error occurs, or ctx is done. If a Breaker is configured, Do consults it
// before each attempt and records every outcome.
func (c *RetryConfig) Do(ctx context.Context, fn func(context.Context) error) error {
	maxAttempts := c.MaxAttempts
	if maxAttempts < 1 {
		maxAttempts = 1
	}

	var lastErr error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		if c.Breaker != nil && !c.Breaker.Allow() {
			return ErrCircuitOpen
		}

		err := fn(ctx)
		if c.Breaker != nil {
			c.Breaker.Record(err)
		}
		if err == nil {
			return nil
		}
		lastErr = err

		category := ClassifyError(err)
		if category == ErrCategoryFatal || attempt == maxAttempts {
			break
		}

		delay := c.CalculateBackoff(attempt)
		if category == ErrCategoryThrottled {
			delay *= 2
			if delay > c.MaxDelay {
				delay = c.MaxDelay
			}
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(delay):
		}
	}
	return lastErr
}
