package client

import (
	"context"
	"errors"
	"io"
	"math"
	"math/rand/v2"
	"strings"
	"time"

	"github.com/smnsjas/go-winrm/wsman"
	"github.com/smnsjas/go-winrm/wsman/transport"
)

// RetryPolicy controls retries of idempotent requests.
type RetryPolicy struct {
	// MaxAttempts is the total number of attempts, including the first.
	MaxAttempts int `yaml:"max_attempts"`

	InitialDelay Duration `yaml:"initial_delay,omitempty"`
	MaxDelay     Duration `yaml:"max_delay,omitempty"`

	// Multiplier scales the delay after each attempt (default 2).
	Multiplier float64 `yaml:"multiplier,omitempty"`

	// Jitter randomizes each delay by up to this fraction (0 to 1).
	Jitter float64 `yaml:"jitter,omitempty"`
}

// DefaultRetryPolicy returns three attempts starting at 100ms.
func DefaultRetryPolicy() *RetryPolicy {
	return &RetryPolicy{
		MaxAttempts:  3,
		InitialDelay: Duration(100 * time.Millisecond),
		MaxDelay:     Duration(5 * time.Second),
		Multiplier:   2,
		Jitter:       0.1,
	}
}

// isRetryableError determines if an error should trigger a retry.
//
// Retryable errors are transient network and transport failures. SOAP
// faults are answers from the server and are never retried.
func isRetryableError(err error) bool {
	if err == nil {
		return false
	}

	if wsman.IsFault(err) {
		return false
	}
	if errors.Is(err, transport.ErrUnauthorized) {
		return false
	}
	var serr *wsman.SerializationError
	if errors.As(err, &serr) {
		return false
	}

	if errors.Is(err, context.Canceled) {
		return false
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}

	if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
		return true
	}

	var status *transport.StatusError
	if errors.As(err, &status) {
		return status.StatusCode == 502 || status.StatusCode == 503 || status.StatusCode == 504
	}

	// Fallback: String matching for stdlib network errors
	errStr := strings.ToLower(err.Error())
	return strings.Contains(errStr, "connection reset") ||
		strings.Contains(errStr, "connection refused") ||
		strings.Contains(errStr, "i/o timeout") ||
		strings.Contains(errStr, "network is unreachable") ||
		strings.Contains(errStr, "no route to host") ||
		strings.Contains(errStr, "broken pipe")
}

// calculateRetryBackoff computes exponential backoff with cap.
func calculateRetryBackoff(attempt int, policy *RetryPolicy) time.Duration {
	if policy == nil {
		return time.Second
	}

	delay := time.Duration(policy.InitialDelay)
	if delay <= 0 {
		delay = 100 * time.Millisecond
	}

	if attempt <= 1 {
		return applyJitter(delay, policy.Jitter)
	}

	multiplier := policy.Multiplier
	if multiplier < 1.0 {
		multiplier = 2.0
	}

	maxDelay := time.Duration(policy.MaxDelay)
	if maxDelay <= 0 {
		maxDelay = 5 * time.Second
	}

	backoffFloat := float64(delay) * math.Pow(multiplier, float64(attempt-1))
	if backoffFloat > float64(maxDelay) || backoffFloat > float64(math.MaxInt64) {
		return applyJitter(maxDelay, policy.Jitter)
	}

	return applyJitter(time.Duration(backoffFloat), policy.Jitter)
}

// applyJitter spreads d uniformly over ±jitter. Jitter outside (0, 1] is
// ignored.
func applyJitter(d time.Duration, jitter float64) time.Duration {
	if jitter <= 0 || jitter > 1 {
		return d
	}
	delta := float64(d) * jitter
	return time.Duration(float64(d) - delta + rand.Float64()*2*delta)
}

// withRetry runs fn until it succeeds, fails with a non-retryable error or
// the policy is exhausted.
func (c *Client) withRetry(ctx context.Context, op string, fn func(context.Context) error) error {
	policy := c.config.Retry
	attempts := 1
	if policy != nil && policy.MaxAttempts > 1 {
		attempts = policy.MaxAttempts
	}

	var err error
	for attempt := 1; ; attempt++ {
		err = fn(ctx)
		if err == nil || attempt >= attempts || !isRetryableError(err) {
			return err
		}

		delay := calculateRetryBackoff(attempt, policy)
		c.logger.Warn("retrying request",
			"op", op,
			"attempt", attempt,
			"delay", delay,
			"error", err)

		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}
}
