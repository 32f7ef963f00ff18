package errs

import (
	"context"
	"errors"
	"strings"
	"time"
)

// RetryClass categorizes an error for retry handling.
type RetryClass int

const (
	// RetryBackoff retries with exponential backoff (bounded attempts).
	// Applied to network-ish and timeout-ish failures.
	RetryBackoff RetryClass = iota
	// RetryFixed retries with a short fixed delay and more attempts.
	// Applied to lock-contention and concurrency failures.
	RetryFixed
	// RetrySkip does not retry and treats the operation as a no-op.
	// Applied to not-found failures.
	RetrySkip
	// RetryAbort does not retry and propagates the failure.
	RetryAbort
)

// String returns a human-readable class name.
func (c RetryClass) String() string {
	switch c {
	case RetryBackoff:
		return "backoff"
	case RetryFixed:
		return "fixed"
	case RetrySkip:
		return "skip"
	case RetryAbort:
		return "abort"
	default:
		return "unknown"
	}
}

// Classify maps an error to its retry class by type first, then by
// message text for errors that cross the exec boundary as strings.
func Classify(err error) RetryClass {
	if err == nil {
		return RetrySkip
	}

	var timeoutErr *TimeoutError
	if errors.As(err, &timeoutErr) {
		return RetryBackoff
	}
	var concurrentErr *ConcurrentModificationError
	if errors.As(err, &concurrentErr) {
		return RetryFixed
	}
	var circularErr *CircularDependencyError
	if errors.As(err, &circularErr) {
		return RetryAbort
	}

	msg := strings.ToLower(err.Error())
	switch {
	case strings.Contains(msg, "timeout"),
		strings.Contains(msg, "timed out"),
		strings.Contains(msg, "connection"),
		strings.Contains(msg, "network"),
		strings.Contains(msg, "temporarily unavailable"):
		return RetryBackoff
	case strings.Contains(msg, "lock"),
		strings.Contains(msg, "busy"),
		strings.Contains(msg, "concurrent"),
		strings.Contains(msg, "conflict"):
		return RetryFixed
	case strings.Contains(msg, "not found"),
		strings.Contains(msg, "no such"),
		strings.Contains(msg, "does not exist"):
		return RetrySkip
	default:
		return RetryAbort
	}
}

// RetryPolicy bounds retry behavior per class.
type RetryPolicy struct {
	// BackoffAttempts is the attempt cap for RetryBackoff errors.
	BackoffAttempts int
	// BackoffBase is the initial backoff delay, doubled each attempt.
	BackoffBase time.Duration
	// FixedAttempts is the attempt cap for RetryFixed errors.
	FixedAttempts int
	// FixedDelay is the constant delay between RetryFixed attempts.
	FixedDelay time.Duration
}

// DefaultRetryPolicy returns the retry bounds used when none are configured.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		BackoffAttempts: 3,
		BackoffBase:     time.Second,
		FixedAttempts:   10,
		FixedDelay:      100 * time.Millisecond,
	}
}

// Retry runs fn, retrying according to the classification of the returned
// error. RetrySkip yields nil; RetryAbort returns the error immediately.
// The context cancels waiting between attempts.
func Retry(ctx context.Context, policy RetryPolicy, fn func() error) error {
	var lastErr error
	attempt := 0

	for {
		err := fn()
		if err == nil {
			return nil
		}
		lastErr = err
		attempt++

		var wait time.Duration
		switch Classify(err) {
		case RetrySkip:
			return nil
		case RetryAbort:
			return err
		case RetryBackoff:
			if attempt >= policy.BackoffAttempts {
				return lastErr
			}
			wait = policy.BackoffBase << (attempt - 1)
		case RetryFixed:
			if attempt >= policy.FixedAttempts {
				return lastErr
			}
			wait = policy.FixedDelay
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(wait):
		}
	}
}
