package client

import (
	"context"
	"errors"
	"time"

	"github.com/smb2go/smb2client/wire"
)

// RetryPolicy configures the exponential backoff (without jitter) that Retry
// applies between attempts.
type RetryPolicy struct {
	MaxAttempts  int           // Maximum number of attempts (default: 3)
	InitialDelay time.Duration // Initial delay between retries (default: 100ms)
	MaxDelay     time.Duration // Maximum delay between retries (default: 5s)
	Multiplier   float64       // Backoff multiplier (default: 2.0)
}

// DefaultRetryPolicy is used wherever a caller passes a nil *RetryPolicy.
var DefaultRetryPolicy = &RetryPolicy{
	MaxAttempts:  3,
	InitialDelay: 100 * time.Millisecond,
	MaxDelay:     5 * time.Second,
	Multiplier:   2.0,
}

// Retry runs operation under policy (DefaultRetryPolicy if nil), retrying
// only errors isRetryable classifies as transient, with exponential backoff
// honoring ctx cancellation. logf, if non-nil, is called before each sleep
// (the caller's Logger.Printf, typically).
func Retry(ctx context.Context, policy *RetryPolicy, logf func(format string, v ...interface{}), operation func() error) error {
	if policy == nil {
		policy = DefaultRetryPolicy
	}
	if policy.MaxAttempts <= 1 {
		return operation()
	}

	var lastErr error
	delay := policy.InitialDelay

	for attempt := 1; attempt <= policy.MaxAttempts; attempt++ {
		if ctx.Err() != nil {
			return ctx.Err()
		}

		err := operation()
		if err == nil {
			return nil
		}
		lastErr = err

		if !isRetryable(err) {
			return err
		}
		if attempt == policy.MaxAttempts {
			break
		}

		if logf != nil {
			logf("client: operation failed (attempt %d/%d), retrying in %v: %v", attempt, policy.MaxAttempts, delay, err)
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(delay):
		}

		delay = time.Duration(float64(delay) * policy.Multiplier)
		if delay > policy.MaxDelay {
			delay = policy.MaxDelay
		}
	}
	return lastErr
}

// isRetryable classifies the client error taxonomy (spec §7): transport
// failures and the server statuses the spec calls out as transient are
// retryable; decode, crypto and permanent server errors are not.
func isRetryable(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, ErrTransportClosed) || errors.Is(err, ErrTimedOut) {
		return true
	}
	if IsStatus(err, wire.StatusNetworkSessionExpired) {
		return true
	}
	if IsStatus(err, wire.StatusPathNotCovered) {
		// Retryable only after the caller re-resolves the DFS target; dfs.go
		// does that itself rather than blindly retrying the same tree.
		return false
	}
	var se *ServerError
	if errors.As(err, &se) {
		return false
	}
	return false
}
