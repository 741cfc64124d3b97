package client

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/smb2go/smb2client/wire"
)

func TestRetry_Success(t *testing.T) {
	ctx := context.Background()
	callCount := 0
	err := Retry(ctx, nil, nil, func() error {
		callCount++
		return nil
	})
	if err != nil {
		t.Fatalf("Retry() error = %v, want nil", err)
	}
	if callCount != 1 {
		t.Errorf("operation called %d times, want 1", callCount)
	}
}

func TestRetry_SuccessAfterRetries(t *testing.T) {
	policy := &RetryPolicy{MaxAttempts: 3, InitialDelay: 5 * time.Millisecond, MaxDelay: 20 * time.Millisecond, Multiplier: 2.0}
	ctx := context.Background()
	callCount := 0
	err := Retry(ctx, policy, nil, func() error {
		callCount++
		if callCount < 3 {
			return newServerError(wire.CmdRead, wire.StatusNetworkSessionExpired)
		}
		return nil
	})
	if err != nil {
		t.Fatalf("Retry() error = %v, want nil", err)
	}
	if callCount != 3 {
		t.Errorf("operation called %d times, want 3", callCount)
	}
}

func TestRetry_NonRetryableErrorStopsImmediately(t *testing.T) {
	policy := &RetryPolicy{MaxAttempts: 3, InitialDelay: 5 * time.Millisecond, MaxDelay: 20 * time.Millisecond, Multiplier: 2.0}
	ctx := context.Background()
	nonRetryable := errors.New("not retryable")
	callCount := 0
	err := Retry(ctx, policy, nil, func() error {
		callCount++
		return nonRetryable
	})
	if !errors.Is(err, nonRetryable) {
		t.Errorf("Retry() error = %v, want %v", err, nonRetryable)
	}
	if callCount != 1 {
		t.Errorf("operation called %d times, want 1", callCount)
	}
}

func TestRetry_TransportClosedIsRetryable(t *testing.T) {
	policy := &RetryPolicy{MaxAttempts: 3, InitialDelay: 5 * time.Millisecond, MaxDelay: 20 * time.Millisecond, Multiplier: 2.0}
	ctx := context.Background()
	callCount := 0
	err := Retry(ctx, policy, nil, func() error {
		callCount++
		return ErrTransportClosed
	})
	if err == nil {
		t.Fatal("Retry() error = nil, want error")
	}
	if callCount != 3 {
		t.Errorf("operation called %d times, want 3 (max attempts exhausted)", callCount)
	}
}

func TestRetry_ContextCancellation(t *testing.T) {
	policy := &RetryPolicy{MaxAttempts: 5, InitialDelay: 50 * time.Millisecond, MaxDelay: 200 * time.Millisecond, Multiplier: 2.0}
	ctx, cancel := context.WithCancel(context.Background())
	callCount := 0
	errChan := make(chan error, 1)
	go func() {
		errChan <- Retry(ctx, policy, nil, func() error {
			callCount++
			if callCount == 2 {
				cancel()
			}
			return ErrTransportClosed
		})
	}()
	err := <-errChan
	if !errors.Is(err, context.Canceled) {
		t.Errorf("Retry() error = %v, want context.Canceled", err)
	}
	if callCount < 2 {
		t.Errorf("operation called %d times, want at least 2", callCount)
	}
}
