package retry_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jonesrussell/feedback-api/infrastructure/retry"
)

var errRefused = errors.New("dial tcp 127.0.0.1:5432: connect: connection refused")

func fastConfig(attempts int) retry.Config {
	return retry.Config{MaxAttempts: attempts, InitialDelay: time.Millisecond, MaxDelay: 2 * time.Millisecond}
}

func TestDo_SucceedsAfterTransientFailures(t *testing.T) {
	calls := 0
	var retried []int
	cfg := fastConfig(5)
	cfg.OnRetry = func(attempt int, _ time.Duration, _ error) { retried = append(retried, attempt) }

	err := retry.Do(context.Background(), cfg, func(context.Context) error {
		calls++
		if calls < 3 {
			return errRefused
		}
		return nil
	})
	if err != nil {
		t.Fatalf("Do() error = %v", err)
	}
	if calls != 3 {
		t.Errorf("calls = %d, want 3", calls)
	}
	if len(retried) != 2 {
		t.Errorf("OnRetry called %d times, want 2", len(retried))
	}
}

func TestDo_StopsOnPermanentError(t *testing.T) {
	permanent := errors.New("password authentication failed")
	calls := 0

	err := retry.Do(context.Background(), fastConfig(5), func(context.Context) error {
		calls++
		return permanent
	})
	if !errors.Is(err, permanent) {
		t.Fatalf("Do() error = %v, want %v", err, permanent)
	}
	if errors.Is(err, retry.ErrMaxAttemptsExceeded) {
		t.Error("permanent error reported as exhausted attempts")
	}
	if calls != 1 {
		t.Errorf("calls = %d, want 1", calls)
	}
}

func TestDo_ExhaustsAttempts(t *testing.T) {
	calls := 0
	err := retry.Do(context.Background(), fastConfig(3), func(context.Context) error {
		calls++
		return errRefused
	})
	if !errors.Is(err, retry.ErrMaxAttemptsExceeded) || !errors.Is(err, errRefused) {
		t.Fatalf("Do() error = %v", err)
	}
	if calls != 3 {
		t.Errorf("calls = %d, want 3", calls)
	}
}

func TestDo_HonoursCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := retry.Do(ctx, fastConfig(3), func(context.Context) error { return nil })
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("Do() error = %v, want context.Canceled", err)
	}
}
