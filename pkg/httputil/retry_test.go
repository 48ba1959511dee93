package httputil

import (
	"context"
	"errors"
	"testing"
	"time"
)

var errTransient = errors.New("transient")

func TestRetryableNil(t *testing.T) {
	if Retryable(nil) != nil {
		t.Error("Retryable(nil) should return nil")
	}
	err := Retryable(errTransient)
	if !IsRetryable(err) {
		t.Error("IsRetryable should return true for wrapped error")
	}
	if !errors.Is(err, errTransient) {
		t.Error("wrapped error should unwrap to the cause")
	}
	if IsRetryable(errTransient) {
		t.Error("IsRetryable should return false for unwrapped error")
	}
}

func TestBackoffSucceedsFirstTry(t *testing.T) {
	calls := 0
	err := Backoff{Attempts: 3, Delay: time.Millisecond}.Do(context.Background(), func() error {
		calls++
		return nil
	})
	if err != nil {
		t.Errorf("Do() error: %v", err)
	}
	if calls != 1 {
		t.Errorf("calls = %d, want 1", calls)
	}
}

func TestBackoffStopsOnPermanentError(t *testing.T) {
	permanent := errors.New("not found")
	calls := 0
	err := Backoff{Attempts: 3, Delay: time.Millisecond}.Do(context.Background(), func() error {
		calls++
		return permanent
	})
	if !errors.Is(err, permanent) {
		t.Errorf("Do() = %v, want %v", err, permanent)
	}
	if calls != 1 {
		t.Errorf("calls = %d, want 1", calls)
	}
}

func TestBackoffRetriesTransientErrors(t *testing.T) {
	calls := 0
	err := Backoff{Attempts: 3, Delay: time.Millisecond}.Do(context.Background(), func() error {
		calls++
		if calls < 3 {
			return Retryable(errTransient)
		}
		return nil
	})
	if err != nil {
		t.Errorf("Do() error: %v", err)
	}
	if calls != 3 {
		t.Errorf("calls = %d, want 3", calls)
	}
}

func TestBackoffReturnsLastError(t *testing.T) {
	calls := 0
	err := Backoff{Attempts: 2, Delay: time.Millisecond}.Do(context.Background(), func() error {
		calls++
		return Retryable(errTransient)
	})
	if !errors.Is(err, errTransient) {
		t.Errorf("Do() = %v, want transient", err)
	}
	if calls != 2 {
		t.Errorf("calls = %d, want 2", calls)
	}
}

func TestBackoffZeroAttemptsRunsOnce(t *testing.T) {
	calls := 0
	_ = Backoff{Attempts: 0, Delay: time.Millisecond}.Do(context.Background(), func() error {
		calls++
		return Retryable(errTransient)
	})
	if calls != 1 {
		t.Errorf("calls = %d, want 1", calls)
	}
}

func TestBackoffContextCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	calls := 0
	err := Backoff{Attempts: 5, Delay: time.Hour}.Do(ctx, func() error {
		calls++
		cancel()
		return Retryable(errTransient)
	})
	if !errors.Is(err, context.Canceled) {
		t.Errorf("Do() = %v, want context.Canceled", err)
	}
	if calls != 1 {
		t.Errorf("calls = %d, want 1", calls)
	}
}

func TestBackoffMaxDelay(t *testing.T) {
	b := Backoff{Attempts: 4, Delay: time.Millisecond, MaxDelay: 2 * time.Millisecond}
	start := time.Now()
	_ = b.Do(context.Background(), func() error { return Retryable(errTransient) })
	// 1ms + 2ms + 2ms of waiting; a generous ceiling keeps this stable on slow CI.
	if elapsed := time.Since(start); elapsed > time.Second {
		t.Errorf("elapsed = %v, MaxDelay not applied", elapsed)
	}
}
