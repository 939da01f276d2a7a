package retry

import (
	"context"
	"errors"
	"testing"
	"time"
)

var errUpstream = errors.New("upstream read failed")

func testConfig(maxAttempts int) Config {
	return Config{
		Enabled:      true,
		MaxAttempts:  maxAttempts,
		InitialDelay: 5 * time.Millisecond,
		MaxDelay:     50 * time.Millisecond,
		Multiplier:   2.0,
		Jitter:       false,
	}
}

func TestRetry_SuccessOnFirstAttempt(t *testing.T) {
	attempts := 0
	err := Retry(context.Background(), testConfig(3), func() error {
		attempts++
		return nil
	})

	if err != nil {
		t.Errorf("Expected no error, got: %v", err)
	}
	if attempts != 1 {
		t.Errorf("Expected 1 attempt, got: %d", attempts)
	}
}

func TestRetry_SuccessAfterRetries(t *testing.T) {
	attempts := 0
	err := Retry(context.Background(), testConfig(3), func() error {
		attempts++
		if attempts < 3 {
			return errUpstream
		}
		return nil
	})

	if err != nil {
		t.Errorf("Expected no error, got: %v", err)
	}
	if attempts != 3 {
		t.Errorf("Expected 3 attempts, got: %d", attempts)
	}
}

func TestRetry_MaxAttemptsExceeded(t *testing.T) {
	attempts := 0
	err := Retry(context.Background(), testConfig(2), func() error {
		attempts++
		return errUpstream
	})

	if err == nil {
		t.Fatal("Expected error, got nil")
	}
	if !errors.Is(err, errUpstream) {
		t.Errorf("Expected wrapped upstream error, got: %v", err)
	}
	if attempts != 3 { // first try + 2 retries
		t.Errorf("Expected 3 attempts, got: %d", attempts)
	}
}

func TestRetry_ContextCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := Retry(ctx, testConfig(3), func() error {
		return errUpstream
	})

	if err == nil {
		t.Fatal("Expected error, got nil")
	}
	if !errors.Is(err, context.Canceled) {
		t.Errorf("Expected context.Canceled, got: %v", err)
	}
}

func TestRetry_Disabled(t *testing.T) {
	cfg := testConfig(3)
	cfg.Enabled = false

	attempts := 0
	err := Retry(context.Background(), cfg, func() error {
		attempts++
		return errUpstream
	})

	if !errors.Is(err, errUpstream) {
		t.Errorf("Expected upstream error, got: %v", err)
	}
	if attempts != 1 {
		t.Errorf("Expected 1 attempt, got: %d", attempts)
	}
}
