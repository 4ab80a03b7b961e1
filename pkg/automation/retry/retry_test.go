package retry

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestDo_RetriesUntilSuccess(t *testing.T) {
	attempts := 0
	failing := errors.New("transient")

	err := Do(context.Background(), Config{
		MaxRetries:   5,
		InitialDelay: time.Millisecond,
		MaxDelay:     10 * time.Millisecond,
	}, func(ctx context.Context) error {
		attempts++
		if attempts < 3 {
			return failing
		}
		return nil
	})

	if err != nil {
		t.Fatalf("expected eventual success, got %v", err)
	}
	if attempts != 3 {
		t.Fatalf("expected 3 attempts, got %d", attempts)
	}
}

func TestDo_RethrowsLastErrorAfterMaxRetries(t *testing.T) {
	terminal := errors.New("always fails")
	attempts := 0

	err := Do(context.Background(), Config{
		MaxRetries:   2,
		InitialDelay: time.Millisecond,
		MaxDelay:     5 * time.Millisecond,
	}, func(ctx context.Context) error {
		attempts++
		return terminal
	})

	if !errors.Is(err, terminal) {
		t.Fatalf("expected the terminal error to be rethrown, got %v", err)
	}
	// 1 initial attempt + 2 retries = 3 total.
	if attempts != 3 {
		t.Fatalf("expected 3 total attempts, got %d", attempts)
	}
}

func TestDo_NeverCallsOpAgainAfterSuccess(t *testing.T) {
	attempts := 0

	err := Do(context.Background(), DefaultConfig, func(ctx context.Context) error {
		attempts++
		return nil
	})

	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if attempts != 1 {
		t.Fatalf("expected exactly 1 attempt on immediate success, got %d", attempts)
	}
}

func TestDo_RespectsContextCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	attempts := 0
	err := Do(ctx, Config{
		MaxRetries:   3,
		InitialDelay: time.Second,
		MaxDelay:     time.Minute,
	}, func(ctx context.Context) error {
		attempts++
		return errors.New("boom")
	})

	if err == nil {
		t.Fatal("expected an error when context is already cancelled")
	}
}
