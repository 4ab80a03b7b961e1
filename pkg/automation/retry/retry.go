// Package retry wraps github.com/sethvargo/go-retry behind the narrow
// exponential-backoff policy spec.md §4.8's handler skeleton and retry
// wrapper sections describe.
package retry

import (
	"context"
	"errors"
	"time"

	goretry "github.com/sethvargo/go-retry"
)

// Config is the (maxRetries, initialDelay, maxDelay) triple spec.md §4.8's
// retry wrapper takes. The backoff multiplier is fixed at 2 — go-retry's
// exponential backoff always doubles — which matches spec.md's default
// backoffMultiplier exactly, so this is never a limitation in practice.
type Config struct {
	MaxRetries   uint64
	InitialDelay time.Duration
	MaxDelay     time.Duration
}

// DefaultConfig is spec.md §4.8's handler-skeleton retry policy: initial
// 1s, multiplier 2, cap 60s, max 3 retries.
var DefaultConfig = Config{MaxRetries: 3, InitialDelay: time.Second, MaxDelay: 60 * time.Second}

// Do runs op, retrying on any error it returns. "Distinguishing transient
// vs terminal errors is the caller's concern (default: retry all)"
// (spec.md §4.8's retry wrapper), so every error op returns is treated as
// retryable; after cfg.MaxRetries retries (cfg.MaxRetries+1 attempts in
// all) the last error is rethrown.
func Do(ctx context.Context, cfg Config, op func(ctx context.Context) error) error {
	backoff, err := goretry.NewExponential(cfg.InitialDelay)
	if err != nil {
		return err
	}
	backoff = goretry.WithCappedDuration(cfg.MaxDelay, backoff)
	backoff = goretry.WithMaxRetries(cfg.MaxRetries, backoff)

	retryErr := goretry.Do(ctx, backoff, func(ctx context.Context) error {
		if opErr := op(ctx); opErr != nil {
			return goretry.RetryableError(opErr)
		}
		return nil
	})
	if retryErr == nil {
		return nil
	}
	// Unwrap go-retry's RetryableError wrapper so callers can still
	// type-assert the original error (e.g. *apierr.CodedError).
	if unwrapped := errors.Unwrap(retryErr); unwrapped != nil {
		return unwrapped
	}
	return retryErr
}
