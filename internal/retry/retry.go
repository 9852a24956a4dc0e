// Package retry provides a generic exponential-backoff helper for
// operations that fail transiently — used for best-effort external calls
// (snapshot creation) where failure is not yet a chunk-level outcome. The Orchestrator's own
// chunk-retry policy (bounded at 3 attempts, driven by the Exit-code
// Interpreter's retryable verdict) is a distinct, coarser-grained
// mechanism and does not use this package.
package retry

import (
	"context"
	"time"

	"github.com/pkg/errors"

	"github.com/robocurse/robocurse/internal/logging"
)

var log = logging.Module("retry") // nolint:gochecknoglobals

// nolint:gochecknoglobals
var (
	retryInitialSleepAmount = 100 * time.Millisecond
	retryMaxSleepAmount     = 10 * time.Second
	maxAttempts             = 10
)

// IsRetriableFunc reports whether an error is transient and worth retrying.
type IsRetriableFunc func(err error) bool

// WithExponentialBackoff calls f until it succeeds, ctx is canceled, f
// returns a non-retriable error, or maxAttempts is reached, doubling the
// sleep between attempts starting at retryInitialSleepAmount and capping at
// retryMaxSleepAmount.
func WithExponentialBackoff[T any](ctx context.Context, desc string, f func() (T, error), isRetriable IsRetriableFunc) (T, error) {
	var (
		zero  T
		sleep = retryInitialSleepAmount
	)

	for attempt := 1; attempt <= maxAttempts; attempt++ {
		v, err := f()
		if err == nil {
			return v, nil
		}

		if !isRetriable(err) {
			return zero, err
		}

		if attempt == maxAttempts {
			return zero, errors.Errorf("unable to complete %v despite %v retries", desc, maxAttempts)
		}

		log(ctx).Debugf("retrying %v after error: %v (attempt %v/%v)", desc, err, attempt, maxAttempts)

		select {
		case <-ctx.Done():
			return zero, ctx.Err()
		case <-time.After(sleep):
		}

		sleep *= 2 // nolint:mnd
		if sleep > retryMaxSleepAmount {
			sleep = retryMaxSleepAmount
		}
	}

	return zero, errors.Errorf("unable to complete %v despite %v retries", desc, maxAttempts)
}

// WithExponentialBackoffNoValue is WithExponentialBackoff for operations
// with no return value.
func WithExponentialBackoffNoValue(ctx context.Context, desc string, f func() error, isRetriable IsRetriableFunc) error {
	_, err := WithExponentialBackoff(ctx, desc, func() (struct{}, error) {
		return struct{}{}, f()
	}, isRetriable)

	return err
}
