// Package clock provides an injectable time source so tests can control
// timestamps without sleeping for real durations.
package clock

import (
	"context"
	"time"
)

// nowFunc is swapped out by tests that need a frozen or synthetic clock.
var nowFunc = time.Now // nolint:gochecknoglobals

// Now returns the current time, or a frozen time in tests that override it.
func Now() time.Time {
	return nowFunc()
}

// Since returns time elapsed since t, as measured by Now.
func Since(t time.Time) time.Duration {
	return Now().Sub(t)
}

// Until returns the duration until t, as measured by Now.
func Until(t time.Time) time.Duration {
	return t.Sub(Now())
}

// SleepInterruptibly sleeps for d or until ctx is canceled, whichever comes
// first. Returns true if the full duration elapsed, false if ctx ended it
// early.
func SleepInterruptibly(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return true
	}

	t := time.NewTimer(d)
	defer t.Stop()

	select {
	case <-t.C:
		return true
	case <-ctx.Done():
		return false
	}
}
