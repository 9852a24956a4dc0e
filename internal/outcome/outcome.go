// Package outcome defines the uniform internal result shape used at every
// boundary between robocurse's core components, in place of the mixed
// throw/return style the Design Notes call out in the source material.
// Internal calls that fail in a way callers branch on return a Kind-tagged
// error; no layer recovers panics.
package outcome

import (
	"errors"
	"fmt"
)

// Kind classifies why an internal operation did not produce a usable
// result, independent of the free-text error message. Callers branch on
// Kind rather than string-matching error text.
type Kind int

const (
	// KindNone is what KindOf reports for a nil error or for an error that
	// carries no Kind.
	KindNone Kind = iota
	// KindProfilerFailed marks a Profiler subprocess or parse failure;
	// callers receive a zero-valued profile rather than propagating this.
	KindProfilerFailed
	// KindChunkerAbsurd marks a Chunker fallback (pathological input);
	// the caller still receives a usable (if degenerate) chunk list.
	KindChunkerAbsurd
	// KindCopierSpawnFailed marks a failure to start the copier process.
	KindCopierSpawnFailed
	// KindCopierExitedFatal marks a copier exit with the fatal-error bit set.
	KindCopierExitedFatal
	// KindCopierExitedError marks a copier exit with the some-files-failed bit set.
	KindCopierExitedError
	// KindCopierTimedOut marks a job killed for exceeding its timeout.
	KindCopierTimedOut
	// KindSnapshotUnavailable marks a failed snapshot creation attempt.
	KindSnapshotUnavailable
	// KindSnapshotReleaseFailed marks a failed (best-effort) snapshot release.
	KindSnapshotReleaseFailed
	// KindEventSinkWriteFailed marks a failed (best-effort, swallowed) event write.
	KindEventSinkWriteFailed
)

func (k Kind) String() string {
	switch k {
	case KindNone:
		return "none"
	case KindProfilerFailed:
		return "profiler-failed"
	case KindChunkerAbsurd:
		return "chunker-absurd"
	case KindCopierSpawnFailed:
		return "copier-spawn-failed"
	case KindCopierExitedFatal:
		return "copier-exited-fatal"
	case KindCopierExitedError:
		return "copier-exited-error"
	case KindCopierTimedOut:
		return "copier-timed-out"
	case KindSnapshotUnavailable:
		return "snapshot-unavailable"
	case KindSnapshotReleaseFailed:
		return "snapshot-release-failed"
	case KindEventSinkWriteFailed:
		return "event-sink-write-failed"
	default:
		return "unknown"
	}
}

// Error wraps an underlying error with a Kind, so callers can branch on
// Kind without parsing error strings, while %v / Unwrap still surface the
// original cause.
type Error struct {
	Kind  Kind
	Cause error
}

func (e *Error) Error() string {
	if e.Cause == nil {
		return e.Kind.String()
	}

	return fmt.Sprintf("%s: %v", e.Kind, e.Cause)
}

func (e *Error) Unwrap() error {
	return e.Cause
}

// Wrap builds an *Error tagging cause with kind. Returns nil if cause is nil.
func Wrap(kind Kind, cause error) error {
	if cause == nil {
		return nil
	}

	return &Error{Kind: kind, Cause: cause}
}

// KindOf extracts the Kind from err if it (or something it wraps) is an
// *Error; returns KindNone otherwise.
func KindOf(err error) Kind {
	var oe *Error
	if errors.As(err, &oe) {
		return oe.Kind
	}

	return KindNone
}
