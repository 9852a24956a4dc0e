// Package snapshotmgr implements scoped acquisition of a point-in-time
// volume snapshot, with guaranteed release on every exit path. The
// OS-specific facility lives behind a build tag; see
// snapshotmgr_windows.go and snapshotmgr_other.go.
package snapshotmgr

import (
	"context"
	"strings"
	"time"

	"github.com/pkg/errors"

	"github.com/robocurse/robocurse/internal/logging"
	"github.com/robocurse/robocurse/internal/outcome"
	"github.com/robocurse/robocurse/internal/retry"
)

var log = logging.Module("snapshotmgr") // nolint:gochecknoglobals

// ErrSnapshotUnavailable is returned by Create when the host rejects the
// snapshot request.
var ErrSnapshotUnavailable = errors.New("snapshot: unavailable on this host/path")

// Handle is the Snapshot Manager's output.
type Handle struct {
	ID         string
	DevicePath string
	VolumeTag  string
	CreatedAt  time.Time
}

// facility abstracts the host OS snapshot mechanism so the cross-platform
// logic here stays build-tag free; only the three methods below vary.
type facility interface {
	isSupported(path string) bool
	create(sourcePath string) (Handle, error)
	release(id string) error
}

// activeFacility is swapped per build via an init() in the OS-specific
// file for this package.
var activeFacility facility // nolint:gochecknoglobals

// IsSupported reports whether path is a local path on a host whose
// snapshot facility is available.
func IsSupported(path string) bool {
	return activeFacility.isSupported(path)
}

// Create asks the host OS snapshot facility for a client-accessible
// snapshot of the volume containing sourcePath. The underlying facility
// call is retried with backoff since the platform
// snapshot service (e.g. VSS) commonly rejects a request transiently
// while another writer holds it.
func Create(ctx context.Context, sourcePath string) (Handle, error) {
	if !activeFacility.isSupported(sourcePath) {
		return Handle{}, outcome.Wrap(outcome.KindSnapshotUnavailable, ErrSnapshotUnavailable)
	}

	h, err := retry.WithExponentialBackoff(ctx, "create volume snapshot for "+sourcePath,
		func() (Handle, error) { return activeFacility.create(sourcePath) },
		func(error) bool { return true })
	if err != nil {
		log(ctx).Warnf("snapshot create failed for %v: %v", sourcePath, err)
		return Handle{}, outcome.Wrap(outcome.KindSnapshotUnavailable, ErrSnapshotUnavailable)
	}

	return h, nil
}

// Release performs a best-effort deletion of the snapshot identified by
// id. A snapshot that no longer exists is treated as already released;
// any other release failure is logged, and Release always returns nil.
func Release(ctx context.Context, id string) error {
	if id == "" {
		return nil
	}

	if err := activeFacility.release(id); err != nil {
		log(ctx).Warnf("snapshot release failed for %v (treating as already reclaimed): %v", id, err)
	}

	return nil
}

// TranslatePath strips the volume designator (up to and including the
// first separator) from originalPath and appends the remainder to the
// snapshot's device-level prefix.
func TranslatePath(originalPath string, handle Handle) string {
	remainder := stripVolumeDesignator(originalPath)
	prefix := strings.TrimRight(handle.DevicePath, `\`)

	return prefix + `\` + remainder
}

func stripVolumeDesignator(path string) string {
	idx := strings.IndexAny(path, `/\`)
	if idx < 0 {
		return path
	}

	return path[idx+1:]
}

// WithSnapshot is the convenience composition: create, run body with the
// translated path, release regardless of
// whether body succeeds. If Create fails, body runs against sourcePath
// itself and nothing is released. Release errors never mask body errors (Release
// itself never returns an error, by contract above, but is still called
// from a deferred guard to keep the "guaranteed release on every exit
// path" invariant visible at the call site).
func WithSnapshot(ctx context.Context, sourcePath string, body func(effectiveSource string) error) error {
	handle, err := Create(ctx, sourcePath)
	if err != nil {
		return body(sourcePath)
	}

	defer func() {
		_ = Release(ctx, handle.ID)
	}()

	return body(TranslatePath(sourcePath, handle))
}
