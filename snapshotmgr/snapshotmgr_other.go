//go:build !windows

package snapshotmgr

import "github.com/pkg/errors"

func init() { // nolint:gochecknoinits
	activeFacility = unsupportedFacility{}
}

// unsupportedFacility backs non-Windows builds: the copier's point-in-time
// snapshot contract is Windows VSS only, so any other host lacks the
// facility entirely.
type unsupportedFacility struct{}

func (unsupportedFacility) isSupported(string) bool { return false }

func (unsupportedFacility) create(string) (Handle, error) {
	return Handle{}, errors.New("snapshot: not supported on this platform")
}

func (unsupportedFacility) release(string) error { return nil }
