//go:build windows

package snapshotmgr

import (
	"os"
	"path/filepath"
	"regexp"

	"github.com/mxk/go-vss"
	"github.com/pkg/errors"
)

func init() { // nolint:gochecknoinits
	activeFacility = vssFacility{}
}

type vssFacility struct{}

var driveLetterPath = regexp.MustCompile(`^[A-Za-z]:[\\/]`) // nolint:gochecknoglobals

func (vssFacility) isSupported(path string) bool {
	if !driveLetterPath.MatchString(path) {
		return false
	}

	// a zero-GUID probe distinguishes "facility present, need admin" from
	// "facility altogether unavailable"; any answer other than a hard
	// unsupported-platform error means VSS itself is present.
	_, err := vss.Get("{00000000-0000-0000-0000-000000000000}")

	return !errors.Is(err, os.ErrNotExist)
}

func (vssFacility) create(sourcePath string) (Handle, error) {
	volume := filepath.VolumeName(sourcePath) + `\`

	snap, err := vss.Create(volume)
	if err != nil {
		return Handle{}, err
	}

	return Handle{
		ID:         snap.ID,
		DevicePath: snap.DeviceObject,
		VolumeTag:  volume,
		CreatedAt:  snap.StartTime,
	}, nil
}

func (vssFacility) release(id string) error {
	if err := vss.Remove(id); err != nil && !os.IsNotExist(err) {
		return err
	}

	return nil
}
