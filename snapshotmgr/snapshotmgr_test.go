package snapshotmgr_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/robocurse/robocurse/snapshotmgr"
)

func TestTranslatePath_StripsVolumeDesignator(t *testing.T) {
	handle := snapshotmgr.Handle{DevicePath: `\\?\GLOBALROOT\Device\HarddiskVolumeShadowCopy1`}

	got := snapshotmgr.TranslatePath(`C:\data\sub`, handle)

	require.Contains(t, got, `data\sub`)
	require.Contains(t, got, handle.DevicePath)
}

func TestRelease_EmptyIDIsNoop(t *testing.T) {
	require.NoError(t, snapshotmgr.Release(context.Background(), ""))
}

func TestWithSnapshot_FallsBackWhenUnsupported(t *testing.T) {
	var sawSource string

	err := snapshotmgr.WithSnapshot(context.Background(), "/data/whatever", func(effectiveSource string) error {
		sawSource = effectiveSource
		return nil
	})

	require.NoError(t, err)
	require.Equal(t, "/data/whatever", sawSource)
}

func TestIsSupported_FalseOnThisBuild(t *testing.T) {
	// on non-Windows builds the facility is always unsupported.
	require.False(t, snapshotmgr.IsSupported(`C:\data`))
}
