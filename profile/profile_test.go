package profile_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/robocurse/robocurse/profile"
)

func validProfile() profile.Profile {
	return profile.Profile{
		Name:        "docs",
		Source:      `C:\data`,
		Destination: `D:\backup`,
		Bounds: profile.ChunkingBounds{
			MaxSizeBytes: 1 << 30,
			MinSizeBytes: 0,
			MaxFiles:     10000,
			MaxDepth:     5,
		},
	}
}

func TestValidate_OK(t *testing.T) {
	require.NoError(t, validProfile().Validate())
}

func TestValidate_MissingFields(t *testing.T) {
	p := validProfile()
	p.Name = ""
	require.Error(t, p.Validate())

	p = validProfile()
	p.Source = ""
	require.Error(t, p.Validate())

	p = validProfile()
	p.Destination = ""
	require.Error(t, p.Validate())
}

func TestValidate_SizeBounds(t *testing.T) {
	p := validProfile()
	p.Bounds.MaxSizeBytes = 100
	p.Bounds.MinSizeBytes = 100
	require.Error(t, p.Validate())

	p.Bounds.MinSizeBytes = 99
	require.NoError(t, p.Validate())
}

func TestValidate_DepthBounds(t *testing.T) {
	p := validProfile()
	p.Bounds.MaxDepth = 0
	require.Error(t, p.Validate())

	p.Bounds.MaxDepth = 21
	require.Error(t, p.Validate())

	p.Bounds.MaxDepth = 20
	require.NoError(t, p.Validate())
}

func TestValidate_FileBounds(t *testing.T) {
	p := validProfile()
	p.Bounds.MaxFiles = 0
	require.Error(t, p.Validate())

	p.Bounds.MaxFiles = 10_000_001
	require.Error(t, p.Validate())
}

func TestEffectiveBounds_FlatForcesZeroDepth(t *testing.T) {
	p := validProfile()
	p.ScanMode = profile.ScanModeFlat
	p.Bounds.MaxDepth = 10

	require.Equal(t, 0, p.EffectiveBounds().MaxDepth)
}

func TestEffectiveBounds_SmartKeepsDepth(t *testing.T) {
	p := validProfile()
	p.ScanMode = profile.ScanModeSmart
	p.Bounds.MaxDepth = 7

	require.Equal(t, 7, p.EffectiveBounds().MaxDepth)
}
