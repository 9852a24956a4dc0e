package config_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/robocurse/robocurse/config"
	"github.com/robocurse/robocurse/profile"
)

func validProfile(name string) profile.Profile {
	return profile.Profile{
		Name:        name,
		Source:      `C:\data`,
		Destination: `D:\backup`,
		Bounds:      profile.ChunkingBounds{MaxSizeBytes: 1 << 30, MaxFiles: 1000, MaxDepth: 5},
	}
}

func TestValidate_RequiresAtLeastOneProfile(t *testing.T) {
	c := config.Default()

	require.Error(t, c.Validate())
}

func TestValidate_RejectsDuplicateProfileNames(t *testing.T) {
	c := config.Default()
	c.Profiles = []profile.Profile{validProfile("p1"), validProfile("p1")}

	require.Error(t, c.Validate())
}

func TestValidate_RejectsBadConcurrencyValues(t *testing.T) {
	c := config.Default()
	c.Profiles = []profile.Profile{validProfile("p1")}
	c.MaxConcurrentJobs = 0

	require.Error(t, c.Validate())
}

func TestValidate_AcceptsWellFormedConfig(t *testing.T) {
	c := config.Default()
	c.Profiles = []profile.Profile{validProfile("p1"), validProfile("p2")}

	require.NoError(t, c.Validate())
}

func TestFindProfile(t *testing.T) {
	c := config.Default()
	c.Profiles = []profile.Profile{validProfile("nightly"), validProfile("weekly")}

	p, ok := c.FindProfile("weekly")
	require.True(t, ok)
	require.Equal(t, "weekly", p.Name)

	_, ok = c.FindProfile("missing")
	require.False(t, ok)
}
