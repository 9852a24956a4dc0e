// Package config defines RunConfig, the fully-populated, statically-typed
// shape the Orchestrator is handed at process start. Parsing an on-disk
// file into a RunConfig is deliberately kept outside the core; that
// collaborator lives in the cli package (cli/config_loader.go) so the core never sees a raw,
// dynamic configuration shape (see profile.Profile's own doc comment).
package config

import (
	"time"

	"github.com/pkg/errors"

	"github.com/robocurse/robocurse/profile"
)

// RunConfig is the fully-resolved run surface: an ordered list of
// Profiles plus the two global concurrency values and the operational-log
// root path. JobTimeout is a single run-wide global rather than a
// per-profile value, since every job shares the same deadline policy.
type RunConfig struct {
	Profiles []profile.Profile

	MaxConcurrentJobs int
	ThreadsPerJob     int
	JobTimeout        time.Duration

	LogRoot string
}

const (
	defaultMaxConcurrentJobs = 4
	defaultThreadsPerJob     = 8
	defaultJobTimeout        = 2 * time.Hour
)

// Default returns a RunConfig with sane defaults for the two global
// concurrency values and the job timeout, and no profiles.
func Default() RunConfig {
	return RunConfig{
		MaxConcurrentJobs: defaultMaxConcurrentJobs,
		ThreadsPerJob:     defaultThreadsPerJob,
		JobTimeout:        defaultJobTimeout,
		LogRoot:           "logs",
	}
}

// Validate checks the global values and validates every profile in turn.
// This is the one place the core inspects configuration-level concerns;
// per-profile business-rule validation is still profile.Profile.Validate.
func (c RunConfig) Validate() error {
	if len(c.Profiles) == 0 {
		return errors.New("config: at least one profile is required")
	}

	if c.MaxConcurrentJobs < 1 {
		return errors.Errorf("config: maxConcurrentJobs (%d) must be >= 1", c.MaxConcurrentJobs)
	}

	if c.ThreadsPerJob < 1 {
		return errors.Errorf("config: threadsPerJob (%d) must be >= 1", c.ThreadsPerJob)
	}

	if c.LogRoot == "" {
		return errors.New("config: logRoot must not be empty")
	}

	seen := make(map[string]bool, len(c.Profiles))

	for _, p := range c.Profiles {
		if err := p.Validate(); err != nil {
			return errors.Wrap(err, "config")
		}

		if seen[p.Name] {
			return errors.Errorf("config: duplicate profile name %q", p.Name)
		}

		seen[p.Name] = true
	}

	return nil
}

// FindProfile returns the named profile, for the CLI's "run a single named
// profile" surface.
func (c RunConfig) FindProfile(name string) (profile.Profile, bool) {
	for _, p := range c.Profiles {
		if p.Name == name {
			return p, true
		}
	}

	return profile.Profile{}, false
}
