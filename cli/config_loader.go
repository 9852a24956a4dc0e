package cli

import (
	"os"
	"time"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"

	"github.com/robocurse/robocurse/config"
	"github.com/robocurse/robocurse/profile"
)

// yamlConfig is the on-disk shape LoadConfigFile parses. It is
// deliberately distinct from config.RunConfig: "enabled" and string-typed
// enums belong to the file format, not to the core's statically-typed
// Profile.
type yamlConfig struct {
	MaxConcurrentJobs int    `yaml:"maxConcurrentJobs"`
	ThreadsPerJob     int    `yaml:"threadsPerJob"`
	JobTimeout        string `yaml:"jobTimeout"`
	LogRoot           string `yaml:"logRoot"`

	Profiles []yamlProfile `yaml:"profiles"`
}

type yamlProfile struct {
	Name        string `yaml:"name"`
	Source      string `yaml:"source"`
	Destination string `yaml:"destination"`
	Enabled     *bool  `yaml:"enabled"`

	Snapshot bool   `yaml:"snapshot"`
	ScanMode string `yaml:"scanMode"`
	Mismatch string `yaml:"mismatch"`

	MaxSizeBytes int64 `yaml:"maxSizeBytes"`
	MinSizeBytes int64 `yaml:"minSizeBytes"`
	MaxFiles     int64 `yaml:"maxFiles"`
	MaxDepth     int   `yaml:"maxDepth"`

	NoMirror          bool     `yaml:"noMirror"`
	SkipReparsePoints bool     `yaml:"skipReparsePoints"`
	PerFileRetryCount int      `yaml:"perFileRetryCount"`
	PerFileRetryWait  int      `yaml:"perFileRetryWait"`
	ExcludeFiles      []string `yaml:"excludeFiles"`
	ExcludeDirs       []string `yaml:"excludeDirs"`
	ExtraSwitches     []string `yaml:"extraSwitches"`
}

func (p yamlProfile) enabled() bool {
	return p.Enabled == nil || *p.Enabled
}

func (p yamlProfile) scanMode() profile.ScanMode {
	if p.ScanMode == "flat" {
		return profile.ScanModeFlat
	}

	return profile.ScanModeSmart
}

func (p yamlProfile) mismatch() profile.MismatchSeverity {
	switch p.Mismatch {
	case "error":
		return profile.MismatchError
	case "success":
		return profile.MismatchSuccess
	default:
		return profile.MismatchWarning
	}
}

func (p yamlProfile) toProfile() profile.Profile {
	return profile.Profile{
		Name:              p.Name,
		Source:            p.Source,
		Destination:       p.Destination,
		SnapshotRequested: p.Snapshot,
		ScanMode:          p.scanMode(),
		Bounds: profile.ChunkingBounds{
			MaxSizeBytes: p.MaxSizeBytes,
			MinSizeBytes: p.MinSizeBytes,
			MaxFiles:     p.MaxFiles,
			MaxDepth:     p.MaxDepth,
		},
		Copier: profile.CopierOptions{
			ExtraSwitches:       p.ExtraSwitches,
			ExcludeFilePatterns: p.ExcludeFiles,
			ExcludeDirPatterns:  p.ExcludeDirs,
			NoMirror:            p.NoMirror,
			SkipReparsePoints:   p.SkipReparsePoints,
			PerFileRetryCount:   p.PerFileRetryCount,
			PerFileRetryWait:    p.PerFileRetryWait,
		},
		Mismatch: p.mismatch(),
	}
}

// LoadConfigFile reads and parses the YAML file at path into a validated
// config.RunConfig, skipping any profile whose "enabled" key is explicitly
// false. This loader, not the core, owns the on-disk format.
func LoadConfigFile(path string) (config.RunConfig, error) {
	raw, err := os.ReadFile(path) // nolint:gosec
	if err != nil {
		return config.RunConfig{}, errors.Wrapf(err, "reading config file %q", path)
	}

	var yc yamlConfig
	if err := yaml.Unmarshal(raw, &yc); err != nil {
		return config.RunConfig{}, errors.Wrapf(err, "parsing config file %q", path)
	}

	cfg := config.Default()

	if yc.MaxConcurrentJobs > 0 {
		cfg.MaxConcurrentJobs = yc.MaxConcurrentJobs
	}

	if yc.ThreadsPerJob > 0 {
		cfg.ThreadsPerJob = yc.ThreadsPerJob
	}

	if yc.LogRoot != "" {
		cfg.LogRoot = yc.LogRoot
	}

	if yc.JobTimeout != "" {
		d, err := time.ParseDuration(yc.JobTimeout)
		if err != nil {
			return config.RunConfig{}, errors.Wrapf(err, "parsing jobTimeout %q", yc.JobTimeout)
		}

		cfg.JobTimeout = d
	}

	for _, yp := range yc.Profiles {
		if !yp.enabled() {
			continue
		}

		cfg.Profiles = append(cfg.Profiles, yp.toProfile())
	}

	if err := cfg.Validate(); err != nil {
		return config.RunConfig{}, err
	}

	return cfg, nil
}
