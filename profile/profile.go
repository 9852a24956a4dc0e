// Package profile defines the user-facing, statically-typed description of
// one source->destination replication task. Profiles are produced by an
// external configuration loader and handed to the Orchestrator fully
// populated and already validated once by Validate — the core never
// inspects a raw/dynamic configuration shape.
package profile

import "github.com/pkg/errors"

// ScanMode selects how aggressively the Chunker partitions a source tree.
type ScanMode int

const (
	// ScanModeSmart partitions using the profile's MaxDepth as given.
	ScanModeSmart ScanMode = iota
	// ScanModeFlat forces MaxDepth=0: each immediate top-level directory
	// becomes one chunk, and root-level files become one files-only chunk.
	ScanModeFlat
)

func (m ScanMode) String() string {
	if m == ScanModeFlat {
		return "flat"
	}

	return "smart"
}

// MismatchSeverity controls how the Exit-code Interpreter treats the
// copier's "mismatches detected" bit (bit 2).
type MismatchSeverity int

const (
	// MismatchWarning leaves bit 2 as a non-retryable Warning (the default,
	// and the only value the source material demonstrably exercises).
	MismatchWarning MismatchSeverity = iota
	// MismatchError promotes bit 2 to a retryable Error.
	MismatchError
	// MismatchSuccess demotes bit 2 to a non-retryable Success.
	MismatchSuccess
)

// ChunkingBounds bounds how deep and how big the Chunker may let a single
// chunk grow before it must look for a split.
type ChunkingBounds struct {
	MaxSizeBytes int64
	MaxFiles     int64
	MaxDepth     int
	MinSizeBytes int64
}

// CopierOptions configures the argument vector the Copier Driver composes
// for every chunk belonging to this profile.
type CopierOptions struct {
	// ExtraSwitches are profile-supplied extra copier switches, in order.
	// The driver filters out any that collide with orchestrator-owned
	// switches (threading, retry/wait, log redirection, /TEE /NP /BYTES,
	// and the copy-mode switch) before composing the final vector.
	ExtraSwitches []string

	ExcludeFilePatterns []string
	ExcludeDirPatterns  []string

	// NoMirror requests /E (copy, no deletion) instead of /MIR (mirror
	// with deletion).
	NoMirror bool

	SkipReparsePoints bool

	PerFileRetryCount int
	PerFileRetryWait  int // seconds
	InterPacketGapMS  int
}

// Profile is the immutable, validated input to one replication run.
type Profile struct {
	Name        string
	Source      string
	Destination string

	SnapshotRequested bool
	ScanMode          ScanMode

	Bounds  ChunkingBounds
	Copier  CopierOptions
	Mismatch MismatchSeverity
}

const (
	minMaxDepth = 1
	maxMaxDepth = 20
	maxMaxFiles = 10_000_000
)

// Validate checks the structural invariants every Profile must hold. It
// is intentionally the only validation the core performs; full
// configuration-file validation belongs to the external loader.
func (p Profile) Validate() error {
	if p.Name == "" {
		return errors.New("profile: name must not be empty")
	}

	if p.Source == "" {
		return errors.New("profile: source must not be empty")
	}

	if p.Destination == "" {
		return errors.New("profile: destination must not be empty")
	}

	if p.Bounds.MaxSizeBytes <= p.Bounds.MinSizeBytes {
		return errors.Errorf("profile %q: maxSizeBytes (%d) must be > minSizeBytes (%d)", p.Name, p.Bounds.MaxSizeBytes, p.Bounds.MinSizeBytes)
	}

	if p.Bounds.MaxDepth < minMaxDepth || p.Bounds.MaxDepth > maxMaxDepth {
		return errors.Errorf("profile %q: maxDepth (%d) must be in [%d, %d]", p.Name, p.Bounds.MaxDepth, minMaxDepth, maxMaxDepth)
	}

	if p.Bounds.MaxFiles < 1 || p.Bounds.MaxFiles > maxMaxFiles {
		return errors.Errorf("profile %q: maxFiles (%d) must be in [1, %d]", p.Name, p.Bounds.MaxFiles, maxMaxFiles)
	}

	return nil
}

// EffectiveBounds returns the bounds to use for chunking, applying the
// Flat scan mode's MaxDepth=0 override.
func (p Profile) EffectiveBounds() ChunkingBounds {
	b := p.Bounds

	if p.ScanMode == ScanModeFlat {
		b.MaxDepth = 0
	}

	return b
}
