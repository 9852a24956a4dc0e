// Package chunker recursively partitions a source tree into a finite,
// covering, non-overlapping list of Chunks bounded by a profile's
// size/file/depth limits.
package chunker

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"time"

	"github.com/robocurse/robocurse/internal/logging"
	"github.com/robocurse/robocurse/profile"
	"github.com/robocurse/robocurse/profiler"
)

// DirectoryProfiler is the subset of *profiler.Profiler the Chunker needs.
// Accepting the interface (rather than the concrete type) lets tests
// substitute a fake profile source instead of shelling out to the copier.
type DirectoryProfiler interface {
	Profile(ctx context.Context, path string, useCache bool, maxAge time.Duration) profiler.DirectoryProfile
}

var log = logging.Module("chunker") // nolint:gochecknoglobals

// Status is a Chunk's mutable lifecycle state.
type Status int

const (
	StatusPending Status = iota
	StatusRunning
	StatusComplete
	StatusCompleteWithWarnings
	StatusFailed
)

func (s Status) String() string {
	switch s {
	case StatusPending:
		return "Pending"
	case StatusRunning:
		return "Running"
	case StatusComplete:
		return "Complete"
	case StatusCompleteWithWarnings:
		return "CompleteWithWarnings"
	case StatusFailed:
		return "Failed"
	default:
		return "Unknown"
	}
}

// IsTerminal reports whether s is one of the terminal states after which a
// Chunk record is immutable.
func (s Status) IsTerminal() bool {
	return s == StatusComplete || s == StatusCompleteWithWarnings || s == StatusFailed
}

// Chunk is the Chunker's output and the Orchestrator's unit of work.
type Chunk struct {
	ID int64

	SourcePath string
	DestPath   string

	EstimatedSize  int64
	EstimatedFiles int64

	FilesOnly bool
	ExtraArgs []string

	Status       Status
	RetryCount   int
	LastExitCode int
	LastError    string
}

// idCounter hands out process-unique, monotonically increasing chunk ids
// that are never reused, even across retries of the same chunk.
var idCounter int64 // nolint:gochecknoglobals

func nextID() int64 {
	return atomic.AddInt64(&idCounter, 1)
}

// filesOnlyArgs is the per-chunk extra argument that limits a files-only
// invocation to a single directory level.
var filesOnlyArgs = []string{"/LEV:1"} // nolint:gochecknoglobals

// Partition recursively splits a source tree into a covering,
// non-overlapping list of Chunks bounded by bounds. It is the sole entry
// point; the recursive helper is unexported. bounds.MaxDepth == 0 is the
// signal EffectiveBounds() produces for ScanModeFlat and is handled as a
// distinct, unconditional one-level split rather than the depth-bounded
// recursion below, since flattening always splits the top level regardless
// of whether the whole tree already fits the size/file bounds.
func Partition(ctx context.Context, prof DirectoryProfiler, sourceRoot, destRoot string, bounds profile.ChunkingBounds) []Chunk {
	var chunks []Chunk

	if bounds.MaxDepth == 0 {
		partitionFlat(ctx, prof, sourceRoot, destRoot, &chunks)
		return chunks
	}

	partition(ctx, prof, sourceRoot, sourceRoot, destRoot, bounds, 0, &chunks)

	return chunks
}

// partitionFlat puts every immediate top-level directory under sourceRoot
// into its own chunk and any files directly under sourceRoot into one
// files-only chunk, without consulting size or file-count bounds.
func partitionFlat(ctx context.Context, prof DirectoryProfiler, sourceRoot, destRoot string, out *[]Chunk) {
	children, hasFiles, err := listChildDirs(sourceRoot)
	if err != nil {
		log(ctx).Warnf("chunker: failed to enumerate %v, emitting one whole-subtree chunk: %v", sourceRoot, err)
		dp := prof.Profile(ctx, sourceRoot, true, 0)
		emitWholeSubtree(sourceRoot, sourceRoot, destRoot, dp, out)

		return
	}

	for _, child := range children {
		dp := prof.Profile(ctx, child, true, 0)
		emitWholeSubtree(child, sourceRoot, destRoot, dp, out)
	}

	if hasFiles {
		emitFilesOnly(sourceRoot, sourceRoot, destRoot, out)
	}

	if len(children) == 0 && !hasFiles {
		dp := prof.Profile(ctx, sourceRoot, true, 0)
		emitWholeSubtree(sourceRoot, sourceRoot, destRoot, dp, out)
	}
}

func partition(ctx context.Context, prof DirectoryProfiler, node, sourceRoot, destRoot string, bounds profile.ChunkingBounds, depth int, out *[]Chunk) {
	dp := prof.Profile(ctx, node, true, 0)

	if dp.TotalSize <= bounds.MaxSizeBytes && dp.FileCount <= bounds.MaxFiles {
		emitWholeSubtree(node, sourceRoot, destRoot, dp, out)
		return
	}

	if depth >= bounds.MaxDepth {
		log(ctx).Warnf("chunker: %v exceeds bounds at max depth %d, emitting one oversized chunk", node, bounds.MaxDepth)
		emitWholeSubtree(node, sourceRoot, destRoot, dp, out)

		return
	}

	children, hasFiles, err := listChildDirs(node)
	if err != nil {
		log(ctx).Warnf("chunker: failed to enumerate %v, emitting one whole-subtree chunk: %v", node, err)
		emitWholeSubtree(node, sourceRoot, destRoot, dp, out)

		return
	}

	if len(children) == 0 {
		emitWholeSubtree(node, sourceRoot, destRoot, dp, out)
		return
	}

	for _, child := range children {
		partition(ctx, prof, child, sourceRoot, destRoot, bounds, depth+1, out)
	}

	if hasFiles {
		emitFilesOnly(node, sourceRoot, destRoot, out)
	}
}

func emitWholeSubtree(node, sourceRoot, destRoot string, dp profiler.DirectoryProfile, out *[]Chunk) {
	*out = append(*out, Chunk{
		ID:             nextID(),
		SourcePath:     node,
		DestPath:       mapDest(node, sourceRoot, destRoot),
		EstimatedSize:  dp.TotalSize,
		EstimatedFiles: dp.FileCount,
		FilesOnly:      false,
		Status:         StatusPending,
	})
}

func emitFilesOnly(node, sourceRoot, destRoot string, out *[]Chunk) {
	*out = append(*out, Chunk{
		ID:         nextID(),
		SourcePath: node,
		DestPath:   mapDest(node, sourceRoot, destRoot),
		FilesOnly:  true,
		ExtraArgs:  append([]string(nil), filesOnlyArgs...),
		Status:     StatusPending,
	})
}

// mapDest maps a source node to its destination path by a case-insensitive
// prefix compare against sourceRoot, falling back to
// destRoot+basename(source) for pathological input.
func mapDest(source, sourceRoot, destRoot string) string {
	if hasPrefixFold(source, sourceRoot) {
		remainder := source[len(sourceRoot):]
		remainder = strings.TrimLeft(remainder, `/\`)

		if remainder == "" {
			return destRoot
		}

		return filepath.Join(destRoot, remainder)
	}

	return filepath.Join(destRoot, filepath.Base(source))
}

func hasPrefixFold(s, prefix string) bool {
	if len(s) < len(prefix) {
		return false
	}

	return strings.EqualFold(s[:len(prefix)], prefix)
}

// listChildDirs enumerates node's immediate children, separating
// subdirectories from files. hasFiles is true when node has at least one
// immediate file entry outside any subdirectory.
func listChildDirs(node string) (children []string, hasFiles bool, err error) {
	entries, err := os.ReadDir(node)
	if err != nil {
		return nil, false, err
	}

	for _, e := range entries {
		if e.IsDir() {
			children = append(children, filepath.Join(node, e.Name()))
			continue
		}

		hasFiles = true
	}

	return children, hasFiles, nil
}
