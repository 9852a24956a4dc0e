// Package profiler enumerates a directory via the copier's list-only mode
// and returns aggregate size/file/dir counts, caching results by
// canonical path.
package profiler

import (
	"bufio"
	"context"
	"os/exec"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/robocurse/robocurse/internal/clock"
	"github.com/robocurse/robocurse/internal/logging"
)

var log = logging.Module("profiler") // nolint:gochecknoglobals

// DirectoryProfile is the Profiler's output.
type DirectoryProfile struct {
	CanonicalPath string
	TotalSize     int64
	FileCount     int64
	DirCount      int64
	AverageSize   float64
	LastScanned   time.Time
}

func zeroProfile(canonicalPath string) DirectoryProfile {
	return DirectoryProfile{CanonicalPath: canonicalPath, LastScanned: clock.Now()}
}

// CopierBinary names the external mirroring tool executable; a package
// var (rather than a constant) so tests can point it at a fake.
var CopierBinary = "robocopy" // nolint:gochecknoglobals

type cacheEntry struct {
	profile DirectoryProfile
	expires time.Time
}

// Profiler caches DirectoryProfiles by canonical path. The zero value is
// not usable; construct with New.
type Profiler struct {
	mu      sync.RWMutex
	entries map[string]cacheEntry

	defaultMaxAge time.Duration
}

// New constructs a Profiler whose cache entries expire after defaultMaxAge
// (default: 24h) unless a call overrides it.
func New(defaultMaxAge time.Duration) *Profiler {
	if defaultMaxAge <= 0 {
		defaultMaxAge = 24 * time.Hour // nolint:mnd
	}

	return &Profiler{
		entries:       make(map[string]cacheEntry),
		defaultMaxAge: defaultMaxAge,
	}
}

// canonicalKey normalizes path to the cache key: lowercased (the host
// filesystem's case sensitivity is not the core's concern to detect; we
// lowercase unconditionally, which is safe on case-insensitive hosts and
// merely coarser-than-necessary on case-sensitive ones) with trailing
// separators stripped.
func canonicalKey(path string) string {
	p := filepath.Clean(path)
	p = strings.TrimRight(p, `/\`)

	return strings.ToLower(p)
}

// Profile returns the directory profile for path, from cache when useCache
// is set and a fresh-enough entry exists, otherwise by scanning. A
// subprocess failure is caught, logged, and reported as a zero-valued
// profile rather than propagated — a Profiler failure must never escape
// this function. Listing lines that do not parse are skipped.
func (p *Profiler) Profile(ctx context.Context, path string, useCache bool, maxAge time.Duration) DirectoryProfile {
	key := canonicalKey(path)

	if useCache {
		if dp, ok := p.lookup(key); ok {
			return dp
		}
	}

	dp, err := p.scan(ctx, path)
	if err != nil {
		log(ctx).Warnf("profiling %v failed, treating as unmeasurable: %v", path, err)
		dp = zeroProfile(key)
	}

	p.store(key, dp, maxAge)

	return dp
}

func (p *Profiler) lookup(key string) (DirectoryProfile, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	e, ok := p.entries[key]
	if !ok {
		return DirectoryProfile{}, false
	}

	if clock.Now().After(e.expires) {
		return DirectoryProfile{}, false
	}

	return e.profile, true
}

func (p *Profiler) store(key string, dp DirectoryProfile, maxAge time.Duration) {
	if maxAge <= 0 {
		maxAge = p.defaultMaxAge
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	p.entries[key] = cacheEntry{profile: dp, expires: clock.Now().Add(maxAge)}
}

// Invalidate evicts a cached entry, e.g. after a snapshot/release changes
// what "the same path" measures.
func (p *Profiler) Invalidate(path string) {
	p.mu.Lock()
	defer p.mu.Unlock()

	delete(p.entries, canonicalKey(path))
}

func (p *Profiler) scan(ctx context.Context, path string) (DirectoryProfile, error) {
	args := listOnlyArgs(path)

	cmd := exec.CommandContext(ctx, CopierBinary, args...)

	out, err := cmd.Output()
	// the copier's list-only mode commonly exits non-zero purely because
	// of its bit-flag convention (e.g. bit0 "files listed"); only a total
	// inability to run (binary missing, context canceled) is fatal here.
	if err != nil {
		if _, isExit := err.(*exec.ExitError); !isExit { // nolint:errorlint
			return DirectoryProfile{}, err
		}
	}

	return parseListing(canonicalKey(path), out), nil
}

// listOnlyArgs composes the list-only invocation: byte-level totals, no
// header/summary formatting, zero retries/waits to avoid hangs on an
// enumeration failure.
func listOnlyArgs(path string) []string {
	return []string{
		path, discardDest(), "/L", "/S", "/NJH", "/NJS", "/BYTES", "/R:0", "/W:0",
	}
}

// discardDest gives the list-only invocation a syntactically valid
// destination argument that is never written to (robocopy /L never
// touches it); using a per-OS null path keeps this portable.
func discardDest() string {
	if runtime.GOOS == "windows" {
		return `NUL`
	}

	return "/dev/null"
}

// parseListing parses the listing line by line: lines matching
// "<leading spaces><bytes><whitespace><path>" are candidate
// records; a trailing path separator marks a directory (counted, not
// sized); anything else is a file contributing to size and file count.
func parseListing(canonicalPath string, out []byte) DirectoryProfile {
	dp := DirectoryProfile{CanonicalPath: canonicalPath}

	scanner := bufio.NewScanner(strings.NewReader(string(out)))
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024) // nolint:mnd

	for scanner.Scan() {
		line := scanner.Text()

		trimmed := strings.TrimLeft(line, " \t")
		if trimmed == "" {
			continue
		}

		sep := strings.IndexAny(trimmed, " \t")
		if sep < 0 {
			continue
		}

		size, err := strconv.ParseInt(trimmed[:sep], 10, 64)
		if err != nil {
			continue
		}

		rest := strings.TrimSpace(trimmed[sep+1:])
		if rest == "" {
			continue
		}

		if strings.HasSuffix(rest, "/") || strings.HasSuffix(rest, `\`) {
			dp.DirCount++
			continue
		}

		dp.FileCount++
		dp.TotalSize += size
	}

	if dp.FileCount > 0 {
		dp.AverageSize = float64(dp.TotalSize) / float64(dp.FileCount)
	}

	dp.LastScanned = clock.Now()

	return dp
}
