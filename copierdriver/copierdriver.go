// Package copierdriver launches the external copier for one chunk, streams
// its output to a per-chunk log file, waits for completion, parses the
// log, and classifies the outcome.
package copierdriver

import (
	"bufio"
	"context"
	"os"
	"os/exec"
	"strconv"
	"strings"
	"time"

	"github.com/robocurse/robocurse/chunker"
	"github.com/robocurse/robocurse/exitcode"
	"github.com/robocurse/robocurse/internal/clock"
	"github.com/robocurse/robocurse/internal/logging"
	"github.com/robocurse/robocurse/internal/osexec"
	"github.com/robocurse/robocurse/internal/outcome"
	"github.com/robocurse/robocurse/internal/units"
	"github.com/robocurse/robocurse/profile"
)

var log = logging.Module("copierdriver") // nolint:gochecknoglobals

// CopierBinary names the external mirroring tool executable.
var CopierBinary = "robocopy" // nolint:gochecknoglobals

// Job is the Copier Driver's output while a chunk's copier process is
// active.
type Job struct {
	Chunk   chunker.Chunk
	Cmd     *exec.Cmd
	LogPath string
	Started time.Time
}

// Stats mirrors the summary block the copier prints on completion.
type Stats struct {
	FilesCopied     int64
	FilesSkipped    int64
	FilesFailed     int64
	DirsCopied      int64
	BytesCopied     int64
	CurrentFilePath string
}

// Outcome is the Copier Driver's terminal output for one chunk.
type Outcome struct {
	ExitCode  int
	Severity  exitcode.Severity
	Retryable bool
	Stats     Stats
	Duration  time.Duration
}

// StartJob composes the fixed-order argument vector and launches the
// copier, redirecting its own log via /LOG:<logPath>.
func StartJob(ctx context.Context, c chunker.Chunk, logPath string, threadsPerJob int, opts profile.CopierOptions) (*Job, error) {
	args := buildArgs(c, logPath, threadsPerJob, opts)

	cmd := exec.CommandContext(ctx, CopierBinary, args...)
	cmd.Stderr = nil // the copier's own /LOG redirection captures stdout+stderr content

	osexec.DisableInterruptSignal(cmd)

	if err := cmd.Start(); err != nil {
		return nil, outcome.Wrap(outcome.KindCopierSpawnFailed, err)
	}

	log(ctx).Infof("started chunk %d: %v -> %v", c.ID, c.SourcePath, c.DestPath)

	return &Job{Chunk: c, Cmd: cmd, LogPath: logPath, Started: clock.Now()}, nil
}

// buildArgs assembles the fixed argument ordering. Orchestrator-owned
// switches (threading, retry/wait, log redirection, /TEE /NP /BYTES, the
// copy-mode switch) are dropped from opts.ExtraSwitches here, since
// profiles pass user-supplied extra switches through unfiltered.
func buildArgs(c chunker.Chunk, logPath string, threadsPerJob int, opts profile.CopierOptions) []string {
	args := []string{c.SourcePath, c.DestPath}

	if opts.NoMirror {
		args = append(args, "/E")
	} else {
		args = append(args, "/MIR")
	}

	args = append(args, filterOwnedSwitches(opts.ExtraSwitches)...)

	args = append(args,
		"/MT:"+strconv.Itoa(threadsPerJob),
		"/R:"+strconv.Itoa(opts.PerFileRetryCount),
		"/W:"+strconv.Itoa(opts.PerFileRetryWait),
		"/LOG:"+logPath,
		"/TEE", "/NP", "/BYTES",
	)

	if opts.SkipReparsePoints {
		args = append(args, "/XJD", "/XJF")
	}

	if len(opts.ExcludeFilePatterns) > 0 {
		args = append(args, "/XF")
		args = append(args, opts.ExcludeFilePatterns...)
	}

	if len(opts.ExcludeDirPatterns) > 0 {
		args = append(args, "/XD")
		args = append(args, opts.ExcludeDirPatterns...)
	}

	args = append(args, c.ExtraArgs...)

	return args
}

var ownedSwitchPrefixes = []string{ // nolint:gochecknoglobals
	"/MT:", "/R:", "/W:", "/LOG:", "/TEE", "/NP", "/BYTES", "/MIR", "/E",
}

func filterOwnedSwitches(extra []string) []string {
	out := make([]string, 0, len(extra))

	for _, sw := range extra {
		owned := false

		for _, prefix := range ownedSwitchPrefixes {
			if strings.HasPrefix(sw, prefix) {
				owned = true
				break
			}
		}

		if !owned {
			out = append(out, sw)
		}
	}

	return out
}

// WaitJob blocks until the process exits or timeout elapses. On timeout it
// kills the process and reports timedOut=true.
func WaitJob(ctx context.Context, job *Job, timeout time.Duration) (exited bool, timedOut bool) {
	done := make(chan error, 1)

	go func() { done <- job.Cmd.Wait() }()

	var timer <-chan time.Time
	if timeout > 0 {
		t := time.NewTimer(timeout)
		defer t.Stop()

		timer = t.C
	}

	select {
	case <-done:
		return true, false
	case <-timer:
		if err := osexec.Kill(job.Cmd); err != nil {
			log(ctx).Warnf("failed to kill timed-out job for chunk %d: %v", job.Chunk.ID, err)
		}

		<-done

		return true, true
	case <-ctx.Done():
		_ = osexec.Kill(job.Cmd)
		<-done

		return true, false
	}
}

// CompleteJob parses the log, reads the exit code, classifies it via
// exitcode.Classify, and returns the resulting Outcome.
func CompleteJob(ctx context.Context, job *Job, policy profile.MismatchSeverity, timedOut bool) Outcome {
	stats := ParseLog(ctx, job.LogPath)
	duration := clock.Since(job.Started)

	if timedOut {
		return Outcome{
			ExitCode:  -1,
			Severity:  exitcode.SeverityError,
			Retryable: false,
			Stats:     stats,
			Duration:  duration,
		}
	}

	exitCode := job.Cmd.ProcessState.ExitCode()
	classification := exitcode.Classify(exitCode, policy)

	return Outcome{
		ExitCode:  exitCode,
		Severity:  classification.Severity,
		Retryable: classification.Retryable,
		Stats:     stats,
		Duration:  duration,
	}
}

const summaryColumns = 6

// ParseLog parses the Files/Dirs/Bytes summary rows under the fixed column
// layout, plus the last progress line's
// current file path. It opens the log with shared-read semantics (the
// copier may still hold it open) and tolerates any unrecognized row by
// leaving the corresponding counters at zero.
func ParseLog(ctx context.Context, logPath string) Stats {
	f, err := os.Open(logPath) // nolint:gosec
	if err != nil {
		log(ctx).Warnf("parseLog: cannot open %v: %v", logPath, err)
		return Stats{}
	}
	defer f.Close() // nolint:errcheck

	var stats Stats

	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024) // nolint:mnd

	for scanner.Scan() {
		line := scanner.Text()
		trimmed := strings.TrimSpace(line)

		switch {
		case strings.HasPrefix(trimmed, "Files :"):
			parseSummaryRow(trimmed, &stats.FilesCopied, &stats.FilesFailed)
		case strings.HasPrefix(trimmed, "Dirs :"):
			var skippedFailed int64
			parseSummaryRow(trimmed, &stats.DirsCopied, &skippedFailed)
		case strings.HasPrefix(trimmed, "Bytes :"):
			parseBytesRow(trimmed, &stats.BytesCopied)
		case isProgressLine(trimmed):
			if p := extractProgressPath(trimmed); p != "" {
				stats.CurrentFilePath = p
			}
		}
	}

	return stats
}

// parseSummaryRow parses "Files :      <total> <copied> <skipped> <mismatch> <failed> <extras>"
// extracting the Copied and FAILED columns (columns 2 and 5 of the fixed
// Total/Copied/Skipped/Mismatch/FAILED/Extras layout).
func parseSummaryRow(line string, copied, failed *int64) {
	fields := strings.Fields(line)
	// fields[0]="Files"/"Dirs", fields[1]=":", then up to 6 numeric columns.
	if len(fields) < 2+summaryColumns {
		return
	}

	numeric := fields[2 : 2+summaryColumns]

	if v, err := strconv.ParseInt(numeric[1], 10, 64); err == nil {
		*copied = v
	}

	if v, err := strconv.ParseInt(numeric[4], 10, 64); err == nil {
		*failed = v
	}
}

func parseBytesRow(line string, bytesCopied *int64) {
	fields := strings.Fields(line)
	if len(fields) < 2+summaryColumns {
		return
	}

	numeric := fields[2 : 2+summaryColumns]

	if v, err := units.ParseBinarySizeToken(numeric[1]); err == nil {
		*bytesCopied = v
	}
}

func isProgressLine(line string) bool {
	return strings.Contains(line, "New File") || strings.Contains(line, "Newer") || strings.Contains(line, "*EXTRA File")
}

// extractProgressPath takes the trailing whitespace-delimited field of a
// progress line as the path; the size/unit token in the middle is not
// needed by the driver (the summary block's Bytes row already aggregates
// total bytes copied).
func extractProgressPath(line string) string {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return ""
	}

	return fields[len(fields)-1]
}
