// Package eventsink emits two parallel, append-only, line-oriented
// streams for each run — a human-readable
// operational log, written by the contextual logger wired up in
// cli/wiring.go, and a structured JSON-lines audit log written here
// directly — plus a per-chunk log directory. All audit writes are
// best-effort: a failure to write must never abort orchestration.
package eventsink

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/robocurse/robocurse/internal/atomicfile"
	"github.com/robocurse/robocurse/internal/clock"
	"github.com/robocurse/robocurse/internal/logging"
)

var log = logging.Module("eventsink") // nolint:gochecknoglobals

// EventType enumerates the structured audit record types.
type EventType string

const (
	EventSessionStart    EventType = "SessionStart"
	EventSessionEnd      EventType = "SessionEnd"
	EventProfileStart    EventType = "ProfileStart"
	EventProfileComplete EventType = "ProfileComplete"
	EventChunkStart      EventType = "ChunkStart"
	EventChunkComplete   EventType = "ChunkComplete"
	EventChunkError      EventType = "ChunkError"
)

// AuditRecord is one line of the audit stream.
type AuditRecord struct {
	Timestamp time.Time      `json:"timestamp"`
	EventType EventType      `json:"eventType"`
	RunID     string         `json:"runId"`
	Host      string         `json:"host"`
	User      string         `json:"user"`
	Data      map[string]any `json:"data,omitempty"`
}

// Sink owns one run's on-disk log layout: the dated directory, the
// session-log path (opened by the contextual logger, not by Sink itself),
// the audit-jsonl file, and the Jobs/ subdirectory for per-chunk logs.
type Sink struct {
	mu sync.Mutex

	runID string
	host  string
	user  string

	dir            string
	jobsDir        string
	sessionLogPath string
	auditLog       *os.File
}

// New creates (or reuses) the dated directory under logRoot, computes the
// session-log path, and opens the audit log file. Failure to create the
// directory structure or open the audit log is the error this constructor
// surfaces to the caller; every subsequent audit write is best-effort.
func New(logRoot, runID, host, user string, now time.Time) (*Sink, error) {
	dateDir := filepath.Join(logRoot, now.Format("2006-01-02"))
	jobsDir := filepath.Join(dateDir, "Jobs")

	if err := os.MkdirAll(jobsDir, 0o755); err != nil {
		return nil, fmt.Errorf("eventsink: creating log directory: %w", err)
	}

	hhmmss := now.Format("150405")
	ms := now.Nanosecond() / int(time.Millisecond)

	opPath := atomicfile.MaybePrefixLongFilenameOnWindows(filepath.Join(dateDir, fmt.Sprintf("Session_%s_%03d.log", hhmmss, ms)))
	auditPath := atomicfile.MaybePrefixLongFilenameOnWindows(filepath.Join(dateDir, fmt.Sprintf("Audit_%s_%03d.jsonl", hhmmss, ms)))

	// Bootstrap both files into existence with an atomic rename-into-place
	// write, so neither ever shows up as a partially-created file to a
	// concurrent reader of the log directory. The session log is then left
	// for the contextual logger to open its own append handle on; the
	// audit log's append handle is opened below for this Sink's own use.
	if err := atomicfile.WriteFile(opPath, nil); err != nil {
		return nil, fmt.Errorf("eventsink: creating session log: %w", err)
	}

	if err := atomicfile.WriteFile(auditPath, nil); err != nil {
		return nil, fmt.Errorf("eventsink: creating audit log: %w", err)
	}

	auditLog, err := os.OpenFile(auditPath, os.O_WRONLY|os.O_APPEND, 0o644) // nolint:gosec
	if err != nil {
		return nil, fmt.Errorf("eventsink: opening audit log: %w", err)
	}

	return &Sink{
		runID:          runID,
		host:           host,
		user:           user,
		dir:            dateDir,
		jobsDir:        jobsDir,
		sessionLogPath: opPath,
		auditLog:       auditLog,
	}, nil
}

// SessionLogPath returns the path the contextual logger should write the
// human-readable operational log to: "Session_<HHMMSS>_<ms>.log" under the
// run's dated directory.
func (s *Sink) SessionLogPath() string {
	return s.sessionLogPath
}

// ChunkLogPath returns the per-chunk streaming-log path for chunkID:
// "Jobs/Chunk_<NNN>.log" zero-padded to 3 digits.
func (s *Sink) ChunkLogPath(chunkID int64) string {
	name := fmt.Sprintf("Chunk_%03d.log", chunkID)
	return atomicfile.MaybePrefixLongFilenameOnWindows(filepath.Join(s.jobsDir, name))
}

// Audit appends a structured audit record as one JSON line. Write
// failures are swallowed; a failing audit sink must never abort a run.
func (s *Sink) Audit(ctx context.Context, eventType EventType, data map[string]any) {
	rec := AuditRecord{
		Timestamp: clock.Now().UTC(),
		EventType: eventType,
		RunID:     s.runID,
		Host:      s.host,
		User:      s.user,
		Data:      data,
	}

	encoded, err := json.Marshal(rec)
	if err != nil {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := s.auditLog.Write(append(encoded, '\n')); err != nil {
		log(ctx).Debugf("eventsink: audit log write failed: %v", err)
	}
}

// Close closes the underlying audit log file. Errors are swallowed;
// closing a log sink is itself best-effort.
func (s *Sink) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()

	_ = s.auditLog.Close()
}
