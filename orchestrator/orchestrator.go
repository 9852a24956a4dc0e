// Package orchestrator implements the single control loop that owns a
// run's replication state machine — per-profile lifecycle, bounded
// parallel chunk execution, retry queue, cancellation, progress
// aggregation, and profile sequencing.
package orchestrator

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/robocurse/robocurse/chunker"
	"github.com/robocurse/robocurse/copierdriver"
	"github.com/robocurse/robocurse/eventsink"
	"github.com/robocurse/robocurse/exitcode"
	"github.com/robocurse/robocurse/internal/clock"
	"github.com/robocurse/robocurse/internal/logging"
	"github.com/robocurse/robocurse/internal/osexec"
	"github.com/robocurse/robocurse/profile"
	"github.com/robocurse/robocurse/profiler"
	"github.com/robocurse/robocurse/snapshotmgr"
)

var log = logging.Module("orchestrator") // nolint:gochecknoglobals

// Phase is the run's coarse lifecycle stage.
type Phase int

const (
	PhaseIdle Phase = iota
	PhaseScanning
	PhaseReplicating
	PhaseComplete
	PhaseStopped
)

func (p Phase) String() string {
	switch p {
	case PhaseIdle:
		return "Idle"
	case PhaseScanning:
		return "Scanning"
	case PhaseReplicating:
		return "Replicating"
	case PhaseComplete:
		return "Complete"
	case PhaseStopped:
		return "Stopped"
	default:
		return "Unknown"
	}
}

// maxChunkRetries is the total attempt budget for a single chunk (spec
// §4.D Retry policy: three total attempts).
const maxChunkRetries = 3

// ProfileResult is the per-profile summary appended to a run's
// accumulated results on profile completion.
type ProfileResult struct {
	ProfileName    string
	TotalChunks    int
	CompletedCount int
	FailedCount    int
	TotalBytes     int64
	Duration       time.Duration
}

// ProgressSnapshot is handed to onProgress once per tick.
type ProgressSnapshot struct {
	RunID           string
	Phase           Phase
	ProfileName     string
	ProfileIndex    int
	TotalProfiles   int
	TotalChunks     int64
	CompletedChunks int64
	TotalBytes      int64
	BytesComplete   int64
	ActiveJobs      int64
	QueueDepth      int64
}

// OnProgress, OnChunkComplete, and OnProfileComplete are the callback
// shapes startRun stores for the duration of the run.
type (
	OnProgress        func(ProgressSnapshot)
	OnChunkComplete   func(chunker.Chunk, copierdriver.Outcome)
	OnProfileComplete func(ProfileResult)
)

type activeJob struct {
	job      *copierdriver.Job
	chunk    chunker.Chunk
	done     chan struct{}
	timedOut bool
}

// State is the single per-run instance. The queue, active-jobs map, and
// completed/failed bags are its concurrent containers; every other field
// is mutated only by the driving Tick call, so it needs no locking of its
// own.
type State struct {
	RunID string
	Phase Phase

	profiles     []profile.Profile
	profileIndex int

	queue     *chunkQueue
	active    *activeJobMap
	completed *chunkBag
	failed    *chunkBag

	results []ProfileResult

	totalChunks    int64
	completedCount int64
	totalBytes     int64
	bytesComplete  int64

	startTime        time.Time
	profileStartTime time.Time

	stopRequested  atomic.Bool
	pauseRequested atomic.Bool

	snapshotHandle  *snapshotmgr.Handle
	currentCopier   profile.CopierOptions
	currentSource   string
	currentDest     string
	currentMismatch profile.MismatchSeverity

	maxConcurrentJobs int
	threadsPerJob     int
	jobTimeout        time.Duration

	prof *profiler.Profiler
	sink *eventsink.Sink

	onProgress        OnProgress
	onChunkComplete   OnChunkComplete
	onProfileComplete OnProfileComplete

	host string
	user string
}

// New constructs an idle State around the given Profiler and Event Sink.
func New(prof *profiler.Profiler, sink *eventsink.Sink, host, user string) *State {
	return &State{
		Phase:     PhaseIdle,
		queue:     newChunkQueue(),
		active:    newActiveJobMap(),
		completed: newChunkBag(),
		failed:    newChunkBag(),
		prof:      prof,
		sink:      sink,
		host:      host,
		user:      user,
	}
}

// StartRun mints a fresh run id, stores the run's callbacks, moves to
// PhaseReplicating, records the start time, emits a session-start audit
// event, and begins the first profile.
func (s *State) StartRun(ctx context.Context, profiles []profile.Profile, maxConcurrentJobs, threadsPerJob int, jobTimeout time.Duration, onProgress OnProgress, onChunkComplete OnChunkComplete, onProfileComplete OnProfileComplete) error {
	s.RunID = uuid.NewString()
	s.profiles = profiles
	s.profileIndex = 0
	s.maxConcurrentJobs = maxConcurrentJobs
	s.threadsPerJob = threadsPerJob
	s.jobTimeout = jobTimeout
	s.onProgress = onProgress
	s.onChunkComplete = onChunkComplete
	s.onProfileComplete = onProfileComplete
	s.startTime = clock.Now()
	s.Phase = PhaseReplicating
	s.stopRequested.Store(false)
	s.pauseRequested.Store(false)

	s.sink.Audit(ctx, eventsink.EventSessionStart, map[string]any{"runId": s.RunID, "profileCount": len(profiles)})
	log(ctx).Infof("run %v started with %d profiles", s.RunID, len(profiles))

	if len(profiles) == 0 {
		s.Phase = PhaseComplete
		return nil
	}

	return s.startProfile(ctx, 0)
}

// startProfile validates and begins replicating the profile at idx:
// it optionally wraps the source in a snapshot, partitions it into
// chunks, and seeds the dispatch queue.
func (s *State) startProfile(ctx context.Context, idx int) error {
	p := s.profiles[idx]

	if err := p.Validate(); err != nil {
		return fmt.Errorf("orchestrator: invalid profile %q: %w", p.Name, err)
	}

	s.profileIndex = idx
	s.currentCopier = p.Copier
	s.currentMismatch = p.Mismatch
	s.currentDest = p.Destination
	s.currentSource = p.Source
	s.snapshotHandle = nil
	s.profileStartTime = clock.Now()

	if p.SnapshotRequested && snapshotmgr.IsSupported(p.Source) {
		handle, err := snapshotmgr.Create(ctx, p.Source)
		if err != nil {
			log(ctx).Warnf("snapshot unavailable for profile %q, continuing without one: %v", p.Name, err)
		} else {
			s.snapshotHandle = &handle
			s.currentSource = snapshotmgr.TranslatePath(p.Source, handle)
		}
	}

	s.Phase = PhaseScanning

	bounds := p.EffectiveBounds()
	chunks := chunker.Partition(ctx, s.prof, s.currentSource, p.Destination, bounds)

	s.queue = newChunkQueue()
	s.completed = newChunkBag()
	s.failed = newChunkBag()

	var totalBytes int64
	for _, c := range chunks {
		totalBytes += c.EstimatedSize
		s.queue.push(c)
	}

	atomic.StoreInt64(&s.totalChunks, int64(len(chunks)))
	atomic.StoreInt64(&s.completedCount, 0)
	atomic.StoreInt64(&s.totalBytes, totalBytes)
	atomic.StoreInt64(&s.bytesComplete, 0)

	s.Phase = PhaseReplicating

	s.sink.Audit(ctx, eventsink.EventProfileStart, map[string]any{
		"runId": s.RunID, "profile": p.Name, "chunkCount": len(chunks), "totalBytes": totalBytes,
	})
	log(ctx).Infof("profile %q: %d chunks, %d bytes estimated", p.Name, len(chunks), totalBytes)

	return nil
}

// Tick drives one step of the control loop: reap finished jobs, dispatch
// new ones, and advance to the next profile once the current one is
// drained. It never blocks on a subprocess: completion detection is a
// non-blocking poll of each active job's done channel, populated by a
// background goroutine spawned at dispatch time.
func (s *State) Tick(ctx context.Context) {
	if s.stopRequested.Load() {
		s.doStop(ctx)
		return
	}

	s.reapFinishedJobs(ctx)

	if !s.pauseRequested.Load() {
		s.dispatchNewJobs(ctx)
	}

	if s.queue.len() == 0 && s.active.len() == 0 && s.Phase == PhaseReplicating {
		if err := s.completeProfile(ctx); err != nil {
			log(ctx).Errorf("orchestrator: completing profile failed: %v", err)
		}
	}

	s.recomputeBytesComplete()
	s.emitProgress()
}

func (s *State) reapFinishedJobs(ctx context.Context) {
	for _, pid := range s.active.pids() {
		aj, ok := s.active.get(pid)
		if !ok {
			continue
		}

		select {
		case <-aj.done:
		default:
			continue
		}

		s.active.delete(pid)

		outcome := copierdriver.CompleteJob(ctx, aj.job, s.currentMismatch, aj.timedOut)

		chunk := aj.chunk
		chunk.LastExitCode = outcome.ExitCode

		switch outcome.Severity {
		case exitcode.SeverityError, exitcode.SeverityFatal:
			s.handleFailedChunk(ctx, chunk, outcome)
		case exitcode.SeverityWarning:
			chunk.Status = chunker.StatusCompleteWithWarnings
			s.completed.push(chunk)
		default:
			chunk.Status = chunker.StatusComplete
			s.completed.push(chunk)
		}

		atomic.AddInt64(&s.completedCount, 1)

		if s.onChunkComplete != nil {
			s.onChunkComplete(chunk, outcome)
		}

		s.sink.Audit(ctx, eventsink.EventChunkComplete, map[string]any{
			"runId": s.RunID, "chunkId": chunk.ID, "exitCode": outcome.ExitCode, "severity": outcome.Severity.String(),
		})
	}
}

func (s *State) dispatchNewJobs(ctx context.Context) {
	for s.active.len() < s.maxConcurrentJobs {
		chunk, ok := s.queue.pop()
		if !ok {
			return
		}

		s.dispatchOne(ctx, chunk)
	}
}

func (s *State) dispatchOne(ctx context.Context, chunk chunker.Chunk) {
	chunk.Status = chunker.StatusRunning
	logPath := s.sink.ChunkLogPath(chunk.ID)

	job, err := copierdriver.StartJob(ctx, chunk, logPath, s.threadsPerJob, s.currentCopier)
	if err != nil {
		log(ctx).Warnf("failed to start job for chunk %d: %v", chunk.ID, err)

		outcome := copierdriver.Outcome{ExitCode: -1}
		s.handleFailedChunk(ctx, chunk, outcome)
		atomic.AddInt64(&s.completedCount, 1)

		return
	}

	aj := &activeJob{job: job, chunk: chunk, done: make(chan struct{})}

	go func() {
		_, timedOut := copierdriver.WaitJob(ctx, job, s.jobTimeout)
		aj.timedOut = timedOut
		close(aj.done)
	}()

	pid := 0
	if job.Cmd.Process != nil {
		pid = job.Cmd.Process.Pid
	}

	s.active.put(pid, aj)

	s.sink.Audit(ctx, eventsink.EventChunkStart, map[string]any{"runId": s.RunID, "chunkId": chunk.ID, "source": chunk.SourcePath})
}

// handleFailedChunk requeues chunk for another attempt when its outcome
// is retryable and it hasn't exhausted maxChunkRetries, otherwise moves
// it into the failed bag permanently.
func (s *State) handleFailedChunk(ctx context.Context, chunk chunker.Chunk, outcome copierdriver.Outcome) {
	chunk.RetryCount++
	chunk.LastExitCode = outcome.ExitCode

	if chunk.RetryCount < maxChunkRetries && outcome.Retryable {
		chunk.Status = chunker.StatusPending
		s.queue.push(chunk)

		s.sink.Audit(ctx, eventsink.EventChunkError, map[string]any{
			"runId": s.RunID, "chunkId": chunk.ID, "retry": chunk.RetryCount, "retrying": true,
		})
		log(ctx).Warnf("chunk %d failed (attempt %d), retrying: exit=%d", chunk.ID, chunk.RetryCount, outcome.ExitCode)

		return
	}

	chunk.Status = chunker.StatusFailed
	s.failed.push(chunk)

	s.sink.Audit(ctx, eventsink.EventChunkError, map[string]any{
		"runId": s.RunID, "chunkId": chunk.ID, "retry": chunk.RetryCount, "retrying": false,
	})
	log(ctx).Errorf("chunk %d failed permanently after %d attempts: exit=%d", chunk.ID, chunk.RetryCount, outcome.ExitCode)
}

// completeProfile snapshots the completed/failed bags into a ProfileResult,
// releases any held volume snapshot, invokes onProfileComplete, audits
// profile completion, and either starts the next profile or marks the run
// complete.
func (s *State) completeProfile(ctx context.Context) error {
	completed := s.completed.snapshot()
	failed := s.failed.snapshot()

	var totalBytes int64
	for _, c := range completed {
		totalBytes += c.EstimatedSize
	}

	result := ProfileResult{
		ProfileName:    s.profiles[s.profileIndex].Name,
		TotalChunks:    len(completed) + len(failed),
		CompletedCount: len(completed),
		FailedCount:    len(failed),
		TotalBytes:     totalBytes,
		Duration:       clock.Since(s.profileStartTime),
	}
	s.results = append(s.results, result)

	if s.snapshotHandle != nil {
		if err := snapshotmgr.Release(ctx, s.snapshotHandle.ID); err != nil {
			log(ctx).Warnf("snapshot release failed: %v", err)
		}

		s.snapshotHandle = nil
	}

	if s.onProfileComplete != nil {
		s.onProfileComplete(result)
	}

	s.sink.Audit(ctx, eventsink.EventProfileComplete, map[string]any{
		"runId": s.RunID, "profile": result.ProfileName, "completed": result.CompletedCount, "failed": result.FailedCount,
	})

	s.completed = newChunkBag()
	s.failed = newChunkBag()

	nextIdx := s.profileIndex + 1
	if nextIdx < len(s.profiles) {
		return s.startProfile(ctx, nextIdx)
	}

	s.Phase = PhaseComplete
	s.sink.Audit(ctx, eventsink.EventSessionEnd, map[string]any{"runId": s.RunID, "reason": "complete"})
	log(ctx).Infof("run %v complete", s.RunID)

	return nil
}

// doStop kills every active job, drains the queue and active-jobs map,
// releases any held volume snapshot, and moves the run to PhaseStopped.
func (s *State) doStop(ctx context.Context) {
	if s.Phase == PhaseStopped {
		return
	}

	for _, pid := range s.active.pids() {
		if aj, ok := s.active.get(pid); ok {
			if err := osexec.Kill(aj.job.Cmd); err != nil {
				log(ctx).Warnf("failed to kill job for chunk %d during stop: %v", aj.chunk.ID, err)
			}
		}
	}

	s.active = newActiveJobMap()
	s.queue = newChunkQueue()

	if s.snapshotHandle != nil {
		_ = snapshotmgr.Release(ctx, s.snapshotHandle.ID)
		s.snapshotHandle = nil
	}

	s.Phase = PhaseStopped
	s.sink.Audit(ctx, eventsink.EventSessionEnd, map[string]any{"runId": s.RunID, "reason": "stopped by user"})
	log(ctx).Infof("run %v stopped by user", s.RunID)
}

func (s *State) recomputeBytesComplete() {
	var completeBytes int64

	for _, c := range s.completed.snapshot() {
		completeBytes += c.EstimatedSize
	}

	for _, pid := range s.active.pids() {
		if aj, ok := s.active.get(pid); ok {
			completeBytes += copierdriver.ParseLog(context.Background(), aj.job.LogPath).BytesCopied
		}
	}

	atomic.StoreInt64(&s.bytesComplete, completeBytes)
}

func (s *State) emitProgress() {
	if s.onProgress == nil {
		return
	}

	profileName := ""
	if s.profileIndex < len(s.profiles) {
		profileName = s.profiles[s.profileIndex].Name
	}

	s.onProgress(ProgressSnapshot{
		RunID:           s.RunID,
		Phase:           s.Phase,
		ProfileName:     profileName,
		ProfileIndex:    s.profileIndex,
		TotalProfiles:   len(s.profiles),
		TotalChunks:     atomic.LoadInt64(&s.totalChunks),
		CompletedChunks: atomic.LoadInt64(&s.completedCount),
		TotalBytes:      atomic.LoadInt64(&s.totalBytes),
		BytesComplete:   atomic.LoadInt64(&s.bytesComplete),
		ActiveJobs:      int64(s.active.len()),
		QueueDepth:      int64(s.queue.len()),
	})
}

// RequestStop, RequestPause, and RequestResume set the corresponding
// control flags, consulted by Tick on its next call.
func (s *State) RequestStop()   { s.stopRequested.Store(true) }
func (s *State) RequestPause()  { s.pauseRequested.Store(true) }
func (s *State) RequestResume() { s.pauseRequested.Store(false) }

// Results returns the accumulated per-profile results so far.
func (s *State) Results() []ProfileResult {
	out := make([]ProfileResult, len(s.results))
	copy(out, s.results)

	return out
}

// AnyChunksFailed reports whether any profile in this run's accumulated
// results ended with at least one Failed chunk, the signal callers use to
// pick a non-zero process exit code.
func (s *State) AnyChunksFailed() bool {
	for _, r := range s.results {
		if r.FailedCount > 0 {
			return true
		}
	}

	return false
}
