package cli

import (
	"fmt"
	"os"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/robocurse/robocurse/internal/clock"
	"github.com/robocurse/robocurse/internal/units"
	"github.com/robocurse/robocurse/orchestrator"
)

const (
	spinner                = `|/-\`
	hundredPercent         = 100.0
	progressUpdateInterval = 300 * time.Millisecond
)

// cliProgress renders orchestrator.ProgressSnapshot at a rate-limited
// cadence, throttling redraws to progressUpdateInterval.
type cliProgress struct {
	mu sync.Mutex

	nextOutputTimeUnixNano int64

	lastLineLength int
	spinPhase      int
	runStartTime   time.Time

	finished int32

	lastSnap orchestrator.ProgressSnapshot

	enabled bool
	out     *os.File
}

func newCLIProgress(enabled bool) *cliProgress {
	return &cliProgress{enabled: enabled, out: os.Stderr}
}

// SetEnabled toggles whether OnProgress redraws a status line at the
// throttled cadence (interactive) or only the final summary line is
// printed (headless).
func (p *cliProgress) SetEnabled(enabled bool) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.enabled = enabled
}

// Started marks the beginning of a run's progress stream.
func (p *cliProgress) Started() {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.runStartTime = clock.Now()
	atomic.StoreInt32(&p.finished, 0)
}

// Finished prints one last, unthrottled line from the most recent snapshot
// and terminates the spinner.
func (p *cliProgress) Finished() {
	atomic.StoreInt32(&p.finished, 1)

	p.mu.Lock()
	last := p.lastSnap
	p.mu.Unlock()

	p.render(last, true)

	if p.enabled {
		fmt.Fprintln(p.out) // nolint:errcheck
	}
}

// OnProgress is handed to orchestrator.StartRun as the OnProgress callback.
func (p *cliProgress) OnProgress(snap orchestrator.ProgressSnapshot) {
	p.mu.Lock()
	p.lastSnap = snap
	p.mu.Unlock()

	var shouldRender bool

	nextOutputTimeUnixNano := atomic.LoadInt64(&p.nextOutputTimeUnixNano)
	if nowNano := clock.Now().UnixNano(); nowNano > nextOutputTimeUnixNano {
		if atomic.CompareAndSwapInt64(&p.nextOutputTimeUnixNano, nextOutputTimeUnixNano, nowNano+progressUpdateInterval.Nanoseconds()) {
			shouldRender = true
		}
	}

	if shouldRender {
		p.render(snap, false)
	}
}

func (p *cliProgress) render(snap orchestrator.ProgressSnapshot, final bool) {
	p.mu.Lock()
	defer p.mu.Unlock()

	line := fmt.Sprintf(
		" %v [%v] profile %d/%d (%v): %v/%v chunks, %v/%v",
		p.spinnerCharacter(),
		snap.Phase,
		snap.ProfileIndex+1,
		snap.TotalProfiles,
		snap.ProfileName,
		snap.CompletedChunks,
		snap.TotalChunks,
		units.BytesStringBase10(snap.BytesComplete),
		units.BytesStringBase10(snap.TotalBytes),
	)

	if snap.TotalBytes > 0 {
		ratio := float64(snap.BytesComplete) / float64(snap.TotalBytes)
		if ratio > 1 {
			ratio = 1
		}

		line += fmt.Sprintf(" (%.1f%%)", ratio*hundredPercent)
	}

	line += fmt.Sprintf(", %d active jobs, %d queued", snap.ActiveJobs, snap.QueueDepth)

	if !p.enabled && !final {
		return
	}

	col := defaultColor
	if final {
		col = noteColor
	}

	var extraSpaces string

	if len(line) < p.lastLineLength {
		extraSpaces = strings.Repeat(" ", p.lastLineLength-len(line))
	}

	p.lastLineLength = len(line)

	col.Fprintf(p.out, "\r%v%v", line, extraSpaces) // nolint:errcheck
}

func (p *cliProgress) spinnerCharacter() string {
	if atomic.LoadInt32(&p.finished) == 1 {
		return "*"
	}

	x := p.spinPhase % len(spinner)
	s := spinner[x : x+1]
	p.spinPhase = (p.spinPhase + 1) % len(spinner)

	return s
}
