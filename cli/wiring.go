package cli

import (
	"context"
	"os"
	"os/user"
	"time"

	"github.com/robocurse/robocurse/config"
	"github.com/robocurse/robocurse/eventsink"
	"github.com/robocurse/robocurse/internal/logging"
	"github.com/robocurse/robocurse/orchestrator"
	"github.com/robocurse/robocurse/profiler"
)

const defaultProfileCacheAge = 24 * time.Hour

func currentHostUser() (string, string) {
	host, err := os.Hostname()
	if err != nil {
		host = "unknown-host"
	}

	u, err := user.Current()
	if err != nil {
		return host, "unknown-user"
	}

	return host, u.Username
}

// NewOrchestratorForConfig wires a fresh Profiler, Event Sink, and
// Orchestrator state for one run against cfg.LogRoot. It also builds the
// operational-log writer for this run and attaches it to ctx, so every
// log(ctx)... call made while the returned state is in use lands in the
// session's own log file instead of being discarded. The returned context
// must be used for StartRun/Tick; the returned cleanup func flushes the
// logger and closes the Event Sink's audit log.
func NewOrchestratorForConfig(ctx context.Context, cfg config.RunConfig) (context.Context, *orchestrator.State, func(), error) {
	host, user := currentHostUser()

	sink, err := eventsink.New(cfg.LogRoot, runID(), host, user, time.Now())
	if err != nil {
		return ctx, nil, func() {}, err
	}

	opLogger, flush, err := logging.NewProduction(sink.SessionLogPath())
	if err != nil {
		sink.Close()
		return ctx, nil, func() {}, err
	}

	ctx = logging.WithLogger(ctx, opLogger)

	prof := profiler.New(defaultProfileCacheAge)
	state := orchestrator.New(prof, sink, host, user)

	cleanup := func() {
		flush()
		sink.Close()
	}

	return ctx, state, cleanup, nil
}

// runID is the timestamp-based identity the Event Sink stamps into every
// audit record's runId field. It is distinct from the uuid-based run id
// StartRun mints, which the orchestrator puts in each event's data map;
// the Event Sink's file names come from the start time, not from runID.
func runID() string {
	return time.Now().Format("20060102-150405")
}
