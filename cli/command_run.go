package cli

import (
	"context"
	"time"

	"github.com/alecthomas/kingpin/v2"

	"github.com/robocurse/robocurse/chunker"
	"github.com/robocurse/robocurse/copierdriver"
	"github.com/robocurse/robocurse/orchestrator"
	"github.com/robocurse/robocurse/profile"
)

const tickInterval = 50 * time.Millisecond

// commandRun implements `robocurse run [--profile <name>]`.
type commandRun struct {
	profileName string
}

func (c *commandRun) setup(svc appServices, parent commandParent) {
	cmd := parent.Command("run", "Run all enabled profiles, or one named profile.")
	cmd.Flag("profile", "Run only the named profile instead of every enabled profile").StringVar(&c.profileName)
	cmd.Action(runAction(svc, c))
}

func runAction(svc appServices, c *commandRun) func(*kingpin.ParseContext) error {
	return func(*kingpin.ParseContext) error {
		ctx := svc.rootContext()

		cfg, err := svc.loadConfig()
		if err != nil {
			errorColor.Fprintf(svc.stderr(), "robocurse: %v\n", err) // nolint:errcheck
			svc.setExitCode(1)

			return nil
		}

		if c.profileName != "" {
			p, ok := cfg.FindProfile(c.profileName)
			if !ok {
				errorColor.Fprintf(svc.stderr(), "robocurse: no such profile %q\n", c.profileName) // nolint:errcheck
				svc.setExitCode(1)

				return nil
			}

			cfg.Profiles = []profile.Profile{p}
		}

		ctx, state, cleanup, err := svc.newOrchestrator(ctx, cfg)
		if err != nil {
			errorColor.Fprintf(svc.stderr(), "robocurse: %v\n", err) // nolint:errcheck
			svc.setExitCode(1)

			return nil
		}

		defer cleanup()

		progress := svc.getProgress()
		progress.Started()

		err = state.StartRun(ctx, cfg.Profiles, cfg.MaxConcurrentJobs, cfg.ThreadsPerJob, cfg.JobTimeout,
			progress.OnProgress,
			func(chunker.Chunk, copierdriver.Outcome) {},
			func(r orchestrator.ProfileResult) {
				printProfileResult(svc, r)
			})
		if err != nil {
			errorColor.Fprintf(svc.stderr(), "robocurse: %v\n", err) // nolint:errcheck
			svc.setExitCode(1)

			return nil
		}

		runToTerminalPhase(ctx, state)

		progress.Finished()

		if state.AnyChunksFailed() || state.Phase == orchestrator.PhaseStopped {
			svc.setExitCode(1)
		}

		return nil
	}
}

func runToTerminalPhase(ctx context.Context, state *orchestrator.State) {
	ticker := time.NewTicker(tickInterval)
	defer ticker.Stop()

	for state.Phase != orchestrator.PhaseComplete && state.Phase != orchestrator.PhaseStopped {
		select {
		case <-ctx.Done():
			state.RequestStop()
		case <-ticker.C:
			state.Tick(ctx)
		}
	}
}

func printProfileResult(svc appServices, r orchestrator.ProfileResult) {
	noteColor.Fprintf(svc.stdout(), "\nprofile %q: %d/%d chunks complete, %d failed, %v elapsed\n", // nolint:errcheck
		r.ProfileName, r.CompletedCount, r.TotalChunks, r.FailedCount, r.Duration.Round(time.Second))
}
