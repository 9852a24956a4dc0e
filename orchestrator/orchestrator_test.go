package orchestrator_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/robocurse/robocurse/copierdriver"
	"github.com/robocurse/robocurse/eventsink"
	"github.com/robocurse/robocurse/orchestrator"
	"github.com/robocurse/robocurse/profile"
	"github.com/robocurse/robocurse/profiler"
)

// writeFakeCopier writes a shell script standing in for the external copier:
// on a /LOG:<path> invocation it writes a minimal Files/Dirs/Bytes summary
// block to that path and exits with exitCode; on a list-only invocation (no
// /LOG: arg) it prints nothing and exits 0.
func writeFakeCopier(t *testing.T, exitCode int) string {
	t.Helper()

	dir := t.TempDir()
	p := filepath.Join(dir, "fakecopier.sh")

	script := `#!/bin/sh
logpath=""
for arg in "$@"; do
  case "$arg" in
    /LOG:*) logpath="${arg#/LOG:}" ;;
  esac
done
if [ -n "$logpath" ]; then
  cat > "$logpath" <<EOF
   Dirs :         1         1         0         0         0         0
  Files :         1         1         0         0         0         0
  Bytes :        1k        1k         0         0         0         0
EOF
  exit ` + itoa(exitCode) + `
fi
exit 0
`

	require.NoError(t, os.WriteFile(p, []byte(script), 0o755)) // nolint:gosec

	return p
}

func itoa(n int) string {
	if n == 0 {
		return "0"
	}

	neg := n < 0
	if neg {
		n = -n
	}

	var digits []byte
	for n > 0 {
		digits = append([]byte{byte('0' + n%10)}, digits...)
		n /= 10
	}

	if neg {
		return "-" + string(digits)
	}

	return string(digits)
}

func newTestState(t *testing.T, copierExitCode int) (*orchestrator.State, string) {
	t.Helper()

	bin := writeFakeCopier(t, copierExitCode)

	oldProfilerBin := profiler.CopierBinary
	oldCopierBin := copierdriver.CopierBinary
	profiler.CopierBinary = bin
	copierdriver.CopierBinary = bin

	t.Cleanup(func() {
		profiler.CopierBinary = oldProfilerBin
		copierdriver.CopierBinary = oldCopierBin
	})

	logRoot := t.TempDir()
	sink, err := eventsink.New(logRoot, "run", "host", "user", time.Now())
	require.NoError(t, err)

	t.Cleanup(sink.Close)

	prof := profiler.New(time.Hour)
	s := orchestrator.New(prof, sink, "host", "user")

	return s, logRoot
}

func testProfile(t *testing.T) profile.Profile {
	t.Helper()

	src := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(src, "a.txt"), []byte("hi"), 0o644))

	return profile.Profile{
		Name:        "p1",
		Source:      src,
		Destination: t.TempDir(),
		Bounds:      profile.ChunkingBounds{MaxSizeBytes: 1 << 30, MaxFiles: 10000, MaxDepth: 8},
		Copier:      profile.CopierOptions{PerFileRetryCount: 0, PerFileRetryWait: 0},
		Mismatch:    profile.MismatchWarning,
	}
}

func runToCompletion(t *testing.T, s *orchestrator.State, ctx context.Context) {
	t.Helper()

	deadline := time.Now().Add(5 * time.Second)
	for s.Phase != orchestrator.PhaseComplete && s.Phase != orchestrator.PhaseStopped {
		if time.Now().After(deadline) {
			t.Fatalf("orchestrator run did not reach a terminal phase in time (phase=%v)", s.Phase)
		}

		s.Tick(ctx)
		time.Sleep(time.Millisecond)
	}
}

func TestStartRun_NoProfiles_CompletesImmediately(t *testing.T) {
	s, _ := newTestState(t, 0)

	err := s.StartRun(context.Background(), nil, 2, 4, time.Minute, nil, nil, nil)
	require.NoError(t, err)
	require.Equal(t, orchestrator.PhaseComplete, s.Phase)
}

func TestStartRun_SingleProfile_CompletesSuccessfully(t *testing.T) {
	s, _ := newTestState(t, 0)

	var completedResults []orchestrator.ProfileResult

	err := s.StartRun(context.Background(), []profile.Profile{testProfile(t)}, 2, 4, 10*time.Second,
		nil, nil, func(r orchestrator.ProfileResult) { completedResults = append(completedResults, r) })
	require.NoError(t, err)

	runToCompletion(t, s, context.Background())

	require.Equal(t, orchestrator.PhaseComplete, s.Phase)
	require.Len(t, completedResults, 1)
	require.Equal(t, 1, completedResults[0].CompletedCount)
	require.Equal(t, 0, completedResults[0].FailedCount)
	require.False(t, s.AnyChunksFailed())
}

func TestStartRun_PersistentFailure_ExhaustsRetriesAndFails(t *testing.T) {
	s, _ := newTestState(t, 8) // bitFilesFailed, retryable

	err := s.StartRun(context.Background(), []profile.Profile{testProfile(t)}, 2, 4, 10*time.Second, nil, nil, nil)
	require.NoError(t, err)

	runToCompletion(t, s, context.Background())

	require.Equal(t, orchestrator.PhaseComplete, s.Phase)
	require.True(t, s.AnyChunksFailed())

	results := s.Results()
	require.Len(t, results, 1)
	require.Equal(t, 1, results[0].FailedCount)
	require.Equal(t, 0, results[0].CompletedCount)
}

func TestRequestStop_HaltsRun(t *testing.T) {
	s, _ := newTestState(t, 0)

	err := s.StartRun(context.Background(), []profile.Profile{testProfile(t)}, 1, 1, 10*time.Second, nil, nil, nil)
	require.NoError(t, err)

	s.RequestStop()

	deadline := time.Now().Add(5 * time.Second)
	for s.Phase != orchestrator.PhaseStopped {
		if time.Now().After(deadline) {
			t.Fatalf("orchestrator did not stop in time (phase=%v)", s.Phase)
		}

		s.Tick(context.Background())
		time.Sleep(time.Millisecond)
	}

	require.Equal(t, orchestrator.PhaseStopped, s.Phase)
}

func TestRequestPause_StopsDispatchingNewJobs(t *testing.T) {
	s, _ := newTestState(t, 0)

	var snap orchestrator.ProgressSnapshot

	err := s.StartRun(context.Background(), []profile.Profile{testProfile(t)}, 1, 1, 10*time.Second,
		func(p orchestrator.ProgressSnapshot) { snap = p }, nil, nil)
	require.NoError(t, err)

	s.RequestPause()
	s.Tick(context.Background())

	require.Equal(t, int64(0), snap.ActiveJobs)

	s.RequestResume()
	runToCompletion(t, s, context.Background())
	require.Equal(t, orchestrator.PhaseComplete, s.Phase)
}
