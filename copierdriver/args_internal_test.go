package copierdriver

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/robocurse/robocurse/chunker"
	"github.com/robocurse/robocurse/profile"
)

func TestBuildArgs_FixedOrder(t *testing.T) {
	c := chunker.Chunk{SourcePath: `C:\src`, DestPath: `D:\dst`, ExtraArgs: []string{"/LEV:1"}}
	opts := profile.CopierOptions{
		ExtraSwitches:       []string{"/XO", "/MT:99"},
		SkipReparsePoints:   true,
		ExcludeFilePatterns: []string{"*.tmp"},
		ExcludeDirPatterns:  []string{".git"},
		PerFileRetryCount:   2,
		PerFileRetryWait:    5,
	}

	args := buildArgs(c, `D:\logs\Chunk_001.log`, 16, opts)

	require.Equal(t, []string{
		`C:\src`, `D:\dst`,
		"/MIR",
		"/XO",
		"/MT:16", "/R:2", "/W:5", `/LOG:D:\logs\Chunk_001.log`, "/TEE", "/NP", "/BYTES",
		"/XJD", "/XJF",
		"/XF", "*.tmp",
		"/XD", ".git",
		"/LEV:1",
	}, args)
}

func TestBuildArgs_NoMirrorUsesE(t *testing.T) {
	c := chunker.Chunk{SourcePath: "s", DestPath: "d"}
	opts := profile.CopierOptions{NoMirror: true}

	args := buildArgs(c, "log", 1, opts)

	require.Contains(t, args, "/E")
	require.NotContains(t, args, "/MIR")
}

func TestFilterOwnedSwitches_DropsOrchestratorOwned(t *testing.T) {
	in := []string{"/XO", "/MT:99", "/LOG:foo", "/R:1", "/W:1", "/TEE", "/NP", "/BYTES", "/MIR", "/E", "/PURGE"}

	out := filterOwnedSwitches(in)

	require.Equal(t, []string{"/XO", "/PURGE"}, out)
}
