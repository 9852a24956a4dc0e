package profiler_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/robocurse/robocurse/profiler"
)

func TestProfile_MissingBinaryYieldsZeroProfile(t *testing.T) {
	p := profiler.New(time.Hour)

	old := profiler.CopierBinary
	profiler.CopierBinary = "robocurse-definitely-not-a-real-binary"

	defer func() { profiler.CopierBinary = old }()

	dp := p.Profile(context.Background(), `C:\data`, false, time.Hour)

	require.Equal(t, int64(0), dp.TotalSize)
	require.Equal(t, int64(0), dp.FileCount)
	require.Equal(t, int64(0), dp.DirCount)
	require.Equal(t, float64(0), dp.AverageSize)
	require.False(t, dp.LastScanned.IsZero())
}

func TestProfile_CacheHitAvoidsRescan(t *testing.T) {
	p := profiler.New(time.Hour)

	old := profiler.CopierBinary
	profiler.CopierBinary = "robocurse-definitely-not-a-real-binary"

	defer func() { profiler.CopierBinary = old }()

	first := p.Profile(context.Background(), `C:\data`, true, time.Hour)
	second := p.Profile(context.Background(), `C:\DATA`, true, time.Hour)

	require.Equal(t, first.LastScanned, second.LastScanned)
}

func TestProfile_CacheBypassWhenDisabled(t *testing.T) {
	p := profiler.New(time.Hour)

	old := profiler.CopierBinary
	profiler.CopierBinary = "robocurse-definitely-not-a-real-binary"

	defer func() { profiler.CopierBinary = old }()

	first := p.Profile(context.Background(), `C:\data`, true, time.Hour)
	time.Sleep(time.Millisecond)
	second := p.Profile(context.Background(), `C:\data`, false, time.Hour)

	require.True(t, second.LastScanned.After(first.LastScanned) || second.LastScanned.Equal(first.LastScanned))
}

func TestInvalidate_ForcesRescan(t *testing.T) {
	p := profiler.New(time.Hour)

	old := profiler.CopierBinary
	profiler.CopierBinary = "robocurse-definitely-not-a-real-binary"

	defer func() { profiler.CopierBinary = old }()

	first := p.Profile(context.Background(), `C:\data`, true, time.Hour)
	p.Invalidate(`C:\data`)
	time.Sleep(time.Millisecond)
	second := p.Profile(context.Background(), `C:\data`, true, time.Hour)

	require.True(t, second.LastScanned.After(first.LastScanned))
}
