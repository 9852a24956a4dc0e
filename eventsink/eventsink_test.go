package eventsink_test

import (
	"bufio"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/robocurse/robocurse/eventsink"
	"github.com/robocurse/robocurse/internal/logging"
)

func TestNew_CreatesDatedLayout(t *testing.T) {
	root := t.TempDir()
	now := time.Date(2026, 7, 31, 14, 5, 9, 250_000_000, time.UTC)

	sink, err := eventsink.New(root, "run-1", "host-1", "user-1", now)
	require.NoError(t, err)

	defer sink.Close()

	dateDir := filepath.Join(root, "2026-07-31")

	entries, err := os.ReadDir(dateDir)
	require.NoError(t, err)

	var sawSession, sawAudit, sawJobs bool

	for _, e := range entries {
		switch {
		case e.Name() == "Jobs":
			sawJobs = true
		case filepath.Ext(e.Name()) == ".log":
			sawSession = true
		case filepath.Ext(e.Name()) == ".jsonl":
			sawAudit = true
		}
	}

	require.True(t, sawSession)
	require.True(t, sawAudit)
	require.True(t, sawJobs)
}

func TestChunkLogPath_ZeroPadded(t *testing.T) {
	root := t.TempDir()
	sink, err := eventsink.New(root, "run-1", "h", "u", time.Now())
	require.NoError(t, err)

	defer sink.Close()

	p := sink.ChunkLogPath(7)
	require.Equal(t, "Chunk_007.log", filepath.Base(p))
}

func TestSessionLogPath_ReceivesContextualLoggerOutput(t *testing.T) {
	root := t.TempDir()
	now := time.Date(2026, 7, 31, 9, 0, 0, 0, time.UTC)

	sink, err := eventsink.New(root, "run-1", "h", "u", now)
	require.NoError(t, err)

	opLogger, flush, err := logging.NewProduction(sink.SessionLogPath())
	require.NoError(t, err)

	ctx := logging.WithLogger(context.Background(), opLogger)

	log := logging.Module("chunker")
	log(ctx).Warnf("oversized chunk")

	flush()
	sink.Close()

	f, err := os.Open(sink.SessionLogPath()) // nolint:gosec
	require.NoError(t, err)

	defer f.Close()

	scanner := bufio.NewScanner(f)
	require.True(t, scanner.Scan())
	require.Contains(t, scanner.Text(), "oversized chunk")
}

func TestAudit_WritesOneJSONObjectPerLine(t *testing.T) {
	root := t.TempDir()
	sink, err := eventsink.New(root, "run-42", "host-a", "user-b", time.Now())
	require.NoError(t, err)

	sink.Audit(context.Background(), eventsink.EventChunkComplete, map[string]any{"chunkId": float64(3)})
	sink.Audit(context.Background(), eventsink.EventChunkError, map[string]any{"chunkId": float64(4)})
	sink.Close()

	dateDir := filepath.Join(root, time.Now().Format("2006-01-02"))
	entries, err := os.ReadDir(dateDir)
	require.NoError(t, err)

	var auditPath string

	for _, e := range entries {
		if filepath.Ext(e.Name()) == ".jsonl" {
			auditPath = filepath.Join(dateDir, e.Name())
		}
	}

	require.NotEmpty(t, auditPath)

	f, err := os.Open(auditPath) // nolint:gosec
	require.NoError(t, err)

	defer f.Close()

	scanner := bufio.NewScanner(f)

	var records []map[string]any

	for scanner.Scan() {
		var rec map[string]any
		require.NoError(t, json.Unmarshal(scanner.Bytes(), &rec))
		records = append(records, rec)
	}

	require.Len(t, records, 2)
	require.Equal(t, "run-42", records[0]["runId"])
	require.Equal(t, "ChunkComplete", records[0]["eventType"])
	require.Equal(t, "ChunkError", records[1]["eventType"])
}
