// Package testlogging builds a context carrying a logger that writes to
// testing.T's log (via t.Log), so that code under test which pulls its
// logger from the context produces output attributed to the right test.
package testlogging

import (
	"context"
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/robocurse/robocurse/internal/logging"
)

type testWriter struct {
	t *testing.T
}

func (w testWriter) Write(p []byte) (int, error) {
	w.t.Helper()
	w.t.Log(string(p))

	return len(p), nil
}

func (w testWriter) Sync() error { return nil }

// Context returns a context.Background() carrying a logger that writes
// every line to t.Log, so log output interleaves correctly with
// `go test -v` output and survives -run filtering.
func Context(t *testing.T) context.Context {
	t.Helper()

	enc := zapcore.NewConsoleEncoder(zap.NewDevelopmentEncoderConfig())
	core := zapcore.NewCore(enc, testWriter{t}, zapcore.DebugLevel)
	l := zap.New(core).Sugar()

	return logging.WithLogger(context.Background(), l)
}
