// Package logging provides the contextual, per-module zap logger used
// across robocurse: each package declares a module-scoped accessor and
// calls it with the live context, so the logger installed via WithLogger
// is used, tagged with the package's module name, without threading a
// logger argument through every function signature.
package logging

import (
	"context"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

type loggerKey struct{}

// NullLogger discards everything; used when no logger has been installed
// in the context (e.g. in unit tests that don't care about log output).
func NullLogger() *zap.SugaredLogger {
	return zap.NewNop().Sugar()
}

// WithLogger returns a context carrying l, retrievable by Module's returned
// accessor.
func WithLogger(ctx context.Context, l *zap.SugaredLogger) context.Context {
	return context.WithValue(ctx, loggerKey{}, l)
}

func fromContext(ctx context.Context) *zap.SugaredLogger {
	if l, ok := ctx.Value(loggerKey{}).(*zap.SugaredLogger); ok && l != nil {
		return l
	}

	return NullLogger()
}

// Module returns an accessor that, given a context, returns a logger
// tagged with the named component ("module" field). Typical use:
//
//	var log = logging.Module("profiler")
//	...
//	log(ctx).Infof("scanned %v files", n)
func Module(name string) func(ctx context.Context) *zap.SugaredLogger {
	return func(ctx context.Context) *zap.SugaredLogger {
		return fromContext(ctx).With("module", name)
	}
}

// NewProduction builds the default zap.SugaredLogger written to the
// operational log file path, console-encoded the way kopia's internal
// logger is — one line per entry, beginning with an ISO-8601 timestamp and
// the level.
func NewProduction(path string) (*zap.SugaredLogger, func(), error) {
	cfg := zap.NewProductionConfig()
	cfg.Encoding = "console"
	cfg.OutputPaths = []string{path}
	cfg.ErrorOutputPaths = []string{path}
	cfg.EncoderConfig.TimeKey = "ts"
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	l, err := cfg.Build()
	if err != nil {
		return nil, func() {}, err
	}

	return l.Sugar(), func() { _ = l.Sync() }, nil
}
