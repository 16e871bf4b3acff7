// Package logging wires structured diagnostics for the objdiff CLI. It
// plays the role the teacher's tracedhardware.go decorator played around
// every CPU operation, rehomed onto diagnostics: instead of wrapping
// register/memory/ALU calls with a "Trace{Operation, Operands, Result,
// Error}" record, it wraps load/disassemble/align/compare calls with
// structured slog attributes, fanned out to one or more handlers via
// samber/slog-multi — the teacher declares that dependency but never
// actually builds the fan-out; this is where it gets a real job to do.
package logging

import (
	"fmt"
	"log/slog"
	"os"

	slogmulti "github.com/samber/slog-multi"
)

// Init builds the process-wide logger: a human-readable text handler on
// stderr always, plus a JSON handler on logPath when one is given (for
// machine-readable diagnostics alongside a CI run, say). verbose lowers
// the minimum level from Info to Debug, the same toggle cmd/root.go's
// --verbose flag exposes.
//
// Returns the logger and a closer the caller should defer; closer is a
// no-op when no log file was opened.
func Init(verbose bool, logPath string) (*slog.Logger, func() error, error) {
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}

	handlers := []slog.Handler{
		slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}),
	}

	closer := func() error { return nil }

	if logPath != "" {
		f, err := os.OpenFile(logPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return nil, nil, fmt.Errorf("opening log file %q: %w", logPath, err)
		}
		handlers = append(handlers, slog.NewJSONHandler(f, &slog.HandlerOptions{Level: level}))
		closer = f.Close
	}

	logger := slog.New(slogmulti.Fanout(handlers...))
	return logger, closer, nil
}

// Component returns a child logger tagged with the pipeline stage it
// instruments (load/disasm/align/compare/score), mirroring the
// Trace.Context() stack the teacher's tracer carried — a flat "component"
// attribute here rather than a push/pop context stack, since the objdiff
// pipeline's stages run strictly in sequence rather than recursively.
func Component(base *slog.Logger, name string) *slog.Logger {
	return base.With(slog.String("component", name))
}
