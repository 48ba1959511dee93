// Package cli implements the depgraph command-line interface.
//
// # Commands
//
//   - resolve: Build the dependency tree of one npm package
//   - serve: Run the HTTP API
//   - version: Print build information
//   - completion: Generate shell completion scripts
//
// # Logging
//
// All commands support --verbose (-v) for debug-level logging and --quiet
// (-q) to show errors only. The logger is carried in the CLI and handed to
// the resolver, so per-dependency warnings appear with their run ID.
//
// # Configuration
//
// Settings come from defaults, an optional TOML file (--config or
// DEPGRAPH_CONFIG), .env and DEPGRAPH_* variables; explicit flags win.
package cli

import (
	"context"
	"fmt"
	"io"
	"sync/atomic"
	"time"

	"github.com/charmbracelet/log"
)

// newLogger creates a new logger with timestamp formatting.
// Timestamps are formatted as "HH:MM:SS.ms" (e.g., "14:32:01.45").
func newLogger(w io.Writer, level log.Level) *log.Logger {
	return log.NewWithOptions(w, log.Options{
		ReportTimestamp: true,
		TimeFormat:      "15:04:05.00",
		Level:           level,
	})
}

// levelFor maps the verbosity flags to a log level. Verbose wins.
func levelFor(verbose, quiet bool) log.Level {
	switch {
	case verbose:
		return log.DebugLevel
	case quiet:
		return log.ErrorLevel
	default:
		return log.InfoLevel
	}
}

// progress tracks the start time of an operation and logs completion with elapsed duration.
type progress struct {
	logger *log.Logger
	start  time.Time
}

func newProgress(l *log.Logger) *progress {
	return &progress{logger: l, start: time.Now()}
}

// done logs msg along with the elapsed time since progress was created.
// Example output: "Resolved 42 packages (1.234s)"
func (p *progress) done(msg string, keyvals ...any) {
	p.logger.Info(fmt.Sprintf("%s (%s)", msg, time.Since(p.start).Round(time.Millisecond)), keyvals...)
}

// fetchCounter reports registry lookups to a callback as they finish.
// It implements observability.ResolveHooks.
type fetchCounter struct {
	fetched atomic.Int64
	failed  atomic.Int64
	notify  func(fetched, failed int64)
}

func (f *fetchCounter) OnResolveStart(context.Context, string, string, string) {}

func (f *fetchCounter) OnResolveComplete(context.Context, string, string, int, time.Duration, error) {
}

func (f *fetchCounter) OnFetch(_ context.Context, _, _ string, _ time.Duration, err error) {
	if err != nil {
		f.failed.Add(1)
	} else {
		f.fetched.Add(1)
	}
	if f.notify != nil {
		f.notify(f.fetched.Load(), f.failed.Load())
	}
}
