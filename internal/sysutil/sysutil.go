// Package sysutil holds process-level helpers used by the server binary:
// logger setup and background maintenance loops.
package sysutil

import (
	"context"
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// ParseLevel maps a configured level name to a zerolog level.
// Supported values (case-insensitive): debug, info, warn|warning, error,
// fatal, panic. Anything else is info.
func ParseLevel(lvl string) zerolog.Level {
	switch strings.ToLower(strings.TrimSpace(lvl)) {
	case "debug":
		return zerolog.DebugLevel
	case "warn", "warning":
		return zerolog.WarnLevel
	case "error":
		return zerolog.ErrorLevel
	case "fatal":
		return zerolog.FatalLevel
	case "panic":
		return zerolog.PanicLevel
	default:
		return zerolog.InfoLevel
	}
}

// LogOptions configures NewLogger.
type LogOptions struct {
	Level   string
	Pretty  bool
	Service string
	Version string
	// Out defaults to os.Stdout.
	Out io.Writer
}

// NewLogger sets the global level and builds the process logger. The result
// also becomes zerolog.DefaultContextLogger, so zerolog.Ctx on a context
// without a request logger still writes somewhere useful.
func NewLogger(o LogOptions) zerolog.Logger {
	zerolog.SetGlobalLevel(ParseLevel(o.Level))
	zerolog.TimeFieldFormat = time.RFC3339Nano

	out := o.Out
	if out == nil {
		out = os.Stdout
	}
	if o.Pretty {
		out = zerolog.ConsoleWriter{Out: out, TimeFormat: "15:04:05.000"}
	}

	ctx := zerolog.New(out).With().Timestamp()
	if o.Service != "" {
		ctx = ctx.Str("service", o.Service)
	}
	if o.Version != "" {
		ctx = ctx.Str("version", o.Version)
	}
	l := ctx.Logger()
	zerolog.DefaultContextLogger = &l
	return l
}

// RunEvery calls fn every interval until ctx is cancelled. The first call
// happens after one interval. Non-positive intervals disable the loop.
func RunEvery(ctx context.Context, interval time.Duration, fn func(context.Context)) {
	if interval <= 0 {
		return
	}
	t := time.NewTicker(interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			fn(ctx)
		}
	}
}
