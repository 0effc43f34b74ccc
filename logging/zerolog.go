package logging

import (
	"io"
	"os"

	"github.com/rs/zerolog"
)

// ZerologAdapter wraps zerolog.Logger to implement the Logger interface.
// Key/value args are attached as fields.
type ZerologAdapter struct {
	zl zerolog.Logger
}

// NewZerologAdapter creates a Logger from a zerolog.Logger.
func NewZerologAdapter(zl zerolog.Logger) *ZerologAdapter {
	return &ZerologAdapter{zl: zl}
}

// Debug logs a debug message.
func (z *ZerologAdapter) Debug(msg string, args ...any) { emit(z.zl.Debug(), msg, args) }

// Info logs an informational message.
func (z *ZerologAdapter) Info(msg string, args ...any) { emit(z.zl.Info(), msg, args) }

// Warn logs a warning message.
func (z *ZerologAdapter) Warn(msg string, args ...any) { emit(z.zl.Warn(), msg, args) }

// Error logs an error message.
func (z *ZerologAdapter) Error(msg string, args ...any) { emit(z.zl.Error(), msg, args) }

func emit(e *zerolog.Event, msg string, args []any) {
	if len(args) > 0 {
		if len(args)%2 != 0 {
			args = append(args, "(MISSING)")
		}

		e = e.Fields(args)
	}

	e.Msg(msg)
}

// Config configures construction of a zerolog backed Logger.
type Config struct {
	Level  LogLevel
	Format string // json or console
	Output io.Writer
}

// NewZerologLogger builds a Logger from cfg. Console format writes human
// readable lines with caller info, json writes one object per line.
func NewZerologLogger(cfg Config) *ZerologAdapter {
	out := cfg.Output
	if out == nil {
		out = os.Stdout
	}

	var zl zerolog.Logger
	if cfg.Format == "console" {
		zl = zerolog.New(zerolog.ConsoleWriter{Out: out}).With().Timestamp().Caller().Logger()
	} else {
		zl = zerolog.New(out).With().Timestamp().Logger()
	}

	return NewZerologAdapter(zl.Level(zerologLevel(cfg.Level)))
}

func zerologLevel(l LogLevel) zerolog.Level {
	switch l {
	case LogLevelDebug:
		return zerolog.DebugLevel
	case LogLevelWarn:
		return zerolog.WarnLevel
	case LogLevelError:
		return zerolog.ErrorLevel
	default:
		return zerolog.InfoLevel
	}
}
