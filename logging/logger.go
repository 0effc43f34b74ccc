// Package logging keeps downstream code on a minimal Logger interface so any
// structured logger can be plugged in. Adapters exist for slog and zerolog.
// GraphLogger layers domain helpers for model calls, tool calls, graph nodes,
// routing decisions and whole runs on top of a Logger.
package logging

import (
	"fmt"
	"log/slog"
	"strings"
	"time"
)

// LogLevel is a thin enum for user friendly level configuration decoupled
// from any concrete backend.
type LogLevel int

const (
	// LogLevelDebug is the debug logging level.
	LogLevelDebug LogLevel = iota
	// LogLevelInfo is the informational logging level.
	LogLevelInfo
	// LogLevelWarn is the warning logging level.
	LogLevelWarn
	// LogLevelError is the error logging level.
	LogLevelError
)

// String returns the string representation of the log level.
func (l LogLevel) String() string {
	switch l {
	case LogLevelDebug:
		return "DEBUG"
	case LogLevelInfo:
		return "INFO"
	case LogLevelWarn:
		return "WARN"
	case LogLevelError:
		return "ERROR"
	default:
		return "UNKNOWN"
	}
}

// ParseLevel maps a case-insensitive level name to a LogLevel. Unknown names
// yield LogLevelInfo and an error.
func ParseLevel(s string) (LogLevel, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug", "trace":
		return LogLevelDebug, nil
	case "", "info", "success":
		return LogLevelInfo, nil
	case "warn", "warning":
		return LogLevelWarn, nil
	case "error":
		return LogLevelError, nil
	default:
		return LogLevelInfo, fmt.Errorf("unknown log level %q", s)
	}
}

// Logger defines the minimal logging interface used across the module.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// SlogAdapter wraps *slog.Logger to implement the Logger interface.
type SlogAdapter struct {
	*slog.Logger
}

// Debug logs a debug message.
func (s *SlogAdapter) Debug(msg string, args ...any) { s.Logger.Debug(msg, args...) }

// Info logs an informational message.
func (s *SlogAdapter) Info(msg string, args ...any) { s.Logger.Info(msg, args...) }

// Warn logs a warning message.
func (s *SlogAdapter) Warn(msg string, args ...any) { s.Logger.Warn(msg, args...) }

// Error logs an error message.
func (s *SlogAdapter) Error(msg string, args ...any) { s.Logger.Error(msg, args...) }

// NewSlogAdapter creates a Logger from *slog.Logger.
func NewSlogAdapter(logger *slog.Logger) Logger {
	return &SlogAdapter{Logger: logger}
}

// NewDefaultSlogLogger creates a Logger using slog.Default().
func NewDefaultSlogLogger() Logger {
	return NewSlogAdapter(slog.Default())
}

// NoOpLogger discards all log messages. Useful for testing or when logging is disabled.
type NoOpLogger struct{}

// Debug logs a debug message.
func (NoOpLogger) Debug(string, ...any) {}

// Info logs an informational message.
func (NoOpLogger) Info(string, ...any) {}

// Warn logs a warning message.
func (NoOpLogger) Warn(string, ...any) {}

// Error logs an error message.
func (NoOpLogger) Error(string, ...any) {}

// GraphLogger decorates a Logger with fixed context attributes and domain
// helpers. Copies are cheap; With* methods never mutate the receiver.
type GraphLogger struct {
	logger    Logger
	component string
	attrs     []any
}

// NewGraphLogger wraps l. A nil logger is replaced with NoOpLogger.
func NewGraphLogger(l Logger) *GraphLogger {
	if l == nil {
		l = NoOpLogger{}
	}

	return &GraphLogger{logger: l}
}

// WithComponent sets the logical component (graph, tool, model, server).
func (l *GraphLogger) WithComponent(c string) *GraphLogger {
	nl := l.clone()
	nl.component = c

	return nl
}

// WithContext adds a key/value attribute that is attached to every entry.
func (l *GraphLogger) WithContext(key string, value any) *GraphLogger {
	nl := l.clone()
	nl.attrs = append(nl.attrs, key, value)

	return nl
}

// WithRun attaches the run and user identifiers.
func (l *GraphLogger) WithRun(runID, userID string) *GraphLogger {
	return l.WithContext("run_id", runID).WithContext("user_id", userID)
}

func (l *GraphLogger) clone() *GraphLogger {
	nl := *l
	nl.attrs = append([]any(nil), l.attrs...)

	return &nl
}

func (l *GraphLogger) with(args []any) []any {
	out := make([]any, 0, len(l.attrs)+len(args)+2)
	if l.component != "" {
		out = append(out, "component", l.component)
	}

	out = append(out, l.attrs...)

	return append(out, args...)
}

// Debug logs at debug level.
func (l *GraphLogger) Debug(msg string, args ...any) { l.logger.Debug(msg, l.with(args)...) }

// Info logs at info level.
func (l *GraphLogger) Info(msg string, args ...any) { l.logger.Info(msg, l.with(args)...) }

// Warn logs at warn level.
func (l *GraphLogger) Warn(msg string, args ...any) { l.logger.Warn(msg, l.with(args)...) }

// Error logs at error level.
func (l *GraphLogger) Error(msg string, args ...any) { l.logger.Error(msg, l.with(args)...) }

// LogToolCall records execution details for a tool invocation.
func (l *GraphLogger) LogToolCall(tool, callID string, dur time.Duration, err error) {
	if err != nil {
		l.Error("tool.call.failed", "tool_name", tool, "call_id", callID, "duration", dur, "error", err.Error())
		return
	}

	l.Info("tool.call.completed", "tool_name", tool, "call_id", callID, "duration", dur)
}

// LogModelCall records model call latency and outcome.
func (l *GraphLogger) LogModelCall(model string, toolCalls int, dur time.Duration, err error) {
	if err != nil {
		l.Error("model.call.failed", "model", model, "duration", dur, "error", err.Error())
		return
	}

	l.Info("model.call.completed", "model", model, "tool_calls", toolCalls, "duration", dur)
}

// LogNodeExecution records a single graph step.
func (l *GraphLogger) LogNodeExecution(node string, step int, dur time.Duration, err error) {
	if err != nil {
		l.Error("graph.node.failed", "node", node, "step", step, "duration", dur, "error", err.Error())
		return
	}

	l.Debug("graph.node.completed", "node", node, "step", step, "duration", dur)
}

// LogRoute records a routing decision and the raw text it was parsed from.
func (l *GraphLogger) LogRoute(coordinator, decision, raw string) {
	l.Info("graph.route", "coordinator", coordinator, "decision", decision, "raw", raw)
}

// LogRun records aggregate run metrics.
func (l *GraphLogger) LogRun(agent string, steps int, dur time.Duration, err error) {
	if err != nil {
		l.Error("graph.run.failed", "agent", agent, "steps", steps, "duration", dur, "error", err.Error())
		return
	}

	l.Info("graph.run.completed", "agent", agent, "steps", steps, "duration", dur)
}

// StartTimer returns a closure that logs the elapsed duration when invoked.
func (l *GraphLogger) StartTimer(op string) func() {
	start := time.Now()
	return func() { l.Debug("operation.completed", "operation", op, "duration", time.Since(start)) }
}
