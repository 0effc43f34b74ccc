// Package logging provides a minimal logging interface and adapters.
//
// The Logger interface defines the standard logging methods (Debug, Info, Warn, Error)
// that graphs, tools and gateways use for observability. This package includes:
//
//   - Logger interface for dependency injection
//   - ZerologAdapter, the production default (json or console output)
//   - SlogAdapter wrapping Go's structured logging
//   - NoOpLogger for silent operation in tests
//   - GraphLogger with dotted domain events (model.call.completed, tool.call.failed)
//
// Usage:
//
//	logger := logging.NewZerologLogger(logging.Config{Level: logging.LogLevelInfo, Format: "json"})
//	g, err := graph.NewToolLoop(gateway, registry, func(o *graph.ToolLoopOptions) { o.Logger = logger })
package logging
