// Package core provides the foundational domain types shared by graphs,
// gateways and tools:
//
//   - Message, ToolCall and ToolResult (the only data threaded through a run)
//   - the error taxonomy (ProviderError, ToolNotFoundError, ToolExecutionError,
//     NonConvergenceError)
//   - ToolContext, the scoped surface handed to tool implementations
//   - StepLimiter, the per-run step budget
//
// The package keeps implementation concerns (providers, persistence, HTTP) out
// of scope so every other package can depend on it.
package core
