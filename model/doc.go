// Package model defines the provider-agnostic gateway abstraction and the
// helpers around it.
//
//   - Model: "generate one assistant reply given a history and optional tools"
//   - Safe: converts provider failures into a readable assistant message
//   - Lazy: single-flight, retry-on-failure lazy construction of clients
//   - Scripted: a deterministic stand-in for tests and examples
//
// Providers (openai, anthropic, gemini) live in sub-packages so higher layers
// stay decoupled from vendor SDKs.
package model
