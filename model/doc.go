// Package model defines the provider-agnostic abstractions for talking to
// language models inside roundtable.
//
// Core goals:
//   - Unify streaming and non-streaming generation behind a single interface
//   - Normalize tool definitions and tool call requests across vendors
//   - Keep request/response shapes minimal and transport independent
//   - Facilitate deterministic test doubles (ScriptedModel)
//
// Providers (openai, anthropic, gemini, ollama) implement Model in their own
// sub-packages so agents and the graph engine stay decoupled from vendor SDKs.
// Cross-cutting behavior (metrics, token tracking) is layered with Middleware.
package model
