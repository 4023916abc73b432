// Package core provides the foundational domain types shared by every layer of
// roundtable:
//
//   - Message (a tagged reply: plain, tool call, terminal, tool result, user)
//   - State (the append-only conversation record of a single run)
//   - Event (the role/content record streamed to callers)
//   - StepLimiter (step budget accounting)
//   - ConfigurationError and friends (build-time failures)
//
// The package has no dependencies on models, tools or the graph engine so that
// all of them can share one vocabulary.
package core
