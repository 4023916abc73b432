// Package graph wires agent nodes and the tool node into a compiled
// workflow and drives a conversation through it.
//
// A Graph is built once with a Builder and reused for many runs. Each run
// owns its own core.State; nothing mutable is shared between runs.
//
// Control flow after every agent step is decided by two pure pieces:
//
//  1. Route classifies the last message into an Outcome
//  2. the agent's RouteTable resolves that Outcome into a Decision
//
// The tool node hands control back to the agent that requested the tool.
// A run ends on the End decision, on budget exhaustion, on a model failure,
// on context cancellation, or when the consumer stops iterating.
package graph
