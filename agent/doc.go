// Package agent implements the agent node of a conference: a named worker
// bound to a language model, a system prompt and a set of advertised tools.
//
// Each invocation reads the shared conversation, asks the model for exactly
// one reply and returns it as a classified core.Message:
//
//   - a reply carrying a tool call becomes core.KindToolCall
//   - a reply containing core.TerminalMarker becomes core.KindTerminal
//   - anything else is core.KindPlain
//
// Nodes are immutable once constructed and may serve many concurrent runs.
package agent
