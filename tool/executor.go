package tool

import (
	"context"
	"fmt"

	"github.com/hupe1980/roundtable/core"
)

// Executor runs tool calls on behalf of agents. It enforces each agent's
// tool allowlist before delegating to the Registry.
type Executor struct {
	registry *Registry
	allowed  map[string]map[string]struct{}
}

// NewExecutor creates an executor over registry. allowed maps an agent id to
// the tool names it may call; agents missing from the map may call any tool.
func NewExecutor(registry *Registry, allowed map[string][]string) *Executor {
	sets := make(map[string]map[string]struct{}, len(allowed))
	for agent, names := range allowed {
		set := make(map[string]struct{}, len(names))
		for _, n := range names {
			set[n] = struct{}{}
		}
		sets[agent] = set
	}
	return &Executor{registry: registry, allowed: sets}
}

// Registry returns the underlying registry.
func (e *Executor) Registry() *Registry { return e.registry }

// Allows reports whether agent may call the named tool.
func (e *Executor) Allows(agent, name string) bool {
	set, restricted := e.allowed[agent]
	if !restricted {
		return true
	}
	_, ok := set[name]
	return ok
}

// Execute runs call for agent and returns the tool result message.
func (e *Executor) Execute(ctx context.Context, agent string, call core.ToolCall) core.Message {
	if !e.Allows(agent, call.Name) {
		err := NewToolError(call.Name, fmt.Sprintf("agent %q may not call this tool", agent), CodeNotAllowed)
		return core.NewToolResult(call.Name, call.ID, ErrorPrefix+err.Error(), true)
	}
	ctx = WithCallInfo(ctx, CallInfo{Agent: agent, CallID: call.ID, Tool: call.Name})
	return e.registry.Execute(ctx, call)
}
