package graph

import (
	"context"
	"time"

	"github.com/hupe1980/roundtable/core"
)

// NodeKind distinguishes agent steps from tool steps.
type NodeKind string

const (
	NodeKindAgent NodeKind = "agent"
	NodeKindTool  NodeKind = "tool"
)

// NodeEvent describes entry into or exit from a node.
type NodeEvent struct {
	RunID    string
	Step     int
	Node     string
	Kind     NodeKind
	Message  *core.Message // Produced message; set on leave only
	Duration time.Duration // Set on leave only
	Err      error         // Model failure; set on leave only
}

// ToolEvent describes a tool execution requested by Agent.
type ToolEvent struct {
	RunID    string
	Step     int
	Agent    string
	Call     core.ToolCall
	Result   *core.Message // Set on return only
	Duration time.Duration // Set on return only
}

// Hooks are optional callbacks invoked synchronously by the run loop.
// They observe the run; they cannot alter it.
type Hooks struct {
	OnNodeEnter  func(context.Context, *NodeEvent)
	OnNodeLeave  func(context.Context, *NodeEvent)
	OnToolCall   func(context.Context, *ToolEvent)
	OnToolReturn func(context.Context, *ToolEvent)
	OnRunEnd     func(context.Context, RunResult)
}

// MergeHooks combines hooks so each callback fans out in argument order.
func MergeHooks(hooks ...Hooks) Hooks {
	var out Hooks
	for _, h := range hooks {
		out.OnNodeEnter = chain(out.OnNodeEnter, h.OnNodeEnter)
		out.OnNodeLeave = chain(out.OnNodeLeave, h.OnNodeLeave)
		out.OnToolCall = chain(out.OnToolCall, h.OnToolCall)
		out.OnToolReturn = chain(out.OnToolReturn, h.OnToolReturn)
		out.OnRunEnd = chain(out.OnRunEnd, h.OnRunEnd)
	}
	return out
}

func chain[T any](a, b func(context.Context, T)) func(context.Context, T) {
	switch {
	case a == nil:
		return b
	case b == nil:
		return a
	}
	return func(ctx context.Context, v T) {
		a(ctx, v)
		b(ctx, v)
	}
}

func (h Hooks) nodeEnter(ctx context.Context, e *NodeEvent) {
	if h.OnNodeEnter != nil {
		h.OnNodeEnter(ctx, e)
	}
}

func (h Hooks) nodeLeave(ctx context.Context, e *NodeEvent) {
	if h.OnNodeLeave != nil {
		h.OnNodeLeave(ctx, e)
	}
}

func (h Hooks) toolCall(ctx context.Context, e *ToolEvent) {
	if h.OnToolCall != nil {
		h.OnToolCall(ctx, e)
	}
}

func (h Hooks) toolReturn(ctx context.Context, e *ToolEvent) {
	if h.OnToolReturn != nil {
		h.OnToolReturn(ctx, e)
	}
}

func (h Hooks) runEnd(ctx context.Context, r RunResult) {
	if h.OnRunEnd != nil {
		h.OnRunEnd(ctx, r)
	}
}
