package graph

import (
	"context"
	"errors"
	"strings"

	"github.com/hupe1980/roundtable/core"
	"github.com/hupe1980/roundtable/tool"
)

// Agent is the node contract the graph drives. *agent.Node implements it.
type Agent interface {
	ID() string
	Next() string
	Entry() bool
	Invoke(ctx context.Context, state core.StateView) (core.Message, error)
}

// ToolRunner executes a tool call on behalf of an agent and always returns a
// tool result message. *tool.Executor implements it.
type ToolRunner interface {
	Execute(ctx context.Context, agent string, call core.ToolCall) core.Message
}

// Builder collects nodes and validates them into a Graph.
//
// Example:
//
//	g, err := graph.NewBuilder().
//	    AddAgent(researcher).
//	    AddAgent(writer).
//	    SetToolNode(executor).
//	    Compile()
type Builder struct {
	agents []Agent
	tools  ToolRunner
}

// NewBuilder creates an empty builder.
func NewBuilder() *Builder { return &Builder{} }

// AddAgent appends agent nodes (chainable). Validation is deferred to Compile.
func (b *Builder) AddAgent(agents ...Agent) *Builder {
	b.agents = append(b.agents, agents...)
	return b
}

// SetToolNode sets the tool runner (chainable). Without one, every tool call
// yields a NOT_FOUND tool result.
func (b *Builder) SetToolNode(r ToolRunner) *Builder {
	b.tools = r
	return b
}

// Compile validates the declaration and produces an immutable Graph.
//
// All problems are reported at once, joined with errors.Join. Each one is a
// *core.ConfigurationError wrapping a core sentinel:
//   - core.ErrDuplicateNode: two agents share a name
//   - core.ErrReservedNodeName: an agent is named ToolNode or End
//   - core.ErrUnknownNextAgent: a next-agent names no declared agent
//   - core.ErrNoEntryPoint / core.ErrMultipleEntryPoints: entry count is not one
func (b *Builder) Compile() (*Graph, error) {
	var (
		errs    []error
		entries []string
		nodes   = make(map[string]Agent, len(b.agents))
		order   = make([]string, 0, len(b.agents))
	)

	for _, a := range b.agents {
		id := a.ID()
		switch {
		case id == ToolNode || id == End:
			errs = append(errs, core.NewConfigurationError(id, core.ErrReservedNodeName))
			continue
		case nodes[id] != nil:
			errs = append(errs, core.NewConfigurationError(id, core.ErrDuplicateNode))
			continue
		}
		nodes[id] = a
		order = append(order, id)
		if a.Entry() {
			entries = append(entries, id)
		}
	}

	tables := make(map[string]RouteTable, len(order))
	for _, id := range order {
		next := nodes[id].Next()
		if next != End && nodes[next] == nil {
			errs = append(errs, core.NewConfigurationError(id+" -> "+next, core.ErrUnknownNextAgent))
			continue
		}
		tables[id] = RouteTable{Next: next}
	}

	switch len(entries) {
	case 1:
	case 0:
		errs = append(errs, core.NewConfigurationError("", core.ErrNoEntryPoint))
	default:
		errs = append(errs, core.NewConfigurationError(strings.Join(entries, ", "), core.ErrMultipleEntryPoints))
	}

	if len(errs) > 0 {
		return nil, errors.Join(errs...)
	}

	tools := b.tools
	if tools == nil {
		tools = tool.NewExecutor(tool.NewRegistry(), nil)
	}

	return &Graph{
		nodes:  nodes,
		order:  order,
		entry:  entries[0],
		tables: tables,
		tools:  tools,
	}, nil
}

// Graph is a compiled, immutable workflow. It is safe for concurrent runs.
type Graph struct {
	nodes  map[string]Agent
	order  []string
	entry  string
	tables map[string]RouteTable
	tools  ToolRunner
}

// Entry returns the entry agent's name.
func (g *Graph) Entry() string { return g.entry }

// Agents returns agent names in declaration order.
func (g *Graph) Agents() []string { return append([]string(nil), g.order...) }

// Agent returns the named agent node.
func (g *Graph) Agent(name string) (Agent, bool) {
	a, ok := g.nodes[name]
	return a, ok
}

// Table returns the route table of an agent.
func (g *Graph) Table(name string) (RouteTable, bool) {
	t, ok := g.tables[name]
	return t, ok
}

// Edge is a labeled transition of the compiled graph.
type Edge struct {
	From  string
	To    string
	Label string
}

// Edges lists every transition: for each agent its continue, tool and end
// edges, then the conditional return edges from the tool node.
func (g *Graph) Edges() []Edge {
	edges := make([]Edge, 0, len(g.order)*4)
	for _, id := range g.order {
		t := g.tables[id]
		edges = append(edges,
			Edge{From: id, To: t.Next, Label: OutcomeContinue.String()},
			Edge{From: id, To: ToolNode, Label: OutcomeInvokeTool.String()},
			Edge{From: id, To: End, Label: OutcomeEnd.String()},
		)
	}
	for _, id := range g.order {
		edges = append(edges, Edge{From: ToolNode, To: id, Label: "sender"})
	}
	return edges
}
