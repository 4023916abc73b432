package graph

import "github.com/hupe1980/roundtable/core"

// Reserved node names.
const (
	// ToolNode is the name of the single tool execution node.
	ToolNode = "ToolKit"
	// End is the terminal pseudo-state. A Continue decision targeting End
	// finishes the run.
	End = "__end__"
)

// Outcome is the router's classification of an agent reply.
type Outcome int

const (
	// OutcomeContinue passes control to the agent's next agent.
	OutcomeContinue Outcome = iota
	// OutcomeInvokeTool passes control to the tool node.
	OutcomeInvokeTool
	// OutcomeEnd finishes the run.
	OutcomeEnd
)

func (o Outcome) String() string {
	switch o {
	case OutcomeContinue:
		return "continue"
	case OutcomeInvokeTool:
		return "invoke_tool"
	case OutcomeEnd:
		return "end"
	default:
		return "unknown"
	}
}

// Route classifies the last message of the conversation. A tool call wins
// over the terminal marker; anything else continues.
func Route(last core.Message) Outcome {
	switch last.Kind {
	case core.KindToolCall:
		return OutcomeInvokeTool
	case core.KindTerminal:
		return OutcomeEnd
	default:
		return OutcomeContinue
	}
}

// Decision is the closed set of routing results: Continue, InvokeTool or
// EndRun. Use a type switch to consume it.
type Decision interface {
	isDecision()
	// Target returns the node that runs next, or End.
	Target() string
}

// Continue hands control to another agent.
type Continue struct{ Next string }

// InvokeTool hands control to the tool node.
type InvokeTool struct{}

// EndRun finishes the run.
type EndRun struct{}

func (Continue) isDecision()   {}
func (InvokeTool) isDecision() {}
func (EndRun) isDecision()     {}

// Target implements Decision.
func (c Continue) Target() string { return c.Next }

// Target implements Decision.
func (InvokeTool) Target() string { return ToolNode }

// Target implements Decision.
func (EndRun) Target() string { return End }

// RouteTable maps every Outcome of one agent to a Decision. Compile builds
// one per agent, so every table covers all three outcomes.
type RouteTable struct {
	Next string
}

// Resolve maps an outcome to a decision. Unknown outcomes continue.
func (t RouteTable) Resolve(o Outcome) Decision {
	switch o {
	case OutcomeInvokeTool:
		return InvokeTool{}
	case OutcomeEnd:
		return EndRun{}
	default:
		return Continue{Next: t.Next}
	}
}
