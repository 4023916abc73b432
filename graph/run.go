package graph

import (
	"context"
	"iter"
	"sync"
	"time"

	"github.com/hupe1980/roundtable/core"
	"github.com/hupe1980/roundtable/logging"
)

// DefaultBudget is the step budget used when none is given.
const DefaultBudget = 20

// StopReason records why a run ended.
type StopReason string

const (
	StopNone       StopReason = ""            // Run has not finished
	StopEnd        StopReason = "end"         // An agent emitted the terminal marker or routed to End
	StopBudget     StopReason = "budget"      // The step budget was spent
	StopCanceled   StopReason = "canceled"    // The context was canceled
	StopModelError StopReason = "model_error" // A model call failed
	StopConsumer   StopReason = "consumer"    // The caller stopped iterating
)

// RunOptions configure a single run.
type RunOptions struct {
	RunID  string // Generated when empty
	Budget int    // Maximum node executions; <= 0 means DefaultBudget
	Logger logging.Logger
	Hooks  Hooks
}

// Step is one node execution: the node that ran, the message it produced and
// where control goes next.
type Step struct {
	Index    int          // 1-based execution count
	Node     string       // Executed node: an agent name or ToolNode
	Agent    string       // Acting agent; for tool steps the agent that requested the call
	Message  core.Message // The single message appended by this step
	Next     string       // Node scheduled next, End when the run finishes here
	Duration time.Duration
}

// RunResult summarizes a finished run.
type RunResult struct {
	RunID      string
	Stop       StopReason
	Steps      int
	Budget     int
	Err        error // Model or context error behind StopModelError / StopCanceled
	Duration   time.Duration
	Transcript []core.Message
}

// Run is a single pass through the graph. Its step sequence is lazy: each
// pull executes one node. The sequence can be consumed once.
type Run struct {
	g      *Graph
	ctx    context.Context
	seed   []core.Message
	opts   RunOptions
	logger logging.Logger

	mu      sync.Mutex
	started bool
	result  RunResult
}

// Run prepares a run seeded with msgs. Nothing executes until Steps is
// iterated.
func (g *Graph) Run(ctx context.Context, seed []core.Message, optFns ...func(o *RunOptions)) *Run {
	opts := RunOptions{Logger: logging.NoOpLogger{}}
	for _, fn := range optFns {
		fn(&opts)
	}
	if opts.RunID == "" {
		opts.RunID = core.NewID()
	}
	if opts.Budget <= 0 {
		opts.Budget = DefaultBudget
	}

	return &Run{
		g:      g,
		ctx:    ctx,
		seed:   append([]core.Message(nil), seed...),
		opts:   opts,
		logger: logging.OrNoOp(opts.Logger),
		result: RunResult{RunID: opts.RunID, Budget: opts.Budget},
	}
}

// ID returns the run id.
func (r *Run) ID() string { return r.opts.RunID }

// Result returns the run summary. Stop is StopNone until the step sequence
// has finished.
func (r *Run) Result() RunResult {
	r.mu.Lock()
	defer r.mu.Unlock()
	res := r.result
	res.Transcript = append([]core.Message(nil), r.result.Transcript...)
	return res
}

// Steps returns the lazy step sequence. A second iteration yields nothing.
func (r *Run) Steps() iter.Seq[Step] {
	return func(yield func(Step) bool) {
		r.mu.Lock()
		if r.started {
			r.mu.Unlock()
			return
		}
		r.started = true
		r.mu.Unlock()

		r.loop(yield)
	}
}

func (r *Run) loop(yield func(Step) bool) {
	var (
		ctx     = r.ctx
		g       = r.g
		state   = core.NewState(r.seed...)
		limiter = core.NewStepLimiter(r.opts.Budget)
		current = g.entry
		start   = time.Now()
	)

	r.logger.Debug("graph.run.start", "run_id", r.opts.RunID, "entry", current, "budget", r.opts.Budget)

	finish := func(stop StopReason, err error) {
		r.mu.Lock()
		r.result.Stop = stop
		r.result.Err = err
		r.result.Steps = limiter.Count()
		r.result.Budget = limiter.Max()
		r.result.Duration = time.Since(start)
		r.result.Transcript = state.Messages()
		res := r.result
		r.mu.Unlock()

		r.logger.Info("graph.run.complete",
			"run_id", r.opts.RunID,
			"stop", string(stop),
			"steps", res.Steps,
			"messages", len(res.Transcript),
		)
		logRunExecution(r.logger, string(stop), res.Steps, res.Duration, err)
		r.opts.Hooks.runEnd(ctx, res)
	}

	for {
		if err := ctx.Err(); err != nil {
			finish(StopCanceled, err)
			return
		}
		if current == End {
			finish(StopEnd, nil)
			return
		}
		if err := limiter.Take(); err != nil {
			r.logger.Warn("graph.run.budget_exhausted", "run_id", r.opts.RunID, "budget", r.opts.Budget)
			finish(StopBudget, nil)
			return
		}

		var (
			step Step
			stop StopReason
			err  error
		)
		if current == ToolNode {
			step = r.toolStep(ctx, state, limiter.Count())
		} else {
			step, stop, err = r.agentStep(ctx, state, current, limiter.Count())
		}

		if stop == StopCanceled {
			finish(StopCanceled, err)
			return
		}

		if !yield(step) {
			finish(StopConsumer, nil)
			return
		}

		if stop == StopModelError {
			finish(StopModelError, err)
			return
		}

		current = step.Next
	}
}

func (r *Run) agentStep(ctx context.Context, state *core.State, name string, index int) (Step, StopReason, error) {
	node := r.g.nodes[name]
	r.logger.Debug("graph.step.start", "run_id", r.opts.RunID, "step", index, "node", name)
	r.opts.Hooks.nodeEnter(ctx, &NodeEvent{RunID: r.opts.RunID, Step: index, Node: name, Kind: NodeKindAgent})

	start := time.Now()
	msg, err := node.Invoke(ctx, state)
	dur := time.Since(start)

	if err != nil {
		if ctx.Err() != nil {
			r.opts.Hooks.nodeLeave(ctx, &NodeEvent{RunID: r.opts.RunID, Step: index, Node: name, Kind: NodeKindAgent, Duration: dur, Err: err})
			return Step{}, StopCanceled, ctx.Err()
		}
		r.logger.Error("graph.step.model_error", "run_id", r.opts.RunID, "node", name, "error", err.Error())
		msg = core.NewErrorReply(name, err)
	}

	state.Apply(core.Delta{Messages: []core.Message{msg}, Sender: name})

	next := End
	if err == nil {
		next = r.g.tables[name].Resolve(Route(msg)).Target()
	}

	r.opts.Hooks.nodeLeave(ctx, &NodeEvent{
		RunID: r.opts.RunID, Step: index, Node: name, Kind: NodeKindAgent,
		Message: &msg, Duration: dur, Err: err,
	})
	r.logger.Debug("graph.step.complete", "run_id", r.opts.RunID, "step", index, "node", name, "kind", msg.Kind.String(), "next", next)

	step := Step{Index: index, Node: name, Agent: name, Message: msg, Next: next, Duration: dur}
	if err != nil {
		return step, StopModelError, err
	}
	return step, StopNone, nil
}

// toolStep executes the pending call of the last message. Control returns to
// the agent recorded as sender.
func (r *Run) toolStep(ctx context.Context, state *core.State, index int) Step {
	caller := state.Sender()
	last, _ := state.Last()
	var call core.ToolCall
	if last.ToolCall != nil {
		call = *last.ToolCall
	}

	r.logger.Debug("graph.step.start", "run_id", r.opts.RunID, "step", index, "node", ToolNode, "tool", call.Name, "agent", caller)
	r.opts.Hooks.nodeEnter(ctx, &NodeEvent{RunID: r.opts.RunID, Step: index, Node: ToolNode, Kind: NodeKindTool})
	r.opts.Hooks.toolCall(ctx, &ToolEvent{RunID: r.opts.RunID, Step: index, Agent: caller, Call: call})

	start := time.Now()
	msg := r.g.tools.Execute(ctx, caller, call)
	dur := time.Since(start)

	state.Apply(core.Delta{Messages: []core.Message{msg}})

	r.opts.Hooks.toolReturn(ctx, &ToolEvent{RunID: r.opts.RunID, Step: index, Agent: caller, Call: call, Result: &msg, Duration: dur})
	r.opts.Hooks.nodeLeave(ctx, &NodeEvent{RunID: r.opts.RunID, Step: index, Node: ToolNode, Kind: NodeKindTool, Message: &msg, Duration: dur})
	r.logger.Debug("graph.step.complete", "run_id", r.opts.RunID, "step", index, "node", ToolNode, "failed", msg.Failed, "next", caller)

	return Step{Index: index, Node: ToolNode, Agent: caller, Message: msg, Next: caller, Duration: dur}
}

// runLogger is implemented by loggers with a dedicated run summary helper,
// such as logging.ConferenceLogger.
type runLogger interface {
	LogRunExecution(stop string, steps int, dur time.Duration, err error)
}

func logRunExecution(l logging.Logger, stop string, steps int, dur time.Duration, err error) {
	if rl, ok := l.(runLogger); ok {
		rl.LogRunExecution(stop, steps, dur, err)
	}
}
