package graph

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/roundtable/core"
	"github.com/hupe1980/roundtable/model"
	"github.com/hupe1980/roundtable/tool"
)

func echoExecutor(t *testing.T) *tool.Executor {
	t.Helper()
	reg := tool.NewRegistry()
	require.NoError(t, reg.Register(tool.NewStringTool("echo", "Echo the input", "text",
		func(_ context.Context, in string) (any, error) { return in, nil })))
	return tool.NewExecutor(reg, nil)
}

func seed(text string) []core.Message { return []core.Message{core.NewUserMessage(text)} }

func collect(r *Run) []Step {
	var steps []Step
	for s := range r.Steps() {
		steps = append(steps, s)
	}
	return steps
}

func TestRun_TwoAgentsHandOff(t *testing.T) {
	m := model.NewScriptedModel().
		For("A", model.Text("hi")).
		For("B", model.Text("FINAL ANSWER done"))

	g, err := NewBuilder().
		AddAgent(newAgent(t, "A", "B", true, m), newAgent(t, "B", "A", false, m)).
		Compile()
	require.NoError(t, err)

	run := g.Run(context.Background(), seed("go"))
	steps := collect(run)

	require.Len(t, steps, 2)
	assert.Equal(t, "A", steps[0].Node)
	assert.Equal(t, "hi", steps[0].Message.Content)
	assert.Equal(t, "B", steps[0].Next)
	assert.Equal(t, "B", steps[1].Node)
	assert.Equal(t, "FINAL ANSWER done", steps[1].Message.Content)
	assert.Equal(t, End, steps[1].Next)

	res := run.Result()
	assert.Equal(t, StopEnd, res.Stop)
	assert.Equal(t, 2, res.Steps)
	assert.NoError(t, res.Err)
	assert.Len(t, res.Transcript, 3)
}

func TestRun_ToolRoundTrip(t *testing.T) {
	m := model.NewScriptedModel(
		model.Call("echo", "hi"),
		model.Final("hi"),
	)
	g, err := NewBuilder().
		AddAgent(newAgent(t, "A", "A", true, m)).
		SetToolNode(echoExecutor(t)).
		Compile()
	require.NoError(t, err)

	run := g.Run(context.Background(), seed("say hi"))
	steps := collect(run)

	require.Len(t, steps, 3)
	assert.Equal(t, core.KindToolCall, steps[0].Message.Kind)
	assert.Equal(t, ToolNode, steps[0].Next)

	assert.Equal(t, ToolNode, steps[1].Node)
	assert.Equal(t, "A", steps[1].Agent)
	assert.Equal(t, "hi", steps[1].Message.Content)
	assert.Equal(t, "echo", steps[1].Message.Name)
	assert.Equal(t, steps[0].Message.ToolCall.ID, steps[1].Message.CallID)
	assert.Equal(t, "A", steps[1].Next)

	assert.Equal(t, "FINAL ANSWER: hi", steps[2].Message.Content)
	assert.Equal(t, StopEnd, run.Result().Stop)

	// The second model request saw the call and its result.
	reqs := m.Requests()
	require.Len(t, reqs, 2)
	assert.Len(t, reqs[1].Messages, 3)
}

func TestRun_ToolReturnsToCaller(t *testing.T) {
	m := model.NewScriptedModel().
		For("A", model.Text("over to B")).
		For("B", model.Call("echo", "x"), model.Final("B done"))

	g, err := NewBuilder().
		AddAgent(newAgent(t, "A", "B", true, m), newAgent(t, "B", "A", false, m)).
		SetToolNode(echoExecutor(t)).
		Compile()
	require.NoError(t, err)

	var nodes []string
	for s := range g.Run(context.Background(), seed("go")).Steps() {
		nodes = append(nodes, s.Node)
	}
	assert.Equal(t, []string{"A", "B", ToolNode, "B"}, nodes)
}

func TestRun_ToolFailureIsIsolated(t *testing.T) {
	reg := tool.NewRegistry()
	require.NoError(t, reg.Register(tool.NewFunctionTool("explode", "Panics", nil,
		func(context.Context, map[string]any) (any, error) { panic("boom") })))

	m := model.NewScriptedModel(model.Call("explode", nil), model.Final("recovered"))
	g, err := NewBuilder().
		AddAgent(newAgent(t, "A", "A", true, m)).
		SetToolNode(tool.NewExecutor(reg, nil)).
		Compile()
	require.NoError(t, err)

	run := g.Run(context.Background(), seed("go"))
	steps := collect(run)
	require.Len(t, steps, 3)
	assert.True(t, steps[1].Message.Failed)
	assert.Contains(t, steps[1].Message.Content, "Error: ")
	assert.Equal(t, StopEnd, run.Result().Stop)
}

func TestRun_BudgetExactlyN(t *testing.T) {
	for _, budget := range []int{1, 2, 5, 7} {
		replies := make([]model.Reply, 0, budget+1)
		for i := 0; i <= budget; i++ {
			replies = append(replies, model.Text("still going"))
		}
		m := model.NewScriptedModel(replies...)

		g, err := NewBuilder().
			AddAgent(newAgent(t, "A", "B", true, m), newAgent(t, "B", "A", false, m)).
			Compile()
		require.NoError(t, err)

		run := g.Run(context.Background(), seed("go"), func(o *RunOptions) { o.Budget = budget })
		steps := collect(run)

		assert.Len(t, steps, budget)
		assert.Equal(t, budget, m.Calls())
		res := run.Result()
		assert.Equal(t, StopBudget, res.Stop)
		assert.Equal(t, budget, res.Steps)
		assert.Equal(t, budget, res.Budget)
		assert.NoError(t, res.Err)
	}
}

func TestRun_DefaultBudget(t *testing.T) {
	replies := make([]model.Reply, 0, DefaultBudget+5)
	for i := 0; i < DefaultBudget+5; i++ {
		replies = append(replies, model.Text("loop"))
	}
	m := model.NewScriptedModel(replies...)
	g, err := NewBuilder().AddAgent(newAgent(t, "A", "A", true, m)).Compile()
	require.NoError(t, err)

	run := g.Run(context.Background(), seed("go"), func(o *RunOptions) { o.Budget = -3 })
	assert.Len(t, collect(run), DefaultBudget)
	assert.Equal(t, DefaultBudget, run.Result().Budget)
}

func TestRun_ModelError(t *testing.T) {
	m := model.NewScriptedModel(model.Text("first"), model.Fail(errors.New("quota exceeded")))
	g, err := NewBuilder().AddAgent(newAgent(t, "A", "A", true, m)).Compile()
	require.NoError(t, err)

	run := g.Run(context.Background(), seed("go"))
	steps := collect(run)

	require.Len(t, steps, 2)
	assert.Equal(t, "Error: quota exceeded", steps[1].Message.Content)
	assert.Equal(t, core.KindPlain, steps[1].Message.Kind)
	assert.Equal(t, End, steps[1].Next)

	res := run.Result()
	assert.Equal(t, StopModelError, res.Stop)
	assert.EqualError(t, res.Err, "quota exceeded")
	assert.Len(t, res.Transcript, 3)
}

func TestRun_CanceledBeforeStart(t *testing.T) {
	m := model.NewScriptedModel(model.Text("never"))
	g, err := NewBuilder().AddAgent(newAgent(t, "A", "A", true, m)).Compile()
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	run := g.Run(ctx, seed("go"))
	assert.Empty(t, collect(run))

	res := run.Result()
	assert.Equal(t, StopCanceled, res.Stop)
	assert.ErrorIs(t, res.Err, context.Canceled)
	assert.Equal(t, 0, m.Calls())
	assert.Len(t, res.Transcript, 1)
}

func TestRun_CanceledMidRun(t *testing.T) {
	m := model.NewScriptedModel(model.Text("one"), model.Text("two"), model.Text("three"))
	g, err := NewBuilder().AddAgent(newAgent(t, "A", "A", true, m)).Compile()
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	run := g.Run(ctx, seed("go"))
	var steps []Step
	for s := range run.Steps() {
		steps = append(steps, s)
		if len(steps) == 1 {
			cancel()
		}
	}

	require.Len(t, steps, 1)
	res := run.Result()
	assert.Equal(t, StopCanceled, res.Stop)
	// Messages appended before cancellation stay valid.
	assert.Len(t, res.Transcript, 2)
}

func TestRun_CanceledDuringToolCall(t *testing.T) {
	started := make(chan struct{})
	reg := tool.NewRegistry()
	require.NoError(t, reg.Register(tool.NewStringTool("wait", "Blocks until canceled", "",
		func(ctx context.Context, _ string) (any, error) {
			close(started)
			<-ctx.Done()
			return nil, ctx.Err()
		})))

	m := model.NewScriptedModel(model.Call("wait", "x"), model.Final("unreachable"))
	g, err := NewBuilder().
		AddAgent(newAgent(t, "A", "A", true, m)).
		SetToolNode(tool.NewExecutor(reg, nil)).
		Compile()
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() {
		<-started
		cancel()
	}()

	run := g.Run(ctx, seed("go"))
	steps := collect(run)

	require.Len(t, steps, 2)
	assert.Equal(t, core.KindToolCall, steps[0].Message.Kind)
	assert.Equal(t, ToolNode, steps[1].Node)
	assert.Equal(t, "A", steps[1].Agent)
	assert.True(t, steps[1].Message.Failed)
	assert.Contains(t, steps[1].Message.Content, "context canceled")

	res := run.Result()
	assert.Equal(t, StopCanceled, res.Stop)
	assert.ErrorIs(t, res.Err, context.Canceled)
	assert.Equal(t, 2, res.Steps)
	require.Len(t, res.Transcript, 3)
	assert.Equal(t, "go", res.Transcript[0].Content)
	assert.Equal(t, 1, m.Calls())
}

func TestRun_CanceledDuringModelCall(t *testing.T) {
	started := make(chan struct{})
	blocking := model.Func{
		GenerateFunc: func(ctx context.Context, _ model.Request) (<-chan model.Response, <-chan error) {
			out := make(chan model.Response)
			errCh := make(chan error, 1)
			go func() {
				defer close(out)
				defer close(errCh)
				close(started)
				<-ctx.Done()
				errCh <- ctx.Err()
			}()
			return out, errCh
		},
		InfoFunc: func() model.Info { return model.Info{Name: "blocking"} },
	}

	g, err := NewBuilder().AddAgent(newAgent(t, "A", "A", true, blocking)).Compile()
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() {
		<-started
		cancel()
	}()

	run := g.Run(ctx, seed("go"))
	assert.Empty(t, collect(run))

	res := run.Result()
	assert.Equal(t, StopCanceled, res.Stop)
	assert.ErrorIs(t, res.Err, context.Canceled)
	assert.Equal(t, 1, res.Steps)
	require.Len(t, res.Transcript, 1, "only the seed survives")
	assert.Equal(t, "go", res.Transcript[0].Content)
}

func TestRun_ConsumerStops(t *testing.T) {
	m := model.NewScriptedModel(model.Text("one"), model.Text("two"))
	g, err := NewBuilder().AddAgent(newAgent(t, "A", "A", true, m)).Compile()
	require.NoError(t, err)

	run := g.Run(context.Background(), seed("go"))
	for range run.Steps() {
		break
	}

	assert.Equal(t, StopConsumer, run.Result().Stop)
	assert.Equal(t, 1, m.Calls())

	// A run is consumed once.
	assert.Empty(t, collect(run))
}

func TestRun_TranscriptIsMonotonic(t *testing.T) {
	m := model.NewScriptedModel(
		model.Call("echo", "a"),
		model.Text("b"),
		model.Call("echo", "c"),
		model.Final("d"),
	)
	g, err := NewBuilder().
		AddAgent(newAgent(t, "A", "A", true, m)).
		SetToolNode(echoExecutor(t)).
		Compile()
	require.NoError(t, err)

	var lengths []int
	run := g.Run(context.Background(), seed("go"), func(o *RunOptions) {
		o.Hooks.OnNodeLeave = func(_ context.Context, e *NodeEvent) {
			lengths = append(lengths, e.Step)
		}
	})
	steps := collect(run)
	require.Len(t, steps, 6)

	transcript := run.Result().Transcript
	require.Len(t, transcript, 7)
	for i, s := range steps {
		// Every step appended exactly one message, in order.
		assert.Equal(t, s.Message.ID, transcript[i+1].ID)
	}
	assert.Equal(t, []int{1, 2, 3, 4, 5, 6}, lengths)
}

func TestRun_Hooks(t *testing.T) {
	m := model.NewScriptedModel(model.Call("echo", "x"), model.Final("y"))
	g, err := NewBuilder().
		AddAgent(newAgent(t, "A", "A", true, m)).
		SetToolNode(echoExecutor(t)).
		Compile()
	require.NoError(t, err)

	var (
		enters, leaves []string
		toolCalls      []ToolEvent
		result         RunResult
	)
	base := Hooks{
		OnNodeEnter: func(_ context.Context, e *NodeEvent) { enters = append(enters, e.Node) },
		OnRunEnd:    func(_ context.Context, r RunResult) { result = r },
	}
	extra := Hooks{
		OnNodeLeave:  func(_ context.Context, e *NodeEvent) { leaves = append(leaves, string(e.Kind)) },
		OnToolReturn: func(_ context.Context, e *ToolEvent) { toolCalls = append(toolCalls, *e) },
	}

	run := g.Run(context.Background(), seed("go"), func(o *RunOptions) {
		o.RunID = "run-1"
		o.Hooks = MergeHooks(base, extra)
	})
	collect(run)

	assert.Equal(t, []string{"A", ToolNode, "A"}, enters)
	assert.Equal(t, []string{"agent", "tool", "agent"}, leaves)
	require.Len(t, toolCalls, 1)
	assert.Equal(t, "A", toolCalls[0].Agent)
	assert.Equal(t, "echo", toolCalls[0].Call.Name)
	assert.Equal(t, "x", toolCalls[0].Result.Content)
	assert.Equal(t, "run-1", result.RunID)
	assert.Equal(t, StopEnd, result.Stop)
}

func TestRun_ConcurrentRunsShareGraph(t *testing.T) {
	g, err := NewBuilder().
		AddAgent(newAgent(t, "A", "A", true, model.NewScriptedModel(
			model.Text("1"), model.Text("2"), model.Text("3"), model.Text("4"),
			model.Text("5"), model.Text("6"), model.Text("7"), model.Text("8"),
		))).
		Compile()
	require.NoError(t, err)

	var wg sync.WaitGroup
	results := make([]RunResult, 4)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			run := g.Run(context.Background(), seed("go"), func(o *RunOptions) { o.Budget = 2 })
			collect(run)
			results[i] = run.Result()
		}(i)
	}
	wg.Wait()

	for _, r := range results {
		assert.Equal(t, StopBudget, r.Stop)
		// Each run has its own transcript: seed plus its own two replies.
		assert.Len(t, r.Transcript, 3)
	}
}

func TestRun_ResultBeforeIteration(t *testing.T) {
	g, err := NewBuilder().AddAgent(newAgent(t, "A", "A", true, model.NewScriptedModel())).Compile()
	require.NoError(t, err)

	run := g.Run(context.Background(), seed("go"), func(o *RunOptions) { o.RunID = "abc" })
	assert.Equal(t, "abc", run.ID())
	assert.Equal(t, StopNone, run.Result().Stop)
}
