package metrics

import (
	"context"
	"errors"
	"io"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/roundtable/agent"
	"github.com/hupe1980/roundtable/core"
	"github.com/hupe1980/roundtable/graph"
	"github.com/hupe1980/roundtable/model"
	"github.com/hupe1980/roundtable/tool"
)

func TestRecorder_Middleware(t *testing.T) {
	rec := NewRecorder()
	scripted := model.NewScriptedModel(
		model.Reply{Content: "ok", Usage: &model.TokenUsage{PromptTokens: 10, CompletionTokens: 4, TotalTokens: 14}},
		model.Fail(errors.New("down")),
	)
	m := model.Chain(scripted, rec.Middleware())

	resp, err := model.Complete(context.Background(), m, model.Request{Agent: "A"})
	require.NoError(t, err)
	assert.Equal(t, "ok", resp.Content)

	_, err = model.Complete(context.Background(), m, model.Request{Agent: "A"})
	assert.EqualError(t, err, "down")

	assert.Equal(t, 1.0, testutil.ToFloat64(rec.requestsTotal.WithLabelValues("scripted", "A", "success")))
	assert.Equal(t, 1.0, testutil.ToFloat64(rec.requestsTotal.WithLabelValues("scripted", "A", "error")))
	assert.Equal(t, 10.0, testutil.ToFloat64(rec.tokensTotal.WithLabelValues("scripted", "A", "prompt")))
	assert.Equal(t, 4.0, testutil.ToFloat64(rec.tokensTotal.WithLabelValues("scripted", "A", "completion")))
	assert.Equal(t, "scripted", m.Info().Name)
}

func TestRecorder_Hooks(t *testing.T) {
	rec := NewRecorder(func(o *Options) { o.Namespace = "test" })

	reg := tool.NewRegistry()
	require.NoError(t, reg.Register(tool.NewStringTool("echo", "Echo", "", func(_ context.Context, s string) (any, error) { return s, nil })))

	m := model.NewScriptedModel(model.Call("echo", "x"), model.Call("missing", nil), model.Final("done"))
	node, err := agent.NewNode("A", func(o *agent.Options) {
		o.Model = m
		o.Next = "A"
		o.Entry = true
	})
	require.NoError(t, err)

	g, err := graph.NewBuilder().AddAgent(node).SetToolNode(tool.NewExecutor(reg, nil)).Compile()
	require.NoError(t, err)

	run := g.Run(context.Background(), []core.Message{core.NewUserMessage("go")}, func(o *graph.RunOptions) {
		o.Hooks = rec.Hooks()
	})
	for range run.Steps() {
	}

	assert.Equal(t, 3.0, testutil.ToFloat64(rec.nodesTotal.WithLabelValues("A", "agent")))
	assert.Equal(t, 2.0, testutil.ToFloat64(rec.nodesTotal.WithLabelValues(graph.ToolNode, "tool")))
	assert.Equal(t, 1.0, testutil.ToFloat64(rec.toolCallsTotal.WithLabelValues("echo", "A", "success")))
	assert.Equal(t, 1.0, testutil.ToFloat64(rec.toolCallsTotal.WithLabelValues("missing", "A", "error")))
	assert.Equal(t, 1.0, testutil.ToFloat64(rec.runsTotal.WithLabelValues("end")))
	assert.Equal(t, 1, testutil.CollectAndCount(rec.runSteps))
}

func TestRecorder_Handler(t *testing.T) {
	rec := NewRecorder()
	rec.ObserveRequest("gpt", "A", nil, true, 0)

	srv := httptest.NewServer(rec.Handler())
	defer srv.Close()

	resp, err := srv.Client().Get(srv.URL)
	require.NoError(t, err)
	defer resp.Body.Close()

	buf := new(strings.Builder)
	_, err = io.Copy(buf, resp.Body)
	require.NoError(t, err)
	assert.Contains(t, buf.String(), `roundtable_llm_requests_total{agent="A",model="gpt",status="success"} 1`)
}

func TestRecorder_IsolatedRegistries(t *testing.T) {
	// Two recorders never collide on registration.
	a, b := NewRecorder(), NewRecorder()
	a.ObserveRequest("m", "x", nil, true, 0)
	assert.Equal(t, 1.0, testutil.ToFloat64(a.requestsTotal.WithLabelValues("m", "x", "success")))
	assert.Equal(t, 0.0, testutil.ToFloat64(b.requestsTotal.WithLabelValues("m", "x", "success")))
}
