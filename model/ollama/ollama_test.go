package ollama

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/roundtable/core"
	"github.com/hupe1980/roundtable/model"
)

func TestBuildRequest(t *testing.T) {
	m := NewModel(func(o *Options) { o.Model = "phi4" })

	req := model.Request{
		Agent:        "A",
		Instructions: "be brief",
		Stream:       true,
		Messages: []core.Message{
			core.NewUserMessage("hi"),
			core.NewReply("A", "", &core.ToolCall{ID: "c1", Name: "add", Arguments: json.RawMessage(`{"a":1}`)}),
			core.NewToolResult("add", "c1", "3", false),
			core.NewReply("B", "thanks", nil),
		},
		Tools: []model.ToolDefinition{model.NewToolDefinition("add", "adds", map[string]any{
			"type":       "object",
			"properties": map[string]any{"a": map[string]any{"type": "integer"}},
			"required":   []string{"a"},
		})},
	}

	chatReq, err := m.buildRequest(req)
	require.NoError(t, err)

	assert.Equal(t, "phi4", chatReq.Model)
	require.NotNil(t, chatReq.Stream)
	assert.True(t, *chatReq.Stream)

	require.Len(t, chatReq.Messages, 5)
	roles := make([]string, 0, len(chatReq.Messages))
	for _, msg := range chatReq.Messages {
		roles = append(roles, msg.Role)
	}
	assert.Equal(t, []string{"system", "user", "assistant", "tool", "user"}, roles)
	require.Len(t, chatReq.Messages[2].ToolCalls, 1)
	assert.Equal(t, "add", chatReq.Messages[2].ToolCalls[0].Function.Name)
	assert.Equal(t, "B: thanks", chatReq.Messages[4].Content)

	require.Len(t, chatReq.Tools, 1)
	assert.Equal(t, "add", chatReq.Tools[0].Function.Name)
}

func TestNewModel_InvalidHost(t *testing.T) {
	m := NewModel(func(o *Options) { o.Host = "::not a url" })
	assert.NotNil(t, m.client)
	assert.Equal(t, "ollama", m.Info().Provider)
}

func TestClassifyError(t *testing.T) {
	err := classifyError(errors.New("dial tcp: connection refused"))
	assert.Contains(t, err.Error(), "not reachable")
}

func TestObjectArgs(t *testing.T) {
	assert.Equal(t, map[string]any{"__arg1": "raw"}, objectArgs(json.RawMessage("raw")))
	assert.Equal(t, map[string]any{"a": float64(1)}, objectArgs(json.RawMessage(`{"a":1}`)))
}
