package anthropic

import (
	"encoding/json"
	"testing"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/roundtable/core"
	"github.com/hupe1980/roundtable/model"
)

func TestBuildMessages_Alternates(t *testing.T) {
	req := model.Request{
		Agent: "A",
		Messages: []core.Message{
			core.NewUserMessage("hi"),
			core.NewReply("B", "from b", nil),
			core.NewReply("A", "", &core.ToolCall{ID: "c1", Name: "add", Arguments: json.RawMessage(`{"a":1}`)}),
			core.NewToolResult("add", "c1", "3", false),
		},
	}

	msgs := buildMessages(req)
	require.Len(t, msgs, 3)
	assert.Equal(t, anthropic.MessageParamRoleUser, msgs[0].Role)
	assert.Len(t, msgs[0].Content, 2, "user seed and other agent reply merge")
	assert.Equal(t, anthropic.MessageParamRoleAssistant, msgs[1].Role)
	assert.Equal(t, anthropic.MessageParamRoleUser, msgs[2].Role)
}

func TestBuildMessages_EndsWithUser(t *testing.T) {
	req := model.Request{
		Agent:    "A",
		Messages: []core.Message{core.NewUserMessage("hi"), core.NewReply("A", "draft", nil)},
	}

	msgs := buildMessages(req)
	require.Len(t, msgs, 3)
	assert.Equal(t, anthropic.MessageParamRoleUser, msgs[2].Role)
}

func TestBuildTools(t *testing.T) {
	tools := buildTools([]model.ToolDefinition{model.NewToolDefinition("add", "adds numbers", map[string]any{
		"type":       "object",
		"properties": map[string]any{"a": map[string]any{"type": "integer"}},
		"required":   []any{"a"},
	})})

	require.Len(t, tools, 1)
	require.NotNil(t, tools[0].OfTool)
	assert.Equal(t, "add", tools[0].OfTool.Name)
	assert.Equal(t, []string{"a"}, tools[0].OfTool.InputSchema.Required)
}
