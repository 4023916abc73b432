package tool

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/roundtable/core"
)

// -------------------- FunctionTool Tests --------------------

func sumTool() *FunctionTool {
	params := map[string]any{
		"type": "object",
		"properties": map[string]any{
			"a": map[string]any{"type": "number"},
			"b": map[string]any{"type": "number"},
		},
		"required": []string{"a", "b"},
	}

	return NewFunctionTool("sum", "Add numbers", params, func(_ context.Context, args map[string]any) (any, error) {
		return args["a"].(float64) + args["b"].(float64), nil
	})
}

func TestFunctionTool_Success(t *testing.T) {
	result, err := sumTool().Call(context.Background(), map[string]any{"a": 2.0, "b": 3.0})
	assert.NoError(t, err)
	assert.Equal(t, 5.0, result)
}

func TestFunctionTool_ValidationError(t *testing.T) {
	_, err := sumTool().Call(context.Background(), map[string]any{"a": 1.0})

	var toolErr *ToolError
	require.ErrorAs(t, err, &toolErr)
	assert.Equal(t, CodeValidation, toolErr.Code)
}

func TestFunctionTool_ScalarArgument(t *testing.T) {
	params := map[string]any{
		"type":       "object",
		"properties": map[string]any{"code": map[string]any{"type": "string"}},
	}
	echo := NewFunctionTool("echo", "Echo", params, func(_ context.Context, args map[string]any) (any, error) {
		return args["code"], nil
	})

	result, err := echo.Call(context.Background(), "print(1)")
	require.NoError(t, err)
	assert.Equal(t, "print(1)", result)

	// A scalar cannot be bound when the schema has several properties.
	_, err = sumTool().Call(context.Background(), "1+2")
	var toolErr *ToolError
	require.ErrorAs(t, err, &toolErr)
	assert.Equal(t, CodeArgument, toolErr.Code)
}

func TestFunctionTool_ExecutionError(t *testing.T) {
	execTool := NewFunctionTool("fail", "Fails", nil, func(_ context.Context, _ map[string]any) (any, error) {
		return nil, errors.New("boom")
	})

	_, err := execTool.Call(context.Background(), map[string]any{})
	var toolErr *ToolError
	require.ErrorAs(t, err, &toolErr)
	assert.Equal(t, CodeExecution, toolErr.Code)
}

func TestFunctionTool_ForwardsToolError(t *testing.T) {
	custom := NewToolError("custom", "nope", "E42")
	execTool := NewFunctionTool("custom", "Custom", nil, func(_ context.Context, _ map[string]any) (any, error) {
		return nil, custom
	})

	_, err := execTool.Call(context.Background(), nil)
	assert.Same(t, custom, err)
}

func TestStringTool(t *testing.T) {
	upper := NewStringTool("upper", "Upper-case text", "", func(_ context.Context, in string) (any, error) {
		return strings.ToUpper(in), nil
	})

	out, err := upper.Call(context.Background(), "abc")
	require.NoError(t, err)
	assert.Equal(t, "ABC", out)

	out, err = upper.Call(context.Background(), map[string]any{"input": "x"})
	require.NoError(t, err)
	assert.Equal(t, "X", out)

	_, err = upper.Call(context.Background(), map[string]any{"input": 1})
	assert.Error(t, err)

	assert.Equal(t, []string{"input"}, upper.Parameters()["required"])
}

// -------------------- TypedTool Tests --------------------

type weatherArgs struct {
	City  string `json:"city" jsonschema:"required,description=City name"`
	Units string `json:"units,omitempty" jsonschema:"enum=celsius,enum=fahrenheit"`
	Days  int    `json:"days,omitempty"`
}

func TestTypedTool(t *testing.T) {
	weather := MustTypedTool("weather", "Get weather", func(_ context.Context, args weatherArgs) (any, error) {
		return map[string]any{"city": args.City, "days": args.Days}, nil
	})

	props, ok := weather.Parameters()["properties"].(map[string]any)
	require.True(t, ok)
	assert.Contains(t, props, "city")

	out, err := weather.Call(context.Background(), map[string]any{"city": "Berlin", "days": 3.0})
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"city": "Berlin", "days": 3}, out)

	_, err = weather.Call(context.Background(), map[string]any{"days": 1.0})
	var toolErr *ToolError
	require.ErrorAs(t, err, &toolErr)
	assert.Equal(t, CodeValidation, toolErr.Code)
}

// -------------------- Registry Tests --------------------

func TestRegistry_Duplicate(t *testing.T) {
	reg := NewRegistry()
	require.NoError(t, reg.Register(sumTool()))

	err := reg.Register(sumTool())
	var dup *core.DuplicateToolError
	require.ErrorAs(t, err, &dup)
	assert.Equal(t, "sum", dup.Name)
	assert.Equal(t, 1, reg.Len())
}

func TestRegistry_Definitions(t *testing.T) {
	reg := NewRegistry()
	require.NoError(t, reg.Register(sumTool(), NewStringTool("echo", "Echo", "", func(_ context.Context, s string) (any, error) { return s, nil })))

	assert.Equal(t, []string{"sum", "echo"}, reg.Names())
	assert.Len(t, reg.Definitions(), 2)

	defs := reg.Definitions("echo", "missing")
	require.Len(t, defs, 1)
	assert.Equal(t, "echo", defs[0].Function.Name)
	assert.Equal(t, "function", defs[0].Type)
}

func TestRegistry_Execute(t *testing.T) {
	reg := NewRegistry()
	require.NoError(t, reg.Register(
		sumTool(),
		NewFunctionTool("explode", "Panics", nil, func(context.Context, map[string]any) (any, error) {
			panic("kaboom")
		}),
	))

	tests := []struct {
		name     string
		call     core.ToolCall
		want     string
		contains string
		failed   bool
	}{
		{"success", core.ToolCall{ID: "c1", Name: "sum", Arguments: json.RawMessage(`{"a":1,"b":2}`)}, "3", "", false},
		{"unknown tool", core.ToolCall{ID: "c2", Name: "nope"}, "", "NOT_FOUND", true},
		{"invalid args", core.ToolCall{ID: "c3", Name: "sum", Arguments: json.RawMessage(`{"a":1}`)}, "", "VALIDATION_ERROR", true},
		{"panic", core.ToolCall{ID: "c4", Name: "explode"}, "", "kaboom", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			msg := reg.Execute(context.Background(), tt.call)

			assert.Equal(t, core.KindToolResult, msg.Kind)
			assert.Equal(t, core.RoleTool, msg.Role)
			assert.Equal(t, tt.call.Name, msg.Name)
			assert.Equal(t, tt.call.ID, msg.CallID)
			assert.Equal(t, tt.failed, msg.Failed)
			if tt.want != "" {
				assert.Equal(t, tt.want, msg.Content)
			}
			if tt.contains != "" {
				assert.True(t, strings.HasPrefix(msg.Content, ErrorPrefix))
				assert.Contains(t, msg.Content, tt.contains)
			}
		})
	}
}

func TestRegistry_CallInfo(t *testing.T) {
	reg := NewRegistry()
	var got CallInfo
	require.NoError(t, reg.Register(NewFunctionTool("who", "Who calls", nil, func(ctx context.Context, _ map[string]any) (any, error) {
		got, _ = CallInfoFromContext(ctx)
		return "ok", nil
	})))

	exec := NewExecutor(reg, nil)
	msg := exec.Execute(context.Background(), "Researcher", core.ToolCall{ID: "c9", Name: "who"})
	assert.False(t, msg.Failed)
	assert.Equal(t, CallInfo{Agent: "Researcher", CallID: "c9", Tool: "who"}, got)
}

func TestExecutor_NotAllowed(t *testing.T) {
	reg := NewRegistry()
	require.NoError(t, reg.Register(sumTool()))

	exec := NewExecutor(reg, map[string][]string{"Writer": {}})
	msg := exec.Execute(context.Background(), "Writer", core.ToolCall{ID: "c1", Name: "sum", Arguments: json.RawMessage(`{"a":1,"b":2}`)})
	assert.True(t, msg.Failed)
	assert.Contains(t, msg.Content, CodeNotAllowed)

	msg = exec.Execute(context.Background(), "Researcher", core.ToolCall{ID: "c2", Name: "sum", Arguments: json.RawMessage(`{"a":1,"b":2}`)})
	assert.False(t, msg.Failed)
}

func TestRegistry_ConcurrentExecute(t *testing.T) {
	reg := NewRegistry()
	require.NoError(t, reg.Register(sumTool()))

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			msg := reg.Execute(context.Background(), core.ToolCall{Name: "sum", Arguments: json.RawMessage(`{"a":1,"b":1}`)})
			assert.Equal(t, "2", msg.Content)
		}()
	}
	wg.Wait()
}

// -------------------- Argument & Result Handling --------------------

func TestDecodeArguments(t *testing.T) {
	assert.Equal(t, map[string]any{}, DecodeArguments(nil))
	assert.Equal(t, "print('hi')", DecodeArguments(json.RawMessage(`{"__arg1":"print('hi')"}`)))
	assert.Equal(t, "not json", DecodeArguments(json.RawMessage("not json")))
	assert.Equal(t, map[string]any{"__arg1": "a", "x": 1.0}, DecodeArguments(json.RawMessage(`{"__arg1":"a","x":1}`)))
	assert.Equal(t, []any{1.0, 2.0}, DecodeArguments(json.RawMessage(`[1,2]`)))
}

type stringer struct{}

func (stringer) String() string { return "stringer" }

func TestFormatResult(t *testing.T) {
	assert.Equal(t, "", FormatResult(nil))
	assert.Equal(t, "plain", FormatResult("plain"))
	assert.Equal(t, "bytes", FormatResult([]byte("bytes")))
	assert.Equal(t, "stringer", FormatResult(stringer{}))
	assert.Equal(t, `{"a":1}`, FormatResult(map[string]int{"a": 1}))
	assert.Equal(t, "3", FormatResult(3))
}

func TestToolErrorFormatting(t *testing.T) {
	err := NewToolError("demo", "something failed", "E123")
	assert.Contains(t, err.Error(), "E123")
	assert.Contains(t, err.Error(), "demo")
}
