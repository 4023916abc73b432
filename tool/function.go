package tool

import (
	"context"
	"fmt"

	"github.com/hupe1980/roundtable/internal/util"
)

// FunctionTool is a generic adapter that exposes a plain Go function as a tool.
//
// Responsibilities:
//   - Holds a JSON-Schema-like parameter specification
//   - Coerces a scalar argument into the schema's single property, if it has one
//   - Validates object arguments against that schema before execution
//   - Normalizes error handling so callers receive *ToolError with consistent codes:
//     VALIDATION_ERROR  -> schema / argument mismatch
//     EXECUTION_ERROR   -> underlying function returned an error (non-ToolError)
//     (custom codes preserved if the function returns *ToolError directly)
//
// A FunctionTool has no mutable state after construction and is safe for
// concurrent use.
type FunctionTool struct {
	name        string
	description string
	parameters  map[string]any
	fn          func(ctx context.Context, args map[string]any) (any, error)
}

// NewFunctionTool constructs a FunctionTool from explicit schema and function.
//
// Example:
//
//	sumTool := tool.NewFunctionTool(
//	  "calculate_sum",
//	  "Calculate the sum of two numbers",
//	  map[string]any{
//	    "type": "object",
//	    "properties": map[string]any{
//	      "a": map[string]any{"type": "number"},
//	      "b": map[string]any{"type": "number"},
//	    },
//	    "required": []string{"a", "b"},
//	  },
//	  func(ctx context.Context, args map[string]any) (any, error) {
//	    return args["a"].(float64) + args["b"].(float64), nil
//	  },
//	)
func NewFunctionTool(
	name, description string,
	parameters map[string]any,
	fn func(ctx context.Context, args map[string]any) (any, error),
) *FunctionTool {
	if parameters == nil {
		parameters = util.EmptyObjectSchema()
	}
	return &FunctionTool{
		name:        name,
		description: description,
		parameters:  parameters,
		fn:          fn,
	}
}

// Name returns the unique tool name.
func (t *FunctionTool) Name() string { return t.name }

// Description returns the short natural language description exposed to models.
func (t *FunctionTool) Description() string { return t.description }

// Parameters returns the JSON schema describing expected arguments.
func (t *FunctionTool) Parameters() map[string]any { return t.parameters }

// Call validates the provided args against the declared schema then invokes
// the underlying function.
func (t *FunctionTool) Call(ctx context.Context, args any) (any, error) {
	obj, err := objectArgs(t.name, args, t.parameters)
	if err != nil {
		return nil, err
	}

	if err := util.ValidateParameters(obj, t.parameters); err != nil {
		return nil, &ToolError{
			Tool:    t.name,
			Message: fmt.Sprintf("parameter validation failed: %v", err),
			Code:    CodeValidation,
			Details: err,
		}
	}

	result, err := t.fn(ctx, obj)
	if err != nil {
		return nil, asToolError(t.name, err)
	}

	return result, nil
}

// StringTool exposes a function taking one free-form text input, the classic
// single-argument tool shape.
type StringTool struct {
	name        string
	description string
	param       string
	fn          func(ctx context.Context, input string) (any, error)
}

// NewStringTool creates a single-input tool. param names the input in the
// advertised schema.
func NewStringTool(name, description, param string, fn func(ctx context.Context, input string) (any, error)) *StringTool {
	if param == "" {
		param = "input"
	}
	return &StringTool{name: name, description: description, param: param, fn: fn}
}

// Name returns the unique tool name.
func (t *StringTool) Name() string { return t.name }

// Description returns the short natural language description exposed to models.
func (t *StringTool) Description() string { return t.description }

// Parameters returns a schema with one required string property.
func (t *StringTool) Parameters() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			t.param: map[string]any{"type": "string"},
		},
		"required": []string{t.param},
	}
}

// Call accepts either the raw string or an object carrying the single property.
func (t *StringTool) Call(ctx context.Context, args any) (any, error) {
	var input string
	switch v := args.(type) {
	case string:
		input = v
	case map[string]any:
		s, ok := v[t.param].(string)
		if !ok {
			return nil, &ToolError{Tool: t.name, Message: fmt.Sprintf("field %q must be a string", t.param), Code: CodeArgument}
		}
		input = s
	case nil:
	default:
		input = fmt.Sprint(v)
	}

	result, err := t.fn(ctx, input)
	if err != nil {
		return nil, asToolError(t.name, err)
	}
	return result, nil
}

// objectArgs normalizes args into an object. A non-object value is bound to
// the schema's only property; with zero or several properties it is rejected.
func objectArgs(name string, args any, schema map[string]any) (map[string]any, error) {
	switch v := args.(type) {
	case map[string]any:
		return v, nil
	case nil:
		return map[string]any{}, nil
	}

	props, _ := schema["properties"].(map[string]any)
	if len(props) == 1 {
		for key := range props {
			return map[string]any{key: args}, nil
		}
	}

	return nil, &ToolError{
		Tool:    name,
		Message: fmt.Sprintf("expected an object argument, got %T", args),
		Code:    CodeArgument,
	}
}

func asToolError(name string, err error) *ToolError {
	if toolErr, ok := err.(*ToolError); ok {
		return toolErr
	}
	return &ToolError{Tool: name, Message: err.Error(), Code: CodeExecution}
}
