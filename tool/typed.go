package tool

import (
	"context"
	"fmt"

	"github.com/mitchellh/mapstructure"

	"github.com/hupe1980/roundtable/internal/util"
)

// TypedTool exposes a function with a typed argument struct. The schema is
// reflected from T and arguments are decoded into T before the call.
//
// Supported tags on T:
//   - json:"name" / json:",omitempty"
//   - jsonschema:"required,description=...,enum=a,enum=b"
//
// Example:
//
//	type WeatherArgs struct {
//	    City string `json:"city" jsonschema:"required,description=City name"`
//	}
//
//	weather, err := tool.NewTypedTool("get_weather", "Get the weather",
//	    func(ctx context.Context, args WeatherArgs) (any, error) {
//	        return "sunny in " + args.City, nil
//	    })
type TypedTool[T any] struct {
	name        string
	description string
	parameters  map[string]any
	fn          func(ctx context.Context, args T) (any, error)
}

// NewTypedTool creates a TypedTool, reflecting its schema from T.
func NewTypedTool[T any](name, description string, fn func(ctx context.Context, args T) (any, error)) (*TypedTool[T], error) {
	schema, err := util.SchemaFor[T]()
	if err != nil {
		return nil, fmt.Errorf("tool %s: %w", name, err)
	}
	return &TypedTool[T]{name: name, description: description, parameters: schema, fn: fn}, nil
}

// MustTypedTool is like NewTypedTool but panics on schema errors.
func MustTypedTool[T any](name, description string, fn func(ctx context.Context, args T) (any, error)) *TypedTool[T] {
	t, err := NewTypedTool(name, description, fn)
	if err != nil {
		panic(err)
	}
	return t
}

// Name returns the unique tool name.
func (t *TypedTool[T]) Name() string { return t.name }

// Description returns the short natural language description exposed to models.
func (t *TypedTool[T]) Description() string { return t.description }

// Parameters returns the schema reflected from T.
func (t *TypedTool[T]) Parameters() map[string]any { return t.parameters }

// Call validates and decodes args into T, then invokes the function.
func (t *TypedTool[T]) Call(ctx context.Context, args any) (any, error) {
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

	var typed T
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		TagName:          "json",
		WeaklyTypedInput: true,
		Result:           &typed,
	})
	if err != nil {
		return nil, &ToolError{Tool: t.name, Message: err.Error(), Code: CodeArgument}
	}
	if err := decoder.Decode(obj); err != nil {
		return nil, &ToolError{Tool: t.name, Message: fmt.Sprintf("decode arguments: %v", err), Code: CodeArgument}
	}

	result, err := t.fn(ctx, typed)
	if err != nil {
		return nil, asToolError(t.name, err)
	}
	return result, nil
}
