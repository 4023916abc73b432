package tool

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"runtime/debug"
	"sync"
	"time"

	"github.com/hupe1980/roundtable/core"
	"github.com/hupe1980/roundtable/logging"
	"github.com/hupe1980/roundtable/model"
)

// ErrorPrefix starts the content of every failed tool result.
const ErrorPrefix = "Error: "

// singleArgKey marks a lone positional argument some providers wrap in an object.
const singleArgKey = "__arg1"

// RegistryOptions configure a Registry.
type RegistryOptions struct {
	Logger logging.Logger
}

// Registry holds the named tools of a conference. Registration happens at
// build time; afterwards the registry is read-only and safe for concurrent use.
type Registry struct {
	mu     sync.RWMutex
	tools  map[string]Tool
	order  []string
	logger logging.Logger
}

// NewRegistry creates an empty registry.
func NewRegistry(optFns ...func(o *RegistryOptions)) *Registry {
	opts := RegistryOptions{Logger: logging.NoOpLogger{}}
	for _, fn := range optFns {
		fn(&opts)
	}
	return &Registry{tools: map[string]Tool{}, logger: logging.OrNoOp(opts.Logger)}
}

// Register adds tools. A name collision yields *core.DuplicateToolError and
// leaves the registry unchanged for that tool.
func (r *Registry) Register(tools ...Tool) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, t := range tools {
		if _, exists := r.tools[t.Name()]; exists {
			return &core.DuplicateToolError{Name: t.Name()}
		}
		r.tools[t.Name()] = t
		r.order = append(r.order, t.Name())
	}
	return nil
}

// Get returns the tool registered under name.
func (r *Registry) Get(name string) (Tool, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	t, ok := r.tools[name]
	return t, ok
}

// Names returns tool names in registration order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]string(nil), r.order...)
}

// Len returns the number of registered tools.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.order)
}

// Definitions returns model tool definitions for names, or for every tool
// when names is empty. Unknown names are skipped.
func (r *Registry) Definitions(names ...string) []model.ToolDefinition {
	if len(names) == 0 {
		names = r.Names()
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	defs := make([]model.ToolDefinition, 0, len(names))
	for _, n := range names {
		t, ok := r.tools[n]
		if !ok {
			continue
		}
		defs = append(defs, model.NewToolDefinition(t.Name(), t.Description(), t.Parameters()))
	}
	return defs
}

// Execute runs call and converts any outcome into a tool result message.
// Unknown tools, malformed arguments, tool errors and panics all become a
// failed result whose content starts with ErrorPrefix; nothing is returned
// as a Go error.
func (r *Registry) Execute(ctx context.Context, call core.ToolCall) core.Message {
	start := time.Now()
	info, _ := CallInfoFromContext(ctx)
	info.CallID, info.Tool = call.ID, call.Name
	ctx = WithCallInfo(ctx, info)

	r.logger.Debug("tool.call.start", "tool", call.Name, "call_id", call.ID, "agent", info.Agent)

	result, err := r.call(ctx, call)

	dur := time.Since(start)
	if err != nil {
		r.logger.Warn("tool.call.error", "tool", call.Name, "call_id", call.ID, "error", err.Error(), "duration_ms", dur.Milliseconds())
		logToolCall(r.logger, call.Name, info.Agent, dur, err)
		return core.NewToolResult(call.Name, call.ID, ErrorPrefix+err.Error(), true)
	}

	text := FormatResult(result)

	r.logger.Debug("tool.call.success", "tool", call.Name, "call_id", call.ID, "duration_ms", dur.Milliseconds())
	logToolCall(r.logger, call.Name, info.Agent, dur, nil)

	return core.NewToolResult(call.Name, call.ID, text, false)
}

func (r *Registry) call(ctx context.Context, call core.ToolCall) (result any, err error) {
	t, ok := r.Get(call.Name)
	if !ok {
		return nil, NewToolError(call.Name, fmt.Sprintf("tool %q is not registered", call.Name), CodeNotFound)
	}

	args := DecodeArguments(call.Arguments)

	defer func() {
		if rec := recover(); rec != nil {
			err = &ToolError{
				Tool:    call.Name,
				Message: fmt.Sprintf("panic: %v", rec),
				Code:    CodePanic,
				Details: string(debug.Stack()),
			}
		}
	}()

	return t.Call(ctx, args)
}

// DecodeArguments turns a raw argument payload into the value handed to
// Tool.Call. JSON is decoded; an object holding only "__arg1" is unwrapped
// to that value; anything that is not JSON is passed as a string.
func DecodeArguments(raw json.RawMessage) any {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 {
		return map[string]any{}
	}

	var v any
	if err := json.Unmarshal(trimmed, &v); err != nil {
		return string(raw)
	}

	if obj, ok := v.(map[string]any); ok && len(obj) == 1 {
		if single, ok := obj[singleArgKey]; ok {
			return single
		}
	}
	return v
}

// FormatResult renders a tool result as text. Strings are kept verbatim,
// Stringers and byte slices are converted, everything else is JSON encoded.
func FormatResult(v any) string {
	switch r := v.(type) {
	case nil:
		return ""
	case string:
		return r
	case []byte:
		return string(r)
	case fmt.Stringer:
		return r.String()
	case error:
		return r.Error()
	}

	b, err := json.Marshal(v)
	if err != nil {
		return fmt.Sprintf("%v", v)
	}
	return string(b)
}

// toolCallLogger is implemented by loggers with a dedicated tool call helper,
// such as logging.ConferenceLogger.
type toolCallLogger interface {
	LogToolCall(tool, agent string, dur time.Duration, success bool, err error)
}

func logToolCall(l logging.Logger, tool, agent string, dur time.Duration, err error) {
	if tl, ok := l.(toolCallLogger); ok {
		tl.LogToolCall(tool, agent, dur, err == nil, err)
	}
}
