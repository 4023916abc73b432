package model

import (
	"context"
	"errors"
	"strings"

	"github.com/hupe1980/roundtable/core"
)

// ErrEmptyResponse is returned by Complete when a model closes its stream
// without producing a final response.
var ErrEmptyResponse = errors.New("model returned no response")

// ToolDefinition declaratively exposes a callable function to the model.
type ToolDefinition struct {
	Type     string             `json:"type"` // "function"
	Function FunctionDefinition `json:"function"`
}

// FunctionDefinition describes an individual function (tool) exposed to the model.
// Parameters is a JSON Schema object (draft agnostic, minimal subset expected).
type FunctionDefinition struct {
	Name        string         `json:"name"`
	Description string         `json:"description"`
	Parameters  map[string]any `json:"parameters"` // JSON Schema
}

// NewToolDefinition builds a function tool definition.
func NewToolDefinition(name, description string, parameters map[string]any) ToolDefinition {
	return ToolDefinition{
		Type:     "function",
		Function: FunctionDefinition{Name: name, Description: description, Parameters: parameters},
	}
}

// Request captures the normalized model input produced by an agent node.
type Request struct {
	Agent        string           `json:"agent"`        // Requesting agent id
	Instructions string           `json:"instructions"` // System prompt for the model
	Messages     []core.Message   `json:"messages"`     // Conversation history, oldest first
	Tools        []ToolDefinition `json:"tools,omitempty"`
	Stream       bool             `json:"stream,omitempty"`
}

// TokenUsage captures token usage statistics for a response.
type TokenUsage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// Response is a (partial or final) chunk emitted by a model.
// Partial chunks carry content deltas; the final chunk carries the full text
// and every tool call the model requested.
type Response struct {
	ID           string          `json:"id"`
	Partial      bool            `json:"partial"`
	Content      string          `json:"content"`
	ToolCalls    []core.ToolCall `json:"tool_calls,omitempty"`
	FinishReason string          `json:"finish_reason"` // "stop", "length", "tool_calls", etc.
	Usage        *TokenUsage     `json:"usage,omitempty"`
}

// Info contains metadata about a model implementation.
type Info struct {
	Name          string `json:"name"`
	Provider      string `json:"provider"` // "openai", "anthropic", "gemini", "ollama", "scripted"
	SupportsTools bool   `json:"supports_tools"`
}

// Model is the minimal interface required by agents to drive generation.
type Model interface {
	Generate(ctx context.Context, req Request) (<-chan Response, <-chan error)

	// Info returns information about the model implementation.
	Info() Info
}

// Complete drains a Generate call and returns the final response. Partial
// chunks are concatenated when the model never emits a final one.
func Complete(ctx context.Context, m Model, req Request) (Response, error) {
	respCh, errCh := m.Generate(ctx, req)

	var (
		final   *Response
		partial strings.Builder
	)

	for respCh != nil || errCh != nil {
		select {
		case <-ctx.Done():
			return Response{}, ctx.Err()
		case r, ok := <-respCh:
			if !ok {
				respCh = nil
				continue
			}
			if r.Partial {
				partial.WriteString(r.Content)
				continue
			}
			rr := r
			final = &rr
		case err, ok := <-errCh:
			if !ok {
				errCh = nil
				continue
			}
			if err != nil {
				return Response{}, err
			}
		}
	}

	if final != nil {
		return *final, nil
	}
	if partial.Len() > 0 {
		return Response{Content: partial.String(), FinishReason: "stop"}, nil
	}
	return Response{}, ErrEmptyResponse
}

// Turn is the provider neutral view of one history message used by adapters.
type Turn struct {
	Role   string // "user", "assistant" or "tool"
	Name   string // Speaking agent (assistant) or tool name (tool)
	Text   string
	Call   *core.ToolCall // Set on assistant turns that request a tool
	CallID string         // Set on tool turns
}

// Turns converts a conversation history into provider neutral turns. Agent
// replies become assistant turns named after their sender; tool results become
// tool turns. Replies authored by agents other than self are prefixed with
// the speaker so multi-agent transcripts stay attributable.
func Turns(self string, msgs []core.Message) []Turn {
	out := make([]Turn, 0, len(msgs))
	for _, m := range msgs {
		switch m.Kind {
		case core.KindUser:
			out = append(out, Turn{Role: "user", Name: m.Role, Text: m.Content})
		case core.KindToolResult:
			out = append(out, Turn{Role: "tool", Name: m.Name, Text: m.Content, CallID: m.CallID})
		default:
			text := m.Content
			if self != "" && m.Role != self && text != "" {
				text = m.Role + ": " + text
			}
			out = append(out, Turn{Role: "assistant", Name: m.Role, Text: text, Call: m.ToolCall})
		}
	}
	return out
}

// Middleware wraps a Model with additional behavior.
type Middleware func(next Model) Model

// Chain composes middlewares around a base model. Earlier middlewares are
// outermost: Chain(m, a, b) yields a -> b -> m.
func Chain(base Model, middlewares ...Middleware) Model {
	m := base
	for i := len(middlewares) - 1; i >= 0; i-- {
		m = middlewares[i](m)
	}
	return m
}

// Func adapts plain functions to the Model interface.
type Func struct {
	GenerateFunc func(ctx context.Context, req Request) (<-chan Response, <-chan error)
	InfoFunc     func() Info
}

// Generate implements Model.
func (f Func) Generate(ctx context.Context, req Request) (<-chan Response, <-chan error) {
	return f.GenerateFunc(ctx, req)
}

// Info implements Model.
func (f Func) Info() Info { return f.InfoFunc() }

// Observe forwards a Generate call unchanged and calls done once both
// channels are drained. done receives the final (non-partial) response, if
// any, and the first error. Middlewares use it to measure requests.
func Observe(ctx context.Context, m Model, req Request, done func(final *Response, err error)) (<-chan Response, <-chan error) {
	inResp, inErr := m.Generate(ctx, req)
	out := make(chan Response, cap(inResp))
	errCh := make(chan error, 1)

	go func() {
		defer close(out)
		defer close(errCh)

		var (
			final    *Response
			firstErr error
		)
		for inResp != nil || inErr != nil {
			select {
			case r, ok := <-inResp:
				if !ok {
					inResp = nil
					continue
				}
				if !r.Partial {
					rr := r
					final = &rr
				}
				select {
				case out <- r:
				case <-ctx.Done():
					go drain(inResp, inErr)
					done(final, ctx.Err())
					errCh <- ctx.Err()
					return
				}
			case err, ok := <-inErr:
				if !ok {
					inErr = nil
					continue
				}
				if err != nil && firstErr == nil {
					firstErr = err
				}
			}
		}

		done(final, firstErr)
		if firstErr != nil {
			errCh <- firstErr
		}
	}()

	return out, errCh
}

// drain discards what an abandoned producer still sends so it can exit.
func drain(resp <-chan Response, errs <-chan error) {
	for resp != nil || errs != nil {
		select {
		case _, ok := <-resp:
			if !ok {
				resp = nil
			}
		case _, ok := <-errs:
			if !ok {
				errs = nil
			}
		}
	}
}
