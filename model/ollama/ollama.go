// Package ollama implements model.Model on top of a local Ollama runtime.
package ollama

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/ollama/ollama/api"

	"github.com/hupe1980/roundtable/core"
	"github.com/hupe1980/roundtable/model"
)

// DefaultHost is used when Options.Host is empty or invalid.
const DefaultHost = "http://localhost:11434"

// Options configures the Ollama model adapter.
type Options struct {
	Model       string
	Host        string
	Temperature float64
	MaxTokens   int
}

// Model wraps the Ollama chat API behind the generic model.Model interface.
type Model struct {
	client *api.Client
	opts   Options
}

// NewModel creates an Ollama model talking to opts.Host.
func NewModel(optFns ...func(o *Options)) *Model {
	opts := Options{
		Model:       "llama3.1",
		Host:        DefaultHost,
		Temperature: 0.7,
		MaxTokens:   4096,
	}
	for _, fn := range optFns {
		fn(&opts)
	}

	u, err := url.Parse(opts.Host)
	if err != nil || u.Scheme == "" {
		u, _ = url.Parse(DefaultHost)
	}

	return &Model{client: api.NewClient(u, http.DefaultClient), opts: opts}
}

// Generate implements unified streaming / non-streaming generation.
func (m *Model) Generate(ctx context.Context, req model.Request) (<-chan model.Response, <-chan error) {
	out := make(chan model.Response, 32)
	errCh := make(chan error, 1)

	go func() {
		defer close(out)
		defer close(errCh)

		chatReq, err := m.buildRequest(req)
		if err != nil {
			errCh <- err
			return
		}

		var (
			text  strings.Builder
			calls []core.ToolCall
			final api.ChatResponse
		)
		err = m.client.Chat(ctx, chatReq, func(resp api.ChatResponse) error {
			if resp.Message.Content != "" {
				text.WriteString(resp.Message.Content)
				if req.Stream {
					out <- model.Response{Partial: true, Content: resp.Message.Content}
				}
			}
			for _, tc := range resp.Message.ToolCalls {
				calls = append(calls, fromToolCall(tc))
			}
			if resp.Done {
				final = resp
			}
			return nil
		})
		if err != nil {
			errCh <- classifyError(err)
			return
		}

		finish := final.DoneReason
		if finish == "" {
			finish = "stop"
		}
		prompt, completion := final.PromptEvalCount, final.EvalCount

		out <- model.Response{
			Content:      text.String(),
			ToolCalls:    calls,
			FinishReason: finish,
			Usage:        &model.TokenUsage{PromptTokens: prompt, CompletionTokens: completion, TotalTokens: prompt + completion},
		}
	}()

	return out, errCh
}

// buildRequest assembles the chat request. Messages and tools are built
// through their JSON form so the api argument and schema types never need to
// be populated field by field.
func (m *Model) buildRequest(req model.Request) (*api.ChatRequest, error) {
	wire := make([]map[string]any, 0, len(req.Messages)+1)
	if req.Instructions != "" {
		wire = append(wire, map[string]any{"role": "system", "content": req.Instructions})
	}
	for _, t := range model.Turns(req.Agent, req.Messages) {
		switch {
		case t.Role == "tool":
			wire = append(wire, map[string]any{"role": "tool", "content": t.Text, "tool_name": t.Name, "tool_call_id": t.CallID})
		case t.Role == "assistant" && (t.Call != nil || t.Name == req.Agent):
			msg := map[string]any{"role": "assistant", "content": t.Text}
			if t.Call != nil {
				msg["tool_calls"] = []map[string]any{{
					"id":       t.Call.ID,
					"function": map[string]any{"name": t.Call.Name, "arguments": objectArgs(t.Call.Arguments)},
				}}
			}
			wire = append(wire, msg)
		default:
			wire = append(wire, map[string]any{"role": "user", "content": t.Text})
		}
	}

	var messages []api.Message
	if err := remarshal(wire, &messages); err != nil {
		return nil, fmt.Errorf("ollama messages: %w", err)
	}

	stream := req.Stream
	chatReq := &api.ChatRequest{
		Model:    m.opts.Model,
		Messages: messages,
		Stream:   &stream,
		Options: map[string]any{
			"temperature": m.opts.Temperature,
			"num_predict": m.opts.MaxTokens,
		},
	}

	if len(req.Tools) > 0 {
		var tools api.Tools
		if err := remarshal(req.Tools, &tools); err != nil {
			return nil, fmt.Errorf("ollama tools: %w", err)
		}
		chatReq.Tools = tools
	}

	return chatReq, nil
}

func remarshal(in, out any) error {
	b, err := json.Marshal(in)
	if err != nil {
		return err
	}
	return json.Unmarshal(b, out)
}

func objectArgs(raw json.RawMessage) map[string]any {
	args := map[string]any{}
	if len(raw) == 0 {
		return args
	}
	if err := json.Unmarshal(raw, &args); err != nil {
		return map[string]any{"__arg1": string(raw)}
	}
	return args
}

// fromToolCall converts a returned call. Ollama matches results by tool name,
// so the id is left for core.NewReply to assign.
func fromToolCall(tc api.ToolCall) core.ToolCall {
	args, err := json.Marshal(tc.Function.Arguments)
	if err != nil {
		args = nil
	}
	return core.ToolCall{Name: tc.Function.Name, Arguments: args}
}

// classifyError wraps transport errors with a readable hint.
func classifyError(err error) error {
	errStr := err.Error()
	switch {
	case strings.Contains(errStr, "connection refused"):
		return fmt.Errorf("ollama server not reachable: %w", err)
	case strings.Contains(errStr, "model") && strings.Contains(errStr, "not found"):
		return fmt.Errorf("ollama model not found: %w", err)
	default:
		return fmt.Errorf("ollama api error: %w", err)
	}
}

// Info returns metadata describing this Ollama model implementation.
func (m *Model) Info() model.Info {
	return model.Info{Name: m.opts.Model, Provider: "ollama", SupportsTools: true}
}
