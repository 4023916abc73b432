// Package gemini implements model.Model for Google Gemini models using the
// official google.golang.org/genai SDK.
package gemini

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"

	"google.golang.org/genai"

	"github.com/hupe1980/roundtable/core"
	"github.com/hupe1980/roundtable/model"
)

const (
	roleUser  = "user"
	roleModel = "model"
)

// Options configures the Gemini model adapter.
type Options struct {
	Model       string
	APIKey      string // Falls back to GOOGLE_API_KEY / GEMINI_API_KEY
	Temperature float32
	MaxTokens   int32
}

// Model wraps the Gemini GenerateContent API behind the generic model.Model interface.
type Model struct {
	opts Options

	mu     sync.Mutex
	client *genai.Client
}

// NewModel creates a Gemini model. The SDK client needs a context, so it is
// created on first use.
func NewModel(optFns ...func(o *Options)) *Model {
	opts := Options{
		Model:       "gemini-2.0-flash",
		Temperature: 0.7,
		MaxTokens:   4096,
	}
	for _, fn := range optFns {
		fn(&opts)
	}
	return &Model{opts: opts}
}

// NewModelFromClient creates a Gemini model from an existing client.
func NewModelFromClient(client *genai.Client, optFns ...func(o *Options)) *Model {
	m := NewModel(optFns...)
	m.client = client
	return m
}

func (m *Model) ensureClient(ctx context.Context) (*genai.Client, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.client != nil {
		return m.client, nil
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  m.opts.APIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}
	m.client = client
	return client, nil
}

// Generate implements unified streaming / non-streaming generation.
func (m *Model) Generate(ctx context.Context, req model.Request) (<-chan model.Response, <-chan error) {
	out := make(chan model.Response, 32)
	errCh := make(chan error, 1)

	go func() {
		defer close(out)
		defer close(errCh)

		client, err := m.ensureClient(ctx)
		if err != nil {
			errCh <- err
			return
		}

		contents := buildContents(req)
		config := m.buildConfig(req)

		if !req.Stream {
			resp, err := client.Models.GenerateContent(ctx, m.opts.Model, contents, config)
			if err != nil {
				errCh <- fmt.Errorf("gemini generation failed: %w", err)
				return
			}
			r, err := parseResponse(resp)
			if err != nil {
				errCh <- err
				return
			}
			out <- r
			return
		}

		var (
			text   strings.Builder
			calls  []core.ToolCall
			finish = "stop"
			usage  *model.TokenUsage
		)
		for chunk, err := range client.Models.GenerateContentStream(ctx, m.opts.Model, contents, config) {
			if err != nil {
				errCh <- fmt.Errorf("gemini streaming error: %w", err)
				return
			}
			r, err := parseResponse(chunk)
			if err != nil {
				continue
			}
			if r.Content != "" {
				text.WriteString(r.Content)
				out <- model.Response{ID: r.ID, Partial: true, Content: r.Content}
			}
			calls = append(calls, r.ToolCalls...)
			if r.FinishReason != "" {
				finish = r.FinishReason
			}
			if r.Usage != nil {
				usage = r.Usage
			}
		}

		out <- model.Response{Content: text.String(), ToolCalls: calls, FinishReason: finish, Usage: usage}
	}()

	return out, errCh
}

func (m *Model) buildConfig(req model.Request) *genai.GenerateContentConfig {
	config := &genai.GenerateContentConfig{
		Temperature:     genai.Ptr(m.opts.Temperature),
		MaxOutputTokens: m.opts.MaxTokens,
	}
	if req.Instructions != "" {
		config.SystemInstruction = &genai.Content{Parts: []*genai.Part{{Text: req.Instructions}}}
	}
	if len(req.Tools) > 0 {
		decls := make([]*genai.FunctionDeclaration, 0, len(req.Tools))
		for _, t := range req.Tools {
			decls = append(decls, &genai.FunctionDeclaration{
				Name:        t.Function.Name,
				Description: t.Function.Description,
				Parameters:  toSchema(t.Function.Parameters),
			})
		}
		config.Tools = []*genai.Tool{{FunctionDeclarations: decls}}
	}
	return config
}

// buildContents converts the history into Gemini contents. Tool calls are
// model turns, tool results and other agents' replies are user turns.
// Consecutive turns of the same role are merged.
func buildContents(req model.Request) []*genai.Content {
	var contents []*genai.Content

	push := func(role string, part *genai.Part) {
		if n := len(contents); n > 0 && contents[n-1].Role == role {
			contents[n-1].Parts = append(contents[n-1].Parts, part)
			return
		}
		contents = append(contents, &genai.Content{Role: role, Parts: []*genai.Part{part}})
	}

	for _, t := range model.Turns(req.Agent, req.Messages) {
		switch {
		case t.Role == "tool":
			push(roleUser, &genai.Part{FunctionResponse: &genai.FunctionResponse{
				ID:       t.CallID,
				Name:     t.Name,
				Response: map[string]any{"output": t.Text},
			}})
		case t.Role == "assistant" && t.Call != nil:
			if t.Text != "" {
				push(roleModel, &genai.Part{Text: t.Text})
			}
			push(roleModel, &genai.Part{FunctionCall: &genai.FunctionCall{
				ID:   t.Call.ID,
				Name: t.Call.Name,
				Args: toArgs(t.Call.Arguments),
			}})
		case t.Role == "assistant" && t.Name == req.Agent:
			if t.Text != "" {
				push(roleModel, &genai.Part{Text: t.Text})
			}
		default:
			if t.Text != "" {
				push(roleUser, &genai.Part{Text: t.Text})
			}
		}
	}

	return contents
}

// toArgs decodes a JSON object payload. Anything else is passed as the
// single "__arg1" argument.
func toArgs(raw json.RawMessage) map[string]any {
	if len(raw) == 0 {
		return map[string]any{}
	}
	var args map[string]any
	if err := json.Unmarshal(raw, &args); err == nil {
		return args
	}
	return map[string]any{"__arg1": string(raw)}
}

// toSchema converts a JSON schema map to a Gemini schema.
func toSchema(schema map[string]any) *genai.Schema {
	if schema == nil {
		return nil
	}

	s := &genai.Schema{}

	if t, ok := schema["type"].(string); ok {
		s.Type = genai.Type(strings.ToUpper(t))
	}
	if desc, ok := schema["description"].(string); ok {
		s.Description = desc
	}
	if props, ok := schema["properties"].(map[string]any); ok {
		s.Properties = make(map[string]*genai.Schema, len(props))
		for name, prop := range props {
			if propMap, ok := prop.(map[string]any); ok {
				s.Properties[name] = toSchema(propMap)
			}
		}
	}
	switch required := schema["required"].(type) {
	case []string:
		s.Required = required
	case []any:
		for _, r := range required {
			if rs, ok := r.(string); ok {
				s.Required = append(s.Required, rs)
			}
		}
	}
	if items, ok := schema["items"].(map[string]any); ok {
		s.Items = toSchema(items)
	}
	if enum, ok := schema["enum"].([]any); ok {
		for _, e := range enum {
			if es, ok := e.(string); ok {
				s.Enum = append(s.Enum, es)
			}
		}
	}

	return s
}

func parseResponse(resp *genai.GenerateContentResponse) (model.Response, error) {
	if resp == nil || len(resp.Candidates) == 0 {
		return model.Response{}, fmt.Errorf("empty response from Gemini")
	}

	cand := resp.Candidates[0]
	r := model.Response{ID: resp.ResponseID}
	if cand.FinishReason != "" {
		r.FinishReason = strings.ToLower(string(cand.FinishReason))
	}

	if cand.Content != nil {
		var text strings.Builder
		for _, part := range cand.Content.Parts {
			if part.Text != "" && !part.Thought {
				text.WriteString(part.Text)
			}
			if fc := part.FunctionCall; fc != nil {
				args, _ := json.Marshal(fc.Args)
				r.ToolCalls = append(r.ToolCalls, core.ToolCall{ID: fc.ID, Name: fc.Name, Arguments: args})
			}
		}
		r.Content = text.String()
	}

	if u := resp.UsageMetadata; u != nil {
		r.Usage = &model.TokenUsage{
			PromptTokens:     int(u.PromptTokenCount),
			CompletionTokens: int(u.CandidatesTokenCount),
			TotalTokens:      int(u.TotalTokenCount),
		}
	}

	return r, nil
}

// Info returns metadata describing this Gemini model implementation.
func (m *Model) Info() model.Info {
	return model.Info{Name: m.opts.Model, Provider: "gemini", SupportsTools: true}
}
