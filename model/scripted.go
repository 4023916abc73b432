package model

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"github.com/hupe1980/roundtable/core"
)

// ErrScriptExhausted is returned when a ScriptedModel is asked for more
// replies than it was given.
var ErrScriptExhausted = errors.New("scripted model: no replies left")

// Reply is one canned model turn.
type Reply struct {
	Content   string
	ToolCalls []core.ToolCall
	Err       error
	Usage     *TokenUsage
}

// Text returns a plain text reply.
func Text(content string) Reply { return Reply{Content: content} }

// Final returns a reply carrying the terminal marker.
func Final(answer string) Reply { return Reply{Content: core.TerminalMarker + ": " + answer} }

// Call returns a reply requesting a single tool. args is JSON encoded unless
// it is already a string, which is used as the raw payload.
func Call(name string, args any) Reply {
	var raw json.RawMessage
	switch v := args.(type) {
	case nil:
	case string:
		raw = json.RawMessage(v)
	default:
		b, err := json.Marshal(v)
		if err != nil {
			return Reply{Err: fmt.Errorf("encode args: %w", err)}
		}
		raw = b
	}
	return Reply{ToolCalls: []core.ToolCall{{Name: name, Arguments: raw}}}
}

// Fail returns a reply that makes Generate report err.
func Fail(err error) Reply { return Reply{Err: err} }

// ScriptedModel is a deterministic in-memory Model for tests and examples.
// It hands out replies in order, either from a shared script or from a
// per-agent script keyed by Request.Agent, and records every request.
type ScriptedModel struct {
	mu       sync.Mutex
	info     Info
	shared   []Reply
	perAgent map[string][]Reply
	requests []Request
}

// NewScriptedModel creates a model replaying replies in order.
func NewScriptedModel(replies ...Reply) *ScriptedModel {
	return &ScriptedModel{
		info:     Info{Name: "scripted", Provider: "scripted", SupportsTools: true},
		shared:   replies,
		perAgent: map[string][]Reply{},
	}
}

// For registers replies served only to requests from agent (chainable).
func (m *ScriptedModel) For(agent string, replies ...Reply) *ScriptedModel {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.perAgent[agent] = append(m.perAgent[agent], replies...)
	return m
}

// Requests returns a copy of every request received so far.
func (m *ScriptedModel) Requests() []Request {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Request, len(m.requests))
	copy(out, m.requests)
	return out
}

// Calls returns how many times Generate was invoked.
func (m *ScriptedModel) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.requests)
}

func (m *ScriptedModel) next(req Request) (Reply, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	req.Messages = append([]core.Message(nil), req.Messages...)
	m.requests = append(m.requests, req)

	if q := m.perAgent[req.Agent]; len(q) > 0 {
		m.perAgent[req.Agent] = q[1:]
		return q[0], nil
	}
	if len(m.shared) > 0 {
		r := m.shared[0]
		m.shared = m.shared[1:]
		return r, nil
	}
	return Reply{}, ErrScriptExhausted
}

// Generate implements Model; emits per-rune partial chunks when streaming, then the final response.
func (m *ScriptedModel) Generate(ctx context.Context, req Request) (<-chan Response, <-chan error) {
	respCh := make(chan Response, 16)
	errCh := make(chan error, 1)

	go func() {
		defer close(respCh)
		defer close(errCh)

		reply, err := m.next(req)
		if err != nil {
			errCh <- err
			return
		}
		if reply.Err != nil {
			errCh <- reply.Err
			return
		}

		if req.Stream {
			for _, r := range reply.Content {
				select {
				case <-ctx.Done():
					errCh <- ctx.Err()
					return
				case respCh <- Response{Partial: true, Content: string(r)}:
				}
			}
		}

		finish := "stop"
		if len(reply.ToolCalls) > 0 {
			finish = "tool_calls"
		}

		select {
		case <-ctx.Done():
			errCh <- ctx.Err()
		case respCh <- Response{
			ID:           core.NewID(),
			Content:      reply.Content,
			ToolCalls:    reply.ToolCalls,
			FinishReason: finish,
			Usage:        reply.Usage,
		}:
		}
	}()

	return respCh, errCh
}

// Info implements Model.
func (m *ScriptedModel) Info() Info { return m.info }
