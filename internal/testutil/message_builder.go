package testutil

import (
	"encoding/json"

	"github.com/hupe1980/roundtable/core"
)

// MessageBuilder provides a fluent helper for constructing agent replies in tests.
// Example:
//
//	msg := testutil.NewMessageBuilder("Researcher").Text("done").Build()
//	call := testutil.NewMessageBuilder("Researcher").Call("search", map[string]any{"q": "go"}).Build()
//
// Chain only the parts you need; the kind is derived by core.NewReply.
type MessageBuilder struct {
	sender  string
	content string
	call    *core.ToolCall
}

// NewMessageBuilder creates a builder for a reply sent by sender.
func NewMessageBuilder(sender string) *MessageBuilder { return &MessageBuilder{sender: sender} }

// Text sets the reply content (chainable).
func (b *MessageBuilder) Text(t string) *MessageBuilder { b.content = t; return b }

// Final appends the terminal marker to the content (chainable).
func (b *MessageBuilder) Final(answer string) *MessageBuilder {
	b.content = core.TerminalMarker + ": " + answer
	return b
}

// Call attaches a tool call with JSON encoded args (chainable). A string args
// value is used as the raw payload.
func (b *MessageBuilder) Call(name string, args any) *MessageBuilder {
	b.call = &core.ToolCall{Name: name, Arguments: Raw(args)}
	return b
}

// Build finalizes and returns the message.
func (b *MessageBuilder) Build() core.Message {
	return core.NewReply(b.sender, b.content, b.call)
}

// Raw encodes v as a JSON payload. Strings are returned unchanged.
func Raw(v any) json.RawMessage {
	if v == nil {
		return nil
	}
	if s, ok := v.(string); ok {
		return json.RawMessage(s)
	}
	b, err := json.Marshal(v)
	if err != nil {
		panic(err)
	}
	return b
}

// StateWith builds a state seeded with a user message followed by msgs. The
// sender is the role of the last agent reply.
func StateWith(seed string, msgs ...core.Message) *core.State {
	st := core.NewState(core.NewUserMessage(seed))
	for _, m := range msgs {
		d := core.Delta{Messages: []core.Message{m}}
		if m.IsAgentReply() {
			d.Sender = m.Role
		}
		st.Apply(d)
	}
	return st
}

// Roles returns the role of each event or message, in order.
func Roles[T interface{ core.Event | core.Message }](items []T) []string {
	out := make([]string, 0, len(items))
	for _, it := range items {
		switch v := any(it).(type) {
		case core.Event:
			out = append(out, v.Role)
		case core.Message:
			out = append(out, v.Role)
		}
	}
	return out
}
