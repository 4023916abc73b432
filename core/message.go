package core

import (
	"encoding/json"
	"strings"
	"time"

	"github.com/google/uuid"
)

// TerminalMarker is the literal substring that ends a run when it appears in
// a plain agent reply. It is matched verbatim regardless of prompt language.
const TerminalMarker = "FINAL ANSWER"

const (
	// RoleUser identifies the seed message of a run.
	RoleUser = "user"
	// RoleTool identifies messages produced by the tool node.
	RoleTool = "tool"
)

// Kind classifies a message. It is decided exactly once, by the constructor
// that produces the message, and carried unchanged to every consumer.
type Kind int

const (
	// KindPlain is an agent reply without tool call or terminal marker.
	KindPlain Kind = iota
	// KindToolCall is an agent reply carrying a tool call request.
	KindToolCall
	// KindTerminal is an agent reply whose content contains TerminalMarker.
	KindTerminal
	// KindToolResult is the textual outcome of a tool execution.
	KindToolResult
	// KindUser is the seed message supplied by the caller.
	KindUser
)

// String returns the lower-case name of the kind.
func (k Kind) String() string {
	switch k {
	case KindPlain:
		return "plain"
	case KindToolCall:
		return "tool_call"
	case KindTerminal:
		return "terminal"
	case KindToolResult:
		return "tool_result"
	case KindUser:
		return "user"
	default:
		return "unknown"
	}
}

// ToolCall describes a tool invocation requested by an agent.
type ToolCall struct {
	ID        string          `json:"id,omitempty"`        // Correlates the request with its result
	Name      string          `json:"name"`                // Tool name
	Arguments json.RawMessage `json:"arguments,omitempty"` // Serialized argument payload (JSON)
}

// clone returns a deep copy so callers cannot mutate an appended message
// through a shared pointer.
func (c *ToolCall) clone() *ToolCall {
	if c == nil {
		return nil
	}
	cp := *c
	if c.Arguments != nil {
		cp.Arguments = append(json.RawMessage(nil), c.Arguments...)
	}
	return &cp
}

// Message is a single entry of the conversation. Messages are produced by
// exactly one node execution and must be treated as immutable afterwards.
//
// Build messages with NewUserMessage, NewReply or NewToolResult: those are the
// only places where Kind is derived.
type Message struct {
	ID        string    `json:"id"`
	Role      string    `json:"role"`              // Sender id, "user" or "tool"
	Name      string    `json:"name,omitempty"`    // Tool name for tool results
	CallID    string    `json:"call_id,omitempty"` // Originating tool call id for tool results
	Content   string    `json:"content"`
	ToolCall  *ToolCall `json:"tool_call,omitempty"`
	Kind      Kind      `json:"kind"`
	Failed    bool      `json:"failed,omitempty"` // Tool result describes a failure
	Timestamp time.Time `json:"timestamp"`
}

// NewID generates a new unique identifier for messages, runs and tool calls.
func NewID() string { return uuid.NewString() }

// Classify decides the kind of an agent reply. A tool call payload wins over
// the terminal marker.
func Classify(content string, call *ToolCall) Kind {
	if call != nil {
		return KindToolCall
	}
	if strings.Contains(content, TerminalMarker) {
		return KindTerminal
	}
	return KindPlain
}

// NewUserMessage creates the caller supplied seed message of a run.
func NewUserMessage(content string) Message {
	return Message{
		ID:        NewID(),
		Role:      RoleUser,
		Content:   content,
		Kind:      KindUser,
		Timestamp: time.Now().UTC(),
	}
}

// NewReply creates an agent reply and classifies it. A tool call without an
// id is assigned one.
func NewReply(sender, content string, call *ToolCall) Message {
	call = call.clone()
	if call != nil && call.ID == "" {
		call.ID = "call_" + NewID()
	}
	return Message{
		ID:        NewID(),
		Role:      sender,
		Content:   content,
		ToolCall:  call,
		Kind:      Classify(content, call),
		Timestamp: time.Now().UTC(),
	}
}

// NewErrorReply records a failed agent turn as a plain reply. It is never
// classified, so error text cannot end a run or request a tool.
func NewErrorReply(sender string, err error) Message {
	return Message{
		ID:        NewID(),
		Role:      sender,
		Content:   "Error: " + err.Error(),
		Kind:      KindPlain,
		Timestamp: time.Now().UTC(),
	}
}

// NewToolResult creates the message produced by the tool node for callID.
func NewToolResult(toolName, callID, content string, failed bool) Message {
	return Message{
		ID:        NewID(),
		Role:      RoleTool,
		Name:      toolName,
		CallID:    callID,
		Content:   content,
		Kind:      KindToolResult,
		Failed:    failed,
		Timestamp: time.Now().UTC(),
	}
}

// HasToolCall reports whether the message is a tool call request.
func (m Message) HasToolCall() bool { return m.Kind == KindToolCall }

// IsTerminal reports whether the message ends the run.
func (m Message) IsTerminal() bool { return m.Kind == KindTerminal }

// IsAgentReply reports whether the message was produced by an agent node.
func (m Message) IsAgentReply() bool {
	switch m.Kind {
	case KindPlain, KindToolCall, KindTerminal:
		return true
	}
	return false
}
