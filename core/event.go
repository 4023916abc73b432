package core

import "time"

// Event is the record streamed to callers for every message produced during a
// run. Role is the conversational party shown to the caller: tool results are
// relabeled with the agent that requested them, while Author keeps the node
// that actually produced the message.
//
// Events are values and should be treated as immutable after emission.
type Event struct {
	ID        string    `json:"id"`
	RunID     string    `json:"run_id"`
	Step      int       `json:"step"`
	Role      string    `json:"role"`
	Author    string    `json:"author"`
	Content   string    `json:"content"`
	Kind      Kind      `json:"kind"`
	ToolCall  *ToolCall `json:"tool_call,omitempty"`
	Failed    bool      `json:"failed,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// NewEvent wraps a produced message as an event shown under role.
func NewEvent(runID string, step int, role string, msg Message) Event {
	return Event{
		ID:        NewID(),
		RunID:     runID,
		Step:      step,
		Role:      role,
		Author:    msg.Role,
		Content:   msg.Content,
		Kind:      msg.Kind,
		ToolCall:  msg.ToolCall.clone(),
		Failed:    msg.Failed,
		Timestamp: msg.Timestamp,
	}
}

// IsToolResult reports whether the event carries a relabeled tool result.
func (e Event) IsToolResult() bool { return e.Kind == KindToolResult }
