package core

import "sync"

// StateView is the read-only surface of a conversation handed to nodes.
type StateView interface {
	Messages() []Message
	Len() int
	Last() (Message, bool)
	Sender() string
}

// Delta is the output of one node execution merged into State.
// Messages are concatenated; a non-empty Sender overwrites the recorded sender.
type Delta struct {
	Messages []Message
	Sender   string
}

// State is the shared conversation record of a single run. It is append-only:
// messages are never removed or rewritten once applied.
//
// Contract:
//   - Messages returns a copy
//   - Sender is the last agent that acted; the tool node never sets it
//   - Safe for concurrent readers while a single writer applies deltas
type State struct {
	mu       sync.RWMutex
	messages []Message
	sender   string
}

// NewState creates a state seeded with the given messages.
func NewState(seed ...Message) *State {
	msgs := make([]Message, 0, len(seed)+8)
	msgs = append(msgs, seed...)
	return &State{messages: msgs}
}

// Apply merges a delta into the state.
func (s *State) Apply(d Delta) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.messages = append(s.messages, d.Messages...)
	if d.Sender != "" {
		s.sender = d.Sender
	}
}

// Messages returns a copy of the ordered message history.
func (s *State) Messages() []Message {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Message, len(s.messages))
	copy(out, s.messages)
	return out
}

// Len returns the number of messages.
func (s *State) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.messages)
}

// Last returns the most recent message.
func (s *State) Last() (Message, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if len(s.messages) == 0 {
		return Message{}, false
	}
	return s.messages[len(s.messages)-1], true
}

// Sender returns the id of the last agent that acted.
func (s *State) Sender() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.sender
}
