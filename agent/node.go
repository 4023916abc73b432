package agent

import (
	"context"
	"fmt"
	"time"

	"github.com/hupe1980/roundtable/core"
	"github.com/hupe1980/roundtable/logging"
	"github.com/hupe1980/roundtable/model"
)

// Options configures a Node instance.
//
// Use functional options with NewNode to override defaults.
type Options struct {
	Nickname           string                 // Display name, defaults to the id
	Next               string                 // Agent receiving control after a plain reply
	Entry              bool                   // Whether the run starts here
	Model              model.Model            // Language model; required
	Tools              []model.ToolDefinition // Tools advertised to the model
	Preamble           string                 // Prompt template, DefaultPreamble when empty
	SystemMessage      string                 // The agent's own instructions
	Instruction        Instruction            // Replaces the rendered prompt when set
	MaxHistoryMessages int                    // Most recent messages sent to the model, 0 = all
	Stream             bool                   // Request a streaming completion
	Logger             logging.Logger
}

// Node is an agent worker of a conference. It produces exactly one reply per
// invocation and holds no per-run state.
type Node struct {
	id          string
	nickname    string
	next        string
	entry       bool
	llm         model.Model
	tools       []model.ToolDefinition
	instruction Instruction
	maxHistory  int
	stream      bool
	logger      logging.Logger
}

// NewNode creates an agent node. It fails with a *core.ConfigurationError
// wrapping core.ErrNoModel when no model is configured, or when the prompt
// template cannot be rendered.
func NewNode(id string, optFns ...func(o *Options)) (*Node, error) {
	opts := Options{
		Preamble: DefaultPreamble,
		Logger:   logging.NoOpLogger{},
	}
	for _, fn := range optFns {
		fn(&opts)
	}

	if opts.Model == nil {
		return nil, core.NewConfigurationError(id, core.ErrNoModel)
	}
	if opts.Nickname == "" {
		opts.Nickname = id
	}

	instruction := opts.Instruction
	if instruction.IsZero() {
		names := make([]string, len(opts.Tools))
		for i, t := range opts.Tools {
			names[i] = t.Function.Name
		}
		text, err := RenderPrompt(opts.Preamble, PromptData{
			Agent:         id,
			Nickname:      opts.Nickname,
			Tools:         names,
			SystemMessage: opts.SystemMessage,
			Marker:        core.TerminalMarker,
		})
		if err != nil {
			return nil, core.NewConfigurationError(id, err)
		}
		instruction = NewInstructionFromText(text)
	}

	return &Node{
		id:          id,
		nickname:    opts.Nickname,
		next:        opts.Next,
		entry:       opts.Entry,
		llm:         opts.Model,
		tools:       append([]model.ToolDefinition(nil), opts.Tools...),
		instruction: instruction,
		maxHistory:  opts.MaxHistoryMessages,
		stream:      opts.Stream,
		logger:      logging.OrNoOp(opts.Logger),
	}, nil
}

// ID returns the node id, which is also the Role of every reply it produces.
func (n *Node) ID() string { return n.id }

// Nickname returns the display name.
func (n *Node) Nickname() string { return n.nickname }

// Next returns the agent that receives control after a plain reply.
func (n *Node) Next() string { return n.next }

// Entry reports whether the node is the entry point.
func (n *Node) Entry() bool { return n.entry }

// Model returns the bound language model.
func (n *Node) Model() model.Model { return n.llm }

// ToolNames returns the advertised tool names in declaration order.
func (n *Node) ToolNames() []string {
	names := make([]string, len(n.tools))
	for i, t := range n.tools {
		names[i] = t.Function.Name
	}
	return names
}

// Instructions resolves the system prompt for state.
func (n *Node) Instructions(state core.StateView) (string, error) {
	return n.instruction.Resolve(state)
}

// Invoke asks the model for the next reply given the conversation so far.
// The returned message is already classified. Model failures are returned
// as errors; the caller decides how to record them.
func (n *Node) Invoke(ctx context.Context, state core.StateView) (core.Message, error) {
	instructions, err := n.instruction.Resolve(state)
	if err != nil {
		return core.Message{}, fmt.Errorf("resolve instructions for %s: %w", n.id, err)
	}

	req := model.Request{
		Agent:        n.id,
		Instructions: instructions,
		Messages:     TrimHistory(state.Messages(), n.maxHistory),
		Tools:        n.tools,
		Stream:       n.stream,
	}

	n.logger.Debug("agent.invoke.start", "agent", n.id, "messages", len(req.Messages), "tools", len(req.Tools))

	start := time.Now()
	resp, err := model.Complete(ctx, n.llm, req)
	dur := time.Since(start)

	tokens := 0
	if resp.Usage != nil {
		tokens = resp.Usage.TotalTokens
	}
	logLLMCall(n.logger, n.llm.Info().Name, n.id, tokens, dur, err)

	if err != nil {
		n.logger.Warn("agent.invoke.error", "agent", n.id, "error", err.Error())
		return core.Message{}, err
	}

	var call *core.ToolCall
	if len(resp.ToolCalls) > 0 {
		first := resp.ToolCalls[0]
		call = &first
		if len(resp.ToolCalls) > 1 {
			n.logger.Warn("agent.invoke.extra_tool_calls",
				"agent", n.id,
				"kept", first.Name,
				"dropped", len(resp.ToolCalls)-1,
			)
		}
	}

	msg := core.NewReply(n.id, resp.Content, call)

	n.logger.Debug("agent.invoke.complete", "agent", n.id, "kind", msg.Kind.String(), "duration_ms", dur.Milliseconds())

	return msg, nil
}

// TrimHistory keeps the seed message plus the last max messages. A window
// never starts with a tool result, whose call would otherwise be missing.
// max <= 0 keeps everything.
func TrimHistory(msgs []core.Message, max int) []core.Message {
	if max <= 0 || len(msgs) <= max {
		return msgs
	}

	start := len(msgs) - max
	for start < len(msgs) && msgs[start].Kind == core.KindToolResult {
		start++
	}

	out := make([]core.Message, 0, len(msgs)-start+1)
	if msgs[0].Kind == core.KindUser && start > 0 {
		out = append(out, msgs[0])
	}
	return append(out, msgs[start:]...)
}

// llmCallLogger is implemented by loggers with a dedicated model call helper,
// such as logging.ConferenceLogger.
type llmCallLogger interface {
	LogLLMCall(model, agent string, tokens int, dur time.Duration, success bool, err error)
}

func logLLMCall(l logging.Logger, modelName, agent string, tokens int, dur time.Duration, err error) {
	if ll, ok := l.(llmCallLogger); ok {
		ll.LogLLMCall(modelName, agent, tokens, dur, err == nil, err)
	}
}
