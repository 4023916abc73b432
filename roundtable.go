// Package roundtable runs conferences: several language model agents and a
// shared tool kit collaborating on one conversation until an agent declares
// the final answer or the step budget runs out.
//
// Most applications interact with this package by:
//  1. Creating a Conference via New() with a default model
//  2. Registering tools (AddTool) and agents (AddAgent)
//  3. Validating the declaration once with Build
//  4. Running conversations lazily (Invoke, Start) or eagerly (InvokeSync, InvokeAll)
//
// A built Conference is immutable and safe for concurrent runs; every run
// owns its own conversation state.
package roundtable

import (
	"errors"
	"fmt"
	"sync"

	"golang.org/x/sync/semaphore"

	"github.com/hupe1980/roundtable/agent"
	"github.com/hupe1980/roundtable/core"
	"github.com/hupe1980/roundtable/graph"
	"github.com/hupe1980/roundtable/logging"
	"github.com/hupe1980/roundtable/model"
	"github.com/hupe1980/roundtable/tool"
)

// DefaultStepBudget is the number of node executions a run may take when
// the caller passes a budget <= 0.
const DefaultStepBudget = graph.DefaultBudget

// DefaultMaxConcurrentRuns bounds simultaneous runs of one Conference.
const DefaultMaxConcurrentRuns = 10

// Options configures a Conference.
type Options struct {
	// Model is the default language model for agents without their own.
	Model model.Model

	// Middlewares wrap every agent's model, outermost first.
	Middlewares []model.Middleware

	// Preamble is the prompt template placed before each agent's system
	// message. Defaults to agent.DefaultPreamble.
	Preamble string

	// DefaultStepBudget applies when a run is started with budget <= 0.
	DefaultStepBudget int

	// MaxConcurrentRuns limits how many runs execute at the same time.
	// Set to 0 for unlimited.
	MaxConcurrentRuns int

	// MaxHistoryMessages trims the history sent to models; 0 sends everything.
	MaxHistoryMessages int

	// Stream requests streaming completions from the models.
	Stream bool

	// Hooks observe every run.
	Hooks graph.Hooks

	// Logger (defaults to NoOp logger if nil)
	Logger logging.Logger
}

// AgentOptions configures a single agent.
type AgentOptions struct {
	// Nickname is a display name; defaults to the agent name.
	Nickname string

	// Model overrides the conference default.
	Model model.Model

	// Tools restricts the tools advertised to and callable by the agent.
	// nil means every registered tool; an empty slice means none.
	Tools []string

	// Instruction replaces the rendered preamble and system message.
	Instruction agent.Instruction
}

type agentSpec struct {
	name          string
	systemMessage string
	next          string
	entry         bool
	opts          AgentOptions
}

// Conference declares agents and tools and runs conversations between them.
type Conference struct {
	opts Options
	sem  *semaphore.Weighted

	mu     sync.RWMutex
	tools  []tool.Tool
	agents []agentSpec
	graph  *graph.Graph
	nodes  []*agent.Node
}

// New creates a Conference with optional overrides.
func New(optFns ...func(o *Options)) *Conference {
	opts := Options{
		Preamble:          agent.DefaultPreamble,
		DefaultStepBudget: DefaultStepBudget,
		MaxConcurrentRuns: DefaultMaxConcurrentRuns,
		Logger:            logging.NoOpLogger{},
	}
	for _, fn := range optFns {
		fn(&opts)
	}
	opts.Logger = logging.OrNoOp(opts.Logger)
	if opts.DefaultStepBudget <= 0 {
		opts.DefaultStepBudget = DefaultStepBudget
	}

	c := &Conference{opts: opts}
	if opts.MaxConcurrentRuns > 0 {
		c.sem = semaphore.NewWeighted(int64(opts.MaxConcurrentRuns))
	}
	return c
}

// AddTool registers tools shared by the conference (chainable). Name
// collisions are reported by Build.
func (c *Conference) AddTool(tools ...tool.Tool) *Conference {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.tools = append(c.tools, tools...)
	c.graph = nil
	return c
}

// AddAgent declares an agent (chainable). next names the agent that takes
// over after a plain reply; exactly one agent must be the entry point.
// Problems are reported by Build.
func (c *Conference) AddAgent(name, systemMessage, next string, entry bool, optFns ...func(o *AgentOptions)) *Conference {
	var opts AgentOptions
	for _, fn := range optFns {
		fn(&opts)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.agents = append(c.agents, agentSpec{
		name:          name,
		systemMessage: systemMessage,
		next:          next,
		entry:         entry,
		opts:          opts,
	})
	c.graph = nil
	return c
}

// Build validates the declaration and compiles the workflow graph. Every
// problem found is returned, joined; each is a *core.ConfigurationError.
// On failure the conference has no graph and runs report core.ErrNotBuilt.
func (c *Conference) Build() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.graph, c.nodes = nil, nil

	var errs []error

	registry := tool.NewRegistry(func(o *tool.RegistryOptions) { o.Logger = c.opts.Logger })
	for _, t := range c.tools {
		if err := registry.Register(t); err != nil {
			errs = append(errs, core.NewConfigurationError(t.Name(), err))
		}
	}

	allowed := map[string][]string{}
	builder := graph.NewBuilder()
	nodes := make([]*agent.Node, 0, len(c.agents))

	for _, spec := range c.agents {
		defs := registry.Definitions()
		if spec.opts.Tools != nil {
			unknown := false
			for _, name := range spec.opts.Tools {
				if _, ok := registry.Get(name); !ok {
					errs = append(errs, core.NewConfigurationError(fmt.Sprintf("%s: %s", spec.name, name), core.ErrUnknownTool))
					unknown = true
				}
			}
			if unknown {
				continue
			}
			defs = nil
			if len(spec.opts.Tools) > 0 {
				defs = registry.Definitions(spec.opts.Tools...)
			}
			allowed[spec.name] = spec.opts.Tools
		}

		llm := spec.opts.Model
		if llm == nil {
			llm = c.opts.Model
		}
		if llm != nil && len(c.opts.Middlewares) > 0 {
			llm = model.Chain(llm, c.opts.Middlewares...)
		}

		node, err := agent.NewNode(spec.name, func(o *agent.Options) {
			o.Nickname = spec.opts.Nickname
			o.Next = spec.next
			o.Entry = spec.entry
			o.Model = llm
			o.Tools = defs
			o.Preamble = c.opts.Preamble
			o.SystemMessage = spec.systemMessage
			o.Instruction = spec.opts.Instruction
			o.MaxHistoryMessages = c.opts.MaxHistoryMessages
			o.Stream = c.opts.Stream
			o.Logger = c.opts.Logger
		})
		if err != nil {
			errs = append(errs, err)
			continue
		}
		nodes = append(nodes, node)
		builder.AddAgent(node)
	}

	if len(errs) > 0 {
		err := errors.Join(errs...)
		c.opts.Logger.Error("conference.build.error", "error", err.Error())
		return err
	}

	g, err := builder.SetToolNode(tool.NewExecutor(registry, allowed)).Compile()
	if err != nil {
		c.opts.Logger.Error("conference.build.error", "error", err.Error())
		return err
	}

	c.graph, c.nodes = g, nodes
	c.opts.Logger.Info("conference.build.complete", "agents", len(nodes), "tools", registry.Len(), "entry", g.Entry())
	return nil
}

// Graph returns the compiled graph, or false before a successful Build.
func (c *Conference) Graph() (*graph.Graph, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.graph, c.graph != nil
}

// AgentInfo describes a built agent.
type AgentInfo struct {
	Name     string
	Nickname string
	Next     string
	Entry    bool
	Tools    []string
	Model    model.Info
}

// Agents describes the built agents in declaration order.
func (c *Conference) Agents() []AgentInfo {
	c.mu.RLock()
	defer c.mu.RUnlock()

	out := make([]AgentInfo, 0, len(c.nodes))
	for _, n := range c.nodes {
		out = append(out, AgentInfo{
			Name:     n.ID(),
			Nickname: n.Nickname(),
			Next:     n.Next(),
			Entry:    n.Entry(),
			Tools:    n.ToolNames(),
			Model:    n.Model().Info(),
		})
	}
	return out
}
