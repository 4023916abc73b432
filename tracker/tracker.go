// Package tracker records language model calls of a conference as a
// timeline of track items with token usage.
//
// Every Tracker owns its items; separate conferences or runs never share a
// timeline unless they share the Tracker.
package tracker

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/hupe1980/roundtable/core"
	"github.com/hupe1980/roundtable/logging"
	"github.com/hupe1980/roundtable/model"
)

// Phase marks the position of an item in a model call.
type Phase string

const (
	PhaseStart Phase = "start"
	PhaseEnd   Phase = "end"
	PhaseError Phase = "error"
)

// Item is one entry of the timeline.
type Item struct {
	RequestID string            `json:"request_id"`
	Agent     string            `json:"agent"`
	Model     string            `json:"model"`
	Phase     Phase             `json:"phase"`
	Time      time.Time         `json:"time"`
	Text      string            `json:"text"`
	Usage     *model.TokenUsage `json:"usage,omitempty"`
	Estimated bool              `json:"estimated,omitempty"` // Usage counted locally
}

// Options configure a Tracker.
type Options struct {
	// Counter estimates usage when a model reports none. nil disables estimation.
	Counter *TokenCounter
	Logger  logging.Logger
}

// Tracker collects model call items. It is safe for concurrent use.
type Tracker struct {
	mu      sync.Mutex
	items   []Item
	counter *TokenCounter
	logger  logging.Logger
}

// New creates an empty tracker.
func New(optFns ...func(o *Options)) *Tracker {
	opts := Options{Logger: logging.NoOpLogger{}}
	for _, fn := range optFns {
		fn(&opts)
	}
	return &Tracker{counter: opts.Counter, logger: logging.OrNoOp(opts.Logger)}
}

// Items returns a copy of the timeline.
func (t *Tracker) Items() []Item {
	t.mu.Lock()
	defer t.mu.Unlock()
	return append([]Item(nil), t.items...)
}

// Clear drops every item.
func (t *Tracker) Clear() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.items = nil
}

// Totals sums the usage of every finished call.
func (t *Tracker) Totals() model.TokenUsage {
	t.mu.Lock()
	defer t.mu.Unlock()

	var sum model.TokenUsage
	for _, it := range t.items {
		if it.Usage == nil {
			continue
		}
		sum.PromptTokens += it.Usage.PromptTokens
		sum.CompletionTokens += it.Usage.CompletionTokens
		sum.TotalTokens += it.Usage.TotalTokens
	}
	return sum
}

func (t *Tracker) add(it Item) {
	t.mu.Lock()
	t.items = append(t.items, it)
	t.mu.Unlock()
}

// Middleware returns a model middleware that records a start item before
// each call and an end or error item after it.
func (t *Tracker) Middleware() model.Middleware {
	return func(next model.Model) model.Model {
		return model.Func{
			GenerateFunc: func(ctx context.Context, req model.Request) (<-chan model.Response, <-chan error) {
				id := core.NewID()
				name := next.Info().Name
				prompt := promptText(req)

				t.add(Item{RequestID: id, Agent: req.Agent, Model: name, Phase: PhaseStart, Time: time.Now(), Text: prompt})

				return model.Observe(ctx, next, req, func(final *model.Response, err error) {
					if err != nil {
						t.logger.Debug("tracker.call.error", "agent", req.Agent, "model", name, "error", err.Error())
						t.add(Item{RequestID: id, Agent: req.Agent, Model: name, Phase: PhaseError, Time: time.Now(), Text: err.Error()})
						return
					}

					it := Item{RequestID: id, Agent: req.Agent, Model: name, Phase: PhaseEnd, Time: time.Now()}
					if final != nil {
						it.Text = final.Content
						it.Usage = final.Usage
					}
					if it.Usage == nil && t.counter != nil {
						p, c := t.counter.Count(prompt), t.counter.Count(it.Text)
						it.Usage = &model.TokenUsage{PromptTokens: p, CompletionTokens: c, TotalTokens: p + c}
						it.Estimated = true
					}
					t.add(it)
				})
			},
			InfoFunc: next.Info,
		}
	}
}

// promptText flattens a request into the text a model would read.
func promptText(req model.Request) string {
	var sb strings.Builder
	sb.WriteString(req.Instructions)
	for _, m := range req.Messages {
		if sb.Len() > 0 {
			sb.WriteByte('\n')
		}
		sb.WriteString(m.Content)
	}
	return sb.String()
}
