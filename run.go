package roundtable

import (
	"context"
	"errors"
	"iter"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"

	"github.com/hupe1980/roundtable/core"
	"github.com/hupe1980/roundtable/graph"
	"github.com/hupe1980/roundtable/logging"
)

// Result summarizes a finished run.
type Result struct {
	RunID    string
	Stop     graph.StopReason
	Steps    int           // Node executions performed
	Messages int           // Final transcript length, seed included
	Err      error         // Configuration, model or context error; nil otherwise
	Duration time.Duration
}

// Run is one conversation started by Start. Its event sequence is lazy and
// can be consumed once; Result is complete after the sequence ends.
type Run struct {
	id    string
	ctx   context.Context
	inner *graph.Run
	sem   *semaphore.Weighted

	mu     sync.Mutex
	result Result
}

// Start prepares a run seeded with the user message initial. budget caps the
// number of node executions; budget <= 0 uses Options.DefaultStepBudget.
// Nothing executes until Events is iterated.
func (c *Conference) Start(ctx context.Context, initial string, budget int) *Run {
	run := &Run{id: core.NewID(), ctx: ctx}
	run.result.RunID = run.id

	c.mu.RLock()
	g := c.graph
	c.mu.RUnlock()

	if g == nil {
		run.result.Err = core.NewConfigurationError("", core.ErrNotBuilt)
		return run
	}
	if budget <= 0 {
		budget = c.opts.DefaultStepBudget
	}
	run.sem = c.sem

	logger := c.opts.Logger
	if cl, ok := logger.(*logging.ConferenceLogger); ok {
		logger = cl.WithRun(run.id)
	}

	run.inner = g.Run(ctx, []core.Message{core.NewUserMessage(initial)}, func(o *graph.RunOptions) {
		o.RunID = run.id
		o.Budget = budget
		o.Logger = logger
		o.Hooks = c.opts.Hooks
	})
	return run
}

// ID returns the run id.
func (r *Run) ID() string { return r.id }

// Events returns the lazy event sequence: one event per produced message, in
// production order. Tool results are relabeled with the role of the agent
// that requested the call.
func (r *Run) Events() iter.Seq[core.Event] {
	return func(yield func(core.Event) bool) {
		if r.inner == nil {
			return
		}

		if r.sem != nil {
			if err := r.sem.Acquire(r.ctx, 1); err != nil {
				r.mu.Lock()
				r.result.Stop = graph.StopCanceled
				r.result.Err = err
				r.mu.Unlock()
				return
			}
			defer r.sem.Release(1)
		}

		for step := range r.inner.Steps() {
			if !yield(core.NewEvent(r.id, step.Index, step.Agent, step.Message)) {
				break
			}
		}

		res := r.inner.Result()
		r.mu.Lock()
		r.result = Result{
			RunID:    res.RunID,
			Stop:     res.Stop,
			Steps:    res.Steps,
			Messages: len(res.Transcript),
			Err:      res.Err,
			Duration: res.Duration,
		}
		r.mu.Unlock()
	}
}

// Result returns the run summary. Stop is graph.StopNone until Events has
// been consumed.
func (r *Run) Result() Result {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.result
}

// Invoke runs a conversation lazily. Calling it before a successful Build
// yields an empty sequence; use Start to inspect the reason.
func (c *Conference) Invoke(ctx context.Context, initial string, budget int) iter.Seq[core.Event] {
	return c.Start(ctx, initial, budget).Events()
}

// InvokeSync runs a conversation to completion and returns its events. The
// error is non-nil only for a *core.ConfigurationError, such as running an
// unbuilt conference. Model failures, cancellation and budget exhaustion end
// the run normally; Result.Stop and Result.Err describe them.
func (c *Conference) InvokeSync(ctx context.Context, initial string, budget int) ([]core.Event, Result, error) {
	run := c.Start(ctx, initial, budget)

	var events []core.Event
	for ev := range run.Events() {
		events = append(events, ev)
	}

	res := run.Result()
	return events, res, configurationError(res.Err)
}

// InvokeAll runs independent conversations concurrently, one per initial
// message, bounded by Options.MaxConcurrentRuns. Transcripts and results are
// returned in input order. A run that stops on a model error or on its own
// cancellation does not affect the others; the error is non-nil only for a
// configuration problem.
func (c *Conference) InvokeAll(ctx context.Context, initials []string, budget int) ([][]core.Event, []Result, error) {
	events := make([][]core.Event, len(initials))
	results := make([]Result, len(initials))

	var eg errgroup.Group
	for i, initial := range initials {
		eg.Go(func() error {
			evs, res, err := c.InvokeSync(ctx, initial, budget)
			events[i], results[i] = evs, res
			return err
		})
	}

	if err := eg.Wait(); err != nil {
		return events, results, err
	}
	return events, results, nil
}

func configurationError(err error) error {
	var cfgErr *core.ConfigurationError
	if errors.As(err, &cfgErr) {
		return err
	}
	return nil
}
