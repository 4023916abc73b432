package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/hupe1980/roundtable"
	"github.com/hupe1980/roundtable/core"
	"github.com/hupe1980/roundtable/graph"
	"github.com/hupe1980/roundtable/metrics"
	"github.com/hupe1980/roundtable/model"
	"github.com/hupe1980/roundtable/session"
	"github.com/hupe1980/roundtable/tracker"
)

type runOptions struct {
	budget        int
	metricsListen string
	usage         bool
	jsonOut       bool
}

func newRunCmd(root *rootOptions) *cobra.Command {
	opts := &runOptions{}

	cmd := &cobra.Command{
		Use:   "run [message...]",
		Short: "Run a conference on one user message",
		Long: `Starts a run seeded with the given message and prints every event as it
is produced. The run ends when an agent declares the final answer or the
step budget is spent.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return runConference(ctx, cmd.OutOrStdout(), root, opts, strings.Join(args, " "))
		},
	}

	cmd.Flags().IntVarP(&opts.budget, "budget", "b", 0, "Step budget (default from the conference file)")
	cmd.Flags().StringVar(&opts.metricsListen, "metrics-listen", "", "Serve Prometheus metrics on this address while running")
	cmd.Flags().BoolVar(&opts.usage, "usage", false, "Print token usage per agent after the run")
	cmd.Flags().BoolVar(&opts.jsonOut, "json", false, "Print the finished run as JSON instead of streaming events")
	return cmd
}

func runConference(ctx context.Context, out io.Writer, root *rootOptions, opts *runOptions, message string) error {
	rec := metrics.NewRecorder()
	var counter *tracker.TokenCounter
	if opts.usage {
		c, err := tracker.NewTokenCounter()
		if err != nil {
			// A zero counter estimates from the text length.
			c = &tracker.TokenCounter{}
		}
		counter = c
	}
	usage := tracker.New(func(o *tracker.Options) { o.Counter = counter })
	store := session.NewInMemoryStore()

	cfg, conf, err := root.build(func(o *roundtable.Options) {
		o.Hooks = graph.MergeHooks(o.Hooks, rec.Hooks(), store.Hooks())
		o.Middlewares = append(o.Middlewares, rec.Middleware(), usage.Middleware())
	})
	if err != nil {
		return err
	}

	listen := opts.metricsListen
	if listen == "" {
		listen = cfg.Metrics.Listen
	}
	if listen != "" {
		srv := serveMetrics(listen, cfg.Metrics.Path, rec)
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = srv.Shutdown(shutdownCtx)
		}()
		if !opts.jsonOut {
			fmt.Fprintf(out, "metrics: http://%s%s\n", listen, cfg.Metrics.Path)
		}
	}

	run := conf.Start(ctx, message, opts.budget)
	for ev := range run.Events() {
		if !opts.jsonOut {
			printEvent(out, ev)
		}
	}

	res := run.Result()
	if opts.jsonOut {
		return printRecord(out, store, res)
	}
	fmt.Fprintf(out, "\n--- %s after %d steps (%s)\n", stopLabel(res.Stop), res.Steps, res.Duration.Round(time.Millisecond))

	if opts.usage {
		printUsage(out, usage)
	}
	if res.Err != nil && res.Stop != graph.StopModelError {
		return res.Err
	}
	return nil
}

// printRecord writes the archived run as indented JSON.
func printRecord(out io.Writer, store *session.InMemoryStore, res roundtable.Result) error {
	if res.Err != nil && res.Stop == graph.StopNone {
		return res.Err
	}
	rec, ok := store.Get(res.RunID)
	if !ok {
		return fmt.Errorf("run %s was not recorded", res.RunID)
	}
	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return enc.Encode(rec)
}

func serveMetrics(addr, path string, rec *metrics.Recorder) *http.Server {
	mux := http.NewServeMux()
	mux.Handle(path, rec.Handler())
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			fmt.Fprintf(os.Stderr, "metrics server: %v\n", err)
		}
	}()
	return srv
}

func printEvent(out io.Writer, ev core.Event) {
	switch {
	case ev.ToolCall != nil:
		fmt.Fprintf(out, "[%s] -> %s(%s)\n", ev.Role, ev.ToolCall.Name, string(ev.ToolCall.Arguments))
		if ev.Content != "" {
			fmt.Fprintf(out, "%s\n", ev.Content)
		}
	case ev.IsToolResult():
		fmt.Fprintf(out, "[%s] <- tool: %s\n", ev.Role, ev.Content)
	default:
		fmt.Fprintf(out, "[%s] %s\n", ev.Role, ev.Content)
	}
}

func stopLabel(s graph.StopReason) string {
	switch s {
	case graph.StopEnd:
		return "finished"
	case graph.StopBudget:
		return "step budget exhausted"
	case graph.StopCanceled:
		return "canceled"
	case graph.StopModelError:
		return "stopped on model error"
	default:
		return string(s)
	}
}

func printUsage(out io.Writer, t *tracker.Tracker) {
	perAgent := map[string]model.TokenUsage{}
	var order []string
	for _, it := range t.Items() {
		if it.Usage == nil {
			continue
		}
		u, ok := perAgent[it.Agent]
		if !ok {
			order = append(order, it.Agent)
		}
		u.PromptTokens += it.Usage.PromptTokens
		u.CompletionTokens += it.Usage.CompletionTokens
		u.TotalTokens += it.Usage.TotalTokens
		perAgent[it.Agent] = u
	}

	fmt.Fprintln(out, "\ntoken usage:")
	for _, agent := range order {
		u := perAgent[agent]
		fmt.Fprintf(out, "  %-20s prompt=%d completion=%d total=%d\n", agent, u.PromptTokens, u.CompletionTokens, u.TotalTokens)
	}
	total := t.Totals()
	fmt.Fprintf(out, "  %-20s prompt=%d completion=%d total=%d\n", "(all)", total.PromptTokens, total.CompletionTokens, total.TotalTokens)
}
