// Package metrics provides Prometheus-based metrics recording for conference
// runs: node executions, tool calls and language model requests.
//
// A Recorder plugs into a conference twice: Hooks observes the run loop and
// Middleware wraps every agent's model.
//
//	rec := metrics.NewRecorder()
//	conf := roundtable.New(func(o *roundtable.Options) {
//	    o.Hooks = rec.Hooks()
//	    o.Middlewares = []model.Middleware{rec.Middleware()}
//	})
//	http.Handle("/metrics", rec.Handler())
package metrics

import (
	"context"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/hupe1980/roundtable/graph"
	"github.com/hupe1980/roundtable/model"
)

// Options configure a Recorder.
type Options struct {
	Namespace string              // Metric name prefix
	Registry  *prometheus.Registry // Defaults to a fresh registry
}

// Recorder records conference metrics into a Prometheus registry.
type Recorder struct {
	registry *prometheus.Registry

	runsTotal       *prometheus.CounterVec
	runSteps        prometheus.Histogram
	nodesTotal      *prometheus.CounterVec
	nodeDuration    *prometheus.HistogramVec
	toolCallsTotal  *prometheus.CounterVec
	requestsTotal   *prometheus.CounterVec
	tokensTotal     *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
}

// NewRecorder creates a recorder and registers its collectors.
func NewRecorder(optFns ...func(o *Options)) *Recorder {
	opts := Options{Namespace: "roundtable"}
	for _, fn := range optFns {
		fn(&opts)
	}
	if opts.Registry == nil {
		opts.Registry = prometheus.NewRegistry()
	}

	factory := promauto.With(opts.Registry)
	ns := opts.Namespace

	return &Recorder{
		registry: opts.Registry,
		runsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: ns,
				Name:      "runs_total",
				Help:      "Total number of finished runs by stop reason",
			},
			[]string{"stop"},
		),
		runSteps: factory.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: ns,
				Name:      "run_steps",
				Help:      "Node executions per finished run",
				Buckets:   prometheus.LinearBuckets(1, 4, 10),
			},
		),
		nodesTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: ns,
				Name:      "node_executions_total",
				Help:      "Total number of node executions by node and kind",
			},
			[]string{"node", "kind"},
		),
		nodeDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: ns,
				Name:      "node_duration_seconds",
				Help:      "Duration of node executions in seconds",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"node", "kind"},
		),
		toolCallsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: ns,
				Name:      "tool_calls_total",
				Help:      "Total number of tool calls by tool, calling agent and status",
			},
			[]string{"tool", "agent", "status"},
		),
		requestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: ns,
				Name:      "llm_requests_total",
				Help:      "Total number of LLM requests by model, agent and status",
			},
			[]string{"model", "agent", "status"},
		),
		tokensTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: ns,
				Name:      "llm_tokens_total",
				Help:      "Total number of tokens used in LLM requests",
			},
			[]string{"model", "agent", "type"},
		),
		requestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: ns,
				Name:      "llm_request_duration_seconds",
				Help:      "Duration of LLM requests in seconds",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"model", "agent"},
		),
	}
}

// Registry returns the registry holding the collectors.
func (r *Recorder) Registry() *prometheus.Registry { return r.registry }

// Handler serves the registry in the Prometheus exposition format.
func (r *Recorder) Handler() http.Handler {
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{})
}

// Hooks returns run loop hooks feeding the recorder.
func (r *Recorder) Hooks() graph.Hooks {
	return graph.Hooks{
		OnNodeLeave: func(_ context.Context, e *graph.NodeEvent) {
			r.nodesTotal.WithLabelValues(e.Node, string(e.Kind)).Inc()
			r.nodeDuration.WithLabelValues(e.Node, string(e.Kind)).Observe(e.Duration.Seconds())
		},
		OnToolReturn: func(_ context.Context, e *graph.ToolEvent) {
			status := "success"
			if e.Result != nil && e.Result.Failed {
				status = "error"
			}
			r.toolCallsTotal.WithLabelValues(e.Call.Name, e.Agent, status).Inc()
		},
		OnRunEnd: func(_ context.Context, res graph.RunResult) {
			r.runsTotal.WithLabelValues(string(res.Stop)).Inc()
			r.runSteps.Observe(float64(res.Steps))
		},
	}
}

// ObserveRequest records metrics for a completed LLM request.
func (r *Recorder) ObserveRequest(modelName, agent string, usage *model.TokenUsage, success bool, duration time.Duration) {
	status := "success"
	if !success {
		status = "error"
	}
	r.requestsTotal.WithLabelValues(modelName, agent, status).Inc()

	if success && usage != nil {
		r.tokensTotal.WithLabelValues(modelName, agent, "prompt").Add(float64(usage.PromptTokens))
		r.tokensTotal.WithLabelValues(modelName, agent, "completion").Add(float64(usage.CompletionTokens))
	}

	r.requestDuration.WithLabelValues(modelName, agent).Observe(duration.Seconds())
}

// Middleware returns a model middleware observing every request.
func (r *Recorder) Middleware() model.Middleware {
	return func(next model.Model) model.Model {
		return model.Func{
			GenerateFunc: func(ctx context.Context, req model.Request) (<-chan model.Response, <-chan error) {
				start := time.Now()
				return model.Observe(ctx, next, req, func(final *model.Response, err error) {
					var usage *model.TokenUsage
					if final != nil {
						usage = final.Usage
					}
					r.ObserveRequest(next.Info().Name, req.Agent, usage, err == nil, time.Since(start))
				})
			},
			InfoFunc: next.Info,
		}
	}
}
