// Package metrics holds the Prometheus collectors for the orchestration core.
package metrics

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// Security Gateway metrics
	ToolCalls = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "hedwig_tool_calls_total",
			Help: "Tool calls mediated by the security gateway",
		},
		[]string{"tool", "tier", "outcome"},
	)

	ToolDenials = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "hedwig_tool_denials_total",
			Help: "Tool calls denied by the security gateway",
		},
		[]string{"tool", "reason"},
	)

	RiskEscalations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "hedwig_risk_escalations_total",
			Help: "Tool calls whose effective risk tier was raised above the static tier",
		},
		[]string{"tool", "tier"},
	)

	// Dispatcher metrics
	RoutingDecisions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "hedwig_routing_decisions_total",
			Help: "Routing decisions by chosen agent and method",
		},
		[]string{"agent", "method"},
	)

	// Task metrics
	TaskAttempts = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "hedwig_task_attempts_total",
			Help: "Task attempts by agent and outcome",
		},
		[]string{"agent", "outcome"},
	)

	TaskDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "hedwig_task_duration_seconds",
			Help:    "End-to-end task duration including retries",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"outcome"},
	)

	// Executor metrics
	ExecutorIterations = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "hedwig_executor_iterations",
			Help:    "Reasoning loop iterations per executor invocation",
			Buckets: []float64{1, 2, 3, 5, 8, 10, 15, 20},
		},
	)

	EngineLatency = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "hedwig_engine_latency_seconds",
			Help:    "Reasoning engine call latency",
			Buckets: []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60},
		},
		[]string{"engine", "status"},
	)

	// Event bus metrics
	EventsPublished = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "hedwig_events_published_total",
			Help: "Lifecycle events published on the event bus",
		},
		[]string{"type"},
	)

	EventHandlerPanics = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "hedwig_event_handler_panics_total",
			Help: "Event handlers that panicked and were recovered",
		},
	)

	// Pool metrics
	PoolInFlight = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "hedwig_pool_in_flight",
			Help: "Task attempts currently running in the worker pool",
		},
	)
)

// Outcome label values.
const (
	OutcomeSuccess  = "success"
	OutcomeFailure  = "failure"
	OutcomeDenied   = "denied"
	OutcomeRejected = "rejected"
	OutcomeError    = "error"
)

// Serve exposes the default registry on addr at /metrics until ctx is done.
func Serve(ctx context.Context, addr string, logger *slog.Logger) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	logger.Info("metrics server listening", "addr", addr)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
