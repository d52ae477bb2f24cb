package multiagent

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"

	"hedwig/internal/domain"
	"hedwig/internal/infra/logger"
	"hedwig/internal/infra/metrics"
	"hedwig/internal/infra/tracer"
	"hedwig/pkg/ringbuf"
)

// DefaultHistorySize bounds the routing history.
const DefaultHistorySize = 100

const promptExcerptMax = 200

// DispatcherOption configures a Dispatcher.
type DispatcherOption func(*Dispatcher)

// WithRoutingEngine sets the reasoning engine consulted for routing. Without
// one, routing uses the keyword heuristic only.
func WithRoutingEngine(engine domain.ReasoningEngine) DispatcherOption {
	return func(d *Dispatcher) { d.engine = engine }
}

// WithHistorySize sizes the routing history.
func WithHistorySize(n int) DispatcherOption {
	return func(d *Dispatcher) { d.history = ringbuf.New[domain.RoutingDecision](n) }
}

// WithDispatcherEventBus publishes task.routed events on bus.
func WithDispatcherEventBus(bus domain.EventBus) DispatcherOption {
	return func(d *Dispatcher) { d.bus = bus }
}

// Dispatcher picks the agent for each task attempt. It never runs tasks.
type Dispatcher struct {
	agents  *Registry
	engine  domain.ReasoningEngine
	history *ringbuf.Ring[domain.RoutingDecision]
	bus     domain.EventBus
	logger  *slog.Logger
}

// NewDispatcher creates a dispatcher over the given agent registry.
func NewDispatcher(agents *Registry, log *slog.Logger, opts ...DispatcherOption) *Dispatcher {
	d := &Dispatcher{
		agents:  agents,
		history: ringbuf.New[domain.RoutingDecision](DefaultHistorySize),
		logger:  logger.OrDiscard(log),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// RegisterAgent adds an agent. A duplicate name is rejected.
func (d *Dispatcher) RegisterAgent(agent domain.Agent) error {
	return d.agents.Register(agent)
}

// UnregisterAgent removes an agent and reports whether it was registered.
func (d *Dispatcher) UnregisterAgent(name string) bool {
	return d.agents.Unregister(name)
}

// Agents returns the registered agent names in registration order.
func (d *Dispatcher) Agents() []string { return d.agents.Names() }

// Agent returns the registered agent with the given name.
func (d *Dispatcher) Agent(name string) (domain.Agent, bool) { return d.agents.Get(name) }

// Route returns the name of the agent that should handle prompt. Agents in
// excluded are never chosen. It fails with ErrNoAgentsAvailable when no
// candidate remains.
func (d *Dispatcher) Route(ctx context.Context, prompt string, conversation []domain.Message, excluded []string) (name string, err error) {
	ctx, span := tracer.StartSpan(ctx, "dispatcher.route",
		tracer.IntAttr("dispatcher.attempt", len(excluded)+1),
	)
	defer func() { tracer.Finish(span, err) }()

	available := d.agents.available(excluded)
	if len(available) == 0 {
		detail := "no agents registered"
		if d.agents.Len() > 0 {
			detail = "all agents excluded: " + strings.Join(excluded, ", ")
		}
		d.logger.Error("routing failed", "reason", detail)
		return "", domain.NewDomainError("Dispatcher.Route", domain.ErrNoAgentsAvailable, detail)
	}

	name, method := d.decide(ctx, prompt, conversation, excluded, available)
	d.record(ctx, prompt, name, method, available, excluded)

	span.SetAttributes(tracer.StringAttr("dispatcher.agent", name), tracer.StringAttr("dispatcher.method", method))
	d.logger.Info("task routed", "agent", name, "method", method, "attempt", len(excluded)+1)
	return name, nil
}

func (d *Dispatcher) decide(ctx context.Context, prompt string, conversation []domain.Message, excluded []string, available []domain.Agent) (string, string) {
	if len(available) == 1 {
		return available[0].Name(), domain.RouteMethodSingle
	}
	if d.engine == nil {
		return heuristicRoute(prompt, available), domain.RouteMethodHeuristic
	}

	routingPrompt := buildRoutingPrompt(buildRoutingContext(available, conversation, excluded), prompt)
	reply, err := d.engine.Complete(ctx, routingPrompt)
	if err != nil {
		d.logger.Warn("routing engine failed, using heuristic", "error", err)
		return heuristicRoute(prompt, available), domain.RouteMethodHeuristic
	}

	chosen := cleanAgentReply(reply)
	if !slices.ContainsFunc(available, func(a domain.Agent) bool { return a.Name() == chosen }) {
		d.logger.Warn("routing engine chose an unavailable agent, using heuristic", "reply", chosen)
		return heuristicRoute(prompt, available), domain.RouteMethodHeuristic
	}
	return chosen, domain.RouteMethodLLM
}

func (d *Dispatcher) record(ctx context.Context, prompt, chosen, method string, available []domain.Agent, excluded []string) {
	names := make([]string, len(available))
	for i, a := range available {
		names[i] = a.Name()
	}
	excerpt := domain.Clip(prompt, promptExcerptMax)

	decision := domain.RoutingDecision{
		ID:            newDecisionID(),
		Timestamp:     time.Now(),
		PromptExcerpt: excerpt,
		ChosenAgent:   chosen,
		Available:     names,
		Excluded:      slices.Clone(excluded),
		Attempt:       len(excluded) + 1,
		Method:        method,
	}
	if decision.Excluded == nil {
		decision.Excluded = []string{}
	}
	d.history.Push(decision)

	metrics.RoutingDecisions.WithLabelValues(chosen, method).Inc()
	domain.PublishEvent(ctx, d.bus, domain.EventTaskRouted, decision)
}

// History returns the recorded routing decisions, oldest first.
func (d *Dispatcher) History() []domain.RoutingDecision {
	return d.history.Snapshot()
}

// ClearHistory drops every recorded routing decision.
func (d *Dispatcher) ClearHistory() {
	d.history.Reset()
	d.logger.Info("routing history cleared")
}

// RoutingStats summarizes the routing history.
type RoutingStats struct {
	Total          int            `json:"total_routings"`
	AgentsUsed     map[string]int `json:"agents_used"`
	RetryRate      float64        `json:"retry_rate"`
	AverageAttempt float64        `json:"average_routing_attempt"`
	Available      []string       `json:"available_agents"`
}

// Stats summarizes the routing history. A decision with Attempt > 1 counts
// as a retry.
func (d *Dispatcher) Stats() RoutingStats {
	history := d.history.Snapshot()
	stats := RoutingStats{
		Total:      len(history),
		AgentsUsed: make(map[string]int),
		Available:  d.agents.Names(),
	}
	if len(history) == 0 {
		return stats
	}

	retries, attempts := 0, 0
	for _, rd := range history {
		stats.AgentsUsed[rd.ChosenAgent]++
		attempts += rd.Attempt
		if rd.Attempt > 1 {
			retries++
		}
	}
	stats.RetryRate = float64(retries) / float64(len(history))
	stats.AverageAttempt = float64(attempts) / float64(len(history))
	return stats
}

// String describes the dispatcher for logs.
func (d *Dispatcher) String() string {
	return fmt.Sprintf("Dispatcher(%d agents registered)", d.agents.Len())
}

var (
	idMu      sync.Mutex
	idEntropy = ulid.Monotonic(rand.New(rand.NewSource(time.Now().UnixNano())), 0)
)

func newDecisionID() string {
	idMu.Lock()
	defer idMu.Unlock()
	return ulid.MustNew(ulid.Timestamp(time.Now()), idEntropy).String()
}
