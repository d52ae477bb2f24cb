package multiagent

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"time"

	"hedwig/internal/domain"
	"hedwig/internal/infra/logger"
	"hedwig/internal/infra/metrics"
	"hedwig/internal/infra/tracer"
)

// DefaultMaxRetries bounds the attempts for one task.
const DefaultMaxRetries = 3

// OrchestratorOption configures an Orchestrator.
type OrchestratorOption func(*Orchestrator)

// WithMaxRetries sets the number of attempts before giving up.
func WithMaxRetries(n int) OrchestratorOption {
	return func(o *Orchestrator) {
		if n > 0 {
			o.maxRetries = n
		}
	}
}

// WithOrchestratorEventBus publishes task lifecycle events on bus.
func WithOrchestratorEventBus(bus domain.EventBus) OrchestratorOption {
	return func(o *Orchestrator) { o.bus = bus }
}

// Orchestrator runs the per-task retry protocol: route, run, and on
// rejection re-route to a different agent.
//
//	ROUTING -> EXECUTING -> { SUCCEEDED | REJECTED | FAILED }
//	REJECTED -> ROUTING while attempts remain, else FAILED
//
// A FAILED agent result is final. An agent that panics or returns no
// result is excluded and the task re-routed without a rejection note.
type Orchestrator struct {
	dispatcher *Dispatcher
	maxRetries int
	bus        domain.EventBus
	logger     *slog.Logger
}

// NewOrchestrator creates an orchestrator routing through d.
func NewOrchestrator(d *Dispatcher, log *slog.Logger, opts ...OrchestratorOption) *Orchestrator {
	o := &Orchestrator{
		dispatcher: d,
		maxRetries: DefaultMaxRetries,
		logger:     logger.OrDiscard(log),
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// MaxRetries returns the attempt bound.
func (o *Orchestrator) MaxRetries() int { return o.maxRetries }

// attemptState accumulates what the retry loop has learned so far.
type attemptState struct {
	excluded []string
	rejected []string
	faulted  []string
	last     *domain.TaskResult
	lastErr  string
}

// Handle runs req to completion and always returns a result.
func (o *Orchestrator) Handle(ctx context.Context, req *domain.TaskRequest) (result *domain.TaskResult) {
	if req.ThreadID != "" {
		ctx = domain.ContextWithThreadID(ctx, req.ThreadID)
	}
	ctx, span := tracer.StartSpan(ctx, "orchestrator.handle",
		tracer.StringAttr("thread.id", req.ThreadID),
		tracer.IntAttr("orchestrator.max_retries", o.maxRetries),
	)
	start := time.Now()
	defer func() {
		outcome := metrics.OutcomeSuccess
		if !result.Success {
			outcome = metrics.OutcomeFailure
			tracer.RecordError(span, errors.New(result.ErrorMessage))
		} else {
			tracer.SetOK(span)
		}
		metrics.TaskDuration.WithLabelValues(outcome).Observe(time.Since(start).Seconds())
		span.End()
	}()

	st := &attemptState{excluded: slices.Clone(req.ExcludedAgents)}
	current := req

	for attempt := 1; attempt <= o.maxRetries; attempt++ {
		if err := ctx.Err(); err != nil {
			return o.finalFailure(current, st, attempt-1, domain.KindTimeout, "task canceled: "+err.Error())
		}

		name, err := o.dispatcher.Route(ctx, current.Prompt, current.Conversation, st.excluded)
		if err != nil {
			o.logger.Error("routing failed", "attempt", attempt, "error", err)
			return o.finalFailure(current, st, attempt-1, domain.KindOf(err), err.Error())
		}
		agent, ok := o.dispatcher.Agent(name)
		if !ok {
			// Unregistered between routing and lookup.
			st.fault(name, "agent no longer registered")
			current = current.WithRetry(st.excluded, "")
			continue
		}

		res := o.runAttempt(ctx, agent, current, attempt)
		switch {
		case res == nil:
			st.fault(name, "agent returned no result")
			metrics.TaskAttempts.WithLabelValues(name, metrics.OutcomeError).Inc()
			current = current.WithRetry(st.excluded, "")

		case res.Success:
			metrics.TaskAttempts.WithLabelValues(name, metrics.OutcomeSuccess).Inc()
			domain.PublishEvent(ctx, o.bus, domain.EventTaskCompleted, map[string]any{"agent": name, "attempt": attempt})
			o.logger.Info("task completed", "agent", name, "attempt", attempt)
			return withAttemptMeta(res, name, attempt, st)

		case res.Rejected():
			metrics.TaskAttempts.WithLabelValues(name, metrics.OutcomeRejected).Inc()
			domain.PublishEvent(ctx, o.bus, domain.EventTaskRejected, map[string]any{
				"agent": name, "attempt": attempt, "reason": res.Metadata[domain.MetaReason],
			})
			o.logger.Info("task rejected", "agent", name, "attempt", attempt, "max_retries", o.maxRetries)
			st.excluded = append(st.excluded, name)
			st.rejected = append(st.rejected, name)
			st.last, st.lastErr = res, res.ErrorMessage
			current = current.WithRetry(st.excluded, retryNote(name))

		default:
			metrics.TaskAttempts.WithLabelValues(name, metrics.OutcomeFailure).Inc()
			domain.PublishEvent(ctx, o.bus, domain.EventTaskFailed, map[string]any{
				"agent": name, "attempt": attempt, "error_kind": res.ErrorKind,
			})
			o.logger.Warn("task failed", "agent", name, "attempt", attempt, "error_kind", string(res.ErrorKind))
			return withAttemptMeta(res, name, attempt, st)
		}
	}

	if len(st.rejected) > 0 && st.last != nil {
		return o.exhausted(st)
	}
	return o.finalFailure(current, st, o.maxRetries, domain.KindAgentExecutionError, st.lastErr)
}

// runAttempt runs one agent. A panic escaping the agent is a raw fault and
// yields a nil result.
func (o *Orchestrator) runAttempt(ctx context.Context, agent domain.Agent, req *domain.TaskRequest, attempt int) (res *domain.TaskResult) {
	ctx = domain.ContextWithAttemptID(ctx, newDecisionID())
	domain.PublishEvent(ctx, o.bus, domain.EventTaskStarted, map[string]any{"agent": agent.Name(), "attempt": attempt})

	defer func() {
		if r := recover(); r != nil {
			o.logger.Error("agent panicked outside its wrapper", "agent", agent.Name(), "panic", r)
			res = nil
		}
	}()
	return agent.Run(ctx, req)
}

func (st *attemptState) fault(name, reason string) {
	st.excluded = append(st.excluded, name)
	st.faulted = append(st.faulted, name)
	st.lastErr = fmt.Sprintf("%s: %s", name, reason)
}

func retryNote(agent string) string {
	return fmt.Sprintf("Context: Previous agent (%s) rejected the task. Please choose a different, more suitable agent.", agent)
}

// exhausted summarizes a task every attempt of which was rejected.
func (o *Orchestrator) exhausted(st *attemptState) *domain.TaskResult {
	msg := fmt.Sprintf("Unable to complete task after %d attempts. Last rejection: %s", o.maxRetries, st.lastErr)
	o.logger.Warn("retries exhausted", "attempts", o.maxRetries, "rejected_agents", st.rejected)
	return &domain.TaskResult{
		Content:      "I'm sorry, I was unable to complete the task. The specialist agent reported: " + st.lastErr,
		ErrorKind:    domain.KindTaskRejected,
		ErrorMessage: msg,
		Conversation: domain.CloneMessages(st.last.Conversation),
		Metadata: map[string]any{
			domain.MetaFinalFailure:   true,
			domain.MetaAttempts:       o.maxRetries,
			domain.MetaRejectedAgents: append([]string{}, st.rejected...),
			domain.MetaLastError:      st.lastErr,
		},
	}
}

// finalFailure ends the loop without a usable agent result. last_error
// prefers the most recent agent-reported error over msg.
func (o *Orchestrator) finalFailure(req *domain.TaskRequest, st *attemptState, attempts int, kind domain.ErrorKind, msg string) *domain.TaskResult {
	lastErr := st.lastErr
	if lastErr == "" {
		lastErr = msg
	}
	meta := map[string]any{
		domain.MetaFinalFailure:   true,
		domain.MetaAttempts:       attempts,
		domain.MetaRejectedAgents: append([]string{}, st.rejected...),
		domain.MetaLastError:      lastErr,
	}
	if len(st.faulted) > 0 {
		meta["faulted_agents"] = slices.Clone(st.faulted)
	}
	return &domain.TaskResult{
		Content:      "I'm sorry, I was unable to complete the task: " + msg,
		ErrorKind:    kind,
		ErrorMessage: msg,
		Conversation: domain.CloneMessages(req.Conversation),
		Metadata:     meta,
	}
}

func withAttemptMeta(res *domain.TaskResult, agent string, attempt int, st *attemptState) *domain.TaskResult {
	if res.Metadata == nil {
		res.Metadata = make(map[string]any)
	}
	res.Metadata["routed_agent"] = agent
	res.Metadata[domain.MetaAttempts] = attempt
	if len(st.rejected) > 0 {
		res.Metadata[domain.MetaRejectedAgents] = slices.Clone(st.rejected)
	}
	return res
}
