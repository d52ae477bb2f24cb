// Package usecase contains the Agent Executor reasoning loop, the tool-call
// parser, confirmation callbacks and artifact selection helpers.
package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"hedwig/internal/domain"
	"hedwig/internal/infra/logger"
	"hedwig/internal/infra/metrics"
	"hedwig/internal/infra/tracer"
)

// DefaultMaxIterations bounds the reasoning loop when ExecutorDeps leaves it unset.
const DefaultMaxIterations = 10

// MockResponse is returned when no reasoning engine is configured.
const MockResponse = "Mock response: Task would be executed with available tools. No LLM callback configured."

const logResponseMax = 500

// ExecutorDeps holds injected dependencies for the Executor.
type ExecutorDeps struct {
	Tools         domain.ToolLookup
	Runner        domain.ToolRunner      // the Security Gateway
	Engine        domain.ReasoningEngine // optional, nil = placeholder response
	MaxIterations int
	Logger        *slog.Logger
}

// TaskContext is the input of one Invoke call.
type TaskContext struct {
	Prompt       string
	Conversation []domain.Message
	AllowedTools []string // empty = every registered tool
	Parameters   map[string]any
}

// ExecutionOutcome is the result of one Invoke call.
type ExecutionOutcome struct {
	Output       string
	Artifacts    []domain.Artifact
	Iterations   int
	ExecutionLog []domain.ExecutionStep
	Success      bool
	Err          error // set when Success is false
}

// Executor drives the bounded reasoning and tool-calling loop. It holds no
// per-call state, so one Executor may serve concurrent Invoke calls.
type Executor struct {
	deps ExecutorDeps
}

// NewExecutor creates an executor with the given dependencies.
func NewExecutor(deps ExecutorDeps) *Executor {
	if deps.MaxIterations <= 0 {
		deps.MaxIterations = DefaultMaxIterations
	}
	deps.Logger = logger.OrDiscard(deps.Logger)
	return &Executor{deps: deps}
}

// HasEngine reports whether a reasoning engine is configured.
func (e *Executor) HasEngine() bool { return e.deps.Engine != nil }

// MaxIterations returns the loop bound.
func (e *Executor) MaxIterations() int { return e.deps.MaxIterations }

// invocation carries the state of a single Invoke call.
type invocation struct {
	iteration int
	artifacts []domain.Artifact
	log       []domain.ExecutionStep
}

func (inv *invocation) record(stepType string, data map[string]any) {
	inv.log = append(inv.log, domain.ExecutionStep{
		Iteration: inv.iteration,
		StepType:  stepType,
		Data:      data,
	})
}

// Invoke runs the reasoning loop for tc. Tool failures, unknown tools and
// gateway denials are folded back into the next prompt; only an empty
// prompt, a reasoning engine error or context cancellation end the loop
// with Success=false.
func (e *Executor) Invoke(ctx context.Context, tc TaskContext) *ExecutionOutcome {
	ctx, span := tracer.StartSpan(ctx, "executor.invoke",
		tracer.IntAttr("executor.max_iterations", e.deps.MaxIterations),
	)
	defer span.End()

	log := e.deps.Logger.With(
		"thread_id", domain.ThreadIDFromContext(ctx),
		"attempt_id", domain.AttemptIDFromContext(ctx),
	)
	inv := &invocation{}
	output, err := e.run(ctx, inv, tc)
	metrics.ExecutorIterations.Observe(float64(inv.iteration))
	span.SetAttributes(tracer.IntAttr("executor.iterations", inv.iteration))

	outcome := &ExecutionOutcome{
		Output:       output,
		Artifacts:    inv.artifacts,
		Iterations:   inv.iteration,
		ExecutionLog: inv.log,
		Success:      err == nil,
	}
	if outcome.Artifacts == nil {
		outcome.Artifacts = []domain.Artifact{}
	}
	if err != nil {
		log.Error("agent execution failed",
			"error", err,
			"error_code", string(domain.ErrorCodeOf(err)),
			"retryable", domain.IsRetryableError(err),
			"iterations", inv.iteration,
		)
		outcome.Output = "Task execution failed: " + err.Error()
		outcome.Err = err
		tracer.RecordError(span, err)
		return outcome
	}

	log.Info("agent execution completed", "iterations", inv.iteration, "artifacts", len(inv.artifacts))
	tracer.SetOK(span)
	return outcome
}

func (e *Executor) run(ctx context.Context, inv *invocation, tc TaskContext) (string, error) {
	prompt := strings.TrimSpace(tc.Prompt)
	if prompt == "" {
		return "", domain.NewDomainError("Executor.Invoke", domain.ErrInvalidInput, "no input prompt provided")
	}

	toolsContext := buildToolsContext(e.deps.Tools.Filter(tc.AllowedTools))
	initial := buildSystemPrompt(toolsContext, formatConversation(tc.Conversation)) + "\nUser Request: " + prompt
	current := initial

	for inv.iteration < e.deps.MaxIterations {
		inv.iteration++

		if e.deps.Engine == nil {
			return MockResponse, nil
		}
		if err := ctx.Err(); err != nil {
			return "", fmt.Errorf("%w: %w", domain.ErrTimeout, err)
		}

		response, done, err := e.iterate(ctx, inv, initial, &current)
		if err != nil {
			return "", err
		}
		if done {
			return response, nil
		}
	}

	e.deps.Logger.Warn("reached max iterations", "max_iterations", e.deps.MaxIterations)
	return fmt.Sprintf("Task partially completed. Reached maximum iteration limit (%d).", e.deps.MaxIterations), nil
}

// iterate performs one engine call and, when the reply carries a tool call,
// one tool execution. done reports that response is the final answer.
func (e *Executor) iterate(ctx context.Context, inv *invocation, initial string, current *string) (response string, done bool, err error) {
	ctx, span := tracer.StartSpan(ctx, "executor.iteration", tracer.IntAttr("executor.iteration", inv.iteration))
	defer func() { tracer.Finish(span, err) }()

	e.deps.Logger.Debug("reasoning iteration", "iteration", inv.iteration, "max_iterations", e.deps.MaxIterations)

	response, err = e.deps.Engine.Complete(ctx, *current)
	if err != nil {
		return "", false, domain.WrapOp("Executor.Invoke", err)
	}
	inv.record(domain.StepLLMResponse, map[string]any{"response": truncate(response, logResponseMax)})

	call, ok := ParseToolCall(response)
	if !ok {
		e.deps.Logger.Debug("no tool call found, treating as final response")
		return response, true, nil
	}
	span.SetAttributes(tracer.StringAttr("tool.name", call.ToolName))

	resultText := e.executeTool(ctx, inv, call)
	*current = buildFollowupPrompt(initial, response, call, resultText)
	return response, false, nil
}

// executeTool runs call through the Security Gateway and returns the text
// folded back into the next prompt.
func (e *Executor) executeTool(ctx context.Context, inv *invocation, call *domain.ToolCall) string {
	e.deps.Logger.Info("executing tool call", "tool", call.ToolName)

	tool, err := e.deps.Tools.Get(call.ToolName)
	if err != nil {
		e.deps.Logger.Error("tool not found", "tool", call.ToolName)
		return fmt.Sprintf("Error: Tool '%s' not found", call.ToolName)
	}

	result, err := e.deps.Runner.Execute(ctx, tool, call.Arguments)
	if err != nil {
		e.deps.Logger.Error("tool execution failed", "tool", call.ToolName, "error", err)
		inv.record(domain.StepToolExecutionError, map[string]any{
			"tool_name":  call.ToolName,
			"arguments":  call.Arguments,
			"error":      err.Error(),
			"error_kind": string(domain.KindOf(err)),
		})
		return fmt.Sprintf("Error executing %s: %v", call.ToolName, err)
	}

	if len(result.Artifacts) > 0 {
		inv.artifacts = append(inv.artifacts, result.Artifacts...)
		e.deps.Logger.Info("collected artifacts", "tool", call.ToolName, "count", len(result.Artifacts))
	}
	inv.record(domain.StepToolExecution, map[string]any{
		"tool_name":       call.ToolName,
		"arguments":       call.Arguments,
		"success":         result.Success,
		"artifacts_count": len(result.Artifacts),
	})
	return result.Text()
}
