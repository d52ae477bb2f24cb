package usecase

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"hedwig/internal/adapter/tool"
	"hedwig/internal/domain"
	"hedwig/internal/security"
)

// scriptedEngine replays canned responses and records every prompt.
type scriptedEngine struct {
	mu        sync.Mutex
	responses []string
	fallback  string
	err       error
	prompts   []string
}

func (e *scriptedEngine) Complete(_ context.Context, prompt string) (string, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.prompts = append(e.prompts, prompt)
	if e.err != nil {
		return "", e.err
	}
	if len(e.responses) == 0 {
		return e.fallback, nil
	}
	next := e.responses[0]
	e.responses = e.responses[1:]
	return next, nil
}

// fakeTool is a configurable tool for executor tests.
type fakeTool struct {
	name   string
	tier   domain.RiskTier
	result *domain.ToolResult
	err    error
	calls  int
}

func (f *fakeTool) Name() string              { return f.name }
func (f *fakeTool) Description() string       { return "fake " + f.name }
func (f *fakeTool) RiskTier() domain.RiskTier { return f.tier }
func (f *fakeTool) Schema() domain.ToolSchema { return domain.ToolSchema{Name: f.name} }
func (f *fakeTool) Execute(context.Context, map[string]any) (*domain.ToolResult, error) {
	f.calls++
	return f.result, f.err
}

// countingRunner passes calls through to the tool and counts them.
type countingRunner struct{ calls int }

func (r *countingRunner) Execute(ctx context.Context, t domain.Tool, args map[string]any) (*domain.ToolResult, error) {
	r.calls++
	return t.Execute(ctx, args)
}

func newTestRegistry(t *testing.T, tools ...domain.Tool) *tool.Registry {
	t.Helper()
	reg := tool.NewRegistry(nil)
	for _, tl := range tools {
		require.NoError(t, reg.Register(tl))
	}
	return reg
}

func TestExecutor_NoEngineReturnsPlaceholder(t *testing.T) {
	exec := NewExecutor(ExecutorDeps{Tools: newTestRegistry(t), Runner: &countingRunner{}})

	out := exec.Invoke(context.Background(), TaskContext{Prompt: "do something"})

	assert.True(t, out.Success)
	assert.Equal(t, MockResponse, out.Output)
	assert.Equal(t, 1, out.Iterations)
	assert.NotNil(t, out.Artifacts)
	assert.Empty(t, out.Artifacts)
	assert.False(t, exec.HasEngine())
}

func TestExecutor_EmptyPromptFails(t *testing.T) {
	exec := NewExecutor(ExecutorDeps{Tools: newTestRegistry(t), Runner: &countingRunner{}})

	out := exec.Invoke(context.Background(), TaskContext{Prompt: "   "})

	assert.False(t, out.Success)
	assert.Equal(t, 0, out.Iterations)
	assert.True(t, errors.Is(out.Err, domain.ErrInvalidInput))
	assert.Contains(t, out.Output, "no input prompt provided")
}

func TestExecutor_FinalAnswerWithoutToolCall(t *testing.T) {
	engine := &scriptedEngine{responses: []string{"The answer is 42."}}
	exec := NewExecutor(ExecutorDeps{Tools: newTestRegistry(t), Runner: &countingRunner{}, Engine: engine})

	out := exec.Invoke(context.Background(), TaskContext{
		Prompt: "what is the answer",
		Conversation: []domain.Message{
			{Role: domain.RoleUser, Content: "hello"},
		},
	})

	require.True(t, out.Success)
	assert.Equal(t, "The answer is 42.", out.Output)
	assert.Equal(t, 1, out.Iterations)
	require.Len(t, out.ExecutionLog, 1)
	assert.Equal(t, domain.StepLLMResponse, out.ExecutionLog[0].StepType)

	require.Len(t, engine.prompts, 1)
	assert.Contains(t, engine.prompts[0], "User Request: what is the answer")
	assert.Contains(t, engine.prompts[0], "USER: hello")
}

func TestExecutor_ToolCallThroughGateway(t *testing.T) {
	artifact := domain.Artifact{ID: "a1", Type: domain.ArtifactCode, Name: "main.go"}
	writer := &fakeTool{name: "echo", tier: domain.RiskReadOnly, result: &domain.ToolResult{
		Success:   true,
		Content:   "echoed",
		Artifacts: []domain.Artifact{artifact},
	}}
	engine := &scriptedEngine{responses: []string{
		`I will echo. TOOL_CALL: {"tool_name": "echo", "arguments": {"message": "hi"}}`,
		"done",
	}}
	gw := security.NewGateway(nil)
	exec := NewExecutor(ExecutorDeps{Tools: newTestRegistry(t, writer), Runner: gw, Engine: engine})

	out := exec.Invoke(context.Background(), TaskContext{Prompt: "echo hi"})

	require.True(t, out.Success)
	assert.Equal(t, "done", out.Output)
	assert.Equal(t, 2, out.Iterations)
	assert.Equal(t, []domain.Artifact{artifact}, out.Artifacts)
	assert.Equal(t, 1, writer.calls)

	var toolSteps []domain.ExecutionStep
	for _, step := range out.ExecutionLog {
		if step.StepType == domain.StepToolExecution {
			toolSteps = append(toolSteps, step)
		}
	}
	require.Len(t, toolSteps, 1)
	assert.Equal(t, "echo", toolSteps[0].Data["tool_name"])
	assert.Equal(t, true, toolSteps[0].Data["success"])
	assert.Equal(t, 1, toolSteps[0].Data["artifacts_count"])

	require.Len(t, engine.prompts, 2)
	assert.Contains(t, engine.prompts[1], "Tool call executed: echo")
	assert.Contains(t, engine.prompts[1], "Tool result: echoed")
	assert.True(t, strings.HasPrefix(engine.prompts[1], engine.prompts[0]))
}

func TestExecutor_UnknownToolLoopsToLimit(t *testing.T) {
	engine := &scriptedEngine{fallback: `TOOL_CALL: {"tool_name": "ghost", "arguments": {}}`}
	runner := &countingRunner{}
	exec := NewExecutor(ExecutorDeps{Tools: newTestRegistry(t), Runner: runner, Engine: engine})

	out := exec.Invoke(context.Background(), TaskContext{Prompt: "haunt"})

	assert.True(t, out.Success)
	assert.Equal(t, "Task partially completed. Reached maximum iteration limit (10).", out.Output)
	assert.Equal(t, DefaultMaxIterations, out.Iterations)
	assert.Zero(t, runner.calls)
	require.Len(t, engine.prompts, 10)
	assert.Contains(t, engine.prompts[1], "Tool result: Error: Tool 'ghost' not found")
}

func TestExecutor_CustomIterationLimit(t *testing.T) {
	engine := &scriptedEngine{fallback: `TOOL_CALL: {"tool_name": "ghost"}`}
	exec := NewExecutor(ExecutorDeps{Tools: newTestRegistry(t), Runner: &countingRunner{}, Engine: engine, MaxIterations: 3})

	out := exec.Invoke(context.Background(), TaskContext{Prompt: "haunt"})

	assert.Equal(t, 3, out.Iterations)
	assert.Equal(t, "Task partially completed. Reached maximum iteration limit (3).", out.Output)
	assert.Equal(t, 3, exec.MaxIterations())
}

func TestExecutor_DenialLoggedAndFoldedBack(t *testing.T) {
	shell := &fakeTool{name: "shell", tier: domain.RiskExecute, result: &domain.ToolResult{Success: true}}
	engine := &scriptedEngine{responses: []string{
		`TOOL_CALL: {"tool_name": "shell", "arguments": {"command": "ls"}}`,
		"could not run it",
	}}
	gw := security.NewGateway(nil) // no confirm callback: fail closed
	exec := NewExecutor(ExecutorDeps{Tools: newTestRegistry(t, shell), Runner: gw, Engine: engine})

	out := exec.Invoke(context.Background(), TaskContext{Prompt: "list files"})

	require.True(t, out.Success)
	assert.Equal(t, "could not run it", out.Output)
	assert.Zero(t, shell.calls)
	assert.Len(t, gw.Denials(), 1)

	var errStep *domain.ExecutionStep
	for i := range out.ExecutionLog {
		if out.ExecutionLog[i].StepType == domain.StepToolExecutionError {
			errStep = &out.ExecutionLog[i]
		}
	}
	require.NotNil(t, errStep)
	assert.Equal(t, "shell", errStep.Data["tool_name"])
	assert.Equal(t, string(domain.KindSecurityGatewayDenial), errStep.Data["error_kind"])
	assert.Contains(t, engine.prompts[1], "Tool result: Error executing shell:")
}

func TestExecutor_FailedToolResultFoldedBack(t *testing.T) {
	broken := &fakeTool{name: "reader", tier: domain.RiskReadOnly, result: &domain.ToolResult{Error: "file not found"}}
	engine := &scriptedEngine{responses: []string{`TOOL_CALL: {"tool_name": "reader"}`, "gave up"}}
	exec := NewExecutor(ExecutorDeps{Tools: newTestRegistry(t, broken), Runner: &countingRunner{}, Engine: engine})

	out := exec.Invoke(context.Background(), TaskContext{Prompt: "read it"})

	assert.True(t, out.Success)
	assert.Contains(t, engine.prompts[1], "Tool result: Error: file not found")
}

func TestExecutor_EngineErrorFails(t *testing.T) {
	engine := &scriptedEngine{err: domain.ErrEngineUnavailable}
	exec := NewExecutor(ExecutorDeps{Tools: newTestRegistry(t), Runner: &countingRunner{}, Engine: engine})

	out := exec.Invoke(context.Background(), TaskContext{Prompt: "anything"})

	assert.False(t, out.Success)
	assert.True(t, strings.HasPrefix(out.Output, "Task execution failed: "))
	assert.ErrorIs(t, out.Err, domain.ErrEngineUnavailable)
	assert.Equal(t, 1, out.Iterations)
}

func TestExecutor_CanceledContext(t *testing.T) {
	engine := &scriptedEngine{fallback: "never"}
	exec := NewExecutor(ExecutorDeps{Tools: newTestRegistry(t), Runner: &countingRunner{}, Engine: engine})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	out := exec.Invoke(ctx, TaskContext{Prompt: "anything"})

	assert.False(t, out.Success)
	assert.ErrorIs(t, out.Err, domain.ErrTimeout)
	assert.Empty(t, engine.prompts)
}

func TestExecutor_AllowedToolsFilterContext(t *testing.T) {
	a := &fakeTool{name: "alpha", tier: domain.RiskReadOnly}
	b := &fakeTool{name: "beta", tier: domain.RiskReadOnly}
	engine := &scriptedEngine{fallback: "ok"}
	exec := NewExecutor(ExecutorDeps{Tools: newTestRegistry(t, a, b), Runner: &countingRunner{}, Engine: engine})

	exec.Invoke(context.Background(), TaskContext{Prompt: "go", AllowedTools: []string{"beta"}})

	require.Len(t, engine.prompts, 1)
	assert.Contains(t, engine.prompts[0], "**beta**")
	assert.NotContains(t, engine.prompts[0], "**alpha**")
}

func TestExecutor_ConcurrentInvocations(t *testing.T) {
	echo := &fakeTool{name: "noop", tier: domain.RiskReadOnly, result: &domain.ToolResult{Success: true}}
	exec := NewExecutor(ExecutorDeps{
		Tools:  newTestRegistry(t, echo),
		Runner: security.NewGateway(nil, security.WithConfirmationTimeout(time.Second)),
		Engine: domain.ReasoningFunc(func(_ context.Context, prompt string) (string, error) {
			return "final", nil
		}),
	})

	var wg sync.WaitGroup
	for range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			out := exec.Invoke(context.Background(), TaskContext{Prompt: "hi"})
			assert.Equal(t, 1, out.Iterations)
		}()
	}
	wg.Wait()
}
