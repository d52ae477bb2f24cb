package multiagent

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"hedwig/internal/domain"
)

func specialists() (*stubAgent, *stubAgent, *stubAgent) {
	return newStubAgent("SWEAgent", nil), newStubAgent("ResearchAgent", nil), newStubAgent("GeneralAgent", nil)
}

func TestOrchestratorFirstAttemptSucceeds(t *testing.T) {
	swe, research, general := specialists()
	o := NewOrchestrator(newDispatcherWith(swe, research, general), nil)

	res := o.Handle(context.Background(), domain.NewTaskRequest("  fix the bug in my code  ", nil, ""))
	require.True(t, res.Success)
	assert.Equal(t, "SWEAgent done", res.Content)
	assert.Equal(t, "SWEAgent", res.Metadata["routed_agent"])
	assert.Equal(t, 1, res.Metadata[domain.MetaAttempts])
	assert.NotContains(t, res.Metadata, domain.MetaRejectedAgents)
	assert.Equal(t, []string{"fix the bug in my code"}, swe.prompts())
	assert.Zero(t, general.calls.Load())
}

func TestOrchestratorRejectionReroutes(t *testing.T) {
	swe := newRejectingAgent("SWEAgent", "not a coding task")
	research := newStubAgent("ResearchAgent", nil)
	general := newStubAgent("GeneralAgent", nil)
	d := newDispatcherWith(swe, research, general)
	o := NewOrchestrator(d, nil)

	res := o.Handle(context.Background(), domain.NewTaskRequest("fix the bug in my code", nil, ""))
	require.True(t, res.Success)
	assert.Equal(t, "GeneralAgent done", res.Content)
	assert.Equal(t, 2, res.Metadata[domain.MetaAttempts])
	assert.Equal(t, []string{"SWEAgent"}, res.Metadata[domain.MetaRejectedAgents])

	prompts := general.prompts()
	require.Len(t, prompts, 1)
	assert.Equal(t,
		"fix the bug in my code\n\nContext: Previous agent (SWEAgent) rejected the task. Please choose a different, more suitable agent.",
		prompts[0])

	history := d.History()
	require.Len(t, history, 2)
	assert.Equal(t, []string{"SWEAgent"}, history[1].Excluded)
	assert.Equal(t, 2, history[1].Attempt)
}

func TestOrchestratorRetriesExhausted(t *testing.T) {
	d := newDispatcherWith(
		newRejectingAgent("SWEAgent", "no"),
		newRejectingAgent("ResearchAgent", "no"),
		newRejectingAgent("GeneralAgent", "out of scope"),
	)
	o := NewOrchestrator(d, nil)
	conv := []domain.Message{{Role: domain.RoleUser, Content: "earlier"}}

	res := o.Handle(context.Background(), domain.NewTaskRequest("hello", conv, ""))
	require.False(t, res.Success)
	assert.Equal(t, domain.KindTaskRejected, res.ErrorKind)
	assert.False(t, res.Rejected(), "a final failure must not invite another retry")
	assert.True(t, strings.HasPrefix(res.ErrorMessage, "Unable to complete task after 3 attempts. Last rejection: Task rejected by "))
	assert.True(t, strings.HasPrefix(res.Content, "I'm sorry, I was unable to complete the task. The specialist agent reported: "))
	assert.Equal(t, true, res.Metadata[domain.MetaFinalFailure])
	assert.Equal(t, 3, res.Metadata[domain.MetaAttempts])
	assert.ElementsMatch(t, []string{"SWEAgent", "ResearchAgent", "GeneralAgent"}, res.Metadata[domain.MetaRejectedAgents])
	assert.Contains(t, res.Metadata[domain.MetaLastError], "Task rejected by")
	assert.Equal(t, conv, res.Conversation)
	assert.Len(t, d.History(), 3)
}

func TestOrchestratorRunsOutOfAgents(t *testing.T) {
	d := newDispatcherWith(
		newRejectingAgent("SWEAgent", "no"),
		newRejectingAgent("GeneralAgent", "not mine"),
	)
	o := NewOrchestrator(d, nil)

	res := o.Handle(context.Background(), domain.NewTaskRequest("hello", nil, ""))
	require.False(t, res.Success)
	assert.Equal(t, domain.KindNoAgentsAvailable, res.ErrorKind)
	assert.Equal(t, 2, res.Metadata[domain.MetaAttempts])
	assert.Equal(t, []string{"GeneralAgent", "SWEAgent"}, res.Metadata[domain.MetaRejectedAgents])
	assert.Equal(t, "Task rejected by SWEAgent: no", res.Metadata[domain.MetaLastError])
}

func TestOrchestratorFailureIsFinal(t *testing.T) {
	general := newStubAgent("GeneralAgent", func(*domain.TaskRequest) *domain.TaskResult {
		return &domain.TaskResult{
			Content:      "boom",
			ErrorKind:    domain.KindAgentExecutionError,
			ErrorMessage: "Error running agent 'GeneralAgent': boom",
		}
	})
	swe := newStubAgent("SWEAgent", nil)
	o := NewOrchestrator(newDispatcherWith(swe, general), nil)

	res := o.Handle(context.Background(), domain.NewTaskRequest("hello", nil, ""))
	require.False(t, res.Success)
	assert.Equal(t, domain.KindAgentExecutionError, res.ErrorKind)
	assert.Equal(t, 1, res.Metadata[domain.MetaAttempts])
	assert.Equal(t, int32(1), general.calls.Load())
	assert.Zero(t, swe.calls.Load())
}

func TestOrchestratorFaultingAgentExcluded(t *testing.T) {
	tests := []struct {
		name string
		run  func(*domain.TaskRequest) *domain.TaskResult
	}{
		{"panic", func(*domain.TaskRequest) *domain.TaskResult { panic("unexpected") }},
		{"nil result", func(*domain.TaskRequest) *domain.TaskResult { return nil }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			general := newStubAgent("GeneralAgent", tt.run)
			swe := newStubAgent("SWEAgent", nil)
			o := NewOrchestrator(newDispatcherWith(swe, general), nil)

			res := o.Handle(context.Background(), domain.NewTaskRequest("hello", nil, ""))
			require.True(t, res.Success)
			assert.Equal(t, "SWEAgent", res.Metadata["routed_agent"])
			assert.Equal(t, 2, res.Metadata[domain.MetaAttempts])
			assert.Equal(t, []string{"hello"}, swe.prompts(), "a fault adds no rejection note")
		})
	}
}

func TestOrchestratorAllFaulting(t *testing.T) {
	broken := func(*domain.TaskRequest) *domain.TaskResult { return nil }
	o := NewOrchestrator(newDispatcherWith(
		newStubAgent("GeneralAgent", broken),
		newStubAgent("SWEAgent", broken),
	), nil, WithMaxRetries(2))

	res := o.Handle(context.Background(), domain.NewTaskRequest("hello", nil, ""))
	require.False(t, res.Success)
	assert.Equal(t, domain.KindAgentExecutionError, res.ErrorKind)
	assert.Equal(t, 2, res.Metadata[domain.MetaAttempts])
	assert.Equal(t, []string{"GeneralAgent", "SWEAgent"}, res.Metadata["faulted_agents"])
	assert.Equal(t, []string{}, res.Metadata[domain.MetaRejectedAgents])
}

func TestOrchestratorHonorsInitialExclusions(t *testing.T) {
	swe, research, general := specialists()
	o := NewOrchestrator(newDispatcherWith(swe, research, general), nil)

	req := domain.NewTaskRequest("fix the bug in my code", nil, "")
	req.ExcludedAgents = []string{"SWEAgent"}
	res := o.Handle(context.Background(), req)
	require.True(t, res.Success)
	assert.Equal(t, "GeneralAgent", res.Metadata["routed_agent"])
	assert.Zero(t, swe.calls.Load())
}

func TestOrchestratorCustomMaxRetries(t *testing.T) {
	o := NewOrchestrator(newDispatcherWith(
		newRejectingAgent("GeneralAgent", "no"),
		newStubAgent("SWEAgent", nil),
	), nil, WithMaxRetries(1))
	assert.Equal(t, 1, o.MaxRetries())

	res := o.Handle(context.Background(), domain.NewTaskRequest("hello", nil, ""))
	require.False(t, res.Success)
	assert.Equal(t, domain.KindTaskRejected, res.ErrorKind)
	assert.Equal(t, 1, res.Metadata[domain.MetaAttempts])
	assert.Equal(t, "Unable to complete task after 1 attempts. Last rejection: Task rejected by GeneralAgent: no", res.ErrorMessage)

	assert.Equal(t, DefaultMaxRetries, NewOrchestrator(newDispatcherWith(), nil, WithMaxRetries(0)).MaxRetries())
}

func TestOrchestratorCanceledContext(t *testing.T) {
	general := newStubAgent("GeneralAgent", nil)
	o := NewOrchestrator(newDispatcherWith(general), nil)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	res := o.Handle(ctx, domain.NewTaskRequest("hello", nil, ""))
	require.False(t, res.Success)
	assert.Equal(t, domain.KindTimeout, res.ErrorKind)
	assert.Equal(t, 0, res.Metadata[domain.MetaAttempts])
	assert.Zero(t, general.calls.Load())
}

func TestOrchestratorNoAgents(t *testing.T) {
	o := NewOrchestrator(newDispatcherWith(), nil)
	res := o.Handle(context.Background(), domain.NewTaskRequest("hello", nil, ""))
	require.False(t, res.Success)
	assert.Equal(t, domain.KindNoAgentsAvailable, res.ErrorKind)
	assert.Contains(t, res.ErrorMessage, "no agents registered")
}

func TestOrchestratorPublishesLifecycle(t *testing.T) {
	bus := &recordingBus{}
	d := NewDispatcher(NewRegistry(nil), nil, WithDispatcherEventBus(bus))
	require.NoError(t, d.RegisterAgent(newRejectingAgent("SWEAgent", "no")))
	require.NoError(t, d.RegisterAgent(newStubAgent("GeneralAgent", nil)))
	o := NewOrchestrator(d, nil, WithOrchestratorEventBus(bus))

	res := o.Handle(context.Background(), domain.NewTaskRequest("write code", nil, "thread-1"))
	require.True(t, res.Success)

	assert.Equal(t, []domain.EventType{
		domain.EventTaskRouted, domain.EventTaskStarted, domain.EventTaskRejected,
		domain.EventTaskRouted, domain.EventTaskStarted, domain.EventTaskCompleted,
	}, bus.types())
	for _, e := range bus.events {
		assert.Equal(t, "thread-1", e.ThreadID)
	}
}
