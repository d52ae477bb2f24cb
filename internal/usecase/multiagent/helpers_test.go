package multiagent

import (
	"context"
	"sync"
	"sync/atomic"

	"hedwig/internal/domain"
)

// stubAgent is a scripted domain.Agent.
type stubAgent struct {
	name   string
	reject string // non-empty: every Run is rejected with this reason
	run    func(req *domain.TaskRequest) *domain.TaskResult
	calls  atomic.Int32
	mu     sync.Mutex
	prompt []string
}

func newStubAgent(name string, run func(*domain.TaskRequest) *domain.TaskResult) *stubAgent {
	return &stubAgent{name: name, run: run}
}

func newRejectingAgent(name, reason string) *stubAgent {
	return &stubAgent{name: name, reject: reason}
}

func (s *stubAgent) Name() string { return s.name }

func (s *stubAgent) Descriptor() domain.AgentDescriptor {
	return domain.AgentDescriptor{
		Name:         s.name,
		Purpose:      "handles " + s.name + " work",
		Capabilities: []string{"stub"},
		Examples:     []string{"example one", "example two"},
	}
}

func (s *stubAgent) CanHandle(string, []domain.Message) bool { return true }

func (s *stubAgent) Run(_ context.Context, req *domain.TaskRequest) *domain.TaskResult {
	s.calls.Add(1)
	s.mu.Lock()
	s.prompt = append(s.prompt, req.Prompt)
	s.mu.Unlock()
	if s.reject != "" {
		return s.RejectTask(s.reject, req)
	}
	if s.run == nil {
		return &domain.TaskResult{Success: true, Content: s.name + " done"}
	}
	return s.run(req)
}

func (s *stubAgent) RejectTask(reason string, req *domain.TaskRequest) *domain.TaskResult {
	return &domain.TaskResult{
		Content:      "I cannot handle this task: " + reason,
		ErrorKind:    domain.KindTaskRejected,
		ErrorMessage: "Task rejected by " + s.name + ": " + reason,
		Conversation: domain.CloneMessages(req.Conversation),
		Metadata: map[string]any{
			domain.MetaCanRetry:   true,
			domain.MetaRejectedBy: s.name,
			domain.MetaReason:     reason,
		},
	}
}

func (s *stubAgent) prompts() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.prompt...)
}

// scriptedEngine answers routing prompts with fixed replies.
type scriptedEngine struct {
	mu      sync.Mutex
	replies []string
	err     error
	prompts []string
}

func (e *scriptedEngine) Complete(_ context.Context, prompt string) (string, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.prompts = append(e.prompts, prompt)
	if e.err != nil {
		return "", e.err
	}
	if len(e.replies) == 0 {
		return "", nil
	}
	r := e.replies[0]
	if len(e.replies) > 1 {
		e.replies = e.replies[1:]
	}
	return r, nil
}

// recordingBus collects published events.
type recordingBus struct {
	mu     sync.Mutex
	events []domain.Event
}

func (b *recordingBus) Publish(_ context.Context, e domain.Event) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.events = append(b.events, e)
}

func (b *recordingBus) Subscribe(domain.EventType, domain.EventHandler) func() { return func() {} }
func (b *recordingBus) SubscribeAll(domain.EventHandler) func()                { return func() {} }
func (b *recordingBus) Close()                                                 {}

func (b *recordingBus) types() []domain.EventType {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]domain.EventType, len(b.events))
	for i, e := range b.events {
		out[i] = e.Type
	}
	return out
}

func newDispatcherWith(agents ...domain.Agent) *Dispatcher {
	d := NewDispatcher(NewRegistry(nil), nil)
	for _, a := range agents {
		if err := d.RegisterAgent(a); err != nil {
			panic(err)
		}
	}
	return d
}
